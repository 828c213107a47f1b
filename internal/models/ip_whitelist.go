package models

import "time"

// IPWhitelistEntry allows a single address or a CIDR range. CIDR holds the
// canonical form used for matching.
type IPWhitelistEntry struct {
	ID          string
	CIDR        string
	Description *string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
