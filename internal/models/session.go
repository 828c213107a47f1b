package models

import "time"

// Session binds one device login to a rotating hashed refresh token. The raw
// token is never stored; RefreshTokenHash always holds the digest of the
// currently valid token for this device.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash []byte
	IPAddress        string
	UserAgent        string
	IsActive         bool
	LastActivity     *time.Time
	ExpiresAt        time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Expired reports whether the session's lifetime has elapsed, regardless of
// the IsActive flag.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt.Before(now)
}

// SessionStats summarizes a user's tracked devices.
type SessionStats struct {
	TotalSessions  int
	ActiveSessions int
	Devices        []string
}
