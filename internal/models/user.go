package models

import "time"

type User struct {
	ID               string
	Email            string
	PasswordHash     []byte
	FirstName        *string
	LastName         *string
	RoleID           *string
	Role             *Role
	IsActive         bool
	RefreshTokenHash []byte
	TwoFactorEnabled bool
	TwoFactorSecret  *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasActiveRole reports whether the user carries a resolved, active role.
func (u User) HasActiveRole() bool {
	return u.Role != nil && u.Role.IsActive
}
