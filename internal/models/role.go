package models

import "time"

// Role is a named permission set. Priority orders roles by power: a caller
// may never modify a role whose priority exceeds their own. System roles are
// seeded and immutable through the management API.
type Role struct {
	ID          string
	Name        string
	Slug        string
	Description *string
	IsActive    bool
	IsSystem    bool
	Priority    int
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ActivePermissionSlugs returns the slugs of the role's active permissions.
func (r Role) ActivePermissionSlugs() []string {
	slugs := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		if p.IsActive {
			slugs = append(slugs, p.Slug)
		}
	}
	return slugs
}

type Permission struct {
	ID          string
	Name        string
	Slug        string
	Description *string
	Resource    string
	Action      string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
