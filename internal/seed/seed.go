package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/ids"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
)

// permissionCatalog is the full permission set managed endpoints are guarded
// with. Slugs follow resource.action.
var permissionCatalog = []string{
	"users.view", "users.create", "users.update", "users.delete",
	"roles.view", "roles.create", "roles.update", "roles.delete",
	"permissions.view", "permissions.create", "permissions.update", "permissions.delete",
	"files.upload", "files.view", "files.delete", "files.manage",
	"notifications.manage", "notifications.send",
	"backups.create", "backups.view", "backups.delete",
	"system.manage",
}

type systemRole struct {
	name     string
	slug     string
	priority int
	grants   func(slug string) bool
}

var systemRoles = []systemRole{
	{
		name:     "Super Admin",
		slug:     "super-admin",
		priority: 100,
		grants:   func(string) bool { return true },
	},
	{
		name:     "Admin",
		slug:     "admin",
		priority: 50,
		grants: func(slug string) bool {
			return slug != "system.manage" && !strings.HasPrefix(slug, "permissions.")
		},
	},
	{
		name:     "User",
		slug:     "user",
		priority: 1,
		grants: func(slug string) bool {
			switch slug {
			case "files.upload", "files.view", "files.delete":
				return true
			}
			return false
		},
	},
}

// Run creates the permission catalog and the three system roles when they
// are missing. Existing rows are never modified, so operator changes to
// non-system data survive restarts.
func Run(ctx context.Context, roles *repository.RoleRepository, permissions *repository.PermissionRepository, log zerolog.Logger) error {
	permissionIDs := make(map[string]string, len(permissionCatalog))

	for _, slug := range permissionCatalog {
		existing, err := permissions.GetBySlug(ctx, slug)
		if err == nil {
			permissionIDs[slug] = existing.ID
			continue
		}
		if !errors.Is(err, repository.ErrPermissionNotFound) {
			return fmt.Errorf("seed permission %s: %w", slug, err)
		}

		resource, action, _ := strings.Cut(slug, ".")
		created, err := permissions.Create(ctx, models.Permission{
			ID:       ids.New(),
			Name:     permissionName(resource, action),
			Slug:     slug,
			Resource: resource,
			Action:   action,
			IsActive: true,
		})
		if err != nil {
			return fmt.Errorf("seed permission %s: %w", slug, err)
		}
		permissionIDs[slug] = created.ID
		log.Info().Str("slug", slug).Msg("permission seeded")
	}

	for _, role := range systemRoles {
		if _, err := roles.GetBySlug(ctx, role.slug); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrRoleNotFound) {
			return fmt.Errorf("seed role %s: %w", role.slug, err)
		}

		var grantIDs []string
		for _, slug := range permissionCatalog {
			if role.grants(slug) {
				grantIDs = append(grantIDs, permissionIDs[slug])
			}
		}

		if _, err := roles.Create(ctx, models.Role{
			ID:       ids.New(),
			Name:     role.name,
			Slug:     role.slug,
			IsActive: true,
			IsSystem: true,
			Priority: role.priority,
		}, grantIDs); err != nil {
			return fmt.Errorf("seed role %s: %w", role.slug, err)
		}
		log.Info().Str("slug", role.slug).Int("priority", role.priority).Msg("system role seeded")
	}

	return nil
}

func permissionName(resource string, action string) string {
	titleCase := func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	}
	return titleCase(action) + " " + titleCase(resource)
}
