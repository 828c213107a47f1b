package service

import (
	"context"
	"time"

	"github.com/jirateep12z/go-starter-api/internal/models"
)

// Store interfaces consumed by the services. The pgx repositories satisfy
// them; tests substitute in-memory fakes.

type RoleStore interface {
	Create(ctx context.Context, role models.Role, permissionIDs []string) (models.Role, error)
	GetByID(ctx context.Context, id string) (models.Role, error)
	GetBySlug(ctx context.Context, slug string) (models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	ExistsByNameOrSlug(ctx context.Context, name string, slug string, excludeID string) (bool, error)
	Update(ctx context.Context, role models.Role) (models.Role, error)
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error
	Delete(ctx context.Context, id string) error
	CountUsers(ctx context.Context, roleID string) (int, error)
}

type PermissionStore interface {
	Create(ctx context.Context, permission models.Permission) (models.Permission, error)
	GetByID(ctx context.Context, id string) (models.Permission, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.Permission, error)
	List(ctx context.Context) ([]models.Permission, error)
	ExistsByNameOrSlug(ctx context.Context, name string, slug string, excludeID string) (bool, error)
	Update(ctx context.Context, permission models.Permission) (models.Permission, error)
	Delete(ctx context.Context, id string) error
	CountRoles(ctx context.Context, permissionID string) (int, error)
}

type SessionStore interface {
	Create(ctx context.Context, session models.Session, maxActive int) (models.Session, error)
	GetActiveByIDAndHash(ctx context.Context, id string, refreshTokenHash []byte) (models.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]models.Session, error)
	CountActiveByUser(ctx context.Context, userID string) (int, error)
	MarkInactive(ctx context.Context, sessionID string, userID string) error
	MarkAllInactive(ctx context.Context, userID string) error
	Update(ctx context.Context, session models.Session) error
	RotateRefreshToken(ctx context.Context, userID string, oldHash []byte, newHash []byte) error
	TouchActivity(ctx context.Context, userID string, ipAddress string, userAgent string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	GetByIDWithRole(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByEmailWithRole(ctx context.Context, email string) (models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Update(ctx context.Context, user models.User) (models.User, error)
	Delete(ctx context.Context, id string) error
	UpdateRefreshTokenHash(ctx context.Context, userID string, hash []byte) error
}

type FileStore interface {
	Create(ctx context.Context, file models.File) (models.File, error)
	GetByID(ctx context.Context, id string) (models.File, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.File, error)
	Delete(ctx context.Context, id string) error
}

type TemplateStore interface {
	Create(ctx context.Context, template models.NotificationTemplate) (models.NotificationTemplate, error)
	GetByID(ctx context.Context, id string) (models.NotificationTemplate, error)
	GetByCode(ctx context.Context, code string) (models.NotificationTemplate, error)
	ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error)
	List(ctx context.Context) ([]models.NotificationTemplate, error)
	Update(ctx context.Context, template models.NotificationTemplate) (models.NotificationTemplate, error)
	Delete(ctx context.Context, id string) error
}

type IPWhitelistStore interface {
	Create(ctx context.Context, entry models.IPWhitelistEntry) (models.IPWhitelistEntry, error)
	GetByID(ctx context.Context, id string) (models.IPWhitelistEntry, error)
	List(ctx context.Context) ([]models.IPWhitelistEntry, error)
	ListActive(ctx context.Context) ([]models.IPWhitelistEntry, error)
	Update(ctx context.Context, entry models.IPWhitelistEntry) (models.IPWhitelistEntry, error)
	Delete(ctx context.Context, id string) error
}
