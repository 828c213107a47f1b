package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/ids"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
)

const (
	roleCachePrefix = "rbac:role:"
	roleCacheTTL    = 5 * time.Minute
)

// RBACService manages roles and permissions and answers permission checks.
// Role-with-permissions lookups by slug are cached in Redis; every mutation
// busts the cache so checks never see stale grants for longer than one write.
type RBACService struct {
	roles       RoleStore
	permissions PermissionStore
	cache       *redis.Client
	log         zerolog.Logger
}

func NewRBACService(roles RoleStore, permissions PermissionStore, cache *redis.Client, log zerolog.Logger) *RBACService {
	return &RBACService{
		roles:       roles,
		permissions: permissions,
		cache:       cache,
		log:         log,
	}
}

// HasAllPermissions is the pure authorization decision: the caller's role
// must be active and hold every required permission (AND-all). An empty
// requirement always allows. No store access happens here; the role must
// already be loaded with its permissions.
func HasAllPermissions(role *models.Role, required ...string) bool {
	if len(required) == 0 {
		return true
	}
	if role == nil || !role.IsActive {
		return false
	}

	held := make(map[string]struct{}, len(role.Permissions))
	for _, p := range role.Permissions {
		if p.IsActive {
			held[p.Slug] = struct{}{}
		}
	}
	for _, slug := range required {
		if _, ok := held[slug]; !ok {
			return false
		}
	}
	return true
}

type CreateRoleInput struct {
	Name          string
	Slug          string
	Description   *string
	Priority      int
	IsActive      *bool
	PermissionIDs []string
}

func (s *RBACService) CreateRole(ctx context.Context, input CreateRoleInput) (models.Role, error) {
	exists, err := s.roles.ExistsByNameOrSlug(ctx, input.Name, input.Slug, "")
	if err != nil {
		return models.Role{}, err
	}
	if exists {
		return models.Role{}, apperr.Conflict("role name or slug already exists")
	}

	if err := s.resolvePermissionIDs(ctx, input.PermissionIDs); err != nil {
		return models.Role{}, err
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	role := models.Role{
		ID:          ids.New(),
		Name:        input.Name,
		Slug:        input.Slug,
		Description: input.Description,
		IsActive:    isActive,
		Priority:    input.Priority,
	}

	created, err := s.roles.Create(ctx, role, input.PermissionIDs)
	if err != nil {
		return models.Role{}, err
	}

	s.invalidateRoleCache(ctx)
	return created, nil
}

func (s *RBACService) FindAllRoles(ctx context.Context) ([]models.Role, error) {
	return s.roles.List(ctx)
}

func (s *RBACService) FindOneRole(ctx context.Context, id string) (models.Role, error) {
	role, err := s.roles.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return models.Role{}, apperr.NotFound("role not found")
		}
		return models.Role{}, err
	}
	return role, nil
}

func (s *RBACService) FindRoleBySlug(ctx context.Context, slug string) (models.Role, error) {
	role, err := s.roles.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, repository.ErrRoleNotFound) {
			return models.Role{}, apperr.NotFound("role not found")
		}
		return models.Role{}, err
	}
	return role, nil
}

type UpdateRoleInput struct {
	Name          *string
	Slug          *string
	Description   *string
	Priority      *int
	IsActive      *bool
	PermissionIDs []string
}

// UpdateRole patches a role. System roles are immutable and a caller may
// never touch a role more powerful than their own (callerPriority nil skips
// the guard, for trusted internal callers).
func (s *RBACService) UpdateRole(ctx context.Context, id string, input UpdateRoleInput, callerPriority *int) (models.Role, error) {
	role, err := s.FindOneRole(ctx, id)
	if err != nil {
		return models.Role{}, err
	}
	if role.IsSystem {
		return models.Role{}, apperr.BadRequest("cannot modify system role")
	}
	if callerPriority != nil && role.Priority > *callerPriority {
		return models.Role{}, apperr.Forbidden("cannot modify roles with higher priority")
	}

	if input.Name != nil {
		role.Name = *input.Name
	}
	if input.Slug != nil {
		role.Slug = *input.Slug
	}
	if input.Name != nil || input.Slug != nil {
		exists, err := s.roles.ExistsByNameOrSlug(ctx, role.Name, role.Slug, role.ID)
		if err != nil {
			return models.Role{}, err
		}
		if exists {
			return models.Role{}, apperr.Conflict("role name or slug already exists")
		}
	}
	if input.Description != nil {
		role.Description = input.Description
	}
	if input.Priority != nil {
		role.Priority = *input.Priority
	}
	if input.IsActive != nil {
		role.IsActive = *input.IsActive
	}

	if input.PermissionIDs != nil {
		if err := s.resolvePermissionIDs(ctx, input.PermissionIDs); err != nil {
			return models.Role{}, err
		}
		if err := s.roles.ReplacePermissions(ctx, role.ID, input.PermissionIDs); err != nil {
			return models.Role{}, err
		}
	}

	updated, err := s.roles.Update(ctx, role)
	if err != nil {
		return models.Role{}, err
	}

	s.invalidateRoleCache(ctx)
	return updated, nil
}

func (s *RBACService) DeleteRole(ctx context.Context, id string, callerPriority *int) error {
	role, err := s.FindOneRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return apperr.BadRequest("cannot delete system role")
	}
	if callerPriority != nil && role.Priority > *callerPriority {
		return apperr.Forbidden("cannot delete roles with higher priority")
	}

	assigned, err := s.roles.CountUsers(ctx, role.ID)
	if err != nil {
		return err
	}
	if assigned > 0 {
		return apperr.BadRequest("cannot delete role that has users assigned")
	}

	if err := s.roles.Delete(ctx, role.ID); err != nil {
		return err
	}

	s.invalidateRoleCache(ctx)
	return nil
}

// AssignPermissionsToRole replaces the role's permission set, never merges.
func (s *RBACService) AssignPermissionsToRole(ctx context.Context, roleID string, permissionIDs []string, callerPriority *int) (models.Role, error) {
	role, err := s.FindOneRole(ctx, roleID)
	if err != nil {
		return models.Role{}, err
	}
	if callerPriority != nil && role.Priority > *callerPriority {
		return models.Role{}, apperr.Forbidden("cannot assign permissions to roles with higher priority")
	}

	if err := s.resolvePermissionIDs(ctx, permissionIDs); err != nil {
		return models.Role{}, err
	}
	if err := s.roles.ReplacePermissions(ctx, role.ID, permissionIDs); err != nil {
		return models.Role{}, err
	}

	s.invalidateRoleCache(ctx)
	return s.FindOneRole(ctx, roleID)
}

type CreatePermissionInput struct {
	Name        string
	Slug        string
	Description *string
	Resource    string
	Action      string
	IsActive    *bool
}

func (s *RBACService) CreatePermission(ctx context.Context, input CreatePermissionInput) (models.Permission, error) {
	exists, err := s.permissions.ExistsByNameOrSlug(ctx, input.Name, input.Slug, "")
	if err != nil {
		return models.Permission{}, err
	}
	if exists {
		return models.Permission{}, apperr.Conflict("permission name or slug already exists")
	}

	isActive := true
	if input.IsActive != nil {
		isActive = *input.IsActive
	}

	permission := models.Permission{
		ID:          ids.New(),
		Name:        input.Name,
		Slug:        input.Slug,
		Description: input.Description,
		Resource:    input.Resource,
		Action:      input.Action,
		IsActive:    isActive,
	}

	created, err := s.permissions.Create(ctx, permission)
	if err != nil {
		return models.Permission{}, err
	}

	s.invalidateRoleCache(ctx)
	return created, nil
}

func (s *RBACService) FindAllPermissions(ctx context.Context) ([]models.Permission, error) {
	return s.permissions.List(ctx)
}

func (s *RBACService) FindOnePermission(ctx context.Context, id string) (models.Permission, error) {
	permission, err := s.permissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrPermissionNotFound) {
			return models.Permission{}, apperr.NotFound("permission not found")
		}
		return models.Permission{}, err
	}
	return permission, nil
}

type UpdatePermissionInput struct {
	Name        *string
	Slug        *string
	Description *string
	Resource    *string
	Action      *string
	IsActive    *bool
}

func (s *RBACService) UpdatePermission(ctx context.Context, id string, input UpdatePermissionInput) (models.Permission, error) {
	permission, err := s.FindOnePermission(ctx, id)
	if err != nil {
		return models.Permission{}, err
	}

	if input.Name != nil {
		permission.Name = *input.Name
	}
	if input.Slug != nil {
		permission.Slug = *input.Slug
	}
	if input.Name != nil || input.Slug != nil {
		exists, err := s.permissions.ExistsByNameOrSlug(ctx, permission.Name, permission.Slug, permission.ID)
		if err != nil {
			return models.Permission{}, err
		}
		if exists {
			return models.Permission{}, apperr.Conflict("permission name or slug already exists")
		}
	}
	if input.Description != nil {
		permission.Description = input.Description
	}
	if input.Resource != nil {
		permission.Resource = *input.Resource
	}
	if input.Action != nil {
		permission.Action = *input.Action
	}
	if input.IsActive != nil {
		permission.IsActive = *input.IsActive
	}

	updated, err := s.permissions.Update(ctx, permission)
	if err != nil {
		return models.Permission{}, err
	}

	s.invalidateRoleCache(ctx)
	return updated, nil
}

func (s *RBACService) DeletePermission(ctx context.Context, id string) error {
	permission, err := s.FindOnePermission(ctx, id)
	if err != nil {
		return err
	}

	attached, err := s.permissions.CountRoles(ctx, permission.ID)
	if err != nil {
		return err
	}
	if attached > 0 {
		return apperr.BadRequest("cannot delete permission that is assigned to roles")
	}

	if err := s.permissions.Delete(ctx, permission.ID); err != nil {
		return err
	}

	s.invalidateRoleCache(ctx)
	return nil
}

// CheckPermission reports whether an active role identified by slug holds an
// active permission. Unknown or inactive roles always answer false.
func (s *RBACService) CheckPermission(ctx context.Context, roleSlug string, permissionSlug string) (bool, error) {
	role, err := s.roleBySlugCached(ctx, roleSlug)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return false, nil
		}
		return false, err
	}
	if !role.IsActive {
		return false, nil
	}
	for _, p := range role.Permissions {
		if p.IsActive && p.Slug == permissionSlug {
			return true, nil
		}
	}
	return false, nil
}

// GetUserPermissions returns the active permission slugs of an active role,
// or an empty set when the role is missing or inactive.
func (s *RBACService) GetUserPermissions(ctx context.Context, roleSlug string) ([]string, error) {
	role, err := s.roleBySlugCached(ctx, roleSlug)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return []string{}, nil
		}
		return nil, err
	}
	if !role.IsActive {
		return []string{}, nil
	}
	return role.ActivePermissionSlugs(), nil
}

func (s *RBACService) resolvePermissionIDs(ctx context.Context, permissionIDs []string) error {
	if len(permissionIDs) == 0 {
		return nil
	}
	resolved, err := s.permissions.GetByIDs(ctx, permissionIDs)
	if err != nil {
		return err
	}
	if len(resolved) != len(permissionIDs) {
		return apperr.BadRequest("some permissions not found")
	}
	return nil
}

func (s *RBACService) roleBySlugCached(ctx context.Context, slug string) (models.Role, error) {
	if s.cache != nil {
		payload, err := s.cache.Get(ctx, roleCachePrefix+slug).Bytes()
		if err == nil {
			var role models.Role
			if err := json.Unmarshal(payload, &role); err == nil {
				return role, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Str("slug", slug).Msg("role cache read failed")
		}
	}

	role, err := s.FindRoleBySlug(ctx, slug)
	if err != nil {
		return models.Role{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(role); err == nil {
			if err := s.cache.Set(ctx, roleCachePrefix+slug, payload, roleCacheTTL).Err(); err != nil {
				s.log.Warn().Err(err).Str("slug", slug).Msg("role cache write failed")
			}
		}
	}
	return role, nil
}

// invalidateRoleCache drops every cached role. Mutations are rare next to
// checks, so a full sweep is simpler than tracking which slugs a permission
// change touches.
func (s *RBACService) invalidateRoleCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	iter := s.cache.Scan(ctx, 0, roleCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := s.cache.Del(ctx, iter.Val()).Err(); err != nil {
			s.log.Warn().Err(err).Msg("role cache invalidation failed")
			return
		}
	}
	if err := iter.Err(); err != nil {
		s.log.Warn().Err(err).Msg("role cache scan failed")
	}
}
