package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jirateep12z/go-starter-api/internal/models"
)

var ErrRoleNotFound = errors.New("role not found")

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

const roleColumns = `id, name, slug, description, is_active, is_system, priority, created_at, updated_at`

func scanRole(row pgx.Row) (models.Role, error) {
	var role models.Role
	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.Slug,
		&role.Description,
		&role.IsActive,
		&role.IsSystem,
		&role.Priority,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Role{}, ErrRoleNotFound
		}
		return models.Role{}, err
	}
	return role, nil
}

func (r *RoleRepository) Create(ctx context.Context, role models.Role, permissionIDs []string) (models.Role, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Role{}, err
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO roles (id, name, slug, description, is_active, is_system, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
	`
	if _, err := tx.Exec(ctx, query,
		role.ID,
		role.Name,
		role.Slug,
		role.Description,
		role.IsActive,
		role.IsSystem,
		role.Priority,
	); err != nil {
		return models.Role{}, err
	}

	for _, permissionID := range permissionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
			role.ID, permissionID,
		); err != nil {
			return models.Role{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Role{}, err
	}

	return r.GetByID(ctx, role.ID)
}

func (r *RoleRepository) GetByID(ctx context.Context, id string) (models.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles WHERE id = $1`

	role, err := scanRole(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return models.Role{}, err
	}

	role.Permissions, err = r.permissionsForRole(ctx, role.ID)
	if err != nil {
		return models.Role{}, err
	}
	return role, nil
}

func (r *RoleRepository) GetBySlug(ctx context.Context, slug string) (models.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles WHERE slug = $1`

	role, err := scanRole(r.pool.QueryRow(ctx, query, slug))
	if err != nil {
		return models.Role{}, err
	}

	role.Permissions, err = r.permissionsForRole(ctx, role.ID)
	if err != nil {
		return models.Role{}, err
	}
	return role, nil
}

func (r *RoleRepository) List(ctx context.Context) ([]models.Role, error) {
	const query = `SELECT ` + roleColumns + ` FROM roles ORDER BY priority DESC, slug ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range roles {
		roles[i].Permissions, err = r.permissionsForRole(ctx, roles[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return roles, nil
}

// ExistsByNameOrSlug reports whether another role already claims the name or
// slug. excludeID skips the role being updated.
func (r *RoleRepository) ExistsByNameOrSlug(ctx context.Context, name string, slug string, excludeID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM roles
			WHERE (name = $1 OR slug = $2) AND id <> $3
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, name, slug, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *RoleRepository) Update(ctx context.Context, role models.Role) (models.Role, error) {
	const query = `
		UPDATE roles
		SET name = $2, slug = $3, description = $4, is_active = $5, priority = $6, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		role.ID,
		role.Name,
		role.Slug,
		role.Description,
		role.IsActive,
		role.Priority,
	)
	if err != nil {
		return models.Role{}, err
	}
	if cmd.RowsAffected() == 0 {
		return models.Role{}, ErrRoleNotFound
	}
	return r.GetByID(ctx, role.ID)
}

// ReplacePermissions swaps the full permission set of a role. The set is
// replaced, never merged.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
		return err
	}
	for _, permissionID := range permissionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)`,
			roleID, permissionID,
		); err != nil {
			return err
		}
	}
	if _, err := tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, id); err != nil {
		return err
	}
	cmd, err := tx.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrRoleNotFound
	}

	return tx.Commit(ctx)
}

func (r *RoleRepository) CountUsers(ctx context.Context, roleID string) (int, error) {
	const query = `SELECT COUNT(*) FROM users WHERE role_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, roleID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RoleRepository) permissionsForRole(ctx context.Context, roleID string) ([]models.Permission, error) {
	const query = `
		SELECT p.id, p.name, p.slug, p.description, p.resource, p.action, p.is_active, p.created_at, p.updated_at
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1
		ORDER BY p.resource ASC, p.action ASC
	`
	rows, err := r.pool.Query(ctx, query, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var permissions []models.Permission
	for rows.Next() {
		permission, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		permissions = append(permissions, permission)
	}
	return permissions, rows.Err()
}
