package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jirateep12z/go-starter-api/internal/models"
)

var ErrPermissionNotFound = errors.New("permission not found")

type PermissionRepository struct {
	pool *pgxpool.Pool
}

func NewPermissionRepository(pool *pgxpool.Pool) *PermissionRepository {
	return &PermissionRepository{pool: pool}
}

const permissionColumns = `id, name, slug, description, resource, action, is_active, created_at, updated_at`

func scanPermission(row pgx.Row) (models.Permission, error) {
	var permission models.Permission
	err := row.Scan(
		&permission.ID,
		&permission.Name,
		&permission.Slug,
		&permission.Description,
		&permission.Resource,
		&permission.Action,
		&permission.IsActive,
		&permission.CreatedAt,
		&permission.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Permission{}, ErrPermissionNotFound
		}
		return models.Permission{}, err
	}
	return permission, nil
}

func (r *PermissionRepository) Create(ctx context.Context, permission models.Permission) (models.Permission, error) {
	const query = `
		INSERT INTO permissions (id, name, slug, description, resource, action, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + permissionColumns

	return scanPermission(r.pool.QueryRow(ctx, query,
		permission.ID,
		permission.Name,
		permission.Slug,
		permission.Description,
		permission.Resource,
		permission.Action,
		permission.IsActive,
	))
}

func (r *PermissionRepository) GetByID(ctx context.Context, id string) (models.Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions WHERE id = $1`
	return scanPermission(r.pool.QueryRow(ctx, query, id))
}

func (r *PermissionRepository) GetBySlug(ctx context.Context, slug string) (models.Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions WHERE slug = $1`
	return scanPermission(r.pool.QueryRow(ctx, query, slug))
}

// GetByIDs resolves a batch of permission ids. Missing ids are simply absent
// from the result; callers compare counts to detect them.
func (r *PermissionRepository) GetByIDs(ctx context.Context, ids []string) ([]models.Permission, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	const query = `SELECT ` + permissionColumns + ` FROM permissions WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, ids)
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

func (r *PermissionRepository) List(ctx context.Context) ([]models.Permission, error) {
	const query = `SELECT ` + permissionColumns + ` FROM permissions ORDER BY resource ASC, action ASC`

	rows, err := r.pool.Query(ctx, query)
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

func (r *PermissionRepository) ExistsByNameOrSlug(ctx context.Context, name string, slug string, excludeID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM permissions
			WHERE (name = $1 OR slug = $2) AND id <> $3
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, name, slug, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PermissionRepository) Update(ctx context.Context, permission models.Permission) (models.Permission, error) {
	const query = `
		UPDATE permissions
		SET name = $2, slug = $3, description = $4, resource = $5, action = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + permissionColumns

	return scanPermission(r.pool.QueryRow(ctx, query,
		permission.ID,
		permission.Name,
		permission.Slug,
		permission.Description,
		permission.Resource,
		permission.Action,
		permission.IsActive,
	))
}

func (r *PermissionRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM permissions WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPermissionNotFound
	}
	return nil
}

func (r *PermissionRepository) CountRoles(ctx context.Context, permissionID string) (int, error) {
	const query = `SELECT COUNT(*) FROM role_permissions WHERE permission_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, permissionID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
