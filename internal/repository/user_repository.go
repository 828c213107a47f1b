package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jirateep12z/go-starter-api/internal/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	pool *pgxpool.Pool
	roles *RoleRepository
}

func NewUserRepository(pool *pgxpool.Pool, roles *RoleRepository) *UserRepository {
	return &UserRepository{pool: pool, roles: roles}
}

const userColumns = `id, email, password_hash, first_name, last_name, role_id, is_active, refresh_token_hash, two_factor_enabled, two_factor_secret, created_at, updated_at`

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.RoleID,
		&user.IsActive,
		&user.RefreshTokenHash,
		&user.TwoFactorEnabled,
		&user.TwoFactorSecret,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (id, email, password_hash, first_name, last_name, role_id, is_active, two_factor_enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.RoleID,
		user.IsActive,
		user.TwoFactorEnabled,
	))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByIDWithRole eager-loads the user's role and its permissions, used by
// the role-priority guards on user mutations.
func (r *UserRepository) GetByIDWithRole(ctx context.Context, id string) (models.User, error) {
	user, err := r.GetByID(ctx, id)
	if err != nil {
		return models.User{}, err
	}
	return r.attachRole(ctx, user)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

// FindByEmailWithRole is the single authorization lookup per request: the
// user row plus role-with-permissions in one call.
func (r *UserRepository) FindByEmailWithRole(ctx context.Context, email string) (models.User, error) {
	user, err := r.FindByEmail(ctx, email)
	if err != nil {
		return models.User{}, err
	}
	return r.attachRole(ctx, user)
}

func (r *UserRepository) List(ctx context.Context) ([]models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		UPDATE users
		SET email = $2, password_hash = $3, first_name = $4, last_name = $5, role_id = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.RoleID,
		user.IsActive,
	))
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// UpdateRefreshTokenHash stores the digest of the last-issued refresh token.
// A nil hash clears the slot (logout).
func (r *UserRepository) UpdateRefreshTokenHash(ctx context.Context, userID string, hash []byte) error {
	const query = `UPDATE users SET refresh_token_hash = $2, updated_at = NOW() WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, userID, hash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) attachRole(ctx context.Context, user models.User) (models.User, error) {
	if user.RoleID == nil {
		return user, nil
	}
	role, err := r.roles.GetByID(ctx, *user.RoleID)
	if err != nil {
		if errors.Is(err, ErrRoleNotFound) {
			return user, nil
		}
		return models.User{}, err
	}
	user.Role = &role
	return user, nil
}
