package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jirateep12z/go-starter-api/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

type SessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, user_id, refresh_token_hash, ip_address, user_agent, is_active, last_activity, expires_at, created_at, updated_at`

func scanSession(row pgx.Row) (models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshTokenHash,
		&session.IPAddress,
		&session.UserAgent,
		&session.IsActive,
		&session.LastActivity,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Session{}, ErrSessionNotFound
		}
		return models.Session{}, err
	}
	return session, nil
}

// Create inserts a session while holding the active-session cap. The user's
// active rows are locked for the duration of the transaction so concurrent
// logins cannot push the count past maxActive: when the cap is reached the
// oldest active session (by created_at) is deleted first.
func (r *SessionRepository) Create(ctx context.Context, session models.Session, maxActive int) (models.Session, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return models.Session{}, err
	}
	defer tx.Rollback(ctx)

	const lockQuery = `
		SELECT id FROM sessions
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at ASC
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, lockQuery, session.UserID)
	if err != nil {
		return models.Session{}, err
	}
	var activeIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return models.Session{}, err
		}
		activeIDs = append(activeIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return models.Session{}, err
	}

	if maxActive > 0 && len(activeIDs) >= maxActive {
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, activeIDs[0]); err != nil {
			return models.Session{}, err
		}
	}

	const insertQuery = `
		INSERT INTO sessions (id, user_id, refresh_token_hash, ip_address, user_agent, is_active, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, TRUE, $6, NOW(), NOW())
		RETURNING ` + sessionColumns

	created, err := scanSession(tx.QueryRow(ctx, insertQuery,
		session.ID,
		session.UserID,
		session.RefreshTokenHash,
		session.IPAddress,
		session.UserAgent,
		session.ExpiresAt,
	))
	if err != nil {
		return models.Session{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Session{}, err
	}
	return created, nil
}

// GetActiveByIDAndHash matches a session by id plus the digest of the
// currently valid refresh token.
func (r *SessionRepository) GetActiveByIDAndHash(ctx context.Context, id string, refreshTokenHash []byte) (models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE id = $1 AND refresh_token_hash = $2 AND is_active = TRUE
	`
	return scanSession(r.pool.QueryRow(ctx, query, id, refreshTokenHash))
}

func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]models.Session, error) {
	const query = `
		SELECT ` + sessionColumns + `
		FROM sessions
		WHERE user_id = $1 AND is_active = TRUE
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func (r *SessionRepository) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions WHERE user_id = $1 AND is_active = TRUE`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkInactive revokes a single session scoped to its owner. Revoking an
// unknown session is a no-op.
func (r *SessionRepository) MarkInactive(ctx context.Context, sessionID string, userID string) error {
	const query = `
		UPDATE sessions
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	_, err := r.pool.Exec(ctx, query, sessionID, userID)
	return err
}

func (r *SessionRepository) MarkAllInactive(ctx context.Context, userID string) error {
	const query = `
		UPDATE sessions
		SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND is_active = TRUE
	`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

// Update persists lifecycle mutations (activity bump, lazy-expiry flip).
func (r *SessionRepository) Update(ctx context.Context, session models.Session) error {
	const query = `
		UPDATE sessions
		SET refresh_token_hash = $2, is_active = $3, last_activity = $4, expires_at = $5, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := r.pool.Exec(ctx, query,
		session.ID,
		session.RefreshTokenHash,
		session.IsActive,
		session.LastActivity,
		session.ExpiresAt,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// RotateRefreshToken swaps the stored digest for the session holding the old
// one. Matching by the old digest keeps rotation bound to the same session
// row and makes a concurrent second rotation with the stale token a
// deterministic miss.
func (r *SessionRepository) RotateRefreshToken(ctx context.Context, userID string, oldHash []byte, newHash []byte) error {
	const query = `
		UPDATE sessions
		SET refresh_token_hash = $3, last_activity = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND refresh_token_hash = $2 AND is_active = TRUE
	`
	_, err := r.pool.Exec(ctx, query, userID, oldHash, newHash)
	return err
}

// TouchActivity bumps last_activity for active sessions matching the caller's
// device fingerprint. No rows matching is not an error.
func (r *SessionRepository) TouchActivity(ctx context.Context, userID string, ipAddress string, userAgent string) error {
	const query = `
		UPDATE sessions
		SET last_activity = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND ip_address = $2 AND user_agent = $3 AND is_active = TRUE
	`
	_, err := r.pool.Exec(ctx, query, userID, ipAddress, userAgent)
	return err
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at < $1`
	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *SessionRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const query = `DELETE FROM sessions WHERE is_active = FALSE AND updated_at < $1`
	cmd, err := r.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
