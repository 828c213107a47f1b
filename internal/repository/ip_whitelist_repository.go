package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jirateep12z/go-starter-api/internal/models"
)

var ErrIPWhitelistEntryNotFound = errors.New("ip whitelist entry not found")

type IPWhitelistRepository struct {
	pool *pgxpool.Pool
}

func NewIPWhitelistRepository(pool *pgxpool.Pool) *IPWhitelistRepository {
	return &IPWhitelistRepository{pool: pool}
}

const ipWhitelistColumns = `id, cidr, description, is_active, created_at, updated_at`

func scanIPWhitelistEntry(row pgx.Row) (models.IPWhitelistEntry, error) {
	var entry models.IPWhitelistEntry
	err := row.Scan(
		&entry.ID,
		&entry.CIDR,
		&entry.Description,
		&entry.IsActive,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.IPWhitelistEntry{}, ErrIPWhitelistEntryNotFound
		}
		return models.IPWhitelistEntry{}, err
	}
	return entry, nil
}

func (r *IPWhitelistRepository) Create(ctx context.Context, entry models.IPWhitelistEntry) (models.IPWhitelistEntry, error) {
	const query = `
		INSERT INTO ip_whitelist (id, cidr, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING ` + ipWhitelistColumns

	return scanIPWhitelistEntry(r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.CIDR,
		entry.Description,
		entry.IsActive,
	))
}

func (r *IPWhitelistRepository) GetByID(ctx context.Context, id string) (models.IPWhitelistEntry, error) {
	const query = `SELECT ` + ipWhitelistColumns + ` FROM ip_whitelist WHERE id = $1`
	return scanIPWhitelistEntry(r.pool.QueryRow(ctx, query, id))
}

func (r *IPWhitelistRepository) List(ctx context.Context) ([]models.IPWhitelistEntry, error) {
	const query = `SELECT ` + ipWhitelistColumns + ` FROM ip_whitelist ORDER BY created_at DESC`
	return r.queryEntries(ctx, query)
}

func (r *IPWhitelistRepository) ListActive(ctx context.Context) ([]models.IPWhitelistEntry, error) {
	const query = `SELECT ` + ipWhitelistColumns + ` FROM ip_whitelist WHERE is_active = TRUE ORDER BY created_at DESC`
	return r.queryEntries(ctx, query)
}

func (r *IPWhitelistRepository) Update(ctx context.Context, entry models.IPWhitelistEntry) (models.IPWhitelistEntry, error) {
	const query = `
		UPDATE ip_whitelist
		SET cidr = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + ipWhitelistColumns

	return scanIPWhitelistEntry(r.pool.QueryRow(ctx, query,
		entry.ID,
		entry.CIDR,
		entry.Description,
		entry.IsActive,
	))
}

func (r *IPWhitelistRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM ip_whitelist WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrIPWhitelistEntryNotFound
	}
	return nil
}

func (r *IPWhitelistRepository) queryEntries(ctx context.Context, query string) ([]models.IPWhitelistEntry, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.IPWhitelistEntry
	for rows.Next() {
		entry, err := scanIPWhitelistEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
