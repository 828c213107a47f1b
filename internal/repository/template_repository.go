package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jirateep12z/go-starter-api/internal/models"
)

var ErrTemplateNotFound = errors.New("notification template not found")

type TemplateRepository struct {
	pool *pgxpool.Pool
}

func NewTemplateRepository(pool *pgxpool.Pool) *TemplateRepository {
	return &TemplateRepository{pool: pool}
}

const templateColumns = `id, code, name, channel, subject, body, is_active, created_at, updated_at`

func scanTemplate(row pgx.Row) (models.NotificationTemplate, error) {
	var template models.NotificationTemplate
	err := row.Scan(
		&template.ID,
		&template.Code,
		&template.Name,
		&template.Channel,
		&template.Subject,
		&template.Body,
		&template.IsActive,
		&template.CreatedAt,
		&template.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.NotificationTemplate{}, ErrTemplateNotFound
		}
		return models.NotificationTemplate{}, err
	}
	return template, nil
}

func (r *TemplateRepository) Create(ctx context.Context, template models.NotificationTemplate) (models.NotificationTemplate, error) {
	const query = `
		INSERT INTO notification_templates (id, code, name, channel, subject, body, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + templateColumns

	return scanTemplate(r.pool.QueryRow(ctx, query,
		template.ID,
		template.Code,
		template.Name,
		template.Channel,
		template.Subject,
		template.Body,
		template.IsActive,
	))
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (models.NotificationTemplate, error) {
	const query = `SELECT ` + templateColumns + ` FROM notification_templates WHERE id = $1`
	return scanTemplate(r.pool.QueryRow(ctx, query, id))
}

func (r *TemplateRepository) GetByCode(ctx context.Context, code string) (models.NotificationTemplate, error) {
	const query = `SELECT ` + templateColumns + ` FROM notification_templates WHERE code = $1`
	return scanTemplate(r.pool.QueryRow(ctx, query, code))
}

func (r *TemplateRepository) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM notification_templates WHERE code = $1 AND id <> $2)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, code, excludeID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]models.NotificationTemplate, error) {
	const query = `SELECT ` + templateColumns + ` FROM notification_templates ORDER BY code ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var templates []models.NotificationTemplate
	for rows.Next() {
		template, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, template)
	}
	return templates, rows.Err()
}

func (r *TemplateRepository) Update(ctx context.Context, template models.NotificationTemplate) (models.NotificationTemplate, error) {
	const query = `
		UPDATE notification_templates
		SET code = $2, name = $3, channel = $4, subject = $5, body = $6, is_active = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + templateColumns

	return scanTemplate(r.pool.QueryRow(ctx, query,
		template.ID,
		template.Code,
		template.Name,
		template.Channel,
		template.Subject,
		template.Body,
		template.IsActive,
	))
}

func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM notification_templates WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTemplateNotFound
	}
	return nil
}
