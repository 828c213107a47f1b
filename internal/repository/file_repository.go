package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jirateep12z/go-starter-api/internal/models"
)

var ErrFileNotFound = errors.New("file not found")

type FileRepository struct {
	pool *pgxpool.Pool
}

func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

const fileColumns = `id, owner_id, original_name, object_key, mime_type, file_type, size, created_at, updated_at`

func scanFile(row pgx.Row) (models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.OwnerID,
		&file.OriginalName,
		&file.ObjectKey,
		&file.MimeType,
		&file.FileType,
		&file.Size,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.File{}, ErrFileNotFound
		}
		return models.File{}, err
	}
	return file, nil
}

func (r *FileRepository) Create(ctx context.Context, file models.File) (models.File, error) {
	const query = `
		INSERT INTO files (id, owner_id, original_name, object_key, mime_type, file_type, size, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING ` + fileColumns

	return scanFile(r.pool.QueryRow(ctx, query,
		file.ID,
		file.OwnerID,
		file.OriginalName,
		file.ObjectKey,
		file.MimeType,
		file.FileType,
		file.Size,
	))
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (models.File, error) {
	const query = `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return scanFile(r.pool.QueryRow(ctx, query, id))
}

func (r *FileRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.File, error) {
	const query = `SELECT ` + fileColumns + ` FROM files WHERE owner_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []models.File
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, rows.Err()
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM files WHERE id = $1`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrFileNotFound
	}
	return nil
}
