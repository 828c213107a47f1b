package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/config"
	"github.com/jirateep12z/go-starter-api/internal/ids"
	"github.com/jirateep12z/go-starter-api/internal/models"
	"github.com/jirateep12z/go-starter-api/internal/repository"
)

// BlobStore is the object storage surface the upload service needs.
// *storage.ObjectStore satisfies it.
type BlobStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	Remove(ctx context.Context, key string) error
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

const downloadURLExpiry = 15 * time.Minute

// UploadService stores user files in object storage and tracks them in the
// files table. The record is written after the object so a failed upload
// leaves no dangling row.
type UploadService struct {
	files FileStore
	blobs BlobStore
	cfg   config.UploadConfig
	log   zerolog.Logger
}

func NewUploadService(files FileStore, blobs BlobStore, cfg config.UploadConfig, log zerolog.Logger) *UploadService {
	return &UploadService{
		files: files,
		blobs: blobs,
		cfg:   cfg,
		log:   log,
	}
}

type UploadInput struct {
	OwnerID      string
	OriginalName string
	MimeType     string
	Size         int64
	Reader       io.Reader
}

func (s *UploadService) Upload(ctx context.Context, input UploadInput) (models.File, error) {
	if input.Size <= 0 {
		return models.File{}, apperr.BadRequest("file is empty")
	}
	if s.cfg.MaxFileSize > 0 && input.Size > s.cfg.MaxFileSize {
		return models.File{}, apperr.BadRequest("file exceeds the maximum allowed size")
	}
	if !s.mimeAllowed(input.MimeType) {
		return models.File{}, apperr.BadRequest("file type is not allowed")
	}

	id := ids.New()
	ext := strings.ToLower(filepath.Ext(input.OriginalName))
	key := input.OwnerID + "/" + id + ext

	if err := s.blobs.Put(ctx, key, input.Reader, input.Size, input.MimeType); err != nil {
		return models.File{}, err
	}

	file := models.File{
		ID:           id,
		OwnerID:      input.OwnerID,
		OriginalName: input.OriginalName,
		ObjectKey:    key,
		MimeType:     input.MimeType,
		FileType:     fileTypeOf(input.MimeType),
		Size:         input.Size,
	}
	created, err := s.files.Create(ctx, file)
	if err != nil {
		if removeErr := s.blobs.Remove(ctx, key); removeErr != nil {
			s.log.Warn().Err(removeErr).Str("key", key).Msg("orphan object cleanup failed")
		}
		return models.File{}, err
	}
	return created, nil
}

func (s *UploadService) FindOne(ctx context.Context, id string) (models.File, error) {
	file, err := s.files.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrFileNotFound) {
			return models.File{}, apperr.NotFound("file not found")
		}
		return models.File{}, err
	}
	return file, nil
}

func (s *UploadService) FindByOwner(ctx context.Context, ownerID string) ([]models.File, error) {
	return s.files.ListByOwner(ctx, ownerID)
}

// DownloadURL issues a short-lived presigned link instead of proxying bytes
// through the API.
func (s *UploadService) DownloadURL(ctx context.Context, id string) (string, error) {
	file, err := s.FindOne(ctx, id)
	if err != nil {
		return "", err
	}
	return s.blobs.PresignedGetURL(ctx, file.ObjectKey, downloadURLExpiry)
}

// Delete removes the record and the stored object. Only the owner may delete,
// unless ownerID is empty (administrative delete).
func (s *UploadService) Delete(ctx context.Context, id string, ownerID string) error {
	file, err := s.FindOne(ctx, id)
	if err != nil {
		return err
	}
	if ownerID != "" && file.OwnerID != ownerID {
		return apperr.Forbidden("you do not own this file")
	}

	if err := s.files.Delete(ctx, file.ID); err != nil {
		return err
	}
	if err := s.blobs.Remove(ctx, file.ObjectKey); err != nil {
		s.log.Warn().Err(err).Str("key", file.ObjectKey).Msg("object removal failed")
	}
	return nil
}

func (s *UploadService) mimeAllowed(mimeType string) bool {
	if len(s.cfg.AllowedMimeTypes) == 0 {
		return true
	}
	for _, allowed := range s.cfg.AllowedMimeTypes {
		allowed = strings.TrimSpace(allowed)
		if allowed == "" {
			continue
		}
		if strings.EqualFold(allowed, mimeType) {
			return true
		}
		if prefix, ok := strings.CutSuffix(allowed, "/*"); ok && strings.HasPrefix(mimeType, prefix+"/") {
			return true
		}
	}
	return false
}

func fileTypeOf(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "video/"):
		return "video"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	default:
		return "document"
	}
}
