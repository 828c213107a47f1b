package service

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/config"
)

type fakeBlobStore struct {
	objects map[string][]byte
	failPut bool
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: make(map[string][]byte)}
}

func (f *fakeBlobStore) Put(_ context.Context, key string, reader io.Reader, _ int64, _ string) error {
	if f.failPut {
		return io.ErrUnexpectedEOF
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.objects[key] = data
	return nil
}

func (f *fakeBlobStore) Remove(_ context.Context, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeBlobStore) PresignedGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.local/" + key, nil
}

func newUploadFixture(cfg config.UploadConfig) (*UploadService, *fakeFileStore, *fakeBlobStore) {
	files := newFakeFileStore()
	blobs := newFakeBlobStore()
	return NewUploadService(files, blobs, cfg, zerolog.Nop()), files, blobs
}

func TestUpload(t *testing.T) {
	svc, files, blobs := newUploadFixture(config.UploadConfig{MaxFileSize: 1024})
	ctx := context.Background()

	file, err := svc.Upload(ctx, UploadInput{
		OwnerID:      "user-1",
		OriginalName: "photo.png",
		MimeType:     "image/png",
		Size:         4,
		Reader:       strings.NewReader("data"),
	})
	require.NoError(t, err)
	require.Equal(t, "image", file.FileType)
	require.True(t, strings.HasPrefix(file.ObjectKey, "user-1/"))
	require.True(t, strings.HasSuffix(file.ObjectKey, ".png"))

	require.Contains(t, blobs.objects, file.ObjectKey)
	require.Contains(t, files.files, file.ID)
}

func TestUploadSizeLimit(t *testing.T) {
	svc, _, _ := newUploadFixture(config.UploadConfig{MaxFileSize: 3})

	_, err := svc.Upload(context.Background(), UploadInput{
		OwnerID:      "user-1",
		OriginalName: "big.bin",
		MimeType:     "application/octet-stream",
		Size:         4,
		Reader:       strings.NewReader("data"),
	})
	require.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestUploadMimeFilter(t *testing.T) {
	svc, _, _ := newUploadFixture(config.UploadConfig{
		MaxFileSize:      1024,
		AllowedMimeTypes: []string{"image/*", "application/pdf"},
	})
	ctx := context.Background()

	_, err := svc.Upload(ctx, UploadInput{
		OwnerID: "user-1", OriginalName: "a.png", MimeType: "image/png",
		Size: 1, Reader: strings.NewReader("x"),
	})
	require.NoError(t, err, "wildcard prefix matches")

	_, err = svc.Upload(ctx, UploadInput{
		OwnerID: "user-1", OriginalName: "a.pdf", MimeType: "application/pdf",
		Size: 1, Reader: strings.NewReader("x"),
	})
	require.NoError(t, err, "exact type matches")

	_, err = svc.Upload(ctx, UploadInput{
		OwnerID: "user-1", OriginalName: "a.exe", MimeType: "application/x-msdownload",
		Size: 1, Reader: strings.NewReader("x"),
	})
	require.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}

func TestDeleteScopedToOwner(t *testing.T) {
	svc, files, blobs := newUploadFixture(config.UploadConfig{MaxFileSize: 1024})
	ctx := context.Background()

	file, err := svc.Upload(ctx, UploadInput{
		OwnerID: "user-1", OriginalName: "a.png", MimeType: "image/png",
		Size: 1, Reader: strings.NewReader("x"),
	})
	require.NoError(t, err)

	err = svc.Delete(ctx, file.ID, "user-2")
	require.True(t, apperr.IsKind(err, apperr.KindForbidden))

	require.NoError(t, svc.Delete(ctx, file.ID, "user-1"))
	require.Empty(t, files.files)
	require.Empty(t, blobs.objects)
}

func TestDeleteAdministrative(t *testing.T) {
	svc, files, _ := newUploadFixture(config.UploadConfig{MaxFileSize: 1024})
	ctx := context.Background()

	file, err := svc.Upload(ctx, UploadInput{
		OwnerID: "user-1", OriginalName: "a.png", MimeType: "image/png",
		Size: 1, Reader: strings.NewReader("x"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, file.ID, ""), "empty owner bypasses the ownership check")
	require.Empty(t, files.files)
}

func TestDownloadURL(t *testing.T) {
	svc, _, _ := newUploadFixture(config.UploadConfig{MaxFileSize: 1024})
	ctx := context.Background()

	file, err := svc.Upload(ctx, UploadInput{
		OwnerID: "user-1", OriginalName: "a.png", MimeType: "image/png",
		Size: 1, Reader: strings.NewReader("x"),
	})
	require.NoError(t, err)

	url, err := svc.DownloadURL(ctx, file.ID)
	require.NoError(t, err)
	require.Equal(t, "https://storage.local/"+file.ObjectKey, url)

	_, err = svc.DownloadURL(ctx, "missing")
	require.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
