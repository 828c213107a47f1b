package service

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/apperr"
	"github.com/jirateep12z/go-starter-api/internal/config"
)

// ArchiveStore is where finished backup archives are mirrored. It is a
// subset of BlobStore so the MinIO object store can serve both.
type ArchiveStore interface {
	PutFile(ctx context.Context, key string, path string, contentType string) error
}

type BackupFile struct {
	Name      string
	Size      int64
	Kind      string
	CreatedAt time.Time
}

type BackupStats struct {
	Count     int
	TotalSize int64
	Oldest    *time.Time
	Newest    *time.Time
}

// BackupService produces database dumps and uploads-directory archives in
// the backup directory, mirrors them to object storage and prunes archives
// past the retention window.
type BackupService struct {
	cfg      config.BackupConfig
	postgres config.PostgresConfig
	archives ArchiveStore
	log      zerolog.Logger
}

func NewBackupService(cfg config.BackupConfig, postgres config.PostgresConfig, archives ArchiveStore, log zerolog.Logger) *BackupService {
	return &BackupService{
		cfg:      cfg,
		postgres: postgres,
		archives: archives,
		log:      log,
	}
}

// CreateDatabaseBackup shells out to pg_dump and gzips the result.
func (s *BackupService) CreateDatabaseBackup(ctx context.Context) (BackupFile, error) {
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return BackupFile{}, fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("db_%s.sql.gz", time.Now().Format("20060102_150405"))
	outputPath := filepath.Join(s.cfg.Dir, name)

	cmd := exec.CommandContext(ctx, s.cfg.PgDumpPath, "--no-owner", "--dbname", s.postgres.DSN)
	dump, err := cmd.Output()
	if err != nil {
		return BackupFile{}, fmt.Errorf("pg_dump: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return BackupFile{}, fmt.Errorf("create backup file: %w", err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	if _, err := gzWriter.Write(dump); err != nil {
		gzWriter.Close()
		return BackupFile{}, fmt.Errorf("compress backup: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		return BackupFile{}, fmt.Errorf("compress backup: %w", err)
	}

	s.mirror(ctx, name, outputPath, "application/gzip")
	return s.statBackup(name)
}

// CreateUploadsBackup archives the local uploads directory as tar.gz. It is
// a no-op when no uploads directory is configured.
func (s *BackupService) CreateUploadsBackup(ctx context.Context) (BackupFile, error) {
	if s.cfg.UploadsDir == "" {
		return BackupFile{}, apperr.BadRequest("uploads directory is not configured")
	}
	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return BackupFile{}, fmt.Errorf("create backup dir: %w", err)
	}

	name := fmt.Sprintf("uploads_%s.tar.gz", time.Now().Format("20060102_150405"))
	outputPath := filepath.Join(s.cfg.Dir, name)

	if err := writeTarGz(s.cfg.UploadsDir, outputPath); err != nil {
		return BackupFile{}, err
	}

	s.mirror(ctx, name, outputPath, "application/gzip")
	return s.statBackup(name)
}

func (s *BackupService) ListBackups() ([]BackupFile, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var backups []BackupFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, BackupFile{
			Name:      entry.Name(),
			Size:      info.Size(),
			Kind:      backupKind(entry.Name()),
			CreatedAt: info.ModTime(),
		})
	}
	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

func (s *BackupService) DeleteBackup(name string) error {
	if name != filepath.Base(name) || name == "." || name == "" {
		return apperr.BadRequest("invalid backup name")
	}
	path := filepath.Join(s.cfg.Dir, name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return apperr.NotFound("backup not found")
		}
		return err
	}
	return nil
}

func (s *BackupService) GetBackupStats() (BackupStats, error) {
	backups, err := s.ListBackups()
	if err != nil {
		return BackupStats{}, err
	}

	stats := BackupStats{Count: len(backups)}
	for _, backup := range backups {
		stats.TotalSize += backup.Size
		created := backup.CreatedAt
		if stats.Oldest == nil || created.Before(*stats.Oldest) {
			stats.Oldest = &created
		}
		if stats.Newest == nil || created.After(*stats.Newest) {
			stats.Newest = &created
		}
	}
	return stats, nil
}

// CleanupOldBackups deletes archives older than the retention window and
// returns how many were removed.
func (s *BackupService) CleanupOldBackups() (int, error) {
	backups, err := s.ListBackups()
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-s.cfg.Retention)
	removed := 0
	for _, backup := range backups {
		if backup.CreatedAt.After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.cfg.Dir, backup.Name)); err != nil {
			s.log.Warn().Err(err).Str("name", backup.Name).Msg("backup removal failed")
			continue
		}
		removed++
	}
	return removed, nil
}

// mirror is best-effort: a missing or failing object store never fails the
// local backup.
func (s *BackupService) mirror(ctx context.Context, name string, path string, contentType string) {
	if s.archives == nil {
		return
	}
	if err := s.archives.PutFile(ctx, "backups/"+name, path, contentType); err != nil {
		s.log.Warn().Err(err).Str("name", name).Msg("backup mirror upload failed")
	}
}

func (s *BackupService) statBackup(name string) (BackupFile, error) {
	info, err := os.Stat(filepath.Join(s.cfg.Dir, name))
	if err != nil {
		return BackupFile{}, err
	}
	return BackupFile{
		Name:      name,
		Size:      info.Size(),
		Kind:      backupKind(name),
		CreatedAt: info.ModTime(),
	}, nil
}

func backupKind(name string) string {
	if strings.HasPrefix(name, "db_") {
		return "database"
	}
	return "files"
}

func writeTarGz(sourceDir string, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer file.Close()

	gzWriter := gzip.NewWriter(file)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	return filepath.Walk(sourceDir, func(filePath string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		srcFile, err := os.Open(filePath)
		if err != nil {
			return err
		}
		defer srcFile.Close()

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		relPath, err := filepath.Rel(sourceDir, filePath)
		if err != nil {
			return err
		}
		header.Name = relPath

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}
		_, err = io.Copy(tarWriter, srcFile)
		return err
	})
}
