package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/config"
	"github.com/jirateep12z/go-starter-api/internal/service"
)

// Scheduler runs the recurring maintenance jobs: the hourly expired-session
// sweep, the daily inactive-session sweep and the nightly backup. Job errors
// are logged and swallowed; a failed run waits for the next tick.
type Scheduler struct {
	cron     *cron.Cron
	sessions *service.SessionService
	backups  *service.BackupService
	cfg      config.BackupConfig
	log      zerolog.Logger
}

func NewScheduler(sessions *service.SessionService, backups *service.BackupService, cfg config.BackupConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds()),
		sessions: sessions,
		backups:  backups,
		cfg:      cfg,
		log:      log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("0 0 * * * *", s.sweepExpiredSessions); err != nil { // hourly
		return err
	}
	if _, err := s.cron.AddFunc("0 0 0 * * *", s.sweepInactiveSessions); err != nil { // daily at midnight
		return err
	}
	if s.cfg.Enabled {
		if _, err := s.cron.AddFunc("0 0 2 * * *", s.runBackup); err != nil { // daily at 02:00
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop halts the cron loop and waits briefly for running jobs to finish.
func (s *Scheduler) Stop() {
	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) sweepExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.sessions.CleanupExpiredSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("expired session sweep failed")
		return
	}
	s.log.Info().Int64("removed", removed).Msg("expired session sweep done")
}

func (s *Scheduler) sweepInactiveSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.sessions.CleanupInactiveSessions(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("inactive session sweep failed")
		return
	}
	s.log.Info().Int64("removed", removed).Msg("inactive session sweep done")
}

func (s *Scheduler) runBackup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := s.backups.CreateDatabaseBackup(ctx); err != nil {
		s.log.Error().Err(err).Msg("scheduled database backup failed")
	}
	if s.cfg.UploadsDir != "" {
		if _, err := s.backups.CreateUploadsBackup(ctx); err != nil {
			s.log.Error().Err(err).Msg("scheduled uploads backup failed")
		}
	}

	removed, err := s.backups.CleanupOldBackups()
	if err != nil {
		s.log.Error().Err(err).Msg("backup retention cleanup failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("old backups pruned")
	}
}
