package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jirateep12z/go-starter-api/internal/cache"
	"github.com/jirateep12z/go-starter-api/internal/config"
	"github.com/jirateep12z/go-starter-api/internal/database"
	"github.com/jirateep12z/go-starter-api/internal/handlers"
	"github.com/jirateep12z/go-starter-api/internal/jobs"
	"github.com/jirateep12z/go-starter-api/internal/log"
	"github.com/jirateep12z/go-starter-api/internal/repository"
	"github.com/jirateep12z/go-starter-api/internal/seed"
	"github.com/jirateep12z/go-starter-api/internal/server"
	"github.com/jirateep12z/go-starter-api/internal/service"
	"github.com/jirateep12z/go-starter-api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	roleRepo := repository.NewRoleRepository(dbPool)
	permissionRepo := repository.NewPermissionRepository(dbPool)
	if err := seed.Run(ctx, roleRepo, permissionRepo, logger); err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}

	handlerSet := handlers.NewHandlerSet(logger, dbPool, redisClient, objectStore, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	sessionService := service.NewSessionService(repository.NewSessionRepository(dbPool), cfg.Security, logger)
	backupService := service.NewBackupService(cfg.Backup, cfg.Postgres, objectStore, logger)
	scheduler := jobs.NewScheduler(sessionService, backupService, cfg.Backup, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
