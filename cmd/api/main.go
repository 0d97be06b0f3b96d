package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"sand/api/internal/apperr"
	"sand/api/internal/cache"
	"sand/api/internal/config"
	"sand/api/internal/database"
	"sand/api/internal/handlers"
	"sand/api/internal/jobs"
	"sand/api/internal/log"
	"sand/api/internal/metrics"
	"sand/api/internal/queue"
	"sand/api/internal/repository"
	"sand/api/internal/security"
	"sand/api/internal/server"
	"sand/api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	if cfg.Postgres.AutoMigrate {
		if err := migrateUp(cfg.Postgres.DSN); err != nil {
			logger.Fatal().Err(err).Msg("migrations failed")
		}
	}

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	hasher, err := security.NewPasswordHasher(cfg.Security)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build password hasher")
	}

	m := metrics.New()
	authService := service.NewAuthService(
		repository.NewUserRepository(dbPool),
		repository.NewSessionRepository(dbPool),
		hasher,
		cfg,
		logger,
		m,
	)

	bootstrapSuperAdmin(ctx, logger, authService, cfg.SuperAdmin)

	handlerSet := handlers.NewHandlerSet(logger, cfg, authService, dbPool.Ping, cache.Ping(redisClient))
	httpServer := server.NewHTTPServer(cfg, logger, m, handlerSet)

	scheduler := jobs.NewScheduler(queue.NewProducer(redisClient, cfg.Queue.Stream), cfg.Jobs.ReapSchedule, logger)
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

func migrateUp(dsn string) error {
	migrator, err := database.NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer migrator.Close()
	return migrator.Up()
}

func bootstrapSuperAdmin(ctx context.Context, logger zerolog.Logger, auth *service.AuthService, cfg config.SuperAdminConfig) {
	user, created, err := auth.BootstrapSuperAdmin(ctx, cfg)
	switch {
	case apperr.Is(err, apperr.KindBadRequest):
		logger.Warn().Msg("superadmin credentials not configured, skipping bootstrap")
	case err != nil:
		logger.Fatal().Err(err).Msg("superadmin bootstrap failed")
	case created:
		logger.Info().Str("email", user.Email).Msg("superadmin created")
	default:
		logger.Info().Str("email", user.Email).Msg("superadmin already exists")
	}
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
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
		logger.Warn().Msg("scheduled jobs still running at shutdown")
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
