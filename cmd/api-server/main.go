package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hackgods/healthcare-scheduling/internal/api"
	"github.com/hackgods/healthcare-scheduling/internal/appointment"
	"github.com/hackgods/healthcare-scheduling/internal/availability"
	"github.com/hackgods/healthcare-scheduling/internal/config"
	"github.com/hackgods/healthcare-scheduling/internal/db"
	"github.com/hackgods/healthcare-scheduling/internal/identity"
	"github.com/hackgods/healthcare-scheduling/internal/logging"
	redisclient "github.com/hackgods/healthcare-scheduling/internal/redis"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := zerolog.New(os.Stderr)
		fallback.Fatal().Err(err).Msg("config load error")
	}

	logger := logging.New("api-server", cfg.Env, cfg.LogLevel)
	logger.Info().
		Str("env", cfg.Env).
		Str("http_port", cfg.HTTPPort).
		Str("lock_backend", cfg.LockBackend).
		Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN, db.PoolOptions{})
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	if cfg.AutoMigrate {
		applied, err := db.Migrate(rootCtx, pgPool)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration error")
		}
		for _, m := range applied {
			logger.Info().Int("version", m.Version).Str("name", m.Name).Msg("migration applied")
		}
	}

	// Booking lock
	var (
		locker     redisclient.Locker
		redisCheck api.Pinger
	)
	switch cfg.LockBackend {
	case config.LockBackendLocal:
		locker = redisclient.NewLocalLocker(cfg.LockTTL)
		logger.Warn().Msg("using process local booking lock, run a single replica")
	default:
		rdb, err := redisclient.NewRedisClient(rootCtx, redisclient.ClientOptions{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection error")
		}
		defer closeRedis(rdb, logger)
		logger.Info().Msg("connected to Redis")

		locker = redisclient.NewRedisLocker(rdb, cfg.LockTTL)
		redisCheck = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	identityRepo := identity.NewPgRepository(pgPool)
	slots := availability.NewService(availability.NewPgRepository(pgPool), identityRepo, logger)
	directory := identity.NewDirectory(identityRepo, slots, logger)
	scheduling := appointment.NewService(appointment.NewPgLedger(pgPool), directory, locker, logger)

	router := api.NewRouter(api.RouterConfig{
		Appointments: scheduling,
		Slots:        slots,
		Directory:    directory,
		Health:       api.NewHealthHandler(pgPool.Ping, redisCheck, cfg.Env, version),
		Location:     cfg.Location,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func closeRedis(rdb *redis.Client, logger zerolog.Logger) {
	if err := rdb.Close(); err != nil {
		logger.Error().Err(err).Msg("error closing redis")
	}
}
