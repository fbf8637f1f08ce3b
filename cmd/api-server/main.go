package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/api"
	"github.com/carewell/clinic-scheduling/internal/appointment"
	"github.com/carewell/clinic-scheduling/internal/config"
	"github.com/carewell/clinic-scheduling/internal/db"
	redisclient "github.com/carewell/clinic-scheduling/internal/redis"
	"github.com/carewell/clinic-scheduling/internal/schedule"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := newLogger("prod", "api-server")
		boot.Fatal().Err(err).Msg("config load error")
	}

	logger := newLogger(cfg.Env, "api-server")
	logger.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error().Err(err).Msg("error closing redis")
		}
	}()
	logger.Info().Msg("connected to Redis")

	repo := appointment.NewPgRepository(pgPool)
	cache := redisclient.NewAvailabilityCache(rdb, cfg.AvailabilityCacheTTL)
	clock := schedule.SystemClock()

	resolver := schedule.NewResolver(repo, repo, cache, clock, cfg.BookingHorizonDays, logger)

	svc := appointment.NewService(repo, clock, cfg.BookingHorizonDays, logger).
		WithIdempotency(redisclient.NewIdempotencyStore(rdb, cfg.IdempotencyTTL)).
		WithInvalidator(resolver).
		WithBilling(appointment.NewLogBillingNotifier(logger))

	router := api.NewRouter(api.RouterConfig{
		Service:  svc,
		Resolver: resolver,
		PgPool:   pgPool,
		Redis:    rdb,
		Logger:   logger,
		Env:      cfg.Env,
		Version:  version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server error")
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http server shutdown error")
	}
}

func newLogger(env, service string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", service).Logger()
	if env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger
}
