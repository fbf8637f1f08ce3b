package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/carewell/clinic-scheduling/internal/appointment"
	"github.com/carewell/clinic-scheduling/internal/config"
	"github.com/carewell/clinic-scheduling/internal/db"
	"github.com/carewell/clinic-scheduling/internal/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := newLogger("prod", "reminder-worker")
		boot.Fatal().Err(err).Msg("config load error")
	}

	logger := newLogger(cfg.Env, "reminder-worker")

	logger.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("lead", cfg.ReminderLead).
		Msg("reminder-worker starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	logger.Info().Msg("connected to Postgres")

	repo := appointment.NewPgRepository(pgPool)
	svc := appointment.NewService(repo, schedule.SystemClock(), cfg.BookingHorizonDays, logger)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.ReminderLead, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info().Msg("shutdown signal received, stopping reminder worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.ReminderLead, logger)
		}
	}
}

func newLogger(env, service string) zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", service).Logger()
	if env == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return logger
}

func runOnce(ctx context.Context, svc *appointment.Service, lead time.Duration, logger zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	sent, err := svc.SendReminders(runCtx, lead)
	if err != nil {
		logger.Error().Err(err).Msg("reminder run error")
		return
	}
	logger.Info().Int("sent", sent).Dur("took", time.Since(start)).Msg("reminder run complete")
}
