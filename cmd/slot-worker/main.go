package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/app"
	"github.com/clinicdesk/scheduling/internal/availability"
	"github.com/clinicdesk/scheduling/internal/clinic"
	"github.com/clinicdesk/scheduling/internal/config"
	"github.com/clinicdesk/scheduling/internal/db"
	"github.com/clinicdesk/scheduling/internal/slot"
)

// slot-worker keeps every doctor's bookable horizon topped up. Each run
// expands the active weekly windows and materializes any slots the horizon
// has rolled forward onto; already materialized slots are skipped.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := app.NewLogger(cfg.Env)
	defer logger.Sync()

	logger.Info("slot-worker starting up",
		zap.String("env", cfg.Env),
		zap.Duration("interval", cfg.WorkerInterval),
		zap.Int("horizon_days", cfg.HorizonDays),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Fatal("postgres connection error", zap.Error(err))
	}
	defer pgPool.Close()
	logger.Info("connected to Postgres")

	ledger := slot.NewLedger(slot.NewPgRepository(pgPool), logger)
	svc := availability.NewService(
		availability.NewPgRepository(pgPool),
		ledger,
		clinic.NewPgRepository(pgPool),
		logger,
		cfg.Location,
		cfg.HorizonDays,
	)

	runOnce(rootCtx, svc, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping slot worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *availability.Service, logger *zap.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	start := time.Now()
	if err := svc.GenerateForAllDoctors(runCtx); err != nil {
		logger.Error("horizon generation run failed", zap.Error(err))
		return
	}
	logger.Info("horizon generation run complete", zap.Duration("took", time.Since(start)))
}
