package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/clinicdesk/scheduling/internal/api"
	"github.com/clinicdesk/scheduling/internal/app"
	"github.com/clinicdesk/scheduling/internal/availability"
	"github.com/clinicdesk/scheduling/internal/booking"
	"github.com/clinicdesk/scheduling/internal/clinic"
	"github.com/clinicdesk/scheduling/internal/config"
	"github.com/clinicdesk/scheduling/internal/db"
	redisclient "github.com/clinicdesk/scheduling/internal/redis"
	"github.com/clinicdesk/scheduling/internal/slot"
)

const version = "0.3.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger := app.NewLogger(cfg.Env)
	defer logger.Sync()

	logger.Info("api-server starting up",
		zap.String("env", cfg.Env),
		zap.String("http_port", cfg.HTTPPort),
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

	migrator, err := app.NewMigrator(pgPool, cfg.MigrationsDir)
	if err != nil {
		logger.Fatal("migrator init error", zap.Error(err))
	}
	if err := migrator.Run(rootCtx); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}
	if v, err := migrator.Version(rootCtx); err == nil {
		logger.Info("database migrated", zap.Int64("version", v))
	}
	if err := migrator.Close(); err != nil {
		logger.Warn("migrator close error", zap.Error(err))
	}

	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		logger.Fatal("redis connection error", zap.Error(err))
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", zap.Error(err))
		}
	}()
	logger.Info("connected to Redis")

	clinicRepo := clinic.NewPgRepository(pgPool)
	ledger := slot.NewLedger(slot.NewPgRepository(pgPool), logger)
	availabilitySvc := availability.NewService(
		availability.NewPgRepository(pgPool),
		ledger,
		clinicRepo,
		logger,
		cfg.Location,
		cfg.HorizonDays,
	)
	locker := redisclient.NewRedisSlotLocker(rdb, cfg.LockTTL)
	coordinator := booking.NewCoordinator(booking.NewPgRepository(pgPool), ledger, clinicRepo, locker, logger)

	router := api.NewRouter(api.RouterConfig{
		Availability:       availabilitySvc,
		Ledger:             ledger,
		Coordinator:        coordinator,
		Clinic:             clinicRepo,
		PgPool:             pgPool,
		Redis:              rdb,
		Logger:             logger,
		Location:           cfg.Location,
		DefaultSlotMinutes: cfg.DefaultSlotMins,
		Env:                cfg.Env,
		Version:            version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-rootCtx.Done()
	logger.Info("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
