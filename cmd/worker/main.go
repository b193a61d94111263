package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/credenceproj/credence/internal/buildconfig"
	"github.com/credenceproj/credence/internal/config"
	"github.com/credenceproj/credence/internal/domain"
	"github.com/credenceproj/credence/internal/service"
	"github.com/credenceproj/credence/internal/store"
	"github.com/credenceproj/credence/internal/store/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	_ = config.Load()

	logger := newLogger(config.LogLevel())
	defer func() { _ = logger.Sync() }()

	logger.Info("credence worker starting",
		zap.String("version", buildconfig.Version()),
		zap.String("commit", buildconfig.Commit()))

	ctx := context.Background()

	var (
		evidence domain.EvidenceStore
		sink     domain.ContradictionStore
		closeDB  func()
	)
	if dbURL := config.DatabaseURL(); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to ping database", zap.Error(err))
		}
		logger.Info("connected to database")

		evidence = store.NewClaimStore(pool)
		sink = store.NewContradictionStore(pool)
		closeDB = pool.Close
	} else {
		path := config.SQLitePath()
		db, err := sqlite.Open(path)
		if err != nil {
			logger.Fatal("failed to open local database", zap.String("path", path), zap.Error(err))
		}
		logger.Info("opened local database", zap.String("path", path))

		evidence = db
		sink = db
		closeDB = func() { _ = db.Close() }
	}
	defer closeDB()

	validator := service.NewValidator(evidence, logger)
	validator.MinEvidenceStrength = config.MinEvidenceStrength()
	validator.DefeaterPenalty = config.DefeaterPenalty()
	validator.Aging.DecayPerDay = config.AgingDecayPerDay()
	validator.Aging.MinConfidence = config.AgingMinConfidence()
	validator.Aging.ReadsPerSecond = config.SweepReadsPerSecond()
	validator.Aging.ReadBurst = config.SweepReadBurst()

	maintenance := service.NewMaintenanceService(validator, sink, logger)
	maintenance.SetInterval(time.Duration(config.MaintenanceIntervalMinutes()) * time.Minute)
	maintenance.Start()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	maintenance.Stop()
	logger.Info("worker stopped")
}

func newLogger(level string) *zap.Logger {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	logger, _ := cfg.Build()
	return logger
}
