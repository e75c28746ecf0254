package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"paper-trail/internal/config"
	"paper-trail/internal/infra/adapter/persistence/memory"
	"paper-trail/internal/infra/adapter/persistence/postgres"
	"paper-trail/internal/infra/db"
	"paper-trail/internal/infra/messaging"
	"paper-trail/internal/infra/source"
	"paper-trail/internal/repository"
	"paper-trail/internal/resilience/circuitbreaker"
	"paper-trail/internal/usecase/pipeline"
)

// openDatabase opens the pool named by DATABASE_URL.
func openDatabase(ctx context.Context, logger *slog.Logger) (*sql.DB, error) {
	return db.Open(ctx, os.Getenv("DATABASE_URL"), db.ConnectionConfigFromEnv(logger), logger)
}

// openStore returns the persistence backend and a function releasing it.
// A dry run uses an in-memory store and never touches the database.
func openStore(ctx context.Context, dryRun bool, logger *slog.Logger) (repository.Store, func(), error) {
	if dryRun {
		logger.Info("dry run, loading into memory")
		return memory.NewStore(), func() {}, nil
	}

	database, err := openDatabase(ctx, logger)
	if err != nil {
		return nil, nil, err
	}
	closeDB := func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}
	return postgres.NewStore(circuitbreaker.NewDBCircuitBreaker(database)), closeDB, nil
}

// openPublisher connects to NATS when a URL is configured. Without one,
// events are dropped.
func openPublisher(cfg config.PipelineConfig, logger *slog.Logger) (pipeline.EventPublisher, func(), error) {
	if cfg.NATSURL == "" || cfg.DryRun {
		return messaging.NopPublisher{}, func() {}, nil
	}

	nc, err := messaging.Connect(cfg.NATSURL, appName, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("publishing events to NATS",
		slog.String("url", nc.ConnectedUrl()),
		slog.String("subject_prefix", cfg.SubjectPrefix))

	drain := func() {
		if err := nc.Drain(); err != nil {
			logger.Warn("failed to drain NATS connection", slog.Any("error", err))
		}
	}
	return messaging.NewNATSPublisher(nc, cfg.SubjectPrefix), drain, nil
}

// newRunner assembles a pipeline runner from the manifest and settings.
// The returned cleanup releases the store and the publisher.
func newRunner(ctx context.Context, cfg config.PipelineConfig, logger *slog.Logger) (*pipeline.Runner, func(), error) {
	manifest, err := config.LoadManifest(cfg.ManifestPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load manifest: %w", err)
	}

	store, closeStore, err := openStore(ctx, cfg.DryRun, logger)
	if err != nil {
		return nil, nil, err
	}
	pub, closePub, err := openPublisher(cfg, logger)
	if err != nil {
		closeStore()
		return nil, nil, err
	}

	runner := pipeline.NewRunner(store, source.FromManifest(manifest), pipeline.Config{
		BatchSize:  cfg.BatchSize,
		Workers:    cfg.Workers,
		MaxSamples: cfg.MaxSamples,
	}, pub)
	runner.Logger = logger

	cleanup := func() {
		closePub()
		closeStore()
	}
	return runner, cleanup, nil
}
