// Package db opens the Postgres connection pool and owns the schema.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"paper-trail/internal/observability/logging"
	"paper-trail/internal/pkg/config"
	"paper-trail/internal/resilience/retry"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrNoDSN is returned by Open when no connection string is configured.
var ErrNoDSN = errors.New("DATABASE_URL not set")

// ConnectionConfig holds database connection pool configuration.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns the default pool settings. A pipeline run
// holds one transaction per batch, so a small pool is enough.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// ConnectionConfigFromEnv reads the pool settings. An invalid value falls
// back to its default with a warning.
//
// Environment variables:
//   - DB_MAX_OPEN_CONNS: 1-500 (default: 10)
//   - DB_MAX_IDLE_CONNS: 0-500 (default: 5)
//   - DB_CONN_MAX_LIFETIME: 1m-24h (default: 1h)
//   - DB_CONN_MAX_IDLE_TIME: 1m-24h (default: 30m)
func ConnectionConfigFromEnv(logger *slog.Logger) ConnectionConfig {
	cfg := DefaultConnectionConfig()
	fb := config.NewFallbacks(logger, nil)
	lifetime := func(d time.Duration) error { return config.ValidateDuration(d, time.Minute, 24*time.Hour) }

	cfg.MaxOpenConns = fb.Observe("max_open_conns", config.LoadEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns, func(v int) error {
		return config.ValidateIntRange(v, 1, 500)
	})).(int)
	cfg.MaxIdleConns = fb.Observe("max_idle_conns", config.LoadEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns, func(v int) error {
		return config.ValidateIntRange(v, 0, 500)
	})).(int)
	cfg.ConnMaxLifetime = fb.Observe("conn_max_lifetime",
		config.LoadEnvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime, lifetime)).(time.Duration)
	cfg.ConnMaxIdleTime = fb.Observe("conn_max_idle_time",
		config.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime, lifetime)).(time.Duration)

	return cfg
}

// Open creates the pool and waits for the database to answer a ping. While
// Postgres is still starting, the ping is retried with backoff.
func Open(ctx context.Context, dsn string, cfg ConnectionConfig, logger *slog.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, ErrNoDSN
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	logger.Info("database connection pool configured",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	err = retry.WithBackoff(logging.WithLogger(ctx, logger), retry.DBConnectConfig(), func() error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.Info("database connection established")
	return db, nil
}
