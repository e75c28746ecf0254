package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paper-trail/internal/config"
	pgRepo "paper-trail/internal/infra/adapter/persistence/postgres"
	"paper-trail/internal/infra/db"
	pkgconfig "paper-trail/internal/pkg/config"
	"paper-trail/internal/observability/logging"
	"paper-trail/internal/observability/tracing"
	"paper-trail/internal/resilience/circuitbreaker"
)

// @title           paper-trail API
// @version         1.0
// @description     Read-only queries over resolved legislators, their votes and the donations
// @description     to their campaign committees.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

func main() {
	logger := initLogger()
	cfg := config.LoadAPIConfig(logger, pkgconfig.NewConfigMetrics("api"))

	shutdownTracing := tracing.Init(cfg.TraceSampleRatio)
	defer func() { _ = shutdownTracing(context.Background()) }()

	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	conn := circuitbreaker.NewDBCircuitBreaker(database)
	store := pgRepo.NewStore(conn)
	components := setupServer(logger, cfg, database, conn, store.Repos())

	runServer(logger, cfg, components)
}

// initLogger installs the JSON logger as the process default.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the pool. The schema is applied by `ingest migrate up`,
// not by the API.
func initDatabase(logger *slog.Logger) *sql.DB {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	database, err := db.Open(ctx, os.Getenv("DATABASE_URL"), db.ConnectionConfigFromEnv(logger), logger)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	return database
}

// runServer serves until SIGINT or SIGTERM and then drains in-flight
// requests within the shutdown timeout.
func runServer(logger *slog.Logger, cfg config.APIConfig, components *ServerComponents) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if components.Limiter != nil {
		go sweepLimiter(ctx, logger, components.Limiter, time.Minute)
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           components.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		logger.Info("server starting",
			slog.String("addr", cfg.Addr),
			slog.String("version", cfg.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
