package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"paper-trail/internal/config"
	"paper-trail/internal/infra/worker"
	"paper-trail/internal/observability/logging"
	"paper-trail/internal/observability/tracing"
	pkgconfig "paper-trail/internal/pkg/config"

	"github.com/spf13/cobra"
)

func workerCmd() *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the pipeline on a cron schedule",
		Long: `worker runs the pipeline on CRON_SCHEDULE in WORKER_TIMEZONE until it
receives SIGINT or SIGTERM. A tick that arrives while a run is still in
progress is skipped.

Probes and metrics are served on WORKER_HEALTH_PORT:
  /health        liveness
  /health/ready  ready once the schedule is installed, with next_run
  /metrics       Prometheus`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context(), runNow)
		},
	}

	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run once immediately before waiting for the schedule")

	return cmd
}

func runWorker(parent context.Context, runNow bool) error {
	logger := logging.WithFields(slog.Default(), map[string]interface{}{
		"component": "worker",
		"version":   Version,
	})

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := worker.NewWorkerMetrics()
	workerConfig, err := worker.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		return fmt.Errorf("load worker configuration: %w", err)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Duration("run_timeout", workerConfig.RunTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	pipelineConfig := config.LoadPipelineConfig(logger, pkgconfig.NewConfigMetrics("pipeline"))

	shutdownTracing := tracing.Init(1)
	defer func() { _ = shutdownTracing(context.Background()) }()

	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := worker.NewHealthServer(healthAddr, logger)
	healthDone := make(chan struct{})
	go func() {
		defer close(healthDone)
		if err := healthServer.ListenAndServe(ctx); err != nil {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	runner, cleanup, err := newRunner(ctx, pipelineConfig, logger)
	if err != nil {
		stop()
		<-healthDone
		return err
	}
	defer cleanup()

	scheduler, err := worker.NewScheduler(workerConfig, runner.Run, workerMetrics, logger)
	if err != nil {
		stop()
		<-healthDone
		return err
	}
	healthServer.NextRun = scheduler.Next
	healthServer.SetReady(true)
	logger.Info("worker started", slog.Time("next_run", scheduler.Next()))

	if runNow {
		// A failed run is logged and counted; the schedule keeps going.
		_ = scheduler.RunOnce(ctx)
	}

	scheduler.Start(ctx)
	healthServer.SetReady(false)
	<-healthDone
	logger.Info("worker stopped")
	return nil
}
