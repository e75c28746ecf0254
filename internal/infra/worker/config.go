package worker

import (
	"fmt"
	"log/slog"
	"time"

	"paper-trail/internal/pkg/config"
)

// WorkerConfig holds the settings of the scheduled ingest worker.
//
// Configuration sources:
//   - Environment variables (loaded via LoadConfigFromEnv)
//   - Default values (provided by DefaultConfig)
//
// Every field has a default and a validation rule, so the worker can start
// even when the environment is wrong.
type WorkerConfig struct {
	// CronSchedule is the five-field cron expression for pipeline runs.
	// Default: "0 4 * * *" (every day at 04:00)
	CronSchedule string

	// Timezone is the IANA timezone the schedule is evaluated in.
	// Default: "America/New_York"
	Timezone string

	// RunTimeout bounds one pipeline run. The run is cancelled between
	// stages once it expires.
	// Range: 1m-12h
	// Default: 2 hours
	RunTimeout time.Duration

	// HealthPort is the port of the health and metrics server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int
}

// DefaultConfig returns a WorkerConfig with production defaults: a nightly
// run after the bulk files have been refreshed.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "0 4 * * *",
		Timezone:     "America/New_York",
		RunTimeout:   2 * time.Hour,
		HealthPort:   9091,
	}
}

// Validate checks every field and returns all failures together.
func (c *WorkerConfig) Validate() error {
	var errs []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errs = append(errs, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateDuration(c.RunTimeout, time.Minute, 12*time.Hour); err != nil {
		errs = append(errs, fmt.Errorf("run timeout: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errs = append(errs, fmt.Errorf("health port: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed: %v", errs)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration from the environment.
//
// It is fail-open: an invalid value is replaced by its default, a warning is
// logged and the fallback is counted in metrics. The returned error is
// always nil.
//
// Environment variables:
//   - CRON_SCHEDULE: cron expression (default: "0 4 * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "America/New_York")
//   - RUN_TIMEOUT: duration string, e.g. "90m" (default: 2h)
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	cfg := DefaultConfig()
	fb := config.NewFallbacks(logger, metrics.ConfigMetrics)
	defer fb.Done()

	cfg.CronSchedule = fb.Observe("cron_schedule",
		config.LoadEnvWithFallback("CRON_SCHEDULE", cfg.CronSchedule, config.ValidateCronSchedule)).(string)
	cfg.Timezone = fb.Observe("timezone",
		config.LoadEnvWithFallback("WORKER_TIMEZONE", cfg.Timezone, config.ValidateTimezone)).(string)
	cfg.RunTimeout = fb.Observe("run_timeout", config.LoadEnvDuration("RUN_TIMEOUT", cfg.RunTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Minute, 12*time.Hour)
	})).(time.Duration)
	cfg.HealthPort = fb.Observe("health_port", config.LoadEnvInt("WORKER_HEALTH_PORT", cfg.HealthPort, func(v int) error {
		return config.ValidateIntRange(v, 1024, 65535)
	})).(int)

	return &cfg, nil
}
