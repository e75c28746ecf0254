// Package config holds the ingest pipeline's settings: tuning from the
// environment and the manifest of bulk files to read.
package config

import (
	"log/slog"

	pkgconfig "paper-trail/internal/pkg/config"
)

// PipelineConfig holds the settings of one ingest run.
type PipelineConfig struct {
	// Workers is the number of goroutines normalizing each batch.
	// Env: NORMALIZE_WORKERS. Default: 4
	Workers int

	// BatchSize is the number of records read before a batch is normalized.
	// Env: BATCH_SIZE. Default: 1000
	BatchSize int

	// MaxSamples bounds the rejection samples kept per stage.
	// Env: REJECTION_SAMPLES. Default: 5
	MaxSamples int

	// ManifestPath is the YAML file listing the bulk files per source.
	// Env: SOURCES_MANIFEST. Default: "sources.yaml"
	ManifestPath string

	// NATSURL enables event publishing when set. Env: NATS_URL
	NATSURL string

	// SubjectPrefix prefixes every published subject.
	// Env: NATS_SUBJECT_PREFIX. Default: "papertrail"
	SubjectPrefix string

	// DryRun loads into memory instead of PostgreSQL. Env: DRY_RUN
	DryRun bool
}

// DefaultPipelineConfig returns the settings used when nothing is set.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Workers:       4,
		BatchSize:     1000,
		MaxSamples:    5,
		ManifestPath:  "sources.yaml",
		SubjectPrefix: "papertrail",
	}
}

// LoadPipelineConfig reads the pipeline settings from the environment.
// Invalid values fall back to defaults with a warning; loading never fails.
// metrics may be nil.
func LoadPipelineConfig(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) PipelineConfig {
	cfg := DefaultPipelineConfig()
	fb := pkgconfig.NewFallbacks(logger, metrics)
	defer fb.Done()

	cfg.Workers = fb.Observe("normalize_workers", pkgconfig.LoadEnvInt("NORMALIZE_WORKERS", cfg.Workers, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 64)
	})).(int)
	cfg.BatchSize = fb.Observe("batch_size", pkgconfig.LoadEnvInt("BATCH_SIZE", cfg.BatchSize, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 100000)
	})).(int)
	cfg.MaxSamples = fb.Observe("rejection_samples", pkgconfig.LoadEnvInt("REJECTION_SAMPLES", cfg.MaxSamples, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 0, 100)
	})).(int)
	cfg.DryRun = fb.Observe("dry_run", pkgconfig.LoadEnvBool("DRY_RUN", cfg.DryRun)).(bool)

	cfg.ManifestPath = pkgconfig.LoadEnvString("SOURCES_MANIFEST", cfg.ManifestPath)
	cfg.NATSURL = pkgconfig.LoadEnvString("NATS_URL", "")
	cfg.SubjectPrefix = pkgconfig.LoadEnvString("NATS_SUBJECT_PREFIX", cfg.SubjectPrefix)

	return cfg
}
