package config

import "log/slog"

// Fallbacks logs and counts the fallbacks of one load pass. Metrics may be
// nil.
type Fallbacks struct {
	logger  *slog.Logger
	metrics *ConfigMetrics
	applied bool
}

// NewFallbacks starts a load pass.
func NewFallbacks(logger *slog.Logger, metrics *ConfigMetrics) *Fallbacks {
	return &Fallbacks{logger: logger, metrics: metrics}
}

// Observe records result for field and returns result.Value.
func (f *Fallbacks) Observe(field string, result ConfigLoadResult) interface{} {
	if !result.FallbackApplied {
		return result.Value
	}
	f.applied = true
	if f.metrics != nil {
		f.metrics.RecordFallback(field)
	}
	for _, w := range result.Warnings {
		f.logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", w))
	}
	return result.Value
}

// Applied reports whether any observed setting fell back.
func (f *Fallbacks) Applied() bool {
	return f.applied
}

// Done closes the pass and publishes its outcome.
func (f *Fallbacks) Done() {
	if f.metrics != nil {
		f.metrics.RecordLoad(f.applied)
	}
}
