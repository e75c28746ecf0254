package config

import (
	"fmt"
	"log/slog"
	"time"

	pkgconfig "paper-trail/internal/pkg/config"
)

// APIConfig holds the query API server settings.
type APIConfig struct {
	// Addr is the listen address. Env: API_ADDR. Default: ":8080"
	Addr string

	// RequestTimeout bounds one request.
	// Env: API_REQUEST_TIMEOUT. Range: 1s-2m. Default: 15s
	RequestTimeout time.Duration

	// ShutdownTimeout is the drain window after SIGTERM.
	// Env: API_SHUTDOWN_TIMEOUT. Range: 1s-1m. Default: 10s
	ShutdownTimeout time.Duration

	// RateLimitRPS is the per-client request rate; 0 disables limiting.
	// Env: RATE_LIMIT_RPS. Default: 20
	RateLimitRPS float64

	// RateLimitBurst is the per-client burst.
	// Env: RATE_LIMIT_BURST. Range: 1-10000. Default: 40
	RateLimitBurst int

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Env: TRUST_PROXY
	TrustProxy bool

	// TraceSampleRatio is the share of root spans sampled.
	// Env: TRACE_SAMPLE_RATIO. Range: 0-1. Default: 0.1
	TraceSampleRatio float64

	// Version is reported by /health. Env: VERSION. Default: "dev"
	Version string
}

func DefaultAPIConfig() APIConfig {
	return APIConfig{
		Addr:             ":8080",
		RequestTimeout:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		RateLimitRPS:     20,
		RateLimitBurst:   40,
		TraceSampleRatio: 0.1,
		Version:          "dev",
	}
}

// LoadAPIConfig reads the API settings from the environment. Like the
// pipeline settings it never fails; metrics may be nil.
func LoadAPIConfig(logger *slog.Logger, metrics *pkgconfig.ConfigMetrics) APIConfig {
	cfg := DefaultAPIConfig()
	fb := pkgconfig.NewFallbacks(logger, metrics)
	defer fb.Done()

	cfg.Addr = pkgconfig.LoadEnvString("API_ADDR", cfg.Addr)
	cfg.Version = pkgconfig.LoadEnvString("VERSION", cfg.Version)

	cfg.RequestTimeout = fb.Observe("request_timeout", pkgconfig.LoadEnvDuration("API_REQUEST_TIMEOUT", cfg.RequestTimeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, 2*time.Minute)
	})).(time.Duration)
	cfg.ShutdownTimeout = fb.Observe("shutdown_timeout", pkgconfig.LoadEnvDuration("API_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout, func(d time.Duration) error {
		return pkgconfig.ValidateDuration(d, time.Second, time.Minute)
	})).(time.Duration)
	cfg.RateLimitRPS = fb.Observe("rate_limit_rps", pkgconfig.LoadEnvFloat("RATE_LIMIT_RPS", cfg.RateLimitRPS, func(v float64) error {
		if v < 0 {
			return fmt.Errorf("rate %v is negative", v)
		}
		return nil
	})).(float64)
	cfg.RateLimitBurst = fb.Observe("rate_limit_burst", pkgconfig.LoadEnvInt("RATE_LIMIT_BURST", cfg.RateLimitBurst, func(v int) error {
		return pkgconfig.ValidateIntRange(v, 1, 10000)
	})).(int)
	cfg.TrustProxy = fb.Observe("trust_proxy", pkgconfig.LoadEnvBool("TRUST_PROXY", cfg.TrustProxy)).(bool)
	cfg.TraceSampleRatio = fb.Observe("trace_sample_ratio", pkgconfig.LoadEnvFloat("TRACE_SAMPLE_RATIO", cfg.TraceSampleRatio, func(v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("ratio %v outside [0, 1]", v)
		}
		return nil
	})).(float64)

	return cfg
}
