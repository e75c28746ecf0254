package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"paper-trail/internal/config"
	hhttp "paper-trail/internal/handler/http"
	"paper-trail/internal/handler/http/donor"
	"paper-trail/internal/handler/http/ops"
	"paper-trail/internal/handler/http/politician"
	"paper-trail/internal/handler/http/requestid"
	"paper-trail/internal/handler/http/route"
	"paper-trail/internal/observability/tracing"
	"paper-trail/internal/repository"
	"paper-trail/internal/usecase/query"
)

// limiterIdleTTL is how long a client's limiter survives without requests.
const limiterIdleTTL = 10 * time.Minute

// ServerComponents holds the handler and the parts that need background
// maintenance.
type ServerComponents struct {
	Handler http.Handler
	Limiter *hhttp.RateLimiter
}

// setupServer builds the routes and wraps them in the middleware chain.
func setupServer(logger *slog.Logger, cfg config.APIConfig, database *sql.DB, breaker hhttp.BreakerState, repos repository.Repositories) *ServerComponents {
	svc := query.NewService(repos)
	mux := setupRoutes(database, breaker, repos.Runs, svc, cfg.Version)

	var limiter *hhttp.RateLimiter
	if cfg.RateLimitRPS > 0 {
		limiter = hhttp.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, limiterIdleTTL)
		limiter.TrustProxy = cfg.TrustProxy
		logger.Info("rate limiting enabled",
			slog.Float64("rps", cfg.RateLimitRPS),
			slog.Int("burst", cfg.RateLimitBurst),
			slog.Bool("trust_proxy", cfg.TrustProxy))
	} else {
		logger.Warn("rate limiting is DISABLED - not recommended for production")
	}

	return &ServerComponents{
		Handler: applyMiddleware(logger, cfg, route.Mux(mux), limiter),
		Limiter: limiter,
	}
}

// setupRoutes registers the probes, metrics and query endpoints.
func setupRoutes(database *sql.DB, breaker hhttp.BreakerState, runs hhttp.RunReader, svc *query.Service, version string) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("GET /health", &hhttp.HealthHandler{DB: database, Breaker: breaker, Runs: runs, Version: version})
	mux.Handle("GET /ready", &hhttp.ReadyHandler{DB: database})
	mux.Handle("GET /live", hhttp.LiveHandler{})
	mux.Handle("GET /metrics", hhttp.MetricsHandler())

	politician.Register(mux, svc)
	donor.Register(mux, svc)
	ops.Register(mux, svc)

	return mux
}

// applyMiddleware wraps the handler with the middleware chain.
// Order, outermost first: Request ID → Tracing → Logging → Recovery →
// Metrics → Rate Limit → Input Validation → Timeout.
func applyMiddleware(logger *slog.Logger, cfg config.APIConfig, handler http.Handler, limiter *hhttp.RateLimiter) http.Handler {
	chain := handler

	// Apply in reverse order (innermost to outermost)
	chain = hhttp.Timeout(cfg.RequestTimeout)(chain)
	chain = hhttp.InputValidation()(chain)
	if limiter != nil {
		chain = limiter.Limit(chain)
	}
	chain = hhttp.MetricsMiddleware(chain)
	chain = hhttp.Recover(logger)(chain)
	chain = hhttp.Logging(logger)(chain)
	chain = tracing.Middleware(chain)
	chain = requestid.Middleware(chain)

	return chain
}

// sweepLimiter drops idle clients from the limiter every interval until ctx
// is cancelled.
func sweepLimiter(ctx context.Context, logger *slog.Logger, limiter *hhttp.RateLimiter, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Sweep(); n > 0 {
				logger.Debug("rate limiter clients evicted", slog.Int("count", n))
			}
		}
	}
}
