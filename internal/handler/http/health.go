// Package http holds the query API's middleware, probes and metrics
// endpoint. Route handlers live in the politician and ops subpackages.
package http

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/handler/http/respond"
	"paper-trail/internal/observability/logging"
	"paper-trail/internal/observability/metrics"
	"paper-trail/internal/observability/slo"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]CheckStatus `json:"checks"`
	Version   string                 `json:"version"`
}

// CheckStatus is one entry of HealthResponse.Checks.
type CheckStatus struct {
	Status  string         `json:"status"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// BreakerState reports whether the database circuit breaker is refusing
// calls.
type BreakerState interface {
	IsOpen() bool
}

// RunReader returns the most recent ingest run, or nil when none exists.
type RunReader interface {
	Latest(ctx context.Context) (*entity.RunSummary, error)
}

// HealthHandler reports database connectivity and ingest freshness.
// Only a failed database check makes the API unhealthy; a stale or failed
// last run is reported as degraded.
type HealthHandler struct {
	DB      *sql.DB
	Breaker BreakerState
	Runs    RunReader
	Version string
	Now     func() time.Time
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	checks := map[string]CheckStatus{}
	if h.DB != nil {
		checks["database"] = h.checkDatabase(ctx)
	} else {
		checks["database"] = CheckStatus{Status: statusUnhealthy, Message: "not configured"}
	}
	if h.Runs != nil {
		checks["ingest"] = h.checkIngest(ctx, now())
	}

	status, code := statusHealthy, http.StatusOK
	if checks["database"].Status == statusUnhealthy {
		status, code = statusUnhealthy, http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	respond.JSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Version:   h.Version,
	})
}

func (h *HealthHandler) checkDatabase(ctx context.Context) CheckStatus {
	if err := h.DB.PingContext(ctx); err != nil {
		logging.FromContext(ctx).Warn("health check: database ping failed", slog.String("error", respond.SanitizeError(err)))
		return CheckStatus{Status: statusUnhealthy, Message: "database unreachable"}
	}

	if h.Breaker != nil && h.Breaker.IsOpen() {
		return CheckStatus{Status: statusDegraded, Message: "circuit breaker open"}
	}

	stats := h.DB.Stats()
	metrics.UpdateDBConnectionStats(stats.InUse, stats.Idle)
	details := map[string]any{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
		"wait_count":           stats.WaitCount,
	}
	if stats.MaxOpenConnections == 0 {
		return CheckStatus{Status: statusDegraded, Message: "connection pool max connections not configured", Details: details}
	}

	utilization := float64(stats.InUse) / float64(stats.MaxOpenConnections) * 100
	details["utilization_percent"] = utilization
	if utilization >= 80 {
		return CheckStatus{Status: statusDegraded, Message: "connection pool utilization above 80%", Details: details}
	}
	return CheckStatus{Status: statusHealthy, Details: details}
}

func (h *HealthHandler) checkIngest(ctx context.Context, now time.Time) CheckStatus {
	run, err := h.Runs.Latest(ctx)
	if err != nil {
		return CheckStatus{Status: statusDegraded, Message: "run history unavailable"}
	}
	if run == nil {
		return CheckStatus{Status: statusDegraded, Message: "no ingest run recorded"}
	}

	details := map[string]any{
		"run_id": run.RunID,
		"status": string(run.Status),
	}
	var finished time.Time
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
		details["finished_at"] = finished.UTC().Format(time.RFC3339)
	}

	switch {
	case run.Status != entity.RunSucceeded:
		return CheckStatus{Status: statusDegraded, Message: "last run did not succeed", Details: details}
	case slo.Stale(finished, now):
		return CheckStatus{Status: statusDegraded, Message: "last successful run is stale", Details: details}
	}
	return CheckStatus{Status: statusHealthy, Details: details}
}

// ReadyHandler answers the readiness probe: 200 once the database answers
// a ping.
type ReadyHandler struct {
	DB *sql.DB
}

func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.DB == nil || h.DB.PingContext(ctx) != nil {
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ready"))
}

// LiveHandler answers the liveness probe.
type LiveHandler struct{}

func (LiveHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("alive"))
}
