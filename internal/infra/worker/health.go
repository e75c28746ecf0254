package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownGrace = 5 * time.Second

// HealthServer serves the worker's probes and metrics.
//
//	GET /health        200 while the process is up
//	GET /health/ready  200 once the schedule is installed, 503 otherwise
//	GET /metrics       Prometheus
type HealthServer struct {
	addr   string
	logger *slog.Logger
	ready  atomic.Bool

	// NextRun, when set, is reported by the readiness probe.
	NextRun func() time.Time
}

type probeBody struct {
	Status  string     `json:"status"`
	NextRun *time.Time `json:"next_run,omitempty"`
}

func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	return &HealthServer{addr: addr, logger: logger}
}

func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		h.reply(w, http.StatusOK, probeBody{Status: "ok"})
	})
	mux.HandleFunc("GET /health/ready", h.readiness)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

func (h *HealthServer) readiness(w http.ResponseWriter, _ *http.Request) {
	if !h.ready.Load() {
		h.reply(w, http.StatusServiceUnavailable, probeBody{Status: "not ready"})
		return
	}
	body := probeBody{Status: "ok"}
	if h.NextRun != nil {
		if next := h.NextRun(); !next.IsZero() {
			body.NextRun = &next
		}
	}
	h.reply(w, http.StatusOK, body)
}

// SetReady flips the readiness probe.
func (h *HealthServer) SetReady(ready bool) {
	if h.ready.Swap(ready) != ready {
		h.logger.Info("worker readiness changed", slog.Bool("ready", ready))
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (h *HealthServer) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

// Serve answers on ln until ctx is cancelled and then shuts down within a
// five second grace period. A clean shutdown returns nil.
func (h *HealthServer) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           h.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       time.Minute,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	h.logger.Info("health server listening", slog.String("addr", ln.Addr().String()))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (h *HealthServer) reply(w http.ResponseWriter, code int, body probeBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write probe response", slog.Any("error", err))
	}
}
