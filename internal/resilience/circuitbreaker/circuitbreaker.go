// Package circuitbreaker puts github.com/sony/gobreaker in front of the
// database pool and the NATS publisher. Once a dependency keeps failing,
// callers get an immediate rejection until the breaker probes it again.
package circuitbreaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"paper-trail/internal/observability/metrics"

	"github.com/sony/gobreaker"
)

// Config tunes one breaker.
type Config struct {
	Name string

	// HalfOpenProbes is how many calls are let through after OpenFor.
	HalfOpenProbes uint32

	// Window resets the closed-state counters. Zero keeps them forever.
	Window time.Duration

	// OpenFor is how long calls are refused after the breaker trips.
	OpenFor time.Duration

	// TripRatio is the share of failed calls in the window that trips the
	// breaker once at least MinSamples calls were made. A ratio of 1 means
	// MinSamples consecutive failures.
	TripRatio  float64
	MinSamples uint32
}

// DefaultConfig suits a remote dependency with no special needs.
func DefaultConfig(name string) Config {
	return Config{
		Name:           name,
		HalfOpenProbes: 3,
		Window:         30 * time.Second,
		OpenFor:        time.Minute,
		TripRatio:      0.6,
		MinSamples:     5,
	}
}

// PublisherConfig trips after four failed events and retries after fifteen
// seconds. Pipeline events are best effort.
func PublisherConfig() Config {
	cfg := DefaultConfig("event-publisher")
	cfg.HalfOpenProbes = 1
	cfg.Window = time.Minute
	cfg.OpenFor = 15 * time.Second
	cfg.TripRatio = 0.5
	cfg.MinSamples = 4
	return cfg
}

// CircuitBreaker is a named gobreaker whose state is exported as the
// circuit_breaker_state gauge.
type CircuitBreaker struct {
	name string
	cb   *gobreaker.CircuitBreaker
}

func New(cfg Config) *CircuitBreaker {
	metrics.SetBreakerState(cfg.Name, int(gobreaker.StateClosed))
	return &CircuitBreaker{
		name: cfg.Name,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:          cfg.Name,
			MaxRequests:   cfg.HalfOpenProbes,
			Interval:      cfg.Window,
			Timeout:       cfg.OpenFor,
			ReadyToTrip:   tripper(cfg),
			OnStateChange: stateChanged,
		}),
	}
}

func tripper(cfg Config) func(gobreaker.Counts) bool {
	return func(c gobreaker.Counts) bool {
		if c.Requests == 0 || c.Requests < cfg.MinSamples {
			return false
		}
		return float64(c.TotalFailures) >= cfg.TripRatio*float64(c.Requests)
	}
}

func stateChanged(name string, from, to gobreaker.State) {
	metrics.SetBreakerState(name, int(to))
	level := slog.LevelWarn
	if to == gobreaker.StateClosed {
		level = slog.LevelInfo
	}
	slog.Log(context.Background(), level, "circuit breaker state changed",
		slog.String("breaker", name),
		slog.String("from", from.String()),
		slog.String("to", to.String()))
}

// Call runs fn unless the breaker is refusing calls, in which case the
// returned error satisfies IsRejected and fn is not invoked.
func Call[T any](b *CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := b.cb.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		if IsRejected(err) {
			metrics.RecordBreakerRejection(b.name)
		}
		var zero T
		return zero, err
	}
	return out.(T), nil
}

// IsRejected reports whether err came from an open or saturated half-open
// breaker rather than from the wrapped call.
func IsRejected(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func (b *CircuitBreaker) State() gobreaker.State { return b.cb.State() }

func (b *CircuitBreaker) IsOpen() bool { return b.cb.State() == gobreaker.StateOpen }
