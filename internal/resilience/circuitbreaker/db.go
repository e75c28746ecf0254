package circuitbreaker

import (
	"context"
	"database/sql"
	"time"

	"paper-trail/internal/observability/metrics"
)

// DBConfig trips after five consecutive failures and probes again after
// thirty seconds.
func DBConfig() Config {
	cfg := DefaultConfig("database")
	cfg.Window = time.Minute
	cfg.OpenFor = 30 * time.Second
	cfg.TripRatio = 1
	return cfg
}

// DBCircuitBreaker is a *sql.DB behind a breaker. It satisfies the
// connection interface of the Postgres store.
type DBCircuitBreaker struct {
	db *sql.DB
	cb *CircuitBreaker
}

func NewDBCircuitBreaker(db *sql.DB) *DBCircuitBreaker {
	return NewDBCircuitBreakerWithConfig(db, DBConfig())
}

func NewDBCircuitBreakerWithConfig(db *sql.DB, cfg Config) *DBCircuitBreaker {
	return &DBCircuitBreaker{db: db, cb: New(cfg)}
}

func (d *DBCircuitBreaker) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer timed("query", time.Now())
	return Call(d.cb, func() (*sql.Rows, error) { return d.db.QueryContext(ctx, query, args...) })
}

func (d *DBCircuitBreaker) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer timed("exec", time.Now())
	return Call(d.cb, func() (sql.Result, error) { return d.db.ExecContext(ctx, query, args...) })
}

// QueryRowContext bypasses the breaker. A *sql.Row reports its error only
// at Scan, after the breaker has already counted a success.
func (d *DBCircuitBreaker) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return d.db.QueryRowContext(ctx, query, args...)
}

// BeginTx guards the start of a transaction. Statements on the returned
// *sql.Tx are not counted.
func (d *DBCircuitBreaker) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	defer timed("begin", time.Now())
	return Call(d.cb, func() (*sql.Tx, error) { return d.db.BeginTx(ctx, opts) })
}

// IsOpen reports whether the breaker is refusing calls. The API health
// check reads it.
func (d *DBCircuitBreaker) IsOpen() bool { return d.cb.IsOpen() }

func timed(op string, start time.Time) {
	metrics.RecordDBQuery(op, time.Since(start))
}
