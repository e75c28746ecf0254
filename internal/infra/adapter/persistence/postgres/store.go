// Package postgres implements the repository ports on PostgreSQL through
// database/sql and the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the query surface shared by *sql.DB, *sql.Tx and the circuit
// breaker wrapper.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Conn is a DBTX that can start transactions.
type Conn interface {
	DBTX
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Store is the Postgres persistence backend.
type Store struct {
	conn Conn
}

// NewStore returns a store on conn, usually a *circuitbreaker.DBCircuitBreaker.
func NewStore(conn Conn) *Store {
	return &Store{conn: conn}
}

var _ repository.Store = (*Store)(nil)

// Repos returns repositories that run each call on the pool.
func (s *Store) Repos() repository.Repositories {
	return bind(s.conn)
}

// Within runs fn in one transaction. It commits when fn returns nil and
// rolls back otherwise.
func (s *Store) Within(ctx context.Context, fn func(repository.Repositories) error) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin unit of work: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(bind(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit unit of work: %w", err)
	}
	return nil
}

func bind(db DBTX) repository.Repositories {
	return repository.Repositories{
		Politicians: NewPoliticianRepo(db),
		Identities:  NewIdentityRepo(db),
		Bills:       NewBillRepo(db),
		Votes:       NewVoteRepo(db),
		Donors:      NewDonorRepo(db),
		Donations:   NewDonationRepo(db),
		Deferred:    NewDeferredRepo(db),
		Runs:        NewRunRepo(db),
	}
}

// oneRow reports whether a statement affected exactly one row, which for
// INSERT ... ON CONFLICT DO NOTHING means the row was written.
func oneRow(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// nullLimit maps limit <= 0 to SQL NULL, which LIMIT treats as no limit.
func nullLimit(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// foreignKeyViolation is the SQLSTATE of a missing referenced row.
const foreignKeyViolation = "23503"

// wrapErr prefixes err with op and maps a foreign key violation to
// entity.ErrNotFound.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return fmt.Errorf("%s: %s: %w", op, pgErr.ConstraintName, entity.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
