package circuitbreaker

import (
	"context"
	"database/sql"
	"testing"

	"paper-trail/internal/observability/metrics"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockBreaker(t *testing.T, name string) (*DBCircuitBreaker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDBCircuitBreakerWithConfig(db, testConfig(name)), mock
}

func observations(t *testing.T, op string) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, metrics.DBQueryDuration.WithLabelValues(op).(prometheus.Metric).Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestDBCircuitBreaker_Statements(t *testing.T) {
	dcb, mock := newMockBreaker(t, "db-statements")
	ctx := context.Background()
	q0, e0, b0 := observations(t, "query"), observations(t, "exec"), observations(t, "begin")

	mock.ExpectQuery("SELECT id FROM bills").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("hr1-118"))
	mock.ExpectExec("DELETE FROM deferred_records").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectBegin()
	mock.ExpectRollback()

	rows, err := dcb.QueryContext(ctx, "SELECT id FROM bills")
	require.NoError(t, err)
	require.NoError(t, rows.Close())

	res, err := dcb.ExecContext(ctx, "DELETE FROM deferred_records WHERE kind = $1", "VOTE")
	require.NoError(t, err)
	n, _ := res.RowsAffected()
	assert.Equal(t, int64(2), n)

	tx, err := dcb.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, q0+1, observations(t, "query"))
	assert.Equal(t, e0+1, observations(t, "exec"))
	assert.Equal(t, b0+1, observations(t, "begin"))
}

func TestDBCircuitBreaker_OpensOnOutage(t *testing.T) {
	dcb, mock := newMockBreaker(t, "db-outage")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mock.ExpectExec("INSERT INTO votes").WillReturnError(sql.ErrConnDone)
		_, err := dcb.ExecContext(ctx, "INSERT INTO votes VALUES ($1)", i)
		assert.ErrorIs(t, err, sql.ErrConnDone)
	}
	require.True(t, dcb.IsOpen())

	_, err := dcb.BeginTx(ctx, nil)
	assert.True(t, IsRejected(err))
	_, err = dcb.QueryContext(ctx, "SELECT 1")
	assert.True(t, IsRejected(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBCircuitBreaker_QueryRowBypassesBreaker(t *testing.T) {
	dcb, mock := newMockBreaker(t, "db-queryrow")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mock.ExpectExec("UPDATE").WillReturnError(sql.ErrConnDone)
		_, _ = dcb.ExecContext(ctx, "UPDATE politicians SET updated_at = now()")
	}
	require.True(t, dcb.IsOpen())

	mock.ExpectQuery("SELECT count").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	var count int
	require.NoError(t, dcb.QueryRowContext(ctx, "SELECT count(*) FROM donations").Scan(&count))
	assert.Equal(t, 42, count)
}

func TestNewDBCircuitBreaker_UsesDBConfig(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	dcb := NewDBCircuitBreaker(db)
	assert.Equal(t, "database", dcb.cb.name)
	assert.False(t, dcb.IsOpen())
}
