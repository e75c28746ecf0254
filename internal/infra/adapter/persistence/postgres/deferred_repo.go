package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"
)

type DeferredRepo struct{ db DBTX }

func NewDeferredRepo(db DBTX) repository.DeferredRepository {
	return &DeferredRepo{db: db}
}

func payloadArg(p json.RawMessage) any {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}

// Upsert relies on xmax being zero only for a freshly inserted row.
func (repo *DeferredRepo) Upsert(ctx context.Context, d *entity.DeferredRecord) (bool, error) {
	const query = `
INSERT INTO deferred_records (kind, system, local_id, reason, detail, payload, attempts, first_seen_at, last_seen_at)
VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $8)
ON CONFLICT (kind, system, local_id) DO UPDATE SET
       attempts     = deferred_records.attempts + 1,
       reason       = EXCLUDED.reason,
       detail       = EXCLUDED.detail,
       payload      = EXCLUDED.payload,
       last_seen_at = EXCLUDED.last_seen_at,
       resolved_at  = NULL
RETURNING id, attempts, first_seen_at, (xmax = 0) AS created`
	var created bool
	err := repo.db.QueryRowContext(ctx, query,
		d.Kind, d.System, d.LocalID, d.Reason, d.Detail, payloadArg(d.Payload),
		d.FirstSeenAt, d.LastSeenAt,
	).Scan(&d.ID, &d.Attempts, &d.FirstSeenAt, &created)
	if err != nil {
		return false, fmt.Errorf("Upsert: %w", err)
	}
	d.ResolvedAt = nil
	return created, nil
}

func (repo *DeferredRepo) ListPending(ctx context.Context, kind entity.DeferredKind, limit int) ([]*entity.DeferredRecord, error) {
	const query = `
SELECT id, kind, system, local_id, reason, detail, payload, attempts, first_seen_at, last_seen_at, resolved_at
FROM deferred_records
WHERE resolved_at IS NULL
  AND ($1 = '' OR kind = $1)
ORDER BY id ASC
LIMIT $2`
	rows, err := repo.db.QueryContext(ctx, query, string(kind), nullLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("ListPending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*entity.DeferredRecord, 0, 64)
	for rows.Next() {
		var d entity.DeferredRecord
		var payload []byte
		var resolved sql.NullTime
		if err := rows.Scan(
			&d.ID, &d.Kind, &d.System, &d.LocalID, &d.Reason, &d.Detail, &payload,
			&d.Attempts, &d.FirstSeenAt, &d.LastSeenAt, &resolved,
		); err != nil {
			return nil, fmt.Errorf("ListPending: %w", err)
		}
		if len(payload) > 0 {
			d.Payload = json.RawMessage(payload)
		}
		if resolved.Valid {
			at := resolved.Time
			d.ResolvedAt = &at
		}
		records = append(records, &d)
	}
	return records, rows.Err()
}

func (repo *DeferredRepo) MarkResolved(ctx context.Context, kind entity.DeferredKind, ref entity.SourceRef, at time.Time) (bool, error) {
	const query = `
UPDATE deferred_records SET resolved_at = $1
WHERE kind = $2 AND system = $3 AND local_id = $4 AND resolved_at IS NULL`
	res, err := repo.db.ExecContext(ctx, query, at, kind, ref.System, ref.LocalID)
	if err != nil {
		return false, fmt.Errorf("MarkResolved: %w", err)
	}
	ok, err := oneRow(res)
	if err != nil {
		return false, fmt.Errorf("MarkResolved: %w", err)
	}
	return ok, nil
}

func (repo *DeferredRepo) CountPending(ctx context.Context) (map[entity.DeferredKind]int64, error) {
	const query = `
SELECT kind, COUNT(*)
FROM deferred_records
WHERE resolved_at IS NULL
GROUP BY kind`
	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("CountPending: %w", err)
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[entity.DeferredKind]int64)
	for rows.Next() {
		var kind entity.DeferredKind
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("CountPending: %w", err)
		}
		counts[kind] = n
	}
	return counts, rows.Err()
}

/* ───────────── ingest runs ───────────── */

type RunRepo struct{ db DBTX }

func NewRunRepo(db DBTX) repository.RunRepository {
	return &RunRepo{db: db}
}

func (repo *RunRepo) Save(ctx context.Context, r *entity.RunSummary) error {
	summary, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("Save: marshal summary: %w", err)
	}

	var finished sql.NullTime
	if r.FinishedAt != nil {
		finished = sql.NullTime{Time: *r.FinishedAt, Valid: true}
	}

	const query = `
INSERT INTO ingest_runs (run_id, status, started_at, finished_at, summary)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (run_id) DO UPDATE SET
       status      = EXCLUDED.status,
       finished_at = EXCLUDED.finished_at,
       summary     = EXCLUDED.summary`
	if _, err := repo.db.ExecContext(ctx, query, r.RunID, r.Status, r.StartedAt, finished, string(summary)); err != nil {
		return fmt.Errorf("Save: %w", err)
	}
	return nil
}

func (repo *RunRepo) Get(ctx context.Context, runID string) (*entity.RunSummary, error) {
	const query = `SELECT summary FROM ingest_runs WHERE run_id = $1`
	return repo.one(ctx, "Get", query, runID)
}

func (repo *RunRepo) Latest(ctx context.Context) (*entity.RunSummary, error) {
	const query = `SELECT summary FROM ingest_runs ORDER BY seq DESC LIMIT 1`
	return repo.one(ctx, "Latest", query)
}

func (repo *RunRepo) one(ctx context.Context, op, query string, args ...any) (*entity.RunSummary, error) {
	var summary []byte
	err := repo.db.QueryRowContext(ctx, query, args...).Scan(&summary)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var r entity.RunSummary
	if err := json.Unmarshal(summary, &r); err != nil {
		return nil, fmt.Errorf("%s: unmarshal summary: %w", op, err)
	}
	return &r, nil
}
