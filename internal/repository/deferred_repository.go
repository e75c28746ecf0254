package repository

import (
	"context"
	"time"

	"paper-trail/internal/domain/entity"
)

// DeferredRepository is the unresolved side-channel.
type DeferredRepository interface {
	// Upsert records d keyed by (kind, system, local id). For an existing key
	// it increments attempts, refreshes reason, detail, payload and last seen,
	// and reopens the record if it was resolved. It reports whether the key is new.
	Upsert(ctx context.Context, d *entity.DeferredRecord) (bool, error)
	// ListPending returns unresolved records in insertion order. An empty
	// kind lists every kind; limit <= 0 means no limit.
	ListPending(ctx context.Context, kind entity.DeferredKind, limit int) ([]*entity.DeferredRecord, error)
	// MarkResolved closes a pending record and reports whether one was open.
	MarkResolved(ctx context.Context, kind entity.DeferredKind, ref entity.SourceRef, at time.Time) (bool, error)
	CountPending(ctx context.Context) (map[entity.DeferredKind]int64, error)
}

type RunRepository interface {
	// Save inserts or replaces the summary of run r.RunID.
	Save(ctx context.Context, r *entity.RunSummary) error
	// Get returns (nil, nil) if the run is unknown.
	Get(ctx context.Context, runID string) (*entity.RunSummary, error)
	// Latest returns the most recently started run, or (nil, nil) if none.
	Latest(ctx context.Context) (*entity.RunSummary, error)
}
