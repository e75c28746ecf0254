package pipeline

import (
	"context"
	"iter"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"
)

// Source is a lazy, finite, restartable sequence of raw records. Every call
// to Records starts over from the beginning of the underlying files.
//
// A yielded *record.ParseError is a single malformed record and is counted;
// any other yielded error fails the stage.
type Source[T any] interface {
	Name() string
	Records() iter.Seq2[T, error]
}

// Sources lists the readers of one run. Empty lists are allowed: the stage
// still retries its side-channel backlog.
type Sources struct {
	Roster        []Source[record.Legislator]
	Candidates    []Source[record.Candidate]
	Members       []Source[record.Member]
	Bills         []Source[record.BillStatus]
	Votes         []Source[record.Vote]
	Committees    []Source[record.Committee]
	Linkages      []Source[record.Linkage]
	Contributions []Source[record.Contribution]
}

// EventPublisher announces side-channel entries and finished runs to
// downstream consumers. Publish errors are logged, never fatal.
type EventPublisher interface {
	PublishDeferred(ctx context.Context, rec *entity.DeferredRecord) error
	PublishRun(ctx context.Context, run *entity.RunSummary) error
}

type nopPublisher struct{}

func (nopPublisher) PublishDeferred(context.Context, *entity.DeferredRecord) error { return nil }
func (nopPublisher) PublishRun(context.Context, *entity.RunSummary) error         { return nil }
