package repository

import (
	"context"

	"paper-trail/internal/domain/entity"
)

// VoteWithBill is a vote joined with the bill its roll call concerns.
type VoteWithBill struct {
	Vote entity.Vote
	Bill entity.Bill
}

// VoteFilter selects and orders a page of one politician's votes. Votes
// sort by bill enactment date, then bill key, then roll call.
type VoteFilter struct {
	BillType  string // canonical bill type (HR, S, ...); empty matches every type
	Ascending bool   // oldest bill first instead of newest
	Limit     int    // <= 0 means no limit
	Offset    int
}

type BillRepository interface {
	// Get returns (nil, nil) if the bill is unknown.
	Get(ctx context.Context, key entity.BillKey) (*entity.Bill, error)
	// Insert writes b unless its key exists and reports whether a row was written.
	// Bills are immutable: an existing row is never updated.
	Insert(ctx context.Context, b *entity.Bill) (bool, error)
	Count(ctx context.Context) (int64, error)
}

type VoteRepository interface {
	// Insert writes v unless (politician, roll call) exists and reports
	// whether a row was written.
	Insert(ctx context.Context, v *entity.Vote) (bool, error)
	ListByPolitician(ctx context.Context, politicianID int64, f VoteFilter) ([]VoteWithBill, error)
	// CountByPolitician counts the votes ListByPolitician pages over. An
	// empty billType counts every type.
	CountByPolitician(ctx context.Context, politicianID int64, billType string) (int64, error)
	Count(ctx context.Context) (int64, error)
}
