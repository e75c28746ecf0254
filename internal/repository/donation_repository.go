package repository

import (
	"context"

	"paper-trail/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// DonorTotal aggregates the donations of one donor to one politician.
type DonorTotal struct {
	Donor entity.Donor
	Total decimal.Decimal
	Count int64
	// Share is Total as a percentage of everything the politician received
	// from donors of the filtered type, rounded to two places.
	Share decimal.Decimal
}

// DonationWithRecipient is a donation joined with the politician who
// received it. Only the recipient's ID, FullName, State and Party are set.
type DonationWithRecipient struct {
	Donation  entity.Donation
	Recipient entity.Politician
}

type DonorRepository interface {
	// Upsert inserts d or finds the existing donor with the same natural key,
	// sets d.ID, and reports whether a row was inserted. Existing donors keep
	// their stored attributes.
	Upsert(ctx context.Context, d *entity.Donor) (bool, error)
	// Get returns (nil, nil) if the donor is unknown.
	Get(ctx context.Context, id int64) (*entity.Donor, error)
	// Search matches donors whose name or employer contains q, ignoring case,
	// ordered by name then ID.
	Search(ctx context.Context, q string, limit int) ([]entity.Donor, error)
	Count(ctx context.Context) (int64, error)
}

type DonationRepository interface {
	// Insert writes d unless its source transaction ID exists and reports
	// whether a row was written.
	Insert(ctx context.Context, d *entity.Donation) (bool, error)
	// ExistingTxIDs returns the subset of txIDs already stored, in one query.
	ExistingTxIDs(ctx context.Context, txIDs []string) (map[string]bool, error)
	// DonorTotals sums donations to a politician per donor, largest first.
	// An empty donorType includes every donor. Share is left zero.
	DonorTotals(ctx context.Context, politicianID int64, donorType entity.DonorType, limit int) ([]DonorTotal, error)
	// Received sums every donation to a politician from donors of donorType
	// (every type when empty) and counts them.
	Received(ctx context.Context, politicianID int64, donorType entity.DonorType) (decimal.Decimal, int64, error)
	// ListByDonor returns a donor's donations newest first.
	ListByDonor(ctx context.Context, donorID int64, limit int) ([]DonationWithRecipient, error)
	Count(ctx context.Context) (int64, error)
}
