package query

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"paper-trail/internal/common/pagination"
	"paper-trail/internal/domain/entity"
	"paper-trail/internal/repository"

	"github.com/shopspring/decimal"
)

// Result limits applied when the caller asks for none or too many.
const (
	DefaultLimit = 50
	MaxLimit     = 500
)

// MinDonorQueryLen is the shortest donor search accepted.
const MinDonorQueryLen = 3

// PoliticianDetail is a politician with every source identifier mapped to it.
type PoliticianDetail struct {
	Politician *entity.Politician
	Mappings   []entity.IdentityMapping
}

// VoteQuery selects one page of a politician's votes.
type VoteQuery struct {
	BillType string // any spelling entity.NormalizeBillType accepts; empty for all
	Sort     string // "asc" or "desc" by bill enactment date; empty means desc
	Page     pagination.Params
}

// VotePage is one page of votes with its paging metadata.
type VotePage struct {
	Votes []repository.VoteWithBill
	Meta  pagination.Metadata
}

// DonationSummary is the donor breakdown of one politician's donations.
// Total and Count cover every donation from donors of DonorType, not just
// the listed donors. An empty DonorType means every type.
type DonationSummary struct {
	PoliticianID int64
	DonorType    entity.DonorType
	Total        decimal.Decimal
	Count        int64
	Donors       []repository.DonorTotal
}

// DonorHistory is a donor with its donations, newest first.
type DonorHistory struct {
	Donor     *entity.Donor
	Donations []repository.DonationWithRecipient
}

// Service answers read queries over the loaded graph.
type Service struct {
	Politicians repository.PoliticianRepository
	Identities  repository.IdentityRepository
	Votes       repository.VoteRepository
	Donors      repository.DonorRepository
	Donations   repository.DonationRepository
	Deferred    repository.DeferredRepository
	Runs        repository.RunRepository

	// Paging bounds vote pages. The zero value means pagination.DefaultConfig.
	Paging pagination.Config
}

// NewService wires a query service over repos.
func NewService(repos repository.Repositories) *Service {
	return &Service{
		Politicians: repos.Politicians,
		Identities:  repos.Identities,
		Votes:       repos.Votes,
		Donors:      repos.Donors,
		Donations:   repos.Donations,
		Deferred:    repos.Deferred,
		Runs:        repos.Runs,
		Paging:      pagination.DefaultConfig(),
	}
}

// ClampLimit maps a requested limit onto [1, MaxLimit], using DefaultLimit
// for zero or negative values.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

// GetPolitician returns a politician with its identity mappings.
// Returns ErrInvalidPoliticianID if id is not positive and
// ErrPoliticianNotFound if no such politician exists.
func (s *Service) GetPolitician(ctx context.Context, id int64) (*PoliticianDetail, error) {
	p, err := s.politician(ctx, id)
	if err != nil {
		return nil, err
	}
	mappings, err := s.Identities.ListByPolitician(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list identity mappings: %w", err)
	}
	return &PoliticianDetail{Politician: p, Mappings: mappings}, nil
}

// SearchPoliticians matches politicians by name.
func (s *Service) SearchPoliticians(ctx context.Context, name string, limit int) ([]*entity.Politician, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyQuery
	}
	ps, err := s.Politicians.Search(ctx, name, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search politicians: %w", err)
	}
	return ps, nil
}

// VotesByPolitician returns one page of a politician's votes joined with
// their bills. Returns ErrInvalidBillType or ErrInvalidSort for a bad filter.
func (s *Service) VotesByPolitician(ctx context.Context, id int64, q VoteQuery) (*VotePage, error) {
	if _, err := s.politician(ctx, id); err != nil {
		return nil, err
	}

	f := repository.VoteFilter{}
	if q.BillType != "" {
		t, ok := entity.NormalizeBillType(q.BillType)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidBillType, q.BillType)
		}
		f.BillType = t
	}
	switch strings.ToLower(q.Sort) {
	case "", "desc":
	case "asc":
		f.Ascending = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSort, q.Sort)
	}

	params := q.Page.WithDefaults(s.pageConfig())
	f.Limit, f.Offset = params.Limit, params.Offset()

	total, err := s.Votes.CountByPolitician(ctx, id, f.BillType)
	if err != nil {
		return nil, fmt.Errorf("count votes: %w", err)
	}
	votes, err := s.Votes.ListByPolitician(ctx, id, f)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", err)
	}
	return &VotePage{Votes: votes, Meta: pagination.NewMetadata(total, params)}, nil
}

func (s *Service) pageConfig() pagination.Config {
	if s.Paging.MaxLimit <= 0 {
		return pagination.DefaultConfig()
	}
	return s.Paging
}

// DonationSummary returns the top donors of a politician by total given,
// each with its share of the politician's total. donorType narrows both the
// donors and the total; empty means every type.
func (s *Service) DonationSummary(ctx context.Context, id int64, donorType string, limit int) (*DonationSummary, error) {
	if _, err := s.politician(ctx, id); err != nil {
		return nil, err
	}
	var t entity.DonorType
	if donorType != "" {
		parsed, err := entity.ParseDonorType(donorType)
		if err != nil {
			return nil, err
		}
		t = parsed
	}

	totals, err := s.Donations.DonorTotals(ctx, id, t, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("donor totals: %w", err)
	}
	grand, count, err := s.Donations.Received(ctx, id, t)
	if err != nil {
		return nil, fmt.Errorf("received: %w", err)
	}

	hundred := decimal.NewFromInt(100)
	for i := range totals {
		totals[i].Share = decimal.Zero
		if grand.IsPositive() {
			totals[i].Share = totals[i].Total.Mul(hundred).Div(grand).Round(2)
		}
	}
	return &DonationSummary{PoliticianID: id, DonorType: t, Total: grand, Count: count, Donors: totals}, nil
}

// SearchDonors matches donors by name or employer. Queries shorter than
// MinDonorQueryLen return ErrQueryTooShort.
func (s *Service) SearchDonors(ctx context.Context, q string, limit int) ([]entity.Donor, error) {
	q = strings.TrimSpace(q)
	if utf8.RuneCountInString(q) < MinDonorQueryLen {
		return nil, ErrQueryTooShort
	}
	donors, err := s.Donors.Search(ctx, q, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("search donors: %w", err)
	}
	return donors, nil
}

// DonorDonations returns a donor with its donations and their recipients.
func (s *Service) DonorDonations(ctx context.Context, donorID int64, limit int) (*DonorHistory, error) {
	if donorID <= 0 {
		return nil, ErrInvalidDonorID
	}
	d, err := s.Donors.Get(ctx, donorID)
	if err != nil {
		return nil, fmt.Errorf("get donor: %w", err)
	}
	if d == nil {
		return nil, ErrDonorNotFound
	}
	donations, err := s.Donations.ListByDonor(ctx, donorID, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}
	return &DonorHistory{Donor: d, Donations: donations}, nil
}

// ListDeferred returns pending side-channel records. An empty kind lists
// every kind.
func (s *Service) ListDeferred(ctx context.Context, kind string, limit int) ([]*entity.DeferredRecord, error) {
	var k entity.DeferredKind
	if kind != "" {
		parsed, err := entity.ParseDeferredKind(kind)
		if err != nil {
			return nil, err
		}
		k = parsed
	}
	recs, err := s.Deferred.ListPending(ctx, k, ClampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list deferred: %w", err)
	}
	return recs, nil
}

// LatestRun returns the report of the most recent ingest run.
func (s *Service) LatestRun(ctx context.Context) (*entity.RunSummary, error) {
	run, err := s.Runs.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	if run == nil {
		return nil, ErrNoRuns
	}
	return run, nil
}

func (s *Service) politician(ctx context.Context, id int64) (*entity.Politician, error) {
	if id <= 0 {
		return nil, ErrInvalidPoliticianID
	}
	p, err := s.Politicians.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get politician: %w", err)
	}
	if p == nil {
		return nil, ErrPoliticianNotFound
	}
	return p, nil
}
