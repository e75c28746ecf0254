// Package link turns resolved records into relations: votes between a
// politician and a bill, donations between a donor and a politician.
// References that cannot be satisfied yet are deferred, not dropped.
package link

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"
	"paper-trail/internal/repository"
)

// IdentityLookup resolves a source reference to a politician ID.
type IdentityLookup interface {
	Lookup(ref entity.SourceRef) (int64, bool)
}

// Status classifies a link attempt.
type Status string

const (
	StatusLinked    Status = "linked"
	StatusDeferred  Status = "deferred"
	StatusSkipped   Status = "skipped"
	StatusRejected  Status = "rejected"
	StatusDuplicate Status = "duplicate"
)

// VoteLink is the outcome of LinkVote. Vote is set when Status is linked.
type VoteLink struct {
	Status Status
	Vote   *entity.Vote
	Reason entity.ErrorKind
	Detail string
}

// DonationLink is the outcome of LinkDonation. Donor and Donation are set
// when Status is linked; Rejection when it is rejected.
type DonationLink struct {
	Status    Status
	Donor     *entity.Donor
	Donation  *entity.Donation
	Reason    entity.ErrorKind
	Detail    string
	Rejection *entity.Rejection
}

// partyCommitteeTypes are the FEC committee types of party organizations.
var partyCommitteeTypes = map[string]bool{"X": true, "Y": true, "Z": true}

// Linker links one stage's records. Transaction IDs seen during the run
// are remembered so that repeats within a snapshot are duplicates too.
type Linker struct {
	identities IdentityLookup
	bills      repository.BillRepository
	donations  repository.DonationRepository
	committees *CommitteeIndex

	knownBills map[entity.BillKey]bool
	txSeen     map[string]bool
}

// NewLinker returns a linker. committees may be nil for vote-only use.
func NewLinker(identities IdentityLookup, bills repository.BillRepository, donations repository.DonationRepository, committees *CommitteeIndex) *Linker {
	if committees == nil {
		committees = NewCommitteeIndex()
	}
	return &Linker{
		identities: identities,
		bills:      bills,
		donations:  donations,
		committees: committees,
		knownBills: make(map[entity.BillKey]bool),
		txSeen:     make(map[string]bool),
	}
}

// LinkVote attaches a roll-call vote to its politician and bill. Roll calls
// that are not about legislation are skipped. Errors are storage errors.
func (l *Linker) LinkVote(ctx context.Context, rec record.VoteRecord) (VoteLink, error) {
	if rec.Bill == nil {
		return VoteLink{Status: StatusSkipped, Detail: fmt.Sprintf("roll call %s has no bill", rec.RollCallID)}, nil
	}

	politicianID, ok := l.identities.Lookup(entity.SourceRef{System: entity.SystemICPSR, LocalID: rec.ICPSR})
	if !ok {
		return VoteLink{
			Status: StatusDeferred,
			Reason: entity.KindReferentialGap,
			Detail: fmt.Sprintf("icpsr %s is not mapped to a politician", rec.ICPSR),
		}, nil
	}

	found, err := l.billExists(ctx, *rec.Bill)
	if err != nil {
		return VoteLink{}, err
	}
	if !found {
		return VoteLink{
			Status: StatusDeferred,
			Reason: entity.KindReferentialGap,
			Detail: fmt.Sprintf("bill %s is not loaded", rec.Bill),
		}, nil
	}

	return VoteLink{
		Status: StatusLinked,
		Vote: &entity.Vote{
			PoliticianID: politicianID,
			RollCallID:   rec.RollCallID,
			Bill:         *rec.Bill,
			Position:     rec.Position,
		},
	}, nil
}

func (l *Linker) billExists(ctx context.Context, key entity.BillKey) (bool, error) {
	if l.knownBills[key] {
		return true, nil
	}
	b, err := l.bills.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("lookup bill %s: %w", key, err)
	}
	if b == nil {
		return false, nil
	}
	l.knownBills[key] = true
	return true, nil
}

// PrefetchTxIDs checks a batch of transaction IDs against the store in one
// query, so that LinkDonation does not query per row.
func (l *Linker) PrefetchTxIDs(ctx context.Context, txIDs []string) error {
	pending := make([]string, 0, len(txIDs))
	for _, id := range txIDs {
		if _, checked := l.txSeen[id]; !checked {
			pending = append(pending, id)
		}
	}
	if len(pending) == 0 {
		return nil
	}
	existing, err := l.donations.ExistingTxIDs(ctx, pending)
	if err != nil {
		return fmt.Errorf("prefetch transaction ids: %w", err)
	}
	for _, id := range pending {
		l.txSeen[id] = existing[id]
	}
	return nil
}

// LinkDonation builds the donor and donation for a contribution.
func (l *Linker) LinkDonation(ctx context.Context, rec record.ContributionRecord) (DonationLink, error) {
	txRef := entity.SourceRef{System: entity.SystemFEC, LocalID: rec.TxID}

	if !entity.AboveThreshold(rec.Amount) {
		rej := &entity.Rejection{
			Reason:     entity.ReasonBelowThreshold,
			Ref:        txRef,
			Detail:     fmt.Sprintf("amount %s not above %s", rec.Amount.StringFixed(2), entity.ReportableThreshold),
			SourceFile: rec.SourceFile,
			Line:       rec.Line,
		}
		return DonationLink{Status: StatusRejected, Reason: entity.KindValidationError, Rejection: rej, Detail: rej.Detail}, nil
	}

	seen, checked := l.txSeen[rec.TxID]
	if !checked {
		if err := l.PrefetchTxIDs(ctx, []string{rec.TxID}); err != nil {
			return DonationLink{}, err
		}
		seen = l.txSeen[rec.TxID]
	}
	if seen {
		return DonationLink{Status: StatusDuplicate, Reason: entity.KindDuplicate, Detail: "transaction " + rec.TxID + " already loaded"}, nil
	}

	candidateID := rec.CandidateID
	if candidateID == "" {
		if !l.committees.Known(rec.CommitteeID) {
			return DonationLink{
				Status: StatusDeferred,
				Reason: entity.KindReferentialGap,
				Detail: fmt.Sprintf("recipient committee %s is not in the committee files", rec.CommitteeID),
			}, nil
		}
		r := l.committees.RecipientFor(rec.CommitteeID, rec.Date.Year())
		switch r.Attribution {
		case NoCandidate:
			return DonationLink{
				Status: StatusSkipped,
				Detail: fmt.Sprintf("recipient committee %s raises for no candidate", rec.CommitteeID),
			}, nil
		case SeveralCandidates:
			return DonationLink{
				Status: StatusDeferred,
				Reason: entity.KindResolutionAmbiguous,
				Detail: fmt.Sprintf("recipient committee %s is linked to several candidates in %d: %s",
					rec.CommitteeID, r.Cycle, strings.Join(r.Candidates, ", ")),
			}, nil
		case OtherCycle:
			return DonationLink{
				Status: StatusDeferred,
				Reason: entity.KindReferentialGap,
				Detail: fmt.Sprintf("recipient committee %s has no candidate linkage for %d (linked in %s)",
					rec.CommitteeID, r.Cycle, joinInts(r.Cycles)),
			}, nil
		}
		candidateID = r.Candidates[0]
	}

	politicianID, ok := l.identities.Lookup(entity.SourceRef{System: entity.SystemFEC, LocalID: candidateID})
	if !ok {
		return DonationLink{
			Status: StatusDeferred,
			Reason: entity.KindReferentialGap,
			Detail: fmt.Sprintf("candidate %s is not mapped to a politician", candidateID),
		}, nil
	}

	l.txSeen[rec.TxID] = true
	return DonationLink{
		Status: StatusLinked,
		Donor:  l.donor(rec),
		Donation: &entity.Donation{
			SourceTxID:   rec.TxID,
			PoliticianID: politicianID,
			Amount:       rec.Amount,
			Date:         rec.Date,
			SourceFile:   rec.SourceFile,
		},
	}, nil
}

func (l *Linker) donor(rec record.ContributionRecord) *entity.Donor {
	if rec.Kind == record.ContributionIndividual {
		return &entity.Donor{
			Type:       entity.DonorIndividual,
			Name:       rec.DonorName,
			NameKey:    rec.DonorKey,
			Employer:   rec.Employer,
			Occupation: rec.Occupation,
			City:       rec.City,
			State:      rec.State,
		}
	}

	d := &entity.Donor{
		Type:        entity.DonorPAC,
		Name:        rec.CommitteeID,
		NameKey:     rec.CommitteeID,
		CommitteeID: rec.CommitteeID,
	}
	if cm, ok := l.committees.Committee(rec.CommitteeID); ok {
		d.Name, d.NameKey = cm.Name, cm.NameKey
		if partyCommitteeTypes[cm.Type] {
			d.Type = entity.DonorPartyCommittee
		}
	}
	return d
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ", ")
}
