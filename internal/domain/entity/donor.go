package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DonorType classifies the giver of a contribution.
type DonorType string

const (
	DonorIndividual     DonorType = "INDIVIDUAL"
	DonorPAC            DonorType = "PAC"
	DonorPartyCommittee DonorType = "PARTY_COMMITTEE"
)

// ParseDonorType accepts a donor type in any case; "party" is short for
// PARTY_COMMITTEE.
func ParseDonorType(s string) (DonorType, error) {
	t := DonorType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case DonorIndividual, DonorPAC, DonorPartyCommittee:
		return t, nil
	case "PARTY":
		return DonorPartyCommittee, nil
	default:
		return "", fmt.Errorf("%w: unknown donor type %q", ErrInvalidInput, s)
	}
}

// IsCommittee reports whether the donor is identified by an FEC committee ID.
func (t DonorType) IsCommittee() bool {
	return t == DonorPAC || t == DonorPartyCommittee
}

// DonorKey is the natural key of a donor. CommitteeID is empty for individuals.
type DonorKey struct {
	Type        DonorType
	NameKey     string
	CommitteeID string
}

// Donor is a contributor. Donors are never merged across name spellings.
type Donor struct {
	ID          int64
	Type        DonorType
	Name        string
	NameKey     string
	CommitteeID string
	Employer    string
	Occupation  string
	City        string
	State       string
	CreatedAt   time.Time
}

// Key returns the donor's natural key.
func (d *Donor) Key() DonorKey {
	return DonorKey{Type: d.Type, NameKey: d.NameKey, CommitteeID: d.CommitteeID}
}

// Validate checks the natural key fields.
func (d *Donor) Validate() error {
	switch d.Type {
	case DonorIndividual:
		if d.CommitteeID != "" {
			return &ValidationError{Field: "committee_id", Message: "individual donors cannot carry a committee id"}
		}
	case DonorPAC, DonorPartyCommittee:
		if d.CommitteeID == "" {
			return &ValidationError{Field: "committee_id", Message: "committee donors require a committee id"}
		}
	default:
		return &ValidationError{Field: "type", Message: fmt.Sprintf("invalid donor type %q", d.Type)}
	}
	if strings.TrimSpace(d.NameKey) == "" {
		return &ValidationError{Field: "name_key", Message: "name key is required"}
	}
	return nil
}

// ReportableThreshold is the minimum-reportable contribution amount. Only
// amounts strictly greater than it are loaded.
var ReportableThreshold = decimal.NewFromInt(2000)

// AboveThreshold reports whether amount is strictly greater than the threshold.
func AboveThreshold(amount decimal.Decimal) bool {
	return amount.GreaterThan(ReportableThreshold)
}

// Donation is one reported contribution from a donor to a politician.
// SourceTxID is the dedup key across runs and snapshots.
type Donation struct {
	SourceTxID   string
	DonorID      int64
	PoliticianID int64
	Amount       decimal.Decimal
	Date         time.Time
	SourceFile   string
	CreatedAt    time.Time
}

// Validate enforces the threshold and reference fields.
func (d *Donation) Validate() error {
	if strings.TrimSpace(d.SourceTxID) == "" {
		return &ValidationError{Field: "source_tx_id", Message: "source transaction id is required"}
	}
	if d.PoliticianID <= 0 {
		return &ValidationError{Field: "politician_id", Message: "politician id must be positive"}
	}
	if !AboveThreshold(d.Amount) {
		return &ValidationError{
			Field:   "amount",
			Message: fmt.Sprintf("amount %s must be greater than %s", d.Amount.StringFixed(2), ReportableThreshold.String()),
		}
	}
	if d.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date is required"}
	}
	return nil
}
