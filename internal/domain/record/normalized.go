package record

import (
	"time"

	"paper-trail/internal/domain/entity"

	"github.com/shopspring/decimal"
)

// PersonName is a parsed personal name. NameKey ("LAST|FIRST") is the
// matching key; FullName keeps the source casing for display.
type PersonName struct {
	FullName  string `json:"full_name"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	NameKey   string `json:"name_key"`
}

// LegislatorRecord is a normalized roster entry.
type LegislatorRecord struct {
	Origin
	Ref       entity.SourceRef    `json:"ref"`
	Name      PersonName          `json:"name"`
	Party     string              `json:"party,omitempty"`
	BirthDate *time.Time          `json:"birth_date,omitempty"`
	Terms     []entity.OfficeTerm `json:"terms"`
	CrossRefs []entity.SourceRef  `json:"cross_refs,omitempty"`
}

// CandidateRecord is a normalized FEC candidate.
type CandidateRecord struct {
	Origin
	Ref          entity.SourceRef `json:"ref"`
	Name         PersonName       `json:"name"`
	Party        string           `json:"party,omitempty"`
	State        string           `json:"state"`
	Office       entity.Office    `json:"office"`
	District     string           `json:"district,omitempty"`
	ElectionYear int              `json:"election_year"`
	Period       entity.YearRange `json:"period"`
}

// MemberRecord is a normalized Voteview member-congress row.
type MemberRecord struct {
	Origin
	Ref       entity.SourceRef   `json:"ref"`
	Name      PersonName         `json:"name"`
	State     string             `json:"state"`
	Office    entity.Office      `json:"office"`
	Congress  int                `json:"congress"`
	Period    entity.YearRange   `json:"period"`
	CrossRefs []entity.SourceRef `json:"cross_refs,omitempty"`
}

// VoteRecord is a normalized roll-call vote. Bill is nil for procedural
// roll calls and nominations that do not concern legislation.
type VoteRecord struct {
	Origin
	ICPSR      string          `json:"icpsr"`
	RollCallID string          `json:"roll_call_id"`
	Congress   int             `json:"congress"`
	Chamber    entity.Office   `json:"chamber"`
	Bill       *entity.BillKey `json:"bill,omitempty"`
	Position   entity.Position `json:"position"`
}

// LocalID identifies the vote in the side-channel: "<roll call>/<icpsr>".
func (v *VoteRecord) LocalID() string {
	return v.RollCallID + "/" + v.ICPSR
}

// ContributionRecord is a normalized FEC contribution.
type ContributionRecord struct {
	Origin
	Kind            ContributionKind `json:"kind"`
	TxID            string           `json:"tx_id"`
	TransactionType string           `json:"transaction_type"`
	CommitteeID     string           `json:"committee_id"`
	CandidateID     string           `json:"candidate_id,omitempty"`
	DonorName       string           `json:"donor_name"`
	DonorKey        string           `json:"donor_key"`
	EntityType      string           `json:"entity_type,omitempty"`
	Employer        string           `json:"employer,omitempty"`
	Occupation      string           `json:"occupation,omitempty"`
	City            string           `json:"city,omitempty"`
	State           string           `json:"state,omitempty"`
	Amount          decimal.Decimal  `json:"amount"`
	Date            time.Time        `json:"date"`
}

// CommitteeRecord is a normalized FEC committee master row.
type CommitteeRecord struct {
	CommitteeID string `json:"committee_id"`
	Name        string `json:"name"`
	NameKey     string `json:"name_key"`
	Type        string `json:"type"`
	Designation string `json:"designation,omitempty"`
	CandidateID string `json:"candidate_id,omitempty"`
}

// LinkageRecord is a normalized candidate-committee linkage.
type LinkageRecord struct {
	CandidateID  string `json:"candidate_id"`
	CommitteeID  string `json:"committee_id"`
	ElectionYear int    `json:"election_year"`
	Designation  string `json:"designation,omitempty"`
}
