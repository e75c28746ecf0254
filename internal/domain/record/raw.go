// Package record holds the typed rows exchanged between pipeline stages:
// raw records produced by the source readers and the normalized records the
// normalizer hands to the resolver and linker.
package record

import (
	"fmt"
)

// ParseError is a per-record malformation found by a reader. Stages count
// it as a rejection and keep going; any other reader error fails the stage.
type ParseError struct {
	SourceFile string
	Line       int
	Err        error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.SourceFile, e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Origin locates a raw record in its source file.
type Origin struct {
	SourceFile string `json:"source_file,omitempty"`
	Line       int    `json:"line,omitempty"`
}

// RawTerm is one roster term, as published.
type RawTerm struct {
	Type     string // rep, sen, prez
	Start    string // YYYY-MM-DD
	End      string // YYYY-MM-DD
	State    string
	District *int
	Party    string
}

// Legislator is a roster entry.
type Legislator struct {
	Origin
	BioguideID   string
	First        string
	Middle       string
	Last         string
	Suffix       string
	Nickname     string
	OfficialName string
	Birthday     string
	Terms        []RawTerm
	FECIDs       []string
	ICPSRID      string
}

// BillStatus is enacted-bill metadata.
type BillStatus struct {
	Origin
	Congress   string
	Type       string
	Number     string
	Title      string
	EnactedOn  string
	PolicyArea string
}

// Member is a Voteview member-congress row.
type Member struct {
	Origin
	ICPSR      string
	Congress   int
	Chamber    string
	BioName    string
	State      string
	PartyCode  int
	BioguideID string
}

// Vote is a Voteview vote joined with its roll call.
type Vote struct {
	Origin
	Congress   int
	Chamber    string
	RollNumber int
	BillNumber string
	ICPSR      string
	CastCode   int
}

// Candidate is an FEC candidate master (cn) row.
type Candidate struct {
	Origin
	CandidateID  string
	Name         string
	Party        string
	ElectionYear string
	State        string
	Office       string
	District     string
}

// Committee is an FEC committee master (cm) row.
type Committee struct {
	Origin
	CommitteeID string
	Name        string
	Party       string
	Type        string
	Designation string
	CandidateID string
}

// Linkage is an FEC candidate-committee linkage (ccl) row.
type Linkage struct {
	Origin
	CandidateID   string
	ElectionYear  string
	CommitteeID   string
	CommitteeType string
	Designation   string
	LinkageID     string
}

// ContributionKind distinguishes the two FEC contribution files.
type ContributionKind string

const (
	// ContributionIndividual rows come from itcont: an individual gives to a committee.
	ContributionIndividual ContributionKind = "INDIVIDUAL"
	// ContributionCommittee rows come from pas2: a committee gives to a candidate.
	ContributionCommittee ContributionKind = "COMMITTEE"
)

// Contribution is an FEC itcont or pas2 row. CommitteeID is the filing
// committee: the recipient for itcont, the giver for pas2. TransactionType
// is the FEC transaction code (15, 15E, 24K, 24A, ...); MemoCode is "X" on
// memo entries that are not counted in the filer's totals.
type Contribution struct {
	Origin
	Kind            ContributionKind
	CommitteeID     string
	CandidateID     string
	TransactionType string
	MemoCode        string
	OtherID         string
	Name            string
	EntityType      string
	City            string
	State           string
	Employer        string
	Occupation      string
	Date            string
	Amount          string
	TxID            string
	SubID           string
}
