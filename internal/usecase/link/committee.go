package link

import (
	"sort"

	"paper-trail/internal/domain/record"
)

// CommitteeIndex maps FEC committees to the candidates they raise money for.
// It is rebuilt every run from the committee master and linkage files.
type CommitteeIndex struct {
	committees map[string]record.CommitteeRecord
	links      map[string][]record.LinkageRecord
}

// NewCommitteeIndex returns an empty index.
func NewCommitteeIndex() *CommitteeIndex {
	return &CommitteeIndex{
		committees: make(map[string]record.CommitteeRecord),
		links:      make(map[string][]record.LinkageRecord),
	}
}

func (x *CommitteeIndex) AddCommittee(c record.CommitteeRecord) {
	x.committees[c.CommitteeID] = c
}

func (x *CommitteeIndex) AddLinkage(l record.LinkageRecord) {
	x.links[l.CommitteeID] = append(x.links[l.CommitteeID], l)
}

// Committee returns the committee master row for id.
func (x *CommitteeIndex) Committee(id string) (record.CommitteeRecord, bool) {
	c, ok := x.committees[id]
	return c, ok
}

// Known reports whether the committee appears in either file.
func (x *CommitteeIndex) Known(id string) bool {
	_, inMaster := x.committees[id]
	_, linked := x.links[id]
	return inMaster || linked
}

// Len returns the number of committees and linkages indexed.
func (x *CommitteeIndex) Len() (committees, linkages int) {
	for _, ls := range x.links {
		linkages += len(ls)
	}
	return len(x.committees), linkages
}

// electionCycle is the two-year FEC cycle a transaction year belongs to.
func electionCycle(year int) int {
	if year%2 == 1 {
		return year + 1
	}
	return year
}

// Attribution classifies what a committee's receipts can be attributed to.
type Attribution int

const (
	// NoCandidate: the committee raises money for no candidate (party
	// committees, PACs).
	NoCandidate Attribution = iota
	// SingleCandidate: exactly one candidate in the cycle.
	SingleCandidate
	// SeveralCandidates: a joint fundraising committee linked to more than
	// one candidate in the cycle.
	SeveralCandidates
	// OtherCycle: the committee is linked to candidates, but not in the
	// transaction's cycle.
	OtherCycle
)

// Recipient is the candidate side of a committee receipt. Candidates is
// sorted. Cycles is set for OtherCycle and lists the cycles the committee
// is linked in.
type Recipient struct {
	Attribution Attribution
	Cycle       int
	Candidates  []string
	Cycles      []int
}

// RecipientFor attributes a receipt by committeeID dated in year to the
// candidates the committee is linked to in that year's cycle. The committee
// master's candidate ID is used only for committees without any linkage,
// since the master row carries no cycle.
func (x *CommitteeIndex) RecipientFor(committeeID string, year int) Recipient {
	cycle := electionCycle(year)
	links := x.links[committeeID]

	var inCycle []record.LinkageRecord
	cycles := make(map[int]bool)
	for _, l := range links {
		if l.ElectionYear == cycle {
			inCycle = append(inCycle, l)
		}
		cycles[l.ElectionYear] = true
	}

	switch ids := distinctCandidates(inCycle); {
	case len(ids) == 1:
		return Recipient{Attribution: SingleCandidate, Cycle: cycle, Candidates: ids}
	case len(ids) > 1:
		return Recipient{Attribution: SeveralCandidates, Cycle: cycle, Candidates: ids}
	}

	if len(links) > 0 {
		years := make([]int, 0, len(cycles))
		for y := range cycles {
			years = append(years, y)
		}
		sort.Ints(years)
		return Recipient{Attribution: OtherCycle, Cycle: cycle, Candidates: distinctCandidates(links), Cycles: years}
	}

	if c, ok := x.committees[committeeID]; ok && c.CandidateID != "" {
		return Recipient{Attribution: SingleCandidate, Cycle: cycle, Candidates: []string{c.CandidateID}}
	}
	return Recipient{Attribution: NoCandidate, Cycle: cycle}
}

func distinctCandidates(links []record.LinkageRecord) []string {
	seen := make(map[string]bool, len(links))
	var ids []string
	for _, l := range links {
		if !seen[l.CandidateID] {
			seen[l.CandidateID] = true
			ids = append(ids, l.CandidateID)
		}
	}
	sort.Strings(ids)
	return ids
}
