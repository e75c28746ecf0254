// Package resolve maps source-local identifiers onto canonical politicians.
// Matching is exact or deterministic first; the name heuristic only accepts
// a single unambiguous candidate.
package resolve

import (
	"sort"

	"paper-trail/internal/domain/entity"
)

// Outcome is the result class of a heuristic match.
type Outcome int

const (
	NoMatch Outcome = iota
	Unique
	Ambiguous
)

func (o Outcome) String() string {
	switch o {
	case Unique:
		return "unique"
	case Ambiguous:
		return "ambiguous"
	default:
		return "no_match"
	}
}

// Subject is what a source record tells us about a person: the name key,
// where and for which office they ran or served, and when.
type Subject struct {
	NameKey string
	State   string
	Office  entity.Office
	Period  entity.YearRange
}

// MatchResult lists every qualifying politician; PoliticianID is set only
// for a Unique outcome.
type MatchResult struct {
	Outcome      Outcome
	PoliticianID int64
	Candidates   []int64
}

// Match finds the politicians that qualify for subject. A politician
// qualifies when the name key is equal and a single office term has the same
// office, the same state (not checked for the presidency) and a year range
// overlapping the subject's period. Match is pure and its result does not
// depend on the order of pool.
func Match(subject Subject, pool []*entity.Politician) MatchResult {
	var ids []int64
	for _, p := range pool {
		if qualifies(subject, p) {
			ids = append(ids, p.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	switch len(ids) {
	case 0:
		return MatchResult{Outcome: NoMatch}
	case 1:
		return MatchResult{Outcome: Unique, PoliticianID: ids[0], Candidates: ids}
	default:
		return MatchResult{Outcome: Ambiguous, Candidates: ids}
	}
}

func qualifies(s Subject, p *entity.Politician) bool {
	if s.NameKey == "" || p.NameKey != s.NameKey {
		return false
	}
	for _, t := range p.Offices {
		if t.Office != s.Office {
			continue
		}
		if s.Office != entity.OfficePresident && t.State != s.State {
			continue
		}
		if t.Years().Overlaps(s.Period) {
			return true
		}
	}
	return false
}
