// Package entity defines the canonical domain model: politicians and the
// source identifiers that point at them, bills, roll-call votes, donors and
// donations, plus the record-level error taxonomy shared by every pipeline stage.
package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Office is the elected office a term was served in.
type Office string

const (
	OfficeHouse     Office = "HOUSE"
	OfficeSenate    Office = "SENATE"
	OfficePresident Office = "PRESIDENT"
)

// ParseOffice accepts the office spellings used across the sources:
// FEC single-letter codes (H, S, P), Voteview chamber names and roster
// term types (rep, sen, prez).
func ParseOffice(s string) (Office, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "H", "HOUSE", "REP", "HOUSE OF REPRESENTATIVES":
		return OfficeHouse, nil
	case "S", "SENATE", "SEN":
		return OfficeSenate, nil
	case "P", "PRESIDENT", "PREZ":
		return OfficePresident, nil
	default:
		return "", fmt.Errorf("%w: unknown office %q", ErrInvalidInput, s)
	}
}

// Code returns the single-letter office code (H, S, P).
func (o Office) Code() string {
	if o == "" {
		return ""
	}
	return string(o[0])
}

// YearRange is an inclusive span of calendar years.
type YearRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether the two inclusive ranges share at least one year.
func (r YearRange) Overlaps(o YearRange) bool {
	return r.Start <= o.End && o.Start <= r.End
}

// Valid reports whether the range is non-empty and ordered.
func (r YearRange) Valid() bool {
	return r.Start > 0 && r.End >= r.Start
}

// CongressYears returns the calendar years spanned by a congress. The 1st
// Congress convened in 1789 and each congress lasts two years, ending on
// January 3rd of the third year.
func CongressYears(congress int) YearRange {
	start := 1789 + 2*(congress-1)
	return YearRange{Start: start, End: start + 2}
}

// OfficeTerm is one entry of a politician's office history.
type OfficeTerm struct {
	Office    Office `json:"office"`
	State     string `json:"state"`
	District  *int   `json:"district,omitempty"`
	Party     string `json:"party,omitempty"`
	StartYear int    `json:"start_year"`
	EndYear   int    `json:"end_year"`
}

// Years returns the inclusive year range of the term.
func (t OfficeTerm) Years() YearRange {
	return YearRange{Start: t.StartYear, End: t.EndYear}
}

type termKey struct {
	office Office
	state  string
	start  int
}

func (t OfficeTerm) key() termKey {
	return termKey{office: t.Office, state: t.State, start: t.StartYear}
}

// Politician is the canonical identity of one real person.
type Politician struct {
	ID        int64
	FullName  string
	FirstName string
	LastName  string
	NameKey   string
	State     string
	Party     string
	BirthDate *time.Time
	Offices   []OfficeTerm
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppendOffices merges terms into the office history. A term already present
// (same office, state and start year) only has its end year extended; history
// is never removed. It returns true if the history changed.
func (p *Politician) AppendOffices(terms ...OfficeTerm) bool {
	changed := false
	index := make(map[termKey]int, len(p.Offices))
	for i, t := range p.Offices {
		index[t.key()] = i
	}

	for _, t := range terms {
		if i, ok := index[t.key()]; ok {
			if t.EndYear > p.Offices[i].EndYear {
				p.Offices[i].EndYear = t.EndYear
				changed = true
			}
			continue
		}
		p.Offices = append(p.Offices, t)
		index[t.key()] = len(p.Offices) - 1
		changed = true
	}

	if changed {
		sort.SliceStable(p.Offices, func(i, j int) bool {
			if p.Offices[i].StartYear != p.Offices[j].StartYear {
				return p.Offices[i].StartYear < p.Offices[j].StartYear
			}
			return p.Offices[i].Office < p.Offices[j].Office
		})
		if latest, ok := p.LatestTerm(); ok {
			p.State = latest.State
			if latest.Party != "" {
				p.Party = latest.Party
			}
		}
	}
	return changed
}

// Enrich fills metadata that is still unknown. Known values are never replaced.
func (p *Politician) Enrich(party string, birthDate *time.Time) bool {
	changed := false
	if p.Party == "" && party != "" {
		p.Party = party
		changed = true
	}
	if p.BirthDate == nil && birthDate != nil {
		bd := *birthDate
		p.BirthDate = &bd
		changed = true
	}
	return changed
}

// LatestTerm returns the most recently started term.
func (p *Politician) LatestTerm() (OfficeTerm, bool) {
	if len(p.Offices) == 0 {
		return OfficeTerm{}, false
	}
	return p.Offices[len(p.Offices)-1], true
}

// Validate checks the fields required to persist a politician.
func (p *Politician) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return &ValidationError{Field: "full_name", Message: "full name is required"}
	}
	if p.NameKey == "" {
		return &ValidationError{Field: "name_key", Message: "name key is required"}
	}
	for i, t := range p.Offices {
		if !t.Years().Valid() {
			return &ValidationError{
				Field:   fmt.Sprintf("offices[%d]", i),
				Message: fmt.Sprintf("invalid term years %d-%d", t.StartYear, t.EndYear),
			}
		}
	}
	return nil
}
