package resolve

import (
	"testing"

	"paper-trail/internal/domain/entity"

	"github.com/stretchr/testify/assert"
)

func pol(id int64, key string, terms ...entity.OfficeTerm) *entity.Politician {
	return &entity.Politician{ID: id, NameKey: key, Offices: terms}
}

func term(office entity.Office, state string, start, end int) entity.OfficeTerm {
	return entity.OfficeTerm{Office: office, State: state, StartYear: start, EndYear: end}
}

func TestMatch(t *testing.T) {
	janeOH := pol(1, "DOE|JANE", term(entity.OfficeHouse, "OH", 2019, 2023))
	janeTX := pol(2, "DOE|JANE", term(entity.OfficeSenate, "TX", 2015, 2027))
	janeOH2 := pol(3, "DOE|JANE", term(entity.OfficeHouse, "OH", 2021, 2025))
	john := pol(4, "DOE|JOHN", term(entity.OfficeHouse, "OH", 2019, 2023))
	president := pol(5, "BIDEN|JOSEPH", term(entity.OfficeSenate, "DE", 1973, 2009), term(entity.OfficePresident, "", 2021, 2025))

	tests := []struct {
		name    string
		subject Subject
		pool    []*entity.Politician
		want    MatchResult
	}{
		{
			name:    "state separates namesakes",
			subject: Subject{NameKey: "DOE|JANE", State: "OH", Office: entity.OfficeHouse, Period: entity.YearRange{Start: 2019, End: 2021}},
			pool:    []*entity.Politician{janeOH, janeTX, john},
			want:    MatchResult{Outcome: Unique, PoliticianID: 1, Candidates: []int64{1}},
		},
		{
			name:    "office separates namesakes",
			subject: Subject{NameKey: "DOE|JANE", State: "TX", Office: entity.OfficeSenate, Period: entity.YearRange{Start: 2019, End: 2025}},
			pool:    []*entity.Politician{janeOH, janeTX},
			want:    MatchResult{Outcome: Unique, PoliticianID: 2, Candidates: []int64{2}},
		},
		{
			name:    "two qualify",
			subject: Subject{NameKey: "DOE|JANE", State: "OH", Office: entity.OfficeHouse, Period: entity.YearRange{Start: 2021, End: 2023}},
			pool:    []*entity.Politician{janeOH2, janeOH, janeTX},
			want:    MatchResult{Outcome: Ambiguous, Candidates: []int64{1, 3}},
		},
		{
			name:    "period does not overlap",
			subject: Subject{NameKey: "DOE|JANE", State: "OH", Office: entity.OfficeHouse, Period: entity.YearRange{Start: 2027, End: 2029}},
			pool:    []*entity.Politician{janeOH, janeOH2},
			want:    MatchResult{Outcome: NoMatch},
		},
		{
			name:    "overlap is inclusive",
			subject: Subject{NameKey: "DOE|JANE", State: "OH", Office: entity.OfficeHouse, Period: entity.YearRange{Start: 2025, End: 2027}},
			pool:    []*entity.Politician{janeOH, janeOH2},
			want:    MatchResult{Outcome: Unique, PoliticianID: 3, Candidates: []int64{3}},
		},
		{
			name:    "same state wrong office",
			subject: Subject{NameKey: "DOE|JOHN", State: "OH", Office: entity.OfficeSenate, Period: entity.YearRange{Start: 2019, End: 2021}},
			pool:    []*entity.Politician{john},
			want:    MatchResult{Outcome: NoMatch},
		},
		{
			name:    "presidency ignores state",
			subject: Subject{NameKey: "BIDEN|JOSEPH", State: "", Office: entity.OfficePresident, Period: entity.YearRange{Start: 2017, End: 2021}},
			pool:    []*entity.Politician{president},
			want:    MatchResult{Outcome: Unique, PoliticianID: 5, Candidates: []int64{5}},
		},
		{
			name:    "empty name key never matches",
			subject: Subject{NameKey: "", State: "OH", Office: entity.OfficeHouse, Period: entity.YearRange{Start: 2019, End: 2021}},
			pool:    []*entity.Politician{pol(9, "", term(entity.OfficeHouse, "OH", 2019, 2021))},
			want:    MatchResult{Outcome: NoMatch},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.subject, tt.pool))
		})
	}
}

func TestMatch_OrderIndependent(t *testing.T) {
	pool := []*entity.Politician{
		pol(1, "DOE|JANE", term(entity.OfficeHouse, "OH", 2019, 2023)),
		pol(2, "DOE|JANE", term(entity.OfficeHouse, "OH", 2021, 2025)),
		pol(3, "DOE|JANE", term(entity.OfficeHouse, "TX", 2019, 2025)),
	}
	reversed := []*entity.Politician{pool[2], pool[1], pool[0]}
	s := Subject{NameKey: "DOE|JANE", State: "OH", Office: entity.OfficeHouse, Period: entity.YearRange{Start: 2021, End: 2022}}

	assert.Equal(t, Match(s, pool), Match(s, reversed))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "unique", Unique.String())
	assert.Equal(t, "ambiguous", Ambiguous.String())
	assert.Equal(t, "no_match", NoMatch.String())
}
