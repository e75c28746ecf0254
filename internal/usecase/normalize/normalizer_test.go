package normalize

import (
	"errors"
	"testing"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejectionReason(t *testing.T, err error) entity.RejectReason {
	t.Helper()
	var rej *entity.Rejection
	require.True(t, errors.As(err, &rej), "expected rejection, got %v", err)
	return rej.Reason
}

func intPtr(i int) *int { return &i }

func validLegislator() record.Legislator {
	return record.Legislator{
		Origin:     record.Origin{SourceFile: "legislators-current.yaml", Line: 12},
		BioguideID: "D000001",
		First:      "Jane",
		Last:       "Doe",
		Birthday:   "1970-05-01",
		Terms: []record.RawTerm{
			{Type: "rep", Start: "2019-01-03", End: "2021-01-03", State: "OH", District: intPtr(3), Party: "Democrat"},
			{Type: "sen", Start: "2021-01-03", End: "2027-01-03", State: "OH", Party: "Democrat"},
		},
		FECIDs:  []string{"h8oh03001", " S0OH00001 "},
		ICPSRID: "21901",
	}
}

func TestLegislator(t *testing.T) {
	got, err := Legislator(validLegislator())
	require.NoError(t, err)

	want := []entity.OfficeTerm{
		{Office: entity.OfficeHouse, State: "OH", District: intPtr(3), Party: "Democrat", StartYear: 2019, EndYear: 2021},
		{Office: entity.OfficeSenate, State: "OH", Party: "Democrat", StartYear: 2021, EndYear: 2027},
	}
	if diff := cmp.Diff(want, got.Terms); diff != "" {
		t.Errorf("terms mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "DOE|JANE", got.Name.NameKey)
	assert.Equal(t, "Jane Doe", got.Name.FullName)
	assert.Equal(t, entity.SourceRef{System: entity.SystemBioguide, LocalID: "D000001"}, got.Ref)
	require.NotNil(t, got.BirthDate)
	assert.Equal(t, 1970, got.BirthDate.Year())
	assert.Equal(t, []entity.SourceRef{
		{System: entity.SystemFEC, LocalID: "H8OH03001"},
		{System: entity.SystemFEC, LocalID: "S0OH00001"},
		{System: entity.SystemICPSR, LocalID: "21901"},
	}, got.CrossRefs)
}

func TestLegislator_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*record.Legislator)
		want   entity.RejectReason
	}{
		{
			name:   "missing bioguide",
			mutate: func(l *record.Legislator) { l.BioguideID = " " },
			want:   entity.ReasonMissingRequiredField,
		},
		{
			name:   "missing name",
			mutate: func(l *record.Legislator) { l.First = "" },
			want:   entity.ReasonMissingRequiredField,
		},
		{
			name:   "no terms",
			mutate: func(l *record.Legislator) { l.Terms = nil },
			want:   entity.ReasonMissingRequiredField,
		},
		{
			name:   "unknown term type",
			mutate: func(l *record.Legislator) { l.Terms[0].Type = "gov" },
			want:   entity.ReasonInvalidCode,
		},
		{
			name:   "unknown state",
			mutate: func(l *record.Legislator) { l.Terms[0].State = "ZZ" },
			want:   entity.ReasonInvalidCode,
		},
		{
			name:   "bad term date",
			mutate: func(l *record.Legislator) { l.Terms[1].End = "2027-02-30" },
			want:   entity.ReasonMalformedDate,
		},
		{
			name:   "term ends before start",
			mutate: func(l *record.Legislator) { l.Terms[0].End = "2018-01-01" },
			want:   entity.ReasonMalformedDate,
		},
		{
			name:   "bad birthday",
			mutate: func(l *record.Legislator) { l.Birthday = "May 1 1970" },
			want:   entity.ReasonMalformedDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validLegislator()
			tt.mutate(&raw)
			_, err := Legislator(raw)
			assert.Equal(t, tt.want, rejectionReason(t, err))
		})
	}
}

func TestLegislator_RejectionCarriesOrigin(t *testing.T) {
	raw := validLegislator()
	raw.Terms[0].Type = "gov"
	_, err := Legislator(raw)

	var rej *entity.Rejection
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "legislators-current.yaml", rej.SourceFile)
	assert.Equal(t, 12, rej.Line)
	assert.Equal(t, "BIOGUIDE:D000001", rej.Ref.String())
}

func TestBill(t *testing.T) {
	got, err := Bill(record.BillStatus{
		Congress:   "118",
		Type:       "hr",
		Number:     "1234",
		Title:      "  Example   Act ",
		EnactedOn:  "2024-03-01",
		PolicyArea: "Taxation",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.BillKey{Congress: 118, Type: "HR", Number: 1234}, got.Key())
	assert.Equal(t, "Example Act", got.Title)
	assert.Equal(t, 2024, got.EnactedOn.Year())

	tests := []struct {
		name string
		raw  record.BillStatus
		want entity.RejectReason
	}{
		{name: "missing number", raw: record.BillStatus{Congress: "118", Type: "hr", Title: "A", EnactedOn: "2024-03-01"}, want: entity.ReasonMissingRequiredField},
		{name: "bad type", raw: record.BillStatus{Congress: "118", Type: "pn", Number: "5", Title: "A", EnactedOn: "2024-03-01"}, want: entity.ReasonInvalidCode},
		{name: "not enacted", raw: record.BillStatus{Congress: "118", Type: "s", Number: "5", Title: "A"}, want: entity.ReasonMissingRequiredField},
		{name: "bad date", raw: record.BillStatus{Congress: "118", Type: "s", Number: "5", Title: "A", EnactedOn: "03/01/2024"}, want: entity.ReasonMalformedDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Bill(tt.raw)
			assert.Equal(t, tt.want, rejectionReason(t, err))
		})
	}
}

func TestMember(t *testing.T) {
	got, err := Member(record.Member{
		ICPSR:      "21901",
		Congress:   118,
		Chamber:    "Senate",
		BioName:    "DOE, Jane",
		State:      "OH",
		BioguideID: "D000001",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OfficeSenate, got.Office)
	assert.Equal(t, entity.YearRange{Start: 2023, End: 2025}, got.Period)
	assert.Equal(t, "DOE|JANE", got.Name.NameKey)
	assert.Equal(t, []entity.SourceRef{{System: entity.SystemBioguide, LocalID: "D000001"}}, got.CrossRefs)

	_, err = Member(record.Member{ICPSR: "0", Congress: 118, Chamber: "House", BioName: "DOE, Jane", State: "OH"})
	assert.Equal(t, entity.ReasonMissingRequiredField, rejectionReason(t, err))

	_, err = Member(record.Member{ICPSR: "1", Congress: 118, Chamber: "Senate", BioName: "DOE, Jane", State: "Ohio"})
	assert.NoError(t, err)

	// Presidents carry the pseudo-state "USA" in Voteview.
	pres, err := Member(record.Member{ICPSR: "99912", Congress: 118, Chamber: "President", BioName: "BIDEN, Joseph Robinette Jr.", State: "USA"})
	require.NoError(t, err)
	assert.Equal(t, "", pres.State)
	assert.Equal(t, "BIDEN|JOSEPH", pres.Name.NameKey)
}

func TestVote(t *testing.T) {
	got, err := Vote(record.Vote{Congress: 118, Chamber: "House", RollNumber: 412, BillNumber: "HR1234", ICPSR: "21901", CastCode: 1})
	require.NoError(t, err)
	assert.Equal(t, "118-H-412", got.RollCallID)
	assert.Equal(t, entity.PositionYea, got.Position)
	require.NotNil(t, got.Bill)
	assert.Equal(t, entity.BillKey{Congress: 118, Type: "HR", Number: 1234}, *got.Bill)
	assert.Equal(t, "118-H-412/21901", got.LocalID())

	nomination, err := Vote(record.Vote{Congress: 118, Chamber: "Senate", RollNumber: 7, BillNumber: "PN123", ICPSR: "21901", CastCode: 6})
	require.NoError(t, err)
	assert.Nil(t, nomination.Bill)
	assert.Equal(t, entity.PositionNay, nomination.Position)

	_, err = Vote(record.Vote{Congress: 118, Chamber: "House", RollNumber: 412, ICPSR: "21901", CastCode: 0})
	assert.Equal(t, entity.ReasonInvalidCode, rejectionReason(t, err))

	_, err = Vote(record.Vote{Congress: 118, Chamber: "President", RollNumber: 1, ICPSR: "21901", CastCode: 1})
	assert.Equal(t, entity.ReasonInvalidCode, rejectionReason(t, err))

	_, err = Vote(record.Vote{Congress: 118, Chamber: "House", ICPSR: "21901", CastCode: 1})
	assert.Equal(t, entity.ReasonMissingRequiredField, rejectionReason(t, err))
}

func TestCandidate(t *testing.T) {
	tests := []struct {
		name       string
		office     string
		year       string
		wantOffice entity.Office
		wantPeriod entity.YearRange
	}{
		{name: "house", office: "H", year: "2024", wantOffice: entity.OfficeHouse, wantPeriod: entity.YearRange{Start: 2023, End: 2025}},
		{name: "senate", office: "S", year: "2024", wantOffice: entity.OfficeSenate, wantPeriod: entity.YearRange{Start: 2019, End: 2025}},
		{name: "president", office: "P", year: "2024", wantOffice: entity.OfficePresident, wantPeriod: entity.YearRange{Start: 2021, End: 2025}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Candidate(record.Candidate{
				CandidateID:  "h4oh03001",
				Name:         "DOE, JANE (DEM)",
				Party:        "DEM",
				ElectionYear: tt.year,
				State:        "OH",
				Office:       tt.office,
			})
			require.NoError(t, err)
			assert.Equal(t, "H4OH03001", got.Ref.LocalID)
			assert.Equal(t, tt.wantOffice, got.Office)
			assert.Equal(t, tt.wantPeriod, got.Period)
			assert.Equal(t, "Democrat", got.Party)
			assert.Equal(t, "DOE|JANE", got.Name.NameKey)
		})
	}

	_, err := Candidate(record.Candidate{CandidateID: "H1", Name: "DOE, JANE", ElectionYear: "24", State: "OH", Office: "H"})
	assert.Equal(t, entity.ReasonMalformedDate, rejectionReason(t, err))

	_, err = Candidate(record.Candidate{CandidateID: "H1", Name: "DOE, JANE", ElectionYear: "2024", State: "XX", Office: "H"})
	assert.Equal(t, entity.ReasonInvalidCode, rejectionReason(t, err))

	_, err = Candidate(record.Candidate{CandidateID: "H1", Name: "", ElectionYear: "2024", State: "OH", Office: "H"})
	assert.Equal(t, entity.ReasonMissingRequiredField, rejectionReason(t, err))
}

func TestCommitteeAndLinkage(t *testing.T) {
	cm, err := Committee(record.Committee{CommitteeID: "c00123456", Name: "Friends  of Jane Doe", Type: "h", Designation: "p", CandidateID: "h4oh03001"})
	require.NoError(t, err)
	assert.Equal(t, record.CommitteeRecord{
		CommitteeID: "C00123456",
		Name:        "Friends of Jane Doe",
		NameKey:     "FRIENDS OF JANE DOE",
		Type:        "H",
		Designation: "P",
		CandidateID: "H4OH03001",
	}, cm)

	_, err = Committee(record.Committee{CommitteeID: "C1"})
	assert.Equal(t, entity.ReasonMissingRequiredField, rejectionReason(t, err))

	link, err := Linkage(record.Linkage{CandidateID: "h4oh03001", CommitteeID: "c00123456", ElectionYear: "2024", Designation: "P", LinkageID: "99"})
	require.NoError(t, err)
	assert.Equal(t, record.LinkageRecord{CandidateID: "H4OH03001", CommitteeID: "C00123456", ElectionYear: 2024, Designation: "P"}, link)

	_, err = Linkage(record.Linkage{CandidateID: "H4OH03001"})
	assert.Equal(t, entity.ReasonMissingRequiredField, rejectionReason(t, err))
}

func validContribution() record.Contribution {
	return record.Contribution{
		Origin:      record.Origin{SourceFile: "itcont.txt", Line: 3},
		Kind:            record.ContributionIndividual,
		CommitteeID:     "C00123456",
		TransactionType: "15",
		Name:            "SMITH, JOHN A",
		City:            "COLUMBUS",
		State:           "OH",
		Employer:        "ACME",
		Occupation:      "ENGINEER",
		Date:            "03152024",
		Amount:          "2500",
		TxID:            "SA11AI.1234",
		SubID:           "4031520241234567",
	}
}

func TestContribution(t *testing.T) {
	got, err := Contribution(validContribution())
	require.NoError(t, err)
	assert.Equal(t, "4031520241234567", got.TxID)
	assert.Equal(t, "SMITH JOHN A", got.DonorKey)
	assert.Equal(t, "SMITH, JOHN A", got.DonorName)
	assert.True(t, decimal.NewFromInt(2500).Equal(got.Amount))
	assert.Equal(t, 2024, got.Date.Year())
	assert.Equal(t, "OH", got.State)
	assert.Equal(t, "15", got.TransactionType)
}

func TestContribution_Threshold(t *testing.T) {
	tests := []struct {
		amount string
		reject bool
	}{
		{amount: "1999.99", reject: true},
		{amount: "2000", reject: true},
		{amount: "2000.00", reject: true},
		{amount: "2000.01", reject: false},
		{amount: "-2500", reject: true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			raw := validContribution()
			raw.Amount = tt.amount
			_, err := Contribution(raw)
			if tt.reject {
				assert.Equal(t, entity.ReasonBelowThreshold, rejectionReason(t, err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestContribution_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*record.Contribution)
		want   entity.RejectReason
	}{
		{name: "missing sub id", mutate: func(c *record.Contribution) { c.SubID = "" }, want: entity.ReasonMissingRequiredField},
		{name: "missing committee", mutate: func(c *record.Contribution) { c.CommitteeID = "" }, want: entity.ReasonMissingRequiredField},
		{name: "missing amount", mutate: func(c *record.Contribution) { c.Amount = "" }, want: entity.ReasonMissingRequiredField},
		{name: "unparseable amount", mutate: func(c *record.Contribution) { c.Amount = "12x" }, want: entity.ReasonMalformedAmount},
		{name: "missing date", mutate: func(c *record.Contribution) { c.Date = "" }, want: entity.ReasonMissingRequiredField},
		{name: "impossible date", mutate: func(c *record.Contribution) { c.Date = "02302024" }, want: entity.ReasonMalformedDate},
		{name: "missing donor name", mutate: func(c *record.Contribution) { c.Name = "  " }, want: entity.ReasonMissingRequiredField},
		{name: "missing transaction type", mutate: func(c *record.Contribution) { c.TransactionType = "" }, want: entity.ReasonMissingRequiredField},
		// Parse failures take precedence over the threshold.
		{name: "bad date below threshold", mutate: func(c *record.Contribution) { c.Amount = "10"; c.Date = "13012024" }, want: entity.ReasonMalformedDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validContribution()
			tt.mutate(&raw)
			_, err := Contribution(raw)
			assert.Equal(t, tt.want, rejectionReason(t, err))
		})
	}
}

func TestContribution_CommitteeRowHasNoDonorName(t *testing.T) {
	raw := validContribution()
	raw.Kind = record.ContributionCommittee
	raw.TransactionType = "24K"
	raw.CandidateID = "h4oh03001"
	raw.Name = "FRIENDS OF JANE DOE"

	got, err := Contribution(raw)
	require.NoError(t, err)
	assert.Equal(t, "", got.DonorKey)
	assert.Equal(t, "H4OH03001", got.CandidateID)
}

func TestContribution_TransactionType(t *testing.T) {
	tests := []struct {
		name     string
		kind     record.ContributionKind
		txType   string
		otherID  string
		memo     string
		accepted bool
	}{
		{name: "individual receipt", kind: record.ContributionIndividual, txType: "15", accepted: true},
		{name: "lowercase receipt", kind: record.ContributionIndividual, txType: "15c", accepted: true},
		{name: "earmarked receipt", kind: record.ContributionIndividual, txType: "15E", otherID: "C00401224", accepted: true},
		{name: "earmark pass-through", kind: record.ContributionIndividual, txType: "24T", otherID: "C00401224"},
		{name: "refund", kind: record.ContributionIndividual, txType: "22Y"},
		{name: "receipt from committee not earmarked", kind: record.ContributionIndividual, txType: "15", otherID: "C00401224"},
		{name: "memo receipt", kind: record.ContributionIndividual, txType: "15", memo: "X"},
		{name: "direct contribution", kind: record.ContributionCommittee, txType: "24K", accepted: true},
		{name: "in-kind contribution", kind: record.ContributionCommittee, txType: "24Z", accepted: true},
		{name: "independent expenditure opposing", kind: record.ContributionCommittee, txType: "24A"},
		{name: "independent expenditure supporting", kind: record.ContributionCommittee, txType: "24E"},
		{name: "communication cost against", kind: record.ContributionCommittee, txType: "24N"},
		{name: "memo contribution", kind: record.ContributionCommittee, txType: "24K", memo: "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validContribution()
			raw.Kind = tt.kind
			raw.TransactionType = tt.txType
			raw.OtherID = tt.otherID
			raw.MemoCode = tt.memo
			raw.Amount = "5000"

			_, err := Contribution(raw)
			if tt.accepted {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, entity.ReasonNotAContribution, rejectionReason(t, err))
		})
	}
}
