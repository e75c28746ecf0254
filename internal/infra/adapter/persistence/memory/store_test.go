package memory_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/infra/adapter/persistence/memory"
	"paper-trail/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_WithinRollsBack(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	boom := errors.New("boom")
	err := s.Within(ctx, func(r repository.Repositories) error {
		p := &entity.Politician{FullName: "Jane Doe", NameKey: "DOE|JANE"}
		require.NoError(t, r.Politicians.Create(ctx, p))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := s.Repos().Politicians.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestStore_WithinUndoesEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	repos := s.Repos()

	jane := &entity.Politician{FullName: "Jane Doe", NameKey: "DOE|JANE",
		Offices: []entity.OfficeTerm{{Office: entity.OfficeHouse, State: "OH", StartYear: 2019, EndYear: 2021}}}
	require.NoError(t, repos.Politicians.Create(ctx, jane))
	hr1 := &entity.Bill{Congress: 116, Type: "HR", Number: 1, Title: "An Act", EnactedOn: time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC)}
	_, err := repos.Bills.Insert(ctx, hr1)
	require.NoError(t, err)
	ref := entity.SourceRef{System: entity.SystemFEC, LocalID: "4031520201234"}
	_, err = repos.Deferred.Upsert(ctx, &entity.DeferredRecord{Kind: entity.DeferredDonation, System: ref.System, LocalID: ref.LocalID, Reason: entity.KindReferentialGap})
	require.NoError(t, err)
	require.NoError(t, repos.Runs.Save(ctx, &entity.RunSummary{RunID: "r1", Status: entity.RunRunning}))

	boom := errors.New("boom")
	err = s.Within(ctx, func(r repository.Repositories) error {
		moved := *jane
		moved.Offices = append([]entity.OfficeTerm{}, jane.Offices...)
		moved.Offices = append(moved.Offices, entity.OfficeTerm{Office: entity.OfficeSenate, State: "OH", StartYear: 2021, EndYear: 2027})
		require.NoError(t, r.Politicians.Update(ctx, &moved))
		require.NoError(t, r.Politicians.Create(ctx, &entity.Politician{FullName: "John Roe", NameKey: "ROE|JOHN"}))
		_, err := r.Identities.Insert(ctx, &entity.IdentityMapping{System: entity.SystemFEC, LocalID: "H8OH03001", PoliticianID: jane.ID, Confidence: entity.ConfidenceExact})
		require.NoError(t, err)
		_, err = r.Votes.Insert(ctx, &entity.Vote{PoliticianID: jane.ID, RollCallID: "116-H-10", Bill: hr1.Key(), Position: entity.PositionYea})
		require.NoError(t, err)
		donor := &entity.Donor{Type: entity.DonorIndividual, Name: "SMITH, JOHN", NameKey: "SMITH JOHN"}
		_, err = r.Donors.Upsert(ctx, donor)
		require.NoError(t, err)
		_, err = r.Donations.Insert(ctx, &entity.Donation{SourceTxID: ref.LocalID, DonorID: donor.ID, PoliticianID: jane.ID,
			Amount: decimal.NewFromInt(2500), Date: time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC)})
		require.NoError(t, err)
		_, err = r.Deferred.MarkResolved(ctx, entity.DeferredDonation, ref, time.Now())
		require.NoError(t, err)
		require.NoError(t, r.Runs.Save(ctx, &entity.RunSummary{RunID: "r1", Status: entity.RunSucceeded}))
		require.NoError(t, r.Runs.Save(ctx, &entity.RunSummary{RunID: "r2", Status: entity.RunRunning}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := repos.Politicians.Get(ctx, jane.ID)
	require.NoError(t, err)
	assert.Len(t, got.Offices, 1)
	for name, count := range map[string]func(context.Context) (int64, error){
		"politicians": repos.Politicians.Count,
		"identities":  repos.Identities.Count,
		"votes":       repos.Votes.Count,
		"donors":      repos.Donors.Count,
		"donations":   repos.Donations.Count,
	} {
		n, err := count(ctx)
		require.NoError(t, err)
		want := int64(0)
		if name == "politicians" {
			want = 1
		}
		assert.Equal(t, want, n, name)
	}

	pending, err := repos.Deferred.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[entity.DeferredKind]int64{entity.DeferredDonation: 1}, pending)

	latest, err := repos.Runs.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r1", latest.RunID)
	assert.Equal(t, entity.RunRunning, latest.Status)

	// Sequences are rewound with the data.
	next := &entity.Politician{FullName: "John Roe", NameKey: "ROE|JOHN"}
	require.NoError(t, repos.Politicians.Create(ctx, next))
	assert.Equal(t, int64(2), next.ID)
}

func TestStore_PoliticianCopiesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	repos := s.Repos()

	p := &entity.Politician{FullName: "Jane Doe", NameKey: "DOE|JANE",
		Offices: []entity.OfficeTerm{{Office: entity.OfficeHouse, State: "OH", StartYear: 2019, EndYear: 2021}}}
	require.NoError(t, repos.Politicians.Create(ctx, p))
	require.Equal(t, int64(1), p.ID)

	p.Offices[0].EndYear = 2099
	got, err := repos.Politicians.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2021, got.Offices[0].EndYear)

	missing, err := repos.Politicians.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_IdentityInsertNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	repos := s.Repos()

	for _, name := range []string{"DOE|JANE", "DOE|JOHN"} {
		require.NoError(t, repos.Politicians.Create(ctx, &entity.Politician{FullName: name, NameKey: name}))
	}

	m := &entity.IdentityMapping{System: entity.SystemFEC, LocalID: "H1", PoliticianID: 1, Confidence: entity.ConfidenceExact}
	ok, err := repos.Identities.Insert(ctx, m)
	require.NoError(t, err)
	assert.True(t, ok)

	other := &entity.IdentityMapping{System: entity.SystemFEC, LocalID: "H1", PoliticianID: 2, Confidence: entity.ConfidenceHeuristic}
	ok, err = repos.Identities.Insert(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := repos.Identities.Get(ctx, entity.SourceRef{System: entity.SystemFEC, LocalID: "H1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.PoliticianID)
}

func TestStore_DonationsAndTotals(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	repos := s.Repos()
	require.NoError(t, repos.Politicians.Create(ctx, &entity.Politician{FullName: "Jane Doe", NameKey: "DOE|JANE"}))

	donor := &entity.Donor{Type: entity.DonorIndividual, Name: "SMITH, JOHN", NameKey: "SMITH JOHN"}
	created, err := repos.Donors.Upsert(ctx, donor)
	require.NoError(t, err)
	assert.True(t, created)

	again := &entity.Donor{Type: entity.DonorIndividual, Name: "Smith, John", NameKey: "SMITH JOHN"}
	created, err = repos.Donors.Upsert(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, donor.ID, again.ID)

	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, tx := range []string{"A", "B", "A"} {
		_, err := repos.Donations.Insert(ctx, &entity.Donation{
			SourceTxID: tx, DonorID: donor.ID, PoliticianID: 1, Amount: decimal.NewFromInt(2500), Date: date,
		})
		require.NoError(t, err)
	}

	n, _ := repos.Donations.Count(ctx)
	assert.Equal(t, int64(2), n)

	existing, err := repos.Donations.ExistingTxIDs(ctx, []string{"A", "C"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"A": true}, existing)

	totals, err := repos.Donations.DonorTotals(ctx, 1, "", 10)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	assert.True(t, decimal.NewFromInt(5000).Equal(totals[0].Total))
	assert.Equal(t, int64(2), totals[0].Count)
}

func TestStore_DonorQueries(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repos()
	jane := &entity.Politician{FullName: "Jane Doe", NameKey: "DOE|JANE", State: "OH", Party: "D"}
	require.NoError(t, repos.Politicians.Create(ctx, jane))

	smith := &entity.Donor{Type: entity.DonorIndividual, Name: "SMITH, JOHN", NameKey: "SMITH JOHN", Employer: "ACME CORP"}
	acme := &entity.Donor{Type: entity.DonorPAC, Name: "ACME PAC", NameKey: "ACME PAC", CommitteeID: "C00012345"}
	other := &entity.Donor{Type: entity.DonorIndividual, Name: "ROE, MARY", NameKey: "ROE MARY", Employer: "SELF"}
	for _, d := range []*entity.Donor{smith, acme, other} {
		_, err := repos.Donors.Upsert(ctx, d)
		require.NoError(t, err)
	}

	gifts := []entity.Donation{
		{SourceTxID: "1", DonorID: smith.ID, Amount: decimal.NewFromInt(3000), Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{SourceTxID: "2", DonorID: smith.ID, Amount: decimal.NewFromInt(2500), Date: time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC)},
		{SourceTxID: "3", DonorID: acme.ID, Amount: decimal.NewFromInt(5000), Date: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)},
	}
	for i := range gifts {
		gifts[i].PoliticianID = jane.ID
		_, err := repos.Donations.Insert(ctx, &gifts[i])
		require.NoError(t, err)
	}

	found, err := repos.Donors.Search(ctx, "acme", 10)
	require.NoError(t, err)
	require.Len(t, found, 2, "name or employer")
	assert.Equal(t, "ACME PAC", found[0].Name)
	assert.Equal(t, "SMITH, JOHN", found[1].Name)

	got, err := repos.Donors.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "SELF", got.Employer)
	missing, err := repos.Donors.Get(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	individuals, err := repos.Donations.DonorTotals(ctx, jane.ID, entity.DonorIndividual, 10)
	require.NoError(t, err)
	require.Len(t, individuals, 1)
	assert.Equal(t, smith.ID, individuals[0].Donor.ID)

	total, n, err := repos.Donations.Received(ctx, jane.ID, "")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10500).Equal(total))
	assert.Equal(t, int64(3), n)

	history, err := repos.Donations.ListByDonor(ctx, smith.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "2", history[0].Donation.SourceTxID, "newest first")
	assert.Equal(t, entity.Politician{ID: jane.ID, FullName: "Jane Doe", State: "OH", Party: "D"}, history[0].Recipient)
}

func TestStore_VotePaging(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repos()
	require.NoError(t, repos.Politicians.Create(ctx, &entity.Politician{FullName: "Jane Doe", NameKey: "DOE|JANE"}))

	bills := []*entity.Bill{
		{Congress: 118, Type: "HR", Number: 2, EnactedOn: time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)},
		{Congress: 118, Type: "S", Number: 7, EnactedOn: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)},
		{Congress: 118, Type: "HR", Number: 9, EnactedOn: time.Date(2023, 9, 1, 0, 0, 0, 0, time.UTC)},
	}
	for i, b := range bills {
		_, err := repos.Bills.Insert(ctx, b)
		require.NoError(t, err)
		_, err = repos.Votes.Insert(ctx, &entity.Vote{PoliticianID: 1, RollCallID: "118-H-" + strconv.Itoa(i), Bill: b.Key(), Position: entity.PositionYea})
		require.NoError(t, err)
	}

	numbers := func(vs []repository.VoteWithBill) []int {
		out := make([]int, 0, len(vs))
		for _, v := range vs {
			out = append(out, v.Bill.Number)
		}
		return out
	}

	newest, err := repos.Votes.ListByPolitician(ctx, 1, repository.VoteFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{9, 7}, numbers(newest))

	second, err := repos.Votes.ListByPolitician(ctx, 1, repository.VoteFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2}, numbers(second))

	oldestHR, err := repos.Votes.ListByPolitician(ctx, 1, repository.VoteFilter{BillType: "HR", Ascending: true})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 9}, numbers(oldestHR))

	past, err := repos.Votes.ListByPolitician(ctx, 1, repository.VoteFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)

	n, err := repos.Votes.CountByPolitician(ctx, 1, "HR")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = repos.Votes.CountByPolitician(ctx, 1, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStore_DeferredLifecycle(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repos()
	ref := entity.SourceRef{System: entity.SystemICPSR, LocalID: "118-H-1/21901"}

	rec := &entity.DeferredRecord{Kind: entity.DeferredVote, System: ref.System, LocalID: ref.LocalID, Reason: entity.KindReferentialGap}
	created, err := repos.Deferred.Upsert(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)

	rec2 := &entity.DeferredRecord{Kind: entity.DeferredVote, System: ref.System, LocalID: ref.LocalID, Reason: entity.KindReferentialGap, Detail: "again"}
	created, err = repos.Deferred.Upsert(ctx, rec2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 2, rec2.Attempts)

	pending, err := repos.Deferred.ListPending(ctx, entity.DeferredVote, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "again", pending[0].Detail)

	closed, err := repos.Deferred.MarkResolved(ctx, entity.DeferredVote, ref, time.Now())
	require.NoError(t, err)
	assert.True(t, closed)

	closed, err = repos.Deferred.MarkResolved(ctx, entity.DeferredVote, ref, time.Now())
	require.NoError(t, err)
	assert.False(t, closed)

	counts, err := repos.Deferred.CountPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestStore_Runs(t *testing.T) {
	ctx := context.Background()
	repos := memory.NewStore().Repos()

	latest, err := repos.Runs.Latest(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	first := &entity.RunSummary{RunID: "r1", Status: entity.RunSucceeded, StartedAt: time.Now()}
	second := &entity.RunSummary{RunID: "r2", Status: entity.RunRunning, StartedAt: time.Now()}
	require.NoError(t, repos.Runs.Save(ctx, first))
	require.NoError(t, repos.Runs.Save(ctx, second))

	second.Status = entity.RunFailed
	require.NoError(t, repos.Runs.Save(ctx, second))

	latest, err = repos.Runs.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.RunID)
	assert.Equal(t, entity.RunFailed, latest.Status)
}

func BenchmarkStore_LoadDonation(b *testing.B) {
	ctx := context.Background()
	s := memory.NewStore()
	require.NoError(b, s.Repos().Politicians.Create(ctx, &entity.Politician{FullName: "Jane Doe", NameKey: "DOE|JANE"}))
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		err := s.Within(ctx, func(r repository.Repositories) error {
			donor := &entity.Donor{Type: entity.DonorIndividual, Name: "SMITH, JOHN", NameKey: "SMITH JOHN"}
			if _, err := r.Donors.Upsert(ctx, donor); err != nil {
				return err
			}
			_, err := r.Donations.Insert(ctx, &entity.Donation{
				SourceTxID: strconv.Itoa(i), DonorID: donor.ID, PoliticianID: 1, Amount: decimal.NewFromInt(2500), Date: date,
			})
			return err
		})
		if err != nil {
			b.Fatal(err)
		}
	}
}
