package pipeline_test

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"
	"paper-trail/internal/infra/adapter/persistence/memory"
	"paper-trail/internal/usecase/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ─── fixtures ─── */

// sliceSource replays a fixed list of records, then err if set.
type sliceSource[T any] struct {
	name  string
	items []T
	err   error
}

func (s sliceSource[T]) Name() string { return s.name }

func (s sliceSource[T]) Records() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for _, it := range s.items {
			if !yield(it, nil) {
				return
			}
		}
		if s.err != nil {
			var zero T
			yield(zero, s.err)
		}
	}
}

func src[T any](name string, items ...T) []pipeline.Source[T] {
	return []pipeline.Source[T]{sliceSource[T]{name: name, items: items}}
}

type recordingPublisher struct {
	mu       sync.Mutex
	deferred []*entity.DeferredRecord
	runs     []*entity.RunSummary
}

func (p *recordingPublisher) PublishDeferred(_ context.Context, rec *entity.DeferredRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deferred = append(p.deferred, rec)
	return nil
}

func (p *recordingPublisher) PublishRun(_ context.Context, run *entity.RunSummary) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.runs = append(p.runs, run)
	return nil
}

func roster() []record.Legislator {
	return []record.Legislator{
		{
			BioguideID: "D000001", First: "Jane", Last: "Doe", Birthday: "1970-05-01",
			Terms:  []record.RawTerm{{Type: "rep", Start: "2019-01-03", End: "2021-01-03", State: "OH", Party: "Democrat"}},
			FECIDs: []string{"H8OH03001"}, ICPSRID: "21901",
		},
		{
			BioguideID: "D000002", First: "Jane", Last: "Doe",
			Terms: []record.RawTerm{{Type: "sen", Start: "2013-01-03", End: "2019-01-03", State: "CA", Party: "Republican"}},
		},
		{
			BioguideID: "S000003", First: "John", Last: "Smith",
			Terms:   []record.RawTerm{{Type: "rep", Start: "2017-01-03", End: "2019-01-03", State: "TX", Party: "Republican"}},
			ICPSRID: "21700",
		},
	}
}

func bill(number string) record.BillStatus {
	return record.BillStatus{Congress: "116", Type: "HR", Number: number, Title: "Example Act " + number, EnactedOn: "2019-03-08"}
}

func snapshot(bills ...record.BillStatus) pipeline.Sources {
	return pipeline.Sources{
		Roster: src("roster", roster()...),
		Candidates: src("fec-cn",
			record.Candidate{CandidateID: "H8OH03001", Name: "DOE, JANE", State: "OH", Office: "H", ElectionYear: "2018"},
			record.Candidate{CandidateID: "S2CA00002", Name: "DOE, JANE (REP)", State: "CA", Office: "S", ElectionYear: "2018"},
			record.Candidate{CandidateID: "H6TX00077", Name: "DOE, JANE", State: "TX", Office: "H", ElectionYear: "2016"},
		),
		Members: src("voteview-members",
			record.Member{ICPSR: "21901", Congress: 116, Chamber: "House", BioName: "DOE, Jane", State: "OH"},
			record.Member{ICPSR: "21700", Congress: 115, Chamber: "House", BioName: "SMITH, John", State: "TX"},
			record.Member{ICPSR: "40000", Congress: 115, Chamber: "Senate", BioName: "DOE, Jane", State: "CA", BioguideID: "D000002"},
		),
		Bills: src("billstatus", bills...),
		Votes: src("voteview-votes",
			record.Vote{Congress: 116, Chamber: "House", RollNumber: 10, BillNumber: "HR1", ICPSR: "21901", CastCode: 1},
			record.Vote{Congress: 116, Chamber: "House", RollNumber: 11, BillNumber: "HR2", ICPSR: "21901", CastCode: 6},
			record.Vote{Congress: 116, Chamber: "House", RollNumber: 12, ICPSR: "21901", CastCode: 1},
			record.Vote{Congress: 116, Chamber: "House", RollNumber: 10, BillNumber: "HR1", ICPSR: "99999", CastCode: 1},
			record.Vote{Congress: 116, Chamber: "House", RollNumber: 13, BillNumber: "HR1", ICPSR: "21901", CastCode: 0},
		),
		Committees: src("fec-cm",
			record.Committee{CommitteeID: "C00000001", Name: "JANE DOE FOR CONGRESS", Type: "H", CandidateID: "H8OH03001"},
			record.Committee{CommitteeID: "C00000002", Name: "OHIO DEMOCRATIC PARTY", Type: "Y"},
			record.Committee{CommitteeID: "C00000003", Name: "BIG PAC", Type: "Q"},
		),
		Linkages: src("fec-ccl",
			record.Linkage{CandidateID: "H8OH03001", ElectionYear: "2020", CommitteeID: "C00000001", LinkageID: "1"},
		),
		Contributions: []pipeline.Source[record.Contribution]{
			sliceSource[record.Contribution]{name: "fec-itcont", items: []record.Contribution{
				{Kind: record.ContributionIndividual, TransactionType: "15", CommitteeID: "C00000001", Name: "SMITH, JOHN", State: "OH", Date: "03152020", Amount: "2500", SubID: "1001"},
				{Kind: record.ContributionIndividual, TransactionType: "15", CommitteeID: "C00000001", Name: "SMITH, JOHN", State: "OH", Date: "03152020", Amount: "2500", SubID: "1001"},
				{Kind: record.ContributionIndividual, TransactionType: "15", CommitteeID: "C00000001", Name: "ROE, RICHARD", Date: "03162020", Amount: "2000", SubID: "1002"},
				{Kind: record.ContributionIndividual, TransactionType: "15", CommitteeID: "C99999999", Name: "ROE, RICHARD", Date: "03162020", Amount: "5000", SubID: "1003"},
				{Kind: record.ContributionIndividual, TransactionType: "24T", CommitteeID: "C00000001", OtherID: "C00401224", Name: "SMITH, JOHN", Date: "03172020", Amount: "5000", SubID: "1004"},
			}},
			sliceSource[record.Contribution]{name: "fec-pas2", items: []record.Contribution{
				{Kind: record.ContributionCommittee, TransactionType: "24K", CommitteeID: "C00000002", CandidateID: "H8OH03001", Date: "04012020", Amount: "5000", SubID: "2001"},
				{Kind: record.ContributionCommittee, TransactionType: "24K", CommitteeID: "C00000003", CandidateID: "H6TX00077", Date: "04012020", Amount: "3000", SubID: "2002"},
				{Kind: record.ContributionCommittee, TransactionType: "24A", CommitteeID: "C00000003", CandidateID: "H8OH03001", Date: "04022020", Amount: "7500", SubID: "2003"},
			}},
		},
	}
}

type counts struct {
	politicians, identities, bills, votes, donors, donations int64
	pending                                                  map[entity.DeferredKind]int64
}

func countRows(t *testing.T, store *memory.Store) counts {
	t.Helper()
	ctx := context.Background()
	r := store.Repos()
	var c counts
	var err error
	c.politicians, err = r.Politicians.Count(ctx)
	require.NoError(t, err)
	c.identities, err = r.Identities.Count(ctx)
	require.NoError(t, err)
	c.bills, err = r.Bills.Count(ctx)
	require.NoError(t, err)
	c.votes, err = r.Votes.Count(ctx)
	require.NoError(t, err)
	c.donors, err = r.Donors.Count(ctx)
	require.NoError(t, err)
	c.donations, err = r.Donations.Count(ctx)
	require.NoError(t, err)
	c.pending, err = r.Deferred.CountPending(ctx)
	require.NoError(t, err)
	return c
}

func newRunner(store *memory.Store, sources pipeline.Sources, pub pipeline.EventPublisher) *pipeline.Runner {
	cfg := pipeline.DefaultConfig()
	cfg.BatchSize = 2
	return pipeline.NewRunner(store, sources, cfg, pub)
}

func politicianFor(t *testing.T, store *memory.Store, ref entity.SourceRef) int64 {
	t.Helper()
	m, err := store.Repos().Identities.Get(context.Background(), ref)
	require.NoError(t, err)
	require.NotNil(t, m, "no mapping for %s", ref)
	return m.PoliticianID
}

func stage(t *testing.T, run *entity.RunSummary, name string) *entity.StageSummary {
	t.Helper()
	for _, s := range run.Stages {
		if s.Name == name {
			return s
		}
	}
	t.Fatalf("stage %s did not run", name)
	return nil
}

/* ─── full run ─── */

func TestRunner_FullSnapshot(t *testing.T) {
	store := memory.NewStore()
	pub := &recordingPublisher{}

	run, err := newRunner(store, snapshot(bill("1")), pub).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, entity.RunSucceeded, run.Status)
	assert.Equal(t, []string{"roster", "candidates", "members", "bills", "votes", "donations"}, run.StageNames())

	c := countRows(t, store)
	assert.Equal(t, int64(3), c.politicians)
	assert.Equal(t, int64(8), c.identities)
	assert.Equal(t, int64(1), c.bills)
	assert.Equal(t, int64(1), c.votes)
	assert.Equal(t, int64(2), c.donors)
	assert.Equal(t, int64(2), c.donations)
	assert.Equal(t, map[entity.DeferredKind]int64{
		entity.DeferredCandidate: 1,
		entity.DeferredVote:      2,
		entity.DeferredDonation:  2,
	}, c.pending)

	votes := stage(t, run, "votes")
	assert.Equal(t, int64(5), votes.Read)
	assert.Equal(t, int64(1), votes.Loaded["vote"][entity.ResultInserted])
	assert.Equal(t, int64(2), votes.Deferred[entity.KindReferentialGap])
	assert.Equal(t, int64(1), votes.Rejected[entity.ReasonInvalidCode])
	assert.Equal(t, int64(1), votes.Skipped)

	donations := stage(t, run, "donations")
	assert.Equal(t, int64(2), donations.Loaded["donation"][entity.ResultInserted])
	assert.Equal(t, int64(1), donations.Loaded["donation"][entity.ResultDuplicate])
	assert.Equal(t, int64(1), donations.Rejected[entity.ReasonBelowThreshold])
	assert.Equal(t, int64(2), donations.Rejected[entity.ReasonNotAContribution])
	assert.Equal(t, int64(2), donations.Deferred[entity.KindReferentialGap])

	latest, err := store.Repos().Runs.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, run.RunID, latest.RunID)
	assert.Equal(t, entity.RunSucceeded, latest.Status)

	require.Len(t, pub.runs, 1)
	assert.Len(t, pub.deferred, 5)
}

func TestRunner_JaneDoe(t *testing.T) {
	store := memory.NewStore()
	_, err := newRunner(store, snapshot(bill("1")), nil).Run(context.Background())
	require.NoError(t, err)

	ohio := politicianFor(t, store, entity.SourceRef{System: entity.SystemBioguide, LocalID: "D000001"})
	california := politicianFor(t, store, entity.SourceRef{System: entity.SystemBioguide, LocalID: "D000002"})
	require.NotEqual(t, ohio, california)

	assert.Equal(t, ohio, politicianFor(t, store, entity.SourceRef{System: entity.SystemFEC, LocalID: "H8OH03001"}))

	senate, err := store.Repos().Identities.Get(context.Background(), entity.SourceRef{System: entity.SystemFEC, LocalID: "S2CA00002"})
	require.NoError(t, err)
	require.NotNil(t, senate)
	assert.Equal(t, california, senate.PoliticianID)
	assert.Equal(t, entity.ConfidenceHeuristic, senate.Confidence)

	member, err := store.Repos().Identities.Get(context.Background(), entity.SourceRef{System: entity.SystemICPSR, LocalID: "40000"})
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, california, member.PoliticianID)
	assert.Equal(t, entity.ConfidenceExact, member.Confidence)

	texas, err := store.Repos().Identities.Get(context.Background(), entity.SourceRef{System: entity.SystemFEC, LocalID: "H6TX00077"})
	require.NoError(t, err)
	assert.Nil(t, texas, "a Jane Doe with no Texas House term must not be merged")

	pending, err := store.Repos().Deferred.ListPending(context.Background(), entity.DeferredCandidate, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "H6TX00077", pending[0].LocalID)
	assert.Equal(t, entity.KindResolutionNotFound, pending[0].Reason)
}

/* ─── testable properties ─── */

func TestRunner_SecondRunChangesNoRowCounts(t *testing.T) {
	store := memory.NewStore()
	sources := snapshot(bill("1"))

	_, err := newRunner(store, sources, nil).Run(context.Background())
	require.NoError(t, err)
	first := countRows(t, store)

	second, err := newRunner(store, sources, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, countRows(t, store))

	totals := second.Totals()
	assert.Zero(t, totals.Loaded["politician"][entity.ResultInserted])
	assert.Zero(t, totals.Loaded["vote"][entity.ResultInserted])
	assert.Zero(t, totals.Loaded["donation"][entity.ResultInserted])
	assert.Zero(t, totals.Recovered)

	pending, err := store.Repos().Deferred.ListPending(context.Background(), entity.DeferredDonation, 0)
	require.NoError(t, err)
	for _, rec := range pending {
		assert.Equal(t, 2, rec.Attempts, rec.LocalID)
	}
}

func TestRunner_DeferredVoteLinksOnceBillArrives(t *testing.T) {
	store := memory.NewStore()

	_, err := newRunner(store, snapshot(bill("1")), nil).Run(context.Background())
	require.NoError(t, err)

	run, err := newRunner(store, snapshot(bill("1"), bill("2")), nil).Run(context.Background())
	require.NoError(t, err)

	votes := stage(t, run, "votes")
	assert.Equal(t, int64(1), votes.Recovered)
	assert.Equal(t, int64(1), votes.Loaded["vote"][entity.ResultInserted])

	c := countRows(t, store)
	assert.Equal(t, int64(2), c.votes)
	assert.Equal(t, int64(1), c.pending[entity.DeferredVote], "only the unmapped member's vote stays deferred")

	pending, err := store.Repos().Deferred.ListPending(context.Background(), entity.DeferredVote, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "116-H-10/99999", pending[0].LocalID)
}

func TestRunner_IdentityIndependentOfRosterOrder(t *testing.T) {
	forward := memory.NewStore()
	_, err := newRunner(forward, snapshot(bill("1")), nil).Run(context.Background())
	require.NoError(t, err)

	reversedSources := snapshot(bill("1"))
	legislators := roster()
	for i, j := 0, len(legislators)-1; i < j; i, j = i+1, j-1 {
		legislators[i], legislators[j] = legislators[j], legislators[i]
	}
	reversedSources.Roster = src("roster", legislators...)
	reversed := memory.NewStore()
	_, err = newRunner(reversed, reversedSources, nil).Run(context.Background())
	require.NoError(t, err)

	owner := func(store *memory.Store) map[entity.SourceRef]string {
		ctx := context.Background()
		ms, err := store.Repos().Identities.List(ctx)
		require.NoError(t, err)
		bioguide := make(map[int64]string)
		for _, m := range ms {
			if m.System == entity.SystemBioguide {
				bioguide[m.PoliticianID] = m.LocalID
			}
		}
		out := make(map[entity.SourceRef]string, len(ms))
		for _, m := range ms {
			out[m.Ref()] = bioguide[m.PoliticianID]
		}
		return out
	}
	assert.Equal(t, owner(forward), owner(reversed))
}

/* ─── failure modes ─── */

func TestRunner_SourceFailureFailsRun(t *testing.T) {
	store := memory.NewStore()
	sources := snapshot(bill("1"))
	diskErr := errors.New("unexpected EOF")
	sources.Bills = []pipeline.Source[record.BillStatus]{sliceSource[record.BillStatus]{name: "billstatus", items: []record.BillStatus{bill("1")}, err: diskErr}}

	run, err := newRunner(store, sources, nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrSourceFailed)
	assert.ErrorIs(t, err, diskErr)

	assert.Equal(t, entity.RunFailed, run.Status)
	assert.Equal(t, []string{"roster", "candidates", "members", "bills"}, run.StageNames())
	assert.NotEmpty(t, stage(t, run, "bills").Error)

	latest, err := store.Repos().Runs.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.RunFailed, latest.Status)
}

func TestRunner_ParseErrorsAreCounted(t *testing.T) {
	store := memory.NewStore()
	sources := snapshot(bill("1"))
	sources.Bills = []pipeline.Source[record.BillStatus]{sliceSource[record.BillStatus]{
		name:  "billstatus",
		items: []record.BillStatus{bill("1")},
		err:   &record.ParseError{SourceFile: "BILLSTATUS-116hr9.xml", Line: 1, Err: errors.New("XML syntax error")},
	}}

	run, err := newRunner(store, sources, nil).Run(context.Background())
	require.NoError(t, err)

	bills := stage(t, run, "bills")
	assert.Equal(t, int64(2), bills.Read)
	assert.Equal(t, int64(1), bills.Rejected[entity.ReasonUnreadable])
	require.NotEmpty(t, bills.Samples)
	assert.Equal(t, "BILLSTATUS-116hr9.xml", bills.Samples[0].SourceFile)
}

type cancellingStage struct{ cancel context.CancelFunc }

func (cancellingStage) Name() string { return "cancel" }

func (s cancellingStage) Run(context.Context, *pipeline.RunState) error {
	s.cancel()
	return nil
}

func TestRunner_CancelledBetweenStages(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := newRunner(store, snapshot(bill("1")), nil)
	r.Stages = append([]pipeline.Stage{cancellingStage{cancel: cancel}}, r.Stages...)

	run, err := r.Run(ctx)
	assert.ErrorIs(t, err, pipeline.ErrRunCancelled)
	assert.Equal(t, entity.RunCancelled, run.Status)
	assert.Equal(t, []string{"cancel"}, run.StageNames())

	latest, err := store.Repos().Runs.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, entity.RunCancelled, latest.Status)

	n, err := store.Repos().Politicians.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
