package pipeline

import (
	"context"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"
	"paper-trail/internal/observability/metrics"
	"paper-trail/internal/usecase/load"
	"paper-trail/internal/usecase/normalize"
	"paper-trail/internal/usecase/resolve"
)

// RosterStage creates and extends politicians from the legislator roster.
type RosterStage struct {
	Sources []Source[record.Legislator]
}

func (*RosterStage) Name() string { return "roster" }

func (g *RosterStage) Run(ctx context.Context, st *RunState) error {
	return drain(ctx, st, g.Sources, normalize.Legislator, func(ctx context.Context, recs []record.LegislatorRecord) error {
		for _, rec := range recs {
			if err := g.resolve(ctx, st, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *RosterStage) resolve(ctx context.Context, st *RunState, rec record.LegislatorRecord) error {
	d, err := st.Resolver.ResolveLegislator(ctx, rec)
	if err != nil {
		if load.IsRecordError(err) {
			st.skip(rec.Ref, err.Error())
			return nil
		}
		return err
	}
	metrics.RecordResolverDecision(rec.Ref.System, d.Outcome())

	if d.Deferred != "" {
		return st.writeDeferred(ctx, entity.DeferredIdentityConflict, rec.Ref, d.Deferred, d.Detail, rec)
	}

	switch {
	case d.Method == resolve.MethodCreated:
		st.loaded(entityPolitician, load.Inserted)
	case d.Updated:
		st.loaded(entityPolitician, load.Updated)
	default:
		st.loaded(entityPolitician, load.Duplicate)
	}
	for _, c := range d.Conflicts {
		if err := st.flagConflict(ctx, c, rec.Ref); err != nil {
			return err
		}
	}
	return nil
}

// CandidateStage attaches FEC candidates to politicians. Candidates
// deferred by earlier runs are retried first.
type CandidateStage struct {
	Sources []Source[record.Candidate]
}

func (*CandidateStage) Name() string { return "candidates" }

func (g *CandidateStage) Run(ctx context.Context, st *RunState) error {
	b, pending, err := st.openBacklog(ctx, entity.DeferredCandidate)
	if err != nil {
		return err
	}
	handle := func(ctx context.Context, rec record.CandidateRecord) error {
		d, err := st.Resolver.ResolveCandidate(ctx, rec)
		if err != nil {
			return err
		}
		return attach(ctx, st, b, d, rec)
	}

	if err := retryBacklog(ctx, st, pending, handle); err != nil {
		return err
	}
	return drain(ctx, st, g.Sources, normalize.Candidate, func(ctx context.Context, recs []record.CandidateRecord) error {
		for _, rec := range recs {
			if err := handle(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// MemberStage attaches Voteview members to politicians. Members deferred by
// earlier runs are retried first.
type MemberStage struct {
	Sources []Source[record.Member]
}

func (*MemberStage) Name() string { return "members" }

func (g *MemberStage) Run(ctx context.Context, st *RunState) error {
	b, pending, err := st.openBacklog(ctx, entity.DeferredMember)
	if err != nil {
		return err
	}
	handle := func(ctx context.Context, rec record.MemberRecord) error {
		d, err := st.Resolver.ResolveMember(ctx, rec)
		if err != nil {
			return err
		}
		return attach(ctx, st, b, d, rec)
	}

	if err := retryBacklog(ctx, st, pending, handle); err != nil {
		return err
	}
	return drain(ctx, st, g.Sources, normalize.Member, func(ctx context.Context, recs []record.MemberRecord) error {
		for _, rec := range recs {
			if err := handle(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// attach books a resolver decision for a candidate or member record:
// a mapping written or reused, a deferral, or an identity conflict.
func attach(ctx context.Context, st *RunState, b *backlog, d resolve.Decision, payload any) error {
	metrics.RecordResolverDecision(d.Ref.System, d.Outcome())

	switch {
	case d.Resolved():
		if d.Method == resolve.MethodExact {
			st.loaded(entityIdentity, load.Duplicate)
		} else {
			st.loaded(entityIdentity, load.Inserted)
		}
		return st.settle(ctx, b, d.Ref)
	case d.Deferred == entity.KindReconciliationRequired:
		return st.writeDeferred(ctx, entity.DeferredIdentityConflict, d.Ref, d.Deferred, d.Detail, payload)
	default:
		return st.deferRecord(ctx, b, d.Ref, d.Deferred, d.Detail, payload)
	}
}
