package pipeline

import (
	"context"
	"log/slog"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"
	"paper-trail/internal/usecase/link"
	"paper-trail/internal/usecase/load"
	"paper-trail/internal/usecase/normalize"
)

// BillStage loads enacted bills. Bills are immutable, so a bill already
// stored is a duplicate.
type BillStage struct {
	Sources []Source[record.BillStatus]
}

func (*BillStage) Name() string { return "bills" }

func (g *BillStage) Run(ctx context.Context, st *RunState) error {
	return drain(ctx, st, g.Sources, normalize.Bill, func(ctx context.Context, bills []entity.Bill) error {
		for i := range bills {
			res, err := st.Loader.LoadBill(ctx, &bills[i])
			if err != nil {
				if load.IsRecordError(err) {
					st.skip(entity.SourceRef{LocalID: bills[i].Key().String()}, err.Error())
					continue
				}
				return err
			}
			st.loaded(entityBill, res)
		}
		return nil
	})
}

// VoteStage links roll-call votes to politicians and bills. Votes deferred
// by earlier runs, typically for a bill that had not been loaded yet, are
// retried first.
type VoteStage struct {
	Sources []Source[record.Vote]
}

func (*VoteStage) Name() string { return "votes" }

func (g *VoteStage) Run(ctx context.Context, st *RunState) error {
	b, pending, err := st.openBacklog(ctx, entity.DeferredVote)
	if err != nil {
		return err
	}
	linker := link.NewLinker(st.Resolver, st.Repos.Bills, st.Repos.Donations, nil)

	handle := func(ctx context.Context, rec record.VoteRecord) error {
		ref := entity.SourceRef{System: entity.SystemICPSR, LocalID: rec.LocalID()}
		l, err := linker.LinkVote(ctx, rec)
		if err != nil {
			return err
		}
		switch l.Status {
		case link.StatusLinked:
			res, err := st.Loader.LoadVote(ctx, l.Vote)
			if err != nil {
				if load.IsRecordError(err) {
					st.skip(ref, err.Error())
					return nil
				}
				return err
			}
			st.loaded(entityVote, res)
			return st.settle(ctx, b, ref)
		case link.StatusDeferred:
			return st.deferRecord(ctx, b, ref, l.Reason, l.Detail, rec)
		default:
			st.skip(ref, l.Detail)
			return nil
		}
	}

	if err := retryBacklog(ctx, st, pending, handle); err != nil {
		return err
	}
	return drain(ctx, st, g.Sources, normalize.Vote, func(ctx context.Context, recs []record.VoteRecord) error {
		for _, rec := range recs {
			if err := handle(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

// DonationStage builds the committee index from the committee master and
// linkage files, retries deferred donations, then links and loads the
// contribution files.
type DonationStage struct {
	Committees    []Source[record.Committee]
	Linkages      []Source[record.Linkage]
	Contributions []Source[record.Contribution]
}

func (*DonationStage) Name() string { return "donations" }

func (g *DonationStage) Run(ctx context.Context, st *RunState) error {
	index, err := g.buildIndex(ctx, st)
	if err != nil {
		return err
	}

	b, pending, err := st.openBacklog(ctx, entity.DeferredDonation)
	if err != nil {
		return err
	}
	linker := link.NewLinker(st.Resolver, st.Repos.Bills, st.Repos.Donations, index)

	handle := func(ctx context.Context, rec record.ContributionRecord) error {
		ref := entity.SourceRef{System: entity.SystemFEC, LocalID: rec.TxID}
		l, err := linker.LinkDonation(ctx, rec)
		if err != nil {
			return err
		}
		switch l.Status {
		case link.StatusLinked:
			res, err := st.Loader.LoadDonation(ctx, l.Donor, l.Donation)
			if err != nil {
				if load.IsRecordError(err) {
					st.skip(ref, err.Error())
					return nil
				}
				return err
			}
			st.loaded(entityDonation, res)
			return st.settle(ctx, b, ref)
		case link.StatusDuplicate:
			st.loaded(entityDonation, load.Duplicate)
			return st.settle(ctx, b, ref)
		case link.StatusRejected:
			st.reject(g.Name(), l.Rejection)
			return nil
		case link.StatusDeferred:
			return st.deferRecord(ctx, b, ref, l.Reason, l.Detail, rec)
		default:
			st.skip(ref, l.Detail)
			return nil
		}
	}

	if err := retryBacklog(ctx, st, pending, handle); err != nil {
		return err
	}
	return drain(ctx, st, g.Contributions, normalize.Contribution, func(ctx context.Context, recs []record.ContributionRecord) error {
		txIDs := make([]string, len(recs))
		for i, rec := range recs {
			txIDs[i] = rec.TxID
		}
		if err := linker.PrefetchTxIDs(ctx, txIDs); err != nil {
			return err
		}
		for _, rec := range recs {
			if err := handle(ctx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (g *DonationStage) buildIndex(ctx context.Context, st *RunState) (*link.CommitteeIndex, error) {
	index := link.NewCommitteeIndex()
	err := drain(ctx, st, g.Committees, normalize.Committee, func(_ context.Context, recs []record.CommitteeRecord) error {
		for _, c := range recs {
			index.AddCommittee(c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = drain(ctx, st, g.Linkages, normalize.Linkage, func(_ context.Context, recs []record.LinkageRecord) error {
		for _, l := range recs {
			index.AddLinkage(l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	committees, linkages := index.Len()
	st.Logger.Info("committee index built", slog.Int("committees", committees), slog.Int("linkages", linkages))
	return index, nil
}
