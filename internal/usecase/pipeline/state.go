package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/domain/record"
	"paper-trail/internal/observability/metrics"
	"paper-trail/internal/repository"
	"paper-trail/internal/usecase/load"
	"paper-trail/internal/usecase/normalize"
	"paper-trail/internal/usecase/resolve"
)

// Entity names used as counter keys in stage summaries and metrics.
const (
	entityPolitician = "politician"
	entityIdentity   = "identity"
	entityBill       = "bill"
	entityVote       = "vote"
	entityDonation   = "donation"
)

// RunState is shared by the stages of one run. Stages run one after
// another, so it needs no locking; only the normalizer fans out, and it
// touches nothing here except the rejection collector.
type RunState struct {
	RunID     string
	Summary   *entity.RunSummary
	Repos     repository.Repositories
	Loader    *load.Loader
	Resolver  *resolve.Resolver
	Publisher EventPublisher
	Logger    *slog.Logger
	Config    Config

	stage      *entity.StageSummary
	rejections *normalize.Collector
}

// Stage returns the summary of the stage being run.
func (s *RunState) Stage() *entity.StageSummary {
	return s.stage
}

func (s *RunState) begin(name string) *entity.StageSummary {
	s.stage = entity.NewStageSummary(name)
	s.rejections = normalize.NewCollector(s.Config.MaxSamples)
	return s.stage
}

func (s *RunState) finish() {
	s.rejections.Flush(s.stage)
}

// reject counts err if it is a rejection or a reader parse error.
func (s *RunState) reject(source string, err error) bool {
	var pe *record.ParseError
	if errors.As(err, &pe) {
		err = &entity.Rejection{
			Reason:     entity.ReasonUnreadable,
			Detail:     pe.Err.Error(),
			SourceFile: pe.SourceFile,
			Line:       pe.Line,
		}
	}
	var rej *entity.Rejection
	if !errors.As(err, &rej) {
		return false
	}
	s.rejections.Add(rej)
	metrics.RecordRejected(source, rej.Reason)
	s.Logger.Debug("record rejected",
		slog.String("source", source),
		slog.String("reason", string(rej.Reason)),
		slog.String("ref", rej.Ref.String()),
		slog.String("detail", rej.Detail))
	return true
}

func (s *RunState) loaded(entityName string, res load.Result) {
	s.stage.AddLoaded(entityName, string(res))
	metrics.RecordLoaded(entityName, string(res))
}

func (s *RunState) skip(ref entity.SourceRef, detail string) {
	s.stage.Skipped++
	s.Logger.Debug("record skipped", slog.String("ref", ref.String()), slog.String("detail", detail))
}

// backlog is the side-channel state of one record kind within a stage.
// pending holds the refs still open from earlier runs; deferred holds the
// refs already written this run, so a record read twice is deferred once.
type backlog struct {
	kind     entity.DeferredKind
	pending  map[entity.SourceRef]bool
	deferred map[entity.SourceRef]bool
}

// openBacklog loads the pending records of kind.
func (s *RunState) openBacklog(ctx context.Context, kind entity.DeferredKind) (*backlog, []*entity.DeferredRecord, error) {
	recs, err := s.Repos.Deferred.ListPending(ctx, kind, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("list pending %s: %w", kind, err)
	}
	b := &backlog{
		kind:     kind,
		pending:  make(map[entity.SourceRef]bool, len(recs)),
		deferred: make(map[entity.SourceRef]bool),
	}
	for _, r := range recs {
		b.pending[r.Ref()] = true
	}
	return b, recs, nil
}

// deferRecord writes a record to the side-channel with its normalized form
// as payload, and announces it.
func (s *RunState) deferRecord(ctx context.Context, b *backlog, ref entity.SourceRef, reason entity.ErrorKind, detail string, payload any) error {
	if b.deferred[ref] {
		return nil
	}
	b.deferred[ref] = true
	return s.writeDeferred(ctx, b.kind, ref, reason, detail, payload)
}

// flagConflict records an identity conflict for an operator.
func (s *RunState) flagConflict(ctx context.Context, c resolve.Conflict, claimant entity.SourceRef) error {
	detail := fmt.Sprintf("%s claims %s for politician %d", claimant, c.Ref, c.ClaimedBy)
	if c.HeldBy > 0 {
		detail += fmt.Sprintf(", already mapped to politician %d", c.HeldBy)
	}
	return s.writeDeferred(ctx, entity.DeferredIdentityConflict, c.Ref, entity.KindReconciliationRequired, detail, c)
}

func (s *RunState) writeDeferred(ctx context.Context, kind entity.DeferredKind, ref entity.SourceRef, reason entity.ErrorKind, detail string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode deferred %s %s: %w", kind, ref, err)
	}
	rec := &entity.DeferredRecord{
		Kind:    kind,
		System:  ref.System,
		LocalID: ref.LocalID,
		Reason:  reason,
		Detail:  detail,
		Payload: data,
	}
	if _, err := s.Loader.Defer(ctx, rec); err != nil {
		if load.IsRecordError(err) {
			s.skip(ref, err.Error())
			return nil
		}
		return err
	}

	s.stage.Deferred[reason]++
	metrics.RecordDeferred(kind, reason)
	s.Logger.Debug("record deferred",
		slog.String("kind", string(kind)),
		slog.String("ref", ref.String()),
		slog.String("reason", string(reason)),
		slog.String("detail", detail))

	if err := s.Publisher.PublishDeferred(ctx, rec); err != nil {
		s.Logger.Warn("failed to publish deferred record",
			slog.String("ref", ref.String()),
			slog.Any("error", err))
	}
	return nil
}

// settle closes the side-channel entry of a record that now links.
func (s *RunState) settle(ctx context.Context, b *backlog, ref entity.SourceRef) error {
	if !b.pending[ref] {
		return nil
	}
	delete(b.pending, ref)
	closed, err := s.Loader.Resolve(ctx, b.kind, ref)
	if err != nil {
		return err
	}
	if closed {
		s.stage.Recovered++
		metrics.RecordRecovered(b.kind)
	}
	return nil
}

// retryBacklog feeds the retryable pending records of the backlog back
// through handle. Payloads that no longer decode are left pending.
func retryBacklog[T any](ctx context.Context, s *RunState, recs []*entity.DeferredRecord, handle func(context.Context, T) error) error {
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !rec.Reason.Retryable() {
			continue
		}
		var v T
		if err := json.Unmarshal(rec.Payload, &v); err != nil {
			s.Logger.Warn("undecodable deferred payload",
				slog.String("kind", string(rec.Kind)),
				slog.String("ref", rec.Ref().String()),
				slog.Any("error", err))
			continue
		}
		if err := handle(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

// drain reads every source in batches of Config.BatchSize, normalizes each
// batch with Config.Workers goroutines, and hands the surviving records to
// handle in input order. Rejections are counted; read failures are fatal.
func drain[R, T any](ctx context.Context, s *RunState, sources []Source[R], norm func(R) (T, error), handle func(context.Context, []T) error) error {
	for _, src := range sources {
		if err := drainOne(ctx, s, src, norm, handle); err != nil {
			return err
		}
	}
	return nil
}

func drainOne[R, T any](ctx context.Context, s *RunState, src Source[R], norm func(R) (T, error), handle func(context.Context, []T) error) error {
	size := s.Config.BatchSize
	if size < 1 {
		size = 1
	}
	batch := make([]R, 0, size)
	var read int

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		results, err := normalize.Batch(ctx, batch, s.Config.Workers, norm)
		if err != nil {
			return err
		}
		batch = batch[:0]

		out := make([]T, 0, len(results))
		for _, r := range results {
			if r.Err != nil {
				if !s.reject(src.Name(), r.Err) {
					return fmt.Errorf("normalize %s: %w", src.Name(), r.Err)
				}
				continue
			}
			out = append(out, r.Value)
		}
		if len(out) == 0 {
			return nil
		}
		return handle(ctx, out)
	}

	for raw, err := range src.Records() {
		if err != nil {
			if s.reject(src.Name(), err) {
				s.stage.Read++
				read++
				continue
			}
			return fmt.Errorf("%w: %s: %w", ErrSourceFailed, src.Name(), err)
		}
		s.stage.Read++
		read++
		batch = append(batch, raw)
		if len(batch) >= size {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	metrics.RecordRead(src.Name(), read)
	s.Logger.Info("source drained", slog.String("source", src.Name()), slog.Int("records", read))
	return nil
}
