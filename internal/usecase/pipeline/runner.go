package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"paper-trail/internal/domain/entity"
	"paper-trail/internal/observability/logging"
	"paper-trail/internal/observability/metrics"
	"paper-trail/internal/observability/slo"
	"paper-trail/internal/observability/tracing"
	"paper-trail/internal/repository"
	"paper-trail/internal/usecase/load"
	"paper-trail/internal/usecase/resolve"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Config tunes batch reading and parallel normalization.
type Config struct {
	BatchSize  int
	Workers    int
	MaxSamples int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{BatchSize: 1000, Workers: 4, MaxSamples: 5}
}

// Stage is one step of a run. Run returns only fatal errors: storage
// failures, source read failures and cancellation.
type Stage interface {
	Name() string
	Run(ctx context.Context, st *RunState) error
}

// Runner executes the stages of a run in order against one store.
type Runner struct {
	Store     repository.Store
	Stages    []Stage
	Publisher EventPublisher
	Config    Config
	Logger    *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewRunner returns a runner with the standard stage order over sources.
// pub may be nil.
func NewRunner(store repository.Store, sources Sources, cfg Config, pub EventPublisher) *Runner {
	if pub == nil {
		pub = nopPublisher{}
	}
	return &Runner{
		Store:     store,
		Stages:    DefaultStages(sources),
		Publisher: pub,
		Config:    cfg,
		Logger:    slog.Default(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// DefaultStages returns roster, candidates, members, bills, votes and
// donations, in that order. Later stages depend on the identities and bills
// loaded by earlier ones.
func DefaultStages(src Sources) []Stage {
	return []Stage{
		&RosterStage{Sources: src.Roster},
		&CandidateStage{Sources: src.Candidates},
		&MemberStage{Sources: src.Members},
		&BillStage{Sources: src.Bills},
		&VoteStage{Sources: src.Votes},
		&DonationStage{Committees: src.Committees, Linkages: src.Linkages, Contributions: src.Contributions},
	}
}

// Run executes one pass. The returned summary is always non-nil once the
// run has been recorded; the error is the first fatal error, if any.
func (r *Runner) Run(ctx context.Context) (summary *entity.RunSummary, err error) {
	if r.now == nil {
		r.now = time.Now
	}
	if r.newID == nil {
		r.newID = uuid.NewString
	}
	if r.Publisher == nil {
		r.Publisher = nopPublisher{}
	}
	if r.Logger == nil {
		r.Logger = slog.Default()
	}

	summary = &entity.RunSummary{
		RunID:     r.newID(),
		Status:    entity.RunRunning,
		StartedAt: r.now().UTC(),
	}
	logger := logging.WithRun(r.Logger, summary.RunID, "")
	loader := load.NewLoader(r.Store)

	if err := loader.SaveRun(ctx, summary); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "ingest.run", attribute.String("run_id", summary.RunID))
	defer tracing.End(span, &err)

	logger.Info("run started", slog.Int("stages", len(r.Stages)))
	err = r.runStages(ctx, summary, loader, logger)

	finished := r.now().UTC()
	summary.FinishedAt = &finished
	switch {
	case err == nil:
		summary.Status = entity.RunSucceeded
	case errors.Is(err, ErrRunCancelled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		summary.Status = entity.RunCancelled
		summary.Error = err.Error()
	default:
		summary.Status = entity.RunFailed
		summary.Error = err.Error()
	}

	safeCtx := context.WithoutCancel(ctx)
	if saveErr := loader.SaveRun(safeCtx, summary); saveErr != nil {
		logger.Error("failed to save run summary", slog.Any("error", saveErr))
		if err == nil {
			err = saveErr
			summary.Status = entity.RunFailed
		}
	}

	r.report(safeCtx, summary, logger)
	return summary, err
}

func (r *Runner) runStages(ctx context.Context, summary *entity.RunSummary, loader *load.Loader, logger *slog.Logger) error {
	repos := r.Store.Repos()
	resolver, err := resolve.NewResolver(ctx, repos.Politicians, repos.Identities, loader)
	if err != nil {
		return fmt.Errorf("load identity table: %w", err)
	}
	politicians, mappings := resolver.Size()
	logger.Info("identity table loaded", slog.Int("politicians", politicians), slog.Int("mappings", mappings))

	st := &RunState{
		RunID:     summary.RunID,
		Summary:   summary,
		Repos:     repos,
		Loader:    loader,
		Resolver:  resolver,
		Publisher: r.Publisher,
		Logger:    logger,
		Config:    r.Config,
	}

	for _, stage := range r.Stages {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w before stage %s: %w", ErrRunCancelled, stage.Name(), err)
		}
		if err := r.runStage(ctx, st, stage, logger); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
	}
	return nil
}

func (r *Runner) runStage(ctx context.Context, st *RunState, stage Stage, runLogger *slog.Logger) (err error) {
	ctx, span := tracing.StartSpan(ctx, "stage."+stage.Name(), attribute.String("run_id", st.RunID))
	defer tracing.End(span, &err)

	summary := st.begin(stage.Name())
	st.Logger = logging.WithRun(r.Logger, st.RunID, stage.Name())
	st.Summary.Stages = append(st.Summary.Stages, summary)

	start := time.Now()
	st.Logger.Info("stage started")

	err = stage.Run(ctx, st)

	st.finish()
	summary.Duration = time.Since(start)
	metrics.RecordStage(stage.Name(), summary.Duration, err)
	span.SetAttributes(
		attribute.Int64("records.read", summary.Read),
		attribute.Int64("records.skipped", summary.Skipped),
		attribute.Int64("records.recovered", summary.Recovered),
	)

	if err != nil {
		summary.Error = err.Error()
		st.Logger.Error("stage failed", slog.Any("error", err), slog.Duration("duration", summary.Duration))
		return err
	}

	st.Logger.Info("stage completed",
		slog.Int64("read", summary.Read),
		slog.Any("loaded", summary.Loaded),
		slog.Any("rejected", summary.Rejected),
		slog.Any("deferred", summary.Deferred),
		slog.Int64("skipped", summary.Skipped),
		slog.Int64("recovered", summary.Recovered),
		slog.Duration("duration", summary.Duration),
	)
	return nil
}

// report logs the run totals and rejection samples, updates run metrics
// and publishes the summary.
func (r *Runner) report(ctx context.Context, summary *entity.RunSummary, logger *slog.Logger) {
	totals := summary.Totals()
	for _, s := range summary.Stages {
		for _, sample := range s.Samples {
			logger.Info("rejection sample",
				slog.String("stage", s.Name),
				slog.String("reason", string(sample.Reason)),
				slog.String("ref", sample.Ref.String()),
				slog.String("file", sample.SourceFile),
				slog.Int("line", sample.Line),
				slog.String("detail", sample.Detail))
		}
	}
	logger.Info("run finished",
		slog.String("status", string(summary.Status)),
		slog.Int64("read", totals.Read),
		slog.Any("loaded", totals.Loaded),
		slog.Any("rejected", totals.Rejected),
		slog.Any("deferred", totals.Deferred),
		slog.Int64("recovered", totals.Recovered),
		slog.Duration("duration", totals.Duration),
	)

	metrics.RecordRun(summary.Status)
	slo.ObserveRun(summary)
	if counts, err := r.Store.Repos().Deferred.CountPending(ctx); err != nil {
		logger.Warn("failed to count deferred backlog", slog.Any("error", err))
	} else {
		slo.ObserveBacklog(counts)
	}

	if err := r.Publisher.PublishRun(ctx, summary); err != nil {
		logger.Warn("failed to publish run summary", slog.Any("error", err))
	}
}
