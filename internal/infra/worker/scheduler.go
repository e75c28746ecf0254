package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"paper-trail/internal/domain/entity"

	"github.com/robfig/cron/v3"
)

// Job runs one pipeline pass. A non-nil summary is reported even when err
// is set.
type Job func(ctx context.Context) (*entity.RunSummary, error)

// Scheduler runs a Job on a cron schedule. Runs never overlap: a tick that
// arrives while a run is in progress is skipped.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	job     Job
	timeout time.Duration
	metrics *WorkerMetrics
	logger  *slog.Logger
	running atomic.Bool
}

// NewScheduler installs job on cfg's schedule. The scheduler does not tick
// until Start is called.
func NewScheduler(cfg *WorkerConfig, job Job, metrics *WorkerMetrics, logger *slog.Logger) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}

	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		loc:     loc,
		job:     job,
		timeout: cfg.RunTimeout,
		metrics: metrics,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(cfg.CronSchedule, func() { _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("add cron job: %w", err)
	}
	return s, nil
}

// Start ticks until ctx is cancelled and then waits for a running job to
// finish.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
}

// Next returns the time of the next scheduled run.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Schedule.Next(time.Now().In(s.loc))
}

// ErrRunInProgress is returned by RunOnce when another run holds the slot.
var ErrRunInProgress = errors.New("a run is already in progress")

// RunOnce executes the job immediately under the configured timeout and
// records its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.metrics.RecordJobRun("skipped")
		s.logger.Warn("scheduled run skipped, previous run still in progress")
		return ErrRunInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	s.metrics.RecordJobRun("started")
	s.logger.Info("scheduled run started")

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	summary, err := s.job(ctx)
	s.metrics.RecordJobDuration(time.Since(start).Seconds())
	if summary != nil {
		s.metrics.RecordRecordsLoaded(loadedRows(summary))
	}

	status := "success"
	switch {
	case err == nil:
		s.metrics.RecordLastSuccess()
	case summary != nil && summary.Status == entity.RunCancelled:
		status = "cancelled"
	default:
		status = "failure"
	}
	s.metrics.RecordJobRun(status)

	attrs := []any{slog.String("status", status), slog.Duration("duration", time.Since(start))}
	if summary != nil {
		attrs = append(attrs, slog.String("run_id", summary.RunID))
	}
	if err != nil {
		s.logger.Error("scheduled run finished", append(attrs, slog.Any("error", err))...)
		return err
	}
	s.logger.Info("scheduled run finished", attrs...)
	return nil
}

// loadedRows counts inserted and updated rows across all stages.
func loadedRows(summary *entity.RunSummary) int64 {
	var n int64
	for _, results := range summary.Totals().Loaded {
		n += results[entity.ResultInserted] + results[entity.ResultUpdated]
	}
	return n
}
