package normalize

import (
	"context"
	"errors"
	"sort"
	"sync"

	"paper-trail/internal/domain/entity"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of normalizing one record: Err is an
// *entity.Rejection when the record was rejected.
type Result[T any] struct {
	Value T
	Err   error
}

// Batch applies fn to every input using up to workers goroutines. Results
// keep the input order, so downstream stages can stay strictly sequential.
// fn must be free of shared mutable state.
func Batch[R, T any](ctx context.Context, in []R, workers int, fn func(R) (T, error)) ([]Result[T], error) {
	if workers < 1 {
		workers = 1
	}

	out := make([]Result[T], len(in))
	var g errgroup.Group
	g.SetLimit(workers)

	for i := range in {
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			v, err := fn(in[i])
			out[i] = Result[T]{Value: v, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Collector aggregates rejections: a count per reason and a bounded sample
// per reason for the run summary. It is safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	maxSamples int
	counts     map[entity.RejectReason]int64
	samples    map[entity.RejectReason][]entity.Rejection
}

// NewCollector returns a collector keeping up to maxSamples examples per reason.
func NewCollector(maxSamples int) *Collector {
	return &Collector{
		maxSamples: maxSamples,
		counts:     make(map[entity.RejectReason]int64),
		samples:    make(map[entity.RejectReason][]entity.Rejection),
	}
}

// Add records err if it is a rejection and reports whether it was one.
func (c *Collector) Add(err error) bool {
	var rej *entity.Rejection
	if !errors.As(err, &rej) {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[rej.Reason]++
	if len(c.samples[rej.Reason]) < c.maxSamples {
		c.samples[rej.Reason] = append(c.samples[rej.Reason], *rej)
	}
	return true
}

// Total returns the number of rejections recorded.
func (c *Collector) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	for _, v := range c.counts {
		n += v
	}
	return n
}

// Count returns the number of rejections recorded for reason.
func (c *Collector) Count(reason entity.RejectReason) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[reason]
}

// Flush copies the counts and samples into the stage summary and resets the collector.
func (c *Collector) Flush(s *entity.StageSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reasons := make([]entity.RejectReason, 0, len(c.counts))
	for reason, n := range c.counts {
		s.Rejected[reason] += n
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		s.Samples = append(s.Samples, c.samples[reason]...)
	}

	c.counts = make(map[entity.RejectReason]int64)
	c.samples = make(map[entity.RejectReason][]entity.Rejection)
}
