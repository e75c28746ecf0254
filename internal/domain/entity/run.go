package entity

import (
	"sort"
	"time"
)

// RunStatus is the lifecycle state of an ingest run.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
	RunCancelled RunStatus = "CANCELLED"
)

// Load results, used as counter keys.
const (
	ResultInserted  = "inserted"
	ResultUpdated   = "updated"
	ResultDuplicate = "duplicate"
)

// StageSummary holds the counters of one pipeline stage. It is not safe for
// concurrent use; stages update it from their sequential section only.
type StageSummary struct {
	Name      string                      `json:"name"`
	Read      int64                       `json:"read"`
	Loaded    map[string]map[string]int64 `json:"loaded"`
	Rejected  map[RejectReason]int64      `json:"rejected"`
	Deferred  map[ErrorKind]int64         `json:"deferred"`
	Skipped   int64                       `json:"skipped"`
	Recovered int64                       `json:"recovered"`
	Samples   []Rejection                 `json:"samples,omitempty"`
	Duration  time.Duration               `json:"duration_ns"`
	Error     string                      `json:"error,omitempty"`
}

// NewStageSummary returns an empty summary for the named stage.
func NewStageSummary(name string) *StageSummary {
	return &StageSummary{
		Name:     name,
		Loaded:   make(map[string]map[string]int64),
		Rejected: make(map[RejectReason]int64),
		Deferred: make(map[ErrorKind]int64),
	}
}

// AddLoaded counts one load result for an entity ("bill", "vote", ...).
func (s *StageSummary) AddLoaded(entityName, result string) {
	m, ok := s.Loaded[entityName]
	if !ok {
		m = make(map[string]int64)
		s.Loaded[entityName] = m
	}
	m[result]++
}

// RunSummary is the report of one ingest run: counts loaded, counts rejected
// by reason and counts deferred, per stage.
type RunSummary struct {
	RunID      string          `json:"run_id"`
	Status     RunStatus       `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
	Stages     []*StageSummary `json:"stages"`
	Error      string          `json:"error,omitempty"`
}

// Totals aggregates the stage counters. Samples are not aggregated.
func (r *RunSummary) Totals() *StageSummary {
	total := NewStageSummary("total")
	for _, s := range r.Stages {
		total.Read += s.Read
		total.Skipped += s.Skipped
		total.Recovered += s.Recovered
		total.Duration += s.Duration
		for e, results := range s.Loaded {
			for res, n := range results {
				if total.Loaded[e] == nil {
					total.Loaded[e] = make(map[string]int64)
				}
				total.Loaded[e][res] += n
			}
		}
		for reason, n := range s.Rejected {
			total.Rejected[reason] += n
		}
		for kind, n := range s.Deferred {
			total.Deferred[kind] += n
		}
	}
	return total
}

// StageNames returns the names of the stages that ran, in order.
func (r *RunSummary) StageNames() []string {
	names := make([]string, 0, len(r.Stages))
	for _, s := range r.Stages {
		names = append(names, s.Name)
	}
	return names
}

// SortedReasons returns the rejection reasons of s ordered by count, then name.
func (s *StageSummary) SortedReasons() []RejectReason {
	reasons := make([]RejectReason, 0, len(s.Rejected))
	for r := range s.Rejected {
		reasons = append(reasons, r)
	}
	sort.Slice(reasons, func(i, j int) bool {
		if s.Rejected[reasons[i]] != s.Rejected[reasons[j]] {
			return s.Rejected[reasons[i]] > s.Rejected[reasons[j]]
		}
		return reasons[i] < reasons[j]
	})
	return reasons
}
