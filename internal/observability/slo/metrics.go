// Package slo tracks the data-quality objectives of the ingest pipeline:
// how much of each snapshot links, how large the unresolved backlog is and
// how stale the persisted model has become.
package slo

import (
	"time"

	"paper-trail/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Targets for the pipeline objectives.
const (
	// LinkageRatioSLO is the minimum share of records read that should end up
	// loaded (inserted, updated or duplicate) rather than rejected or deferred.
	LinkageRatioSLO = 0.95

	// DeferredBacklogSLO is the maximum number of pending side-channel records
	// of any one kind before an operator should look.
	DeferredBacklogSLO = 10000

	// FreshnessSLO is the maximum age of the last successful run.
	FreshnessSLO = 48 * time.Hour
)

var (
	// SLOLinkageRatio is the share of records loaded in the last run (0-1).
	SLOLinkageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_linkage_ratio",
			Help: "Share of records read in the last run that were loaded, target: 0.95",
		},
	)

	// SLODeferredBacklog is the number of pending side-channel records per kind.
	SLODeferredBacklog = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slo_deferred_backlog",
			Help: "Pending deferred records by kind, target: < 10000",
		},
		[]string{"kind"},
	)

	// SLOLastSuccess is the unix time of the last successful run.
	SLOLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "slo_last_success_timestamp_seconds",
			Help: "Unix time of the last successful ingest run, target age: < 48h",
		},
	)
)

// LinkageRatio computes the loaded share of a run. A run that read nothing
// has a ratio of 1.
func LinkageRatio(run *entity.RunSummary) float64 {
	total := run.Totals()
	if total.Read == 0 {
		return 1
	}
	var loaded int64
	for _, results := range total.Loaded {
		for _, n := range results {
			loaded += n
		}
	}
	ratio := float64(loaded) / float64(total.Read)
	if ratio > 1 {
		// Politicians count once per roster entry but also on continuity updates.
		ratio = 1
	}
	return ratio
}

// ObserveRun updates the run objectives from a finished run.
func ObserveRun(run *entity.RunSummary) {
	SLOLinkageRatio.Set(LinkageRatio(run))
	if run.Status == entity.RunSucceeded && run.FinishedAt != nil {
		SLOLastSuccess.Set(float64(run.FinishedAt.Unix()))
	}
}

// ObserveBacklog sets the backlog gauge for every deferred kind. Kinds
// missing from counts are reset to zero.
func ObserveBacklog(counts map[entity.DeferredKind]int64) {
	for _, kind := range []entity.DeferredKind{
		entity.DeferredCandidate,
		entity.DeferredMember,
		entity.DeferredVote,
		entity.DeferredDonation,
		entity.DeferredIdentityConflict,
	} {
		SLODeferredBacklog.WithLabelValues(string(kind)).Set(float64(counts[kind]))
	}
}

// Stale reports whether the last success is older than FreshnessSLO.
func Stale(lastSuccess, now time.Time) bool {
	return lastSuccess.IsZero() || now.Sub(lastSuccess) > FreshnessSLO
}
