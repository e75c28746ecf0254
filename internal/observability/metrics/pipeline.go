package metrics

import (
	"time"

	"paper-trail/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsReadTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_records_read_total",
		Help: "Raw records read from source files",
	}, []string{"source"})

	RecordsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_records_rejected_total",
		Help: "Records dropped by the normalizer or linker",
	}, []string{"source", "reason"})

	RecordsDeferredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_records_deferred_total",
		Help: "Records written to the unresolved side-channel",
	}, []string{"kind", "reason"})

	// RecordsLoadedTotal is labelled by entity and loader result
	// (inserted, updated, duplicate).
	RecordsLoadedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_records_loaded_total",
		Help: "Loader writes by entity and result",
	}, []string{"entity", "result"})

	DeferredRecoveredTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_deferred_recovered_total",
		Help: "Deferred records that linked on a later run",
	}, []string{"kind"})

	ResolverDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "resolver_decisions_total",
		Help: "Entity resolver verdicts by source system and outcome",
	}, []string{"system", "outcome"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ingest_stage_duration_seconds",
		Help:    "Wall time of one pipeline stage",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 14),
	}, []string{"stage", "status"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_runs_total",
		Help: "Ingest runs by final status",
	}, []string{"status"})
)

// RecordRead adds n raw records read from source. Non-positive n is ignored.
func RecordRead(source string, n int) {
	if n > 0 {
		RecordsReadTotal.WithLabelValues(source).Add(float64(n))
	}
}

func RecordRejected(source string, reason entity.RejectReason) {
	RecordsRejectedTotal.WithLabelValues(source, string(reason)).Inc()
}

func RecordDeferred(kind entity.DeferredKind, reason entity.ErrorKind) {
	RecordsDeferredTotal.WithLabelValues(string(kind), string(reason)).Inc()
}

func RecordLoaded(entityName, result string) {
	RecordsLoadedTotal.WithLabelValues(entityName, result).Inc()
}

func RecordRecovered(kind entity.DeferredKind) {
	DeferredRecoveredTotal.WithLabelValues(string(kind)).Inc()
}

// RecordResolverDecision counts one verdict. Outcome is the match method
// (exact, crossref, heuristic, created) or the error kind of a deferral.
func RecordResolverDecision(system entity.SourceSystem, outcome string) {
	ResolverDecisionsTotal.WithLabelValues(string(system), outcome).Inc()
}

// RecordStage observes a finished stage under status success or failure.
func RecordStage(stage string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	StageDuration.WithLabelValues(stage, status).Observe(duration.Seconds())
}

func RecordRun(status entity.RunStatus) {
	RunsTotal.WithLabelValues(string(status)).Inc()
}
