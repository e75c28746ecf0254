package metrics

import (
	"errors"
	"testing"
	"time"

	"paper-trail/internal/domain/entity"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/* ───────── counters ───────── */

func TestRecordRead_IgnoresNonPositive(t *testing.T) {
	c := RecordsReadTotal.WithLabelValues("fec-itcont")
	before := testutil.ToFloat64(c)

	RecordRead("fec-itcont", 25)
	RecordRead("fec-itcont", 0)
	RecordRead("fec-itcont", -3)

	assert.Equal(t, float64(25), testutil.ToFloat64(c)-before)
}

func TestRecordRejected(t *testing.T) {
	c := RecordsRejectedTotal.WithLabelValues("fec-itcont", string(entity.ReasonBelowThreshold))
	before := testutil.ToFloat64(c)

	RecordRejected("fec-itcont", entity.ReasonBelowThreshold)
	RecordRejected("fec-itcont", entity.ReasonBelowThreshold)

	assert.Equal(t, float64(2), testutil.ToFloat64(c)-before)
}

func TestDeferralLifecycle(t *testing.T) {
	deferred := RecordsDeferredTotal.WithLabelValues(string(entity.DeferredVote), string(entity.KindReferentialGap))
	recovered := DeferredRecoveredTotal.WithLabelValues(string(entity.DeferredVote))
	d0, r0 := testutil.ToFloat64(deferred), testutil.ToFloat64(recovered)

	RecordDeferred(entity.DeferredVote, entity.KindReferentialGap)
	RecordRecovered(entity.DeferredVote)

	assert.Equal(t, float64(1), testutil.ToFloat64(deferred)-d0)
	assert.Equal(t, float64(1), testutil.ToFloat64(recovered)-r0)
}

func TestRecordLoaded(t *testing.T) {
	for _, result := range []string{entity.ResultInserted, entity.ResultUpdated, entity.ResultDuplicate} {
		t.Run(result, func(t *testing.T) {
			c := RecordsLoadedTotal.WithLabelValues("donation", result)
			before := testutil.ToFloat64(c)
			RecordLoaded("donation", result)
			assert.Equal(t, float64(1), testutil.ToFloat64(c)-before)
		})
	}
}

func TestRecordResolverDecisionAndRun(t *testing.T) {
	decision := ResolverDecisionsTotal.WithLabelValues(string(entity.SystemICPSR), string(entity.KindResolutionAmbiguous))
	run := RunsTotal.WithLabelValues(string(entity.RunSucceeded))
	d0, r0 := testutil.ToFloat64(decision), testutil.ToFloat64(run)

	RecordResolverDecision(entity.SystemICPSR, string(entity.KindResolutionAmbiguous))
	RecordRun(entity.RunSucceeded)

	assert.Equal(t, float64(1), testutil.ToFloat64(decision)-d0)
	assert.Equal(t, float64(1), testutil.ToFloat64(run)-r0)
}

/* ───────── histograms ───────── */

func histogram(t *testing.T, o prometheus.Observer) *dto.Histogram {
	t.Helper()
	m, ok := o.(prometheus.Metric)
	require.True(t, ok)
	var out dto.Metric
	require.NoError(t, m.Write(&out))
	return out.GetHistogram()
}

func TestRecordStage_SplitsByOutcome(t *testing.T) {
	ok0 := histogram(t, StageDuration.WithLabelValues("bills", "success")).GetSampleCount()
	fail0 := histogram(t, StageDuration.WithLabelValues("bills", "failure")).GetSampleCount()

	RecordStage("bills", 3*time.Second, nil)
	RecordStage("bills", time.Second, errors.New("read failed"))

	assert.Equal(t, ok0+1, histogram(t, StageDuration.WithLabelValues("bills", "success")).GetSampleCount())
	assert.Equal(t, fail0+1, histogram(t, StageDuration.WithLabelValues("bills", "failure")).GetSampleCount())
}
