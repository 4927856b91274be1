package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/requests"
)

func TestPrometheus_EngineMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.ObserveEvaluation(eligibility.MotiveReturn, eligibility.KindReturn, true)
	p.ObserveEvaluation(eligibility.MotiveReturn, eligibility.KindReturn, true)
	p.ObserveEvaluation(eligibility.MotiveDefect, eligibility.KindWarrantyExpired, false)
	p.ObserveInputRejected()

	assert.Equal(t, 2.0, testutil.ToFloat64(p.evaluations.WithLabelValues("return", "return", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.evaluations.WithLabelValues("defect", "warranty_expired", "false")))
	assert.Equal(t, 0.0, testutil.ToFloat64(p.evaluations.WithLabelValues("exchange", "exchange", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.inputRejected))
}

func TestPrometheus_CaseAndPolicyMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.ObserveSubmission(eligibility.ChannelOnline)
	p.ObserveDecision(requests.DecisionApproved)
	p.ObservePolicyReload(ReloadRejected)
	p.SetPolicy(eligibility.MustLoad(map[string]any{"return_window_online_days": 12}))

	assert.Equal(t, 1.0, testutil.ToFloat64(p.submissions.WithLabelValues("online")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.decisions.WithLabelValues("approved")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.policyReloads.WithLabelValues(ReloadRejected)))
	assert.Equal(t, 12.0, testutil.ToFloat64(p.policyWindow.WithLabelValues(eligibility.KeyReturnWindowOnline)))
	assert.Equal(t, 365.0, testutil.ToFloat64(p.policyWindow.WithLabelValues(eligibility.KeyDefectWarranty)))
}

func TestPrometheus_HTTPHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.ObserveHTTPRequest("/api/requests", "POST", 201, 20*time.Millisecond)
	p.ObserveHTTPRequest("/api/requests", "POST", 201, 30*time.Millisecond)

	mfs, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, mf := range mfs {
		if mf.GetName() != "returns_http_request_duration_seconds" {
			continue
		}
		for _, m := range mf.GetMetric() {
			found = true
			assert.Equal(t, uint64(2), m.GetHistogram().GetSampleCount())
			assert.InDelta(t, 0.05, m.GetHistogram().GetSampleSum(), 1e-9)
		}
	}
	assert.True(t, found, "http histogram not gathered")
}

func TestPrometheus_SeriesPreRegistered(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry())

	// motives * kinds * permitted
	want := len(eligibility.Motives) * len(eligibility.ResultKinds) * 2
	assert.Equal(t, want, testutil.CollectAndCount(p.evaluations))
}
