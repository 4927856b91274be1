// Package metrics exposes service observations to Prometheus.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/requests"
)

const namespace = "returns"

// Reload outcomes.
const (
	ReloadApplied   = "applied"
	ReloadUnchanged = "unchanged"
	ReloadRejected  = "rejected"
)

// Prometheus implements requests.Metrics and the API/reloader hooks.
type Prometheus struct {
	// Engine metrics
	evaluations   *prometheus.CounterVec
	inputRejected prometheus.Counter

	// Case metrics
	submissions *prometheus.CounterVec
	decisions   *prometheus.CounterVec

	// Policy metrics
	policyReloads *prometheus.CounterVec
	policyWindow  *prometheus.GaugeVec

	// HTTP metrics
	httpDuration *prometheus.HistogramVec
}

var _ requests.Metrics = (*Prometheus)(nil)

// NewPrometheus registers every collector with reg.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	p := &Prometheus{
		evaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Evaluations by motive, result kind and whether the request was permitted",
		}, []string{"motive", "result_kind", "permitted"}),

		inputRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "input_rejections_total",
			Help:      "Requests rejected by input validation before any rule ran",
		}),

		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "submitted_total",
			Help:      "Stored requests by purchase channel",
		}, []string{"channel"}),

		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "requests",
			Name:      "decisions_total",
			Help:      "Final decisions recorded",
		}, []string{"decision"}),

		policyReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "reloads_total",
			Help:      "Policy reload attempts by outcome",
		}, []string{"outcome"}),

		policyWindow: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "policy",
			Name:      "window_days",
			Help:      "Active policy windows in days",
		}, []string{"setting"}),

		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route, method and status",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"route", "method", "status"}),
	}

	// Pre-create series so dashboards show zeroes before the first request.
	for _, m := range eligibility.Motives {
		for _, k := range eligibility.ResultKinds {
			p.evaluations.WithLabelValues(string(m), string(k), "true")
			p.evaluations.WithLabelValues(string(m), string(k), "false")
		}
	}
	for _, outcome := range []string{ReloadApplied, ReloadUnchanged, ReloadRejected} {
		p.policyReloads.WithLabelValues(outcome)
	}

	return p
}

func (p *Prometheus) ObserveEvaluation(motive eligibility.Motive, kind eligibility.ResultKind, permitted bool) {
	p.evaluations.WithLabelValues(string(motive), string(kind), strconv.FormatBool(permitted)).Inc()
}

func (p *Prometheus) ObserveInputRejected() {
	p.inputRejected.Inc()
}

func (p *Prometheus) ObserveSubmission(channel eligibility.Channel) {
	p.submissions.WithLabelValues(string(channel)).Inc()
}

func (p *Prometheus) ObserveDecision(d requests.FinalDecision) {
	p.decisions.WithLabelValues(string(d)).Inc()
}

// ObservePolicyReload counts a reload attempt.
func (p *Prometheus) ObservePolicyReload(outcome string) {
	p.policyReloads.WithLabelValues(outcome).Inc()
}

// SetPolicy publishes the windows of the active policy.
func (p *Prometheus) SetPolicy(cfg *eligibility.PolicyConfig) {
	if cfg == nil {
		return
	}
	p.policyWindow.WithLabelValues(eligibility.KeyReturnWindowOnline).Set(float64(cfg.ReturnWindowOnlineDays))
	p.policyWindow.WithLabelValues(eligibility.KeyExchangeWindowOnline).Set(float64(cfg.ExchangeWindowOnlineDays))
	p.policyWindow.WithLabelValues(eligibility.KeyExchangeWindowInPerson).Set(float64(cfg.ExchangeWindowInPersonDays))
	p.policyWindow.WithLabelValues(eligibility.KeyDefectWarranty).Set(float64(cfg.DefectWarrantyDays))
}

// ObserveHTTPRequest records the latency of one HTTP request.
func (p *Prometheus) ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	p.httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}
