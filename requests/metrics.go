package requests

import "github.com/warp/returns-engine/eligibility"

// Metrics receives service-level observations. The metrics package provides
// a Prometheus implementation.
type Metrics interface {
	ObserveEvaluation(motive eligibility.Motive, kind eligibility.ResultKind, permitted bool)
	ObserveInputRejected()
	ObserveSubmission(channel eligibility.Channel)
	ObserveDecision(d FinalDecision)
}

// NoopMetrics discards every observation.
type NoopMetrics struct{}

func (NoopMetrics) ObserveEvaluation(eligibility.Motive, eligibility.ResultKind, bool) {}
func (NoopMetrics) ObserveInputRejected() {}
func (NoopMetrics) ObserveSubmission(eligibility.Channel) {}
func (NoopMetrics) ObserveDecision(FinalDecision) {}
