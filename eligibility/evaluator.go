/*
evaluator.go - Orchestration of one evaluation

FLOW:
  1. Resolve "today" from the clock in the evaluation time zone
  2. Validate facts (input errors are returned, no rule runs)
  3. Compute elapsed days
  4. Dispatch to the motive rule
  5. Render the Decision into a Verdict

FAILURE MODEL:
  Only an *InputError is ever returned as an error. A missing configuration,
  a clock earlier than the receipt date or a panic inside rule code produce
  an evaluation_error Verdict with the cause in its message. Callers can
  always display what Evaluate returns.
*/
package eligibility

import (
	"fmt"
	"time"
)

// DefaultTimeZone is the zone in which "today" is computed.
const DefaultTimeZone = "America/Argentina/Buenos_Aires"

// Evaluator evaluates requests. The zero value is not usable; call
// NewEvaluator. Fields may be replaced before first use.
type Evaluator struct {
	Clock    func() time.Time
	Location *time.Location
	Renderer *Renderer
}

// NewEvaluator returns an evaluator using the wall clock, DefaultTimeZone
// (UTC when the zone database is unavailable) and the default locale.
func NewEvaluator() *Evaluator {
	loc, err := time.LoadLocation(DefaultTimeZone)
	if err != nil {
		loc = time.UTC
	}
	return &Evaluator{
		Clock:    time.Now,
		Location: loc,
		Renderer: NewRenderer(DefaultLocale),
	}
}

// Today returns the current calendar date in the evaluator's zone.
func (e *Evaluator) Today() Date {
	return DateOf(e.Clock(), e.Location)
}

// Evaluate decides one request against cfg.
func (e *Evaluator) Evaluate(facts RequestFacts, cfg *PolicyConfig) (v Verdict, err error) {
	var today Date
	defer func() {
		if r := recover(); r != nil {
			v, err = e.failure(fmt.Sprint(r), today), nil
		}
	}()

	today = e.Today()

	if err := ValidateFacts(facts, today); err != nil {
		return Verdict{}, err
	}

	if cfg == nil {
		return e.failure("no policy configuration loaded", today), nil
	}

	days := DaysBetween(facts.ReceivedDate, today)
	if days < 0 {
		return e.failure(fmt.Sprintf("received date %s is after evaluation date %s", facts.ReceivedDate, today), today), nil
	}

	return e.renderer().Render(decide(facts, days, cfg), today), nil
}

func (e *Evaluator) renderer() *Renderer {
	if e.Renderer == nil {
		return NewRenderer(DefaultLocale)
	}
	return e.Renderer
}

func (e *Evaluator) failure(msg string, today Date) Verdict {
	return e.renderer().Render(Decision{Kind: KindEvaluationError, Failure: msg}, today)
}
