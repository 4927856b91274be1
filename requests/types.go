/*
Package requests manages stored return/exchange/warranty cases.

PURPOSE:
  The eligibility engine decides; this package remembers. A Record is one
  customer request as it was submitted: the facts, the verdict the engine
  produced at submission time, the customer and product details, and the
  final decision a person later recorded. Every change is appended to an
  event trail.

KEY CONCEPTS:
  - Submission: what the desk sends (facts + optional details)
  - Record: a stored case, identified by an opaque UUID
  - FinalDecision: pending until someone approves or rejects
  - Event: append-only audit entry (created, decision)

LIFECYCLE:
  Submit -> Record{Decision: pending} + Event{created}
  Decide -> Record{Decision: approved|rejected} + Event{decision}
  A decision is recorded once. There is no update or delete of facts or
  verdicts; the verdict stays what the policy said on the day of submission.

SEE ALSO:
  - service.go: Operations
  - store.go: Persistence interface
  - store/memory.go, ../store/sqlite: Implementations
*/
package requests

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/returns-engine/eligibility"
)

// =============================================================================
// FINAL DECISION
// =============================================================================

type FinalDecision string

const (
	DecisionPending  FinalDecision = "pending"
	DecisionApproved FinalDecision = "approved"
	DecisionRejected FinalDecision = "rejected"
)

var decisionAliases = map[string]FinalDecision{
	"pending":   DecisionPending,
	"pendiente": DecisionPending,
	"approved":  DecisionApproved,
	"aprobada":  DecisionApproved,
	"rejected":  DecisionRejected,
	"rechazada": DecisionRejected,
}

// ParseDecision maps a wire value, including the legacy Spanish ones, to a
// FinalDecision.
func ParseDecision(s string) (FinalDecision, error) {
	if d, ok := decisionAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return d, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDecision, s)
}

// Final reports whether d closes the case.
func (d FinalDecision) Final() bool {
	return d == DecisionApproved || d == DecisionRejected
}

// =============================================================================
// RECORD
// =============================================================================

type Customer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type Product struct {
	Code        string              `json:"code,omitempty"`
	Description string              `json:"description,omitempty"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	Quantity    int                 `json:"quantity"`
}

// Total is UnitPrice * Quantity, zero when the price is unknown.
func (p Product) Total() decimal.Decimal {
	if !p.UnitPrice.Valid {
		return decimal.Zero
	}
	return p.UnitPrice.Decimal.Mul(decimal.NewFromInt(int64(p.Quantity)))
}

// Submission is the input of Submit and Preview.
type Submission struct {
	Facts         eligibility.RequestFacts `json:"facts"`
	Customer      Customer                 `json:"customer"`
	OrderNumber   string                   `json:"order_number,omitempty"`
	InvoiceNumber string                   `json:"invoice_number,omitempty"`
	Product       Product                  `json:"product"`
	CreatedBy     string                   `json:"created_by,omitempty"`
}

// Record is a stored request.
type Record struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	CreatedOn eligibility.Date `json:"created_on"`
	CreatedBy string           `json:"created_by,omitempty"`

	Facts   eligibility.RequestFacts `json:"facts"`
	Verdict eligibility.Verdict      `json:"verdict"`

	Customer      Customer `json:"customer"`
	OrderNumber   string   `json:"order_number,omitempty"`
	InvoiceNumber string   `json:"invoice_number,omitempty"`
	Product       Product  `json:"product"`

	Decision      FinalDecision `json:"decision"`
	DecidedBy     string        `json:"decided_by,omitempty"`
	DecisionNotes string        `json:"decision_notes,omitempty"`
	DecidedAt     *time.Time    `json:"decided_at,omitempty"`
}

// =============================================================================
// EVENTS - Append-only audit trail
// =============================================================================

type EventType string

const (
	EventCreated  EventType = "created"
	EventDecision EventType = "decision"
)

type Event struct {
	ID        string        `json:"id"`
	RequestID string        `json:"request_id"`
	At        time.Time     `json:"at"`
	Type      EventType     `json:"type"`
	Actor     string        `json:"actor"`
	From      FinalDecision `json:"from,omitempty"`
	To        FinalDecision `json:"to"`
	Notes     string        `json:"notes,omitempty"`
}

// =============================================================================
// QUERIES
// =============================================================================

// Filter selects records. Zero fields do not filter. From/To are inclusive
// and apply to the submission date.
type Filter struct {
	From        eligibility.Date
	To          eligibility.Date
	Channel     eligibility.Channel
	Motive      eligibility.Motive
	Decision    FinalDecision
	OrderNumber string // substring match
	Limit       int
	Offset      int
}

const (
	DefaultListLimit = 50
	MaxExportRows    = 10000
)

// Matches reports whether r passes every set field of f. Limit and Offset
// are ignored.
func (f Filter) Matches(r *Record) bool {
	if !f.From.IsZero() && r.CreatedOn.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && r.CreatedOn.After(f.To) {
		return false
	}
	if f.Channel != "" && r.Facts.PurchaseChannel != f.Channel {
		return false
	}
	if f.Motive != "" && r.Facts.Motive != f.Motive {
		return false
	}
	if f.Decision != "" && r.Decision != f.Decision {
		return false
	}
	if f.OrderNumber != "" && !strings.Contains(r.OrderNumber, f.OrderNumber) {
		return false
	}
	return true
}
