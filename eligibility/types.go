/*
Package eligibility provides the return/exchange/warranty decision engine.

PURPOSE:
  Decides whether a customer request to exchange, return or claim warranty
  on a product is permitted, given where it was bought, how long ago it was
  received and what condition it is in. The engine is a pure function of the
  request facts, the policy configuration and today's date. It never touches
  a database, a network socket or a global.

KEY CONCEPTS IN THIS FILE (types.go):
  - Channel: Where the purchase happened (online or in person)
  - Motive: Why the customer is asking (exchange, return, defect)
  - RequestFacts: The immutable input of one evaluation
  - ResultKind: Closed set of outcomes
  - Verdict: The rendered output, with the applied-rules trace

DESIGN PRINCIPLES:
  1. Decision before presentation: rules produce a Decision, the Renderer
     turns it into text. Rules never build strings.
  2. Explicit configuration: PolicyConfig is passed into Evaluate, there is
     no package-level policy.
  3. Closed sets: motives and result kinds are enums dispatched by switch.

USAGE:
  cfg, err := eligibility.Load(nil)
  ev := eligibility.NewEvaluator()
  verdict, err := ev.Evaluate(eligibility.RequestFacts{
      ReceivedDate:    eligibility.NewDate(2025, time.March, 3),
      PurchaseChannel: eligibility.ChannelOnline,
      Motive:          eligibility.MotiveReturn,
  }, cfg)

SEE ALSO:
  - policy.go: PolicyConfig, defaults and overrides
  - rules.go: The three motive rules
  - evaluator.go: Orchestration and failure recovery
  - render.go: Message catalogs
*/
package eligibility

import (
	"fmt"
	"strings"
)

// =============================================================================
// CHANNEL & MOTIVE
// =============================================================================

// Channel is the purchase channel.
type Channel string

const (
	ChannelOnline   Channel = "online"
	ChannelInPerson Channel = "in_person"
)

// Motive is the stated reason of the request.
type Motive string

const (
	MotiveExchange Motive = "exchange"
	MotiveReturn   Motive = "return"
	MotiveDefect   Motive = "defect"
)

// Channels and Motives list the accepted values in display order.
var (
	Channels = []Channel{ChannelOnline, ChannelInPerson}
	Motives  = []Motive{MotiveExchange, MotiveReturn, MotiveDefect}
)

// Legacy wire values still sent by the old dashboard.
var (
	channelAliases = map[string]Channel{
		"online":     ChannelOnline,
		"in_person":  ChannelInPerson,
		"in-person":  ChannelInPerson,
		"presencial": ChannelInPerson,
	}
	motiveAliases = map[string]Motive{
		"exchange":   MotiveExchange,
		"cambio":     MotiveExchange,
		"return":     MotiveReturn,
		"devolucion": MotiveReturn,
		"defect":     MotiveDefect,
		"falla":      MotiveDefect,
	}
)

// ParseChannel maps a wire value (including legacy aliases) to a Channel.
func ParseChannel(s string) (Channel, error) {
	if c, ok := channelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return c, nil
	}
	return "", fmt.Errorf("unknown purchase channel %q", s)
}

// ParseMotive maps a wire value (including legacy aliases) to a Motive.
func ParseMotive(s string) (Motive, error) {
	if m, ok := motiveAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown motive %q", s)
}

func (c Channel) Valid() bool { return c == ChannelOnline || c == ChannelInPerson }
func (m Motive) Valid() bool {
	return m == MotiveExchange || m == MotiveReturn || m == MotiveDefect
}

// =============================================================================
// REQUEST FACTS - Input of one evaluation
// =============================================================================

// RequestFacts are the facts the caller supplies for one evaluation.
// Observations are carried along for the caller but never interpreted.
type RequestFacts struct {
	ReceivedDate    Date    `json:"received_date" yaml:"received_date"`
	PurchaseChannel Channel `json:"purchase_channel" yaml:"purchase_channel"`
	Motive          Motive  `json:"motive" yaml:"motive"`
	ProductUsed     bool    `json:"product_used" yaml:"product_used"`
	HasOriginalTags bool    `json:"has_original_tags" yaml:"has_original_tags"`
	Observations    string  `json:"observations,omitempty" yaml:"observations,omitempty"`
}

// =============================================================================
// RESULT KIND - Closed set of outcomes
// =============================================================================

type ResultKind string

const (
	KindWarranty                 ResultKind = "warranty"
	KindWarrantyExpired          ResultKind = "warranty_expired"
	KindReturn                   ResultKind = "return"
	KindReturnOutOfWindow        ResultKind = "return_out_of_window"
	KindReturnNotApplicable      ResultKind = "return_not_applicable"
	KindReturnInvalidCondition   ResultKind = "return_invalid_condition"
	KindExchange                 ResultKind = "exchange"
	KindExchangeOutOfWindow      ResultKind = "exchange_out_of_window"
	KindExchangeInvalidCondition ResultKind = "exchange_invalid_condition"
	KindInvalidMotive            ResultKind = "invalid_motive"
	KindEvaluationError          ResultKind = "evaluation_error"
)

// ResultKinds lists every outcome. Used by metrics to pre-register labels.
var ResultKinds = []ResultKind{
	KindWarranty, KindWarrantyExpired,
	KindReturn, KindReturnOutOfWindow, KindReturnNotApplicable, KindReturnInvalidCondition,
	KindExchange, KindExchangeOutOfWindow, KindExchangeInvalidCondition,
	KindInvalidMotive, KindEvaluationError,
}

// =============================================================================
// DECISION - What a rule decided, before any text is produced
// =============================================================================

// RuleID names a limit a rule checked. The renderer resolves it to a
// description and a legal basis.
type RuleID string

const (
	RuleDefectWarranty     RuleID = "defect_warranty"
	RuleReturnWindowOnline RuleID = "return_window_online"
	RuleExchangeOnline     RuleID = "exchange_window_online"
	RuleExchangeInPerson   RuleID = "exchange_window_in_person"
)

// LimitCheck records one limit tested by a rule and its value in days.
type LimitCheck struct {
	Rule RuleID
	Days int
}

// Decision is the locale-free result of a motive rule.
type Decision struct {
	Kind        ResultKind
	Permitted   bool
	DaysElapsed int
	Limit       int
	Channel     Channel
	Condition   ConditionResult
	Checks      []LimitCheck

	// Failure is set only for KindEvaluationError.
	Failure string
}

// =============================================================================
// VERDICT - Rendered output
// =============================================================================

// AppliedRule is one entry of the verdict's provenance trace.
type AppliedRule struct {
	Rule        RuleID `json:"rule" yaml:"rule"`
	Description string `json:"description" yaml:"description"`
	Days        int    `json:"days" yaml:"days"`
	LegalBasis  string `json:"legal_basis" yaml:"legal_basis"`
}

// Verdict is the structured, human-readable result of one evaluation.
// It has no identity; persistence layers assign one if they store it.
type Verdict struct {
	Permitted         bool          `json:"permitted" yaml:"permitted"`
	ResultKind        ResultKind    `json:"result_kind" yaml:"result_kind"`
	Title             string        `json:"title" yaml:"title"`
	Message           string        `json:"message" yaml:"message"`
	LegalBasis        *string       `json:"legal_basis" yaml:"legal_basis"`
	RecommendedAction *string       `json:"recommended_action" yaml:"recommended_action"`
	DaysElapsed       int           `json:"days_elapsed" yaml:"days_elapsed"`
	EvaluatedOn       Date          `json:"evaluated_on" yaml:"evaluated_on"`
	AppliedRules      []AppliedRule `json:"applied_rules" yaml:"applied_rules"`
}
