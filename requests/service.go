package requests

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/warp/returns-engine/eligibility"
)

// =============================================================================
// SERVICE - Request lifecycle
// =============================================================================

// Service evaluates, stores and decides requests. Policy is read from the
// holder on every call so a reload takes effect on the next request.
type Service struct {
	Store     Store
	Evaluator *eligibility.Evaluator
	Policy    *eligibility.PolicyHolder
	Metrics   Metrics
	Logger    *slog.Logger

	// NewID generates record and event identifiers.
	NewID func() string
}

// NewService wires a Service with UUID identifiers, no-op metrics and a
// discarding logger. Replace Metrics and Logger as needed.
func NewService(store Store, ev *eligibility.Evaluator, policy *eligibility.PolicyHolder) *Service {
	return &Service{
		Store:     store,
		Evaluator: ev,
		Policy:    policy,
		Metrics:   NoopMetrics{},
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewID:     uuid.NewString,
	}
}

// =============================================================================
// PREVIEW & SUBMIT
// =============================================================================

// Preview evaluates facts without storing anything.
func (s *Service) Preview(ctx context.Context, facts eligibility.RequestFacts) (eligibility.Report, error) {
	cfg := s.Policy.Current()
	verdict, err := s.evaluate(ctx, facts, cfg)
	if err != nil {
		return eligibility.Report{}, err
	}
	return eligibility.BuildReport(facts, verdict, cfg), nil
}

// Submit validates and evaluates a submission and stores it as a pending
// record. Detail errors (email, quantity, price) and fact errors are
// reported together.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Record, error) {
	sub = normalize(sub)

	if details := validateDetails(sub); details.OrNil() != nil {
		if err := eligibility.ValidateFacts(sub.Facts, s.Evaluator.Today()); err != nil {
			var factsErr *eligibility.InputError
			if errors.As(err, &factsErr) {
				details.Fields = append(factsErr.Fields, details.Fields...)
			}
		}
		s.Metrics.ObserveInputRejected()
		return nil, details
	}

	verdict, err := s.evaluate(ctx, sub.Facts, s.Policy.Current())
	if err != nil {
		return nil, err
	}

	now := s.Evaluator.Clock()
	rec := &Record{
		ID:            s.NewID(),
		CreatedAt:     now.UTC(),
		CreatedOn:     eligibility.DateOf(now, s.Evaluator.Location),
		CreatedBy:     sub.CreatedBy,
		Facts:         sub.Facts,
		Verdict:       verdict,
		Customer:      sub.Customer,
		OrderNumber:   sub.OrderNumber,
		InvoiceNumber: sub.InvoiceNumber,
		Product:       sub.Product,
		Decision:      DecisionPending,
	}
	ev := Event{
		ID:        s.NewID(),
		RequestID: rec.ID,
		At:        rec.CreatedAt,
		Type:      EventCreated,
		Actor:     actorOr(sub.CreatedBy),
		To:        DecisionPending,
		Notes:     string(verdict.ResultKind),
	}

	if err := s.Store.Create(ctx, rec, ev); err != nil {
		return nil, fmt.Errorf("failed to store request: %w", err)
	}

	s.Metrics.ObserveSubmission(rec.Facts.PurchaseChannel)
	s.Logger.InfoContext(ctx, "request submitted",
		slog.String("request_id", rec.ID),
		slog.String("motive", string(rec.Facts.Motive)),
		slog.String("result_kind", string(verdict.ResultKind)),
		slog.Bool("permitted", verdict.Permitted),
	)
	return rec, nil
}

func (s *Service) evaluate(ctx context.Context, facts eligibility.RequestFacts, cfg *eligibility.PolicyConfig) (eligibility.Verdict, error) {
	verdict, err := s.Evaluator.Evaluate(facts, cfg)
	if err != nil {
		s.Metrics.ObserveInputRejected()
		s.Logger.DebugContext(ctx, "request facts rejected", slog.String("error", err.Error()))
		return eligibility.Verdict{}, err
	}
	s.Metrics.ObserveEvaluation(facts.Motive, verdict.ResultKind, verdict.Permitted)
	if verdict.ResultKind == eligibility.KindEvaluationError {
		s.Logger.ErrorContext(ctx, "evaluation failed", slog.String("message", verdict.Message))
	}
	return verdict, nil
}

// =============================================================================
// DECIDE
// =============================================================================

// DecisionInput is the final decision a person records on a case.
type DecisionInput struct {
	Decision FinalDecision `json:"decision"`
	Actor    string        `json:"actor"`
	Notes    string        `json:"notes,omitempty"`
}

// Decide records the final decision on a pending request. A decision may
// overrule the verdict; the verdict itself is never changed.
func (s *Service) Decide(ctx context.Context, id string, in DecisionInput) (*Record, error) {
	if !in.Decision.Final() {
		return nil, fmt.Errorf("%w: must be approved or rejected, got %q", ErrInvalidDecision, in.Decision)
	}

	now := s.Evaluator.Clock().UTC()
	update := DecisionUpdate{
		Decision: in.Decision,
		Actor:    actorOr(in.Actor),
		Notes:    strings.TrimSpace(in.Notes),
		At:       now,
	}
	ev := Event{
		ID:        s.NewID(),
		RequestID: id,
		At:        now,
		Type:      EventDecision,
		Actor:     update.Actor,
		From:      DecisionPending,
		To:        in.Decision,
		Notes:     update.Notes,
	}

	rec, err := s.Store.Decide(ctx, id, update, ev)
	if err != nil {
		return nil, err
	}

	s.Metrics.ObserveDecision(in.Decision)
	attrs := []any{
		slog.String("request_id", id),
		slog.String("decision", string(in.Decision)),
		slog.String("actor", update.Actor),
	}
	if rec.Verdict.Permitted != (in.Decision == DecisionApproved) {
		s.Logger.WarnContext(ctx, "decision overrules verdict", append(attrs, slog.String("result_kind", string(rec.Verdict.ResultKind)))...)
	} else {
		s.Logger.InfoContext(ctx, "decision recorded", attrs...)
	}
	return rec, nil
}

// =============================================================================
// QUERIES
// =============================================================================

func (s *Service) Get(ctx context.Context, id string) (*Record, error) {
	return s.Store.Get(ctx, id)
}

// List applies DefaultListLimit when f.Limit is zero.
func (s *Service) List(ctx context.Context, f Filter) ([]Record, error) {
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	return s.Store.List(ctx, f)
}

// Events returns ErrNotFound for an unknown request.
func (s *Service) Events(ctx context.Context, id string) ([]Event, error) {
	if _, err := s.Store.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Store.Events(ctx, id)
}

// Stats aggregates every record matching f. Limit and Offset are ignored.
func (s *Service) Stats(ctx context.Context, f Filter) (Stats, error) {
	f.Limit, f.Offset = 0, 0
	records, err := s.Store.List(ctx, f)
	if err != nil {
		return Stats{}, err
	}
	return ComputeStats(records, s.Evaluator.Today()), nil
}

// Trends returns per-day counts for the last days days, today included.
func (s *Service) Trends(ctx context.Context, days int) ([]TrendPoint, error) {
	if days <= 0 {
		days = 30
	}
	today := s.Evaluator.Today()
	records, err := s.Store.List(ctx, Filter{From: today.AddDays(-(days - 1)), To: today})
	if err != nil {
		return nil, err
	}
	return ComputeTrends(records), nil
}

// Export writes up to MaxExportRows matching records as CSV.
func (s *Service) Export(ctx context.Context, w io.Writer, f Filter) error {
	f.Offset = 0
	if f.Limit <= 0 || f.Limit > MaxExportRows {
		f.Limit = MaxExportRows
	}
	records, err := s.Store.List(ctx, f)
	if err != nil {
		return err
	}
	return WriteCSV(w, records)
}

// =============================================================================
// DETAIL VALIDATION
// =============================================================================

func normalize(sub Submission) Submission {
	sub.Customer.Name = strings.TrimSpace(sub.Customer.Name)
	sub.Customer.Email = strings.TrimSpace(sub.Customer.Email)
	sub.Customer.Phone = strings.TrimSpace(sub.Customer.Phone)
	sub.OrderNumber = strings.TrimSpace(sub.OrderNumber)
	sub.InvoiceNumber = strings.TrimSpace(sub.InvoiceNumber)
	sub.Product.Code = strings.TrimSpace(sub.Product.Code)
	if sub.Product.Quantity == 0 {
		sub.Product.Quantity = 1
	}
	return sub
}

func validateDetails(sub Submission) *eligibility.InputError {
	errs := &eligibility.InputError{}
	if sub.Customer.Email != "" {
		addr, err := mail.ParseAddress(sub.Customer.Email)
		if err != nil || addr.Address != sub.Customer.Email {
			errs.Add("customer.email", "is not a valid email address")
		}
	}
	if sub.Product.Quantity < 1 {
		errs.Add("product.quantity", "must be at least 1")
	}
	if sub.Product.UnitPrice.Valid && sub.Product.UnitPrice.Decimal.IsNegative() {
		errs.Add("product.unit_price", "cannot be negative")
	}
	return errs
}

func actorOr(actor string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	return "system"
}
