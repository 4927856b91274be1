package requests_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/requests"
	"github.com/warp/returns-engine/requests/store"
)

// =============================================================================
// TEST INFRASTRUCTURE
// =============================================================================

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

type recordingMetrics struct {
	evaluations, rejected, submissions, decisions int
}

func (m *recordingMetrics) ObserveEvaluation(eligibility.Motive, eligibility.ResultKind, bool) {
	m.evaluations++
}
func (m *recordingMetrics) ObserveInputRejected() { m.rejected++ }
func (m *recordingMetrics) ObserveSubmission(eligibility.Channel) { m.submissions++ }
func (m *recordingMetrics) ObserveDecision(requests.FinalDecision) { m.decisions++ }

type fixture struct {
	svc     *requests.Service
	clock   *testClock
	metrics *recordingMetrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &testClock{now: time.Date(2025, time.June, 15, 15, 0, 0, 0, time.UTC)}
	ev := eligibility.NewEvaluator()
	ev.Location = time.UTC
	ev.Clock = clock.Now

	svc := requests.NewService(store.NewMemory(), ev, eligibility.NewPolicyHolder(eligibility.MustLoad(nil)))
	ids := 0
	svc.NewID = func() string {
		ids++
		return fmt.Sprintf("id-%03d", ids)
	}
	metrics := &recordingMetrics{}
	svc.Metrics = metrics
	return &fixture{svc: svc, clock: clock, metrics: metrics}
}

// submission builds a request received daysAgo days before the fixture clock.
func (f *fixture) submission(daysAgo int, ch eligibility.Channel, m eligibility.Motive) requests.Submission {
	return requests.Submission{
		Facts: eligibility.RequestFacts{
			ReceivedDate:    eligibility.DateOf(f.clock.now, time.UTC).AddDays(-daysAgo),
			PurchaseChannel: ch,
			Motive:          m,
			HasOriginalTags: true,
		},
		Customer:    requests.Customer{Name: "Ana Pérez", Email: "ana@example.com"},
		OrderNumber: "PED-1001",
		Product: requests.Product{
			Code:      "SKU-1",
			UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("1499.90")),
			Quantity:  2,
		},
		CreatedBy: "desk-1",
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_StoresPendingRecordWithVerdict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// GIVEN: an online return received 3 days ago
	sub := f.submission(3, eligibility.ChannelOnline, eligibility.MotiveReturn)

	// WHEN
	rec, err := f.svc.Submit(ctx, sub)

	// THEN: the record is stored pending with the verdict of today
	require.NoError(t, err)
	assert.Equal(t, "id-001", rec.ID)
	assert.Equal(t, requests.DecisionPending, rec.Decision)
	assert.Equal(t, eligibility.KindReturn, rec.Verdict.ResultKind)
	assert.Equal(t, "2025-06-15", rec.CreatedOn.String())

	got, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Verdict, got.Verdict)

	events, err := f.svc.Events(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, requests.EventCreated, events[0].Type)
	assert.Equal(t, "desk-1", events[0].Actor)

	assert.Equal(t, 1, f.metrics.evaluations)
	assert.Equal(t, 1, f.metrics.submissions)
}

func TestSubmit_ReportsFactAndDetailErrorsTogether(t *testing.T) {
	f := newFixture(t)

	// GIVEN: a future date and a malformed email
	sub := f.submission(-2, eligibility.ChannelOnline, eligibility.MotiveReturn)
	sub.Customer.Email = "not-an-email"

	// WHEN
	_, err := f.svc.Submit(context.Background(), sub)

	// THEN
	require.Error(t, err)
	assert.True(t, requests.IsClientError(err))

	var inputErr *eligibility.InputError
	require.ErrorAs(t, err, &inputErr)
	fields := make([]string, 0, len(inputErr.Fields))
	for _, fe := range inputErr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.Equal(t, []string{"received_date", "customer.email"}, fields)
	assert.Equal(t, 0, f.metrics.evaluations, "no rule runs on bad input")
	assert.Equal(t, 1, f.metrics.rejected)
}

func TestSubmit_DefaultsQuantityAndRejectsNegativePrice(t *testing.T) {
	f := newFixture(t)

	sub := f.submission(1, eligibility.ChannelOnline, eligibility.MotiveExchange)
	sub.Product.Quantity = 0
	rec, err := f.svc.Submit(context.Background(), sub)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Product.Quantity)

	sub.Product.UnitPrice = decimal.NewNullDecimal(decimal.NewFromInt(-1))
	_, err = f.svc.Submit(context.Background(), sub)
	assert.True(t, eligibility.IsInputError(err))
}

func TestSubmit_UsesCurrentPolicy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sub := f.submission(12, eligibility.ChannelOnline, eligibility.MotiveReturn)

	rec, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, eligibility.KindReturnOutOfWindow, rec.Verdict.ResultKind)

	// WHEN: the policy is reloaded with a longer window
	_, err = f.svc.Policy.Swap(eligibility.MustLoad(map[string]any{"return_window_online_days": 15}))
	require.NoError(t, err)

	// THEN: new submissions use it, stored verdicts do not change
	rec2, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)
	assert.Equal(t, eligibility.KindReturn, rec2.Verdict.ResultKind)

	old, err := f.svc.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, eligibility.KindReturnOutOfWindow, old.Verdict.ResultKind)
}

func TestPreview_StoresNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	report, err := f.svc.Preview(ctx, f.submission(400, eligibility.ChannelOnline, eligibility.MotiveDefect).Facts)
	require.NoError(t, err)
	assert.Equal(t, eligibility.KindWarrantyExpired, report.Verdict.ResultKind)
	assert.Equal(t, 365, report.Policy.DefectWarrantyDays)
	assert.NotEmpty(t, report.Citations)

	list, err := f.svc.List(ctx, requests.Filter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

// =============================================================================
// DECIDE
// =============================================================================

func TestDecide_RecordsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rec, err := f.svc.Submit(ctx, f.submission(2, eligibility.ChannelOnline, eligibility.MotiveExchange))
	require.NoError(t, err)

	// WHEN: approved
	f.clock.now = f.clock.now.Add(time.Hour)
	decided, err := f.svc.Decide(ctx, rec.ID, requests.DecisionInput{Decision: requests.DecisionApproved, Actor: "supervisor", Notes: " ok "})

	// THEN
	require.NoError(t, err)
	assert.Equal(t, requests.DecisionApproved, decided.Decision)
	assert.Equal(t, "supervisor", decided.DecidedBy)
	assert.Equal(t, "ok", decided.DecisionNotes)
	require.NotNil(t, decided.DecidedAt)
	assert.Equal(t, f.clock.now, *decided.DecidedAt)

	events, err := f.svc.Events(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, requests.EventDecision, events[1].Type)
	assert.Equal(t, requests.DecisionPending, events[1].From)
	assert.Equal(t, requests.DecisionApproved, events[1].To)

	// WHEN: decided again
	_, err = f.svc.Decide(ctx, rec.ID, requests.DecisionInput{Decision: requests.DecisionRejected})

	// THEN
	assert.ErrorIs(t, err, requests.ErrDecisionAlreadyRecorded)
	var conflict *requests.DecisionConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, requests.DecisionApproved, conflict.Current)
}

func TestDecide_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Decide(ctx, "missing", requests.DecisionInput{Decision: requests.DecisionRejected})
	assert.True(t, requests.IsNotFound(err))

	_, err = f.svc.Decide(ctx, "missing", requests.DecisionInput{Decision: requests.DecisionPending})
	assert.ErrorIs(t, err, requests.ErrInvalidDecision)

	_, err = f.svc.Events(ctx, "missing")
	assert.True(t, requests.IsNotFound(err))
}

func TestParseDecision(t *testing.T) {
	d, err := requests.ParseDecision("Aprobada")
	require.NoError(t, err)
	assert.Equal(t, requests.DecisionApproved, d)

	_, err = requests.ParseDecision("maybe")
	assert.ErrorIs(t, err, requests.ErrInvalidDecision)
}

// =============================================================================
// LIST, STATS, TRENDS, EXPORT
// =============================================================================

func seed(t *testing.T, f *fixture) []*requests.Record {
	t.Helper()
	ctx := context.Background()
	var out []*requests.Record

	// two days ago: online return, approved
	f.clock.now = time.Date(2025, time.June, 13, 10, 0, 0, 0, time.UTC)
	r1, err := f.svc.Submit(ctx, f.submission(1, eligibility.ChannelOnline, eligibility.MotiveReturn))
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, r1.ID, requests.DecisionInput{Decision: requests.DecisionApproved, Actor: "sup"})
	require.NoError(t, err)
	out = append(out, r1)

	// today: in-person exchange, rejected
	f.clock.now = time.Date(2025, time.June, 15, 9, 0, 0, 0, time.UTC)
	sub := f.submission(3, eligibility.ChannelInPerson, eligibility.MotiveExchange)
	sub.OrderNumber = "PED-2002"
	r2, err := f.svc.Submit(ctx, sub)
	require.NoError(t, err)
	_, err = f.svc.Decide(ctx, r2.ID, requests.DecisionInput{Decision: requests.DecisionRejected, Actor: "sup"})
	require.NoError(t, err)
	out = append(out, r2)

	// today: online defect, pending
	f.clock.now = time.Date(2025, time.June, 15, 11, 0, 0, 0, time.UTC)
	r3, err := f.svc.Submit(ctx, f.submission(100, eligibility.ChannelOnline, eligibility.MotiveDefect))
	require.NoError(t, err)
	out = append(out, r3)

	return out
}

func TestList_FiltersAndOrder(t *testing.T) {
	f := newFixture(t)
	recs := seed(t, f)
	ctx := context.Background()

	all, err := f.svc.List(ctx, requests.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, recs[2].ID, all[0].ID, "newest first")

	online, err := f.svc.List(ctx, requests.Filter{Channel: eligibility.ChannelOnline})
	require.NoError(t, err)
	assert.Len(t, online, 2)

	byOrder, err := f.svc.List(ctx, requests.Filter{OrderNumber: "2002"})
	require.NoError(t, err)
	require.Len(t, byOrder, 1)
	assert.Equal(t, recs[1].ID, byOrder[0].ID)

	today, err := f.svc.List(ctx, requests.Filter{From: eligibility.NewDate(2025, time.June, 15)})
	require.NoError(t, err)
	assert.Len(t, today, 2)

	paged, err := f.svc.List(ctx, requests.Filter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, recs[1].ID, paged[0].ID)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	stats, err := f.svc.Stats(context.Background(), requests.Filter{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Today)
	assert.Equal(t, 1, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 1, stats.ByMotive[eligibility.MotiveReturn])
	assert.Equal(t, 1, stats.ByMotive[eligibility.MotiveDefect])
	assert.Equal(t, 1, stats.ByMotive[eligibility.MotiveExchange])
	assert.Equal(t, 2, stats.ByChannel[eligibility.ChannelOnline])
	assert.Equal(t, "33.33", stats.ApprovalRate.String())
	assert.Equal(t, "34.67", stats.AverageDaysElapsed.String())
	assert.Equal(t, "2999.8", stats.RefundExposure.String())
}

func TestStats_Empty(t *testing.T) {
	f := newFixture(t)
	stats, err := f.svc.Stats(context.Background(), requests.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
	assert.True(t, stats.ApprovalRate.IsZero())
	assert.Contains(t, stats.ByMotive, eligibility.MotiveDefect)
}

func TestTrends(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	trends, err := f.svc.Trends(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, trends, 2)

	assert.Equal(t, "2025-06-15", trends[0].Day.String())
	assert.Equal(t, 2, trends[0].Count)
	assert.Equal(t, 1, trends[0].Rejected)
	assert.Equal(t, "2025-06-13", trends[1].Day.String())
	assert.Equal(t, 1, trends[1].Approved)

	short, err := f.svc.Trends(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, short, 1)
}

func TestExport_CSV(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	var buf bytes.Buffer
	require.NoError(t, f.svc.Export(context.Background(), &buf, requests.Filter{Motive: eligibility.MotiveReturn}))

	body := strings.TrimPrefix(buf.String(), "\xEF\xBB\xBF")
	rows, err := csv.NewReader(strings.NewReader(body)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)

	header, row := rows[0], rows[1]
	col := func(name string) string {
		for i, h := range header {
			if h == name {
				return row[i]
			}
		}
		t.Fatalf("missing column %s", name)
		return ""
	}
	assert.Equal(t, "Ana Pérez", col("customer_name"))
	assert.Equal(t, "1499.90", col("unit_price"))
	assert.Equal(t, "return", col("motive"))
	assert.Equal(t, "yes", col("permitted"))
	assert.Equal(t, "approved", col("decision"))
}
