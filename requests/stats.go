package requests

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/warp/returns-engine/eligibility"
)

// =============================================================================
// STATISTICS
// =============================================================================

// Stats summarises a set of records.
type Stats struct {
	Total     int `json:"total"`
	Today     int `json:"today"`
	Permitted int `json:"permitted"`

	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`

	ByMotive     map[eligibility.Motive]int     `json:"by_motive"`
	ByChannel    map[eligibility.Channel]int    `json:"by_channel"`
	ByResultKind map[eligibility.ResultKind]int `json:"by_result_kind"`

	// AverageDaysElapsed and ApprovalRate (percent) are rounded to two
	// decimals.
	AverageDaysElapsed decimal.Decimal `json:"average_days_elapsed"`
	ApprovalRate       decimal.Decimal `json:"approval_rate"`

	// RefundExposure sums price * quantity over approved returns with a
	// known price.
	RefundExposure decimal.Decimal `json:"refund_exposure"`
}

// ComputeStats aggregates records. today decides the Today counter.
func ComputeStats(records []Record, today eligibility.Date) Stats {
	s := Stats{
		ByMotive:     make(map[eligibility.Motive]int, len(eligibility.Motives)),
		ByChannel:    make(map[eligibility.Channel]int, len(eligibility.Channels)),
		ByResultKind: make(map[eligibility.ResultKind]int),
	}
	for _, m := range eligibility.Motives {
		s.ByMotive[m] = 0
	}
	for _, c := range eligibility.Channels {
		s.ByChannel[c] = 0
	}

	totalDays := int64(0)
	refunds := decimal.Zero
	for i := range records {
		r := &records[i]
		s.Total++
		if r.CreatedOn.Equal(today) {
			s.Today++
		}
		if r.Verdict.Permitted {
			s.Permitted++
		}
		switch r.Decision {
		case DecisionApproved:
			s.Approved++
			if r.Facts.Motive == eligibility.MotiveReturn {
				refunds = refunds.Add(r.Product.Total())
			}
		case DecisionRejected:
			s.Rejected++
		default:
			s.Pending++
		}
		s.ByMotive[r.Facts.Motive]++
		s.ByChannel[r.Facts.PurchaseChannel]++
		s.ByResultKind[r.Verdict.ResultKind]++
		totalDays += int64(r.Verdict.DaysElapsed)
	}

	s.AverageDaysElapsed = decimal.Zero
	s.ApprovalRate = decimal.Zero
	if s.Total > 0 {
		total := decimal.NewFromInt(int64(s.Total))
		s.AverageDaysElapsed = decimal.NewFromInt(totalDays).DivRound(total, 2)
		s.ApprovalRate = decimal.NewFromInt(int64(s.Approved) * 100).DivRound(total, 2)
	}
	s.RefundExposure = refunds
	return s
}

// =============================================================================
// TRENDS
// =============================================================================

// TrendPoint counts the records submitted on one day.
type TrendPoint struct {
	Day      eligibility.Date `json:"day"`
	Count    int              `json:"count"`
	Approved int              `json:"approved"`
	Rejected int              `json:"rejected"`
}

// ComputeTrends groups records by submission day, newest day first. Days
// without records are omitted.
func ComputeTrends(records []Record) []TrendPoint {
	byDay := make(map[eligibility.Date]*TrendPoint)
	for i := range records {
		r := &records[i]
		p, ok := byDay[r.CreatedOn]
		if !ok {
			p = &TrendPoint{Day: r.CreatedOn}
			byDay[r.CreatedOn] = p
		}
		p.Count++
		switch r.Decision {
		case DecisionApproved:
			p.Approved++
		case DecisionRejected:
			p.Rejected++
		}
	}

	out := make([]TrendPoint, 0, len(byDay))
	for _, p := range byDay {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.After(out[j].Day) })
	return out
}
