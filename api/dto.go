/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request bodies carry
  plain strings so that a bad date or an unknown channel becomes a field
  error in a 400 response instead of a JSON decoding failure.

NAMING CONVENTION:
  - *DTO: Request body types from clients
  - *Response: Response wrappers

WIRE VALUES:
  purchase_channel: online | in_person   (legacy: presencial)
  motive:           exchange | return | defect (legacy: cambio, devolucion, falla)
  decision:         approved | rejected  (legacy: aprobada, rechazada)
  dates:            YYYY-MM-DD

SEE ALSO:
  - handlers.go: Uses these types
  - ../requests/types.go: Record, Submission
*/
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/requests"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// FactsDTO is the flat form of eligibility.RequestFacts.
type FactsDTO struct {
	ReceivedDate    string `json:"received_date"`
	PurchaseChannel string `json:"purchase_channel"`
	Motive          string `json:"motive"`
	ProductUsed     bool   `json:"product_used"`
	HasOriginalTags bool   `json:"has_original_tags"`
	Observations    string `json:"observations,omitempty"`
}

// ProductDTO accepts unit_price as a JSON number or string.
type ProductDTO struct {
	Code        string              `json:"code"`
	Description string              `json:"description"`
	UnitPrice   decimal.NullDecimal `json:"unit_price"`
	Quantity    int                 `json:"quantity"`
}

// SubmitRequestDTO is the body of POST /api/requests. The facts are
// embedded so the desk form can post them at the top level.
type SubmitRequestDTO struct {
	FactsDTO
	Customer      requests.Customer `json:"customer"`
	OrderNumber   string            `json:"order_number"`
	InvoiceNumber string            `json:"invoice_number"`
	Product       ProductDTO        `json:"product"`
	CreatedBy     string            `json:"created_by"`
}

// DecisionRequestDTO is the body of POST /api/requests/{id}/decision.
type DecisionRequestDTO struct {
	Decision string `json:"decision"`
	Actor    string `json:"actor"`
	Notes    string `json:"notes"`
}

// LoadScenarioRequest is the body of POST /api/scenarios/load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is returned for every non-2xx JSON response.
type ErrorResponse struct {
	Error   string                   `json:"error"`
	Details string                   `json:"details,omitempty"`
	Fields  []eligibility.FieldError `json:"fields,omitempty"`
}

// ListResponse wraps a page of records.
type ListResponse struct {
	Items  []requests.Record `json:"items"`
	Count  int               `json:"count"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

// StatsResponse is the dashboard payload.
type StatsResponse struct {
	Stats  requests.Stats           `json:"stats"`
	Trends []requests.TrendPoint    `json:"trends"`
	Policy eligibility.PolicyConfig `json:"policy"`
}

// ConfigResponse describes the active policy and the accepted enum values.
type ConfigResponse struct {
	Policy    eligibility.PolicyConfig `json:"policy"`
	Channels  []eligibility.Channel    `json:"channels"`
	Motives   []eligibility.Motive     `json:"motives"`
	Decisions []requests.FinalDecision `json:"decisions"`
	Locale    eligibility.Locale       `json:"locale"`
	TimeZone  string                   `json:"time_zone"`
}

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Requests    int    `json:"requests"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// toFacts converts the DTO. Values that cannot be parsed are reported as
// field errors; unknown enum values are passed through unchanged so that
// validation names the accepted set.
func (d FactsDTO) toFacts() (eligibility.RequestFacts, *eligibility.InputError) {
	errs := &eligibility.InputError{}
	facts := eligibility.RequestFacts{
		ProductUsed:     d.ProductUsed,
		HasOriginalTags: d.HasOriginalTags,
		Observations:    strings.TrimSpace(d.Observations),
	}

	if s := strings.TrimSpace(d.ReceivedDate); s != "" {
		date, err := eligibility.ParseDate(s)
		if err != nil {
			errs.Add("received_date", "must be a date in YYYY-MM-DD format")
		} else {
			facts.ReceivedDate = date
		}
	}

	if s := strings.TrimSpace(d.PurchaseChannel); s != "" {
		if ch, err := eligibility.ParseChannel(s); err == nil {
			facts.PurchaseChannel = ch
		} else {
			facts.PurchaseChannel = eligibility.Channel(s)
		}
	}

	if s := strings.TrimSpace(d.Motive); s != "" {
		if m, err := eligibility.ParseMotive(s); err == nil {
			facts.Motive = m
		} else {
			facts.Motive = eligibility.Motive(s)
		}
	}

	return facts, errs
}

func (d SubmitRequestDTO) toSubmission() (requests.Submission, *eligibility.InputError) {
	facts, errs := d.FactsDTO.toFacts()
	return requests.Submission{
		Facts:         facts,
		Customer:      d.Customer,
		OrderNumber:   d.OrderNumber,
		InvoiceNumber: d.InvoiceNumber,
		Product: requests.Product{
			Code:        d.Product.Code,
			Description: d.Product.Description,
			UnitPrice:   d.Product.UnitPrice,
			Quantity:    d.Product.Quantity,
		},
		CreatedBy: d.CreatedBy,
	}, errs
}

// mergeFieldErrors appends the field errors of err to parsed, skipping
// fields parsed already reports.
func mergeFieldErrors(parsed *eligibility.InputError, err error) *eligibility.InputError {
	var other *eligibility.InputError
	if !errors.As(err, &other) {
		return parsed
	}
	seen := make(map[string]bool, len(parsed.Fields))
	for _, f := range parsed.Fields {
		seen[f.Field] = true
	}
	for _, f := range other.Fields {
		if !seen[f.Field] {
			parsed.Fields = append(parsed.Fields, f)
		}
	}
	return parsed
}

// parseFilter reads list/stats/export filters from the query string.
func parseFilter(r *http.Request) (requests.Filter, error) {
	q := r.URL.Query()
	errs := &eligibility.InputError{}
	var f requests.Filter

	if s := q.Get("from"); s != "" {
		d, err := eligibility.ParseDate(s)
		if err != nil {
			errs.Add("from", "must be a date in YYYY-MM-DD format")
		}
		f.From = d
	}
	if s := q.Get("to"); s != "" {
		d, err := eligibility.ParseDate(s)
		if err != nil {
			errs.Add("to", "must be a date in YYYY-MM-DD format")
		}
		f.To = d
	}
	if !f.From.IsZero() && !f.To.IsZero() && f.To.Before(f.From) {
		errs.Add("to", "must not be before from")
	}
	if s := q.Get("channel"); s != "" {
		ch, err := eligibility.ParseChannel(s)
		if err != nil {
			errs.Add("channel", "must be one of: online, in_person")
		}
		f.Channel = ch
	}
	if s := q.Get("motive"); s != "" {
		m, err := eligibility.ParseMotive(s)
		if err != nil {
			errs.Add("motive", "must be one of: exchange, return, defect")
		}
		f.Motive = m
	}
	if s := q.Get("decision"); s != "" {
		d, err := requests.ParseDecision(s)
		if err != nil {
			errs.Add("decision", "must be one of: pending, approved, rejected")
		}
		f.Decision = d
	}
	f.OrderNumber = strings.TrimSpace(q.Get("order_number"))
	f.Limit = queryInt(q.Get("limit"), "limit", errs)
	f.Offset = queryInt(q.Get("offset"), "offset", errs)

	return f, errs.OrNil()
}

func queryInt(s, field string, errs *eligibility.InputError) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		errs.Add(field, "must be a non-negative integer")
		return 0
	}
	return n
}
