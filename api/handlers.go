/*
handlers.go - HTTP API handlers for the returns desk

PURPOSE:
  Exposes the eligibility engine and the request service via REST API.
  Handles HTTP request/response and JSON serialization, and delegates to
  requests.Service.

ENDPOINTS:
  Requests:
    POST   /api/requests/preview        Evaluate only (report, nothing stored)
    POST   /api/requests                Evaluate and store (201)
    GET    /api/requests                List with filters
    GET    /api/requests/{id}           Get one request
    GET    /api/requests/{id}/events    Audit trail
    POST   /api/requests/{id}/decision  Record the final decision

  Reporting:
    GET    /api/stats                   Statistics, trends, active windows
    GET    /api/export                  CSV download

  Configuration:
    GET    /api/config                  Active policy and accepted values

  Scenarios:
    GET    /api/scenarios               List demo scenarios
    POST   /api/scenarios/load          Load a demo scenario

REQUEST FLOW:
  1. Decode the body into a DTO
  2. Convert to domain types (parse errors become field errors)
  3. Call the service
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid body, field errors (with the field list), bad decision
  - 404: Request not found
  - 409: Decision already recorded
  - 500: Internal errors

  A completed evaluation is always 200/201, whether permitted or not.

SECURITY NOTE:
  No authentication or authorization. The actor of a decision is whatever
  the client sends.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/requests"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter is implemented by stores that can drop every record.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Service *requests.Service
	Logger  *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler around svc.
func NewHandler(svc *requests.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{Service: svc, Logger: logger}
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// PreviewRequest evaluates the facts without storing anything.
func (h *Handler) PreviewRequest(w http.ResponseWriter, r *http.Request) {
	var req FactsDTO
	if !decodeBody(w, r, &req) {
		return
	}

	facts, parseErrs := req.toFacts()
	if parseErrs.OrNil() != nil {
		h.writeFactErrors(w, facts, parseErrs)
		return
	}

	report, err := h.Service.Preview(r.Context(), facts)
	if err != nil {
		h.writeServiceError(w, r, "Failed to evaluate request", err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// SubmitRequest evaluates and stores a request.
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}

	sub, parseErrs := req.toSubmission()
	if parseErrs.OrNil() != nil {
		h.writeFactErrors(w, sub.Facts, parseErrs)
		return
	}

	rec, err := h.Service.Submit(r.Context(), sub)
	if err != nil {
		h.writeServiceError(w, r, "Failed to submit request", err)
		return
	}

	writeJSON(w, http.StatusCreated, rec)
}

// ListRequests returns stored requests, newest first.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.writeServiceError(w, r, "Invalid filter", err)
		return
	}

	records, err := h.Service.List(r.Context(), f)
	if err != nil {
		h.writeServiceError(w, r, "Failed to list requests", err)
		return
	}
	if records == nil {
		records = []requests.Record{}
	}

	limit := f.Limit
	if limit <= 0 {
		limit = requests.DefaultListLimit
	}
	writeJSON(w, http.StatusOK, ListResponse{
		Items:  records,
		Count:  len(records),
		Limit:  limit,
		Offset: f.Offset,
	})
}

// GetRequest returns a single request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetRequestEvents returns the audit trail of a request, oldest first.
func (h *Handler) GetRequestEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.Service.Events(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, "Failed to get events", err)
		return
	}
	if events == nil {
		events = []requests.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// DecideRequest records the final decision.
func (h *Handler) DecideRequest(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}

	decision, err := requests.ParseDecision(req.Decision)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid decision (use approved or rejected)", err)
		return
	}

	rec, err := h.Service.Decide(r.Context(), chi.URLParam(r, "id"), requests.DecisionInput{
		Decision: decision,
		Actor:    req.Actor,
		Notes:    req.Notes,
	})
	if err != nil {
		h.writeServiceError(w, r, "Failed to record decision", err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// =============================================================================
// REPORTING HANDLERS
// =============================================================================

// GetStats returns statistics for the filtered records, the daily trend
// of the last days (default 30) and the active policy.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.writeServiceError(w, r, "Invalid filter", err)
		return
	}

	days := 30
	if s := r.URL.Query().Get("days"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 366 {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 366", err)
			return
		}
		days = n
	}

	ctx := r.Context()
	stats, err := h.Service.Stats(ctx, f)
	if err != nil {
		h.writeServiceError(w, r, "Failed to compute statistics", err)
		return
	}
	trends, err := h.Service.Trends(ctx, days)
	if err != nil {
		h.writeServiceError(w, r, "Failed to compute trends", err)
		return
	}
	if trends == nil {
		trends = []requests.TrendPoint{}
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		Stats:  stats,
		Trends: trends,
		Policy: *h.Service.Policy.Current(),
	})
}

// ExportRequests streams matching records as CSV.
func (h *Handler) ExportRequests(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		h.writeServiceError(w, r, "Invalid filter", err)
		return
	}

	filename := fmt.Sprintf("solicitudes_%s.csv", h.Service.Evaluator.Today())
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	// Headers are committed by the first write; later failures can only be logged.
	if err := h.Service.Export(r.Context(), w, f); err != nil {
		h.Logger.ErrorContext(r.Context(), "export failed", slog.String("error", err.Error()))
	}
}

// =============================================================================
// CONFIG HANDLER
// =============================================================================

// GetConfig returns the active policy and the values the forms accept.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	ev := h.Service.Evaluator
	locale := eligibility.DefaultLocale
	if ev.Renderer != nil {
		locale = ev.Renderer.Locale()
	}

	writeJSON(w, http.StatusOK, ConfigResponse{
		Policy:    *h.Service.Policy.Current(),
		Channels:  eligibility.Channels,
		Motives:   eligibility.Motives,
		Decisions: []requests.FinalDecision{requests.DecisionApproved, requests.DecisionRejected},
		Locale:    locale,
		TimeZone:  ev.Location.String(),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decodeBody decodes the JSON body into dst, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// writeFactErrors reports parse errors together with whatever validation
// finds in the rest of the facts.
func (h *Handler) writeFactErrors(w http.ResponseWriter, facts eligibility.RequestFacts, parseErrs *eligibility.InputError) {
	err := eligibility.ValidateFacts(facts, h.Service.Evaluator.Today())
	merged := mergeFieldErrors(parseErrs, err)
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   "Invalid request",
		Details: merged.Error(),
		Fields:  merged.Fields,
	})
}

// writeServiceError maps service errors to status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, message string, err error) {
	var inputErr *eligibility.InputError
	switch {
	case errors.As(err, &inputErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid request",
			Details: err.Error(),
			Fields:  inputErr.Fields,
		})
	case requests.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Request not found", nil)
	case errors.Is(err, requests.ErrDecisionAlreadyRecorded):
		writeError(w, http.StatusConflict, "Decision already recorded", err)
	case requests.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.ErrorContext(r.Context(), message,
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
