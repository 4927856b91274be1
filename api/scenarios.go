/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	requests for demos and training. Each scenario submits a set of
	requests through the service, so every verdict comes from the engine
	and the active policy, and then records some final decisions.

AVAILABLE SCENARIOS:

	desk-day:         A mixed day at the returns desk
	online-returns:   Online returns around the 10-day window
	warranty-claims:  Defect claims around the 365-day warranty
	exchanges:        Exchanges per channel and product condition

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Submit each request with its received date relative to today
 3. Record the scripted decisions

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "desk-day"}

ADDING NEW SCENARIOS:
 1. Add an entry to 'scenarios' with ID, name, description and cases

NOTE:

	Loading a scenario deletes every stored request. Only use in
	development/demo environments.

SEE ALSO:
  - handlers.go: Handler context
  - ../requests/service.go: Submit, Decide
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/requests"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// scenarioCase is one scripted request. DaysAgo is relative to the
// evaluator's today.
type scenarioCase struct {
	DaysAgo  int
	Channel  eligibility.Channel
	Motive   eligibility.Motive
	Used     bool
	Tags     bool
	Notes    string
	Customer requests.Customer
	Order    string
	Product  requests.Product
	Decision requests.FinalDecision
	Reason   string
}

type scenario struct {
	ScenarioDTO
	Cases []scenarioCase
}

func price(s string, qty int) requests.Product {
	return requests.Product{UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString(s)), Quantity: qty}
}

func product(code, description, unitPrice string, qty int) requests.Product {
	p := price(unitPrice, qty)
	p.Code = code
	p.Description = description
	return p
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "desk-day",
			Name:        "Desk Day",
			Description: "A mixed day at the returns desk: every motive, both channels, some decisions taken",
		},
		Cases: []scenarioCase{
			{
				DaysAgo:  3,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveReturn,
				Tags:     true,
				Customer: requests.Customer{Name: "Lucía Fernández", Email: "lucia@example.com"},
				Order:    "WEB-10421",
				Product:  product("CAM-001", "Camisa lino blanca", "24999.00", 1),
				Decision: requests.DecisionApproved,
				Reason:   "Reintegro por la misma vía de pago",
			},
			{
				DaysAgo:  2,
				Channel:  eligibility.ChannelInPerson,
				Motive:   eligibility.MotiveReturn,
				Tags:     true,
				Customer: requests.Customer{Name: "Martín Gómez", Phone: "+54 11 5555-0101"},
				Product:  product("PAN-014", "Pantalón chino", "32500.00", 1),
				Decision: requests.DecisionRejected,
				Reason:   "Compra en local, se ofreció cambio",
			},
			{
				DaysAgo:  120,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveDefect,
				Used:     true,
				Notes:    "Costura abierta en el hombro",
				Customer: requests.Customer{Name: "Sofía Ruiz", Email: "sofia.ruiz@example.com"},
				Order:    "WEB-09877",
				Product:  product("CAM-003", "Campera impermeable", "89990.00", 1),
			},
			{
				DaysAgo:  20,
				Channel:  eligibility.ChannelInPerson,
				Motive:   eligibility.MotiveExchange,
				Tags:     true,
				Customer: requests.Customer{Name: "Diego Pereyra"},
				Product:  product("ZAP-220", "Zapatillas urbanas", "75000.00", 1),
				Decision: requests.DecisionRejected,
				Reason:   "Fuera de plazo de cambio",
			},
			{
				DaysAgo:  7,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveExchange,
				Tags:     true,
				Customer: requests.Customer{Name: "Valentina López", Email: "vale@example.com"},
				Order:    "WEB-10388",
				Product:  product("REM-105", "Remera algodón", "12990.00", 2),
			},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "online-returns",
			Name:        "Online Returns",
			Description: "Returns on the last day of the window, one day late, used and without tags",
		},
		Cases: []scenarioCase{
			{
				DaysAgo:  10,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveReturn,
				Tags:     true,
				Customer: requests.Customer{Name: "Ana Torres", Email: "ana@example.com"},
				Order:    "WEB-20001",
				Product:  product("VES-010", "Vestido estampado", "45000.00", 1),
			},
			{
				DaysAgo:  11,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveReturn,
				Tags:     true,
				Customer: requests.Customer{Name: "Bruno Díaz", Email: "bruno@example.com"},
				Order:    "WEB-20002",
				Product:  product("SWE-002", "Sweater lana", "38000.00", 1),
			},
			{
				DaysAgo:  4,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveReturn,
				Used:     true,
				Tags:     true,
				Notes:    "Prenda lavada",
				Customer: requests.Customer{Name: "Carla Méndez", Email: "carla@example.com"},
				Order:    "WEB-20003",
				Product:  product("JEA-044", "Jean recto", "41000.00", 1),
			},
			{
				DaysAgo:  5,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveReturn,
				Customer: requests.Customer{Name: "Julián Castro", Email: "julian@example.com"},
				Order:    "WEB-20004",
				Product:  product("GOR-007", "Gorra", "9990.00", 3),
			},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "warranty-claims",
			Name:        "Warranty Claims",
			Description: "Defect claims inside, on the edge of and past the legal warranty",
		},
		Cases: []scenarioCase{
			{
				DaysAgo:  30,
				Channel:  eligibility.ChannelInPerson,
				Motive:   eligibility.MotiveDefect,
				Used:     true,
				Notes:    "Cierre roto",
				Customer: requests.Customer{Name: "Pablo Sosa"},
				Product:  product("MOC-300", "Mochila urbana", "52000.00", 1),
				Decision: requests.DecisionApproved,
				Reason:   "Reparación en taller",
			},
			{
				DaysAgo:  365,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveDefect,
				Used:     true,
				Notes:    "Suela despegada",
				Customer: requests.Customer{Name: "Romina Acosta", Email: "romina@example.com"},
				Order:    "WEB-15550",
				Product:  product("BOT-120", "Botas cuero", "120000.00", 1),
			},
			{
				DaysAgo:  366,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveDefect,
				Used:     true,
				Notes:    "Suela despegada",
				Customer: requests.Customer{Name: "Federico Ibáñez", Email: "fede@example.com"},
				Order:    "WEB-15549",
				Product:  product("BOT-120", "Botas cuero", "120000.00", 1),
				Decision: requests.DecisionApproved,
				Reason:   "Excepción comercial por cliente frecuente",
			},
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "exchanges",
			Name:        "Exchanges",
			Description: "Exchange windows per channel and the unconditional condition check",
		},
		Cases: []scenarioCase{
			{
				DaysAgo:  30,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveExchange,
				Tags:     true,
				Customer: requests.Customer{Name: "Mariana Vega", Email: "mariana@example.com"},
				Order:    "WEB-30001",
				Product:  product("CAM-001", "Camisa lino blanca", "24999.00", 1),
			},
			{
				DaysAgo:  15,
				Channel:  eligibility.ChannelInPerson,
				Motive:   eligibility.MotiveExchange,
				Tags:     true,
				Customer: requests.Customer{Name: "Nicolás Herrera"},
				Product:  product("REM-105", "Remera algodón", "12990.00", 1),
			},
			{
				DaysAgo:  16,
				Channel:  eligibility.ChannelInPerson,
				Motive:   eligibility.MotiveExchange,
				Tags:     true,
				Customer: requests.Customer{Name: "Paula Ríos"},
				Product:  product("REM-105", "Remera algodón", "12990.00", 1),
			},
			{
				DaysAgo:  3,
				Channel:  eligibility.ChannelOnline,
				Motive:   eligibility.MotiveExchange,
				Used:     true,
				Notes:    "Sin etiquetas, con uso",
				Customer: requests.Customer{Name: "Tomás Aguirre", Email: "tomas@example.com"},
				Order:    "WEB-30004",
				Product:  price("15000.00", 1),
			},
		},
	},
}

func init() {
	for i := range scenarios {
		scenarios[i].Requests = len(scenarios[i].Cases)
	}
}

func findScenario(id string) (scenario, bool) {
	for _, s := range scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return scenario{}, false
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	dtos := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		dtos[i] = s.ScenarioDTO
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	s, ok := findScenario(current)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.ScenarioDTO)
}

// LoadScenario resets the store and loads a scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	s, ok := findScenario(req.ScenarioID)
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}

	if err := h.loadScenario(r.Context(), s); err != nil {
		h.writeServiceError(w, r, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = s.ID
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "loaded",
		"scenario": s.ScenarioDTO,
	})
}

func (h *Handler) loadScenario(ctx context.Context, s scenario) error {
	resetter, ok := h.Service.Store.(Resetter)
	if !ok {
		return fmt.Errorf("store %T cannot be reset", h.Service.Store)
	}
	if err := resetter.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	today := h.Service.Evaluator.Today()
	for i, c := range s.Cases {
		rec, err := h.Service.Submit(ctx, requests.Submission{
			Facts: eligibility.RequestFacts{
				ReceivedDate:    today.AddDays(-c.DaysAgo),
				PurchaseChannel: c.Channel,
				Motive:          c.Motive,
				ProductUsed:     c.Used,
				HasOriginalTags: c.Tags,
				Observations:    c.Notes,
			},
			Customer:    c.Customer,
			OrderNumber: c.Order,
			Product:     c.Product,
			CreatedBy:   "scenario:" + s.ID,
		})
		if err != nil {
			return fmt.Errorf("case %d: %w", i, err)
		}

		if c.Decision.Final() {
			if _, err := h.Service.Decide(ctx, rec.ID, requests.DecisionInput{
				Decision: c.Decision,
				Actor:    "supervisor",
				Notes:    c.Reason,
			}); err != nil {
				return fmt.Errorf("case %d decision: %w", i, err)
			}
		}
	}

	h.Logger.InfoContext(ctx, "scenario loaded", "scenario", s.ID, "requests", len(s.Cases))
	return nil
}
