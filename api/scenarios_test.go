/*
scenarios_test.go - Unit tests for demo scenarios

PURPOSE:
	Tests that each scenario produces the verdicts it is meant to show
	with the default policy, and that loading replaces earlier data.
*/
package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/returns-engine/eligibility"
	"github.com/warp/returns-engine/requests"
)

func TestScenarios_ProduceExpectedVerdicts(t *testing.T) {
	tests := []struct {
		id       string
		kinds    map[eligibility.ResultKind]int
		approved int
		rejected int
	}{
		{
			id: "desk-day",
			kinds: map[eligibility.ResultKind]int{
				eligibility.KindReturn:              1,
				eligibility.KindReturnNotApplicable: 1,
				eligibility.KindWarranty:            1,
				eligibility.KindExchangeOutOfWindow: 1,
				eligibility.KindExchange:            1,
			},
			approved: 1,
			rejected: 2,
		},
		{
			id: "online-returns",
			kinds: map[eligibility.ResultKind]int{
				eligibility.KindReturn:                 1,
				eligibility.KindReturnOutOfWindow:      1,
				eligibility.KindReturnInvalidCondition: 2,
			},
		},
		{
			id: "warranty-claims",
			kinds: map[eligibility.ResultKind]int{
				eligibility.KindWarranty:        2,
				eligibility.KindWarrantyExpired: 1,
			},
			approved: 2,
		},
		{
			id: "exchanges",
			kinds: map[eligibility.ResultKind]int{
				eligibility.KindExchange:                 2,
				eligibility.KindExchangeOutOfWindow:      1,
				eligibility.KindExchangeInvalidCondition: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			// GIVEN
			h := setupTestHandler(t)
			ctx := context.Background()
			s, ok := findScenario(tt.id)
			require.True(t, ok)

			// WHEN
			require.NoError(t, h.loadScenario(ctx, s))

			// THEN
			stats, err := h.Service.Stats(ctx, requests.Filter{})
			require.NoError(t, err)
			assert.Equal(t, len(s.Cases), stats.Total)
			for kind, want := range tt.kinds {
				assert.Equal(t, want, stats.ByResultKind[kind], kind)
			}
			assert.Equal(t, tt.approved, stats.Approved)
			assert.Equal(t, tt.rejected, stats.Rejected)
			assert.Equal(t, len(s.Cases)-tt.approved-tt.rejected, stats.Pending)
		})
	}
}

func TestLoadScenario_ReplacesData(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, RouterOptions{})

	// GIVEN: one scenario loaded
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "desk-day"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// WHEN: another one is loaded
	rec = do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "exchanges"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// THEN: only the second one is stored
	list := decode[ListResponse](t, do(t, router, http.MethodGet, "/api/requests", nil))
	assert.Equal(t, 4, list.Count)
	for _, r := range list.Items {
		assert.Equal(t, "scenario:exchanges", r.CreatedBy)
	}

	current := decode[ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "exchanges", current.ID)
	assert.Equal(t, 4, current.Requests)
}

func TestLoadScenario_Unknown(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, RouterOptions{})

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "null\n", do(t, router, http.MethodGet, "/api/scenarios/current", nil).Body.String())
}

func TestListScenarios(t *testing.T) {
	h := setupTestHandler(t)
	router := NewRouter(h, RouterOptions{})

	list := decode[[]ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios", nil))

	require.Len(t, list, len(scenarios))
	for _, s := range list {
		assert.NotEmpty(t, s.Name, s.ID)
		assert.Positive(t, s.Requests, s.ID)
	}
}
