/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Latency histogram per route pattern (when configured)
  5. CORS:       Cross-origin requests for the desk frontend

ROUTE GROUPS:
  /api/requests/*       Evaluation, storage and decisions
  /api/stats            Dashboard statistics
  /api/export           CSV export
  /api/config           Active policy
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus (when configured)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// HTTPObserver records request latency.
type HTTPObserver interface {
	ObserveHTTPRequest(route, method string, status int, d time.Duration)
}

// RouterOptions configures NewRouter. Zero values disable the feature.
type RouterOptions struct {
	AllowedOrigins []string
	Metrics        HTTPObserver
	MetricsHandler http.Handler
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(instrument(opts.Metrics))
	}
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			ExposedHeaders:   []string{"Content-Disposition"},
			AllowCredentials: true,
		}))
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Request routes
		r.Route("/requests", func(r chi.Router) {
			r.Post("/preview", h.PreviewRequest)
			r.Post("/", h.SubmitRequest)
			r.Get("/", h.ListRequests)
			r.Get("/{id}", h.GetRequest)
			r.Get("/{id}/events", h.GetRequestEvents)
			r.Post("/{id}/decision", h.DecideRequest)
		})

		// Reporting routes
		r.Get("/stats", h.GetStats)
		r.Get("/export", h.ExportRequests)
		r.Get("/config", h.GetConfig)

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
	})

	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	return r
}

// instrument observes every request under its route pattern so that
// /api/requests/{id} is one series, not one per ID.
func instrument(obs HTTPObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			obs.ObserveHTTPRequest(route, r.Method, status, time.Since(start))
		})
	}
}
