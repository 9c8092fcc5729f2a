/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the attendance frontend

ROUTE GROUPS:
  /api/convert/*        Calendar conversion
  /api/calendar/*       Month grids
  /api/week, /api/sheet Weekly window and attendance sheet
  /api/attendance/*     Marking attendance
  /api/members/*        Members and their reports
  /api/schedule.ics     Practice-day feed
  /api/audit/*          Consistency audit
  /api/scenarios/*      Demo data (resets the database)
  /api/health           Liveness

SECURITY NOTE:
  No authentication middleware. Deploy behind the dojang's reverse proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured. An empty
// origins list allows any origin.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Route("/convert", func(r chi.Router) {
			r.Get("/secondary", h.ConvertToSecondary)
			r.Get("/canonical", h.ConvertToCanonical)
		})
		r.Get("/calendar/grid", h.MonthGrid)

		r.Get("/week", h.Week)
		r.Get("/sheet", h.Sheet)

		r.Route("/attendance", func(r chi.Router) {
			r.Post("/", h.MarkPresent)
			r.Delete("/", h.DeletePresent)
			r.Post("/toggle", h.Toggle)
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Get("/{id}", h.GetMember)
			r.Delete("/{id}", h.DeleteMember)
			r.Get("/{id}/report", h.GetReport)
			r.Get("/{id}/report.xlsx", h.ExportReport)
		})

		r.Get("/schedule.ics", h.ScheduleFeed)

		r.Route("/audit", func(r chi.Router) {
			r.Get("/runs", h.ListAuditRuns)
			r.Post("/run", h.TriggerAudit)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
