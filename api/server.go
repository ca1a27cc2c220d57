/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin dashboard

ROUTE GROUPS:
  /health               Liveness and database ping
  /metrics              Prometheus scrape endpoint
  /ws/attendance        Live notifications (employee_id=... or admin=1)
  /api/attendance/*     Employee check-in and check-out
  /api/admin/*          Status edits, batches, reports, closeout triggers
  /api/employees/*      Employee management
  /api/holidays/*       Company holidays
  /api/scenarios/*      Demo scenarios (reset the database)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/attendance-engine/metrics"
)

// DefaultCORSOrigins is used when no origins are configured.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
	if len(corsOrigins) == 0 {
		corsOrigins = DefaultCORSOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", metrics.Handler())
	if h.Hub != nil {
		r.Get("/ws/attendance", h.Hub.ServeWS)
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Employee self-service
		r.Route("/attendance", func(r chi.Router) {
			r.Post("/check-in", h.CheckIn)
			r.Post("/check-out", h.CheckOut)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Route("/attendance", func(r chi.Router) {
				r.Post("/update", h.UpdateStatus)
				r.Delete("/delete", h.DeleteStatus)
				r.Post("/batch", h.ApplyBatch)
				r.Delete("/batch", h.DeleteBatch)
				r.Put("/records/{id}", h.UpdateRecord)
				r.Get("/monthly/all", h.MonthlyRecordsAll)
				r.Get("/monthly/{employeeId}", h.MonthlyRecords)
				r.Get("/salary/all-summary", h.SalarySummary)
				r.Get("/export", h.ExportMonth)
			})
			r.Route("/closeout", func(r chi.Router) {
				r.Post("/missing-checkout", h.RunMissingCheckout)
				r.Post("/absenteeism", h.RunAbsenteeism)
			})
		})

		// Employee routes
		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Post("/", h.CreateEmployee)
			r.Get("/{id}", h.GetEmployee)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Post("/defaults", h.AddDefaultHolidays)
			r.Delete("/{id}", h.DeleteHoliday)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}
