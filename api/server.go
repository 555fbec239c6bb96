/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS:
  /api/leaves/*     Leave lifecycle
  /api/students/*   Student read-side views
  /api/admin/*      Dashboard, stats, export
  /api/health       Liveness

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

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)

		// Leave lifecycle
		r.Route("/leaves", func(r chi.Router) {
			r.Post("/", h.SubmitLeave)
			r.Get("/", h.ListLeaves)
			r.Post("/cancel", h.CancelLeave)
			r.Post("/{id}/approve", h.ApproveLeave)
			r.Post("/{id}/reject", h.RejectLeave)
			r.Delete("/{id}", h.DeleteLeave)
		})

		// Student views
		r.Route("/students", func(r chi.Router) {
			r.Get("/{id}/overview", h.GetOverview)
			r.Get("/{id}/attendance", h.GetAttendance)
			r.Get("/{id}/leaves", h.ListStudentLeaves)
		})

		// Admin views
		r.Route("/admin", func(r chi.Router) {
			r.Get("/dashboard", h.GetAdminDashboard)
			r.Get("/stats", h.GetStats)
			r.Get("/report.csv", h.ExportReport)
		})
	})

	return r
}
