/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the dashboard frontend

ROUTE GROUPS (prefix /api/v1/finance):
  /categories/*      Category management
  /shops/*           Shop management
  /metrics/*         Metric management
  /periods/*         Period management
  /years/*           Year registration and teardown
  /plan-values/*     Plan records, distribution, recalculation
  /actual-values/*   Actual records
  /yearly-plans      Year-level plan listing with labels
  /analytics/*       Reporting

SECURITY NOTE:
  No authentication middleware. The service sits behind the dashboard's
  gateway, which owns auth.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/DeadSteam/finproject/store/sqlite"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, corsOrigins []string) *chi.Mux {
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

	r.Route("/api/v1/finance", func(r chi.Router) {
		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			r.Get("/{id}", h.GetCategory)
			r.Put("/{id}", h.UpdateCategory)
			r.Delete("/{id}", h.DeleteCategory)
		})

		r.Route("/shops", func(r chi.Router) {
			r.Get("/", h.ListShops)
			r.Post("/", h.CreateShop)
			r.Get("/{id}", h.GetShop)
			r.Put("/{id}", h.UpdateShop)
			r.Delete("/{id}", h.DeleteShop)
		})

		r.Route("/metrics", func(r chi.Router) {
			r.Get("/", h.ListMetrics)
			r.Post("/", h.CreateMetric)
			r.Get("/{id}", h.GetMetric)
			r.Put("/{id}", h.UpdateMetric)
			r.Delete("/{id}", h.DeleteMetric)
		})

		r.Route("/periods", func(r chi.Router) {
			r.Get("/", h.ListPeriods)
			r.Get("/grouped", h.ListPeriodsGrouped)
			r.Post("/", h.CreatePeriod)
			r.Get("/{id}", h.GetPeriod)
			r.Put("/{id}", h.UpdatePeriod)
			r.Delete("/{id}", h.DeletePeriod)
		})

		r.Route("/years", func(r chi.Router) {
			r.Get("/", h.ListYears)
			r.Post("/", h.CreateYear)
			r.Delete("/{year}", h.DeleteYear)
		})

		r.Route("/plan-values", func(r chi.Router) {
			r.Get("/", h.ListValues(sqlite.KindPlan))
			r.Post("/", h.CreateValue(sqlite.KindPlan))
			r.Post("/distribute-yearly", h.DistributeYearly)
			r.Post("/recalculate-with-actual", h.RecalculateWithActual)
			r.Get("/{id}", h.GetValue(sqlite.KindPlan))
			r.Put("/{id}", h.UpdateValue(sqlite.KindPlan))
			r.Delete("/{id}", h.DeleteValue(sqlite.KindPlan))
		})

		r.Route("/actual-values", func(r chi.Router) {
			r.Get("/", h.ListValues(sqlite.KindActual))
			r.Post("/", h.CreateValue(sqlite.KindActual))
			r.Get("/{id}", h.GetValue(sqlite.KindActual))
			r.Put("/{id}", h.UpdateValue(sqlite.KindActual))
			r.Delete("/{id}", h.DeleteValue(sqlite.KindActual))
		})

		r.Get("/yearly-plans", h.ListYearlyPlans)

		r.Route("/analytics", func(r chi.Router) {
			r.Get("/budget-statistics", h.BudgetStatistics)
			r.Get("/actual-vs-plan/{periodID}", h.ActualVsPlan)
			r.Get("/total-metrics-by-shop/{periodID}", h.TotalMetricsByShop)
			r.Get("/charts", h.Charts)
		})
	})

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
