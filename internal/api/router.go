package api

import (
	"net/http"
	"route-planning-service/internal/api/handlers"
	"route-planning-service/internal/platform/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the core services the HTTP surface drives.
type Dependencies struct {
	Planner   handlers.OptionPlanner
	Committer handlers.RouteCommitter
	Lifecycle handlers.SegmentLifecycle
	Costs     handlers.CostCalculator
	DB        handlers.Pinger
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers only see service interfaces, never concrete adapters.
func NewRouter(deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	health := &handlers.HealthHandler{DB: deps.DB}
	options := &handlers.OptionHandler{Planner: deps.Planner, Committer: deps.Committer}
	routes := &handlers.RouteHandler{Committer: deps.Committer, Planner: deps.Planner, Calculator: deps.Costs}
	segments := &handlers.SegmentHandler{Lifecycle: deps.Lifecycle}

	mux.HandleFunc("GET /health", health.Health)
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("POST /requests/{id}/options", options.Generate)
	mux.HandleFunc("GET /requests/{id}/options", options.List)
	mux.HandleFunc("POST /requests/{id}/route", routes.Commit)

	mux.HandleFunc("GET /options/{id}", options.Get)
	mux.HandleFunc("POST /options/{id}/confirm", options.Confirm)

	mux.HandleFunc("GET /routes/{id}", routes.Get)
	mux.HandleFunc("GET /routes/{id}/options", routes.ListOptions)
	mux.HandleFunc("POST /routes/{id}/options/{optionId}/select", routes.Select)
	mux.HandleFunc("GET /routes/{id}/costs", routes.Costs)
	mux.HandleFunc("POST /routes/{id}/segments/{segmentId}/start", segments.Start)
	mux.HandleFunc("POST /routes/{id}/segments/{segmentId}/finish", segments.Finish)

	mux.HandleFunc("POST /segments/{id}/assign", segments.Assign)

	return requestIDMiddleware(loggingMiddleware(mux))
}
