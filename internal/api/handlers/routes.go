package handlers

import (
	"context"
	"net/http"
	"route-planning-service/internal/api/dto"
	"route-planning-service/internal/domain"
)

type RouteCommitter interface {
	CommitBest(ctx context.Context, requestID int64) (*domain.Route, error)
	ConfirmOption(ctx context.Context, optionID int64) (*domain.Route, error)
	SelectOption(ctx context.Context, routeID, optionID int64) (*domain.Route, error)
	GetRoute(ctx context.Context, routeID int64) (*domain.Route, error)
}

type CostCalculator interface {
	ComputeRouteCosts(ctx context.Context, routeID int64) (domain.CostBreakdown, error)
}

type RouteHandler struct {
	Committer  RouteCommitter
	Planner    OptionPlanner
	Calculator CostCalculator
}

// Commit plans the request and commits the shortest feasible variant.
func (h *RouteHandler) Commit(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	route, err := h.Committer.CommitBest(r.Context(), requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.NewRouteResponse(route))
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	route, err := h.Committer.GetRoute(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewRouteResponse(route))
}

func (h *RouteHandler) ListOptions(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	summaries, err := h.Planner.ListRouteOptions(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewListOptionsResponse(summaries))
}

// Select re-plans an untouched route with another option tied to it.
func (h *RouteHandler) Select(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	optionID, ok := pathID(w, r, "optionId")
	if !ok {
		return
	}

	route, err := h.Committer.SelectOption(r.Context(), routeID, optionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewRouteResponse(route))
}

func (h *RouteHandler) Costs(w http.ResponseWriter, r *http.Request) {
	routeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	b, err := h.Calculator.ComputeRouteCosts(r.Context(), routeID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewCostBreakdownResponse(b))
}
