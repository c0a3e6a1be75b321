package handlers

import (
	"context"
	"net/http"
	"route-planning-service/internal/api/dto"
	"route-planning-service/internal/domain"
)

type OptionPlanner interface {
	GenerateOptions(ctx context.Context, requestID int64) ([]domain.RouteOption, error)
	ListOptions(ctx context.Context, requestID int64) ([]domain.RouteOptionSummary, error)
	ListRouteOptions(ctx context.Context, routeID int64) ([]domain.RouteOptionSummary, error)
	GetOption(ctx context.Context, optionID int64) (*domain.RouteOption, error)
}

type OptionHandler struct {
	Planner   OptionPlanner
	Committer RouteCommitter
}

// Generate replaces the request's uncommitted options with a fresh batch.
func (h *OptionHandler) Generate(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	opts, err := h.Planner.GenerateOptions(r.Context(), requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.NewListOptionsFromOptions(opts))
}

func (h *OptionHandler) List(w http.ResponseWriter, r *http.Request) {
	requestID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	summaries, err := h.Planner.ListOptions(r.Context(), requestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewListOptionsResponse(summaries))
}

func (h *OptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	optionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	opt, err := h.Planner.GetOption(r.Context(), optionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewOptionResponse(*opt))
}

// Confirm commits the option as its request's route.
func (h *OptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	optionID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	route, err := h.Committer.ConfirmOption(r.Context(), optionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, dto.NewRouteResponse(route))
}
