package handlers

import (
	"context"
	"net/http"
	"route-planning-service/internal/api/dto"
	"route-planning-service/internal/domain"
	"strings"
	"time"
)

type SegmentLifecycle interface {
	AssignVehicle(ctx context.Context, segmentID int64, ref domain.VehicleRef) (*domain.Segment, error)
	StartSegment(ctx context.Context, routeID, segmentID int64, ts *time.Time) (*domain.Segment, error)
	FinishSegment(ctx context.Context, routeID, segmentID int64, ts *time.Time) (*domain.Segment, error)
}

type SegmentHandler struct {
	Lifecycle SegmentLifecycle
}

func (h *SegmentHandler) Assign(w http.ResponseWriter, r *http.Request) {
	segmentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req dto.AssignVehicleRequest
	if !decodeBody(w, r, &req, false) {
		return
	}

	plate := strings.TrimSpace(req.Plate)
	if req.VehicleID <= 0 && plate == "" {
		writeError(w, r, http.StatusBadRequest, "vehicle_id or plate is required")
		return
	}

	seg, err := h.Lifecycle.AssignVehicle(r.Context(), segmentID, domain.VehicleRef{ID: req.VehicleID, Plate: plate})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewSegmentResponse(*seg))
}

func (h *SegmentHandler) Start(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.StartSegment)
}

func (h *SegmentHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Lifecycle.FinishSegment)
}

type transitionFunc func(ctx context.Context, routeID, segmentID int64, ts *time.Time) (*domain.Segment, error)

func (h *SegmentHandler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	routeID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	segmentID, ok := pathID(w, r, "segmentId")
	if !ok {
		return
	}

	var req dto.TransitionRequest
	if !decodeBody(w, r, &req, true) {
		return
	}

	seg, err := fn(r.Context(), routeID, segmentID, req.At)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, dto.NewSegmentResponse(*seg))
}
