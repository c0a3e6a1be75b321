package dto

import (
	"route-planning-service/internal/domain"
	"time"
)

type SegmentResponse struct {
	SegmentID       int64            `json:"segment_id"`
	RouteID         int64            `json:"route_id"`
	Order           int              `json:"order"`
	Origin          WaypointResponse `json:"origin"`
	Destination     WaypointResponse `json:"destination"`
	DistanceKm      float64          `json:"distance_km"`
	DurationHours   float64          `json:"duration_hours"`
	Path            string           `json:"path,omitempty"`
	VehicleID       *int64           `json:"vehicle_id"`
	ScheduledStart  time.Time        `json:"scheduled_start"`
	ScheduledEnd    time.Time        `json:"scheduled_end"`
	RealStart       *time.Time       `json:"real_start"`
	RealEnd         *time.Time       `json:"real_end"`
	Degraded        bool             `json:"degraded"`
	ApproximateCost float64          `json:"approximate_cost"`
	RealCost        *float64         `json:"real_cost"`
	State           string           `json:"state"`
	AutoGenerated   bool             `json:"auto_generated"`
}

type RouteResponse struct {
	RouteID          int64             `json:"route_id"`
	RequestID        int64             `json:"request_id"`
	CreatedAt        time.Time         `json:"created_at"`
	SelectedOptionID *int64            `json:"selected_option_id"`
	Segments         []SegmentResponse `json:"segments"`
}

// AssignVehicleRequest names the vehicle by id or, when id is absent, by plate.
type AssignVehicleRequest struct {
	VehicleID int64  `json:"vehicle_id"`
	Plate     string `json:"plate"`
}

// TransitionRequest carries an optional timestamp for start and finish.
type TransitionRequest struct {
	At *time.Time `json:"at"`
}

type SegmentCostResponse struct {
	SegmentID       int64    `json:"segment_id"`
	Order           int      `json:"order"`
	DistanceKm      float64  `json:"distance_km"`
	DwellNights     int      `json:"dwell_nights"`
	ApproximateCost float64  `json:"approximate_cost"`
	RealCost        *float64 `json:"real_cost"`
}

type CostBreakdownResponse struct {
	RouteID          int64                 `json:"route_id"`
	Segments         []SegmentCostResponse `json:"segments"`
	TotalApproximate float64               `json:"total_approximate"`
	TotalReal        float64               `json:"total_real"`
	ManagementFee    float64               `json:"management_fee"`
	FinalCost        float64               `json:"final_cost"`
}

func NewSegmentResponse(s domain.Segment) SegmentResponse {
	return SegmentResponse{
		SegmentID:       s.ID,
		RouteID:         s.RouteID,
		Order:           s.Order,
		Origin:          NewWaypointResponse(s.Origin, s.OriginName),
		Destination:     NewWaypointResponse(s.Destination, s.DestName),
		DistanceKm:      s.DistanceKm,
		DurationHours:   s.DurationHours,
		Path:            s.Path,
		VehicleID:       s.VehicleID,
		ScheduledStart:  s.ScheduledStart,
		ScheduledEnd:    s.ScheduledEnd,
		RealStart:       s.RealStart,
		RealEnd:         s.RealEnd,
		Degraded:        s.Degraded,
		ApproximateCost: s.ApproximateCost,
		RealCost:        s.RealCost,
		State:           string(s.State),
		AutoGenerated:   s.AutoGenerated,
	}
}

func NewRouteResponse(r *domain.Route) RouteResponse {
	res := RouteResponse{
		RouteID:          r.ID,
		RequestID:        r.RequestID,
		CreatedAt:        r.CreatedAt,
		SelectedOptionID: r.SelectedOptionID,
		Segments:         make([]SegmentResponse, 0, len(r.Segments)),
	}
	for _, s := range r.Segments {
		res.Segments = append(res.Segments, NewSegmentResponse(s))
	}
	return res
}

func NewCostBreakdownResponse(b domain.CostBreakdown) CostBreakdownResponse {
	res := CostBreakdownResponse{
		RouteID:          b.RouteID,
		Segments:         make([]SegmentCostResponse, 0, len(b.Segments)),
		TotalApproximate: b.TotalApproximate,
		TotalReal:        b.TotalReal,
		ManagementFee:    b.ManagementFee,
		FinalCost:        b.FinalCost,
	}
	for _, s := range b.Segments {
		res.Segments = append(res.Segments, SegmentCostResponse{
			SegmentID:       s.SegmentID,
			Order:           s.Order,
			DistanceKm:      s.DistanceKm,
			DwellNights:     s.DwellNights,
			ApproximateCost: s.ApproximateCost,
			RealCost:        s.RealCost,
		})
	}
	return res
}
