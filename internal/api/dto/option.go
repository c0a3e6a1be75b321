package dto

import (
	"route-planning-service/internal/domain"
	"time"
)

type WaypointResponse struct {
	Kind        string  `json:"kind"`
	WarehouseID *int64  `json:"warehouse_id,omitempty"`
	Name        string  `json:"name,omitempty"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

type LegResponse struct {
	Order         int              `json:"order"`
	From          WaypointResponse `json:"from"`
	To            WaypointResponse `json:"to"`
	DistanceKm    float64          `json:"distance_km"`
	DurationHours float64          `json:"duration_hours"`
}

type OptionSummaryResponse struct {
	OptionID           int64    `json:"option_id"`
	RequestID          int64    `json:"request_id"`
	RouteID            *int64   `json:"route_id"`
	Index              int      `json:"index"`
	TotalDistanceKm    float64  `json:"total_distance_km"`
	TotalDurationHours float64  `json:"total_duration_hours"`
	WarehouseIDs       []int64  `json:"warehouse_ids"`
	WarehouseNames     []string `json:"warehouse_names"`
	LegCount           int      `json:"leg_count"`
}

type OptionResponse struct {
	OptionSummaryResponse
	BatchID   string        `json:"batch_id"`
	Path      string        `json:"path,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	Legs      []LegResponse `json:"legs"`
}

type ListOptionsResponse struct {
	Options []OptionSummaryResponse `json:"options"`
}

func NewWaypointResponse(w domain.Waypoint, name string) WaypointResponse {
	res := WaypointResponse{
		Kind: string(w.Kind),
		Name: name,
		Lat:  w.Point.Lat,
		Lon:  w.Point.Lon,
	}
	if w.IsWarehouse() {
		id := w.WarehouseID
		res.WarehouseID = &id
	}
	return res
}

func NewOptionSummaryResponse(s domain.RouteOptionSummary) OptionSummaryResponse {
	return OptionSummaryResponse{
		OptionID:           s.ID,
		RequestID:          s.RequestID,
		RouteID:            s.RouteID,
		Index:              s.Index,
		TotalDistanceKm:    s.TotalDistanceKm,
		TotalDurationHours: s.TotalDurationHours,
		WarehouseIDs:       s.WarehouseIDs,
		WarehouseNames:     s.WarehouseNames,
		LegCount:           s.LegCount,
	}
}

func NewListOptionsResponse(summaries []domain.RouteOptionSummary) ListOptionsResponse {
	res := ListOptionsResponse{Options: make([]OptionSummaryResponse, 0, len(summaries))}
	for _, s := range summaries {
		res.Options = append(res.Options, NewOptionSummaryResponse(s))
	}
	return res
}

func NewOptionResponse(o domain.RouteOption) OptionResponse {
	legs := make([]LegResponse, 0, len(o.Legs))
	for _, l := range o.Legs {
		legs = append(legs, LegResponse{
			Order:         l.Order,
			From:          NewWaypointResponse(l.From, l.FromName),
			To:            NewWaypointResponse(l.To, l.ToName),
			DistanceKm:    l.DistanceKm,
			DurationHours: l.DurationHours,
		})
	}

	return OptionResponse{
		OptionSummaryResponse: NewOptionSummaryResponse(o.Summary()),
		BatchID:               o.BatchID,
		Path:                  o.Path,
		CreatedAt:             o.CreatedAt,
		Legs:                  legs,
	}
}

// NewListOptionsFromOptions summarizes freshly generated options.
func NewListOptionsFromOptions(opts []domain.RouteOption) ListOptionsResponse {
	summaries := make([]domain.RouteOptionSummary, 0, len(opts))
	for _, o := range opts {
		summaries = append(summaries, o.Summary())
	}
	return NewListOptionsResponse(summaries)
}
