package domain

import "time"

// Leg is one measured hop of a candidate routing.
type Leg struct {
	Order         int      `json:"order"`
	From          Waypoint `json:"from"`
	To            Waypoint `json:"to"`
	FromName      string   `json:"from_name,omitempty"`
	ToName        string   `json:"to_name,omitempty"`
	DistanceKm    float64  `json:"distance_km"`
	DurationHours float64  `json:"duration_hours"`
	Path          string   `json:"path,omitempty"`
}

// Mandatory reports whether both endpoints are warehouses.
func (l Leg) Mandatory() bool { return l.From.IsWarehouse() && l.To.IsWarehouse() }

// Variant is the outcome of measuring one waypoint chain.
// A failed variant carries a Reason and no legs.
type Variant struct {
	Stops              []int64
	Legs               []Leg
	TotalDistanceKm    float64
	TotalDurationHours float64
	Path               string
	Reason             string
}

func (v Variant) Failed() bool { return v.Reason != "" }

// WarehouseIDs lists the warehouse stops the variant visits, in order.
func (v Variant) WarehouseIDs() []int64 {
	return warehouseSequence(v.Legs)
}

// RouteOption is a persisted, not yet committed candidate routing.
type RouteOption struct {
	ID                 int64
	RequestID          int64
	RouteID            *int64
	BatchID            string
	Index              int
	TotalDistanceKm    float64
	TotalDurationHours float64
	WarehouseIDs       []int64
	WarehouseNames     []string
	Legs               []Leg
	Path               string
	CreatedAt          time.Time
}

type RouteOptionSummary struct {
	ID                 int64
	RequestID          int64
	RouteID            *int64
	Index              int
	TotalDistanceKm    float64
	TotalDurationHours float64
	WarehouseIDs       []int64
	WarehouseNames     []string
	LegCount           int
}

func (o RouteOption) Summary() RouteOptionSummary {
	return RouteOptionSummary{
		ID:                 o.ID,
		RequestID:          o.RequestID,
		RouteID:            o.RouteID,
		Index:              o.Index,
		TotalDistanceKm:    o.TotalDistanceKm,
		TotalDurationHours: o.TotalDurationHours,
		WarehouseIDs:       o.WarehouseIDs,
		WarehouseNames:     o.WarehouseNames,
		LegCount:           len(o.Legs),
	}
}

// NewRouteOption builds an unsaved option from a successful variant.
func NewRouteOption(requestID int64, routeID *int64, v Variant) RouteOption {
	byID := make(map[int64]string)
	for _, l := range v.Legs {
		if l.From.IsWarehouse() {
			byID[l.From.WarehouseID] = l.FromName
		}
		if l.To.IsWarehouse() {
			byID[l.To.WarehouseID] = l.ToName
		}
	}

	ids := v.WarehouseIDs()
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, byID[id])
	}

	return RouteOption{
		RequestID:          requestID,
		RouteID:            routeID,
		TotalDistanceKm:    v.TotalDistanceKm,
		TotalDurationHours: v.TotalDurationHours,
		WarehouseIDs:       ids,
		WarehouseNames:     names,
		Legs:               v.Legs,
		Path:               v.Path,
	}
}

func warehouseSequence(legs []Leg) []int64 {
	out := make([]int64, 0, len(legs)+1)
	push := func(w Waypoint) {
		if !w.IsWarehouse() {
			return
		}
		if n := len(out); n > 0 && out[n-1] == w.WarehouseID {
			return
		}
		out = append(out, w.WarehouseID)
	}
	for _, l := range legs {
		push(l.From)
		push(l.To)
	}
	return out
}
