package domain

import (
	"encoding/json"
	"fmt"
)

type WaypointKind string

const (
	WarehouseStop WaypointKind = "warehouse"
	RawPoint      WaypointKind = "point"
)

// Waypoint is either a warehouse reference or a raw coordinate.
// Point is always set for raw points; for warehouses it is filled once the
// warehouse has been resolved through the directory.
type Waypoint struct {
	Kind        WaypointKind
	WarehouseID int64
	Point       Coordinates
}

func WarehouseWaypoint(id int64) Waypoint {
	return Waypoint{Kind: WarehouseStop, WarehouseID: id}
}

func RawWaypoint(lat, lon float64) Waypoint {
	return Waypoint{Kind: RawPoint, Point: Coordinates{Lat: lat, Lon: lon}}
}

func (w Waypoint) IsWarehouse() bool { return w.Kind == WarehouseStop }

// Same reports whether both waypoints denote the same place.
func (w Waypoint) Same(o Waypoint) bool {
	if w.Kind != o.Kind {
		return false
	}
	if w.IsWarehouse() {
		return w.WarehouseID == o.WarehouseID
	}
	return w.Point.SamePoint(o.Point)
}

func (w Waypoint) String() string {
	if w.IsWarehouse() {
		return fmt.Sprintf("warehouse:%d", w.WarehouseID)
	}
	return "point:" + w.Point.Key()
}

func (w Waypoint) Validate() error {
	switch w.Kind {
	case WarehouseStop:
		if w.WarehouseID <= 0 {
			return fmt.Errorf("%w: warehouse waypoint requires a positive id", ErrValidation)
		}
	case RawPoint:
		if w.Point.Lat < -90 || w.Point.Lat > 90 || w.Point.Lon < -180 || w.Point.Lon > 180 {
			return fmt.Errorf("%w: point %s out of range", ErrValidation, w.Point.Key())
		}
	default:
		return fmt.Errorf("%w: unknown waypoint kind %q", ErrValidation, w.Kind)
	}
	return nil
}

type waypointJSON struct {
	Kind        WaypointKind `json:"kind"`
	WarehouseID int64        `json:"warehouse_id,omitempty"`
	Lat         *float64     `json:"lat,omitempty"`
	Lon         *float64     `json:"lon,omitempty"`
}

// MarshalJSON writes the coordinates of a warehouse stop only once it has
// been resolved, so a stored leg can still be placed if the warehouse later
// disappears from the directory.
func (w Waypoint) MarshalJSON() ([]byte, error) {
	out := waypointJSON{Kind: w.Kind}
	if w.IsWarehouse() {
		out.WarehouseID = w.WarehouseID
	}
	if !w.IsWarehouse() || w.Point != (Coordinates{}) {
		lat, lon := w.Point.Lat, w.Point.Lon
		out.Lat, out.Lon = &lat, &lon
	}
	return json.Marshal(out)
}

func (w *Waypoint) UnmarshalJSON(b []byte) error {
	var in waypointJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return fmt.Errorf("decode waypoint: %w", err)
	}

	switch in.Kind {
	case WarehouseStop:
		*w = WarehouseWaypoint(in.WarehouseID)
		if in.Lat != nil && in.Lon != nil {
			w.Point = Coordinates{Lat: *in.Lat, Lon: *in.Lon}
		}
	case RawPoint:
		if in.Lat == nil || in.Lon == nil {
			return fmt.Errorf("decode waypoint: point requires lat and lon")
		}
		*w = RawWaypoint(*in.Lat, *in.Lon)
	default:
		return fmt.Errorf("decode waypoint: unknown kind %q", in.Kind)
	}
	return nil
}
