package domain

// Warehouse is a fixed stop where cargo may dwell between segments.
type Warehouse struct {
	ID             int64
	Name           string
	Location       Coordinates
	DailyDwellCost float64
}

func (w Warehouse) Waypoint() Waypoint {
	return Waypoint{Kind: WarehouseStop, WarehouseID: w.ID, Point: w.Location}
}
