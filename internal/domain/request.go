package domain

import (
	"fmt"
	"time"
)

// External request states pushed to the request service.
const (
	RequestProgrammed = "programmed"
	RequestInTransit  = "in transit"
	RequestCompleted  = "completed"
)

// Cargo states pushed to the cargo tracker.
const (
	CargoInTransit   = "in transit"
	CargoInWarehouse = "in warehouse"
	CargoDelivered   = "delivered"
)

// TransportRequest is the part of the external request aggregate the planner reads.
// Zero warehouse ids mean "resolve the nearest warehouse to the endpoint".
type TransportRequest struct {
	ID                     int64
	CreatedAt              time.Time
	Origin                 Waypoint
	Destination            Waypoint
	OriginWarehouseID      int64
	DestinationWarehouseID int64
	Intermediates          []int64
	WantVariants           bool
	RouteID                *int64
}

func (r TransportRequest) Validate() error {
	if r.ID <= 0 {
		return fmt.Errorf("%w: request id is required", ErrValidation)
	}
	if err := r.Origin.Validate(); err != nil {
		return fmt.Errorf("request %d origin: %w", r.ID, err)
	}
	if err := r.Destination.Validate(); err != nil {
		return fmt.Errorf("request %d destination: %w", r.ID, err)
	}
	if r.Origin.Same(r.Destination) {
		return fmt.Errorf("%w: request %d has identical origin and destination", ErrValidation, r.ID)
	}
	return nil
}

// Cargo is the load carried for one request.
type Cargo struct {
	RequestID int64
	WeightKg  float64
	VolumeM3  float64
}

// FinalReport is pushed to the request service once every segment finished.
type FinalReport struct {
	RequestID     int64
	RouteID       int64
	FinalCost     float64
	DurationHours float64
}
