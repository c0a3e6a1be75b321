package ports

import (
	"context"
	"route-planning-service/internal/domain"
)

// Measured distance, duration and encoded path between two coordinates.
type Measurement struct {
	DistanceKm    float64
	DurationHours float64
	Path          string
}

// Contract for the road-network distance oracle.
type DistanceOracle interface {
	// Measure a single origin -> destination leg.
	Measure(ctx context.Context, origin, destination domain.Coordinates) (Measurement, error)
}

// Persistent store of oracle results keyed by rounded coordinates.
type MeasurementCache interface {
	Get(ctx context.Context, origin, destination domain.Coordinates) (Measurement, bool, error)
	Put(ctx context.Context, origin, destination domain.Coordinates, m Measurement) error
}
