package distance

import (
	"context"
	"log"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/ports"
)

// CachedOracle consults a MeasurementCache before delegating to the wrapped
// oracle. Cache failures are logged and never fail the measurement.
type CachedOracle struct {
	Next  ports.DistanceOracle
	Cache ports.MeasurementCache
}

func NewCachedOracle(next ports.DistanceOracle, cache ports.MeasurementCache) *CachedOracle {
	return &CachedOracle{Next: next, Cache: cache}
}

func (c *CachedOracle) Measure(ctx context.Context, origin, destination domain.Coordinates) (ports.Measurement, error) {
	if c.Cache != nil {
		m, ok, err := c.Cache.Get(ctx, origin, destination)
		if err != nil {
			log.Printf("distance cache read failed: origin=%s destination=%s err=%v", origin.Key(), destination.Key(), err)
		}
		if ok {
			metrics.OracleCalls.WithLabelValues("cache", "ok").Inc()
			return m, nil
		}
	}

	m, err := c.Next.Measure(ctx, origin, destination)
	if err != nil {
		return ports.Measurement{}, err
	}

	// Degenerate results are not cached so a later call can recover.
	if c.Cache != nil && m.DistanceKm > 0 {
		if err := c.Cache.Put(ctx, origin, destination, m); err != nil {
			log.Printf("distance cache write failed: %v", err)
		}
	}

	return m, nil
}
