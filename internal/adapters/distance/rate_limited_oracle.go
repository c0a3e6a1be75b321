package distance

import (
	"context"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/ports"

	"golang.org/x/time/rate"
)

// RateLimitedOracle caps the request rate to the wrapped oracle. Callers
// block until a token is available or ctx ends.
type RateLimitedOracle struct {
	Next    ports.DistanceOracle
	Limiter *rate.Limiter
}

func NewRateLimitedOracle(next ports.DistanceOracle, rps float64, burst int) *RateLimitedOracle {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedOracle{Next: next, Limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (r *RateLimitedOracle) Measure(ctx context.Context, origin, destination domain.Coordinates) (ports.Measurement, error) {
	if err := r.Limiter.Wait(ctx); err != nil {
		return ports.Measurement{}, fmt.Errorf("oracle rate limit: %w", err)
	}
	return r.Next.Measure(ctx, origin, destination)
}
