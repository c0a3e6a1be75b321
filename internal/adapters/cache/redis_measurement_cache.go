package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisMeasurementCache keeps oracle results in Redis with a TTL, shared
// across service instances.
type RedisMeasurementCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisMeasurementCache(rdb *redis.Client, ttl time.Duration) *RedisMeasurementCache {
	return &RedisMeasurementCache{rdb: rdb, ttl: ttl, prefix: "distance:"}
}

type cachedMeasurement struct {
	DistanceKm    float64 `json:"distance_km"`
	DurationHours float64 `json:"duration_hours"`
	Path          string  `json:"path,omitempty"`
}

func (c *RedisMeasurementCache) key(origin, destination domain.Coordinates) string {
	return c.prefix + origin.Key() + "|" + destination.Key()
}

func (c *RedisMeasurementCache) Get(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ ports.Measurement, _ bool, err error) {
	defer obs.Time(ctx, "distance.redis.Get")(&err)

	raw, err := c.rdb.Get(ctx, c.key(origin, destination)).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.Measurement{}, false, nil
	}
	if err != nil {
		return ports.Measurement{}, false, fmt.Errorf("redis distance cache get: %w", err)
	}

	var cm cachedMeasurement
	if err := json.Unmarshal(raw, &cm); err != nil {
		return ports.Measurement{}, false, fmt.Errorf("redis distance cache decode: %w", err)
	}

	return ports.Measurement{DistanceKm: cm.DistanceKm, DurationHours: cm.DurationHours, Path: cm.Path}, true, nil
}

func (c *RedisMeasurementCache) Put(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	m ports.Measurement,
) error {
	b, err := json.Marshal(cachedMeasurement{DistanceKm: m.DistanceKm, DurationHours: m.DurationHours, Path: m.Path})
	if err != nil {
		return fmt.Errorf("redis distance cache encode: %w", err)
	}

	if err := c.rdb.Set(ctx, c.key(origin, destination), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis distance cache set: %w", err)
	}
	return nil
}
