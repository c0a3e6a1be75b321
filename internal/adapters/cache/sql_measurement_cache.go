package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/db"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
)

// SQLMeasurementCache is a SQL-backed cache for origin->destination oracle results.
// Keys are coordinates rounded to 5 decimals.
type SQLMeasurementCache struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLMeasurementCache(conn *sql.DB, dialect db.Dialect) *SQLMeasurementCache {
	return &SQLMeasurementCache{DB: conn, Dialect: dialect}
}

// Fetch one cached measurement. ok is false on a miss.
func (s *SQLMeasurementCache) Get(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ ports.Measurement, _ bool, err error) {
	defer obs.Time(ctx, "distance.cache.Get")(&err)

	if s.DB == nil {
		return ports.Measurement{}, false, errors.New("distance cache: db is nil")
	}

	q := s.Dialect.Rebind(`
	SELECT distance_km, duration_hours, path
	FROM distance_cache
	WHERE origin = ? AND destination = ?;
	`)

	var m ports.Measurement
	err = s.DB.QueryRowContext(ctx, q, origin.Key(), destination.Key()).
		Scan(&m.DistanceKm, &m.DurationHours, &m.Path)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Measurement{}, false, nil
	}
	if err != nil {
		return ports.Measurement{}, false, fmt.Errorf("get distance cache: query distance_cache table: %w", err)
	}

	return m, true, nil
}

// Store one measurement, replacing any previous value.
func (s *SQLMeasurementCache) Put(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	m ports.Measurement,
) error {
	if s.DB == nil {
		return errors.New("distance cache: db is nil")
	}

	q := s.Dialect.Rebind(`
	INSERT INTO distance_cache (origin, destination, distance_km, duration_hours, path)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (origin, destination) DO UPDATE
	SET distance_km = EXCLUDED.distance_km,
		duration_hours = EXCLUDED.duration_hours,
		path = EXCLUDED.path;
	`)

	if _, err := s.DB.ExecContext(ctx, q, origin.Key(), destination.Key(), m.DistanceKm, m.DurationHours, m.Path); err != nil {
		return fmt.Errorf("insert distance cache %s -> %s: %w", origin.Key(), destination.Key(), err)
	}

	return nil
}
