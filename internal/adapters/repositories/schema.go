package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-planning-service/internal/platform/db"
)

func schemaStatements(dialect db.Dialect) []string {
	serial, ts := "INTEGER PRIMARY KEY AUTOINCREMENT", "DATETIME"
	if dialect == db.Postgres {
		serial, ts = "BIGSERIAL PRIMARY KEY", "TIMESTAMPTZ"
	}

	createWarehousesQuery := `
	CREATE TABLE IF NOT EXISTS warehouses (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		daily_dwell_cost DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	`

	createVehiclesQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS vehicles (
		id %s,
		plate TEXT NOT NULL UNIQUE,
		max_weight_kg DOUBLE PRECISION NOT NULL,
		max_volume_m3 DOUBLE PRECISION NOT NULL,
		cost_per_km DOUBLE PRECISION NOT NULL,
		avg_fuel_consumption DOUBLE PRECISION NOT NULL,
		available BOOLEAN NOT NULL DEFAULT TRUE,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		carrier TEXT NOT NULL DEFAULT ''
	);
	`, serial)

	createRoutesQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS routes (
		id %s,
		request_id BIGINT NOT NULL UNIQUE,
		created_at %s NOT NULL,
		selected_option_id BIGINT
	);
	`, serial, ts)

	createSegmentsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS segments (
		id %[1]s,
		route_id BIGINT NOT NULL REFERENCES routes(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		origin_kind TEXT NOT NULL,
		origin_warehouse_id BIGINT,
		origin_lat DOUBLE PRECISION NOT NULL,
		origin_lon DOUBLE PRECISION NOT NULL,
		origin_name TEXT NOT NULL DEFAULT '',
		dest_kind TEXT NOT NULL,
		dest_warehouse_id BIGINT,
		dest_lat DOUBLE PRECISION NOT NULL,
		dest_lon DOUBLE PRECISION NOT NULL,
		dest_name TEXT NOT NULL DEFAULT '',
		distance_km DOUBLE PRECISION NOT NULL,
		duration_hours DOUBLE PRECISION NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		vehicle_id BIGINT REFERENCES vehicles(id),
		scheduled_start %[2]s NOT NULL,
		scheduled_end %[2]s NOT NULL,
		real_start %[2]s,
		real_end %[2]s,
		degraded BOOLEAN NOT NULL DEFAULT FALSE,
		approximate_cost DOUBLE PRECISION NOT NULL DEFAULT 0,
		real_cost DOUBLE PRECISION,
		state TEXT NOT NULL,
		auto_generated BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (route_id, seq)
	);
	`, serial, ts)

	createOptionsQuery := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS route_options (
		id %s,
		request_id BIGINT NOT NULL,
		route_id BIGINT REFERENCES routes(id) ON DELETE SET NULL,
		batch_id TEXT NOT NULL,
		option_index INTEGER NOT NULL,
		total_distance_km DOUBLE PRECISION NOT NULL,
		total_duration_hours DOUBLE PRECISION NOT NULL,
		payload TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		created_at %s NOT NULL,
		UNIQUE (batch_id, option_index)
	);
	`, serial, ts)

	createDistanceCacheQuery := `
	CREATE TABLE IF NOT EXISTS distance_cache (
		origin TEXT NOT NULL,
		destination TEXT NOT NULL,
		distance_km DOUBLE PRECISION NOT NULL,
		duration_hours DOUBLE PRECISION NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (origin, destination)
	);
	`

	return []string{
		createWarehousesQuery,
		createVehiclesQuery,
		createRoutesQuery,
		createSegmentsQuery,
		createOptionsQuery,
		createDistanceCacheQuery,
		`CREATE INDEX IF NOT EXISTS idx_segments_route ON segments(route_id, seq);`,
		`CREATE INDEX IF NOT EXISTS idx_route_options_request ON route_options(request_id, option_index);`,
		`CREATE INDEX IF NOT EXISTS idx_route_options_route ON route_options(route_id);`,
	}
}

// Initialize the database schema for the given dialect.
func InitSchema(ctx context.Context, conn *sql.DB, dialect db.Dialect) error {
	if conn == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range schemaStatements(dialect) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
