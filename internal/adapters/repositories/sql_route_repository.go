package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/db"
	"time"
)

// SQL implementation of ports.RouteRepository, bound to one transaction.
type sqlRouteRepository struct {
	q       queryer
	dialect db.Dialect
}

const segmentColumns = `
	id, route_id, seq,
	origin_kind, origin_warehouse_id, origin_lat, origin_lon, origin_name,
	dest_kind, dest_warehouse_id, dest_lat, dest_lon, dest_name,
	distance_km, duration_hours, path, vehicle_id,
	scheduled_start, scheduled_end, real_start, real_end,
	degraded, approximate_cost, real_cost, state, auto_generated
`

func (r *sqlRouteRepository) Create(ctx context.Context, route *domain.Route) error {
	if route.CreatedAt.IsZero() {
		route.CreatedAt = time.Now().UTC()
	}

	q := r.dialect.Rebind(`
	INSERT INTO routes (request_id, created_at, selected_option_id)
	VALUES (?, ?, ?)
	RETURNING id;
	`)

	var id int64
	err := r.q.QueryRowContext(ctx, q, route.RequestID, route.CreatedAt.UTC(), nullInt64(route.SelectedOptionID)).Scan(&id)
	if isUniqueViolation(err) {
		return fmt.Errorf("create route: %w: a route already exists for request %d", domain.ErrValidation, route.RequestID)
	}
	if err != nil {
		return fmt.Errorf("create route: insert routes row: %w", err)
	}
	route.ID = id

	return r.insertSegments(ctx, route)
}

func (r *sqlRouteRepository) insertSegments(ctx context.Context, route *domain.Route) error {
	q := r.dialect.Rebind(`
	INSERT INTO segments (
		route_id, seq,
		origin_kind, origin_warehouse_id, origin_lat, origin_lon, origin_name,
		dest_kind, dest_warehouse_id, dest_lat, dest_lon, dest_name,
		distance_km, duration_hours, path, vehicle_id,
		scheduled_start, scheduled_end, real_start, real_end,
		degraded, approximate_cost, real_cost, state, auto_generated
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id;
	`)

	for i := range route.Segments {
		s := &route.Segments[i]
		s.RouteID = route.ID

		var id int64
		err := r.q.QueryRowContext(ctx, q,
			s.RouteID, s.Order,
			string(s.Origin.Kind), warehouseID(s.Origin), s.Origin.Point.Lat, s.Origin.Point.Lon, s.OriginName,
			string(s.Destination.Kind), warehouseID(s.Destination), s.Destination.Point.Lat, s.Destination.Point.Lon, s.DestName,
			s.DistanceKm, s.DurationHours, s.Path, nullInt64(s.VehicleID),
			s.ScheduledStart.UTC(), s.ScheduledEnd.UTC(), nullTime(s.RealStart), nullTime(s.RealEnd),
			s.Degraded, s.ApproximateCost, nullFloat64(s.RealCost), string(s.State), s.AutoGenerated,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("insert segment route_id=%d seq=%d: %w", s.RouteID, s.Order, err)
		}
		s.ID = id
	}

	return nil
}

func (r *sqlRouteRepository) Get(ctx context.Context, id int64) (*domain.Route, error) {
	q := r.dialect.Rebind(`
	SELECT id, request_id, created_at, selected_option_id
	FROM routes
	WHERE id = ?` + forUpdate(r.dialect) + `;`)

	route, err := r.scanRoute(r.q.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route: %w: route %d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get route %d: %w", id, err)
	}

	if err := r.loadSegments(ctx, route); err != nil {
		return nil, err
	}
	return route, nil
}

func (r *sqlRouteRepository) GetByRequest(ctx context.Context, requestID int64) (*domain.Route, error) {
	q := r.dialect.Rebind(`
	SELECT id, request_id, created_at, selected_option_id
	FROM routes
	WHERE request_id = ?` + forUpdate(r.dialect) + `;`)

	route, err := r.scanRoute(r.q.QueryRowContext(ctx, q, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route: %w: no route for request %d", domain.ErrNotFound, requestID)
	}
	if err != nil {
		return nil, fmt.Errorf("get route for request %d: %w", requestID, err)
	}

	if err := r.loadSegments(ctx, route); err != nil {
		return nil, err
	}
	return route, nil
}

func (r *sqlRouteRepository) GetBySegment(ctx context.Context, segmentID int64) (*domain.Route, error) {
	var routeID int64
	err := r.q.QueryRowContext(ctx, r.dialect.Rebind(`SELECT route_id FROM segments WHERE id = ?;`), segmentID).Scan(&routeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get route: %w: segment %d", domain.ErrNotFound, segmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("get route for segment %d: %w", segmentID, err)
	}
	return r.Get(ctx, routeID)
}

func (r *sqlRouteRepository) scanRoute(row *sql.Row) (*domain.Route, error) {
	var route domain.Route
	var selected sql.NullInt64
	if err := row.Scan(&route.ID, &route.RequestID, &route.CreatedAt, &selected); err != nil {
		return nil, err
	}
	route.CreatedAt = route.CreatedAt.UTC()
	route.SelectedOptionID = int64Ptr(selected)
	return &route, nil
}

func (r *sqlRouteRepository) loadSegments(ctx context.Context, route *domain.Route) error {
	q := r.dialect.Rebind(`SELECT ` + segmentColumns + ` FROM segments WHERE route_id = ? ORDER BY seq;`)

	rows, err := r.q.QueryContext(ctx, q, route.ID)
	if err != nil {
		return fmt.Errorf("load segments route_id=%d: query segments table: %w", route.ID, err)
	}
	defer rows.Close()

	route.Segments = route.Segments[:0]
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return fmt.Errorf("load segments route_id=%d: scan row: %w", route.ID, err)
		}
		route.Segments = append(route.Segments, s)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load segments route_id=%d: row iteration: %w", route.ID, err)
	}

	return nil
}

func scanSegment(rows *sql.Rows) (domain.Segment, error) {
	var (
		s                    domain.Segment
		originKind, destKind string
		originWH, destWH     sql.NullInt64
		vehicleID            sql.NullInt64
		realStart, realEnd   sql.NullTime
		realCost             sql.NullFloat64
		state                string
	)

	err := rows.Scan(
		&s.ID, &s.RouteID, &s.Order,
		&originKind, &originWH, &s.Origin.Point.Lat, &s.Origin.Point.Lon, &s.OriginName,
		&destKind, &destWH, &s.Destination.Point.Lat, &s.Destination.Point.Lon, &s.DestName,
		&s.DistanceKm, &s.DurationHours, &s.Path, &vehicleID,
		&s.ScheduledStart, &s.ScheduledEnd, &realStart, &realEnd,
		&s.Degraded, &s.ApproximateCost, &realCost, &state, &s.AutoGenerated,
	)
	if err != nil {
		return domain.Segment{}, err
	}

	s.Origin.Kind = domain.WaypointKind(originKind)
	s.Origin.WarehouseID = originWH.Int64
	s.Destination.Kind = domain.WaypointKind(destKind)
	s.Destination.WarehouseID = destWH.Int64
	s.VehicleID = int64Ptr(vehicleID)
	s.ScheduledStart = s.ScheduledStart.UTC()
	s.ScheduledEnd = s.ScheduledEnd.UTC()
	s.RealStart = timePtr(realStart)
	s.RealEnd = timePtr(realEnd)
	s.RealCost = float64Ptr(realCost)
	s.State = domain.SegmentState(state)

	return s, nil
}

func (r *sqlRouteRepository) UpdateSegment(ctx context.Context, s *domain.Segment) error {
	q := r.dialect.Rebind(`
	UPDATE segments
	SET vehicle_id = ?,
		real_start = ?,
		real_end = ?,
		approximate_cost = ?,
		real_cost = ?,
		state = ?
	WHERE id = ?;
	`)

	res, err := r.q.ExecContext(ctx, q,
		nullInt64(s.VehicleID), nullTime(s.RealStart), nullTime(s.RealEnd),
		s.ApproximateCost, nullFloat64(s.RealCost), string(s.State), s.ID,
	)
	if err != nil {
		return fmt.Errorf("update segment %d: %w", s.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("update segment: %w: segment %d", domain.ErrNotFound, s.ID)
	}
	return nil
}

func (r *sqlRouteRepository) ReplaceSegments(ctx context.Context, route *domain.Route) error {
	if _, err := r.q.ExecContext(ctx, r.dialect.Rebind(`DELETE FROM segments WHERE route_id = ?;`), route.ID); err != nil {
		return fmt.Errorf("replace segments route_id=%d: delete: %w", route.ID, err)
	}
	return r.insertSegments(ctx, route)
}

func (r *sqlRouteRepository) SetSelectedOption(ctx context.Context, routeID, optionID int64) error {
	res, err := r.q.ExecContext(ctx, r.dialect.Rebind(`UPDATE routes SET selected_option_id = ? WHERE id = ?;`), optionID, routeID)
	if err != nil {
		return fmt.Errorf("set selected option route_id=%d: %w", routeID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("set selected option: %w: route %d", domain.ErrNotFound, routeID)
	}
	return nil
}

func warehouseID(w domain.Waypoint) sql.NullInt64 {
	if !w.IsWarehouse() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: w.WarehouseID, Valid: true}
}
