package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/db"
	"time"

	"github.com/google/uuid"
)

// SQL implementation of ports.OptionStore. Legs and warehouse lists live
// in a JSON payload column so an option can be read without joins.
type sqlOptionStore struct {
	q       queryer
	dialect db.Dialect
}

type optionPayload struct {
	WarehouseIDs   []int64      `json:"warehouse_ids"`
	WarehouseNames []string     `json:"warehouse_names"`
	Legs           []domain.Leg `json:"legs"`
}

const optionColumns = `
	id, request_id, route_id, batch_id, option_index,
	total_distance_km, total_duration_hours, payload, path, created_at
`

func (s *sqlOptionStore) SaveBatch(ctx context.Context, options []domain.RouteOption) ([]domain.RouteOption, error) {
	if len(options) == 0 {
		return []domain.RouteOption{}, nil
	}

	batchID := uuid.NewString()
	now := time.Now().UTC()

	q := s.dialect.Rebind(`
	INSERT INTO route_options (
		request_id, route_id, batch_id, option_index,
		total_distance_km, total_duration_hours, payload, path, created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	RETURNING id;
	`)

	out := make([]domain.RouteOption, 0, len(options))
	for i, o := range options {
		o.BatchID = batchID
		o.Index = i + 1
		o.CreatedAt = now

		payload, err := json.Marshal(optionPayload{
			WarehouseIDs:   o.WarehouseIDs,
			WarehouseNames: o.WarehouseNames,
			Legs:           o.Legs,
		})
		if err != nil {
			return nil, fmt.Errorf("save options: encode payload index=%d: %w", o.Index, err)
		}

		err = s.q.QueryRowContext(ctx, q,
			o.RequestID, nullInt64(o.RouteID), o.BatchID, o.Index,
			o.TotalDistanceKm, o.TotalDurationHours, string(payload), o.Path, o.CreatedAt,
		).Scan(&o.ID)
		if err != nil {
			return nil, fmt.Errorf("save options: insert request_id=%d index=%d: %w", o.RequestID, o.Index, err)
		}
		out = append(out, o)
	}

	return out, nil
}

func (s *sqlOptionStore) ListByRequest(ctx context.Context, requestID int64) ([]domain.RouteOption, error) {
	q := s.dialect.Rebind(`SELECT ` + optionColumns + ` FROM route_options WHERE request_id = ? ORDER BY option_index, id;`)
	return s.list(ctx, q, requestID)
}

func (s *sqlOptionStore) ListByRoute(ctx context.Context, routeID int64) ([]domain.RouteOption, error) {
	q := s.dialect.Rebind(`SELECT ` + optionColumns + ` FROM route_options WHERE route_id = ? ORDER BY option_index, id;`)
	return s.list(ctx, q, routeID)
}

func (s *sqlOptionStore) list(ctx context.Context, q string, arg int64) ([]domain.RouteOption, error) {
	rows, err := s.q.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, fmt.Errorf("list options: query route_options table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.RouteOption, 0, 4)
	for rows.Next() {
		o, err := scanOption(rows)
		if err != nil {
			return nil, fmt.Errorf("list options: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list options: row iteration: %w", err)
	}

	return out, nil
}

func (s *sqlOptionStore) Get(ctx context.Context, id int64) (*domain.RouteOption, error) {
	q := s.dialect.Rebind(`SELECT ` + optionColumns + ` FROM route_options WHERE id = ?;`)

	rows, err := s.q.QueryContext(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("get option %d: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("get option %d: %w", id, err)
		}
		return nil, fmt.Errorf("get option: %w: option %d", domain.ErrNotFound, id)
	}

	o, err := scanOption(rows)
	if err != nil {
		return nil, fmt.Errorf("get option %d: %w", id, err)
	}
	return &o, nil
}

func scanOption(rows *sql.Rows) (domain.RouteOption, error) {
	var (
		o       domain.RouteOption
		routeID sql.NullInt64
		payload string
	)

	err := rows.Scan(
		&o.ID, &o.RequestID, &routeID, &o.BatchID, &o.Index,
		&o.TotalDistanceKm, &o.TotalDurationHours, &payload, &o.Path, &o.CreatedAt,
	)
	if err != nil {
		return domain.RouteOption{}, fmt.Errorf("scan row: %w", err)
	}

	var p optionPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return domain.RouteOption{}, fmt.Errorf("decode payload option_id=%d: %w", o.ID, err)
	}

	o.RouteID = int64Ptr(routeID)
	o.CreatedAt = o.CreatedAt.UTC()
	o.WarehouseIDs = p.WarehouseIDs
	o.WarehouseNames = p.WarehouseNames
	o.Legs = p.Legs

	return o, nil
}

func (s *sqlOptionStore) DeleteByRequest(ctx context.Context, requestID int64, keep ...int64) error {
	q := `DELETE FROM route_options WHERE request_id = ?`
	args := []any{requestID}
	if len(keep) > 0 {
		q += ` AND id NOT IN (` + db.Placeholders(len(keep)) + `)`
		for _, id := range keep {
			args = append(args, id)
		}
	}

	if _, err := s.q.ExecContext(ctx, s.dialect.Rebind(q+`;`), args...); err != nil {
		return fmt.Errorf("delete options request_id=%d: %w", requestID, err)
	}
	return nil
}

func (s *sqlOptionStore) DeleteSiblings(ctx context.Context, optionID int64) error {
	var requestID int64
	err := s.q.QueryRowContext(ctx, s.dialect.Rebind(`SELECT request_id FROM route_options WHERE id = ?;`), optionID).Scan(&requestID)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete siblings: %w: option %d", domain.ErrNotFound, optionID)
	}
	if err != nil {
		return fmt.Errorf("delete siblings option_id=%d: %w", optionID, err)
	}
	return s.DeleteByRequest(ctx, requestID, optionID)
}

func (s *sqlOptionStore) AttachToRoute(ctx context.Context, optionID, routeID int64) error {
	res, err := s.q.ExecContext(ctx, s.dialect.Rebind(`UPDATE route_options SET route_id = ? WHERE id = ?;`), routeID, optionID)
	if err != nil {
		return fmt.Errorf("attach option %d to route %d: %w", optionID, routeID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("attach option: %w: option %d", domain.ErrNotFound, optionID)
	}
	return nil
}
