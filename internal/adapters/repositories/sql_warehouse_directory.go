package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/db"
	"route-planning-service/internal/platform/obs"
)

// SQL-backed implementation of the WarehouseDirectory port.
type SQLWarehouseDirectory struct {
	DB      *sql.DB
	Dialect db.Dialect
}

func NewSQLWarehouseDirectory(conn *sql.DB, dialect db.Dialect) *SQLWarehouseDirectory {
	return &SQLWarehouseDirectory{DB: conn, Dialect: dialect}
}

// Resolve many warehouse ids in one query. Unknown ids are omitted.
func (d *SQLWarehouseDirectory) GetMany(ctx context.Context, ids []int64) (_ map[int64]domain.Warehouse, err error) {
	defer obs.Time(ctx, "warehouses.GetMany")(&err)

	if d.DB == nil {
		return nil, errors.New("warehouse directory: DB is nil")
	}

	seen := make(map[int64]struct{}, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		args = append(args, id)
	}

	out := make(map[int64]domain.Warehouse, len(args))
	if len(args) == 0 {
		return out, nil
	}

	q := d.Dialect.Rebind(`
	SELECT id, name, lat, lon, daily_dwell_cost
	FROM warehouses
	WHERE id IN (` + db.Placeholders(len(args)) + `);
	`)

	rows, err := d.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get warehouses: query warehouses table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("get warehouses: %w", err)
		}
		out[w.ID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get warehouses: row iteration: %w", err)
	}

	return out, nil
}

// Return all warehouses ordered by id.
func (d *SQLWarehouseDirectory) ListAll(ctx context.Context) (_ []domain.Warehouse, err error) {
	defer obs.Time(ctx, "warehouses.ListAll")(&err)

	if d.DB == nil {
		return nil, errors.New("warehouse directory: DB is nil")
	}

	rows, err := d.DB.QueryContext(ctx, `
	SELECT id, name, lat, lon, daily_dwell_cost
	FROM warehouses
	ORDER BY id;
	`)
	if err != nil {
		return nil, fmt.Errorf("list warehouses: query warehouses table: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Warehouse, 0, 32)
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("list warehouses: %w", err)
		}
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list warehouses: row iteration: %w", err)
	}

	return out, nil
}

func scanWarehouse(rows *sql.Rows) (domain.Warehouse, error) {
	var w domain.Warehouse
	if err := rows.Scan(&w.ID, &w.Name, &w.Location.Lat, &w.Location.Lon, &w.DailyDwellCost); err != nil {
		return domain.Warehouse{}, fmt.Errorf("scan row: %w", err)
	}
	return w, nil
}
