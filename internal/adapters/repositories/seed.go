package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"route-planning-service/internal/platform/db"
	"strings"
)

type WarehouseSeed struct {
	ID             int64   `json:"id"`
	Name           string  `json:"name"`
	Lat            float64 `json:"lat"`
	Lon            float64 `json:"lon"`
	DailyDwellCost float64 `json:"daily_dwell_cost"`
}

type VehicleSeed struct {
	Plate              string  `json:"plate"`
	MaxWeightKg        float64 `json:"max_weight_kg"`
	MaxVolumeM3        float64 `json:"max_volume_m3"`
	CostPerKm          float64 `json:"cost_per_km"`
	AvgFuelConsumption float64 `json:"avg_fuel_consumption"`
	Active             *bool   `json:"active"`
	Carrier            string  `json:"carrier"`
}

type Seed struct {
	Warehouses []WarehouseSeed `json:"warehouses"`
	Vehicles   []VehicleSeed   `json:"vehicles"`
}

// Populate warehouses and vehicles from a JSON file. Existing rows are
// updated in place; vehicle availability is never reset.
func SeedFromJSON(ctx context.Context, conn *sql.DB, dialect db.Dialect, jsonPath string) error {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return fmt.Errorf("seed: read %q: %w", jsonPath, err)
	}

	var data Seed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return fmt.Errorf("seed: parse json: %w", err)
	}

	return ApplySeed(ctx, conn, dialect, data)
}

func ApplySeed(ctx context.Context, conn *sql.DB, dialect db.Dialect, data Seed) error {
	for i, w := range data.Warehouses {
		if w.ID <= 0 {
			return fmt.Errorf("seed warehouses: invalid id at index %d: %d", i+1, w.ID)
		}
		if strings.TrimSpace(w.Name) == "" {
			return fmt.Errorf("seed warehouses: item at index %d: name cannot be empty", i+1)
		}
	}
	for i, v := range data.Vehicles {
		if strings.TrimSpace(v.Plate) == "" {
			return fmt.Errorf("seed vehicles: item at index %d: plate cannot be empty", i+1)
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	whStmt, err := tx.PrepareContext(ctx, dialect.Rebind(`
	INSERT INTO warehouses (id, name, lat, lon, daily_dwell_cost)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		lat = EXCLUDED.lat,
		lon = EXCLUDED.lon,
		daily_dwell_cost = EXCLUDED.daily_dwell_cost;
	`))
	if err != nil {
		return fmt.Errorf("seed warehouses: prepare insert: %w", err)
	}
	defer whStmt.Close()

	for _, w := range data.Warehouses {
		if _, err := whStmt.ExecContext(ctx, w.ID, strings.TrimSpace(w.Name), w.Lat, w.Lon, w.DailyDwellCost); err != nil {
			return fmt.Errorf("seed warehouses: insert id=%d: %w", w.ID, err)
		}
	}

	vStmt, err := tx.PrepareContext(ctx, dialect.Rebind(`
	INSERT INTO vehicles (plate, max_weight_kg, max_volume_m3, cost_per_km, avg_fuel_consumption, available, active, carrier)
	VALUES (?, ?, ?, ?, ?, TRUE, ?, ?)
	ON CONFLICT (plate) DO UPDATE
	SET max_weight_kg = EXCLUDED.max_weight_kg,
		max_volume_m3 = EXCLUDED.max_volume_m3,
		cost_per_km = EXCLUDED.cost_per_km,
		avg_fuel_consumption = EXCLUDED.avg_fuel_consumption,
		active = EXCLUDED.active,
		carrier = EXCLUDED.carrier;
	`))
	if err != nil {
		return fmt.Errorf("seed vehicles: prepare insert: %w", err)
	}
	defer vStmt.Close()

	for _, v := range data.Vehicles {
		active := true
		if v.Active != nil {
			active = *v.Active
		}
		plate := strings.TrimSpace(v.Plate)
		if _, err := vStmt.ExecContext(ctx, plate, v.MaxWeightKg, v.MaxVolumeM3, v.CostPerKm, v.AvgFuelConsumption, active, v.Carrier); err != nil {
			return fmt.Errorf("seed vehicles: insert plate=%q: %w", plate, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
