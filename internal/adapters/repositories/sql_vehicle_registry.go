package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/db"
	"strings"
)

// SQL implementation of ports.VehicleRegistry, bound to one transaction.
type sqlVehicleRegistry struct {
	q       queryer
	dialect db.Dialect
}

const vehicleColumns = `
	id, plate, max_weight_kg, max_volume_m3, cost_per_km,
	avg_fuel_consumption, available, active, carrier
`

func (r *sqlVehicleRegistry) FindByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	q := r.dialect.Rebind(`SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = ?` + forUpdate(r.dialect) + `;`)
	v, err := scanVehicle(r.q.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find vehicle: %w: id=%d", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("find vehicle id=%d: %w", id, err)
	}
	return v, nil
}

func (r *sqlVehicleRegistry) FindByPlate(ctx context.Context, plate string) (*domain.Vehicle, error) {
	plate = strings.TrimSpace(plate)
	if plate == "" {
		return nil, fmt.Errorf("find vehicle: %w: plate must not be empty", domain.ErrValidation)
	}

	q := r.dialect.Rebind(`SELECT ` + vehicleColumns + ` FROM vehicles WHERE plate = ?` + forUpdate(r.dialect) + `;`)
	v, err := scanVehicle(r.q.QueryRowContext(ctx, q, plate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("find vehicle: %w: plate=%q", domain.ErrNotFound, plate)
	}
	if err != nil {
		return nil, fmt.Errorf("find vehicle plate=%q: %w", plate, err)
	}
	return v, nil
}

func scanVehicle(row *sql.Row) (*domain.Vehicle, error) {
	var v domain.Vehicle
	err := row.Scan(
		&v.ID, &v.Plate, &v.MaxWeightKg, &v.MaxVolumeM3, &v.CostPerKm,
		&v.AvgFuelConsumption, &v.Available, &v.Active, &v.Carrier,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Save inserts a new vehicle when ID is zero, otherwise updates it.
func (r *sqlVehicleRegistry) Save(ctx context.Context, v *domain.Vehicle) error {
	if v.ID == 0 {
		q := r.dialect.Rebind(`
		INSERT INTO vehicles (plate, max_weight_kg, max_volume_m3, cost_per_km, avg_fuel_consumption, available, active, carrier)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id;
		`)
		err := r.q.QueryRowContext(ctx, q,
			v.Plate, v.MaxWeightKg, v.MaxVolumeM3, v.CostPerKm, v.AvgFuelConsumption, v.Available, v.Active, v.Carrier,
		).Scan(&v.ID)
		if isUniqueViolation(err) {
			return fmt.Errorf("save vehicle: %w: plate %q already registered", domain.ErrValidation, v.Plate)
		}
		if err != nil {
			return fmt.Errorf("save vehicle plate=%q: %w", v.Plate, err)
		}
		return nil
	}

	q := r.dialect.Rebind(`
	UPDATE vehicles
	SET plate = ?,
		max_weight_kg = ?,
		max_volume_m3 = ?,
		cost_per_km = ?,
		avg_fuel_consumption = ?,
		available = ?,
		active = ?,
		carrier = ?
	WHERE id = ?;
	`)
	res, err := r.q.ExecContext(ctx, q,
		v.Plate, v.MaxWeightKg, v.MaxVolumeM3, v.CostPerKm, v.AvgFuelConsumption, v.Available, v.Active, v.Carrier, v.ID,
	)
	if err != nil {
		return fmt.Errorf("save vehicle id=%d: %w", v.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("save vehicle: %w: id=%d", domain.ErrNotFound, v.ID)
	}
	return nil
}
