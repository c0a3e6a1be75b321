package domain

import "fmt"

// Vehicle is a transport asset bound to at most one unfinished segment.
type Vehicle struct {
	ID                 int64
	Plate              string
	MaxWeightKg        float64
	MaxVolumeM3        float64
	CostPerKm          float64
	AvgFuelConsumption float64 // liters per km
	Available          bool
	Active             bool
	Carrier            string
}

// VehicleRef identifies a vehicle by id or, when ID is zero, by plate.
type VehicleRef struct {
	ID    int64
	Plate string
}

func (r VehicleRef) String() string {
	if r.ID != 0 {
		return fmt.Sprintf("id=%d", r.ID)
	}
	return fmt.Sprintf("plate=%q", r.Plate)
}

// Fits reports a CapacityError when the cargo exceeds either limit.
func (v *Vehicle) Fits(c Cargo) error {
	if c.WeightKg > v.MaxWeightKg {
		return fmt.Errorf("%w: cargo weight %.2fkg exceeds vehicle %s max %.2fkg", ErrCapacity, c.WeightKg, v.Plate, v.MaxWeightKg)
	}
	if c.VolumeM3 > v.MaxVolumeM3 {
		return fmt.Errorf("%w: cargo volume %.2fm3 exceeds vehicle %s max %.2fm3", ErrCapacity, c.VolumeM3, v.Plate, v.MaxVolumeM3)
	}
	return nil
}

// Bind attaches v to s and marks the vehicle unavailable.
// Both values must be saved in the same transaction.
func Bind(s *Segment, v *Vehicle) error {
	if !v.Active {
		return fmt.Errorf("%w: vehicle %s is inactive", ErrState, v.Plate)
	}
	if !v.Available {
		return fmt.Errorf("%w: vehicle %s is not available", ErrState, v.Plate)
	}

	id := v.ID
	s.VehicleID = &id
	v.Available = false
	return nil
}

// Release frees the vehicle bound to s. The segment keeps its vehicle id
// as a record of who drove it.
func Release(s *Segment, v *Vehicle) error {
	if s.VehicleID == nil || *s.VehicleID != v.ID {
		return fmt.Errorf("%w: vehicle %s is not bound to segment %d", ErrState, v.Plate, s.ID)
	}
	v.Available = true
	return nil
}
