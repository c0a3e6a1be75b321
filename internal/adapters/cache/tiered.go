package cache

import (
	"context"
	"errors"
	"log"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/ports"
)

// Tiered checks each cache in order and back-fills the faster tiers on a hit.
// A failing tier is skipped so an outage in one store does not hide the others.
type Tiered []ports.MeasurementCache

func (t Tiered) Get(ctx context.Context, origin, destination domain.Coordinates) (ports.Measurement, bool, error) {
	var errs []error
	for i, c := range t {
		m, ok, err := c.Get(ctx, origin, destination)
		if err != nil {
			log.Printf("cache tier read failed: tier=%d origin=%s destination=%s err=%v", i, origin.Key(), destination.Key(), err)
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}
		for j, faster := range t[:i] {
			if err := faster.Put(ctx, origin, destination, m); err != nil {
				log.Printf("cache tier backfill failed: tier=%d origin=%s destination=%s err=%v", j, origin.Key(), destination.Key(), err)
			}
		}
		return m, true, nil
	}
	return ports.Measurement{}, false, errors.Join(errs...)
}

func (t Tiered) Put(ctx context.Context, origin, destination domain.Coordinates, m ports.Measurement) error {
	var errs []error
	for _, c := range t {
		if err := c.Put(ctx, origin, destination, m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
