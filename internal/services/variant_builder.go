package services

import (
	"context"
	"fmt"
	"log"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"strings"
)

// pathSeparator joins per-leg encoded polylines; it never occurs inside one.
const pathSeparator = ";"

// VariantBuilder measures an ordered waypoint chain leg by leg.
type VariantBuilder struct {
	Oracle    ports.DistanceOracle
	Directory ports.WarehouseDirectory
}

func NewVariantBuilder(oracle ports.DistanceOracle, directory ports.WarehouseDirectory) *VariantBuilder {
	return &VariantBuilder{Oracle: oracle, Directory: directory}
}

// Build returns a fully measured variant, or a failed variant carrying the
// reason. Only context cancellation and directory outages are returned as
// errors.
//
// A raw point that coincides with its warehouse yields a zero-length leg
// without calling the oracle, and an oracle zero on such a leg is accepted.
// A zero between two distinct warehouses fails the whole variant.
func (b *VariantBuilder) Build(ctx context.Context, chain []domain.Waypoint) (_ domain.Variant, err error) {
	defer obs.Time(ctx, "variant.Build")(&err)

	if len(chain) < 2 {
		return domain.Variant{}, fmt.Errorf("build variant: %w: chain needs at least two waypoints", domain.ErrValidation)
	}

	ids := make([]int64, 0, len(chain))
	for _, w := range chain {
		if w.IsWarehouse() {
			ids = append(ids, w.WarehouseID)
		}
	}

	warehouses, err := b.Directory.GetMany(ctx, ids)
	if err != nil {
		return domain.Variant{}, fmt.Errorf("build variant: resolve warehouses: %w", err)
	}

	resolved := make([]domain.Waypoint, len(chain))
	names := make([]string, len(chain))
	for i, w := range chain {
		if !w.IsWarehouse() {
			resolved[i] = w
			continue
		}
		wh, ok := warehouses[w.WarehouseID]
		if !ok {
			return failVariant(ctx, fmt.Sprintf("warehouse %d not found", w.WarehouseID)), nil
		}
		resolved[i] = wh.Waypoint()
		names[i] = wh.Name
	}

	legs := make([]domain.Leg, 0, len(chain)-1)
	distances := make([]float64, 0, len(chain)-1)
	durations := make([]float64, 0, len(chain)-1)
	paths := make([]string, 0, len(chain)-1)

	for i := 0; i+1 < len(resolved); i++ {
		from, to := resolved[i], resolved[i+1]
		leg := domain.Leg{
			Order:    i + 1,
			From:     from,
			To:       to,
			FromName: names[i],
			ToName:   names[i+1],
		}

		if leg.Mandatory() && from.WarehouseID == to.WarehouseID {
			return failVariant(ctx, fmt.Sprintf("leg %d repeats warehouse %d", leg.Order, from.WarehouseID)), nil
		}

		if !leg.Mandatory() && from.Point.SamePoint(to.Point) {
			legs = append(legs, leg)
			continue
		}

		m, err := b.Oracle.Measure(ctx, from.Point, to.Point)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Variant{}, fmt.Errorf("build variant: %w", ctxErr)
			}
			return failVariant(ctx, fmt.Sprintf("leg %d %s -> %s: %v", leg.Order, from, to, err)), nil
		}

		if m.DistanceKm < 0 || m.DurationHours < 0 {
			return failVariant(ctx, fmt.Sprintf("leg %d %s -> %s: negative measurement", leg.Order, from, to)), nil
		}
		if m.DistanceKm == 0 && leg.Mandatory() {
			return failVariant(ctx, fmt.Sprintf("leg %d %s -> %s: zero distance between distinct warehouses", leg.Order, from, to)), nil
		}

		leg.DistanceKm = m.DistanceKm
		leg.DurationHours = m.DurationHours
		leg.Path = m.Path
		legs = append(legs, leg)

		distances = append(distances, m.DistanceKm)
		durations = append(durations, m.DurationHours)
		if m.Path != "" {
			paths = append(paths, m.Path)
		}
	}

	metrics.Variants.WithLabelValues("ok").Inc()

	return domain.Variant{
		Legs:               legs,
		TotalDistanceKm:    domain.Sum(distances...),
		TotalDurationHours: domain.Sum(durations...),
		Path:               strings.Join(paths, pathSeparator),
	}, nil
}

func failVariant(ctx context.Context, reason string) domain.Variant {
	metrics.Variants.WithLabelValues("failed").Inc()
	log.Printf("req_id=%s variant discarded reason=%q", obs.RequestID(ctx), reason)
	return domain.Variant{Reason: reason}
}
