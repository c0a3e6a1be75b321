package services

import (
	"context"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
)

// CostService prices a whole route from its current state.
type CostService struct {
	UoW       ports.UnitOfWork
	Directory ports.WarehouseDirectory
	Costs     domain.CostModel
}

func NewCostService(uow ports.UnitOfWork, directory ports.WarehouseDirectory, costs domain.CostModel) *CostService {
	return &CostService{UoW: uow, Directory: directory, Costs: costs}
}

// ComputeRouteCosts recomputes approximate and real costs for every segment.
// Segments without a vehicle keep their stored approximate cost.
// Nothing is written back.
func (s *CostService) ComputeRouteCosts(ctx context.Context, routeID int64) (_ domain.CostBreakdown, err error) {
	defer obs.Time(ctx, "costs.ComputeRouteCosts")(&err)

	var route *domain.Route
	vehicles := make(map[int64]domain.Vehicle)
	err = s.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		if route, err = repos.Routes.Get(ctx, routeID); err != nil {
			return err
		}
		for _, seg := range route.Segments {
			if seg.VehicleID == nil {
				continue
			}
			if _, seen := vehicles[*seg.VehicleID]; seen {
				continue
			}
			v, err := repos.Vehicles.FindByID(ctx, *seg.VehicleID)
			if err != nil {
				return err
			}
			vehicles[v.ID] = *v
		}
		return nil
	})
	if err != nil {
		return domain.CostBreakdown{}, fmt.Errorf("compute costs for route %d: %w", routeID, err)
	}

	dwell := lookupDwellCosts(ctx, s.Directory, route)

	out := domain.CostBreakdown{
		RouteID:  route.ID,
		Segments: make([]domain.SegmentCost, 0, len(route.Segments)),
	}

	approx := make([]float64, 0, len(route.Segments))
	actual := make([]float64, 0, len(route.Segments))
	final := make([]float64, 0, len(route.Segments))

	for i, seg := range route.Segments {
		sc := domain.SegmentCost{
			SegmentID:       seg.ID,
			Order:           seg.Order,
			DistanceKm:      seg.DistanceKm,
			ApproximateCost: seg.ApproximateCost,
		}

		next := route.Next(i)
		if seg.VehicleID != nil {
			v := vehicles[*seg.VehicleID]
			nightly := dwellFor(dwell, seg.Destination)

			sc.ApproximateCost, sc.DwellNights = s.Costs.Approximate(seg, next, v, nightly)
			if cost, nights, ok := s.Costs.Real(seg, next, v, nightly); ok {
				sc.RealCost = &cost
				sc.DwellNights = nights
			}
		}

		approx = append(approx, sc.ApproximateCost)
		if sc.RealCost != nil {
			actual = append(actual, *sc.RealCost)
			final = append(final, *sc.RealCost)
		} else {
			final = append(final, sc.ApproximateCost)
		}
		out.Segments = append(out.Segments, sc)
	}

	out.TotalApproximate = domain.Sum(approx...)
	out.TotalReal = domain.Sum(actual...)
	out.ManagementFee = domain.Round2(s.Costs.Params.ManagementFee * float64(len(route.Segments)))
	out.FinalCost = s.Costs.FinalCost(final)
	return out, nil
}
