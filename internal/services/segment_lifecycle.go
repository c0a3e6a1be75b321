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
	"time"
)

// SegmentLifecycle drives segments through assign, start and finish.
// Every transition reads and writes route, segment and vehicle inside one
// transaction; notifications go out only after commit.
type SegmentLifecycle struct {
	UoW       ports.UnitOfWork
	Directory ports.WarehouseDirectory
	Requests  ports.RequestService
	Cargo     ports.CargoTracker
	Policy    domain.TransitionPolicy
	Costs     domain.CostModel
	Now       func() time.Time
}

func NewSegmentLifecycle(
	uow ports.UnitOfWork,
	directory ports.WarehouseDirectory,
	requests ports.RequestService,
	cargo ports.CargoTracker,
	policy domain.TransitionPolicy,
	costs domain.CostModel,
) *SegmentLifecycle {
	return &SegmentLifecycle{
		UoW:       uow,
		Directory: directory,
		Requests:  requests,
		Cargo:     cargo,
		Policy:    policy,
		Costs:     costs,
		Now:       time.Now,
	}
}

// AssignVehicle binds a vehicle to a segment and prices it from the schedule.
// Cargo is fetched before the transaction; if it cannot be fetched the
// assignment is refused.
func (l *SegmentLifecycle) AssignVehicle(ctx context.Context, segmentID int64, ref domain.VehicleRef) (_ *domain.Segment, err error) {
	defer obs.Time(ctx, "lifecycle.AssignVehicle")(&err)

	if ref.ID <= 0 && strings.TrimSpace(ref.Plate) == "" {
		return nil, fmt.Errorf("assign vehicle: %w: vehicle id or plate is required", domain.ErrValidation)
	}

	snapshot, err := l.routeBySegment(ctx, segmentID)
	if err != nil {
		return nil, fmt.Errorf("assign vehicle to segment %d: %w", segmentID, err)
	}

	cargo, err := l.Requests.GetCargo(ctx, snapshot.RequestID)
	if err != nil {
		return nil, fmt.Errorf("assign vehicle to segment %d: cargo unavailable: %w", segmentID, err)
	}

	dwell := l.dwellCosts(ctx, snapshot)

	var out domain.Segment
	err = l.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		route, err := repos.Routes.GetBySegment(ctx, segmentID)
		if err != nil {
			return err
		}
		i := route.Index(segmentID)
		seg := &route.Segments[i]

		if err := l.Policy.Check(seg.State, domain.SegmentAssigned); err != nil {
			return fmt.Errorf("segment %d: %w", segmentID, err)
		}

		v, err := findVehicle(ctx, repos.Vehicles, ref)
		if err != nil {
			return err
		}
		if err := v.Fits(cargo); err != nil {
			return err
		}

		if seg.VehicleID == nil || *seg.VehicleID != v.ID {
			if seg.VehicleID != nil {
				prev, err := repos.Vehicles.FindByID(ctx, *seg.VehicleID)
				if err != nil {
					return err
				}
				if err := domain.Release(seg, prev); err != nil {
					return err
				}
				if err := repos.Vehicles.Save(ctx, prev); err != nil {
					return err
				}
			}
			if err := domain.Bind(seg, v); err != nil {
				return err
			}
			if err := repos.Vehicles.Save(ctx, v); err != nil {
				return err
			}
		} else if !v.Active {
			return fmt.Errorf("%w: vehicle %s is inactive", domain.ErrState, v.Plate)
		}

		seg.ApproximateCost, _ = l.Costs.Approximate(*seg, route.Next(i), *v, dwellFor(dwell, seg.Destination))
		seg.State = domain.SegmentAssigned
		if err := repos.Routes.UpdateSegment(ctx, seg); err != nil {
			return err
		}

		out = *seg
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("assign vehicle %s to segment %d: %w", ref, segmentID, err)
	}

	metrics.SegmentTransitions.WithLabelValues(string(domain.SegmentAssigned)).Inc()
	return &out, nil
}

// StartSegment records the real start. Segments start strictly in order:
// the previous segment must have a real end no later than ts.
func (l *SegmentLifecycle) StartSegment(ctx context.Context, routeID, segmentID int64, ts *time.Time) (_ *domain.Segment, err error) {
	defer obs.Time(ctx, "lifecycle.StartSegment")(&err)

	at := l.at(ts)

	snapshot, err := l.routeByID(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("start segment %d: %w", segmentID, err)
	}
	dwell := l.dwellCosts(ctx, snapshot)

	var out domain.Segment
	var first bool
	var requestID int64
	err = l.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		route, err := repos.Routes.Get(ctx, routeID)
		if err != nil {
			return err
		}
		i := route.Index(segmentID)
		if i < 0 {
			return fmt.Errorf("%w: segment %d on route %d", domain.ErrNotFound, segmentID, routeID)
		}
		seg := &route.Segments[i]

		if seg.VehicleID == nil {
			return fmt.Errorf("%w: segment %d has no vehicle", domain.ErrState, segmentID)
		}
		if err := l.Policy.Check(seg.State, domain.SegmentStarted); err != nil {
			return fmt.Errorf("segment %d: %w", segmentID, err)
		}

		prev := route.Previous(i)
		if prev != nil {
			if prev.RealEnd == nil {
				return fmt.Errorf("%w: previous segment %d has not finished", domain.ErrState, prev.ID)
			}
			if at.Before(*prev.RealEnd) {
				return fmt.Errorf("%w: start %s precedes previous segment end %s", domain.ErrState, at.Format(time.RFC3339), prev.RealEnd.Format(time.RFC3339))
			}
		}

		seg.RealStart = &at
		seg.State = domain.SegmentStarted
		if err := repos.Routes.UpdateSegment(ctx, seg); err != nil {
			return err
		}

		// dwell on the previous segment is only known now
		if prev != nil && prev.VehicleID != nil {
			v, err := repos.Vehicles.FindByID(ctx, *prev.VehicleID)
			if err != nil {
				return err
			}
			if cost, _, ok := l.Costs.Real(*prev, seg, *v, dwellFor(dwell, prev.Destination)); ok {
				prev.RealCost = &cost
				if err := repos.Routes.UpdateSegment(ctx, prev); err != nil {
					return err
				}
			}
		}

		out = *seg
		first = i == 0
		requestID = route.RequestID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("start segment %d: %w", segmentID, err)
	}

	metrics.SegmentTransitions.WithLabelValues(string(domain.SegmentStarted)).Inc()

	if first {
		l.notifyRequest(ctx, requestID, domain.RequestInTransit)
		l.notifyCargo(ctx, requestID, domain.CargoInTransit)
	}
	return &out, nil
}

// FinishSegment records the real end, releases the vehicle and prices the
// segment. Finishing the last segment completes the route and pushes the
// final report.
func (l *SegmentLifecycle) FinishSegment(ctx context.Context, routeID, segmentID int64, ts *time.Time) (_ *domain.Segment, err error) {
	defer obs.Time(ctx, "lifecycle.FinishSegment")(&err)

	at := l.at(ts)

	snapshot, err := l.routeByID(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("finish segment %d: %w", segmentID, err)
	}
	dwell := l.dwellCosts(ctx, snapshot)

	var out domain.Segment
	var report *domain.FinalReport
	var atWarehouse bool
	var requestID int64
	err = l.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		route, err := repos.Routes.Get(ctx, routeID)
		if err != nil {
			return err
		}
		i := route.Index(segmentID)
		if i < 0 {
			return fmt.Errorf("%w: segment %d on route %d", domain.ErrNotFound, segmentID, routeID)
		}
		seg := &route.Segments[i]

		if err := l.Policy.Check(seg.State, domain.SegmentFinished); err != nil {
			return fmt.Errorf("segment %d: %w", segmentID, err)
		}
		if seg.RealStart == nil || seg.VehicleID == nil {
			return fmt.Errorf("%w: segment %d was never started", domain.ErrState, segmentID)
		}
		if at.Before(*seg.RealStart) {
			return fmt.Errorf("%w: end %s precedes start %s", domain.ErrState, at.Format(time.RFC3339), seg.RealStart.Format(time.RFC3339))
		}

		v, err := repos.Vehicles.FindByID(ctx, *seg.VehicleID)
		if err != nil {
			return err
		}
		if err := domain.Release(seg, v); err != nil {
			return err
		}
		if err := repos.Vehicles.Save(ctx, v); err != nil {
			return err
		}

		seg.RealEnd = &at
		seg.State = domain.SegmentFinished
		cost, _, _ := l.Costs.Real(*seg, route.Next(i), *v, dwellFor(dwell, seg.Destination))
		seg.RealCost = &cost
		if err := repos.Routes.UpdateSegment(ctx, seg); err != nil {
			return err
		}

		if route.IsLast(i) && route.AllFinished() {
			report = finalReport(l.Costs, route)
		}

		out = *seg
		atWarehouse = seg.Destination.IsWarehouse()
		requestID = route.RequestID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("finish segment %d: %w", segmentID, err)
	}

	metrics.SegmentTransitions.WithLabelValues(string(domain.SegmentFinished)).Inc()

	switch {
	case report != nil:
		l.notifyCargo(ctx, requestID, domain.CargoDelivered)
		if l.Requests != nil {
			bestEffort(ctx, "request.final_cost", func(ctx context.Context) error {
				return l.Requests.PushFinalCost(ctx, *report)
			})
		}
		l.notifyRequest(ctx, requestID, domain.RequestCompleted)
		log.Printf("req_id=%s route=%d completed final_cost=%.2f duration_h=%.2f",
			obs.RequestID(ctx), routeID, report.FinalCost, report.DurationHours)
	case atWarehouse:
		l.notifyCargo(ctx, requestID, domain.CargoInWarehouse)
	}

	return &out, nil
}

func finalReport(costs domain.CostModel, route *domain.Route) *domain.FinalReport {
	perSegment := make([]float64, 0, len(route.Segments))
	hours := make([]float64, 0, len(route.Segments))
	for _, s := range route.Segments {
		perSegment = append(perSegment, s.Cost())
		hours = append(hours, s.RealDurationHours())
	}
	return &domain.FinalReport{
		RequestID:     route.RequestID,
		RouteID:       route.ID,
		FinalCost:     costs.FinalCost(perSegment),
		DurationHours: domain.Sum(hours...),
	}
}

func findVehicle(ctx context.Context, reg ports.VehicleRegistry, ref domain.VehicleRef) (*domain.Vehicle, error) {
	if ref.ID > 0 {
		return reg.FindByID(ctx, ref.ID)
	}
	return reg.FindByPlate(ctx, strings.TrimSpace(ref.Plate))
}

func (l *SegmentLifecycle) routeBySegment(ctx context.Context, segmentID int64) (*domain.Route, error) {
	var route *domain.Route
	err := l.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		route, err = repos.Routes.GetBySegment(ctx, segmentID)
		return err
	})
	return route, err
}

func (l *SegmentLifecycle) routeByID(ctx context.Context, routeID int64) (*domain.Route, error) {
	var route *domain.Route
	err := l.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		route, err = repos.Routes.Get(ctx, routeID)
		return err
	})
	return route, err
}

// dwellCosts maps destination warehouses to their nightly cost. A directory
// failure prices dwell at zero and is logged.
func (l *SegmentLifecycle) dwellCosts(ctx context.Context, route *domain.Route) map[int64]float64 {
	return lookupDwellCosts(ctx, l.Directory, route)
}

func lookupDwellCosts(ctx context.Context, dir ports.WarehouseDirectory, route *domain.Route) map[int64]float64 {
	ids := make([]int64, 0, len(route.Segments))
	for _, s := range route.Segments {
		if s.Destination.IsWarehouse() {
			ids = append(ids, s.Destination.WarehouseID)
		}
	}

	out := make(map[int64]float64, len(ids))
	if len(ids) == 0 || dir == nil {
		return out
	}

	warehouses, err := dir.GetMany(ctx, ids)
	if err != nil {
		log.Printf("req_id=%s route=%d dwell costs unavailable err=%v", obs.RequestID(ctx), route.ID, err)
		return out
	}
	for id, w := range warehouses {
		out[id] = w.DailyDwellCost
	}
	return out
}

func dwellFor(costs map[int64]float64, dest domain.Waypoint) float64 {
	if !dest.IsWarehouse() {
		return 0
	}
	return costs[dest.WarehouseID]
}

func (l *SegmentLifecycle) notifyRequest(ctx context.Context, requestID int64, state string) {
	if l.Requests == nil {
		return
	}
	bestEffort(ctx, "request.state", func(ctx context.Context) error {
		return l.Requests.SetRequestState(ctx, requestID, state)
	})
}

func (l *SegmentLifecycle) notifyCargo(ctx context.Context, requestID int64, state string) {
	if l.Cargo == nil {
		return
	}
	bestEffort(ctx, "cargo.state", func(ctx context.Context) error {
		return l.Cargo.SetCargoState(ctx, requestID, state)
	})
}

func (l *SegmentLifecycle) at(ts *time.Time) time.Time {
	if ts != nil {
		return ts.UTC()
	}
	if l.Now == nil {
		return time.Now().UTC()
	}
	return l.Now().UTC()
}
