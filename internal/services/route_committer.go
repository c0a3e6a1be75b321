package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"time"
)

// Schedule controls how committed segments are laid out in time.
type Schedule struct {
	// DwellBuffer is added after every segment that ends at a warehouse.
	DwellBuffer time.Duration
	// Location decides the local midnight the first segment starts at.
	Location *time.Location
}

// FirstStart returns local midnight of the day after createdAt.
func (s Schedule) FirstStart(createdAt time.Time) time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	t := createdAt.In(loc).AddDate(0, 0, 1)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// RouteCommitter turns a chosen variant or option into a persisted route.
type RouteCommitter struct {
	Requests  ports.RequestService
	Selector  *CandidateSelector
	Directory ports.WarehouseDirectory
	UoW       ports.UnitOfWork
	Schedule  Schedule
	Now       func() time.Time
}

func NewRouteCommitter(
	requests ports.RequestService,
	selector *CandidateSelector,
	directory ports.WarehouseDirectory,
	uow ports.UnitOfWork,
	schedule Schedule,
) *RouteCommitter {
	return &RouteCommitter{
		Requests:  requests,
		Selector:  selector,
		Directory: directory,
		UoW:       uow,
		Schedule:  schedule,
		Now:       time.Now,
	}
}

// CommitBest measures the request's candidates and commits the shortest.
func (c *RouteCommitter) CommitBest(ctx context.Context, requestID int64) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "committer.CommitBest")(&err)

	req, err := c.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("commit best: load request %d: %w", requestID, err)
	}

	if err := c.ensureNoRoute(ctx, requestID); err != nil {
		return nil, fmt.Errorf("commit best: %w", err)
	}

	variants, err := c.Selector.Candidates(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("commit best: %w", err)
	}

	best, err := SelectBest(variants)
	if err != nil {
		return nil, fmt.Errorf("commit best: request %d: %w", requestID, err)
	}

	segments, err := c.materialize(ctx, req.CreatedAt, best.Legs)
	if err != nil {
		return nil, fmt.Errorf("commit best: %w", err)
	}

	route := &domain.Route{
		RequestID: requestID,
		CreatedAt: c.now(),
		Segments:  segments,
	}

	err = c.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := repos.Routes.Create(ctx, route); err != nil {
			return err
		}
		return repos.Options.DeleteByRequest(ctx, requestID)
	})
	if err != nil {
		return nil, fmt.Errorf("commit best: %w", err)
	}

	c.announce(ctx, route, false)
	return route, nil
}

// ConfirmOption commits a persisted option as the request's route and
// deletes its siblings.
func (c *RouteCommitter) ConfirmOption(ctx context.Context, optionID int64) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "committer.ConfirmOption")(&err)

	opt, err := c.loadOption(ctx, optionID)
	if err != nil {
		return nil, fmt.Errorf("confirm option: %w", err)
	}

	if err := c.ensureNoRoute(ctx, opt.RequestID); err != nil {
		return nil, fmt.Errorf("confirm option %d: %w", optionID, err)
	}

	req, err := c.Requests.GetRequest(ctx, opt.RequestID)
	if err != nil {
		return nil, fmt.Errorf("confirm option %d: load request %d: %w", optionID, opt.RequestID, err)
	}

	segments, err := c.materialize(ctx, req.CreatedAt, opt.Legs)
	if err != nil {
		return nil, fmt.Errorf("confirm option %d: %w", optionID, err)
	}

	route := &domain.Route{
		RequestID:        opt.RequestID,
		CreatedAt:        c.now(),
		SelectedOptionID: &optionID,
		Segments:         segments,
	}

	err = c.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		// the option may have been deleted by a concurrent regeneration
		if _, err := repos.Options.Get(ctx, optionID); err != nil {
			return err
		}
		if err := repos.Routes.Create(ctx, route); err != nil {
			return err
		}
		if err := repos.Options.AttachToRoute(ctx, optionID, route.ID); err != nil {
			return err
		}
		return repos.Options.DeleteSiblings(ctx, optionID)
	})
	if err != nil {
		return nil, fmt.Errorf("confirm option %d: %w", optionID, err)
	}

	c.announce(ctx, route, true)
	return route, nil
}

// SelectOption swaps the segments of an untouched route for those of
// another option tied to it.
func (c *RouteCommitter) SelectOption(ctx context.Context, routeID, optionID int64) (_ *domain.Route, err error) {
	defer obs.Time(ctx, "committer.SelectOption")(&err)

	var route *domain.Route
	var opt *domain.RouteOption
	err = c.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		if route, err = repos.Routes.Get(ctx, routeID); err != nil {
			return err
		}
		if opt, err = repos.Options.Get(ctx, optionID); err != nil {
			return err
		}
		return checkSelectable(route, opt)
	})
	if err != nil {
		return nil, fmt.Errorf("select option %d for route %d: %w", optionID, routeID, err)
	}

	req, err := c.Requests.GetRequest(ctx, route.RequestID)
	if err != nil {
		return nil, fmt.Errorf("select option %d: load request %d: %w", optionID, route.RequestID, err)
	}

	segments, err := c.materialize(ctx, req.CreatedAt, opt.Legs)
	if err != nil {
		return nil, fmt.Errorf("select option %d: %w", optionID, err)
	}

	err = c.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		current, err := repos.Routes.Get(ctx, routeID)
		if err != nil {
			return err
		}
		fresh, err := repos.Options.Get(ctx, optionID)
		if err != nil {
			return err
		}
		if err := checkSelectable(current, fresh); err != nil {
			return err
		}

		current.Segments = segments
		current.SelectedOptionID = &optionID
		if err := repos.Routes.ReplaceSegments(ctx, current); err != nil {
			return err
		}
		if err := repos.Routes.SetSelectedOption(ctx, routeID, optionID); err != nil {
			return err
		}
		if err := repos.Options.DeleteSiblings(ctx, optionID); err != nil {
			return err
		}
		route = current
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("select option %d for route %d: %w", optionID, routeID, err)
	}

	return route, nil
}

// GetRoute loads a route with its segments.
func (c *RouteCommitter) GetRoute(ctx context.Context, routeID int64) (*domain.Route, error) {
	var route *domain.Route
	err := c.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		route, err = repos.Routes.Get(ctx, routeID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return route, nil
}

func checkSelectable(route *domain.Route, opt *domain.RouteOption) error {
	if opt.RouteID == nil || *opt.RouteID != route.ID {
		return fmt.Errorf("%w: option %d is not tied to route %d", domain.ErrState, opt.ID, route.ID)
	}
	for _, s := range route.Segments {
		if s.State != domain.SegmentCreated {
			return fmt.Errorf("%w: segment %d is %s", domain.ErrState, s.ID, s.State)
		}
	}
	return nil
}

// materialize resolves leg endpoints against the directory and lays the
// segments out back to back from the first start.
// An unresolvable warehouse on a warehouse-to-warehouse leg aborts; on any
// other leg the segment is kept with its stored coordinates and marked degraded.
func (c *RouteCommitter) materialize(ctx context.Context, createdAt time.Time, legs []domain.Leg) ([]domain.Segment, error) {
	if len(legs) == 0 {
		return nil, fmt.Errorf("%w: option has no legs", domain.ErrValidation)
	}

	ids := make([]int64, 0, len(legs)*2)
	for _, l := range legs {
		if l.From.IsWarehouse() {
			ids = append(ids, l.From.WarehouseID)
		}
		if l.To.IsWarehouse() {
			ids = append(ids, l.To.WarehouseID)
		}
	}

	warehouses, dirErr := c.Directory.GetMany(ctx, ids)
	if dirErr != nil {
		log.Printf("req_id=%s materialize: warehouse lookup failed err=%v", obs.RequestID(ctx), dirErr)
		warehouses = map[int64]domain.Warehouse{}
	}

	resolve := func(w domain.Waypoint, name string) (domain.Waypoint, string, bool) {
		if !w.IsWarehouse() {
			return w, name, true
		}
		wh, ok := warehouses[w.WarehouseID]
		if !ok {
			return w, name, false
		}
		return wh.Waypoint(), wh.Name, true
	}

	segments := make([]domain.Segment, 0, len(legs))
	start := c.Schedule.FirstStart(createdAt)

	for i, l := range legs {
		origin, originName, okO := resolve(l.From, l.FromName)
		dest, destName, okD := resolve(l.To, l.ToName)

		if !okO || !okD {
			if l.Mandatory() {
				if dirErr != nil {
					return nil, fmt.Errorf("%w: resolve leg %d: %v", domain.ErrIntegration, l.Order, dirErr)
				}
				return nil, fmt.Errorf("%w: leg %d %s -> %s references an unknown warehouse", domain.ErrNotFound, l.Order, l.From, l.To)
			}
			log.Printf("req_id=%s materialize: leg %d %s -> %s degraded", obs.RequestID(ctx), l.Order, l.From, l.To)
		}

		if i > 0 {
			prev := segments[i-1]
			start = prev.ScheduledEnd
			if prev.Destination.IsWarehouse() {
				start = start.Add(c.Schedule.DwellBuffer)
			}
		}

		seg := domain.Segment{
			Order:          i + 1,
			Origin:         origin,
			Destination:    dest,
			OriginName:     originName,
			DestName:       destName,
			DistanceKm:     l.DistanceKm,
			DurationHours:  l.DurationHours,
			Path:           l.Path,
			ScheduledStart: start,
			Degraded:       !okO || !okD,
			State:          domain.SegmentCreated,
			AutoGenerated:  true,
		}
		seg.ScheduledEnd = start.Add(seg.Duration())
		segments = append(segments, seg)
	}

	return segments, nil
}

func (c *RouteCommitter) ensureNoRoute(ctx context.Context, requestID int64) error {
	return c.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		route, err := repos.Routes.GetByRequest(ctx, requestID)
		if err == nil {
			return fmt.Errorf("%w: request %d already has route %d", domain.ErrValidation, requestID, route.ID)
		}
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	})
}

func (c *RouteCommitter) loadOption(ctx context.Context, optionID int64) (*domain.RouteOption, error) {
	var opt *domain.RouteOption
	err := c.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		opt, err = repos.Options.Get(ctx, optionID)
		return err
	})
	return opt, err
}

// announce tells the request service about a new route. Failures are logged;
// the route stays committed.
func (c *RouteCommitter) announce(ctx context.Context, route *domain.Route, programmed bool) {
	if c.Requests == nil {
		return
	}
	bestEffort(ctx, "request.route", func(ctx context.Context) error {
		return c.Requests.SetRoute(ctx, route.RequestID, route.ID)
	})
	if !programmed {
		return
	}
	bestEffort(ctx, "request.state", func(ctx context.Context) error {
		return c.Requests.SetRequestState(ctx, route.RequestID, domain.RequestProgrammed)
	})
}

func (c *RouteCommitter) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

func bestEffort(ctx context.Context, target string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		log.Printf("req_id=%s notify=%s err=%v", obs.RequestID(ctx), target, err)
	}
}
