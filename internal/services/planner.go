package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
)

// Planner generates and lists tentative route options for a request.
type Planner struct {
	Requests ports.RequestService
	Selector *CandidateSelector
	UoW      ports.UnitOfWork
}

func NewPlanner(requests ports.RequestService, selector *CandidateSelector, uow ports.UnitOfWork) *Planner {
	return &Planner{Requests: requests, Selector: selector, UoW: uow}
}

// GenerateOptions replaces the request's uncommitted options with a fresh
// batch. When the request already has a route, the new options are tied to
// it and the route's selected option is preserved.
func (p *Planner) GenerateOptions(ctx context.Context, requestID int64) (_ []domain.RouteOption, err error) {
	defer obs.Time(ctx, "planner.GenerateOptions")(&err)

	req, err := p.Requests.GetRequest(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("generate options: load request %d: %w", requestID, err)
	}

	variants, err := p.Selector.Candidates(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate options: %w", err)
	}

	ok := successful(variants)
	if len(ok) == 0 {
		return nil, fmt.Errorf("generate options: %w: all %d variants failed for request %d", domain.ErrOracle, len(variants), requestID)
	}

	var saved []domain.RouteOption
	err = p.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var routeID *int64
		var keep []int64

		route, err := repos.Routes.GetByRequest(ctx, requestID)
		switch {
		case err == nil:
			routeID = &route.ID
			if route.SelectedOptionID != nil {
				keep = append(keep, *route.SelectedOptionID)
			}
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}

		if err := repos.Options.DeleteByRequest(ctx, requestID, keep...); err != nil {
			return err
		}

		drafts := make([]domain.RouteOption, 0, len(ok))
		for _, v := range ok {
			drafts = append(drafts, domain.NewRouteOption(requestID, routeID, v))
		}

		saved, err = repos.Options.SaveBatch(ctx, drafts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("generate options: %w", err)
	}

	log.Printf("req_id=%s request=%d options=%d discarded=%d", obs.RequestID(ctx), requestID, len(saved), len(variants)-len(ok))
	return saved, nil
}

// ListOptions returns summaries of the request's options in batch order.
func (p *Planner) ListOptions(ctx context.Context, requestID int64) (_ []domain.RouteOptionSummary, err error) {
	defer obs.Time(ctx, "planner.ListOptions")(&err)

	var out []domain.RouteOptionSummary
	err = p.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		opts, err := repos.Options.ListByRequest(ctx, requestID)
		if err != nil {
			return err
		}
		out = summarize(opts)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list options for request %d: %w", requestID, err)
	}
	return out, nil
}

// ListRouteOptions returns summaries of the options tied to a route.
func (p *Planner) ListRouteOptions(ctx context.Context, routeID int64) (_ []domain.RouteOptionSummary, err error) {
	defer obs.Time(ctx, "planner.ListRouteOptions")(&err)

	var out []domain.RouteOptionSummary
	err = p.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := repos.Routes.Get(ctx, routeID); err != nil {
			return err
		}
		opts, err := repos.Options.ListByRoute(ctx, routeID)
		if err != nil {
			return err
		}
		out = summarize(opts)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list options for route %d: %w", routeID, err)
	}
	return out, nil
}

// GetOption returns one option with its legs.
func (p *Planner) GetOption(ctx context.Context, optionID int64) (*domain.RouteOption, error) {
	var out *domain.RouteOption
	err := p.UoW.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		out, err = repos.Options.Get(ctx, optionID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get option %d: %w", optionID, err)
	}
	return out, nil
}

func summarize(opts []domain.RouteOption) []domain.RouteOptionSummary {
	out := make([]domain.RouteOptionSummary, 0, len(opts))
	for _, o := range opts {
		out = append(out, o.Summary())
	}
	return out
}
