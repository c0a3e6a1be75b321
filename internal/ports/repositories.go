package ports

import (
	"context"
	"route-planning-service/internal/domain"
)

// Committed routes and their segments.
type RouteRepository interface {
	// Insert the route and its segments, filling generated ids.
	Create(ctx context.Context, route *domain.Route) error
	// Load a route with segments ordered by index. Lock it for update when
	// the backend supports row locks.
	Get(ctx context.Context, id int64) (*domain.Route, error)
	GetByRequest(ctx context.Context, requestID int64) (*domain.Route, error)
	GetBySegment(ctx context.Context, segmentID int64) (*domain.Route, error)
	UpdateSegment(ctx context.Context, seg *domain.Segment) error
	ReplaceSegments(ctx context.Context, route *domain.Route) error
	SetSelectedOption(ctx context.Context, routeID, optionID int64) error
}

// Tentative, request-scoped candidate routings.
type OptionStore interface {
	// Persist one generation batch. Options are numbered 1..n in slice order
	// and share a batch id.
	SaveBatch(ctx context.Context, options []domain.RouteOption) ([]domain.RouteOption, error)
	ListByRequest(ctx context.Context, requestID int64) ([]domain.RouteOption, error)
	ListByRoute(ctx context.Context, routeID int64) ([]domain.RouteOption, error)
	Get(ctx context.Context, id int64) (*domain.RouteOption, error)
	// Delete every option of the request except keep. Idempotent.
	DeleteByRequest(ctx context.Context, requestID int64, keep ...int64) error
	// Delete the other options of the request the given option belongs to.
	DeleteSiblings(ctx context.Context, optionID int64) error
	AttachToRoute(ctx context.Context, optionID, routeID int64) error
}

type VehicleRegistry interface {
	FindByID(ctx context.Context, id int64) (*domain.Vehicle, error)
	FindByPlate(ctx context.Context, plate string) (*domain.Vehicle, error)
	Save(ctx context.Context, v *domain.Vehicle) error
}

// Repositories bound to one transaction.
type Repositories struct {
	Routes   RouteRepository
	Options  OptionStore
	Vehicles VehicleRegistry
}

// UnitOfWork runs fn inside a single transaction. fn's error rolls back.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
