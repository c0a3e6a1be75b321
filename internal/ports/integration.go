package ports

import (
	"context"
	"route-planning-service/internal/domain"
)

// Port: the external request service owning transport requests.
type RequestService interface {
	GetRequest(ctx context.Context, requestID int64) (domain.TransportRequest, error)
	GetCargo(ctx context.Context, requestID int64) (domain.Cargo, error)
	SetRoute(ctx context.Context, requestID, routeID int64) error
	SetRequestState(ctx context.Context, requestID int64, state string) error
	PushFinalCost(ctx context.Context, report domain.FinalReport) error
}

// Port: outbound cargo state notifications.
type CargoTracker interface {
	SetCargoState(ctx context.Context, requestID int64, state string) error
}
