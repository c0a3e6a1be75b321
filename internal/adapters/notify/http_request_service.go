package notify

import (
	"context"
	"fmt"
	"net/http"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/metrics"
	"route-planning-service/internal/platform/obs"
	"time"
)

// HTTPRequestService implements ports.RequestService against the sibling
// request service's REST API.
type HTTPRequestService struct {
	client jsonClient
}

func NewHTTPRequestService(baseURL string, session *http.Client) *HTTPRequestService {
	return &HTTPRequestService{client: newJSONClient(baseURL, session)}
}

type pointDTO struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type requestDTO struct {
	ID                     int64     `json:"id"`
	CreatedAt              time.Time `json:"created_at"`
	OriginWarehouseID      int64     `json:"origin_warehouse_id"`
	DestinationWarehouseID int64     `json:"destination_warehouse_id"`
	Origin                 *pointDTO `json:"origin"`
	Destination            *pointDTO `json:"destination"`
	Intermediates          []int64   `json:"intermediate_warehouse_ids"`
	WantVariants           bool      `json:"want_variants"`
	RouteID                *int64    `json:"route_id"`
}

type cargoDTO struct {
	WeightKg *float64 `json:"weight_kg"`
	VolumeM3 *float64 `json:"volume_m3"`
}

// GetRequest fetches the request. An endpoint given only as a warehouse id
// becomes a warehouse waypoint; a raw point wins when both are present.
func (s *HTTPRequestService) GetRequest(ctx context.Context, requestID int64) (_ domain.TransportRequest, err error) {
	defer obs.Time(ctx, "requests.GetRequest")(&err)

	var dto requestDTO
	if err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/requests/%d", requestID), nil, &dto); err != nil {
		return domain.TransportRequest{}, fmt.Errorf("get request %d: %w", requestID, err)
	}

	req := domain.TransportRequest{
		ID:                     dto.ID,
		CreatedAt:              dto.CreatedAt,
		OriginWarehouseID:      dto.OriginWarehouseID,
		DestinationWarehouseID: dto.DestinationWarehouseID,
		Intermediates:          dto.Intermediates,
		WantVariants:           dto.WantVariants,
		RouteID:                dto.RouteID,
	}
	req.Origin = endpoint(dto.Origin, dto.OriginWarehouseID)
	req.Destination = endpoint(dto.Destination, dto.DestinationWarehouseID)

	return req, nil
}

func endpoint(p *pointDTO, warehouseID int64) domain.Waypoint {
	if p != nil {
		return domain.RawWaypoint(p.Lat, p.Lon)
	}
	return domain.WarehouseWaypoint(warehouseID)
}

// GetCargo fails when weight or volume is missing so capacity checks fail closed.
func (s *HTTPRequestService) GetCargo(ctx context.Context, requestID int64) (_ domain.Cargo, err error) {
	defer obs.Time(ctx, "requests.GetCargo")(&err)

	var dto cargoDTO
	if err := s.client.do(ctx, http.MethodGet, fmt.Sprintf("/requests/%d/cargo", requestID), nil, &dto); err != nil {
		return domain.Cargo{}, fmt.Errorf("get cargo for request %d: %w", requestID, err)
	}
	if dto.WeightKg == nil || dto.VolumeM3 == nil {
		return domain.Cargo{}, fmt.Errorf("get cargo for request %d: %w: weight or volume missing", requestID, domain.ErrIntegration)
	}

	return domain.Cargo{RequestID: requestID, WeightKg: *dto.WeightKg, VolumeM3: *dto.VolumeM3}, nil
}

func (s *HTTPRequestService) SetRoute(ctx context.Context, requestID, routeID int64) (err error) {
	defer obs.Time(ctx, "requests.SetRoute")(&err)
	defer countNotification("request.route", &err)

	body := map[string]int64{"route_id": routeID}
	return s.client.do(ctx, http.MethodPut, fmt.Sprintf("/requests/%d/route", requestID), body, nil)
}

func (s *HTTPRequestService) SetRequestState(ctx context.Context, requestID int64, state string) (err error) {
	defer obs.Time(ctx, "requests.SetRequestState")(&err)
	defer countNotification("request.state", &err)

	body := map[string]string{"state": state}
	return s.client.do(ctx, http.MethodPost, fmt.Sprintf("/requests/%d/state", requestID), body, nil)
}

func (s *HTTPRequestService) PushFinalCost(ctx context.Context, report domain.FinalReport) (err error) {
	defer obs.Time(ctx, "requests.PushFinalCost")(&err)
	defer countNotification("request.final_cost", &err)

	body := struct {
		RouteID       int64   `json:"route_id"`
		FinalCost     float64 `json:"final_cost"`
		DurationHours float64 `json:"duration_hours"`
	}{report.RouteID, report.FinalCost, report.DurationHours}
	return s.client.do(ctx, http.MethodPost, fmt.Sprintf("/requests/%d/final-cost", report.RequestID), body, nil)
}

func countNotification(target string, errp *error) {
	metrics.Notifications.WithLabelValues(target, metrics.Outcome(*errp)).Inc()
}
