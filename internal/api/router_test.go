package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"route-planning-service/internal/api/dto"
	"route-planning-service/internal/domain"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPlanner struct {
	opts []domain.RouteOption
	err  error
}

func (s *stubPlanner) GenerateOptions(ctx context.Context, requestID int64) ([]domain.RouteOption, error) {
	return s.opts, s.err
}

func (s *stubPlanner) ListOptions(ctx context.Context, requestID int64) ([]domain.RouteOptionSummary, error) {
	var out []domain.RouteOptionSummary
	for _, o := range s.opts {
		out = append(out, o.Summary())
	}
	return out, s.err
}

func (s *stubPlanner) ListRouteOptions(ctx context.Context, routeID int64) ([]domain.RouteOptionSummary, error) {
	return s.ListOptions(ctx, 0)
}

func (s *stubPlanner) GetOption(ctx context.Context, optionID int64) (*domain.RouteOption, error) {
	for _, o := range s.opts {
		if o.ID == optionID {
			return &o, nil
		}
	}
	return nil, fmt.Errorf("get option: %w: option %d", domain.ErrNotFound, optionID)
}

type stubCommitter struct {
	route *domain.Route
	err   error
}

func (s *stubCommitter) CommitBest(ctx context.Context, requestID int64) (*domain.Route, error) {
	return s.route, s.err
}

func (s *stubCommitter) ConfirmOption(ctx context.Context, optionID int64) (*domain.Route, error) {
	return s.route, s.err
}

func (s *stubCommitter) SelectOption(ctx context.Context, routeID, optionID int64) (*domain.Route, error) {
	return s.route, s.err
}

func (s *stubCommitter) GetRoute(ctx context.Context, routeID int64) (*domain.Route, error) {
	return s.route, s.err
}

type stubLifecycle struct {
	lastRef domain.VehicleRef
	lastTS  *time.Time
	err     error
}

func (s *stubLifecycle) AssignVehicle(ctx context.Context, segmentID int64, ref domain.VehicleRef) (*domain.Segment, error) {
	s.lastRef = ref
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Segment{ID: segmentID, State: domain.SegmentAssigned}, nil
}

func (s *stubLifecycle) StartSegment(ctx context.Context, routeID, segmentID int64, ts *time.Time) (*domain.Segment, error) {
	s.lastTS = ts
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Segment{ID: segmentID, RouteID: routeID, State: domain.SegmentStarted, RealStart: ts}, nil
}

func (s *stubLifecycle) FinishSegment(ctx context.Context, routeID, segmentID int64, ts *time.Time) (*domain.Segment, error) {
	s.lastTS = ts
	if s.err != nil {
		return nil, s.err
	}
	return &domain.Segment{ID: segmentID, RouteID: routeID, State: domain.SegmentFinished}, nil
}

type stubCosts struct{}

func (stubCosts) ComputeRouteCosts(ctx context.Context, routeID int64) (domain.CostBreakdown, error) {
	return domain.CostBreakdown{RouteID: routeID, ManagementFee: 30, FinalCost: 489.38}, nil
}

type stubDB struct{ err error }

func (s stubDB) PingContext(ctx context.Context) error { return s.err }

func newTestRouter(planner *stubPlanner, committer *stubCommitter, lifecycle *stubLifecycle) http.Handler {
	return NewRouter(Dependencies{
		Planner:   planner,
		Committer: committer,
		Lifecycle: lifecycle,
		Costs:     stubCosts{},
		DB:        stubDB{},
	})
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleRoute() *domain.Route {
	vid := int64(4)
	return &domain.Route{
		ID:        7,
		RequestID: 100,
		Segments: []domain.Segment{{
			ID:          11,
			RouteID:     7,
			Order:       1,
			Origin:      domain.RawWaypoint(40.42, -3.70),
			Destination: domain.Warehouse{ID: 1, Name: "Madrid", Location: domain.Coordinates{Lat: 40.4168, Lon: -3.7038}}.Waypoint(),
			DestName:    "Madrid",
			VehicleID:   &vid,
			State:       domain.SegmentAssigned,
		}},
	}
}

func TestHealth(t *testing.T) {
	rec := serve(newTestRouter(&stubPlanner{}, &stubCommitter{}, &stubLifecycle{}), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	h := NewRouter(Dependencies{DB: stubDB{err: errors.New("connection refused")}})
	rec = serve(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDIsPropagated(t *testing.T) {
	h := newTestRouter(&stubPlanner{}, &stubCommitter{}, &stubLifecycle{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestGenerateOptions(t *testing.T) {
	planner := &stubPlanner{opts: []domain.RouteOption{
		{ID: 1, RequestID: 100, Index: 1, TotalDistanceKm: 312.5, WarehouseIDs: []int64{1, 2}},
		{ID: 2, RequestID: 100, Index: 2, TotalDistanceKm: 317.5, WarehouseIDs: []int64{1, 3, 2}},
	}}
	h := newTestRouter(planner, &stubCommitter{}, &stubLifecycle{})

	rec := serve(h, http.MethodPost, "/requests/100/options", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var res dto.ListOptionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	require.Len(t, res.Options, 2)
	assert.Equal(t, int64(2), res.Options[1].OptionID)
	assert.Equal(t, []int64{1, 3, 2}, res.Options[1].WarehouseIDs)

	rec = serve(h, http.MethodGet, "/options/2", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/options/9", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPathIDValidation(t *testing.T) {
	h := newTestRouter(&stubPlanner{}, &stubCommitter{}, &stubLifecycle{})

	rec := serve(h, http.MethodPost, "/requests/abc/options", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodGet, "/routes/0", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodDelete, "/routes/1", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServiceErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("commit: %w: dup", domain.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("commit: %w", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("commit: %w", domain.ErrCapacity), http.StatusConflict},
		{fmt.Errorf("commit: %w", domain.ErrState), http.StatusConflict},
		{fmt.Errorf("commit: %w", domain.ErrOracle), http.StatusBadGateway},
		{fmt.Errorf("commit: %w", domain.ErrIntegration), http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		h := newTestRouter(&stubPlanner{}, &stubCommitter{err: tt.err}, &stubLifecycle{})
		rec := serve(h, http.MethodPost, "/requests/100/route", "")
		assert.Equal(t, tt.want, rec.Code, tt.err.Error())
	}

	h := newTestRouter(&stubPlanner{}, &stubCommitter{err: errors.New("disk on fire")}, &stubLifecycle{})
	rec := serve(h, http.MethodPost, "/requests/100/route", "")
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestCommitAndGetRoute(t *testing.T) {
	h := newTestRouter(&stubPlanner{}, &stubCommitter{route: sampleRoute()}, &stubLifecycle{})

	rec := serve(h, http.MethodPost, "/requests/100/route", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var res dto.RouteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, int64(7), res.RouteID)
	require.Len(t, res.Segments, 1)
	assert.Equal(t, "Madrid", res.Segments[0].Destination.Name)
	require.NotNil(t, res.Segments[0].Destination.WarehouseID)
	assert.Equal(t, int64(1), *res.Segments[0].Destination.WarehouseID)
	assert.Nil(t, res.Segments[0].Origin.WarehouseID)

	rec = serve(h, http.MethodGet, "/routes/7", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodPost, "/routes/7/options/3/select", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(h, http.MethodGet, "/routes/7/costs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var costs dto.CostBreakdownResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&costs))
	assert.Equal(t, 489.38, costs.FinalCost)
}

func TestAssignVehicle(t *testing.T) {
	lifecycle := &stubLifecycle{}
	h := newTestRouter(&stubPlanner{}, &stubCommitter{}, lifecycle)

	rec := serve(h, http.MethodPost, "/segments/11/assign", `{"plate":" 1234-ABC "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.VehicleRef{Plate: "1234-ABC"}, lifecycle.lastRef)

	rec = serve(h, http.MethodPost, "/segments/11/assign", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodPost, "/segments/11/assign", `{"vehicle_id":4,"driver":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "unknown fields are rejected")

	rec = serve(h, http.MethodPost, "/segments/11/assign", `{"vehicle_id":4}{"vehicle_id":5}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	lifecycle.err = fmt.Errorf("assign: %w", domain.ErrCapacity)
	rec = serve(h, http.MethodPost, "/segments/11/assign", `{"vehicle_id":4}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestStartAndFinish(t *testing.T) {
	lifecycle := &stubLifecycle{}
	h := newTestRouter(&stubPlanner{}, &stubCommitter{}, lifecycle)

	rec := serve(h, http.MethodPost, "/routes/7/segments/11/start", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, lifecycle.lastTS, "empty body means now")

	rec = serve(h, http.MethodPost, "/routes/7/segments/11/finish", `{"at":"2025-03-11T08:15:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, lifecycle.lastTS)
	assert.True(t, lifecycle.lastTS.Equal(time.Date(2025, 3, 11, 8, 15, 0, 0, time.UTC)))

	var res dto.SegmentResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.Equal(t, string(domain.SegmentFinished), res.State)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(&stubPlanner{}, &stubCommitter{}, &stubLifecycle{})
	serve(h, http.MethodGet, "/health", "")

	rec := serve(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
}
