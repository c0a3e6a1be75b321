package services

import (
	"context"
	"errors"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/ports"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitBestMaterializesShortestVariant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	route, err := f.committer.CommitBest(ctx, 101)
	require.NoError(t, err)
	require.NotZero(t, route.ID)

	got := f.route(t, route.ID)
	require.Len(t, got.Segments, 3)
	require.NoError(t, got.ValidateOrder())

	s1, s2, s3 := got.Segments[0], got.Segments[1], got.Segments[2]

	assert.Equal(t, domain.RawPoint, s1.Origin.Kind)
	assert.Equal(t, int64(1), s1.Destination.WarehouseID)
	assert.Equal(t, "Madrid", s1.DestName)
	assert.Equal(t, madrid.Location, s1.Destination.Point)
	assert.Equal(t, 310.0, s2.DistanceKm)
	assert.Equal(t, "p1", s2.Path)
	assert.Equal(t, domain.RawPoint, s3.Destination.Kind)

	// first start is local midnight of the day after the request was created;
	// every warehouse arrival adds the dwell buffer
	assert.True(t, s1.ScheduledStart.Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)))
	assert.True(t, s1.ScheduledEnd.Equal(time.Date(2025, 3, 11, 0, 15, 0, 0, time.UTC)))
	assert.True(t, s2.ScheduledStart.Equal(time.Date(2025, 3, 12, 0, 15, 0, 0, time.UTC)))
	assert.True(t, s2.ScheduledEnd.Equal(time.Date(2025, 3, 12, 3, 45, 0, 0, time.UTC)))
	assert.True(t, s3.ScheduledStart.Equal(time.Date(2025, 3, 13, 3, 45, 0, 0, time.UTC)))
	assert.True(t, s3.ScheduledEnd.Equal(time.Date(2025, 3, 13, 4, 15, 0, 0, time.UTC)))

	for i, s := range got.Segments {
		assert.Equal(t, domain.SegmentCreated, s.State)
		assert.True(t, s.AutoGenerated)
		assert.False(t, s.Degraded)
		assert.Nil(t, s.VehicleID)
		if i > 0 {
			assert.False(t, s.ScheduledStart.Before(got.Segments[i-1].ScheduledEnd))
		}
	}

	routeID, ok := f.requests.RouteOf(101)
	require.True(t, ok)
	assert.Equal(t, route.ID, routeID)
	assert.Empty(t, f.requests.StatesFor(101), "only the confirm path marks a request programmed")
}

func TestCommitBestRejectsSecondRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.committer.CommitBest(ctx, 100)
	require.NoError(t, err)
	calls := f.oracle.Calls()

	_, err = f.committer.CommitBest(ctx, 100)
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, calls, f.oracle.Calls(), "duplicate commit must not measure again")
}

func TestCommitBestDeletesOptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.planner.GenerateOptions(ctx, 101)
	require.NoError(t, err)

	_, err = f.committer.CommitBest(ctx, 101)
	require.NoError(t, err)

	left, err := f.planner.ListOptions(ctx, 101)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestCommitSurvivesNotificationFailure(t *testing.T) {
	f := newFixture(t)
	f.requests.NotifyErr = errors.New("request service down")

	route, err := f.committer.CommitBest(context.Background(), 100)
	require.NoError(t, err)
	assert.Len(t, f.route(t, route.ID).Segments, 3)
}

func TestConfirmOption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opts, err := f.planner.GenerateOptions(ctx, 101)
	require.NoError(t, err)
	chosen := opts[1]

	route, err := f.committer.ConfirmOption(ctx, chosen.ID)
	require.NoError(t, err)
	require.NotNil(t, route.SelectedOptionID)
	assert.Equal(t, chosen.ID, *route.SelectedOptionID)

	got := f.route(t, route.ID)
	require.Len(t, got.Segments, 4)
	for i, leg := range chosen.Legs {
		assert.Equal(t, leg.DistanceKm, got.Segments[i].DistanceKm)
		assert.Equal(t, leg.DurationHours, got.Segments[i].DurationHours)
	}
	assert.Equal(t, []int64{madrid.ID, guadalajara.ID, zaragoza.ID}, chosen.WarehouseIDs)
	assert.Equal(t, chosen.WarehouseIDs, segmentWarehouses(got))

	left, err := f.planner.ListOptions(ctx, 101)
	require.NoError(t, err)
	require.Len(t, left, 1, "siblings are deleted")
	assert.Equal(t, chosen.ID, left[0].ID)
	require.NotNil(t, left[0].RouteID)
	assert.Equal(t, route.ID, *left[0].RouteID)

	assert.Equal(t, []string{domain.RequestProgrammed}, f.requests.StatesFor(101))

	_, err = f.committer.ConfirmOption(ctx, opts[0].ID)
	require.Error(t, err)
}

// segmentWarehouses lists the warehouses a route's segments pass through, in order.
func segmentWarehouses(route *domain.Route) []int64 {
	var out []int64
	for _, s := range route.Segments {
		for _, w := range []domain.Waypoint{s.Origin, s.Destination} {
			if !w.IsWarehouse() {
				continue
			}
			if n := len(out); n > 0 && out[n-1] == w.WarehouseID {
				continue
			}
			out = append(out, w.WarehouseID)
		}
	}
	return out
}

func TestConfirmOptionUnknown(t *testing.T) {
	f := newFixture(t)

	_, err := f.committer.ConfirmOption(context.Background(), 42)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func saveOption(t *testing.T, f *fixture, requestID int64, legs []domain.Leg) domain.RouteOption {
	t.Helper()

	var saved []domain.RouteOption
	err := f.store.Do(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		var err error
		saved, err = repos.Options.SaveBatch(ctx, []domain.RouteOption{{RequestID: requestID, Legs: legs}})
		return err
	})
	require.NoError(t, err)
	return saved[0]
}

func TestConfirmOptionDegradesUnresolvedLeg(t *testing.T) {
	f := newFixture(t)

	gone := domain.Waypoint{Kind: domain.WarehouseStop, WarehouseID: 99, Point: domain.Coordinates{Lat: 40.5, Lon: -3.5}}
	opt := saveOption(t, f, 100, []domain.Leg{
		{Order: 1, From: domain.RawWaypoint(pickup.Lat, pickup.Lon), To: gone, DistanceKm: 20, DurationHours: 0.5},
	})

	route, err := f.committer.ConfirmOption(context.Background(), opt.ID)
	require.NoError(t, err)

	seg := f.route(t, route.ID).Segments[0]
	assert.True(t, seg.Degraded)
	assert.Equal(t, gone.Point, seg.Destination.Point)
}

func TestConfirmOptionAbortsOnUnknownMandatoryLeg(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opt := saveOption(t, f, 100, []domain.Leg{
		{Order: 1, From: domain.WarehouseWaypoint(1), To: domain.WarehouseWaypoint(99), DistanceKm: 20, DurationHours: 0.5},
	})

	_, err := f.committer.ConfirmOption(ctx, opt.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	err = f.store.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		_, err := repos.Routes.GetByRequest(ctx, 100)
		return err
	})
	require.ErrorIs(t, err, domain.ErrNotFound, "nothing is persisted")
}

func TestSelectOptionReplansUntouchedRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	route, err := f.committer.CommitBest(ctx, 101)
	require.NoError(t, err)

	opts, err := f.planner.GenerateOptions(ctx, 101)
	require.NoError(t, err)
	for _, o := range opts {
		require.NotNil(t, o.RouteID, "options generated after commit are tied to the route")
	}

	tied, err := f.planner.ListRouteOptions(ctx, route.ID)
	require.NoError(t, err)
	assert.Len(t, tied, len(opts))

	viaSoria := opts[2]
	replanned, err := f.committer.SelectOption(ctx, route.ID, viaSoria.ID)
	require.NoError(t, err)
	assert.Equal(t, route.ID, replanned.ID)

	got := f.route(t, route.ID)
	require.Len(t, got.Segments, 4)
	require.NotNil(t, got.SelectedOptionID)
	assert.Equal(t, viaSoria.ID, *got.SelectedOptionID)
	assert.Equal(t, "Soria", got.Segments[1].DestName)

	left, err := f.planner.ListRouteOptions(ctx, route.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, viaSoria.ID, left[0].ID)

	// regenerating keeps the selected option
	_, err = f.planner.GenerateOptions(ctx, 101)
	require.NoError(t, err)
	_, err = f.planner.GetOption(ctx, viaSoria.ID)
	require.NoError(t, err)
}

func TestSelectOptionRejectsStartedRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	route, err := f.committer.CommitBest(ctx, 101)
	require.NoError(t, err)

	opts, err := f.planner.GenerateOptions(ctx, 101)
	require.NoError(t, err)

	_, err = f.lifecycle.AssignVehicle(ctx, route.Segments[0].ID, domain.VehicleRef{Plate: "1111-AAA"})
	require.NoError(t, err)

	_, err = f.committer.SelectOption(ctx, route.ID, opts[1].ID)
	require.ErrorIs(t, err, domain.ErrState)
}

func TestSelectOptionRejectsForeignOption(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	route, err := f.committer.CommitBest(ctx, 100)
	require.NoError(t, err)

	other, err := f.planner.GenerateOptions(ctx, 101)
	require.NoError(t, err)

	_, err = f.committer.SelectOption(ctx, route.ID, other[0].ID)
	require.ErrorIs(t, err, domain.ErrState)
}

func TestFirstStartUsesScheduleLocation(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	s := Schedule{Location: cet}

	// 23:30 UTC on the 10th is already the 11th in CET
	got := s.FirstStart(time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC))
	assert.True(t, got.Equal(time.Date(2025, 3, 12, 0, 0, 0, 0, cet)))

	assert.True(t, Schedule{}.FirstStart(requestCreated).Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)))
}
