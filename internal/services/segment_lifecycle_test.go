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

// committed returns request 100's route: pickup -> Madrid -> Zaragoza -> dropoff.
func committed(t *testing.T, f *fixture) *domain.Route {
	t.Helper()

	route, err := f.committer.CommitBest(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, route.Segments, 3)
	return route
}

func assignAll(t *testing.T, f *fixture, route *domain.Route) {
	t.Helper()

	for i, plate := range []string{"1111-AAA", "2222-BBB", "3333-CCC"} {
		_, err := f.lifecycle.AssignVehicle(context.Background(), route.Segments[i].ID, domain.VehicleRef{Plate: plate})
		require.NoError(t, err)
	}
}

func TestAssignVehiclePricesFromSchedule(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	assignAll(t, f, route)

	got := f.route(t, route.ID)
	for _, s := range got.Segments {
		assert.Equal(t, domain.SegmentAssigned, s.State)
		require.NotNil(t, s.VehicleID)
	}

	// 310km*1 + 0.1L/km*310km*1.5 + one night in Zaragoza
	assert.Equal(t, 436.5, got.Segments[1].ApproximateCost)
	// one night in Madrid
	assert.Equal(t, 101.15, got.Segments[0].ApproximateCost)
	// last segment never dwells
	assert.Equal(t, 1.73, got.Segments[2].ApproximateCost)

	assert.False(t, f.vehicle(t, "1111-AAA").Available)
}

func TestAssignVehicleCapacityExceeded(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	ctx := context.Background()

	_, err := f.lifecycle.AssignVehicle(ctx, route.Segments[0].ID, domain.VehicleRef{Plate: "4444-DDD"})
	require.ErrorIs(t, err, domain.ErrCapacity)

	seg := f.route(t, route.ID).Segments[0]
	assert.Equal(t, domain.SegmentCreated, seg.State)
	assert.Nil(t, seg.VehicleID)
	assert.True(t, f.vehicle(t, "4444-DDD").Available)
}

func TestAssignVehicleRejects(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	ctx := context.Background()
	first := route.Segments[0].ID

	_, err := f.lifecycle.AssignVehicle(ctx, first, domain.VehicleRef{})
	require.ErrorIs(t, err, domain.ErrValidation)

	_, err = f.lifecycle.AssignVehicle(ctx, first, domain.VehicleRef{Plate: "0000-XXX"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.lifecycle.AssignVehicle(ctx, 9999, domain.VehicleRef{Plate: "1111-AAA"})
	require.ErrorIs(t, err, domain.ErrNotFound)

	// a vehicle drives at most one unfinished segment
	_, err = f.lifecycle.AssignVehicle(ctx, first, domain.VehicleRef{Plate: "1111-AAA"})
	require.NoError(t, err)
	_, err = f.lifecycle.AssignVehicle(ctx, route.Segments[1].ID, domain.VehicleRef{Plate: "1111-AAA"})
	require.ErrorIs(t, err, domain.ErrState)

	inactive := f.vehicle(t, "3333-CCC")
	inactive.Active = false
	require.NoError(t, f.store.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		return repos.Vehicles.Save(ctx, inactive)
	}))
	_, err = f.lifecycle.AssignVehicle(ctx, route.Segments[1].ID, domain.VehicleRef{ID: inactive.ID})
	require.ErrorIs(t, err, domain.ErrState)
}

func TestAssignVehicleFailsClosedWithoutCargo(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	f.requests.CargoErr = domain.ErrIntegration

	_, err := f.lifecycle.AssignVehicle(context.Background(), route.Segments[0].ID, domain.VehicleRef{Plate: "1111-AAA"})
	require.ErrorIs(t, err, domain.ErrIntegration)

	assert.Equal(t, domain.SegmentCreated, f.route(t, route.ID).Segments[0].State)
	assert.True(t, f.vehicle(t, "1111-AAA").Available)
}

func TestReassignReleasesPreviousVehicle(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	ctx := context.Background()
	first := route.Segments[0].ID

	_, err := f.lifecycle.AssignVehicle(ctx, first, domain.VehicleRef{Plate: "1111-AAA"})
	require.NoError(t, err)

	seg, err := f.lifecycle.AssignVehicle(ctx, first, domain.VehicleRef{Plate: "2222-BBB"})
	require.NoError(t, err)

	b := f.vehicle(t, "2222-BBB")
	assert.Equal(t, b.ID, *seg.VehicleID)
	assert.False(t, b.Available)
	assert.True(t, f.vehicle(t, "1111-AAA").Available)

	// same vehicle again is a no-op rebind
	_, err = f.lifecycle.AssignVehicle(ctx, first, domain.VehicleRef{ID: b.ID})
	require.NoError(t, err)
}

func TestReassignSameVehicleRejectsDeactivated(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	ctx := context.Background()
	first := route.Segments[0].ID

	_, err := f.lifecycle.AssignVehicle(ctx, first, domain.VehicleRef{Plate: "1111-AAA"})
	require.NoError(t, err)

	require.NoError(t, f.store.Do(ctx, func(ctx context.Context, repos ports.Repositories) error {
		v, err := repos.Vehicles.FindByPlate(ctx, "1111-AAA")
		if err != nil {
			return err
		}
		v.Active = false
		return repos.Vehicles.Save(ctx, v)
	}))

	_, err = f.lifecycle.AssignVehicle(ctx, first, domain.VehicleRef{Plate: "1111-AAA"})
	require.ErrorIs(t, err, domain.ErrState)
}

func TestReassignForbiddenByPolicy(t *testing.T) {
	f := newFixture(t)
	f.lifecycle.Policy = domain.NewTransitionPolicy(map[domain.SegmentState][]domain.SegmentState{
		domain.SegmentCreated:  {domain.SegmentAssigned},
		domain.SegmentAssigned: {domain.SegmentStarted},
		domain.SegmentStarted:  {domain.SegmentFinished},
	})
	route := committed(t, f)
	ctx := context.Background()

	_, err := f.lifecycle.AssignVehicle(ctx, route.Segments[0].ID, domain.VehicleRef{Plate: "1111-AAA"})
	require.NoError(t, err)

	_, err = f.lifecycle.AssignVehicle(ctx, route.Segments[0].ID, domain.VehicleRef{Plate: "2222-BBB"})
	require.ErrorIs(t, err, domain.ErrState)
}

func TestStartRequiresSequence(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	ctx := context.Background()
	s1, s2 := route.Segments[0].ID, route.Segments[1].ID

	_, err := f.lifecycle.StartSegment(ctx, route.ID, s1, at(11, 8, 0))
	require.ErrorIs(t, err, domain.ErrState, "unassigned")

	assignAll(t, f, route)

	_, err = f.lifecycle.StartSegment(ctx, route.ID, s2, at(11, 8, 0))
	require.ErrorIs(t, err, domain.ErrState, "previous segment not finished")

	_, err = f.lifecycle.StartSegment(ctx, route.ID, s1, at(11, 8, 0))
	require.NoError(t, err)

	_, err = f.lifecycle.StartSegment(ctx, route.ID, s1, at(11, 8, 5))
	require.ErrorIs(t, err, domain.ErrState, "already started")

	_, err = f.lifecycle.FinishSegment(ctx, route.ID, s1, at(11, 8, 15))
	require.NoError(t, err)

	_, err = f.lifecycle.StartSegment(ctx, route.ID, s2, at(11, 8, 10))
	require.ErrorIs(t, err, domain.ErrState, "start before previous end")

	_, err = f.lifecycle.StartSegment(ctx, 9999, s2, at(12, 9, 0))
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.lifecycle.StartSegment(ctx, route.ID, 9999, at(12, 9, 0))
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFinishRejects(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	assignAll(t, f, route)
	ctx := context.Background()
	s1 := route.Segments[0].ID

	_, err := f.lifecycle.FinishSegment(ctx, route.ID, s1, at(11, 9, 0))
	require.ErrorIs(t, err, domain.ErrState, "not started")

	_, err = f.lifecycle.StartSegment(ctx, route.ID, s1, at(11, 8, 0))
	require.NoError(t, err)

	_, err = f.lifecycle.FinishSegment(ctx, route.ID, s1, at(11, 7, 59))
	require.ErrorIs(t, err, domain.ErrState, "end before start")

	_, err = f.lifecycle.FinishSegment(ctx, route.ID, s1, at(11, 8, 0))
	require.NoError(t, err, "zero-length segment is allowed")

	_, err = f.lifecycle.FinishSegment(ctx, route.ID, s1, at(11, 9, 0))
	require.ErrorIs(t, err, domain.ErrState, "already finished")
}

func TestStartDefaultsToClock(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	assignAll(t, f, route)
	now := time.Date(2025, 3, 11, 6, 30, 0, 0, time.UTC)
	f.lifecycle.Now = func() time.Time { return now }

	seg, err := f.lifecycle.StartSegment(context.Background(), route.ID, route.Segments[0].ID, nil)
	require.NoError(t, err)
	require.NotNil(t, seg.RealStart)
	assert.True(t, seg.RealStart.Equal(now))
}

func TestRouteCompletion(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	assignAll(t, f, route)
	ctx := context.Background()
	s1, s2, s3 := route.Segments[0].ID, route.Segments[1].ID, route.Segments[2].ID

	steps := []struct {
		start, finish *time.Time
		id            int64
	}{
		{id: s1, start: at(11, 8, 0), finish: at(11, 8, 15)},
		{id: s2, start: at(12, 9, 0), finish: at(12, 13, 0)},
		{id: s3, start: at(12, 14, 0), finish: at(12, 14, 30)},
	}
	for _, st := range steps {
		_, err := f.lifecycle.StartSegment(ctx, route.ID, st.id, st.start)
		require.NoError(t, err)
		seg, err := f.lifecycle.FinishSegment(ctx, route.ID, st.id, st.finish)
		require.NoError(t, err)
		require.NotNil(t, seg.RealCost)
	}

	got := f.route(t, route.ID)
	require.True(t, got.AllFinished())

	// dwell on s1 became known when s2 started a calendar day later
	assert.Equal(t, 101.15, *got.Segments[0].RealCost)
	assert.Equal(t, 356.5, *got.Segments[1].RealCost)
	assert.Equal(t, 1.73, *got.Segments[2].RealCost)

	for _, plate := range []string{"1111-AAA", "2222-BBB", "3333-CCC"} {
		assert.True(t, f.vehicle(t, plate).Available, plate)
	}

	reports := f.requests.Reports()
	require.Len(t, reports, 1)
	assert.Equal(t, domain.FinalReport{RequestID: 100, RouteID: route.ID, FinalCost: 489.38, DurationHours: 4.75}, reports[0])

	assert.Equal(t,
		[]string{domain.CargoInTransit, domain.CargoInWarehouse, domain.CargoInWarehouse, domain.CargoDelivered},
		f.cargo.StatesFor(100))
	assert.Equal(t, []string{domain.RequestInTransit, domain.RequestCompleted}, f.requests.StatesFor(100))
}

func TestRealDwellCountsLocalNights(t *testing.T) {
	cet := time.FixedZone("CET", 3600)
	f := newFixtureIn(t, cet)
	route := committed(t, f)
	assignAll(t, f, route)
	ctx := context.Background()
	s1, s2 := route.Segments[0].ID, route.Segments[1].ID

	local := func(day, hour, minute int) *time.Time {
		ts := time.Date(2025, 3, day, hour, minute, 0, 0, cet)
		return &ts
	}

	_, err := f.lifecycle.StartSegment(ctx, route.ID, s1, local(11, 23, 0))
	require.NoError(t, err)
	_, err = f.lifecycle.FinishSegment(ctx, route.ID, s1, local(11, 23, 30))
	require.NoError(t, err)
	// 00:30 CET on the 12th is still the 11th in UTC.
	_, err = f.lifecycle.StartSegment(ctx, route.ID, s2, local(12, 0, 30))
	require.NoError(t, err)

	got := f.route(t, route.ID)
	require.NotNil(t, got.Segments[0].RealCost)
	// 1km*1 + 0.1L/km*1km*1.5 + one night in Madrid
	assert.Equal(t, 101.15, *got.Segments[0].RealCost)
}

func TestTransitionsSurviveNotificationFailure(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	assignAll(t, f, route)
	f.cargo.Err = errors.New("tracker down")
	f.requests.NotifyErr = errors.New("request service down")
	ctx := context.Background()

	_, err := f.lifecycle.StartSegment(ctx, route.ID, route.Segments[0].ID, at(11, 8, 0))
	require.NoError(t, err)
	_, err = f.lifecycle.FinishSegment(ctx, route.ID, route.Segments[0].ID, at(11, 9, 0))
	require.NoError(t, err)

	assert.Equal(t, domain.SegmentFinished, f.route(t, route.ID).Segments[0].State)
}
