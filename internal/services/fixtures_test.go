package services

import (
	"context"
	"path/filepath"
	"route-planning-service/internal/adapters/distance"
	"route-planning-service/internal/adapters/repositories"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/db"
	"route-planning-service/internal/ports"
	"route-planning-service/internal/testutil"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var (
	madrid      = domain.Warehouse{ID: 1, Name: "Madrid", Location: domain.Coordinates{Lat: 40.4168, Lon: -3.7038}, DailyDwellCost: 100}
	zaragoza    = domain.Warehouse{ID: 2, Name: "Zaragoza", Location: domain.Coordinates{Lat: 41.6488, Lon: -0.8891}, DailyDwellCost: 80}
	guadalajara = domain.Warehouse{ID: 3, Name: "Guadalajara", Location: domain.Coordinates{Lat: 40.6329, Lon: -3.1669}, DailyDwellCost: 60}
	soria       = domain.Warehouse{ID: 4, Name: "Soria", Location: domain.Coordinates{Lat: 41.7666, Lon: -2.4790}, DailyDwellCost: 50}
	valencia    = domain.Warehouse{ID: 5, Name: "Valencia", Location: domain.Coordinates{Lat: 39.4699, Lon: -0.3763}, DailyDwellCost: 90}

	pickup  = domain.Coordinates{Lat: 40.42, Lon: -3.70}
	dropoff = domain.Coordinates{Lat: 41.65, Lon: -0.88}

	requestCreated = time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
)

func allWarehouses() []domain.Warehouse {
	return []domain.Warehouse{madrid, zaragoza, guadalajara, soria, valencia}
}

// Every leg a Madrid -> Zaragoza request can use, except anything touching
// Valencia, so that variant always fails.
func roadNetwork() []distance.MockPair {
	return []distance.MockPair{
		{From: pickup, To: madrid.Location, DistanceKm: 1, DurationHours: 0.25, Path: "p0"},
		{From: madrid.Location, To: zaragoza.Location, DistanceKm: 310, DurationHours: 3.5, Path: "p1"},
		{From: zaragoza.Location, To: dropoff, DistanceKm: 1.5, DurationHours: 0.5, Path: "p2"},
		{From: madrid.Location, To: guadalajara.Location, DistanceKm: 60, DurationHours: 0.75},
		{From: guadalajara.Location, To: zaragoza.Location, DistanceKm: 255, DurationHours: 2.75},
		{From: madrid.Location, To: soria.Location, DistanceKm: 225, DurationHours: 2.5},
		{From: soria.Location, To: zaragoza.Location, DistanceKm: 160, DurationHours: 1.75},
	}
}

func transportRequest(id int64, wantVariants bool) domain.TransportRequest {
	return domain.TransportRequest{
		ID:           id,
		CreatedAt:    requestCreated,
		Origin:       domain.RawWaypoint(pickup.Lat, pickup.Lon),
		Destination:  domain.RawWaypoint(dropoff.Lat, dropoff.Lon),
		WantVariants: wantVariants,
	}
}

type fixture struct {
	store     *repositories.SQLStore
	directory ports.WarehouseDirectory
	oracle    *distance.MockOracle
	requests  *testutil.FakeRequests
	cargo     *testutil.FakeCargo

	planner   *Planner
	committer *RouteCommitter
	lifecycle *SegmentLifecycle
	costs     *CostService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureIn(t, time.UTC)
}

// newFixtureIn lays out the schedule and counts dwell nights in loc.
func newFixtureIn(t *testing.T, loc *time.Location) *fixture {
	t.Helper()

	conn, err := db.OpenSQLite(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	ctx := context.Background()
	require.NoError(t, repositories.InitSchema(ctx, conn, db.SQLite))

	seed := repositories.Seed{
		Vehicles: []repositories.VehicleSeed{
			{Plate: "1111-AAA", MaxWeightKg: 3000, MaxVolumeM3: 40, CostPerKm: 1, AvgFuelConsumption: 0.1, Carrier: "acme"},
			{Plate: "2222-BBB", MaxWeightKg: 3000, MaxVolumeM3: 40, CostPerKm: 1, AvgFuelConsumption: 0.1, Carrier: "acme"},
			{Plate: "3333-CCC", MaxWeightKg: 3000, MaxVolumeM3: 40, CostPerKm: 1, AvgFuelConsumption: 0.1, Carrier: "acme"},
			{Plate: "4444-DDD", MaxWeightKg: 500, MaxVolumeM3: 5, CostPerKm: 0.8, AvgFuelConsumption: 0.08, Carrier: "acme"},
		},
	}
	for _, w := range allWarehouses() {
		seed.Warehouses = append(seed.Warehouses, repositories.WarehouseSeed{
			ID: w.ID, Name: w.Name, Lat: w.Location.Lat, Lon: w.Location.Lon, DailyDwellCost: w.DailyDwellCost,
		})
	}
	require.NoError(t, repositories.ApplySeed(ctx, conn, db.SQLite, seed))

	store := repositories.NewSQLStore(conn, db.SQLite)
	directory := repositories.NewSQLWarehouseDirectory(conn, db.SQLite)
	oracle := distance.NewMockOracle(roadNetwork())

	requests := testutil.NewFakeRequests()
	requests.AddRequest(transportRequest(100, false))
	requests.AddRequest(transportRequest(101, true))
	requests.AddCargo(domain.Cargo{RequestID: 100, WeightKg: 1000, VolumeM3: 10})
	requests.AddCargo(domain.Cargo{RequestID: 101, WeightKg: 1000, VolumeM3: 10})
	cargo := &testutil.FakeCargo{}

	selector := NewCandidateSelector(NewVariantBuilder(oracle, directory), directory, 3)
	model := domain.CostModel{Params: domain.CostParams{FuelPricePerLiter: 1.5, ManagementFee: 10, Location: loc}}

	committer := NewRouteCommitter(requests, selector, directory, store, Schedule{DwellBuffer: 24 * time.Hour, Location: loc})
	committer.Now = func() time.Time { return requestCreated.Add(time.Hour) }

	return &fixture{
		store:     store,
		directory: directory,
		oracle:    oracle,
		requests:  requests,
		cargo:     cargo,
		planner:   NewPlanner(requests, selector, store),
		committer: committer,
		lifecycle: NewSegmentLifecycle(store, directory, requests, cargo, domain.DefaultTransitionPolicy(), model),
		costs:     NewCostService(store, directory, model),
	}
}

func (f *fixture) vehicle(t *testing.T, plate string) *domain.Vehicle {
	t.Helper()

	var v *domain.Vehicle
	err := f.store.Do(context.Background(), func(ctx context.Context, repos ports.Repositories) error {
		var err error
		v, err = repos.Vehicles.FindByPlate(ctx, plate)
		return err
	})
	require.NoError(t, err)
	return v
}

func (f *fixture) route(t *testing.T, routeID int64) *domain.Route {
	t.Helper()

	r, err := f.committer.GetRoute(context.Background(), routeID)
	require.NoError(t, err)
	return r
}

func at(day, hour, minute int) *time.Time {
	t := time.Date(2025, 3, day, hour, minute, 0, 0, time.UTC)
	return &t
}
