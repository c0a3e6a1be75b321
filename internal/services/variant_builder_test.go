package services

import (
	"context"
	"errors"
	"route-planning-service/internal/adapters/distance"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/testutil"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMeasuresEveryLeg(t *testing.T) {
	oracle := distance.NewMockOracle([]distance.MockPair{
		{From: pickup, To: madrid.Location, DistanceKm: 1.004, DurationHours: 0.25, Path: "a"},
		{From: madrid.Location, To: zaragoza.Location, DistanceKm: 2.003, DurationHours: 0.5, Path: "b"},
	})
	b := NewVariantBuilder(oracle, testutil.NewDirectory(madrid, zaragoza))

	v, err := b.Build(context.Background(), []domain.Waypoint{
		domain.RawWaypoint(pickup.Lat, pickup.Lon),
		domain.WarehouseWaypoint(madrid.ID),
		domain.WarehouseWaypoint(zaragoza.ID),
	})
	require.NoError(t, err)
	require.False(t, v.Failed(), v.Reason)

	require.Len(t, v.Legs, 2)
	assert.Equal(t, 1, v.Legs[0].Order)
	assert.Equal(t, "Madrid", v.Legs[0].ToName)
	assert.Equal(t, madrid.Location, v.Legs[0].To.Point)
	assert.True(t, v.Legs[1].Mandatory())
	assert.Equal(t, 3.01, v.TotalDistanceKm)
	assert.Equal(t, 0.75, v.TotalDurationHours)
	assert.Equal(t, "a;b", v.Path)
	assert.Equal(t, []int64{1, 2}, v.WarehouseIDs())
}

func TestBuildShortCircuitsCoincidentPoint(t *testing.T) {
	oracle := distance.NewMockOracle([]distance.MockPair{
		{From: madrid.Location, To: zaragoza.Location, DistanceKm: 310, DurationHours: 3.5},
	})
	b := NewVariantBuilder(oracle, testutil.NewDirectory(madrid, zaragoza))

	v, err := b.Build(context.Background(), []domain.Waypoint{
		domain.RawWaypoint(madrid.Location.Lat, madrid.Location.Lon),
		domain.WarehouseWaypoint(madrid.ID),
		domain.WarehouseWaypoint(zaragoza.ID),
	})
	require.NoError(t, err)
	require.False(t, v.Failed(), v.Reason)

	assert.Equal(t, 1, oracle.Calls())
	assert.Zero(t, v.Legs[0].DistanceKm)
	assert.Equal(t, 310.0, v.TotalDistanceKm)
}

func TestBuildAcceptsZeroOnRawLeg(t *testing.T) {
	oracle := distance.NewMockOracle([]distance.MockPair{
		{From: pickup, To: madrid.Location, DistanceKm: 0, DurationHours: 0},
		{From: madrid.Location, To: zaragoza.Location, DistanceKm: 310, DurationHours: 3.5},
	})
	b := NewVariantBuilder(oracle, testutil.NewDirectory(madrid, zaragoza))

	v, err := b.Build(context.Background(), []domain.Waypoint{
		domain.RawWaypoint(pickup.Lat, pickup.Lon),
		domain.WarehouseWaypoint(madrid.ID),
		domain.WarehouseWaypoint(zaragoza.ID),
	})
	require.NoError(t, err)
	assert.False(t, v.Failed(), v.Reason)
	assert.Equal(t, 2, oracle.Calls())
}

func TestBuildFailsVariant(t *testing.T) {
	tests := []struct {
		name   string
		pairs  []distance.MockPair
		chain  []domain.Waypoint
		reason string
	}{
		{
			name:   "zero between warehouses",
			pairs:  []distance.MockPair{{From: madrid.Location, To: zaragoza.Location, DistanceKm: 0, DurationHours: 1}},
			chain:  []domain.Waypoint{domain.WarehouseWaypoint(1), domain.WarehouseWaypoint(2)},
			reason: "zero distance",
		},
		{
			name:   "unknown warehouse",
			chain:  []domain.Waypoint{domain.WarehouseWaypoint(1), domain.WarehouseWaypoint(99)},
			reason: "warehouse 99 not found",
		},
		{
			name:   "oracle failure",
			pairs:  []distance.MockPair{{From: madrid.Location, To: zaragoza.Location, Err: errors.New("upstream 503")}},
			chain:  []domain.Waypoint{domain.WarehouseWaypoint(1), domain.WarehouseWaypoint(2)},
			reason: "upstream 503",
		},
		{
			name:   "negative distance",
			pairs:  []distance.MockPair{{From: madrid.Location, To: zaragoza.Location, DistanceKm: -1}},
			chain:  []domain.Waypoint{domain.WarehouseWaypoint(1), domain.WarehouseWaypoint(2)},
			reason: "negative",
		},
		{
			name:   "repeated warehouse",
			chain:  []domain.Waypoint{domain.WarehouseWaypoint(1), domain.WarehouseWaypoint(1)},
			reason: "repeats warehouse 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewVariantBuilder(distance.NewMockOracle(tt.pairs), testutil.NewDirectory(madrid, zaragoza))

			v, err := b.Build(context.Background(), tt.chain)
			require.NoError(t, err)
			assert.True(t, v.Failed())
			assert.Contains(t, v.Reason, tt.reason)
			assert.Empty(t, v.Legs)
		})
	}
}

func TestBuildReturnsContextErrors(t *testing.T) {
	b := NewVariantBuilder(distance.NewMockOracle(roadNetwork()), testutil.NewDirectory(madrid, zaragoza))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Build(ctx, []domain.Waypoint{domain.WarehouseWaypoint(1), domain.WarehouseWaypoint(2)})
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuildReturnsDirectoryErrors(t *testing.T) {
	dir := testutil.NewDirectory(madrid, zaragoza)
	dir.Err = domain.ErrIntegration
	b := NewVariantBuilder(distance.NewMockOracle(roadNetwork()), dir)

	_, err := b.Build(context.Background(), []domain.Waypoint{domain.WarehouseWaypoint(1), domain.WarehouseWaypoint(2)})
	require.ErrorIs(t, err, domain.ErrIntegration)
}

func TestBuildRejectsShortChain(t *testing.T) {
	b := NewVariantBuilder(distance.NewMockOracle(nil), testutil.NewDirectory(madrid))

	_, err := b.Build(context.Background(), []domain.Waypoint{domain.WarehouseWaypoint(1)})
	require.ErrorIs(t, err, domain.ErrValidation)
}
