package services

import (
	"context"
	"route-planning-service/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRouteCostsBeforeAssignment(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)

	b, err := f.costs.ComputeRouteCosts(context.Background(), route.ID)
	require.NoError(t, err)

	require.Len(t, b.Segments, 3)
	assert.Zero(t, b.TotalApproximate)
	assert.Zero(t, b.TotalReal)
	assert.Equal(t, 30.0, b.ManagementFee)
	assert.Equal(t, 30.0, b.FinalCost)
}

func TestComputeRouteCostsMixesRealAndApproximate(t *testing.T) {
	f := newFixture(t)
	route := committed(t, f)
	assignAll(t, f, route)
	ctx := context.Background()
	s1 := route.Segments[0].ID

	_, err := f.lifecycle.StartSegment(ctx, route.ID, s1, at(11, 8, 0))
	require.NoError(t, err)
	_, err = f.lifecycle.FinishSegment(ctx, route.ID, s1, at(11, 8, 15))
	require.NoError(t, err)

	b, err := f.costs.ComputeRouteCosts(ctx, route.ID)
	require.NoError(t, err)

	assert.Equal(t, 539.38, b.TotalApproximate)
	require.NotNil(t, b.Segments[0].RealCost)
	assert.Equal(t, 1.15, *b.Segments[0].RealCost, "no dwell until the next segment starts")
	assert.Nil(t, b.Segments[1].RealCost)
	assert.Equal(t, 1, b.Segments[1].DwellNights)
	assert.Equal(t, 1.15, b.TotalReal)
	// 1.15 real + 436.5 + 1.73 approximate + 3*10 fee
	assert.Equal(t, 469.38, b.FinalCost)
}

func TestComputeRouteCostsUnknownRoute(t *testing.T) {
	f := newFixture(t)

	_, err := f.costs.ComputeRouteCosts(context.Background(), 12345)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
