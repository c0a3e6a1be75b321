package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostParams are the tariff inputs shared by every segment. Location is the
// calendar dwell nights are counted in; nil means UTC.
type CostParams struct {
	FuelPricePerLiter float64
	ManagementFee     float64
	Location          *time.Location
}

// CostModel computes segment and route costs. It is pure: callers supply
// every timestamp and tariff it needs.
type CostModel struct {
	Params CostParams
}

type SegmentCost struct {
	SegmentID       int64
	Order           int
	DistanceKm      float64
	DwellNights     int
	ApproximateCost float64
	RealCost        *float64
}

type CostBreakdown struct {
	RouteID          int64
	Segments         []SegmentCost
	TotalApproximate float64
	TotalReal        float64
	ManagementFee    float64
	FinalCost        float64
}

// Round2 rounds half away from zero to 2 decimals.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// DwellNights counts calendar days between the date of thisEnd and the date
// of nextStart, both taken in loc. Never negative.
func DwellNights(thisEnd, nextStart time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	a := civilDate(thisEnd.In(loc))
	b := civilDate(nextStart.In(loc))
	days := int(b.Sub(a).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Cost applies the segment formula:
// costPerKm*d + fuel*d*fuelPrice + dwellNights*dailyDwellCost.
func (m CostModel) Cost(distanceKm float64, v Vehicle, dwellNights int, dailyDwellCost float64) float64 {
	d := decimal.NewFromFloat(distanceKm)

	distance := decimal.NewFromFloat(v.CostPerKm).Mul(d).Round(2)
	fuel := decimal.NewFromFloat(v.AvgFuelConsumption).
		Mul(d).
		Mul(decimal.NewFromFloat(m.Params.FuelPricePerLiter)).
		Round(2)
	dwell := decimal.NewFromInt(int64(max(dwellNights, 0))).
		Mul(decimal.NewFromFloat(dailyDwellCost)).
		Round(2)

	return distance.Add(fuel).Add(dwell).Round(2).InexactFloat64()
}

// Approximate prices a segment from its scheduled timestamps. next is nil
// for the route's last segment, which never accrues dwell.
func (m CostModel) Approximate(s Segment, next *Segment, v Vehicle, dailyDwellCost float64) (float64, int) {
	nights := 0
	if next != nil && s.Destination.IsWarehouse() {
		nights = DwellNights(s.ScheduledEnd, next.ScheduledStart, m.Params.Location)
	}
	return m.Cost(s.DistanceKm, v, nights, dailyDwellCost), nights
}

// Real prices a finished segment from actual timestamps. Dwell is 0 until
// the next segment has actually started. ok is false if s has no real end.
func (m CostModel) Real(s Segment, next *Segment, v Vehicle, dailyDwellCost float64) (cost float64, nights int, ok bool) {
	if s.RealEnd == nil {
		return 0, 0, false
	}
	if next != nil && next.RealStart != nil && s.Destination.IsWarehouse() {
		nights = DwellNights(*s.RealEnd, *next.RealStart, m.Params.Location)
	}
	return m.Cost(s.DistanceKm, v, nights, dailyDwellCost), nights, true
}

// FinalCost sums segment costs and adds the management fee once per segment.
func (m CostModel) FinalCost(costs []float64) float64 {
	total := decimal.Zero
	for _, c := range costs {
		total = total.Add(decimal.NewFromFloat(c))
	}
	fee := decimal.NewFromFloat(m.Params.ManagementFee).Mul(decimal.NewFromInt(int64(len(costs))))
	return total.Round(2).Add(fee.Round(2)).Round(2).InexactFloat64()
}

// Sum adds monetary values with 2-decimal rounding.
func Sum(values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.Round(2).InexactFloat64()
}
