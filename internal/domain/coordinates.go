package domain

import (
	"fmt"
	"math"
)

const earthRadiusKm = 6371.0

// Immutable geographic coordinates (longitude, latitude).
type Coordinates struct {
	Lon float64
	Lat float64
}

// Return coordinates as [lon, lat] for external API compatibility.
func (c Coordinates) CoordsToList() []float64 { return []float64{c.Lon, c.Lat} }

// Key returns a stable cache key at ~1m precision.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.5f,%.5f", RoundCoordinate(c.Lat), RoundCoordinate(c.Lon))
}

// SamePoint reports whether two coordinates coincide after rounding to 5 decimals.
func (c Coordinates) SamePoint(o Coordinates) bool {
	return RoundCoordinate(c.Lat) == RoundCoordinate(o.Lat) &&
		RoundCoordinate(c.Lon) == RoundCoordinate(o.Lon)
}

// RoundCoordinate rounds a degree value to 5 decimal places.
func RoundCoordinate(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}

// HaversineKm returns the great-circle distance between two coordinates.
func HaversineKm(a, b Coordinates) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// DistanceToSegmentKm measures the perpendicular distance from p to the segment a-b
// on a locally flat (equirectangular) projection scaled by the mean latitude.
// Projections falling outside the segment are clamped to the nearest endpoint.
func DistanceToSegmentKm(p, a, b Coordinates) float64 {
	meanLat := (a.Lat + b.Lat) / 2 * math.Pi / 180
	kx := math.Cos(meanLat) * math.Pi / 180 * earthRadiusKm
	ky := math.Pi / 180 * earthRadiusKm

	ax, ay := a.Lon*kx, a.Lat*ky
	bx, by := b.Lon*kx, b.Lat*ky
	px, py := p.Lon*kx, p.Lat*ky

	dx, dy := bx-ax, by-ay
	lenSq := dx*dx + dy*dy
	t := 0.0
	if lenSq > 0 {
		t = ((px-ax)*dx + (py-ay)*dy) / lenSq
	}
	t = math.Max(0, math.Min(1, t))

	cx, cy := ax+t*dx, ay+t*dy
	return math.Hypot(px-cx, py-cy)
}
