package domain

import (
	"fmt"
	"time"
)

type SegmentState string

const (
	SegmentCreated  SegmentState = "CREATED"
	SegmentAssigned SegmentState = "ASSIGNED"
	SegmentStarted  SegmentState = "STARTED"
	SegmentFinished SegmentState = "FINISHED"
)

// Route is the committed itinerary for exactly one request.
type Route struct {
	ID               int64
	RequestID        int64
	CreatedAt        time.Time
	SelectedOptionID *int64
	Segments         []Segment
}

// Segment is one directed leg of a route.
type Segment struct {
	ID             int64
	RouteID        int64
	Order          int
	Origin         Waypoint
	Destination    Waypoint
	OriginName     string
	DestName       string
	DistanceKm     float64
	DurationHours  float64
	Path           string
	VehicleID      *int64
	ScheduledStart time.Time
	ScheduledEnd   time.Time
	RealStart      *time.Time
	RealEnd        *time.Time
	// Degraded is set when a coordinate could not be resolved at commit time.
	Degraded        bool
	ApproximateCost float64
	RealCost        *float64
	State           SegmentState
	AutoGenerated   bool
}

// Duration returns the measured duration as a time.Duration.
func (s Segment) Duration() time.Duration {
	return time.Duration(s.DurationHours * float64(time.Hour))
}

// RealDurationHours returns the actual elapsed hours, or 0 if the segment
// has not finished.
func (s Segment) RealDurationHours() float64 {
	if s.RealStart == nil || s.RealEnd == nil {
		return 0
	}
	return s.RealEnd.Sub(*s.RealStart).Hours()
}

// Cost returns the real cost when known, otherwise the approximate one.
func (s Segment) Cost() float64 {
	if s.RealCost != nil {
		return *s.RealCost
	}
	return s.ApproximateCost
}

// Index returns the position of segment id within the route, or -1.
func (r *Route) Index(segmentID int64) int {
	for i := range r.Segments {
		if r.Segments[i].ID == segmentID {
			return i
		}
	}
	return -1
}

func (r *Route) Previous(i int) *Segment {
	if i <= 0 || i > len(r.Segments) {
		return nil
	}
	return &r.Segments[i-1]
}

func (r *Route) Next(i int) *Segment {
	if i < 0 || i+1 >= len(r.Segments) {
		return nil
	}
	return &r.Segments[i+1]
}

func (r *Route) IsLast(i int) bool { return i == len(r.Segments)-1 }

func (r *Route) AllFinished() bool {
	for _, s := range r.Segments {
		if s.State != SegmentFinished {
			return false
		}
	}
	return len(r.Segments) > 0
}

// ValidateOrder checks that segment order indices run 1..N without gaps.
// Segments are expected sorted by Order.
func (r *Route) ValidateOrder() error {
	for i, s := range r.Segments {
		if s.Order != i+1 {
			return fmt.Errorf("%w: route %d segment at position %d has order %d", ErrValidation, r.ID, i+1, s.Order)
		}
	}
	return nil
}
