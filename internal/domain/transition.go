package domain

import "fmt"

// TransitionPolicy is the immutable table of allowed segment state changes.
type TransitionPolicy struct {
	allowed map[SegmentState]map[SegmentState]struct{}
}

// NewTransitionPolicy copies table so later edits by the caller have no effect.
func NewTransitionPolicy(table map[SegmentState][]SegmentState) TransitionPolicy {
	allowed := make(map[SegmentState]map[SegmentState]struct{}, len(table))
	for from, tos := range table {
		set := make(map[SegmentState]struct{}, len(tos))
		for _, to := range tos {
			set[to] = struct{}{}
		}
		allowed[from] = set
	}
	return TransitionPolicy{allowed: allowed}
}

// DefaultTransitionPolicy allows CREATED -> ASSIGNED -> STARTED -> FINISHED,
// plus reassignment before start.
func DefaultTransitionPolicy() TransitionPolicy {
	return NewTransitionPolicy(map[SegmentState][]SegmentState{
		SegmentCreated:  {SegmentAssigned},
		SegmentAssigned: {SegmentAssigned, SegmentStarted},
		SegmentStarted:  {SegmentFinished},
	})
}

func (p TransitionPolicy) Allows(from, to SegmentState) bool {
	_, ok := p.allowed[from][to]
	return ok
}

func (p TransitionPolicy) Check(from, to SegmentState) error {
	if !p.Allows(from, to) {
		return fmt.Errorf("%w: segment cannot move from %s to %s", ErrState, from, to)
	}
	return nil
}

// ParseSegmentState validates a state name read from configuration.
func ParseSegmentState(s string) (SegmentState, error) {
	switch st := SegmentState(s); st {
	case SegmentCreated, SegmentAssigned, SegmentStarted, SegmentFinished:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown segment state %q", ErrValidation, s)
}
