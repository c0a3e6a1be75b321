package distance

import (
	"context"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/ports"
	"sync"
)

type MockPair struct {
	From, To      domain.Coordinates
	DistanceKm    float64
	DurationHours float64
	Path          string
	Err           error
}

// MockOracle answers from a fixed table of pairs. Pairs are symmetric
// unless the reverse direction is listed explicitly.
type MockOracle struct {
	mu    sync.Mutex
	m     map[string]MockPair
	calls []string
}

func NewMockOracle(pairs []MockPair) *MockOracle {
	m := make(map[string]MockPair, len(pairs)*2)
	for _, p := range pairs {
		m[mockKey(p.From, p.To)] = p
	}
	for _, p := range pairs {
		rev := mockKey(p.To, p.From)
		if _, ok := m[rev]; !ok {
			m[rev] = p
		}
	}
	return &MockOracle{m: m}
}

func mockKey(a, b domain.Coordinates) string { return a.Key() + "|" + b.Key() }

func (o *MockOracle) Measure(ctx context.Context, origin, destination domain.Coordinates) (ports.Measurement, error) {
	if err := ctx.Err(); err != nil {
		return ports.Measurement{}, err
	}

	key := mockKey(origin, destination)

	o.mu.Lock()
	o.calls = append(o.calls, key)
	p, ok := o.m[key]
	o.mu.Unlock()

	if !ok {
		return ports.Measurement{}, &OracleError{Origin: origin, Destination: destination, Reason: "no mock pair"}
	}
	if p.Err != nil {
		return ports.Measurement{}, &OracleError{Origin: origin, Destination: destination, Reason: "mock failure", Err: p.Err}
	}

	return ports.Measurement{DistanceKm: p.DistanceKm, DurationHours: p.DurationHours, Path: p.Path}, nil
}

// Calls returns how many measurements were requested.
func (o *MockOracle) Calls() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.calls)
}
