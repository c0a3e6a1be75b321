// Package testutil holds in-memory collaborators for service tests.
package testutil

import (
	"context"
	"fmt"
	"route-planning-service/internal/domain"
	"sort"
	"sync"
)

// StateChange records one outbound state notification.
type StateChange struct {
	RequestID int64
	State     string
}

// FakeRequests is an in-memory ports.RequestService that records every push.
type FakeRequests struct {
	mu sync.Mutex

	requests map[int64]domain.TransportRequest
	cargo    map[int64]domain.Cargo

	// CargoErr, when set, fails every GetCargo call.
	CargoErr error
	// NotifyErr, when set, fails every outbound push after recording it.
	NotifyErr error

	routes  map[int64]int64
	states  []StateChange
	reports []domain.FinalReport
}

func NewFakeRequests() *FakeRequests {
	return &FakeRequests{
		requests: make(map[int64]domain.TransportRequest),
		cargo:    make(map[int64]domain.Cargo),
		routes:   make(map[int64]int64),
	}
}

func (f *FakeRequests) AddRequest(r domain.TransportRequest) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests[r.ID] = r
}

func (f *FakeRequests) AddCargo(c domain.Cargo) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cargo[c.RequestID] = c
}

func (f *FakeRequests) GetRequest(ctx context.Context, requestID int64) (domain.TransportRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	r, ok := f.requests[requestID]
	if !ok {
		return domain.TransportRequest{}, fmt.Errorf("%w: request %d", domain.ErrNotFound, requestID)
	}
	return r, nil
}

func (f *FakeRequests) GetCargo(ctx context.Context, requestID int64) (domain.Cargo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CargoErr != nil {
		return domain.Cargo{}, f.CargoErr
	}
	c, ok := f.cargo[requestID]
	if !ok {
		return domain.Cargo{}, fmt.Errorf("%w: cargo for request %d", domain.ErrNotFound, requestID)
	}
	return c, nil
}

func (f *FakeRequests) SetRoute(ctx context.Context, requestID, routeID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[requestID] = routeID
	return f.NotifyErr
}

func (f *FakeRequests) SetRequestState(ctx context.Context, requestID int64, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, StateChange{RequestID: requestID, State: state})
	return f.NotifyErr
}

func (f *FakeRequests) PushFinalCost(ctx context.Context, report domain.FinalReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports = append(f.reports, report)
	return f.NotifyErr
}

// RouteOf returns the route id last announced for the request.
func (f *FakeRequests) RouteOf(requestID int64) (int64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.routes[requestID]
	return id, ok
}

func (f *FakeRequests) StatesFor(requestID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return statesFor(f.states, requestID)
}

func (f *FakeRequests) Reports() []domain.FinalReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.FinalReport(nil), f.reports...)
}

// FakeCargo is an in-memory ports.CargoTracker.
type FakeCargo struct {
	mu     sync.Mutex
	events []StateChange
	Err    error
}

func (f *FakeCargo) SetCargoState(ctx context.Context, requestID int64, state string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, StateChange{RequestID: requestID, State: state})
	return f.Err
}

func (f *FakeCargo) StatesFor(requestID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return statesFor(f.events, requestID)
}

func statesFor(changes []StateChange, requestID int64) []string {
	var out []string
	for _, c := range changes {
		if c.RequestID == requestID {
			out = append(out, c.State)
		}
	}
	return out
}

// Directory is a map-backed ports.WarehouseDirectory.
type Directory struct {
	Warehouses map[int64]domain.Warehouse
	Err        error
}

func NewDirectory(ws ...domain.Warehouse) *Directory {
	m := make(map[int64]domain.Warehouse, len(ws))
	for _, w := range ws {
		m[w.ID] = w
	}
	return &Directory{Warehouses: m}
}

func (d *Directory) GetMany(ctx context.Context, ids []int64) (map[int64]domain.Warehouse, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	out := make(map[int64]domain.Warehouse, len(ids))
	for _, id := range ids {
		if w, ok := d.Warehouses[id]; ok {
			out[id] = w
		}
	}
	return out, nil
}

func (d *Directory) ListAll(ctx context.Context) ([]domain.Warehouse, error) {
	if d.Err != nil {
		return nil, d.Err
	}
	out := make([]domain.Warehouse, 0, len(d.Warehouses))
	for _, w := range d.Warehouses {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
