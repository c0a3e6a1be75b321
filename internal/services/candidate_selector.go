package services

import (
	"context"
	"fmt"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/obs"
	"route-planning-service/internal/ports"
	"sort"

	"golang.org/x/sync/errgroup"
)

const (
	defaultMaxIntermediates = 3
	defaultBuildConcurrency = 4
)

// CandidateSelector turns a transport request into measured variants.
type CandidateSelector struct {
	Builder          *VariantBuilder
	Directory        ports.WarehouseDirectory
	MaxIntermediates int
	Concurrency      int
}

func NewCandidateSelector(builder *VariantBuilder, directory ports.WarehouseDirectory, maxIntermediates int) *CandidateSelector {
	return &CandidateSelector{
		Builder:          builder,
		Directory:        directory,
		MaxIntermediates: maxIntermediates,
	}
}

// Candidates builds the direct variant plus any intermediate variants the
// request asks for. Variants come back in chain order, failed ones included.
func (s *CandidateSelector) Candidates(ctx context.Context, req domain.TransportRequest) (_ []domain.Variant, err error) {
	defer obs.Time(ctx, "selector.Candidates")(&err)

	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}

	all, err := s.Directory.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("candidates: list warehouses: %w", err)
	}

	origin, err := resolveEndpoint(req.Origin, req.OriginWarehouseID, all)
	if err != nil {
		return nil, fmt.Errorf("candidates: origin: %w", err)
	}
	dest, err := resolveEndpoint(req.Destination, req.DestinationWarehouseID, all)
	if err != nil {
		return nil, fmt.Errorf("candidates: destination: %w", err)
	}
	if origin == dest {
		return nil, fmt.Errorf("candidates: %w: origin and destination resolve to warehouse %d", domain.ErrValidation, origin)
	}

	stops := [][]int64{nil}
	switch {
	case len(req.Intermediates) > 0:
		stops = append(stops, req.Intermediates)
	case req.WantVariants:
		byID := indexWarehouses(all)
		o, okO := byID[origin]
		d, okD := byID[dest]
		if !okO || !okD {
			// the direct variant reports the unknown endpoint
			break
		}
		for _, w := range NearestToSegment(o, d, all, s.maxIntermediates()) {
			stops = append(stops, []int64{w.ID})
		}
	}

	variants := make([]domain.Variant, len(stops))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency())

	for i, via := range stops {
		chain := buildChain(req, origin, dest, via)
		g.Go(func() error {
			v, err := s.Builder.Build(gctx, chain)
			if err != nil {
				return err
			}
			v.Stops = via
			variants[i] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("candidates: %w", err)
	}
	return variants, nil
}

// SelectBest returns the successful variant with the smallest total distance.
// Ties keep the earliest variant.
func SelectBest(variants []domain.Variant) (domain.Variant, error) {
	best := -1
	for i, v := range variants {
		if v.Failed() {
			continue
		}
		if best < 0 || v.TotalDistanceKm < variants[best].TotalDistanceKm {
			best = i
		}
	}
	if best < 0 {
		return domain.Variant{}, fmt.Errorf("%w: no feasible variant among %d candidates", domain.ErrOracle, len(variants))
	}
	return variants[best], nil
}

func successful(variants []domain.Variant) []domain.Variant {
	out := make([]domain.Variant, 0, len(variants))
	for _, v := range variants {
		if !v.Failed() {
			out = append(out, v)
		}
	}
	return out
}

// NearestToSegment ranks warehouses by distance to the straight segment
// between two endpoint warehouses, excluding the endpoints themselves.
// Ties are broken by id.
func NearestToSegment(origin, dest domain.Warehouse, all []domain.Warehouse, k int) []domain.Warehouse {
	type ranked struct {
		w    domain.Warehouse
		dist float64
	}

	pool := make([]ranked, 0, len(all))
	for _, w := range all {
		if w.ID == origin.ID || w.ID == dest.ID {
			continue
		}
		pool = append(pool, ranked{w: w, dist: domain.DistanceToSegmentKm(w.Location, origin.Location, dest.Location)})
	}

	sort.Slice(pool, func(i, j int) bool {
		if pool[i].dist != pool[j].dist {
			return pool[i].dist < pool[j].dist
		}
		return pool[i].w.ID < pool[j].w.ID
	})

	if k > len(pool) {
		k = len(pool)
	}
	out := make([]domain.Warehouse, 0, k)
	for _, r := range pool[:k] {
		out = append(out, r.w)
	}
	return out
}

// resolveEndpoint picks the warehouse serving one end of a request: the
// waypoint itself, the explicit id, or the nearest warehouse to a raw point.
func resolveEndpoint(w domain.Waypoint, explicit int64, all []domain.Warehouse) (int64, error) {
	if w.IsWarehouse() {
		return w.WarehouseID, nil
	}
	if explicit > 0 {
		return explicit, nil
	}

	best, bestDist := int64(0), 0.0
	for _, wh := range all {
		d := domain.HaversineKm(w.Point, wh.Location)
		if best == 0 || d < bestDist {
			best, bestDist = wh.ID, d
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("%w: no warehouse near %s", domain.ErrNotFound, w)
	}
	return best, nil
}

func buildChain(req domain.TransportRequest, origin, dest int64, via []int64) []domain.Waypoint {
	chain := make([]domain.Waypoint, 0, len(via)+4)
	if !req.Origin.IsWarehouse() {
		chain = append(chain, req.Origin)
	}
	chain = append(chain, domain.WarehouseWaypoint(origin))
	for _, id := range via {
		chain = append(chain, domain.WarehouseWaypoint(id))
	}
	chain = append(chain, domain.WarehouseWaypoint(dest))
	if !req.Destination.IsWarehouse() {
		chain = append(chain, req.Destination)
	}
	return chain
}

func indexWarehouses(all []domain.Warehouse) map[int64]domain.Warehouse {
	out := make(map[int64]domain.Warehouse, len(all))
	for _, w := range all {
		out[w.ID] = w
	}
	return out
}

func (s *CandidateSelector) maxIntermediates() int {
	if s.MaxIntermediates > 0 {
		return s.MaxIntermediates
	}
	return defaultMaxIntermediates
}

func (s *CandidateSelector) concurrency() int {
	if s.Concurrency > 0 {
		return s.Concurrency
	}
	return defaultBuildConcurrency
}
