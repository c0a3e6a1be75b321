package ports

import (
	"context"
	"route-planning-service/internal/domain"
)

// Port: read-only warehouse master data.
type WarehouseDirectory interface {
	// Resolve ids to warehouses. Unknown ids are absent from the result.
	GetMany(ctx context.Context, ids []int64) (map[int64]domain.Warehouse, error)
	// List every warehouse, ordered by id.
	ListAll(ctx context.Context) ([]domain.Warehouse, error)
}
