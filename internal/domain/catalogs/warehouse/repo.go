package warehouse

import (
	"context"

	"inventra/internal/core/id"
	"inventra/internal/domain"
)

// Repository defines the interface for Warehouse persistence.
type Repository interface {
	domain.CatalogRepository[*Warehouse]

	// FindByName retrieves a warehouse by name, matched case-insensitively.
	FindByName(ctx context.Context, name string) (*Warehouse, error)

	// GetForUpdate retrieves warehouse with row lock (for transactional updates).
	GetForUpdate(ctx context.Context, id id.ID) (*Warehouse, error)

	// ClearDefault clears the default flag on all warehouses (before setting new default).
	ClearDefault(ctx context.Context) error
}
