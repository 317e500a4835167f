package customer

import (
	"context"

	"inventra/internal/core/id"
	"inventra/internal/domain"
)

// Repository defines the interface for Customer persistence.
type Repository interface {
	domain.CatalogRepository[*Customer]

	// FindByEmail retrieves a customer by email (unique within tenant).
	FindByEmail(ctx context.Context, email string) (*Customer, error)

	// GetForUpdate retrieves a customer with row lock.
	GetForUpdate(ctx context.Context, id id.ID) (*Customer, error)
}
