package transfers

import (
	"context"

	"inventra/internal/core/id"
)

// Repository defines storage operations for stock requests.
type Repository interface {
	// Create inserts the request header.
	Create(ctx context.Context, request *StockRequest) error

	// SaveItems replaces the item lines for a request.
	SaveItems(ctx context.Context, requestID id.ID, items []Item) error

	// GetByID retrieves a request with its items.
	GetByID(ctx context.Context, requestID id.ID) (*StockRequest, error)

	// GetByIDForUpdate retrieves a request with a row lock, items included.
	// Used by state transitions so two approvals cannot race.
	GetByIDForUpdate(ctx context.Context, requestID id.ID) (*StockRequest, error)

	// UpdateStatus persists a state change with optimistic locking.
	UpdateStatus(ctx context.Context, request *StockRequest) error

	// Delete removes a request and its items.
	Delete(ctx context.Context, requestID id.ID) error

	// List returns requests matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*StockRequest, int64, error)

	// HasPendingForProduct reports whether an open request already exists
	// for the same route and product. Duplicate requests are rejected.
	HasPendingForProduct(ctx context.Context, sendingWarehouseID, receivingWarehouseID, productID id.ID) (bool, error)
}

// ListFilter for request listing.
type ListFilter struct {
	Status      *Status
	WarehouseID *id.ID // matches either side of the route
	ApproverID  string
	Limit       int
	Offset      int
}
