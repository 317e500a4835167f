package ledger

import (
	"context"
	"time"

	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// Repository defines storage operations for the batch ledger.
//
// Mutating methods that move quantities are conditional: they only apply
// when the source bucket holds enough stock, and report whether a row was
// changed. Together with FIFO-ordered row locks this keeps concurrent
// allocations from driving a bucket negative.
type Repository interface {
	// Batch access

	// CreateBatch inserts a new batch.
	CreateBatch(ctx context.Context, batch *StockBatch) error

	// GetBatch retrieves a batch by ID.
	GetBatch(ctx context.Context, batchID id.ID) (*StockBatch, error)

	// GetBatchForUpdate retrieves a batch with a row lock.
	GetBatchForUpdate(ctx context.Context, batchID id.ID) (*StockBatch, error)

	// GetBatchesForUpdate returns all batches for product+warehouse in FIFO
	// order (oldest first), locked for the current transaction.
	GetBatchesForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*StockBatch, error)

	// ListBatches returns batches matching the filter, FIFO order.
	ListBatches(ctx context.Context, filter BatchFilter) ([]*StockBatch, error)

	// BatchNumberExists reports whether a batch number is already taken.
	BatchNumberExists(ctx context.Context, batchNumber string) (bool, error)

	// Bucket movements (conditional, return false when source bucket is short)

	// MoveToCommitted moves qty from available to committed.
	MoveToCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error)

	// MoveToAvailable moves qty from committed back to available.
	MoveToAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error)

	// TakeCommitted removes qty from committed (stock leaves the warehouse).
	TakeCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error)

	// TakeAvailable removes qty from available (transfers out).
	TakeAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error)

	// AddAvailable adds qty to available (restores, returns).
	AddAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error

	// SetAvailable sets available to an absolute counted value.
	SetAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error

	// Denormalized product total

	// AdjustProductTotal applies delta to the product's total stock,
	// floor-clamped at zero on decrease.
	AdjustProductTotal(ctx context.Context, productID id.ID, delta types.Quantity) error

	// Movement journal

	// RecordMovements batch inserts journal rows for an operation.
	RecordMovements(ctx context.Context, movements []entity.StockMovement) error

	// GetMovementsByRecorder retrieves all movements for a document.
	GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error)

	// GetMovementHistory returns movement history for a product.
	GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]entity.StockMovement, error)

	// Balances

	// GetBalance returns aggregated available/committed for warehouse+product.
	GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error)

	// GetBalancesByWarehouse returns all non-zero balances for a warehouse.
	GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error)
}

// BatchFilter for listing batches.
type BatchFilter struct {
	ProductID   *id.ID
	WarehouseID *id.ID
	NonEmpty    bool // only batches with available+committed > 0
	Limit       int
	Offset      int
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	WarehouseID *id.ID
	Kind        *entity.MovementKind
	FromDate    *time.Time
	ToDate      *time.Time
	Limit       int
	Offset      int
}

// ProductResolver gives the ledger access to the product catalog without
// depending on it. Names feed shortage messages; totals stay denormalized
// on the product row.
type ProductResolver interface {
	// GetName returns the product display name.
	GetName(ctx context.Context, productID id.ID) (string, error)
}
