// Package ledger provides the stock batch ledger.
//
// Stock is tracked per batch: a batch is a receipt of a product into a
// warehouse at a unit cost. Each batch keeps two buckets - Available
// (on the shelf, free to promise) and Committed (reserved for confirmed
// orders awaiting invoicing). Allocation is FIFO by batch creation time.
package ledger

import (
	"context"
	"time"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// StockBatch is one receipt of stock into a warehouse.
type StockBatch struct {
	ID       id.ID  `db:"id" json:"id"`
	TenantID string `db:"tenant_id" json:"-"`

	// BatchNumber is unique within the tenant
	BatchNumber string `db:"batch_number" json:"batchNumber"`

	// Dimensions
	ProductID   id.ID `db:"product_id" json:"productId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	// Available is stock free to promise (opening stock bucket)
	Available types.Quantity `db:"available" json:"available"`

	// Committed is stock reserved for confirmed orders
	Committed types.Quantity `db:"committed" json:"committed"`

	// UnitCost is the purchase cost per unit, carried on transfer
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// ExpiryDate for perishable goods (optional)
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// CreatedAt orders batches for FIFO allocation
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewStockBatch creates a batch with generated ID and timestamps.
func NewStockBatch(batchNumber string, productID, warehouseID id.ID, quantity types.Quantity, unitCost types.Money) *StockBatch {
	now := time.Now().UTC()
	return &StockBatch{
		ID:          id.New(),
		BatchNumber: batchNumber,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Available:   quantity,
		UnitCost:    unitCost,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// OnHand returns total physical quantity in the batch.
func (b *StockBatch) OnHand() types.Quantity {
	return b.Available + b.Committed
}

// Validate checks batch invariants.
func (b *StockBatch) Validate(ctx context.Context) error {
	if b.BatchNumber == "" {
		return apperror.NewValidation("batch number is required").
			WithDetail("field", "batchNumber")
	}
	if id.IsNil(b.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if id.IsNil(b.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if b.Available.IsNegative() || b.Committed.IsNegative() {
		return apperror.NewValidation("batch quantities cannot be negative")
	}
	return nil
}

// Recorder identifies the document driving a ledger operation.
// Every batch mutation is journaled against its recorder so the movement
// history explains where stock went.
type Recorder struct {
	ID      id.ID
	Type    string
	Version int
	Date    time.Time
}

// Line is one product quantity at a warehouse in a multi-line operation.
type Line struct {
	ProductID   id.ID
	WarehouseID id.ID
	Quantity    types.Quantity
}

// ReceiptLine describes incoming stock that creates a new batch.
type ReceiptLine struct {
	ProductID   id.ID
	WarehouseID id.ID
	Quantity    types.Quantity
	UnitCost    types.Money
	ExpiryDate  *time.Time
}

// AdjustInput sets a batch's available quantity to a counted value.
type AdjustInput struct {
	BatchID     id.ID
	NewQuantity types.Quantity
}

// AdjustResult reports what an adjustment changed.
type AdjustResult struct {
	BatchID          id.ID          `json:"batchId"`
	ProductID        id.ID          `json:"productId"`
	WarehouseID      id.ID          `json:"warehouseId"`
	PreviousQuantity types.Quantity `json:"previousQuantity"`
	NewQuantity      types.Quantity `json:"newQuantity"`
	Delta            types.Quantity `json:"delta"`
}
