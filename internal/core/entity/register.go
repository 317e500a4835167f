// Package entity provides core domain entities.
package entity

import (
	"time"

	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// MovementKind identifies the ledger operation that produced a movement.
type MovementKind string

const (
	// MovementKindReceipt - new stock entered a warehouse (purchase, transfer in)
	MovementKindReceipt MovementKind = "receipt"
	// MovementKindReserve - available stock moved to committed
	MovementKindReserve MovementKind = "reserve"
	// MovementKindRelease - committed stock returned to available
	MovementKindRelease MovementKind = "release"
	// MovementKindConsume - committed stock left the warehouse
	MovementKindConsume MovementKind = "consume"
	// MovementKindRestore - consumed stock returned to available
	MovementKindRestore MovementKind = "restore"
	// MovementKindAdjust - available stock set by a manual count
	MovementKindAdjust MovementKind = "adjust"
	// MovementKindTransferOut - available stock left via warehouse transfer
	MovementKindTransferOut MovementKind = "transfer_out"
)

// MovementBase contains common fields for all stock ledger movements.
// Movements are immutable - they are never updated, only deleted and recreated.
type MovementBase struct {
	// LineID is unique identifier for this movement line (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// TenantID scopes the movement to a tenant
	TenantID string `db:"tenant_id" json:"-"`

	// RecorderID is the document that created this movement
	RecorderID id.ID `db:"recorder_id" json:"recorderId"`

	// RecorderType is the document type (e.g., "SalesOrder", "Invoice")
	RecorderType string `db:"recorder_type" json:"recorderType"`

	// RecorderVersion tracks which posting iteration created this movement
	// Allows efficient cleanup: DELETE WHERE recorder_id = X AND recorder_version < Y
	RecorderVersion int `db:"recorder_version" json:"recorderVersion"`

	// Period is the business date for the movement (for period-based queries)
	Period time.Time `db:"period" json:"period"`

	// Kind is the ledger operation that produced this movement
	Kind MovementKind `db:"kind" json:"kind"`

	// CreatedAt is when the movement was recorded
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewMovementBase creates a new movement base with generated LineID.
func NewMovementBase(recorderID id.ID, recorderType string, recorderVersion int, period time.Time, kind MovementKind) MovementBase {
	return MovementBase{
		LineID:          id.New(),
		RecorderID:      recorderID,
		RecorderType:    recorderType,
		RecorderVersion: recorderVersion,
		Period:          period,
		Kind:            kind,
		CreatedAt:       time.Now().UTC(),
	}
}

// StockMovement is a journal row for one batch mutation in the stock ledger.
// The ledger keeps two buckets per batch (available and committed); each
// movement records the signed delta applied to each bucket so the journal
// replays to the current balance.
type StockMovement struct {
	MovementBase

	// Dimensions
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	ProductID   id.ID `db:"product_id" json:"productId"`
	BatchID     id.ID `db:"batch_id" json:"batchId"`

	// Resources
	DeltaAvailable types.Quantity `db:"delta_available" json:"deltaAvailable"`
	DeltaCommitted types.Quantity `db:"delta_committed" json:"deltaCommitted"`
}

// NewStockMovement creates a new stock movement.
func NewStockMovement(
	base MovementBase,
	warehouseID, productID, batchID id.ID,
	deltaAvailable, deltaCommitted types.Quantity,
) StockMovement {
	return StockMovement{
		MovementBase:   base,
		WarehouseID:    warehouseID,
		ProductID:      productID,
		BatchID:        batchID,
		DeltaAvailable: deltaAvailable,
		DeltaCommitted: deltaCommitted,
	}
}

// NetQuantity returns the on-hand effect of the movement
// (available plus committed stock is what is physically present).
func (m *StockMovement) NetQuantity() types.Quantity {
	return m.DeltaAvailable + m.DeltaCommitted
}

// StockBalance is the aggregated balance for a product in a warehouse.
// Materialized from batches for fast availability queries.
type StockBalance struct {
	// Dimensions
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`
	ProductID   id.ID `db:"product_id" json:"productId"`

	// Balances
	Available types.Quantity `db:"available" json:"available"`
	Committed types.Quantity `db:"committed" json:"committed"`

	// Metadata
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// OnHand returns total physical quantity (available + committed).
func (b *StockBalance) OnHand() types.Quantity {
	return b.Available + b.Committed
}
