// Package purchaseorder provides the PurchaseOrder document.
//
// Approval receives the ordered goods: a new stock batch is created per
// line in the target warehouse and the product's total stock grows.
package purchaseorder

import (
	"context"
	"time"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// Status is the purchase order lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Stock is received at PENDING -> APPROVED. An approved order cannot be
// cancelled; received goods leave through an adjustment.
var transitions = map[Status][]Status{
	StatusDraft:    {StatusPending, StatusCancelled},
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCompleted},
}

// CanTransitionTo reports whether the state machine allows the move.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PurchaseOrder represents an order to a supplier.
type PurchaseOrder struct {
	entity.Document

	// SupplierName identifies the supplier; suppliers are not a catalog
	SupplierName string `db:"supplier_name" json:"supplierName"`

	Status Status `db:"status" json:"status"`

	// Totals (calculated from lines)
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	// Table part: ordered goods
	Lines []Line `db:"-" json:"lines"`
}

// Line represents a purchased product quantity.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID   id.ID `db:"product_id" json:"productId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitCost is the purchase price per unit, carried onto the batch
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// Amount = Quantity * UnitCost, denormalized
	Amount types.Money `db:"amount" json:"amount"`

	// ExpiryDate for perishable goods
	ExpiryDate *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`

	// BatchID is set after approval, pointing at the created batch
	BatchID *id.ID `db:"batch_id" json:"batchId,omitempty"`
}

// NewPurchaseOrder creates a draft order.
func NewPurchaseOrder(supplierName string) *PurchaseOrder {
	return &PurchaseOrder{
		Document:     entity.NewDocument(),
		SupplierName: supplierName,
		Status:       StatusDraft,
		Lines:        make([]Line, 0),
	}
}

// AddLine adds a line and recalculates totals.
func (o *PurchaseOrder) AddLine(productID, warehouseID id.ID, quantity types.Quantity, unitCost types.Money, expiryDate *time.Time) {
	line := Line{
		LineID:      id.New(),
		LineNo:      len(o.Lines) + 1,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		UnitCost:    unitCost,
		Amount:      unitCost.Mul(quantity.Decimal()),
		ExpiryDate:  expiryDate,
	}
	o.Lines = append(o.Lines, line)
	o.recalculateTotals()
}

func (o *PurchaseOrder) recalculateTotals() {
	o.TotalQuantity = 0
	o.TotalAmount = types.Zero()
	for _, line := range o.Lines {
		o.TotalQuantity += line.Quantity
		o.TotalAmount = o.TotalAmount.Add(line.Amount)
	}
}

// Validate implements entity.Validatable.
func (o *PurchaseOrder) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}

	if o.SupplierName == "" {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierName")
	}

	if len(o.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range o.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if id.IsNil(line.WarehouseID) {
			return apperror.NewValidation("warehouse is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if line.UnitCost.IsNegative() {
			return apperror.NewValidation("unit cost cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// Transition moves the order to the next state, enforcing the machine.
func (o *PurchaseOrder) Transition(next Status) error {
	if !o.Status.CanTransitionTo(next) {
		return apperror.NewInvalidState("purchase_order", string(o.Status), string(next)).
			WithDetail("order_number", o.Number)
	}
	o.Status = next
	o.Touch()
	return nil
}
