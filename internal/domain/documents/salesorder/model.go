// Package salesorder provides the SalesOrder document.
//
// A sales order reserves stock when it is submitted: quantities move from
// available to committed on the product's batches, oldest first. Rejection
// and cancellation release the reservation; invoicing consumes it.
package salesorder

import (
	"context"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// Status is the sales order lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// transitions maps each state to the states it may move to.
// Stock is reserved at DRAFT -> PENDING and released on REJECTED and
// CANCELLED. COMPLETED is set when an invoice consumes the reservation.
var transitions = map[Status][]Status{
	StatusDraft:    {StatusPending, StatusCancelled},
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCompleted, StatusCancelled},
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

// HoldsReservation reports whether stock is committed for an order in
// this state.
func (s Status) HoldsReservation() bool {
	return s == StatusPending || s == StatusApproved
}

// SalesOrder represents a customer order.
type SalesOrder struct {
	entity.Document

	CustomerID id.ID `db:"customer_id" json:"customerId"`

	Status Status `db:"status" json:"status"`

	// Totals (calculated from lines)
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	// Table part: ordered goods
	Lines []Line `db:"-" json:"lines"`
}

// Line represents an ordered product quantity.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID   id.ID `db:"product_id" json:"productId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// Rate is the unit price
	Rate types.Money `db:"rate" json:"rate"`

	// Amount = Quantity * Rate, denormalized
	Amount types.Money `db:"amount" json:"amount"`
}

// NewSalesOrder creates a draft order.
func NewSalesOrder(customerID id.ID) *SalesOrder {
	return &SalesOrder{
		Document:   entity.NewDocument(),
		CustomerID: customerID,
		Status:     StatusDraft,
		Lines:      make([]Line, 0),
	}
}

// AddLine adds a line and recalculates totals.
func (o *SalesOrder) AddLine(productID, warehouseID id.ID, quantity types.Quantity, rate types.Money) {
	line := Line{
		LineID:      id.New(),
		LineNo:      len(o.Lines) + 1,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		Rate:        rate,
		Amount:      rate.Mul(quantity.Decimal()),
	}
	o.Lines = append(o.Lines, line)
	o.recalculateTotals()
}

func (o *SalesOrder) recalculateTotals() {
	o.TotalQuantity = 0
	o.TotalAmount = types.Zero()
	for _, line := range o.Lines {
		o.TotalQuantity += line.Quantity
		o.TotalAmount = o.TotalAmount.Add(line.Amount)
	}
}

// Validate implements entity.Validatable.
func (o *SalesOrder) Validate(ctx context.Context) error {
	if err := o.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(o.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
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
		if line.Rate.IsNegative() {
			return apperror.NewValidation("rate cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// Transition moves the order to the next state, enforcing the machine.
func (o *SalesOrder) Transition(next Status) error {
	if !o.Status.CanTransitionTo(next) {
		return apperror.NewInvalidState("sales_order", string(o.Status), string(next)).
			WithDetail("order_number", o.Number)
	}
	o.Status = next
	o.Touch()
	return nil
}
