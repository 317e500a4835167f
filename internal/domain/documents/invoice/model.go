// Package invoice provides the Invoice document and its payments.
//
// An invoice fulfills an approved sales order: creation consumes the
// order's reservation (committed stock leaves the warehouse, oldest batch
// first) and cancellation puts the quantity back. Payments accumulate
// against the invoice total and drive the payment status.
package invoice

import (
	"context"
	"time"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// PaymentStatus tracks how much of the invoice is settled.
type PaymentStatus string

const (
	StatusUnpaid PaymentStatus = "UNPAID"
	StatusPart   PaymentStatus = "PART"
	StatusPaid   PaymentStatus = "PAID"
)

// PaymentMode is the payment channel.
type PaymentMode string

const (
	ModeCash     PaymentMode = "CASH"
	ModeTransfer PaymentMode = "TRANSFER"
	ModePOS      PaymentMode = "POS"
	ModeCheque   PaymentMode = "CHEQUE"
)

// Invoice represents a billing document for a sales order.
type Invoice struct {
	entity.Document

	SalesOrderID id.ID `db:"sales_order_id" json:"salesOrderId"`
	CustomerID   id.ID `db:"customer_id" json:"customerId"`

	Status PaymentStatus `db:"status" json:"status"`

	// Cancelled invoices have had their stock restored
	Cancelled bool `db:"cancelled" json:"cancelled"`

	// Totals (snapshot from the order at creation)
	TotalQuantity types.Quantity `db:"total_quantity" json:"totalQuantity"`
	TotalAmount   types.Money    `db:"total_amount" json:"totalAmount"`

	// PaidAmount is the denormalized sum of payments
	PaidAmount types.Money `db:"paid_amount" json:"paidAmount"`

	// Table part: invoiced goods (own snapshot, not a join to the order)
	Lines []Line `db:"-" json:"lines"`
}

// Line represents an invoiced product quantity.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID   id.ID `db:"product_id" json:"productId"`
	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`
	Rate     types.Money    `db:"rate" json:"rate"`
	Amount   types.Money    `db:"amount" json:"amount"`
}

// Payment is a settlement against an invoice.
type Payment struct {
	ID       id.ID  `db:"id" json:"id"`
	TenantID string `db:"tenant_id" json:"-"`

	InvoiceID  id.ID `db:"invoice_id" json:"invoiceId"`
	CustomerID id.ID `db:"customer_id" json:"customerId"`

	Mode   PaymentMode `db:"mode" json:"mode"`
	Amount types.Money `db:"amount" json:"amount"`

	// Reference is a bank/cheque reference
	Reference *string `db:"reference" json:"reference,omitempty"`

	Date      time.Time `db:"date" json:"date"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
}

// NewInvoice creates an invoice shell; lines come from the order snapshot.
func NewInvoice(salesOrderID, customerID id.ID) *Invoice {
	return &Invoice{
		Document:     entity.NewDocument(),
		SalesOrderID: salesOrderID,
		CustomerID:   customerID,
		Status:       StatusUnpaid,
		PaidAmount:   types.Zero(),
		Lines:        make([]Line, 0),
	}
}

// Validate implements entity.Validatable.
func (inv *Invoice) Validate(ctx context.Context) error {
	if err := inv.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(inv.SalesOrderID) {
		return apperror.NewValidation("sales order is required").
			WithDetail("field", "salesOrderId")
	}
	if id.IsNil(inv.CustomerID) {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerId")
	}
	if len(inv.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range inv.Lines {
		if id.IsNil(line.ProductID) || id.IsNil(line.WarehouseID) {
			return apperror.NewValidation("product and warehouse are required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}

// RecalculateStatus updates the payment status from the paid amount.
func (inv *Invoice) RecalculateStatus() {
	switch {
	case inv.PaidAmount.GreaterThanOrEqual(inv.TotalAmount) && inv.TotalAmount.IsPositive():
		inv.Status = StatusPaid
	case inv.PaidAmount.IsPositive():
		inv.Status = StatusPart
	default:
		inv.Status = StatusUnpaid
	}
}

// Outstanding returns the unsettled amount, never negative.
func (inv *Invoice) Outstanding() types.Money {
	rest := inv.TotalAmount.Sub(inv.PaidAmount)
	if rest.IsNegative() {
		return types.Zero()
	}
	return rest
}

// ValidatePayment checks a payment before it is applied.
func (p *Payment) Validate(ctx context.Context) error {
	if id.IsNil(p.InvoiceID) {
		return apperror.NewValidation("invoice is required").
			WithDetail("field", "invoiceId")
	}
	if !p.Amount.IsPositive() {
		return apperror.NewValidation("payment amount must be positive").
			WithDetail("field", "amount")
	}
	if !isValidPaymentMode(p.Mode) {
		return apperror.NewValidation("invalid payment mode").
			WithDetail("field", "mode").
			WithDetail("value", string(p.Mode))
	}
	return nil
}

func isValidPaymentMode(m PaymentMode) bool {
	switch m {
	case ModeCash, ModeTransfer, ModePOS, ModeCheque:
		return true
	}
	return false
}
