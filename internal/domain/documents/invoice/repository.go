package invoice

import (
	"context"
	"time"

	"inventra/internal/core/id"
	"inventra/internal/domain"
)

// Repository defines operations for invoices and their payments.
type Repository interface {
	Create(ctx context.Context, doc *Invoice) error
	GetByID(ctx context.Context, docID id.ID) (*Invoice, error)
	GetByNumber(ctx context.Context, number string) (*Invoice, error)
	Update(ctx context.Context, doc *Invoice) error

	GetLines(ctx context.Context, docID id.ID) ([]Line, error)
	SaveLines(ctx context.Context, docID id.ID, lines []Line) error

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error)

	GetForUpdate(ctx context.Context, docID id.ID) (*Invoice, error)

	// ExistsForOrder reports whether a non-cancelled invoice already
	// references the sales order.
	ExistsForOrder(ctx context.Context, salesOrderID id.ID) (bool, error)

	// Payments

	SavePayment(ctx context.Context, payment *Payment) error
	GetPayments(ctx context.Context, invoiceID id.ID) ([]Payment, error)
}

// ListFilter for filtering invoices.
type ListFilter struct {
	domain.ListFilter

	CustomerID *id.ID
	Status     *PaymentStatus
	Cancelled  *bool
	DateFrom   *time.Time
	DateTo     *time.Time
}
