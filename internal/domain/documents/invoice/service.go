package invoice

import (
	"context"
	"fmt"
	"time"

	"inventra/internal/core/apperror"
	appctx "inventra/internal/core/context"
	"inventra/internal/core/id"
	"inventra/internal/core/numerator"
	"inventra/internal/core/tenant"
	"inventra/internal/core/tx"
	"inventra/internal/core/types"
	"inventra/internal/domain"
	"inventra/internal/domain/documents/salesorder"
	"inventra/internal/domain/ledger"
	"inventra/pkg/logger"
)

const recorderType = "Invoice"

// ProductStock exposes the denormalized product total for the caller-level
// overdraft check.
type ProductStock interface {
	GetName(ctx context.Context, productID id.ID) (string, error)
	GetTotalStock(ctx context.Context, productID id.ID) (types.Quantity, error)
}

// Service provides business operations for invoices.
type Service struct {
	repo      Repository
	orders    *salesorder.Service
	ledger    *ledger.Service
	products  ProductStock
	numerator numerator.Generator
	txManager tx.Manager // Optional - if nil, obtained from context
}

// NewService creates a new invoice service.
func NewService(
	repo Repository,
	orders *salesorder.Service,
	ledgerSvc *ledger.Service,
	products ProductStock,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		ledger:    ledgerSvc,
		products:  products,
		numerator: numerator,
		txManager: txManager,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// CreateFromOrder invoices an approved sales order. The order's item
// snapshot is copied onto the invoice, the reservation is consumed oldest
// batch first, and the order is marked COMPLETED. One transaction covers
// all of it.
func (s *Service) CreateFromOrder(ctx context.Context, orderID id.ID) (*Invoice, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var doc *Invoice
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.Status != salesorder.StatusApproved {
			return apperror.NewInvalidState("sales_order", string(order.Status), string(salesorder.StatusCompleted)).
				WithDetail("order_number", order.Number)
		}

		exists, err := s.repo.ExistsForOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("check existing invoice: %w", err)
		}
		if exists {
			return apperror.NewConflict("order is already invoiced").
				WithDetail("order_number", order.Number)
		}

		doc = NewInvoice(order.ID, order.CustomerID)
		doc.CreatedBy = appctx.GetUserID(ctx)
		for _, ol := range order.Lines {
			doc.Lines = append(doc.Lines, Line{
				LineID:      id.New(),
				LineNo:      ol.LineNo,
				ProductID:   ol.ProductID,
				WarehouseID: ol.WarehouseID,
				Quantity:    ol.Quantity,
				Rate:        ol.Rate,
				Amount:      ol.Amount,
			})
		}
		doc.TotalQuantity = order.TotalQuantity
		doc.TotalAmount = order.TotalAmount

		if err := doc.Validate(ctx); err != nil {
			return err
		}
		if err := s.checkTotalStock(ctx, doc.Lines); err != nil {
			return err
		}

		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("INV"), numerator.DefaultOptions(), time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number

		rec := ledger.Recorder{
			ID:      doc.ID,
			Type:    recorderType,
			Version: doc.PostedVersion + 1,
			Date:    doc.Date,
		}
		if err := s.ledger.Consume(ctx, rec, s.ledgerLines(doc)); err != nil {
			return err
		}
		doc.MarkPosted()

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}
		if err := s.repo.SaveLines(ctx, doc.ID, doc.Lines); err != nil {
			return fmt.Errorf("save lines: %w", err)
		}

		_, err = s.orders.Complete(ctx, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice created", "id", doc.ID, "number", doc.Number, "order_id", doc.SalesOrderID)
	return doc, nil
}

// Cancel restores the invoiced quantity to stock and marks the invoice
// cancelled. Quantities go back to the oldest batch in each line's
// warehouse, keeping batch selection FIFO-consistent with consumption.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*Invoice, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var doc *Invoice
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		if doc.Cancelled {
			return apperror.NewBusinessRule(
				apperror.CodeBusinessRule,
				"invoice is already cancelled",
			).WithDetail("invoice_number", doc.Number)
		}

		lines, err := s.repo.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		doc.Lines = lines

		rec := ledger.Recorder{
			ID:      doc.ID,
			Type:    recorderType,
			Version: doc.PostedVersion + 1,
			Date:    doc.Date,
		}
		if err := s.ledger.Restore(ctx, rec, s.ledgerLines(doc)); err != nil {
			return err
		}

		doc.Cancelled = true
		doc.MarkUnposted()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "invoice cancelled", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// AddPayment records a payment and refreshes the payment status.
func (s *Service) AddPayment(ctx context.Context, payment *Payment) (*Invoice, error) {
	if err := payment.Validate(ctx); err != nil {
		return nil, err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var doc *Invoice
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err = s.repo.GetForUpdate(ctx, payment.InvoiceID)
		if err != nil {
			return err
		}
		if doc.Cancelled {
			return apperror.NewBusinessRule(
				apperror.CodeBusinessRule,
				"cannot pay a cancelled invoice",
			).WithDetail("invoice_number", doc.Number)
		}
		if payment.Amount.GreaterThan(doc.Outstanding()) {
			return apperror.NewBusinessRule(
				apperror.CodeBusinessRule,
				"payment exceeds outstanding balance",
			).WithDetail("outstanding", doc.Outstanding().String())
		}

		if id.IsNil(payment.ID) {
			payment.ID = id.New()
		}
		payment.CustomerID = doc.CustomerID
		if payment.Date.IsZero() {
			payment.Date = time.Now().UTC()
		}
		payment.CreatedAt = time.Now().UTC()
		payment.CreatedBy = appctx.GetUserID(ctx)

		if err := s.repo.SavePayment(ctx, payment); err != nil {
			return fmt.Errorf("save payment: %w", err)
		}

		doc.PaidAmount = doc.PaidAmount.Add(payment.Amount)
		doc.RecalculateStatus()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "payment recorded",
		"invoice_id", doc.ID,
		"mode", payment.Mode,
		"amount", payment.Amount,
		"status", doc.Status,
	)
	return doc, nil
}

// GetByID retrieves an invoice with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Invoice, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	doc.Lines = lines
	return doc, nil
}

// GetPayments lists payments for an invoice.
func (s *Service) GetPayments(ctx context.Context, invoiceID id.ID) ([]Payment, error) {
	return s.repo.GetPayments(ctx, invoiceID)
}

// List retrieves invoices with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	return s.repo.List(ctx, filter)
}

// checkTotalStock rejects an invoice whose per-product quantity exceeds
// the denormalized product total. The ledger still enforces per-batch
// committed quantities; this check fails earlier with a clearer message.
func (s *Service) checkTotalStock(ctx context.Context, lines []Line) error {
	perProduct := make(map[id.ID]types.Quantity)
	for _, line := range lines {
		perProduct[line.ProductID] += line.Quantity
	}
	for productID, qty := range perProduct {
		total, err := s.products.GetTotalStock(ctx, productID)
		if err != nil {
			return fmt.Errorf("get total stock: %w", err)
		}
		if qty > total {
			name, nameErr := s.products.GetName(ctx, productID)
			if nameErr != nil || name == "" {
				name = productID.String()
			}
			return apperror.NewInsufficientStock(name, qty.String(), total.String())
		}
	}
	return nil
}

func (s *Service) ledgerLines(doc *Invoice) []ledger.Line {
	lines := make([]ledger.Line, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, ledger.Line{
			ProductID:   line.ProductID,
			WarehouseID: line.WarehouseID,
			Quantity:    line.Quantity,
		})
	}
	return lines
}
