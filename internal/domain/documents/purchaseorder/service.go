package purchaseorder

import (
	"context"
	"fmt"
	"time"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/core/numerator"
	"inventra/internal/core/tenant"
	"inventra/internal/core/tx"
	"inventra/internal/domain"
	"inventra/internal/domain/audit"
	"inventra/internal/domain/ledger"
	"inventra/pkg/logger"
)

const recorderType = "PurchaseOrder"

// Service provides business operations for purchase orders.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	numbers   *ledger.BatchNumberGenerator
	numerator numerator.Generator
	txManager tx.Manager // Optional - if nil, obtained from context
}

// NewService creates a new purchase order service.
func NewService(
	repo Repository,
	ledgerSvc *ledger.Service,
	numbers *ledger.BatchNumberGenerator,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		numbers:   numbers,
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

// Create saves a new order as a draft.
func (s *Service) Create(ctx context.Context, doc *PurchaseOrder) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("PO"), numerator.DefaultOptions(), time.Now())
		if err != nil {
			return fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}
	if doc.Status == "" {
		doc.Status = StatusDraft
	}
	audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "purchase order created", "id", doc.ID, "number", doc.Number)
	return nil
}

// Submit moves a draft to PENDING.
func (s *Service) Submit(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *PurchaseOrder) error {
		return doc.Transition(StatusPending)
	})
}

// Approve receives the ordered goods: one new batch per line in the
// line's warehouse, with a freshly generated batch number and the line's
// unit cost. All lines are received in one transaction.
func (s *Service) Approve(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *PurchaseOrder) error {
		if err := doc.Transition(StatusApproved); err != nil {
			return err
		}

		rec := ledger.Recorder{
			ID:      doc.ID,
			Type:    recorderType,
			Version: doc.PostedVersion + 1,
			Date:    doc.Date,
		}
		for i := range doc.Lines {
			line := &doc.Lines[i]
			batch, err := s.ledger.Receive(ctx, rec, s.numbers, ledger.ReceiptLine{
				ProductID:   line.ProductID,
				WarehouseID: line.WarehouseID,
				Quantity:    line.Quantity,
				UnitCost:    line.UnitCost,
				ExpiryDate:  line.ExpiryDate,
			})
			if err != nil {
				return err
			}
			line.BatchID = &batch.ID
		}

		doc.MarkPosted()
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	})
}

// Reject declines a pending order.
func (s *Service) Reject(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *PurchaseOrder) error {
		return doc.Transition(StatusRejected)
	})
}

// Cancel cancels an order that has not received stock.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *PurchaseOrder) error {
		return doc.Transition(StatusCancelled)
	})
}

// Complete closes an approved order.
func (s *Service) Complete(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *PurchaseOrder) error {
		return doc.Transition(StatusCompleted)
	})
}

func (s *Service) mutate(ctx context.Context, docID id.ID, fn func(ctx context.Context, doc *PurchaseOrder) error) (*PurchaseOrder, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var doc *PurchaseOrder
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		doc, err = s.repo.GetForUpdate(ctx, docID)
		if err != nil {
			return err
		}
		lines, err := s.repo.GetLines(ctx, docID)
		if err != nil {
			return fmt.Errorf("get lines: %w", err)
		}
		doc.Lines = lines

		if err := fn(ctx, doc); err != nil {
			return err
		}
		audit.EnrichUpdatedByDirect(ctx, &doc.UpdatedBy)
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase order updated", "id", doc.ID, "number", doc.Number, "status", doc.Status)
	return doc, nil
}

// Update modifies a draft order.
func (s *Service) Update(ctx context.Context, doc *PurchaseOrder) error {
	if doc.Status != StatusDraft {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"only draft orders can be modified",
		).WithDetail("status", string(doc.Status))
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("update document: %w", err)
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	})
}

// Delete removes a draft order.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return err
	}
	if doc.Status != StatusDraft {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"only draft orders can be deleted",
		).WithDetail("status", string(doc.Status))
	}
	return s.repo.Delete(ctx, docID)
}

// GetByID retrieves an order with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
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

// List retrieves orders with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error) {
	return s.repo.List(ctx, filter)
}
