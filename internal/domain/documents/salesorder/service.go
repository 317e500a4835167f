package salesorder

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

const recorderType = "SalesOrder"

// Service provides business operations for sales orders.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	numerator numerator.Generator
	txManager tx.Manager // Optional - if nil, obtained from context
}

// NewService creates a new sales order service.
func NewService(
	repo Repository,
	ledgerSvc *ledger.Service,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
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

// Create saves a new order as a draft. Nothing is reserved yet.
func (s *Service) Create(ctx context.Context, doc *SalesOrder) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("SO"), numerator.DefaultOptions(), time.Now())
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

	logger.Info(ctx, "sales order created", "id", doc.ID, "number", doc.Number)
	return nil
}

// Submit moves a draft to PENDING and reserves stock for every line,
// all-or-nothing. A shortage on any line leaves no reservation behind.
func (s *Service) Submit(ctx context.Context, docID id.ID) (*SalesOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *SalesOrder) error {
		if err := doc.Transition(StatusPending); err != nil {
			return err
		}
		if err := s.ledger.Reserve(ctx, s.recorder(doc), s.ledgerLines(doc)); err != nil {
			return err
		}
		doc.MarkPosted()
		return nil
	})
}

// Approve marks a pending order as approved. The reservation made at
// submission stays in place.
func (s *Service) Approve(ctx context.Context, docID id.ID) (*SalesOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *SalesOrder) error {
		return doc.Transition(StatusApproved)
	})
}

// Reject declines a pending order and releases its reservation.
func (s *Service) Reject(ctx context.Context, docID id.ID) (*SalesOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *SalesOrder) error {
		released := doc.Status.HoldsReservation()
		if err := doc.Transition(StatusRejected); err != nil {
			return err
		}
		if released {
			if err := s.ledger.Release(ctx, s.recorder(doc), s.ledgerLines(doc)); err != nil {
				return err
			}
			doc.MarkUnposted()
		}
		return nil
	})
}

// Cancel cancels the order, releasing any held reservation.
func (s *Service) Cancel(ctx context.Context, docID id.ID) (*SalesOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *SalesOrder) error {
		released := doc.Status.HoldsReservation()
		if err := doc.Transition(StatusCancelled); err != nil {
			return err
		}
		if released {
			if err := s.ledger.Release(ctx, s.recorder(doc), s.ledgerLines(doc)); err != nil {
				return err
			}
			doc.MarkUnposted()
		}
		return nil
	})
}

// Complete marks an approved order as fulfilled. Called by invoice
// creation after the reservation is consumed; the commitment is gone,
// so nothing is released here.
func (s *Service) Complete(ctx context.Context, docID id.ID) (*SalesOrder, error) {
	return s.mutate(ctx, docID, func(ctx context.Context, doc *SalesOrder) error {
		return doc.Transition(StatusCompleted)
	})
}

// mutate loads the order under lock, applies fn and persists the result
// in one transaction.
func (s *Service) mutate(ctx context.Context, docID id.ID, fn func(ctx context.Context, doc *SalesOrder) error) (*SalesOrder, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var doc *SalesOrder
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

	logger.Info(ctx, "sales order updated", "id", doc.ID, "number", doc.Number, "status", doc.Status)
	return doc, nil
}

// Update modifies a draft order.
func (s *Service) Update(ctx context.Context, doc *SalesOrder) error {
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
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*SalesOrder, error) {
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
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesOrder], error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) recorder(doc *SalesOrder) ledger.Recorder {
	return ledger.Recorder{
		ID:      doc.ID,
		Type:    recorderType,
		Version: doc.PostedVersion + 1,
		Date:    doc.Date,
	}
}

func (s *Service) ledgerLines(doc *SalesOrder) []ledger.Line {
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
