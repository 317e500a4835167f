package adjustment

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

const recorderType = "StockAdjustment"

// ChangeLogger records and serves the immutable audit trail for
// adjustments. Write failures are logged and swallowed, never failing
// the adjustment itself.
type ChangeLogger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error
	EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.ChangeRecord, error)
}

// Service provides business operations for stock adjustments.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	auditor   ChangeLogger
	numerator numerator.Generator
	txManager tx.Manager // Optional - if nil, obtained from context
}

// NewService creates a new adjustment service.
func NewService(
	repo Repository,
	ledgerSvc *ledger.Service,
	auditor ChangeLogger,
	numerator numerator.Generator,
	txManager tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		ledger:    ledgerSvc,
		auditor:   auditor,
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

// Create applies the adjustment and persists the document in one
// transaction. QUANTITY lines set each batch's available quantity to the
// counted value and shift the product total by the delta, floor-clamped
// at zero. VALUE lines are recorded without moving stock.
func (s *Service) Create(ctx context.Context, doc *Adjustment) (*Adjustment, error) {
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	if doc.Number == "" {
		number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("ADJ"), numerator.DefaultOptions(), time.Now())
		if err != nil {
			return nil, fmt.Errorf("generate number: %w", err)
		}
		doc.Number = number
	}
	audit.EnrichCreatedByDirect(ctx, &doc.CreatedBy, &doc.UpdatedBy)

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		rec := ledger.Recorder{
			ID:      doc.ID,
			Type:    recorderType,
			Version: doc.PostedVersion + 1,
			Date:    doc.Date,
		}

		for i := range doc.Lines {
			line := &doc.Lines[i]
			if doc.Type != TypeQuantity {
				continue
			}
			result, err := s.ledger.Adjust(ctx, rec, ledger.AdjustInput{
				BatchID:     line.BatchID,
				NewQuantity: line.NewQuantity,
			})
			if err != nil {
				return err
			}
			line.PreviousQuantity = result.PreviousQuantity
			line.Delta = result.Delta
		}

		doc.MarkPosted()
		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create adjustment: %w", err)
		}
		return s.repo.SaveLines(ctx, doc.ID, doc.Lines)
	})
	if err != nil {
		return nil, err
	}

	s.logAudit(ctx, doc)

	logger.Info(ctx, "adjustment created",
		"id", doc.ID,
		"number", doc.Number,
		"type", doc.Type,
		"lines", len(doc.Lines),
	)
	return doc, nil
}

// GetByID retrieves an adjustment with lines.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Adjustment, error) {
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

// List retrieves adjustments with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Adjustment], error) {
	return s.repo.List(ctx, filter)
}

// History returns the audit trail for an adjustment, newest first.
// The document is loaded first so a missing ID surfaces as not found
// rather than an empty trail.
func (s *Service) History(ctx context.Context, docID id.ID, limit int) ([]audit.ChangeRecord, error) {
	if _, err := s.GetByID(ctx, docID); err != nil {
		return nil, err
	}
	if s.auditor == nil {
		return nil, nil
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.auditor.EntityHistory(ctx, recorderType, docID, limit)
}

// logAudit records before/after deltas per line. Best effort.
func (s *Service) logAudit(ctx context.Context, doc *Adjustment) {
	if s.auditor == nil {
		return
	}

	lines := make([]map[string]any, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		lines = append(lines, map[string]any{
			"product_id":        line.ProductID.String(),
			"batch_id":          line.BatchID.String(),
			"previous_quantity": line.PreviousQuantity.String(),
			"new_quantity":      line.NewQuantity.String(),
			"delta":             line.Delta.String(),
		})
	}
	changes := map[string]any{
		"type":         string(doc.Type),
		"warehouse_id": doc.WarehouseID.String(),
		"reason":       doc.Reason,
		"lines":        lines,
	}

	if err := s.auditor.LogChange(ctx, recorderType, doc.ID, "create", changes); err != nil {
		logger.Warn(ctx, "audit log failed", "adjustment_id", doc.ID, "error", err)
	}
}
