package ledger

import (
	"context"
	"fmt"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/tenant"
	"inventra/internal/core/tx"
	"inventra/internal/core/types"
	"inventra/pkg/logger"
)

// Service provides the batch ledger operations.
//
// Every public operation runs inside a single transaction; multi-line
// operations are all-or-nothing. Batches are locked in FIFO order before
// mutation, and bucket movements are conditional, so concurrent operations
// cannot overdraw a batch.
type Service struct {
	repo      Repository
	products  ProductResolver
	txManager tx.Manager // Optional - if nil, obtained from context
}

// NewService creates a new ledger service.
func NewService(repo Repository, products ProductResolver, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		txManager: txManager,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

func (s *Service) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	return txm.RunInTransaction(ctx, fn)
}

// productName resolves a display name for shortage messages; falls back to
// the raw ID when the catalog lookup fails.
func (s *Service) productName(ctx context.Context, productID id.ID) string {
	if s.products == nil {
		return productID.String()
	}
	name, err := s.products.GetName(ctx, productID)
	if err != nil || name == "" {
		return productID.String()
	}
	return name
}

// Reserve moves quantities from available to committed, oldest batch first.
// If any line cannot be covered in full the whole operation fails and no
// quantities move.
func (s *Service) Reserve(ctx context.Context, rec Recorder, lines []Line) error {
	if err := validateLines(lines); err != nil {
		return err
	}

	return s.inTransaction(ctx, func(ctx context.Context) error {
		var movements []entity.StockMovement

		for _, line := range lines {
			batches, err := s.repo.GetBatchesForUpdate(ctx, line.ProductID, line.WarehouseID)
			if err != nil {
				return fmt.Errorf("lock batches for %s: %w", line.ProductID, err)
			}

			remaining := line.Quantity
			for _, batch := range batches {
				if remaining.IsZero() {
					break
				}
				take := min(remaining, batch.Available)
				if !take.IsPositive() {
					continue
				}

				moved, err := s.repo.MoveToCommitted(ctx, batch.ID, take)
				if err != nil {
					return fmt.Errorf("commit batch %s: %w", batch.BatchNumber, err)
				}
				if !moved {
					return apperror.NewConcurrentModification("stock_batch", batch.ID.String())
				}

				movements = append(movements, s.movement(ctx, rec, batch, entity.MovementKindReserve, take.Neg(), take))
				remaining -= take
			}

			if remaining.IsPositive() {
				available := line.Quantity - remaining
				return apperror.NewInsufficientStock(
					s.productName(ctx, line.ProductID),
					line.Quantity.String(),
					available.String(),
				)
			}
		}

		if err := s.repo.RecordMovements(ctx, movements); err != nil {
			return fmt.Errorf("record movements: %w", err)
		}

		logger.Info(ctx, "reserved stock",
			"recorder_id", rec.ID,
			"recorder_type", rec.Type,
			"lines", len(lines),
		)
		return nil
	})
}

// Release moves quantities from committed back to available, oldest batch
// first, capped per batch by its committed quantity. Fails if the total
// committed across batches cannot cover a line.
func (s *Service) Release(ctx context.Context, rec Recorder, lines []Line) error {
	if err := validateLines(lines); err != nil {
		return err
	}

	return s.inTransaction(ctx, func(ctx context.Context) error {
		var movements []entity.StockMovement

		for _, line := range lines {
			batches, err := s.repo.GetBatchesForUpdate(ctx, line.ProductID, line.WarehouseID)
			if err != nil {
				return fmt.Errorf("lock batches for %s: %w", line.ProductID, err)
			}

			remaining := line.Quantity
			for _, batch := range batches {
				if remaining.IsZero() {
					break
				}
				give := min(remaining, batch.Committed)
				if !give.IsPositive() {
					continue
				}

				moved, err := s.repo.MoveToAvailable(ctx, batch.ID, give)
				if err != nil {
					return fmt.Errorf("release batch %s: %w", batch.BatchNumber, err)
				}
				if !moved {
					return apperror.NewConcurrentModification("stock_batch", batch.ID.String())
				}

				movements = append(movements, s.movement(ctx, rec, batch, entity.MovementKindRelease, give, give.Neg()))
				remaining -= give
			}

			if remaining.IsPositive() {
				return apperror.NewBusinessRule(
					apperror.CodeBusinessRule,
					"Unable to return all quantities",
				).WithDetail("product", s.productName(ctx, line.ProductID)).
					WithDetail("unreturned", remaining.String())
			}
		}

		if err := s.repo.RecordMovements(ctx, movements); err != nil {
			return fmt.Errorf("record movements: %w", err)
		}

		logger.Info(ctx, "released stock",
			"recorder_id", rec.ID,
			"recorder_type", rec.Type,
			"lines", len(lines),
		)
		return nil
	})
}

// Consume removes committed quantities (stock physically leaves), oldest
// batch first. Only the committed side moves; the product's total stock
// is left alone, so a reserve-then-consume sequence never changes it.
func (s *Service) Consume(ctx context.Context, rec Recorder, lines []Line) error {
	if err := validateLines(lines); err != nil {
		return err
	}

	return s.inTransaction(ctx, func(ctx context.Context) error {
		var movements []entity.StockMovement

		for _, line := range lines {
			batches, err := s.repo.GetBatchesForUpdate(ctx, line.ProductID, line.WarehouseID)
			if err != nil {
				return fmt.Errorf("lock batches for %s: %w", line.ProductID, err)
			}

			remaining := line.Quantity
			for _, batch := range batches {
				if remaining.IsZero() {
					break
				}
				take := min(remaining, batch.Committed)
				if !take.IsPositive() {
					continue
				}

				taken, err := s.repo.TakeCommitted(ctx, batch.ID, take)
				if err != nil {
					return fmt.Errorf("consume batch %s: %w", batch.BatchNumber, err)
				}
				if !taken {
					return apperror.NewConcurrentModification("stock_batch", batch.ID.String())
				}

				movements = append(movements, s.movement(ctx, rec, batch, entity.MovementKindConsume, 0, take.Neg()))
				remaining -= take
			}

			if remaining.IsPositive() {
				available := line.Quantity - remaining
				return apperror.NewInsufficientStock(
					s.productName(ctx, line.ProductID),
					line.Quantity.String(),
					available.String(),
				)
			}
		}

		if err := s.repo.RecordMovements(ctx, movements); err != nil {
			return fmt.Errorf("record movements: %w", err)
		}

		logger.Info(ctx, "consumed stock",
			"recorder_id", rec.ID,
			"recorder_type", rec.Type,
			"lines", len(lines),
		)
		return nil
	})
}

// Restore puts consumed quantities back on the shelf after an invoice is
// cancelled. The full quantity goes to the oldest batch of the product in
// the warehouse and the product's total stock is incremented.
func (s *Service) Restore(ctx context.Context, rec Recorder, lines []Line) error {
	if err := validateLines(lines); err != nil {
		return err
	}

	return s.inTransaction(ctx, func(ctx context.Context) error {
		var movements []entity.StockMovement

		for _, line := range lines {
			batches, err := s.repo.GetBatchesForUpdate(ctx, line.ProductID, line.WarehouseID)
			if err != nil {
				return fmt.Errorf("lock batches for %s: %w", line.ProductID, err)
			}
			if len(batches) == 0 {
				return apperror.NewNotFound("stock_batch", line.ProductID.String()).
					WithDetail("warehouse_id", line.WarehouseID.String())
			}

			oldest := batches[0]
			if err := s.repo.AddAvailable(ctx, oldest.ID, line.Quantity); err != nil {
				return fmt.Errorf("restore batch %s: %w", oldest.BatchNumber, err)
			}

			movements = append(movements, s.movement(ctx, rec, oldest, entity.MovementKindRestore, line.Quantity, 0))

			if err := s.repo.AdjustProductTotal(ctx, line.ProductID, line.Quantity); err != nil {
				return fmt.Errorf("increment product total: %w", err)
			}
		}

		if err := s.repo.RecordMovements(ctx, movements); err != nil {
			return fmt.Errorf("record movements: %w", err)
		}

		logger.Info(ctx, "restored stock",
			"recorder_id", rec.ID,
			"recorder_type", rec.Type,
			"lines", len(lines),
		)
		return nil
	})
}

// Adjust sets a batch's available quantity to a physically counted value.
// The product's total stock absorbs the delta, floor-clamped at zero on
// decrease. Committed stock is untouched.
func (s *Service) Adjust(ctx context.Context, rec Recorder, input AdjustInput) (*AdjustResult, error) {
	if input.NewQuantity.IsNegative() {
		return nil, apperror.NewValidation("adjusted quantity cannot be negative").
			WithDetail("field", "newQuantity")
	}

	var result *AdjustResult
	err := s.inTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.repo.GetBatchForUpdate(ctx, input.BatchID)
		if err != nil {
			return err
		}

		previous := batch.Available
		delta := input.NewQuantity - previous
		if err := s.repo.SetAvailable(ctx, batch.ID, input.NewQuantity); err != nil {
			return fmt.Errorf("set batch quantity: %w", err)
		}

		if !delta.IsZero() {
			if err := s.repo.AdjustProductTotal(ctx, batch.ProductID, delta); err != nil {
				return fmt.Errorf("adjust product total: %w", err)
			}

			movements := []entity.StockMovement{
				s.movement(ctx, rec, batch, entity.MovementKindAdjust, delta, 0),
			}
			if err := s.repo.RecordMovements(ctx, movements); err != nil {
				return fmt.Errorf("record movements: %w", err)
			}
		}

		result = &AdjustResult{
			BatchID:          batch.ID,
			ProductID:        batch.ProductID,
			WarehouseID:      batch.WarehouseID,
			PreviousQuantity: previous,
			NewQuantity:      input.NewQuantity,
			Delta:            delta,
		}

		logger.Info(ctx, "adjusted batch quantity",
			"batch_id", batch.ID,
			"previous", previous,
			"new", input.NewQuantity,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Receive creates a new batch for incoming stock (purchase receipt) and
// increments the product's total stock. The batch number is generated from
// the warehouse sequence.
func (s *Service) Receive(ctx context.Context, rec Recorder, numbers *BatchNumberGenerator, line ReceiptLine) (*StockBatch, error) {
	if !line.Quantity.IsPositive() {
		return nil, apperror.NewValidation("receipt quantity must be positive").
			WithDetail("field", "quantity")
	}

	var created *StockBatch
	err := s.inTransaction(ctx, func(ctx context.Context) error {
		number, err := numbers.Next(ctx, line.WarehouseID)
		if err != nil {
			return err
		}

		batch := NewStockBatch(number, line.ProductID, line.WarehouseID, line.Quantity, line.UnitCost)
		batch.ExpiryDate = line.ExpiryDate
		if err := batch.Validate(ctx); err != nil {
			return err
		}
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}

		if err := s.repo.AdjustProductTotal(ctx, line.ProductID, line.Quantity); err != nil {
			return fmt.Errorf("increment product total: %w", err)
		}

		movements := []entity.StockMovement{
			s.movement(ctx, rec, batch, entity.MovementKindReceipt, line.Quantity, 0),
		}
		if err := s.repo.RecordMovements(ctx, movements); err != nil {
			return fmt.Errorf("record movements: %w", err)
		}

		created = batch
		logger.Info(ctx, "received stock batch",
			"batch_number", batch.BatchNumber,
			"product_id", batch.ProductID,
			"quantity", line.Quantity,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// TransferOut removes quantity from a specific batch's available stock.
// Part of a warehouse transfer; the caller pairs it with ReceiveTransfer
// in the same transaction.
func (s *Service) TransferOut(ctx context.Context, rec Recorder, batchID id.ID, qty types.Quantity) error {
	if !qty.IsPositive() {
		return apperror.NewValidation("transfer quantity must be positive")
	}

	return s.inTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.repo.GetBatchForUpdate(ctx, batchID)
		if err != nil {
			return err
		}

		taken, err := s.repo.TakeAvailable(ctx, batch.ID, qty)
		if err != nil {
			return fmt.Errorf("take from batch %s: %w", batch.BatchNumber, err)
		}
		if !taken {
			return apperror.NewInsufficientStock(
				s.productName(ctx, batch.ProductID),
				qty.String(),
				batch.Available.String(),
			).WithDetail("batch_number", batch.BatchNumber)
		}

		movements := []entity.StockMovement{
			s.movement(ctx, rec, batch, entity.MovementKindTransferOut, qty.Neg(), 0),
		}
		if err := s.repo.RecordMovements(ctx, movements); err != nil {
			return fmt.Errorf("record movements: %w", err)
		}
		return nil
	})
}

// ReceiveTransfer creates a batch in the receiving warehouse for transferred
// stock, carrying the unit cost from the sending batch. The product total is
// untouched: a transfer moves stock, it does not create it.
func (s *Service) ReceiveTransfer(ctx context.Context, rec Recorder, numbers *BatchNumberGenerator, productID, warehouseID id.ID, qty types.Quantity, unitCost types.Money) (*StockBatch, error) {
	if !qty.IsPositive() {
		return nil, apperror.NewValidation("transfer quantity must be positive")
	}

	var created *StockBatch
	err := s.inTransaction(ctx, func(ctx context.Context) error {
		number, err := numbers.Next(ctx, warehouseID)
		if err != nil {
			return err
		}

		batch := NewStockBatch(number, productID, warehouseID, qty, unitCost)
		if err := s.repo.CreateBatch(ctx, batch); err != nil {
			return fmt.Errorf("create receiving batch: %w", err)
		}

		movements := []entity.StockMovement{
			s.movement(ctx, rec, batch, entity.MovementKindReceipt, qty, 0),
		}
		if err := s.repo.RecordMovements(ctx, movements); err != nil {
			return fmt.Errorf("record movements: %w", err)
		}

		created = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CheckAvailability verifies that each line can be covered by available
// stock, without locking or moving anything. Used by transfer requests at
// creation time.
func (s *Service) CheckAvailability(ctx context.Context, lines []Line) error {
	if err := validateLines(lines); err != nil {
		return err
	}

	for _, line := range lines {
		balance, err := s.repo.GetBalance(ctx, line.WarehouseID, line.ProductID)
		if err != nil {
			return fmt.Errorf("get balance for %s: %w", line.ProductID, err)
		}
		if balance.Available < line.Quantity {
			return apperror.NewInsufficientStock(
				s.productName(ctx, line.ProductID),
				line.Quantity.String(),
				balance.Available.String(),
			)
		}
	}
	return nil
}

// GetBalance returns the aggregated balance for a product in a warehouse.
func (s *Service) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	return s.repo.GetBalance(ctx, warehouseID, productID)
}

// GetWarehouseStock returns all non-zero balances in a warehouse.
func (s *Service) GetWarehouseStock(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error) {
	return s.repo.GetBalancesByWarehouse(ctx, warehouseID)
}

// ListBatches returns batches matching the filter.
func (s *Service) ListBatches(ctx context.Context, filter BatchFilter) ([]*StockBatch, error) {
	return s.repo.ListBatches(ctx, filter)
}

// GetBatch retrieves a batch by ID.
func (s *Service) GetBatch(ctx context.Context, batchID id.ID) (*StockBatch, error) {
	return s.repo.GetBatch(ctx, batchID)
}

// movement builds a journal row for a batch mutation.
func (s *Service) movement(ctx context.Context, rec Recorder, batch *StockBatch, kind entity.MovementKind, deltaAvailable, deltaCommitted types.Quantity) entity.StockMovement {
	base := entity.NewMovementBase(rec.ID, rec.Type, rec.Version, rec.Date, kind)
	base.TenantID = tenant.GetTenantID(ctx)
	return entity.NewStockMovement(base, batch.WarehouseID, batch.ProductID, batch.ID, deltaAvailable, deltaCommitted)
}

func validateLines(lines []Line) error {
	if len(lines) == 0 {
		return apperror.NewValidation("at least one line is required")
	}
	for i, line := range lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: product is required", i))
		}
		if id.IsNil(line.WarehouseID) {
			return apperror.NewValidation(fmt.Sprintf("line %d: warehouse is required", i))
		}
		if !line.Quantity.IsPositive() {
			return apperror.NewValidation(fmt.Sprintf("line %d: quantity must be positive", i))
		}
	}
	return nil
}
