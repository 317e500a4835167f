package transfers

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
	"inventra/internal/domain/ledger"
	"inventra/internal/domain/notify"
	"inventra/pkg/logger"
)

// recorderType tags ledger movements produced by transfer confirmations.
const recorderType = "StockRequest"

// Service orchestrates the transfer approval workflow.
type Service struct {
	repo      Repository
	ledger    *ledger.Service
	numbers   *ledger.BatchNumberGenerator
	numerator numerator.Generator
	notifier  notify.Notifier
	txManager tx.Manager // Optional - if nil, obtained from context
}

// Config wires service dependencies.
type Config struct {
	Repo      Repository
	Ledger    *ledger.Service
	Numbers   *ledger.BatchNumberGenerator
	Numerator numerator.Generator
	Notifier  notify.Notifier
	TxManager tx.Manager
}

// NewService creates a transfer service.
func NewService(cfg Config) *Service {
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &Service{
		repo:      cfg.Repo,
		ledger:    cfg.Ledger,
		numbers:   cfg.Numbers,
		numerator: cfg.Numerator,
		notifier:  notifier,
		txManager: cfg.TxManager,
	}
}

func (s *Service) getTxManager(ctx context.Context) (tx.Manager, error) {
	if s.txManager != nil {
		return s.txManager, nil
	}
	return tenant.GetTxManager(ctx)
}

// Create raises a new transfer request in PENDING state.
// Sending stock is validated so obviously uncoverable requests are rejected
// up front, but nothing moves until confirmation.
func (s *Service) Create(ctx context.Context, request *StockRequest) error {
	if err := request.Validate(ctx); err != nil {
		return err
	}
	if !appctx.HasWarehouseAccess(ctx, request.SendingWarehouseID.String()) {
		return apperror.NewForbidden("no access to sending warehouse").
			WithDetail("warehouse_id", request.SendingWarehouseID.String())
	}

	// Reject duplicates: an open request for the same route and product.
	for _, item := range request.Items {
		dup, err := s.repo.HasPendingForProduct(ctx, request.SendingWarehouseID, request.ReceivingWarehouseID, item.ProductID)
		if err != nil {
			return fmt.Errorf("check duplicate request: %w", err)
		}
		if dup {
			return apperror.NewConflict("a pending transfer request already exists for this product and route").
				WithDetail("product_id", item.ProductID.String())
		}
	}

	// Validate that the sending warehouse can cover every line.
	lines := make([]ledger.Line, 0, len(request.Items))
	for _, item := range request.Items {
		lines = append(lines, ledger.Line{
			ProductID:   item.ProductID,
			WarehouseID: request.SendingWarehouseID,
			Quantity:    item.Quantity,
		})
	}
	if err := s.ledger.CheckAvailability(ctx, lines); err != nil {
		return err
	}

	number, err := s.numerator.GetNextNumber(ctx, numerator.DefaultConfig("REQ"), numerator.DefaultOptions(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("request number: %w", err)
	}
	request.Number = number
	request.Status = StatusPending
	request.CreatedBy = appctx.GetUserID(ctx)

	for i := range request.Items {
		if id.IsNil(request.Items[i].ID) {
			request.Items[i].ID = id.New()
		}
		request.Items[i].RequestID = request.ID
		request.Items[i].LineNumber = i + 1
		request.Items[i].TransferValue = request.Items[i].CostPrice.Mul(request.Items[i].Quantity.Decimal())
	}

	txm, err := s.getTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, request); err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		return s.repo.SaveItems(ctx, request.ID, request.Items)
	})
	if err != nil {
		return err
	}

	s.notifyQuietly(ctx, notify.Message{
		Kind:      notify.KindTransferRequested,
		Recipient: request.ApproverID,
		Subject:   fmt.Sprintf("Transfer request %s awaits your approval", request.Number),
		Data:      map[string]any{"request_id": request.ID.String(), "number": request.Number},
	})

	logger.Info(ctx, "transfer request created",
		"request_id", request.ID,
		"number", request.Number,
		"items", len(request.Items),
	)
	return nil
}

// Approve moves a pending request to APPROVED.
func (s *Service) Approve(ctx context.Context, requestID id.ID) (*StockRequest, error) {
	return s.transition(ctx, requestID, StatusApproved, notify.KindTransferApproved)
}

// Reject closes a request. Allowed from PENDING and APPROVED.
func (s *Service) Reject(ctx context.Context, requestID id.ID) (*StockRequest, error) {
	return s.transition(ctx, requestID, StatusRejected, notify.KindTransferRejected)
}

// transition applies a pure state change (no stock movement).
func (s *Service) transition(ctx context.Context, requestID id.ID, next Status, kind notify.Kind) (*StockRequest, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var request *StockRequest
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		request, err = s.repo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if err := request.Transition(next); err != nil {
			return err
		}
		request.UpdatedBy = appctx.GetUserID(ctx)
		return s.repo.UpdateStatus(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.notifyQuietly(ctx, notify.Message{
		Kind:      kind,
		Recipient: request.CreatedBy,
		Subject:   fmt.Sprintf("Transfer request %s is now %s", request.Number, request.Status),
		Data:      map[string]any{"request_id": request.ID.String(), "number": request.Number},
	})

	logger.Info(ctx, "transfer request transitioned",
		"request_id", request.ID,
		"number", request.Number,
		"status", request.Status,
	)
	return request, nil
}

// Confirm executes an approved transfer: every item's quantity leaves its
// sending batch and lands in a fresh batch in the receiving warehouse with
// a newly generated batch number, carrying the item's cost price. The whole
// confirmation is one transaction.
func (s *Service) Confirm(ctx context.Context, requestID id.ID) (*StockRequest, error) {
	txm, err := s.getTxManager(ctx)
	if err != nil {
		return nil, apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}

	var request *StockRequest
	err = txm.RunInTransaction(ctx, func(ctx context.Context) error {
		request, err = s.repo.GetByIDForUpdate(ctx, requestID)
		if err != nil {
			return err
		}
		if !appctx.HasWarehouseAccess(ctx, request.ReceivingWarehouseID.String()) {
			return apperror.NewForbidden("no access to receiving warehouse").
				WithDetail("warehouse_id", request.ReceivingWarehouseID.String())
		}
		if err := request.Transition(StatusConfirmed); err != nil {
			return err
		}

		rec := ledger.Recorder{
			ID:      request.ID,
			Type:    recorderType,
			Version: request.Version,
			Date:    request.transferDate(),
		}

		for _, item := range request.Items {
			if err := s.ledger.TransferOut(ctx, rec, item.BatchID, item.Quantity); err != nil {
				return err
			}
			if _, err := s.ledger.ReceiveTransfer(ctx, rec, s.numbers, item.ProductID, request.ReceivingWarehouseID, item.Quantity, item.CostPrice); err != nil {
				return err
			}
		}

		request.UpdatedBy = appctx.GetUserID(ctx)
		return s.repo.UpdateStatus(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.notifyQuietly(ctx, notify.Message{
		Kind:      notify.KindTransferConfirmed,
		Recipient: request.CreatedBy,
		Subject:   fmt.Sprintf("Transfer request %s confirmed", request.Number),
		Data:      map[string]any{"request_id": request.ID.String(), "number": request.Number},
	})

	logger.Info(ctx, "transfer request confirmed",
		"request_id", request.ID,
		"number", request.Number,
		"items", len(request.Items),
	)
	return request, nil
}

// Delete removes a request that has not entered the workflow yet.
func (s *Service) Delete(ctx context.Context, requestID id.ID) error {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status != StatusPending {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"only pending requests can be deleted",
		).WithDetail("status", string(request.Status))
	}
	return s.repo.Delete(ctx, requestID)
}

// GetByID retrieves a request with items.
func (s *Service) GetByID(ctx context.Context, requestID id.ID) (*StockRequest, error) {
	return s.repo.GetByID(ctx, requestID)
}

// List returns requests matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*StockRequest, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// notifyQuietly sends best-effort; failures are logged, never returned.
func (s *Service) notifyQuietly(ctx context.Context, msg notify.Message) {
	if msg.Recipient == "" {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		logger.Warn(ctx, "notification failed",
			"kind", msg.Kind,
			"recipient", msg.Recipient,
			"error", err,
		)
	}
}
