package reports

import (
	"context"
	"fmt"
	"time"

	"inventra/internal/core/apperror"
	"inventra/internal/core/tenant"
	"inventra/internal/core/tx"
)

// Service provides report generation operations.
type Service struct {
	repo Repository
}

// NewService creates a new reports service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// readOnly runs fn inside a read-only transaction when the tenant's
// manager supports one, so aggregate queries see a single snapshot.
func (s *Service) readOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	txm, err := tenant.GetTxManager(ctx)
	if err != nil {
		return apperror.NewInternal(err).WithDetail("missing", "tx_manager")
	}
	if rom, ok := txm.(tx.ReadOnlyManager); ok {
		return rom.ReadOnly(ctx, fn)
	}
	return txm.RunInTransaction(ctx, fn)
}

// GetInventoryMetrics aggregates sales and purchase turnover per product
// over the requested period, alongside current stock on hand.
func (s *Service) GetInventoryMetrics(ctx context.Context, filter InventoryMetricsFilter) (*InventoryMetricsReport, error) {
	if filter.FromDate.IsZero() || filter.ToDate.IsZero() {
		return nil, apperror.NewValidation("fromDate and toDate are required")
	}
	if filter.FromDate.After(filter.ToDate) {
		return nil, apperror.NewValidation("fromDate must be before toDate")
	}

	// Normalize to a half-open day range: [start of FromDate, start of
	// the day after ToDate). A same-day query covers exactly that day.
	filter.FromDate = startOfDay(filter.FromDate)
	filter.ToDate = startOfDay(filter.ToDate).AddDate(0, 0, 1)

	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}

	var report *InventoryMetricsReport
	err := s.readOnly(ctx, func(ctx context.Context) error {
		var err error
		report, err = s.repo.GetInventoryMetrics(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get inventory metrics: %w", err)
	}

	return report, nil
}

// GetDebtors lists customers with open invoice balances.
func (s *Service) GetDebtors(ctx context.Context, filter DebtorsFilter) (*DebtorsReport, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	if filter.Limit > 1000 {
		filter.Limit = 1000
	}

	var report *DebtorsReport
	err := s.readOnly(ctx, func(ctx context.Context) error {
		var err error
		report, err = s.repo.GetDebtors(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("get debtors: %w", err)
	}

	return report, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
