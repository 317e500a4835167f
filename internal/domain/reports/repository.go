package reports

import (
	"context"
)

// Repository defines report data access.
type Repository interface {
	GetInventoryMetrics(ctx context.Context, filter InventoryMetricsFilter) (*InventoryMetricsReport, error)
	GetDebtors(ctx context.Context, filter DebtorsFilter) (*DebtorsReport, error)
}
