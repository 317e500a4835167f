package dto

import (
	"inventra/internal/core/id"
	"inventra/internal/core/types"
	"inventra/internal/domain/reports"
)

// Report items and totals are serialized straight from the domain types,
// which carry JSON tags. Only the query parameters need mapping here.

// --- Inventory Metrics ---

type InventoryMetricsQuery struct {
	FromDate     string   `form:"fromDate" binding:"required"`
	ToDate       string   `form:"toDate" binding:"required"`
	WarehouseIDs []string `form:"warehouseId"`
	ProductIDs   []string `form:"productId"`
	ExcludeIdle  bool     `form:"excludeIdle"`
	Limit        int      `form:"limit"`
	Offset       int      `form:"offset"`
}

func (q *InventoryMetricsQuery) ToFilter() reports.InventoryMetricsFilter {
	filter := reports.InventoryMetricsFilter{
		ExcludeIdle: q.ExcludeIdle,
		Limit:       q.Limit,
		Offset:      q.Offset,
	}

	if from := parseDateQuery(&q.FromDate); from != nil {
		filter.FromDate = *from
	}
	if to := parseDateQuery(&q.ToDate); to != nil {
		filter.ToDate = *to
	}

	filter.WarehouseIDs = parseIDList(q.WarehouseIDs)
	filter.ProductIDs = parseIDList(q.ProductIDs)

	return filter
}

// --- Debtors ---

type DebtorsQuery struct {
	MinBalance  *float64 `form:"minBalance"`
	CustomerIDs []string `form:"customerId"`
	Limit       int      `form:"limit"`
	Offset      int      `form:"offset"`
}

func (q *DebtorsQuery) ToFilter() reports.DebtorsFilter {
	filter := reports.DebtorsFilter{
		CustomerIDs: parseIDList(q.CustomerIDs),
		Limit:       q.Limit,
		Offset:      q.Offset,
	}

	if q.MinBalance != nil {
		min := types.NewMoney(*q.MinBalance)
		filter.MinBalance = &min
	}

	return filter
}

// parseIDList drops values that are not valid IDs.
func parseIDList(values []string) []id.ID {
	if len(values) == 0 {
		return nil
	}
	ids := make([]id.ID, 0, len(values))
	for _, v := range values {
		if parsed, err := id.Parse(v); err == nil {
			ids = append(ids, parsed)
		}
	}
	return ids
}
