// Package reports provides read-only aggregation services.
package reports

import (
	"time"

	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// --- Inventory Metrics ---

// InventoryMetricsFilter defines the period and scope for the inventory
// metrics report. The period is half-open: movements on FromDate are
// included from the start of the day, movements on ToDate are excluded
// from the end of the day onward.
type InventoryMetricsFilter struct {
	// Period (required)
	FromDate time.Time
	ToDate   time.Time

	// Filters
	WarehouseIDs []id.ID
	ProductIDs   []id.ID

	// Exclude products with no activity and no stock
	ExcludeIdle bool

	// Pagination
	Limit  int
	Offset int
}

// InventoryMetricsItem is a single product row in the metrics report.
type InventoryMetricsItem struct {
	ProductID   id.ID  `json:"productId"`
	ProductName string `json:"productName"`
	ProductSKU  string `json:"productSku,omitempty"`
	Unit        string `json:"unit,omitempty"`

	// Period turnover
	SoldQuantity      float64     `json:"soldQuantity"`
	SalesAmount       types.Money `json:"salesAmount"`
	PurchasedQuantity float64     `json:"purchasedQuantity"`
	PurchaseAmount    types.Money `json:"purchaseAmount"`

	// Current state, not bounded by the period
	QuantityRemaining float64 `json:"quantityRemaining"`
}

// InventoryMetricsReport is the full inventory metrics result.
type InventoryMetricsReport struct {
	FromDate   time.Time              `json:"fromDate"`
	ToDate     time.Time              `json:"toDate"`
	Items      []InventoryMetricsItem `json:"items"`
	TotalItems int                    `json:"totalItems"`

	// Summary totals
	TotalSoldQuantity      float64     `json:"totalSoldQuantity"`
	TotalSalesAmount       types.Money `json:"totalSalesAmount"`
	TotalPurchasedQuantity float64     `json:"totalPurchasedQuantity"`
	TotalPurchaseAmount    types.Money `json:"totalPurchaseAmount"`
}

// --- Debtors ---

// DebtorsFilter defines the scope for the debtors report.
type DebtorsFilter struct {
	// Only customers owing at least this amount (defaults to any positive balance)
	MinBalance *types.Money

	CustomerIDs []id.ID

	// Pagination
	Limit  int
	Offset int
}

// DebtorItem is a single customer row in the debtors report.
// Balance counts unpaid and partially paid invoices that were not
// cancelled, less cash and transfer payments recorded against them.
type DebtorItem struct {
	CustomerID   id.ID  `json:"customerId"`
	CustomerName string `json:"customerName"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`

	InvoicedAmount types.Money `json:"invoicedAmount"`
	PaidAmount     types.Money `json:"paidAmount"`
	Balance        types.Money `json:"balance"`

	OpenInvoices int        `json:"openInvoices"`
	OldestDue    *time.Time `json:"oldestDue,omitempty"`
}

// DebtorsReport is the full debtors result.
type DebtorsReport struct {
	Items      []DebtorItem `json:"items"`
	TotalItems int          `json:"totalItems"`

	TotalBalance types.Money `json:"totalBalance"`
}
