// Package report_repo provides PostgreSQL implementations for report repositories.
package report_repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/shopspring/decimal"

	"inventra/internal/core/tenant"
	"inventra/internal/domain/reports"
	"inventra/internal/infrastructure/storage/postgres"
)

// ReportRepo implements reports.Repository with read-only aggregate queries.
type ReportRepo struct {
	builder squirrel.StatementBuilderType
}

var _ reports.Repository = (*ReportRepo)(nil)

// NewReportRepo creates a new report repository.
func NewReportRepo() *ReportRepo {
	return &ReportRepo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// getTxManager retrieves TxManager from context.
func (r *ReportRepo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

// GetInventoryMetrics aggregates sales and purchase turnover per product.
// The filter dates arrive already normalized to a half-open range.
func (r *ReportRepo) GetInventoryMetrics(ctx context.Context, filter reports.InventoryMetricsFilter) (*reports.InventoryMetricsReport, error) {
	tid := tenant.MustGetTenantID(ctx)

	// $1 tenant, $2 from (inclusive), $3 to (exclusive)
	args := []any{tid, filter.FromDate, filter.ToDate}
	argIndex := 4

	salesWarehouseCond := ""
	purchaseWarehouseCond := ""
	if len(filter.WarehouseIDs) > 0 {
		placeholders := make([]string, len(filter.WarehouseIDs))
		for i, whID := range filter.WarehouseIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, whID)
			argIndex++
		}
		in := strings.Join(placeholders, ",")
		salesWarehouseCond = fmt.Sprintf(" AND l.warehouse_id IN (%s)", in)
		purchaseWarehouseCond = fmt.Sprintf(" AND pl.warehouse_id IN (%s)", in)
	}

	productCond := ""
	if len(filter.ProductIDs) > 0 {
		placeholders := make([]string, len(filter.ProductIDs))
		for i, pID := range filter.ProductIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, pID)
			argIndex++
		}
		productCond = fmt.Sprintf(" AND p.id IN (%s)", strings.Join(placeholders, ","))
	}

	idleCond := ""
	if filter.ExcludeIdle {
		idleCond = `
		AND (COALESCE(s.qty, 0) != 0 OR COALESCE(pu.qty, 0) != 0 OR p.total_stock != 0)`
	}

	query := fmt.Sprintf(`
		WITH sales AS (
			SELECT
				l.product_id,
				SUM(l.quantity) AS qty,
				SUM(l.amount) AS amount
			FROM doc_invoice_lines l
			JOIN doc_invoices i ON l.document_id = i.id
			WHERE i.tenant_id = $1
			  AND i.cancelled = false
			  AND i.date >= $2 AND i.date < $3%s
			GROUP BY l.product_id
		),
		purchases AS (
			SELECT
				pl.product_id,
				SUM(pl.quantity) AS qty,
				SUM(pl.amount) AS amount
			FROM doc_purchase_order_lines pl
			JOIN doc_purchase_orders o ON pl.document_id = o.id
			WHERE o.tenant_id = $1
			  AND o.status IN ('APPROVED', 'COMPLETED')
			  AND o.date >= $2 AND o.date < $3%s
			GROUP BY pl.product_id
		)
		SELECT
			p.id AS product_id,
			p.name AS product_name,
			COALESCE(p.sku, '') AS product_sku,
			p.unit AS unit,
			COALESCE(s.qty, 0)::float8 / 10000.0 AS sold_quantity,
			COALESCE(s.amount, 0) AS sales_amount,
			COALESCE(pu.qty, 0)::float8 / 10000.0 AS purchased_quantity,
			COALESCE(pu.amount, 0) AS purchase_amount,
			p.total_stock::float8 / 10000.0 AS quantity_remaining
		FROM cat_products p
		LEFT JOIN sales s ON s.product_id = p.id
		LEFT JOIN purchases pu ON pu.product_id = p.id
		WHERE p.tenant_id = $1
		  AND p.deletion_mark = false%s%s
		ORDER BY p.name
	`, salesWarehouseCond, purchaseWarehouseCond, productCond, idleCond)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var items []reports.InventoryMetricsItem
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, query, args...); err != nil {
		return nil, fmt.Errorf("inventory metrics: %w", err)
	}

	report := &reports.InventoryMetricsReport{
		FromDate:            filter.FromDate,
		ToDate:              filter.ToDate,
		Items:               items,
		TotalItems:          len(items),
		TotalSalesAmount:    decimal.Zero,
		TotalPurchaseAmount: decimal.Zero,
	}
	for _, item := range items {
		report.TotalSoldQuantity += item.SoldQuantity
		report.TotalSalesAmount = report.TotalSalesAmount.Add(item.SalesAmount)
		report.TotalPurchasedQuantity += item.PurchasedQuantity
		report.TotalPurchaseAmount = report.TotalPurchaseAmount.Add(item.PurchaseAmount)
	}

	return report, nil
}

// GetDebtors lists customers with open invoice balances. An invoice counts
// while not cancelled and not fully paid; cash and transfer payments reduce
// the balance, POS and cheque payments settle outside the receivable.
func (r *ReportRepo) GetDebtors(ctx context.Context, filter reports.DebtorsFilter) (*reports.DebtorsReport, error) {
	tid := tenant.MustGetTenantID(ctx)

	args := []any{tid}
	argIndex := 2

	customerCond := ""
	if len(filter.CustomerIDs) > 0 {
		placeholders := make([]string, len(filter.CustomerIDs))
		for i, cID := range filter.CustomerIDs {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, cID)
			argIndex++
		}
		customerCond = fmt.Sprintf(" AND c.id IN (%s)", strings.Join(placeholders, ","))
	}

	minBalanceCond := "HAVING SUM(i.total_amount) - COALESCE(SUM(pay.paid), 0) > 0"
	if filter.MinBalance != nil {
		minBalanceCond = fmt.Sprintf("HAVING SUM(i.total_amount) - COALESCE(SUM(pay.paid), 0) >= $%d", argIndex)
		args = append(args, *filter.MinBalance)
		argIndex++
	}

	query := fmt.Sprintf(`
		SELECT
			c.id AS customer_id,
			c.name AS customer_name,
			COALESCE(c.email, '') AS email,
			COALESCE(c.phone, '') AS phone,
			SUM(i.total_amount) AS invoiced_amount,
			COALESCE(SUM(pay.paid), 0) AS paid_amount,
			SUM(i.total_amount) - COALESCE(SUM(pay.paid), 0) AS balance,
			COUNT(i.id)::int AS open_invoices,
			MIN(i.date) AS oldest_due
		FROM doc_invoices i
		JOIN cat_customers c ON i.customer_id = c.id
		LEFT JOIN (
			SELECT invoice_id, SUM(amount) AS paid
			FROM doc_invoice_payments
			WHERE tenant_id = $1 AND mode IN ('CASH', 'TRANSFER')
			GROUP BY invoice_id
		) pay ON pay.invoice_id = i.id
		WHERE i.tenant_id = $1
		  AND i.cancelled = false
		  AND i.status != 'PAID'%s
		GROUP BY c.id, c.name, c.email, c.phone
		%s
		ORDER BY balance DESC
	`, customerCond, minBalanceCond)

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	var items []reports.DebtorItem
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, query, args...); err != nil {
		return nil, fmt.Errorf("debtors report: %w", err)
	}

	report := &reports.DebtorsReport{
		Items:        items,
		TotalItems:   len(items),
		TotalBalance: decimal.Zero,
	}
	for _, item := range items {
		report.TotalBalance = report.TotalBalance.Add(item.Balance)
	}

	return report, nil
}
