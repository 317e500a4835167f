// Package transfer_repo provides the PostgreSQL implementation of the stock
// request (warehouse transfer) repository.
package transfer_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/core/tenant"
	"inventra/internal/domain/transfers"
	"inventra/internal/infrastructure/storage/postgres"
)

const (
	requestsTable     = "doc_stock_requests"
	requestItemsTable = "doc_stock_request_items"
)

// Repo implements transfers.Repository.
type Repo struct {
	builder squirrel.StatementBuilderType
}

var _ transfers.Repository = (*Repo)(nil)

// NewRepo creates a new stock request repository.
func NewRepo() *Repo {
	return &Repo{
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *Repo) getTxManager(ctx context.Context) *postgres.TxManager {
	return postgres.MustGetTxManager(ctx)
}

func (r *Repo) tenantID(ctx context.Context) string {
	return tenant.MustGetTenantID(ctx)
}

func (r *Repo) baseSelect(ctx context.Context) squirrel.SelectBuilder {
	return r.builder.
		Select(postgres.ExtractDBColumns[transfers.StockRequest]()...).
		From(requestsTable).
		Where(squirrel.Eq{"tenant_id": r.tenantID(ctx)})
}

// Create inserts the request header.
func (r *Repo) Create(ctx context.Context, request *transfers.StockRequest) error {
	data := postgres.StructToMap(request)
	data["tenant_id"] = r.tenantID(ctx)

	q := r.builder.Insert(requestsTable).SetMap(data)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert request: %w", err)
	}

	return nil
}

// SaveItems replaces the item lines for a request.
func (r *Repo) SaveItems(ctx context.Context, requestID id.ID, items []transfers.Item) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + requestItemsTable + " WHERE request_id = $1"
	if _, err := querier.Exec(ctx, deleteSQL, requestID); err != nil {
		return fmt.Errorf("delete existing items: %w", err)
	}

	if len(items) == 0 {
		return nil
	}

	tid := r.tenantID(ctx)
	q := r.builder.Insert(requestItemsTable).
		Columns(
			"id", "tenant_id", "request_id", "product_id", "batch_id",
			"quantity", "cost_price", "transfer_value", "line_number",
		)

	for _, item := range items {
		q = q.Values(
			item.ID, tid, requestID, item.ProductID, item.BatchID,
			item.Quantity, item.CostPrice, item.TransferValue, item.LineNumber,
		)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert items: %w", err)
	}

	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert items: %w", err)
	}

	return nil
}

// GetByID retrieves a request with its items.
func (r *Repo) GetByID(ctx context.Context, requestID id.ID) (*transfers.StockRequest, error) {
	return r.get(ctx, requestID, false)
}

// GetByIDForUpdate retrieves a request with a row lock, items included.
func (r *Repo) GetByIDForUpdate(ctx context.Context, requestID id.ID) (*transfers.StockRequest, error) {
	return r.get(ctx, requestID, true)
}

func (r *Repo) get(ctx context.Context, requestID id.ID, forUpdate bool) (*transfers.StockRequest, error) {
	q := r.baseSelect(ctx).Where(squirrel.Eq{"id": requestID})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var request transfers.StockRequest
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &request, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock_request", requestID.String())
		}
		return nil, fmt.Errorf("get request: %w", err)
	}

	items, err := r.getItems(ctx, requestID)
	if err != nil {
		return nil, err
	}
	request.Items = items

	return &request, nil
}

func (r *Repo) getItems(ctx context.Context, requestID id.ID) ([]transfers.Item, error) {
	q := r.builder.
		Select(postgres.ExtractDBColumns[transfers.Item]()...).
		From(requestItemsTable).
		Where(squirrel.Eq{"request_id": requestID}).
		OrderBy("line_number")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var items []transfers.Item
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &items, sql, args...); err != nil {
		return nil, fmt.Errorf("get items: %w", err)
	}

	return items, nil
}

// UpdateStatus persists a state change with optimistic locking.
func (r *Repo) UpdateStatus(ctx context.Context, request *transfers.StockRequest) error {
	q := r.builder.Update(requestsTable).
		Set("status", request.Status).
		Set("version", squirrel.Expr("version + 1")).
		Set("updated_at", squirrel.Expr("NOW()")).
		Set("updated_by", request.UpdatedBy).
		Where(squirrel.Eq{"id": request.ID}).
		Where(squirrel.Eq{"tenant_id": r.tenantID(ctx)}).
		Where(squirrel.Eq{"version": request.Version})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("stock_request", request.ID)
	}

	request.Version++

	return nil
}

// Delete removes a request and its items.
func (r *Repo) Delete(ctx context.Context, requestID id.ID) error {
	querier := r.getTxManager(ctx).GetQuerier(ctx)

	deleteItemsSQL := "DELETE FROM " + requestItemsTable + " WHERE request_id = $1"
	if _, err := querier.Exec(ctx, deleteItemsSQL, requestID); err != nil {
		return fmt.Errorf("delete items: %w", err)
	}

	q := r.builder.Delete(requestsTable).
		Where(squirrel.Eq{"id": requestID}).
		Where(squirrel.Eq{"tenant_id": r.tenantID(ctx)})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock_request", requestID.String())
	}

	return nil
}

// List returns requests matching the filter, newest first.
func (r *Repo) List(ctx context.Context, filter transfers.ListFilter) ([]*transfers.StockRequest, int64, error) {
	q := r.baseSelect(ctx)

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Or{
			squirrel.Eq{"sending_warehouse_id": *filter.WarehouseID},
			squirrel.Eq{"receiving_warehouse_id": *filter.WarehouseID},
		})
	}
	if filter.ApproverID != "" {
		q = q.Where(squirrel.Eq{"approver_id": filter.ApproverID})
	}

	countQ := r.builder.Select("COUNT(*)").FromSelect(q, "sub")
	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	var total int64
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	q = q.OrderBy("created_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var requests []*transfers.StockRequest
	if err := pgxscan.Select(ctx, querier, &requests, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("select requests: %w", err)
	}

	for _, request := range requests {
		items, err := r.getItems(ctx, request.ID)
		if err != nil {
			return nil, 0, err
		}
		request.Items = items
	}

	return requests, total, nil
}

// HasPendingForProduct reports whether an open request already exists for
// the same route and product.
func (r *Repo) HasPendingForProduct(ctx context.Context, sendingWarehouseID, receivingWarehouseID, productID id.ID) (bool, error) {
	q := r.builder.Select("1").
		From(requestsTable + " req").
		Join(requestItemsTable + " item ON item.request_id = req.id").
		Where(squirrel.Eq{"req.tenant_id": r.tenantID(ctx)}).
		Where(squirrel.Eq{"req.status": transfers.StatusPending}).
		Where(squirrel.Eq{"req.sending_warehouse_id": sendingWarehouseID}).
		Where(squirrel.Eq{"req.receiving_warehouse_id": receivingWarehouseID}).
		Where(squirrel.Eq{"item.product_id": productID}).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return false, fmt.Errorf("build query: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	var one int
	err = querier.QueryRow(ctx, sql, args...).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has pending for product: %w", err)
	}

	return true, nil
}
