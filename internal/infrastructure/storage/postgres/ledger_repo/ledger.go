// Package ledger_repo provides the PostgreSQL implementation of the stock
// batch ledger. Bucket movers are conditional UPDATEs guarded by the source
// bucket quantity, so two concurrent allocations cannot drive a batch
// negative even without serializable isolation.
package ledger_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/tenant"
	"inventra/internal/core/types"
	"inventra/internal/domain/ledger"
	"inventra/internal/infrastructure/storage/postgres"
)

const (
	batchesTable   = "reg_stock_batches"
	movementsTable = "reg_stock_movements"
	productsTable  = "cat_products"
)

var batchCols = []string{
	"id", "tenant_id", "batch_number", "product_id", "warehouse_id",
	"available", "committed", "unit_cost", "expiry_date",
	"created_at", "updated_at",
}

var movementCols = []string{
	"line_id", "tenant_id", "recorder_id", "recorder_type", "recorder_version",
	"period", "kind", "created_at",
	"warehouse_id", "product_id", "batch_id",
	"delta_available", "delta_committed",
}

// Repo implements ledger.Repository.
type Repo struct {
	builder squirrel.StatementBuilderType
}

var _ ledger.Repository = (*Repo)(nil)

// NewRepo creates a new ledger repository.
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

// --- Batch access ---

// CreateBatch inserts a new batch.
func (r *Repo) CreateBatch(ctx context.Context, batch *ledger.StockBatch) error {
	q := r.builder.Insert(batchesTable).
		Columns(batchCols...).
		Values(
			batch.ID, r.tenantID(ctx), batch.BatchNumber, batch.ProductID, batch.WarehouseID,
			batch.Available, batch.Committed, batch.UnitCost, batch.ExpiryDate,
			batch.CreatedAt, batch.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	return nil
}

// GetBatch retrieves a batch by ID.
func (r *Repo) GetBatch(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	return r.getBatch(ctx, batchID, false)
}

// GetBatchForUpdate retrieves a batch with a row lock.
func (r *Repo) GetBatchForUpdate(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	return r.getBatch(ctx, batchID, true)
}

func (r *Repo) getBatch(ctx context.Context, batchID id.ID, forUpdate bool) (*ledger.StockBatch, error) {
	q := r.builder.Select(batchCols...).
		From(batchesTable).
		Where(squirrel.Eq{"id": batchID}).
		Where(squirrel.Eq{"tenant_id": r.tenantID(ctx)})
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batch ledger.StockBatch
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &batch, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("stock_batch", batchID.String())
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}

	return &batch, nil
}

// GetBatchesForUpdate returns all batches for product+warehouse in FIFO
// order, locked for the current transaction. Lock order follows FIFO order
// so concurrent allocators queue on the oldest batch instead of deadlocking.
func (r *Repo) GetBatchesForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*ledger.StockBatch, error) {
	q := r.builder.Select(batchCols...).
		From(batchesTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"warehouse_id": warehouseID}).
		Where(squirrel.Eq{"tenant_id": r.tenantID(ctx)}).
		OrderBy("created_at ASC", "id ASC").
		Suffix("FOR UPDATE")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []*ledger.StockBatch
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("get batches for update: %w", err)
	}

	return batches, nil
}

// ListBatches returns batches matching the filter, FIFO order.
func (r *Repo) ListBatches(ctx context.Context, filter ledger.BatchFilter) ([]*ledger.StockBatch, error) {
	q := r.builder.Select(batchCols...).
		From(batchesTable).
		Where(squirrel.Eq{"tenant_id": r.tenantID(ctx)}).
		OrderBy("created_at ASC", "id ASC")

	if filter.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *filter.ProductID})
	}
	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.NonEmpty {
		q = q.Where(squirrel.Expr("available + committed > 0"))
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var batches []*ledger.StockBatch
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &batches, sql, args...); err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}

	return batches, nil
}

// BatchNumberExists reports whether a batch number is already taken.
func (r *Repo) BatchNumberExists(ctx context.Context, batchNumber string) (bool, error) {
	q := r.builder.Select("1").
		From(batchesTable).
		Where(squirrel.Eq{"batch_number": batchNumber}).
		Where(squirrel.Eq{"tenant_id": r.tenantID(ctx)}).
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
		return false, fmt.Errorf("batch number exists: %w", err)
	}

	return true, nil
}

// --- Bucket movements ---

// MoveToCommitted moves qty from available to committed.
func (r *Repo) MoveToCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	return r.moveGuarded(ctx, batchID, qty,
		"available = available - $3, committed = committed + $3", "available")
}

// MoveToAvailable moves qty from committed back to available.
func (r *Repo) MoveToAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	return r.moveGuarded(ctx, batchID, qty,
		"committed = committed - $3, available = available + $3", "committed")
}

// TakeCommitted removes qty from committed.
func (r *Repo) TakeCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	return r.moveGuarded(ctx, batchID, qty, "committed = committed - $3", "committed")
}

// TakeAvailable removes qty from available.
func (r *Repo) TakeAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	return r.moveGuarded(ctx, batchID, qty, "available = available - $3", "available")
}

// moveGuarded applies setClause only when guardCol holds at least qty.
// The guard doubles as the atomic no-overdraft check.
func (r *Repo) moveGuarded(ctx context.Context, batchID id.ID, qty types.Quantity, setClause, guardCol string) (bool, error) {
	sql := fmt.Sprintf(
		"UPDATE %s SET %s, updated_at = NOW() WHERE id = $1 AND tenant_id = $2 AND %s >= $3",
		batchesTable, setClause, guardCol,
	)

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, batchID, r.tenantID(ctx), qty)
	if err != nil {
		return false, fmt.Errorf("move stock: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// AddAvailable adds qty to available.
func (r *Repo) AddAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	sql := fmt.Sprintf(
		"UPDATE %s SET available = available + $3, updated_at = NOW() WHERE id = $1 AND tenant_id = $2",
		batchesTable,
	)

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, batchID, r.tenantID(ctx), qty)
	if err != nil {
		return fmt.Errorf("add available: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}

	return nil
}

// SetAvailable sets available to an absolute counted value.
func (r *Repo) SetAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	sql := fmt.Sprintf(
		"UPDATE %s SET available = $3, updated_at = NOW() WHERE id = $1 AND tenant_id = $2",
		batchesTable,
	)

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, batchID, r.tenantID(ctx), qty)
	if err != nil {
		return fmt.Errorf("set available: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}

	return nil
}

// --- Denormalized product total ---

// AdjustProductTotal applies delta to the product's total stock,
// floor-clamped at zero on decrease.
func (r *Repo) AdjustProductTotal(ctx context.Context, productID id.ID, delta types.Quantity) error {
	sql := fmt.Sprintf(
		"UPDATE %s SET total_stock = GREATEST(total_stock + $3, 0), updated_at = NOW() WHERE id = $1 AND tenant_id = $2",
		productsTable,
	)

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	result, err := querier.Exec(ctx, sql, productID, r.tenantID(ctx), delta)
	if err != nil {
		return fmt.Errorf("adjust product total: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("adjust product total: product %s not found", productID)
	}

	return nil
}

// --- Movement journal ---

// RecordMovements batch inserts journal rows for an operation.
func (r *Repo) RecordMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	tid := r.tenantID(ctx)

	// Fast path: COPY when inside a transaction.
	txm := r.getTxManager(ctx)
	if tx := txm.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(txm)
		rows := make([][]any, 0, len(movements))
		for _, m := range movements {
			rows = append(rows, movementValues(m, tid))
		}
		if _, err := inserter.CopyFromSlice(ctx, movementsTable, movementCols, rows); err != nil {
			return fmt.Errorf("copy movements: %w", err)
		}
		return nil
	}

	// Fallback: plain insert. Prefer calling RecordMovements within tx.
	q := r.builder.Insert(movementsTable).Columns(movementCols...)
	for _, m := range movements {
		q = q.Values(movementValues(m, tid)...)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert movements: %w", err)
	}

	return nil
}

func movementValues(m entity.StockMovement, tenantID string) []any {
	return []any{
		m.LineID, tenantID, m.RecorderID, m.RecorderType, m.RecorderVersion,
		m.Period, m.Kind, m.CreatedAt,
		m.WarehouseID, m.ProductID, m.BatchID,
		m.DeltaAvailable, m.DeltaCommitted,
	}
}

// GetMovementsByRecorder retrieves all movements for a document.
func (r *Repo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementCols...).
		From(movementsTable).
		Where(squirrel.Eq{"recorder_id": recorderID}).
		Where(squirrel.Eq{"tenant_id": r.tenantID(ctx)}).
		OrderBy("created_at ASC", "line_id ASC")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// GetMovementHistory returns movement history for a product.
func (r *Repo) GetMovementHistory(ctx context.Context, productID id.ID, filter ledger.MovementFilter) ([]entity.StockMovement, error) {
	q := r.builder.Select(movementCols...).
		From(movementsTable).
		Where(squirrel.Eq{"product_id": productID}).
		Where(squirrel.Eq{"tenant_id": r.tenantID(ctx)}).
		OrderBy("period DESC", "created_at DESC")

	if filter.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *filter.WarehouseID})
	}
	if filter.Kind != nil {
		q = q.Where(squirrel.Eq{"kind": *filter.Kind})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"period": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.Lt{"period": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []entity.StockMovement
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movement history: %w", err)
	}

	return movements, nil
}

// --- Balances ---

// GetBalance returns aggregated available/committed for warehouse+product.
// Balances are derived from batches, not kept in a separate table.
func (r *Repo) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	balance := entity.StockBalance{
		WarehouseID: warehouseID,
		ProductID:   productID,
	}

	sql := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(available), 0) AS available,
			COALESCE(SUM(committed), 0) AS committed,
			COALESCE(MAX(updated_at), NOW()) AS updated_at
		FROM %s
		WHERE warehouse_id = $1 AND product_id = $2 AND tenant_id = $3
	`, batchesTable)

	querier := r.getTxManager(ctx).GetQuerier(ctx)
	row := querier.QueryRow(ctx, sql, warehouseID, productID, r.tenantID(ctx))
	if err := row.Scan(&balance.Available, &balance.Committed, &balance.UpdatedAt); err != nil {
		return balance, fmt.Errorf("get balance: %w", err)
	}

	return balance, nil
}

// GetBalancesByWarehouse returns all non-zero balances for a warehouse.
func (r *Repo) GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error) {
	sql := fmt.Sprintf(`
		SELECT
			warehouse_id,
			product_id,
			SUM(available) AS available,
			SUM(committed) AS committed,
			MAX(updated_at) AS updated_at
		FROM %s
		WHERE warehouse_id = $1 AND tenant_id = $2
		GROUP BY warehouse_id, product_id
		HAVING SUM(available) + SUM(committed) > 0
		ORDER BY product_id
	`, batchesTable)

	var balances []entity.StockBalance
	querier := r.getTxManager(ctx).GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &balances, sql, warehouseID, r.tenantID(ctx)); err != nil {
		return nil, fmt.Errorf("get balances by warehouse: %w", err)
	}

	return balances, nil
}
