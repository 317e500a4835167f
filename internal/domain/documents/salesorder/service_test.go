package salesorder

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/numerator"
	"inventra/internal/core/security"
	"inventra/internal/core/types"
	"inventra/internal/domain"
	"inventra/internal/domain/ledger"
)

// ledgerRepo is an in-memory ledger.Repository backing the real ledger
// service. Batches keep insertion order, which doubles as FIFO order.
type ledgerRepo struct {
	batches   []*ledger.StockBatch
	totals    map[id.ID]int64
	movements []entity.StockMovement
}

func newLedgerRepo() *ledgerRepo {
	return &ledgerRepo{totals: make(map[id.ID]int64)}
}

func (r *ledgerRepo) add(b *ledger.StockBatch) {
	r.batches = append(r.batches, b)
	r.totals[b.ProductID] += b.OnHand().Int64Scaled()
}

func (r *ledgerRepo) byID(batchID id.ID) *ledger.StockBatch {
	for _, b := range r.batches {
		if b.ID == batchID {
			return b
		}
	}
	return nil
}

func (r *ledgerRepo) CreateBatch(ctx context.Context, batch *ledger.StockBatch) error {
	r.batches = append(r.batches, batch)
	return nil
}

func (r *ledgerRepo) GetBatch(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	if b := r.byID(batchID); b != nil {
		return b, nil
	}
	return nil, apperror.NewNotFound("stock_batch", batchID.String())
}

func (r *ledgerRepo) GetBatchForUpdate(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	return r.GetBatch(ctx, batchID)
}

func (r *ledgerRepo) GetBatchesForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*ledger.StockBatch, error) {
	var out []*ledger.StockBatch
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *ledgerRepo) ListBatches(ctx context.Context, filter ledger.BatchFilter) ([]*ledger.StockBatch, error) {
	return r.batches, nil
}

func (r *ledgerRepo) BatchNumberExists(ctx context.Context, batchNumber string) (bool, error) {
	for _, b := range r.batches {
		if b.BatchNumber == batchNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *ledgerRepo) MoveToCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	b.Committed += qty
	return true, nil
}

func (r *ledgerRepo) MoveToAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	b.Available += qty
	return true, nil
}

func (r *ledgerRepo) TakeCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	return true, nil
}

func (r *ledgerRepo) TakeAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	return true, nil
}

func (r *ledgerRepo) AddAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.byID(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available += qty
	return nil
}

func (r *ledgerRepo) SetAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.byID(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available = qty
	return nil
}

func (r *ledgerRepo) AdjustProductTotal(ctx context.Context, productID id.ID, delta types.Quantity) error {
	next := r.totals[productID] + delta.Int64Scaled()
	if next < 0 {
		next = 0
	}
	r.totals[productID] = next
	return nil
}

func (r *ledgerRepo) RecordMovements(ctx context.Context, movements []entity.StockMovement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *ledgerRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	for _, m := range r.movements {
		if m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *ledgerRepo) GetMovementHistory(ctx context.Context, productID id.ID, filter ledger.MovementFilter) ([]entity.StockMovement, error) {
	return r.movements, nil
}

func (r *ledgerRepo) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	balance := entity.StockBalance{WarehouseID: warehouseID, ProductID: productID}
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			balance.Available += b.Available
			balance.Committed += b.Committed
		}
	}
	return balance, nil
}

func (r *ledgerRepo) GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error) {
	return nil, nil
}

func (r *ledgerRepo) snapshot() *ledgerRepo {
	cp := newLedgerRepo()
	for _, b := range r.batches {
		clone := *b
		cp.batches = append(cp.batches, &clone)
	}
	for k, v := range r.totals {
		cp.totals[k] = v
	}
	cp.movements = append(cp.movements, r.movements...)
	return cp
}

// fakeRepo stores orders and lines the way the table pair does.
type fakeRepo struct {
	docs  map[id.ID]*SalesOrder
	lines map[id.ID][]Line
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:  make(map[id.ID]*SalesOrder),
		lines: make(map[id.ID][]Line),
	}
}

func (r *fakeRepo) clone(doc *SalesOrder) *SalesOrder {
	cp := *doc
	cp.Lines = nil
	return &cp
}

func (r *fakeRepo) Create(ctx context.Context, doc *SalesOrder) error {
	r.docs[doc.ID] = r.clone(doc)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*SalesOrder, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("sales_order", docID.String())
	}
	return r.clone(doc), nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*SalesOrder, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return r.clone(doc), nil
		}
	}
	return nil, apperror.NewNotFound("sales_order", number)
}

func (r *fakeRepo) Update(ctx context.Context, doc *SalesOrder) error {
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("sales_order", doc.ID.String())
	}
	r.docs[doc.ID] = r.clone(doc)
	return nil
}

func (r *fakeRepo) Delete(ctx context.Context, docID id.ID) error {
	delete(r.docs, docID)
	delete(r.lines, docID)
	return nil
}

func (r *fakeRepo) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*SalesOrder], error) {
	var out []*SalesOrder
	for _, doc := range r.docs {
		if filter.Status != nil && doc.Status != *filter.Status {
			continue
		}
		out = append(out, r.clone(doc))
	}
	return domain.ListResult[*SalesOrder]{Items: out, TotalCount: int64(len(out))}, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, docID id.ID) (*SalesOrder, error) {
	return r.GetByID(ctx, docID)
}

// fakeTxManager rolls the stock repo back on error, standing in for the
// database transaction the real manager provides.
type fakeTxManager struct {
	stock *ledgerRepo
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	before := m.stock.snapshot()
	if err := fn(ctx); err != nil {
		m.stock.batches = before.batches
		m.stock.totals = before.totals
		m.stock.movements = before.movements
		return err
	}
	return nil
}

type fakeProducts struct{}

func (fakeProducts) GetName(ctx context.Context, productID id.ID) (string, error) {
	return "Gadget", nil
}

func sequenceGenerator() *numerator.MockGenerator {
	counters := make(map[string]int64)
	return &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			counters[cfg.Prefix]++
			return fmt.Sprintf("%s-%d-%05d", cfg.Prefix, period.Year(), counters[cfg.Prefix]), nil
		},
	}
}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	stock     *ledgerRepo
	customer  id.ID
	warehouse id.ID
	product   id.ID
	batch     *ledger.StockBatch
}

func newFixture(available float64) *fixture {
	stock := newLedgerRepo()
	txm := &fakeTxManager{stock: stock}
	ledgerSvc := ledger.NewService(stock, fakeProducts{}, txm)

	customer, warehouse, product := id.New(), id.New(), id.New()
	batch := ledger.NewStockBatch("WH1-B-2026-00001", product, warehouse,
		types.NewQuantityFromFloat64(available), types.NewMoney(8))
	stock.add(batch)

	repo := newFakeRepo()
	svc := NewService(repo, ledgerSvc, sequenceGenerator(), txm)

	return &fixture{
		svc:       svc,
		repo:      repo,
		stock:     stock,
		customer:  customer,
		warehouse: warehouse,
		product:   product,
		batch:     batch,
	}
}

func (f *fixture) newOrder(quantity float64) *SalesOrder {
	doc := NewSalesOrder(f.customer)
	doc.AddLine(f.product, f.warehouse, types.NewQuantityFromFloat64(quantity), types.NewMoney(15))
	return doc
}

func userCtx(userID string) context.Context {
	return security.WithUserID(context.Background(), userID)
}

func qty(v float64) types.Quantity {
	return types.NewQuantityFromFloat64(v)
}

func TestCreateAssignsNumberAndDraftStatus(t *testing.T) {
	f := newFixture(100)
	doc := f.newOrder(10)
	doc.Status = ""

	require.NoError(t, f.svc.Create(userCtx("manager-1"), doc))

	assert.Equal(t, "SO-2026-00001", doc.Number)
	assert.Equal(t, StatusDraft, doc.Status)
	assert.Equal(t, "manager-1", doc.CreatedBy)
	assert.True(t, doc.TotalAmount.Equal(types.NewMoney(150)))

	stored, err := f.svc.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, f.product, stored.Lines[0].ProductID)

	// Drafts hold nothing.
	assert.Equal(t, qty(100), f.batch.Available)
	assert.Empty(t, f.stock.movements)
}

func TestCreateRequiresLines(t *testing.T) {
	f := newFixture(100)
	doc := NewSalesOrder(f.customer)

	err := f.svc.Create(context.Background(), doc)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestSubmitReservesStock(t *testing.T) {
	f := newFixture(100)
	doc := f.newOrder(40)
	require.NoError(t, f.svc.Create(context.Background(), doc))

	submitted, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, submitted.Status)
	assert.True(t, submitted.Posted)
	assert.Equal(t, qty(60), f.batch.Available)
	assert.Equal(t, qty(40), f.batch.Committed)

	movements, err := f.stock.GetMovementsByRecorder(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementKindReserve, movements[0].Kind)
}

func TestSubmitShortageLeavesNoReservation(t *testing.T) {
	f := newFixture(30)
	second := id.New()
	f.stock.add(ledger.NewStockBatch("WH1-B-2026-00002", second, f.warehouse, qty(5), types.NewMoney(8)))

	doc := f.newOrder(20)
	doc.AddLine(second, f.warehouse, qty(10), types.NewMoney(15))
	require.NoError(t, f.svc.Create(context.Background(), doc))

	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// The first line's partial reservation was rolled back with the rest.
	// Read through the repo: rollback replaces the batch instances.
	rolled, err := f.stock.GetBatch(context.Background(), f.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(30), rolled.Available)
	assert.Equal(t, types.Quantity(0), rolled.Committed)
	assert.Empty(t, f.stock.movements)

	stored, err := f.repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusDraft, stored.Status)
	assert.False(t, stored.Posted)
}

func TestApproveKeepsReservation(t *testing.T) {
	f := newFixture(100)
	doc := f.newOrder(40)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	approved, err := f.svc.Approve(userCtx("approver-1"), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "approver-1", approved.UpdatedBy)
	assert.Equal(t, qty(40), f.batch.Committed)
}

func TestRejectReleasesReservation(t *testing.T) {
	f := newFixture(100)
	doc := f.newOrder(40)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, rejected.Status)
	assert.False(t, rejected.Posted)
	assert.Equal(t, qty(100), f.batch.Available)
	assert.Equal(t, types.Quantity(0), f.batch.Committed)
}

func TestCancelApprovedReleasesReservation(t *testing.T) {
	f := newFixture(100)
	doc := f.newOrder(40)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), doc.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, qty(100), f.batch.Available)
	assert.Equal(t, types.Quantity(0), f.batch.Committed)
}

func TestCancelDraftTouchesNoStock(t *testing.T) {
	f := newFixture(100)
	doc := f.newOrder(40)
	require.NoError(t, f.svc.Create(context.Background(), doc))

	cancelled, err := f.svc.Cancel(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, qty(100), f.batch.Available)
	assert.Empty(t, f.stock.movements)
}

func TestCompleteRequiresApproval(t *testing.T) {
	f := newFixture(100)
	doc := f.newOrder(40)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	_, err = f.svc.Complete(context.Background(), doc.ID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)

	stored, err := f.repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
}

func TestUpdateOnlyDrafts(t *testing.T) {
	f := newFixture(100)
	doc := f.newOrder(40)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	submitted, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	err = f.svc.Update(context.Background(), submitted)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only draft")
}

func TestDeleteOnlyDrafts(t *testing.T) {
	f := newFixture(100)
	doc := f.newOrder(40)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only draft")

	draft := f.newOrder(5)
	require.NoError(t, f.svc.Create(context.Background(), draft))
	require.NoError(t, f.svc.Delete(context.Background(), draft.ID))

	_, err = f.svc.GetByID(context.Background(), draft.ID)
	assert.True(t, apperror.IsNotFound(err))
}
