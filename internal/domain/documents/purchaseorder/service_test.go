package purchaseorder

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

// fakeStock is an in-memory ledger.Repository; batches keep insertion
// order.
type fakeStock struct {
	batches   []*ledger.StockBatch
	totals    map[id.ID]int64
	movements []entity.StockMovement
}

func newFakeStock() *fakeStock {
	return &fakeStock{totals: make(map[id.ID]int64)}
}

func (r *fakeStock) byID(batchID id.ID) *ledger.StockBatch {
	for _, b := range r.batches {
		if b.ID == batchID {
			return b
		}
	}
	return nil
}

func (r *fakeStock) CreateBatch(ctx context.Context, batch *ledger.StockBatch) error {
	r.batches = append(r.batches, batch)
	return nil
}

func (r *fakeStock) GetBatch(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	if b := r.byID(batchID); b != nil {
		return b, nil
	}
	return nil, apperror.NewNotFound("stock_batch", batchID.String())
}

func (r *fakeStock) GetBatchForUpdate(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	return r.GetBatch(ctx, batchID)
}

func (r *fakeStock) GetBatchesForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*ledger.StockBatch, error) {
	var out []*ledger.StockBatch
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeStock) ListBatches(ctx context.Context, filter ledger.BatchFilter) ([]*ledger.StockBatch, error) {
	return r.batches, nil
}

func (r *fakeStock) BatchNumberExists(ctx context.Context, batchNumber string) (bool, error) {
	for _, b := range r.batches {
		if b.BatchNumber == batchNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeStock) MoveToCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	b.Committed += qty
	return true, nil
}

func (r *fakeStock) MoveToAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	b.Available += qty
	return true, nil
}

func (r *fakeStock) TakeCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	return true, nil
}

func (r *fakeStock) TakeAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	return true, nil
}

func (r *fakeStock) AddAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.byID(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available += qty
	return nil
}

func (r *fakeStock) SetAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.byID(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available = qty
	return nil
}

func (r *fakeStock) AdjustProductTotal(ctx context.Context, productID id.ID, delta types.Quantity) error {
	next := r.totals[productID] + delta.Int64Scaled()
	if next < 0 {
		next = 0
	}
	r.totals[productID] = next
	return nil
}

func (r *fakeStock) RecordMovements(ctx context.Context, movements []entity.StockMovement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *fakeStock) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	for _, m := range r.movements {
		if m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeStock) GetMovementHistory(ctx context.Context, productID id.ID, filter ledger.MovementFilter) ([]entity.StockMovement, error) {
	return r.movements, nil
}

func (r *fakeStock) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	balance := entity.StockBalance{WarehouseID: warehouseID, ProductID: productID}
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			balance.Available += b.Available
			balance.Committed += b.Committed
		}
	}
	return balance, nil
}

func (r *fakeStock) GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error) {
	return nil, nil
}

func (r *fakeStock) snapshot() *fakeStock {
	cp := newFakeStock()
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

// fakeRepo stores orders and lines in memory.
type fakeRepo struct {
	docs  map[id.ID]*PurchaseOrder
	lines map[id.ID][]Line
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:  make(map[id.ID]*PurchaseOrder),
		lines: make(map[id.ID][]Line),
	}
}

func (r *fakeRepo) clone(doc *PurchaseOrder) *PurchaseOrder {
	cp := *doc
	cp.Lines = nil
	return &cp
}

func (r *fakeRepo) Create(ctx context.Context, doc *PurchaseOrder) error {
	r.docs[doc.ID] = r.clone(doc)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("purchase_order", docID.String())
	}
	return r.clone(doc), nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*PurchaseOrder, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return r.clone(doc), nil
		}
	}
	return nil, apperror.NewNotFound("purchase_order", number)
}

func (r *fakeRepo) Update(ctx context.Context, doc *PurchaseOrder) error {
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("purchase_order", doc.ID.String())
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

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*PurchaseOrder], error) {
	var out []*PurchaseOrder
	for _, doc := range r.docs {
		out = append(out, r.clone(doc))
	}
	return domain.ListResult[*PurchaseOrder]{Items: out, TotalCount: int64(len(out))}, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, docID id.ID) (*PurchaseOrder, error) {
	return r.GetByID(ctx, docID)
}

type fakeTxManager struct {
	stock *fakeStock
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
	return "Widget", nil
}

type fakeWarehouseCodes struct {
	codes map[id.ID]string
}

func (w *fakeWarehouseCodes) GetCode(ctx context.Context, warehouseID id.ID) (string, error) {
	if code, ok := w.codes[warehouseID]; ok {
		return code, nil
	}
	return "", apperror.NewNotFound("warehouse", warehouseID.String())
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

func qty(v float64) types.Quantity {
	return types.NewQuantityFromFloat64(v)
}

func userCtx(userID string) context.Context {
	return security.WithUserID(context.Background(), userID)
}

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	stock     *fakeStock
	warehouse id.ID
	product   id.ID
}

func newFixture() *fixture {
	stock := newFakeStock()
	txm := &fakeTxManager{stock: stock}
	ledgerSvc := ledger.NewService(stock, fakeProducts{}, txm)

	warehouse, product := id.New(), id.New()
	warehouses := &fakeWarehouseCodes{codes: map[id.ID]string{warehouse: "WH1"}}
	gen := sequenceGenerator()
	numbers := ledger.NewBatchNumberGenerator(gen, warehouses, stock)

	repo := newFakeRepo()
	svc := NewService(repo, ledgerSvc, numbers, gen, txm)

	return &fixture{
		svc:       svc,
		repo:      repo,
		stock:     stock,
		warehouse: warehouse,
		product:   product,
	}
}

func (f *fixture) newOrder(quantity float64) *PurchaseOrder {
	doc := NewPurchaseOrder("Acme Supplies")
	doc.AddLine(f.product, f.warehouse, qty(quantity), types.NewMoney(9.75), nil)
	return doc
}

func TestCreateAssignsNumberAndDraftStatus(t *testing.T) {
	f := newFixture()
	doc := f.newOrder(50)

	require.NoError(t, f.svc.Create(userCtx("buyer-1"), doc))

	assert.Equal(t, "PO-2026-00001", doc.Number)
	assert.Equal(t, StatusDraft, doc.Status)
	assert.Equal(t, "buyer-1", doc.CreatedBy)
	assert.True(t, doc.TotalAmount.Equal(types.NewMoney(487.50)))

	// Nothing received yet.
	assert.Empty(t, f.stock.batches)
}

func TestCreateRequiresSupplier(t *testing.T) {
	f := newFixture()
	doc := f.newOrder(50)
	doc.SupplierName = ""

	err := f.svc.Create(context.Background(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supplier is required")
}

func TestApproveReceivesBatches(t *testing.T) {
	f := newFixture()
	second := id.New()
	expiry := time.Now().AddDate(1, 0, 0)

	doc := f.newOrder(50)
	doc.AddLine(second, f.warehouse, qty(20), types.NewMoney(4), &expiry)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	approved, err := f.svc.Approve(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusApproved, approved.Status)
	assert.True(t, approved.Posted)

	// One batch per line, numbered from the warehouse sequence, carrying
	// the line's unit cost and expiry.
	require.Len(t, f.stock.batches, 2)
	first := f.stock.batches[0]
	assert.Equal(t, "WH1-B-2026-00001", first.BatchNumber)
	assert.Equal(t, f.product, first.ProductID)
	assert.Equal(t, qty(50), first.Available)
	assert.True(t, first.UnitCost.Equal(types.NewMoney(9.75)))
	assert.Nil(t, first.ExpiryDate)

	batch2 := f.stock.batches[1]
	assert.Equal(t, "WH1-B-2026-00002", batch2.BatchNumber)
	assert.Equal(t, second, batch2.ProductID)
	require.NotNil(t, batch2.ExpiryDate)

	// Lines point back at the created batches.
	require.Len(t, approved.Lines, 2)
	require.NotNil(t, approved.Lines[0].BatchID)
	assert.Equal(t, first.ID, *approved.Lines[0].BatchID)

	// Product totals grew and receipts are in the journal.
	assert.Equal(t, qty(50).Int64Scaled(), f.stock.totals[f.product])
	movements, err := f.stock.GetMovementsByRecorder(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, entity.MovementKindReceipt, movements[0].Kind)
}

func TestApproveRequiresSubmission(t *testing.T) {
	f := newFixture()
	doc := f.newOrder(50)
	require.NoError(t, f.svc.Create(context.Background(), doc))

	_, err := f.svc.Approve(context.Background(), doc.ID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)
	assert.Empty(t, f.stock.batches)
}

func TestApprovedOrderCannotBeCancelled(t *testing.T) {
	f := newFixture()
	doc := f.newOrder(50)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)
	_, err = f.svc.Approve(context.Background(), doc.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), doc.ID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)

	// Complete is the only way forward.
	completed, err := f.svc.Complete(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, completed.Status)
}

func TestRejectReceivesNothing(t *testing.T) {
	f := newFixture()
	doc := f.newOrder(50)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusRejected, rejected.Status)
	assert.False(t, rejected.Posted)
	assert.Empty(t, f.stock.batches)
	assert.Empty(t, f.stock.movements)
}

func TestDeleteOnlyDrafts(t *testing.T) {
	f := newFixture()
	doc := f.newOrder(50)
	require.NoError(t, f.svc.Create(context.Background(), doc))
	_, err := f.svc.Submit(context.Background(), doc.ID)
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only draft")
}
