package invoice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventra/internal/core/apperror"
	appctx "inventra/internal/core/context"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/numerator"
	"inventra/internal/core/types"
	"inventra/internal/domain"
	"inventra/internal/domain/documents/salesorder"
	"inventra/internal/domain/ledger"
)

// stockLedger is an in-memory ledger.Repository. Batch order is insertion
// order, which the service treats as FIFO.
type stockLedger struct {
	batches   []*ledger.StockBatch
	totals    map[id.ID]int64
	movements []entity.StockMovement
}

func newStockLedger() *stockLedger {
	return &stockLedger{totals: make(map[id.ID]int64)}
}

func (r *stockLedger) add(b *ledger.StockBatch) {
	r.batches = append(r.batches, b)
	r.totals[b.ProductID] += b.OnHand().Int64Scaled()
}

func (r *stockLedger) byID(batchID id.ID) *ledger.StockBatch {
	for _, b := range r.batches {
		if b.ID == batchID {
			return b
		}
	}
	return nil
}

func (r *stockLedger) CreateBatch(ctx context.Context, batch *ledger.StockBatch) error {
	r.batches = append(r.batches, batch)
	return nil
}

func (r *stockLedger) GetBatch(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	if b := r.byID(batchID); b != nil {
		return b, nil
	}
	return nil, apperror.NewNotFound("stock_batch", batchID.String())
}

func (r *stockLedger) GetBatchForUpdate(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	return r.GetBatch(ctx, batchID)
}

func (r *stockLedger) GetBatchesForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*ledger.StockBatch, error) {
	var out []*ledger.StockBatch
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *stockLedger) ListBatches(ctx context.Context, filter ledger.BatchFilter) ([]*ledger.StockBatch, error) {
	return r.batches, nil
}

func (r *stockLedger) BatchNumberExists(ctx context.Context, batchNumber string) (bool, error) {
	for _, b := range r.batches {
		if b.BatchNumber == batchNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *stockLedger) MoveToCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	b.Committed += qty
	return true, nil
}

func (r *stockLedger) MoveToAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	b.Available += qty
	return true, nil
}

func (r *stockLedger) TakeCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	return true, nil
}

func (r *stockLedger) TakeAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.byID(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	return true, nil
}

func (r *stockLedger) AddAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.byID(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available += qty
	return nil
}

func (r *stockLedger) SetAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.byID(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available = qty
	return nil
}

func (r *stockLedger) AdjustProductTotal(ctx context.Context, productID id.ID, delta types.Quantity) error {
	next := r.totals[productID] + delta.Int64Scaled()
	if next < 0 {
		next = 0
	}
	r.totals[productID] = next
	return nil
}

func (r *stockLedger) RecordMovements(ctx context.Context, movements []entity.StockMovement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *stockLedger) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	for _, m := range r.movements {
		if m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stockLedger) GetMovementHistory(ctx context.Context, productID id.ID, filter ledger.MovementFilter) ([]entity.StockMovement, error) {
	return r.movements, nil
}

func (r *stockLedger) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	balance := entity.StockBalance{WarehouseID: warehouseID, ProductID: productID}
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			balance.Available += b.Available
			balance.Committed += b.Committed
		}
	}
	return balance, nil
}

func (r *stockLedger) GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error) {
	return nil, nil
}

func (r *stockLedger) snapshot() *stockLedger {
	cp := newStockLedger()
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

// fakeOrderRepo backs the sales order service the invoice service drives.
type fakeOrderRepo struct {
	docs  map[id.ID]*salesorder.SalesOrder
	lines map[id.ID][]salesorder.Line
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		docs:  make(map[id.ID]*salesorder.SalesOrder),
		lines: make(map[id.ID][]salesorder.Line),
	}
}

func (r *fakeOrderRepo) clone(doc *salesorder.SalesOrder) *salesorder.SalesOrder {
	cp := *doc
	cp.Lines = nil
	return &cp
}

func (r *fakeOrderRepo) Create(ctx context.Context, doc *salesorder.SalesOrder) error {
	r.docs[doc.ID] = r.clone(doc)
	return nil
}

func (r *fakeOrderRepo) GetByID(ctx context.Context, docID id.ID) (*salesorder.SalesOrder, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("sales_order", docID.String())
	}
	return r.clone(doc), nil
}

func (r *fakeOrderRepo) GetByNumber(ctx context.Context, number string) (*salesorder.SalesOrder, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return r.clone(doc), nil
		}
	}
	return nil, apperror.NewNotFound("sales_order", number)
}

func (r *fakeOrderRepo) Update(ctx context.Context, doc *salesorder.SalesOrder) error {
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("sales_order", doc.ID.String())
	}
	r.docs[doc.ID] = r.clone(doc)
	return nil
}

func (r *fakeOrderRepo) Delete(ctx context.Context, docID id.ID) error {
	delete(r.docs, docID)
	return nil
}

func (r *fakeOrderRepo) GetLines(ctx context.Context, docID id.ID) ([]salesorder.Line, error) {
	return append([]salesorder.Line(nil), r.lines[docID]...), nil
}

func (r *fakeOrderRepo) SaveLines(ctx context.Context, docID id.ID, lines []salesorder.Line) error {
	r.lines[docID] = append([]salesorder.Line(nil), lines...)
	return nil
}

func (r *fakeOrderRepo) List(ctx context.Context, filter salesorder.ListFilter) (domain.ListResult[*salesorder.SalesOrder], error) {
	var out []*salesorder.SalesOrder
	for _, doc := range r.docs {
		out = append(out, r.clone(doc))
	}
	return domain.ListResult[*salesorder.SalesOrder]{Items: out, TotalCount: int64(len(out))}, nil
}

func (r *fakeOrderRepo) GetForUpdate(ctx context.Context, docID id.ID) (*salesorder.SalesOrder, error) {
	return r.GetByID(ctx, docID)
}

// fakeRepo stores invoices, lines and payments in memory.
type fakeRepo struct {
	docs     map[id.ID]*Invoice
	lines    map[id.ID][]Line
	payments map[id.ID][]Payment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:     make(map[id.ID]*Invoice),
		lines:    make(map[id.ID][]Line),
		payments: make(map[id.ID][]Payment),
	}
}

func (r *fakeRepo) clone(doc *Invoice) *Invoice {
	cp := *doc
	cp.Lines = nil
	return &cp
}

func (r *fakeRepo) Create(ctx context.Context, doc *Invoice) error {
	r.docs[doc.ID] = r.clone(doc)
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*Invoice, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("invoice", docID.String())
	}
	return r.clone(doc), nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*Invoice, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			return r.clone(doc), nil
		}
	}
	return nil, apperror.NewNotFound("invoice", number)
}

func (r *fakeRepo) Update(ctx context.Context, doc *Invoice) error {
	if _, ok := r.docs[doc.ID]; !ok {
		return apperror.NewNotFound("invoice", doc.ID.String())
	}
	r.docs[doc.ID] = r.clone(doc)
	return nil
}

func (r *fakeRepo) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Invoice], error) {
	var out []*Invoice
	for _, doc := range r.docs {
		out = append(out, r.clone(doc))
	}
	return domain.ListResult[*Invoice]{Items: out, TotalCount: int64(len(out))}, nil
}

func (r *fakeRepo) GetForUpdate(ctx context.Context, docID id.ID) (*Invoice, error) {
	return r.GetByID(ctx, docID)
}

func (r *fakeRepo) ExistsForOrder(ctx context.Context, salesOrderID id.ID) (bool, error) {
	for _, doc := range r.docs {
		if doc.SalesOrderID == salesOrderID && !doc.Cancelled {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) SavePayment(ctx context.Context, payment *Payment) error {
	r.payments[payment.InvoiceID] = append(r.payments[payment.InvoiceID], *payment)
	return nil
}

func (r *fakeRepo) GetPayments(ctx context.Context, invoiceID id.ID) ([]Payment, error) {
	return append([]Payment(nil), r.payments[invoiceID]...), nil
}

// fakeTxManager rolls the stock ledger back on error.
type fakeTxManager struct {
	stock *stockLedger
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

// catalogStock resolves names and totals against the stock ledger.
type catalogStock struct {
	stock *stockLedger
}

func (c *catalogStock) GetName(ctx context.Context, productID id.ID) (string, error) {
	return "Gadget", nil
}

func (c *catalogStock) GetTotalStock(ctx context.Context, productID id.ID) (types.Quantity, error) {
	return types.Quantity(c.stock.totals[productID]), nil
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
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: userID})
}

type fixture struct {
	svc       *Service
	orders    *salesorder.Service
	orderRepo *fakeOrderRepo
	repo      *fakeRepo
	stock     *stockLedger
	customer  id.ID
	warehouse id.ID
	product   id.ID
	batch     *ledger.StockBatch
}

// newFixture seeds one batch of the given quantity and, when orderQty is
// positive, an approved order holding a reservation for it.
func newFixture(t *testing.T, available, orderQty float64) (*fixture, *salesorder.SalesOrder) {
	t.Helper()

	stock := newStockLedger()
	txm := &fakeTxManager{stock: stock}
	products := &catalogStock{stock: stock}
	ledgerSvc := ledger.NewService(stock, products, txm)

	customer, warehouse, product := id.New(), id.New(), id.New()
	batch := ledger.NewStockBatch("WH1-B-2026-00001", product, warehouse,
		types.NewQuantityFromFloat64(available), types.NewMoney(8))
	stock.add(batch)

	orderRepo := newFakeOrderRepo()
	gen := sequenceGenerator()
	orders := salesorder.NewService(orderRepo, ledgerSvc, gen, txm)
	repo := newFakeRepo()
	svc := NewService(repo, orders, ledgerSvc, products, gen, txm)

	f := &fixture{
		svc:       svc,
		orders:    orders,
		orderRepo: orderRepo,
		repo:      repo,
		stock:     stock,
		customer:  customer,
		warehouse: warehouse,
		product:   product,
		batch:     batch,
	}

	var order *salesorder.SalesOrder
	if orderQty > 0 {
		order = salesorder.NewSalesOrder(customer)
		order.AddLine(product, warehouse, qty(orderQty), types.NewMoney(15))
		require.NoError(t, orders.Create(context.Background(), order))
		_, err := orders.Submit(context.Background(), order.ID)
		require.NoError(t, err)
		_, err = orders.Approve(context.Background(), order.ID)
		require.NoError(t, err)
	}
	return f, order
}

func TestCreateFromOrderConsumesReservation(t *testing.T) {
	f, order := newFixture(t, 100, 40)

	doc, err := f.svc.CreateFromOrder(userCtx("cashier-1"), order.ID)
	require.NoError(t, err)

	assert.Equal(t, "INV-2026-00001", doc.Number)
	assert.True(t, doc.Posted)
	assert.Equal(t, StatusUnpaid, doc.Status)
	assert.Equal(t, "cashier-1", doc.CreatedBy)
	assert.Equal(t, order.ID, doc.SalesOrderID)
	assert.Equal(t, f.customer, doc.CustomerID)
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, qty(40), doc.Lines[0].Quantity)
	assert.True(t, doc.TotalAmount.Equal(types.NewMoney(600)))

	// Committed stock left the warehouse; the product total stays put.
	assert.Equal(t, qty(60), f.batch.Available)
	assert.Equal(t, types.Quantity(0), f.batch.Committed)
	assert.Equal(t, qty(100), types.Quantity(f.stock.totals[f.product]))

	movements, err := f.stock.GetMovementsByRecorder(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementKindConsume, movements[0].Kind)

	completed, err := f.orderRepo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, salesorder.StatusCompleted, completed.Status)
}

func TestCreateFromOrderRequiresApproval(t *testing.T) {
	f, _ := newFixture(t, 100, 0)

	order := salesorder.NewSalesOrder(f.customer)
	order.AddLine(f.product, f.warehouse, qty(40), types.NewMoney(15))
	require.NoError(t, f.orders.Create(context.Background(), order))
	_, err := f.orders.Submit(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateFromOrder(context.Background(), order.ID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)

	// The reservation stays put.
	assert.Equal(t, qty(40), f.batch.Committed)
	assert.Empty(t, f.repo.docs)
}

func TestCreateFromOrderRejectsDoubleInvoicing(t *testing.T) {
	f, order := newFixture(t, 100, 40)

	_, err := f.svc.CreateFromOrder(context.Background(), order.ID)
	require.NoError(t, err)

	// Force the order back to APPROVED to get past the status gate; the
	// existing invoice must still block a second one.
	stored, err := f.orderRepo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	stored.Status = salesorder.StatusApproved
	require.NoError(t, f.orderRepo.Update(context.Background(), stored))

	_, err = f.svc.CreateFromOrder(context.Background(), order.ID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestCreateFromOrderChecksProductTotal(t *testing.T) {
	f, order := newFixture(t, 100, 40)

	// The denormalized total drops below the ordered quantity after an
	// adjustment elsewhere.
	f.stock.totals[f.product] = qty(10).Int64Scaled()

	_, err := f.svc.CreateFromOrder(context.Background(), order.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Contains(t, err.Error(), "Gadget")

	// Nothing persisted, nothing consumed.
	assert.Empty(t, f.repo.docs)
	assert.Equal(t, qty(40), f.batch.Committed)

	stored, err := f.orderRepo.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, salesorder.StatusApproved, stored.Status)
}

func TestCancelRestoresStock(t *testing.T) {
	f, order := newFixture(t, 100, 40)
	doc, err := f.svc.CreateFromOrder(context.Background(), order.ID)
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(context.Background(), doc.ID)
	require.NoError(t, err)

	assert.True(t, cancelled.Cancelled)
	assert.False(t, cancelled.Posted)
	assert.Equal(t, qty(100), f.batch.Available)
	assert.Equal(t, qty(140), types.Quantity(f.stock.totals[f.product]))

	movements, err := f.stock.GetMovementsByRecorder(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, entity.MovementKindRestore, movements[1].Kind)
}

func TestCancelIsSingleShot(t *testing.T) {
	f, order := newFixture(t, 100, 40)
	doc, err := f.svc.CreateFromOrder(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), doc.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), doc.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already cancelled")

	// The second attempt restored nothing.
	assert.Equal(t, qty(100), f.batch.Available)
}

func TestAddPaymentLifecycle(t *testing.T) {
	f, order := newFixture(t, 100, 40)
	doc, err := f.svc.CreateFromOrder(context.Background(), order.ID)
	require.NoError(t, err)

	// 600 total: a part payment, then the remainder.
	paid, err := f.svc.AddPayment(userCtx("cashier-1"), &Payment{
		InvoiceID: doc.ID,
		Mode:      ModeCash,
		Amount:    types.NewMoney(250),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPart, paid.Status)
	assert.True(t, paid.PaidAmount.Equal(types.NewMoney(250)))
	assert.True(t, paid.Outstanding().Equal(types.NewMoney(350)))

	paid, err = f.svc.AddPayment(userCtx("cashier-1"), &Payment{
		InvoiceID: doc.ID,
		Mode:      ModeTransfer,
		Amount:    types.NewMoney(350),
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, paid.Status)
	assert.True(t, paid.Outstanding().Equal(types.Zero()))

	payments, err := f.svc.GetPayments(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, f.customer, payments[0].CustomerID)
	assert.Equal(t, "cashier-1", payments[0].CreatedBy)
	assert.False(t, payments[0].Date.IsZero())
}

func TestAddPaymentRejectsOverpayment(t *testing.T) {
	f, order := newFixture(t, 100, 40)
	doc, err := f.svc.CreateFromOrder(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.AddPayment(context.Background(), &Payment{
		InvoiceID: doc.ID,
		Mode:      ModeCash,
		Amount:    types.NewMoney(601),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds outstanding")

	stored, err := f.repo.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusUnpaid, stored.Status)
	assert.True(t, stored.PaidAmount.Equal(types.Zero()))
}

func TestAddPaymentRejectsCancelledInvoice(t *testing.T) {
	f, order := newFixture(t, 100, 40)
	doc, err := f.svc.CreateFromOrder(context.Background(), order.ID)
	require.NoError(t, err)
	_, err = f.svc.Cancel(context.Background(), doc.ID)
	require.NoError(t, err)

	_, err = f.svc.AddPayment(context.Background(), &Payment{
		InvoiceID: doc.ID,
		Mode:      ModeCash,
		Amount:    types.NewMoney(100),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cancelled")
}

func TestAddPaymentValidation(t *testing.T) {
	f, order := newFixture(t, 100, 40)
	doc, err := f.svc.CreateFromOrder(context.Background(), order.ID)
	require.NoError(t, err)

	_, err = f.svc.AddPayment(context.Background(), &Payment{
		InvoiceID: doc.ID,
		Mode:      ModeCash,
		Amount:    types.NewMoney(0),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be positive")

	_, err = f.svc.AddPayment(context.Background(), &Payment{
		InvoiceID: doc.ID,
		Mode:      PaymentMode("CRYPTO"),
		Amount:    types.NewMoney(50),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment mode")
}
