package transfers

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
	"inventra/internal/domain/ledger"
	"inventra/internal/domain/notify"
)

// stockRepo is a minimal in-memory ledger.Repository for workflow tests.
type stockRepo struct {
	batches   []*ledger.StockBatch
	totals    map[id.ID]int64
	movements []entity.StockMovement
}

func newStockRepo() *stockRepo {
	return &stockRepo{totals: make(map[id.ID]int64)}
}

func (r *stockRepo) addBatch(b *ledger.StockBatch) {
	r.batches = append(r.batches, b)
	r.totals[b.ProductID] += b.OnHand().Int64Scaled()
}

func (r *stockRepo) find(batchID id.ID) *ledger.StockBatch {
	for _, b := range r.batches {
		if b.ID == batchID {
			return b
		}
	}
	return nil
}

func (r *stockRepo) CreateBatch(ctx context.Context, batch *ledger.StockBatch) error {
	r.batches = append(r.batches, batch)
	return nil
}

func (r *stockRepo) GetBatch(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	if b := r.find(batchID); b != nil {
		return b, nil
	}
	return nil, apperror.NewNotFound("stock_batch", batchID.String())
}

func (r *stockRepo) GetBatchForUpdate(ctx context.Context, batchID id.ID) (*ledger.StockBatch, error) {
	return r.GetBatch(ctx, batchID)
}

func (r *stockRepo) GetBatchesForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*ledger.StockBatch, error) {
	var out []*ledger.StockBatch
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *stockRepo) ListBatches(ctx context.Context, filter ledger.BatchFilter) ([]*ledger.StockBatch, error) {
	return r.batches, nil
}

func (r *stockRepo) BatchNumberExists(ctx context.Context, batchNumber string) (bool, error) {
	for _, b := range r.batches {
		if b.BatchNumber == batchNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *stockRepo) MoveToCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.find(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	b.Committed += qty
	return true, nil
}

func (r *stockRepo) MoveToAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.find(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	b.Available += qty
	return true, nil
}

func (r *stockRepo) TakeCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.find(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	return true, nil
}

func (r *stockRepo) TakeAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.find(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	return true, nil
}

func (r *stockRepo) AddAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.find(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available += qty
	return nil
}

func (r *stockRepo) SetAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.find(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available = qty
	return nil
}

func (r *stockRepo) AdjustProductTotal(ctx context.Context, productID id.ID, delta types.Quantity) error {
	next := r.totals[productID] + delta.Int64Scaled()
	if next < 0 {
		next = 0
	}
	r.totals[productID] = next
	return nil
}

func (r *stockRepo) RecordMovements(ctx context.Context, movements []entity.StockMovement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *stockRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	for _, m := range r.movements {
		if m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *stockRepo) GetMovementHistory(ctx context.Context, productID id.ID, filter ledger.MovementFilter) ([]entity.StockMovement, error) {
	return r.movements, nil
}

func (r *stockRepo) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	balance := entity.StockBalance{WarehouseID: warehouseID, ProductID: productID}
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			balance.Available += b.Available
			balance.Committed += b.Committed
		}
	}
	return balance, nil
}

func (r *stockRepo) GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error) {
	return nil, nil
}

func (r *stockRepo) snapshot() *stockRepo {
	cp := newStockRepo()
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

func (r *stockRepo) restore(from *stockRepo) {
	r.batches = from.batches
	r.totals = from.totals
	r.movements = from.movements
}

// fakeTxManager rolls the stock repo back on error, mirroring what the real
// transaction does for the database.
type fakeTxManager struct {
	repo *stockRepo
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	before := m.repo.snapshot()
	if err := fn(ctx); err != nil {
		m.repo.restore(before)
		return err
	}
	return nil
}

// fakeRequestRepo stores requests in memory. Reads return deep copies so an
// aborted in-memory mutation does not leak, same as a fresh row read would.
type fakeRequestRepo struct {
	requests map[id.ID]*StockRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[id.ID]*StockRequest)}
}

func (r *fakeRequestRepo) clone(req *StockRequest) *StockRequest {
	cp := *req
	cp.Items = append([]Item(nil), req.Items...)
	return &cp
}

func (r *fakeRequestRepo) Create(ctx context.Context, request *StockRequest) error {
	r.requests[request.ID] = r.clone(request)
	return nil
}

func (r *fakeRequestRepo) SaveItems(ctx context.Context, requestID id.ID, items []Item) error {
	req, ok := r.requests[requestID]
	if !ok {
		return apperror.NewNotFound("stock_request", requestID.String())
	}
	req.Items = append([]Item(nil), items...)
	return nil
}

func (r *fakeRequestRepo) GetByID(ctx context.Context, requestID id.ID) (*StockRequest, error) {
	req, ok := r.requests[requestID]
	if !ok {
		return nil, apperror.NewNotFound("stock_request", requestID.String())
	}
	return r.clone(req), nil
}

func (r *fakeRequestRepo) GetByIDForUpdate(ctx context.Context, requestID id.ID) (*StockRequest, error) {
	return r.GetByID(ctx, requestID)
}

func (r *fakeRequestRepo) UpdateStatus(ctx context.Context, request *StockRequest) error {
	if _, ok := r.requests[request.ID]; !ok {
		return apperror.NewNotFound("stock_request", request.ID.String())
	}
	r.requests[request.ID] = r.clone(request)
	return nil
}

func (r *fakeRequestRepo) Delete(ctx context.Context, requestID id.ID) error {
	delete(r.requests, requestID)
	return nil
}

func (r *fakeRequestRepo) List(ctx context.Context, filter ListFilter) ([]*StockRequest, int64, error) {
	var out []*StockRequest
	for _, req := range r.requests {
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		out = append(out, r.clone(req))
	}
	return out, int64(len(out)), nil
}

func (r *fakeRequestRepo) HasPendingForProduct(ctx context.Context, sendingWarehouseID, receivingWarehouseID, productID id.ID) (bool, error) {
	for _, req := range r.requests {
		if req.Status != StatusPending {
			continue
		}
		if req.SendingWarehouseID != sendingWarehouseID || req.ReceivingWarehouseID != receivingWarehouseID {
			continue
		}
		for _, item := range req.Items {
			if item.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

// recordingNotifier captures sent messages.
type recordingNotifier struct {
	sent []notify.Message
}

func (n *recordingNotifier) Send(ctx context.Context, msg notify.Message) error {
	n.sent = append(n.sent, msg)
	return nil
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

type fakeProducts struct{}

func (fakeProducts) GetName(ctx context.Context, productID id.ID) (string, error) {
	return "Widget", nil
}

// sequenceGenerator hands out sequential numbers per prefix.
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
	requests  *fakeRequestRepo
	stock     *stockRepo
	notifier  *recordingNotifier
	sending   id.ID
	receiving id.ID
	product   id.ID
	batch     *ledger.StockBatch
}

func newFixture(available float64) *fixture {
	stock := newStockRepo()
	txm := &fakeTxManager{repo: stock}
	ledgerSvc := ledger.NewService(stock, fakeProducts{}, txm)

	sending, receiving, product := id.New(), id.New(), id.New()
	batch := ledger.NewStockBatch("WH1-B-2026-00001", product, sending,
		types.NewQuantityFromFloat64(available), types.NewMoney(12.50))
	stock.addBatch(batch)

	warehouses := &fakeWarehouseCodes{codes: map[id.ID]string{
		sending:   "WH1",
		receiving: "WH2",
	}}
	gen := sequenceGenerator()
	requests := newFakeRequestRepo()
	notifier := &recordingNotifier{}

	svc := NewService(Config{
		Repo:      requests,
		Ledger:    ledgerSvc,
		Numbers:   ledger.NewBatchNumberGenerator(gen, warehouses, stock),
		Numerator: gen,
		Notifier:  notifier,
		TxManager: txm,
	})

	return &fixture{
		svc:       svc,
		requests:  requests,
		stock:     stock,
		notifier:  notifier,
		sending:   sending,
		receiving: receiving,
		product:   product,
		batch:     batch,
	}
}

func (f *fixture) newRequest(quantity float64) *StockRequest {
	req := NewStockRequest(f.sending, f.receiving, "approver-1")
	req.Items = []Item{{
		ID:        id.New(),
		ProductID: f.product,
		BatchID:   f.batch.ID,
		Quantity:  types.NewQuantityFromFloat64(quantity),
		CostPrice: types.NewMoney(12.50),
	}}
	return req
}

func userCtx(userID string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: userID})
}

func TestCreateAssignsNumberAndNotifiesApprover(t *testing.T) {
	f := newFixture(100)
	req := f.newRequest(40)

	require.NoError(t, f.svc.Create(userCtx("requester-1"), req))

	assert.Equal(t, StatusPending, req.Status)
	assert.Equal(t, "REQ-2026-00001", req.Number)
	assert.Equal(t, "requester-1", req.CreatedBy)
	assert.Equal(t, 1, req.Items[0].LineNumber)
	assert.Equal(t, req.ID, req.Items[0].RequestID)
	assert.True(t, req.Items[0].TransferValue.Equal(types.NewMoney(500)))

	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, notify.KindTransferRequested, f.notifier.sent[0].Kind)
	assert.Equal(t, "approver-1", f.notifier.sent[0].Recipient)

	// Nothing moved yet.
	assert.Equal(t, types.NewQuantityFromFloat64(100), f.batch.Available)
	assert.Empty(t, f.stock.movements)
}

func TestCreateRejectsSameWarehouse(t *testing.T) {
	f := newFixture(100)
	req := f.newRequest(10)
	req.ReceivingWarehouseID = req.SendingWarehouseID

	err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must differ")
}

func TestCreateRejectsUngrantedSendingWarehouse(t *testing.T) {
	f := newFixture(100)
	req := f.newRequest(10)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{
		UserID:       "requester-1",
		WarehouseIDs: []string{req.ReceivingWarehouseID.String()},
	})

	err := f.svc.Create(ctx, req)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeForbidden, appErr.Code)
}

func TestCreateRejectsInsufficientStock(t *testing.T) {
	f := newFixture(5)
	req := f.newRequest(10)

	err := f.svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Contains(t, err.Error(), "Widget")
}

func TestCreateRejectsDuplicatePendingRequest(t *testing.T) {
	f := newFixture(100)
	require.NoError(t, f.svc.Create(context.Background(), f.newRequest(10)))

	err := f.svc.Create(context.Background(), f.newRequest(20))
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
}

func TestApproveThenConfirmMovesStock(t *testing.T) {
	f := newFixture(100)
	req := f.newRequest(40)
	require.NoError(t, f.svc.Create(userCtx("requester-1"), req))

	approved, err := f.svc.Approve(userCtx("approver-1"), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)

	confirmed, err := f.svc.Confirm(userCtx("approver-1"), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, confirmed.Status)

	// Sending batch drained by the transferred quantity.
	assert.Equal(t, types.NewQuantityFromFloat64(60), f.batch.Available)

	// A new batch exists in the receiving warehouse with a fresh number
	// and the carried unit cost.
	require.Len(t, f.stock.batches, 2)
	received := f.stock.batches[1]
	assert.Equal(t, f.receiving, received.WarehouseID)
	assert.Equal(t, f.product, received.ProductID)
	assert.Equal(t, types.NewQuantityFromFloat64(40), received.Available)
	assert.True(t, received.UnitCost.Equal(types.NewMoney(12.50)))
	assert.Equal(t, "WH2-B-2026-00001", received.BatchNumber)

	// One outbound and one inbound movement, same recorder.
	movements, err := f.stock.GetMovementsByRecorder(context.Background(), req.ID)
	require.NoError(t, err)
	require.Len(t, movements, 2)
	assert.Equal(t, entity.MovementKindTransferOut, movements[0].Kind)
	assert.Equal(t, entity.MovementKindReceipt, movements[1].Kind)

	// Requester notified on approval and on confirmation.
	kinds := make([]notify.Kind, 0, len(f.notifier.sent))
	for _, m := range f.notifier.sent {
		kinds = append(kinds, m.Kind)
	}
	assert.Contains(t, kinds, notify.KindTransferApproved)
	assert.Contains(t, kinds, notify.KindTransferConfirmed)
}

func TestConfirmRequiresApproval(t *testing.T) {
	f := newFixture(100)
	req := f.newRequest(40)
	require.NoError(t, f.svc.Create(context.Background(), req))

	_, err := f.svc.Confirm(context.Background(), req.ID)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInvalidStateTransition, appErr.Code)

	// Status and stock untouched.
	stored, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, stored.Status)
	assert.Equal(t, types.NewQuantityFromFloat64(100), f.batch.Available)
}

func TestRejectedRequestIsTerminal(t *testing.T) {
	f := newFixture(100)
	req := f.newRequest(10)
	require.NoError(t, f.svc.Create(context.Background(), req))

	rejected, err := f.svc.Reject(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)

	_, err = f.svc.Approve(context.Background(), req.ID)
	require.Error(t, err)

	_, err = f.svc.Confirm(context.Background(), req.ID)
	require.Error(t, err)
}

func TestRejectAfterApproval(t *testing.T) {
	f := newFixture(100)
	req := f.newRequest(10)
	require.NoError(t, f.svc.Create(context.Background(), req))

	_, err := f.svc.Approve(context.Background(), req.ID)
	require.NoError(t, err)

	rejected, err := f.svc.Reject(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, rejected.Status)
	assert.Equal(t, types.NewQuantityFromFloat64(100), f.batch.Available)
}

func TestConfirmRollsBackWhenStockRunsShort(t *testing.T) {
	f := newFixture(100)
	req := f.newRequest(40)
	require.NoError(t, f.svc.Create(context.Background(), req))
	_, err := f.svc.Approve(context.Background(), req.ID)
	require.NoError(t, err)

	// Stock leaves through another channel between approval and confirmation.
	taken, err := f.stock.TakeAvailable(context.Background(), f.batch.ID, types.NewQuantityFromFloat64(70))
	require.NoError(t, err)
	require.True(t, taken)

	_, err = f.svc.Confirm(context.Background(), req.ID)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// No partial movement survived and the request stays APPROVED.
	assert.Empty(t, f.stock.movements)
	require.Len(t, f.stock.batches, 1)
	stored, err := f.requests.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, stored.Status)
}

func TestDeleteOnlyPendingRequests(t *testing.T) {
	f := newFixture(100)
	req := f.newRequest(10)
	require.NoError(t, f.svc.Create(context.Background(), req))

	_, err := f.svc.Approve(context.Background(), req.ID)
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), req.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only pending")

	// The first request left PENDING on approval, so a second one for the
	// same product is no longer a duplicate.
	other := f.newRequest(5)
	require.NoError(t, f.svc.Create(context.Background(), other))
	require.NoError(t, f.svc.Delete(context.Background(), other.ID))

	_, err = f.svc.GetByID(context.Background(), other.ID)
	assert.True(t, apperror.IsNotFound(err))
}
