package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// fakeRepo is an in-memory Repository for service tests.
type fakeRepo struct {
	batches   []*StockBatch     // FIFO order
	totals    map[id.ID]int64   // product totals, scaled
	movements []entity.StockMovement
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{totals: make(map[id.ID]int64)}
}

func (r *fakeRepo) addBatch(b *StockBatch) {
	r.batches = append(r.batches, b)
	r.totals[b.ProductID] += b.OnHand().Int64Scaled()
}

func (r *fakeRepo) find(batchID id.ID) *StockBatch {
	for _, b := range r.batches {
		if b.ID == batchID {
			return b
		}
	}
	return nil
}

func (r *fakeRepo) CreateBatch(ctx context.Context, batch *StockBatch) error {
	r.batches = append(r.batches, batch)
	return nil
}

func (r *fakeRepo) GetBatch(ctx context.Context, batchID id.ID) (*StockBatch, error) {
	if b := r.find(batchID); b != nil {
		return b, nil
	}
	return nil, apperror.NewNotFound("stock_batch", batchID.String())
}

func (r *fakeRepo) GetBatchForUpdate(ctx context.Context, batchID id.ID) (*StockBatch, error) {
	return r.GetBatch(ctx, batchID)
}

func (r *fakeRepo) GetBatchesForUpdate(ctx context.Context, productID, warehouseID id.ID) ([]*StockBatch, error) {
	var out []*StockBatch
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListBatches(ctx context.Context, filter BatchFilter) ([]*StockBatch, error) {
	return r.batches, nil
}

func (r *fakeRepo) BatchNumberExists(ctx context.Context, batchNumber string) (bool, error) {
	for _, b := range r.batches {
		if b.BatchNumber == batchNumber {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) MoveToCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.find(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	b.Committed += qty
	return true, nil
}

func (r *fakeRepo) MoveToAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.find(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	b.Available += qty
	return true, nil
}

func (r *fakeRepo) TakeCommitted(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.find(batchID)
	if b == nil || b.Committed < qty {
		return false, nil
	}
	b.Committed -= qty
	return true, nil
}

func (r *fakeRepo) TakeAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) (bool, error) {
	b := r.find(batchID)
	if b == nil || b.Available < qty {
		return false, nil
	}
	b.Available -= qty
	return true, nil
}

func (r *fakeRepo) AddAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.find(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available += qty
	return nil
}

func (r *fakeRepo) SetAvailable(ctx context.Context, batchID id.ID, qty types.Quantity) error {
	b := r.find(batchID)
	if b == nil {
		return apperror.NewNotFound("stock_batch", batchID.String())
	}
	b.Available = qty
	return nil
}

func (r *fakeRepo) AdjustProductTotal(ctx context.Context, productID id.ID, delta types.Quantity) error {
	next := r.totals[productID] + delta.Int64Scaled()
	if next < 0 {
		next = 0
	}
	r.totals[productID] = next
	return nil
}

func (r *fakeRepo) RecordMovements(ctx context.Context, movements []entity.StockMovement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *fakeRepo) GetMovementsByRecorder(ctx context.Context, recorderID id.ID) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	for _, m := range r.movements {
		if m.RecorderID == recorderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetMovementHistory(ctx context.Context, productID id.ID, filter MovementFilter) ([]entity.StockMovement, error) {
	return r.movements, nil
}

func (r *fakeRepo) GetBalance(ctx context.Context, warehouseID, productID id.ID) (entity.StockBalance, error) {
	balance := entity.StockBalance{WarehouseID: warehouseID, ProductID: productID}
	for _, b := range r.batches {
		if b.ProductID == productID && b.WarehouseID == warehouseID {
			balance.Available += b.Available
			balance.Committed += b.Committed
		}
	}
	return balance, nil
}

func (r *fakeRepo) GetBalancesByWarehouse(ctx context.Context, warehouseID id.ID) ([]entity.StockBalance, error) {
	return nil, nil
}

// snapshot captures repo state so the fake tx manager can roll back.
func (r *fakeRepo) snapshot() *fakeRepo {
	cp := newFakeRepo()
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

func (r *fakeRepo) restore(from *fakeRepo) {
	r.batches = from.batches
	r.totals = from.totals
	r.movements = from.movements
}

// fakeTxManager rolls the fake repo back on error, mirroring what the real
// transaction does for the database.
type fakeTxManager struct {
	repo *fakeRepo
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	before := m.repo.snapshot()
	if err := fn(ctx); err != nil {
		m.repo.restore(before)
		return err
	}
	return nil
}

// fakeProducts resolves product names.
type fakeProducts struct {
	names map[id.ID]string
}

func (p *fakeProducts) GetName(ctx context.Context, productID id.ID) (string, error) {
	return p.names[productID], nil
}

// --- helpers ---

func qty(v float64) types.Quantity { return types.NewQuantityFromFloat64(v) }

func testRecorder() Recorder {
	return Recorder{ID: id.New(), Type: "SalesOrder", Version: 1, Date: time.Now().UTC()}
}

func newTestService(repo *fakeRepo, names map[id.ID]string) *Service {
	return NewService(repo, &fakeProducts{names: names}, &fakeTxManager{repo: repo})
}

func batchAt(t *testing.T, repo *fakeRepo, i int) *StockBatch {
	t.Helper()
	require.Greater(t, len(repo.batches), i)
	return repo.batches[i]
}

// --- tests ---

func TestReserveFIFOAcrossBatches(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()

	older := NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(5), types.NewMoney(10))
	newer := NewStockBatch("WH1-B-2026-00002", product, warehouse, qty(10), types.NewMoney(10))
	repo.addBatch(older)
	repo.addBatch(newer)

	svc := newTestService(repo, nil)
	err := svc.Reserve(context.Background(), testRecorder(), []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(8)},
	})
	require.NoError(t, err)

	// Oldest batch drained first, remainder from the next one.
	assert.Equal(t, qty(0), batchAt(t, repo, 0).Available)
	assert.Equal(t, qty(5), batchAt(t, repo, 0).Committed)
	assert.Equal(t, qty(7), batchAt(t, repo, 1).Available)
	assert.Equal(t, qty(3), batchAt(t, repo, 1).Committed)
}

func TestReserveConservesOnHand(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()
	repo.addBatch(NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(100), types.NewMoney(1)))

	svc := newTestService(repo, nil)
	rec := testRecorder()

	require.NoError(t, svc.Reserve(context.Background(), rec, []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(30)},
	}))
	assert.Equal(t, qty(100), batchAt(t, repo, 0).OnHand())

	require.NoError(t, svc.Release(context.Background(), rec, []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(30)},
	}))
	assert.Equal(t, qty(100), batchAt(t, repo, 0).OnHand())
	assert.Equal(t, qty(100), batchAt(t, repo, 0).Available)
	assert.Equal(t, qty(0), batchAt(t, repo, 0).Committed)
}

func TestReserveShortfallRollsBackAllLines(t *testing.T) {
	repo := newFakeRepo()
	warehouse := id.New()
	covered, short := id.New(), id.New()
	repo.addBatch(NewStockBatch("WH1-B-2026-00001", covered, warehouse, qty(50), types.NewMoney(1)))
	repo.addBatch(NewStockBatch("WH1-B-2026-00002", short, warehouse, qty(2), types.NewMoney(1)))

	svc := newTestService(repo, map[id.ID]string{short: "Widget"})
	err := svc.Reserve(context.Background(), testRecorder(), []Line{
		{ProductID: covered, WarehouseID: warehouse, Quantity: qty(10)},
		{ProductID: short, WarehouseID: warehouse, Quantity: qty(5)},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	appErr, _ := apperror.AsAppError(err)
	assert.Contains(t, appErr.Message, "Widget")

	// First line's partial reservation must be undone.
	assert.Equal(t, qty(50), batchAt(t, repo, 0).Available)
	assert.Equal(t, qty(0), batchAt(t, repo, 0).Committed)
	assert.Equal(t, qty(2), batchAt(t, repo, 1).Available)
	assert.Empty(t, repo.movements)
}

func TestReleaseMoreThanCommittedFails(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()
	b := NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(10), types.NewMoney(1))
	b.Committed = qty(4)
	repo.addBatch(b)

	svc := newTestService(repo, nil)
	err := svc.Release(context.Background(), testRecorder(), []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(6)},
	})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Unable to return all quantities", appErr.Message)

	// Partial release rolled back.
	assert.Equal(t, qty(4), batchAt(t, repo, 0).Committed)
	assert.Equal(t, qty(10), batchAt(t, repo, 0).Available)
}

func TestOrderInvoiceCancelRoundTrip(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()
	repo.addBatch(NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(100), types.NewMoney(5)))

	svc := newTestService(repo, nil)
	ctx := context.Background()

	// Order confirmation reserves 30.
	require.NoError(t, svc.Reserve(ctx, testRecorder(), []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(30)},
	}))
	assert.Equal(t, qty(70), batchAt(t, repo, 0).Available)
	assert.Equal(t, qty(30), batchAt(t, repo, 0).Committed)
	assert.Equal(t, qty(100).Int64Scaled(), repo.totals[product])

	// Invoicing consumes the commitment only; the product total does not
	// move, it already ignored the reservation.
	require.NoError(t, svc.Consume(ctx, testRecorder(), []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(30)},
	}))
	assert.Equal(t, qty(70), batchAt(t, repo, 0).Available)
	assert.Equal(t, qty(0), batchAt(t, repo, 0).Committed)
	assert.Equal(t, qty(100).Int64Scaled(), repo.totals[product])

	// Invoice cancellation restores the oldest batch and grows the total
	// by the invoiced quantity.
	require.NoError(t, svc.Restore(ctx, testRecorder(), []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(30)},
	}))
	assert.Equal(t, qty(100), batchAt(t, repo, 0).Available)
	assert.Equal(t, qty(130).Int64Scaled(), repo.totals[product])
}

func TestConsumeWithoutCommitmentFails(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()
	repo.addBatch(NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(50), types.NewMoney(1)))

	svc := newTestService(repo, nil)
	err := svc.Consume(context.Background(), testRecorder(), []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(10)},
	})

	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, qty(50), batchAt(t, repo, 0).Available)
}

func TestAdjustSetsCountAndShiftsTotal(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()
	b := NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(50), types.NewMoney(2))
	repo.addBatch(b)

	svc := newTestService(repo, nil)
	result, err := svc.Adjust(context.Background(), testRecorder(), AdjustInput{
		BatchID:     b.ID,
		NewQuantity: qty(80),
	})
	require.NoError(t, err)

	assert.Equal(t, qty(50), result.PreviousQuantity)
	assert.Equal(t, qty(80), result.NewQuantity)
	assert.Equal(t, qty(30), result.Delta)
	assert.Equal(t, qty(80), batchAt(t, repo, 0).Available)
	assert.Equal(t, qty(80).Int64Scaled(), repo.totals[product])
}

func TestAdjustDownClampsProductTotalAtZero(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()
	b := NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(10), types.NewMoney(2))
	repo.batches = append(repo.batches, b)
	repo.totals[product] = qty(3).Int64Scaled() // total already drifted low

	svc := newTestService(repo, nil)
	result, err := svc.Adjust(context.Background(), testRecorder(), AdjustInput{
		BatchID:     b.ID,
		NewQuantity: qty(0),
	})
	require.NoError(t, err)

	assert.Equal(t, qty(-10), result.Delta)
	assert.Equal(t, qty(0), batchAt(t, repo, 0).Available)
	assert.Equal(t, int64(0), repo.totals[product])
}

func TestTransferOutRequiresAvailable(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()
	b := NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(5), types.NewMoney(3))
	repo.addBatch(b)

	svc := newTestService(repo, map[id.ID]string{product: "Gadget"})
	err := svc.TransferOut(context.Background(), testRecorder(), b.ID, qty(8))

	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, qty(5), batchAt(t, repo, 0).Available)

	require.NoError(t, svc.TransferOut(context.Background(), testRecorder(), b.ID, qty(3)))
	assert.Equal(t, qty(2), batchAt(t, repo, 0).Available)
}

func TestCheckAvailabilityDoesNotMoveStock(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()
	repo.addBatch(NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(10), types.NewMoney(1)))

	svc := newTestService(repo, nil)

	require.NoError(t, svc.CheckAvailability(context.Background(), []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(10)},
	}))

	err := svc.CheckAvailability(context.Background(), []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(11)},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	assert.Equal(t, qty(10), batchAt(t, repo, 0).Available)
	assert.Equal(t, qty(0), batchAt(t, repo, 0).Committed)
}

func TestReserveValidatesLines(t *testing.T) {
	svc := newTestService(newFakeRepo(), nil)

	err := svc.Reserve(context.Background(), testRecorder(), nil)
	require.Error(t, err)

	err = svc.Reserve(context.Background(), testRecorder(), []Line{
		{ProductID: id.New(), WarehouseID: id.New(), Quantity: qty(-1)},
	})
	require.Error(t, err)
}

func TestMovementJournalRecordsDeltas(t *testing.T) {
	repo := newFakeRepo()
	product, warehouse := id.New(), id.New()
	repo.addBatch(NewStockBatch("WH1-B-2026-00001", product, warehouse, qty(20), types.NewMoney(1)))

	svc := newTestService(repo, nil)
	rec := testRecorder()
	require.NoError(t, svc.Reserve(context.Background(), rec, []Line{
		{ProductID: product, WarehouseID: warehouse, Quantity: qty(5)},
	}))

	movements, err := repo.GetMovementsByRecorder(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementKindReserve, movements[0].Kind)
	assert.Equal(t, qty(-5), movements[0].DeltaAvailable)
	assert.Equal(t, qty(5), movements[0].DeltaCommitted)
	assert.Equal(t, qty(0), movements[0].NetQuantity())
}
