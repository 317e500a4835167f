package adjustment

import (
	"context"
	"encoding/json"
	"errors"
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
	"inventra/internal/domain/audit"
	"inventra/internal/domain/ledger"
)

// fakeStock is an in-memory ledger.Repository.
type fakeStock struct {
	batches   []*ledger.StockBatch
	totals    map[id.ID]int64
	movements []entity.StockMovement
}

func newFakeStock() *fakeStock {
	return &fakeStock{totals: make(map[id.ID]int64)}
}

func (r *fakeStock) add(b *ledger.StockBatch) {
	r.batches = append(r.batches, b)
	r.totals[b.ProductID] += b.OnHand().Int64Scaled()
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
	return entity.StockBalance{WarehouseID: warehouseID, ProductID: productID}, nil
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

// fakeRepo stores adjustments in memory. Append-only, like the real one.
type fakeRepo struct {
	docs  map[id.ID]*Adjustment
	lines map[id.ID][]Line
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		docs:  make(map[id.ID]*Adjustment),
		lines: make(map[id.ID][]Line),
	}
}

func (r *fakeRepo) Create(ctx context.Context, doc *Adjustment) error {
	cp := *doc
	cp.Lines = nil
	r.docs[doc.ID] = &cp
	return nil
}

func (r *fakeRepo) GetByID(ctx context.Context, docID id.ID) (*Adjustment, error) {
	doc, ok := r.docs[docID]
	if !ok {
		return nil, apperror.NewNotFound("adjustment", docID.String())
	}
	cp := *doc
	return &cp, nil
}

func (r *fakeRepo) GetByNumber(ctx context.Context, number string) (*Adjustment, error) {
	for _, doc := range r.docs {
		if doc.Number == number {
			cp := *doc
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("adjustment", number)
}

func (r *fakeRepo) GetLines(ctx context.Context, docID id.ID) ([]Line, error) {
	return append([]Line(nil), r.lines[docID]...), nil
}

func (r *fakeRepo) SaveLines(ctx context.Context, docID id.ID, lines []Line) error {
	r.lines[docID] = append([]Line(nil), lines...)
	return nil
}

func (r *fakeRepo) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Adjustment], error) {
	var out []*Adjustment
	for _, doc := range r.docs {
		cp := *doc
		out = append(out, &cp)
	}
	return domain.ListResult[*Adjustment]{Items: out, TotalCount: int64(len(out))}, nil
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

// recordingAuditor captures change log entries; err makes LogChange fail.
type recordingAuditor struct {
	entries []auditEntry
	err     error
}

type auditEntry struct {
	entityType string
	entityID   id.ID
	action     string
	changes    map[string]any
}

func (a *recordingAuditor) LogChange(ctx context.Context, entityType string, entityID id.ID, action string, changes map[string]any) error {
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, auditEntry{entityType, entityID, action, changes})
	return nil
}

func (a *recordingAuditor) EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]audit.ChangeRecord, error) {
	var records []audit.ChangeRecord
	for _, e := range a.entries {
		if e.entityType != entityType || e.entityID != entityID {
			continue
		}
		payload, err := json.Marshal(e.changes)
		if err != nil {
			return nil, err
		}
		records = append(records, audit.ChangeRecord{
			ID:      id.New(),
			Action:  e.action,
			Changes: payload,
		})
	}
	return records, nil
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

type fixture struct {
	svc       *Service
	repo      *fakeRepo
	stock     *fakeStock
	auditor   *recordingAuditor
	warehouse id.ID
	product   id.ID
	batch     *ledger.StockBatch
}

func newFixture(available, committed float64) *fixture {
	stock := newFakeStock()
	txm := &fakeTxManager{stock: stock}
	ledgerSvc := ledger.NewService(stock, fakeProducts{}, txm)

	warehouse, product := id.New(), id.New()
	batch := ledger.NewStockBatch("WH1-B-2026-00001", product, warehouse,
		types.NewQuantityFromFloat64(available), types.NewMoney(8))
	batch.Committed = types.NewQuantityFromFloat64(committed)
	stock.add(batch)

	repo := newFakeRepo()
	auditor := &recordingAuditor{}
	svc := NewService(repo, ledgerSvc, auditor, sequenceGenerator(), txm)

	return &fixture{
		svc:       svc,
		repo:      repo,
		stock:     stock,
		auditor:   auditor,
		warehouse: warehouse,
		product:   product,
		batch:     batch,
	}
}

func TestCreateQuantityAdjustment(t *testing.T) {
	f := newFixture(100, 30)

	doc := NewAdjustment(f.warehouse, TypeQuantity, "cycle count")
	doc.AddLine(f.product, f.batch.ID, qty(80))

	ctx := security.WithUserID(context.Background(), "storekeeper-1")
	created, err := f.svc.Create(ctx, doc)
	require.NoError(t, err)

	assert.Equal(t, "ADJ-2026-00001", created.Number)
	assert.True(t, created.Posted)
	assert.Equal(t, "storekeeper-1", created.CreatedBy)

	// The line captured the before/after state.
	require.Len(t, created.Lines, 1)
	assert.Equal(t, qty(100), created.Lines[0].PreviousQuantity)
	assert.Equal(t, qty(80), created.Lines[0].NewQuantity)
	assert.Equal(t, qty(-20), created.Lines[0].Delta)

	// Available set to the counted value, committed untouched, total
	// shifted by the delta.
	assert.Equal(t, qty(80), f.batch.Available)
	assert.Equal(t, qty(30), f.batch.Committed)
	assert.Equal(t, qty(110).Int64Scaled(), f.stock.totals[f.product])

	movements, err := f.stock.GetMovementsByRecorder(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, entity.MovementKindAdjust, movements[0].Kind)

	// The change log holds the full correction.
	require.Len(t, f.auditor.entries, 1)
	entry := f.auditor.entries[0]
	assert.Equal(t, "StockAdjustment", entry.entityType)
	assert.Equal(t, doc.ID, entry.entityID)
	assert.Equal(t, "create", entry.action)
	assert.Equal(t, "cycle count", entry.changes["reason"])
}

func TestCreateValueAdjustmentMovesNoStock(t *testing.T) {
	f := newFixture(100, 0)

	doc := NewAdjustment(f.warehouse, TypeValue, "revaluation")
	doc.AddLine(f.product, f.batch.ID, 0)
	doc.Lines[0].PreviousValue = types.NewMoney(8)
	doc.Lines[0].NewValue = types.NewMoney(9)

	created, err := f.svc.Create(context.Background(), doc)
	require.NoError(t, err)

	assert.True(t, created.Posted)
	assert.Equal(t, qty(100), f.batch.Available)
	assert.Empty(t, f.stock.movements)
	require.Len(t, f.auditor.entries, 1)
}

func TestCreateZeroDeltaRecordsNoMovement(t *testing.T) {
	f := newFixture(100, 0)

	doc := NewAdjustment(f.warehouse, TypeQuantity, "count matched")
	doc.AddLine(f.product, f.batch.ID, qty(100))

	created, err := f.svc.Create(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, types.Quantity(0), created.Lines[0].Delta)
	assert.Empty(t, f.stock.movements)
	assert.Equal(t, qty(100).Int64Scaled(), f.stock.totals[f.product])
}

func TestCreateRequiresReason(t *testing.T) {
	f := newFixture(100, 0)

	doc := NewAdjustment(f.warehouse, TypeQuantity, "")
	doc.AddLine(f.product, f.batch.ID, qty(80))

	_, err := f.svc.Create(context.Background(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reason is required")
}

func TestCreateRejectsNegativeQuantity(t *testing.T) {
	f := newFixture(100, 0)

	doc := NewAdjustment(f.warehouse, TypeQuantity, "typo")
	doc.AddLine(f.product, f.batch.ID, qty(-5))

	_, err := f.svc.Create(context.Background(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be negative")
}

func TestCreateRollsBackOnUnknownBatch(t *testing.T) {
	f := newFixture(100, 0)

	doc := NewAdjustment(f.warehouse, TypeQuantity, "cycle count")
	doc.AddLine(f.product, f.batch.ID, qty(80))
	doc.AddLine(f.product, id.New(), qty(10))

	_, err := f.svc.Create(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))

	// The first line's adjustment did not survive. Rollback replaces the
	// batch instances, so read back through the repo.
	rolled, err := f.stock.GetBatch(context.Background(), f.batch.ID)
	require.NoError(t, err)
	assert.Equal(t, qty(100), rolled.Available)
	assert.Empty(t, f.stock.movements)
	assert.Empty(t, f.repo.docs)
	assert.Empty(t, f.auditor.entries)
}

func TestAuditFailureDoesNotFailCreate(t *testing.T) {
	f := newFixture(100, 0)
	f.auditor.err = errors.New("audit store down")

	doc := NewAdjustment(f.warehouse, TypeQuantity, "cycle count")
	doc.AddLine(f.product, f.batch.ID, qty(80))

	created, err := f.svc.Create(context.Background(), doc)
	require.NoError(t, err)
	assert.True(t, created.Posted)
	assert.Equal(t, qty(80), f.batch.Available)
}

func TestHistoryReturnsChangeTrail(t *testing.T) {
	f := newFixture(100, 0)

	doc := NewAdjustment(f.warehouse, TypeQuantity, "cycle count")
	doc.AddLine(f.product, f.batch.ID, qty(80))
	created, err := f.svc.Create(context.Background(), doc)
	require.NoError(t, err)

	records, err := f.svc.History(context.Background(), created.ID, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "create", records[0].Action)

	var changes map[string]any
	require.NoError(t, json.Unmarshal(records[0].Changes, &changes))
	assert.Equal(t, "cycle count", changes["reason"])
}

func TestHistoryUnknownAdjustment(t *testing.T) {
	f := newFixture(100, 0)

	_, err := f.svc.History(context.Background(), id.New(), 10)
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}
