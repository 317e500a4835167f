package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventra/internal/core/apperror"
	"inventra/internal/core/tenant"
)

type fakeRepo struct {
	metricsFilter *InventoryMetricsFilter
	debtorsFilter *DebtorsFilter
}

func (f *fakeRepo) GetInventoryMetrics(ctx context.Context, filter InventoryMetricsFilter) (*InventoryMetricsReport, error) {
	f.metricsFilter = &filter
	return &InventoryMetricsReport{FromDate: filter.FromDate, ToDate: filter.ToDate}, nil
}

func (f *fakeRepo) GetDebtors(ctx context.Context, filter DebtorsFilter) (*DebtorsReport, error) {
	f.debtorsFilter = &filter
	return &DebtorsReport{}, nil
}

type fakeTxManager struct {
	readOnlyCalls int
	writeCalls    int
}

func (m *fakeTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.writeCalls++
	return fn(ctx)
}

func (m *fakeTxManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	m.readOnlyCalls++
	return fn(ctx)
}

func newFixture() (*Service, *fakeRepo, *fakeTxManager, context.Context) {
	repo := &fakeRepo{}
	txm := &fakeTxManager{}
	ctx := tenant.WithTxManager(context.Background(), txm)
	return NewService(repo), repo, txm, ctx
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestInventoryMetricsNormalizesPeriod(t *testing.T) {
	svc, repo, txm, ctx := newFixture()

	report, err := svc.GetInventoryMetrics(ctx, InventoryMetricsFilter{
		FromDate: time.Date(2026, 3, 1, 14, 30, 0, 0, time.UTC),
		ToDate:   time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotNil(t, report)

	require.NotNil(t, repo.metricsFilter)
	assert.Equal(t, day(2026, 3, 1), repo.metricsFilter.FromDate)
	assert.Equal(t, day(2026, 3, 11), repo.metricsFilter.ToDate, "upper bound is exclusive start of the next day")
	assert.Equal(t, 100, repo.metricsFilter.Limit)
	assert.Equal(t, 1, txm.readOnlyCalls, "report runs in a read-only transaction")
	assert.Zero(t, txm.writeCalls)
}

func TestInventoryMetricsSameDayCoversWholeDay(t *testing.T) {
	svc, repo, _, ctx := newFixture()

	_, err := svc.GetInventoryMetrics(ctx, InventoryMetricsFilter{
		FromDate: day(2026, 3, 5),
		ToDate:   day(2026, 3, 5),
	})
	require.NoError(t, err)

	assert.Equal(t, day(2026, 3, 5), repo.metricsFilter.FromDate)
	assert.Equal(t, day(2026, 3, 6), repo.metricsFilter.ToDate)
}

func TestInventoryMetricsValidatesPeriod(t *testing.T) {
	svc, _, _, ctx := newFixture()

	_, err := svc.GetInventoryMetrics(ctx, InventoryMetricsFilter{ToDate: day(2026, 3, 1)})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)

	_, err = svc.GetInventoryMetrics(ctx, InventoryMetricsFilter{
		FromDate: day(2026, 3, 10),
		ToDate:   day(2026, 3, 1),
	})
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestInventoryMetricsClampsLimit(t *testing.T) {
	svc, repo, _, ctx := newFixture()

	_, err := svc.GetInventoryMetrics(ctx, InventoryMetricsFilter{
		FromDate: day(2026, 1, 1),
		ToDate:   day(2026, 1, 31),
		Limit:    5000,
	})
	require.NoError(t, err)
	assert.Equal(t, 1000, repo.metricsFilter.Limit)
}

func TestDebtorsDefaultsAndReadOnly(t *testing.T) {
	svc, repo, txm, ctx := newFixture()

	report, err := svc.GetDebtors(ctx, DebtorsFilter{})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, 100, repo.debtorsFilter.Limit)
	assert.Equal(t, 1, txm.readOnlyCalls)
}

type writeOnlyTxManager struct {
	writeCalls int
}

func (m *writeOnlyTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.writeCalls++
	return fn(ctx)
}

func TestReportsFallBackWithoutReadOnlySupport(t *testing.T) {
	repo := &fakeRepo{}
	txm := &writeOnlyTxManager{}
	ctx := tenant.WithTxManager(context.Background(), txm)

	_, err := NewService(repo).GetDebtors(ctx, DebtorsFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, txm.writeCalls)
}

func TestReportsRequireTxManager(t *testing.T) {
	svc, _, _, _ := newFixture()

	_, err := svc.GetDebtors(context.Background(), DebtorsFilter{})
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInternal, appErr.Code)
}
