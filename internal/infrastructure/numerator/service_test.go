package numerator

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "inventra/internal/core/numerator"
	"inventra/internal/core/tenant"
)

// fakeRow feeds a canned counter value into Scan.
type fakeRow struct {
	val int64
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) > 0 {
		if p, ok := dest[0].(*int64); ok {
			*p = r.val
		}
	}
	return nil
}

// fakeQuerier simulates the sys_sequences upsert: every call advances the
// per-key counter by the requested increment.
type fakeQuerier struct {
	counters map[string]int64
	calls    int
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{counters: make(map[string]int64)}
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.calls++
	// args: tenant_id, key, [value]
	key := args[0].(string) + ":" + args[1].(string)
	switch {
	case strings.Contains(sql, "current_val + $3"):
		q.counters[key] += args[2].(int64)
	case strings.Contains(sql, "current_val = $3"):
		q.counters[key] = args[2].(int64)
	default:
		q.counters[key]++
	}
	return fakeRow{val: q.counters[key]}
}

func testCtx() context.Context {
	return tenant.WithTenant(context.Background(), &tenant.Tenant{ID: "tenant-1"})
}

func TestService_GetNextNumber_Strict(t *testing.T) {
	q := newFakeQuerier()
	svc := NewWithQuerier(q)

	cfg := corenumerator.DefaultConfig("INV")
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	first, err := svc.GetNextNumber(testCtx(), cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00001", first)

	second, err := svc.GetNextNumber(testCtx(), cfg, nil, period)
	require.NoError(t, err)
	assert.Equal(t, "INV-2026-00002", second)

	// Strict hits the database on every call.
	assert.Equal(t, 2, q.calls)
}

func TestService_GetNextNumber_Cached(t *testing.T) {
	q := newFakeQuerier()
	svc := NewWithQuerier(q)

	cfg := corenumerator.DefaultConfig("SO")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 3}
	period := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

	for i, want := range []string{"SO-2026-00001", "SO-2026-00002", "SO-2026-00003", "SO-2026-00004"} {
		got, err := svc.GetNextNumber(testCtx(), cfg, opts, period)
		require.NoError(t, err, "call %d", i+1)
		assert.Equal(t, want, got)
	}

	// Three numbers per range, so four numbers need two refills.
	assert.Equal(t, 2, q.calls)
}

func TestService_GetNextNumber_MonthlyReset(t *testing.T) {
	q := newFakeQuerier()
	svc := NewWithQuerier(q)

	cfg := corenumerator.Config{Prefix: "ADJ", IncludeYear: true, PadWidth: 5, ResetPeriod: "month"}

	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	april := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	n1, err := svc.GetNextNumber(testCtx(), cfg, nil, march)
	require.NoError(t, err)
	n2, err := svc.GetNextNumber(testCtx(), cfg, nil, april)
	require.NoError(t, err)

	// Each month starts its own sequence.
	assert.Equal(t, "ADJ-2026-00001", n1)
	assert.Equal(t, "ADJ-2026-00001", n2)
}

func TestService_SetNextNumber_InvalidatesCache(t *testing.T) {
	q := newFakeQuerier()
	svc := NewWithQuerier(q)

	cfg := corenumerator.DefaultConfig("PO")
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}
	period := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

	_, err := svc.GetNextNumber(testCtx(), cfg, opts, period)
	require.NoError(t, err)

	require.NoError(t, svc.SetNextNumber(testCtx(), cfg, period, 100))

	got, err := svc.GetNextNumber(testCtx(), cfg, opts, period)
	require.NoError(t, err)
	// The stale in-memory range must not survive a manual reset.
	assert.Equal(t, "PO-2026-00101", got)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, int64(42), ParseNumber("INV-2026-00042"))
	assert.Equal(t, int64(7), ParseNumber("ADJ-00007"))
	assert.Equal(t, int64(-1), ParseNumber("garbage"))
}
