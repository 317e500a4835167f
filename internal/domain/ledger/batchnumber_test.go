package ledger

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventra/internal/core/id"
	"inventra/internal/core/numerator"
	"inventra/internal/core/types"
)

type fakeWarehouses struct {
	codes map[id.ID]string
}

func (w *fakeWarehouses) GetCode(ctx context.Context, warehouseID id.ID) (string, error) {
	code, ok := w.codes[warehouseID]
	if !ok {
		return "", fmt.Errorf("warehouse %s not found", warehouseID)
	}
	return code, nil
}

func TestBatchNumberFormat(t *testing.T) {
	repo := newFakeRepo()
	warehouse := id.New()

	serial := int64(0)
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			serial++
			return fmt.Sprintf("%s-%s-%05d", cfg.Prefix, period.Format("2006"), serial), nil
		},
	}

	numbers := NewBatchNumberGenerator(gen, &fakeWarehouses{codes: map[id.ID]string{warehouse: "WH3"}}, repo)

	number, err := numbers.Next(context.Background(), warehouse)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("WH3-B-%d-00001", time.Now().UTC().Year()), number)
}

func TestBatchNumbersAreDistinct(t *testing.T) {
	repo := newFakeRepo()
	warehouse := id.New()

	serial := int64(0)
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			serial++
			return fmt.Sprintf("%s-%05d", cfg.Prefix, serial), nil
		},
	}

	numbers := NewBatchNumberGenerator(gen, &fakeWarehouses{codes: map[id.ID]string{warehouse: "WH1"}}, repo)

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		number, err := numbers.Next(context.Background(), warehouse)
		require.NoError(t, err)
		require.False(t, seen[number], "duplicate batch number %s", number)
		seen[number] = true

		// Register the number as taken, as creating the batch would.
		repo.addBatch(NewStockBatch(number, id.New(), warehouse, qty(1), types.NewMoney(1)))
	}
}

func TestBatchNumberSkipsCollisions(t *testing.T) {
	repo := newFakeRepo()
	warehouse := id.New()

	// An imported batch already holds the first generated number.
	repo.addBatch(NewStockBatch("WH1-B-00001", id.New(), warehouse, qty(1), types.NewMoney(1)))

	serial := int64(0)
	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			serial++
			return fmt.Sprintf("%s-%05d", cfg.Prefix, serial), nil
		},
	}

	numbers := NewBatchNumberGenerator(gen, &fakeWarehouses{codes: map[id.ID]string{warehouse: "WH1"}}, repo)

	number, err := numbers.Next(context.Background(), warehouse)
	require.NoError(t, err)
	assert.Equal(t, "WH1-B-00002", number)
}

func TestBatchNumberGivesUpAfterBoundedRetries(t *testing.T) {
	repo := newFakeRepo()
	warehouse := id.New()

	gen := &numerator.MockGenerator{
		GetNextNumberFunc: func(ctx context.Context, cfg numerator.Config, opts *numerator.Options, period time.Time) (string, error) {
			return "WH1-B-STUCK", nil
		},
	}
	repo.addBatch(NewStockBatch("WH1-B-STUCK", id.New(), warehouse, qty(1), types.NewMoney(1)))

	numbers := NewBatchNumberGenerator(gen, &fakeWarehouses{codes: map[id.ID]string{warehouse: "WH1"}}, repo)

	_, err := numbers.Next(context.Background(), warehouse)
	require.Error(t, err)
}
