package ledger

import (
	"context"
	"fmt"
	"time"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/core/numerator"
)

// maxNumberAttempts bounds the uniqueness retry loop. The sequence itself is
// monotonic per tenant, so collisions only occur with externally imported
// batch numbers.
const maxNumberAttempts = 5

// WarehouseResolver supplies the warehouse code used as the number prefix.
type WarehouseResolver interface {
	GetCode(ctx context.Context, warehouseID id.ID) (string, error)
}

// BatchNumberGenerator produces unique batch numbers.
//
// Format: <warehouse code>-B-<year>-<serial>, e.g. WH3-B-2026-00041.
// The serial comes from the tenant-scoped sequence service, and uniqueness
// is re-checked against existing batches with a bounded retry.
type BatchNumberGenerator struct {
	generator  numerator.Generator
	warehouses WarehouseResolver
	repo       Repository
}

// NewBatchNumberGenerator creates a batch number generator.
func NewBatchNumberGenerator(generator numerator.Generator, warehouses WarehouseResolver, repo Repository) *BatchNumberGenerator {
	return &BatchNumberGenerator{
		generator:  generator,
		warehouses: warehouses,
		repo:       repo,
	}
}

// Next returns the next unique batch number for a warehouse.
func (g *BatchNumberGenerator) Next(ctx context.Context, warehouseID id.ID) (string, error) {
	code, err := g.warehouses.GetCode(ctx, warehouseID)
	if err != nil {
		return "", fmt.Errorf("resolve warehouse code: %w", err)
	}

	cfg := numerator.DefaultConfig(code + "-B")

	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := g.generator.GetNextNumber(ctx, cfg, numerator.DefaultOptions(), time.Now().UTC())
		if err != nil {
			return "", fmt.Errorf("next batch number: %w", err)
		}

		exists, err := g.repo.BatchNumberExists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("check batch number: %w", err)
		}
		if !exists {
			return number, nil
		}
	}

	return "", apperror.NewConflict("could not generate a unique batch number").
		WithDetail("warehouse_id", warehouseID.String()).
		WithDetail("attempts", maxNumberAttempts)
}
