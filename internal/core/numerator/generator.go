// Package numerator defines the contract for sequential document and
// batch numbering. The Postgres-backed implementation lives under
// internal/infrastructure/numerator.
package numerator

import (
	"context"
	"time"
)

// Generator hands out document numbers such as INV-2026-00001.
// Sequences are scoped to the tenant, so a number is only unique
// within one tenant.
type Generator interface {
	// GetNextNumber returns the next number for the sequence selected
	// by cfg and period, formatted per cfg. The strategy in opts picks
	// between a round trip per number and a cached block.
	GetNextNumber(ctx context.Context, cfg Config, opts *Options, period time.Time) (string, error)

	// SetNextNumber moves a sequence's counter, e.g. when importing
	// documents numbered elsewhere.
	SetNextNumber(ctx context.Context, cfg Config, period time.Time, value int64) error
}
