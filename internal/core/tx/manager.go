// Package tx abstracts database transaction boundaries so domain
// services never import a driver. The Postgres implementation lives in
// infrastructure/storage/postgres.
package tx

import "context"

// Manager runs work inside a transaction.
type Manager interface {
	// RunInTransaction commits when fn returns nil and rolls back
	// otherwise. Calls made while a transaction is already in the
	// context join it instead of opening a new one.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyManager adds read-only transactions for report and query
// paths. Writes inside fn fail at the database.
type ReadOnlyManager interface {
	Manager

	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}
