package tenant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"inventra/internal/core/tx"
)

type (
	poolCtxKey   struct{}
	txmCtxKey    struct{}
	tenantCtxKey struct{}
)

var (
	ErrNoPoolInContext = errors.New("database pool not found in context")
	ErrNoTxManager     = errors.New("transaction manager not found in context")
)

// WithPool stores the shared database pool in context.
func WithPool(ctx context.Context, pool *pgxpool.Pool) context.Context {
	return context.WithValue(ctx, poolCtxKey{}, pool)
}

// GetPool retrieves the database pool from context.
func GetPool(ctx context.Context) (*pgxpool.Pool, error) {
	pool, ok := ctx.Value(poolCtxKey{}).(*pgxpool.Pool)
	if !ok || pool == nil {
		return nil, ErrNoPoolInContext
	}
	return pool, nil
}

// MustGetPool retrieves the pool or panics. A missing pool below the
// tenant middleware is a programming error.
func MustGetPool(ctx context.Context) *pgxpool.Pool {
	pool, err := GetPool(ctx)
	if err != nil {
		panic("database pool not in context: " + err.Error())
	}
	return pool
}

// WithTxManager stores the transaction manager in context.
func WithTxManager(ctx context.Context, txm tx.Manager) context.Context {
	return context.WithValue(ctx, txmCtxKey{}, txm)
}

// GetTxManager retrieves the transaction manager from context.
func GetTxManager(ctx context.Context) (tx.Manager, error) {
	txm, ok := ctx.Value(txmCtxKey{}).(tx.Manager)
	if !ok || txm == nil {
		return nil, ErrNoTxManager
	}
	return txm, nil
}

// MustGetTxManager retrieves the transaction manager or panics.
func MustGetTxManager(ctx context.Context) tx.Manager {
	txm, err := GetTxManager(ctx)
	if err != nil {
		panic("TxManager not in context: " + err.Error())
	}
	return txm
}

// WithTenant stores the resolved tenant in context. Middleware resolves
// it once per request from the JWT tenant claim and every layer below
// reads it from here.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantCtxKey{}, t)
}

// GetTenant retrieves the tenant from context, nil when absent.
func GetTenant(ctx context.Context) *Tenant {
	t, _ := ctx.Value(tenantCtxKey{}).(*Tenant)
	return t
}

// GetTenantID returns the tenant ID or an empty string.
func GetTenantID(ctx context.Context) string {
	if t := GetTenant(ctx); t != nil {
		return t.ID
	}
	return ""
}

// MustGetTenantID returns the tenant ID or panics. Repositories use it,
// writing a row without tenant scope is a programming error.
func MustGetTenantID(ctx context.Context) string {
	tid := GetTenantID(ctx)
	if tid == "" {
		panic("tenant not in context")
	}
	return tid
}
