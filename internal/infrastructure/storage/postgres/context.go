package postgres

import (
	"context"
	"fmt"

	"inventra/internal/core/tenant"
)

// MustGetTxManager pulls the concrete *TxManager out of the request
// context for infrastructure code that needs GetQuerier or GetTx.
// Domain code depends on internal/core/tx.Manager instead.
func MustGetTxManager(ctx context.Context) *TxManager {
	txm := tenant.MustGetTxManager(ctx)
	pgTxm, ok := txm.(*TxManager)
	if !ok || pgTxm == nil {
		panic(fmt.Sprintf("TxManager in context has unexpected type: %T", txm))
	}
	return pgTxm
}
