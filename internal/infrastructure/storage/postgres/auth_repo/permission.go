package auth_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"inventra/internal/domain/auth"
	"inventra/internal/infrastructure/storage/postgres"
)

// PermissionRepo implements auth.PermissionRepository. The permission
// catalog is global and read-only, shared by all tenants.
type PermissionRepo struct{}

var _ auth.PermissionRepository = (*PermissionRepo)(nil)

// NewPermissionRepo creates a permission repository.
func NewPermissionRepo() *PermissionRepo {
	return &PermissionRepo{}
}

// List returns the full catalog grouped by resource.
func (r *PermissionRepo) List(ctx context.Context) ([]auth.Permission, error) {
	q := postgres.MustGetTxManager(ctx).GetQuerier(ctx)

	var permissions []auth.Permission
	err := pgxscan.Select(ctx, q, &permissions, `
		SELECT id, code, name, description, resource, action, created_at
		FROM permissions ORDER BY resource, action
	`)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	return permissions, nil
}
