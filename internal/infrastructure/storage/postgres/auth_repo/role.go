package auth_repo

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/core/tenant"
	"inventra/internal/domain/auth"
	"inventra/internal/infrastructure/storage/postgres"
)

const roleCols = "id, code, name, description, is_system, created_at, updated_at"

// RoleRepo implements auth.RoleRepository. Roles belong to a tenant,
// the permission catalog is global.
type RoleRepo struct{}

// NewRoleRepo creates a new role repository.
func NewRoleRepo() *RoleRepo {
	return &RoleRepo{}
}

var _ auth.RoleRepository = (*RoleRepo)(nil)

func (r *RoleRepo) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

// Create inserts a new role stamped with the current tenant.
func (r *RoleRepo) Create(ctx context.Context, role *auth.Role) error {
	const query = `
		INSERT INTO roles (id, tenant_id, code, name, description, is_system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.querier(ctx).Exec(ctx, query,
		role.ID, tenant.MustGetTenantID(ctx), role.Code, role.Name,
		role.Description, role.IsSystem, role.CreatedAt, role.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert role: %w", err)
	}
	return nil
}

func (r *RoleRepo) getOne(ctx context.Context, cond string, arg any, ident string) (*auth.Role, error) {
	query := fmt.Sprintf("SELECT %s FROM roles WHERE %s = $1 AND tenant_id = $2", roleCols, cond)

	var role auth.Role
	err := pgxscan.Get(ctx, r.querier(ctx), &role, query, arg, tenant.MustGetTenantID(ctx))
	if pgxscan.NotFound(err) {
		return nil, apperror.NewNotFound("role", ident)
	}
	if err != nil {
		return nil, fmt.Errorf("query role: %w", err)
	}
	return &role, nil
}

// GetByID retrieves a role by ID.
func (r *RoleRepo) GetByID(ctx context.Context, roleID id.ID) (*auth.Role, error) {
	return r.getOne(ctx, "id", roleID, roleID.String())
}

// GetByCode retrieves a role by code. Codes are unique per tenant.
func (r *RoleRepo) GetByCode(ctx context.Context, code string) (*auth.Role, error) {
	return r.getOne(ctx, "code", code, code)
}

// Update saves the mutable role fields. Code and is_system are fixed
// at creation.
func (r *RoleRepo) Update(ctx context.Context, role *auth.Role) error {
	const query = `
		UPDATE roles SET name = $2, description = $3, updated_at = now()
		WHERE id = $1 AND tenant_id = $4`

	_, err := r.querier(ctx).Exec(ctx, query, role.ID, role.Name, role.Description, tenant.MustGetTenantID(ctx))
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	return nil
}

// Delete removes a non-system role.
func (r *RoleRepo) Delete(ctx context.Context, roleID id.ID) error {
	const query = `DELETE FROM roles WHERE id = $1 AND tenant_id = $2 AND is_system = false`

	result, err := r.querier(ctx).Exec(ctx, query, roleID, tenant.MustGetTenantID(ctx))
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewBusinessRule("CANNOT_DELETE_SYSTEM_ROLE", "Cannot delete system role")
	}
	return nil
}

// List retrieves the tenant's roles ordered by name.
func (r *RoleRepo) List(ctx context.Context) ([]auth.Role, error) {
	query := fmt.Sprintf("SELECT %s FROM roles WHERE tenant_id = $1 ORDER BY name", roleCols)

	var roles []auth.Role
	if err := pgxscan.Select(ctx, r.querier(ctx), &roles, query, tenant.MustGetTenantID(ctx)); err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	return roles, nil
}

// LoadPermissions loads the role's permissions.
func (r *RoleRepo) LoadPermissions(ctx context.Context, roleID id.ID) ([]auth.Permission, error) {
	const query = `
		SELECT p.id, p.code, p.name, p.description, p.resource, p.action, p.created_at
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		WHERE rp.role_id = $1`

	var permissions []auth.Permission
	if err := pgxscan.Select(ctx, r.querier(ctx), &permissions, query, roleID); err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	return permissions, nil
}

// AssignPermission grants a permission to the role. Re-granting is a
// no-op.
func (r *RoleRepo) AssignPermission(ctx context.Context, roleID, permissionID id.ID) error {
	const query = `
		INSERT INTO role_permissions (role_id, permission_id, created_at)
		VALUES ($1, $2, now())
		ON CONFLICT (role_id, permission_id) DO NOTHING`

	if _, err := r.querier(ctx).Exec(ctx, query, roleID, permissionID); err != nil {
		return fmt.Errorf("assign permission: %w", err)
	}
	return nil
}

// RevokePermission removes a permission from the role.
func (r *RoleRepo) RevokePermission(ctx context.Context, roleID, permissionID id.ID) error {
	const query = `DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2`

	if _, err := r.querier(ctx).Exec(ctx, query, roleID, permissionID); err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	return nil
}
