// Package auth_repo provides PostgreSQL implementations for auth repositories.
// All tables are shared across tenants and carry a tenant_id column, so every
// query filters on the tenant resolved from context.
package auth_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/core/tenant"
	"inventra/internal/domain/auth"
	"inventra/internal/infrastructure/storage/postgres"
)

var userCols = []string{
	"id", "email", "password_hash", "first_name", "last_name",
	"is_active", "is_admin", "email_verified", "email_verified_at",
	"last_login_at", "failed_login_attempts", "locked_until",
	"created_at", "updated_at", "deleted_at", "version",
}

// UserRepo implements auth.UserRepository.
type UserRepo struct{}

// NewUserRepo creates a new user repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{}
}

var _ auth.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) querier(ctx context.Context) postgres.Querier {
	return postgres.MustGetTxManager(ctx).GetQuerier(ctx)
}

func (r *UserRepo) builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// baseSelect selects live users of the current tenant.
func (r *UserRepo) baseSelect(ctx context.Context) squirrel.SelectBuilder {
	return r.builder().
		Select(userCols...).
		From("users").
		Where(squirrel.Eq{"tenant_id": tenant.MustGetTenantID(ctx)}).
		Where("deleted_at IS NULL")
}

// Create inserts a new user stamped with the current tenant.
func (r *UserRepo) Create(ctx context.Context, user *auth.User) error {
	const query = `
		INSERT INTO users (
			id, tenant_id, email, password_hash, first_name, last_name,
			is_active, is_admin, email_verified, created_at, updated_at, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.querier(ctx).Exec(ctx, query,
		user.ID, tenant.MustGetTenantID(ctx), user.Email, user.PasswordHash,
		user.FirstName, user.LastName, user.IsActive, user.IsAdmin,
		user.EmailVerified, user.CreatedAt, user.UpdatedAt, user.Version,
	)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, cond squirrel.Eq, ident string) (*auth.User, error) {
	sql, args, err := r.baseSelect(ctx).Where(cond).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var user auth.User
	err = pgxscan.Get(ctx, r.querier(ctx), &user, sql, args...)
	if pgxscan.NotFound(err) {
		return nil, apperror.NewNotFound("user", ident)
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &user, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, userID id.ID) (*auth.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": userID}, userID.String())
}

// GetByEmail retrieves a user by email. Emails are unique per tenant only.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email}, email)
}

// Update saves user state with optimistic locking on version.
func (r *UserRepo) Update(ctx context.Context, user *auth.User) error {
	const query = `
		UPDATE users SET
			first_name = $2,
			last_name = $3,
			is_active = $4,
			is_admin = $5,
			email_verified = $6,
			email_verified_at = $7,
			last_login_at = $8,
			failed_login_attempts = $9,
			locked_until = $10,
			updated_at = now(),
			version = version + 1
		WHERE id = $1 AND tenant_id = $11 AND deleted_at IS NULL AND version = $12`

	result, err := r.querier(ctx).Exec(ctx, query,
		user.ID, user.FirstName, user.LastName, user.IsActive, user.IsAdmin,
		user.EmailVerified, user.EmailVerifiedAt, user.LastLoginAt,
		user.FailedLoginAttempts, user.LockedUntil,
		tenant.MustGetTenantID(ctx), user.Version,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification("user", user.ID)
	}

	user.Version++
	return nil
}

// Delete soft-deletes a user.
func (r *UserRepo) Delete(ctx context.Context, userID id.ID) error {
	const query = `UPDATE users SET deleted_at = now() WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL`

	result, err := r.querier(ctx).Exec(ctx, query, userID, tenant.MustGetTenantID(ctx))
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound("user", userID.String())
	}
	return nil
}

// List retrieves users matching the filter and the total count before
// paging. RoleCode narrows to users holding that role.
func (r *UserRepo) List(ctx context.Context, filter auth.UserFilter) ([]auth.User, int, error) {
	q := r.baseSelect(ctx)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"email": pattern},
			squirrel.ILike{"first_name": pattern},
			squirrel.ILike{"last_name": pattern},
		})
	}
	if filter.IsActive != nil {
		q = q.Where(squirrel.Eq{"is_active": *filter.IsActive})
	}
	if filter.RoleCode != "" {
		q = q.Where(squirrel.Expr(
			`id IN (SELECT ur.user_id FROM user_roles ur JOIN roles ro ON ro.id = ur.role_id WHERE ro.code = ?)`,
			filter.RoleCode,
		))
	}

	countSQL, countArgs, err := r.builder().
		Select("COUNT(*)").
		FromSelect(q, "sub").
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count: %w", err)
	}

	querier := r.querier(ctx)
	var total int
	if err := querier.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	q = q.OrderBy("email ASC")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build query: %w", err)
	}

	var users []auth.User
	if err := pgxscan.Select(ctx, querier, &users, sql, args...); err != nil {
		return nil, 0, fmt.Errorf("query users: %w", err)
	}
	return users, total, nil
}

// LoadRoles loads the user's roles within the current tenant.
func (r *UserRepo) LoadRoles(ctx context.Context, userID id.ID) ([]auth.Role, error) {
	const query = `
		SELECT r.id, r.code, r.name, r.description, r.is_system, r.created_at, r.updated_at
		FROM roles r
		INNER JOIN user_roles ur ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.tenant_id = $2`

	var roles []auth.Role
	if err := pgxscan.Select(ctx, r.querier(ctx), &roles, query, userID, tenant.MustGetTenantID(ctx)); err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	return roles, nil
}

// LoadPermissions loads the user's permission codes flattened across
// roles.
func (r *UserRepo) LoadPermissions(ctx context.Context, userID id.ID) ([]string, error) {
	const query = `
		SELECT DISTINCT p.code
		FROM permissions p
		INNER JOIN role_permissions rp ON p.id = rp.permission_id
		INNER JOIN user_roles ur ON rp.role_id = ur.role_id
		INNER JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND r.tenant_id = $2`

	var permissions []string
	if err := pgxscan.Select(ctx, r.querier(ctx), &permissions, query, userID, tenant.MustGetTenantID(ctx)); err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	return permissions, nil
}

// LoadWarehouses loads the warehouse IDs a user is restricted to.
// An empty result means unrestricted access.
func (r *UserRepo) LoadWarehouses(ctx context.Context, userID id.ID) ([]string, error) {
	const query = `SELECT warehouse_id FROM user_warehouses WHERE user_id = $1 AND tenant_id = $2`

	var warehouseIDs []string
	if err := pgxscan.Select(ctx, r.querier(ctx), &warehouseIDs, query, userID, tenant.MustGetTenantID(ctx)); err != nil {
		return nil, fmt.Errorf("query warehouses: %w", err)
	}
	return warehouseIDs, nil
}

// AssignRole grants a role to the user. Re-granting is a no-op; a zero
// grantedBy (system action) is stored as NULL.
func (r *UserRepo) AssignRole(ctx context.Context, userID, roleID id.ID, grantedBy id.ID) error {
	const query = `
		INSERT INTO user_roles (user_id, role_id, granted_by)
		VALUES ($1, $2, NULLIF($3, '00000000-0000-0000-0000-000000000000'::uuid))
		ON CONFLICT (user_id, role_id) DO NOTHING`

	if _, err := r.querier(ctx).Exec(ctx, query, userID, roleID, grantedBy); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

// RevokeRole removes a role from the user.
func (r *UserRepo) RevokeRole(ctx context.Context, userID, roleID id.ID) error {
	const query = `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`

	if _, err := r.querier(ctx).Exec(ctx, query, userID, roleID); err != nil {
		return fmt.Errorf("revoke role: %w", err)
	}
	return nil
}

// Exists reports whether the email is taken by a live user of this
// tenant.
func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM users WHERE email = $1 AND tenant_id = $2 AND deleted_at IS NULL)`

	var exists bool
	if err := r.querier(ctx).QueryRow(ctx, query, email, tenant.MustGetTenantID(ctx)).Scan(&exists); err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	return exists, nil
}
