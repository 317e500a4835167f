// Package auth provides authentication and authorization domain logic.
package auth

import (
	"context"

	"inventra/internal/core/id"
)

// UserRepository stores users and their role and warehouse grants.
// Lookups by email are tenant scoped.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, userID id.ID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Update(ctx context.Context, user *User) error

	// Delete soft-deletes a user.
	Delete(ctx context.Context, userID id.ID) error

	// List returns matching users and the total count before paging.
	List(ctx context.Context, filter UserFilter) ([]User, int, error)

	LoadRoles(ctx context.Context, userID id.ID) ([]Role, error)

	// LoadPermissions returns permission codes flattened from the
	// user's roles.
	LoadPermissions(ctx context.Context, userID id.ID) ([]string, error)

	// LoadWarehouses loads IDs of warehouses the user may operate on.
	// An empty result means unrestricted access.
	LoadWarehouses(ctx context.Context, userID id.ID) ([]string, error)

	AssignRole(ctx context.Context, userID, roleID id.ID, grantedBy id.ID) error
	RevokeRole(ctx context.Context, userID, roleID id.ID) error

	// Exists reports whether the email is already taken in this tenant.
	Exists(ctx context.Context, email string) (bool, error)
}

// RoleRepository stores roles and their permission grants.
type RoleRepository interface {
	Create(ctx context.Context, role *Role) error
	GetByID(ctx context.Context, roleID id.ID) (*Role, error)
	GetByCode(ctx context.Context, code string) (*Role, error)
	Update(ctx context.Context, role *Role) error

	// Delete removes a role. System roles are refused.
	Delete(ctx context.Context, roleID id.ID) error

	List(ctx context.Context) ([]Role, error)
	LoadPermissions(ctx context.Context, roleID id.ID) ([]Permission, error)
	AssignPermission(ctx context.Context, roleID, permissionID id.ID) error
	RevokePermission(ctx context.Context, roleID, permissionID id.ID) error
}

// PermissionRepository reads the permission catalog. Permissions are
// seeded by migrations, never written at runtime.
type PermissionRepository interface {
	List(ctx context.Context) ([]Permission, error)
}

// TokenRepository stores refresh tokens keyed by hash.
type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenID id.ID, reason string) error

	// RevokeAllUserTokens revokes every live token of a user.
	RevokeAllUserTokens(ctx context.Context, userID id.ID, reason string) error

	// CleanupExpiredTokens removes expired and long-revoked tokens,
	// returning the number deleted.
	CleanupExpiredTokens(ctx context.Context) (int, error)
}

// UserFilter narrows a user listing.
type UserFilter struct {
	Search   string
	IsActive *bool
	RoleCode string
	Limit    int
	Offset   int
}
