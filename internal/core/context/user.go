// Package context carries the authenticated caller through a request.
package context

import (
	"context"
)

// UserContext is the identity the auth middleware resolves from an
// access token. Warehouse grants restrict stock operations; an empty
// WarehouseIDs slice means the user may operate on any warehouse.
type UserContext struct {
	UserID       string
	TenantID     string
	Email        string
	Roles        []string
	Permissions  []string
	WarehouseIDs []string
	IsAdmin      bool
}

type userContextKey struct{}

// WithUser returns a context carrying the given user.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns the current user, or nil when the request is
// unauthenticated.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns the current user's ID, or "" when unauthenticated.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole reports whether the current user holds the given role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasWarehouseAccess reports whether the current user may operate on
// the given warehouse. Admins and users without warehouse grants are
// unrestricted. Unauthenticated contexts (background jobs, internal
// calls) pass as well; endpoint authentication is the middleware's job.
func HasWarehouseAccess(ctx context.Context, warehouseID string) bool {
	u := GetUser(ctx)
	if u == nil || u.IsAdmin || len(u.WarehouseIDs) == 0 {
		return true
	}
	for _, id := range u.WarehouseIDs {
		if id == warehouseID {
			return true
		}
	}
	return false
}
