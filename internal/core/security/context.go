// Package security carries the authenticated user identity through
// request contexts.
package security

import "context"

type userIDKey struct{}

// WithUserID stores the authenticated user's ID. The auth middleware
// calls this once per request.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// GetUserID returns the authenticated user's ID, or "" for anonymous
// and background contexts. Callers stamping CreatedBy/UpdatedBy must
// tolerate the empty value.
func GetUserID(ctx context.Context) string {
	if uid, ok := ctx.Value(userIDKey{}).(string); ok {
		return uid
	}
	return ""
}
