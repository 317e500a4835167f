// Package audit stamps authorship fields on documents from the request
// context.
package audit

import (
	"context"

	"inventra/internal/core/security"
)

// EnrichCreatedByDirect fills CreatedBy and UpdatedBy before the first
// insert. A context without a user leaves both untouched.
func EnrichCreatedByDirect(ctx context.Context, createdBy, updatedBy *string) {
	userID := security.GetUserID(ctx)
	if userID == "" {
		return
	}
	if createdBy != nil {
		*createdBy = userID
	}
	if updatedBy != nil {
		*updatedBy = userID
	}
}

// EnrichUpdatedByDirect fills UpdatedBy before an update.
func EnrichUpdatedByDirect(ctx context.Context, updatedBy *string) {
	userID := security.GetUserID(ctx)
	if userID != "" && updatedBy != nil {
		*updatedBy = userID
	}
}
