package audit

import (
	"encoding/json"
	"time"

	"inventra/internal/core/id"
)

// ChangeRecord is one entry of an entity's audit trail, payload already
// decompressed.
type ChangeRecord struct {
	ID        id.ID
	Action    string
	UserID    string
	UserEmail string
	Changes   json.RawMessage
	CreatedAt time.Time
}
