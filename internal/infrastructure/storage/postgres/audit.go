// Package postgres provides PostgreSQL infrastructure components.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	appctx "inventra/internal/core/context"
	"inventra/internal/core/id"
	"inventra/internal/core/security"
	"inventra/internal/core/tenant"
	"inventra/internal/domain/audit"
)

// AuditAction is the kind of change an audit row records.
type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
)

// CompressionAlgo names the codec applied to an audit payload.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one row of sys_audit. Payloads over the threshold are
// stored zstd-compressed in ChangesCompressed with Changes left NULL.
type AuditEntry struct {
	ID                id.ID           `db:"id"`
	TenantID          string          `db:"tenant_id"`
	EntityType        string          `db:"entity_type"`
	EntityID          id.ID           `db:"entity_id"`
	Action            AuditAction     `db:"action"`
	UserID            string          `db:"user_id"`
	UserEmail         string          `db:"user_email"`
	Changes           json.RawMessage `db:"changes"`
	ChangesCompressed []byte          `db:"changes_compressed"`
	CompressionAlgo   CompressionAlgo `db:"compression_algo"`
	Metadata          json.RawMessage `db:"metadata"`
	CreatedAt         time.Time       `db:"created_at"`
}

// AuditService writes and reads the audit trail. A single encoder and
// decoder pair is shared; both are safe for concurrent use via
// EncodeAll and DecodeAll.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int
}

// NewAuditService creates the audit store with a 10KB compression
// threshold.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

const insertAuditSQL = `
	INSERT INTO sys_audit (
		id, tenant_id, entity_type, entity_id, action, user_id, user_email,
		changes, changes_compressed, compression_algo, metadata, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

// Log records an audit entry, filling tenant, user, ID and timestamp
// from context where the caller left them empty.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	entry.TenantID = tenant.MustGetTenantID(ctx)

	if entry.UserID == "" {
		entry.UserID = security.GetUserID(ctx)
	}
	if entry.UserEmail == "" {
		if user := appctx.GetUser(ctx); user != nil {
			entry.UserEmail = user.Email
		}
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	entry.CompressionAlgo = CompressionNone
	if len(entry.Changes) > s.compressThreshold {
		entry.ChangesCompressed = s.encoder.EncodeAll(entry.Changes, nil)
		entry.Changes = nil
		entry.CompressionAlgo = CompressionZstd
	}

	_, err := s.txManager.GetQuerier(ctx).Exec(ctx, insertAuditSQL,
		entry.ID, entry.TenantID, entry.EntityType, entry.EntityID, entry.Action,
		entry.UserID, entry.UserEmail,
		entry.Changes, entry.ChangesCompressed, entry.CompressionAlgo,
		entry.Metadata, entry.CreatedAt,
	)
	return err
}

// LogChange records an entity change as a JSON map. The string action
// form satisfies the domain ChangeLogger contracts.
func (s *AuditService) LogChange(
	ctx context.Context,
	entityType string,
	entityID id.ID,
	action string,
	changes map[string]any,
) error {
	changesJSON, err := json.Marshal(changes)
	if err != nil {
		return fmt.Errorf("marshal changes: %w", err)
	}

	return s.Log(ctx, AuditEntry{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     AuditAction(action),
		Changes:    changesJSON,
	})
}

const entityHistorySQL = `
	SELECT id, action, user_id, user_email, changes, changes_compressed, compression_algo, created_at
	FROM sys_audit
	WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
	ORDER BY created_at DESC
	LIMIT $4`

// EntityHistory returns an entity's audit trail, newest first, with
// compressed payloads inflated.
func (s *AuditService) EntityHistory(
	ctx context.Context,
	entityType string,
	entityID id.ID,
	limit int,
) ([]audit.ChangeRecord, error) {
	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, entityHistorySQL,
		tenant.MustGetTenantID(ctx), entityType, entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []audit.ChangeRecord
	for rows.Next() {
		var (
			rec        audit.ChangeRecord
			compressed []byte
			algo       CompressionAlgo
		)
		if err := rows.Scan(&rec.ID, &rec.Action, &rec.UserID, &rec.UserEmail,
			&rec.Changes, &compressed, &algo, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}

		if algo == CompressionZstd && len(compressed) > 0 {
			inflated, err := s.decoder.DecodeAll(compressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress changes: %w", err)
			}
			rec.Changes = inflated
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
