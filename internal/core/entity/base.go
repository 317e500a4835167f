package entity

import (
	"context"
	"time"

	"inventra/internal/core/id"
)

// Validatable is implemented by entities that can check their own
// invariants without touching the database.
type Validatable interface {
	Validate(ctx context.Context) error
}

// BaseEntity holds the columns every row shares. TenantID scopes the
// row to a tenant; repositories fill it from request context and every
// query filters by it. Version backs optimistic locking.
type BaseEntity struct {
	ID           id.ID  `db:"id" json:"id"`
	TenantID     string `db:"tenant_id" json:"-"`
	DeletionMark bool   `db:"deletion_mark" json:"deletionMark"`
	Version      int    `db:"version" json:"version"`
}

// NewBaseEntity returns a BaseEntity with a fresh UUIDv7 and version 1.
func NewBaseEntity() BaseEntity {
	return BaseEntity{
		ID:      id.New(),
		Version: 1,
	}
}

// Touch bumps the optimistic-lock version.
func (b *BaseEntity) Touch() {
	b.Version++
}

// BaseDocument adds audit columns to BaseEntity. Documents record who
// created and last changed them; catalogs do not.
type BaseDocument struct {
	BaseEntity

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	CreatedBy string    `db:"created_by" json:"createdBy,omitempty"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}

// NewBaseDocument returns a BaseDocument stamped with the current time.
func NewBaseDocument() BaseDocument {
	now := time.Now().UTC()
	return BaseDocument{
		BaseEntity: NewBaseEntity(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Touch refreshes UpdatedAt and bumps the version.
func (b *BaseDocument) Touch() {
	b.UpdatedAt = time.Now().UTC()
	b.BaseEntity.Touch()
}

// BaseCatalog is the entity base for reference data.
type BaseCatalog struct {
	BaseEntity
}

// NewBaseCatalog returns a BaseCatalog with a fresh ID.
func NewBaseCatalog() BaseCatalog {
	return BaseCatalog{
		BaseEntity: NewBaseEntity(),
	}
}
