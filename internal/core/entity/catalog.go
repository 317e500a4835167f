package entity

import (
	"context"

	"inventra/internal/core/apperror"
)

// Catalog is the base type for reference data such as products,
// warehouses and customers. Codes are unique within a tenant and may
// be generated on first save, so Validate does not require one.
type Catalog struct {
	BaseCatalog

	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	// ParentID links hierarchical catalogs, nil for root entries.
	ParentID *string `db:"parent_id" json:"parentId,omitempty"`

	// IsFolder marks grouping nodes that carry no data themselves.
	IsFolder bool `db:"is_folder" json:"isFolder"`

	// Attributes holds tenant-defined custom fields stored as JSONB.
	Attributes Attributes `db:"attributes" json:"attributes,omitempty"`
}

// NewCatalog creates a Catalog with a generated ID.
func NewCatalog(code, name string) Catalog {
	return Catalog{
		BaseCatalog: NewBaseCatalog(),
		Code:        code,
		Name:        name,
	}
}

// Validate implements Validatable.
func (c *Catalog) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}
