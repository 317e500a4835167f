// Package product provides the Product catalog.
// Products are the sellable goods tracked by the stock ledger.
package product

import (
	"context"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/types"
)

// Unit is the unit of measure for product quantities.
type Unit string

const (
	UnitPiece Unit = "pcs"
	UnitBox   Unit = "box"
	UnitKg    Unit = "kg"
	UnitLitre Unit = "l"
	UnitMetre Unit = "m"
)

// Product represents a sellable good.
type Product struct {
	entity.Catalog

	// SKU is the stock keeping unit, unique within tenant
	SKU *string `db:"sku" json:"sku,omitempty"`

	// Barcode (EAN-13, etc.)
	Barcode *string `db:"barcode" json:"barcode,omitempty"`

	// Unit of measure
	Unit Unit `db:"unit" json:"unit"`

	// SalePrice is the default selling price per unit
	SalePrice types.Money `db:"sale_price" json:"salePrice"`

	// TotalStock is the denormalized on-hand total across all warehouses.
	// Maintained by the stock ledger, never written directly.
	TotalStock types.Quantity `db:"total_stock" json:"totalStock"`

	// MinStock is the reorder threshold for the low stock report
	MinStock types.Quantity `db:"min_stock" json:"minStock"`

	// Description is a detailed description
	Description *string `db:"description" json:"description,omitempty"`

	// Active products can appear on new documents
	Active bool `db:"active" json:"active"`
}

// NewProduct creates a new Product with required fields.
func NewProduct(code, name string, unit Unit) *Product {
	return &Product{
		Catalog: entity.NewCatalog(code, name),
		Unit:    unit,
		Active:  true,
	}
}

// Validate implements entity.Validatable interface.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidUnit(p.Unit) {
		return apperror.NewValidation("invalid unit of measure").
			WithDetail("field", "unit").
			WithDetail("value", string(p.Unit))
	}

	if p.SalePrice.IsNegative() {
		return apperror.NewValidation("sale price cannot be negative").
			WithDetail("field", "salePrice")
	}

	if p.MinStock.IsNegative() {
		return apperror.NewValidation("minimum stock cannot be negative").
			WithDetail("field", "minStock")
	}

	return nil
}

// IsLowStock reports whether on-hand stock is at or below the threshold.
func (p *Product) IsLowStock() bool {
	return p.MinStock.IsPositive() && p.TotalStock <= p.MinStock
}

func isValidUnit(u Unit) bool {
	switch u {
	case UnitPiece, UnitBox, UnitKg, UnitLitre, UnitMetre:
		return true
	}
	return false
}
