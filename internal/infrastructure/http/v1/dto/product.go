package dto

import (
	"inventra/internal/core/entity"
	"inventra/internal/core/types"
	"inventra/internal/domain/catalogs/product"
)

// --- Request DTOs ---

// CreateProductRequest is the request body for creating a product.
type CreateProductRequest struct {
	Code        string            `json:"code"`
	Name        string            `json:"name" binding:"required"`
	SKU         *string           `json:"sku"`
	Barcode     *string           `json:"barcode"`
	Unit        product.Unit      `json:"unit" binding:"required"`
	SalePrice   types.Money       `json:"salePrice"`
	MinStock    types.Quantity    `json:"minStock"`
	Description *string           `json:"description"`
	Active      bool              `json:"active"`
	ParentID    *string           `json:"parentId"`
	IsFolder    bool              `json:"isFolder"`
	Attributes  entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateProductRequest) ToEntity() *product.Product {
	p := product.NewProduct(r.Code, r.Name, r.Unit)
	p.SKU = r.SKU
	p.Barcode = r.Barcode
	p.SalePrice = r.SalePrice
	p.MinStock = r.MinStock
	p.Description = r.Description
	p.Active = r.Active
	p.ParentID = r.ParentID
	p.IsFolder = r.IsFolder
	p.Attributes = r.Attributes
	return p
}

// UpdateProductRequest is the request body for updating a product.
type UpdateProductRequest struct {
	Code        string            `json:"code"`
	Name        string            `json:"name" binding:"required"`
	SKU         *string           `json:"sku"`
	Barcode     *string           `json:"barcode"`
	Unit        product.Unit      `json:"unit" binding:"required"`
	SalePrice   types.Money       `json:"salePrice"`
	MinStock    types.Quantity    `json:"minStock"`
	Description *string           `json:"description,omitempty"`
	Active      bool              `json:"active"`
	ParentID    *string           `json:"parentId,omitempty"`
	IsFolder    bool              `json:"isFolder"`
	Attributes  entity.Attributes `json:"attributes"`
	Version     int               `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
// TotalStock is ledger-owned and never accepted from the client.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	p.Code = r.Code
	p.Name = r.Name
	p.SKU = r.SKU
	p.Barcode = r.Barcode
	p.Unit = r.Unit
	p.SalePrice = r.SalePrice
	p.MinStock = r.MinStock
	p.Description = r.Description
	p.Active = r.Active
	p.ParentID = r.ParentID
	p.IsFolder = r.IsFolder
	p.Attributes = r.Attributes
	p.Version = r.Version
}

// --- Response DTOs ---

// ProductResponse is the response body for a product.
type ProductResponse struct {
	ID           string            `json:"id"`
	Code         string            `json:"code"`
	Name         string            `json:"name"`
	SKU          *string           `json:"sku,omitempty"`
	Barcode      *string           `json:"barcode,omitempty"`
	Unit         product.Unit      `json:"unit"`
	SalePrice    types.Money       `json:"salePrice"`
	TotalStock   types.Quantity    `json:"totalStock"`
	MinStock     types.Quantity    `json:"minStock"`
	LowStock     bool              `json:"lowStock"`
	Description  *string           `json:"description,omitempty"`
	Active       bool              `json:"active"`
	ParentID     *string           `json:"parentId,omitempty"`
	IsFolder     bool              `json:"isFolder"`
	DeletionMark bool              `json:"deletionMark"`
	Version      int               `json:"version"`
	Attributes   entity.Attributes `json:"attributes,omitempty"`
}

// FromProduct creates response DTO from domain entity.
func FromProduct(p *product.Product) *ProductResponse {
	return &ProductResponse{
		ID:           p.ID.String(),
		Code:         p.Code,
		Name:         p.Name,
		SKU:          p.SKU,
		Barcode:      p.Barcode,
		Unit:         p.Unit,
		SalePrice:    p.SalePrice,
		TotalStock:   p.TotalStock,
		MinStock:     p.MinStock,
		LowStock:     p.IsLowStock(),
		Description:  p.Description,
		Active:       p.Active,
		ParentID:     p.ParentID,
		IsFolder:     p.IsFolder,
		DeletionMark: p.DeletionMark,
		Version:      p.Version,
		Attributes:   p.Attributes,
	}
}
