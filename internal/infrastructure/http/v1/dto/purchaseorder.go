package dto

import (
	"time"

	"inventra/internal/core/id"
	"inventra/internal/core/types"
	"inventra/internal/domain/documents/purchaseorder"
)

// --- Request DTOs ---

type CreatePurchaseOrderRequest struct {
	Date         *time.Time                 `json:"date,omitempty"`
	SupplierName string                     `json:"supplierName" binding:"required"`
	Comment      string                     `json:"comment,omitempty"`
	Lines        []PurchaseOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type PurchaseOrderLineRequest struct {
	ProductID   string         `json:"productId" binding:"required,uuid"`
	WarehouseID string         `json:"warehouseId" binding:"required,uuid"`
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	UnitCost    types.Money    `json:"unitCost"`
	ExpiryDate  *time.Time     `json:"expiryDate,omitempty"`
}

func (r *CreatePurchaseOrderRequest) ToEntity() *purchaseorder.PurchaseOrder {
	doc := purchaseorder.NewPurchaseOrder(r.SupplierName)
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		warehouseID, _ := id.Parse(line.WarehouseID)
		doc.AddLine(productID, warehouseID, line.Quantity, line.UnitCost, line.ExpiryDate)
	}

	return doc
}

type UpdatePurchaseOrderRequest struct {
	Date         *time.Time                 `json:"date,omitempty"`
	SupplierName *string                    `json:"supplierName,omitempty"`
	Comment      *string                    `json:"comment,omitempty"`
	Lines        []PurchaseOrderLineRequest `json:"lines,omitempty"`
	Version      int                        `json:"version" binding:"required,min=1"`
}

func (r *UpdatePurchaseOrderRequest) ApplyTo(doc *purchaseorder.PurchaseOrder) {
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.SupplierName != nil {
		doc.SupplierName = *r.SupplierName
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}

	if r.Lines != nil {
		doc.Lines = make([]purchaseorder.Line, 0, len(r.Lines))
		for _, line := range r.Lines {
			productID, _ := id.Parse(line.ProductID)
			warehouseID, _ := id.Parse(line.WarehouseID)
			doc.AddLine(productID, warehouseID, line.Quantity, line.UnitCost, line.ExpiryDate)
		}
	}

	doc.Version = r.Version
}

// --- Response DTOs ---

type PurchaseOrderResponse struct {
	ID            string                      `json:"id"`
	Number        string                      `json:"number"`
	Date          time.Time                   `json:"date"`
	Status        string                      `json:"status"`
	SupplierName  string                      `json:"supplierName"`
	TotalQuantity types.Quantity              `json:"totalQuantity"`
	TotalAmount   types.Money                 `json:"totalAmount"`
	Comment       string                      `json:"comment,omitempty"`
	Lines         []PurchaseOrderLineResponse `json:"lines,omitempty"`
	Version       int                         `json:"version"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

type PurchaseOrderLineResponse struct {
	LineID      string         `json:"lineId"`
	LineNo      int            `json:"lineNo"`
	ProductID   string         `json:"productId"`
	WarehouseID string         `json:"warehouseId"`
	Quantity    types.Quantity `json:"quantity"`
	UnitCost    types.Money    `json:"unitCost"`
	Amount      types.Money    `json:"amount"`
	ExpiryDate  *time.Time     `json:"expiryDate,omitempty"`

	// BatchID is set once the order is approved and stock is received
	BatchID *string `json:"batchId,omitempty"`
}

func FromPurchaseOrder(doc *purchaseorder.PurchaseOrder) *PurchaseOrderResponse {
	resp := &PurchaseOrderResponse{
		ID:            doc.ID.String(),
		Number:        doc.Number,
		Date:          doc.Date,
		Status:        string(doc.Status),
		SupplierName:  doc.SupplierName,
		TotalQuantity: doc.TotalQuantity,
		TotalAmount:   doc.TotalAmount,
		Comment:       doc.Comment,
		Version:       doc.Version,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}

	resp.Lines = make([]PurchaseOrderLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		resp.Lines[i] = PurchaseOrderLineResponse{
			LineID:      line.LineID.String(),
			LineNo:      line.LineNo,
			ProductID:   line.ProductID.String(),
			WarehouseID: line.WarehouseID.String(),
			Quantity:    line.Quantity,
			UnitCost:    line.UnitCost,
			Amount:      line.Amount,
			ExpiryDate:  line.ExpiryDate,
		}
		if line.BatchID != nil {
			s := line.BatchID.String()
			resp.Lines[i].BatchID = &s
		}
	}

	return resp
}

// --- List filter ---

type PurchaseOrderListQuery struct {
	SupplierName string  `form:"supplierName"`
	Status       *string `form:"status"`
	DateFrom     *string `form:"dateFrom"`
	DateTo       *string `form:"dateTo"`
	Limit        int     `form:"limit"`
	Offset       int     `form:"offset"`
}

func (q *PurchaseOrderListQuery) ToFilter() purchaseorder.ListFilter {
	filter := purchaseorder.ListFilter{}
	filter.Limit = q.Limit
	filter.Offset = q.Offset

	filter.SupplierName = q.SupplierName
	if q.Status != nil {
		status := purchaseorder.Status(*q.Status)
		filter.Status = &status
	}
	filter.DateFrom = parseDateQuery(q.DateFrom)
	filter.DateTo = parseDateQuery(q.DateTo)

	return filter
}
