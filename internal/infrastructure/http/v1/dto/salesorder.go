package dto

import (
	"time"

	"inventra/internal/core/id"
	"inventra/internal/core/types"
	"inventra/internal/domain/documents/salesorder"
)

// --- Request DTOs ---

type CreateSalesOrderRequest struct {
	Date       *time.Time              `json:"date,omitempty"`
	CustomerID string                  `json:"customerId" binding:"required,uuid"`
	Comment    string                  `json:"comment,omitempty"`
	Lines      []SalesOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type SalesOrderLineRequest struct {
	ProductID   string         `json:"productId" binding:"required,uuid"`
	WarehouseID string         `json:"warehouseId" binding:"required,uuid"`
	Quantity    types.Quantity `json:"quantity" binding:"required"`
	Rate        types.Money    `json:"rate"`
}

func (r *CreateSalesOrderRequest) ToEntity() *salesorder.SalesOrder {
	customerID, _ := id.Parse(r.CustomerID)

	doc := salesorder.NewSalesOrder(customerID)
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		warehouseID, _ := id.Parse(line.WarehouseID)
		doc.AddLine(productID, warehouseID, line.Quantity, line.Rate)
	}

	return doc
}

// UpdateSalesOrderRequest replaces mutable fields of a draft order.
// Lines, when present, replace the whole table part.
type UpdateSalesOrderRequest struct {
	Date       *time.Time              `json:"date,omitempty"`
	CustomerID *string                 `json:"customerId,omitempty"`
	Comment    *string                 `json:"comment,omitempty"`
	Lines      []SalesOrderLineRequest `json:"lines,omitempty"`
	Version    int                     `json:"version" binding:"required,min=1"`
}

func (r *UpdateSalesOrderRequest) ApplyTo(doc *salesorder.SalesOrder) {
	if r.Date != nil {
		doc.Date = *r.Date
	}
	if r.CustomerID != nil {
		customerID, _ := id.Parse(*r.CustomerID)
		doc.CustomerID = customerID
	}
	if r.Comment != nil {
		doc.Comment = *r.Comment
	}

	if r.Lines != nil {
		doc.Lines = make([]salesorder.Line, 0, len(r.Lines))
		for _, line := range r.Lines {
			productID, _ := id.Parse(line.ProductID)
			warehouseID, _ := id.Parse(line.WarehouseID)
			doc.AddLine(productID, warehouseID, line.Quantity, line.Rate)
		}
	}

	doc.Version = r.Version
}

// --- Response DTOs ---

type SalesOrderResponse struct {
	ID            string                   `json:"id"`
	Number        string                   `json:"number"`
	Date          time.Time                `json:"date"`
	Status        string                   `json:"status"`
	CustomerID    string                   `json:"customerId"`
	TotalQuantity types.Quantity           `json:"totalQuantity"`
	TotalAmount   types.Money              `json:"totalAmount"`
	Comment       string                   `json:"comment,omitempty"`
	Lines         []SalesOrderLineResponse `json:"lines,omitempty"`
	Version       int                      `json:"version"`
	CreatedAt     time.Time                `json:"createdAt"`
	UpdatedAt     time.Time                `json:"updatedAt"`
}

type SalesOrderLineResponse struct {
	LineID      string         `json:"lineId"`
	LineNo      int            `json:"lineNo"`
	ProductID   string         `json:"productId"`
	WarehouseID string         `json:"warehouseId"`
	Quantity    types.Quantity `json:"quantity"`
	Rate        types.Money    `json:"rate"`
	Amount      types.Money    `json:"amount"`
}

func FromSalesOrder(doc *salesorder.SalesOrder) *SalesOrderResponse {
	resp := &SalesOrderResponse{
		ID:            doc.ID.String(),
		Number:        doc.Number,
		Date:          doc.Date,
		Status:        string(doc.Status),
		CustomerID:    doc.CustomerID.String(),
		TotalQuantity: doc.TotalQuantity,
		TotalAmount:   doc.TotalAmount,
		Comment:       doc.Comment,
		Version:       doc.Version,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}

	resp.Lines = make([]SalesOrderLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		resp.Lines[i] = SalesOrderLineResponse{
			LineID:      line.LineID.String(),
			LineNo:      line.LineNo,
			ProductID:   line.ProductID.String(),
			WarehouseID: line.WarehouseID.String(),
			Quantity:    line.Quantity,
			Rate:        line.Rate,
			Amount:      line.Amount,
		}
	}

	return resp
}

// --- List filter ---

type SalesOrderListQuery struct {
	CustomerID *string `form:"customerId"`
	Status     *string `form:"status"`
	DateFrom   *string `form:"dateFrom"`
	DateTo     *string `form:"dateTo"`
	Limit      int     `form:"limit"`
	Offset     int     `form:"offset"`
}

func (q *SalesOrderListQuery) ToFilter() salesorder.ListFilter {
	filter := salesorder.ListFilter{}
	filter.Limit = q.Limit
	filter.Offset = q.Offset

	if q.CustomerID != nil {
		if customerID, err := id.Parse(*q.CustomerID); err == nil {
			filter.CustomerID = &customerID
		}
	}
	if q.Status != nil {
		status := salesorder.Status(*q.Status)
		filter.Status = &status
	}
	filter.DateFrom = parseDateQuery(q.DateFrom)
	filter.DateTo = parseDateQuery(q.DateTo)

	return filter
}

// parseDateQuery accepts RFC3339 or plain dates in query parameters.
func parseDateQuery(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return &t
	}
	if t, err := time.Parse("2006-01-02", *s); err == nil {
		return &t
	}
	return nil
}
