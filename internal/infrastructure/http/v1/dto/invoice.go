package dto

import (
	"time"

	"inventra/internal/core/id"
	"inventra/internal/core/types"
	"inventra/internal/domain/documents/invoice"
)

// --- Request DTOs ---

// CreateInvoiceRequest creates an invoice from an approved sales order.
// Lines are copied from the order; the client only names the order.
type CreateInvoiceRequest struct {
	SalesOrderID string `json:"salesOrderId" binding:"required,uuid"`
}

type AddPaymentRequest struct {
	Mode      string      `json:"mode" binding:"required,oneof=CASH TRANSFER POS CHEQUE"`
	Amount    types.Money `json:"amount" binding:"required"`
	Reference *string     `json:"reference,omitempty"`
	Date      *time.Time  `json:"date,omitempty"`
}

func (r *AddPaymentRequest) ToEntity(invoiceID id.ID) *invoice.Payment {
	payment := &invoice.Payment{
		InvoiceID: invoiceID,
		Mode:      invoice.PaymentMode(r.Mode),
		Amount:    r.Amount,
		Reference: r.Reference,
	}
	if r.Date != nil {
		payment.Date = *r.Date
	}
	return payment
}

// --- Response DTOs ---

type InvoiceResponse struct {
	ID            string                `json:"id"`
	Number        string                `json:"number"`
	Date          time.Time             `json:"date"`
	SalesOrderID  string                `json:"salesOrderId"`
	CustomerID    string                `json:"customerId"`
	Status        string                `json:"status"`
	Cancelled     bool                  `json:"cancelled"`
	TotalQuantity types.Quantity        `json:"totalQuantity"`
	TotalAmount   types.Money           `json:"totalAmount"`
	PaidAmount    types.Money           `json:"paidAmount"`
	Outstanding   types.Money           `json:"outstanding"`
	Comment       string                `json:"comment,omitempty"`
	Lines         []InvoiceLineResponse `json:"lines,omitempty"`
	Version       int                   `json:"version"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

type InvoiceLineResponse struct {
	LineID      string         `json:"lineId"`
	LineNo      int            `json:"lineNo"`
	ProductID   string         `json:"productId"`
	WarehouseID string         `json:"warehouseId"`
	Quantity    types.Quantity `json:"quantity"`
	Rate        types.Money    `json:"rate"`
	Amount      types.Money    `json:"amount"`
}

func FromInvoice(doc *invoice.Invoice) *InvoiceResponse {
	resp := &InvoiceResponse{
		ID:            doc.ID.String(),
		Number:        doc.Number,
		Date:          doc.Date,
		SalesOrderID:  doc.SalesOrderID.String(),
		CustomerID:    doc.CustomerID.String(),
		Status:        string(doc.Status),
		Cancelled:     doc.Cancelled,
		TotalQuantity: doc.TotalQuantity,
		TotalAmount:   doc.TotalAmount,
		PaidAmount:    doc.PaidAmount,
		Outstanding:   doc.Outstanding(),
		Comment:       doc.Comment,
		Version:       doc.Version,
		CreatedAt:     doc.CreatedAt,
		UpdatedAt:     doc.UpdatedAt,
	}

	resp.Lines = make([]InvoiceLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		resp.Lines[i] = InvoiceLineResponse{
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

type PaymentResponse struct {
	ID         string      `json:"id"`
	InvoiceID  string      `json:"invoiceId"`
	CustomerID string      `json:"customerId"`
	Mode       string      `json:"mode"`
	Amount     types.Money `json:"amount"`
	Reference  *string     `json:"reference,omitempty"`
	Date       time.Time   `json:"date"`
	CreatedAt  time.Time   `json:"createdAt"`
	CreatedBy  string      `json:"createdBy,omitempty"`
}

func FromPayment(p invoice.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID.String(),
		InvoiceID:  p.InvoiceID.String(),
		CustomerID: p.CustomerID.String(),
		Mode:       string(p.Mode),
		Amount:     p.Amount,
		Reference:  p.Reference,
		Date:       p.Date,
		CreatedAt:  p.CreatedAt,
		CreatedBy:  p.CreatedBy,
	}
}

// --- List filter ---

type InvoiceListQuery struct {
	CustomerID *string `form:"customerId"`
	Status     *string `form:"status"`
	Cancelled  *bool   `form:"cancelled"`
	DateFrom   *string `form:"dateFrom"`
	DateTo     *string `form:"dateTo"`
	Limit      int     `form:"limit"`
	Offset     int     `form:"offset"`
}

func (q *InvoiceListQuery) ToFilter() invoice.ListFilter {
	filter := invoice.ListFilter{}
	filter.Limit = q.Limit
	filter.Offset = q.Offset

	if q.CustomerID != nil {
		if customerID, err := id.Parse(*q.CustomerID); err == nil {
			filter.CustomerID = &customerID
		}
	}
	if q.Status != nil {
		status := invoice.PaymentStatus(*q.Status)
		filter.Status = &status
	}
	filter.Cancelled = q.Cancelled
	filter.DateFrom = parseDateQuery(q.DateFrom)
	filter.DateTo = parseDateQuery(q.DateTo)

	return filter
}
