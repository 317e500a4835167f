package dto

import (
	"encoding/json"
	"time"

	"inventra/internal/core/id"
	"inventra/internal/core/types"
	"inventra/internal/domain/audit"
	"inventra/internal/domain/documents/adjustment"
)

// --- Request DTOs ---

type CreateAdjustmentRequest struct {
	Date        *time.Time              `json:"date,omitempty"`
	WarehouseID string                  `json:"warehouseId" binding:"required,uuid"`
	Type        string                  `json:"type" binding:"required,oneof=QUANTITY VALUE"`
	Reason      string                  `json:"reason" binding:"required"`
	Comment     string                  `json:"comment,omitempty"`
	Lines       []AdjustmentLineRequest `json:"lines" binding:"required,min=1,dive"`
}

type AdjustmentLineRequest struct {
	ProductID   string         `json:"productId" binding:"required,uuid"`
	BatchID     string         `json:"batchId" binding:"required,uuid"`
	NewQuantity types.Quantity `json:"newQuantity"`
}

func (r *CreateAdjustmentRequest) ToEntity() *adjustment.Adjustment {
	warehouseID, _ := id.Parse(r.WarehouseID)

	doc := adjustment.NewAdjustment(warehouseID, adjustment.AdjustmentType(r.Type), r.Reason)
	if r.Date != nil {
		doc.Date = *r.Date
	}
	doc.Comment = r.Comment

	for _, line := range r.Lines {
		productID, _ := id.Parse(line.ProductID)
		batchID, _ := id.Parse(line.BatchID)
		doc.AddLine(productID, batchID, line.NewQuantity)
	}

	return doc
}

// --- Response DTOs ---

type AdjustmentResponse struct {
	ID          string                   `json:"id"`
	Number      string                   `json:"number"`
	Date        time.Time                `json:"date"`
	WarehouseID string                   `json:"warehouseId"`
	Type        string                   `json:"type"`
	Reason      string                   `json:"reason"`
	Comment     string                   `json:"comment,omitempty"`
	Lines       []AdjustmentLineResponse `json:"lines,omitempty"`
	CreatedAt   time.Time                `json:"createdAt"`
}

type AdjustmentLineResponse struct {
	LineID           string         `json:"lineId"`
	LineNo           int            `json:"lineNo"`
	ProductID        string         `json:"productId"`
	BatchID          string         `json:"batchId"`
	PreviousQuantity types.Quantity `json:"previousQuantity"`
	NewQuantity      types.Quantity `json:"newQuantity"`
	Delta            types.Quantity `json:"delta"`
	PreviousValue    types.Money    `json:"previousValue"`
	NewValue         types.Money    `json:"newValue"`
}

func FromAdjustment(doc *adjustment.Adjustment) *AdjustmentResponse {
	resp := &AdjustmentResponse{
		ID:          doc.ID.String(),
		Number:      doc.Number,
		Date:        doc.Date,
		WarehouseID: doc.WarehouseID.String(),
		Type:        string(doc.Type),
		Reason:      doc.Reason,
		Comment:     doc.Comment,
		CreatedAt:   doc.CreatedAt,
	}

	resp.Lines = make([]AdjustmentLineResponse, len(doc.Lines))
	for i, line := range doc.Lines {
		resp.Lines[i] = AdjustmentLineResponse{
			LineID:           line.LineID.String(),
			LineNo:           line.LineNo,
			ProductID:        line.ProductID.String(),
			BatchID:          line.BatchID.String(),
			PreviousQuantity: line.PreviousQuantity,
			NewQuantity:      line.NewQuantity,
			Delta:            line.Delta,
			PreviousValue:    line.PreviousValue,
			NewValue:         line.NewValue,
		}
	}

	return resp
}

type ChangeRecordResponse struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	UserID    string          `json:"userId,omitempty"`
	UserEmail string          `json:"userEmail,omitempty"`
	Changes   json.RawMessage `json:"changes,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func FromChangeRecords(records []audit.ChangeRecord) []ChangeRecordResponse {
	out := make([]ChangeRecordResponse, len(records))
	for i, rec := range records {
		out[i] = ChangeRecordResponse{
			ID:        rec.ID.String(),
			Action:    rec.Action,
			UserID:    rec.UserID,
			UserEmail: rec.UserEmail,
			Changes:   rec.Changes,
			CreatedAt: rec.CreatedAt,
		}
	}
	return out
}

// --- List filter ---

type AdjustmentListQuery struct {
	WarehouseID *string `form:"warehouseId"`
	Type        *string `form:"type"`
	DateFrom    *string `form:"dateFrom"`
	DateTo      *string `form:"dateTo"`
	Limit       int     `form:"limit"`
	Offset      int     `form:"offset"`
}

func (q *AdjustmentListQuery) ToFilter() adjustment.ListFilter {
	filter := adjustment.ListFilter{}
	filter.Limit = q.Limit
	filter.Offset = q.Offset

	if q.WarehouseID != nil {
		if warehouseID, err := id.Parse(*q.WarehouseID); err == nil {
			filter.WarehouseID = &warehouseID
		}
	}
	if q.Type != nil {
		adjType := adjustment.AdjustmentType(*q.Type)
		filter.Type = &adjType
	}
	filter.DateFrom = parseDateQuery(q.DateFrom)
	filter.DateTo = parseDateQuery(q.DateTo)

	return filter
}
