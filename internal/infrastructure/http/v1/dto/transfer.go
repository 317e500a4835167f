package dto

import (
	"time"

	"inventra/internal/core/id"
	"inventra/internal/core/types"
	"inventra/internal/domain/transfers"
)

// --- Request DTOs ---

type CreateTransferRequest struct {
	SendingWarehouseID   string                `json:"sendingWarehouseId" binding:"required,uuid"`
	ReceivingWarehouseID string                `json:"receivingWarehouseId" binding:"required,uuid"`
	ApproverID           string                `json:"approverId" binding:"required"`
	Remark               string                `json:"remark,omitempty"`
	Items                []TransferItemRequest `json:"items" binding:"required,min=1,dive"`
}

type TransferItemRequest struct {
	ProductID string         `json:"productId" binding:"required,uuid"`
	BatchID   string         `json:"batchId" binding:"required,uuid"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
	CostPrice types.Money    `json:"costPrice"`
}

func (r *CreateTransferRequest) ToEntity() *transfers.StockRequest {
	sendingID, _ := id.Parse(r.SendingWarehouseID)
	receivingID, _ := id.Parse(r.ReceivingWarehouseID)

	request := transfers.NewStockRequest(sendingID, receivingID, r.ApproverID)
	request.Remark = r.Remark

	request.Items = make([]transfers.Item, 0, len(r.Items))
	for _, item := range r.Items {
		productID, _ := id.Parse(item.ProductID)
		batchID, _ := id.Parse(item.BatchID)
		request.Items = append(request.Items, transfers.Item{
			ProductID: productID,
			BatchID:   batchID,
			Quantity:  item.Quantity,
			CostPrice: item.CostPrice,
		})
	}

	return request
}

// --- Response DTOs ---

type TransferResponse struct {
	ID                   string                 `json:"id"`
	Number               string                 `json:"number"`
	Status               string                 `json:"status"`
	SendingWarehouseID   string                 `json:"sendingWarehouseId"`
	ReceivingWarehouseID string                 `json:"receivingWarehouseId"`
	ApproverID           string                 `json:"approverId"`
	Remark               string                 `json:"remark,omitempty"`
	Items                []TransferItemResponse `json:"items,omitempty"`
	Version              int                    `json:"version"`
	CreatedAt            time.Time              `json:"createdAt"`
	UpdatedAt            time.Time              `json:"updatedAt"`
}

type TransferItemResponse struct {
	ID            string         `json:"id"`
	LineNumber    int            `json:"lineNumber"`
	ProductID     string         `json:"productId"`
	BatchID       string         `json:"batchId"`
	Quantity      types.Quantity `json:"quantity"`
	CostPrice     types.Money    `json:"costPrice"`
	TransferValue types.Money    `json:"transferValue"`
}

func FromTransfer(request *transfers.StockRequest) *TransferResponse {
	resp := &TransferResponse{
		ID:                   request.ID.String(),
		Number:               request.Number,
		Status:               string(request.Status),
		SendingWarehouseID:   request.SendingWarehouseID.String(),
		ReceivingWarehouseID: request.ReceivingWarehouseID.String(),
		ApproverID:           request.ApproverID,
		Remark:               request.Remark,
		Version:              request.Version,
		CreatedAt:            request.CreatedAt,
		UpdatedAt:            request.UpdatedAt,
	}

	resp.Items = make([]TransferItemResponse, len(request.Items))
	for i, item := range request.Items {
		resp.Items[i] = TransferItemResponse{
			ID:            item.ID.String(),
			LineNumber:    item.LineNumber,
			ProductID:     item.ProductID.String(),
			BatchID:       item.BatchID.String(),
			Quantity:      item.Quantity,
			CostPrice:     item.CostPrice,
			TransferValue: item.TransferValue,
		}
	}

	return resp
}

// --- List filter ---

type TransferListQuery struct {
	Status      *string `form:"status"`
	WarehouseID *string `form:"warehouseId"`
	ApproverID  string  `form:"approverId"`
	Limit       int     `form:"limit"`
	Offset      int     `form:"offset"`
}

func (q *TransferListQuery) ToFilter() transfers.ListFilter {
	filter := transfers.ListFilter{
		ApproverID: q.ApproverID,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}

	if q.Status != nil {
		status := transfers.Status(*q.Status)
		filter.Status = &status
	}
	if q.WarehouseID != nil {
		if warehouseID, err := id.Parse(*q.WarehouseID); err == nil {
			filter.WarehouseID = &warehouseID
		}
	}

	return filter
}
