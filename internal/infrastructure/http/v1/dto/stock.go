package dto

import (
	"time"

	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/types"
	"inventra/internal/domain/ledger"
)

// --- Batch DTOs ---

type StockBatchResponse struct {
	ID          string         `json:"id"`
	BatchNumber string         `json:"batchNumber"`
	ProductID   string         `json:"productId"`
	WarehouseID string         `json:"warehouseId"`
	Available   types.Quantity `json:"available"`
	Committed   types.Quantity `json:"committed"`
	OnHand      types.Quantity `json:"onHand"`
	UnitCost    types.Money    `json:"unitCost"`
	ExpiryDate  *time.Time     `json:"expiryDate,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func FromStockBatch(b *ledger.StockBatch) StockBatchResponse {
	return StockBatchResponse{
		ID:          b.ID.String(),
		BatchNumber: b.BatchNumber,
		ProductID:   b.ProductID.String(),
		WarehouseID: b.WarehouseID.String(),
		Available:   b.Available,
		Committed:   b.Committed,
		OnHand:      b.OnHand(),
		UnitCost:    b.UnitCost,
		ExpiryDate:  b.ExpiryDate,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

type BatchListQuery struct {
	ProductID   *string `form:"productId"`
	WarehouseID *string `form:"warehouseId"`
	NonEmpty    bool    `form:"nonEmpty"`
	Limit       int     `form:"limit"`
	Offset      int     `form:"offset"`
}

func (q *BatchListQuery) ToFilter() ledger.BatchFilter {
	filter := ledger.BatchFilter{
		NonEmpty: q.NonEmpty,
		Limit:    q.Limit,
		Offset:   q.Offset,
	}
	if q.ProductID != nil {
		if productID, err := id.Parse(*q.ProductID); err == nil {
			filter.ProductID = &productID
		}
	}
	if q.WarehouseID != nil {
		if warehouseID, err := id.Parse(*q.WarehouseID); err == nil {
			filter.WarehouseID = &warehouseID
		}
	}
	return filter
}

// --- Balance DTOs ---

type StockBalanceResponse struct {
	WarehouseID string         `json:"warehouseId"`
	ProductID   string         `json:"productId"`
	Available   types.Quantity `json:"available"`
	Committed   types.Quantity `json:"committed"`
	OnHand      types.Quantity `json:"onHand"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func FromStockBalance(b entity.StockBalance) StockBalanceResponse {
	return StockBalanceResponse{
		WarehouseID: b.WarehouseID.String(),
		ProductID:   b.ProductID.String(),
		Available:   b.Available,
		Committed:   b.Committed,
		OnHand:      b.OnHand(),
		UpdatedAt:   b.UpdatedAt,
	}
}

// --- Movement DTOs ---

type StockMovementResponse struct {
	LineID          string         `json:"lineId"`
	RecorderID      string         `json:"recorderId"`
	RecorderType    string         `json:"recorderType"`
	RecorderVersion int            `json:"recorderVersion"`
	Period          time.Time      `json:"period"`
	Kind            string         `json:"kind"`
	WarehouseID     string         `json:"warehouseId"`
	ProductID       string         `json:"productId"`
	BatchID         string         `json:"batchId"`
	DeltaAvailable  types.Quantity `json:"deltaAvailable"`
	DeltaCommitted  types.Quantity `json:"deltaCommitted"`
	CreatedAt       time.Time      `json:"createdAt"`
}

func FromStockMovement(m entity.StockMovement) StockMovementResponse {
	return StockMovementResponse{
		LineID:          m.LineID.String(),
		RecorderID:      m.RecorderID.String(),
		RecorderType:    m.RecorderType,
		RecorderVersion: m.RecorderVersion,
		Period:          m.Period,
		Kind:            string(m.Kind),
		WarehouseID:     m.WarehouseID.String(),
		ProductID:       m.ProductID.String(),
		BatchID:         m.BatchID.String(),
		DeltaAvailable:  m.DeltaAvailable,
		DeltaCommitted:  m.DeltaCommitted,
		CreatedAt:       m.CreatedAt,
	}
}

type MovementListQuery struct {
	WarehouseID *string `form:"warehouseId"`
	Kind        *string `form:"kind"`
	DateFrom    *string `form:"dateFrom"`
	DateTo      *string `form:"dateTo"`
	Limit       int     `form:"limit"`
	Offset      int     `form:"offset"`
}

func (q *MovementListQuery) ToFilter() ledger.MovementFilter {
	filter := ledger.MovementFilter{
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.WarehouseID != nil {
		if warehouseID, err := id.Parse(*q.WarehouseID); err == nil {
			filter.WarehouseID = &warehouseID
		}
	}
	if q.Kind != nil {
		kind := entity.MovementKind(*q.Kind)
		filter.Kind = &kind
	}
	filter.FromDate = parseDateQuery(q.DateFrom)
	filter.ToDate = parseDateQuery(q.DateTo)
	return filter
}

// --- Availability ---

// AvailabilityQuery asks whether a quantity can be promised right now.
type AvailabilityQuery struct {
	ProductID   string         `form:"productId" binding:"required,uuid"`
	WarehouseID string         `form:"warehouseId" binding:"required,uuid"`
	Quantity    types.Quantity `form:"quantity"`
}

type AvailabilityResponse struct {
	ProductID   string         `json:"productId"`
	WarehouseID string         `json:"warehouseId"`
	Available   types.Quantity `json:"available"`
	Committed   types.Quantity `json:"committed"`
	Sufficient  *bool          `json:"sufficient,omitempty"`
}
