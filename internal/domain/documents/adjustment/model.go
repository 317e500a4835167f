// Package adjustment provides the StockAdjustment document.
//
// An adjustment sets a batch's counted on-hand quantity and shifts the
// product total by the difference. Documents are immutable once created;
// each one leaves an audit trail with before/after quantities.
package adjustment

import (
	"context"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// AdjustmentType distinguishes quantity corrections from value-only
// revaluations. VALUE adjustments are recorded but do not move stock.
type AdjustmentType string

const (
	TypeQuantity AdjustmentType = "QUANTITY"
	TypeValue    AdjustmentType = "VALUE"
)

// Adjustment represents a manual inventory correction.
type Adjustment struct {
	entity.Document

	WarehouseID id.ID `db:"warehouse_id" json:"warehouseId"`

	Type AdjustmentType `db:"type" json:"type"`

	// Reason is the mandatory justification for the correction
	Reason string `db:"reason" json:"reason"`

	Lines []Line `db:"-" json:"lines"`
}

// Line captures one batch correction with its before/after state.
type Line struct {
	LineID id.ID `db:"line_id" json:"lineId"`
	LineNo int   `db:"line_no" json:"lineNo"`

	ProductID id.ID `db:"product_id" json:"productId"`
	BatchID   id.ID `db:"batch_id" json:"batchId"`

	// PreviousQuantity and Delta are filled from the ledger when the
	// document is created
	PreviousQuantity types.Quantity `db:"previous_quantity" json:"previousQuantity"`
	NewQuantity      types.Quantity `db:"new_quantity" json:"newQuantity"`
	Delta            types.Quantity `db:"delta" json:"delta"`

	// PreviousValue and NewValue apply to VALUE adjustments only
	PreviousValue types.Money `db:"previous_value" json:"previousValue"`
	NewValue      types.Money `db:"new_value" json:"newValue"`
}

// NewAdjustment creates an adjustment document.
func NewAdjustment(warehouseID id.ID, adjType AdjustmentType, reason string) *Adjustment {
	return &Adjustment{
		Document:    entity.NewDocument(),
		WarehouseID: warehouseID,
		Type:        adjType,
		Reason:      reason,
		Lines:       make([]Line, 0),
	}
}

// AddLine adds a correction line.
func (a *Adjustment) AddLine(productID, batchID id.ID, newQuantity types.Quantity) {
	a.Lines = append(a.Lines, Line{
		LineID:      id.New(),
		LineNo:      len(a.Lines) + 1,
		ProductID:   productID,
		BatchID:     batchID,
		NewQuantity: newQuantity,
	})
}

// Validate implements entity.Validatable.
func (a *Adjustment) Validate(ctx context.Context) error {
	if err := a.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(a.WarehouseID) {
		return apperror.NewValidation("warehouse is required").
			WithDetail("field", "warehouseId")
	}
	if a.Type != TypeQuantity && a.Type != TypeValue {
		return apperror.NewValidation("invalid adjustment type").
			WithDetail("field", "type").
			WithDetail("value", string(a.Type))
	}
	if a.Reason == "" {
		return apperror.NewValidation("reason is required").
			WithDetail("field", "reason")
	}
	if len(a.Lines) == 0 {
		return apperror.NewValidation("at least one line is required").
			WithDetail("field", "lines")
	}

	for i, line := range a.Lines {
		if id.IsNil(line.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if id.IsNil(line.BatchID) {
			return apperror.NewValidation("batch is required").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
		if a.Type == TypeQuantity && line.NewQuantity.IsNegative() {
			return apperror.NewValidation("adjusted quantity cannot be negative").
				WithDetail("field", "lines").
				WithDetail("lineNo", i+1)
		}
	}

	return nil
}
