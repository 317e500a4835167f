// Package transfers provides the warehouse transfer approval workflow.
//
// A stock request asks to move batches from a sending warehouse to a
// receiving warehouse. It passes through an approval state machine; stock
// only moves at confirmation.
package transfers

import (
	"context"
	"time"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
	"inventra/internal/core/id"
	"inventra/internal/core/types"
)

// Status is the transfer request lifecycle state.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusConfirmed Status = "CONFIRMED"
)

// transitions maps each state to the states it may move to.
// Creation validates sending stock but moves nothing; only the
// APPROVED -> CONFIRMED transition touches the ledger.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusConfirmed, StatusRejected},
	// REJECTED and CONFIRMED are terminal
}

// CanTransitionTo reports whether the state machine allows the move.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// StockRequest is a warehouse transfer request document.
type StockRequest struct {
	entity.BaseDocument

	// Number is the request number (e.g. REQ-2026-00017)
	Number string `db:"number" json:"number"`

	Status Status `db:"status" json:"status"`

	SendingWarehouseID   id.ID `db:"sending_warehouse_id" json:"sendingWarehouseId"`
	ReceivingWarehouseID id.ID `db:"receiving_warehouse_id" json:"receivingWarehouseId"`

	// ApproverID is the user expected to approve or reject
	ApproverID string `db:"approver_id" json:"approverId"`

	// Remark is an optional free-text note
	Remark string `db:"remark" json:"remark,omitempty"`

	// Items are loaded separately by the repository
	Items []Item `db:"-" json:"items"`
}

// Item is one transferred batch quantity.
type Item struct {
	ID        id.ID  `db:"id" json:"id"`
	TenantID  string `db:"tenant_id" json:"-"`
	RequestID id.ID  `db:"request_id" json:"requestId"`

	ProductID id.ID `db:"product_id" json:"productId"`
	BatchID   id.ID `db:"batch_id" json:"batchId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// CostPrice is the unit cost carried to the receiving batch
	CostPrice types.Money `db:"cost_price" json:"costPrice"`

	// TransferValue = Quantity * CostPrice, denormalized for reporting
	TransferValue types.Money `db:"transfer_value" json:"transferValue"`

	LineNumber int `db:"line_number" json:"lineNumber"`
}

// NewStockRequest creates a pending request.
func NewStockRequest(sendingWarehouseID, receivingWarehouseID id.ID, approverID string) *StockRequest {
	return &StockRequest{
		BaseDocument:         entity.NewBaseDocument(),
		Status:               StatusPending,
		SendingWarehouseID:   sendingWarehouseID,
		ReceivingWarehouseID: receivingWarehouseID,
		ApproverID:           approverID,
	}
}

// Validate checks request invariants.
func (r *StockRequest) Validate(ctx context.Context) error {
	if id.IsNil(r.SendingWarehouseID) {
		return apperror.NewValidation("sending warehouse is required").
			WithDetail("field", "sendingWarehouseId")
	}
	if id.IsNil(r.ReceivingWarehouseID) {
		return apperror.NewValidation("receiving warehouse is required").
			WithDetail("field", "receivingWarehouseId")
	}
	if r.SendingWarehouseID == r.ReceivingWarehouseID {
		return apperror.NewValidation("sending and receiving warehouse must differ")
	}
	if r.ApproverID == "" {
		return apperror.NewValidation("approver is required").
			WithDetail("field", "approverId")
	}
	if len(r.Items) == 0 {
		return apperror.NewValidation("at least one item is required")
	}
	for i, item := range r.Items {
		if id.IsNil(item.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("line", i+1)
		}
		if id.IsNil(item.BatchID) {
			return apperror.NewValidation("batch is required").
				WithDetail("line", i+1)
		}
		if !item.Quantity.IsPositive() {
			return apperror.NewValidation("quantity must be positive").
				WithDetail("line", i+1)
		}
	}
	return nil
}

// Transition moves the request to the next state, enforcing the machine.
func (r *StockRequest) Transition(next Status) error {
	if !r.Status.CanTransitionTo(next) {
		return apperror.NewInvalidState("stock_request", string(r.Status), string(next)).
			WithDetail("request_number", r.Number)
	}
	r.Status = next
	r.Touch()
	return nil
}

// transferDate is when the request was raised; movements recorded at
// confirmation still carry this as their recorder date.
func (r *StockRequest) transferDate() time.Time {
	return r.CreatedAt
}
