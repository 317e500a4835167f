package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/domain/transfers"
	"inventra/internal/infrastructure/http/v1/dto"
)

// TransferHandler serves warehouse transfer requests. A request goes
// through approval before confirmation moves any stock.
type TransferHandler struct {
	*BaseHandler
	service *transfers.Service
}

// NewTransferHandler creates a transfer handler.
func NewTransferHandler(base *BaseHandler, service *transfers.Service) *TransferHandler {
	return &TransferHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req dto.CreateTransferRequest
	if !h.BindJSON(c, &req) {
		return
	}

	request := req.ToEntity()
	if err := h.service.Create(c.Request.Context(), request); err != nil {
		h.Error(c, err)
		return
	}

	response := dto.FromTransfer(request)
	h.CompleteIdempotency(c, http.StatusCreated, "application/json", response)
	c.JSON(http.StatusCreated, response)
}

// Get handles GET /transfers/:id
func (h *TransferHandler) Get(c *gin.Context) {
	requestID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	request, err := h.service.GetByID(c.Request.Context(), requestID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromTransfer(request))
}

// List handles GET /transfers
func (h *TransferHandler) List(c *gin.Context) {
	var query dto.TransferListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	requests, total, err := h.service.List(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(requests))
	for i, request := range requests {
		items[i] = dto.FromTransfer(request)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: total,
		Limit:      query.Limit,
		Offset:     query.Offset,
	})
}

// Delete handles DELETE /transfers/:id
func (h *TransferHandler) Delete(c *gin.Context) {
	requestID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Delete(c.Request.Context(), requestID); err != nil {
		h.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RegisterTransitions mounts the approval workflow endpoints behind the
// given permission guard.
func (h *TransferHandler) RegisterTransitions(group *gin.RouterGroup, guard gin.HandlerFunc) {
	mapToDTO := func(request *transfers.StockRequest) any { return dto.FromTransfer(request) }

	group.POST("/:id/approve", guard, Transition(h.BaseHandler, mapToDTO, h.service.Approve))
	group.POST("/:id/reject", guard, Transition(h.BaseHandler, mapToDTO, h.service.Reject))
	group.POST("/:id/confirm", guard, Transition(h.BaseHandler, mapToDTO, h.service.Confirm))
}
