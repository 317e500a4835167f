package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventra/internal/domain/documents/purchaseorder"
	"inventra/internal/infrastructure/http/v1/dto"
)

// PurchaseOrderHandler serves purchase order documents. Approval receives
// the ordered goods: a batch is created per line.
type PurchaseOrderHandler struct {
	*BaseDocumentHandler[*purchaseorder.PurchaseOrder, dto.CreatePurchaseOrderRequest, dto.UpdatePurchaseOrderRequest]
	service *purchaseorder.Service
}

// NewPurchaseOrderHandler wires the purchase order service into the generic
// document handler.
func NewPurchaseOrderHandler(base *BaseHandler, service *purchaseorder.Service) *PurchaseOrderHandler {
	config := BaseDocumentHandlerConfig[
		*purchaseorder.PurchaseOrder,
		dto.CreatePurchaseOrderRequest,
		dto.UpdatePurchaseOrderRequest,
	]{
		Service:    service,
		EntityName: "purchase order",
		MapCreateDTO: func(req dto.CreatePurchaseOrderRequest) *purchaseorder.PurchaseOrder {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdatePurchaseOrderRequest, existing *purchaseorder.PurchaseOrder) *purchaseorder.PurchaseOrder {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(doc *purchaseorder.PurchaseOrder) any {
			return dto.FromPurchaseOrder(doc)
		},
	}

	return &PurchaseOrderHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, config),
		service:             service,
	}
}

// List handles GET /purchase-orders
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var query dto.PurchaseOrderListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	result, err := h.service.List(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]any, len(result.Items))
	for i, doc := range result.Items {
		items[i] = dto.FromPurchaseOrder(doc)
	}

	c.JSON(http.StatusOK, dto.ListResponse{
		Items:      items,
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RegisterTransitions mounts the status transition endpoints behind the
// given permission guard.
func (h *PurchaseOrderHandler) RegisterTransitions(group *gin.RouterGroup, guard gin.HandlerFunc) {
	mapToDTO := func(doc *purchaseorder.PurchaseOrder) any { return dto.FromPurchaseOrder(doc) }

	group.POST("/:id/submit", guard, Transition(h.BaseHandler, mapToDTO, h.service.Submit))
	group.POST("/:id/approve", guard, Transition(h.BaseHandler, mapToDTO, h.service.Approve))
	group.POST("/:id/reject", guard, Transition(h.BaseHandler, mapToDTO, h.service.Reject))
	group.POST("/:id/cancel", guard, Transition(h.BaseHandler, mapToDTO, h.service.Cancel))
	group.POST("/:id/complete", guard, Transition(h.BaseHandler, mapToDTO, h.service.Complete))
}
