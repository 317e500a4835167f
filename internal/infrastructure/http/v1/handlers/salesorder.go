package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventra/internal/domain/documents/salesorder"
	"inventra/internal/infrastructure/http/v1/dto"
)

// SalesOrderHandler serves sales order documents. Submitting an order
// reserves stock; the transitions drive the rest of the lifecycle.
type SalesOrderHandler struct {
	*BaseDocumentHandler[*salesorder.SalesOrder, dto.CreateSalesOrderRequest, dto.UpdateSalesOrderRequest]
	service *salesorder.Service
}

// NewSalesOrderHandler wires the sales order service into the generic
// document handler.
func NewSalesOrderHandler(base *BaseHandler, service *salesorder.Service) *SalesOrderHandler {
	config := BaseDocumentHandlerConfig[
		*salesorder.SalesOrder,
		dto.CreateSalesOrderRequest,
		dto.UpdateSalesOrderRequest,
	]{
		Service:    service,
		EntityName: "sales order",
		MapCreateDTO: func(req dto.CreateSalesOrderRequest) *salesorder.SalesOrder {
			return req.ToEntity()
		},
		MapUpdateDTO: func(req dto.UpdateSalesOrderRequest, existing *salesorder.SalesOrder) *salesorder.SalesOrder {
			req.ApplyTo(existing)
			return existing
		},
		MapToDTO: func(doc *salesorder.SalesOrder) any {
			return dto.FromSalesOrder(doc)
		},
	}

	return &SalesOrderHandler{
		BaseDocumentHandler: NewBaseDocumentHandler(base, config),
		service:             service,
	}
}

// List handles GET /sales-orders
func (h *SalesOrderHandler) List(c *gin.Context) {
	var query dto.SalesOrderListQuery
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
		items[i] = dto.FromSalesOrder(doc)
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
func (h *SalesOrderHandler) RegisterTransitions(group *gin.RouterGroup, guard gin.HandlerFunc) {
	mapToDTO := func(doc *salesorder.SalesOrder) any { return dto.FromSalesOrder(doc) }

	group.POST("/:id/submit", guard, Transition(h.BaseHandler, mapToDTO, h.service.Submit))
	group.POST("/:id/approve", guard, Transition(h.BaseHandler, mapToDTO, h.service.Approve))
	group.POST("/:id/reject", guard, Transition(h.BaseHandler, mapToDTO, h.service.Reject))
	group.POST("/:id/cancel", guard, Transition(h.BaseHandler, mapToDTO, h.service.Cancel))
}
