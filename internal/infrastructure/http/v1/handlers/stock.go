package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"inventra/internal/core/apperror"
	"inventra/internal/core/id"
	"inventra/internal/domain/ledger"
	"inventra/internal/infrastructure/http/v1/dto"
)

// StockHandler exposes read access to the batch ledger: batches, balances,
// availability and movement history. All writes go through documents.
type StockHandler struct {
	*BaseHandler
	service *ledger.Service
	repo    ledger.Repository
}

// NewStockHandler creates a stock ledger handler.
func NewStockHandler(base *BaseHandler, service *ledger.Service, repo ledger.Repository) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		service:     service,
		repo:        repo,
	}
}

// ListBatches handles GET /registers/stock/batches
func (h *StockHandler) ListBatches(c *gin.Context) {
	var query dto.BatchListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	batches, err := h.service.ListBatches(c.Request.Context(), query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockBatchResponse, len(batches))
	for i, b := range batches {
		items[i] = dto.FromStockBatch(b)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetBatch handles GET /registers/stock/batches/:id
func (h *StockHandler) GetBatch(c *gin.Context) {
	batchID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	batch, err := h.service.GetBatch(c.Request.Context(), batchID)
	if err != nil {
		h.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.FromStockBatch(batch))
}

// GetAvailability handles GET /registers/stock/availability
func (h *StockHandler) GetAvailability(c *gin.Context) {
	var query dto.AvailabilityQuery
	if !h.BindQuery(c, &query) {
		return
	}

	productID, err := id.Parse(query.ProductID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}
	warehouseID, err := id.Parse(query.WarehouseID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return
	}

	balance, err := h.service.GetBalance(c.Request.Context(), warehouseID, productID)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.AvailabilityResponse{
		ProductID:   productID.String(),
		WarehouseID: warehouseID.String(),
		Available:   balance.Available,
		Committed:   balance.Committed,
	}
	if query.Quantity.IsPositive() {
		sufficient := balance.Available >= query.Quantity
		resp.Sufficient = &sufficient
	}

	c.JSON(http.StatusOK, resp)
}

// GetWarehouseBalances handles GET /registers/stock/balances/:warehouseId
func (h *StockHandler) GetWarehouseBalances(c *gin.Context) {
	warehouseID, err := id.Parse(c.Param("warehouseId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid warehouseId format"))
		return
	}

	balances, err := h.service.GetWarehouseStock(c.Request.Context(), warehouseID)
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockBalanceResponse, len(balances))
	for i, b := range balances {
		items[i] = dto.FromStockBalance(b)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetMovements handles GET /registers/stock/movements/:productId
func (h *StockHandler) GetMovements(c *gin.Context) {
	productID, err := id.Parse(c.Param("productId"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid productId format"))
		return
	}

	var query dto.MovementListQuery
	if !h.BindQuery(c, &query) {
		return
	}

	movements, err := h.repo.GetMovementHistory(c.Request.Context(), productID, query.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.StockMovementResponse, len(movements))
	for i, m := range movements {
		items[i] = dto.FromStockMovement(m)
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}
