// internal/interfaces/http/handlers/sale.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/interfaces/http/middleware"
)

// SALE ENDPOINTS

// CreateSale handles POST /sales
func (h *TradeHandler) CreateSale(c *gin.Context) {
	var req trade.CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	sale, err := h.tradeService.CreateSale(c.Request.Context(), &req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Sale created successfully", sale)
}

// AddSaleLine handles POST /sales/:id/lines
func (h *TradeHandler) AddSaleLine(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	var req trade.SaleLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	detail, movement, err := h.tradeService.CreateSaleLine(c.Request.Context(), id, &req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Sale line added successfully", gin.H{
		"detail":   detail,
		"movement": movement,
	})
}

// GetSale handles GET /sales/:id
func (h *TradeHandler) GetSale(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	sale, err := h.tradeService.GetSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale retrieved successfully", sale)
}

// ListSales handles GET /sales
func (h *TradeHandler) ListSales(c *gin.Context) {
	var req trade.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.tradeService.ListSales(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sales retrieved successfully", result)
}

// PaySale handles POST /sales/:id/pay
func (h *TradeHandler) PaySale(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	sale, err := h.tradeService.MarkSalePaid(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale marked as paid", sale)
}

// RefundSale handles POST /sales/:id/refund
func (h *TradeHandler) RefundSale(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	sale, err := h.tradeService.RefundSale(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale refunded successfully", sale)
}

// CancelSale handles POST /sales/:id/cancel
func (h *TradeHandler) CancelSale(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	sale, err := h.tradeService.CancelSale(c.Request.Context(), id, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale cancelled successfully", sale)
}

// BatchPaySales handles POST /sales/batch/pay
func (h *TradeHandler) BatchPaySales(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ok(c, "Batch processed", h.tradeService.MarkSalesPaid(c.Request.Context(), req.IDs))
}

// BatchCancelSales handles POST /sales/batch/cancel
func (h *TradeHandler) BatchCancelSales(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ok(c, "Batch processed", h.tradeService.CancelSales(c.Request.Context(), req.IDs, middleware.UserIDPtr(c)))
}

// VerifySale handles GET /sales/:id/verify
func (h *TradeHandler) VerifySale(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.tradeService.VerifySaleLedger(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale matches the ledger", gin.H{"sale_id": id, "consistent": true})
}
