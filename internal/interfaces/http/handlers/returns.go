// internal/interfaces/http/handlers/returns.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/interfaces/http/middleware"
)

// RETURN ENDPOINTS

// CreatePurchaseReturn handles POST /purchase-returns
func (h *TradeHandler) CreatePurchaseReturn(c *gin.Context) {
	var req trade.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ret, err := h.tradeService.CreatePurchaseReturn(c.Request.Context(), &req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Purchase return requested", ret)
}

// ListPurchaseReturns handles GET /purchase-returns
func (h *TradeHandler) ListPurchaseReturns(c *gin.Context) {
	var req trade.ReturnListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	returns, err := h.tradeService.ListPurchaseReturns(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase returns retrieved successfully", returns)
}

// GetPurchaseReturn handles GET /purchase-returns/:id
func (h *TradeHandler) GetPurchaseReturn(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	ret, err := h.tradeService.GetPurchaseReturn(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase return retrieved successfully", ret)
}

// ApprovePurchaseReturn handles POST /purchase-returns/:id/approve
func (h *TradeHandler) ApprovePurchaseReturn(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	ret, err := h.tradeService.ApprovePurchaseReturn(c.Request.Context(), id, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase return approved", ret)
}

// RejectPurchaseReturn handles POST /purchase-returns/:id/reject
func (h *TradeHandler) RejectPurchaseReturn(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	ret, err := h.tradeService.RejectPurchaseReturn(c.Request.Context(), id, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase return rejected", ret)
}

// CreateSaleReturn handles POST /sale-returns
func (h *TradeHandler) CreateSaleReturn(c *gin.Context) {
	var req trade.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ret, err := h.tradeService.CreateSaleReturn(c.Request.Context(), &req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Sale return requested", ret)
}

// ListSaleReturns handles GET /sale-returns
func (h *TradeHandler) ListSaleReturns(c *gin.Context) {
	var req trade.ReturnListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	returns, err := h.tradeService.ListSaleReturns(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale returns retrieved successfully", returns)
}

// GetSaleReturn handles GET /sale-returns/:id
func (h *TradeHandler) GetSaleReturn(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	ret, err := h.tradeService.GetSaleReturn(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale return retrieved successfully", ret)
}

// ApproveSaleReturn handles POST /sale-returns/:id/approve
func (h *TradeHandler) ApproveSaleReturn(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	ret, err := h.tradeService.ApproveSaleReturn(c.Request.Context(), id, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale return approved", ret)
}

// RejectSaleReturn handles POST /sale-returns/:id/reject
func (h *TradeHandler) RejectSaleReturn(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	ret, err := h.tradeService.RejectSaleReturn(c.Request.Context(), id, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale return rejected", ret)
}
