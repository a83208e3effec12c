// internal/interfaces/http/handlers/purchase.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/interfaces/http/middleware"
)

// TradeHandler handles purchases, sales and their returns
type TradeHandler struct {
	tradeService *trade.Service
	logger       *logrus.Logger
}

// NewTradeHandler creates a new trade handler
func NewTradeHandler(tradeService *trade.Service, logger *logrus.Logger) *TradeHandler {
	return &TradeHandler{
		tradeService: tradeService,
		logger:       logger,
	}
}

// PURCHASE ENDPOINTS

// CreatePurchase handles POST /purchases
func (h *TradeHandler) CreatePurchase(c *gin.Context) {
	var req trade.CreatePurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	purchase, err := h.tradeService.CreatePurchase(c.Request.Context(), &req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Purchase created successfully", purchase)
}

// AddPurchaseLine handles POST /purchases/:id/lines
func (h *TradeHandler) AddPurchaseLine(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	var req trade.PurchaseLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	detail, movement, err := h.tradeService.CreatePurchaseLine(c.Request.Context(), id, &req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Purchase line added successfully", gin.H{
		"detail":   detail,
		"movement": movement,
	})
}

// GetPurchase handles GET /purchases/:id
func (h *TradeHandler) GetPurchase(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	purchase, err := h.tradeService.GetPurchase(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase retrieved successfully", purchase)
}

// ListPurchases handles GET /purchases
func (h *TradeHandler) ListPurchases(c *gin.Context) {
	var req trade.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.tradeService.ListPurchases(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchases retrieved successfully", result)
}

// ReceivePurchase handles POST /purchases/:id/receive
func (h *TradeHandler) ReceivePurchase(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	purchase, err := h.tradeService.MarkPurchaseReceived(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase marked as received", purchase)
}

// CancelPurchase handles POST /purchases/:id/cancel
func (h *TradeHandler) CancelPurchase(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	purchase, err := h.tradeService.CancelPurchase(c.Request.Context(), id, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase cancelled successfully", purchase)
}

// BatchReceivePurchases handles POST /purchases/batch/receive
func (h *TradeHandler) BatchReceivePurchases(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ok(c, "Batch processed", h.tradeService.MarkPurchasesReceived(c.Request.Context(), req.IDs))
}

// BatchCancelPurchases handles POST /purchases/batch/cancel
func (h *TradeHandler) BatchCancelPurchases(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	ok(c, "Batch processed", h.tradeService.CancelPurchases(c.Request.Context(), req.IDs, middleware.UserIDPtr(c)))
}

// VerifyPurchase handles GET /purchases/:id/verify
func (h *TradeHandler) VerifyPurchase(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.tradeService.VerifyPurchaseLedger(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase matches the ledger", gin.H{"purchase_id": id, "consistent": true})
}
