// internal/interfaces/http/handlers/inventory.go
package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/interfaces/http/middleware"
	"github.com/your-org/stationery-backend/internal/pkg/export"
)

// InventoryHandler handles the stock ledger endpoints
type InventoryHandler struct {
	ledgerService *ledger.Service
	config        *config.Config
	logger        *logrus.Logger
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(ledgerService *ledger.Service, cfg *config.Config, logger *logrus.Logger) *InventoryHandler {
	return &InventoryHandler{
		ledgerService: ledgerService,
		config:        cfg,
		logger:        logger,
	}
}

// MOVEMENT ENDPOINTS

// ListMovements handles GET /inventory/movements
func (h *InventoryHandler) ListMovements(c *gin.Context) {
	var filter ledger.MovementFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.ledgerService.Movements(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Stock movements retrieved successfully", result)
}

// Adjust handles POST /inventory/adjustments
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req ledger.AdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	movement, err := h.ledgerService.Adjust(c.Request.Context(), &req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Stock adjusted successfully", movement)
}

// Count handles POST /inventory/counts
func (h *InventoryHandler) Count(c *gin.Context) {
	var req ledger.StockCountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	movement, err := h.ledgerService.AdjustTo(c.Request.Context(), &req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Stock count recorded successfully", movement)
}

// Reconcile handles GET /inventory/products/:id/reconcile
func (h *InventoryHandler) Reconcile(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.ledgerService.Reconcile(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Stock matches the ledger", gin.H{"product_id": id, "consistent": true})
}

// ALERT ENDPOINTS

// ListAlerts handles GET /inventory/alerts
func (h *InventoryHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.ledgerService.OpenAlerts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Stock alerts retrieved successfully", alerts)
}

// ResolveAlert handles POST /inventory/alerts/:id/resolve
func (h *InventoryHandler) ResolveAlert(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.ledgerService.ResolveAlert(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Stock alert resolved successfully", gin.H{"id": id})
}

// REPORT ENDPOINTS

// ExportMovementsCSV handles GET /reports/movements.csv
func (h *InventoryHandler) ExportMovementsCSV(c *gin.Context) {
	rows, valid := h.movementRows(c)
	if !valid {
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename("csv")))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := export.WriteCSV(c.Writer, rows); err != nil {
		h.logger.WithError(err).Error("Failed to write movements CSV")
	}
}

// ExportMovementsXLSX handles GET /reports/movements.xlsx
func (h *InventoryHandler) ExportMovementsXLSX(c *gin.Context) {
	rows, valid := h.movementRows(c)
	if !valid {
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exportFilename("xlsx")))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := export.WriteXLSX(c.Writer, rows); err != nil {
		h.logger.WithError(err).Error("Failed to write movements workbook")
	}
}

func (h *InventoryHandler) movementRows(c *gin.Context) ([]*export.MovementRow, bool) {
	var filter ledger.MovementFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		respondBindError(c, err)
		return nil, false
	}

	movements, err := h.ledgerService.AllMovements(c.Request.Context(), &filter)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}

	return export.MovementRows(movements, h.config.Location()), true
}

func exportFilename(ext string) string {
	return fmt.Sprintf("stock-movements-%s.%s", time.Now().UTC().Format("20060102"), ext)
}
