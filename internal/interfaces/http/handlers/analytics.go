// internal/interfaces/http/handlers/analytics.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/domain/analytics"
)

// AnalyticsHandler handles dashboard and sales report endpoints
type AnalyticsHandler struct {
	analyticsService *analytics.Service
	logger           *logrus.Logger
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *analytics.Service, logger *logrus.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		analyticsService: analyticsService,
		logger:           logger,
	}
}

// GetDashboard handles GET /reports/dashboard
func (h *AnalyticsHandler) GetDashboard(c *gin.Context) {
	stats, err := h.analyticsService.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Dashboard retrieved successfully", stats)
}

// GetSalesAnalytics handles GET /reports/sales?days=N
func (h *AnalyticsHandler) GetSalesAnalytics(c *gin.Context) {
	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid days",
				"message": "days must be a positive integer",
			})
			return
		}
		days = parsed
	}

	report, err := h.analyticsService.GetSalesAnalytics(c.Request.Context(), days)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sales analytics retrieved successfully", report)
}
