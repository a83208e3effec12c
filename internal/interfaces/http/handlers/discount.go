// internal/interfaces/http/handlers/discount.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/pricing"
)

// DiscountHandler handles discount endpoints
type DiscountHandler struct {
	pricingService *pricing.Service
	catalogService *catalog.Service
	logger         *logrus.Logger
}

// NewDiscountHandler creates a new discount handler
func NewDiscountHandler(pricingService *pricing.Service, catalogService *catalog.Service, logger *logrus.Logger) *DiscountHandler {
	return &DiscountHandler{
		pricingService: pricingService,
		catalogService: catalogService,
		logger:         logger,
	}
}

// CreateDiscount handles POST /discounts
func (h *DiscountHandler) CreateDiscount(c *gin.Context) {
	var req pricing.DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	discount, err := h.pricingService.CreateDiscount(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Discount created successfully", discount)
}

// UpdateDiscount handles PUT /discounts/:id
func (h *DiscountHandler) UpdateDiscount(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	var req pricing.DiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	discount, err := h.pricingService.UpdateDiscount(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Discount updated successfully", discount)
}

// GetDiscount handles GET /discounts/:id
func (h *DiscountHandler) GetDiscount(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	discount, err := h.pricingService.GetDiscount(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	count, err := h.pricingService.ApplicableProductCount(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Discount retrieved successfully", gin.H{
		"discount":      discount,
		"product_count": count,
	})
}

// ListDiscounts handles GET /discounts?active=true
func (h *DiscountHandler) ListDiscounts(c *gin.Context) {
	discounts, err := h.pricingService.ListDiscounts(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Discounts retrieved successfully", discounts)
}

// SetDiscountActive handles PATCH /discounts/:id/active
func (h *DiscountHandler) SetDiscountActive(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	discount, err := h.pricingService.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Discount status updated successfully", discount)
}

// ApplicableProducts handles GET /discounts/:id/products
func (h *DiscountHandler) ApplicableProducts(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	products, err := h.pricingService.ApplicableProducts(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Applicable products retrieved successfully", products)
}

// BestForProduct handles GET /products/:id/best-discount
func (h *DiscountHandler) BestForProduct(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	price := product.SalePrice
	if raw := c.Query("price"); raw != "" {
		price, err = decimal.NewFromString(raw)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid price",
			})
			return
		}
	}

	discount, err := h.pricingService.BestDiscountFor(c.Request.Context(), product, price)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	result := gin.H{
		"product_id":  product.ID,
		"price":       price,
		"discount":    discount,
		"final_price": price,
	}
	if discount != nil {
		result["final_price"] = discount.FinalPrice(price)
	}
	ok(c, "Best discount resolved", result)
}
