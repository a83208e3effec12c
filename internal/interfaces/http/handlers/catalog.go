// internal/interfaces/http/handlers/catalog.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/interfaces/http/middleware"
)

// CatalogHandler handles categories, products and trading partners
type CatalogHandler struct {
	catalogService *catalog.Service
	logger         *logrus.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalogService *catalog.Service, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// CATEGORY ENDPOINTS

// CreateCategory handles POST /categories
func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req catalog.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.catalogService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Category created successfully", category)
}

// UpdateCategory handles PUT /categories/:id
func (h *CatalogHandler) UpdateCategory(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	var req catalog.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	category, err := h.catalogService.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Category updated successfully", category)
}

// GetCategory handles GET /categories/:id
func (h *CatalogHandler) GetCategory(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	category, err := h.catalogService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Category retrieved successfully", category)
}

// ListCategories handles GET /categories
func (h *CatalogHandler) ListCategories(c *gin.Context) {
	categories, err := h.catalogService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Categories retrieved successfully", categories)
}

// PRODUCT ENDPOINTS

// CreateProduct handles POST /products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req catalog.ProductCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Product created successfully", product)
}

// GetProduct handles GET /products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	product, err := h.catalogService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Product retrieved successfully", product)
}

// ListProducts handles GET /products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var req catalog.ProductListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.catalogService.ListProducts(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Products retrieved successfully", result)
}

// UpdateProduct handles PUT /products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	var req catalog.ProductUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Product updated successfully", product)
}

// UpdateAttributes handles PATCH /products/:id/attributes. Keys are merged
// into the existing document unless ?replace=true.
func (h *CatalogHandler) UpdateAttributes(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	var attributes map[string]interface{}
	if err := c.ShouldBindJSON(&attributes); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := h.catalogService.UpdateAttributes(c.Request.Context(), id, attributes, c.Query("replace") == "true")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Product attributes updated successfully", product)
}

// SetProductActive handles PATCH /products/:id/active
func (h *CatalogHandler) SetProductActive(c *gin.Context) {
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

	product, err := h.catalogService.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Product status updated successfully", product)
}

// LowStockProducts handles GET /products/low-stock
func (h *CatalogHandler) LowStockProducts(c *gin.Context) {
	products, err := h.catalogService.LowStockProducts(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Low stock products retrieved successfully", products)
}

// PARTNER ENDPOINTS

// CreateBrand handles POST /brands
func (h *CatalogHandler) CreateBrand(c *gin.Context) {
	var req catalog.BrandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	brand, err := h.catalogService.CreateBrand(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Brand created successfully", brand)
}

// ListBrands handles GET /brands
func (h *CatalogHandler) ListBrands(c *gin.Context) {
	brands, err := h.catalogService.ListBrands(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Brands retrieved successfully", brands)
}

// CreateCompany handles POST /companies
func (h *CatalogHandler) CreateCompany(c *gin.Context) {
	var req catalog.CompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	company, err := h.catalogService.CreateCompany(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Company created successfully", company)
}

// ListCompanies handles GET /companies
func (h *CatalogHandler) ListCompanies(c *gin.Context) {
	companies, err := h.catalogService.ListCompanies(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Companies retrieved successfully", companies)
}

// CreateSupplier handles POST /suppliers
func (h *CatalogHandler) CreateSupplier(c *gin.Context) {
	var req catalog.SupplierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	supplier, err := h.catalogService.CreateSupplier(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Supplier created successfully", supplier)
}

// GetSupplier handles GET /suppliers/:id
func (h *CatalogHandler) GetSupplier(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	supplier, err := h.catalogService.GetSupplier(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	count, err := h.catalogService.SupplierProductCount(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Supplier retrieved successfully", catalog.SupplierSummary{Supplier: *supplier, ProductCount: count})
}

// ListSuppliers handles GET /suppliers
func (h *CatalogHandler) ListSuppliers(c *gin.Context) {
	suppliers, err := h.catalogService.ListSuppliers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Suppliers retrieved successfully", suppliers)
}

// CreateCustomer handles POST /customers
func (h *CatalogHandler) CreateCustomer(c *gin.Context) {
	var req catalog.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	customer, err := h.catalogService.CreateCustomer(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Customer created successfully", customer)
}

// GetCustomer handles GET /customers/:id
func (h *CatalogHandler) GetCustomer(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	customer, err := h.catalogService.GetCustomer(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Customer retrieved successfully", customer)
}

// ListCustomers handles GET /customers?search=
func (h *CatalogHandler) ListCustomers(c *gin.Context) {
	customers, err := h.catalogService.ListCustomers(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Customers retrieved successfully", customers)
}

// CreatePaymentMethod handles POST /payment-methods
func (h *CatalogHandler) CreatePaymentMethod(c *gin.Context) {
	var req catalog.PaymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	method, err := h.catalogService.CreatePaymentMethod(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Payment method created successfully",
		"data":    method,
	})
}

// ListPaymentMethods handles GET /payment-methods
func (h *CatalogHandler) ListPaymentMethods(c *gin.Context) {
	methods, err := h.catalogService.ListPaymentMethods(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Payment methods retrieved successfully", methods)
}
