// internal/interfaces/http/routes/routes.go
package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/interfaces/http/handlers"
	"github.com/your-org/stationery-backend/internal/interfaces/http/middleware"
)

// Handlers groups every HTTP handler mounted under the API prefix
type Handlers struct {
	Catalog   *handlers.CatalogHandler
	Inventory *handlers.InventoryHandler
	Trade     *handlers.TradeHandler
	Discount  *handlers.DiscountHandler
	Invoice   *handlers.InvoiceHandler
	Analytics *handlers.AnalyticsHandler
}

// SetupRoutes mounts all API routes. Every route requires a staff token.
func SetupRoutes(rg *gin.RouterGroup, h *Handlers, cfg *config.Config) {
	rg.Use(middleware.AuthMiddleware(cfg))

	SetupCatalogRoutes(rg, h)
	SetupInventoryRoutes(rg, h)
	SetupPurchaseRoutes(rg, h)
	SetupSaleRoutes(rg, h)
	SetupReturnRoutes(rg, h)
	SetupDiscountRoutes(rg, h)
	SetupInvoiceRoutes(rg, h)
}

// SetupCatalogRoutes sets up category, product and partner routes
func SetupCatalogRoutes(rg *gin.RouterGroup, h *Handlers) {
	categories := rg.Group("/categories")
	{
		categories.GET("", h.Catalog.ListCategories)
		categories.GET("/:id", h.Catalog.GetCategory)
		categories.POST("", middleware.AdminMiddleware(), h.Catalog.CreateCategory)
		categories.PUT("/:id", middleware.AdminMiddleware(), h.Catalog.UpdateCategory)
	}

	products := rg.Group("/products")
	{
		products.GET("", h.Catalog.ListProducts)
		products.GET("/low-stock", h.Catalog.LowStockProducts)
		products.GET("/:id", h.Catalog.GetProduct)
		products.GET("/:id/best-discount", h.Discount.BestForProduct)
		products.POST("", h.Catalog.CreateProduct)
		products.PUT("/:id", h.Catalog.UpdateProduct)
		products.PATCH("/:id/attributes", h.Catalog.UpdateAttributes)
		products.PATCH("/:id/active", middleware.AdminMiddleware(), h.Catalog.SetProductActive)
	}

	rg.GET("/brands", h.Catalog.ListBrands)
	rg.POST("/brands", h.Catalog.CreateBrand)
	rg.GET("/companies", h.Catalog.ListCompanies)
	rg.POST("/companies", h.Catalog.CreateCompany)

	suppliers := rg.Group("/suppliers")
	{
		suppliers.GET("", h.Catalog.ListSuppliers)
		suppliers.GET("/:id", h.Catalog.GetSupplier)
		suppliers.POST("", h.Catalog.CreateSupplier)
	}

	customers := rg.Group("/customers")
	{
		customers.GET("", h.Catalog.ListCustomers)
		customers.GET("/:id", h.Catalog.GetCustomer)
		customers.POST("", h.Catalog.CreateCustomer)
	}

	rg.GET("/payment-methods", h.Catalog.ListPaymentMethods)
	rg.POST("/payment-methods", middleware.AdminMiddleware(), h.Catalog.CreatePaymentMethod)
}

// SetupInventoryRoutes sets up ledger, alert and report routes
func SetupInventoryRoutes(rg *gin.RouterGroup, h *Handlers) {
	inventory := rg.Group("/inventory")
	{
		inventory.GET("/movements", h.Inventory.ListMovements)
		inventory.GET("/products/:id/reconcile", h.Inventory.Reconcile)
		inventory.GET("/alerts", h.Inventory.ListAlerts)
		inventory.POST("/alerts/:id/resolve", h.Inventory.ResolveAlert)

		adjustments := inventory.Group("")
		adjustments.Use(middleware.AdminMiddleware())
		{
			adjustments.POST("/adjustments", h.Inventory.Adjust)
			adjustments.POST("/counts", h.Inventory.Count)
		}
	}

	reports := rg.Group("/reports")
	{
		reports.GET("/movements.csv", h.Inventory.ExportMovementsCSV)
		reports.GET("/movements.xlsx", h.Inventory.ExportMovementsXLSX)
		reports.GET("/dashboard", h.Analytics.GetDashboard)
		reports.GET("/sales", h.Analytics.GetSalesAnalytics)
	}
}

// SetupPurchaseRoutes sets up purchase routes
func SetupPurchaseRoutes(rg *gin.RouterGroup, h *Handlers) {
	purchases := rg.Group("/purchases")
	{
		purchases.GET("", h.Trade.ListPurchases)
		purchases.POST("", h.Trade.CreatePurchase)
		purchases.GET("/:id", h.Trade.GetPurchase)
		purchases.POST("/:id/lines", h.Trade.AddPurchaseLine)
		purchases.POST("/:id/receive", h.Trade.ReceivePurchase)
		purchases.POST("/:id/cancel", h.Trade.CancelPurchase)
		purchases.GET("/:id/verify", h.Trade.VerifyPurchase)
		purchases.POST("/:id/invoice", h.Invoice.IssuePurchaseInvoice)
		purchases.POST("/batch/receive", h.Trade.BatchReceivePurchases)
		purchases.POST("/batch/cancel", middleware.AdminMiddleware(), h.Trade.BatchCancelPurchases)
	}
}

// SetupSaleRoutes sets up sale routes
func SetupSaleRoutes(rg *gin.RouterGroup, h *Handlers) {
	sales := rg.Group("/sales")
	{
		sales.GET("", h.Trade.ListSales)
		sales.POST("", h.Trade.CreateSale)
		sales.GET("/:id", h.Trade.GetSale)
		sales.POST("/:id/lines", h.Trade.AddSaleLine)
		sales.POST("/:id/pay", h.Trade.PaySale)
		sales.POST("/:id/refund", middleware.AdminMiddleware(), h.Trade.RefundSale)
		sales.POST("/:id/cancel", h.Trade.CancelSale)
		sales.GET("/:id/verify", h.Trade.VerifySale)
		sales.POST("/:id/invoice", h.Invoice.IssueSaleInvoice)
		sales.POST("/batch/pay", h.Trade.BatchPaySales)
		sales.POST("/batch/cancel", middleware.AdminMiddleware(), h.Trade.BatchCancelSales)
	}
}

// SetupReturnRoutes sets up purchase and sale return routes. Decisions are admin only.
func SetupReturnRoutes(rg *gin.RouterGroup, h *Handlers) {
	purchaseReturns := rg.Group("/purchase-returns")
	{
		purchaseReturns.GET("", h.Trade.ListPurchaseReturns)
		purchaseReturns.POST("", h.Trade.CreatePurchaseReturn)
		purchaseReturns.GET("/:id", h.Trade.GetPurchaseReturn)
		purchaseReturns.POST("/:id/approve", middleware.AdminMiddleware(), h.Trade.ApprovePurchaseReturn)
		purchaseReturns.POST("/:id/reject", middleware.AdminMiddleware(), h.Trade.RejectPurchaseReturn)
	}

	saleReturns := rg.Group("/sale-returns")
	{
		saleReturns.GET("", h.Trade.ListSaleReturns)
		saleReturns.POST("", h.Trade.CreateSaleReturn)
		saleReturns.GET("/:id", h.Trade.GetSaleReturn)
		saleReturns.POST("/:id/approve", middleware.AdminMiddleware(), h.Trade.ApproveSaleReturn)
		saleReturns.POST("/:id/reject", middleware.AdminMiddleware(), h.Trade.RejectSaleReturn)
	}
}

// SetupDiscountRoutes sets up discount routes
func SetupDiscountRoutes(rg *gin.RouterGroup, h *Handlers) {
	discounts := rg.Group("/discounts")
	{
		discounts.GET("", h.Discount.ListDiscounts)
		discounts.GET("/:id", h.Discount.GetDiscount)
		discounts.GET("/:id/products", h.Discount.ApplicableProducts)

		manage := discounts.Group("")
		manage.Use(middleware.AdminMiddleware())
		{
			manage.POST("", h.Discount.CreateDiscount)
			manage.PUT("/:id", h.Discount.UpdateDiscount)
			manage.PATCH("/:id/active", h.Discount.SetDiscountActive)
		}
	}
}

// SetupInvoiceRoutes sets up invoice routes
func SetupInvoiceRoutes(rg *gin.RouterGroup, h *Handlers) {
	invoices := rg.Group("/invoices")
	{
		invoices.GET("/purchases", h.Invoice.ListPurchaseInvoices)
		invoices.GET("/purchases/:id", h.Invoice.GetPurchaseInvoice)
		invoices.GET("/purchases/:id/pdf", h.Invoice.DownloadPurchaseInvoice)
		invoices.POST("/purchases/:id/email", h.Invoice.EmailPurchaseInvoice)

		invoices.GET("/sales", h.Invoice.ListSaleInvoices)
		invoices.GET("/sales/overdue", h.Invoice.ListOverdueSaleInvoices)
		invoices.GET("/sales/:id", h.Invoice.GetSaleInvoice)
		invoices.GET("/sales/:id/pdf", h.Invoice.DownloadSaleInvoice)
		invoices.POST("/sales/:id/email", h.Invoice.EmailSaleInvoice)
	}
}
