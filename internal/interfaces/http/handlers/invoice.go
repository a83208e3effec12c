// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/domain/invoice"
	"github.com/your-org/stationery-backend/internal/interfaces/http/middleware"
)

// InvoiceHandler handles invoice endpoints
type InvoiceHandler struct {
	invoiceService *invoice.Service
	logger         *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(invoiceService *invoice.Service, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		invoiceService: invoiceService,
		logger:         logger,
	}
}

// bindIssue accepts an empty body as "all defaults"
func bindIssue(c *gin.Context) (*invoice.IssueRequest, bool) {
	var req invoice.IssueRequest
	if c.Request.ContentLength == 0 {
		return &req, true
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return nil, false
	}
	return &req, true
}

// PURCHASE INVOICES

// IssuePurchaseInvoice handles POST /purchases/:id/invoice
func (h *InvoiceHandler) IssuePurchaseInvoice(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}
	req, valid := bindIssue(c)
	if !valid {
		return
	}

	inv, err := h.invoiceService.IssuePurchaseInvoice(c.Request.Context(), id, req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Purchase invoice issued successfully", inv)
}

// GetPurchaseInvoice handles GET /invoices/purchases/:id
func (h *InvoiceHandler) GetPurchaseInvoice(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	inv, err := h.invoiceService.GetPurchaseInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase invoice retrieved successfully", inv)
}

// ListPurchaseInvoices handles GET /invoices/purchases?status=
func (h *InvoiceHandler) ListPurchaseInvoices(c *gin.Context) {
	invoices, err := h.invoiceService.ListPurchaseInvoices(c.Request.Context(), invoice.DueStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase invoices retrieved successfully", invoices)
}

// DownloadPurchaseInvoice handles GET /invoices/purchases/:id/pdf
func (h *InvoiceHandler) DownloadPurchaseInvoice(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	rendered, err := h.invoiceService.RenderPurchasePDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	servePDF(c, rendered)
}

// EmailPurchaseInvoice handles POST /invoices/purchases/:id/email
func (h *InvoiceHandler) EmailPurchaseInvoice(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.invoiceService.SendPurchaseInvoice(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Purchase invoice sent successfully", gin.H{"id": id})
}

// SALE INVOICES

// IssueSaleInvoice handles POST /sales/:id/invoice
func (h *InvoiceHandler) IssueSaleInvoice(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}
	req, valid := bindIssue(c)
	if !valid {
		return
	}

	inv, err := h.invoiceService.IssueSaleInvoice(c.Request.Context(), id, req, middleware.UserIDPtr(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	created(c, "Sale invoice issued successfully", inv)
}

// GetSaleInvoice handles GET /invoices/sales/:id
func (h *InvoiceHandler) GetSaleInvoice(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	inv, err := h.invoiceService.GetSaleInvoice(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale invoice retrieved successfully", inv)
}

// ListSaleInvoices handles GET /invoices/sales?status=
func (h *InvoiceHandler) ListSaleInvoices(c *gin.Context) {
	invoices, err := h.invoiceService.ListSaleInvoices(c.Request.Context(), invoice.DueStatus(c.Query("status")))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale invoices retrieved successfully", invoices)
}

// ListOverdueSaleInvoices handles GET /invoices/sales/overdue
func (h *InvoiceHandler) ListOverdueSaleInvoices(c *gin.Context) {
	invoices, err := h.invoiceService.ListOverdueSaleInvoices(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Overdue sale invoices retrieved successfully", invoices)
}

// DownloadSaleInvoice handles GET /invoices/sales/:id/pdf
func (h *InvoiceHandler) DownloadSaleInvoice(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	rendered, err := h.invoiceService.RenderSalePDF(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	servePDF(c, rendered)
}

// EmailSaleInvoice handles POST /invoices/sales/:id/email
func (h *InvoiceHandler) EmailSaleInvoice(c *gin.Context) {
	id, valid := parseID(c, "id")
	if !valid {
		return
	}

	if err := h.invoiceService.SendSaleInvoice(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	ok(c, "Sale invoice sent successfully", gin.H{"id": id})
}

func servePDF(c *gin.Context, rendered *invoice.Rendered) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rendered.Filename))
	c.Data(http.StatusOK, "application/pdf", rendered.Content)
}
