// internal/domain/invoice/service.go
package invoice

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/pricing"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/email"
	"github.com/your-org/stationery-backend/internal/pkg/metrics"
	"github.com/your-org/stationery-backend/internal/pkg/pdf"
	"github.com/your-org/stationery-backend/internal/pkg/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	purchasePrefix = "PINV"
	salePrefix     = "SINV"
)

// Renderer turns an invoice document into a PDF
type Renderer interface {
	GenerateInvoice(doc *pdf.Document) (*bytes.Buffer, error)
}

// Mailer delivers invoice PDFs
type Mailer interface {
	Enabled() bool
	SendInvoiceEmail(ctx context.Context, to string, kind email.EmailType, data email.InvoiceEmailData, pdf []byte) error
}

// Service handles purchase and sale invoices
type Service struct {
	db       *gorm.DB
	config   *config.Config
	logger   *logrus.Logger
	renderer Renderer
	mailer   Mailer
}

// NewService creates a new invoice service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, renderer Renderer, mailer Mailer) *Service {
	return &Service{
		db:       db,
		config:   cfg,
		logger:   logger,
		renderer: renderer,
		mailer:   mailer,
	}
}

// IssueRequest represents invoice issue data. Dates default to today and today plus the configured due days.
type IssueRequest struct {
	InvoiceNumber string     `json:"invoice_number" binding:"omitempty,max=50"`
	IssueDate     *time.Time `json:"issue_date"`
	DueDate       *time.Time `json:"due_date"`
	Notes         string     `json:"notes"`
}

// Rendered is a generated invoice file
type Rendered struct {
	Filename string
	Content  []byte
}

// IssuePurchaseInvoice issues the invoice of a purchase, copying its amounts
func (s *Service) IssuePurchaseInvoice(ctx context.Context, purchaseID uint, req *IssueRequest, userID *uint) (*PurchaseInvoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	issueDate, dueDate, err := s.resolveDates(req)
	if err != nil {
		return nil, err
	}

	invoice := &PurchaseInvoice{
		PurchaseID: purchaseID,
		IssueDate:  issueDate,
		DueDate:    dueDate,
		Discount:   decimal.Zero,
		Notes:      req.Notes,
		CreatedBy:  userID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var purchase trade.Purchase
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&purchase, purchaseID).Error; err != nil {
			return apperror.FromDB(err, "purchase", purchaseID)
		}
		if purchase.Status == trade.PurchaseStatusCancelled {
			return apperror.StateTransition("purchase %d is cancelled and cannot be invoiced", purchaseID)
		}
		if err := notInvoiced(tx, &PurchaseInvoice{}, "purchase_id", purchaseID, "purchase"); err != nil {
			return err
		}

		number := strings.TrimSpace(req.InvoiceNumber)
		if number == "" && purchase.InvoiceNumber != nil {
			number = *purchase.InvoiceNumber
		}
		number, err := resolveNumber(tx, &PurchaseInvoice{}, number, purchasePrefix, issueDate)
		if err != nil {
			return err
		}

		invoice.InvoiceNumber = number
		invoice.Subtotal = purchase.Total
		invoice.TotalAmount = purchase.Total
		if err := tx.Create(invoice).Error; err != nil {
			return fmt.Errorf("failed to create purchase invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.InvoicesIssuedTotal.WithLabelValues("purchase").Inc()
	s.logger.WithFields(logrus.Fields{
		"purchase_id":    purchaseID,
		"invoice_number": invoice.InvoiceNumber,
	}).Info("purchase invoice issued")

	return s.GetPurchaseInvoice(ctx, invoice.ID)
}

// IssueSaleInvoice issues the invoice of a sale, copying its amounts
func (s *Service) IssueSaleInvoice(ctx context.Context, saleID uint, req *IssueRequest, userID *uint) (*SaleInvoice, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	issueDate, dueDate, err := s.resolveDates(req)
	if err != nil {
		return nil, err
	}

	invoice := &SaleInvoice{
		SaleID:    saleID,
		IssueDate: issueDate,
		DueDate:   dueDate,
		Notes:     req.Notes,
		CreatedBy: userID,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sale trade.Sale
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, saleID).Error; err != nil {
			return apperror.FromDB(err, "sale", saleID)
		}
		if sale.Status == trade.SaleStatusCancelled {
			return apperror.StateTransition("sale %d is cancelled and cannot be invoiced", saleID)
		}
		if err := notInvoiced(tx, &SaleInvoice{}, "sale_id", saleID, "sale"); err != nil {
			return err
		}

		number, err := resolveNumber(tx, &SaleInvoice{}, strings.TrimSpace(req.InvoiceNumber), salePrefix, issueDate)
		if err != nil {
			return err
		}

		invoice.InvoiceNumber = number
		invoice.Subtotal = sale.Subtotal
		invoice.Discount = sale.Subtotal.Sub(sale.Total)
		invoice.TotalAmount = sale.Total
		if err := tx.Create(invoice).Error; err != nil {
			return fmt.Errorf("failed to create sale invoice: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.InvoicesIssuedTotal.WithLabelValues("sale").Inc()
	s.logger.WithFields(logrus.Fields{
		"sale_id":        saleID,
		"invoice_number": invoice.InvoiceNumber,
	}).Info("sale invoice issued")

	return s.GetSaleInvoice(ctx, invoice.ID)
}

// GetPurchaseInvoice retrieves a purchase invoice with its purchase, supplier and lines
func (s *Service) GetPurchaseInvoice(ctx context.Context, id uint) (*PurchaseInvoice, error) {
	var invoice PurchaseInvoice
	err := s.db.WithContext(ctx).
		Preload("Purchase.Supplier").
		Preload("Purchase.Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Purchase.Details.Product").
		First(&invoice, id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "purchase invoice", id)
	}
	return &invoice, nil
}

// GetSaleInvoice retrieves a sale invoice with its sale, customer and lines
func (s *Service) GetSaleInvoice(ctx context.Context, id uint) (*SaleInvoice, error) {
	var invoice SaleInvoice
	err := s.db.WithContext(ctx).
		Preload("Sale.Customer").
		Preload("Sale.Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Sale.Details.Product").
		First(&invoice, id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "sale invoice", id)
	}
	return &invoice, nil
}

// ListPurchaseInvoices lists purchase invoices by due date, optionally filtered by due status
func (s *Service) ListPurchaseInvoices(ctx context.Context, status DueStatus) ([]PurchaseInvoice, error) {
	var invoices []PurchaseInvoice
	if err := s.db.WithContext(ctx).Preload("Purchase.Supplier").Order("due_date ASC, id ASC").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve purchase invoices: %w", err)
	}
	if status == "" {
		return invoices, nil
	}

	today := s.today()
	filtered := make([]PurchaseInvoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.DueStatus(today) == status {
			filtered = append(filtered, inv)
		}
	}
	return filtered, nil
}

// ListSaleInvoices lists sale invoices by due date, optionally filtered by due status
func (s *Service) ListSaleInvoices(ctx context.Context, status DueStatus) ([]SaleInvoice, error) {
	var invoices []SaleInvoice
	if err := s.db.WithContext(ctx).Preload("Sale.Customer").Order("due_date ASC, id ASC").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve sale invoices: %w", err)
	}
	if status == "" {
		return invoices, nil
	}

	today := s.today()
	filtered := make([]SaleInvoice, 0, len(invoices))
	for _, inv := range invoices {
		if inv.DueStatus(today) == status {
			filtered = append(filtered, inv)
		}
	}
	return filtered, nil
}

// CountOverdueSaleInvoices counts unpaid sale invoices past their due day
func (s *Service) CountOverdueSaleInvoices(ctx context.Context) (int64, error) {
	var count int64
	if err := s.overdueSales(ctx).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count overdue invoices: %w", err)
	}
	return count, nil
}

// ListOverdueSaleInvoices lists unpaid sale invoices past their due day
func (s *Service) ListOverdueSaleInvoices(ctx context.Context) ([]SaleInvoice, error) {
	var invoices []SaleInvoice
	if err := s.overdueSales(ctx).Preload("Sale.Customer").Order("sale_invoices.due_date ASC").Find(&invoices).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve overdue invoices: %w", err)
	}
	return invoices, nil
}

func (s *Service) overdueSales(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Model(&SaleInvoice{}).
		Joins("JOIN sales ON sales.id = sale_invoices.sale_id").
		Where("sales.status = ? AND sale_invoices.due_date < ?", trade.SaleStatusPending, s.today())
}

// RenderPurchasePDF renders a purchase invoice
func (s *Service) RenderPurchasePDF(ctx context.Context, id uint) (*Rendered, error) {
	invoice, err := s.GetPurchaseInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(purchaseDocument(invoice, s.today()))
}

// RenderSalePDF renders a sale invoice
func (s *Service) RenderSalePDF(ctx context.Context, id uint) (*Rendered, error) {
	invoice, err := s.GetSaleInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.render(saleDocument(invoice, s.today()))
}

func (s *Service) render(doc *pdf.Document) (*Rendered, error) {
	buf, err := s.renderer.GenerateInvoice(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render invoice %s: %w", doc.Number, err)
	}
	return &Rendered{Filename: doc.Number + ".pdf", Content: buf.Bytes()}, nil
}

// SendPurchaseInvoice emails the purchase invoice PDF to the supplier
func (s *Service) SendPurchaseInvoice(ctx context.Context, id uint) error {
	invoice, err := s.GetPurchaseInvoice(ctx, id)
	if err != nil {
		return err
	}

	supplier := invoice.Purchase.Supplier
	if supplier == nil || supplier.Email == nil || *supplier.Email == "" {
		return apperror.Validation("email", "supplier of purchase %d has no email address", invoice.PurchaseID)
	}
	return s.send(ctx, *supplier.Email, supplier.Name, email.EmailTypePurchaseInvoice,
		purchaseDocument(invoice, s.today()))
}

// SendSaleInvoice emails the sale invoice PDF to the customer
func (s *Service) SendSaleInvoice(ctx context.Context, id uint) error {
	invoice, err := s.GetSaleInvoice(ctx, id)
	if err != nil {
		return err
	}

	customer := invoice.Sale.Customer
	if customer == nil || customer.Email == "" {
		return apperror.Validation("email", "customer of sale %d has no email address", invoice.SaleID)
	}
	return s.send(ctx, customer.Email, customer.Name, email.EmailTypeSaleInvoice,
		saleDocument(invoice, s.today()))
}

func (s *Service) send(ctx context.Context, to, name string, kind email.EmailType, doc *pdf.Document) error {
	if s.mailer == nil || !s.mailer.Enabled() {
		return apperror.StateTransition("invoice email delivery is not enabled")
	}

	rendered, err := s.render(doc)
	if err != nil {
		return err
	}

	return s.mailer.SendInvoiceEmail(ctx, to, kind, email.InvoiceEmailData{
		RecipientName: name,
		InvoiceNumber: doc.Number,
		IssueDate:     doc.IssueDate.Format("2006-01-02"),
		DueDate:       doc.DueDate.Format("2006-01-02"),
		Total:         doc.Total.StringFixed(2),
	}, rendered.Content)
}

// Helper functions

func (s *Service) today() time.Time {
	return day(time.Now().In(s.config.Location()))
}

func (s *Service) resolveDates(req *IssueRequest) (time.Time, time.Time, error) {
	loc := s.config.Location()

	issue := s.today()
	if req.IssueDate != nil && !req.IssueDate.IsZero() {
		issue = day(req.IssueDate.In(loc))
	}

	due := issue.AddDate(0, 0, s.config.Inventory.InvoiceDueDays)
	if req.DueDate != nil && !req.DueDate.IsZero() {
		due = day(req.DueDate.In(loc))
	}

	if due.Before(issue) {
		return time.Time{}, time.Time{}, apperror.Validation("due_date", "must not be before the issue date")
	}
	return issue, due, nil
}

func notInvoiced(tx *gorm.DB, model interface{}, column string, id uint, entity string) error {
	var count int64
	if err := tx.Model(model).Where(column+" = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check %s invoice: %w", entity, err)
	}
	if count > 0 {
		return apperror.StateTransition("%s %d is already invoiced", entity, id)
	}
	return nil
}

// resolveNumber checks a supplied invoice number or generates PREFIX-YYYYMMDD-NNNNN
func resolveNumber(tx *gorm.DB, model interface{}, number, prefix string, issue time.Time) (string, error) {
	if number != "" {
		var count int64
		if err := tx.Model(model).Where("invoice_number = ?", number).Count(&count).Error; err != nil {
			return "", fmt.Errorf("failed to check invoice number: %w", err)
		}
		if count > 0 {
			return "", apperror.Validation("invoice_number", "invoice number '%s' is already in use", number)
		}
		return number, nil
	}

	base := fmt.Sprintf("%s-%s-", prefix, issue.Format("20060102"))
	var taken []string
	if err := tx.Model(model).Where("invoice_number LIKE ?", base+"%").Pluck("invoice_number", &taken).Error; err != nil {
		return "", fmt.Errorf("failed to number invoice: %w", err)
	}

	// continue after the highest suffix; hand-typed numbers may skip ahead
	last := 0
	for _, n := range taken {
		seq, err := strconv.Atoi(strings.TrimPrefix(n, base))
		if err == nil && seq > last {
			last = seq
		}
	}
	return fmt.Sprintf("%s%05d", base, last+1), nil
}

func purchaseDocument(invoice *PurchaseInvoice, today time.Time) *pdf.Document {
	doc := &pdf.Document{
		Title:     "Purchase invoice",
		Number:    invoice.InvoiceNumber,
		IssueDate: invoice.IssueDate,
		DueDate:   invoice.DueDate,
		Status:    string(invoice.DueStatus(today)),
		Subtotal:  invoice.Subtotal,
		Discount:  invoice.Discount,
		Total:     invoice.TotalAmount,
		Notes:     invoice.Notes,
	}

	purchase := invoice.Purchase
	if purchase == nil {
		return doc
	}
	if supplier := purchase.Supplier; supplier != nil {
		doc.Party = pdf.Party{Label: "Supplier", Name: supplier.Name, Phone: supplier.Phone}
		if supplier.Email != nil {
			doc.Party.Email = *supplier.Email
		}
	}
	for i := range purchase.Details {
		d := &purchase.Details[i]
		doc.Lines = append(doc.Lines, pdf.Line{
			Description: productName(d.Product, d.ProductID),
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
			Total:       d.LineTotal(),
		})
	}
	return doc
}

func saleDocument(invoice *SaleInvoice, today time.Time) *pdf.Document {
	doc := &pdf.Document{
		Title:     "Sales invoice",
		Number:    invoice.InvoiceNumber,
		IssueDate: invoice.IssueDate,
		DueDate:   invoice.DueDate,
		Status:    string(invoice.DueStatus(today)),
		Subtotal:  invoice.Subtotal,
		Discount:  invoice.Discount,
		Total:     invoice.TotalAmount,
		Notes:     invoice.Notes,
	}

	sale := invoice.Sale
	if sale == nil {
		return doc
	}
	if customer := sale.Customer; customer != nil {
		doc.Party = pdf.Party{
			Label:   "Bill to",
			Name:    customer.Name,
			TaxID:   customer.DocumentNumber,
			Address: customer.Address,
			Email:   customer.Email,
			Phone:   customer.Phone,
		}
	}
	for i := range sale.Details {
		d := &sale.Details[i]
		doc.Lines = append(doc.Lines, pdf.Line{
			Description: productName(d.Product, d.ProductID),
			Quantity:    d.Quantity,
			UnitPrice:   d.UnitPrice,
			Discount:    discountLabel(d),
			Total:       d.Total(),
		})
	}
	return doc
}

func discountLabel(d *trade.SaleDetail) string {
	if d.DiscountType == nil || !d.DiscountValue.Valid {
		return ""
	}
	if *d.DiscountType == pricing.DiscountTypePercentage {
		return fmt.Sprintf("%s (%s%%)", d.DiscountName, d.DiscountValue.Decimal.String())
	}
	return fmt.Sprintf("%s (-%s)", d.DiscountName, d.DiscountValue.Decimal.StringFixed(2))
}

func productName(p *catalog.Product, id uint) string {
	if p == nil {
		return fmt.Sprintf("product %d", id)
	}
	return p.Name
}
