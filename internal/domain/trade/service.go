// internal/domain/trade/service.go
package trade

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/domain/pricing"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/metrics"
	"github.com/your-org/stationery-backend/internal/pkg/pagination"
	"github.com/your-org/stationery-backend/internal/pkg/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service handles purchases, sales and returns
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
	ledger *ledger.Service
}

// NewService creates a new trade service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, ledgerService *ledger.Service) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
		ledger: ledgerService,
	}
}

// PurchaseLineRequest represents one purchase line. UnitPrice defaults to the product's purchase price.
type PurchaseLineRequest struct {
	ProductID uint             `json:"product_id" binding:"required"`
	Quantity  int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
}

// SaleLineRequest represents one sale line. UnitPrice defaults to the product's sale price.
type SaleLineRequest struct {
	ProductID  uint             `json:"product_id" binding:"required"`
	Quantity   int              `json:"quantity" binding:"required,gt=0"`
	UnitPrice  *decimal.Decimal `json:"unit_price"`
	DiscountID *uint            `json:"discount_id"`
}

// CreatePurchaseRequest represents purchase creation data
type CreatePurchaseRequest struct {
	SupplierID    uint                  `json:"supplier_id" binding:"required"`
	InvoiceNumber string                `json:"invoice_number" binding:"omitempty,max=50"`
	PaymentMethod string                `json:"payment_method" binding:"omitempty,len=2"`
	Notes         string                `json:"notes"`
	Date          *time.Time            `json:"date"`
	Lines         []PurchaseLineRequest `json:"lines" binding:"dive"`
}

// CreateSaleRequest represents sale creation data
type CreateSaleRequest struct {
	CustomerID    uint              `json:"customer_id" binding:"required"`
	PaymentMethod string            `json:"payment_method" binding:"omitempty,len=2"`
	Notes         string            `json:"notes"`
	Date          *time.Time        `json:"date"`
	Lines         []SaleLineRequest `json:"lines" binding:"dive"`
}

// ListRequest represents purchase and sale listing filters
type ListRequest struct {
	pagination.Request
	Status     string     `form:"status"`
	PartyID    uint       `form:"party_id"`
	From       *time.Time `form:"from" time_format:"2006-01-02"`
	To         *time.Time `form:"to" time_format:"2006-01-02"`
	ProductID  uint       `form:"product_id"`
	WithDetail bool       `form:"with_detail"`
}

// PurchaseListResponse represents a page of purchases
type PurchaseListResponse struct {
	Purchases  []Purchase            `json:"purchases"`
	Pagination pagination.Pagination `json:"pagination"`
}

// SaleListResponse represents a page of sales
type SaleListResponse struct {
	Sales      []Sale                `json:"sales"`
	Pagination pagination.Pagination `json:"pagination"`
}

// BatchResult reports the outcome of a bulk action per item
type BatchResult struct {
	Succeeded []uint          `json:"succeeded"`
	Failed    map[uint]string `json:"failed"`
}

func newBatchResult() *BatchResult {
	return &BatchResult{Succeeded: []uint{}, Failed: map[uint]string{}}
}

// PURCHASES

// CreatePurchase opens a pending purchase and, if lines are given, adds them in the same transaction
func (s *Service) CreatePurchase(ctx context.Context, req *CreatePurchaseRequest, userID *uint) (*Purchase, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var movements []*ledger.StockMovement
	purchase := &Purchase{
		SupplierID:        req.SupplierID,
		Status:            PurchaseStatusPending,
		Total:             decimal.Zero,
		PaymentMethodCode: paymentCode(req.PaymentMethod),
		Notes:             req.Notes,
		CreatedBy:         userID,
		Date:              dateOrNow(req.Date),
	}
	if number := strings.TrimSpace(req.InvoiceNumber); number != "" {
		purchase.InvoiceNumber = &number
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &catalog.Supplier{}, "id = ?", req.SupplierID, "supplier"); err != nil {
			return err
		}
		if err := mustExist(tx, &catalog.PaymentMethod{}, "code = ?", purchase.PaymentMethodCode, "payment method"); err != nil {
			return err
		}
		if purchase.InvoiceNumber != nil {
			var count int64
			if err := tx.Model(&Purchase{}).Where("invoice_number = ?", *purchase.InvoiceNumber).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check invoice number: %w", err)
			}
			if count > 0 {
				return apperror.Validation("invoice_number", "purchase with invoice number '%s' already exists", *purchase.InvoiceNumber)
			}
		}

		if err := tx.Create(purchase).Error; err != nil {
			return fmt.Errorf("failed to create purchase: %w", err)
		}

		for i := range req.Lines {
			_, movement, err := s.addPurchaseLine(tx, purchase, &req.Lines[i], userID)
			if err != nil {
				return err
			}
			movements = append(movements, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledger.AfterCommit(ctx, movements...)
	metrics.TransactionsCreatedTotal.WithLabelValues("purchase").Inc()

	return s.GetPurchase(ctx, purchase.ID)
}

// CreatePurchaseLine adds a line to a pending purchase: stock goes up, the
// product's purchase price follows the unit price and one IN movement is written.
func (s *Service) CreatePurchaseLine(ctx context.Context, purchaseID uint, req *PurchaseLineRequest, userID *uint) (*PurchaseDetail, *ledger.StockMovement, error) {
	start := time.Now()
	defer func() {
		metrics.LedgerLatency.WithLabelValues("purchase_line").Observe(time.Since(start).Seconds())
	}()

	var (
		detail   *PurchaseDetail
		movement *ledger.StockMovement
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchase, err := lockPurchase(tx, purchaseID)
		if err != nil {
			return err
		}
		detail, movement, err = s.addPurchaseLine(tx, purchase, req, userID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.ledger.AfterCommit(ctx, movement)
	return detail, movement, nil
}

func (s *Service) addPurchaseLine(tx *gorm.DB, purchase *Purchase, req *PurchaseLineRequest, userID *uint) (*PurchaseDetail, *ledger.StockMovement, error) {
	if err := validation.Struct(req); err != nil {
		return nil, nil, err
	}
	if purchase.Status != PurchaseStatusPending {
		return nil, nil, apperror.StateTransition("lines can only be added to pending purchases, purchase %d is %s", purchase.ID, purchase.Status)
	}

	product, err := s.ledger.Lock(tx, req.ProductID)
	if err != nil {
		return nil, nil, err
	}

	unitPrice := product.PurchasePrice
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, nil, apperror.Validation("unit_price", "must not be negative")
		}
		unitPrice = req.UnitPrice.Round(2)
	}

	detail := &PurchaseDetail{
		PurchaseID:         purchase.ID,
		ProductID:          product.ID,
		Quantity:           req.Quantity,
		UnitPrice:          unitPrice,
		PurchaseAttributes: product.AttributesSnapshot(),
	}
	if err := tx.Create(detail).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create purchase detail: %w", err)
	}

	purchaseID, lineID := purchase.ID, detail.ID
	movement, err := s.ledger.Apply(tx, product, ledger.Entry{
		Type:     ledger.MovementTypeIn,
		Reason:   ledger.ReasonPurchase,
		Quantity: req.Quantity,
		Ref:      ledger.Reference{PurchaseID: &purchaseID, LineID: &lineID},
		By:       userID,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Model(&catalog.Product{}).Where("id = ?", product.ID).Update("purchase_price", unitPrice).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to update purchase price: %w", err)
	}
	product.PurchasePrice = unitPrice
	if !product.HasValidPrices() {
		// the line is kept; later product edits are refused until the sale price is raised
		s.logger.WithFields(logrus.Fields{
			"product_id":     product.ID,
			"purchase_id":    purchase.ID,
			"purchase_price": unitPrice.StringFixed(2),
			"sale_price":     product.SalePrice.StringFixed(2),
		}).Warn("Purchase price is above the sale price")
	}

	purchase.Total = purchase.Total.Add(detail.LineTotal())
	if err := tx.Model(&Purchase{}).Where("id = ?", purchase.ID).Update("total", purchase.Total).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to update purchase total: %w", err)
	}

	detail.Product = product
	return detail, movement, nil
}

// GetPurchase retrieves a purchase with supplier and lines
func (s *Service) GetPurchase(ctx context.Context, id uint) (*Purchase, error) {
	var purchase Purchase
	err := s.db.WithContext(ctx).
		Preload("Supplier").
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Details.Product").
		First(&purchase, id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "purchase", id)
	}
	return &purchase, nil
}

// ListPurchases retrieves purchases with filters and pagination
func (s *Service) ListPurchases(ctx context.Context, req *ListRequest) (*PurchaseListResponse, error) {
	req.Normalize(s.config.Inventory.DefaultPageSize, s.config.Inventory.MaxPageSize)

	query := s.db.WithContext(ctx).Model(&Purchase{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.PartyID > 0 {
		query = query.Where("supplier_id = ?", req.PartyID)
	}
	if req.ProductID > 0 {
		query = query.Where("id IN (?)", s.db.Model(&PurchaseDetail{}).Select("purchase_id").Where("product_id = ?", req.ProductID))
	}
	query = dateRange(query, req.From, req.To)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count purchases: %w", err)
	}

	query = query.Preload("Supplier")
	if req.WithDetail {
		query = query.Preload("Details").Preload("Details.Product")
	}

	var purchases []Purchase
	if err := query.Order("date DESC, id DESC").Offset(req.Offset()).Limit(req.Limit).Find(&purchases).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve purchases: %w", err)
	}

	return &PurchaseListResponse{Purchases: purchases, Pagination: pagination.New(req.Request, total)}, nil
}

// MarkPurchaseReceived settles a pending purchase
func (s *Service) MarkPurchaseReceived(ctx context.Context, id uint) (*Purchase, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchase, err := lockPurchase(tx, id)
		if err != nil {
			return err
		}
		if !purchase.Status.CanTransitionTo(PurchaseStatusReceived) {
			return apperror.StateTransition("purchase %d is %s and cannot be marked as received", id, purchase.Status)
		}
		if err := requireLines(tx, &PurchaseDetail{}, "purchase_id", id, "purchase"); err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&Purchase{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":      PurchaseStatusReceived,
			"received_at": &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionStatusChangesTotal.WithLabelValues("purchase", string(PurchaseStatusReceived)).Inc()
	return s.GetPurchase(ctx, id)
}

// CancelPurchase cancels a pending purchase. Every line is reversed by a
// compensating OUT movement; the lines stay as history.
func (s *Service) CancelPurchase(ctx context.Context, id uint, userID *uint) (*Purchase, error) {
	var movements []*ledger.StockMovement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		purchase, err := lockPurchase(tx, id)
		if err != nil {
			return err
		}
		if purchase.Status == PurchaseStatusCancelled {
			return apperror.StateTransition("purchase %d is already cancelled", id)
		}
		if !purchase.Status.CanTransitionTo(PurchaseStatusCancelled) {
			return apperror.StateTransition("purchase %d is %s and can no longer be cancelled", id, purchase.Status)
		}
		if err := noApprovedReturns(tx, &PurchaseReturn{}, "purchase_id", id); err != nil {
			return err
		}

		var details []PurchaseDetail
		if err := tx.Where("purchase_id = ?", id).Order("id ASC").Find(&details).Error; err != nil {
			return fmt.Errorf("failed to load purchase details: %w", err)
		}

		for _, detail := range details {
			product, err := s.ledger.Lock(tx, detail.ProductID)
			if err != nil {
				return err
			}
			purchaseID, lineID := id, detail.ID
			movement, err := s.ledger.Apply(tx, product, ledger.Entry{
				Type:     ledger.MovementTypeOut,
				Reason:   ledger.ReasonCancellation,
				Quantity: detail.Quantity,
				Ref:      ledger.Reference{PurchaseID: &purchaseID, LineID: &lineID},
				Notes:    fmt.Sprintf("purchase %d cancelled", id),
				By:       userID,
			})
			if err != nil {
				return err
			}
			movements = append(movements, movement)
		}

		now := time.Now()
		if err := rejectPendingReturns(tx, &PurchaseReturn{}, "purchase_id", id, userID, now); err != nil {
			return err
		}
		return tx.Model(&Purchase{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":       PurchaseStatusCancelled,
			"cancelled_at": &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.ledger.AfterCommit(ctx, movements...)
	metrics.TransactionStatusChangesTotal.WithLabelValues("purchase", string(PurchaseStatusCancelled)).Inc()
	s.logger.WithFields(logrus.Fields{
		"purchase_id": id,
		"reversed":    len(movements),
	}).Info("purchase cancelled")

	return s.GetPurchase(ctx, id)
}

// CancelPurchases cancels each purchase in its own transaction and reports per item
func (s *Service) CancelPurchases(ctx context.Context, ids []uint, userID *uint) *BatchResult {
	return runBatch(ids, func(id uint) error {
		_, err := s.CancelPurchase(ctx, id, userID)
		return err
	})
}

// MarkPurchasesReceived receives each purchase in its own transaction and reports per item
func (s *Service) MarkPurchasesReceived(ctx context.Context, ids []uint) *BatchResult {
	return runBatch(ids, func(id uint) error {
		_, err := s.MarkPurchaseReceived(ctx, id)
		return err
	})
}

// SALES

// CreateSale opens a pending sale and, if lines are given, adds them in the same transaction
func (s *Service) CreateSale(ctx context.Context, req *CreateSaleRequest, userID *uint) (*Sale, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var movements []*ledger.StockMovement
	sale := &Sale{
		CustomerID:        req.CustomerID,
		PaymentMethodCode: paymentCode(req.PaymentMethod),
		Status:            SaleStatusPending,
		Subtotal:          decimal.Zero,
		Total:             decimal.Zero,
		Notes:             req.Notes,
		CreatedBy:         userID,
		Date:              dateOrNow(req.Date),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := mustExist(tx, &catalog.Customer{}, "id = ?", req.CustomerID, "customer"); err != nil {
			return err
		}
		if err := mustExist(tx, &catalog.PaymentMethod{}, "code = ?", sale.PaymentMethodCode, "payment method"); err != nil {
			return err
		}
		if err := tx.Create(sale).Error; err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		for i := range req.Lines {
			_, movement, err := s.addSaleLine(tx, sale, &req.Lines[i], userID)
			if err != nil {
				return err
			}
			movements = append(movements, movement)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.ledger.AfterCommit(ctx, movements...)
	metrics.TransactionsCreatedTotal.WithLabelValues("sale").Inc()

	return s.GetSale(ctx, sale.ID)
}

// CreateSaleLine adds a line to a pending sale: stock goes down (or the call
// fails with InsufficientStockError), the discount and attributes are
// snapshotted and one OUT movement is written.
func (s *Service) CreateSaleLine(ctx context.Context, saleID uint, req *SaleLineRequest, userID *uint) (*SaleDetail, *ledger.StockMovement, error) {
	start := time.Now()
	defer func() {
		metrics.LedgerLatency.WithLabelValues("sale_line").Observe(time.Since(start).Seconds())
	}()

	var (
		detail   *SaleDetail
		movement *ledger.StockMovement
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, saleID)
		if err != nil {
			return err
		}
		detail, movement, err = s.addSaleLine(tx, sale, req, userID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.ledger.AfterCommit(ctx, movement)
	return detail, movement, nil
}

func (s *Service) addSaleLine(tx *gorm.DB, sale *Sale, req *SaleLineRequest, userID *uint) (*SaleDetail, *ledger.StockMovement, error) {
	if err := validation.Struct(req); err != nil {
		return nil, nil, err
	}
	if sale.Status != SaleStatusPending {
		return nil, nil, apperror.StateTransition("lines can only be added to pending sales, sale %d is %s", sale.ID, sale.Status)
	}

	product, err := s.ledger.Lock(tx, req.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if !product.Active {
		return nil, nil, apperror.Validation("product_id", "product %d is inactive and cannot be sold", product.ID)
	}

	unitPrice := product.SalePrice
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, nil, apperror.Validation("unit_price", "must not be negative")
		}
		unitPrice = req.UnitPrice.Round(2)
	}

	detail := &SaleDetail{
		SaleID:         sale.ID,
		ProductID:      product.ID,
		Quantity:       req.Quantity,
		UnitPrice:      unitPrice,
		SaleAttributes: product.AttributesSnapshot(),
	}

	if req.DiscountID != nil {
		var discount pricing.Discount
		if err := tx.Preload("Products").Preload("Categories").First(&discount, *req.DiscountID).Error; err != nil {
			return nil, nil, apperror.FromDB(err, "discount", *req.DiscountID)
		}
		if !discount.Active {
			return nil, nil, apperror.Validation("discount_id", "discount '%s' is not active", discount.Name)
		}
		if !discount.AppliesTo(product) {
			return nil, nil, apperror.Validation("discount_id", "discount '%s' does not apply to product %d", discount.Name, product.ID)
		}
		discountType := discount.Type
		detail.DiscountID = &discount.ID
		detail.DiscountName = discount.Name
		detail.DiscountType = &discountType
		detail.DiscountValue = decimal.NullDecimal{Decimal: discount.Value, Valid: true}
	}

	if err := tx.Create(detail).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to create sale detail: %w", err)
	}

	saleID, lineID := sale.ID, detail.ID
	movement, err := s.ledger.Apply(tx, product, ledger.Entry{
		Type:     ledger.MovementTypeOut,
		Reason:   ledger.ReasonSale,
		Quantity: req.Quantity,
		Ref:      ledger.Reference{SaleID: &saleID, LineID: &lineID},
		By:       userID,
	})
	if err != nil {
		return nil, nil, err
	}

	sale.Subtotal = sale.Subtotal.Add(detail.Subtotal())
	sale.Total = sale.Total.Add(detail.Total())
	if err := tx.Model(&Sale{}).Where("id = ?", sale.ID).Updates(map[string]interface{}{
		"subtotal": sale.Subtotal,
		"total":    sale.Total,
	}).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to update sale totals: %w", err)
	}

	detail.Product = product
	return detail, movement, nil
}

// GetSale retrieves a sale with customer and lines
func (s *Service) GetSale(ctx context.Context, id uint) (*Sale, error) {
	var sale Sale
	err := s.db.WithContext(ctx).
		Preload("Customer").
		Preload("Details", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Details.Product").
		First(&sale, id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "sale", id)
	}
	return &sale, nil
}

// ListSales retrieves sales with filters and pagination
func (s *Service) ListSales(ctx context.Context, req *ListRequest) (*SaleListResponse, error) {
	req.Normalize(s.config.Inventory.DefaultPageSize, s.config.Inventory.MaxPageSize)

	query := s.db.WithContext(ctx).Model(&Sale{})
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.PartyID > 0 {
		query = query.Where("customer_id = ?", req.PartyID)
	}
	if req.ProductID > 0 {
		query = query.Where("id IN (?)", s.db.Model(&SaleDetail{}).Select("sale_id").Where("product_id = ?", req.ProductID))
	}
	query = dateRange(query, req.From, req.To)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count sales: %w", err)
	}

	query = query.Preload("Customer")
	if req.WithDetail {
		query = query.Preload("Details").Preload("Details.Product")
	}

	var sales []Sale
	if err := query.Order("date DESC, id DESC").Offset(req.Offset()).Limit(req.Limit).Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve sales: %w", err)
	}

	return &SaleListResponse{Sales: sales, Pagination: pagination.New(req.Request, total)}, nil
}

// MarkSalePaid settles a pending sale
func (s *Service) MarkSalePaid(ctx context.Context, id uint) (*Sale, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, id)
		if err != nil {
			return err
		}
		if !sale.Status.CanTransitionTo(SaleStatusPaid) {
			return apperror.StateTransition("sale %d is %s and cannot be marked as paid", id, sale.Status)
		}
		if err := requireLines(tx, &SaleDetail{}, "sale_id", id, "sale"); err != nil {
			return err
		}

		now := time.Now()
		return tx.Model(&Sale{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":  SaleStatusPaid,
			"paid_at": &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionStatusChangesTotal.WithLabelValues("sale", string(SaleStatusPaid)).Inc()
	return s.GetSale(ctx, id)
}

// RefundSale marks a paid sale as refunded. Stock comes back only through sale returns.
func (s *Service) RefundSale(ctx context.Context, id uint) (*Sale, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, id)
		if err != nil {
			return err
		}
		if !sale.Status.CanTransitionTo(SaleStatusRefunded) {
			return apperror.StateTransition("sale %d is %s and cannot be refunded", id, sale.Status)
		}

		now := time.Now()
		return tx.Model(&Sale{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":      SaleStatusRefunded,
			"refunded_at": &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.TransactionStatusChangesTotal.WithLabelValues("sale", string(SaleStatusRefunded)).Inc()
	return s.GetSale(ctx, id)
}

// CancelSale cancels a pending sale. Every line is reversed by a compensating
// IN movement; the lines stay as history.
func (s *Service) CancelSale(ctx context.Context, id uint, userID *uint) (*Sale, error) {
	var movements []*ledger.StockMovement

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, id)
		if err != nil {
			return err
		}
		if sale.Status == SaleStatusCancelled {
			return apperror.StateTransition("sale %d is already cancelled", id)
		}
		if !sale.Status.CanTransitionTo(SaleStatusCancelled) {
			return apperror.StateTransition("sale %d is %s and can no longer be cancelled", id, sale.Status)
		}
		if err := noApprovedReturns(tx, &SaleReturn{}, "sale_id", id); err != nil {
			return err
		}

		var details []SaleDetail
		if err := tx.Where("sale_id = ?", id).Order("id ASC").Find(&details).Error; err != nil {
			return fmt.Errorf("failed to load sale details: %w", err)
		}

		for _, detail := range details {
			product, err := s.ledger.Lock(tx, detail.ProductID)
			if err != nil {
				return err
			}
			saleID, lineID := id, detail.ID
			movement, err := s.ledger.Apply(tx, product, ledger.Entry{
				Type:     ledger.MovementTypeIn,
				Reason:   ledger.ReasonCancellation,
				Quantity: detail.Quantity,
				Ref:      ledger.Reference{SaleID: &saleID, LineID: &lineID},
				Notes:    fmt.Sprintf("sale %d cancelled", id),
				By:       userID,
			})
			if err != nil {
				return err
			}
			movements = append(movements, movement)
		}

		now := time.Now()
		if err := rejectPendingReturns(tx, &SaleReturn{}, "sale_id", id, userID, now); err != nil {
			return err
		}
		return tx.Model(&Sale{}).Where("id = ?", id).Updates(map[string]interface{}{
			"status":       SaleStatusCancelled,
			"cancelled_at": &now,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.ledger.AfterCommit(ctx, movements...)
	metrics.TransactionStatusChangesTotal.WithLabelValues("sale", string(SaleStatusCancelled)).Inc()
	s.logger.WithFields(logrus.Fields{
		"sale_id":  id,
		"reversed": len(movements),
	}).Info("sale cancelled")

	return s.GetSale(ctx, id)
}

// CancelSales cancels each sale in its own transaction and reports per item
func (s *Service) CancelSales(ctx context.Context, ids []uint, userID *uint) *BatchResult {
	return runBatch(ids, func(id uint) error {
		_, err := s.CancelSale(ctx, id, userID)
		return err
	})
}

// MarkSalesPaid pays each sale in its own transaction and reports per item
func (s *Service) MarkSalesPaid(ctx context.Context, ids []uint) *BatchResult {
	return runBatch(ids, func(id uint) error {
		_, err := s.MarkSalePaid(ctx, id)
		return err
	})
}

// Helper functions

func lockPurchase(tx *gorm.DB, id uint) (*Purchase, error) {
	var purchase Purchase
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&purchase, id).Error; err != nil {
		return nil, apperror.FromDB(err, "purchase", id)
	}
	return &purchase, nil
}

func lockSale(tx *gorm.DB, id uint) (*Sale, error) {
	var sale Sale
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&sale, id).Error; err != nil {
		return nil, apperror.FromDB(err, "sale", id)
	}
	return &sale, nil
}

// runBatch applies fn once per distinct id, in request order
func runBatch(ids []uint, fn func(id uint) error) *BatchResult {
	result := newBatchResult()
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if err := fn(id); err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		result.Succeeded = append(result.Succeeded, id)
	}
	return result
}

func mustExist(tx *gorm.DB, model interface{}, where string, value interface{}, entity string) error {
	var count int64
	if err := tx.Model(model).Where(where, value).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check %s: %w", entity, err)
	}
	if count == 0 {
		return apperror.NotFound(entity, value)
	}
	return nil
}

func requireLines(tx *gorm.DB, model interface{}, column string, id uint, entity string) error {
	var count int64
	if err := tx.Model(model).Where(column+" = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count %s lines: %w", entity, err)
	}
	if count == 0 {
		return apperror.Validation("details", "%s %d has no lines", entity, id)
	}
	return nil
}

func noApprovedReturns(tx *gorm.DB, model interface{}, column string, id uint) error {
	var count int64
	if err := tx.Model(model).Where(column+" = ? AND status = ?", id, ReturnStatusApproved).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check returns: %w", err)
	}
	if count > 0 {
		return apperror.StateTransition("transaction %d has approved returns and cannot be cancelled", id)
	}
	return nil
}

func rejectPendingReturns(tx *gorm.DB, model interface{}, column string, id uint, userID *uint, at time.Time) error {
	err := tx.Model(model).Where(column+" = ? AND status = ?", id, ReturnStatusPending).Updates(map[string]interface{}{
		"status":     ReturnStatusRejected,
		"decided_by": userID,
		"decided_at": &at,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to reject pending returns: %w", err)
	}
	return nil
}

func dateRange(query *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date < ?", to.AddDate(0, 0, 1))
	}
	return query
}

func paymentCode(code string) string {
	if code == "" {
		return catalog.DefaultPaymentMethodCode
	}
	return strings.ToUpper(code)
}

func dateOrNow(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return time.Now()
	}
	return *t
}
