// internal/domain/ledger/service.go
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/metrics"
	"github.com/your-org/stationery-backend/internal/pkg/pagination"
	"github.com/your-org/stationery-backend/internal/pkg/validation"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service owns every stock mutation
type Service struct {
	db        *gorm.DB
	config    *config.Config
	logger    *logrus.Logger
	publisher Publisher
}

// NewService creates a new ledger service. publisher may be nil.
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, publisher Publisher) *Service {
	return &Service{
		db:        db,
		config:    cfg,
		logger:    logger,
		publisher: publisher,
	}
}

// Entry describes one stock change to apply
type Entry struct {
	Type     MovementType
	Reason   MovementReason
	Quantity int // IN and OUT, always positive
	Delta    int // ADJ only, signed
	Ref      Reference
	Notes    string
	By       *uint
}

func (e Entry) signedDelta() (int, error) {
	switch e.Type {
	case MovementTypeIn:
		return e.Quantity, nil
	case MovementTypeOut:
		return -e.Quantity, nil
	case MovementTypeAdjustment:
		if e.Delta == 0 {
			return 0, apperror.Validation("quantity", "adjustment must change the stock")
		}
		return e.Delta, nil
	default:
		return 0, apperror.Validation("movement_type", "unknown movement type %q", e.Type)
	}
}

// AdjustmentRequest represents a manual stock correction
type AdjustmentRequest struct {
	ProductID uint           `json:"product_id" binding:"required"`
	Type      MovementType   `json:"movement_type" binding:"required,oneof=IN OUT"`
	Reason    MovementReason `json:"reason" binding:"required,oneof=adjustment damaged expired"`
	Quantity  int            `json:"quantity" binding:"required,gt=0"`
	Notes     string         `json:"notes"`
}

// StockCountRequest sets stock to a physically counted value
type StockCountRequest struct {
	ProductID    uint   `json:"product_id" binding:"required"`
	CountedStock int    `json:"counted_stock" binding:"gte=0"`
	Notes        string `json:"notes"`
}

// MovementFilter represents movement listing filters
type MovementFilter struct {
	pagination.Request
	ProductID        uint           `form:"product_id"`
	Type             MovementType   `form:"movement_type"`
	Reason           MovementReason `form:"reason"`
	PurchaseID       uint           `form:"purchase_id"`
	SaleID           uint           `form:"sale_id"`
	PurchaseReturnID uint           `form:"purchase_return_id"`
	SaleReturnID     uint           `form:"sale_return_id"`
	From             *time.Time     `form:"from" time_format:"2006-01-02"`
	To               *time.Time     `form:"to" time_format:"2006-01-02"`
}

// MovementListResponse represents a page of movements
type MovementListResponse struct {
	Movements  []StockMovement       `json:"movements"`
	Pagination pagination.Pagination `json:"pagination"`
}

// Lock loads a product row with an exclusive lock held until the transaction ends
func (s *Service) Lock(tx *gorm.DB, productID uint) (*catalog.Product, error) {
	var product catalog.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&product, productID).Error; err != nil {
		return nil, apperror.FromDB(err, "product", productID)
	}
	return &product, nil
}

// Apply mutates the stock of a locked product and writes the matching movement.
// It must run inside the caller's transaction, after Lock.
func (s *Service) Apply(tx *gorm.DB, product *catalog.Product, entry Entry) (*StockMovement, error) {
	delta, err := entry.signedDelta()
	if err != nil {
		return nil, err
	}

	quantity := entry.Quantity
	if entry.Type == MovementTypeAdjustment {
		quantity = abs(delta)
	}

	movement := &StockMovement{
		ProductID:        product.ID,
		Quantity:         quantity,
		MovementType:     entry.Type,
		Reason:           entry.Reason,
		PurchaseID:       entry.Ref.PurchaseID,
		SaleID:           entry.Ref.SaleID,
		PurchaseReturnID: entry.Ref.PurchaseReturnID,
		SaleReturnID:     entry.Ref.SaleReturnID,
		LineID:           entry.Ref.LineID,
		Notes:            entry.Notes,
		CreatedBy:        entry.By,
	}
	if err := movement.validate(); err != nil {
		return nil, err
	}

	previous := product.Stock
	if previous+delta < 0 {
		metrics.StockRejectionsTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, &apperror.InsufficientStockError{ProductID: product.ID, Available: previous, Requested: -delta}
	}

	result := tx.Model(&catalog.Product{}).
		Where("id = ? AND stock + ? >= 0", product.ID, delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update stock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		metrics.StockRejectionsTotal.WithLabelValues("insufficient_stock").Inc()
		return nil, &apperror.InsufficientStockError{ProductID: product.ID, Available: previous, Requested: -delta}
	}

	product.Stock = previous + delta
	movement.PreviousStock = previous
	movement.NewStock = product.Stock

	if err := tx.Create(movement).Error; err != nil {
		return nil, fmt.Errorf("failed to record stock movement: %w", err)
	}

	return movement, nil
}

// Record applies a single entry in its own transaction
func (s *Service) Record(ctx context.Context, productID uint, entry Entry) (*StockMovement, error) {
	start := time.Now()
	defer func() {
		metrics.LedgerLatency.WithLabelValues("record").Observe(time.Since(start).Seconds())
	}()

	var movement *StockMovement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.Lock(tx, productID)
		if err != nil {
			return err
		}
		movement, err = s.Apply(tx, product, entry)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.AfterCommit(ctx, movement)
	return movement, nil
}

// RecordOpeningStock records the initial stock of a product being created in tx.
// The returned hook must be called once tx has committed.
func (s *Service) RecordOpeningStock(tx *gorm.DB, product *catalog.Product, quantity int, createdBy *uint) (func(context.Context), error) {
	if quantity <= 0 {
		return func(context.Context) {}, nil
	}
	locked, err := s.Lock(tx, product.ID)
	if err != nil {
		return nil, err
	}
	movement, err := s.Apply(tx, locked, Entry{
		Type:   MovementTypeAdjustment,
		Reason: ReasonAdjustment,
		Delta:  quantity,
		Notes:  "opening stock",
		By:     createdBy,
	})
	if err != nil {
		return nil, err
	}
	product.Stock = locked.Stock
	return func(ctx context.Context) { s.AfterCommit(ctx, movement) }, nil
}

// Adjust records a manual IN or OUT movement such as damaged or expired goods
func (s *Service) Adjust(ctx context.Context, req *AdjustmentRequest, userID *uint) (*StockMovement, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	movement, err := s.Record(ctx, req.ProductID, Entry{
		Type:     req.Type,
		Reason:   req.Reason,
		Quantity: req.Quantity,
		Notes:    req.Notes,
		By:       userID,
	})
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"product_id": req.ProductID,
		"type":       req.Type,
		"reason":     req.Reason,
		"quantity":   req.Quantity,
	}).Info("manual stock adjustment recorded")

	return movement, nil
}

// AdjustTo sets stock to a counted value with a single ADJ movement
func (s *Service) AdjustTo(ctx context.Context, req *StockCountRequest, userID *uint) (*StockMovement, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	var movement *StockMovement
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		product, err := s.Lock(tx, req.ProductID)
		if err != nil {
			return err
		}
		delta := req.CountedStock - product.Stock
		if delta == 0 {
			return apperror.Validation("counted_stock", "stock is already %d", product.Stock)
		}
		movement, err = s.Apply(tx, product, Entry{
			Type:   MovementTypeAdjustment,
			Reason: ReasonAdjustment,
			Delta:  delta,
			Notes:  req.Notes,
			By:     userID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.AfterCommit(ctx, movement)
	return movement, nil
}

// Movements lists ledger rows, newest first
func (s *Service) Movements(ctx context.Context, filter *MovementFilter) (*MovementListResponse, error) {
	filter.Normalize(s.config.Inventory.DefaultPageSize, s.config.Inventory.MaxPageSize)

	query := s.filtered(ctx, filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count stock movements: %w", err)
	}

	var movements []StockMovement
	if err := query.Preload("Product").
		Order("created_at DESC, id DESC").
		Offset(filter.Offset()).Limit(filter.Limit).
		Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve stock movements: %w", err)
	}

	return &MovementListResponse{
		Movements:  movements,
		Pagination: pagination.New(filter.Request, total),
	}, nil
}

// AllMovements returns every movement matching the filter, oldest first, for exports
func (s *Service) AllMovements(ctx context.Context, filter *MovementFilter) ([]StockMovement, error) {
	var movements []StockMovement
	if err := s.filtered(ctx, filter).Preload("Product").Order("created_at ASC, id ASC").Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve stock movements: %w", err)
	}
	return movements, nil
}

func (s *Service) filtered(ctx context.Context, filter *MovementFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&StockMovement{})
	if filter.ProductID > 0 {
		query = query.Where("product_id = ?", filter.ProductID)
	}
	if filter.Type != "" {
		query = query.Where("movement_type = ?", filter.Type)
	}
	if filter.Reason != "" {
		query = query.Where("reason = ?", filter.Reason)
	}
	if filter.PurchaseID > 0 {
		query = query.Where("purchase_id = ?", filter.PurchaseID)
	}
	if filter.SaleID > 0 {
		query = query.Where("sale_id = ?", filter.SaleID)
	}
	if filter.PurchaseReturnID > 0 {
		query = query.Where("purchase_return_id = ?", filter.PurchaseReturnID)
	}
	if filter.SaleReturnID > 0 {
		query = query.Where("sale_return_id = ?", filter.SaleReturnID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at < ?", filter.To.AddDate(0, 0, 1))
	}
	return query
}

// Reconcile verifies that a product's stock equals the sum of its movements
func (s *Service) Reconcile(ctx context.Context, productID uint) error {
	var product catalog.Product
	if err := s.db.WithContext(ctx).First(&product, productID).Error; err != nil {
		return apperror.FromDB(err, "product", productID)
	}

	var movements []StockMovement
	if err := s.db.WithContext(ctx).Where("product_id = ?", productID).Order("id ASC").Find(&movements).Error; err != nil {
		return fmt.Errorf("failed to load stock movements: %w", err)
	}

	running := 0
	for _, m := range movements {
		if m.PreviousStock != running {
			return apperror.Consistency("movement %d of product %d starts at %d but ledger balance is %d", m.ID, productID, m.PreviousStock, running)
		}
		running = m.NewStock
	}

	if running != product.Stock {
		return apperror.Consistency("product %d has stock %d but its ledger sums to %d", productID, product.Stock, running)
	}
	return nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
