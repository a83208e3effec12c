// internal/domain/catalog/service.go
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/jsonschema"
	"github.com/your-org/stationery-backend/internal/pkg/pagination"
	"github.com/your-org/stationery-backend/internal/pkg/validation"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// StockRecorder writes the opening balance of a new product inside the creating
// transaction and returns the hook to run after commit
type StockRecorder interface {
	RecordOpeningStock(tx *gorm.DB, product *Product, quantity int, createdBy *uint) (func(context.Context), error)
}

// Service handles catalog business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
	stock  StockRecorder
}

// NewService creates a new catalog service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger, stock StockRecorder) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
		stock:  stock,
	}
}

// CategoryRequest represents category create/update data
type CategoryRequest struct {
	Name          string          `json:"name" binding:"required,max=100"`
	Description   string          `json:"description"`
	ProductSchema json.RawMessage `json:"product_schema"`
}

// ProductCreateRequest represents product creation data
type ProductCreateRequest struct {
	Name          string                 `json:"name" binding:"required,max=200"`
	Description   string                 `json:"description"`
	SalePrice     decimal.Decimal        `json:"sale_price"`
	PurchasePrice decimal.Decimal        `json:"purchase_price"`
	InitialStock  int                    `json:"initial_stock" binding:"gte=0"`
	MinimumStock  int                    `json:"minimum_stock" binding:"gte=0"`
	CategoryID    uint                   `json:"category_id" binding:"required"`
	BrandID       *uint                  `json:"brand_id"`
	SupplierIDs   []uint                 `json:"supplier_ids"`
	Attributes    map[string]interface{} `json:"attributes"`
}

// ProductUpdateRequest represents product update data. Stock is not editable here.
type ProductUpdateRequest struct {
	Name          *string          `json:"name" binding:"omitempty,max=200"`
	Description   *string          `json:"description"`
	SalePrice     *decimal.Decimal `json:"sale_price"`
	PurchasePrice *decimal.Decimal `json:"purchase_price"`
	MinimumStock  *int             `json:"minimum_stock" binding:"omitempty,gte=0"`
	CategoryID    *uint            `json:"category_id"`
	BrandID       *uint            `json:"brand_id"`
	SupplierIDs   []uint           `json:"supplier_ids"`
}

// ProductListRequest represents product listing filters
type ProductListRequest struct {
	pagination.Request
	CategoryID uint   `form:"category_id"`
	BrandID    uint   `form:"brand_id"`
	SupplierID uint   `form:"supplier_id"`
	Active     *bool  `form:"active"`
	LowStock   bool   `form:"low_stock"`
	Search     string `form:"search"`
}

// ProductListResponse represents a page of products
type ProductListResponse struct {
	Products   []Product             `json:"products"`
	Pagination pagination.Pagination `json:"pagination"`
}

// CATEGORIES

// CreateCategory creates a category after checking its schema compiles
func (s *Service) CreateCategory(ctx context.Context, req *CategoryRequest) (*Category, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	schema, err := normalizeSchema(req.ProductSchema)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&Category{}).Where("name = ?", req.Name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("failed to check category name: %w", err)
	}
	if count > 0 {
		return nil, apperror.Validation("name", "category '%s' already exists", req.Name)
	}

	category := &Category{
		Name:          req.Name,
		Description:   req.Description,
		ProductSchema: schema,
	}

	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return category, nil
}

// UpdateCategory replaces name, description and schema. Existing products are
// not re-validated against the new schema; they are checked on their next write.
func (s *Service) UpdateCategory(ctx context.Context, id uint, req *CategoryRequest) (*Category, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	category, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(req.ProductSchema) > 0 {
		schema, err := normalizeSchema(req.ProductSchema)
		if err != nil {
			return nil, err
		}
		category.ProductSchema = schema
	}
	category.Name = req.Name
	category.Description = req.Description

	if err := s.db.WithContext(ctx).Save(category).Error; err != nil {
		return nil, fmt.Errorf("failed to update category: %w", err)
	}

	return category, nil
}

// GetCategory retrieves a category by ID
func (s *Service) GetCategory(ctx context.Context, id uint) (*Category, error) {
	var category Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		return nil, apperror.FromDB(err, "category", id)
	}
	return &category, nil
}

// ListCategories retrieves all categories ordered by name
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if err := s.db.WithContext(ctx).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve categories: %w", err)
	}
	return categories, nil
}

// PRODUCTS

// CreateProduct creates a product and records its opening stock in the ledger
func (s *Service) CreateProduct(ctx context.Context, req *ProductCreateRequest, userID *uint) (*Product, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if err := validatePrices(req.SalePrice, req.PurchasePrice); err != nil {
		return nil, err
	}

	category, err := s.GetCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	attributes := datatypes.JSONMap(req.Attributes)
	if attributes == nil {
		attributes = datatypes.JSONMap{}
	}
	if err := validateAttributes(category, attributes); err != nil {
		return nil, err
	}

	if req.InitialStock > 0 && s.stock == nil {
		return nil, fmt.Errorf("opening stock given but no stock recorder configured")
	}

	tx := s.db.WithContext(ctx).Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if req.BrandID != nil {
		if err := exists(tx, &Brand{}, *req.BrandID, "brand"); err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	suppliers, err := loadSuppliers(tx, req.SupplierIDs)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	product := &Product{
		Name:          req.Name,
		Description:   req.Description,
		SalePrice:     req.SalePrice.Round(2),
		PurchasePrice: req.PurchasePrice.Round(2),
		MinimumStock:  req.MinimumStock,
		CategoryID:    category.ID,
		BrandID:       req.BrandID,
		Attributes:    attributes,
		Active:        true,
		CreatedBy:     userID,
	}

	if err := tx.Create(product).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	if len(suppliers) > 0 {
		if err := tx.Model(product).Association("Suppliers").Replace(suppliers); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to link suppliers: %w", err)
		}
	}

	afterCommit := func(context.Context) {}
	if req.InitialStock > 0 {
		afterCommit, err = s.stock.RecordOpeningStock(tx, product, req.InitialStock, userID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit product creation: %w", err)
	}
	afterCommit(ctx)

	s.logger.WithFields(logrus.Fields{
		"product_id":    product.ID,
		"category_id":   product.CategoryID,
		"initial_stock": req.InitialStock,
	}).Info("product created")

	return s.GetProduct(ctx, product.ID)
}

// GetProduct retrieves a product with its category, brand and suppliers
func (s *Service) GetProduct(ctx context.Context, id uint) (*Product, error) {
	var product Product
	err := s.db.WithContext(ctx).
		Preload("Category").
		Preload("Brand").
		Preload("Suppliers").
		First(&product, id).Error
	if err != nil {
		return nil, apperror.FromDB(err, "product", id)
	}
	return &product, nil
}

// ListProducts retrieves products with filters and pagination
func (s *Service) ListProducts(ctx context.Context, req *ProductListRequest) (*ProductListResponse, error) {
	req.Normalize(s.config.Inventory.DefaultPageSize, s.config.Inventory.MaxPageSize)

	query := s.db.WithContext(ctx).Model(&Product{})

	if req.CategoryID > 0 {
		query = query.Where("category_id = ?", req.CategoryID)
	}
	if req.BrandID > 0 {
		query = query.Where("brand_id = ?", req.BrandID)
	}
	if req.SupplierID > 0 {
		query = query.Where("id IN (?)", s.db.Table("product_suppliers").Select("product_id").Where("supplier_id = ?", req.SupplierID))
	}
	if req.Active != nil {
		query = query.Where("active = ?", *req.Active)
	}
	if req.LowStock {
		query = query.Where("stock < minimum_stock")
	}
	if req.Search != "" {
		search := "%" + strings.ToLower(req.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", search, search)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var products []Product
	if err := query.Preload("Category").Preload("Brand").
		Order("name ASC, id ASC").
		Offset(req.Offset()).Limit(req.Limit).
		Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}

	return &ProductListResponse{
		Products:   products,
		Pagination: pagination.New(req.Request, total),
	}, nil
}

// UpdateProduct updates descriptive fields, prices and links
func (s *Service) UpdateProduct(ctx context.Context, id uint, req *ProductUpdateRequest) (*Product, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.SalePrice != nil {
		product.SalePrice = req.SalePrice.Round(2)
	}
	if req.PurchasePrice != nil {
		product.PurchasePrice = req.PurchasePrice.Round(2)
	}
	if req.MinimumStock != nil {
		product.MinimumStock = *req.MinimumStock
	}
	if req.BrandID != nil {
		if err := exists(s.db.WithContext(ctx), &Brand{}, *req.BrandID, "brand"); err != nil {
			return nil, err
		}
		product.BrandID = req.BrandID
	}
	if err := validatePrices(product.SalePrice, product.PurchasePrice); err != nil {
		return nil, err
	}

	category := product.Category
	if req.CategoryID != nil && *req.CategoryID != product.CategoryID {
		category, err = s.GetCategory(ctx, *req.CategoryID)
		if err != nil {
			return nil, err
		}
		product.CategoryID = category.ID
	}
	if category == nil {
		if category, err = s.GetCategory(ctx, product.CategoryID); err != nil {
			return nil, err
		}
	}
	if err := validateAttributes(category, product.Attributes); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":           product.Name,
			"description":    product.Description,
			"sale_price":     product.SalePrice,
			"purchase_price": product.PurchasePrice,
			"minimum_stock":  product.MinimumStock,
			"category_id":    product.CategoryID,
			"brand_id":       product.BrandID,
		}
		if err := tx.Model(&Product{}).Where("id = ?", product.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}

		if req.SupplierIDs != nil {
			suppliers, err := loadSuppliers(tx, req.SupplierIDs)
			if err != nil {
				return err
			}
			if err := tx.Model(&Product{ID: product.ID}).Association("Suppliers").Replace(suppliers); err != nil {
				return fmt.Errorf("failed to link suppliers: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, id)
}

// UpdateAttributes merges (or replaces) attribute values and validates the result
func (s *Service) UpdateAttributes(ctx context.Context, id uint, attributes map[string]interface{}, replace bool) (*Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	merged := datatypes.JSONMap{}
	if !replace {
		for k, v := range product.Attributes {
			merged[k] = v
		}
	}
	for k, v := range attributes {
		if v == nil {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}

	if err := validateAttributes(product.Category, merged); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Update("attributes", merged).Error; err != nil {
		return nil, fmt.Errorf("failed to update product attributes: %w", err)
	}

	product.Attributes = merged
	return product, nil
}

// SetActive activates or deactivates a product. Products are never deleted.
func (s *Service) SetActive(ctx context.Context, id uint, active bool) (*Product, error) {
	result := s.db.WithContext(ctx).Model(&Product{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update product status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperror.NotFound("product", id)
	}
	return s.GetProduct(ctx, id)
}

// LowStockProducts lists active products whose stock is below their minimum
func (s *Service) LowStockProducts(ctx context.Context) ([]Product, error) {
	var products []Product
	err := s.db.WithContext(ctx).
		Where("active = ? AND stock < minimum_stock", true).
		Order("stock - minimum_stock ASC, id ASC").
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve low stock products: %w", err)
	}
	return products, nil
}

// Helper functions

func normalizeSchema(raw json.RawMessage) (datatypes.JSON, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return datatypes.JSON(jsonschema.DefaultSchema), nil
	}
	if _, err := jsonschema.Compile(raw); err != nil {
		return nil, apperror.Validation("product_schema", "%s", err.Error())
	}
	return datatypes.JSON(raw), nil
}

func validateAttributes(category *Category, attributes datatypes.JSONMap) error {
	document := map[string]interface{}(attributes)
	if document == nil {
		document = map[string]interface{}{}
	}
	if err := jsonschema.Validate(category.SchemaBytes(), document); err != nil {
		var fieldErr *jsonschema.FieldError
		if errors.As(err, &fieldErr) {
			field := "attributes"
			if fieldErr.Path != "" {
				field = "attributes." + strings.ReplaceAll(fieldErr.Path, "/", ".")
			}
			return apperror.Validation(field, "%s", fieldErr.Message)
		}
		return apperror.Validation("attributes", "%s", err.Error())
	}
	return nil
}

func validatePrices(sale, purchase decimal.Decimal) error {
	if sale.IsNegative() {
		return apperror.Validation("sale_price", "must not be negative")
	}
	if purchase.IsNegative() {
		return apperror.Validation("purchase_price", "must not be negative")
	}
	if sale.LessThan(purchase) {
		return apperror.Validation("sale_price", "must not be lower than the purchase price")
	}
	return nil
}

func loadSuppliers(db *gorm.DB, ids []uint) ([]Supplier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var suppliers []Supplier
	if err := db.Where("id IN ?", ids).Find(&suppliers).Error; err != nil {
		return nil, fmt.Errorf("failed to load suppliers: %w", err)
	}
	if len(suppliers) != len(uniqueIDs(ids)) {
		return nil, apperror.Validation("supplier_ids", "one or more suppliers do not exist")
	}
	return suppliers, nil
}

func exists(db *gorm.DB, model interface{}, id uint, entity string) error {
	var count int64
	if err := db.Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check %s: %w", entity, err)
	}
	if count == 0 {
		return apperror.NotFound(entity, id)
	}
	return nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
