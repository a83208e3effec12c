// internal/domain/pricing/service.go
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
	"github.com/your-org/stationery-backend/internal/pkg/validation"
	"gorm.io/gorm"
)

// Service handles discount business logic
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new pricing service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// DiscountRequest represents discount create/update data
type DiscountRequest struct {
	Name        string          `json:"name" binding:"required,max=100"`
	Description string          `json:"description"`
	Type        DiscountType    `json:"discount_type" binding:"required,oneof=percentage fixed_amount"`
	Value       decimal.Decimal `json:"value"`
	Scope       ScopeType       `json:"scope_type" binding:"required,oneof=all_products selected_products all_categories selected_categories"`
	ProductIDs  []uint          `json:"product_ids"`
	CategoryIDs []uint          `json:"category_ids"`
	Active      *bool           `json:"active"`
}

// CreateDiscount creates a discount after validating its scope selection
func (s *Service) CreateDiscount(ctx context.Context, req *DiscountRequest) (*Discount, error) {
	discount := &Discount{Active: true}
	if err := s.save(ctx, discount, req); err != nil {
		return nil, err
	}
	return s.GetDiscount(ctx, discount.ID)
}

// UpdateDiscount replaces the discount definition
func (s *Service) UpdateDiscount(ctx context.Context, id uint, req *DiscountRequest) (*Discount, error) {
	discount, err := s.GetDiscount(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, discount, req); err != nil {
		return nil, err
	}
	return s.GetDiscount(ctx, id)
}

func (s *Service) save(ctx context.Context, discount *Discount, req *DiscountRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var products []catalog.Product
		if len(req.ProductIDs) > 0 {
			if err := tx.Where("id IN ?", req.ProductIDs).Find(&products).Error; err != nil {
				return fmt.Errorf("failed to load products: %w", err)
			}
			if len(products) != countUnique(req.ProductIDs) {
				return apperror.Validation("products", "one or more products do not exist")
			}
		}

		var categories []catalog.Category
		if len(req.CategoryIDs) > 0 {
			if err := tx.Where("id IN ?", req.CategoryIDs).Find(&categories).Error; err != nil {
				return fmt.Errorf("failed to load categories: %w", err)
			}
			if len(categories) != countUnique(req.CategoryIDs) {
				return apperror.Validation("categories", "one or more categories do not exist")
			}
		}

		discount.Name = req.Name
		discount.Description = req.Description
		discount.Type = req.Type
		discount.Value = req.Value.Round(2)
		discount.Scope = req.Scope
		discount.Products = products
		discount.Categories = categories
		if req.Active != nil {
			discount.Active = *req.Active
		}
		active := discount.Active

		if err := discount.Validate(); err != nil {
			return err
		}

		if err := tx.Omit("Products", "Categories").Save(discount).Error; err != nil {
			return fmt.Errorf("failed to save discount: %w", err)
		}
		// an insert omits a false Active and reads the column default back
		if !active {
			if err := tx.Model(discount).Update("active", false).Error; err != nil {
				return fmt.Errorf("failed to save discount status: %w", err)
			}
			discount.Active = false
		}
		if err := replaceAssociation(tx.Model(discount).Association("Products"), products, len(products)); err != nil {
			return fmt.Errorf("failed to link discount products: %w", err)
		}
		if err := replaceAssociation(tx.Model(discount).Association("Categories"), categories, len(categories)); err != nil {
			return fmt.Errorf("failed to link discount categories: %w", err)
		}
		return nil
	})
}

// GetDiscount retrieves a discount with its selections
func (s *Service) GetDiscount(ctx context.Context, id uint) (*Discount, error) {
	var discount Discount
	if err := s.db.WithContext(ctx).Preload("Products").Preload("Categories").First(&discount, id).Error; err != nil {
		return nil, apperror.FromDB(err, "discount", id)
	}
	return &discount, nil
}

// ListDiscounts retrieves discounts, optionally only active ones
func (s *Service) ListDiscounts(ctx context.Context, activeOnly bool) ([]Discount, error) {
	query := s.db.WithContext(ctx).Preload("Products").Preload("Categories")
	if activeOnly {
		query = query.Where("active = ?", true)
	}

	var discounts []Discount
	if err := query.Order("name ASC").Find(&discounts).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve discounts: %w", err)
	}
	return discounts, nil
}

// SetActive toggles a discount
func (s *Service) SetActive(ctx context.Context, id uint, active bool) (*Discount, error) {
	result := s.db.WithContext(ctx).Model(&Discount{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update discount: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, apperror.NotFound("discount", id)
	}
	return s.GetDiscount(ctx, id)
}

// ApplicableProducts resolves the set of products a discount covers
func (s *Service) ApplicableProducts(ctx context.Context, id uint) ([]catalog.Product, error) {
	discount, err := s.GetDiscount(ctx, id)
	if err != nil {
		return nil, err
	}

	var products []catalog.Product
	if err := s.scopeQuery(ctx, discount).Order("name ASC, id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve applicable products: %w", err)
	}
	return products, nil
}

// ApplicableProductCount counts the products a discount covers
func (s *Service) ApplicableProductCount(ctx context.Context, id uint) (int64, error) {
	discount, err := s.GetDiscount(ctx, id)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.scopeQuery(ctx, discount).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count applicable products: %w", err)
	}
	return count, nil
}

func (s *Service) scopeQuery(ctx context.Context, discount *Discount) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&catalog.Product{})

	switch discount.Scope {
	case ScopeAllProducts:
		return query
	case ScopeAllCategories:
		return query.Where("category_id IS NOT NULL AND category_id <> 0")
	case ScopeSelectedCategories:
		return query.Where("category_id IN (?)",
			s.db.Table("discount_categories").Select("category_id").Where("discount_id = ?", discount.ID))
	default:
		return query.Where("id IN (?)",
			s.db.Table("discount_products").Select("product_id").Where("discount_id = ?", discount.ID))
	}
}

// BestDiscountFor returns the active discount giving the largest reduction on price, or nil
func (s *Service) BestDiscountFor(ctx context.Context, product *catalog.Product, price decimal.Decimal) (*Discount, error) {
	discounts, err := s.ListDiscounts(ctx, true)
	if err != nil {
		return nil, err
	}

	var best *Discount
	bestAmount := decimal.Zero
	for i := range discounts {
		d := &discounts[i]
		if !d.AppliesTo(product) {
			continue
		}
		if amount := d.CalculateDiscount(price); amount.GreaterThan(bestAmount) {
			best = d
			bestAmount = amount
		}
	}
	return best, nil
}

func replaceAssociation(assoc *gorm.Association, values interface{}, n int) error {
	if n == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}

func countUnique(ids []uint) int {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return len(seen)
}
