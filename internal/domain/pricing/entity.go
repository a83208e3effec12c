// internal/domain/pricing/entity.go
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
)

// DiscountType represents how a discount value is interpreted
type DiscountType string

const (
	DiscountTypePercentage  DiscountType = "percentage"
	DiscountTypeFixedAmount DiscountType = "fixed_amount"
)

// ScopeType represents which products a discount covers
type ScopeType string

const (
	ScopeAllProducts        ScopeType = "all_products"
	ScopeSelectedProducts   ScopeType = "selected_products"
	ScopeAllCategories      ScopeType = "all_categories"
	ScopeSelectedCategories ScopeType = "selected_categories"
)

var hundred = decimal.NewFromInt(100)

// Valid reports whether t is a known discount type
func (t DiscountType) Valid() bool {
	return t == DiscountTypePercentage || t == DiscountTypeFixedAmount
}

// Valid reports whether s is a known scope
func (s ScopeType) Valid() bool {
	switch s {
	case ScopeAllProducts, ScopeSelectedProducts, ScopeAllCategories, ScopeSelectedCategories:
		return true
	}
	return false
}

// Discount is a price reduction applied to sale lines
type Discount struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null;size:100" json:"name"`
	Description string          `gorm:"type:text" json:"description"`
	Type        DiscountType    `gorm:"column:discount_type;not null;size:20" json:"discount_type"`
	Value       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"value"`
	Scope       ScopeType       `gorm:"column:scope_type;not null;size:30" json:"scope_type"`
	Active      bool            `gorm:"not null;default:true;index" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Products   []catalog.Product  `gorm:"many2many:discount_products;" json:"products,omitempty"`
	Categories []catalog.Category `gorm:"many2many:discount_categories;" json:"categories,omitempty"`
}

// Validate checks the discount definition. Products and Categories must be loaded.
func (d *Discount) Validate() error {
	if !d.Type.Valid() {
		return apperror.Validation("discount_type", "unknown discount type %q", d.Type)
	}
	if !d.Scope.Valid() {
		return apperror.Validation("scope_type", "unknown scope %q", d.Scope)
	}
	if d.Value.IsNegative() {
		return apperror.Validation("value", "must not be negative")
	}
	if d.Type == DiscountTypePercentage && d.Value.GreaterThan(hundred) {
		return apperror.Validation("value", "a percentage cannot exceed 100")
	}
	if d.Scope == ScopeSelectedProducts && len(d.Products) == 0 {
		return apperror.Validation("products", "select at least one product for this scope")
	}
	if d.Scope == ScopeSelectedCategories && len(d.Categories) == 0 {
		return apperror.Validation("categories", "select at least one category for this scope")
	}
	return nil
}

// AppliesTo reports whether the discount covers product. Products and Categories must be loaded.
func (d *Discount) AppliesTo(product *catalog.Product) bool {
	if !d.Active || product == nil {
		return false
	}

	switch d.Scope {
	case ScopeAllProducts:
		return true
	case ScopeAllCategories:
		return product.CategoryID != 0
	case ScopeSelectedCategories:
		for _, c := range d.Categories {
			if c.ID == product.CategoryID {
				return true
			}
		}
		return false
	default:
		for _, p := range d.Products {
			if p.ID == product.ID {
				return true
			}
		}
		return false
	}
}

// CalculateDiscount returns the amount taken off price, within [0, price]
func (d *Discount) CalculateDiscount(price decimal.Decimal) decimal.Decimal {
	if !d.Active || !price.IsPositive() {
		return decimal.Zero
	}
	return discountAmount(d.Type, d.Value, price)
}

// FinalPrice returns price after the discount
func (d *Discount) FinalPrice(price decimal.Decimal) decimal.Decimal {
	return price.Sub(d.CalculateDiscount(price)).Round(2)
}

// ApplyDiscount applies a snapshotted discount to a unit price, flooring at zero
func ApplyDiscount(t DiscountType, value, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	return price.Sub(discountAmount(t, value, price)).Round(2)
}

func discountAmount(t DiscountType, value, price decimal.Decimal) decimal.Decimal {
	if value.IsNegative() {
		return decimal.Zero
	}

	var amount decimal.Decimal
	if t == DiscountTypePercentage {
		amount = price.Mul(value).Div(hundred)
	} else {
		amount = decimal.Min(value, price)
	}

	amount = amount.Round(2)
	if amount.GreaterThan(price) {
		amount = price
	}
	return amount
}
