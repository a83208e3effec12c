// internal/domain/catalog/entity.go
package catalog

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// DefaultPaymentMethodCode is the cash payment method seeded with the schema
const DefaultPaymentMethodCode = "CA"

// Category groups products and carries the JSON Schema for their attributes
type Category struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	ProductSchema datatypes.JSON `json:"product_schema"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Brand represents a product brand
type Brand struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Company is the legal entity behind one or more suppliers
type Company struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null;size:200" json:"name"`
	TaxID     string    `gorm:"size:20;index" json:"tax_id"`
	Address   string    `gorm:"type:text" json:"address"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Email     string    `gorm:"size:100" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Suppliers []Supplier `gorm:"foreignKey:CompanyID" json:"suppliers,omitempty"`
}

// Supplier sells products to the business
type Supplier struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CompanyID *uint     `gorm:"index" json:"company_id,omitempty"`
	Name      string    `gorm:"not null;size:200" json:"name"`
	Phone     string    `gorm:"size:20" json:"phone"`
	Email     *string   `gorm:"uniqueIndex;size:100" json:"email,omitempty"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Brands  []Brand  `gorm:"many2many:supplier_brands;" json:"brands,omitempty"`
}

// Customer buys products
type Customer struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"not null;size:200" json:"name"`
	DocumentNumber string    `gorm:"size:20;index" json:"document_number"`
	Email          string    `gorm:"size:100" json:"email"`
	Phone          string    `gorm:"size:20" json:"phone"`
	Address        string    `gorm:"type:text" json:"address"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PaymentMethod is keyed by a two letter code
type PaymentMethod struct {
	Code      string    `gorm:"primaryKey;size:2" json:"code"`
	Name      string    `gorm:"not null;size:50" json:"name"`
	Active    bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Product is a sellable item. Stock only changes through the ledger.
type Product struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	Name          string            `gorm:"not null;size:200;index" json:"name"`
	Description   string            `gorm:"type:text" json:"description"`
	SalePrice     decimal.Decimal   `gorm:"type:numeric(10,2);not null;default:0" json:"sale_price"`
	PurchasePrice decimal.Decimal   `gorm:"type:numeric(10,2);not null;default:0" json:"purchase_price"`
	Stock         int               `gorm:"not null;default:0;check:chk_products_stock_non_negative,stock >= 0" json:"stock"`
	MinimumStock  int               `gorm:"not null;default:0" json:"minimum_stock"`
	CategoryID    uint              `gorm:"not null;index" json:"category_id"`
	BrandID       *uint             `gorm:"index" json:"brand_id,omitempty"`
	Attributes    datatypes.JSONMap `json:"attributes"`
	Active        bool              `gorm:"not null;default:true;index" json:"active"`
	CreatedBy     *uint             `json:"created_by,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`

	Category  *Category  `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Brand     *Brand     `gorm:"foreignKey:BrandID" json:"brand,omitempty"`
	Suppliers []Supplier `gorm:"many2many:product_suppliers;" json:"suppliers,omitempty"`
}

// TableName overrides
func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// IsLowStock reports whether stock fell below the configured minimum
func (p *Product) IsLowStock() bool {
	return p.Stock < p.MinimumStock
}

// IsOutOfStock reports whether nothing is left
func (p *Product) IsOutOfStock() bool {
	return p.Stock <= 0
}

// HasValidPrices checks that the sale price covers the purchase price
func (p *Product) HasValidPrices() bool {
	return p.SalePrice.GreaterThanOrEqual(p.PurchasePrice)
}

// AttributesSnapshot copies the attribute map so later edits don't leak into line snapshots
func (p *Product) AttributesSnapshot() datatypes.JSONMap {
	snapshot := make(datatypes.JSONMap, len(p.Attributes))
	for k, v := range p.Attributes {
		snapshot[k] = v
	}
	return snapshot
}

// SchemaBytes returns the raw attribute schema of the category
func (c *Category) SchemaBytes() []byte {
	return []byte(c.ProductSchema)
}
