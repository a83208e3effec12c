// internal/pkg/testdb/fixtures.go
package testdb

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/domain/pricing"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/pkg/logger"
	"gorm.io/gorm"
)

// GeneralCategoryID and WalkInCustomerID are created by the seed data
const (
	GeneralCategoryID uint = 1
	WalkInCustomerID  uint = 1
)

// Env wires the domain services over a fresh database
type Env struct {
	DB      *gorm.DB
	Config  *config.Config
	Catalog *catalog.Service
	Ledger  *ledger.Service
	Pricing *pricing.Service
	Trade   *trade.Service
}

// NewEnv creates an Env. publisher may be nil.
func NewEnv(t *testing.T, publisher ledger.Publisher) *Env {
	t.Helper()

	db := New(t)
	cfg := Config()
	log := logger.Discard()
	ledgerService := ledger.NewService(db, cfg, log, publisher)

	return &Env{
		DB:      db,
		Config:  cfg,
		Catalog: catalog.NewService(db, cfg, log, ledgerService),
		Ledger:  ledgerService,
		Pricing: pricing.NewService(db, cfg, log),
		Trade:   trade.NewService(db, cfg, log, ledgerService),
	}
}

// Product creates an active product in the General category with an opening stock
func (e *Env) Product(t *testing.T, name string, stock int, salePrice string) *catalog.Product {
	t.Helper()

	price := decimal.RequireFromString(salePrice)
	product, err := e.Catalog.CreateProduct(context.Background(), &catalog.ProductCreateRequest{
		Name:          name,
		SalePrice:     price,
		PurchasePrice: price.Div(decimal.NewFromInt(2)).Round(2),
		InitialStock:  stock,
		CategoryID:    GeneralCategoryID,
	}, nil)
	require.NoError(t, err)
	return product
}

// Supplier creates a supplier with a unique email
func (e *Env) Supplier(t *testing.T, name string) *catalog.Supplier {
	t.Helper()

	supplier, err := e.Catalog.CreateSupplier(context.Background(), &catalog.SupplierRequest{
		Name:  name,
		Email: fmt.Sprintf("%s@suppliers.example.com", name),
	})
	require.NoError(t, err)
	return supplier
}

// Stock reads the current stock of a product straight from the table
func (e *Env) Stock(t *testing.T, productID uint) int {
	t.Helper()

	var product catalog.Product
	require.NoError(t, e.DB.First(&product, productID).Error)
	return product.Stock
}

// Movements returns every movement of a product, oldest first
func (e *Env) Movements(t *testing.T, productID uint) []ledger.StockMovement {
	t.Helper()

	var movements []ledger.StockMovement
	require.NoError(t, e.DB.Where("product_id = ?", productID).Order("id ASC").Find(&movements).Error)
	return movements
}
