// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/invoice"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/domain/pricing"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/pkg/jsonschema"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db *gorm.DB
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB) *Migration {
	return &Migration{
		db: db,
	}
}

// Models returns every persisted model in dependency order
func Models() []interface{} {
	return []interface{}{
		// Catalog
		&catalog.PaymentMethod{},
		&catalog.Category{},
		&catalog.Brand{},
		&catalog.Company{},
		&catalog.Supplier{},
		&catalog.Customer{},
		&catalog.Product{},

		// Pricing
		&pricing.Discount{},

		// Purchases and sales
		&trade.Purchase{},
		&trade.PurchaseDetail{},
		&trade.Sale{},
		&trade.SaleDetail{},
		&trade.PurchaseReturn{},
		&trade.SaleReturn{},

		// Ledger
		&ledger.StockMovement{},
		&ledger.StockAlert{},

		// Invoices
		&invoice.PurchaseInvoice{},
		&invoice.SaleInvoice{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	log.Println("🔄 Running database auto-migrations...")

	for _, model := range Models() {
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	log.Println("✅ Database auto-migrations completed successfully")
	return nil
}

// CreateIndexes creates PostgreSQL specific indexes
func (m *Migration) CreateIndexes() error {
	log.Println("🔄 Creating additional database indexes...")

	indexes := []string{
		// Product attribute search
		"CREATE INDEX IF NOT EXISTS idx_products_attributes_gin ON products USING GIN (attributes)",
		"CREATE INDEX IF NOT EXISTS idx_products_category_active ON products(category_id, active)",
		"CREATE INDEX IF NOT EXISTS idx_products_low_stock ON products(stock, minimum_stock) WHERE active",

		// Ledger lookups
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_product_created ON stock_movements(product_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_purchase_line ON stock_movements(purchase_id, line_id) WHERE purchase_id IS NOT NULL",
		"CREATE INDEX IF NOT EXISTS idx_stock_movements_sale_line ON stock_movements(sale_id, line_id) WHERE sale_id IS NOT NULL",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_stock_alerts_open_product ON stock_alerts(product_id) WHERE NOT is_resolved",

		// Transactions
		"CREATE INDEX IF NOT EXISTS idx_purchases_supplier_date ON purchases(supplier_id, date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_sales_customer_date ON sales(customer_id, date DESC)",
		"CREATE INDEX IF NOT EXISTS idx_purchase_details_purchase_product ON purchase_details(purchase_id, product_id)",
		"CREATE INDEX IF NOT EXISTS idx_sale_details_sale_product ON sale_details(sale_id, product_id)",

		// Returns
		"CREATE INDEX IF NOT EXISTS idx_purchase_returns_purchase_product ON purchase_returns(purchase_id, product_id, status)",
		"CREATE INDEX IF NOT EXISTS idx_sale_returns_sale_product ON sale_returns(sale_id, product_id, status)",
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			log.Printf("⚠️ Failed to create index: %v", err)
			failCount++
		} else {
			successCount++
		}
	}

	log.Printf("✅ Created %d indexes successfully (%d failed)", successCount, failCount)
	return nil
}

// SeedInitialData inserts the reference data the service needs to run
func (m *Migration) SeedInitialData() error {
	log.Println("🌱 Seeding initial data...")

	if err := m.seedPaymentMethods(); err != nil {
		return fmt.Errorf("failed to seed payment methods: %w", err)
	}

	if err := m.seedCategories(); err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := m.seedWalkInCustomer(); err != nil {
		return fmt.Errorf("failed to seed customers: %w", err)
	}

	log.Println("✅ Initial data seeded successfully")
	return nil
}

func (m *Migration) seedPaymentMethods() error {
	methods := []catalog.PaymentMethod{
		{Code: catalog.DefaultPaymentMethodCode, Name: "Cash", Active: true},
		{Code: "CC", Name: "Credit card", Active: true},
		{Code: "DC", Name: "Debit card", Active: true},
		{Code: "TR", Name: "Bank transfer", Active: true},
	}

	for _, method := range methods {
		var count int64
		m.db.Model(&catalog.PaymentMethod{}).Where("code = ?", method.Code).Count(&count)
		if count > 0 {
			continue
		}
		if err := m.db.Create(&method).Error; err != nil {
			return err
		}
		log.Printf("✅ Created payment method: %s", method.Name)
	}
	return nil
}

func (m *Migration) seedCategories() error {
	log.Println("🏷️ Seeding categories...")

	categories := []catalog.Category{
		{
			Name:          "General",
			Description:   "Products without specific attributes",
			ProductSchema: datatypes.JSON(jsonschema.DefaultSchema),
		},
		{
			Name:        "Notebooks",
			Description: "Notebooks, pads and loose paper",
			ProductSchema: datatypes.JSON(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "sheets": {"type": "integer", "minimum": 1},
    "ruling": {"type": "string", "enum": ["plain", "lined", "grid", "dotted"]},
    "size": {"type": "string"}
  },
  "additionalProperties": true
}`),
		},
		{
			Name:        "Writing instruments",
			Description: "Pens, pencils and markers",
			ProductSchema: datatypes.JSON(`{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "color": {"type": "string"},
    "tip_mm": {"type": "number", "exclusiveMinimum": 0}
  },
  "additionalProperties": true
}`),
		},
	}

	for _, category := range categories {
		var existing catalog.Category
		result := m.db.Where("name = ?", category.Name).Limit(1).Find(&existing)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			log.Printf("⏭️ Category already exists: %s", category.Name)
			continue
		}
		if err := m.db.Create(&category).Error; err != nil {
			return err
		}
		log.Printf("✅ Created category: %s", category.Name)
	}

	return nil
}

func (m *Migration) seedWalkInCustomer() error {
	var count int64
	m.db.Model(&catalog.Customer{}).Where("document_number = ?", "0000000000").Count(&count)
	if count > 0 {
		return nil
	}
	return m.db.Create(&catalog.Customer{Name: "Walk-in customer", DocumentNumber: "0000000000"}).Error
}

// GetTableInfo logs the row count of every public table
func (m *Migration) GetTableInfo() error {
	var tables []string
	if err := m.db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public' ORDER BY tablename").Scan(&tables).Error; err != nil {
		return err
	}

	log.Println("📊 Database Tables Information:")
	log.Println("================================")

	totalRecords := int64(0)
	for _, table := range tables {
		var count int64
		m.db.Table(table).Count(&count)
		totalRecords += count

		status := "✅"
		if count == 0 {
			status = "📭"
		}
		log.Printf("%s %-25s | %d records", status, table, count)
	}

	log.Println("================================")
	log.Printf("📈 Total records across all tables: %d", totalRecords)

	var stockValue decimal.NullDecimal
	m.db.Model(&catalog.Product{}).Select("SUM(stock * purchase_price)").Row().Scan(&stockValue)
	if stockValue.Valid {
		log.Printf("📦 Stock value at purchase price: %s", stockValue.Decimal.StringFixed(2))
	}

	return nil
}
