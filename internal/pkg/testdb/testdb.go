// internal/pkg/testdb/testdb.go
package testdb

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/infrastructure/database/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config returns the configuration used by service tests
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:         "Stationery Back Office",
			Environment:  "test",
			Timezone:     "UTC",
			CompanyName:  "Papeleria Test",
			CompanyEmail: "billing@example.com",
		},
		JWT: config.JWTConfig{
			Secret:            "test-secret-that-is-long-enough-for-hs256",
			AccessTokenExpiry: time.Hour,
		},
		Inventory: config.InventoryConfig{
			InvoiceDueDays:   30,
			LowStockScanSpec: "@every 30m",
			OverdueScanSpec:  "@daily",
			DefaultPageSize:  20,
			MaxPageSize:      100,
		},
		Logging: config.LoggingConfig{Level: "error", Format: "text"},
	}
}

// New opens a migrated and seeded SQLite database in the test's temp dir
func New(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	migration := postgres.NewMigration(db)
	require.NoError(t, migration.RunAutoMigrations())
	require.NoError(t, migration.SeedInitialData())

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
