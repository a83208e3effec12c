package analytics_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/stationery-backend/internal/domain/analytics"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"github.com/your-org/stationery-backend/internal/pkg/logger"
	"github.com/your-org/stationery-backend/internal/pkg/testdb"
)

type fixture struct {
	*testdb.Env
	analytics *analytics.Service
	pen       *catalog.Product
	notebook  *catalog.Product
}

// newFixture records three sales today: a pending one for 3 pens, a paid
// one for a notebook and a cancelled one for a pen
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	env := testdb.NewEnv(t, nil)
	f := &fixture{
		Env:       env,
		analytics: analytics.NewService(env.DB, env.Config, logger.Discard()),
		pen:       env.Product(t, "Pen", 10, "4.00"),
		notebook:  env.Product(t, "Notebook", 3, "6.00"),
	}
	env.Product(t, "Marker", 0, "2.00")
	require.NoError(t, env.DB.Model(&catalog.Product{}).Where("id = ?", f.notebook.ID).Update("minimum_stock", 5).Error)

	now := time.Now().UTC()
	sell := func(productID uint, quantity int) *trade.Sale {
		sale, err := env.Trade.CreateSale(ctx, &trade.CreateSaleRequest{
			CustomerID: testdb.WalkInCustomerID,
			Date:       &now,
			Lines:      []trade.SaleLineRequest{{ProductID: productID, Quantity: quantity}},
		}, nil)
		require.NoError(t, err)
		return sale
	}

	sell(f.pen.ID, 3)
	paid := sell(f.notebook.ID, 1)
	_, err := env.Trade.MarkSalePaid(ctx, paid.ID)
	require.NoError(t, err)
	cancelled := sell(f.pen.ID, 1)
	_, err = env.Trade.CancelSale(ctx, cancelled.ID, nil)
	require.NoError(t, err)

	return f
}

func TestDashboardStats(t *testing.T) {
	f := newFixture(t)

	stats, err := f.analytics.GetDashboardStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(2), stats.SalesToday)
	assert.True(t, decimal.RequireFromString("18").Equal(stats.RevenueToday), stats.RevenueToday.String())
	assert.Equal(t, int64(2), stats.SalesThisMonth)
	assert.Equal(t, float64(0), stats.RevenueGrowth)
	assert.Equal(t, int64(1), stats.PendingSales)
	assert.Equal(t, int64(0), stats.PendingPurchases)
	assert.Equal(t, int64(0), stats.PendingReturns)

	assert.Equal(t, int64(3), stats.TotalProducts)
	assert.Equal(t, int64(3), stats.ActiveProducts)
	assert.Equal(t, int64(1), stats.OutOfStockProducts)
	assert.Equal(t, int64(1), stats.LowStockProducts)

	// 7 pens at 2.00 plus 2 notebooks at 3.00
	assert.True(t, decimal.RequireFromString("20").Equal(stats.InventoryValue), stats.InventoryValue.String())
}

func TestDashboardCountsPendingReturns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sales, err := f.Trade.ListSales(ctx, &trade.ListRequest{Status: string(trade.SaleStatusPaid)})
	require.NoError(t, err)
	require.Len(t, sales.Sales, 1)

	_, err = f.Trade.CreateSaleReturn(ctx, &trade.ReturnRequest{
		TransactionID: sales.Sales[0].ID,
		ProductID:     f.notebook.ID,
		Quantity:      1,
		Reason:        "torn cover",
	}, nil)
	require.NoError(t, err)

	stats, err := f.analytics.GetDashboardStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.PendingReturns)
}

func TestSalesAnalytics(t *testing.T) {
	f := newFixture(t)

	report, err := f.analytics.GetSalesAnalytics(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, 7, report.Days)
	assert.Equal(t, int64(2), report.TotalSales)
	assert.True(t, decimal.RequireFromString("18").Equal(report.TotalRevenue))
	assert.True(t, decimal.RequireFromString("9").Equal(report.AvgSaleValue))

	require.Len(t, report.DailyRevenue, 1)
	assert.Equal(t, time.Now().UTC().Format("2006-01-02"), report.DailyRevenue[0].Date)
	assert.Equal(t, int64(2), report.DailyRevenue[0].Count)

	require.Len(t, report.TopProducts, 2)
	assert.Equal(t, f.pen.ID, report.TopProducts[0].ProductID)
	assert.Equal(t, int64(3), report.TopProducts[0].TotalSold)
	assert.True(t, decimal.RequireFromString("12").Equal(report.TopProducts[0].GrossRevenue))
	assert.Equal(t, f.notebook.ID, report.TopProducts[1].ProductID)

	require.Len(t, report.CategorySales, 1)
	assert.Equal(t, uint(testdb.GeneralCategoryID), report.CategorySales[0].CategoryID)
	assert.Equal(t, int64(4), report.CategorySales[0].TotalSold)

	statuses := map[string]int64{}
	for _, s := range report.SalesByStatus {
		statuses[s.Status] = s.Count
	}
	assert.Equal(t, map[string]int64{"pending": 1, "paid": 1, "cancelled": 1}, statuses)
}

func TestSalesAnalyticsDefaultsWindow(t *testing.T) {
	env := testdb.NewEnv(t, nil)
	service := analytics.NewService(env.DB, env.Config, logger.Discard())

	report, err := service.GetSalesAnalytics(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 30, report.Days)
	assert.Empty(t, report.DailyRevenue)
	assert.Empty(t, report.TopProducts)
	assert.True(t, report.TotalRevenue.IsZero())
}
