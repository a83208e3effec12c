// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/config"
	"github.com/your-org/stationery-backend/internal/domain/trade"
	"gorm.io/gorm"
)

const (
	defaultDays = 30
	maxDays     = 366
	topLimit    = 10
)

// revenueStatuses are the sale states that count as revenue. Cancelled and
// refunded sales gave their money back.
var revenueStatuses = []trade.SaleStatus{trade.SaleStatusPending, trade.SaleStatusPaid}

// Service computes read-only back office figures straight from the store
type Service struct {
	db     *gorm.DB
	config *config.Config
	logger *logrus.Logger
}

// NewService creates a new analytics service
func NewService(db *gorm.DB, cfg *config.Config, logger *logrus.Logger) *Service {
	return &Service{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// DashboardStats represents the figures shown on the back office home page
type DashboardStats struct {
	// Sales metrics
	SalesToday       int64           `json:"sales_today"`
	RevenueToday     decimal.Decimal `json:"revenue_today"`
	SalesThisMonth   int64           `json:"sales_this_month"`
	RevenueThisMonth decimal.Decimal `json:"revenue_this_month"`
	RevenueGrowth    float64         `json:"revenue_growth"` // Percentage against last month
	PendingSales     int64           `json:"pending_sales"`

	// Purchasing metrics
	PendingPurchases int64           `json:"pending_purchases"`
	SpendThisMonth   decimal.Decimal `json:"spend_this_month"`
	PendingReturns   int64           `json:"pending_returns"`

	// Product metrics
	TotalProducts      int64           `json:"total_products"`
	ActiveProducts     int64           `json:"active_products"`
	OutOfStockProducts int64           `json:"out_of_stock_products"`
	LowStockProducts   int64           `json:"low_stock_products"`
	OpenAlerts         int64           `json:"open_alerts"`
	InventoryValue     decimal.Decimal `json:"inventory_value"` // Stock at purchase price
}

// SalesAnalytics represents sales figures over a trailing window of days
type SalesAnalytics struct {
	Days          int                `json:"days"`
	DailyRevenue  []TimeSeriesData   `json:"daily_revenue"`
	TotalSales    int64              `json:"total_sales"`
	TotalRevenue  decimal.Decimal    `json:"total_revenue"`
	AvgSaleValue  decimal.Decimal    `json:"avg_sale_value"`
	TopProducts   []ProductSalesData `json:"top_products"`
	CategorySales []CategoryData     `json:"category_sales"`
	SalesByStatus []StatusData       `json:"sales_by_status"`
}

type TimeSeriesData struct {
	Date  string          `json:"date"`
	Value decimal.Decimal `json:"value"`
	Count int64           `json:"count"`
}

type ProductSalesData struct {
	ProductID    uint            `json:"product_id"`
	ProductName  string          `json:"product_name"`
	TotalSold    int64           `json:"total_sold"`
	GrossRevenue decimal.Decimal `json:"gross_revenue"` // Before line discounts
	SaleCount    int64           `json:"sale_count"`
}

type CategoryData struct {
	CategoryID   uint            `json:"category_id"`
	CategoryName string          `json:"category_name"`
	TotalSold    int64           `json:"total_sold"`
	GrossRevenue decimal.Decimal `json:"gross_revenue"`
}

type StatusData struct {
	Status string          `json:"status"`
	Count  int64           `json:"count"`
	Value  decimal.Decimal `json:"value"`
}

// GetDashboardStats retrieves the dashboard figures for the current business day
func (s *Service) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	stats := &DashboardStats{}

	now := time.Now().In(s.config.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	lastMonth := thisMonth.AddDate(0, -1, 0)

	var err error
	if stats.SalesToday, stats.RevenueToday, err = s.saleTotals(db, today, nil); err != nil {
		return nil, err
	}
	if stats.SalesThisMonth, stats.RevenueThisMonth, err = s.saleTotals(db, thisMonth, nil); err != nil {
		return nil, err
	}
	_, lastMonthRevenue, err := s.saleTotals(db, lastMonth, &thisMonth)
	if err != nil {
		return nil, err
	}
	stats.RevenueGrowth = calculateGrowth(stats.RevenueThisMonth, lastMonthRevenue)

	counts := []struct {
		dest  *int64
		query string
		args  []interface{}
	}{
		{&stats.PendingSales, "SELECT COUNT(*) FROM sales WHERE status = ?", []interface{}{trade.SaleStatusPending}},
		{&stats.PendingPurchases, "SELECT COUNT(*) FROM purchases WHERE status = ?", []interface{}{trade.PurchaseStatusPending}},
		{&stats.PendingReturns, "SELECT (SELECT COUNT(*) FROM purchase_returns WHERE status = ?) + (SELECT COUNT(*) FROM sale_returns WHERE status = ?)", []interface{}{trade.ReturnStatusPending, trade.ReturnStatusPending}},
		{&stats.TotalProducts, "SELECT COUNT(*) FROM products", nil},
		{&stats.ActiveProducts, "SELECT COUNT(*) FROM products WHERE active = ?", []interface{}{true}},
		{&stats.OutOfStockProducts, "SELECT COUNT(*) FROM products WHERE active = ? AND stock = 0", []interface{}{true}},
		{&stats.LowStockProducts, "SELECT COUNT(*) FROM products WHERE active = ? AND stock < minimum_stock", []interface{}{true}},
		{&stats.OpenAlerts, "SELECT COUNT(*) FROM stock_alerts WHERE is_resolved = ?", []interface{}{false}},
	}
	for _, c := range counts {
		if err := db.Raw(c.query, c.args...).Row().Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to compute dashboard counts: %w", err)
		}
	}

	if err := db.Raw(
		"SELECT COALESCE(SUM(total), 0) FROM purchases WHERE status <> ? AND date >= ?",
		trade.PurchaseStatusCancelled, thisMonth,
	).Row().Scan(&stats.SpendThisMonth); err != nil {
		return nil, fmt.Errorf("failed to compute purchase spend: %w", err)
	}

	if err := db.Raw(
		"SELECT COALESCE(SUM(stock * purchase_price), 0) FROM products WHERE active = ?", true,
	).Row().Scan(&stats.InventoryValue); err != nil {
		return nil, fmt.Errorf("failed to compute inventory value: %w", err)
	}
	stats.InventoryValue = stats.InventoryValue.Round(2)

	return stats, nil
}

// GetSalesAnalytics retrieves sales figures for the last days business days,
// today included
func (s *Service) GetSalesAnalytics(ctx context.Context, days int) (*SalesAnalytics, error) {
	if days <= 0 {
		days = defaultDays
	}
	if days > maxDays {
		days = maxDays
	}

	db := s.db.WithContext(ctx)
	loc := s.config.Location()
	now := time.Now().In(loc)
	startDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, -(days - 1))

	analytics := &SalesAnalytics{
		Days:          days,
		DailyRevenue:  []TimeSeriesData{},
		TopProducts:   []ProductSalesData{},
		CategorySales: []CategoryData{},
		SalesByStatus: []StatusData{},
	}

	// Daily buckets follow the configured business timezone, not the database's
	var sales []trade.Sale
	if err := db.Select("id", "date", "total").
		Where("date >= ? AND status IN ?", startDate, revenueStatuses).
		Find(&sales).Error; err != nil {
		return nil, fmt.Errorf("failed to get daily revenue: %w", err)
	}

	buckets := make(map[string]*TimeSeriesData)
	for _, sale := range sales {
		key := sale.Date.In(loc).Format("2006-01-02")
		bucket, ok := buckets[key]
		if !ok {
			bucket = &TimeSeriesData{Date: key, Value: decimal.Zero}
			buckets[key] = bucket
		}
		bucket.Value = bucket.Value.Add(sale.Total)
		bucket.Count++

		analytics.TotalSales++
		analytics.TotalRevenue = analytics.TotalRevenue.Add(sale.Total)
	}
	for _, bucket := range buckets {
		analytics.DailyRevenue = append(analytics.DailyRevenue, *bucket)
	}
	sort.Slice(analytics.DailyRevenue, func(i, j int) bool {
		return analytics.DailyRevenue[i].Date < analytics.DailyRevenue[j].Date
	})

	if analytics.TotalSales > 0 {
		analytics.AvgSaleValue = analytics.TotalRevenue.Div(decimal.NewFromInt(analytics.TotalSales)).Round(2)
	}

	productRows, err := db.Raw(`
		SELECT
			p.id,
			p.name,
			COALESCE(SUM(sd.quantity), 0) AS total_sold,
			COALESCE(SUM(sd.quantity * sd.unit_price), 0) AS revenue,
			COUNT(DISTINCT s.id) AS sale_count
		FROM sale_details sd
		JOIN sales s ON sd.sale_id = s.id
		JOIN products p ON sd.product_id = p.id
		WHERE s.date >= ? AND s.status IN ?
		GROUP BY p.id, p.name
		ORDER BY total_sold DESC, p.id
		LIMIT ?
	`, startDate, revenueStatuses, topLimit).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to get top products: %w", err)
	}
	defer productRows.Close()

	for productRows.Next() {
		var product ProductSalesData
		if err := productRows.Scan(&product.ProductID, &product.ProductName, &product.TotalSold, &product.GrossRevenue, &product.SaleCount); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		product.GrossRevenue = product.GrossRevenue.Round(2)
		analytics.TopProducts = append(analytics.TopProducts, product)
	}
	if err := productRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read top products: %w", err)
	}

	categoryRows, err := db.Raw(`
		SELECT
			c.id,
			c.name,
			COALESCE(SUM(sd.quantity), 0) AS total_sold,
			COALESCE(SUM(sd.quantity * sd.unit_price), 0) AS revenue
		FROM sale_details sd
		JOIN sales s ON sd.sale_id = s.id
		JOIN products p ON sd.product_id = p.id
		JOIN categories c ON p.category_id = c.id
		WHERE s.date >= ? AND s.status IN ?
		GROUP BY c.id, c.name
		ORDER BY revenue DESC, c.id
	`, startDate, revenueStatuses).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to get category sales: %w", err)
	}
	defer categoryRows.Close()

	for categoryRows.Next() {
		var category CategoryData
		if err := categoryRows.Scan(&category.CategoryID, &category.CategoryName, &category.TotalSold, &category.GrossRevenue); err != nil {
			return nil, fmt.Errorf("failed to scan category sales: %w", err)
		}
		category.GrossRevenue = category.GrossRevenue.Round(2)
		analytics.CategorySales = append(analytics.CategorySales, category)
	}
	if err := categoryRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read category sales: %w", err)
	}

	statusRows, err := db.Raw(`
		SELECT
			status,
			COUNT(*) AS count,
			COALESCE(SUM(total), 0) AS value
		FROM sales
		WHERE date >= ?
		GROUP BY status
		ORDER BY count DESC, status
	`, startDate).Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to get sales by status: %w", err)
	}
	defer statusRows.Close()

	for statusRows.Next() {
		var status StatusData
		if err := statusRows.Scan(&status.Status, &status.Count, &status.Value); err != nil {
			return nil, fmt.Errorf("failed to scan sales by status: %w", err)
		}
		status.Value = status.Value.Round(2)
		analytics.SalesByStatus = append(analytics.SalesByStatus, status)
	}
	if err := statusRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sales by status: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"days":  days,
		"sales": analytics.TotalSales,
	}).Debug("Sales analytics computed")

	return analytics, nil
}

// saleTotals counts revenue sales dated in [from, to); a nil to means open ended
func (s *Service) saleTotals(db *gorm.DB, from time.Time, to *time.Time) (int64, decimal.Decimal, error) {
	query := "SELECT COUNT(*), COALESCE(SUM(total), 0) FROM sales WHERE status IN ? AND date >= ?"
	args := []interface{}{revenueStatuses, from}
	if to != nil {
		query += " AND date < ?"
		args = append(args, *to)
	}

	var (
		count int64
		total decimal.Decimal
	)
	if err := db.Raw(query, args...).Row().Scan(&count, &total); err != nil {
		return 0, decimal.Zero, fmt.Errorf("failed to compute sales totals: %w", err)
	}
	return count, total.Round(2), nil
}

// calculateGrowth returns the percentage change from previous to current
func calculateGrowth(current, previous decimal.Decimal) float64 {
	if previous.IsZero() {
		return 0
	}
	growth, _ := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return growth
}
