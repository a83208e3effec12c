// internal/domain/ledger/alerts.go
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
)

// RefreshAlert opens, updates or resolves the stock alert of a product
func (s *Service) RefreshAlert(ctx context.Context, productID uint) error {
	db := s.db.WithContext(ctx)

	var product catalog.Product
	if err := db.First(&product, productID).Error; err != nil {
		return apperror.FromDB(err, "product", productID)
	}

	var open StockAlert
	err := db.Where("product_id = ? AND is_resolved = ?", productID, false).
		Order("id DESC").Limit(1).Find(&open).Error
	if err != nil {
		return fmt.Errorf("failed to load stock alert: %w", err)
	}
	hasOpen := open.ID != 0

	if !product.Active || !product.IsLowStock() {
		if hasOpen {
			now := time.Now()
			return db.Model(&open).Updates(map[string]interface{}{
				"is_resolved": true,
				"resolved_at": &now,
			}).Error
		}
		return nil
	}

	alertType := AlertTypeLowStock
	message := fmt.Sprintf("%s is below its minimum stock: %d left, minimum %d", product.Name, product.Stock, product.MinimumStock)
	if product.IsOutOfStock() {
		alertType = AlertTypeOutOfStock
		message = fmt.Sprintf("%s is out of stock", product.Name)
	}

	if hasOpen {
		if open.AlertType == alertType && open.Message == message {
			return nil
		}
		return db.Model(&open).Updates(map[string]interface{}{
			"alert_type": alertType,
			"message":    message,
		}).Error
	}

	alert := &StockAlert{
		ProductID: productID,
		AlertType: alertType,
		Message:   message,
	}
	if err := db.Create(alert).Error; err != nil {
		return fmt.Errorf("failed to create stock alert: %w", err)
	}

	s.logger.WithField("product_id", productID).WithField("alert_type", alertType).Warn(message)
	return nil
}

// ScanLowStock refreshes alerts for every product that currently needs one
// and for every open alert, returning the number of low-stock products.
func (s *Service) ScanLowStock(ctx context.Context) (int, error) {
	var ids []uint
	if err := s.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("active = ? AND stock < minimum_stock", true).
		Pluck("id", &ids).Error; err != nil {
		return 0, fmt.Errorf("failed to scan low stock products: %w", err)
	}

	var openIDs []uint
	if err := s.db.WithContext(ctx).Model(&StockAlert{}).
		Where("is_resolved = ?", false).
		Pluck("product_id", &openIDs).Error; err != nil {
		return 0, fmt.Errorf("failed to load open alerts: %w", err)
	}

	seen := make(map[uint]struct{}, len(ids)+len(openIDs))
	for _, id := range append(ids, openIDs...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		if err := s.RefreshAlert(ctx, id); err != nil {
			return 0, err
		}
	}

	return len(ids), nil
}

// OpenAlerts lists unresolved alerts, out of stock first
func (s *Service) OpenAlerts(ctx context.Context) ([]StockAlert, error) {
	var alerts []StockAlert
	err := s.db.WithContext(ctx).Preload("Product").
		Where("is_resolved = ?", false).
		Order("CASE WHEN alert_type = 'out_of_stock' THEN 0 ELSE 1 END, created_at ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve stock alerts: %w", err)
	}
	return alerts, nil
}

// ResolveAlert marks an alert as handled
func (s *Service) ResolveAlert(ctx context.Context, id uint) error {
	now := time.Now()
	result := s.db.WithContext(ctx).Model(&StockAlert{}).
		Where("id = ? AND is_resolved = ?", id, false).
		Updates(map[string]interface{}{"is_resolved": true, "resolved_at": &now})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve stock alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperror.NotFound("open stock alert", id)
	}
	return nil
}
