// internal/domain/ledger/events.go
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/stationery-backend/internal/pkg/metrics"
)

// EventTypeStockMovementRecorded is emitted once per committed movement
const EventTypeStockMovementRecorded = "stock.movement.recorded"

// Publisher sends events to the outbound stream
type Publisher interface {
	PublishEvent(ctx context.Context, key string, event interface{}) error
}

// BaseEvent carries the envelope shared by all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// StockMovementEvent describes a committed stock movement
type StockMovementEvent struct {
	BaseEvent
	MovementID       uint           `json:"movement_id"`
	ProductID        uint           `json:"product_id"`
	MovementType     MovementType   `json:"movement_type"`
	Reason           MovementReason `json:"reason"`
	Quantity         int            `json:"quantity"`
	PreviousStock    int            `json:"previous_stock"`
	NewStock         int            `json:"new_stock"`
	PurchaseID       *uint          `json:"purchase_id,omitempty"`
	SaleID           *uint          `json:"sale_id,omitempty"`
	PurchaseReturnID *uint          `json:"purchase_return_id,omitempty"`
	SaleReturnID     *uint          `json:"sale_return_id,omitempty"`
	LineID           *uint          `json:"line_id,omitempty"`
}

// NewStockMovementEvent builds the event for a movement
func NewStockMovementEvent(m *StockMovement) *StockMovementEvent {
	return &StockMovementEvent{
		BaseEvent: BaseEvent{
			EventID:   uuid.New().String(),
			EventType: EventTypeStockMovementRecorded,
			Timestamp: time.Now().UTC(),
		},
		MovementID:       m.ID,
		ProductID:        m.ProductID,
		MovementType:     m.MovementType,
		Reason:           m.Reason,
		Quantity:         m.Quantity,
		PreviousStock:    m.PreviousStock,
		NewStock:         m.NewStock,
		PurchaseID:       m.PurchaseID,
		SaleID:           m.SaleID,
		PurchaseReturnID: m.PurchaseReturnID,
		SaleReturnID:     m.SaleReturnID,
		LineID:           m.LineID,
	}
}

// AfterCommit runs the side effects of committed movements. Failures are
// logged and never undo the stock change.
func (s *Service) AfterCommit(ctx context.Context, movements ...*StockMovement) {
	touched := make(map[uint]struct{})

	for _, m := range movements {
		if m == nil {
			continue
		}
		metrics.StockMovementsTotal.WithLabelValues(string(m.MovementType), string(m.Reason)).Inc()
		metrics.StockUnitsMovedTotal.WithLabelValues(string(m.MovementType)).Add(float64(m.Quantity))
		touched[m.ProductID] = struct{}{}

		if s.publisher != nil {
			key := fmt.Sprintf("product-%d", m.ProductID)
			if err := s.publisher.PublishEvent(ctx, key, NewStockMovementEvent(m)); err != nil {
				s.logger.WithError(err).WithFields(logrus.Fields{
					"movement_id": m.ID,
					"product_id":  m.ProductID,
				}).Warn("failed to publish stock movement event")
			}
		}
	}

	for productID := range touched {
		if err := s.RefreshAlert(ctx, productID); err != nil {
			s.logger.WithError(err).WithField("product_id", productID).Warn("failed to refresh stock alert")
		}
	}
}
