// internal/domain/ledger/entity.go
package ledger

import (
	"time"

	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
)

// MovementType represents the direction of a stock movement
type MovementType string

const (
	MovementTypeIn         MovementType = "IN"
	MovementTypeOut        MovementType = "OUT"
	MovementTypeAdjustment MovementType = "ADJ"
)

// MovementReason represents why stock moved
type MovementReason string

const (
	ReasonPurchase     MovementReason = "purchase"
	ReasonSale         MovementReason = "sale"
	ReasonReturn       MovementReason = "return"
	ReasonAdjustment   MovementReason = "adjustment"
	ReasonDamaged      MovementReason = "damaged"
	ReasonExpired      MovementReason = "expired"
	ReasonCancellation MovementReason = "cancellation"
)

var allowedReasons = map[MovementType][]MovementReason{
	MovementTypeIn:         {ReasonPurchase, ReasonReturn, ReasonAdjustment, ReasonCancellation},
	MovementTypeOut:        {ReasonSale, ReasonReturn, ReasonDamaged, ReasonExpired, ReasonAdjustment, ReasonCancellation},
	MovementTypeAdjustment: {ReasonAdjustment},
}

// Valid reports whether t is a known movement type
func (t MovementType) Valid() bool {
	_, ok := allowedReasons[t]
	return ok
}

// Allows reports whether the reason may be used with this movement type
func (t MovementType) Allows(reason MovementReason) bool {
	for _, r := range allowedReasons[t] {
		if r == reason {
			return true
		}
	}
	return false
}

// AlertType represents the kind of stock alert
type AlertType string

const (
	AlertTypeLowStock   AlertType = "low_stock"
	AlertTypeOutOfStock AlertType = "out_of_stock"
)

// StockMovement is an immutable ledger row. At most one transaction reference is set.
type StockMovement struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	ProductID        uint           `gorm:"not null;index" json:"product_id"`
	Quantity         int            `gorm:"not null;check:chk_stock_movements_quantity_positive,quantity > 0" json:"quantity"`
	MovementType     MovementType   `gorm:"not null;size:3;index" json:"movement_type"`
	Reason           MovementReason `gorm:"not null;size:20;index" json:"reason"`
	PreviousStock    int            `gorm:"not null" json:"previous_stock"`
	NewStock         int            `gorm:"not null" json:"new_stock"`
	PurchaseID       *uint          `gorm:"index;check:chk_stock_movements_single_reference,(CASE WHEN purchase_id IS NULL THEN 0 ELSE 1 END + CASE WHEN sale_id IS NULL THEN 0 ELSE 1 END + CASE WHEN purchase_return_id IS NULL THEN 0 ELSE 1 END + CASE WHEN sale_return_id IS NULL THEN 0 ELSE 1 END) <= 1" json:"purchase_id,omitempty"`
	SaleID           *uint          `gorm:"index" json:"sale_id,omitempty"`
	PurchaseReturnID *uint          `gorm:"index" json:"purchase_return_id,omitempty"`
	SaleReturnID     *uint          `gorm:"index" json:"sale_return_id,omitempty"`
	LineID           *uint          `gorm:"index" json:"line_id,omitempty"`
	Notes            string         `gorm:"type:text" json:"notes"`
	CreatedBy        *uint          `gorm:"index" json:"created_by,omitempty"`
	CreatedAt        time.Time      `gorm:"index" json:"created_at"`

	Product *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// StockAlert flags a product whose stock fell below its minimum
type StockAlert struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	ProductID  uint       `gorm:"not null;index" json:"product_id"`
	AlertType  AlertType  `gorm:"not null;size:20" json:"alert_type"`
	Message    string     `gorm:"type:text" json:"message"`
	IsResolved bool       `gorm:"default:false;index" json:"is_resolved"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`

	Product *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// Reference names the transaction a movement belongs to
type Reference struct {
	PurchaseID       *uint
	SaleID           *uint
	PurchaseReturnID *uint
	SaleReturnID     *uint
	LineID           *uint
}

// Count returns how many transaction references are set
func (r Reference) Count() int {
	n := 0
	for _, id := range []*uint{r.PurchaseID, r.SaleID, r.PurchaseReturnID, r.SaleReturnID} {
		if id != nil {
			n++
		}
	}
	return n
}

// Delta returns the signed stock change of the movement
func (m *StockMovement) Delta() int {
	return m.NewStock - m.PreviousStock
}

// Reference returns the movement's transaction reference
func (m *StockMovement) Reference() Reference {
	return Reference{
		PurchaseID:       m.PurchaseID,
		SaleID:           m.SaleID,
		PurchaseReturnID: m.PurchaseReturnID,
		SaleReturnID:     m.SaleReturnID,
		LineID:           m.LineID,
	}
}

// validate checks the row before insert
func (m *StockMovement) validate() error {
	if m.Quantity <= 0 {
		return apperror.Validation("quantity", "must be greater than zero")
	}
	if !m.MovementType.Valid() {
		return apperror.Validation("movement_type", "unknown movement type %q", m.MovementType)
	}
	if !m.MovementType.Allows(m.Reason) {
		return apperror.Validation("reason", "reason %q is not allowed for %s movements", m.Reason, m.MovementType)
	}
	if m.Reference().Count() > 1 {
		return apperror.Consistency("stock movement may reference at most one transaction")
	}
	if m.MovementType == MovementTypeAdjustment && m.Reference().Count() > 0 {
		return apperror.Validation("movement_type", "adjustments cannot reference a transaction")
	}
	return nil
}
