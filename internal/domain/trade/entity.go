// internal/domain/trade/entity.go
package trade

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/stationery-backend/internal/domain/catalog"
	"github.com/your-org/stationery-backend/internal/domain/pricing"
	"gorm.io/datatypes"
)

// PurchaseStatus represents the lifecycle of a purchase
type PurchaseStatus string

const (
	PurchaseStatusPending   PurchaseStatus = "pending"
	PurchaseStatusReceived  PurchaseStatus = "received"
	PurchaseStatusCancelled PurchaseStatus = "cancelled"
)

// SaleStatus represents the lifecycle of a sale
type SaleStatus string

const (
	SaleStatusPending   SaleStatus = "pending"
	SaleStatusPaid      SaleStatus = "paid"
	SaleStatusCancelled SaleStatus = "cancelled"
	SaleStatusRefunded  SaleStatus = "refunded"
)

// ReturnStatus represents the lifecycle of a return request
type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "pending"
	ReturnStatusApproved ReturnStatus = "approved"
	ReturnStatusRejected ReturnStatus = "rejected"
)

var purchaseTransitions = map[PurchaseStatus][]PurchaseStatus{
	PurchaseStatusPending: {PurchaseStatusReceived, PurchaseStatusCancelled},
}

var saleTransitions = map[SaleStatus][]SaleStatus{
	SaleStatusPending: {SaleStatusPaid, SaleStatusCancelled},
	SaleStatusPaid:    {SaleStatusRefunded},
}

// CanTransitionTo reports whether the purchase may move to next
func (s PurchaseStatus) CanTransitionTo(next PurchaseStatus) bool {
	for _, allowed := range purchaseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsSettled reports whether goods were received
func (s PurchaseStatus) IsSettled() bool {
	return s == PurchaseStatusReceived
}

// CanTransitionTo reports whether the sale may move to next
func (s SaleStatus) CanTransitionTo(next SaleStatus) bool {
	for _, allowed := range saleTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsSettled reports whether the sale was paid (refunded sales were paid first)
func (s SaleStatus) IsSettled() bool {
	return s == SaleStatusPaid || s == SaleStatusRefunded
}

// Purchase is a goods receipt from a supplier
type Purchase struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	SupplierID        uint            `gorm:"not null;index" json:"supplier_id"`
	Status            PurchaseStatus  `gorm:"not null;size:20;default:'pending';index" json:"status"`
	Total             decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	InvoiceNumber     *string         `gorm:"uniqueIndex;size:50" json:"invoice_number,omitempty"`
	PaymentMethodCode string          `gorm:"size:2;not null;default:'CA'" json:"payment_method"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CreatedBy         *uint           `gorm:"index" json:"created_by,omitempty"`
	Date              time.Time       `gorm:"not null;index" json:"date"`
	ReceivedAt        *time.Time      `json:"received_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Supplier *catalog.Supplier `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Details  []PurchaseDetail  `gorm:"foreignKey:PurchaseID" json:"details,omitempty"`
}

// PurchaseDetail is one line of a purchase
type PurchaseDetail struct {
	ID                 uint              `gorm:"primaryKey" json:"id"`
	PurchaseID         uint              `gorm:"not null;index" json:"purchase_id"`
	ProductID          uint              `gorm:"not null;index" json:"product_id"`
	Quantity           int               `gorm:"not null;check:chk_purchase_details_quantity_positive,quantity > 0" json:"quantity"`
	UnitPrice          decimal.Decimal   `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	PurchaseAttributes datatypes.JSONMap `json:"purchase_attributes"`
	CreatedAt          time.Time         `json:"created_at"`

	Product *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// Sale is a sale to a customer
type Sale struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	CustomerID        uint            `gorm:"not null;index" json:"customer_id"`
	PaymentMethodCode string          `gorm:"size:2;not null;default:'CA'" json:"payment_method"`
	Status            SaleStatus      `gorm:"not null;size:20;default:'pending';index" json:"status"`
	Subtotal          decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`
	Total             decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total"`
	Notes             string          `gorm:"type:text" json:"notes"`
	CreatedBy         *uint           `gorm:"index" json:"created_by,omitempty"`
	Date              time.Time       `gorm:"not null;index" json:"date"`
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
	RefundedAt        *time.Time      `json:"refunded_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	Customer *catalog.Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Details  []SaleDetail      `gorm:"foreignKey:SaleID" json:"details,omitempty"`
}

// SaleDetail is one line of a sale with the discount it was sold under
type SaleDetail struct {
	ID             uint                  `gorm:"primaryKey" json:"id"`
	SaleID         uint                  `gorm:"not null;index" json:"sale_id"`
	ProductID      uint                  `gorm:"not null;index" json:"product_id"`
	Quantity       int                   `gorm:"not null;check:chk_sale_details_quantity_positive,quantity > 0" json:"quantity"`
	UnitPrice      decimal.Decimal       `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	DiscountID     *uint                 `gorm:"index" json:"discount_id,omitempty"`
	DiscountName   string                `gorm:"size:100" json:"discount_name,omitempty"`
	DiscountType   *pricing.DiscountType `gorm:"size:20" json:"discount_type,omitempty"`
	DiscountValue  decimal.NullDecimal   `gorm:"type:numeric(10,2)" json:"discount_value"`
	SaleAttributes datatypes.JSONMap     `json:"sale_attributes"`
	CreatedAt      time.Time             `json:"created_at"`

	Product *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// PurchaseReturn sends goods back to the supplier
type PurchaseReturn struct {
	ID         uint         `gorm:"primaryKey" json:"id"`
	PurchaseID uint         `gorm:"not null;index" json:"purchase_id"`
	ProductID  uint         `gorm:"not null;index" json:"product_id"`
	Quantity   int          `gorm:"not null;check:chk_purchase_returns_quantity_positive,quantity > 0" json:"quantity"`
	Reason     string       `gorm:"type:text;not null" json:"reason"`
	Status     ReturnStatus `gorm:"not null;size:20;default:'pending';index" json:"status"`
	CreatedBy  *uint        `json:"created_by,omitempty"`
	DecidedBy  *uint        `json:"decided_by,omitempty"`
	DecidedAt  *time.Time   `json:"decided_at,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`

	Purchase *Purchase       `gorm:"foreignKey:PurchaseID" json:"purchase,omitempty"`
	Product  *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// SaleReturn takes goods back from a customer
type SaleReturn struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	SaleID    uint         `gorm:"not null;index" json:"sale_id"`
	ProductID uint         `gorm:"not null;index" json:"product_id"`
	Quantity  int          `gorm:"not null;check:chk_sale_returns_quantity_positive,quantity > 0" json:"quantity"`
	Reason    string       `gorm:"type:text;not null" json:"reason"`
	Status    ReturnStatus `gorm:"not null;size:20;default:'pending';index" json:"status"`
	CreatedBy *uint        `json:"created_by,omitempty"`
	DecidedBy *uint        `json:"decided_by,omitempty"`
	DecidedAt *time.Time   `json:"decided_at,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	Sale    *Sale            `gorm:"foreignKey:SaleID" json:"sale,omitempty"`
	Product *catalog.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// LineTotal returns unit price times quantity
func (d *PurchaseDetail) LineTotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity))).Round(2)
}

// FinalPrice returns the unit price after the snapshotted discount, never below zero
func (d *SaleDetail) FinalPrice() decimal.Decimal {
	if d.DiscountType == nil || !d.DiscountValue.Valid {
		return d.UnitPrice.Round(2)
	}
	return pricing.ApplyDiscount(*d.DiscountType, d.DiscountValue.Decimal, d.UnitPrice)
}

// Subtotal returns unit price times quantity, before discount
func (d *SaleDetail) Subtotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity))).Round(2)
}

// Total returns final price times quantity
func (d *SaleDetail) Total() decimal.Decimal {
	return d.FinalPrice().Mul(decimal.NewFromInt(int64(d.Quantity))).Round(2)
}
