// internal/domain/invoice/entity.go
package invoice

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/your-org/stationery-backend/internal/domain/trade"
)

// DueStatus represents the payment situation of an invoice on a given day
type DueStatus string

const (
	DueStatusPaid    DueStatus = "paid"
	DueStatusOverdue DueStatus = "overdue"
	DueStatusPending DueStatus = "pending"
	DueStatusCurrent DueStatus = "current"
	DueStatusVoid    DueStatus = "void"
)

// PurchaseInvoice is the supplier invoice of one purchase
type PurchaseInvoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	PurchaseID    uint            `gorm:"not null;uniqueIndex" json:"purchase_id"`
	InvoiceNumber string          `gorm:"not null;uniqueIndex;size:50" json:"invoice_number"`
	IssueDate     time.Time       `gorm:"not null" json:"issue_date"`
	DueDate       time.Time       `gorm:"not null;index" json:"due_date"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Discount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     *uint           `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Purchase *trade.Purchase `gorm:"foreignKey:PurchaseID" json:"purchase,omitempty"`
}

// SaleInvoice is the customer invoice of one sale
type SaleInvoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	SaleID        uint            `gorm:"not null;uniqueIndex" json:"sale_id"`
	InvoiceNumber string          `gorm:"not null;uniqueIndex;size:50" json:"invoice_number"`
	IssueDate     time.Time       `gorm:"not null" json:"issue_date"`
	DueDate       time.Time       `gorm:"not null;index" json:"due_date"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
	Discount      decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"discount"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     *uint           `json:"created_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`

	Sale *trade.Sale `gorm:"foreignKey:SaleID" json:"sale,omitempty"`
}

// DueStatus reports whether the purchase invoice is past its due day. Purchase must be loaded.
func (i *PurchaseInvoice) DueStatus(today time.Time) DueStatus {
	if i.Purchase != nil && i.Purchase.Status == trade.PurchaseStatusCancelled {
		return DueStatusVoid
	}
	if day(today).After(day(i.DueDate.In(today.Location()))) {
		return DueStatusOverdue
	}
	return DueStatusCurrent
}

// DueStatus reports paid, overdue or pending for the sale invoice. Sale must be loaded.
func (i *SaleInvoice) DueStatus(today time.Time) DueStatus {
	if i.Sale != nil {
		if i.Sale.Status == trade.SaleStatusCancelled {
			return DueStatusVoid
		}
		if i.Sale.Status.IsSettled() {
			return DueStatusPaid
		}
	}
	if day(today).After(day(i.DueDate.In(today.Location()))) {
		return DueStatusOverdue
	}
	return DueStatusPending
}

// day truncates t to midnight in its own location
func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
