// internal/domain/trade/verify.go
package trade

import (
	"context"
	"fmt"

	"github.com/your-org/stationery-backend/internal/domain/ledger"
	"github.com/your-org/stationery-backend/internal/pkg/apperror"
)

type lineRef struct {
	id        uint
	productID uint
	quantity  int
}

// VerifyPurchaseLedger checks that each purchase line has exactly one
// matching IN movement, plus one cancellation OUT if the purchase was cancelled.
func (s *Service) VerifyPurchaseLedger(ctx context.Context, id uint) error {
	purchase, err := s.GetPurchase(ctx, id)
	if err != nil {
		return err
	}

	lines := make([]lineRef, 0, len(purchase.Details))
	for _, d := range purchase.Details {
		lines = append(lines, lineRef{id: d.ID, productID: d.ProductID, quantity: d.Quantity})
	}

	var movements []ledger.StockMovement
	if err := s.db.WithContext(ctx).Where("purchase_id = ?", id).Order("id ASC").Find(&movements).Error; err != nil {
		return fmt.Errorf("failed to load purchase movements: %w", err)
	}

	return verifyLines("purchase", id, lines, movements,
		expected{ledger.MovementTypeIn, ledger.ReasonPurchase},
		expected{ledger.MovementTypeOut, ledger.ReasonCancellation},
		purchase.Status == PurchaseStatusCancelled)
}

// VerifySaleLedger checks that each sale line has exactly one matching OUT
// movement, plus one cancellation IN if the sale was cancelled.
func (s *Service) VerifySaleLedger(ctx context.Context, id uint) error {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return err
	}

	lines := make([]lineRef, 0, len(sale.Details))
	for _, d := range sale.Details {
		lines = append(lines, lineRef{id: d.ID, productID: d.ProductID, quantity: d.Quantity})
	}

	var movements []ledger.StockMovement
	if err := s.db.WithContext(ctx).Where("sale_id = ?", id).Order("id ASC").Find(&movements).Error; err != nil {
		return fmt.Errorf("failed to load sale movements: %w", err)
	}

	return verifyLines("sale", id, lines, movements,
		expected{ledger.MovementTypeOut, ledger.ReasonSale},
		expected{ledger.MovementTypeIn, ledger.ReasonCancellation},
		sale.Status == SaleStatusCancelled)
}

type expected struct {
	movementType ledger.MovementType
	reason       ledger.MovementReason
}

func verifyLines(kind string, id uint, lines []lineRef, movements []ledger.StockMovement, forward, reversal expected, cancelled bool) error {
	byLine := make(map[uint][]ledger.StockMovement, len(lines))
	for _, m := range movements {
		if m.LineID == nil {
			return apperror.Consistency("movement %d of %s %d has no line reference", m.ID, kind, id)
		}
		byLine[*m.LineID] = append(byLine[*m.LineID], m)
	}

	for _, line := range lines {
		found := byLine[line.id]
		delete(byLine, line.id)

		want := []expected{forward}
		if cancelled {
			want = append(want, reversal)
		}
		if len(found) != len(want) {
			return apperror.Consistency("%s %d line %d has %d movements, expected %d", kind, id, line.id, len(found), len(want))
		}
		for i, m := range found {
			if m.MovementType != want[i].movementType || m.Reason != want[i].reason {
				return apperror.Consistency("%s %d line %d movement %d is %s/%s, expected %s/%s",
					kind, id, line.id, m.ID, m.MovementType, m.Reason, want[i].movementType, want[i].reason)
			}
			if m.ProductID != line.productID || m.Quantity != line.quantity {
				return apperror.Consistency("%s %d line %d movement %d moves %d of product %d, expected %d of product %d",
					kind, id, line.id, m.ID, m.Quantity, m.ProductID, line.quantity, line.productID)
			}
		}
	}

	for lineID := range byLine {
		return apperror.Consistency("%s %d has movements for unknown line %d", kind, id, lineID)
	}
	return nil
}
