// internal/pkg/export/movements.go
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"
	"github.com/your-org/stationery-backend/internal/domain/ledger"
)

const movementSheet = "Movements"

// MovementRow is one flattened ledger row of a report
type MovementRow struct {
	ID            uint   `csv:"id"`
	Date          string `csv:"date"`
	ProductID     uint   `csv:"product_id"`
	Product       string `csv:"product"`
	Type          string `csv:"movement_type"`
	Reason        string `csv:"reason"`
	Quantity      int    `csv:"quantity"`
	PreviousStock int    `csv:"previous_stock"`
	NewStock      int    `csv:"new_stock"`
	Reference     string `csv:"reference"`
	Notes         string `csv:"notes"`
}

var movementHeaders = []interface{}{
	"ID", "Date", "Product ID", "Product", "Type", "Reason",
	"Quantity", "Previous stock", "New stock", "Reference", "Notes",
}

// MovementRows flattens movements for export. Product must be preloaded to get names.
func MovementRows(movements []ledger.StockMovement, loc *time.Location) []*MovementRow {
	rows := make([]*MovementRow, 0, len(movements))
	for i := range movements {
		m := &movements[i]
		row := &MovementRow{
			ID:            m.ID,
			Date:          m.CreatedAt.In(loc).Format("2006-01-02 15:04:05"),
			ProductID:     m.ProductID,
			Type:          string(m.MovementType),
			Reason:        string(m.Reason),
			Quantity:      m.Quantity,
			PreviousStock: m.PreviousStock,
			NewStock:      m.NewStock,
			Reference:     reference(m.Reference()),
			Notes:         m.Notes,
		}
		if m.Product != nil {
			row.Product = m.Product.Name
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes rows as CSV with a header line
func WriteCSV(w io.Writer, rows []*MovementRow) error {
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// WriteXLSX writes rows as a single sheet workbook
func WriteXLSX(w io.Writer, rows []*MovementRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", movementSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := f.SetSheetRow(movementSheet, "A1", &movementHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			r.ID, r.Date, r.ProductID, r.Product, r.Type, r.Reason,
			r.Quantity, r.PreviousStock, r.NewStock, r.Reference, r.Notes,
		}
		if err := f.SetSheetRow(movementSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(movementSheet, "B", "B", 20); err != nil {
		return err
	}
	if err := f.SetColWidth(movementSheet, "D", "D", 32); err != nil {
		return err
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write xlsx: %w", err)
	}
	return nil
}

func reference(r ledger.Reference) string {
	var ref string
	switch {
	case r.PurchaseID != nil:
		ref = fmt.Sprintf("purchase:%d", *r.PurchaseID)
	case r.SaleID != nil:
		ref = fmt.Sprintf("sale:%d", *r.SaleID)
	case r.PurchaseReturnID != nil:
		ref = fmt.Sprintf("purchase_return:%d", *r.PurchaseReturnID)
	case r.SaleReturnID != nil:
		ref = fmt.Sprintf("sale_return:%d", *r.SaleReturnID)
	default:
		return ""
	}
	if r.LineID != nil {
		ref += fmt.Sprintf("/line:%d", *r.LineID)
	}
	return ref
}
