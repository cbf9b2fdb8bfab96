package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"retailhub/backend/internal/domain"
)

const (
	salesSheet = "Sales"
	linesSheet = "Lines"
)

// WriteSalesWorkbook exports sales as an XLSX file with one sheet of sale
// headers and one of line items.
func WriteSalesWorkbook(w io.Writer, sales []domain.Sale) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), salesSheet); err != nil {
		return fmt.Errorf("xlsx: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(linesSheet); err != nil {
		return fmt.Errorf("xlsx: add sheet: %w", err)
	}

	header := []interface{}{"Sale ID", "Date", "Customer", "Items", "Subtotal", "Discount", "Total", "Payment Method"}
	if err := f.SetSheetRow(salesSheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}
	lineHeader := []interface{}{"Sale ID", "Product", "Quantity", "Unit Price", "Total"}
	if err := f.SetSheetRow(linesSheet, "A1", &lineHeader); err != nil {
		return fmt.Errorf("xlsx: header: %w", err)
	}

	lineRow := 2
	for i, sale := range sales {
		row := []interface{}{
			sale.ID,
			sale.CreatedAt.Format("2006-01-02 15:04"),
			sale.CustomerName,
			sale.ItemCount(),
			sale.Subtotal.InexactFloat64(),
			sale.Discount.InexactFloat64(),
			sale.Total.InexactFloat64(),
			sale.PaymentMethod,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("xlsx: cell: %w", err)
		}
		if err := f.SetSheetRow(salesSheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx: sale row: %w", err)
		}

		for _, line := range sale.Lines {
			lr := []interface{}{
				sale.ID,
				line.ProductName,
				line.Quantity,
				line.UnitPrice.InexactFloat64(),
				line.Total.InexactFloat64(),
			}
			cell, err := excelize.CoordinatesToCellName(1, lineRow)
			if err != nil {
				return fmt.Errorf("xlsx: cell: %w", err)
			}
			if err := f.SetSheetRow(linesSheet, cell, &lr); err != nil {
				return fmt.Errorf("xlsx: line row: %w", err)
			}
			lineRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("xlsx: write: %w", err)
	}
	return nil
}
