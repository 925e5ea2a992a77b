package export

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/phenrril/quickcart/internal/domain"
)

const (
	bagSheet     = "Bag"
	summarySheet = "Summary"
)

var bagHeader = []any{"Product ID", "Name", "Brand", "Category", "Quantity", "Price", "MRP", "Line total", "Selected"}

// WriteBag renders the bag and the summary of the selected items as an
// xlsx workbook.
func WriteBag(w io.Writer, items []domain.BagItem, selected map[string]bool, sum domain.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", bagSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	if err := f.SetSheetRow(bagSheet, "A1", &bagHeader); err != nil {
		return err
	}
	_ = f.SetRowStyle(bagSheet, 1, 1, bold)
	for i, it := range items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		line := it.Price.Mul(decimal.NewFromInt(int64(qty)))
		row := []any{
			it.ID, it.Name, it.Brand, it.Category.Name, qty,
			it.Price.InexactFloat64(), it.MRP.InexactFloat64(), line.InexactFloat64(),
			yesNo(selected[it.ID]),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(bagSheet, cell, &row); err != nil {
			return fmt.Errorf("bag row %d: %w", i, err)
		}
	}
	_ = f.SetColWidth(bagSheet, "B", "B", 36)

	if _, err := f.NewSheet(summarySheet); err != nil {
		return err
	}
	rows := [][]any{
		{"Total items", sum.TotalItems},
		{"Total MRP", sum.TotalMRP.InexactFloat64()},
		{"Total price", sum.TotalPrice.InexactFloat64()},
		{"Discount", sum.Discount.InexactFloat64()},
		{"Platform fee", sum.PlatformFee.InexactFloat64()},
		{"Total amount", sum.TotalAmount.InexactFloat64()},
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summarySheet, cell, &r); err != nil {
			return err
		}
	}
	_ = f.SetColStyle(summarySheet, "A", bold)

	_, err = f.WriteTo(w)
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
