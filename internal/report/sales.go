// Package report renders exports as XLSX workbooks.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"pharmacy-pos/internal/model"
)

const (
	salesSheet = "Sales"
	itemsSheet = "Items"
)

var (
	salesHeader = []any{"Receipt", "Date", "Cashier", "Customer", "Payment", "Subtotal", "Discount", "Tax", "Total", "Paid", "Change"}
	itemsHeader = []any{"Receipt", "Product", "Batch", "Quantity", "Unit Price", "Discount", "Total"}
)

// SalesWorkbook writes one row per sale on the Sales sheet and one row per line on
// the Items sheet. Amounts are written as numbers rounded to cents.
func SalesWorkbook(sales []model.Sale, loc *time.Location) ([]byte, error) {
	if loc == nil {
		loc = time.UTC
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", salesSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return nil, err
	}
	if err := writeRow(f, salesSheet, 1, salesHeader); err != nil {
		return nil, err
	}
	if err := writeRow(f, itemsSheet, 1, itemsHeader); err != nil {
		return nil, err
	}

	itemRow := 2
	for i, s := range sales {
		customer := ""
		if s.Customer != nil {
			customer = s.Customer.Name
		}
		row := []any{
			s.ReceiptNumber,
			s.CreatedAt.In(loc).Format("2006-01-02 15:04"),
			s.CashierID.String(),
			customer,
			string(s.PaymentMethod),
			amount(s.Subtotal),
			amount(s.DiscountAmount),
			amount(s.TaxAmount),
			amount(s.Total),
			amount(s.AmountPaid),
			amount(s.ChangeDue),
		}
		if err := writeRow(f, salesSheet, i+2, row); err != nil {
			return nil, err
		}
		for _, it := range s.Items {
			line := []any{
				s.ReceiptNumber,
				it.ProductID.String(),
				it.BatchID.String(),
				it.Quantity,
				amount(it.UnitPrice),
				amount(it.Discount),
				amount(it.Total),
			}
			if err := writeRow(f, itemsSheet, itemRow, line); err != nil {
				return nil, err
			}
			itemRow++
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func amount(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
