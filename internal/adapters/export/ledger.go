package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/geocheapest/marketplace/internal/domain"
)

// LedgerWriter renders an order's payouts as an XLSX workbook for the
// accounting handoff.
type LedgerWriter struct{}

func NewLedgerWriter() *LedgerWriter { return &LedgerWriter{} }

const sheet = "Payouts"

func (w *LedgerWriter) Export(order domain.Order, payouts []domain.Payout) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{"Order", "Store", "Currency", "Gross", "Commission", "Fee Share", "Net", "Status", "Transfer Ref"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for row, p := range payouts {
		values := []interface{}{
			order.ID.String(),
			p.StoreID,
			p.Currency,
			p.Gross.StringFixed(2),
			p.Commission.StringFixed(2),
			p.FeeShare.StringFixed(2),
			p.Net.StringFixed(2),
			string(p.Status),
			p.TransferRef,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	summaryRow := len(payouts) + 3
	cell, _ := excelize.CoordinatesToCellName(1, summaryRow)
	if err := f.SetCellValue(sheet, cell, fmt.Sprintf("Order total %s %s, %d payouts",
		order.Total.StringFixed(2), order.Currency, len(payouts))); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
