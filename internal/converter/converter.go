// Package converter turns an uploaded bank statement PDF into an Excel
// workbook. Row extraction is delegated to an Extractor (an external model
// API in production); this package only owns the workbook layout.
package converter

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Row is one statement line.
type Row struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Balance     string `json:"balance"`
}

// Extractor pulls statement rows out of raw PDF bytes.
type Extractor interface {
	Extract(ctx context.Context, pdf []byte) ([]Row, error)
}

// Converter produces the downloadable artifact from an uploaded document.
type Converter interface {
	Convert(ctx context.Context, pdf []byte) ([]byte, error)
}

// StatementConverter writes extracted rows into an xlsx workbook.
type StatementConverter struct {
	extractor Extractor
}

// NewStatementConverter creates a converter backed by the given extractor.
func NewStatementConverter(extractor Extractor) *StatementConverter {
	return &StatementConverter{extractor: extractor}
}

// Convert extracts rows and renders the workbook.
func (c *StatementConverter) Convert(ctx context.Context, pdf []byte) ([]byte, error) {
	rows, err := c.extractor.Extract(ctx, pdf)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no statement rows found in document")
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Estado de cuenta"
	f.SetSheetName(f.GetSheetName(0), sheet)

	header := []interface{}{"Fecha", "Descripción", "Cargo/Abono", "Saldo"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		values := []interface{}{row.Date, row.Description, row.Amount, row.Balance}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}
	return buf.Bytes(), nil
}
