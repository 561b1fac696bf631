package converter

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fixedExtractor struct {
	rows []Row
	err  error
}

func (e *fixedExtractor) Extract(ctx context.Context, pdf []byte) ([]Row, error) {
	return e.rows, e.err
}

func TestConvertWritesWorkbook(t *testing.T) {
	rows := []Row{
		{Date: "01/03/2026", Description: "Depósito nómina", Amount: "+12,500.00", Balance: "14,200.50"},
		{Date: "03/03/2026", Description: "Pago servicio luz", Amount: "-730.00", Balance: "13,470.50"},
	}
	conv := NewStatementConverter(&fixedExtractor{rows: rows})

	artifact, err := conv.Convert(context.Background(), []byte("%PDF-1.4"))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(artifact))
	require.NoError(t, err)
	defer f.Close()

	const sheet = "Estado de cuenta"
	assert.Equal(t, sheet, f.GetSheetName(0))

	header, err := f.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Fecha", header)

	desc, err := f.GetCellValue(sheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Depósito nómina", desc)

	balance, err := f.GetCellValue(sheet, "D3")
	require.NoError(t, err)
	assert.Equal(t, "13,470.50", balance)
}

func TestConvertFailsWithoutRows(t *testing.T) {
	conv := NewStatementConverter(&fixedExtractor{})
	_, err := conv.Convert(context.Background(), []byte("%PDF-1.4"))
	assert.Error(t, err)
}

func TestConvertPropagatesExtractorError(t *testing.T) {
	conv := NewStatementConverter(&fixedExtractor{err: errors.New("model timeout")})
	_, err := conv.Convert(context.Background(), []byte("%PDF-1.4"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model timeout")
}

func TestStaticExtractorPullsLiteralStrings(t *testing.T) {
	pdf := []byte("%PDF-1.4\nBT (Deposito nomina) Tj (Pago luz) Tj ET\nstream\x00\x01endstream")
	rows, err := NewStaticExtractor().Extract(context.Background(), pdf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Deposito nomina", rows[0].Description)
	assert.Equal(t, "Pago luz", rows[1].Description)
}

func TestStaticExtractorAlwaysYieldsARow(t *testing.T) {
	rows, err := NewStaticExtractor().Extract(context.Background(), []byte("%PDF-1.4\n\x00\x01\x02"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestParseRows(t *testing.T) {
	raw := `[{"date":"01/03","description":"Pago","amount":"-10.00","balance":"90.00"}]`

	t.Run("plain JSON", func(t *testing.T) {
		rows, err := parseRows(raw)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Pago", rows[0].Description)
	})

	t.Run("fenced JSON", func(t *testing.T) {
		rows, err := parseRows("```json\n" + raw + "\n```")
		require.NoError(t, err)
		require.Len(t, rows, 1)
	})

	t.Run("prose instead of JSON", func(t *testing.T) {
		_, err := parseRows("Sure! Here are the rows you asked for.")
		assert.Error(t, err)
	})
}
