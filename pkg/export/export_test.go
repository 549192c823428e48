package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleDataset() Dataset {
	data := Dataset{
		Title:   "Income 2024-05",
		Headers: []string{"Date", "Head", "Amount"},
		Totals:  []string{"", "Total", "150.50"},
	}
	data.AddRow("2024-05-01", "Donations, local", "100")
	data.AddRow("2024-05-02", "Canteen", "50.50")
	return data
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	expected := "Date,Head,Amount\n2024-05-01,\"Donations, local\",100\n2024-05-02,Canteen,50.50\n,Total,150.50\n"
	assert.Equal(t, expected, string(out))
}

func TestExportersRejectRaggedRows(t *testing.T) {
	data := Dataset{Headers: []string{"A", "B"}, Rows: [][]string{{"only one"}}}
	for _, format := range []string{"csv", "pdf", "xlsx"} {
		renderer, err := ForFormat(format)
		require.NoError(t, err)
		_, err = renderer.Render(data)
		assert.Error(t, err, format)
	}
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))
}

func TestXLSXExporterRender(t *testing.T) {
	out, err := NewXLSXExporter().Render(sampleDataset())
	require.NoError(t, err)

	book, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer book.Close() //nolint:errcheck

	title, err := book.GetCellValue(xlsxSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Income 2024-05", title)

	header, err := book.GetCellValue(xlsxSheet, "C3")
	require.NoError(t, err)
	assert.Equal(t, "Amount", header)

	head, err := book.GetCellValue(xlsxSheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "Donations, local", head)

	cellType, err := book.GetCellType(xlsxSheet, "C5")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType)

	total, err := book.GetCellValue(xlsxSheet, "C6")
	require.NoError(t, err)
	assert.Equal(t, "150.5", total)
}

func TestForFormat(t *testing.T) {
	for format, ext := range map[string]string{"csv": "csv", "pdf": "pdf", "xlsx": "xlsx"} {
		renderer, err := ForFormat(format)
		require.NoError(t, err)
		assert.Equal(t, ext, renderer.Extension())
		assert.NotEmpty(t, renderer.ContentType())
	}
	_, err := ForFormat("docx")
	assert.Error(t, err)
}
