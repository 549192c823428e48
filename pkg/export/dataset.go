package export

import "fmt"

// Dataset is a titled table ready for rendering.
type Dataset struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Totals, when set, is rendered as a final emphasised row.
	Totals []string
}

// Renderer turns a dataset into file bytes.
type Renderer interface {
	Render(data Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer registered for format (csv, pdf or xlsx).
func ForFormat(format string) (Renderer, error) {
	switch format {
	case "csv":
		return NewCSVExporter(), nil
	case "pdf":
		return NewPDFExporter(), nil
	case "xlsx":
		return NewXLSXExporter(), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

// AddRow appends values as a row.
func (d *Dataset) AddRow(values ...string) {
	d.Rows = append(d.Rows, values)
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return fmt.Errorf("dataset requires at least one header")
	}
	for i, row := range d.Rows {
		if len(row) != len(d.Headers) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(d.Headers))
		}
	}
	if d.Totals != nil && len(d.Totals) != len(d.Headers) {
		return fmt.Errorf("totals row has %d cells, want %d", len(d.Totals), len(d.Headers))
	}
	return nil
}
