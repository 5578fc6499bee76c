package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth     = 190.0
	headerRowH    = 8.0
	bodyRowH      = 7.0
	ellipsis      = "..."
	wideColWeight = 2.5
)

// PDFExporter renders datasets into a tabular PDF. The last column is
// treated as the payload column and gets proportionally more width, since
// score sheet data tends to dwarf the timestamp columns around it.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with an optional title and table body.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(title), "", 1, "C", false, 0, "")
		pdf.Ln(5)
	}

	widths := columnWidths(len(data.Headers))

	pdf.SetFont("Arial", "B", 10)
	for i, header := range data.Headers {
		pdf.CellFormat(widths[i], headerRowH, header, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			value := fitCell(pdf, row[header], widths[i])
			pdf.CellFormat(widths[i], bodyRowH, value, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidths splits the printable width so the final column carries
// wideColWeight shares and every other column one share.
func columnWidths(columns int) []float64 {
	widths := make([]float64, columns)
	if columns == 1 {
		widths[0] = pageWidth
		return widths
	}
	unit := pageWidth / (float64(columns-1) + wideColWeight)
	for i := range widths {
		widths[i] = unit
	}
	widths[columns-1] = unit * wideColWeight
	return widths
}

// fitCell shortens a value that will not fit a single row so the table
// keeps its grid instead of overflowing into the neighbour cell.
func fitCell(pdf *gofpdf.Fpdf, value string, width float64) string {
	limit := width - 2 // cell padding
	if pdf.GetStringWidth(value) <= limit {
		return value
	}
	for len(value) > 0 && pdf.GetStringWidth(value+ellipsis) > limit {
		value = value[:len(value)-1]
	}
	return value + ellipsis
}
