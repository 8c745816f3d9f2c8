package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 277.0 // A4 landscape minus margins
	pdfTimeColumn = 25.0
)

// PDFExporter renders weekly grids into a landscape table, one page per dataset.
type PDFExporter struct{}

func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Page is a titled dataset.
type Page struct {
	Title string
	Data  Dataset
}

func (e *PDFExporter) Render(pages ...Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf requires at least one page")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 10)
	translate := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range pages {
		data := page.Data
		if len(data.Headers) == 0 {
			return nil, fmt.Errorf("pdf page %q requires at least one header", page.Title)
		}
		pdf.AddPage()

		if page.Title != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, translate(page.Title), "", 1, "C", false, 0, "")
			pdf.Ln(3)
		}

		widths := columnWidths(len(data.Headers))
		pdf.SetFont("Arial", "B", 9)
		pdf.SetFillColor(68, 114, 196)
		pdf.SetTextColor(255, 255, 255)
		for i, header := range data.Headers {
			pdf.CellFormat(widths[i], 8, translate(header), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Arial", "", 7)
		pdf.SetTextColor(0, 0, 0)
		for _, row := range data.Rows {
			for i, header := range data.Headers {
				value := row[header]
				fill := value == FreeLabel
				if fill {
					pdf.SetFillColor(242, 242, 242)
				}
				pdf.CellFormat(widths[i], 9, translate(value), "1", 0, "C", fill, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(columns int) []float64 {
	widths := make([]float64, columns)
	if columns == 1 {
		widths[0] = pdfPageWidth
		return widths
	}
	widths[0] = pdfTimeColumn
	for i := 1; i < columns; i++ {
		widths[i] = (pdfPageWidth - pdfTimeColumn) / float64(columns-1)
	}
	return widths
}
