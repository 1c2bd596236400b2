package publishing

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/jung-kurt/gofpdf"
)

// PDFRenderer implements the Renderer interface by laying the invoice out as
// a single-page PDF and rasterizing that page to PNG.
type PDFRenderer struct {
	businessName string
}

// NewPDFRenderer creates a new PDFRenderer. businessName appears in the
// invoice header.
func NewPDFRenderer(businessName string) *PDFRenderer {
	if businessName == "" {
		businessName = "Invoice"
	}
	return &PDFRenderer{businessName: businessName}
}

// Render lays out the invoice document and returns it as a PNG image
func (r *PDFRenderer) Render(doc *InvoiceDocument) ([]byte, error) {
	if doc == nil || len(doc.Lines) == 0 {
		return nil, fmt.Errorf("invoice document has no lines")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 12, r.businessName)
	pdf.Ln(14)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Invoice %s", doc.Number))
	pdf.Ln(6)
	pdf.Cell(0, 6, doc.Date.Format("02 Jan 2006"))
	pdf.Ln(10)

	// Table header
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(12, 8, "#", "1", 0, "C", false, 0, "")
	pdf.CellFormat(88, 8, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Quantity", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Unit Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 8, "Total", "1", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	for i, line := range doc.Lines {
		pdf.CellFormat(12, 8, fmt.Sprintf("%d", i+1), "1", 0, "C", false, 0, "")
		pdf.CellFormat(88, 8, line.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, trimZeros(line.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%.2f", line.LineTotal), "1", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(160, 10, "Grand Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 10, fmt.Sprintf("%.2f", doc.GrandTotal), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("writing pdf: %w", err)
	}

	return rasterizePDF(buf.Bytes())
}

// rasterizePDF renders the first page of a PDF to a PNG image
func rasterizePDF(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// trimZeros formats a quantity without trailing decimal noise
func trimZeros(q float64) string {
	if q == float64(int64(q)) {
		return fmt.Sprintf("%d", int64(q))
	}
	return fmt.Sprintf("%.3g", q)
}
