package publishing

import (
	"bytes"
	"image/png"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PDFRenderer", func() {
	var (
		renderer *PDFRenderer
		doc      *InvoiceDocument
	)

	BeforeEach(func() {
		renderer = NewPDFRenderer("Corner Shop")
		doc = &InvoiceDocument{
			Number: "INV-20250601-ABC123",
			Date:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
			Lines: []InvoiceLine{
				{Name: "rice", Quantity: 2, UnitPrice: 120, LineTotal: 240},
				{Name: "sugar", Quantity: 0.5, UnitPrice: 45, LineTotal: 22.5},
			},
			GrandTotal: 262.5,
		}
	})

	It("renders a decodable PNG image", func() {
		data, err := renderer.Render(doc)
		Expect(err).NotTo(HaveOccurred())

		img, err := png.Decode(bytes.NewReader(data))
		Expect(err).NotTo(HaveOccurred())
		Expect(img.Bounds().Dx()).To(BeNumerically(">", 0))
	})

	It("rejects a document without lines", func() {
		_, err := renderer.Render(&InvoiceDocument{Number: "INV-1"})
		Expect(err).To(HaveOccurred())
	})

	It("rejects a nil document", func() {
		_, err := renderer.Render(nil)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("trimZeros", func() {
	It("drops the decimal part of whole quantities", func() {
		Expect(trimZeros(2)).To(Equal("2"))
	})

	It("keeps fractional quantities", func() {
		Expect(trimZeros(0.5)).To(Equal("0.5"))
	})
})
