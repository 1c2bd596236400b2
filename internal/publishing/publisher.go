package publishing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Stage errors for the publish chain. None of them is retried automatically;
// recovery is the user re-triggering the publish.
var (
	ErrRender  = errors.New("rendering invoice failed")
	ErrUpload  = errors.New("uploading invoice image failed")
	ErrShorten = errors.New("shortening link failed")
)

// InvoiceLine is one row of an invoice document to be rendered.
type InvoiceLine struct {
	Name      string
	Quantity  float64
	UnitPrice float64
	LineTotal float64
}

// InvoiceDocument is the printable view of a finalized invoice.
type InvoiceDocument struct {
	Number     string
	Date       time.Time
	Lines      []InvoiceLine
	GrandTotal float64
}

// Renderer rasterizes an invoice document to a PNG image.
type Renderer interface {
	Render(doc *InvoiceDocument) ([]byte, error)
}

// Uploader pushes an image to a public host and returns its URL.
type Uploader interface {
	Upload(ctx context.Context, imagePNG []byte) (string, error)
}

// Shortener turns a long URL into a short one.
type Shortener interface {
	Shorten(ctx context.Context, longURL string) (string, error)
}

// Payee identifies who gets paid in the generated payment QR.
type Payee struct {
	VPA  string // UPI virtual payment address
	Name string
}

// Result carries whatever stages of a publish run completed. A failed run
// still returns the partial result so the caller can surface it; nothing is
// rolled back.
type Result struct {
	ImagePNG    []byte
	OriginalURL string
	ShortURL    string
	QRPNG       []byte
}

// Publisher runs the render, upload, shorten and QR-encode chain. Stages run
// strictly in order and each one short-circuits on failure of the previous.
type Publisher struct {
	renderer  Renderer
	uploader  Uploader
	shortener Shortener
	payee     Payee
}

// NewPublisher creates a new Publisher
func NewPublisher(renderer Renderer, uploader Uploader, shortener Shortener, payee Payee) *Publisher {
	return &Publisher{
		renderer:  renderer,
		uploader:  uploader,
		shortener: shortener,
		payee:     payee,
	}
}

// Publish turns an invoice document into a shareable, payable artifact. The
// payment URI note embeds the short URL so a scanning wallet can correlate
// payment to bill; the amount is the invoice grand total.
func (p *Publisher) Publish(ctx context.Context, doc *InvoiceDocument) (*Result, error) {
	result := &Result{}

	imagePNG, err := p.renderer.Render(doc)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrRender, err)
	}
	result.ImagePNG = imagePNG

	originalURL, err := p.uploader.Upload(ctx, imagePNG)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrUpload, err)
	}
	result.OriginalURL = originalURL
	slog.Info("Invoice image uploaded", "invoice", doc.Number, "url", originalURL)

	shortURL, err := p.shortener.Shorten(ctx, originalURL)
	if err != nil {
		// The original URL stays in the result; partial success is
		// surfaced, not discarded.
		return result, fmt.Errorf("%w: %v", ErrShorten, err)
	}
	result.ShortURL = shortURL

	payload := BuildPaymentURI(p.payee.VPA, p.payee.Name, doc.GrandTotal, shortURL)
	qrPNG, err := EncodeQR(payload)
	if err != nil {
		return result, fmt.Errorf("%w: encoding qr: %v", ErrRender, err)
	}
	result.QRPNG = qrPNG

	return result, nil
}
