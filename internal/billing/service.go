package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mkrish/voicebill/internal/extracting"
	"github.com/mkrish/voicebill/internal/publishing"
	"github.com/mkrish/voicebill/internal/transcribing"
)

// IDGenerator generates unique IDs for invoices
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUIDs
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Publisher runs the render/upload/shorten/QR chain for an invoice
type Publisher interface {
	Publish(ctx context.Context, doc *publishing.InvoiceDocument) (*publishing.Result, error)
}

// Service handles billing operations: the voice-to-cart pipeline, cart
// review, bill generation and publishing.
type Service struct {
	db          DB
	transcriber transcribing.Transcriber
	extractor   extracting.Extractor
	publisher   Publisher
	storage     Storage
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source
func NewService(db DB, transcriber transcribing.Transcriber, extractor extracting.Extractor, publisher Publisher, storage Storage) *Service {
	return &Service{
		db:          db,
		transcriber: transcriber,
		extractor:   extractor,
		publisher:   publisher,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(db DB, transcriber transcribing.Transcriber, extractor extracting.Extractor, publisher Publisher, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		transcriber: transcriber,
		extractor:   extractor,
		publisher:   publisher,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// GetCart returns the cart for a session, empty if none has been saved yet
func (s *Service) GetCart(sessionID string) (*Cart, error) {
	cart, err := s.db.GetCart(sessionID)
	if err != nil {
		// A session without a stored cart starts empty
		return &Cart{SessionID: sessionID}, nil
	}
	return cart, nil
}

// ProcessRecording runs one recording through the transcribe and extract
// stages and merges the result into the session cart. Each stage makes
// exactly one attempt; on any failure the previously accumulated cart is
// left untouched.
func (s *Service) ProcessRecording(ctx context.Context, sessionID string, audio []byte, contentType string) (string, *Cart, error) {
	transcript, err := s.transcriber.Transcribe(ctx, audio, contentType)
	if err != nil {
		slog.Error("Failed to transcribe recording",
			"session", sessionID,
			"content_type", contentType,
			"audio_size", len(audio),
			"error", err,
		)
		return "", nil, fmt.Errorf("%w: %v", ErrTranscription, err)
	}

	items, err := s.ExtractItems(ctx, transcript)
	if err != nil {
		return transcript, nil, err
	}

	cart, err := s.GetCart(sessionID)
	if err != nil {
		return transcript, nil, err
	}
	cart.Items = MergeItems(cart.Items, items)
	cart.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveCart(cart); err != nil {
		return transcript, nil, fmt.Errorf("saving cart: %w", err)
	}

	slog.Info("Recording processed", "session", sessionID, "items", len(items), "cart_size", len(cart.Items))
	return transcript, cart, nil
}

// ExtractItems turns free text into line items without touching any cart.
// A structurally invalid payload is reported distinctly from a failed call.
func (s *Service) ExtractItems(ctx context.Context, text string) ([]extracting.LineItem, error) {
	items, err := s.extractor.ExtractItems(ctx, text)
	if err != nil {
		if errors.Is(err, extracting.ErrNotArray) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}
	return items, nil
}

// AddCartItem appends a manually selected item to the session cart
func (s *Service) AddCartItem(sessionID, name string, quantity, unitPrice float64) (*Cart, error) {
	cart, err := s.GetCart(sessionID)
	if err != nil {
		return nil, err
	}
	AddItem(cart, name, quantity, unitPrice)
	cart.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveCart(cart); err != nil {
		return nil, fmt.Errorf("saving cart: %w", err)
	}
	return cart, nil
}

// UpdateCartQuantity sets the quantity of one cart row and recomputes its
// line total
func (s *Service) UpdateCartQuantity(sessionID string, index int, quantity float64) (*Cart, error) {
	cart, err := s.GetCart(sessionID)
	if err != nil {
		return nil, err
	}
	if !UpdateQuantity(cart, index, quantity) {
		return nil, fmt.Errorf("no cart item at index %d", index)
	}
	cart.UpdatedAt = s.timeSource.Now()
	if err := s.db.SaveCart(cart); err != nil {
		return nil, fmt.Errorf("saving cart: %w", err)
	}
	return cart, nil
}

// ClearCart empties the session cart
func (s *Service) ClearCart(sessionID string) error {
	if err := s.db.DeleteCart(sessionID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

// GenerateBill projects the session cart into a read-only invoice with a
// freshly computed grand total
func (s *Service) GenerateBill(sessionID string) (*Invoice, error) {
	cart, err := s.GetCart(sessionID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}

	now := s.timeSource.Now()
	id := s.idGenerator.Generate()

	items := make([]CartItem, len(cart.Items))
	copy(items, cart.Items)

	invoice := &Invoice{
		ID:         id,
		Number:     invoiceNumber(id, now),
		Date:       now,
		Items:      items,
		GrandTotal: GrandTotal(items),
		CreatedAt:  now,
	}

	if err := s.db.SaveInvoice(invoice); err != nil {
		return nil, fmt.Errorf("saving invoice: %w", err)
	}

	return invoice, nil
}

// invoiceNumber derives a short human-readable number. It is not required
// to be globally unique.
func invoiceNumber(id string, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), suffix)
}

// GetInvoice retrieves an invoice by ID
func (s *Service) GetInvoice(id string) (*Invoice, error) {
	invoice, err := s.db.GetInvoice(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice: %w", err)
	}
	return invoice, nil
}

// ListInvoices returns all generated invoices
func (s *Service) ListInvoices() ([]*Invoice, error) {
	invoices, err := s.db.ListInvoices()
	if err != nil {
		return nil, fmt.Errorf("listing invoices: %w", err)
	}
	return invoices, nil
}

// GetInvoiceImage returns the rendered image for a published invoice
func (s *Service) GetInvoiceImage(id string) ([]byte, error) {
	data, err := s.storage.Get(id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice image: %w", err)
	}
	return data, nil
}

// PublishInvoice runs the publish chain for an invoice. Partial progress is
// preserved: a successful upload whose shorten step failed still returns the
// original URL alongside the error.
func (s *Service) PublishInvoice(ctx context.Context, invoiceID string) (*PublishedLink, []byte, error) {
	invoice, err := s.db.GetInvoice(invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("getting invoice: %w", err)
	}

	lines := make([]publishing.InvoiceLine, len(invoice.Items))
	for i, item := range invoice.Items {
		lines[i] = publishing.InvoiceLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal,
		}
	}
	doc := &publishing.InvoiceDocument{
		Number:     invoice.Number,
		Date:       invoice.Date,
		Lines:      lines,
		GrandTotal: invoice.GrandTotal,
	}

	result, publishErr := s.publisher.Publish(ctx, doc)

	if result != nil && len(result.ImagePNG) > 0 {
		if _, err := s.storage.Save(invoice.ID, result.ImagePNG); err != nil {
			slog.Warn("Failed to store rendered invoice image", "invoice", invoice.ID, "error", err)
		}
	}

	link := &PublishedLink{}
	if result != nil {
		link.OriginalURL = result.OriginalURL
		link.ShortURL = result.ShortURL
	}

	if publishErr != nil {
		slog.Error("Publish failed", "invoice", invoice.ID, "error", publishErr)
		return link, nil, publishErr
	}

	return link, result.QRPNG, nil
}
