package billing

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/mkrish/voicebill/internal/publishing"
)

const defaultSessionID = "default"

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Session-ID")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// sessionID resolves the billing session for a request. Sessions come from
// the X-Session-ID header or the bill_session cookie; everything else shares
// one default session, racing on a last-write-wins basis like two browser
// tabs over the same local storage.
func sessionID(r *http.Request) string {
	if id := r.Header.Get("X-Session-ID"); id != "" {
		return id
	}
	if cookie, err := r.Cookie("bill_session"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return defaultSessionID
}

// errKind maps a pipeline error onto a stable string the UI switches on to
// render stage-specific messages.
func errKind(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrTranscription):
		return "transcription"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrExtraction):
		return "extraction"
	case errors.Is(err, publishing.ErrRender):
		return "render"
	case errors.Is(err, publishing.ErrUpload):
		return "upload"
	case errors.Is(err, publishing.ErrShorten):
		return "shorten"
	default:
		return "internal"
	}
}

// writeError writes a JSON error body carrying the message and error kind
func writeError(w http.ResponseWriter, err error, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"kind":  errKind(err),
	})
}

// writeJSON writes a JSON response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// handleProcessRecording accepts a finished audio recording and runs the
// transcribe, extract and merge stages for the request's session
func (s *Server) handleProcessRecording(w http.ResponseWriter, r *http.Request) {
	// 25MB covers a few minutes of browser-recorded audio
	maxFormSize := int64(25 << 20)
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Error parsing form",
		})
		return
	}

	f, header, err := r.FormFile("audio")
	if err != nil {
		slog.Error("Error getting audio from form", "error", err)
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "No audio recording provided",
		})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading audio data", "error", err, "filename", header.Filename)
		setCORSHeaders(w)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "Error reading recording. Please try again.",
		})
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".wav":
			contentType = "audio/wav"
		case ".ogg":
			contentType = "audio/ogg"
		case ".mp3":
			contentType = "audio/mpeg"
		default:
			contentType = "audio/webm"
		}
	}

	transcript, cart, err := s.service.ProcessRecording(r.Context(), sessionID(r), data, contentType)
	if err != nil {
		slog.Error("Error processing recording", "error", err)
		writeError(w, err, http.StatusBadGateway)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"transcript": transcript,
		"cart":       cart,
	})
}

// handleExtract turns free text into structured line items
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		corsError(w, "Text input is required", http.StatusBadRequest)
		return
	}

	items, err := s.service.ExtractItems(r.Context(), req.Text)
	if err != nil {
		slog.Error("Error extracting items", "error", err)
		writeError(w, err, http.StatusBadGateway)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// handleGetCart returns the session cart
func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := s.service.GetCart(sessionID(r))
	if err != nil {
		slog.Error("Error getting cart", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, cart)
}

// handleAddItem appends a manually selected item to the session cart
func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name      string  `json:"name"`
		Quantity  float64 `json:"quantity"`
		UnitPrice float64 `json:"unit_price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		corsError(w, "Item name is required", http.StatusBadRequest)
		return
	}

	cart, err := s.service.AddCartItem(sessionID(r), req.Name, req.Quantity, req.UnitPrice)
	if err != nil {
		slog.Error("Error adding cart item", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusCreated, cart)
}

// handleUpdateQuantity changes one cart row's quantity and recomputes its
// line total
func (s *Server) handleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		corsError(w, "Invalid item index", http.StatusBadRequest)
		return
	}

	var req struct {
		Quantity float64 `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		corsError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	cart, err := s.service.UpdateCartQuantity(sessionID(r), index, req.Quantity)
	if err != nil {
		corsError(w, "Cart item not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, cart)
}

// handleClearCart empties the session cart
func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearCart(sessionID(r)); err != nil {
		slog.Error("Error clearing cart", "error", err)
		corsError(w, "Error clearing cart", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGenerateBill projects the session cart into an invoice
func (s *Server) handleGenerateBill(w http.ResponseWriter, r *http.Request) {
	invoice, err := s.service.GenerateBill(sessionID(r))
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			writeError(w, err, http.StatusBadRequest)
			return
		}
		slog.Error("Error generating bill", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusCreated, invoice)
}

// handleListInvoices returns all generated invoices
func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.service.ListInvoices()
	if err != nil {
		slog.Error("Error listing invoices", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, invoices)
}

// handleGetInvoice returns a single invoice
func (s *Server) handleGetInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Invoice ID required", http.StatusBadRequest)
		return
	}
	invoice, err := s.service.GetInvoice(id)
	if err != nil {
		corsError(w, "Invoice not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, invoice)
}

// handleGetInvoiceImage returns the rendered PNG for a published invoice
func (s *Server) handleGetInvoiceImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Invoice ID required", http.StatusBadRequest)
		return
	}
	data, err := s.service.GetInvoiceImage(id)
	if err != nil {
		corsError(w, "Image not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// handlePublishInvoice runs the render, upload, shorten and QR chain. On
// failure the response still carries whatever stages completed, so a
// successful upload survives a failed shorten.
func (s *Server) handlePublishInvoice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		corsError(w, "Invoice ID required", http.StatusBadRequest)
		return
	}

	link, qrPNG, err := s.service.PublishInvoice(r.Context(), id)
	if err != nil {
		body := map[string]any{
			"error": err.Error(),
			"kind":  errKind(err),
		}
		if link != nil {
			body["original_url"] = link.OriginalURL
			body["short_url"] = link.ShortURL
		}
		setCORSHeaders(w)
		writeJSON(w, http.StatusBadGateway, body)
		return
	}

	setCORSHeaders(w)
	writeJSON(w, http.StatusOK, map[string]any{
		"original_url": link.OriginalURL,
		"short_url":    link.ShortURL,
		"qr":           base64.StdEncoding.EncodeToString(qrPNG),
	})
}

// handleStaticCSS serves the CSS file
func (s *Server) handleStaticCSS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/css")
	w.Write(appCSS)
}

// handleStaticJS serves the JavaScript file
func (s *Server) handleStaticJS(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	// Use module MIME type for ES6 modules
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Write(appJS)
}
