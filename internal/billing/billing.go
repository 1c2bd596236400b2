package billing

import "time"

// CartItem is a reviewed cart row. LineTotal is always Quantity * UnitPrice
// and is recomputed whenever either operand changes; it is never edited
// directly.
type CartItem struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	LineTotal float64 `json:"line_total"`
}

// Cart is the ordered accumulation of items for one billing session.
type Cart struct {
	SessionID string     `json:"session_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Invoice is a read-only projection of a cart at bill-generation time.
type Invoice struct {
	ID         string     `json:"id"`
	Number     string     `json:"number"`
	Date       time.Time  `json:"date"`
	Items      []CartItem `json:"items"`
	GrandTotal float64    `json:"grand_total"`
	CreatedAt  time.Time  `json:"created_at"`
}

// PublishedLink holds the shareable URLs for a published invoice. ShortURL
// stays empty until the shorten step succeeds; OriginalURL survives a
// shorten failure.
type PublishedLink struct {
	OriginalURL string `json:"original_url"`
	ShortURL    string `json:"short_url,omitempty"`
}
