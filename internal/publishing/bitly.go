package publishing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Bitly implements the Shortener interface using the Bitly v4 API
type Bitly struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewBitly creates a new Bitly Shortener instance
func NewBitly(token string) (*Bitly, error) {
	if token == "" {
		return nil, fmt.Errorf("bitly access token is required")
	}

	return &Bitly{
		baseURL: "https://api-ssl.bitly.com",
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type bitlyRequest struct {
	LongURL string `json:"long_url"`
}

type bitlyResponse struct {
	Link string `json:"link"`
}

// Shorten shortens a long URL via Bitly
func (b *Bitly) Shorten(ctx context.Context, longURL string) (string, error) {
	jsonData, err := json.Marshal(bitlyRequest{LongURL: longURL})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", b.baseURL+"/v4/shorten", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling bitly API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("bitly error (status %d): %s", resp.StatusCode, string(body))
	}

	var shortenResp bitlyResponse
	if err := json.NewDecoder(resp.Body).Decode(&shortenResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if shortenResp.Link == "" {
		return "", fmt.Errorf("bitly returned no link")
	}

	return shortenResp.Link, nil
}
