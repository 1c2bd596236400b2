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

// TinyURL implements the Shortener interface using the TinyURL API
type TinyURL struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewTinyURL creates a new TinyURL Shortener instance
func NewTinyURL(token string) (*TinyURL, error) {
	if token == "" {
		return nil, fmt.Errorf("tinyurl api token is required")
	}

	return &TinyURL{
		baseURL: "https://api.tinyurl.com",
		token:   token,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type tinyURLRequest struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
}

type tinyURLResponse struct {
	Data struct {
		TinyURL string `json:"tiny_url"`
	} `json:"data"`
	Message string `json:"message"`
}

// Shorten shortens a long URL via TinyURL
func (t *TinyURL) Shorten(ctx context.Context, longURL string) (string, error) {
	jsonData, err := json.Marshal(tinyURLRequest{URL: longURL, Domain: "tinyurl.com"})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/create", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling tinyurl API: %w", err)
	}
	defer resp.Body.Close()

	var shortenResp tinyURLResponse
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &shortenResp); err == nil && shortenResp.Message != "" {
			return "", fmt.Errorf("tinyurl error (status %d): %s", resp.StatusCode, shortenResp.Message)
		}
		return "", fmt.Errorf("tinyurl error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(&shortenResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if shortenResp.Data.TinyURL == "" {
		return "", fmt.Errorf("tinyurl returned no short url")
	}

	return shortenResp.Data.TinyURL, nil
}
