package publishing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Cloudinary implements the Uploader interface using Cloudinary's unsigned
// upload API. The image goes up as a base64 data URI form field.
type Cloudinary struct {
	baseURL      string
	cloudName    string
	uploadPreset string
	client       *http.Client
}

// NewCloudinary creates a new Cloudinary Uploader instance
func NewCloudinary(cloudName, uploadPreset string) (*Cloudinary, error) {
	if cloudName == "" {
		return nil, fmt.Errorf("cloudinary cloud name is required")
	}
	if uploadPreset == "" {
		uploadPreset = "ml_default"
	}

	return &Cloudinary{
		baseURL:      "https://api.cloudinary.com",
		cloudName:    cloudName,
		uploadPreset: uploadPreset,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type cloudinaryUploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload pushes the PNG to Cloudinary and returns its public URL. Partial
// uploads are not resumed.
func (c *Cloudinary) Upload(ctx context.Context, imagePNG []byte) (string, error) {
	dataURI := "data:image/png;base64," + base64.StdEncoding.EncodeToString(imagePNG)

	form := url.Values{}
	form.Set("file", dataURI)
	form.Set("upload_preset", c.uploadPreset)

	endpoint := fmt.Sprintf("%s/v1_1/%s/image/upload", c.baseURL, c.cloudName)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling cloudinary API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cloudinary error (status %d): %s", resp.StatusCode, string(body))
	}

	var uploadResp cloudinaryUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if uploadResp.SecureURL == "" {
		if uploadResp.Error.Message != "" {
			return "", fmt.Errorf("cloudinary error: %s", uploadResp.Error.Message)
		}
		return "", fmt.Errorf("cloudinary returned no url")
	}

	return uploadResp.SecureURL, nil
}
