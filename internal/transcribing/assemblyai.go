package transcribing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultAssemblyAIBaseURL = "https://api.assemblyai.com"

// AssemblyAI implements the Transcriber interface using the AssemblyAI
// prerecorded transcription API: upload the audio bytes, create a transcript
// job, then poll until it completes or errors.
type AssemblyAI struct {
	baseURL      string
	apiKey       string
	languageCode string
	pollInterval time.Duration
	client       *http.Client
}

// NewAssemblyAI creates a new AssemblyAI Transcriber instance. languageCode
// follows AssemblyAI's language tags (e.g. "ta" for Tamil, "en" for English).
func NewAssemblyAI(apiKey, languageCode string) (*AssemblyAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("assemblyai api key is required")
	}
	if languageCode == "" {
		languageCode = "ta"
	}

	return &AssemblyAI{
		baseURL:      defaultAssemblyAIBaseURL,
		apiKey:       apiKey,
		languageCode: languageCode,
		pollInterval: 2 * time.Second,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type assemblyUploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type assemblyTranscriptRequest struct {
	AudioURL     string `json:"audio_url"`
	SpeechModel  string `json:"speech_model"`
	LanguageCode string `json:"language_code"`
}

type assemblyTranscriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads the recording and polls the transcript job to
// completion. Returns an error on service failure or an empty result.
func (a *AssemblyAI) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	uploadURL, err := a.upload(ctx, audio, contentType)
	if err != nil {
		return "", fmt.Errorf("uploading audio: %w", err)
	}

	id, err := a.createTranscript(ctx, uploadURL)
	if err != nil {
		return "", fmt.Errorf("creating transcript: %w", err)
	}

	text, err := a.pollTranscript(ctx, id)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", fmt.Errorf("no text was transcribed")
	}
	return text, nil
}

func (a *AssemblyAI) upload(ctx context.Context, audio []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v2/upload", bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", a.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling assemblyai API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("assemblyai upload error (status %d): %s", resp.StatusCode, string(body))
	}

	var uploadResp assemblyUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if uploadResp.UploadURL == "" {
		return "", fmt.Errorf("assemblyai returned no upload url")
	}
	return uploadResp.UploadURL, nil
}

func (a *AssemblyAI) createTranscript(ctx context.Context, audioURL string) (string, error) {
	reqBody := assemblyTranscriptRequest{
		AudioURL:     audioURL,
		SpeechModel:  "nano",
		LanguageCode: a.languageCode,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/v2/transcript", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", a.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling assemblyai API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("assemblyai transcript error (status %d): %s", resp.StatusCode, string(body))
	}

	var transcriptResp assemblyTranscriptResponse
	if err := json.NewDecoder(resp.Body).Decode(&transcriptResp); err != nil {
		return "", fmt.Errorf("decoding transcript response: %w", err)
	}
	if transcriptResp.ID == "" {
		return "", fmt.Errorf("assemblyai returned no transcript id")
	}
	return transcriptResp.ID, nil
}

func (a *AssemblyAI) pollTranscript(ctx context.Context, id string) (string, error) {
	for {
		req, err := http.NewRequestWithContext(ctx, "GET", a.baseURL+"/v2/transcript/"+id, nil)
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", a.apiKey)

		resp, err := a.client.Do(req)
		if err != nil {
			return "", fmt.Errorf("polling transcript: %w", err)
		}

		var transcriptResp assemblyTranscriptResponse
		err = json.NewDecoder(resp.Body).Decode(&transcriptResp)
		resp.Body.Close()
		if err != nil {
			return "", fmt.Errorf("decoding poll response: %w", err)
		}

		switch transcriptResp.Status {
		case "completed":
			return transcriptResp.Text, nil
		case "error":
			return "", fmt.Errorf("assemblyai transcription error: %s", transcriptResp.Error)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(a.pollInterval):
		}
	}
}

// Close closes the AssemblyAI client (no-op for HTTP client)
func (a *AssemblyAI) Close() error {
	return nil
}
