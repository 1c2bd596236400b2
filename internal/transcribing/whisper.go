package transcribing

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Whisper implements the Transcriber interface using OpenAI's audio
// transcription API.
type Whisper struct {
	client   *openai.Client
	model    string
	language string
}

// NewWhisper creates a new Whisper Transcriber instance
func NewWhisper(apiKey, model, language string) (*Whisper, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if model == "" {
		model = openai.Whisper1
	}

	return &Whisper{
		client:   openai.NewClient(apiKey),
		model:    model,
		language: language,
	}, nil
}

// filenameForContentType picks a filename extension the API recognizes.
// The OpenAI endpoint sniffs the container from the filename.
func filenameForContentType(contentType string) string {
	switch {
	case strings.Contains(contentType, "wav"):
		return "recording.wav"
	case strings.Contains(contentType, "ogg"):
		return "recording.ogg"
	case strings.Contains(contentType, "mp3"), strings.Contains(contentType, "mpeg"):
		return "recording.mp3"
	default:
		return "recording.webm"
	}
}

// Transcribe sends the recording to the transcription endpoint
func (w *Whisper) Transcribe(ctx context.Context, audio []byte, contentType string) (string, error) {
	resp, err := w.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    w.model,
		FilePath: filenameForContentType(contentType),
		Reader:   bytes.NewReader(audio),
		Language: w.language,
	})
	if err != nil {
		return "", fmt.Errorf("calling transcription API: %w", err)
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" {
		return "", fmt.Errorf("no text was transcribed")
	}
	return text, nil
}

// Close closes the Whisper client (no-op for HTTP client)
func (w *Whisper) Close() error {
	return nil
}
