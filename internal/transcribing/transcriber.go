package transcribing

import "context"

// Transcriber defines the interface for speech-to-text operations. Exactly
// one attempt is made per recording; callers do not retry.
type Transcriber interface {
	// Transcribe converts a finished audio recording to text. An empty
	// transcript is reported as an error, never as a valid empty string.
	Transcribe(ctx context.Context, audio []byte, contentType string) (string, error)
	// Close closes the transcriber and releases resources
	Close() error
}
