package billing

import "errors"

// Sentinel errors for the billing pipeline. Every stage fails terminally for
// the current run; the handlers map these to distinct user-facing messages.
var (
	// ErrEmptyCart is returned when a bill is requested for an empty cart.
	ErrEmptyCart = errors.New("cart is empty")

	// ErrTranscription covers upload failures, service errors and empty
	// transcripts. An empty transcript is a failure, not a valid value.
	ErrTranscription = errors.New("transcription failed")

	// ErrExtraction covers network or service failure of the extraction call.
	ErrExtraction = errors.New("extraction request failed")

	// ErrMalformedResponse means the extraction service answered, but not
	// with a JSON array of items.
	ErrMalformedResponse = errors.New("malformed extraction response")
)
