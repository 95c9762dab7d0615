package recognition

import "errors"

// Common errors returned by recognition engine adapters.
var (
	// ErrRecognitionUnavailable is returned when the recognition engine
	// cannot be reached at all (not configured, not running, unreachable).
	ErrRecognitionUnavailable = errors.New("recognition engine unavailable")

	// ErrRecognitionFailed is returned when a recognition call fails.
	// Adapters wrap this with the underlying reason.
	ErrRecognitionFailed = errors.New("recognition failed")
)
