// Package recognition defines the boundary between the orchestration core and
// the text-recognition engine. The engine is a heavyweight external service,
// constructed once at startup and shared by every task attempt; the core only
// ever sees this interface.
package recognition

import "context"

// Recognizer extracts ordered text fragments from an image.
type Recognizer interface {
	// Recognize runs text recognition on the image at imagePath and returns
	// the recognized fragments in reading order.
	//
	// Returns ErrRecognitionUnavailable when the engine cannot be reached at
	// all, or an error wrapping ErrRecognitionFailed when the call itself
	// fails.
	Recognize(ctx context.Context, imagePath string) ([]string, error)
}

// ImageChecker verifies that an image file is present and decodable before
// recognition is attempted. Kept separate from Recognizer because the check
// is cheap and local while recognition is a remote, expensive call.
type ImageChecker interface {
	// CheckImage returns nil if the file at imagePath can be decoded as an
	// image, or an error describing why it cannot.
	CheckImage(imagePath string) error
}
