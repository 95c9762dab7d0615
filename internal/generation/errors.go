package generation

import "errors"

// Common errors returned by generation engine adapters.
var (
	// ErrGenerationUnavailable is returned when the generation engine cannot
	// be reached at all.
	ErrGenerationUnavailable = errors.New("generation engine unavailable")

	// ErrGenerationFailed is returned when a generation call fails for any
	// general reason.
	ErrGenerationFailed = errors.New("failed to generate text")

	// ErrContentBlocked is returned when the model blocks the content due to
	// safety filters.
	ErrContentBlocked = errors.New("content blocked by language model safety filters")

	// ErrTransientFailure is returned for temporary errors that might
	// resolve on retry.
	ErrTransientFailure = errors.New("transient error during text generation")

	// ErrInvalidResponse is returned when the model response cannot be used,
	// for example when it carries no candidates or no text parts.
	ErrInvalidResponse = errors.New("invalid response from language model")

	// ErrInvalidConfig is returned when the generator configuration is invalid.
	ErrInvalidConfig = errors.New("invalid generator configuration")
)
