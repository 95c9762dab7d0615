// Package generation defines the boundary between the orchestration core and
// the language-model inference engine, following the same hexagonal pattern
// as the recognition package: the core depends on this interface only, and
// concrete adapters live under internal/platform.
package generation

import "context"

// Params are the sampling parameters for a single generation call. The
// pipeline uses fixed parameter sets per stage rather than exposing tuning to
// callers.
type Params struct {
	// MaxTokens bounds the length of the generated text.
	MaxTokens int

	// Temperature controls sampling randomness.
	Temperature float32

	// TopP is the nucleus sampling threshold.
	TopP float32

	// TopK restricts sampling to the K most likely tokens.
	TopK int
}

// Generator produces text from a prompt.
type Generator interface {
	// Generate runs the language model on the prompt with the given sampling
	// parameters and returns the generated text.
	//
	// Returns ErrGenerationUnavailable when the engine cannot be reached,
	// or an error wrapping ErrGenerationFailed, ErrContentBlocked, or
	// ErrTransientFailure when the call fails.
	Generate(ctx context.Context, prompt string, params Params) (string, error)
}
