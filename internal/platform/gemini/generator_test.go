package gemini

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docsight/docsight/internal/config"
	"github.com/docsight/docsight/internal/generation"
)

func TestNewGenerator_Validation(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	testCases := []struct {
		name   string
		logger *slog.Logger
		cfg    config.GeminiConfig
	}{
		{
			name:   "nil logger",
			logger: nil,
			cfg:    config.GeminiConfig{APIKey: "key", Model: "gemini-2.0-flash"},
		},
		{
			name:   "empty API key",
			logger: logger,
			cfg:    config.GeminiConfig{Model: "gemini-2.0-flash"},
		},
		{
			name:   "empty model name",
			logger: logger,
			cfg:    config.GeminiConfig{APIKey: "key"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			gen, err := NewGenerator(context.Background(), tc.logger, tc.cfg)
			require.Error(t, err)
			assert.Nil(t, gen)
		})
	}
}

func TestNewGenerator_ConfigErrorsWrapSentinel(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_, err := NewGenerator(context.Background(), logger, config.GeminiConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrInvalidConfig)
}
