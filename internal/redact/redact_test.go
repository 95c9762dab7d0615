package redact_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docsight/docsight/internal/redact"
)

func TestRedactString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no sensitive data",
			input:    "task completed",
			expected: "task completed",
		},
		{
			name:     "API key",
			input:    "Using api_key=abcdef1234567890ghijklmnop for authentication",
			expected: "Using [REDACTED_KEY] for authentication",
		},
		{
			name:     "password parameter",
			input:    "Request failed with password=secret123 in payload",
			expected: "Request failed with [REDACTED_CREDENTIAL] in payload",
		},
		{
			name:     "image file path",
			input:    "cannot open at /home/user/scans/page-001.png",
			expected: "[REDACTED_FILE_ERROR] at [REDACTED_PATH]",
		},
		{
			name:     "Windows path",
			input:    "Access denied to C:\\Users\\Scans\\page.jpg",
			expected: "Access denied to [REDACTED_PATH]",
		},
		{
			name:     "sidecar host",
			input:    "dial failed for ocr.internal.example:8765",
			expected: "dial failed for [REDACTED_HOST]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := redact.String(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestRedactError(t *testing.T) {
	t.Run("nil error", func(t *testing.T) {
		assert.Equal(t, "", redact.Error(nil))
	})

	t.Run("error with key material", func(t *testing.T) {
		err := errors.New("generation failed: api_key=supersecretkey123 rejected")
		result := redact.Error(err)
		assert.NotContains(t, result, "supersecretkey123")
		assert.Contains(t, result, "[REDACTED_KEY]")
	})

	t.Run("plain error passes through", func(t *testing.T) {
		err := errors.New("task already running")
		assert.Equal(t, "task already running", redact.Error(err))
	})
}
