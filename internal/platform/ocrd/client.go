// Package ocrd provides an implementation of the recognition.Recognizer
// interface backed by an HTTP text-recognition sidecar. The sidecar hosts
// the heavyweight recognition model out of process; this package is the
// infrastructure adapter that the task pipeline talks to.
package ocrd

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/docsight/docsight/internal/config"
	"github.com/docsight/docsight/internal/recognition"
)

// Client handles communication with the recognition sidecar.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	retry      *RetryConfig
}

// compile-time interface check
var _ recognition.Recognizer = (*Client)(nil)

// recognizeRequest is the sidecar request body. The image travels inline as
// base64 so the sidecar needs no shared filesystem with this process.
type recognizeRequest struct {
	Image  string `json:"image"`
	Format string `json:"format"`
}

// recognizeResponse is the sidecar response body.
type recognizeResponse struct {
	Fragments []string `json:"fragments"`
}

// errorResponse is the sidecar error body, returned with non-2xx statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// NewClient creates a recognition client for the sidecar at cfg.URL.
func NewClient(cfg config.OCRConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.URL == "" {
		return nil, errors.New("recognition sidecar URL cannot be empty")
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "ocr_client"),
		retry:  DefaultRetryConfig(),
	}, nil
}

// Recognize sends the image to the sidecar and returns the recognized text
// fragments in reading order.
func (c *Client) Recognize(ctx context.Context, imagePath string) ([]string, error) {
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image %s: %v",
			recognition.ErrRecognitionFailed, imagePath, err)
	}

	body, err := json.Marshal(recognizeRequest{
		Image:  base64.StdEncoding.EncodeToString(imageData),
		Format: strings.TrimPrefix(filepath.Ext(imagePath), "."),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal request: %v",
			recognition.ErrRecognitionFailed, err)
	}

	resp, err := c.retryWithBackoff(ctx, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/recognize", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return c.httpClient.Do(req)
	})
	if err != nil {
		// Connection-level failures mean the engine is not there at all.
		var netErr net.Error
		if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", recognition.ErrRecognitionUnavailable, err)
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) {
			return nil, fmt.Errorf("%w: %v", recognition.ErrRecognitionUnavailable, err)
		}
		return nil, fmt.Errorf("%w: %v", recognition.ErrRecognitionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", recognition.ErrRecognitionFailed, c.readError(resp))
	}

	var parsed recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v",
			recognition.ErrRecognitionFailed, err)
	}

	c.logger.Debug("recognition completed",
		"image_path", imagePath,
		"fragment_count", len(parsed.Fragments))

	return parsed.Fragments, nil
}

// readError extracts the sidecar's error message from a non-2xx response,
// falling back to the raw body when it is not the expected JSON shape.
func (c *Client) readError(resp *http.Response) string {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Sprintf("sidecar returned status %d", resp.StatusCode)
	}

	var parsed errorResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err == nil && parsed.Error != "" {
		return fmt.Sprintf("sidecar returned status %d: %s", resp.StatusCode, parsed.Error)
	}
	return fmt.Sprintf("sidecar returned status %d: %s", resp.StatusCode, string(bodyBytes))
}
