package mocks

import (
	"context"
	"sync"

	"github.com/docsight/docsight/internal/recognition"
)

// MockRecognizer implements recognition.Recognizer for testing.
type MockRecognizer struct {
	// RecognizeFn overrides the Recognize behavior when set.
	RecognizeFn func(ctx context.Context, imagePath string) ([]string, error)

	// Default response values used when RecognizeFn is nil.
	Fragments []string
	Err       error

	mu         sync.Mutex
	callCount  int
	imagePaths []string
}

// Recognize implements the recognition.Recognizer interface.
func (m *MockRecognizer) Recognize(ctx context.Context, imagePath string) ([]string, error) {
	m.mu.Lock()
	m.callCount++
	m.imagePaths = append(m.imagePaths, imagePath)
	m.mu.Unlock()

	if m.RecognizeFn != nil {
		return m.RecognizeFn(ctx, imagePath)
	}
	return m.Fragments, m.Err
}

// CallCount returns how many times Recognize was called.
func (m *MockRecognizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// ImagePaths returns the image paths passed to Recognize, in call order.
func (m *MockRecognizer) ImagePaths() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	paths := make([]string, len(m.imagePaths))
	copy(paths, m.imagePaths)
	return paths
}

var _ recognition.Recognizer = (*MockRecognizer)(nil)

// MockImageChecker implements recognition.ImageChecker for testing.
type MockImageChecker struct {
	// CheckImageFn overrides the CheckImage behavior when set.
	CheckImageFn func(imagePath string) error

	// Err is the default return value when CheckImageFn is nil.
	Err error

	mu        sync.Mutex
	callCount int
}

// CheckImage implements the recognition.ImageChecker interface.
func (m *MockImageChecker) CheckImage(imagePath string) error {
	m.mu.Lock()
	m.callCount++
	m.mu.Unlock()

	if m.CheckImageFn != nil {
		return m.CheckImageFn(imagePath)
	}
	return m.Err
}

// CallCount returns how many times CheckImage was called.
func (m *MockImageChecker) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

var _ recognition.ImageChecker = (*MockImageChecker)(nil)
