package mocks

import (
	"context"
	"sync"

	"github.com/docsight/docsight/internal/generation"
)

// MockGenerator implements generation.Generator for testing.
type MockGenerator struct {
	// GenerateFn overrides the Generate behavior when set.
	GenerateFn func(ctx context.Context, prompt string, params generation.Params) (string, error)

	// Default response values used when GenerateFn is nil.
	Text string
	Err  error

	mu        sync.Mutex
	callCount int
	prompts   []string
	params    []generation.Params
}

// Generate implements the generation.Generator interface.
func (m *MockGenerator) Generate(
	ctx context.Context,
	prompt string,
	params generation.Params,
) (string, error) {
	m.mu.Lock()
	m.callCount++
	m.prompts = append(m.prompts, prompt)
	m.params = append(m.params, params)
	m.mu.Unlock()

	if m.GenerateFn != nil {
		return m.GenerateFn(ctx, prompt, params)
	}
	return m.Text, m.Err
}

// CallCount returns how many times Generate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Prompts returns the prompts passed to Generate, in call order.
func (m *MockGenerator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	prompts := make([]string, len(m.prompts))
	copy(prompts, m.prompts)
	return prompts
}

// Params returns the sampling parameters passed to Generate, in call order.
func (m *MockGenerator) Params() []generation.Params {
	m.mu.Lock()
	defer m.mu.Unlock()
	params := make([]generation.Params, len(m.params))
	copy(params, m.params)
	return params
}

var _ generation.Generator = (*MockGenerator)(nil)
