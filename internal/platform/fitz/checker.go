// Package fitz provides an implementation of the recognition.ImageChecker
// interface using the go-fitz document library. Checking happens locally and
// before any remote recognition call, so an unreadable file fails fast
// without touching the sidecar.
package fitz

import (
	"fmt"
	"os"

	"github.com/gen2brain/go-fitz"

	"github.com/docsight/docsight/internal/recognition"
)

// Checker validates that input files are decodable images or documents.
type Checker struct{}

// compile-time interface check
var _ recognition.ImageChecker = (*Checker)(nil)

// NewChecker creates a new image checker.
func NewChecker() *Checker {
	return &Checker{}
}

// CheckImage returns nil if the file at imagePath exists and decodes as an
// image or single-page document.
func (c *Checker) CheckImage(imagePath string) error {
	info, err := os.Stat(imagePath)
	if err != nil {
		return fmt.Errorf("cannot access image %s: %w", imagePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("path %s is a directory, not an image", imagePath)
	}
	if info.Size() == 0 {
		return fmt.Errorf("image %s is empty", imagePath)
	}

	doc, err := fitz.New(imagePath)
	if err != nil {
		return fmt.Errorf("cannot open image %s: %w", imagePath, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return fmt.Errorf("image %s has no pages", imagePath)
	}

	// Render the first page to catch files with a valid header but a
	// corrupt body.
	if _, err := doc.Image(0); err != nil {
		return fmt.Errorf("cannot decode image %s: %w", imagePath, err)
	}

	return nil
}
