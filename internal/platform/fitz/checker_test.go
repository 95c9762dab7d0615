package fitz

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePNG writes a small valid PNG to dir and returns its path.
func writePNG(t *testing.T, dir string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			img.Set(x, y, color.White)
		}
	}

	path := filepath.Join(dir, "valid.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestChecker_CheckImage(t *testing.T) {
	dir := t.TempDir()
	checker := NewChecker()

	t.Run("valid image passes", func(t *testing.T) {
		path := writePNG(t, dir)
		assert.NoError(t, checker.CheckImage(path))
	})

	t.Run("missing file fails", func(t *testing.T) {
		err := checker.CheckImage(filepath.Join(dir, "missing.png"))
		assert.Error(t, err)
	})

	t.Run("directory fails", func(t *testing.T) {
		err := checker.CheckImage(dir)
		assert.Error(t, err)
	})

	t.Run("empty file fails", func(t *testing.T) {
		path := filepath.Join(dir, "empty.png")
		require.NoError(t, os.WriteFile(path, nil, 0o600))
		assert.Error(t, checker.CheckImage(path))
	})

	t.Run("garbage bytes fail", func(t *testing.T) {
		path := filepath.Join(dir, "garbage.png")
		require.NoError(t, os.WriteFile(path, []byte("not an image at all"), 0o600))
		assert.Error(t, checker.CheckImage(path))
	})
}
