package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTestImage creates a simple test image with the specified dimensions
// and background color.
func CreateTestImage(width, height int, backgroundColor color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// CreateSceneImage creates a test image with a few solid rectangles on a
// neutral background, standing in for objects a detector would box.
func CreateSceneImage(width, height int) *image.RGBA {
	img := CreateTestImage(width, height, color.RGBA{200, 200, 200, 255})

	blocks := []struct {
		rect image.Rectangle
		fill color.Color
	}{
		{image.Rect(width/8, height/8, width/3, height/2), color.RGBA{180, 40, 40, 255}},
		{image.Rect(width/2, height/4, width*7/8, height*3/4), color.RGBA{40, 40, 180, 255}},
	}
	for _, b := range blocks {
		draw.Draw(img, b.rect, &image.Uniform{b.fill}, image.Point{}, draw.Src)
	}

	return img
}

// SavePNG encodes an image as PNG at the given path.
func SavePNG(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)), "Failed to create directory for %s", path)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// SaveJPEG encodes an image as JPEG at the given path.
func SaveJPEG(t *testing.T, img image.Image, path string) {
	t.Helper()

	require.NoError(t, EnsureDir(filepath.Dir(path)), "Failed to create directory for %s", path)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, jpeg.Encode(file, img, nil), "Failed to encode JPEG image")
}

// WriteSceneImage writes a synthetic scene image into dir and returns its path.
func WriteSceneImage(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	img := CreateSceneImage(320, 240)
	switch filepath.Ext(name) {
	case ".jpg", ".jpeg":
		SaveJPEG(t, img, path)
	default:
		SavePNG(t, img, path)
	}
	return path
}

// LoadImage loads and decodes an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")

	return img
}
