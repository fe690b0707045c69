// Package imageio provides image loading and metadata probing shared by the
// adapters, the renderer, and the batch orchestrator.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/lookout-vision/lookout/internal/detection"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// SupportedExtensions lists raster extensions accepted for detection input.
var SupportedExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

// Metadata captures lightweight file and pixel information.
type Metadata struct {
	Path      string
	Format    string
	SizeBytes int64
	Width     int
	Height    int
}

// ReadFile reads the raw bytes of an image file after checking that it
// exists and carries a supported extension. The bytes are what the cache
// hashes and the cloud adapters upload.
func ReadFile(path string) ([]byte, error) {
	if path == "" {
		return nil, &detection.InputError{Path: path, Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		return nil, &detection.InputError{
			Path: path,
			Err:  fmt.Errorf("unsupported format: %s", filepath.Ext(path)),
		}
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading user-provided image path is expected
	if err != nil {
		return nil, &detection.InputError{Path: path, Err: err}
	}
	return data, nil
}

// Probe decodes only the image header and returns pixel dimensions without
// a full decode. Cloud adapters use this to convert fractional provider
// coordinates into absolute pixels before any network call.
func Probe(path string) (Metadata, error) {
	data, err := ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Metadata{}, &detection.InputError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	return Metadata{
		Path:      path,
		Format:    format,
		SizeBytes: int64(len(data)),
		Width:     cfg.Width,
		Height:    cfg.Height,
	}, nil
}

// Load opens and fully decodes an image file, returning the image and its
// metadata.
func Load(path string) (image.Image, Metadata, error) {
	data, err := ReadFile(path)
	if err != nil {
		return nil, Metadata{}, err
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, Metadata{}, &detection.InputError{Path: path, Err: fmt.Errorf("decode: %w", err)}
	}
	b := img.Bounds()
	return img, Metadata{
		Path:      path,
		Format:    format,
		SizeBytes: int64(len(data)),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}

// Decode decodes in-memory image bytes, as uploaded to the HTTP endpoint.
func Decode(data []byte) (image.Image, string, error) {
	return image.Decode(bytes.NewReader(data))
}
