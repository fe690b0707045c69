// Package backend contains the detection backend adapters. Every adapter
// normalizes its provider's native output into the common detection.Result
// shape: confidences in [0,1] and pixel-space bounding boxes measured in
// the source image's dimensions.
package backend

import (
	"context"
	"fmt"
	"sort"

	"github.com/lookout-vision/lookout/internal/detection"
)

// Known backend identifiers.
const (
	NameYOLO   = "yolo"
	NameHaar   = "haar"
	NameCloudA = "cloud-a"
	NameCloudB = "cloud-b"
)

// Adapter is the uniform contract all detection backends implement.
//
// Detect returns a successful result with zero or more detections, or an
// error from the taxonomy in the detection package. Zero objects found is a
// successful empty result, never an error. Adapters are stateless beyond
// configuration and safe for concurrent use.
type Adapter interface {
	Name() string
	Detect(ctx context.Context, imagePath string) (*detection.Result, error)
}

// Registry resolves backend names to adapter instances. The set is closed
// at construction time; lookups never re-dispatch by string inside hot
// paths beyond this single map read.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry builds a registry over the given adapters. Later adapters
// with a duplicate name replace earlier ones.
func NewRegistry(adapters ...Adapter) *Registry {
	m := make(map[string]Adapter, len(adapters))
	for _, a := range adapters {
		m[a.Name()] = a
	}
	return &Registry{adapters: m}
}

// Get resolves a backend by name.
func (r *Registry) Get(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", detection.ErrUnknownBackend, name)
	}
	return a, nil
}

// Names returns the registered backend names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
