package batch

import (
	"time"

	"github.com/lookout-vision/lookout/internal/imageio"
)

// DefaultIncludePatterns mirrors the extensions the detection input layer
// accepts, as basename globs.
var DefaultIncludePatterns = func() []string {
	patterns := make([]string, len(imageio.SupportedExtensions))
	for i, ext := range imageio.SupportedExtensions {
		patterns[i] = "*" + ext
	}
	return patterns
}()

// Config holds all configuration for one batch run.
type Config struct {
	// Backend names the adapter every image goes through.
	Backend string

	// MinConfidence filters detections from per-item results and from any
	// rendered annotation.
	MinConfidence float64

	// AnnotatedDir, when set, receives annotated copies of successful,
	// non-empty results, named annotated_<source basename>.
	AnnotatedDir string

	// File discovery settings.
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings.
	Format     string
	OutputFile string
	Quiet      bool
	ShowStats  bool
}

// DefaultConfig returns the standard batch configuration.
func DefaultConfig() Config {
	return Config{
		Backend:         "yolo",
		MinConfidence:   0.25,
		IncludePatterns: DefaultIncludePatterns,
		Format:          "text",
	}
}

// Summary aggregates one batch run. Confidence extrema cover every
// detection in every successful item.
type Summary struct {
	Processed      int            `json:"processed" yaml:"processed"`
	Succeeded      int            `json:"succeeded" yaml:"succeeded"`
	Failed         int            `json:"failed" yaml:"failed"`
	TotalObjects   int            `json:"total_objects" yaml:"total_objects"`
	TotalSeconds   float64        `json:"total_seconds" yaml:"total_seconds"`
	AverageSeconds float64        `json:"average_seconds" yaml:"average_seconds"`
	ClassCounts    map[string]int `json:"class_counts" yaml:"class_counts"`
	ConfidenceMin  float64        `json:"confidence_min" yaml:"confidence_min"`
	ConfidenceMean float64        `json:"confidence_mean" yaml:"confidence_mean"`
	ConfidenceMax  float64        `json:"confidence_max" yaml:"confidence_max"`
}

// Result holds per-item results in input order plus the run summary.
type Result struct {
	Items    []Item        `json:"items" yaml:"items"`
	Summary  Summary       `json:"summary" yaml:"summary"`
	Duration time.Duration `json:"-" yaml:"-"`
}
