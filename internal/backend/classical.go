package backend

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/lookout-vision/lookout/internal/imageio"
	"github.com/lookout-vision/lookout/internal/subproc"
)

// PlaceholderConfidence is assigned to every cascade detection. The
// technique produces no native score, so this value is a fixed marker,
// not a calibrated probability; callers must not treat it as one.
const PlaceholderConfidence = 0.85

// ClassicalConfig configures the offline cascade face detector adapter.
type ClassicalConfig struct {
	Interpreter string
	Script      string
	// ScaleFactor controls how much the search window shrinks per pyramid
	// level; closer to 1.0 is slower but more thorough.
	ScaleFactor float64
	// MinNeighbors trades false positives against missed faces; higher
	// values yield fewer false positives.
	MinNeighbors int
	Timeout      time.Duration
}

// DefaultClassicalConfig returns the adapter defaults matching the external
// script's own defaults.
func DefaultClassicalConfig() ClassicalConfig {
	return ClassicalConfig{
		Interpreter:  "python3",
		Script:       "scripts/detect_faces.py",
		ScaleFactor:  1.1,
		MinNeighbors: 5,
		Timeout:      subproc.DefaultTimeout,
	}
}

// Classical wraps an external Haar-cascade face detector. It runs fully
// offline and honors the same subprocess protocol as the local model
// adapter.
type Classical struct {
	cfg    ClassicalConfig
	runner *subproc.Runner
}

// NewClassical constructs the adapter.
func NewClassical(cfg ClassicalConfig) (*Classical, error) {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "python3"
	}
	if cfg.Script == "" {
		return nil, fmt.Errorf("classical adapter: script path is required")
	}
	if cfg.ScaleFactor <= 1.0 {
		cfg.ScaleFactor = 1.1
	}
	if cfg.MinNeighbors <= 0 {
		cfg.MinNeighbors = 5
	}
	return &Classical{cfg: cfg, runner: subproc.NewRunner(cfg.Timeout)}, nil
}

// Name implements Adapter.
func (c *Classical) Name() string { return NameHaar }

// Detect implements Adapter.
func (c *Classical) Detect(ctx context.Context, imagePath string) (*detection.Result, error) {
	meta, err := imageio.Probe(imagePath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stdout, err := c.runner.Run(ctx, c.cfg.Interpreter,
		c.cfg.Script,
		imagePath,
		strconv.FormatFloat(c.cfg.ScaleFactor, 'f', -1, 64),
		strconv.Itoa(c.cfg.MinNeighbors),
	)
	if err != nil {
		return nil, err
	}

	dets, err := parseProcessOutput(c.cfg.Script, stdout)
	if err != nil {
		return nil, err
	}
	for i := range dets {
		dets[i].Box = dets[i].Box.Clamp(meta.Width, meta.Height)
	}
	return detection.NewResult(c.Name(), dets, time.Since(start).Seconds()), nil
}
