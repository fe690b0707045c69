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

// ValidModels is the set of single-shot model variants the external
// detector script accepts, smallest to largest.
var ValidModels = []string{"yolov8n.pt", "yolov8s.pt", "yolov8m.pt", "yolov8l.pt", "yolov8x.pt"}

// LocalConfig configures the local model adapter.
type LocalConfig struct {
	// Interpreter and Script form the command prefix, e.g. python3 + the
	// detector script path.
	Interpreter string
	Script      string
	// Model is the detector variant identifier passed through to the
	// script. The script fetches weights on first use, so cold starts can
	// take far longer than warm runs; size Timeout accordingly.
	Model string
	// Confidence is the threshold applied inside the external process, not
	// re-validated here.
	Confidence float64
	Timeout    time.Duration
}

// DefaultLocalConfig returns the adapter defaults matching the external
// script's own defaults.
func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		Interpreter: "python3",
		Script:      "scripts/detect_yolo.py",
		Model:       "yolov8n.pt",
		Confidence:  0.25,
		Timeout:     subproc.DefaultTimeout,
	}
}

// Local invokes an external single-shot multi-class detector process and
// parses its stdout JSON.
type Local struct {
	cfg    LocalConfig
	runner *subproc.Runner
}

// NewLocal constructs the adapter. An invalid model identifier is rejected
// here rather than surfacing as an opaque script failure later.
func NewLocal(cfg LocalConfig) (*Local, error) {
	if cfg.Interpreter == "" {
		cfg.Interpreter = "python3"
	}
	if cfg.Script == "" {
		return nil, fmt.Errorf("local adapter: script path is required")
	}
	if cfg.Model == "" {
		cfg.Model = "yolov8n.pt"
	}
	if !validModel(cfg.Model) {
		return nil, fmt.Errorf("local adapter: unknown model %q", cfg.Model)
	}
	if cfg.Confidence <= 0 {
		cfg.Confidence = 0.25
	}
	return &Local{cfg: cfg, runner: subproc.NewRunner(cfg.Timeout)}, nil
}

func validModel(name string) bool {
	for _, m := range ValidModels {
		if m == name {
			return true
		}
	}
	return false
}

// Name implements Adapter.
func (l *Local) Name() string { return NameYOLO }

// Detect implements Adapter.
func (l *Local) Detect(ctx context.Context, imagePath string) (*detection.Result, error) {
	meta, err := imageio.Probe(imagePath)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	stdout, err := l.runner.Run(ctx, l.cfg.Interpreter,
		l.cfg.Script,
		imagePath,
		l.cfg.Model,
		strconv.FormatFloat(l.cfg.Confidence, 'f', -1, 64),
	)
	if err != nil {
		return nil, err
	}

	dets, err := parseProcessOutput(l.cfg.Script, stdout)
	if err != nil {
		return nil, err
	}
	for i := range dets {
		dets[i].Box = dets[i].Box.Clamp(meta.Width, meta.Height)
	}
	return detection.NewResult(l.Name(), dets, time.Since(start).Seconds()), nil
}
