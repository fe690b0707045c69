// Package batch iterates collections of images through the detection
// service, isolating per-item failures and aggregating statistics.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/lookout-vision/lookout/internal/annotate"
	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/lookout-vision/lookout/internal/service"
)

// Item is one processed input path with its (possibly failed) result, plus
// the path of the annotated copy when one was written.
type Item struct {
	Path          string            `json:"path" yaml:"path"`
	Result        *detection.Result `json:"result" yaml:"result"`
	AnnotatedPath string            `json:"annotated_path,omitempty" yaml:"annotated_path,omitempty"`
}

// Orchestrator drives batch runs over the detection service.
type Orchestrator struct {
	svc      *service.Service
	renderer *annotate.Renderer
}

// NewOrchestrator constructs the orchestrator. renderer may be nil when no
// annotated output will ever be requested.
func NewOrchestrator(svc *service.Service, renderer *annotate.Renderer) *Orchestrator {
	return &Orchestrator{svc: svc, renderer: renderer}
}

// Process expands args into image paths and runs each through the service
// sequentially. A failure on one image never aborts the remaining items;
// the failed item gets a failed result and the loop continues. Items come
// back in input order. Without include patterns, discovery accepts the
// formats the detection input layer accepts.
func (o *Orchestrator) Process(ctx context.Context, args []string, cfg Config) (*Result, error) {
	files, err := discoverImageFiles(args, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, errors.New("no image files found")
	}
	return o.ProcessPaths(ctx, files, cfg)
}

// ProcessPaths runs an explicit list of paths, one result per input path.
func (o *Orchestrator) ProcessPaths(ctx context.Context, paths []string, cfg Config) (*Result, error) {
	start := time.Now()
	items := make([]Item, 0, len(paths))

	for _, path := range paths {
		items = append(items, o.processItem(ctx, path, cfg))
	}

	duration := time.Since(start)
	return &Result{
		Items:    items,
		Summary:  summarize(items, duration),
		Duration: duration,
	}, nil
}

func (o *Orchestrator) processItem(ctx context.Context, path string, cfg Config) Item {
	start := time.Now()
	res, err := o.svc.Detect(ctx, path, cfg.Backend)
	if err != nil {
		slog.Warn("batch item failed", "path", path, "error", err)
		return Item{Path: path, Result: detection.NewFailedResult(cfg.Backend, err.Error(), time.Since(start).Seconds())}
	}

	if res.Success && cfg.MinConfidence > 0 {
		res = res.FilterByConfidence(cfg.MinConfidence)
	}

	item := Item{Path: path, Result: res}
	if cfg.AnnotatedDir != "" && res.Success && res.Count > 0 && o.renderer != nil {
		if outPath, err := o.saveAnnotated(path, res.Detections, cfg.AnnotatedDir); err != nil {
			slog.Warn("failed to save annotated copy", "path", path, "error", err)
		} else {
			item.AnnotatedPath = outPath
		}
	}
	return item
}

// saveAnnotated writes the annotated copy, prefixing the source basename so
// outputs from different directories cannot collide silently with sources.
func (o *Orchestrator) saveAnnotated(srcPath string, dets []detection.Detection, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outPath := filepath.Join(dir, "annotated_"+filepath.Base(srcPath))
	if err := o.renderer.Render(srcPath, dets, outPath); err != nil {
		return "", err
	}
	return outPath, nil
}

// summarize computes the aggregate statistics over one run.
func summarize(items []Item, duration time.Duration) Summary {
	s := Summary{
		Processed:   len(items),
		ClassCounts: make(map[string]int),
	}

	var confSum float64
	var confCount int
	for _, item := range items {
		if !item.Result.Success {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.TotalObjects += item.Result.Count
		for class, n := range item.Result.ClassCounts() {
			s.ClassCounts[class] += n
		}
		for _, d := range item.Result.Detections {
			if confCount == 0 || d.Confidence < s.ConfidenceMin {
				s.ConfidenceMin = d.Confidence
			}
			if d.Confidence > s.ConfidenceMax {
				s.ConfidenceMax = d.Confidence
			}
			confSum += d.Confidence
			confCount++
		}
	}

	if confCount > 0 {
		s.ConfidenceMean = confSum / float64(confCount)
	}
	s.TotalSeconds = duration.Seconds()
	if len(items) > 0 {
		s.AverageSeconds = s.TotalSeconds / float64(len(items))
	}
	return s
}
