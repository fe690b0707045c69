// Package service wires backends and the cache behind a single detection
// façade.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lookout-vision/lookout/internal/backend"
	"github.com/lookout-vision/lookout/internal/cache"
	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/lookout-vision/lookout/internal/imageio"
)

// Service selects a backend by name, consults the cache, and invokes the
// adapter on miss. Stateless beyond its dependencies; safe to share.
type Service struct {
	registry *backend.Registry
	cache    *cache.Cache
}

// New constructs the service. A nil cache disables caching entirely.
func New(registry *backend.Registry, c *cache.Cache) *Service {
	return &Service{registry: registry, cache: c}
}

// Backends returns the names of the registered backends, sorted.
func (s *Service) Backends() []string {
	return s.registry.Names()
}

// Detect runs one image through the named backend.
//
// Invalid input and unknown backend names are returned as errors before any
// adapter is invoked. Adapter failures (timeouts, process failures, remote
// errors) are converted into a Result with Success=false so callers always
// get a well-formed result for a valid request. Failed results are never
// cached: the cause may not recur.
func (s *Service) Detect(ctx context.Context, imagePath, backendName string) (*detection.Result, error) {
	adapter, err := s.registry.Get(backendName)
	if err != nil {
		return nil, err
	}

	imageData, err := imageio.ReadFile(imagePath)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if cached := s.cache.Get(imageData, backendName); cached != nil {
			cached.Cached = true
			slog.Debug("cache hit", "backend", backendName, "path", imagePath)
			return cached, nil
		}
	}

	start := time.Now()
	res, err := adapter.Detect(ctx, imagePath)
	if err != nil {
		elapsed := time.Since(start)
		slog.Warn("detection failed",
			"backend", backendName,
			"path", imagePath,
			"elapsed", elapsed.Round(time.Millisecond),
			"error", err)
		return detection.NewFailedResult(backendName, err.Error(), elapsed.Seconds()), nil
	}

	if s.cache != nil && res.Success {
		s.cache.Put(imageData, backendName, res)
	}
	return res, nil
}

// BatchEntry pairs an input path with its result, preserving input order.
type BatchEntry struct {
	Path   string
	Result *detection.Result
}

// DetectBatch runs every path through the named backend sequentially. A
// failure on one image never aborts the rest: invalid inputs and adapter
// failures alike become failed entries for that item. The backend name is
// still validated up front, since no item can succeed against an unknown
// backend.
func (s *Service) DetectBatch(ctx context.Context, imagePaths []string, backendName string) ([]BatchEntry, error) {
	if _, err := s.registry.Get(backendName); err != nil {
		return nil, err
	}

	entries := make([]BatchEntry, 0, len(imagePaths))
	for _, path := range imagePaths {
		start := time.Now()
		res, err := s.Detect(ctx, path, backendName)
		if err != nil {
			res = detection.NewFailedResult(backendName, err.Error(), time.Since(start).Seconds())
		}
		entries = append(entries, BatchEntry{Path: path, Result: res})
	}
	return entries, nil
}
