package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lookout-vision/lookout/internal/backend"
	"github.com/lookout-vision/lookout/internal/cache"
	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/lookout-vision/lookout/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingAdapter returns a canned result or error and counts invocations.
type countingAdapter struct {
	name  string
	res   *detection.Result
	err   error
	delay time.Duration
	calls int
}

func (a *countingAdapter) Name() string { return a.name }

func (a *countingAdapter) Detect(_ context.Context, _ string) (*detection.Result, error) {
	a.calls++
	if a.delay > 0 {
		time.Sleep(a.delay)
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.res.Clone(), nil
}

func successfulAdapter(name string) *countingAdapter {
	return &countingAdapter{
		name: name,
		res: detection.NewResult(name, []detection.Detection{
			{Class: "person", Confidence: 0.9, Box: detection.BoundingBox{X: 10, Y: 10, Width: 50, Height: 80}},
		}, 0.3),
	}
}

func TestService_Detect_UnknownBackend(t *testing.T) {
	svc := New(backend.NewRegistry(successfulAdapter("yolo")), nil)

	_, err := svc.Detect(context.Background(), "photo.jpg", "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, detection.ErrUnknownBackend)
}

func TestService_Detect_InvalidInput(t *testing.T) {
	adapter := successfulAdapter("yolo")
	svc := New(backend.NewRegistry(adapter), nil)

	_, err := svc.Detect(context.Background(), "/nonexistent/photo.jpg", "yolo")
	require.Error(t, err)

	var inputErr *detection.InputError
	require.ErrorAs(t, err, &inputErr)
	assert.Equal(t, 0, adapter.calls, "adapter must not run for invalid input")
}

func TestService_Detect_Success(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	imagePath := testutil.WriteSceneImage(t, tempDir, "scene.png")

	svc := New(backend.NewRegistry(successfulAdapter("yolo")), nil)
	res, err := svc.Detect(context.Background(), imagePath, "yolo")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Count)
	assert.False(t, res.Cached)
}

func TestService_Detect_AdapterFailureBecomesFailedResult(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	imagePath := testutil.WriteSceneImage(t, tempDir, "scene.png")

	adapter := &countingAdapter{
		name: "yolo",
		err:  &detection.TimeoutError{Command: "python3", Timeout: 30 * time.Second},
	}
	svc := New(backend.NewRegistry(adapter), nil)

	res, err := svc.Detect(context.Background(), imagePath, "yolo")
	require.NoError(t, err, "adapter failures are reported in the result, not as errors")
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "timeout")
	assert.Equal(t, "yolo", res.Backend)
}

func TestService_Detect_CacheHitStampsCached(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	imagePath := testutil.WriteSceneImage(t, tempDir, "scene.png")

	adapter := successfulAdapter("yolo")
	svc := New(backend.NewRegistry(adapter), cache.NewDefault())

	first, err := svc.Detect(context.Background(), imagePath, "yolo")
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, adapter.calls)

	second, err := svc.Detect(context.Background(), imagePath, "yolo")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, adapter.calls, "second call must be served from cache")
	assert.Equal(t, first.Detections, second.Detections)
}

func TestService_Detect_FailedResultCarriesElapsedTime(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	imagePath := testutil.WriteSceneImage(t, tempDir, "scene.png")

	adapter := &countingAdapter{
		name:  "yolo",
		delay: 20 * time.Millisecond,
		err:   &detection.TimeoutError{Command: "python3", Timeout: 20 * time.Millisecond},
	}
	svc := New(backend.NewRegistry(adapter), nil)

	res, err := svc.Detect(context.Background(), imagePath, "yolo")
	require.NoError(t, err)
	require.False(t, res.Success)
	assert.GreaterOrEqual(t, res.ExecutionTime, 0.02,
		"a failed result must report the wall clock of the adapter call")
}

func TestService_Detect_CacheHitAcrossPaths(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	first := testutil.WriteSceneImage(t, tempDir, "original.png")

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	second := filepath.Join(tempDir, "copy.png")
	require.NoError(t, os.WriteFile(second, data, 0o600))

	adapter := successfulAdapter("yolo")
	svc := New(backend.NewRegistry(adapter), cache.NewDefault())

	res1, err := svc.Detect(context.Background(), first, "yolo")
	require.NoError(t, err)
	assert.False(t, res1.Cached)

	res2, err := svc.Detect(context.Background(), second, "yolo")
	require.NoError(t, err)
	assert.True(t, res2.Cached, "identical bytes under a different path must hit the cache")
	assert.Equal(t, 1, adapter.calls)
	assert.Equal(t, res1.Detections, res2.Detections)
}

func TestService_Detect_FailedResultsNeverCached(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	imagePath := testutil.WriteSceneImage(t, tempDir, "scene.png")

	adapter := &countingAdapter{name: "yolo", err: errors.New("transient failure")}
	svc := New(backend.NewRegistry(adapter), cache.NewDefault())

	res, err := svc.Detect(context.Background(), imagePath, "yolo")
	require.NoError(t, err)
	assert.False(t, res.Success)

	_, err = svc.Detect(context.Background(), imagePath, "yolo")
	require.NoError(t, err)
	assert.Equal(t, 2, adapter.calls, "failures must be retried, never served from cache")
}

func TestService_Detect_DifferentBackendsDontCollide(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	imagePath := testutil.WriteSceneImage(t, tempDir, "scene.png")

	yolo := successfulAdapter("yolo")
	haar := successfulAdapter("haar")
	svc := New(backend.NewRegistry(yolo, haar), cache.NewDefault())

	res1, err := svc.Detect(context.Background(), imagePath, "yolo")
	require.NoError(t, err)
	res2, err := svc.Detect(context.Background(), imagePath, "haar")
	require.NoError(t, err)

	assert.False(t, res2.Cached, "same image through another backend is a distinct cache key")
	assert.Equal(t, "yolo", res1.Backend)
	assert.Equal(t, "haar", res2.Backend)
}

func TestService_Backends(t *testing.T) {
	svc := New(backend.NewRegistry(successfulAdapter("yolo"), successfulAdapter("haar")), nil)
	assert.Equal(t, []string{"haar", "yolo"}, svc.Backends())
}

func TestService_DetectBatch_UnknownBackendFailsFast(t *testing.T) {
	svc := New(backend.NewRegistry(successfulAdapter("yolo")), nil)

	_, err := svc.DetectBatch(context.Background(), []string{"a.jpg"}, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, detection.ErrUnknownBackend)
}

func TestService_DetectBatch_ItemIsolation(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	good := testutil.WriteSceneImage(t, tempDir, "good.png")
	missing := filepath.Join(tempDir, "missing.png")
	alsoGood := testutil.WriteSceneImage(t, tempDir, "also_good.png")

	svc := New(backend.NewRegistry(successfulAdapter("yolo")), nil)
	entries, err := svc.DetectBatch(context.Background(), []string{good, missing, alsoGood}, "yolo")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, good, entries[0].Path)
	assert.True(t, entries[0].Result.Success)
	assert.False(t, entries[1].Result.Success, "missing file becomes a failed entry, not an abort")
	assert.True(t, entries[2].Result.Success, "failure on one item must not stop later items")
}
