package subproc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/lookout-vision/lookout/internal/detection"
	"github.com/lookout-vision/lookout/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunner_ZeroTimeoutUsesDefault(t *testing.T) {
	r := NewRunner(0)
	assert.Equal(t, DefaultTimeout, r.Timeout)
}

func TestNewRunner_ExplicitTimeout(t *testing.T) {
	r := NewRunner(5 * time.Second)
	assert.Equal(t, 5*time.Second, r.Timeout)
}

func TestRunner_Run_Success(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	script := testutil.WriteStubDetector(t, tempDir, `{"success": true, "detections": [], "count": 0}`)

	r := NewRunner(10 * time.Second)
	stdout, err := r.Run(context.Background(), testutil.StubInterpreter, script, "ignored.jpg")
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(stdout, &parsed))
	assert.Equal(t, true, parsed["success"])
}

func TestRunner_Run_NonzeroExit(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	script := testutil.WriteFailingDetector(t, tempDir, "detection failed: model missing", 3)

	r := NewRunner(10 * time.Second)
	_, err := r.Run(context.Background(), testutil.StubInterpreter, script)
	require.Error(t, err)

	var procErr *detection.ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, 3, procErr.ExitCode)
	assert.Contains(t, procErr.Output, "model missing")
}

func TestRunner_Run_TimeoutKillsProcess(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	script := testutil.WriteSlowDetector(t, tempDir, 30)

	r := NewRunner(500 * time.Millisecond)
	start := time.Now()
	_, err := r.Run(context.Background(), testutil.StubInterpreter, script)
	elapsed := time.Since(start)
	require.Error(t, err)

	var timeoutErr *detection.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, r.Timeout, timeoutErr.Timeout)
	// The process must be killed near the budget, not after the sleep.
	assert.Less(t, elapsed, 5*time.Second)
}

func TestRunner_Run_ContextCancellation(t *testing.T) {
	tempDir := testutil.CreateTempDir(t)
	script := testutil.WriteSlowDetector(t, tempDir, 30)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	r := NewRunner(time.Minute)
	_, err := r.Run(ctx, testutil.StubInterpreter, script)
	require.Error(t, err)

	var timeoutErr *detection.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
}

func TestRunner_Run_MissingCommand(t *testing.T) {
	r := NewRunner(time.Second)
	_, err := r.Run(context.Background(), "/nonexistent/interpreter")
	require.Error(t, err)

	var procErr *detection.ProcessError
	require.ErrorAs(t, err, &procErr)
	assert.Equal(t, -1, procErr.ExitCode)
}
