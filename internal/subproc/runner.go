// Package subproc runs external detection processes with wall-clock timeout
// enforcement. Both local backends (the model-based and the classical
// cascade detector) honor the same stdout-JSON protocol, so this single
// primitive serves them both.
package subproc

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/lookout-vision/lookout/internal/detection"
)

const (
	// DefaultTimeout covers warm invocations; first runs that fetch model
	// weights need a longer budget (callers pass their own).
	DefaultTimeout = 30 * time.Second

	// waitDelay bounds how long after a kill the runner waits for orphaned
	// pipe holders before abandoning them.
	waitDelay = 100 * time.Millisecond

	outputExcerptLimit = 200
)

// Runner executes external commands. Stateless beyond its timeout, so one
// instance may be shared by concurrent callers; every Run spawns an
// independent process.
type Runner struct {
	Timeout time.Duration
}

// NewRunner returns a Runner with the given timeout, falling back to
// DefaultTimeout when zero.
func NewRunner(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{Timeout: timeout}
}

// Run executes name with args and returns its stdout. On timeout or context
// cancellation the process is forcibly killed and a *detection.TimeoutError
// is returned; a nonzero exit yields a *detection.ProcessError carrying a
// truncated stderr excerpt. WaitDelay keeps a killed process's orphans from
// holding the output pipes open past the budget.
func (r *Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	runCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...) //nolint:gosec // G204: command comes from adapter configuration
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &detection.ProcessError{
			Command:  name,
			ExitCode: -1,
			Output:   detection.TruncateOutput(err.Error(), outputExcerptLimit),
		}
	}

	waitErr := cmd.Wait()
	elapsed := time.Since(start)

	if waitErr != nil {
		// A deadline hit means CommandContext already killed the process.
		if runCtx.Err() != nil {
			slog.Warn("detection process killed",
				"command", name,
				"timeout", r.Timeout,
				"elapsed", elapsed.Round(time.Millisecond))
			return nil, &detection.TimeoutError{Command: name, Timeout: r.Timeout}
		}

		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return nil, &detection.ProcessError{
			Command:  name,
			ExitCode: exitCode,
			Output:   detection.TruncateOutput(stderr.String(), outputExcerptLimit),
		}
	}

	slog.Debug("detection process finished",
		"command", name,
		"elapsed", elapsed.Round(time.Millisecond),
		"stdout_bytes", stdout.Len())

	return stdout.Bytes(), nil
}
