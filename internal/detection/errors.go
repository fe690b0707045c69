package detection

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownBackend is returned by the service when the requested backend
// name is not registered. Detected before any adapter is invoked.
var ErrUnknownBackend = errors.New("unknown detection backend")

// InputError reports an invalid image input: missing path, unreadable file,
// or undecodable raster data. Never retried automatically.
type InputError struct {
	Path string
	Err  error
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input %s: %v", e.Path, e.Err)
}

func (e *InputError) Unwrap() error { return e.Err }

// TimeoutError reports an external detection process that exceeded its
// wall-clock budget and was killed. Distinct from ProcessError so callers
// can retry with a longer timeout (common on cold starts that fetch model
// weights) instead of treating the backend as broken.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("process %q exceeded %v timeout and was killed", e.Command, e.Timeout)
}

// ProcessError reports an external process that exited nonzero or produced
// output the adapter could not parse. Output carries a truncated excerpt of
// the raw stream for diagnosis.
type ProcessError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ProcessError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("process %q failed with exit code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("process %q failed with exit code %d: %s", e.Command, e.ExitCode, e.Output)
}

// RemoteError reports a cloud provider call failure: network, auth, or
// quota. The provider detail is preserved so operators can tell credential
// problems from quota exhaustion from transient connectivity.
type RemoteError struct {
	Provider   string
	StatusCode int
	Detail     string
	Err        error
}

func (e *RemoteError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed (HTTP %d): %s", e.Provider, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// TruncateOutput shortens raw subprocess output for inclusion in error
// messages so a runaway process cannot flood logs.
func TruncateOutput(s string, limit int) string {
	if limit <= 0 {
		limit = 200
	}
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
