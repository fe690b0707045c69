package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// StubInterpreter runs the stub detector scripts written by this package.
const StubInterpreter = "/bin/sh"

// WriteStubDetector writes a shell script that prints the given stdout
// payload and exits 0, regardless of its arguments. Tests point a backend's
// Interpreter at StubInterpreter and its Script at the returned path.
func WriteStubDetector(t *testing.T, dir, stdout string) string {
	t.Helper()

	script := fmt.Sprintf("#!/bin/sh\ncat <<'EOF'\n%s\nEOF\n", stdout)
	return writeScript(t, dir, "stub_detector.sh", script)
}

// WriteFailingDetector writes a shell script that prints a diagnostic to
// stderr and exits with the given code.
func WriteFailingDetector(t *testing.T, dir, stderr string, exitCode int) string {
	t.Helper()

	script := fmt.Sprintf("#!/bin/sh\necho '%s' >&2\nexit %d\n", stderr, exitCode)
	return writeScript(t, dir, "failing_detector.sh", script)
}

// WriteSlowDetector writes a shell script that sleeps for the given number
// of seconds before producing any output. Used to exercise timeouts.
func WriteSlowDetector(t *testing.T, dir string, seconds int) string {
	t.Helper()

	script := fmt.Sprintf("#!/bin/sh\nsleep %d\necho '{\"success\": true, \"detections\": [], \"count\": 0}'\n", seconds)
	return writeScript(t, dir, "slow_detector.sh", script)
}

// WriteArgvDetector writes a shell script that echoes its arguments to a
// capture file, then prints an empty successful result. Tests read the
// capture file to assert on the exact argv a backend built.
func WriteArgvDetector(t *testing.T, dir, captureFile string) string {
	t.Helper()

	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" > '%s'\necho '{\"success\": true, \"detections\": [], \"count\": 0}'\n", captureFile)
	return writeScript(t, dir, "argv_detector.sh", script)
}

func writeScript(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o700)) //nolint:gosec // G306: test script must be executable
	return path
}
