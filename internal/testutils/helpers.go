package testutils

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// RequireShell skips tests that drive real children through /bin/sh.
func RequireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

// WriteScript creates an executable file at path, creating parent directories.
// The body is written verbatim; callers include the shebang.
// It fails the test immediately on error.
func WriteScript(t *testing.T, path, body string) string {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "Failed to create script directory")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755), "Failed to write script")

	abs, err := filepath.Abs(path)
	require.NoError(t, err, "Failed to get absolute path for script")
	return abs
}
