// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"os"
	"testing"
)

// ShortTempDir creates a temp directory short enough to hold a Unix socket.
// Socket paths are limited to about 104 bytes on macOS and 108 on Linux, and
// t.TempDir() paths regularly exceed that.
func ShortTempDir(t testing.TB) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "fpb")
	if err != nil {
		t.Fatalf("MkdirTemp() error = %v", err)
	}
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	return dir
}
