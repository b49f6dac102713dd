package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
)

// executable is replaced in tests.
var executable = os.Executable

// ResourceRoot returns the directory the bundled CLI is resolved under.
// A non-empty configured value wins, with ~ expanded and made absolute.
// Otherwise it is the directory of the running executable, with symlinks
// followed so that a linked launcher still finds its resources.
func ResourceRoot(configured string) (string, error) {
	if configured != "" {
		abs, err := filepath.Abs(Expand(configured))
		if err != nil {
			return "", fmt.Errorf("resource root %q: %w", configured, err)
		}
		return abs, nil
	}

	exe, err := executable()
	if err != nil {
		return "", fmt.Errorf("locate executable: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe), nil
}
