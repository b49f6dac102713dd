// Package pathutil resolves the user-supplied paths found in configuration
// and on the command line.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// userHomeDir is replaced in tests.
var userHomeDir = os.UserHomeDir

// Expand substitutes $VAR and ${VAR} references, then replaces a leading ~
// with the user's home directory. Both ~/ and ~\ are accepted so that
// Windows-style config values behave the same on every host. When the home
// directory is unknown the ~ is left in place.
func Expand(path string) string {
	if path == "" {
		return path
	}
	path = os.ExpandEnv(path)

	if path != "~" && !strings.HasPrefix(path, "~/") && !strings.HasPrefix(path, `~\`) {
		return path
	}
	home, err := userHomeDir()
	if err != nil || home == "" {
		return path
	}
	if path == "~" {
		return home
	}
	return filepath.Join(home, filepath.FromSlash(strings.ReplaceAll(path[2:], `\`, "/")))
}
