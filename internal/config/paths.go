package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/fiberpath/bridge/internal/pathutil"
)

// appDirName is the per-user directory holding the bridge's files.
const appDirName = "fiberpath-bridge"

// Dir returns the bridge configuration directory:
// $XDG_CONFIG_HOME/fiberpath-bridge when XDG_CONFIG_HOME is set, otherwise
// %AppData%\fiberpath-bridge on Windows and ~/.config/fiberpath-bridge
// elsewhere.
func Dir() string {
	if base := os.Getenv("XDG_CONFIG_HOME"); base != "" {
		return filepath.Join(pathutil.Expand(base), appDirName)
	}
	if runtime.GOOS == "windows" {
		if base, err := os.UserConfigDir(); err == nil {
			return filepath.Join(base, appDirName)
		}
	}
	return filepath.Join(pathutil.Expand("~/.config"), appDirName)
}

// ConfigPath returns the default configuration file, Dir()/config.yaml.
func ConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Resolve returns the config file a command should use: path with ~ and
// environment references expanded, or ConfigPath() when path is empty.
func Resolve(path string) string {
	if path == "" {
		return ConfigPath()
	}
	return pathutil.Expand(path)
}
