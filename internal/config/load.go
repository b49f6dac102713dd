package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/pathutil"
)

// Load reads the configuration file at path, or ConfigPath() when path is
// empty, and merges it onto DefaultConfig.
// If the default config file doesn't exist, it is created from the
// commented template and the defaults are returned. An explicit path that
// doesn't exist is an error.
// Path fields have ~ and environment references expanded.
func Load(path string) (*Config, error) {
	explicit := path != ""
	path = Resolve(path)
	clog.Debug("config: loading config from %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			clog.Debug("config: file not found, creating defaults")
			if _, writeErr := WriteDefaultConfig(path); writeErr != nil {
				clog.Warn("config: failed to create default config: %v", writeErr)
			}
			cfg := DefaultConfig()
			expandPaths(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	parsed, err := ParseConfig(data)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := ValidateConfig(parsed); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	cfg := Merge(DefaultConfig(), parsed)
	expandPaths(cfg)
	return cfg, nil
}

// expandPaths expands every path field in place.
func expandPaths(cfg *Config) {
	cfg.Resources.Root = pathutil.Expand(cfg.Resources.Root)
	cfg.Temp.Dir = pathutil.Expand(cfg.Temp.Dir)
	cfg.Server.Socket = pathutil.Expand(cfg.Server.Socket)
	cfg.Log.File = pathutil.Expand(cfg.Log.File)
	cfg.Log.Audit = pathutil.Expand(cfg.Log.Audit)
}
