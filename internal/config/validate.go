package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fiberpath/bridge/internal/clog"
)

// validAxisFormats defines the axis formats the planner accepts.
var validAxisFormats = map[string]bool{
	"":    true,
	"xab": true,
	"xyz": true,
}

// ValidateConfig checks that all fields of a parsed Config contain valid
// values. It validates:
//   - server.http_listen is ":port" or "host:port" with port 0-65535
//   - log.level is one of: trace, debug, info, warn, error (if non-empty)
//   - defaults.scale is non-negative and defaults.axis_format is xab or xyz
//   - resources names and temp.prefix contain no path separators
//
// Zero values are accepted; Merge fills them from DefaultConfig.
// Returns nil if the config is valid, or an error with a clear message
// indicating which field is invalid.
func ValidateConfig(cfg *Config) error {
	if cfg.Server.HTTPListen != "" {
		if err := validateListenAddr(cfg.Server.HTTPListen, "server.http_listen"); err != nil {
			return err
		}
	}

	if cfg.Log.Level != "" {
		if _, ok := clog.LookupLevel(cfg.Log.Level); !ok {
			return fmt.Errorf("log.level: invalid value %q, must be one of: %s", cfg.Log.Level, strings.Join(clog.LevelNames, ", "))
		}
	}

	if cfg.Defaults.Scale < 0 {
		return fmt.Errorf("defaults.scale: must be positive, got %v", cfg.Defaults.Scale)
	}
	if !validAxisFormats[cfg.Defaults.AxisFormat] {
		return fmt.Errorf("defaults.axis_format: invalid value %q, must be xab or xyz", cfg.Defaults.AxisFormat)
	}

	for field, v := range map[string]string{
		"resources.installed_dir": cfg.Resources.InstalledDir,
		"resources.bundled_dir":   cfg.Resources.BundledDir,
		"resources.program":       cfg.Resources.Program,
		"temp.prefix":             cfg.Temp.Prefix,
	} {
		if err := validateName(v, field); err != nil {
			return err
		}
	}

	for i, origin := range cfg.Server.Origins {
		if strings.TrimSpace(origin) == "" {
			return fmt.Errorf("server.origins[%d]: must not be empty", i)
		}
	}

	return nil
}

// validateListenAddr accepts ":port" or "host:port". Port 0 asks the OS
// for a free port; the bound address is published in the server state.
func validateListenAddr(addr, field string) error {
	colonIdx := strings.LastIndex(addr, ":")
	if colonIdx == -1 {
		return fmt.Errorf("%s: invalid format %q, expected host:port or :port", field, addr)
	}

	portStr := addr[colonIdx+1:]
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("%s: invalid port %q in %q", field, portStr, addr)
	}
	if port < 0 || port > 65535 {
		return fmt.Errorf("%s: invalid port number %d, must be 0-65535", field, port)
	}
	return nil
}

// validateName rejects single path components that contain a separator.
func validateName(v, field string) error {
	if strings.ContainsAny(v, `/\`) {
		return fmt.Errorf("%s: %q must be a single name, not a path", field, v)
	}
	return nil
}
