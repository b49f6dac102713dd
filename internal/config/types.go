// Package config provides the fiberpath-bridge configuration types.
// These types map to the YAML file at ConfigPath().
package config

// Config is the top-level bridge configuration.
type Config struct {
	Resources ResourcesConfig `yaml:"resources,omitempty"`
	Temp      TempConfig      `yaml:"temp,omitempty"`
	Server    ServerConfig    `yaml:"server,omitempty"`
	Defaults  DefaultsConfig  `yaml:"defaults,omitempty"`
	Log       LogConfig       `yaml:"log,omitempty"`
}

// ResourcesConfig describes where the bundled CLI lives.
type ResourcesConfig struct {
	// Root is the application's resource directory. Empty means the
	// directory containing the running executable.
	Root         string `yaml:"root,omitempty"`
	InstalledDir string `yaml:"installed_dir,omitempty"`
	BundledDir   string `yaml:"bundled_dir,omitempty"`
	Program      string `yaml:"program,omitempty"`
}

// TempConfig controls generated artifact paths.
type TempConfig struct {
	Dir    string `yaml:"dir,omitempty"`
	Prefix string `yaml:"prefix,omitempty"`
	// Unique appends a random suffix after the millisecond timestamp.
	Unique *bool `yaml:"unique,omitempty"`
}

// ServerConfig contains settings for the serve command.
type ServerConfig struct {
	Socket     string `yaml:"socket,omitempty"`
	HTTPListen string `yaml:"http_listen,omitempty"`
	// Origins are host patterns accepted from WebSocket clients.
	Origins []string `yaml:"origins,omitempty"`
}

// DefaultsConfig fills operation parameters the caller omits.
type DefaultsConfig struct {
	BaudRate   uint32  `yaml:"baud_rate,omitempty"`
	Scale      float64 `yaml:"scale,omitempty"`
	AxisFormat string  `yaml:"axis_format,omitempty"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	File  string `yaml:"file,omitempty"`
	Level string `yaml:"level,omitempty"`
	// Trace sends resolver and runner decisions to the log.
	Trace bool `yaml:"trace,omitempty"`
	// Audit is a journal of every fiberpath invocation. Empty disables it.
	Audit string `yaml:"audit,omitempty"`
}

// UniqueTemp reports whether generated paths get a random suffix.
func (t TempConfig) UniqueTemp() bool {
	return t.Unique == nil || *t.Unique
}
