package config

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// DefaultConfig returns a Config with all defaults populated.
func DefaultConfig() *Config {
	return &Config{
		Resources: ResourcesConfig{
			// Root intentionally empty - resolved next to the executable
			InstalledDir: "_up_",
			BundledDir:   "bundled-cli",
			Program:      "fiberpath",
		},
		Temp: TempConfig{
			// Dir intentionally empty - os.TempDir()
			Prefix: "fiberpath",
			Unique: boolPtr(true),
		},
		Server: ServerConfig{
			Socket:     "~/.local/share/fiberpath-bridge/bridge.sock",
			HTTPListen: "127.0.0.1:7878",
			Origins:    []string{"localhost", "localhost:*", "127.0.0.1:*", "tauri.localhost"},
		},
		Defaults: DefaultsConfig{
			BaudRate: 250000,
			Scale:    1.0,
		},
		Log: LogConfig{
			File:  "~/.local/state/fiberpath-bridge/bridge.log",
			Level: "info",
		},
	}
}

// defaultConfigTemplate is written by WriteDefaultConfig. It must parse to
// the same values as DefaultConfig.
const defaultConfigTemplate = `# fiberpath-bridge configuration
#
# Unset fields take the defaults shown here.

resources:
  # Directory holding the bundled CLI. Empty means the directory of the
  # fiberpath-bridge executable.
  root: ""
  # Extra directory level added by the Windows installer.
  installed_dir: _up_
  bundled_dir: bundled-cli
  program: fiberpath

temp:
  # Where generated G-code and preview images go. Empty means the OS temp dir.
  dir: ""
  prefix: fiberpath
  # Append a random suffix so two operations in the same millisecond
  # never share an output path.
  unique: true

server:
  socket: ~/.local/share/fiberpath-bridge/bridge.sock
  # Serves /ws, /metrics and /healthz.
  http_listen: 127.0.0.1:7878
  # Origin host patterns accepted from WebSocket clients.
  origins:
    - localhost
    - "localhost:*"
    - "127.0.0.1:*"
    - tauri.localhost

defaults:
  baud_rate: 250000
  scale: 1.0
  # xab or xyz; empty lets the CLI decide.
  axis_format: ""

log:
  file: ~/.local/state/fiberpath-bridge/bridge.log
  level: info
  # Log every resolver and runner decision.
  trace: false
  # Journal of every fiberpath invocation (START/COMPLETE/FAIL lines).
  # Empty disables it.
  audit: ""
`
