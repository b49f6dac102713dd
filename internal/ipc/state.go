package ipc

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"
)

// State describes a running bridge server.
type State struct {
	PID        int       `json:"pid"`
	SocketPath string    `json:"socket_path,omitempty"`
	HTTPAddr   string    `json:"http_addr,omitempty"`
	StartedAt  time.Time `json:"started_at"`
}

// StateDir returns the directory for server state files:
// $XDG_DATA_HOME/fiberpath-bridge, or ~/.local/share/fiberpath-bridge.
func StateDir() (string, error) {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "fiberpath-bridge"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "fiberpath-bridge"), nil
}

// DefaultStatePath returns the path to the server state file.
func DefaultStatePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "server.json"), nil
}

// SaveState writes state to path.
func SaveState(path string, state *State) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// LoadState reads the state at path. It returns nil, nil when no server
// has recorded one.
func LoadState(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &state, nil
}

// RemoveState removes the state file.
func RemoveState(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove state: %w", err)
	}
	return nil
}

// IsRunning checks whether the recorded process is still alive.
func IsRunning(state *State) bool {
	if state == nil || state.PID == 0 {
		return false
	}

	process, err := os.FindProcess(state.PID)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds.
	// Send signal 0 to check if process exists.
	return process.Signal(syscall.Signal(0)) == nil
}

// StopServer asks the recorded process to shut down with SIGTERM.
func StopServer(state *State) error {
	if state == nil || state.PID == 0 {
		return nil
	}

	process, err := os.FindProcess(state.PID)
	if err != nil {
		return nil //nolint:nilerr // process doesn't exist, nothing to stop
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		return nil //nolint:nilerr // process already dead, nothing to stop
	}
	return nil
}

// CleanupStale removes the state file, and the socket it names, when the
// recorded process is gone. It reports whether anything was removed.
func CleanupStale(path string) (bool, error) {
	state, err := LoadState(path)
	if err != nil {
		return false, err
	}
	if state == nil || IsRunning(state) {
		return false, nil
	}

	if state.SocketPath != "" {
		os.Remove(state.SocketPath)
	}
	return true, RemoveState(path)
}
