// Package clog is the bridge's operational log, kept apart from the JSON
// results and messages printed for the user (see internal/term).
//
// Messages at or above the configured level go to the log file. Warnings
// and errors are also echoed to stderr unless the process runs as a daemon.
// Resolver and runner traces are Debug messages, enabled by --debug,
// --trace or log.level: trace.
package clog

import (
	"fmt"
	"strings"
)

// Level represents the severity of a log message.
type Level int

const (
	// LevelDebug carries resolver and runner traces.
	LevelDebug Level = iota
	// LevelInfo is for normal operational events.
	LevelInfo
	// LevelWarn is for unexpected conditions that don't prevent operation.
	LevelWarn
	// LevelError is for failures that affect functionality.
	LevelError
)

// LevelNames lists the accepted level names in increasing severity.
// "trace" is an alias for debug.
var LevelNames = []string{"trace", "debug", "info", "warn", "error"}

// String returns the uppercase name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LookupLevel maps a case-insensitive level name to a Level.
func LookupLevel(s string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace", "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error", "err":
		return LevelError, true
	}
	return LevelInfo, false
}

// ParseLevel is LookupLevel with unknown names mapped to LevelInfo.
func ParseLevel(s string) Level {
	l, _ := LookupLevel(s)
	return l
}

// Set parses s into l, so a Level can back a command-line flag.
func (l *Level) Set(s string) error {
	parsed, ok := LookupLevel(s)
	if !ok {
		return fmt.Errorf("invalid log level %q, must be one of: %s", s, strings.Join(LevelNames, ", "))
	}
	*l = parsed
	return nil
}

// Type names the flag value type in help output.
func (l *Level) Type() string {
	return "level"
}
