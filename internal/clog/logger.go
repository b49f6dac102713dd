package clog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Tracer is the logging capability injected into the resolver and runner.
// *Logger satisfies it; Nop returns one that discards everything.
type Tracer interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// sink holds the writers shared between a logger and its named children.
type sink struct {
	mu         sync.Mutex
	fileWriter io.Writer // always receives logs at or above level
	errWriter  io.Writer // receives warn/error in CLI mode, nil in daemon mode
	daemonMode bool      // when true, errWriter is ignored
}

// Logger handles leveled logging with support for multiple outputs.
type Logger struct {
	out    *sink
	mu     sync.Mutex
	level  Level
	prefix string
}

// NewLogger creates an Info-level logger with no outputs attached.
func NewLogger() *Logger {
	return &Logger{
		out:   &sink{},
		level: LevelInfo,
	}
}

// Nop returns a logger that writes nothing. It is the default Tracer.
func Nop() *Logger {
	return &Logger{
		out:   &sink{},
		level: LevelError + 1,
	}
}

// Named returns a child logger whose messages are prefixed with "name: ".
// The child shares outputs with its parent and starts at the parent's level.
func (l *Logger) Named(name string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	prefix := name + ": "
	if l.prefix != "" {
		prefix = l.prefix + prefix
	}
	return &Logger{out: l.out, level: l.level, prefix: prefix}
}

// SetLevel sets the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// SetFileOutput sets the file writer for log output.
// Pass nil to disable file logging.
func (l *Logger) SetFileOutput(w io.Writer) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.fileWriter = w
}

// SetErrOutput sets the stderr writer for warn/error output in CLI mode.
// Pass nil to disable stderr logging.
func (l *Logger) SetErrOutput(w io.Writer) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.errWriter = w
}

// SetDaemonMode enables or disables daemon mode.
// In daemon mode, logs only go to the file writer, not stderr.
func (l *Logger) SetDaemonMode(daemon bool) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.daemonMode = daemon
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(LevelDebug, format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...any) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...any) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...any) {
	l.log(LevelError, format, args...)
}

func (l *Logger) log(level Level, format string, args ...any) {
	l.mu.Lock()
	minLevel, prefix := l.level, l.prefix
	l.mu.Unlock()

	if level < minLevel {
		return
	}

	msg := prefix + fmt.Sprintf(format, args...)
	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s [%s] %s\n", timestamp, level, msg)

	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.fileWriter != nil {
		_, _ = l.out.fileWriter.Write([]byte(line))
	}

	// stderr gets a shorter line without the timestamp
	if !l.out.daemonMode && l.out.errWriter != nil && level >= LevelWarn {
		errLine := fmt.Sprintf("[%s] %s\n", level, msg)
		_, _ = l.out.errWriter.Write([]byte(errLine))
	}
}

// OpenLogFile opens a log file for writing, creating parent directories if needed.
// The file is opened in append mode.
func OpenLogFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return f, nil
}
