package clog

import (
	"io"
	"os"
	"strings"
)

// std is the process-wide logger behind the package-level functions.
var std = newStderrLogger()

func newStderrLogger() *Logger {
	l := NewLogger()
	l.SetErrOutput(os.Stderr)
	return l
}

// Configure sets the global minimum level, opens logPath for appending
// when it is non-empty, and in daemon mode stops echoing to stderr.
func Configure(logPath string, level Level, daemonMode bool) error {
	std.SetLevel(level)
	std.SetDaemonMode(daemonMode)

	if logPath == "" {
		return nil
	}
	f, err := OpenLogFile(logPath)
	if err != nil {
		return err
	}
	std.SetFileOutput(f)
	return nil
}

// Default returns the global logger, for injection as a Tracer.
func Default() *Logger {
	return std
}

// SetLevel sets the minimum level of the global logger.
func SetLevel(level Level) {
	std.SetLevel(level)
}

// Debug logs through the global logger.
func Debug(format string, args ...any) { std.Debug(format, args...) }

// Info logs through the global logger.
func Info(format string, args ...any) { std.Info(format, args...) }

// Warn logs through the global logger.
func Warn(format string, args ...any) { std.Warn(format, args...) }

// Error logs through the global logger.
func Error(format string, args ...any) { std.Error(format, args...) }

// Close closes the global log file, if one was opened by Configure.
func Close() error {
	std.out.mu.Lock()
	defer std.out.mu.Unlock()

	closer, ok := std.out.fileWriter.(io.Closer)
	if !ok {
		return nil
	}
	std.out.fileWriter = nil
	return closer.Close()
}

// Reset restores the global logger to its initial state.
func Reset() {
	std = newStderrLogger()
}

// ReplaceGlobal installs l as the global logger and returns the previous one.
func ReplaceGlobal(l *Logger) *Logger {
	old := std
	std = l
	return old
}

// TestLogger returns a debug-level logger that writes only to w.
func TestLogger(w io.Writer) *Logger {
	l := NewLogger()
	l.SetFileOutput(w)
	l.SetLevel(LevelDebug)
	return l
}

// Writer adapts the global logger to an io.Writer for standard-library
// consumers such as http.Server.ErrorLog. Each Write becomes one message at
// level, with trailing newlines removed.
func Writer(level Level) io.Writer {
	return levelWriter(level)
}

type levelWriter Level

func (w levelWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\r\n")
	std.log(Level(w), "%s", msg)
	return len(p), nil
}
