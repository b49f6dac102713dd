// Package term writes user-facing output for the fiberpath-bridge CLI.
// Operational logging lives in internal/clog.
//
// Print/Printf/Println and JSON go to stdout and are suppressed with
// --silent. Warn and Error go to stderr and are never suppressed.
package term

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	xterm "golang.org/x/term"
)

var (
	mu     sync.Mutex
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
	silent bool
	// pretty overrides terminal detection for JSON when non-nil.
	pretty *bool
)

// SetSilent suppresses stdout output when s is true.
func SetSilent(s bool) {
	mu.Lock()
	defer mu.Unlock()
	silent = s
}

// SetOutput redirects stdout output; nil restores os.Stdout.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	stdout = orDefault(w, os.Stdout)
}

// SetErrOutput redirects stderr output; nil restores os.Stderr.
func SetErrOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	stderr = orDefault(w, os.Stderr)
}

func orDefault(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}
	return w
}

// toStdout runs write against stdout unless silent.
func toStdout(write func(w io.Writer)) {
	mu.Lock()
	defer mu.Unlock()
	if !silent {
		write(stdout)
	}
}

// Print writes to stdout like fmt.Print.
func Print(a ...any) {
	toStdout(func(w io.Writer) { _, _ = fmt.Fprint(w, a...) })
}

// Printf writes to stdout like fmt.Printf.
func Printf(format string, a ...any) {
	toStdout(func(w io.Writer) { _, _ = fmt.Fprintf(w, format, a...) })
}

// Println writes to stdout like fmt.Println.
func Println(a ...any) {
	toStdout(func(w io.Writer) { _, _ = fmt.Fprintln(w, a...) })
}

// Warn writes "Warning: <msg>" to stderr, even when silent.
func Warn(format string, a ...any) {
	labelled("Warning", format, a...)
}

// Error writes "Error: <msg>" to stderr, even when silent.
func Error(format string, a ...any) {
	labelled("Error", format, a...)
}

func labelled(label, format string, a ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, a...), "\n")
	mu.Lock()
	defer mu.Unlock()
	_, _ = fmt.Fprintf(stderr, "%s: %s\n", label, msg)
}

// Stdout returns the stdout writer for table and template output. It
// discards everything while silent.
func Stdout() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return io.Discard
	}
	return stdout
}

// Stderr returns the stderr writer, used for interactive prompts.
func Stderr() io.Writer {
	mu.Lock()
	defer mu.Unlock()
	return stderr
}

// Reset restores the default writers and modes.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	stdout, stderr = os.Stdout, os.Stderr
	silent = false
	pretty = nil
}

// SetPretty forces indented (true) or compact (false) JSON output.
func SetPretty(p bool) {
	mu.Lock()
	defer mu.Unlock()
	pretty = &p
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}
	return xterm.IsTerminal(int(f.Fd()))
}

// JSON writes v to stdout as JSON followed by a newline. Output is indented
// when stdout is a terminal and compact otherwise, so piped output stays
// one document per line.
// Suppressed when silent mode is enabled.
func JSON(v any) error {
	mu.Lock()
	defer mu.Unlock()
	if silent {
		return nil
	}

	indent := IsTerminal(stdout)
	if pretty != nil {
		indent = *pretty
	}

	enc := json.NewEncoder(stdout)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
