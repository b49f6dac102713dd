package response

import (
	"bytes"
	"fmt"
)

// ProcessError reports that the tool ran and exited non-zero. Either stream
// may carry the diagnostic, so both are kept.
type ProcessError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e *ProcessError) Error() string {
	return fmt.Sprintf("fiberpath exited with status %d\nstdout:\n%s\nstderr:\n%s", e.ExitCode, e.Stdout, e.Stderr)
}

// newProcessError trims both streams.
func newProcessError(code int, stdout, stderr []byte) *ProcessError {
	return &ProcessError{
		ExitCode: code,
		Stdout:   string(bytes.TrimSpace(stdout)),
		Stderr:   string(bytes.TrimSpace(stderr)),
	}
}

// ParseError reports that the tool exited zero but its stdout broke the
// output contract: not JSON, or JSON that fails the operation's schema.
type ParseError struct {
	Stdout string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse fiberpath output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ArtifactReadError reports that a file the tool should have written could
// not be read after a successful exit.
type ArtifactReadError struct {
	Path string
	Err  error
}

func (e *ArtifactReadError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Path, e.Err)
}

func (e *ArtifactReadError) Unwrap() error {
	return e.Err
}
