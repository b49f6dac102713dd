// Package executor runs the fiberpath CLI as a child process.
//
// Every run captures the exit code, stdout and stderr in full regardless of
// outcome. A process that could not be started at all is reported as a
// *LaunchError, never as a non-zero exit.
package executor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Executor runs a command and returns its captured outcome.
type Executor interface {
	Execute(ctx context.Context, req Request) (Outcome, error)
}

// Request contains the command execution parameters.
type Request struct {
	// Command is a resolved executable path or a bare program name.
	Command string            `json:"command"`
	Args    []string          `json:"args"`
	Workdir string            `json:"workdir,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// String renders the invocation for logs and error messages.
func (r Request) String() string {
	if len(r.Args) == 0 {
		return r.Command
	}
	return r.Command + " " + strings.Join(r.Args, " ")
}

// Outcome is the captured result of one child process.
type Outcome struct {
	ExitCode int           `json:"exit_code"`
	Stdout   []byte        `json:"stdout,omitempty"`
	Stderr   []byte        `json:"stderr,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Success reports whether the process exited with status 0.
func (o Outcome) Success() bool {
	return o.ExitCode == 0
}

// LaunchError reports that the executable could not be spawned: it vanished
// after resolution, lacks execute permission, and so on.
type LaunchError struct {
	Command string
	Args    []string
	Err     error
}

func (e *LaunchError) Error() string {
	req := Request{Command: e.Command, Args: e.Args}
	return fmt.Sprintf("failed to launch fiberpath: %v while running `%s`", e.Err, req)
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// InterruptedError reports that the caller's context ended while the child
// was running. The partial outcome is still returned alongside it.
type InterruptedError struct {
	Command string
	Err     error
}

func (e *InterruptedError) Error() string {
	return fmt.Sprintf("fiberpath interrupted while running %s: %v", e.Command, e.Err)
}

func (e *InterruptedError) Unwrap() error {
	return e.Err
}
