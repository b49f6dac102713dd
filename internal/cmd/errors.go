package cmd

import (
	"errors"
	"fmt"

	"github.com/fiberpath/bridge/internal/bridge"
	"github.com/fiberpath/bridge/internal/response"
)

// Exit codes for failed operations. A fiberpath process failure passes the
// child's own status through instead.
const (
	exitFailure    = 1
	exitUsage      = 2
	exitNotFound   = 127
	exitNotStarted = 126
)

// ExitCodeError carries a process exit code to main.
type ExitCodeError struct {
	Code int
	Err  error
}

// NewExitCodeError returns an ExitCodeError with no message.
func NewExitCodeError(code int) *ExitCodeError {
	return &ExitCodeError{Code: code}
}

func (e *ExitCodeError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitCodeError) Unwrap() error {
	return e.Err
}

// operationError attaches an exit code to an operation failure.
// Returns nil for a nil error.
func operationError(err error) error {
	if err == nil {
		return nil
	}
	code := exitFailure
	switch bridge.Kind(err) {
	case bridge.KindResolution:
		code = exitNotFound
	case bridge.KindLaunch:
		code = exitNotStarted
	case bridge.KindInvalid:
		code = exitUsage
	case bridge.KindProcess:
		var procErr *response.ProcessError
		if errors.As(err, &procErr) && procErr.ExitCode > 0 {
			code = procErr.ExitCode
		}
	}
	return &ExitCodeError{Code: code, Err: err}
}
