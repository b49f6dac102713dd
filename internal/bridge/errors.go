package bridge

import (
	"errors"

	"github.com/fiberpath/bridge/internal/command"
	"github.com/fiberpath/bridge/internal/executor"
	"github.com/fiberpath/bridge/internal/resolve"
	"github.com/fiberpath/bridge/internal/response"
)

// ErrInvalidParams is matched by errors for caller input no operation accepts.
var ErrInvalidParams = command.ErrInvalidParams

// OutcomeOK is the observer outcome of a successful operation.
const OutcomeOK = "ok"

// Error kinds reported to the GUI.
const (
	KindResolution = "resolution"
	KindLaunch     = "launch"
	KindProcess    = "process"
	KindParse      = "parse"
	KindArtifact   = "artifact"
	KindInvalid    = "invalid"
	KindInterrupt  = "interrupted"
	KindInternal   = "internal"
)

// Kind maps err to a stable kind string. A nil error has no kind.
func Kind(err error) string {
	if err == nil {
		return ""
	}

	var (
		resErr    *resolve.ResolutionError
		launchErr *executor.LaunchError
		intErr    *executor.InterruptedError
		procErr   *response.ProcessError
		parseErr  *response.ParseError
		artErr    *response.ArtifactReadError
	)
	switch {
	case errors.As(err, &resErr):
		return KindResolution
	case errors.As(err, &launchErr):
		return KindLaunch
	case errors.As(err, &intErr):
		return KindInterrupt
	case errors.As(err, &procErr):
		return KindProcess
	case errors.As(err, &parseErr):
		return KindParse
	case errors.As(err, &artErr):
		return KindArtifact
	case errors.Is(err, ErrInvalidParams):
		return KindInvalid
	default:
		return KindInternal
	}
}
