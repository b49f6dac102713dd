package bridge

import (
	"context"
	"errors"

	"github.com/fiberpath/bridge/internal/resolve"
)

// Diagnostics describes the state of the CLI installation. It backs the
// GUI's diagnostics dialog and the doctor command.
type Diagnostics struct {
	Healthy    bool                `json:"healthy"`
	Path       string              `json:"path,omitempty"`
	Source     resolve.Source      `json:"source,omitempty"`
	Version    string              `json:"version,omitempty"`
	Error      string              `json:"error,omitempty"`
	ErrorKind  string              `json:"error_kind,omitempty"`
	Candidates []resolve.Candidate `json:"candidates"`
	Attempts   []resolve.Attempt   `json:"attempts,omitempty"`
}

// Diagnose resolves the executable and probes its version. Failures are
// reported inside Diagnostics, never returned.
func (d *Dispatcher) Diagnose(ctx context.Context) Diagnostics {
	var diag Diagnostics

	candidates, err := d.locator.Candidates()
	if err != nil {
		d.tracer.Warn("candidate list unavailable: %v", err)
	}
	diag.Candidates = candidates
	if diag.Candidates == nil {
		diag.Candidates = []resolve.Candidate{}
	}

	resolution, err := d.locator.Resolve()
	if err != nil {
		diag.Error = err.Error()
		diag.ErrorKind = Kind(err)
		var resErr *resolve.ResolutionError
		if errors.As(err, &resErr) {
			diag.Attempts = resErr.Attempts
		}
		return diag
	}
	diag.Path = resolution.Path
	diag.Source = resolution.Source
	diag.Attempts = resolution.Attempts

	v, err := d.Version(ctx)
	if err != nil {
		diag.Error = err.Error()
		diag.ErrorKind = Kind(err)
		return diag
	}
	diag.Version = v.Version
	diag.Healthy = true
	return diag
}
