// Package ipc carries bridge operations between the GUI and the Dispatcher.
//
// Two transports share one JSON envelope: a Unix socket speaking
// newline-delimited JSON, and a WebSocket endpoint with one envelope per
// text frame. Requests on one connection are handled concurrently and
// answered as they finish, so clients match responses by ID.
package ipc

import (
	"encoding/json"
	"errors"
)

// Operation names accepted in Request.Op.
const (
	OpPlan     = "plan"
	OpSimulate = "simulate"
	OpPreview  = "preview"
	OpStream   = "stream"
	OpValidate = "validate"
	OpVersion  = "version"
	OpDiagnose = "diagnose"
	OpStats    = "stats"
)

// ErrUnknownOp is returned for a Request.Op the handler does not serve.
var ErrUnknownOp = errors.New("unknown operation")

// Request is one call from the GUI.
type Request struct {
	// ID is echoed in the response. The server assigns one when empty.
	ID     string          `json:"id,omitempty"`
	Op     string          `json:"op"`
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers one Request.
type Response struct {
	ID     string     `json:"id"`
	OK     bool       `json:"ok"`
	Result any        `json:"result,omitempty"`
	Digest string     `json:"digest,omitempty"`
	Error  *ErrorBody `json:"error,omitempty"`
}

// ErrorBody is the text-only form of a failure.
type ErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// PlanParams mirror the GUI's plan call.
type PlanParams struct {
	InputPath  string `json:"inputPath"`
	OutputPath string `json:"outputPath,omitempty"`
	AxisFormat string `json:"axisFormat,omitempty"`
}

// SimulateParams mirror the GUI's simulate call.
type SimulateParams struct {
	GcodePath string `json:"gcodePath"`
}

// PreviewParams mirror the GUI's preview call. A nil Scale takes the
// configured default.
type PreviewParams struct {
	GcodePath string   `json:"gcodePath"`
	Scale     *float64 `json:"scale,omitempty"`
}

// StreamParams mirror the GUI's stream call. A nil BaudRate takes the
// configured default.
type StreamParams struct {
	GcodePath string  `json:"gcodePath"`
	Port      string  `json:"port,omitempty"`
	BaudRate  *uint32 `json:"baudRate,omitempty"`
	DryRun    bool    `json:"dryRun,omitempty"`
}

// ValidateParams mirror the GUI's validate call.
type ValidateParams struct {
	InputPath string `json:"inputPath"`
}
