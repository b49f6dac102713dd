// Package command builds the argument vector for each fiberpath operation.
//
// Builders are pure: the same params and TempNamer state always produce the
// same Spec. They are the only code that knows the shape of an operation's
// arguments, and Parse is their inverse.
package command

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidParams is returned by Validate for caller input no builder
// can turn into a sensible invocation.
var ErrInvalidParams = errors.New("invalid parameters")

// Operation names a logical bridge operation.
type Operation string

const (
	OpPlan     Operation = "plan"
	OpSimulate Operation = "simulate"
	OpPreview  Operation = "preview"
	OpStream   Operation = "stream"
	OpValidate Operation = "validate"
	OpVersion  Operation = "version"
)

// Subcommand returns the CLI subcommand for op. Preview maps to "plot";
// version has no subcommand.
func (op Operation) Subcommand() string {
	switch op {
	case OpPreview:
		return "plot"
	case OpVersion:
		return ""
	default:
		return string(op)
	}
}

// Axis formats accepted by the planner.
const (
	AxisFormatXAB = "xab"
	AxisFormatXYZ = "xyz"
)

// Extensions of generated artifacts.
const (
	ExtGcode = "gcode"
	ExtPNG   = "png"
)

// Spec is one fully built invocation. It is immutable once constructed.
type Spec struct {
	op     Operation
	args   []string
	json   bool
	output string
}

// Operation returns the logical operation.
func (s Spec) Operation() Operation { return s.op }

// Args returns a copy of the argument vector.
func (s Spec) Args() []string {
	out := make([]string, len(s.args))
	copy(out, s.args)
	return out
}

// JSON reports whether --json was requested, i.e. stdout must be parsed.
func (s Spec) JSON() bool { return s.json }

// Output returns the artifact path the tool will write, if any.
func (s Spec) Output() string { return s.output }

func (s Spec) String() string {
	return fmt.Sprintf("%s %v", s.op, s.args)
}

// PlanParams are the inputs to plan.
type PlanParams struct {
	Input      string `json:"input"`
	Output     string `json:"output,omitempty"`
	AxisFormat string `json:"axis_format,omitempty"`
}

// Validate checks the params.
func (p PlanParams) Validate() error {
	if p.Input == "" {
		return fmt.Errorf("%w: plan requires an input path", ErrInvalidParams)
	}
	switch p.AxisFormat {
	case "", AxisFormatXAB, AxisFormatXYZ:
		return nil
	}
	return fmt.Errorf("%w: unknown axis format %q (want %s or %s)", ErrInvalidParams, p.AxisFormat, AxisFormatXAB, AxisFormatXYZ)
}

// Plan builds `plan <input> --output <out> --json [--axis-format <fmt>]`.
// A temp .gcode path is generated when Output is empty.
func Plan(p PlanParams, n *TempNamer) Spec {
	out := p.Output
	if out == "" {
		out = n.Path(ExtGcode)
	}
	args := []string{OpPlan.Subcommand(), p.Input, "--output", out, "--json"}
	if p.AxisFormat != "" {
		args = append(args, "--axis-format", p.AxisFormat)
	}
	return Spec{op: OpPlan, args: args, json: true, output: out}
}

// SimulateParams are the inputs to simulate.
type SimulateParams struct {
	Path string `json:"path"`
}

// Validate checks the params.
func (p SimulateParams) Validate() error {
	if p.Path == "" {
		return fmt.Errorf("%w: simulate requires a program path", ErrInvalidParams)
	}
	return nil
}

// Simulate builds `simulate <path> --json`.
func Simulate(p SimulateParams) Spec {
	return Spec{op: OpSimulate, args: []string{OpSimulate.Subcommand(), p.Path, "--json"}, json: true}
}

// PreviewParams are the inputs to preview.
type PreviewParams struct {
	Path  string  `json:"path"`
	Scale float64 `json:"scale"`
}

// Validate checks the params.
func (p PreviewParams) Validate() error {
	if p.Path == "" {
		return fmt.Errorf("%w: preview requires a program path", ErrInvalidParams)
	}
	if !(p.Scale > 0) {
		return fmt.Errorf("%w: preview scale must be positive, got %v", ErrInvalidParams, p.Scale)
	}
	return nil
}

// Preview builds `plot <path> --output <tmp.png> --scale <scale>`. The image
// path is always generated.
func Preview(p PreviewParams, n *TempNamer) Spec {
	out := n.Path(ExtPNG)
	args := []string{OpPreview.Subcommand(), p.Path, "--output", out, "--scale", FormatScale(p.Scale)}
	return Spec{op: OpPreview, args: args, output: out}
}

// FormatScale renders a scale factor with the fewest digits that parse back
// to the same value.
func FormatScale(s float64) string {
	return strconv.FormatFloat(s, 'f', -1, 64)
}

// StreamParams are the inputs to stream.
type StreamParams struct {
	Path     string `json:"path"`
	Port     string `json:"port,omitempty"`
	BaudRate uint32 `json:"baud_rate"`
	DryRun   bool   `json:"dry_run,omitempty"`
}

// Validate checks the params.
func (p StreamParams) Validate() error {
	if p.Path == "" {
		return fmt.Errorf("%w: stream requires a program path", ErrInvalidParams)
	}
	if p.BaudRate == 0 {
		return fmt.Errorf("%w: stream baud rate must be non-zero", ErrInvalidParams)
	}
	return nil
}

// Stream builds `stream <path> --baud-rate <rate> --json [--dry-run | --port <p>]`.
// Dry-run wins: no --port is emitted when DryRun is set. An empty Port is
// the same as no port.
func Stream(p StreamParams) Spec {
	args := []string{
		OpStream.Subcommand(), p.Path,
		"--baud-rate", strconv.FormatUint(uint64(p.BaudRate), 10),
		"--json",
	}
	if p.DryRun {
		args = append(args, "--dry-run")
	} else if p.Port != "" {
		args = append(args, "--port", p.Port)
	}
	return Spec{op: OpStream, args: args, json: true}
}

// ValidateParams are the inputs to validate.
type ValidateParams struct {
	Path string `json:"path"`
}

// Validate checks the params.
func (p ValidateParams) Validate() error {
	if p.Path == "" {
		return fmt.Errorf("%w: validate requires a program path", ErrInvalidParams)
	}
	return nil
}

// Validate builds `validate <path>`. The tool prints plain text, not JSON.
func Validate(p ValidateParams) Spec {
	return Spec{op: OpValidate, args: []string{OpValidate.Subcommand(), p.Path}}
}

// Version builds `--version`.
func Version() Spec {
	return Spec{op: OpVersion, args: []string{"--version"}}
}
