// Package bridge is the façade the GUI talks to: one method per operation,
// each composing the command builder, resolver, runner and interpreter.
//
// A Dispatcher holds no per-call state. Every call resolves the executable
// afresh and waits only on its own child process, so any number of calls
// may run concurrently.
package bridge

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/command"
	"github.com/fiberpath/bridge/internal/executor"
	"github.com/fiberpath/bridge/internal/resolve"
	"github.com/fiberpath/bridge/internal/response"
)

// Locator finds the fiberpath executable. *resolve.Resolver implements it.
type Locator interface {
	Resolve() (resolve.Resolution, error)
	Candidates() ([]resolve.Candidate, error)
}

// Observer receives operation events. *metrics.Recorder implements it.
type Observer interface {
	Begin(op string) func()
	Observe(op, outcome string, d time.Duration)
	ObserveResolution(source string)
}

type nopObserver struct{}

func (nopObserver) Begin(string) func()                   { return func() {} }
func (nopObserver) Observe(string, string, time.Duration) {}
func (nopObserver) ObserveResolution(string)              {}

// Dispatcher runs bridge operations.
type Dispatcher struct {
	locator  Locator
	exec     executor.Executor
	namer    *command.TempNamer
	tracer   clog.Tracer
	observer Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithTracer sets the operation tracer.
func WithTracer(t clog.Tracer) Option {
	return func(d *Dispatcher) {
		if t != nil {
			d.tracer = t
		}
	}
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithTempNamer sets the generator for default artifact paths.
func WithTempNamer(n *command.TempNamer) Option {
	return func(d *Dispatcher) {
		if n != nil {
			d.namer = n
		}
	}
}

// New creates a Dispatcher.
func New(locator Locator, exec executor.Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		locator:  locator,
		exec:     exec,
		namer:    command.NewTempNamer("", command.DefaultPrefix, true),
		tracer:   clog.Nop(),
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Plan generates G-code from a wind definition. The payload always carries
// "output", the path the G-code was written to.
func (d *Dispatcher) Plan(ctx context.Context, p command.PlanParams) (res response.Result, err error) {
	defer d.instrument(command.OpPlan)(&err)
	if err := p.Validate(); err != nil {
		return response.Result{}, err
	}

	spec := command.Plan(p, d.namer)
	res, err = d.run(ctx, spec)
	if err != nil {
		return response.Result{}, err
	}

	if obj := res.Object(); obj != nil {
		if _, ok := obj["output"]; !ok {
			obj["output"] = spec.Output()
			seen := len(res.Notes)
			res.Redigest()
			d.traceNotes(command.OpPlan, res.Notes[seen:])
		}
	}
	return res, nil
}

// Simulate runs the motion simulator on a G-code program.
func (d *Dispatcher) Simulate(ctx context.Context, p command.SimulateParams) (res response.Result, err error) {
	defer d.instrument(command.OpSimulate)(&err)
	if err := p.Validate(); err != nil {
		return response.Result{}, err
	}
	return d.run(ctx, command.Simulate(p))
}

// Preview is the payload of a preview operation.
type Preview struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"imageBase64"`
}

// Preview renders a program to a PNG and returns it base64 encoded.
func (d *Dispatcher) Preview(ctx context.Context, p command.PreviewParams) (pv Preview, err error) {
	defer d.instrument(command.OpPreview)(&err)
	if err := p.Validate(); err != nil {
		return Preview{}, err
	}

	spec := command.Preview(p, d.namer)
	if _, err := d.run(ctx, spec); err != nil {
		return Preview{}, err
	}

	data, err := response.ReadArtifact(spec.Output())
	if err != nil {
		return Preview{}, err
	}
	d.tracer.Debug("read %d byte preview from %s", len(data), spec.Output())
	return Preview{Path: spec.Output(), ImageBase64: base64.StdEncoding.EncodeToString(data)}, nil
}

// Stream sends a program to the controller, or rehearses it with DryRun.
func (d *Dispatcher) Stream(ctx context.Context, p command.StreamParams) (res response.Result, err error) {
	defer d.instrument(command.OpStream)(&err)
	if err := p.Validate(); err != nil {
		return response.Result{}, err
	}
	if p.DryRun && p.Port != "" {
		d.tracer.Debug("dry run requested, ignoring port %s", p.Port)
	}
	return d.run(ctx, command.Stream(p))
}

// Validation is the payload of a validate operation.
type Validation struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Validate checks a wind definition without planning it.
func (d *Dispatcher) Validate(ctx context.Context, p command.ValidateParams) (v Validation, err error) {
	defer d.instrument(command.OpValidate)(&err)
	if err := p.Validate(); err != nil {
		return Validation{}, err
	}
	res, err := d.run(ctx, command.Validate(p))
	if err != nil {
		return Validation{}, err
	}
	msg, _ := res.Payload.(string)
	return Validation{Status: "ok", Message: msg}, nil
}

// VersionInfo is the payload of a version operation.
type VersionInfo struct {
	Version string `json:"version"`
}

// Version asks the CLI for its version.
func (d *Dispatcher) Version(ctx context.Context) (v VersionInfo, err error) {
	defer d.instrument(command.OpVersion)(&err)
	res, err := d.run(ctx, command.Version())
	if err != nil {
		return VersionInfo{}, err
	}
	s, _ := res.Payload.(string)
	return VersionInfo{Version: s}, nil
}

// run resolves, spawns and interprets one invocation.
func (d *Dispatcher) run(ctx context.Context, spec command.Spec) (response.Result, error) {
	resolution, err := d.locator.Resolve()
	if err != nil {
		d.observer.ObserveResolution("failed")
		return response.Result{}, err
	}
	d.observer.ObserveResolution(string(resolution.Source))

	out, err := d.exec.Execute(ctx, executor.Request{Command: resolution.Path, Args: spec.Args()})
	if err != nil {
		return response.Result{}, err
	}

	var schema *response.Schema
	if spec.JSON() {
		if schema, err = response.SchemaFor(spec.Operation()); err != nil {
			return response.Result{}, err
		}
	}
	res, err := response.Interpret(out, spec.JSON(), schema)
	if err != nil {
		return response.Result{}, err
	}
	d.traceNotes(spec.Operation(), res.Notes)
	return res, nil
}

func (d *Dispatcher) traceNotes(op command.Operation, notes []string) {
	for _, n := range notes {
		d.tracer.Warn("%s: %s", op, n)
	}
}

// instrument marks op in flight and returns a func that records its outcome
// once the named error result is final.
func (d *Dispatcher) instrument(op command.Operation) func(*error) {
	start := time.Now()
	end := d.observer.Begin(string(op))
	d.tracer.Debug("%s started", op)

	return func(errp *error) {
		end()
		elapsed := time.Since(start)
		outcome := OutcomeOK
		if *errp != nil {
			outcome = Kind(*errp)
			d.tracer.Warn("%s failed (%s) after %s: %v", op, outcome, elapsed, *errp)
		} else {
			d.tracer.Info("%s finished in %s", op, elapsed)
		}
		d.observer.Observe(string(op), outcome, elapsed)
	}
}
