package bridge

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/command"
	"github.com/fiberpath/bridge/internal/executor"
	"github.com/fiberpath/bridge/internal/resolve"
	"github.com/fiberpath/bridge/internal/response"
)

// stubLocator returns a fixed resolution or error.
type stubLocator struct {
	path  string
	err   error
	calls int
	mu    sync.Mutex
}

func (l *stubLocator) Resolve() (resolve.Resolution, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	if l.err != nil {
		return resolve.Resolution{}, l.err
	}
	return resolve.Resolution{Path: l.path, Source: resolve.SourceBundled}, nil
}

func (l *stubLocator) Candidates() ([]resolve.Candidate, error) {
	return []resolve.Candidate{{Path: l.path, Mode: resolve.ModeDevelopment}}, nil
}

// stubExecutor records requests and replies with a canned outcome.
type stubExecutor struct {
	mu       sync.Mutex
	requests []executor.Request
	outcome  executor.Outcome
	err      error
	// artifact, when set, is written to the --output path before returning.
	artifact []byte
}

func (e *stubExecutor) Execute(_ context.Context, req executor.Request) (executor.Outcome, error) {
	e.mu.Lock()
	e.requests = append(e.requests, req)
	e.mu.Unlock()

	if e.artifact != nil {
		for i, a := range req.Args {
			if a == "--output" && i+1 < len(req.Args) {
				if err := os.WriteFile(req.Args[i+1], e.artifact, 0o644); err != nil {
					return executor.Outcome{}, err
				}
			}
		}
	}
	return e.outcome, e.err
}

func (e *stubExecutor) last() executor.Request {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[len(e.requests)-1]
}

// recordingObserver captures observer calls.
type recordingObserver struct {
	mu          sync.Mutex
	begun       []string
	outcomes    map[string]string
	resolutions []string
}

func (o *recordingObserver) Begin(op string) func() {
	o.mu.Lock()
	o.begun = append(o.begun, op)
	o.mu.Unlock()
	return func() {}
}

func (o *recordingObserver) Observe(op, outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[string]string)
	}
	o.outcomes[op] = outcome
}

func (o *recordingObserver) ObserveResolution(source string) {
	o.mu.Lock()
	o.resolutions = append(o.resolutions, source)
	o.mu.Unlock()
}

func ok(stdout string) executor.Outcome {
	return executor.Outcome{ExitCode: 0, Stdout: []byte(stdout)}
}

func newTestDispatcher(t *testing.T, exec *stubExecutor) (*Dispatcher, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	namer := &command.TempNamer{Dir: t.TempDir(), Prefix: "fiberpath", Now: func() time.Time { return time.UnixMilli(42) }}
	d := New(&stubLocator{path: "/opt/fiberpath"}, exec, WithObserver(obs), WithTempNamer(namer))
	return d, obs
}

func TestPlan_InsertsOutputWhenMissing(t *testing.T) {
	exec := &stubExecutor{outcome: ok(`{"commands": 12}`)}
	d, obs := newTestDispatcher(t, exec)

	res, err := d.Plan(context.Background(), command.PlanParams{Input: "part.wind"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}

	req := exec.last()
	if req.Command != "/opt/fiberpath" {
		t.Errorf("Command = %q", req.Command)
	}
	generated := req.Args[3]
	if got := res.Object()["output"]; got != generated {
		t.Errorf("payload output = %v, want generated %q", got, generated)
	}

	want, _ := response.Digest(res.Payload)
	if res.Digest != want {
		t.Error("digest should cover the inserted output field")
	}
	if obs.outcomes["plan"] != OutcomeOK {
		t.Errorf("observer outcome = %q", obs.outcomes["plan"])
	}
	if !reflect.DeepEqual(obs.resolutions, []string{"bundled"}) {
		t.Errorf("resolutions = %v", obs.resolutions)
	}
}

func TestPlan_KeepsToolOutputField(t *testing.T) {
	exec := &stubExecutor{outcome: ok(`{"commands": 1, "output": "/elsewhere/x.gcode"}`)}
	d, _ := newTestDispatcher(t, exec)

	res, err := d.Plan(context.Background(), command.PlanParams{Input: "a.wind", Output: "/work/x.gcode"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if got := res.Object()["output"]; got != "/elsewhere/x.gcode" {
		t.Errorf("output = %v, tool value should be kept", got)
	}
}

func TestPlan_UnexpectedShapeStillSucceeds(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		trace  string
	}{
		{name: "no commands", stdout: `{"layers": []}`},
		{name: "fractional commands", stdout: `{"commands": 1.5}`, trace: "violates schema"},
		{name: "digest fails", stdout: `{"commands": 1, "x": 1e400}`, trace: "canonicalize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &stubExecutor{outcome: ok(tt.stdout)}
			var buf bytes.Buffer
			namer := &command.TempNamer{Dir: t.TempDir(), Prefix: "fiberpath", Now: func() time.Time { return time.UnixMilli(42) }}
			d := New(&stubLocator{path: "/opt/fiberpath"}, exec,
				WithTempNamer(namer), WithTracer(clog.TestLogger(&buf)))

			res, err := d.Plan(context.Background(), command.PlanParams{Input: "part.wind"})
			if err != nil {
				t.Fatalf("Plan() error = %v", err)
			}
			if got := res.Object()["output"]; got != exec.last().Args[3] {
				t.Errorf("payload output = %v, want generated %q", got, exec.last().Args[3])
			}
			if tt.trace != "" && !strings.Contains(buf.String(), tt.trace) {
				t.Errorf("trace missing %q:\n%s", tt.trace, buf.String())
			}
			if tt.trace == "canonicalize" && res.Digest != "" {
				t.Errorf("Digest = %q, want empty", res.Digest)
			}
		})
	}
}

func TestPlan_SummaryDecodes(t *testing.T) {
	exec := &stubExecutor{outcome: ok(`{"commands": 7, "timeSeconds": 12.5, "towMeters": 3.25, "layers": [{"index": 1}]}`)}
	d, _ := newTestDispatcher(t, exec)

	res, err := d.Plan(context.Background(), command.PlanParams{Input: "a.wind", Output: "/w/o.gcode"})
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	s, err := DecodePlan(res)
	if err != nil {
		t.Fatalf("DecodePlan() error = %v", err)
	}
	if s.Commands != 7 || s.Output != "/w/o.gcode" || s.TimeSeconds != 12.5 || len(s.Layers) != 1 {
		t.Errorf("summary = %+v", s)
	}
}

func TestPlan_InvalidParams(t *testing.T) {
	exec := &stubExecutor{}
	d, obs := newTestDispatcher(t, exec)

	_, err := d.Plan(context.Background(), command.PlanParams{})
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("Plan() error = %v, want ErrInvalidParams", err)
	}
	if len(exec.requests) != 0 {
		t.Error("no process should be spawned for invalid params")
	}
	if obs.outcomes["plan"] != KindInvalid {
		t.Errorf("observer outcome = %q, want %q", obs.outcomes["plan"], KindInvalid)
	}
}

func TestSimulate(t *testing.T) {
	exec := &stubExecutor{outcome: ok(`{"commands_executed": 10, "moves": 9, "estimated_time_s": 1.5}`)}
	d, _ := newTestDispatcher(t, exec)

	res, err := d.Simulate(context.Background(), command.SimulateParams{Path: "a.gcode"})
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if !reflect.DeepEqual(exec.last().Args, []string{"simulate", "a.gcode", "--json"}) {
		t.Errorf("Args = %v", exec.last().Args)
	}
	s, err := DecodeSimulation(res)
	if err != nil || s.Moves != 9 || s.EstimatedTimeS != 1.5 {
		t.Errorf("DecodeSimulation() = %+v, %v", s, err)
	}
}

func TestPreview(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n'}
	exec := &stubExecutor{outcome: ok(""), artifact: png}
	d, _ := newTestDispatcher(t, exec)

	pv, err := d.Preview(context.Background(), command.PreviewParams{Path: "a.gcode", Scale: 0.8})
	if err != nil {
		t.Fatalf("Preview() error = %v", err)
	}
	if filepath.Base(pv.Path) != "fiberpath-42.png" {
		t.Errorf("Path = %q", pv.Path)
	}
	decoded, err := base64.StdEncoding.DecodeString(pv.ImageBase64)
	if err != nil || !reflect.DeepEqual(decoded, png) {
		t.Errorf("ImageBase64 does not decode to the artifact: %v", err)
	}
	if got := exec.last().Args[5]; got != "0.8" {
		t.Errorf("--scale value = %q", got)
	}
}

func TestPreview_MissingArtifact(t *testing.T) {
	exec := &stubExecutor{outcome: ok("")}
	d, obs := newTestDispatcher(t, exec)

	_, err := d.Preview(context.Background(), command.PreviewParams{Path: "a.gcode", Scale: 1})
	var artErr *response.ArtifactReadError
	if !errors.As(err, &artErr) {
		t.Fatalf("Preview() error = %v, want *ArtifactReadError", err)
	}
	if Kind(err) != KindArtifact || obs.outcomes["preview"] != KindArtifact {
		t.Errorf("Kind = %q, observed %q", Kind(err), obs.outcomes["preview"])
	}
}

func TestStream_DryRunIgnoresPort(t *testing.T) {
	exec := &stubExecutor{outcome: ok(`{"status": "dry-run", "commands": 3, "total": 3, "baudRate": 115200, "dryRun": true}`)}
	d, _ := newTestDispatcher(t, exec)

	res, err := d.Stream(context.Background(), command.StreamParams{Path: "a.gcode", Port: "COM3", BaudRate: 115200, DryRun: true})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	for _, a := range exec.last().Args {
		if a == "--port" || a == "COM3" {
			t.Errorf("dry run args leaked port: %v", exec.last().Args)
		}
	}
	s, err := DecodeStream(res)
	if err != nil || !s.DryRun || s.BaudRate != 115200 {
		t.Errorf("DecodeStream() = %+v, %v", s, err)
	}
}

func TestValidateAndVersion(t *testing.T) {
	exec := &stubExecutor{outcome: ok("Wind definition is valid.\n")}
	d, _ := newTestDispatcher(t, exec)

	v, err := d.Validate(context.Background(), command.ValidateParams{Path: "a.wind"})
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if v.Status != "ok" || v.Message != "Wind definition is valid." {
		t.Errorf("Validate() = %+v", v)
	}

	exec.outcome = ok("fiberpath 0.5.2\n")
	ver, err := d.Version(context.Background())
	if err != nil || ver.Version != "fiberpath 0.5.2" {
		t.Errorf("Version() = %+v, %v", ver, err)
	}
}

func TestErrorsPropagateWithKind(t *testing.T) {
	tests := []struct {
		name    string
		locErr  error
		outcome executor.Outcome
		execErr error
		want    string
	}{
		{name: "resolution", locErr: &resolve.ResolutionError{Program: "fiberpath"}, want: KindResolution},
		{name: "launch", execErr: &executor.LaunchError{Command: "/opt/fiberpath", Err: os.ErrPermission}, want: KindLaunch},
		{name: "interrupted", execErr: &executor.InterruptedError{Command: "x", Err: context.Canceled}, want: KindInterrupt},
		{name: "process", outcome: executor.Outcome{ExitCode: 1, Stderr: []byte("bad file")}, want: KindProcess},
		{name: "parse", outcome: ok("not json"), want: KindParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &stubExecutor{outcome: tt.outcome, err: tt.execErr}
			d := New(&stubLocator{path: "/opt/fiberpath", err: tt.locErr}, exec)

			_, err := d.Simulate(context.Background(), command.SimulateParams{Path: "a.gcode"})
			if err == nil {
				t.Fatal("Simulate() should fail")
			}
			if got := Kind(err); got != tt.want {
				t.Errorf("Kind() = %q, want %q (%v)", got, tt.want, err)
			}
		})
	}
}

func TestKind(t *testing.T) {
	if Kind(nil) != "" {
		t.Error("Kind(nil) should be empty")
	}
	if Kind(errors.New("boom")) != KindInternal {
		t.Error("unknown errors should be internal")
	}
	wrapped := errors.Join(errors.New("context"), &response.ParseError{Err: errors.New("x")})
	if Kind(wrapped) != KindParse {
		t.Errorf("Kind(wrapped) = %q", Kind(wrapped))
	}
}

func TestResolvesOnEveryCall(t *testing.T) {
	loc := &stubLocator{path: "/opt/fiberpath"}
	d := New(loc, &stubExecutor{outcome: ok("{}")})

	for i := 0; i < 3; i++ {
		if _, err := d.Simulate(context.Background(), command.SimulateParams{Path: "a.gcode"}); err != nil {
			t.Fatalf("Simulate() error = %v", err)
		}
	}
	if loc.calls != 3 {
		t.Errorf("Resolve() called %d times, want 3", loc.calls)
	}
}

// blockingExecutor holds every call until released.
type blockingExecutor struct {
	started chan string
	release chan struct{}
}

func (e *blockingExecutor) Execute(_ context.Context, req executor.Request) (executor.Outcome, error) {
	e.started <- req.Args[1]
	<-e.release
	return ok("{}"), nil
}

func TestConcurrentOperationsDoNotSerialize(t *testing.T) {
	exec := &blockingExecutor{started: make(chan string, 2), release: make(chan struct{})}
	d := New(&stubLocator{path: "/opt/fiberpath"}, exec)

	var wg sync.WaitGroup
	for _, p := range []string{"a.gcode", "b.gcode"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			_, _ = d.Simulate(context.Background(), command.SimulateParams{Path: p})
		}(p)
	}

	// Both children must be running at the same time.
	for i := 0; i < 2; i++ {
		select {
		case <-exec.started:
		case <-time.After(2 * time.Second):
			t.Fatal("second operation blocked behind the first")
		}
	}
	close(exec.release)
	wg.Wait()
}

func TestDiagnose(t *testing.T) {
	exec := &stubExecutor{outcome: ok("fiberpath 0.5.2")}
	d, _ := newTestDispatcher(t, exec)

	diag := d.Diagnose(context.Background())
	if !diag.Healthy || diag.Version != "fiberpath 0.5.2" || diag.Path != "/opt/fiberpath" {
		t.Errorf("Diagnose() = %+v", diag)
	}
	if len(diag.Candidates) != 1 {
		t.Errorf("Candidates = %v", diag.Candidates)
	}
}

func TestDiagnose_NotInstalled(t *testing.T) {
	resErr := &resolve.ResolutionError{
		Program:  "fiberpath",
		Attempts: []resolve.Attempt{{Path: "/res/bundled-cli/fiberpath", Outcome: resolve.OutcomeMissing}},
	}
	exec := &stubExecutor{}
	d := New(&stubLocator{err: resErr}, exec)

	diag := d.Diagnose(context.Background())
	if diag.Healthy {
		t.Error("Healthy should be false")
	}
	if diag.ErrorKind != KindResolution || !strings.Contains(diag.Error, "pip install fiberpath") {
		t.Errorf("Diagnose() = %+v", diag)
	}
	if len(diag.Attempts) != 1 {
		t.Errorf("Attempts = %v", diag.Attempts)
	}
	if len(exec.requests) != 0 {
		t.Error("version should not be probed without an executable")
	}
}

func TestDiagnose_VersionFails(t *testing.T) {
	exec := &stubExecutor{outcome: executor.Outcome{ExitCode: 2, Stderr: []byte("No such option: --version")}}
	d, _ := newTestDispatcher(t, exec)

	diag := d.Diagnose(context.Background())
	if diag.Healthy || diag.ErrorKind != KindProcess || diag.Path == "" {
		t.Errorf("Diagnose() = %+v", diag)
	}
}
