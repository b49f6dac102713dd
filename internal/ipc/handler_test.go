package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/fiberpath/bridge/internal/bridge"
	"github.com/fiberpath/bridge/internal/command"
	"github.com/fiberpath/bridge/internal/metrics"
	"github.com/fiberpath/bridge/internal/response"
)

// stubService records the params each operation receives.
type stubService struct {
	mu       sync.Mutex
	plan     command.PlanParams
	preview  command.PreviewParams
	stream   command.StreamParams
	simulate command.SimulateParams
	validate command.ValidateParams
	err      error
}

func (s *stubService) Plan(_ context.Context, p command.PlanParams) (response.Result, error) {
	s.mu.Lock()
	s.plan = p
	s.mu.Unlock()
	if s.err != nil {
		return response.Result{}, s.err
	}
	return response.Result{Payload: map[string]any{"output": "/tmp/x.gcode", "commands": 3}, Digest: "abc"}, nil
}

func (s *stubService) Simulate(_ context.Context, p command.SimulateParams) (response.Result, error) {
	s.mu.Lock()
	s.simulate = p
	s.mu.Unlock()
	return response.Result{Payload: map[string]any{"moves": 1}}, s.err
}

func (s *stubService) Preview(_ context.Context, p command.PreviewParams) (bridge.Preview, error) {
	s.mu.Lock()
	s.preview = p
	s.mu.Unlock()
	return bridge.Preview{Path: "/tmp/p.png", ImageBase64: "iVBO"}, s.err
}

func (s *stubService) Stream(_ context.Context, p command.StreamParams) (response.Result, error) {
	s.mu.Lock()
	s.stream = p
	s.mu.Unlock()
	return response.Result{Payload: map[string]any{"status": "ok"}}, s.err
}

func (s *stubService) Validate(_ context.Context, p command.ValidateParams) (bridge.Validation, error) {
	s.mu.Lock()
	s.validate = p
	s.mu.Unlock()
	return bridge.Validation{Status: "ok", Message: "valid"}, s.err
}

func (s *stubService) Version(context.Context) (bridge.VersionInfo, error) {
	return bridge.VersionInfo{Version: "fiberpath 0.5.2"}, s.err
}

func (s *stubService) Diagnose(context.Context) bridge.Diagnostics {
	return bridge.Diagnostics{Healthy: true, Path: "/opt/fiberpath"}
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestHandle_Plan(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, WithDefaults(Defaults{BaudRate: 250000, Scale: 1, AxisFormat: "xab"}))

	resp := h.Handle(context.Background(), Request{ID: "1", Op: OpPlan, Params: raw(`{"inputPath": "a.wind"}`)})
	if !resp.OK || resp.ID != "1" {
		t.Fatalf("Handle() = %+v", resp)
	}
	if resp.Digest != "abc" {
		t.Errorf("Digest = %q", resp.Digest)
	}
	want := command.PlanParams{Input: "a.wind", AxisFormat: "xab"}
	if svc.plan != want {
		t.Errorf("plan params = %+v, want %+v", svc.plan, want)
	}
}

func TestHandle_DefaultsOnlyFillOmitted(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc, WithDefaults(Defaults{BaudRate: 250000, Scale: 2}))

	h.Handle(context.Background(), Request{Op: OpPreview, Params: raw(`{"gcodePath": "a.gcode"}`)})
	if svc.preview.Scale != 2 {
		t.Errorf("omitted scale = %v, want default 2", svc.preview.Scale)
	}
	h.Handle(context.Background(), Request{Op: OpPreview, Params: raw(`{"gcodePath": "a.gcode", "scale": 0.5}`)})
	if svc.preview.Scale != 0.5 {
		t.Errorf("explicit scale = %v, want 0.5", svc.preview.Scale)
	}

	h.Handle(context.Background(), Request{Op: OpStream, Params: raw(`{"gcodePath": "a.gcode", "port": "COM3", "dryRun": true}`)})
	want := command.StreamParams{Path: "a.gcode", Port: "COM3", BaudRate: 250000, DryRun: true}
	if svc.stream != want {
		t.Errorf("stream params = %+v, want %+v", svc.stream, want)
	}
	h.Handle(context.Background(), Request{Op: OpStream, Params: raw(`{"gcodePath": "a.gcode", "baudRate": 115200}`)})
	if svc.stream.BaudRate != 115200 {
		t.Errorf("explicit baud = %d", svc.stream.BaudRate)
	}
}

func TestHandle_OtherOps(t *testing.T) {
	svc := &stubService{}
	h := NewHandler(svc)

	tests := []struct {
		op     string
		params string
		check  func(t *testing.T, result any)
	}{
		{OpSimulate, `{"gcodePath": "s.gcode"}`, func(t *testing.T, _ any) {
			if svc.simulate.Path != "s.gcode" {
				t.Errorf("simulate path = %q", svc.simulate.Path)
			}
		}},
		{OpValidate, `{"inputPath": "v.wind"}`, func(t *testing.T, r any) {
			if v, ok := r.(bridge.Validation); !ok || v.Status != "ok" || svc.validate.Path != "v.wind" {
				t.Errorf("validate result = %#v", r)
			}
		}},
		{OpVersion, ``, func(t *testing.T, r any) {
			if v, ok := r.(bridge.VersionInfo); !ok || v.Version != "fiberpath 0.5.2" {
				t.Errorf("version result = %#v", r)
			}
		}},
		{OpDiagnose, `null`, func(t *testing.T, r any) {
			if d, ok := r.(bridge.Diagnostics); !ok || !d.Healthy {
				t.Errorf("diagnose result = %#v", r)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.op, func(t *testing.T) {
			resp := h.Handle(context.Background(), Request{Op: tt.op, Params: raw(tt.params)})
			if !resp.OK {
				t.Fatalf("Handle() error = %+v", resp.Error)
			}
			tt.check(t, resp.Result)
		})
	}
}

func TestHandle_AssignsID(t *testing.T) {
	h := NewHandler(&stubService{})
	a := h.Handle(context.Background(), Request{Op: OpVersion})
	b := h.Handle(context.Background(), Request{Op: OpVersion})
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("generated IDs = %q, %q", a.ID, b.ID)
	}
}

func TestHandle_Errors(t *testing.T) {
	tests := []struct {
		name     string
		svcErr   error
		req      Request
		wantKind string
		wantMsg  string
	}{
		{
			name:     "unknown op",
			req:      Request{Op: "mill"},
			wantKind: bridge.KindInvalid,
			wantMsg:  `unknown operation "mill"`,
		},
		{
			name:     "unknown param",
			req:      Request{Op: OpSimulate, Params: raw(`{"path": "a"}`)},
			wantKind: bridge.KindInvalid,
			wantMsg:  "unknown field",
		},
		{
			name:     "wrong param type",
			req:      Request{Op: OpStream, Params: raw(`{"gcodePath": "a", "baudRate": "fast"}`)},
			wantKind: bridge.KindInvalid,
		},
		{
			name:     "service error",
			svcErr:   &response.ProcessError{ExitCode: 1, Stderr: "bad wind file"},
			req:      Request{Op: OpPlan, Params: raw(`{"inputPath": "a"}`)},
			wantKind: bridge.KindProcess,
			wantMsg:  "bad wind file",
		},
		{
			name:     "stats disabled",
			req:      Request{Op: OpStats},
			wantKind: bridge.KindInvalid,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(&stubService{err: tt.svcErr})
			resp := h.Handle(context.Background(), tt.req)
			if resp.OK || resp.Error == nil {
				t.Fatalf("Handle() = %+v, want error", resp)
			}
			if resp.Error.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", resp.Error.Kind, tt.wantKind)
			}
			if !strings.Contains(resp.Error.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want %q", resp.Error.Message, tt.wantMsg)
			}
			if resp.Result != nil {
				t.Errorf("Result = %#v, want nil on error", resp.Result)
			}
		})
	}
}

func TestHandle_Stats(t *testing.T) {
	rec := metrics.NewRecorder()
	rec.Observe("plan", metrics.OutcomeOK, 1)
	h := NewHandler(&stubService{}, WithStats(rec))

	resp := h.Handle(context.Background(), Request{Op: OpStats})
	snap, ok := resp.Result.(metrics.Snapshot)
	if !resp.OK || !ok || len(snap.Operations) != 1 {
		t.Errorf("stats = %+v", resp)
	}
}

func TestHandleRaw_InvalidJSON(t *testing.T) {
	h := NewHandler(&stubService{})
	resp := h.HandleRaw(context.Background(), []byte("{not json"))
	if resp.OK || resp.Error.Kind != bridge.KindInvalid || !strings.Contains(resp.Error.Message, "invalid JSON") {
		t.Errorf("HandleRaw() = %+v", resp)
	}
}

func TestErrUnknownOpWraps(t *testing.T) {
	h := NewHandler(&stubService{})
	_, _, err := h.dispatch(context.Background(), Request{Op: "x"})
	if !errors.Is(err, ErrUnknownOp) || !errors.Is(err, bridge.ErrInvalidParams) {
		t.Errorf("dispatch() error = %v", err)
	}
}
