package ipc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/fiberpath/bridge/internal/bridge"
	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/command"
	"github.com/fiberpath/bridge/internal/metrics"
	"github.com/fiberpath/bridge/internal/response"
)

// Service is the set of operations the handler exposes.
// *bridge.Dispatcher implements it.
type Service interface {
	Plan(ctx context.Context, p command.PlanParams) (response.Result, error)
	Simulate(ctx context.Context, p command.SimulateParams) (response.Result, error)
	Preview(ctx context.Context, p command.PreviewParams) (bridge.Preview, error)
	Stream(ctx context.Context, p command.StreamParams) (response.Result, error)
	Validate(ctx context.Context, p command.ValidateParams) (bridge.Validation, error)
	Version(ctx context.Context) (bridge.VersionInfo, error)
	Diagnose(ctx context.Context) bridge.Diagnostics
}

// StatsSource supplies the stats operation. *metrics.Recorder implements it.
type StatsSource interface {
	Stats() metrics.Snapshot
}

// Defaults fill parameters the GUI omits.
type Defaults struct {
	BaudRate   uint32
	Scale      float64
	AxisFormat string
}

// Handler decodes requests and calls the Service.
type Handler struct {
	svc      Service
	stats    StatsSource
	defaults Defaults
	log      clog.Tracer
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithStats enables the stats operation.
func WithStats(s StatsSource) HandlerOption {
	return func(h *Handler) {
		h.stats = s
	}
}

// WithDefaults sets the parameter defaults.
func WithDefaults(d Defaults) HandlerOption {
	return func(h *Handler) {
		h.defaults = d
	}
}

// WithLogger sets the request logger.
func WithLogger(l clog.Tracer) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// NewHandler creates a Handler for svc.
func NewHandler(svc Service, opts ...HandlerOption) *Handler {
	h := &Handler{
		svc:      svc,
		defaults: Defaults{BaudRate: 250000, Scale: 1},
		log:      clog.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle runs one request. It never fails: errors are carried in the
// Response.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	h.log.Debug("request %s: %s", req.ID, req.Op)

	result, digest, err := h.dispatch(ctx, req)
	if err != nil {
		kind := bridge.Kind(err)
		h.log.Warn("request %s (%s) failed: %s", req.ID, req.Op, kind)
		return Response{ID: req.ID, Error: &ErrorBody{Kind: kind, Message: err.Error()}}
	}
	return Response{ID: req.ID, OK: true, Result: result, Digest: digest}
}

// HandleRaw decodes a request line and handles it. A line that is not a
// request envelope gets a response with an empty ID.
func (h *Handler) HandleRaw(ctx context.Context, data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Response{Error: &ErrorBody{Kind: bridge.KindInvalid, Message: "invalid JSON: " + err.Error()}}
	}
	return h.Handle(ctx, req)
}

func (h *Handler) dispatch(ctx context.Context, req Request) (any, string, error) {
	switch req.Op {
	case OpPlan:
		var p PlanParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, "", err
		}
		if p.AxisFormat == "" {
			p.AxisFormat = h.defaults.AxisFormat
		}
		res, err := h.svc.Plan(ctx, command.PlanParams{Input: p.InputPath, Output: p.OutputPath, AxisFormat: p.AxisFormat})
		return res.Payload, res.Digest, err

	case OpSimulate:
		var p SimulateParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, "", err
		}
		res, err := h.svc.Simulate(ctx, command.SimulateParams{Path: p.GcodePath})
		return res.Payload, res.Digest, err

	case OpPreview:
		var p PreviewParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, "", err
		}
		scale := h.defaults.Scale
		if p.Scale != nil {
			scale = *p.Scale
		}
		pv, err := h.svc.Preview(ctx, command.PreviewParams{Path: p.GcodePath, Scale: scale})
		return pv, "", err

	case OpStream:
		var p StreamParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, "", err
		}
		baud := h.defaults.BaudRate
		if p.BaudRate != nil {
			baud = *p.BaudRate
		}
		res, err := h.svc.Stream(ctx, command.StreamParams{Path: p.GcodePath, Port: p.Port, BaudRate: baud, DryRun: p.DryRun})
		return res.Payload, res.Digest, err

	case OpValidate:
		var p ValidateParams
		if err := decodeParams(req.Params, &p); err != nil {
			return nil, "", err
		}
		v, err := h.svc.Validate(ctx, command.ValidateParams{Path: p.InputPath})
		return v, "", err

	case OpVersion:
		v, err := h.svc.Version(ctx)
		return v, "", err

	case OpDiagnose:
		return h.svc.Diagnose(ctx), "", nil

	case OpStats:
		if h.stats == nil {
			return nil, "", fmt.Errorf("%w: stats are not enabled", bridge.ErrInvalidParams)
		}
		return h.stats.Stats(), "", nil

	default:
		return nil, "", fmt.Errorf("%w %q: %w", ErrUnknownOp, req.Op, bridge.ErrInvalidParams)
	}
}

// decodeParams strictly decodes params into dst. Absent params decode as
// the zero value.
func decodeParams(raw json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", bridge.ErrInvalidParams, err)
	}
	return nil
}
