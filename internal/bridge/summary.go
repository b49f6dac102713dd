package bridge

import (
	"encoding/json"
	"fmt"

	"github.com/fiberpath/bridge/internal/response"
)

// PlanSummary is the typed form of a plan payload.
type PlanSummary struct {
	Output      string           `json:"output"`
	Commands    int              `json:"commands"`
	TimeSeconds float64          `json:"timeSeconds,omitempty"`
	TowMeters   float64          `json:"towMeters,omitempty"`
	Layers      []map[string]any `json:"layers,omitempty"`
	Metadata    map[string]any   `json:"metadata,omitempty"`
}

// SimulationSummary is the typed form of a simulate payload.
type SimulationSummary struct {
	CommandsExecuted    int     `json:"commands_executed"`
	Moves               int     `json:"moves"`
	EstimatedTimeS      float64 `json:"estimated_time_s"`
	TotalDistanceMM     float64 `json:"total_distance_mm"`
	AverageFeedRateMMPM float64 `json:"average_feed_rate_mmpm"`
	TowLengthMM         float64 `json:"tow_length_mm"`
}

// StreamSummary is the typed form of a stream payload.
type StreamSummary struct {
	Status   string `json:"status"`
	Commands int    `json:"commands"`
	Total    int    `json:"total"`
	BaudRate uint32 `json:"baudRate"`
	DryRun   bool   `json:"dryRun"`
}

// DecodePlan converts a plan result.
func DecodePlan(r response.Result) (PlanSummary, error) {
	var s PlanSummary
	return s, decodeInto(r, &s)
}

// DecodeSimulation converts a simulate result.
func DecodeSimulation(r response.Result) (SimulationSummary, error) {
	var s SimulationSummary
	return s, decodeInto(r, &s)
}

// DecodeStream converts a stream result.
func DecodeStream(r response.Result) (StreamSummary, error) {
	var s StreamSummary
	return s, decodeInto(r, &s)
}

func decodeInto(r response.Result, dst any) error {
	raw, err := json.Marshal(r.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %T: %w", dst, err)
	}
	return nil
}
