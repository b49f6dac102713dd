// Package metrics records per-operation counts and latencies.
//
// Prometheus collectors are registered on a private registry so several
// Recorders can coexist in one process (tests, multiple servers). Latency
// quantiles for the stats operation come from a t-digest per operation,
// which keeps memory bounded no matter how many operations run.
package metrics

import (
	"sort"
	"sync"
	"time"

	"github.com/influxdata/tdigest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Outcome label values. Failures use the error kind instead.
const (
	OutcomeOK = "ok"
)

// Recorder collects operation metrics.
type Recorder struct {
	registry *prometheus.Registry

	operations  *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	inFlight    *prometheus.GaugeVec
	resolutions *prometheus.CounterVec

	mu      sync.Mutex
	digests map[string]*tdigest.TDigest
	counts  map[string]*opCounts
	started time.Time
}

type opCounts struct {
	total  uint64
	failed uint64
}

// NewRecorder creates a Recorder with its own registry, including the Go
// runtime and process collectors.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiberpath_bridge_operations_total",
				Help: "Operations completed, by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fiberpath_bridge_operation_duration_seconds",
				Help:    "Wall time from dispatch to interpreted result",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300},
			},
			[]string{"operation"},
		),
		inFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fiberpath_bridge_operations_in_flight",
				Help: "Operations currently waiting on the CLI",
			},
			[]string{"operation"},
		),
		resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fiberpath_bridge_resolutions_total",
				Help: "Executable resolutions, by source (bundled, search-path, failed)",
			},
			[]string{"source"},
		),
		digests: make(map[string]*tdigest.TDigest),
		counts:  make(map[string]*opCounts),
		started: time.Now(),
	}

	r.registry.MustRegister(
		r.operations,
		r.duration,
		r.inFlight,
		r.resolutions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry returns the registry backing the /metrics endpoint.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Begin marks an operation as in flight and returns a func that undoes it.
func (r *Recorder) Begin(op string) func() {
	g := r.inFlight.WithLabelValues(op)
	g.Inc()
	return g.Dec
}

// Observe records one finished operation. outcome is OutcomeOK or an error kind.
func (r *Recorder) Observe(op, outcome string, d time.Duration) {
	r.operations.WithLabelValues(op, outcome).Inc()
	r.duration.WithLabelValues(op).Observe(d.Seconds())

	r.mu.Lock()
	defer r.mu.Unlock()

	td, ok := r.digests[op]
	if !ok {
		td = tdigest.NewWithCompression(100)
		r.digests[op] = td
	}
	td.Add(float64(d)/float64(time.Millisecond), 1)

	c, ok := r.counts[op]
	if !ok {
		c = &opCounts{}
		r.counts[op] = c
	}
	c.total++
	if outcome != OutcomeOK {
		c.failed++
	}
}

// ObserveResolution records where the executable was found.
func (r *Recorder) ObserveResolution(source string) {
	r.resolutions.WithLabelValues(source).Inc()
}

// OpStats summarizes one operation's history. Latencies are milliseconds.
type OpStats struct {
	Operation string  `json:"operation"`
	Count     uint64  `json:"count"`
	Failed    uint64  `json:"failed"`
	P50       float64 `json:"p50_ms"`
	P95       float64 `json:"p95_ms"`
	P99       float64 `json:"p99_ms"`
}

// Snapshot is the payload of the stats operation.
type Snapshot struct {
	UptimeSeconds float64   `json:"uptime_seconds"`
	Operations    []OpStats `json:"operations"`
}

// Stats returns per-operation counts and latency quantiles, sorted by
// operation name.
func (r *Recorder) Stats() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(r.started).Seconds(),
		Operations:    make([]OpStats, 0, len(r.counts)),
	}
	for op, c := range r.counts {
		td := r.digests[op]
		snap.Operations = append(snap.Operations, OpStats{
			Operation: op,
			Count:     c.total,
			Failed:    c.failed,
			P50:       td.Quantile(0.50),
			P95:       td.Quantile(0.95),
			P99:       td.Quantile(0.99),
		})
	}
	sort.Slice(snap.Operations, func(i, j int) bool {
		return snap.Operations[i].Operation < snap.Operations[j].Operation
	})
	return snap
}
