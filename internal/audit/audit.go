// Package audit keeps a journal of fiberpath invocations.
// Entries follow a key=value format suitable for parsing and analysis.
package audit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fiberpath/bridge/internal/executor"
)

// EventType represents the type of invocation event.
type EventType string

const (
	EventStart    EventType = "START"
	EventComplete EventType = "COMPLETE"
	EventFail     EventType = "FAIL"
)

// Event is one journal entry.
type Event struct {
	Timestamp time.Time
	Type      EventType

	// Op is the fiberpath subcommand, or the first flag when there is none.
	Op string

	// Cmd is the full invocation.
	Cmd string

	// ExitCode is the child's status (COMPLETE events).
	ExitCode int

	// Duration is the run time (COMPLETE and FAIL events).
	Duration time.Duration

	// Reason describes why the run failed (FAIL events).
	Reason string
}

// Format returns the entry as a single line.
// Format: 2024-01-15T14:32:05Z FIBERPATH COMPLETE op=plan cmd="..." exit=0 duration=1.2s
func (e *Event) Format() string {
	var b strings.Builder

	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339))
	b.WriteString(" FIBERPATH ")
	b.WriteString(string(e.Type))

	b.WriteString(" op=")
	b.WriteString(e.Op)
	b.WriteString(" cmd=")
	b.WriteString(quoteValue(e.Cmd))

	switch e.Type {
	case EventComplete:
		b.WriteString(" exit=")
		b.WriteString(strconv.Itoa(e.ExitCode))
		b.WriteString(" duration=")
		b.WriteString(formatDuration(e.Duration))
	case EventFail:
		b.WriteString(" duration=")
		b.WriteString(formatDuration(e.Duration))
		writeOptionalField(&b, "reason", e.Reason)
	}

	return b.String()
}

// writeOptionalField appends " key=quoted_value" to the builder if value is non-empty.
func writeOptionalField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(quoteValue(value))
}

// quoteValue returns a quoted string value.
// Values are always quoted so paths with spaces stay one field.
func quoteValue(s string) string {
	return fmt.Sprintf("%q", s)
}

// formatDuration formats a duration as a human-readable string (e.g., "2.3s", "1m30s").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// Logger writes events to an io.Writer.
type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewLogger creates a new audit logger that writes to the given writer.
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w, now: time.Now}
}

// Log writes an event to the journal.
func (l *Logger) Log(e *Event) error {
	if l == nil || l.w == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := l.w.Write([]byte(e.Format() + "\n")); err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// LogStart logs a START event.
func (l *Logger) LogStart(req executor.Request) error {
	return l.Log(&Event{Timestamp: l.clock(), Type: EventStart, Op: opOf(req), Cmd: req.String()})
}

// LogComplete logs a COMPLETE event.
func (l *Logger) LogComplete(req executor.Request, out executor.Outcome) error {
	return l.Log(&Event{
		Timestamp: l.clock(),
		Type:      EventComplete,
		Op:        opOf(req),
		Cmd:       req.String(),
		ExitCode:  out.ExitCode,
		Duration:  out.Duration,
	})
}

// LogFail logs a FAIL event for a run that could not start or was interrupted.
func (l *Logger) LogFail(req executor.Request, d time.Duration, cause error) error {
	return l.Log(&Event{
		Timestamp: l.clock(),
		Type:      EventFail,
		Op:        opOf(req),
		Cmd:       req.String(),
		Duration:  d,
		Reason:    failReason(cause),
	})
}

func (l *Logger) clock() time.Time {
	if l == nil || l.now == nil {
		return time.Now()
	}
	return l.now()
}

func opOf(req executor.Request) string {
	if len(req.Args) == 0 {
		return "-"
	}
	return req.Args[0]
}

// failReason names the failure class, then the cause.
func failReason(err error) string {
	var launchErr *executor.LaunchError
	var intErr *executor.InterruptedError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &launchErr):
		return "launch: " + launchErr.Err.Error()
	case errors.As(err, &intErr):
		return "interrupted: " + intErr.Err.Error()
	default:
		return err.Error()
	}
}

// Executor journals every run of the wrapped executor.
type Executor struct {
	next executor.Executor
	log  *Logger
}

// WrapExecutor returns next with journaling. A nil logger returns next as is.
func WrapExecutor(next executor.Executor, l *Logger) executor.Executor {
	if l == nil {
		return next
	}
	return &Executor{next: next, log: l}
}

// Execute logs START, runs the request, then logs COMPLETE or FAIL.
// Journal write failures never fail the run.
func (e *Executor) Execute(ctx context.Context, req executor.Request) (executor.Outcome, error) {
	_ = e.log.LogStart(req)
	start := time.Now()

	out, err := e.next.Execute(ctx, req)
	if err != nil {
		_ = e.log.LogFail(req, time.Since(start), err)
		return out, err
	}
	_ = e.log.LogComplete(req, out)
	return out, nil
}
