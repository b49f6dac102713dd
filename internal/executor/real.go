package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/fiberpath/bridge/internal/clog"
)

// RealExecutor executes commands using os/exec.
type RealExecutor struct {
	tracer clog.Tracer
}

// Option configures a RealExecutor.
type Option func(*RealExecutor)

// WithTracer sets the tracer that receives spawn and exit events.
func WithTracer(t clog.Tracer) Option {
	return func(e *RealExecutor) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewRealExecutor creates a new RealExecutor.
func NewRealExecutor(opts ...Option) *RealExecutor {
	e := &RealExecutor{tracer: clog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Completion is delivered by Go once the child has exited.
type Completion struct {
	Outcome Outcome
	Err     error
}

// Go starts the command on its own goroutine and returns a channel that
// receives exactly one Completion. Nothing else is blocked while the child
// runs, so many operations can be in flight at once.
func (e *RealExecutor) Go(ctx context.Context, req Request) <-chan Completion {
	done := make(chan Completion, 1)
	go func() {
		outcome, err := e.run(ctx, req)
		done <- Completion{Outcome: outcome, Err: err}
	}()
	return done
}

// Execute runs a command and waits for it on the calling goroutine only.
// A non-zero exit is not an error: it is reported through Outcome.ExitCode.
func (e *RealExecutor) Execute(ctx context.Context, req Request) (Outcome, error) {
	c := <-e.Go(ctx, req)
	return c.Outcome, c.Err
}

func (e *RealExecutor) run(ctx context.Context, req Request) (Outcome, error) {
	cmd := exec.CommandContext(ctx, req.Command, req.Args...)

	if req.Workdir != "" {
		cmd.Dir = req.Workdir
	}

	if len(req.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range req.Env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	hideConsole(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	e.tracer.Debug("spawning %s", req)
	start := time.Now()

	if err := cmd.Start(); err != nil {
		e.tracer.Error("failed to launch %s: %v", req.Command, err)
		return Outcome{}, &LaunchError{Command: req.Command, Args: req.Args, Err: err}
	}

	err := cmd.Wait()
	outcome := Outcome{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			outcome.ExitCode = -1
			e.tracer.Warn("%s interrupted after %s: %v", req.Command, outcome.Duration, ctxErr)
			return outcome, &InterruptedError{Command: req.Command, Err: ctxErr}
		}

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.ExitCode = exitErr.ExitCode()
			e.tracer.Info("%s exited with status %d after %s", req.Command, outcome.ExitCode, outcome.Duration)
			return outcome, nil
		}

		// Output copy failures and similar; the process did run.
		outcome.ExitCode = -1
		return outcome, fmt.Errorf("wait for %s: %w", req.Command, err)
	}

	e.tracer.Info("%s exited with status 0 after %s", req.Command, outcome.Duration)
	return outcome, nil
}
