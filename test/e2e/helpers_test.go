//go:build e2e && !windows

package e2e

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/fiberpath/bridge/internal/ipc"
	"github.com/fiberpath/bridge/internal/testutil"
)

// env is an isolated home for one bridge: XDG dirs, a resource root holding
// the fake CLI, and a work directory for inputs and artifacts.
type env struct {
	base string
	root string
	work string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	base := testutil.ShortTempDir(t)
	e := &env{
		base: base,
		root: filepath.Join(base, "res"),
		work: filepath.Join(base, "work"),
	}
	for _, dir := range []string{e.work, filepath.Join(base, "tmp")} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			t.Fatalf("MkdirAll() error = %v", err)
		}
	}
	testutil.WriteFakeCLI(t, e.root)

	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	cfgDir := filepath.Join(base, "config", "fiberpath-bridge")
	if err := os.MkdirAll(cfgDir, 0o700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	cfg := "resources:\n  root: " + e.root + "\n" +
		"temp:\n  dir: " + filepath.Join(base, "tmp") + "\n" +
		"server:\n  socket: " + e.socket() + "\n  http_listen: 127.0.0.1:0\n" +
		"log:\n  file: " + filepath.Join(base, "state", "bridge.log") + "\n"
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(cfg), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return e
}

func (e *env) socket() string {
	return filepath.Join(e.base, "b.sock")
}

// input creates a file in the work directory and returns its path.
func (e *env) input(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.work, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

// result is a finished bridge invocation.
type result struct {
	stdout string
	stderr string
	code   int
}

// bridge runs the binary to completion.
func (e *env) bridge(t *testing.T, args ...string) result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, bridgeBin, args...)
	cmd.Dir = e.work
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := result{stdout: stdout.String(), stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		res.code = exitErr.ExitCode()
	case err != nil:
		t.Fatalf("run %v: %v", args, err)
	}
	return res
}

// serve starts the bridge server in the background and waits until its
// state file names the bound HTTP address. The server is stopped when the
// test ends.
func (e *env) serve(t *testing.T) *ipc.State {
	t.Helper()
	cmd := exec.Command(bridgeBin, "serve")
	cmd.Dir = e.work
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start serve: %v", err)
	}
	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	t.Cleanup(func() {
		_ = cmd.Process.Signal(syscall.SIGTERM)
		select {
		case <-exited:
		case <-time.After(10 * time.Second):
			_ = cmd.Process.Kill()
			t.Errorf("serve did not exit after SIGTERM")
		}
	})

	statePath, err := ipc.DefaultStatePath()
	if err != nil {
		t.Fatalf("DefaultStatePath() error = %v", err)
	}
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if state, err := ipc.LoadState(statePath); err == nil && state != nil && state.HTTPAddr != "" {
			return state
		}
		select {
		case err := <-exited:
			t.Fatalf("serve exited early: %v\n%s", err, stderr.String())
		case <-time.After(50 * time.Millisecond):
		}
	}
	t.Fatalf("serve never wrote its state\n%s", stderr.String())
	return nil
}
