package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/executor"
	"github.com/fiberpath/bridge/internal/term"
)

// fakeCLI answers fiberpath invocations by subcommand.
type fakeCLI struct {
	mu       sync.Mutex
	calls    [][]string
	outcomes map[string]executor.Outcome
	// image is written to the --output path of plot runs.
	image []byte
}

func newFakeCLI() *fakeCLI {
	return &fakeCLI{
		outcomes: map[string]executor.Outcome{
			"plan":      {Stdout: []byte(`{"commands": 12, "timeSeconds": 3.5, "towMeters": 1.25, "layers": []}`)},
			"simulate":  {Stdout: []byte(`{"commands_executed": 12, "moves": 10, "estimated_time_s": 3.5}`)},
			"plot":      {Stdout: []byte("Wrote preview\n")},
			"stream":    {Stdout: []byte(`{"status": "ok", "commands": 12, "total": 12, "baudRate": 250000, "dryRun": true}`)},
			"validate":  {Stdout: []byte("Wind definition is valid\n")},
			"--version": {Stdout: []byte("fiberpath 0.5.1\n")},
		},
		image: []byte("\x89PNG fake"),
	}
}

func (f *fakeCLI) Execute(_ context.Context, req executor.Request) (executor.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Args)

	if len(req.Args) == 0 {
		return executor.Outcome{}, errors.New("no arguments")
	}
	if req.Args[0] == "plot" {
		for i, a := range req.Args {
			if a == "--output" && i+1 < len(req.Args) {
				if err := os.WriteFile(req.Args[i+1], f.image, 0o600); err != nil {
					return executor.Outcome{}, err
				}
			}
		}
	}
	return f.outcomes[req.Args[0]], nil
}

func (f *fakeCLI) lastCall() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

// testEnv isolates config, state and resources in temp directories and
// installs fake as the runner. It returns the resource root.
func testEnv(t *testing.T, fake executor.Executor) string {
	t.Helper()

	base := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(base, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(base, "state"))

	cfgDir := filepath.Join(base, "config", "fiberpath-bridge")
	if err := os.MkdirAll(cfgDir, 0o700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	cfgData := "temp:\n  dir: " + filepath.Join(base, "tmp") + "\n" +
		"log:\n  file: " + filepath.Join(base, "state", "bridge.log") + "\n"
	if err := os.MkdirAll(filepath.Join(base, "tmp"), 0o700); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.yaml"), []byte(cfgData), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	root := filepath.Join(base, "resources")
	exe := filepath.Join(root, "bundled-cli", "fiberpath")
	if err := os.MkdirAll(filepath.Dir(exe), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(exe, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	origExec, origLook, origInteractive := newExecutor, lookPath, interactive
	newExecutor = func(clog.Tracer) executor.Executor { return fake }
	lookPath = func(string) (string, error) { return "", errors.New("not on PATH") }
	interactive = func() bool { return false }
	t.Cleanup(func() {
		newExecutor, lookPath, interactive = origExec, origLook, origInteractive
		resetFlags()
		loadedConfig = nil
		logLevel = clog.LevelInfo
		term.Reset()
		clog.Reset()
	})
	return root
}

// resetFlags restores every flag to its default so commands can be run
// repeatedly in one process.
func resetFlags() {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var out bytes.Buffer
	term.SetOutput(&out)
	term.SetErrOutput(&out)
	term.SetPretty(false)
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	if ctx == nil {
		ctx = context.Background()
	}
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

// containsAll reports the first of wants missing from s.
func containsAll(s string, wants ...string) (string, bool) {
	for _, w := range wants {
		if !strings.Contains(s, w) {
			return w, false
		}
	}
	return "", true
}
