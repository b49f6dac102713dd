package cmd

import (
	"fmt"
	"io"

	"github.com/fiberpath/bridge/internal/audit"
	"github.com/fiberpath/bridge/internal/bridge"
	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/command"
	"github.com/fiberpath/bridge/internal/config"
	"github.com/fiberpath/bridge/internal/executor"
	"github.com/fiberpath/bridge/internal/ipc"
	"github.com/fiberpath/bridge/internal/metrics"
	"github.com/fiberpath/bridge/internal/pathutil"
	"github.com/fiberpath/bridge/internal/platform"
	"github.com/fiberpath/bridge/internal/resolve"
)

// Replaced in tests.
var (
	newExecutor = func(t clog.Tracer) executor.Executor {
		return executor.NewRealExecutor(executor.WithTracer(t))
	}
	lookPath resolve.LookPathFunc
)

// app holds the components shared by every command.
type app struct {
	cfg        *config.Config
	root       string
	resolver   *resolve.Resolver
	recorder   *metrics.Recorder
	dispatcher *bridge.Dispatcher
	journal    io.Closer
}

// newApp wires the resolver, runner and dispatcher from cfg.
func newApp(cfg *config.Config) (*app, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	rootSetting := cfg.Resources.Root
	if flagResourceRoot != "" {
		rootSetting = flagResourceRoot
	}
	root, err := pathutil.ResourceRoot(rootSetting)
	if err != nil {
		return nil, err
	}

	p, err := platform.Current()
	if err != nil {
		return nil, fmt.Errorf("cannot run fiberpath here: %w", err)
	}

	resolveTracer, execTracer, bridgeTracer := clog.Tracer(clog.Nop()), clog.Tracer(clog.Nop()), clog.Tracer(clog.Nop())
	if tracing() {
		resolveTracer = clog.Default().Named("resolve")
		execTracer = clog.Default().Named("runner")
		bridgeTracer = clog.Default().Named("bridge")
	}

	resolver := resolve.New(root, p,
		resolve.WithLayout(resolve.Layout{
			InstalledDir: cfg.Resources.InstalledDir,
			BundledDir:   cfg.Resources.BundledDir,
			Program:      cfg.Resources.Program,
		}),
		resolve.WithTracer(resolveTracer),
		resolve.WithLookPath(lookPath),
	)

	runner := newExecutor(execTracer)
	var journal io.Closer
	if cfg.Log.Audit != "" {
		f, err := clog.OpenLogFile(cfg.Log.Audit)
		if err != nil {
			return nil, fmt.Errorf("open audit journal: %w", err)
		}
		journal = f
		runner = audit.WrapExecutor(runner, audit.NewLogger(f))
	}

	rec := metrics.NewRecorder()
	namer := command.NewTempNamer(cfg.Temp.Dir, cfg.Temp.Prefix, cfg.Temp.UniqueTemp())
	d := bridge.New(resolver, runner,
		bridge.WithTracer(bridgeTracer),
		bridge.WithObserver(rec),
		bridge.WithTempNamer(namer),
	)

	return &app{cfg: cfg, root: root, resolver: resolver, recorder: rec, dispatcher: d, journal: journal}, nil
}

// close releases the audit journal.
func (a *app) close() {
	if a.journal != nil {
		_ = a.journal.Close()
	}
}

// handler returns an IPC handler over the dispatcher.
func (a *app) handler() *ipc.Handler {
	return ipc.NewHandler(a.dispatcher,
		ipc.WithStats(a.recorder),
		ipc.WithDefaults(ipc.Defaults{
			BaudRate:   a.cfg.Defaults.BaudRate,
			Scale:      a.cfg.Defaults.Scale,
			AxisFormat: a.cfg.Defaults.AxisFormat,
		}),
		ipc.WithLogger(clog.Default().Named("ipc")),
	)
}
