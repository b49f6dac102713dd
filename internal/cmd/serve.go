package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/ipc"
	"github.com/fiberpath/bridge/internal/metrics"
	"github.com/fiberpath/bridge/internal/term"
)

// shutdownTimeout bounds the graceful stop of the HTTP listener.
const shutdownTimeout = 30 * time.Second

var (
	serveSocket string
	serveHTTP   string
	serveNoHTTP bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve bridge operations to the desktop app",
	Long: `Serve plan, simulate, preview, stream, validate, version, diagnose and stats
to the desktop GUI until interrupted (SIGINT/SIGTERM).

The Unix socket accepts newline-delimited JSON requests. The HTTP listener
serves the same requests over a WebSocket at /ws, Prometheus metrics at
/metrics and a health check at /healthz.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running bridge server",
	Args:  cobra.NoArgs,
	RunE:  runStop,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bridge server status and operation statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	serveCmd.Flags().StringVar(&serveSocket, "socket", "", "Unix socket path (default from config)")
	serveCmd.Flags().StringVar(&serveHTTP, "http", "", "HTTP listen address for /ws, /metrics and /healthz (default from config)")
	serveCmd.Flags().BoolVar(&serveNoHTTP, "no-http", false, "serve the Unix socket only")
	rootCmd.AddCommand(serveCmd, stopCmd, statusCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadedConfig
	// Launched by the GUI there is no terminal to echo warnings to.
	daemon := !term.IsTerminal(os.Stderr)
	if err := clog.Configure(cfg.Log.File, logLevel, daemon); err != nil {
		term.Warn("file logging disabled: %v", err)
	}
	defer func() { _ = clog.Close() }()

	statePath, err := ipc.DefaultStatePath()
	if err != nil {
		return err
	}
	if removed, err := ipc.CleanupStale(statePath); err != nil {
		clog.Warn("failed to check previous server state: %v", err)
	} else if removed {
		clog.Info("removed state left by a server that is no longer running")
	}
	if state, _ := ipc.LoadState(statePath); ipc.IsRunning(state) {
		return fmt.Errorf("bridge server already running (PID %d)", state.PID)
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()
	h := a.handler()
	ctx := cmd.Context()

	socketPath := cfg.Server.Socket
	if serveSocket != "" {
		socketPath = serveSocket
	}
	sock := ipc.NewSocketServer(socketPath, h, ipc.WithSocketLogger(clog.Default().Named("socket")))
	if err := sock.Start(); err != nil {
		return fmt.Errorf("failed to start socket server: %w", err)
	}
	clog.Info("bridge socket listening on %s", sock.SocketPath())

	var httpSrv *metrics.Server
	httpAddr := cfg.Server.HTTPListen
	if serveHTTP != "" {
		httpAddr = serveHTTP
	}
	if !serveNoHTTP && httpAddr != "" {
		log := clog.Default().Named("http")
		httpSrv = metrics.NewServer(httpAddr, a.recorder, log)
		httpSrv.Handle("/ws", ipc.NewWebSocketHandler(ctx, h, cfg.Server.Origins, log))
		if err := httpSrv.Start(); err != nil {
			_ = sock.Stop()
			return fmt.Errorf("failed to start http server: %w", err)
		}
	}

	state := &ipc.State{PID: os.Getpid(), SocketPath: sock.SocketPath(), StartedAt: time.Now()}
	if httpSrv != nil {
		state.HTTPAddr = httpSrv.Addr()
	}
	if err := ipc.SaveState(statePath, state); err != nil {
		clog.Warn("failed to save server state: %v", err)
	}
	term.Printf("Serving on %s", state.SocketPath)
	if state.HTTPAddr != "" {
		term.Printf(" and http://%s", state.HTTPAddr)
	}
	term.Println()

	<-ctx.Done()
	clog.Debug("shutting down bridge servers...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := sock.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("socket shutdown: %w", err))
	}
	if httpSrv != nil {
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	if err := ipc.RemoveState(statePath); err != nil {
		errs = append(errs, err)
	}

	clog.Debug("bridge servers stopped")
	return errors.Join(errs...)
}

func runStop(cmd *cobra.Command, args []string) error {
	statePath, err := ipc.DefaultStatePath()
	if err != nil {
		return err
	}
	state, err := ipc.LoadState(statePath)
	if err != nil {
		return err
	}
	if !ipc.IsRunning(state) {
		if state != nil {
			_, _ = ipc.CleanupStale(statePath)
		}
		term.Println("Bridge server is not running")
		return nil
	}

	if err := ipc.StopServer(state); err != nil {
		return fmt.Errorf("failed to stop bridge server: %w", err)
	}
	term.Printf("Sent stop signal to bridge server (PID %d)\n", state.PID)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	statePath, err := ipc.DefaultStatePath()
	if err != nil {
		return err
	}
	state, err := ipc.LoadState(statePath)
	if err != nil {
		return err
	}
	if !ipc.IsRunning(state) {
		term.Println("Status: not running")
		return nil
	}

	term.Println("Status: running")
	term.Printf("PID:    %d\n", state.PID)
	term.Printf("Socket: %s\n", state.SocketPath)
	if state.HTTPAddr != "" {
		term.Printf("HTTP:   %s\n", state.HTTPAddr)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()
	snap, err := fetchStats(ctx, ipc.NewClient(state.SocketPath))
	if err != nil {
		term.Printf("Stats:  (unable to retrieve: %v)\n", err)
		return nil
	}

	term.Printf("Uptime: %s\n", (time.Duration(snap.UptimeSeconds) * time.Second).String())
	if len(snap.Operations) == 0 {
		return nil
	}
	term.Println()
	w := tabwriter.NewWriter(term.Stdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OPERATION\tCOUNT\tFAILED\tP50 ms\tP95 ms\tP99 ms")
	for _, op := range snap.Operations {
		fmt.Fprintf(w, "%s\t%d\t%d\t%.1f\t%.1f\t%.1f\n", op.Operation, op.Count, op.Failed, op.P50, op.P95, op.P99)
	}
	return w.Flush()
}

// fetchStats asks a running server for its operation statistics.
func fetchStats(ctx context.Context, c *ipc.Client) (metrics.Snapshot, error) {
	resp, err := c.Call(ctx, ipc.OpStats, nil)
	if err != nil {
		return metrics.Snapshot{}, err
	}
	if !resp.OK {
		if resp.Error != nil {
			return metrics.Snapshot{}, fmt.Errorf("%s: %s", resp.Error.Kind, resp.Error.Message)
		}
		return metrics.Snapshot{}, errors.New("stats request failed")
	}

	// Result arrives as generic JSON
	data, err := json.Marshal(resp.Result)
	if err != nil {
		return metrics.Snapshot{}, fmt.Errorf("failed to re-encode stats: %w", err)
	}
	var snap metrics.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return metrics.Snapshot{}, fmt.Errorf("failed to decode stats: %w", err)
	}
	return snap, nil
}
