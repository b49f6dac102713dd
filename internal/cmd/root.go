// Package cmd implements the CLI commands for fiberpath-bridge.
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/config"
	"github.com/fiberpath/bridge/internal/term"
	"github.com/fiberpath/bridge/internal/version"
)

// Global flags.
var (
	flagConfig       string
	flagDebug        bool
	flagTrace        bool
	flagSilent       bool
	flagResourceRoot string
	flagLogLevel     = clog.LevelInfo
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "fiberpath-bridge",
	Short: "Run the FiberPath CLI on behalf of the desktop app",
	Long: `fiberpath-bridge locates the bundled FiberPath command-line tool and runs
planning, simulation, preview, streaming and validation on its behalf.

Each command resolves the fiberpath executable, runs it as a child process
and prints the structured result as JSON. The serve command exposes the same
operations to the desktop GUI over a Unix socket and a WebSocket.`,
	Version:           version.String(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.SetVersionTemplate("{{.Version}}\n")
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "config file (default "+config.ConfigPath()+")")
	flags.BoolVar(&flagDebug, "debug", false, "log debug messages")
	flags.Var(&flagLogLevel, "log-level", "minimum log level: "+strings.Join(clog.LevelNames, ", ")+" (default from config)")
	flags.BoolVar(&flagTrace, "trace", false, "log every resolver and runner decision")
	flags.BoolVarP(&flagSilent, "silent", "s", false, "suppress normal output")
	flags.StringVar(&flagResourceRoot, "resource-root", "", "directory containing bundled-cli (default: next to this executable)")
}

// Set by setup before any RunE runs.
var (
	loadedConfig *config.Config
	logLevel     = clog.LevelInfo
)

// skipConfig marks commands that must work while the config file is broken.
const skipConfig = "skip-config"

// setup loads the configuration and configures logging and output.
func setup(cmd *cobra.Command, args []string) error {
	term.SetSilent(flagSilent)

	if cmd.Annotations[skipConfig] != "" {
		loadedConfig = config.DefaultConfig()
		if flagDebug {
			logLevel = clog.LevelDebug
			clog.SetLevel(logLevel)
		}
		return nil
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	loadedConfig = cfg

	level := clog.ParseLevel(cfg.Log.Level)
	if rootCmd.PersistentFlags().Changed("log-level") {
		level = flagLogLevel
	}
	if flagDebug || flagTrace || cfg.Log.Trace {
		level = clog.LevelDebug
	}
	logLevel = level
	clog.SetLevel(level)
	return nil
}

// tracing reports whether resolver and runner decisions are logged.
func tracing() bool {
	return flagTrace || (loadedConfig != nil && loadedConfig.Log.Trace)
}

// Execute runs the root command and returns any error.
// Errors other than a bare exit code are printed to stderr. An interrupt
// cancels the running operation and its child process.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}
	var exitErr *ExitCodeError
	if !errors.As(err, &exitErr) || exitErr.Err != nil {
		term.Error("%v", err)
	}
	return err
}
