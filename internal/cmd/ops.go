package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/command"
	"github.com/fiberpath/bridge/internal/prompt"
	"github.com/fiberpath/bridge/internal/term"
	"github.com/fiberpath/bridge/internal/watch"
)

// Operation flags.
var (
	planOutput     string
	planAxisFormat string

	watchInput bool

	previewScale  float64
	previewBase64 bool

	streamPort     string
	streamBaudRate uint32
	streamDryRun   bool
	streamYes      bool
)

// Stream confirmation hooks, replaced in tests.
var (
	newChooser = func() prompt.Chooser {
		return prompt.NewStdinChooser(os.Stdin, term.Stderr())
	}
	interactive = func() bool {
		return term.IsTerminal(os.Stdin)
	}
)

// errStreamCancelled is returned when the user declines a stream.
var errStreamCancelled = errors.New("stream cancelled")

var planCmd = &cobra.Command{
	Use:   "plan <wind-file>",
	Short: "Plan a wind definition into G-code",
	Long: `Plan a .wind definition into a G-code program and print the plan summary.

Without --output the program is written to a fresh file in the temp directory.
The summary always carries the output path.`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate <gcode-file>",
	Short: "Simulate a G-code program",
	Long: `Simulate a G-code program and print timing and distance estimates.

With --watch the simulation re-runs every time the file is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runSimulate,
}

var previewCmd = &cobra.Command{
	Use:   "preview <gcode-file>",
	Short: "Render a G-code program to a PNG",
	Long: `Render a G-code program to a PNG preview in the temp directory and print its path.

--base64 also prints the image data, as the desktop app receives it.
With --watch the preview is re-rendered every time the file is saved.`,
	Args: cobra.ExactArgs(1),
	RunE: runPreview,
}

var streamCmd = &cobra.Command{
	Use:   "stream <gcode-file>",
	Short: "Stream a G-code program to the controller",
	Long: `Send a G-code program to the winding controller over a serial port.

With --dry-run nothing is sent and --port is ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: runStream,
}

var validateCmd = &cobra.Command{
	Use:   "validate <wind-file>",
	Short: "Check a wind definition without planning it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var versionCLICmd = &cobra.Command{
	Use:   "version-cli",
	Short: "Print the version of the resolved fiberpath CLI",
	Args:  cobra.NoArgs,
	RunE:  runVersionCLI,
}

func init() {
	planCmd.Flags().StringVarP(&planOutput, "output", "o", "", "G-code output path (default: temp file)")
	planCmd.Flags().StringVar(&planAxisFormat, "axis-format", "", "axis format: xab or xyz (default from config)")

	simulateCmd.Flags().BoolVarP(&watchInput, "watch", "w", false, "re-run when the file changes")

	previewCmd.Flags().Float64Var(&previewScale, "scale", 0, "render scale (default from config)")
	previewCmd.Flags().BoolVar(&previewBase64, "base64", false, "include the base64 image in the output")
	previewCmd.Flags().BoolVarP(&watchInput, "watch", "w", false, "re-render when the file changes")

	streamCmd.Flags().StringVarP(&streamPort, "port", "p", "", "serial port of the controller")
	streamCmd.Flags().Uint32VarP(&streamBaudRate, "baud-rate", "b", 0, "serial baud rate (default from config)")
	streamCmd.Flags().BoolVar(&streamDryRun, "dry-run", false, "rehearse without sending anything")
	streamCmd.Flags().BoolVarP(&streamYes, "yes", "y", false, "stream without asking for confirmation")

	rootCmd.AddCommand(planCmd, simulateCmd, previewCmd, streamCmd, validateCmd, versionCLICmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	a, err := newApp(loadedConfig)
	if err != nil {
		return err
	}
	defer a.close()
	axis := planAxisFormat
	if axis == "" {
		axis = a.cfg.Defaults.AxisFormat
	}
	res, err := a.dispatcher.Plan(cmd.Context(), command.PlanParams{
		Input:      args[0],
		Output:     planOutput,
		AxisFormat: axis,
	})
	if err != nil {
		return operationError(err)
	}
	return term.JSON(res.Payload)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	a, err := newApp(loadedConfig)
	if err != nil {
		return err
	}
	defer a.close()
	once := func(ctx context.Context) error {
		res, err := a.dispatcher.Simulate(ctx, command.SimulateParams{Path: args[0]})
		if err != nil {
			return operationError(err)
		}
		return term.JSON(res.Payload)
	}
	if watchInput {
		return runWatching(cmd.Context(), args[0], once)
	}
	return once(cmd.Context())
}

// previewOutput is what the preview command prints.
type previewOutput struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"imageBase64,omitempty"`
}

func runPreview(cmd *cobra.Command, args []string) error {
	a, err := newApp(loadedConfig)
	if err != nil {
		return err
	}
	defer a.close()
	scale := previewScale
	if !cmd.Flags().Changed("scale") {
		scale = a.cfg.Defaults.Scale
	}
	once := func(ctx context.Context) error {
		pv, err := a.dispatcher.Preview(ctx, command.PreviewParams{Path: args[0], Scale: scale})
		if err != nil {
			return operationError(err)
		}
		out := previewOutput{Path: pv.Path}
		if previewBase64 {
			out.ImageBase64 = pv.ImageBase64
		}
		return term.JSON(out)
	}
	if watchInput {
		return runWatching(cmd.Context(), args[0], once)
	}
	return once(cmd.Context())
}

func runStream(cmd *cobra.Command, args []string) error {
	a, err := newApp(loadedConfig)
	if err != nil {
		return err
	}
	defer a.close()
	baud := streamBaudRate
	if !cmd.Flags().Changed("baud-rate") {
		baud = a.cfg.Defaults.BaudRate
	}
	dryRun := streamDryRun
	if !dryRun && streamPort == "" {
		term.Warn("no --port given; the CLI will pick its default port")
	}
	if !dryRun && !streamYes && interactive() {
		dryRun, err = confirmStream(args[0], streamPort, baud)
		if err != nil {
			return err
		}
	}
	res, err := a.dispatcher.Stream(cmd.Context(), command.StreamParams{
		Path:     args[0],
		Port:     streamPort,
		BaudRate: baud,
		DryRun:   dryRun,
	})
	if err != nil {
		return operationError(err)
	}
	return term.JSON(res.Payload)
}

// confirmStream asks before motion commands reach the machine. It reports
// whether the user picked a dry run instead.
func confirmStream(path, port string, baud uint32) (bool, error) {
	target := port
	if target == "" {
		target = "the default port"
	}
	question := fmt.Sprintf("Stream %s to %s at %d baud?", filepath.Base(path), target, baud)
	choice, err := newChooser().Choose(question, []string{"Stream", "Dry run", "Cancel"}, 2)
	if err != nil {
		return false, fmt.Errorf("confirm stream: %w", err)
	}
	switch choice {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &ExitCodeError{Code: exitFailure, Err: errStreamCancelled}
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	a, err := newApp(loadedConfig)
	if err != nil {
		return err
	}
	defer a.close()
	v, err := a.dispatcher.Validate(cmd.Context(), command.ValidateParams{Path: args[0]})
	if err != nil {
		return operationError(err)
	}
	return term.JSON(v)
}

func runVersionCLI(cmd *cobra.Command, args []string) error {
	a, err := newApp(loadedConfig)
	if err != nil {
		return err
	}
	defer a.close()
	v, err := a.dispatcher.Version(cmd.Context())
	if err != nil {
		return operationError(err)
	}
	term.Println(v.Version)
	return nil
}

// runWatching runs once immediately, then again after every change to path
// until ctx is cancelled. Failures after the first run are reported and
// watching continues.
func runWatching(ctx context.Context, path string, once func(context.Context) error) error {
	if err := once(ctx); err != nil {
		term.Error("%v", err)
	}
	w := watch.New(path, watch.DefaultDebounce, clog.Default().Named("watch"))
	if err := w.Run(ctx, func(ctx context.Context) {
		if err := once(ctx); err != nil {
			term.Error("%v", err)
		}
	}); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	return nil
}
