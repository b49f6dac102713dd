package cmd

import (
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fiberpath/bridge/internal/platform"
	"github.com/fiberpath/bridge/internal/resolve"
	"github.com/fiberpath/bridge/internal/term"
)

var (
	doctorJSON         bool
	candidatesPlatform string
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check that the fiberpath CLI can be found and run",
	Long: `Resolve the fiberpath executable, ask it for its version and report every
location that was checked.

Exits non-zero when the CLI is missing or does not run.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List the bundled locations probed for the fiberpath CLI",
	Long: `List, in priority order, the bundled paths the resolver checks before
falling back to the search path.

--platform shows the list another platform would use for the same resource root.`,
	Args: cobra.NoArgs,
	RunE: runCandidates,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "print the diagnostics as JSON")
	candidatesCmd.Flags().StringVar(&candidatesPlatform, "platform", "", "windows, macos or linux (default: this host)")
	rootCmd.AddCommand(doctorCmd, candidatesCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	a, err := newApp(loadedConfig)
	if err != nil {
		return err
	}
	defer a.close()
	diag := a.dispatcher.Diagnose(cmd.Context())

	if doctorJSON {
		if err := term.JSON(diag); err != nil {
			return err
		}
	} else {
		if diag.Healthy {
			term.Printf("fiberpath %s\n", diag.Version)
			term.Printf("Path:   %s\n", diag.Path)
			term.Printf("Source: %s\n", diag.Source)
		} else {
			term.Println("fiberpath CLI is not usable")
		}
		if len(diag.Attempts) > 0 {
			term.Println("Checked:")
			for _, at := range diag.Attempts {
				term.Printf("  - %s\n", at)
			}
		}
		if diag.Error != "" {
			term.Error("%s: %s", diag.ErrorKind, diag.Error)
		}
	}

	if !diag.Healthy {
		return NewExitCodeError(exitFailure)
	}
	return nil
}

func runCandidates(cmd *cobra.Command, args []string) error {
	a, err := newApp(loadedConfig)
	if err != nil {
		return err
	}
	defer a.close()

	var cands []resolve.Candidate
	if candidatesPlatform == "" {
		cands, err = a.resolver.Candidates()
	} else {
		p, perr := platform.Parse(candidatesPlatform)
		if perr != nil {
			return perr
		}
		cands, err = resolve.Candidates(a.root, p, resolve.Layout{
			InstalledDir: a.cfg.Resources.InstalledDir,
			BundledDir:   a.cfg.Resources.BundledDir,
			Program:      a.cfg.Resources.Program,
		})
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(term.Stdout(), 0, 0, 2, ' ', 0)
	for _, c := range cands {
		_, _ = w.Write([]byte(string(c.Mode) + "\t" + c.Path + "\n"))
	}
	return w.Flush()
}
