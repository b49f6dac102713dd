package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fiberpath/bridge/internal/config"
	"github.com/fiberpath/bridge/internal/term"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit the bridge configuration",
	Long: `The bridge reads config.yaml from $XDG_CONFIG_HOME/fiberpath-bridge, falling
back to ~/.config/fiberpath-bridge (%AppData%\fiberpath-bridge on Windows).
--config points every subcommand at another file.

Missing keys take their defaults: resource layout, temp artifact naming,
server addresses, operation defaults (baud rate, preview scale, axis format)
and logging.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration as YAML, with defaults filled in
and ~ expanded.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configEditCmd = &cobra.Command{
	Use:         "edit",
	Annotations: map[string]string{skipConfig: "true"},
	Short:       "Open the config file in $VISUAL or $EDITOR",
	Long: `Open the config file in $VISUAL, else $EDITOR, else vi (notepad on Windows).
The commented default file is written first if none exists, and the result
is checked once the editor exits. Works even when the current file does not
parse.`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Annotations: map[string]string{skipConfig: "true"},
	Short:       "Print the config file in use",
	Args:        cobra.NoArgs,
	Run:         runConfigPath,
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Annotations: map[string]string{skipConfig: "true"},
	Short:       "Write the commented default config file",
	Long: `Write the commented default config file, listing every key with its default.
An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	data, err := config.MarshalConfig(loadedConfig)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	term.Print(string(data))
	return nil
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	if err := config.EditConfig(config.Resolve(flagConfig)); err != nil {
		return fmt.Errorf("failed to edit config: %w", err)
	}
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) {
	term.Println(config.Resolve(flagConfig))
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.Resolve(flagConfig)
	created, err := config.WriteDefaultConfig(path)
	if err != nil {
		return fmt.Errorf("failed to create config: %w", err)
	}
	if created {
		term.Printf("Created default config at: %s\n", path)
	} else {
		term.Printf("Config already exists at: %s\n", path)
	}
	return nil
}
