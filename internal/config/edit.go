package config

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/fiberpath/bridge/internal/clog"
)

// EditConfig opens path in the user's editor, creating it from the default
// template first if needed. The file is re-validated afterwards; problems
// are logged rather than returned so the user can fix them in a later edit.
func EditConfig(path string) error {
	if _, err := WriteDefaultConfig(path); err != nil {
		return fmt.Errorf("create default config: %w", err)
	}

	argv := editorCommand()
	cmd := exec.Command(argv[0], append(argv[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("editor %q failed: %w", strings.Join(argv, " "), err)
	}

	if _, err := Load(path); err != nil {
		clog.Warn("config has errors after edit: %v", err)
	}
	return nil
}

// editorCommand returns the editor argv from $VISUAL or $EDITOR. Values
// such as "code --wait" are split on whitespace.
func editorCommand() []string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	if runtime.GOOS == "windows" {
		return []string{"notepad"}
	}
	return []string{"vi"}
}
