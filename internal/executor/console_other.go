//go:build !windows

package executor

import "os/exec"

// hideConsole is a no-op: only Windows opens console windows for children.
func hideConsole(_ *exec.Cmd) {}
