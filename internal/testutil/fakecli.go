package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// FailingInput is an input name the fake CLI rejects with exit status 3.
const FailingInput = "broken"

// FakeCLIScript is a POSIX shell stand-in for the fiberpath CLI. It prints
// the JSON each subcommand prints for real, writes the --output artifact
// for plan and plot, and fails any input whose name contains FailingInput.
const FakeCLIScript = `#!/bin/sh
sub="$1"
if [ "$sub" = "--version" ]; then
  echo "fiberpath 0.5.1"
  exit 0
fi
shift
input="$1"
shift
case "$input" in
*` + FailingInput + `*)
  echo "error: cannot read $input" >&2
  exit 3
  ;;
esac
out=""
while [ $# -gt 0 ]; do
  case "$1" in
  --output) out="$2"; shift ;;
  esac
  shift
done
case "$sub" in
plan)
  printf 'G28\nG1 X10\n' > "$out"
  echo '{"commands": 2, "timeSeconds": 3.5, "towMeters": 1.25, "layers": []}'
  ;;
simulate)
  echo '{"commands_executed": 2, "moves": 1, "estimated_time_s": 3.5}'
  ;;
plot)
  printf 'PNG' > "$out"
  echo "Wrote preview to $out"
  ;;
stream)
  echo '{"status": "ok", "commands": 2, "total": 2, "baudRate": 250000, "dryRun": true}'
  ;;
validate)
  echo "Wind definition is valid"
  ;;
*)
  echo "unknown command: $sub" >&2
  exit 2
  ;;
esac
`

// WriteFakeCLI installs FakeCLIScript as the development-layout executable
// under root and returns its path.
func WriteFakeCLI(t testing.TB, root string) string {
	t.Helper()
	exe := filepath.Join(root, "bundled-cli", "fiberpath")
	if err := os.MkdirAll(filepath.Dir(exe), 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(exe, []byte(FakeCLIScript), 0o755); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return exe
}
