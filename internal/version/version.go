// Package version reports which fiberpath-bridge build is running.
// Release builds set Version with
// -ldflags "-X github.com/fiberpath/bridge/internal/version.Version=v1.0.0".
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

// Version is "dev" unless overridden at link time.
var Version = "dev"

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// IsDev reports whether this is a development build.
func IsDev() bool {
	return strings.Contains(Version, "dev")
}

// Revision returns the short VCS revision embedded by the Go toolchain,
// with a "+dirty" suffix for modified trees, or "" when unavailable.
func Revision() string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	var rev string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 12 {
		rev = rev[:12]
	}
	if rev != "" && dirty {
		rev += "+dirty"
	}
	return rev
}

// String returns the line printed by --version and doctor. Development
// builds include the revision when it is known.
func String() string {
	v := Version
	if IsDev() {
		if rev := Revision(); rev != "" {
			v += "@" + rev
		}
	}
	return "fiberpath-bridge " + v + " (" + runtime.GOOS + "/" + runtime.GOARCH + ")"
}
