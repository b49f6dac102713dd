// Package platform identifies the operating environments the bridge supports.
//
// The set is closed: a Platform value decides both the bundled-resource layout
// probed by the resolver and whether child processes need a hidden console.
package platform

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Platform is one of the supported target operating environments.
type Platform int

const (
	// Windows is the console-windowed platform. Executables carry an .exe
	// suffix and child processes must be created without a console window.
	Windows Platform = iota + 1
	// MacOS is Apple's desktop platform.
	MacOS
	// Linux covers all Linux desktop distributions.
	Linux
)

// ErrUnsupported is returned for operating systems outside the supported set.
var ErrUnsupported = errors.New("unsupported platform")

// All returns every supported platform in a fixed order.
func All() []Platform {
	return []Platform{Windows, MacOS, Linux}
}

// String returns the GOOS-style name of the platform.
func (p Platform) String() string {
	switch p {
	case Windows:
		return "windows"
	case MacOS:
		return "darwin"
	case Linux:
		return "linux"
	default:
		return "unknown"
	}
}

// ExecutableName returns program with the platform's executable suffix.
func (p Platform) ExecutableName(program string) string {
	if p == Windows && !strings.HasSuffix(strings.ToLower(program), ".exe") {
		return program + ".exe"
	}
	return program
}

// HidesConsole reports whether child processes on this platform would flash
// a console window unless explicitly suppressed.
func (p Platform) HidesConsole() bool {
	return p == Windows
}

// Parse converts an OS name to a Platform. It accepts GOOS values plus the
// common alias "macos". Matching is case-insensitive.
func Parse(s string) (Platform, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "windows":
		return Windows, nil
	case "darwin", "macos":
		return MacOS, nil
	case "linux":
		return Linux, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
}

// Current returns the Platform for the running binary.
func Current() (Platform, error) {
	return Parse(runtime.GOOS)
}
