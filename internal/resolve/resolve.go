// Package resolve locates the fiberpath executable.
//
// Bundled installs ship the CLI under the application's resource root. The
// directory layout differs between platforms and between installed and
// development builds, so the resolver probes an ordered candidate list taken
// from a per-platform table, then falls back to the host search path.
//
// Resolution is never cached: every call re-probes the filesystem, so an
// installation repaired mid-session is picked up on the next operation.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/fiberpath/bridge/internal/clog"
	"github.com/fiberpath/bridge/internal/platform"
)

// ErrNotFound is matched by every *ResolutionError.
var ErrNotFound = errors.New("fiberpath CLI not found")

// Source records where a resolved executable came from.
type Source string

const (
	// SourceBundled is an executable shipped in the resource root.
	SourceBundled Source = "bundled"
	// SourceSearchPath is an executable found on the inherited PATH.
	SourceSearchPath Source = "search-path"
)

// Mode is an install layout that contributes a candidate path.
type Mode string

const (
	// ModeInstalled is the nested layout produced by the Windows installer.
	ModeInstalled Mode = "installed"
	// ModeDevelopment is the flat layout used by dev builds and by the
	// macOS and Linux bundles.
	ModeDevelopment Mode = "development"
)

// candidateTable lists, per platform, the layouts probed in priority order.
var candidateTable = map[platform.Platform][]Mode{
	platform.Windows: {ModeInstalled, ModeDevelopment},
	platform.MacOS:   {ModeDevelopment},
	platform.Linux:   {ModeDevelopment},
}

// Layout names the directories and program that make up a bundled install.
type Layout struct {
	InstalledDir string `json:"installed_dir"`
	BundledDir   string `json:"bundled_dir"`
	Program      string `json:"program"`
}

// DefaultLayout returns the layout produced by the desktop bundler.
func DefaultLayout() Layout {
	return Layout{
		InstalledDir: "_up_",
		BundledDir:   "bundled-cli",
		Program:      "fiberpath",
	}
}

// Candidate is one bundled location to probe.
type Candidate struct {
	Path string `json:"path"`
	Mode Mode   `json:"mode"`
}

// Candidates returns the ordered bundled candidate paths under root for p.
// The list depends only on its inputs, so it can be computed for any
// platform on any host.
func Candidates(root string, p platform.Platform, layout Layout) ([]Candidate, error) {
	modes, ok := candidateTable[p]
	if !ok {
		return nil, fmt.Errorf("%w: %v", platform.ErrUnsupported, p)
	}
	exe := p.ExecutableName(layout.Program)

	candidates := make([]Candidate, 0, len(modes))
	for _, mode := range modes {
		var path string
		switch mode {
		case ModeInstalled:
			path = filepath.Join(root, layout.InstalledDir, layout.BundledDir, exe)
		default:
			path = filepath.Join(root, layout.BundledDir, exe)
		}
		candidates = append(candidates, Candidate{Path: path, Mode: mode})
	}
	return candidates, nil
}

// Resolution is a verified executable location.
type Resolution struct {
	Path     string    `json:"path"`
	Source   Source    `json:"source"`
	Attempts []Attempt `json:"attempts,omitempty"`
}

// LookPathFunc resolves a bare program name against the search path.
type LookPathFunc func(name string) (string, error)

// Resolver finds the fiberpath executable for one platform and resource root.
type Resolver struct {
	root     string
	platform platform.Platform
	layout   Layout
	tracer   clog.Tracer
	lookPath LookPathFunc
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLayout overrides the bundled directory and program names.
func WithLayout(l Layout) Option {
	return func(r *Resolver) {
		r.layout = l
	}
}

// WithTracer sets the tracer that receives a message at every decision point.
func WithTracer(t clog.Tracer) Option {
	return func(r *Resolver) {
		if t != nil {
			r.tracer = t
		}
	}
}

// WithLookPath replaces the search-path lookup, which defaults to exec.LookPath.
func WithLookPath(fn LookPathFunc) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.lookPath = fn
		}
	}
}

// New creates a Resolver for the given resource root and platform.
// An empty root skips the bundled candidates and goes straight to the
// search path.
func New(root string, p platform.Platform, opts ...Option) *Resolver {
	r := &Resolver{
		root:     root,
		platform: p,
		layout:   DefaultLayout(),
		tracer:   clog.Nop(),
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Platform returns the platform the resolver probes for.
func (r *Resolver) Platform() platform.Platform {
	return r.platform
}

// Candidates returns the bundled candidates this resolver would probe.
func (r *Resolver) Candidates() ([]Candidate, error) {
	if r.root == "" {
		return nil, nil
	}
	return Candidates(r.root, r.platform, r.layout)
}

// Resolve probes the bundled candidates in order, then the search path.
// It returns a *ResolutionError listing every location checked when nothing
// resolves.
func (r *Resolver) Resolve() (Resolution, error) {
	var attempts []Attempt

	if r.root == "" {
		r.tracer.Warn("no resource root configured, skipping bundled CLI")
	} else {
		r.tracer.Info("resource root: %s (platform %s)", r.root, r.platform)
		candidates, err := r.Candidates()
		if err != nil {
			r.tracer.Error("failed to construct bundled CLI path: %v", err)
		}
		for _, c := range candidates {
			attempt := r.probe(c)
			attempts = append(attempts, attempt)
			if attempt.Outcome == OutcomeFound {
				r.tracer.Info("using bundled CLI %s", c.Path)
				return Resolution{Path: c.Path, Source: SourceBundled, Attempts: attempts}, nil
			}
		}
	}

	r.tracer.Info("trying search path for %q", r.layout.Program)
	path, err := r.lookPath(r.layout.Program)
	if err == nil {
		r.tracer.Info("found %s on search path: %s", r.layout.Program, path)
		attempts = append(attempts, Attempt{Path: path, Outcome: OutcomeFound, SearchPath: true})
		return Resolution{Path: path, Source: SourceSearchPath, Attempts: attempts}, nil
	}
	r.tracer.Warn("%s not found on search path: %v", r.layout.Program, err)
	attempts = append(attempts, Attempt{Path: r.layout.Program, Outcome: OutcomeMissing, SearchPath: true, Err: err})

	r.tracer.Error("fiberpath CLI not found after %d attempts", len(attempts))
	return Resolution{}, &ResolutionError{Program: r.layout.Program, Attempts: attempts}
}

// probe checks a single candidate and traces the result.
func (r *Resolver) probe(c Candidate) Attempt {
	r.tracer.Debug("checking %s candidate %s", c.Mode, c.Path)

	info, err := os.Stat(c.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.tracer.Warn("bundled CLI path does not exist: %s", c.Path)
			r.traceParent(c.Path)
			return Attempt{Path: c.Path, Mode: c.Mode, Outcome: OutcomeMissing}
		}
		r.tracer.Error("stat %s: %v", c.Path, err)
		return Attempt{Path: c.Path, Mode: c.Mode, Outcome: OutcomeStatFailed, Err: err}
	}

	if !info.Mode().IsRegular() {
		r.tracer.Error("path exists but is not a regular file (%s): %s", info.Mode().Type(), c.Path)
		return Attempt{Path: c.Path, Mode: c.Mode, Outcome: OutcomeNotRegular}
	}

	return Attempt{Path: c.Path, Mode: c.Mode, Outcome: OutcomeFound}
}

// traceParent lists the candidate's parent directory to help diagnose
// packaging mistakes.
func (r *Resolver) traceParent(path string) {
	parent := filepath.Dir(path)
	entries, err := os.ReadDir(parent)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			r.tracer.Debug("parent directory does not exist: %s", parent)
		} else {
			r.tracer.Debug("failed to read parent directory %s: %v", parent, err)
		}
		return
	}
	r.tracer.Debug("parent directory %s contains %d entries", parent, len(entries))
	for _, e := range entries {
		r.tracer.Debug("  - %s", filepath.Join(parent, e.Name()))
	}
}
