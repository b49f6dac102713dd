package resolve

import (
	"fmt"
	"strings"
)

// Outcome classifies a single resolution attempt.
type Outcome string

const (
	OutcomeFound      Outcome = "found"
	OutcomeMissing    Outcome = "not found"
	OutcomeNotRegular Outcome = "not a regular file"
	OutcomeStatFailed Outcome = "stat failed"
)

// Attempt records one location the resolver checked.
type Attempt struct {
	Path       string  `json:"path"`
	Mode       Mode    `json:"mode,omitempty"`
	SearchPath bool    `json:"search_path,omitempty"`
	Outcome    Outcome `json:"outcome"`
	Err        error   `json:"-"`
}

func (a Attempt) String() string {
	where := a.Path
	if a.SearchPath && a.Outcome != OutcomeFound {
		where = fmt.Sprintf("search path lookup for %q", a.Path)
	}
	if a.Err != nil && a.Outcome == OutcomeStatFailed {
		return fmt.Sprintf("%s (%s: %v)", where, a.Outcome, a.Err)
	}
	return fmt.Sprintf("%s (%s)", where, a.Outcome)
}

// ResolutionError reports that no executable was found anywhere.
type ResolutionError struct {
	Program  string
	Attempts []Attempt
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("FiberPath CLI not found")
	if len(e.Attempts) > 0 {
		b.WriteString("; checked:")
		for _, a := range e.Attempts {
			b.WriteString("\n  - ")
			b.WriteString(a.String())
		}
		b.WriteString("\n")
	} else {
		b.WriteString(". ")
	}
	b.WriteString("Please ensure the application was installed correctly, or install the Python package with: pip install ")
	b.WriteString(e.Program)
	return b.String()
}

// Unwrap lets callers match any resolution failure with errors.Is(err, ErrNotFound).
func (e *ResolutionError) Unwrap() error {
	return ErrNotFound
}
