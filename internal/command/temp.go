package command

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPrefix is the file name prefix of generated artifacts.
const DefaultPrefix = "fiberpath"

// TempNamer generates artifact paths of the form
// <dir>/<prefix>-<unix millis>[-<suffix>].<ext>.
//
// Without a Suffix, two calls for the same extension inside one millisecond
// return the same path.
type TempNamer struct {
	// Dir defaults to os.TempDir().
	Dir    string
	Prefix string
	// Now defaults to time.Now.
	Now func() time.Time
	// Suffix, when set, is appended after the timestamp.
	Suffix func() string
}

// NewTempNamer returns a namer that appends RandomSuffix when unique is set.
func NewTempNamer(dir, prefix string, unique bool) *TempNamer {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	n := &TempNamer{Dir: dir, Prefix: prefix}
	if unique {
		n.Suffix = RandomSuffix
	}
	return n
}

// RandomSuffix returns the first eight hex digits of a random UUID.
func RandomSuffix() string {
	return strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Path returns a fresh artifact path with the given extension.
func (n *TempNamer) Path(ext string) string {
	if n == nil {
		n = &TempNamer{}
	}
	dir := n.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	prefix := n.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}

	name := fmt.Sprintf("%s-%d", prefix, now().UnixMilli())
	if n.Suffix != nil {
		if s := n.Suffix(); s != "" {
			name += "-" + s
		}
	}
	return filepath.Join(dir, name+"."+strings.TrimPrefix(ext, "."))
}
