// Package trace writes step-by-step parser output to stderr when --trace is
// given. A Tracer with a nil writer, and a nil *Tracer, discard everything,
// so callers pass one through unconditionally.
package trace

import (
	"fmt"
	"io"
)

// Tag prefixes every section header.
const Tag = "[rscan:trace]"

// Tracer writes sectioned trace output.
type Tracer struct {
	w     io.Writer
	lines int
}

// New returns a Tracer that writes to w. A nil w yields a silent Tracer.
func New(w io.Writer) *Tracer {
	return &Tracer{w: w}
}

// Enabled reports whether output is written anywhere.
func (t *Tracer) Enabled() bool {
	return t != nil && t.w != nil
}

// Section starts a new block: "\n[rscan:trace] === name ===\n".
func (t *Tracer) Section(name string) {
	if !t.Enabled() {
		return
	}
	t.lines++
	fmt.Fprintf(t.w, "\n%s === %s ===\n", Tag, name)
}

// Printf writes one formatted event. The format carries its own newline.
func (t *Tracer) Printf(format string, args ...any) {
	if !t.Enabled() {
		return
	}
	t.lines++
	fmt.Fprintf(t.w, format, args...)
}

// Events returns the number of sections and events written so far.
func (t *Tracer) Events() int {
	if t == nil {
		return 0
	}
	return t.lines
}
