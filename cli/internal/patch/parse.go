package patch

import (
	"strings"

	"rscan/cli/internal/comment"
	"rscan/cli/internal/trace"
)

// Options configures Parse. The zero value parses a bare file with the
// default comment scanner and no tracing.
type Options struct {
	// IsPatch selects unified-diff input. When false the whole text is one
	// synthetic hunk starting at line 1 on both axes.
	IsPatch bool
	// Name and Revision are copied to the Patch.
	Name     string
	Revision string
	// Scanner strips same-line comments; nil means comment.Default().
	Scanner *comment.Scanner
	// Trace, when enabled, receives one line per sealed statement, fork
	// and comment recovery.
	Trace *trace.Tracer
}

// Parse rebuilds the logical statements of text. It never fails: text
// without hunk headers in patch mode yields a Patch with no hunks.
func Parse(text string, opts Options) *Patch {
	p := &Patch{Name: opts.Name, Revision: opts.Revision}
	sc := opts.Scanner
	if sc == nil {
		sc = comment.Default()
	}
	if !opts.IsPatch {
		h := &Hunk{SrcStart: 1, TgtStart: 1}
		parseHunk(h, text, false, sc, opts.Trace)
		p.Hunks = []*Hunk{h}
		return p
	}
	for i, sec := range SplitHunks(text) {
		h := sec.Hunk
		opts.Trace.Section(h.Header())
		parseHunk(&h, text[sec.BodyStart:sec.BodyEnd], true, sc, opts.Trace)
		p.Hunks = append(p.Hunks, &h)
		opts.Trace.Printf("hunk %d: %d entries (%d deleted, %d added)\n", i, len(h.Lines), len(h.DelIndices), len(h.AddIndices))
	}
	return p
}

// parseHunk classifies and accumulates every line of body into h, whose
// header fields must already be set.
func parseHunk(h *Hunk, body string, isPatch bool, sc *comment.Scanner, tr *trace.Tracer) {
	a := newAccumulator(h, tr)
	for _, raw := range splitLines(body) {
		if isPatch && strings.HasPrefix(raw, `\`) {
			// "\ No newline at end of file" belongs to neither side.
			continue
		}
		a.consume(classify(raw, isPatch, sc))
	}
	a.finish()
}
