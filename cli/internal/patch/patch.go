// Package patch rebuilds logical statements from unified diffs (or whole
// files) of C-family source so that line-oriented detectors can match
// regular expressions against coherent text.
//
// # Model
//
// A Patch holds one Hunk per "@@ -a,b +c,d @@" header. Each Hunk holds an
// ordered list of entries: plain physical Lines, or VirtualStatements
// merged from several physical lines that together form one statement.
// Every entry is Common, Deleted or Added. DelIndices and AddIndices
// mark the positions of deleted-only and added-only entries.
//
// # Line numbers
//
// Every physical line carries a LineNo with a source-file and a target-file
// line number. Deleted lines have no target number and added lines have
// no source number; the missing axis is 0. The resolver functions map an
// offset or keyword inside a merged statement back to the physical line
// that produced it.
//
// # Errors
//
// Parsing never fails. Unterminated comments, unbalanced quotes and
// truncated hunks produce a best-effort Patch.
package patch

import (
	"fmt"
	"strconv"
)

// Prefix classifies a diff line.
type Prefix int

const (
	// Common is an unchanged (context) line, present on both sides.
	Common Prefix = iota
	// Deleted is present only in the source file.
	Deleted
	// Added is present only in the target file.
	Added
)

// Symbol returns the unified-diff marker for p: ' ', '-' or '+'.
func (p Prefix) Symbol() byte {
	switch p {
	case Deleted:
		return '-'
	case Added:
		return '+'
	default:
		return ' '
	}
}

// String returns "common", "deleted" or "added".
func (p Prefix) String() string {
	switch p {
	case Common:
		return "common"
	case Deleted:
		return "deleted"
	case Added:
		return "added"
	default:
		return "Prefix(" + strconv.Itoa(int(p)) + ")"
	}
}

// Opposite swaps Deleted and Added. Common has no opposite and is returned
// unchanged.
func (p Prefix) Opposite() Prefix {
	switch p {
	case Deleted:
		return Added
	case Added:
		return Deleted
	default:
		return p
	}
}

// MarshalText encodes p as its String form.
func (p Prefix) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes the String form of a prefix.
func (p *Prefix) UnmarshalText(b []byte) error {
	for _, v := range []Prefix{Common, Deleted, Added} {
		if v.String() == string(b) {
			*p = v
			return nil
		}
	}
	return fmt.Errorf("unknown prefix %q", b)
}

// LineNo is a pair of 1-based line numbers. Zero means the axis does not
// apply (no target line for a deletion, no source line for an addition).
type LineNo struct {
	Src int `json:"src,omitempty" yaml:"src,omitempty"`
	Tgt int `json:"tgt,omitempty" yaml:"tgt,omitempty"`
}

// HasSrc reports whether the source axis is set.
func (n LineNo) HasSrc() bool { return n.Src > 0 }

// HasTgt reports whether the target axis is set.
func (n LineNo) HasTgt() bool { return n.Tgt > 0 }

// Shift moves the axes that are set by delta lines.
func (n LineNo) Shift(delta int) LineNo {
	if n.HasSrc() {
		n.Src += delta
	}
	if n.HasTgt() {
		n.Tgt += delta
	}
	return n
}

// String formats n as "src/tgt" with "-" for a missing axis.
func (n LineNo) String() string {
	axis := func(v int) string {
		if v <= 0 {
			return "-"
		}
		return strconv.Itoa(v)
	}
	return axis(n.Src) + "/" + axis(n.Tgt)
}

// Line is one physical diff line. Content has same-line comments removed
// and keeps its trailing newline; it is "" when nothing but whitespace or
// comment was left.
type Line struct {
	Prefix  Prefix `json:"prefix" yaml:"prefix"`
	Content string `json:"content" yaml:"content"`
	LineNo  LineNo `json:"line_no" yaml:"line_no"`
}

// Base returns l itself.
func (l *Line) Base() *Line { return l }

// Parts returns l as a single physical line.
func (l *Line) Parts() []Line { return []Line{*l} }

// VirtualStatement is one logical statement merged from consecutive
// physical lines. Its Content is the concatenation of the sub-line contents
// and its LineNo is the first sub-line's.
type VirtualStatement struct {
	Line `yaml:",inline"`
	SubLines []Line `json:"sub_lines" yaml:"sub_lines"`
}

func newStatement(first Line) *VirtualStatement {
	s := &VirtualStatement{Line: Line{LineNo: first.LineNo}}
	s.append(first)
	return s
}

func (s *VirtualStatement) append(l Line) {
	s.SubLines = append(s.SubLines, l)
	s.Content += l.Content
}

// fork returns an independent copy of s, for a side whose view of a
// statement diverges from the shared one.
func (s *VirtualStatement) fork() *VirtualStatement {
	c := &VirtualStatement{Line: s.Line}
	c.SubLines = make([]Line, len(s.SubLines))
	copy(c.SubLines, s.SubLines)
	return c
}

// Parts returns the sub-lines of s.
func (s *VirtualStatement) Parts() []Line { return s.SubLines }

// Entry is an element of Hunk.Lines: a *Line or a *VirtualStatement.
type Entry interface {
	// Base returns the entry's prefix, content and first line number.
	Base() *Line
	// Parts returns the physical lines the entry was built from.
	Parts() []Line
}

// Hunk is one contiguous block of a unified diff.
type Hunk struct {
	SrcStart int
	SrcLen   int
	TgtStart int
	TgtLen   int

	Lines      []Entry
	DelIndices []int
	AddIndices []int
}

// Header renders the hunk's "@@ -a,b +c,d @@" line.
func (h *Hunk) Header() string {
	return fmt.Sprintf("@@ -%d,%d +%d,%d @@", h.SrcStart, h.SrcLen, h.TgtStart, h.TgtLen)
}

// IsDeleted reports whether Lines[i] is a deleted-only entry.
func (h *Hunk) IsDeleted(i int) bool { return containsIndex(h.DelIndices, i) }

// IsAdded reports whether Lines[i] is an added-only entry.
func (h *Hunk) IsAdded(i int) bool { return containsIndex(h.AddIndices, i) }

// Current returns the indices of entries present in the file after the
// change, i.e. every entry except the deleted-only ones.
func (h *Hunk) Current() []int {
	out := make([]int, 0, len(h.Lines))
	for i := range h.Lines {
		if !h.IsDeleted(i) {
			out = append(out, i)
		}
	}
	return out
}

// Additions returns the added-only entries in order.
func (h *Hunk) Additions() []Entry { return h.pick(h.AddIndices) }

// Deletions returns the deleted-only entries in order.
func (h *Hunk) Deletions() []Entry { return h.pick(h.DelIndices) }

func (h *Hunk) pick(idx []int) []Entry {
	out := make([]Entry, 0, len(idx))
	for _, i := range idx {
		out = append(out, h.Lines[i])
	}
	return out
}

func (h *Hunk) push(e Entry) {
	switch e.Base().Prefix {
	case Deleted:
		h.DelIndices = append(h.DelIndices, len(h.Lines))
	case Added:
		h.AddIndices = append(h.AddIndices, len(h.Lines))
	}
	h.Lines = append(h.Lines, e)
}

// check verifies that the index sets refer to entries of Lines with the
// matching prefix and do not overlap.
func (h *Hunk) check() error {
	seen := make(map[int]Prefix, len(h.DelIndices)+len(h.AddIndices))
	for _, set := range []struct {
		p   Prefix
		idx []int
	}{{Deleted, h.DelIndices}, {Added, h.AddIndices}} {
		for _, i := range set.idx {
			if i < 0 || i >= len(h.Lines) {
				return fmt.Errorf("%s index %d out of range [0,%d)", set.p, i, len(h.Lines))
			}
			if prev, ok := seen[i]; ok {
				return fmt.Errorf("index %d is both %s and %s", i, prev, set.p)
			}
			if got := h.Lines[i].Base().Prefix; got != set.p {
				return fmt.Errorf("index %d marked %s but entry is %s", i, set.p, got)
			}
			seen[i] = set.p
		}
	}
	return nil
}

func containsIndex(idx []int, i int) bool {
	for _, v := range idx {
		if v == i {
			return true
		}
	}
	return false
}

// Patch is the parsed form of one file's diff.
type Patch struct {
	Name     string
	Revision string
	Hunks    []*Hunk
}
