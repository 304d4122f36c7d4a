package patch

import "fmt"

// View selects which entries of a hunk a consumer sees.
type View int

const (
	// ViewCurrent is every entry present after the change: deleted-only
	// entries are skipped.
	ViewCurrent View = iota
	// ViewAdditions is the added-only entries.
	ViewAdditions
	// ViewAll is the literal diff, every entry in order.
	ViewAll
)

// String returns "current", "additions" or "all".
func (v View) String() string {
	switch v {
	case ViewCurrent:
		return "current"
	case ViewAdditions:
		return "additions"
	case ViewAll:
		return "all"
	default:
		return fmt.Sprintf("View(%d)", int(v))
	}
}

// ParseView parses the name of a view.
func ParseView(s string) (View, error) {
	for _, v := range []View{ViewCurrent, ViewAdditions, ViewAll} {
		if v.String() == s {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown view %q", s)
}

// Indices returns the indices of h.Lines that v selects, in order.
func (h *Hunk) Indices(v View) []int {
	switch v {
	case ViewAdditions:
		return append([]int(nil), h.AddIndices...)
	case ViewAll:
		out := make([]int, len(h.Lines))
		for i := range out {
			out[i] = i
		}
		return out
	default:
		return h.Current()
	}
}

// Cursor identifies an entry during a Walk.
type Cursor struct {
	Patch     *Patch
	Hunk      *Hunk
	HunkIndex int
	Index     int
	Entry     Entry
}

// Walk calls fn for every entry present in the file after the change,
// hunk by hunk in order; deleted-only entries are skipped. It stops early
// when fn returns false.
func (p *Patch) Walk(fn func(c Cursor) bool) {
	p.WalkView(ViewCurrent, fn)
}

// WalkView is Walk over the entries selected by v.
func (p *Patch) WalkView(v View, fn func(c Cursor) bool) {
	for hi, h := range p.Hunks {
		for _, i := range h.Indices(v) {
			if !fn(Cursor{Patch: p, Hunk: h, HunkIndex: hi, Index: i, Entry: h.Lines[i]}) {
				return
			}
		}
	}
}

// Entries returns the number of entries across all hunks.
func (p *Patch) Entries() int {
	n := 0
	for _, h := range p.Hunks {
		n += len(h.Lines)
	}
	return n
}
