package patch

// recoverOpenComment handles a "*/" seen on a side that has no open block
// comment in view: the comment was opened above the first line of the
// hunk. Everything emitted so far on the closing line's side was comment
// text, so those entries are removed; common entries were code only on the
// other side and take its prefix. When the closing line is common, both
// sides were inside the comment and the hunk body so far is discarded.
func (a *accumulator) recoverOpenComment(closing Line) {
	h := a.hunk
	a.tr.Printf("recover comment opened above hunk, closed by %s line at %s\n", closing.Prefix, closing.LineNo)
	if closing.Prefix == Common {
		h.Lines, h.DelIndices, h.AddIndices = nil, nil, nil
		return
	}
	kept := h.Lines
	h.Lines, h.DelIndices, h.AddIndices = nil, nil, nil
	for _, e := range kept {
		b := e.Base()
		if b.Prefix == closing.Prefix {
			continue
		}
		if b.Prefix == Common {
			b.Prefix = closing.Prefix.Opposite()
		}
		h.push(e)
	}
}
