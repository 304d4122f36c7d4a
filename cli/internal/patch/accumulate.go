package patch

import (
	"strings"

	"rscan/cli/internal/comment"
	"rscan/cli/internal/trace"
)

// sideMode is the block-comment state of one side of a hunk.
type sideMode int

const (
	// sideCode is outside any block comment.
	sideCode sideMode = iota
	// sideComment is inside a block comment that has not been closed yet.
	sideComment
)

// side is the deleted or the added view of a hunk. Its statement may be
// nil even in sideComment, when the comment was inferred from a closing
// marker on the other side rather than opened in view.
type side struct {
	prefix Prefix
	mode   sideMode
	acc    *VirtualStatement
	// diverged records that a line of this side arrived while a common
	// statement was open, so the common statement no longer describes it.
	diverged bool
}

// accumulator merges the classified lines of one hunk into entries.
//
// A common statement collects lines shared by both sides. A side-specific
// statement is forked from it as soon as one side's view differs; once
// both sides have diverged the common statement is retired. A common line
// sits in a block comment only when both sides do.
type accumulator struct {
	hunk     *Hunk
	tr       *trace.Tracer
	src, tgt int

	common   *VirtualStatement
	del, add side

	// onlyStars stays true while every non-blank line starts with '*'.
	// Such a hunk is the tail of a doc comment and yields no entries.
	onlyStars bool
}

func newAccumulator(h *Hunk, tr *trace.Tracer) *accumulator {
	return &accumulator{
		hunk:      h,
		tr:        tr,
		src:       h.SrcStart - 1,
		tgt:       h.TgtStart - 1,
		del:       side{prefix: Deleted},
		add:       side{prefix: Added},
		onlyStars: true,
	}
}

// consume numbers l and feeds it to the state machine.
func (a *accumulator) consume(l Line) {
	if s := strings.TrimSpace(l.Content); s != "" && !strings.HasPrefix(s, "*") {
		a.onlyStars = false
	}

	var skip bool
	switch l.Prefix {
	case Deleted:
		a.src++
		l.LineNo = LineNo{Src: a.src}
		skip = a.consumeSide(&a.del, &a.add, l)
	case Added:
		a.tgt++
		l.LineNo = LineNo{Tgt: a.tgt}
		skip = a.consumeSide(&a.add, &a.del, l)
	default:
		a.src++
		a.tgt++
		l.LineNo = LineNo{Src: a.src, Tgt: a.tgt}
		skip = a.consumeCommon(l)
	}
	if skip {
		return
	}

	switch {
	case a.common != nil && a.del.diverged && a.add.diverged:
		a.tr.Printf("retire common statement at %s\n", l.LineNo)
		a.common = nil
		a.del.diverged, a.add.diverged = false, false
	case a.common == nil:
		a.del.diverged, a.add.diverged = false, false
	}
}

// consumeSide handles a deleted (s = del) or added (s = add) line. It
// returns true when the line was complete on its own and nothing else
// needs updating.
func (a *accumulator) consumeSide(s, other *side, l Line) bool {
	if a.common != nil {
		s.diverged = true
	}
	switch {
	case !(s.mode == sideComment && other.mode == sideComment) && comment.OpensBlock(l.Content):
		s.mode = sideComment
		if s.acc != nil {
			a.emit(s.acc, s.prefix)
		}
		s.acc = newStatement(l)
	case s.mode == sideComment:
		a.extend(s, l)
		if comment.ClosesBlock(l.Content) {
			a.seal(s)
			s.mode = sideCode
		}
	case comment.ClosesBlock(l.Content):
		a.recoverOpenComment(l)
		s.acc = nil
		if a.common != nil && !other.diverged {
			// The common lines so far were inside the comment on the
			// other side too, and it has not been closed there.
			other.mode = sideComment
		}
	case IsStatementEnd(l.Content):
		if l.Content == "" {
			return true
		}
		if s.acc == nil && (a.common == nil || other.mode == sideComment) {
			a.hunk.push(&l)
			return true
		}
		a.extend(s, l)
		a.seal(s)
	default:
		a.extend(s, l)
	}
	return false
}

// consumeCommon handles an unchanged line.
func (a *accumulator) consumeCommon(l Line) bool {
	del, add := &a.del, &a.add
	switch {
	case del.mode == sideCode && add.mode == sideCode && comment.OpensBlock(l.Content):
		del.mode, add.mode = sideComment, sideComment
		if a.common != nil {
			a.emit(a.common, Common)
		}
		a.common = newStatement(l)
		del.diverged, add.diverged = false, false
		a.flush(del)
		a.flush(add)
	case del.mode == sideComment && add.mode == sideComment:
		if comment.ClosesBlock(l.Content) {
			a.finishAll(l)
			del.mode, add.mode = sideCode, sideCode
		} else {
			a.appendAll(l)
		}
	case del.mode == sideComment:
		return a.consumeOneSided(del, add, l)
	case add.mode == sideComment:
		return a.consumeOneSided(add, del, l)
	case comment.ClosesBlock(l.Content):
		a.recoverOpenComment(l)
		a.common, del.acc, add.acc = nil, nil, nil
	case IsStatementEnd(l.Content):
		if l.Content == "" {
			return true
		}
		if a.common == nil && del.acc == nil && add.acc == nil {
			a.hunk.push(&l)
			return true
		}
		a.finishAll(l)
	default:
		if a.common == nil && del.acc == nil && add.acc == nil {
			a.common = newStatement(l)
			return true
		}
		a.appendAll(l)
	}
	return false
}

// consumeOneSided handles a common line while only side in is inside a
// block comment. For in the line is comment text; for out it is code,
// so it is re-labelled with out's prefix and accumulated there.
func (a *accumulator) consumeOneSided(in, out *side, l Line) bool {
	if comment.ClosesBlock(l.Content) {
		a.extend(in, l)
		a.seal(in)
		in.mode = sideCode
		return false
	}
	a.extend(in, l)

	code := l
	code.Prefix = out.prefix
	if !IsStatementEnd(code.Content) {
		if out.acc == nil {
			out.acc = newStatement(code)
		} else {
			out.acc.append(code)
		}
		return false
	}
	if code.Content == "" {
		return true
	}
	if out.acc == nil {
		a.hunk.push(&code)
	} else {
		out.acc.append(code)
		a.seal(out)
	}
	return false
}

// extend appends l to s's statement, forking the common statement or
// starting a new one when s has none.
func (a *accumulator) extend(s *side, l Line) {
	switch {
	case s.acc != nil:
		s.acc.append(l)
	case a.common != nil:
		s.acc = a.common.fork()
		s.acc.append(l)
		a.tr.Printf("fork %s statement at %s\n", s.prefix, a.common.LineNo)
	default:
		s.acc = newStatement(l)
	}
}

// seal emits s's statement and clears it.
func (a *accumulator) seal(s *side) {
	a.emit(s.acc, s.prefix)
	s.acc = nil
}

// flush emits s's statement, if any, and clears it.
func (a *accumulator) flush(s *side) {
	if s.acc != nil {
		a.seal(s)
	}
}

// appendAll appends l to every open statement.
func (a *accumulator) appendAll(l Line) {
	if a.common != nil {
		a.common.append(l)
	}
	for _, s := range []*side{&a.del, &a.add} {
		if s.acc != nil {
			s.acc.append(l)
		}
	}
}

// finishAll appends l to every open statement and emits them in the order
// common, deleted, added.
func (a *accumulator) finishAll(l Line) {
	if a.common != nil {
		a.common.append(l)
		a.emit(a.common, Common)
		a.common = nil
	}
	for _, s := range []*side{&a.del, &a.add} {
		if s.acc != nil {
			s.acc.append(l)
			a.seal(s)
		}
	}
}

// emit labels st with p and appends it to the hunk. Statements that open
// or close a block comment are comment text and are dropped.
func (a *accumulator) emit(st *VirtualStatement, p Prefix) {
	if comment.OpensBlock(st.Content) || comment.ClosesBlock(st.Content) {
		a.tr.Printf("drop %s comment at %s (%d lines)\n", p, st.LineNo, len(st.SubLines))
		return
	}
	st.Prefix = p
	a.hunk.push(st)
	a.tr.Printf("seal %s statement at %s (%d lines)\n", p, st.LineNo, len(st.SubLines))
}

// finish emits the statements still open at the end of the hunk, unless
// the hunk held nothing but doc comment continuation lines.
func (a *accumulator) finish() {
	if a.onlyStars {
		return
	}
	if a.common != nil {
		a.emit(a.common, Common)
		a.common = nil
	}
	a.flush(&a.del)
	a.flush(&a.add)
}
