package patch

import (
	"strings"
	"unicode"
)

// LineNoAt returns the line number of the sub-line containing byte offset
// within s.Content. Offsets are counted as in a regexp match end: the
// sub-line whose cumulative length first reaches offset wins. With trim,
// the first sub-line is measured without leading whitespace and the last
// without trailing whitespace, matching a match taken on trimmed content.
// ok is false when offset lies beyond the statement.
func (s *VirtualStatement) LineNoAt(offset int, trim bool) (n LineNo, ok bool) {
	last := len(s.SubLines) - 1
	for i, l := range s.SubLines {
		c := l.Content
		switch {
		case trim && i == 0:
			c = strings.TrimLeftFunc(c, unicode.IsSpace)
		case trim && i == last:
			c = strings.TrimRightFunc(c, unicode.IsSpace)
		}
		offset -= len(c)
		if offset <= 0 {
			return l.LineNo, true
		}
	}
	return LineNo{}, false
}

// LineNoOf returns the line number of the first sub-line containing
// keyword, or contained in it when normalisation upstream shortened the
// keyword's source text. Blank sub-lines never match.
func (s *VirtualStatement) LineNoOf(keyword string) (n LineNo, ok bool) {
	for _, l := range s.SubLines {
		if strings.Contains(l.Content, keyword) || (l.Content != "" && strings.Contains(keyword, l.Content)) {
			return l.LineNo, true
		}
	}
	return LineNo{}, false
}

// tail is the fallback location: the first line shifted to the last
// sub-line, so a reviewer is always pointed at a line of the statement.
func (s *VirtualStatement) tail() LineNo {
	return s.LineNo.Shift(len(s.SubLines) - 1)
}

// ResolveOffset maps an offset inside e's content to a physical line
// number. It always returns a location: a plain line resolves to itself,
// and an offset beyond a statement resolves to the statement's tail.
func ResolveOffset(e Entry, offset int, trim bool) LineNo {
	s, ok := e.(*VirtualStatement)
	if !ok {
		return e.Base().LineNo
	}
	if n, ok := s.LineNoAt(offset, trim); ok {
		return n
	}
	return s.tail()
}

// ResolveKeyword maps a keyword found in e's content to a physical line
// number, with the same fallbacks as ResolveOffset.
func ResolveKeyword(e Entry, keyword string) LineNo {
	s, ok := e.(*VirtualStatement)
	if !ok {
		return e.Base().LineNo
	}
	if n, ok := s.LineNoOf(keyword); ok {
		return n
	}
	return s.tail()
}
