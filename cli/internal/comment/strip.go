package comment

import "strings"

// StripLine removes the comments that start and end on text using the
// default Scanner.
func StripLine(text string) string {
	return defaultScanner.StripLine(text)
}

// StripLine removes same-line comments from text, leaving literals intact.
//
// A block comment is removed when its first "/*" and last "*/" both lie
// outside literals and the "*/" does not reuse the star of the "/*" (so
// "/*/" stays). A "//" outside literals then cuts the rest of the line,
// including its newline. Unpaired "/*" or "*/" markers are kept: they mark
// block comments that continue on other lines.
func (s *Scanner) StripLine(text string) string {
	ranges := s.StringRanges(text)
	openAt := indexOutside(text, "/*", ranges, false)
	closeAt := indexOutside(text, "*/", ranges, true)
	if openAt >= 0 && closeAt > openAt+1 {
		text = text[:openAt] + text[closeAt+2:]
		ranges = s.StringRanges(text)
	}
	if i := indexOutside(text, "//", ranges, false); i >= 0 {
		text = text[:i]
	}
	return text
}

// indexOutside returns the offset of the first (or last) non-overlapping
// occurrence of tok in text that starts outside ranges, or -1.
func indexOutside(text, tok string, ranges []Range, last bool) int {
	found := -1
	for i := 0; i+len(tok) <= len(text); {
		j := strings.Index(text[i:], tok)
		if j < 0 {
			break
		}
		pos := i + j
		if !InRange(pos, ranges) {
			if !last {
				return pos
			}
			found = pos
		}
		i = pos + len(tok)
	}
	return found
}

// OpensBlock reports whether text, trimmed, starts a block comment.
func OpensBlock(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), "/*")
}

// ClosesBlock reports whether text, trimmed, ends a block comment.
func ClosesBlock(text string) bool {
	return strings.HasSuffix(strings.TrimSpace(text), "*/")
}

// IsComment reports whether text, trimmed, looks like a comment line:
// a line comment, a block opener, or a block continuation starting with '*'.
func IsComment(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "//") || strings.HasPrefix(t, "/*") || strings.HasPrefix(t, "*")
}
