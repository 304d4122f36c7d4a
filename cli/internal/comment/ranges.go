// Package comment locates string and char literals on a single source line
// and strips the comments that lie outside them. It understands the
// C-family comment syntax only (// and /* */); it does not track block
// comments across lines, which is the caller's job.
package comment

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of distinct lines whose literal ranges are
// memoised by a Scanner created with a non-positive size.
const DefaultCacheSize = 500

// maxCharLiteral bounds the distance between the quotes of a char literal
// ('\uffff' is the longest form). A lone apostrophe further away than this
// from the next one is prose, not a literal.
const maxCharLiteral = 8

// Range is a half-open byte range [Start, End) within a line.
type Range struct {
	Start int
	End   int
}

// Contains reports whether offset lies inside r.
func (r Range) Contains(offset int) bool {
	return r.Start <= offset && offset < r.End
}

// Scanner finds literal ranges and strips comments. Literal ranges are
// memoised per line text in a bounded LRU; the cache is safe for
// concurrent use, so one Scanner may be shared by parsers running in
// parallel.
type Scanner struct {
	cache *lru.Cache[string, []Range]
}

// NewScanner returns a Scanner whose literal-range cache holds up to size
// lines. A non-positive size selects DefaultCacheSize.
func NewScanner(size int) *Scanner {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []Range](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &Scanner{cache: cache}
}

var defaultScanner = NewScanner(DefaultCacheSize)

// Default returns the process-wide Scanner used by the package-level helpers.
func Default() *Scanner {
	return defaultScanner
}

// StringRanges returns the literal ranges of text using the default Scanner.
func StringRanges(text string) []Range {
	return defaultScanner.StringRanges(text)
}

// StringRanges returns the byte ranges of text covered by string and char
// literals, in order. A double-quoted literal starts at an unescaped quote
// and ends at the next unescaped quote; an unterminated literal extends to
// the end of text. The returned slice is shared with the cache and must not
// be modified.
func (s *Scanner) StringRanges(text string) []Range {
	if text == "" {
		return nil
	}
	if s == nil || s.cache == nil {
		return scanRanges(text)
	}
	if r, ok := s.cache.Get(text); ok {
		return r
	}
	r := scanRanges(text)
	s.cache.Add(text, r)
	return r
}

// Len returns the number of memoised lines.
func (s *Scanner) Len() int {
	if s == nil || s.cache == nil {
		return 0
	}
	return s.cache.Len()
}

func scanRanges(text string) []Range {
	var out []Range
	i := 0
	for i < len(text) {
		switch text[i] {
		case '"':
			end := closingQuote(text, i+1, '"', len(text))
			if end < 0 {
				return append(out, Range{Start: i, End: len(text)})
			}
			out = append(out, Range{Start: i, End: end + 1})
			i = end + 1
		case '\'':
			limit := i + 1 + maxCharLiteral
			if limit > len(text) {
				limit = len(text)
			}
			end := closingQuote(text, i+1, '\'', limit)
			if end < 0 {
				i++
				continue
			}
			out = append(out, Range{Start: i, End: end + 1})
			i = end + 1
		default:
			i++
		}
	}
	return out
}

// closingQuote returns the index of the first unescaped q in text[from:limit],
// or -1.
func closingQuote(text string, from int, q byte, limit int) int {
	for j := from; j < limit; j++ {
		switch text[j] {
		case '\\':
			j++
		case q:
			return j
		case '\n':
			if q == '\'' {
				return -1
			}
		}
	}
	return -1
}

// InRange reports whether offset lies inside any of ranges.
func InRange(offset int, ranges []Range) bool {
	for _, r := range ranges {
		if r.Contains(offset) {
			return true
		}
	}
	return false
}
