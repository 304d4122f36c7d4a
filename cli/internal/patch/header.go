package patch

import (
	"regexp"
	"strconv"
)

// hunkHeaderRegex matches "@@ -s,l +s,l @@" with optional lengths and the
// rest of the header line (function context), newline included.
var hunkHeaderRegex = regexp.MustCompile(`@@ -(\d+),?(\d+)? \+(\d+),?(\d+)? @@[^\n]*\n`)

// Section is one hunk header found in a diff stream together with the byte
// range of the body that follows it.
type Section struct {
	Hunk      Hunk
	BodyStart int
	BodyEnd   int
}

// ParseHeader parses a single hunk header line. A missing length means the
// header names a single line and is reported as 0, as git writes it
// ("@@ -1 +1,21 @@").
func ParseHeader(line string) (Hunk, bool) {
	if n := len(line); n == 0 || line[n-1] != '\n' {
		line += "\n"
	}
	m := hunkHeaderRegex.FindStringSubmatch(line)
	if m == nil {
		return Hunk{}, false
	}
	return hunkFromMatch(m), true
}

// SplitHunks finds every hunk header in text and returns the sections in
// order. Each body runs from the end of its header to the start of the next
// header, or to the end of text for the last one. Text without headers
// yields no sections.
func SplitHunks(text string) []Section {
	locs := hunkHeaderRegex.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return nil
	}
	out := make([]Section, 0, len(locs))
	for i, loc := range locs {
		m := make([]string, len(loc)/2)
		for g := range m {
			if loc[2*g] >= 0 {
				m[g] = text[loc[2*g]:loc[2*g+1]]
			}
		}
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		out = append(out, Section{Hunk: hunkFromMatch(m), BodyStart: loc[1], BodyEnd: end})
	}
	return out
}

func hunkFromMatch(m []string) Hunk {
	num := func(s string) int {
		if s == "" {
			return 0
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			// Only reachable for values beyond int range.
			return 0
		}
		return n
	}
	return Hunk{
		SrcStart: num(m[1]),
		SrcLen:   num(m[2]),
		TgtStart: num(m[3]),
		TgtLen:   num(m[4]),
	}
}
