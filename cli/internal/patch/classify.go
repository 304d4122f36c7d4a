package patch

import (
	"regexp"
	"strings"

	"rscan/cli/internal/comment"
)

var (
	stmtEndRegex    = regexp.MustCompile(`[;{}]\s*$`)
	annotationRegex = regexp.MustCompile(`^@[\w$]+(?:\(.*\))?$`)
)

// splitLines splits text after every newline. A final line without a
// newline is kept; an empty text has no lines.
func splitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

// classify turns one raw line into a Line without a line number. In patch
// mode a line longer than one byte loses its first byte, which selects the
// prefix ('-' deleted, '+' added, anything else common). Same-line comments
// are stripped and whitespace-only content is emptied.
func classify(raw string, isPatch bool, sc *comment.Scanner) Line {
	l := Line{Prefix: Common, Content: raw}
	if isPatch && len(raw) > 1 {
		switch raw[0] {
		case '-':
			l.Prefix = Deleted
		case '+':
			l.Prefix = Added
		}
		l.Content = raw[1:]
	}
	l.Content = sc.StripLine(l.Content)
	if strings.TrimSpace(l.Content) == "" {
		l.Content = ""
	}
	return l
}

// IsStatementEnd reports whether content completes a logical statement:
// blank text, text ending in ';', '{' or '}', a lone annotation, the end of
// a block comment, a line comment, or a case/default label. Block comment
// continuation lines (starting with '*') never end a statement.
func IsStatementEnd(content string) bool {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "*") {
		return false
	}
	if s == "" || stmtEndRegex.MatchString(s) || annotationRegex.MatchString(s) ||
		strings.HasSuffix(s, "*/") || strings.HasPrefix(s, "//") {
		return true
	}
	if strings.HasPrefix(s, "case ") && strings.HasSuffix(s, ":") {
		return true
	}
	return s == "default:"
}
