// Package hunkid derives stable identifiers for parsed hunks, statements
// and findings so reports from different runs can be matched. HunkID is
// strict: any byte change in the hunk changes it. StatementID is semantic:
// it ignores comments and whitespace, so reformatting a statement keeps
// its ID.
package hunkid

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"rscan/cli/internal/comment"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// HunkID returns a deterministic ID for a hunk from the file path, its
// header ("@@ -a,b +c,d @@") and raw body. CRLF is normalised to LF so the
// same change checked out on different platforms keeps its ID.
func HunkID(path, header, body string) string {
	return hashString(path + ":" + header + "\n" + normalizeCRLF(body))
}

// StatementID returns a deterministic ID for a logical statement. Content
// is stripped of same-line comments outside literals, then runs of
// whitespace are collapsed, so "a  =  b; // x" and "a = b;" share an ID.
func StatementID(path, content string) string {
	return hashString(path + ":" + codeOnly(content))
}

// FindingID returns a deterministic ID for a pattern match from its file,
// reported line, pattern name and matched text. Whitespace in the match is
// collapsed so a reflowed statement keeps its ID. A non-positive line is
// clamped to 1.
func FindingID(file string, line int, pattern, match string) string {
	if line <= 0 {
		line = 1
	}
	stem := strings.TrimSpace(whitespaceRegex.ReplaceAllString(match, " "))
	return hashString(file + ":" + strconv.Itoa(line) + ":" + pattern + ":" + stem)
}

// Short returns the first 12 hex digits of id, for human output.
func Short(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}

func normalizeCRLF(s string) string {
	return strings.ReplaceAll(s, "\r\n", "\n")
}

// codeOnly strips comments line by line and collapses whitespace.
func codeOnly(content string) string {
	lines := strings.SplitAfter(normalizeCRLF(content), "\n")
	var b strings.Builder
	for _, l := range lines {
		b.WriteString(comment.StripLine(l))
		b.WriteByte(' ')
	}
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(b.String(), " "))
}

func hashString(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}
