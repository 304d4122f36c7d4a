package diff

import (
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

// IsMultiFile reports whether text carries per-file headers ("diff --git"
// or "--- a/x" / "+++ b/x") rather than bare hunks.
func IsMultiFile(text string) bool {
	if strings.HasPrefix(text, "diff --git ") || strings.Contains(text, "\ndiff --git ") {
		return true
	}
	return (strings.HasPrefix(text, "--- ") || strings.Contains(text, "\n--- ")) &&
		strings.Contains(text, "\n+++ ")
}

// SplitFiles splits a multi-file unified diff into one File per changed
// file, re-rendering each file's hunks as unified diff text. Files without
// hunks (binary, mode-only, empty additions) are dropped. Empty input
// yields nil.
func SplitFiles(text string) ([]File, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	fds, err := godiff.ParseMultiFileDiff([]byte(text))
	if err != nil {
		return nil, err
	}
	var files []File
	for _, fd := range fds {
		if len(fd.Hunks) == 0 {
			continue
		}
		body, err := godiff.PrintHunks(fd.Hunks)
		if err != nil {
			return nil, err
		}
		orig, next := trimDiffPath(fd.OrigName), trimDiffPath(fd.NewName)
		path := next
		if path == "" || path == devNull {
			path = orig
		}
		if orig == devNull {
			orig = ""
		}
		files = append(files, File{Path: path, OrigPath: orig, Text: string(body), Hunks: len(fd.Hunks)})
	}
	return files, nil
}

// trimDiffPath drops the "a/" or "b/" prefix git puts on paths and any
// tab-separated timestamp.
func trimDiffPath(s string) string {
	if i := strings.IndexByte(s, '\t'); i >= 0 {
		s = s[:i]
	}
	if len(s) >= 2 && (s[0] == 'a' || s[0] == 'b') && s[1] == '/' {
		return s[2:]
	}
	return s
}
