package findings

import (
	"path/filepath"
	"strconv"
)

// SetURIs fills URI on findings that have none with a file:// URI for
// repoRoot/File, anchored at the statement range or the line. Findings
// whose path cannot be made absolute are left alone.
func SetURIs(repoRoot string, list []Finding) {
	for i := range list {
		f := &list[i]
		if f.URI != "" {
			continue
		}
		abs, err := filepath.Abs(filepath.Join(repoRoot, f.File))
		if err != nil {
			continue
		}
		uri := "file://" + filepath.ToSlash(abs)
		switch {
		case f.Range != nil && f.Range.Start > 0 && f.Range.End > f.Range.Start:
			uri += "#L" + strconv.Itoa(f.Range.Start) + "-" + strconv.Itoa(f.Range.End)
		case f.Line > 0:
			uri += "#L" + strconv.Itoa(f.Line)
		}
		f.URI = uri
	}
}
