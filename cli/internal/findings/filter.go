package findings

import (
	"sort"

	"rscan/cli/internal/hunkid"
	"rscan/cli/internal/patch"
)

// Filter returns the findings at level or more important, keeping order.
func Filter(list []Finding, level Priority) []Finding {
	out := make([]Finding, 0, len(list))
	for _, f := range list {
		if f.Priority <= level {
			out = append(out, f)
		}
	}
	return out
}

// Sort orders findings by file, line, then type.
func Sort(list []Finding) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Type < b.Type
	})
}

// AssignIDs sets a stable ID on every finding that has none. Findings on
// deleted lines are numbered on the old file, so their IDs are kept apart
// from findings on the new file.
func AssignIDs(list []Finding) {
	for i := range list {
		if list[i].ID != "" {
			continue
		}
		f := list[i]
		pattern := f.Type
		if f.Prefix == patch.Deleted {
			pattern += "@" + f.Prefix.String()
		}
		list[i].ID = hunkid.FindingID(f.File, f.Line, pattern, f.Match)
	}
}
