// Package scope partitions locate findings into new ones and ones already
// known from a baseline run, so a rescan reports only what changed.
package scope

import (
	"os"

	"gopkg.in/yaml.v3"

	"rscan/cli/internal/erruser"
	"rscan/cli/internal/findings"
	"rscan/cli/internal/hunkid"
)

// Result holds the partition of current findings.
type Result struct {
	// New are findings absent from the baseline.
	New []findings.Finding
	// Known matched a baseline finding by ID (strict) or by file, type and
	// match text regardless of line (moved).
	Known []findings.Finding
}

// Partition splits current against baseline. With an empty baseline every
// finding is new. Findings without an ID only match semantically.
func Partition(current, baseline []findings.Finding) Result {
	if len(current) == 0 {
		return Result{}
	}
	if len(baseline) == 0 {
		return Result{New: current}
	}
	strictIDs := make(map[string]struct{}, len(baseline))
	movedIDs := make(map[string]struct{}, len(baseline))
	for _, f := range baseline {
		if f.ID != "" {
			strictIDs[f.ID] = struct{}{}
		}
		movedIDs[movedID(f)] = struct{}{}
	}

	res := Result{
		New:   make([]findings.Finding, 0, len(current)),
		Known: make([]findings.Finding, 0, len(current)),
	}
	for _, f := range current {
		if _, ok := strictIDs[f.ID]; ok && f.ID != "" {
			res.Known = append(res.Known, f)
			continue
		}
		if _, ok := movedIDs[movedID(f)]; ok {
			res.Known = append(res.Known, f)
			continue
		}
		res.New = append(res.New, f)
	}
	return res
}

// movedID identifies a finding without its line, so one that only shifted
// within its file still matches.
func movedID(f findings.Finding) string {
	return hunkid.FindingID(f.File, 0, f.Type+"@"+f.Prefix.String(), f.Match)
}

// LoadBaseline reads findings written by "rscan locate -o json" or
// "-o yaml". A missing file is an empty baseline.
func LoadBaseline(path string) ([]findings.Finding, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, erruser.Newf(err, "Could not read baseline %s.", path)
	}
	var doc struct {
		Findings []findings.Finding `yaml:"findings"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, erruser.Newf(err, "Could not parse baseline %s.", path)
	}
	return doc.Findings, nil
}
