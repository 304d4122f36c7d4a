// Package history keeps a log of locate runs in .rscan/history.jsonl so
// the findings of past scans can be listed and compared. Each line is one
// JSON Record. The active file is bounded; older records move to gzipped
// archives.
package history

import (
	"time"

	"rscan/cli/internal/findings"
)

// Record is one locate run.
type Record struct {
	Time time.Time `json:"time"`
	// Base and Head are the revision range scanned; Input is the patch
	// file when the run read one instead.
	Base  string `json:"base,omitempty"`
	Head  string `json:"head,omitempty"`
	Input string `json:"input,omitempty"`
	View  string `json:"view"`
	// Files is the number of parsed files, including those without
	// findings.
	Files    int                `json:"files"`
	Findings []findings.Finding `json:"findings"`
}

// Counts returns the number of findings per priority.
func (r Record) Counts() map[findings.Priority]int {
	out := make(map[findings.Priority]int)
	for _, f := range r.Findings {
		out[f.Priority]++
	}
	return out
}

// Scope describes what the run scanned: "base..head", "base..(worktree)"
// or the input path.
func (r Record) Scope() string {
	if r.Input != "" {
		return r.Input
	}
	head := r.Head
	if head == "" {
		head = "(worktree)"
	}
	return r.Base + ".." + head
}
