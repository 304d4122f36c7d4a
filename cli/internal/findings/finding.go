// Package findings defines the records produced when a pattern matches a
// rebuilt statement: where it matched, how confident the pattern is, and
// the text involved. It is the single schema for locate output.
package findings

import (
	"fmt"
	"strconv"
	"strings"

	"rscan/cli/internal/patch"
)

// Priority ranks a finding; lower is more important. The values order the
// levels accepted by Filter.
type Priority int

const (
	PriorityHigh Priority = iota + 1
	PriorityMedium
	PriorityLow
	PriorityExperimental
	PriorityIgnore
)

var priorityNames = map[Priority]string{
	PriorityHigh:         "high",
	PriorityMedium:       "medium",
	PriorityLow:          "low",
	PriorityExperimental: "exp",
	PriorityIgnore:       "ignore",
}

// String returns the level name: high, medium, low, exp or ignore.
func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return "Priority(" + strconv.Itoa(int(p)) + ")"
}

// Label returns the confidence wording used in one-line reports.
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "HIGH Confidence"
	case PriorityMedium:
		return "MEDIUM Confidence"
	case PriorityLow:
		return "LOW Confidence"
	case PriorityExperimental:
		return "EXPERIMENTAL"
	default:
		return "IGNORE Confidence"
	}
}

// ParsePriority parses a level name, case-insensitively. "experimental" is
// accepted for exp.
func ParsePriority(s string) (Priority, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	if norm == "experimental" {
		return PriorityExperimental, nil
	}
	for p, name := range priorityNames {
		if name == norm {
			return p, nil
		}
	}
	return 0, fmt.Errorf("invalid priority %q; use high, medium, low, exp, or ignore", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// LineRange is a span of lines, both ends inclusive.
type LineRange struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// Finding is one pattern match. Line is the reported line: the target line,
// or the source line for an entry that only exists before the change.
// Range spans the whole statement on the same side when it covers more
// than one physical line.
type Finding struct {
	ID          string       `json:"id,omitempty" yaml:"id,omitempty"`
	Type        string       `json:"type" yaml:"type"`
	File        string       `json:"file" yaml:"file"`
	Revision    string       `json:"revision,omitempty" yaml:"revision,omitempty"`
	Line        int          `json:"line" yaml:"line"`
	LineNo      patch.LineNo `json:"line_no" yaml:"line_no"`
	Prefix      patch.Prefix `json:"prefix" yaml:"prefix"`
	Range       *LineRange   `json:"range,omitempty" yaml:"range,omitempty"`
	Priority    Priority     `json:"priority" yaml:"priority"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Match       string       `json:"match" yaml:"match"`
	LineContent string       `json:"line_content" yaml:"line_content"`
	URI         string       `json:"uri,omitempty" yaml:"uri,omitempty"`
}

// String formats f as "file:line:confidence:type".
func (f Finding) String() string {
	return f.File + ":" + strconv.Itoa(f.Line) + ":" + f.Priority.Label() + ":" + f.Type
}
