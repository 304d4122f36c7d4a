package findings

import (
	"errors"
	"fmt"
)

// Validate checks that the finding names a pattern, a file and a line, has
// a known priority, and that Range, when present, is ordered and contains
// Line.
func (f *Finding) Validate() error {
	if f == nil {
		return errors.New("finding is nil")
	}
	if f.Type == "" {
		return errors.New("type is required")
	}
	if f.File == "" {
		return errors.New("file is required")
	}
	if f.Line <= 0 {
		return fmt.Errorf("line %d must be positive", f.Line)
	}
	if _, ok := priorityNames[f.Priority]; !ok {
		return fmt.Errorf("invalid priority %d", int(f.Priority))
	}
	if r := f.Range; r != nil {
		if r.Start > r.End {
			return fmt.Errorf("range start %d must be <= end %d", r.Start, r.End)
		}
		if f.Line < r.Start || f.Line > r.End {
			return fmt.Errorf("line %d outside range %d-%d", f.Line, r.Start, r.End)
		}
	}
	return nil
}
