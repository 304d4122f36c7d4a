// Package locate runs rules over the statements of parsed patches and
// reports each match at the physical line that produced it.
package locate

import (
	"fmt"
	"strings"

	"rscan/cli/internal/findings"
	"rscan/cli/internal/patch"
	"rscan/cli/internal/rules"
)

// AtGroup is the name of the capture group whose end, when it took part in
// a match, locates the finding instead of the end of the whole match.
const AtGroup = "at"

// RuleSource resolves the rules that apply to a file.
type RuleSource interface {
	RulesForFile(path string) ([]rules.Rule, error)
}

// Patch matches rs against the entries of p selected by view, in order.
func Patch(p *patch.Patch, rs []rules.Rule, view patch.View) []findings.Finding {
	var out []findings.Finding
	p.WalkView(view, func(c patch.Cursor) bool {
		for i := range rs {
			out = append(out, matchEntry(p, c.Entry, &rs[i])...)
		}
		return true
	})
	return out
}

// Run matches every patch against the rules src gives for its file, then
// assigns IDs and sorts the result.
func Run(patches []*patch.Patch, src RuleSource, view patch.View) ([]findings.Finding, error) {
	var out []findings.Finding
	for _, p := range patches {
		rs, err := src.RulesForFile(p.Name)
		if err != nil {
			return nil, fmt.Errorf("rules for %s: %w", p.Name, err)
		}
		if len(rs) == 0 {
			continue
		}
		out = append(out, Patch(p, rs, view)...)
	}
	findings.AssignIDs(out)
	findings.Sort(out)
	return out, nil
}

func matchEntry(p *patch.Patch, e patch.Entry, r *rules.Rule) []findings.Finding {
	content := e.Base().Content
	if content == "" {
		return nil
	}
	if r.Trim {
		content = strings.TrimSpace(content)
	}
	re := r.Regexp()
	if re == nil {
		if r.Keyword == "" || !strings.Contains(content, r.Keyword) {
			return nil
		}
		return []findings.Finding{newFinding(p, e, r, patch.ResolveKeyword(e, r.Keyword), r.Keyword)}
	}
	at := re.SubexpIndex(AtGroup)
	var out []findings.Finding
	for _, m := range re.FindAllStringSubmatchIndex(content, -1) {
		end := m[1]
		if at > 0 && m[2*at] >= 0 {
			end = m[2*at+1]
		}
		n := patch.ResolveOffset(e, end, r.Trim)
		out = append(out, newFinding(p, e, r, n, content[m[0]:m[1]]))
	}
	return out
}

func newFinding(p *patch.Patch, e patch.Entry, r *rules.Rule, n patch.LineNo, match string) findings.Finding {
	base := e.Base()
	tgt := base.Prefix != patch.Deleted
	f := findings.Finding{
		Type:        r.Name,
		File:        p.Name,
		Revision:    p.Revision,
		Line:        axis(n, tgt),
		LineNo:      n,
		Prefix:      base.Prefix,
		Priority:    r.Priority,
		Description: r.Description,
		Match:       strings.TrimSpace(match),
		LineContent: strings.TrimRight(base.Content, "\r\n"),
	}
	parts := e.Parts()
	for _, l := range parts {
		if l.LineNo == n {
			f.LineContent = strings.TrimRight(l.Content, "\r\n")
			break
		}
	}
	if len(parts) > 1 {
		start := axis(parts[0].LineNo, tgt)
		end := axis(parts[len(parts)-1].LineNo, tgt)
		if start > 0 && end >= start && f.Line >= start && f.Line <= end {
			f.Range = &findings.LineRange{Start: start, End: end}
		}
	}
	return f
}

// axis picks the target line, or the source line for an entry that only
// exists before the change, falling back to whichever side is present.
func axis(n patch.LineNo, tgt bool) int {
	if tgt && n.HasTgt() {
		return n.Tgt
	}
	if n.HasSrc() {
		return n.Src
	}
	return n.Tgt
}
