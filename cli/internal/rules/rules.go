// Package rules loads locate patterns from YAML files. A pattern file holds
// a list of rules:
//
//	rules:
//	  - name: string-identity
//	    pattern: '(?P<at>[!=]=)\s*"'
//	    priority: medium
//	    description: String compared by reference.
//	    globs: ["*.java"]
//
// A rule has either a regular expression (pattern) or a literal keyword. A
// capture group named "at" moves the reported line to where the group ends.
// Pattern files live in .rscan/patterns directories anywhere in the
// repository; a nested directory's rules apply only below it.
package rules

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"rscan/cli/internal/findings"
)

// Rule is one locate pattern.
type Rule struct {
	Name        string            `yaml:"name"`
	Pattern     string            `yaml:"pattern"`
	Keyword     string            `yaml:"keyword"`
	Priority    findings.Priority `yaml:"priority"`
	Description string            `yaml:"description"`
	Globs       []string          `yaml:"globs"`
	// Trim matches against the statement with surrounding whitespace
	// removed, so anchors like ^ and $ see the code itself.
	Trim bool `yaml:"trim"`
	// Source is the file the rule was read from; empty for rules built in
	// code.
	Source string `yaml:"-"`

	re *regexp.Regexp
}

type file struct {
	Rules []Rule `yaml:"rules"`
}

// Compile checks the rule and prepares its regular expression. A missing
// priority becomes low.
func (r *Rule) Compile() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("rule name is required")
	}
	if (r.Pattern == "") == (r.Keyword == "") {
		return fmt.Errorf("rule %s: exactly one of pattern and keyword is required", r.Name)
	}
	if r.Priority == 0 {
		r.Priority = findings.PriorityLow
	}
	if r.Pattern != "" {
		re, err := regexp.Compile(r.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.Name, err)
		}
		r.re = re
	}
	return nil
}

// Regexp returns the compiled pattern, or nil for a keyword rule.
func (r *Rule) Regexp() *regexp.Regexp {
	return r.re
}

// Applies reports whether the rule covers path, relative to the directory
// that holds the rule's pattern directory. A rule without globs applies to
// every file. Globs containing '/' match the whole path, others the base
// name.
func (r *Rule) Applies(path string) bool {
	if len(r.Globs) == 0 {
		return true
	}
	slash := filepath.ToSlash(path)
	base := filepath.Base(slash)
	for _, pat := range r.Globs {
		pat = filepath.ToSlash(strings.TrimSpace(pat))
		name := base
		if strings.Contains(pat, "/") {
			name = slash
		}
		if ok, err := filepath.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Parse decodes and compiles the rules in data. source names the data in
// errors and is recorded on every rule.
func Parse(data []byte, source string) ([]Rule, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	for i := range f.Rules {
		f.Rules[i].Source = source
		if err := f.Rules[i].Compile(); err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
	}
	return f.Rules, nil
}

// LoadRules reads every .yaml and .yml file in dir, in name order. A
// missing dir yields no rules. A file that fails to parse fails the load.
func LoadRules(dir string) ([]Rule, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	var out []Rule
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		rs, err := Parse(data, path)
		if err != nil {
			return nil, err
		}
		out = append(out, rs...)
	}
	return out, nil
}
