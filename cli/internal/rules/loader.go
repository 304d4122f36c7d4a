package rules

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// PatternsDir is the directory, relative to any directory of the
// repository, that holds pattern files.
const PatternsDir = ".rscan/patterns"

// Dir is one discovered pattern directory.
type Dir struct {
	// RelPath is the path from the repository root to the directory
	// holding .rscan ("" for the root).
	RelPath string
	// AbsDir is the absolute path of the pattern directory.
	AbsDir string
}

// DiscoverDirs finds every pattern directory under repoRoot, root first
// and then nested ones by path. It does not descend into .git, vendor or
// node_modules.
func DiscoverDirs(repoRoot string) ([]Dir, error) {
	var result []Dir
	err := filepath.WalkDir(repoRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		switch d.Name() {
		case ".git", "vendor", "node_modules":
			return filepath.SkipDir
		case ".rscan":
			patterns := filepath.Join(path, "patterns")
			if info, e := os.Stat(patterns); e == nil && info.IsDir() {
				rel, _ := filepath.Rel(repoRoot, filepath.Dir(path))
				rel = filepath.ToSlash(rel)
				if rel == "." {
					rel = ""
				}
				result = append(result, Dir{RelPath: rel, AbsDir: patterns})
			}
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i].RelPath, result[j].RelPath
		if a == "" || b == "" {
			return a == "" && b != ""
		}
		return a < b
	})
	return result, nil
}

// Loader resolves the rules that apply to a file. Pattern files are read
// once per directory.
type Loader struct {
	dirs  []Dir
	extra []Rule
	cache map[string][]Rule
}

// NewLoader discovers pattern directories under repoRoot. An empty
// repoRoot, as when scanning a patch outside any repository, yields a
// loader with no directories. extra rules apply to every file.
func NewLoader(repoRoot string, extra ...Rule) (*Loader, error) {
	l := &Loader{extra: extra, cache: make(map[string][]Rule)}
	if repoRoot == "" {
		return l, nil
	}
	dirs, err := DiscoverDirs(repoRoot)
	if err != nil {
		return nil, err
	}
	l.dirs = dirs
	return l, nil
}

// Dirs returns the discovered pattern directories.
func (l *Loader) Dirs() []Dir {
	return l.dirs
}

// RulesForFile returns the extra rules, then the rules of every pattern
// directory whose RelPath contains filePath (root first), keeping only
// those whose globs match. filePath is relative to the repository root.
func (l *Loader) RulesForFile(filePath string) ([]Rule, error) {
	slash := filepath.ToSlash(filePath)
	var out []Rule
	for _, r := range l.extra {
		if r.Applies(slash) {
			out = append(out, r)
		}
	}
	for _, d := range l.dirs {
		rel := slash
		if d.RelPath != "" {
			if !strings.HasPrefix(slash, d.RelPath+"/") {
				continue
			}
			rel = strings.TrimPrefix(slash, d.RelPath+"/")
		}
		rules, ok := l.cache[d.AbsDir]
		if !ok {
			var err error
			rules, err = LoadRules(d.AbsDir)
			if err != nil {
				return nil, err
			}
			l.cache[d.AbsDir] = rules
		}
		for _, r := range rules {
			if r.Applies(rel) {
				out = append(out, r)
			}
		}
	}
	return out, nil
}
