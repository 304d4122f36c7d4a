// Package diff turns git history into per-file unified diff text for the
// patch parser.
//
// # Scope
// Only tracked files appear; git diff does not report ignored files.
// Binary files and mode-only changes carry no hunks and are dropped.
//
// # Filters
// Generated and vendored files are excluded by default (*.pb.go,
// *_generated.go, *.min.js, package-lock.json, go.sum, vendor/). Only
// C-family sources are kept by default, since the statement rebuilder
// understands their comment and statement syntax and nothing else. Both
// lists can be replaced through Options.
//
// # Empty diff
// When the range has no changes, Files returns a nil slice and no error.
package diff

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"rscan/cli/internal/git"
)

// File is the diff of one file: its repository-relative path on the new
// side (old side for deletions) and the hunks, headers included, as
// unified diff text.
type File struct {
	Path     string
	OrigPath string
	Text     string
	Hunks    int
}

// Skip records a file left out by the filters.
type Skip struct {
	Path   string
	Reason string
}

// Options configures the filters. Nil fields select the defaults; an empty
// non-nil slice disables that filter.
type Options struct {
	// ExcludePatterns are filepath.Match patterns tried against the full
	// path and the base name. "vendor/..." patterns match the vendor tree.
	ExcludePatterns []string
	// Extensions lists the file extensions to keep, lowercase with a dot.
	Extensions []string
}

// DefaultExcludePatterns are used when Options.ExcludePatterns is nil.
var DefaultExcludePatterns = []string{
	"*.pb.go",
	"*_generated.go",
	"*.min.js",
	"package-lock.json",
	"go.sum",
	"vendor/*",
	"vendor/**/*",
}

// DefaultExtensions are used when Options.Extensions is nil.
var DefaultExtensions = []string{
	".java", ".c", ".h", ".cc", ".cpp", ".hpp", ".cs",
	".js", ".ts", ".kt", ".scala", ".go", ".swift",
}

// Files diffs baseRef..headRef in repoRoot (headRef "" means the working
// tree), splits the result per file and applies the filters. Skipped files
// are returned so the caller can report them.
func Files(ctx context.Context, repoRoot, baseRef, headRef string, opts *Options) ([]File, []Skip, error) {
	if repoRoot == "" {
		return nil, nil, fmt.Errorf("diff: repoRoot required")
	}
	out, err := git.Diff(ctx, repoRoot, baseRef, headRef)
	if err != nil {
		return nil, nil, err
	}
	return splitAndFilter(out, opts)
}

// Commit returns the per-file diff introduced by commit sha.
func Commit(ctx context.Context, repoRoot, sha string, opts *Options) ([]File, []Skip, error) {
	if repoRoot == "" {
		return nil, nil, fmt.Errorf("diff: repoRoot required")
	}
	out, err := git.Show(ctx, repoRoot, sha)
	if err != nil {
		return nil, nil, err
	}
	return splitAndFilter(out, opts)
}

func splitAndFilter(text string, opts *Options) ([]File, []Skip, error) {
	files, err := SplitFiles(text)
	if err != nil {
		return nil, nil, fmt.Errorf("parse diff: %w", err)
	}
	kept, skipped := Filter(files, opts)
	if len(kept) == 0 {
		return nil, skipped, nil
	}
	return kept, skipped, nil
}

// Filter splits files into those kept and those excluded by opts.
func Filter(files []File, opts *Options) (kept []File, skipped []Skip) {
	patterns := DefaultExcludePatterns
	exts := DefaultExtensions
	if opts != nil {
		if opts.ExcludePatterns != nil {
			patterns = opts.ExcludePatterns
		}
		if opts.Extensions != nil {
			exts = opts.Extensions
		}
	}
	for _, f := range files {
		path := filepath.ToSlash(f.Path)
		if p, ok := excluded(path, patterns); ok {
			skipped = append(skipped, Skip{Path: f.Path, Reason: "matches " + p})
			continue
		}
		if len(exts) > 0 && !hasExtension(path, exts) {
			skipped = append(skipped, Skip{Path: f.Path, Reason: "unsupported extension"})
			continue
		}
		kept = append(kept, f)
	}
	return kept, skipped
}

// excluded returns the first pattern matching path.
func excluded(path string, patterns []string) (string, bool) {
	for _, p := range patterns {
		// filepath.Match has no "**"; vendor patterns match the whole tree.
		if strings.HasPrefix(p, "vendor") {
			if path == "vendor" || strings.HasPrefix(path, "vendor/") {
				return p, true
			}
			continue
		}
		if ok, err := filepath.Match(p, path); err == nil && ok {
			return p, true
		}
		if ok, _ := filepath.Match(p, filepath.Base(path)); ok {
			return p, true
		}
	}
	return "", false
}

func hasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}
