package git

import (
	"context"

	"rscan/cli/internal/erruser"
)

var diffFlags = []string{"--no-color", "--no-ext-diff", "--no-renames"}

// Diff returns the unified diff of base..head. An empty head diffs base
// against the working tree.
func Diff(ctx context.Context, repoRoot, base, head string) (string, error) {
	args := append([]string{"diff"}, diffFlags...)
	if head == "" {
		args = append(args, base)
	} else {
		args = append(args, base+".."+head)
	}
	out, err := output(ctx, repoRoot, args...)
	if err != nil {
		return "", erruser.New("Could not compute the diff.", err)
	}
	return out, nil
}

// Show returns the diff a single commit introduced against its first
// parent. A root commit diffs against the empty tree.
func Show(ctx context.Context, repoRoot, sha string) (string, error) {
	args := append([]string{"show", "--format=", "--first-parent"}, diffFlags...)
	args = append(args, sha)
	out, err := output(ctx, repoRoot, args...)
	if err != nil {
		return "", erruser.Newf(err, "Could not read commit %s.", sha)
	}
	return out, nil
}
