package git

import (
	"context"
	"strings"

	"rscan/cli/internal/erruser"
)

// RevList returns the commits reachable from until but not from since,
// oldest first, so a per-commit scan reports changes in history order.
// An empty range returns nil.
func RevList(ctx context.Context, repoRoot, since, until string) ([]string, error) {
	if repoRoot == "" || since == "" || until == "" {
		return nil, erruser.New("rev-list: repo root, since and until refs required", nil)
	}
	out, err := output(ctx, repoRoot, "rev-list", "--reverse", since+".."+until)
	if err != nil {
		return nil, erruser.New("Could not list commits in range.", err)
	}
	trimmed := strings.TrimSpace(out)
	if trimmed == "" {
		return nil, nil
	}
	return strings.Split(trimmed, "\n"), nil
}
