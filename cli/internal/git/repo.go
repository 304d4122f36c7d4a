// Package git runs the few git commands rscan needs: locating the
// repository, resolving revisions and producing unified diffs. Every command
// runs with a minimal environment so user pagers, external diff drivers and
// credential prompts cannot interfere with captured output.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"rscan/cli/internal/erruser"
)

// RepoRoot returns the absolute path of the repository containing dir.
func RepoRoot(dir string) (string, error) {
	out, err := output(context.Background(), dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", erruser.New("This directory is not inside a Git repository.", err)
	}
	return filepath.Abs(strings.TrimSpace(out))
}

// RevParse resolves ref to a full commit SHA. The SHA becomes the revision
// recorded on every patch parsed from that commit.
func RevParse(ctx context.Context, repoRoot, ref string) (string, error) {
	out, err := output(ctx, repoRoot, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", erruser.Newf(err, "Invalid ref or commit: %s.", ref)
	}
	return strings.TrimSpace(out), nil
}

// output runs git with args in dir and returns stdout. A failing command
// returns an error carrying git's stderr.
func output(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = minimalEnv()
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %s: %w", args[0], ctx.Err())
		}
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func minimalEnv() []string {
	env := []string{
		"PATH=" + os.Getenv("PATH"),
		"GIT_TERMINAL_PROMPT=0",
		"GIT_PAGER=cat",
	}
	if home := os.Getenv("HOME"); home != "" {
		env = append(env, "HOME="+home)
	} else if runtime.GOOS == "windows" {
		if profile := os.Getenv("USERPROFILE"); profile != "" {
			env = append(env, "HOME="+profile)
		}
	}
	return env
}
