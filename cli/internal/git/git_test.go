package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var shaRegex = regexp.MustCompile("^[0-9a-f]{40}$")

// initRepo creates a repository with two commits: c1 adds A.java, c2
// changes one statement in it.
func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "git", "init")
	run(t, dir, "git", "config", "user.email", "test@rscan.local")
	run(t, dir, "git", "config", "user.name", "Test")
	writeFile(t, dir, "A.java", "class A {\n  int a = 1;\n}\n")
	run(t, dir, "git", "add", "A.java")
	run(t, dir, "git", "commit", "-m", "c1")
	writeFile(t, dir, "A.java", "class A {\n  int a = 2;\n}\n")
	run(t, dir, "git", "commit", "-am", "c2")
	return dir
}

func run(t *testing.T, dir, name string, args ...string) {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
}

func runOut(t *testing.T, dir, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("%s %v: %v", name, args, err)
	}
	return strings.TrimSpace(string(out))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRepoRoot(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	sub := filepath.Join(repo, "sub", "dir")
	if err := os.MkdirAll(sub, 0755); err != nil {
		t.Fatal(err)
	}
	want, err := filepath.EvalSymlinks(repo)
	if err != nil {
		t.Fatal(err)
	}
	for _, dir := range []string{repo, sub} {
		got, err := RepoRoot(dir)
		if err != nil {
			t.Fatalf("RepoRoot(%q): %v", dir, err)
		}
		if resolved, _ := filepath.EvalSymlinks(got); resolved != want {
			t.Errorf("RepoRoot(%q) = %q, want %q", dir, got, want)
		}
	}
}

func TestRepoRoot_notARepo(t *testing.T) {
	t.Parallel()
	if _, err := RepoRoot(t.TempDir()); err == nil {
		t.Fatal("RepoRoot(non-repo): expected error")
	}
}

func TestRevParse(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	ctx := context.Background()
	for _, ref := range []string{"HEAD", "HEAD~1"} {
		sha, err := RevParse(ctx, repo, ref)
		if err != nil {
			t.Fatalf("RevParse(%s): %v", ref, err)
		}
		if !shaRegex.MatchString(sha) {
			t.Errorf("RevParse(%s) = %q, want 40-char hex SHA", ref, sha)
		}
	}
	if _, err := RevParse(ctx, repo, "not-a-ref-at-all"); err == nil {
		t.Error("RevParse(invalid): expected error")
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	out, err := Diff(context.Background(), repo, "HEAD~1", "HEAD")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	for _, want := range []string{"diff --git a/A.java b/A.java", "@@ -1,3 +1,3 @@", "-  int a = 1;", "+  int a = 2;"} {
		if !strings.Contains(out, want) {
			t.Errorf("Diff output missing %q:\n%s", want, out)
		}
	}
}

func TestDiff_workingTree(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	writeFile(t, repo, "A.java", "class A {\n  int a = 3;\n}\n")
	out, err := Diff(context.Background(), repo, "HEAD", "")
	if err != nil {
		t.Fatalf("Diff: %v", err)
	}
	if !strings.Contains(out, "+  int a = 3;") {
		t.Errorf("working tree change missing:\n%s", out)
	}
}

func TestShow_rootCommit(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	root := runOut(t, repo, "git", "rev-list", "--max-parents=0", "HEAD")
	out, err := Show(context.Background(), repo, root)
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if !strings.Contains(out, "@@ -0,0 +1,3 @@") {
		t.Errorf("root commit diff missing creation hunk:\n%s", out)
	}
}

func TestRevList(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	writeFile(t, repo, "B.java", "class B {}\n")
	run(t, repo, "git", "add", "B.java")
	run(t, repo, "git", "commit", "-m", "c3")
	ctx := context.Background()

	shas, err := RevList(ctx, repo, "HEAD~2", "HEAD")
	if err != nil {
		t.Fatalf("RevList: %v", err)
	}
	if len(shas) != 2 {
		t.Fatalf("RevList: got %d SHAs, want 2", len(shas))
	}
	if head := runOut(t, repo, "git", "rev-parse", "HEAD"); shas[1] != head {
		t.Errorf("last SHA = %s, want HEAD %s", shas[1], head)
	}

	empty, err := RevList(ctx, repo, "HEAD", "HEAD")
	if err != nil || empty != nil {
		t.Errorf("RevList(HEAD..HEAD) = %v, %v; want nil, nil", empty, err)
	}
	if _, err := RevList(ctx, repo, "", "HEAD"); err == nil {
		t.Error("RevList(empty since): expected error")
	}
}

func TestOutput_cancelled(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Diff(ctx, repo, "HEAD~1", "HEAD"); err == nil {
		t.Error("Diff with cancelled context: expected error")
	}
}
