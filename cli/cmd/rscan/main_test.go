package main

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func rscan(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := execute(args, strings.NewReader(stdin), &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func initRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	run(t, dir, "git", "init")
	run(t, dir, "git", "config", "user.email", "test@rscan.local")
	run(t, dir, "git", "config", "user.name", "Test")
	writeFile(t, dir, "A.java", "class A {\n  int a = 1;\n}\n")
	run(t, dir, "git", "add", ".")
	run(t, dir, "git", "commit", "-m", "c1")
	writeFile(t, dir, "A.java", "class A {\n  int a = 1;\n  if (s == \"x\") go();\n}\n")
	writeFile(t, dir, "notes.txt", "if (s == \"x\")\n")
	run(t, dir, "git", "add", ".")
	run(t, dir, "git", "commit", "-m", "c2")
	writeFile(t, dir, ".rscan/patterns/strings.yaml", `rules:
  - name: string-identity
    pattern: '(?P<at>[!=]=)\s*"'
    priority: medium
    description: String compared by reference.
`)
	return dir
}

func run(t *testing.T, dir, name string, args ...string) string {
	t.Helper()
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("%s %v: %v\n%s", name, args, err, out)
	}
	return string(out)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestRunCLI_help(t *testing.T) {
	t.Parallel()
	if r := rscan(t, "", "--help"); r.code != 0 || !strings.Contains(r.stdout, "locate") {
		t.Errorf("--help = %d, stdout %q", r.code, r.stdout)
	}
	if r := rscan(t, "", "--version"); r.code != 0 || !strings.Contains(r.stdout, "rscan version") {
		t.Errorf("--version = %d, stdout %q", r.code, r.stdout)
	}
}

func TestParse_bareStdin(t *testing.T) {
	t.Parallel()
	r := rscan(t, "a = 1;\nfoo(x,\n  y);\n", "parse", "-C", t.TempDir(), "--bare", "--name", "A.java", "-o", "json")
	if r.code != 0 {
		t.Fatalf("exit %d: %s", r.code, r.stderr)
	}
	var doc struct {
		Files []struct {
			Path  string `json:"path"`
			Hunks []struct {
				Entries []struct {
					Content string `json:"content"`
				} `json:"entries"`
			} `json:"hunks"`
		} `json:"files"`
	}
	if err := json.Unmarshal([]byte(r.stdout), &doc); err != nil {
		t.Fatalf("json: %v\n%s", err, r.stdout)
	}
	if len(doc.Files) != 1 || doc.Files[0].Path != "A.java" {
		t.Fatalf("files = %+v", doc.Files)
	}
	entries := doc.Files[0].Hunks[0].Entries
	if len(entries) != 2 || entries[1].Content != "foo(x,\n  y);\n" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestParse_multiFileDiff(t *testing.T) {
	t.Parallel()
	text := "diff --git a/x.java b/x.java\n--- a/x.java\n+++ b/x.java\n@@ -1 +1 @@\n-a;\n+b;\n" +
		"diff --git a/README.md b/README.md\n--- a/README.md\n+++ b/README.md\n@@ -1 +1 @@\n-x\n+y\n"
	r := rscan(t, text, "parse", "-C", t.TempDir(), "-o", "human", "-")
	if r.code != 0 {
		t.Fatalf("exit %d: %s", r.code, r.stderr)
	}
	if !strings.Contains(r.stdout, "x.java:-/1  added  b;\n") {
		t.Errorf("stdout missing added entry:\n%s", r.stdout)
	}
	if strings.Contains(r.stdout, "README.md") {
		t.Errorf("README.md was not filtered:\n%s", r.stdout)
	}
}

func TestParse_noHunksWarns(t *testing.T) {
	t.Parallel()
	r := rscan(t, "just text\n", "parse", "-C", t.TempDir(), "--log-level", "warn")
	if r.code != 0 {
		t.Fatalf("exit %d: %s", r.code, r.stderr)
	}
	if !strings.Contains(r.stderr, "no hunk headers") {
		t.Errorf("stderr = %q, want warning", r.stderr)
	}
}

func TestParse_invalidOutput(t *testing.T) {
	t.Parallel()
	r := rscan(t, "", "parse", "-C", t.TempDir(), "-o", "xml")
	if r.code != 1 || r.stderr == "" {
		t.Errorf("exit %d, stderr %q; want 1 with a message", r.code, r.stderr)
	}
}

func TestParse_missingFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	r := rscan(t, "", "parse", "-C", dir, filepath.Join(dir, "nope.patch"))
	if r.code != 1 || !strings.Contains(r.stderr, "Details:") {
		t.Errorf("exit %d, stderr %q", r.code, r.stderr)
	}
}

func TestDiff(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	r := rscan(t, "", "diff", "-C", repo, "-o", "yaml", "HEAD~1", "HEAD")
	if r.code != 0 {
		t.Fatalf("exit %d: %s", r.code, r.stderr)
	}
	head := strings.TrimSpace(run(t, repo, "git", "rev-parse", "HEAD"))
	for _, want := range []string{"path: A.java", "revision: " + head, "view: current"} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, r.stdout)
		}
	}
	if strings.Contains(r.stdout, "notes.txt") {
		t.Errorf("notes.txt was not filtered:\n%s", r.stdout)
	}
}

func TestDiff_notARepo(t *testing.T) {
	t.Parallel()
	if r := rscan(t, "", "diff", "-C", t.TempDir()); r.code != 1 {
		t.Errorf("exit %d, want 1", r.code)
	}
}

func TestLocate_repoPatterns(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	r := rscan(t, "", "locate", "-C", repo, "HEAD~1", "HEAD")
	if r.code != 0 {
		t.Fatalf("exit %d: %s", r.code, r.stderr)
	}
	if !strings.Contains(r.stdout, "A.java:3:MEDIUM Confidence:string-identity  String compared by reference.\n") {
		t.Errorf("stdout missing finding:\n%s", r.stdout)
	}
	if !strings.HasSuffix(r.stdout, "1 finding.\n") {
		t.Errorf("stdout missing count:\n%s", r.stdout)
	}

	if r := rscan(t, "", "locate", "-C", repo, "--priority", "high", "HEAD~1", "HEAD"); !strings.HasSuffix(r.stdout, "0 findings.\n") {
		t.Errorf("--priority high kept medium findings:\n%s", r.stdout)
	}
	if r := rscan(t, "", "locate", "-C", repo, "--exit-code", "HEAD~1", "HEAD"); r.code != 1 {
		t.Errorf("--exit-code with findings = %d, want 1", r.code)
	}
}

func TestLocate_eachCommitJSON(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	r := rscan(t, "", "locate", "-C", repo, "--each-commit", "-o", "json", "HEAD~1", "HEAD")
	if r.code != 0 {
		t.Fatalf("exit %d: %s", r.code, r.stderr)
	}
	var doc struct {
		Findings []struct {
			File     string `json:"file"`
			Line     int    `json:"line"`
			Revision string `json:"revision"`
			URI      string `json:"uri"`
		} `json:"findings"`
	}
	if err := json.Unmarshal([]byte(r.stdout), &doc); err != nil {
		t.Fatalf("json: %v\n%s", err, r.stdout)
	}
	head := strings.TrimSpace(run(t, repo, "git", "rev-parse", "HEAD"))
	if len(doc.Findings) != 1 {
		t.Fatalf("findings = %+v", doc.Findings)
	}
	f := doc.Findings[0]
	if f.File != "A.java" || f.Line != 3 || f.Revision != head {
		t.Errorf("finding = %+v, want A.java:3 at %s", f, head)
	}
	if !strings.HasPrefix(f.URI, "file://") || !strings.HasSuffix(f.URI, "A.java#L3") {
		t.Errorf("uri = %q", f.URI)
	}
}

func TestLocate_inputWithFlagRules(t *testing.T) {
	t.Parallel()
	patch := "@@ -1,2 +1,3 @@\n int a = foo(x,\n-    x);\n+    y);\n+bar();\n"
	r := rscan(t, patch, "locate", "-C", t.TempDir(), "--input", "-", "--name", "B.java",
		"--keyword", "foo(", "--pattern", `\by\)`, "--view", "all")
	if r.code != 0 {
		t.Fatalf("exit %d: %s", r.code, r.stderr)
	}
	for _, want := range []string{
		"B.java:1:LOW Confidence:keyword:foo(\n",
		"B.java:2:LOW Confidence:pattern:\\by\\)\n",
		"3 findings.\n",
	} {
		if !strings.Contains(r.stdout, want) {
			t.Errorf("stdout missing %q:\n%s", want, r.stdout)
		}
	}
}

func TestLocate_badArguments(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"bad priority", []string{"locate", "-C", dir, "--input", "-", "--priority", "severe"}},
		{"bad pattern", []string{"locate", "-C", dir, "--input", "-", "--pattern", "("}},
		{"input and range", []string{"locate", "-C", dir, "--input", "-", "HEAD~1"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if r := rscan(t, "", tt.args...); r.code != 1 {
				t.Errorf("exit %d, want 1 (stderr %q)", r.code, r.stderr)
			}
		})
	}
}

func TestLocate_baseline(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	first := rscan(t, "", "locate", "-C", repo, "-o", "json", "HEAD~1", "HEAD")
	if first.code != 0 {
		t.Fatalf("exit %d: %s", first.code, first.stderr)
	}
	baseline := filepath.Join(t.TempDir(), "baseline.json")
	writeFile(t, filepath.Dir(baseline), filepath.Base(baseline), first.stdout)

	r := rscan(t, "", "locate", "-C", repo, "--baseline", baseline, "--exit-code", "HEAD~1", "HEAD")
	if r.code != 0 || !strings.HasSuffix(r.stdout, "0 findings.\n") {
		t.Errorf("exit %d, stdout %q; want no new findings", r.code, r.stdout)
	}
}

func TestLocate_recordAndHistory(t *testing.T) {
	t.Parallel()
	repo := initRepo(t)
	for i := 0; i < 2; i++ {
		if r := rscan(t, "", "locate", "-C", repo, "--record", "HEAD~1", "HEAD"); r.code != 0 {
			t.Fatalf("exit %d: %s", r.code, r.stderr)
		}
	}
	r := rscan(t, "", "history", "-C", repo, "-n", "1")
	if r.code != 0 {
		t.Fatalf("exit %d: %s", r.code, r.stderr)
	}
	if n := strings.Count(r.stdout, "\n"); n != 1 {
		t.Errorf("history printed %d lines, want 1:\n%s", n, r.stdout)
	}
	if !strings.Contains(r.stdout, "HEAD~1..HEAD  1 file(s), 1 finding(s) (medium 1)") {
		t.Errorf("unexpected history line:\n%s", r.stdout)
	}

	r = rscan(t, "", "history", "-C", repo, "-o", "json")
	if r.code != 0 || strings.Count(r.stdout, `"type":"string-identity"`) != 2 {
		t.Errorf("exit %d, json %s", r.code, r.stdout)
	}
}
