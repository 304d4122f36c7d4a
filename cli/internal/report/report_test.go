package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"rscan/cli/internal/findings"
	"rscan/cli/internal/hunkid"
	"rscan/cli/internal/patch"
)

func bareFixture() *patch.Patch {
	return patch.Parse("a = 1;\nfoo(x,\n  y);\n", patch.Options{Name: "A.java"})
}

func TestWritePatches_human(t *testing.T) {
	t.Parallel()
	p := bareFixture()
	id := Build(p, patch.ViewCurrent).Hunks[0].ID
	var buf bytes.Buffer
	if err := WritePatches(&buf, FormatHuman, []*patch.Patch{p}, patch.ViewCurrent); err != nil {
		t.Fatalf("WritePatches: %v", err)
	}
	want := "A.java\n" +
		"@@ -1,0 +1,0 @@  " + hunkid.Short(id) + "\n" +
		"A.java:1/1  common  a = 1;\n" +
		"A.java:2/2  common  foo(x, y);  (2 lines)\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_views(t *testing.T) {
	t.Parallel()
	text := "@@ -1,2 +1,2 @@\n a = 1;\n-b = 2;\n+b = 3;\n"
	p := patch.Parse(text, patch.Options{IsPatch: true, Name: "A.java", Revision: "abc"})
	count := func(v patch.View) int { return len(Build(p, v).Hunks[0].Entries) }
	if got := count(patch.ViewCurrent); got != 2 {
		t.Errorf("current entries = %d, want 2", got)
	}
	if got := count(patch.ViewAdditions); got != 1 {
		t.Errorf("additions entries = %d, want 1", got)
	}
	if got := count(patch.ViewAll); got != 3 {
		t.Errorf("all entries = %d, want 3", got)
	}
	if Build(p, patch.ViewAll).Hunks[0].ID != Build(p, patch.ViewAdditions).Hunks[0].ID {
		t.Error("hunk ID depends on the view")
	}
	other := patch.Parse(strings.Replace(text, "b = 3", "b = 4", 1), patch.Options{IsPatch: true, Name: "A.java"})
	if Build(p, patch.ViewAll).Hunks[0].ID == Build(other, patch.ViewAll).Hunks[0].ID {
		t.Error("changed hunk kept its ID")
	}
	if got := Build(p, patch.ViewAll).Revision; got != "abc" {
		t.Errorf("Revision = %q", got)
	}
}

func TestBuild_statementIDIgnoresLayout(t *testing.T) {
	t.Parallel()
	a := Build(patch.Parse("foo(x,\n  y);\n", patch.Options{Name: "A.java"}), patch.ViewCurrent)
	b := Build(patch.Parse("foo(x, y); // call\n", patch.Options{Name: "A.java"}), patch.ViewCurrent)
	if a.Hunks[0].Entries[0].ID != b.Hunks[0].Entries[0].ID {
		t.Error("reflowed statement changed its ID")
	}
}

func TestWritePatches_json(t *testing.T) {
	t.Parallel()
	p := bareFixture()
	var buf bytes.Buffer
	if err := WritePatches(&buf, FormatJSON, []*patch.Patch{p}, patch.ViewCurrent); err != nil {
		t.Fatalf("WritePatches: %v", err)
	}
	if !strings.HasSuffix(buf.String(), "}\n") || strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("want a single JSON line, got %q", buf.String())
	}
	var got struct {
		View  string `json:"view"`
		Files []File `json:"files"`
	}
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("json.Unmarshal: %v", err)
	}
	if got.View != "current" {
		t.Errorf("view = %q", got.View)
	}
	if diff := cmp.Diff([]File{Build(p, patch.ViewCurrent)}, got.Files); diff != "" {
		t.Errorf("files mismatch (-want +got):\n%s", diff)
	}
}

func TestWritePatches_yaml(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := WritePatches(&buf, FormatYAML, []*patch.Patch{bareFixture()}, patch.ViewAll); err != nil {
		t.Fatalf("WritePatches: %v", err)
	}
	var got struct {
		View  string `yaml:"view"`
		Files []struct {
			Path  string `yaml:"path"`
			Hunks []struct {
				Entries []struct {
					Prefix string `yaml:"prefix"`
				} `yaml:"entries"`
			} `yaml:"hunks"`
		} `yaml:"files"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("yaml.Unmarshal: %v\n%s", err, buf.String())
	}
	if got.View != "all" || len(got.Files) != 1 || got.Files[0].Path != "A.java" {
		t.Fatalf("unexpected document:\n%s", buf.String())
	}
	if n := len(got.Files[0].Hunks[0].Entries); n != 2 {
		t.Errorf("entries = %d, want 2", n)
	}
	if p := got.Files[0].Hunks[0].Entries[0].Prefix; p != "common" {
		t.Errorf("prefix = %q, want common", p)
	}
}

func TestWrite_unknownFormat(t *testing.T) {
	t.Parallel()
	if err := WritePatches(&bytes.Buffer{}, "xml", nil, patch.ViewCurrent); err == nil {
		t.Error("WritePatches(xml): expected error")
	}
	if err := WriteFindings(&bytes.Buffer{}, "xml", nil); err == nil {
		t.Error("WriteFindings(xml): expected error")
	}
}

func TestWriteFindings(t *testing.T) {
	t.Parallel()
	list := []findings.Finding{{
		ID: "0123456789abcdef", Type: "call-foo", File: "A.java", Line: 3,
		Priority: findings.PriorityHigh, Description: "Suspicious call.",
	}}
	tests := []struct {
		name   string
		format string
		list   []findings.Finding
		want   string
	}{
		{"human", FormatHuman, list, "0123456  A.java:3:HIGH Confidence:call-foo  Suspicious call.\n1 finding.\n"},
		{"human empty", FormatHuman, nil, "0 findings.\n"},
		{"json empty", FormatJSON, nil, "{\"findings\":[]}\n"},
		{"yaml empty", FormatYAML, nil, "findings: []\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			if err := WriteFindings(&buf, tt.format, tt.list); err != nil {
				t.Fatalf("WriteFindings: %v", err)
			}
			if diff := cmp.Diff(tt.want, buf.String()); diff != "" {
				t.Errorf("output mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestWriteFindings_jsonFields(t *testing.T) {
	t.Parallel()
	list := []findings.Finding{{
		Type: "t", File: "A.java", Line: 4, LineNo: patch.LineNo{Tgt: 4},
		Prefix: patch.Added, Priority: findings.PriorityLow,
		Range: &findings.LineRange{Start: 3, End: 4},
	}}
	var buf bytes.Buffer
	if err := WriteFindings(&buf, FormatJSON, list); err != nil {
		t.Fatalf("WriteFindings: %v", err)
	}
	for _, want := range []string{`"prefix":"added"`, `"priority":"low"`, `"line_no":{"tgt":4}`, `"range":{"start":3,"end":4}`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("json %s missing %s", buf.String(), want)
		}
	}
}
