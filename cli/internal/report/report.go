// Package report renders parsed patches and locate findings as human
// text, JSON or YAML.
package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"rscan/cli/internal/findings"
	"rscan/cli/internal/hunkid"
	"rscan/cli/internal/patch"
)

// Output formats.
const (
	FormatHuman = "human"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Entry is one rendered entry of a hunk.
type Entry struct {
	ID       string       `json:"id" yaml:"id"`
	Index    int          `json:"index" yaml:"index"`
	Prefix   patch.Prefix `json:"prefix" yaml:"prefix"`
	LineNo   patch.LineNo `json:"line_no" yaml:"line_no"`
	Content  string       `json:"content" yaml:"content"`
	SubLines []patch.Line `json:"sub_lines,omitempty" yaml:"sub_lines,omitempty"`
}

// Hunk is one rendered hunk. ID does not depend on the view.
type Hunk struct {
	ID      string  `json:"id" yaml:"id"`
	Header  string  `json:"header" yaml:"header"`
	Entries []Entry `json:"entries" yaml:"entries"`
}

// File is one rendered patch.
type File struct {
	Path     string `json:"path" yaml:"path"`
	Revision string `json:"revision,omitempty" yaml:"revision,omitempty"`
	Hunks    []Hunk `json:"hunks" yaml:"hunks"`
}

// Build renders the entries of p selected by view.
func Build(p *patch.Patch, view patch.View) File {
	f := File{Path: p.Name, Revision: p.Revision, Hunks: make([]Hunk, 0, len(p.Hunks))}
	for _, h := range p.Hunks {
		header := h.Header()
		rh := Hunk{
			ID:      hunkid.HunkID(p.Name, header, body(h)),
			Header:  header,
			Entries: []Entry{},
		}
		for _, i := range h.Indices(view) {
			base := h.Lines[i].Base()
			e := Entry{
				ID:      hunkid.StatementID(p.Name, base.Content),
				Index:   i,
				Prefix:  base.Prefix,
				LineNo:  base.LineNo,
				Content: base.Content,
			}
			if parts := h.Lines[i].Parts(); len(parts) > 1 {
				e.SubLines = parts
			}
			rh.Entries = append(rh.Entries, e)
		}
		f.Hunks = append(f.Hunks, rh)
	}
	return f
}

// body rebuilds a diff-like body of h from every entry's sub-lines, each
// with its prefix marker.
func body(h *patch.Hunk) string {
	var b strings.Builder
	for _, e := range h.Lines {
		for _, l := range e.Parts() {
			b.WriteByte(l.Prefix.Symbol())
			b.WriteString(l.Content)
			if !strings.HasSuffix(l.Content, "\n") {
				b.WriteByte('\n')
			}
		}
	}
	return b.String()
}

// WritePatches writes the patches to w in format.
func WritePatches(w io.Writer, format string, patches []*patch.Patch, view patch.View) error {
	files := make([]File, 0, len(patches))
	for _, p := range patches {
		files = append(files, Build(p, view))
	}
	payload := struct {
		View  string `json:"view" yaml:"view"`
		Files []File `json:"files" yaml:"files"`
	}{View: view.String(), Files: files}
	switch format {
	case FormatJSON:
		return writeJSON(w, payload)
	case FormatYAML:
		return writeYAML(w, payload)
	case FormatHuman, "":
		return writePatchesHuman(w, files)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// writePatchesHuman writes one line per entry: path:src/tgt  prefix
// content, with statements folded onto one line.
func writePatchesHuman(w io.Writer, files []File) error {
	bw := bufio.NewWriter(w)
	for _, f := range files {
		if f.Revision != "" {
			fmt.Fprintf(bw, "%s @ %s\n", f.Path, f.Revision)
		} else {
			fmt.Fprintln(bw, f.Path)
		}
		for _, h := range f.Hunks {
			fmt.Fprintf(bw, "%s  %s\n", h.Header, hunkid.Short(h.ID))
			for _, e := range h.Entries {
				fmt.Fprintf(bw, "%s:%s  %s  %s", f.Path, e.LineNo, e.Prefix, fold(e.Content))
				if n := len(e.SubLines); n > 1 {
					fmt.Fprintf(bw, "  (%d lines)", n)
				}
				bw.WriteByte('\n')
			}
		}
	}
	return bw.Flush()
}

// fold collapses whitespace so a statement prints on one line.
func fold(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// WriteFindings writes list to w in format. Human output is one line per
// finding, "id  file:line:confidence:type", then a count.
func WriteFindings(w io.Writer, format string, list []findings.Finding) error {
	if list == nil {
		list = []findings.Finding{}
	}
	payload := struct {
		Findings []findings.Finding `json:"findings" yaml:"findings"`
	}{Findings: list}
	switch format {
	case FormatJSON:
		return writeJSON(w, payload)
	case FormatYAML:
		return writeYAML(w, payload)
	case FormatHuman, "":
		return writeFindingsHuman(w, list)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeFindingsHuman(w io.Writer, list []findings.Finding) error {
	bw := bufio.NewWriter(w)
	for _, f := range list {
		fmt.Fprintf(bw, "%s  %s", findings.ShortID(f.ID), f)
		if f.Description != "" {
			fmt.Fprintf(bw, "  %s", f.Description)
		}
		bw.WriteByte('\n')
	}
	if n := len(list); n == 1 {
		fmt.Fprintln(bw, "1 finding.")
	} else {
		fmt.Fprintf(bw, "%d findings.\n", n)
	}
	return bw.Flush()
}

// writeJSON writes v as one line of JSON.
func writeJSON(w io.Writer, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
