package history

import (
	"bufio"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"rscan/cli/internal/erruser"
)

const (
	historyFilename = "history.jsonl"
	archivePrefix   = historyFilename + "."
	archiveSuffix   = ".gz"

	// DefaultMaxRecords bounds the active history file.
	DefaultMaxRecords = 200
	maxArchives       = 5

	// maxLineSize caps one record; a run with many findings can exceed
	// bufio.Scanner's 64KB default.
	maxLineSize = 8 * 1024 * 1024
)

// archive is a rotated history.jsonl.N.gz file.
type archive struct {
	n    int
	path string
}

// archives lists the rotated files in dir, oldest (lowest N) first.
func archives(dir string) ([]archive, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []archive
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		n, err := strconv.Atoi(name[len(archivePrefix) : len(name)-len(archiveSuffix)])
		if err != nil || n < 1 {
			continue
		}
		out = append(out, archive{n: n, path: filepath.Join(dir, name)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].n < out[j].n })
	return out, nil
}

// ReadRecords returns every record under stateDir, oldest first: the
// archives in order, then the active file. A missing directory has no
// records.
func ReadRecords(stateDir string) ([]Record, error) {
	arcs, err := archives(stateDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, erruser.New("Could not read history directory.", err)
	}
	var out []Record
	for _, a := range arcs {
		recs, err := readGzip(a.path)
		if err != nil {
			return nil, erruser.Newf(err, "Could not read history archive %s.", filepath.Base(a.path))
		}
		out = append(out, recs...)
	}
	lines, err := readLines(filepath.Join(stateDir, historyFilename))
	if err != nil && !os.IsNotExist(err) {
		return nil, erruser.New("Could not read history file.", err)
	}
	recs, err := decode(lines)
	if err != nil {
		return nil, erruser.New("Could not read history file.", err)
	}
	return append(out, recs...), nil
}

func readGzip(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gr, err := gzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gr.Close()
	lines, err := scanLines(gr)
	if err != nil {
		return nil, err
	}
	return decode(lines)
}

func decode(lines []string) ([]Record, error) {
	var out []Record
	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Append writes record as one line of stateDir/history.jsonl, creating
// both when missing. With maxRecords > 0 the lines beyond the last
// maxRecords move to a new gzipped archive; at most five archives are
// kept.
func Append(stateDir string, record Record, maxRecords int) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return erruser.New("Could not create the history directory.", err)
	}
	line, err := json.Marshal(record)
	if err != nil {
		return erruser.New("Could not record the run.", err)
	}
	path := filepath.Join(stateDir, historyFilename)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return erruser.New("Could not record the run.", err)
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		_ = f.Close()
		return erruser.New("Could not record the run.", err)
	}
	if err := f.Close(); err != nil {
		return erruser.New("Could not record the run.", err)
	}
	if maxRecords > 0 {
		return rotate(path, maxRecords)
	}
	return nil
}

// rotate moves all but the last maxRecords lines of path into the next
// archive, prunes old archives, then replaces path atomically.
func rotate(path string, maxRecords int) error {
	lines, err := readLines(path)
	if err != nil {
		return erruser.New("Could not read history for rotation.", err)
	}
	if len(lines) <= maxRecords {
		return nil
	}
	dropped, keep := lines[:len(lines)-maxRecords], lines[len(lines)-maxRecords:]
	dir := filepath.Dir(path)

	arcs, err := archives(dir)
	if err != nil {
		return erruser.New("Could not rotate history.", err)
	}
	next := 1
	if len(arcs) > 0 {
		next = arcs[len(arcs)-1].n + 1
	}
	if err := writeGzip(filepath.Join(dir, archivePrefix+strconv.Itoa(next)+archiveSuffix), dropped); err != nil {
		return erruser.New("Could not write history archive.", err)
	}
	for len(arcs)+1 > maxArchives {
		if err := os.Remove(arcs[0].path); err != nil {
			return erruser.New("Could not prune history archives.", err)
		}
		arcs = arcs[1:]
	}

	tmp, err := os.CreateTemp(dir, "history.*.tmp")
	if err != nil {
		return erruser.New("Could not rotate history.", err)
	}
	defer os.Remove(tmp.Name())
	w := bufio.NewWriter(tmp)
	for _, l := range keep {
		w.WriteString(l)
	}
	if err := w.Flush(); err != nil {
		_ = tmp.Close()
		return erruser.New("Could not rotate history.", err)
	}
	if err := tmp.Close(); err != nil {
		return erruser.New("Could not rotate history.", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return erruser.New("Could not rotate history.", err)
	}
	return nil
}

func writeGzip(path string, lines []string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	gw := gzip.NewWriter(f)
	for _, l := range lines {
		if _, err := io.WriteString(gw, l); err != nil {
			_ = gw.Close()
			return err
		}
	}
	if err := gw.Close(); err != nil {
		return err
	}
	return f.Sync()
}

// readLines returns the lines of path, each with its newline.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scanLines(f)
}

func scanLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		lines = append(lines, sc.Text()+"\n")
	}
	return lines, sc.Err()
}
