// Package diag writes diagnostic snapshots (screenshots, page dumps) taken
// when state resolution fails.
//
// File names are derived from the snapshot name plus a process-wide
// sequence number, so concurrently running tests never write to the same
// file and never share a handle.
package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

var seq atomic.Int64

// Writer stores snapshots under one directory.
type Writer struct {
	dir string
}

// NewWriter creates a writer for dir. The directory is created on the
// first write.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Dir returns the target directory.
func (w *Writer) Dir() string { return w.dir }

// Write stores data as <dir>/<sanitized name>-<seq>.<ext> and returns the
// path written.
func (w *Writer) Write(name, ext string, data []byte) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create diagnostics dir: %w", err)
	}
	file := fmt.Sprintf("%s-%04d.%s", Sanitize(name), seq.Add(1), strings.TrimPrefix(ext, "."))
	path := filepath.Join(w.dir, file)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write diagnostic %s: %w", file, err)
	}
	return path, nil
}

// Sanitize maps name to a safe file name stem.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "snapshot"
	}
	return out
}

var (
	reportOnce sync.Once
	reportPath string
)

// ReportPath returns this process's report directory: base joined with a
// run directory stamped at first call. It is computed once per process;
// later calls return the first result whatever base they pass.
func ReportPath(base string) string {
	reportOnce.Do(func() {
		if base == "" {
			base = "reports"
		}
		if abs, err := filepath.Abs(base); err == nil {
			base = abs
		}
		reportPath = filepath.Join(base, "run-"+time.Now().UTC().Format("20060102T150405Z"))
	})
	return reportPath
}
