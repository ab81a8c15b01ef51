// Package xfs manages per-job scratch directories. Every stage that touches
// media materializes its inputs under one TmpDir and removes it when done.
package xfs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// BaseDir is the root for all scratch directories. Overridden via TMP_DIR.
var BaseDir = "tmp"

func init() {
	if v := os.Getenv("TMP_DIR"); v != "" {
		BaseDir = v
	}
}

// TmpDir is a scratch directory that lives for the duration of one stage run.
type TmpDir struct {
	Path string
}

// NewTmpDir creates a fresh scratch directory under BaseDir.
func NewTmpDir() (*TmpDir, error) {
	p := filepath.Join(BaseDir, uuid.NewString())
	if err := os.MkdirAll(p, 0o755); err != nil {
		return nil, fmt.Errorf("create tmp dir: %w", err)
	}
	return &TmpDir{Path: p}, nil
}

// File returns a path inside the directory for the given file name.
func (t *TmpDir) File(name string) string {
	return filepath.Join(t.Path, name)
}

// RandomFile returns a path inside the directory with a random base name and
// the given extension (no dot).
func (t *TmpDir) RandomFile(ext string) string {
	return filepath.Join(t.Path, uuid.NewString()+"."+ext)
}

// Cleanup removes the directory and everything in it.
func (t *TmpDir) Cleanup() {
	os.RemoveAll(t.Path)
}

// PurgeOlderThan removes scratch directories whose mtime is older than maxAge.
// Catches directories orphaned by crashed workers.
func PurgeOlderThan(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.RemoveAll(filepath.Join(BaseDir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}
