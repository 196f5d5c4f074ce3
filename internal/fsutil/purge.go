// Package fsutil provides the filesystem helpers used while staging a
// release: pattern-based purging and recursive copying.
package fsutil

import (
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
)

var logger = slog.Default().With("component", "fsutil")

// SetLogger replaces the package logger.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// MatchAny reports whether name matches any of the glob patterns.
// Malformed patterns never match.
func MatchAny(name string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Purge deletes every file or directory under root whose basename matches
// one of patterns. Without recursive only the direct children of root are
// considered. Matched directories are removed whole. Failures are logged
// and otherwise ignored.
func Purge(root string, patterns []string, recursive bool) {
	if len(patterns) == 0 {
		return
	}

	if !recursive {
		entries, err := os.ReadDir(root)
		if err != nil {
			logger.Debug("purge: read dir", "path", root, "error", err)
			return
		}
		for _, e := range entries {
			if MatchAny(e.Name(), patterns) {
				remove(filepath.Join(root, e.Name()))
			}
		}
		return
	}

	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("purge: walk", "path", p, "error", err)
			if d != nil && d.IsDir() && p != root {
				return fs.SkipDir
			}
			return nil
		}
		if p == root {
			return nil
		}
		if !MatchAny(d.Name(), patterns) {
			return nil
		}
		remove(p)
		if d.IsDir() {
			return fs.SkipDir
		}
		return nil
	})
}

func remove(p string) {
	if err := os.RemoveAll(p); err != nil {
		logger.Debug("purge: remove", "path", p, "error", err)
		return
	}
	logger.Debug("purged", "path", p)
}
