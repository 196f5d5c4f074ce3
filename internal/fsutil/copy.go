package fsutil

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// SkipFunc decides whether the entry at rel (relative to the copy source,
// slash-separated) is left out. Skipped directories are not descended.
type SkipFunc func(rel string, d fs.DirEntry) bool

// CopyRecursively copies src to dst. A file is copied onto dst, or into dst
// when dst is an existing directory. A directory is merged into dst: missing
// parents are created and conflicting files are overwritten.
func CopyRecursively(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !info.IsDir() {
		if di, err := os.Stat(dst); err == nil && di.IsDir() {
			dst = filepath.Join(dst, filepath.Base(src))
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
			return err
		}
		return copyFile(src, dst, info.Mode().Perm())
	}

	return CopyFiltered(src, dst, nil)
}

// CopyFiltered merges the directory src into dst, leaving out every entry
// for which skip returns true.
func CopyFiltered(src, dst string, skip SkipFunc) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel != "." && skip != nil && skip(filepath.ToSlash(rel), d) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		info, err := d.Info()
		if err != nil {
			return err
		}

		switch {
		case d.IsDir():
			return os.MkdirAll(target, info.Mode().Perm()|0700)
		case d.Type()&fs.ModeSymlink != 0:
			return copySymlink(p, target)
		case d.Type().IsRegular():
			return copyFile(p, target, info.Mode().Perm())
		default:
			// Sockets, devices and pipes have no place in a release.
			return nil
		}
	})
}

// copyFile copies a file, replacing dst if it exists.
func copyFile(src, dst string, perm fs.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil && os.IsPermission(err) {
		// A read-only destination is replaced rather than rewritten.
		if rerr := os.Remove(dst); rerr == nil {
			out, err = os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
		}
	}
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chmod(dst, perm)
}

func copySymlink(src, dst string) error {
	link, err := os.Readlink(src)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dst); err != nil {
		return err
	}
	return os.Symlink(link, dst)
}
