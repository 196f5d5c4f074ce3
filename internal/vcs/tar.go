package vcs

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/fsutil"
)

// ExtractTar unpacks a tar stream into targetDir and returns the number of
// entries written. Entries with any path component matching one of excludes
// are skipped, as are entries that would land outside targetDir.
func ExtractTar(r io.Reader, targetDir string, excludes []string) (int, error) {
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return 0, err
	}

	tr := tar.NewReader(r)
	written := 0
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return written, nil
		}
		if err != nil {
			return written, err
		}

		name := path.Clean(strings.TrimPrefix(hdr.Name, "./"))
		if name == "." || excluded(name, excludes) {
			continue
		}
		if name == ".." || strings.HasPrefix(name, "../") || path.IsAbs(name) {
			return written, fmt.Errorf("entry %q escapes the target directory", hdr.Name)
		}
		target := filepath.Join(targetDir, filepath.FromSlash(name))

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return written, err
			}
		case tar.TypeReg:
			if err := writeEntry(tr, target, hdr.FileInfo().Mode().Perm()); err != nil {
				return written, err
			}
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return written, err
			}
			_ = os.Remove(target)
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return written, err
			}
		default:
			// git archive emits a pax global header carrying the commit id.
			continue
		}
		written++
	}
}

// excluded reports whether any component of the slash-separated name
// matches one of the patterns.
func excluded(name string, patterns []string) bool {
	for _, part := range strings.Split(name, "/") {
		if fsutil.MatchAny(part, patterns) {
			return true
		}
	}
	return false
}

func writeEntry(r io.Reader, target string, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm|0200)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
