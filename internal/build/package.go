package build

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// fixedZipTime is stamped on every entry so that identical staging trees
// produce identical archives (1980-01-01 UTC, the zip epoch).
var fixedZipTime = time.Unix(315532800, 0).UTC()

// writeArchive zips the files under root into dst, with entry names
// relative to root. Symlinked files are stored with their target's content
// under the link's name; a link to a directory or a dangling link is an
// error. The archive is written beside dst and renamed into place. It
// returns the archive's size.
func writeArchive(root, dst string) (int64, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		switch {
		case d.Type().IsRegular():
			files = append(files, p)
		case d.Type()&fs.ModeSymlink != 0:
			info, err := os.Stat(p)
			if err != nil {
				return fmt.Errorf("follow symlink: %w", err)
			}
			if !info.Mode().IsRegular() {
				return fmt.Errorf("symlink %s does not point to a regular file", p)
			}
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	names := make(map[string]string, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return 0, err
		}
		names[f] = filepath.ToSlash(rel)
	}
	sort.Slice(files, func(i, j int) bool { return names[files[i]] < names[files[j]] })

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	fail := func(err error) (int64, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, err
	}

	zw := zip.NewWriter(tmp)
	for _, f := range files {
		if err := addFile(zw, f, names[f]); err != nil {
			return fail(err)
		}
	}
	if err := zw.Close(); err != nil {
		return fail(err)
	}

	info, err := tmp.Stat()
	if err != nil {
		return fail(err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return fail(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return 0, err
	}
	return info.Size(), nil
}

func addFile(zw *zip.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	h := &zip.FileHeader{Name: name, Method: zip.Deflate}
	h.SetMode(info.Mode().Perm())
	h.Modified = fixedZipTime

	w, err := zw.CreateHeader(h)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// ListArtifact returns the sorted entry names of a packaged artifact.
func ListArtifact(path string) ([]string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names, nil
}
