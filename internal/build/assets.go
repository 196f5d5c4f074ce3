package build

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/fsutil"
)

// LicenseFileName is the consolidated license inside the module.
const LicenseFileName = "LICENSE.txt"

// copyLicenses concatenates every LICENSE* file found in the configured
// license paths of the snapshot into the module's LICENSE.txt.
func (p *Pipeline) copyLicenses(moduleDir string) error {
	staging := p.StagingPath()
	target := filepath.Join(moduleDir, LicenseFileName)

	var files []string
	seen := make(map[string]bool)
	for _, dir := range p.config.Build.LicensePaths {
		matches, err := filepath.Glob(filepath.Join(staging, dir, "LICENSE*"))
		if err != nil {
			return errors.New("E113").WithDetailf("license path %q", dir).Wrap(err)
		}
		sort.Strings(matches)
		for _, m := range matches {
			info, err := os.Stat(m)
			if err != nil || info.IsDir() || m == target || seen[m] {
				continue
			}
			seen[m] = true
			files = append(files, m)
		}
	}

	if len(files) == 0 {
		p.logger.Warn("no license file found", "paths", p.config.Build.LicensePaths)
		return nil
	}

	var buf bytes.Buffer
	for i, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return errors.New("E113").WithDetail(f).Wrap(err)
		}
		if i > 0 {
			buf.WriteString("\n\n")
		}
		buf.Write(bytes.TrimRight(data, "\n"))
		buf.WriteString("\n")
	}

	if err := os.WriteFile(target, buf.Bytes(), 0644); err != nil {
		return errors.New("E113").WithDetail(target).Wrap(err)
	}
	return nil
}

// copyChangelog copies the snapshot's changelog into the module, if any.
func (p *Pipeline) copyChangelog(moduleDir string) error {
	rel := p.config.Build.ChangelogPath
	if rel == "" {
		return nil
	}
	src := filepath.Join(p.StagingPath(), rel)
	if _, err := os.Stat(src); err != nil {
		p.logger.Debug("no changelog", "path", src)
		return nil
	}
	if err := fsutil.CopyRecursively(src, filepath.Join(moduleDir, filepath.Base(rel))); err != nil {
		return errors.New("E113").WithDetail(src).Wrap(err)
	}
	return nil
}

// copyIcons copies the project's optional icons into the staging area's
// resources/icons directory, if they exist. That directory sits at the
// staging root beside src/, not inside the module: steps that read the
// staging tree can use the icons, but PackageDist does not include them.
func (p *Pipeline) copyIcons() error {
	src := p.config.IconsPath()
	if _, err := os.Stat(src); err != nil {
		p.logger.Debug("no optional icons", "path", src)
		return nil
	}
	dst := filepath.Join(p.StagingPath(), "resources", "icons")
	if err := fsutil.CopyRecursively(src, dst); err != nil {
		return errors.New("E113").WithDetail(src).Wrap(err)
	}
	return nil
}
