// Package manifest generates the manifest.json file Anki reads from every
// packaged add-on.
package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
)

// FileName is the name of the manifest inside the module directory.
const FileName = "manifest.json"

// TargetAnkiWeb is the distribution target uploaded to AnkiWeb. Every other
// target is treated as a local install.
const TargetAnkiWeb = "ankiweb"

// Manifest is the add-on descriptor written as manifest.json.
type Manifest struct {
	Package      string   `json:"package"`
	Name         string   `json:"name"`
	Author       string   `json:"author"`
	Version      string   `json:"version"`
	HumanVersion string   `json:"human_version"`
	Mod          int64    `json:"mod"`
	Conflicts    []string `json:"conflicts"`
	Homepage     string   `json:"homepage,omitempty"`
	AnkiWebID    string   `json:"ankiweb_id,omitempty"`

	// Point versions are set exactly when the matching Anki version is
	// configured, so a configured 2.1.0 is written as 0.
	MinPointVersion    *int `json:"min_point_version,omitempty"`
	MaxPointVersion    *int `json:"max_point_version,omitempty"`
	TestedPointVersion *int `json:"tested_point_version,omitempty"`
}

// Generate builds the manifest for version and target. modTime is the
// release timestamp in Unix seconds.
func Generate(cfg *config.Config, version, target string, modTime int64) Manifest {
	m := Manifest{
		Package:      cfg.ModuleName,
		Name:         cfg.DisplayName,
		Author:       cfg.Author,
		Version:      version,
		HumanVersion: version,
		Mod:          modTime,
		Conflicts:    conflicts(cfg, target),
		Homepage:     cfg.Homepage,
	}
	if m.Homepage == "" {
		m.Homepage = cfg.Contact
	}
	if target == TargetAnkiWeb {
		m.AnkiWebID = cfg.AnkiWebID
	}

	m.MinPointVersion = pointVersionOf(cfg.MinAnkiVersion)
	m.TestedPointVersion = pointVersionOf(cfg.TestedAnkiVersion)
	switch {
	case cfg.MaxAnkiVersion != "":
		m.MaxPointVersion = pointVersionOf(cfg.MaxAnkiVersion)
	case m.TestedPointVersion != nil:
		// A negative maximum means "tested up to" rather than a hard limit.
		limit := -*m.TestedPointVersion
		m.MaxPointVersion = &limit
	}

	return m
}

// conflicts returns the configured conflicts, prefixed with the identity of
// the other distribution so that local and AnkiWeb copies never load side
// by side.
func conflicts(cfg *config.Config, target string) []string {
	var extra string
	switch {
	case target == TargetAnkiWeb && cfg.ConflictsWithLocal():
		extra = cfg.ModuleName
	case target != TargetAnkiWeb && cfg.AnkiWebID != "" && cfg.ConflictsWithAnkiWeb():
		extra = cfg.AnkiWebID
	}

	out := make([]string, 0, len(cfg.Conflicts)+1)
	seen := make(map[string]bool)
	for _, c := range append([]string{extra}, cfg.Conflicts...) {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// PointVersion converts an Anki release number into Anki's integer point
// version: "2.1.N" becomes N and "YY.MM[.P]" becomes YY*10000+MM*100+P.
// Unparseable versions yield 0.
func PointVersion(version string) int {
	parts := strings.Split(strings.TrimSpace(version), ".")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		nums[i] = n
	}

	if nums[0] == 2 && nums[1] == 1 {
		return nums[2]
	}
	return nums[0]*10000 + nums[1]*100 + nums[2]
}

// pointVersionOf returns the point version of a configured Anki version,
// or nil when none is configured.
func pointVersionOf(version string) *int {
	if version == "" {
		return nil
	}
	n := PointVersion(version)
	return &n
}

// Render returns the manifest encoded as indented JSON.
func Render(cfg *config.Config, version, target string, modTime int64) ([]byte, error) {
	data, err := json.MarshalIndent(Generate(cfg, version, target, modTime), "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write renders the manifest into targetDir/manifest.json and returns its
// path. The file is replaced atomically: a failed write leaves any previous
// manifest untouched and no partial file behind.
func Write(cfg *config.Config, version, target, targetDir string, modTime int64) (string, error) {
	data, err := Render(cfg, version, target, modTime)
	if err != nil {
		return "", errors.New("E115").Wrap(err)
	}

	path := filepath.Join(targetDir, FileName)
	tmp, err := os.CreateTemp(targetDir, ".manifest-*.json")
	if err != nil {
		return "", errors.New("E115").WithDetail(targetDir).Wrap(err)
	}
	tmpPath := tmp.Name()

	cleanup := func(err error) (string, error) {
		tmp.Close()
		os.Remove(tmpPath)
		return "", errors.New("E115").WithDetail(path).Wrap(err)
	}

	if _, err := tmp.Write(data); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(0644); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		return cleanup(err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", errors.New("E115").WithDetail(path).Wrap(err)
	}

	return path, nil
}
