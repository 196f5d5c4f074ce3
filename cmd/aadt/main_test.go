package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const addonJSON = `{
  "display_name": "Review Heatmap",
  "module_name": "review_heatmap",
  "repo_name": "review-heatmap",
  "author": "Jane Doe",
  "conflicts": [],
  "ankiweb_id": "1771074083"
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func setupProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "addon.json"), addonJSON)
	writeFile(t, filepath.Join(root, "src", "review_heatmap", "__init__.py"), "from . import main\n")
	writeFile(t, filepath.Join(root, "src", "review_heatmap", "main.py"), "print('heatmap')\n")
	writeFile(t, filepath.Join(root, "LICENSE"), "MIT License")
	return root
}

// execute runs the CLI and returns the exit code, stdout and stderr.
func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersionShort(t *testing.T) {
	code, out, _ := execute(t, "version", "--short")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("output = %q, want %q", out, version)
	}
}

func TestBuildDev(t *testing.T) {
	root := setupProject(t)

	code, out, errOut := execute(t, "-p", root, "build", "dev", "--list")
	if code != 0 {
		t.Fatalf("exit code = %d\nstderr: %s", code, errOut)
	}

	artifact := filepath.Join(root, "dist", "review-heatmap-dev.ankiaddon")
	if _, err := os.Stat(artifact); err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	for _, want := range []string{"review-heatmap-dev.ankiaddon", "manifest.json", "main.py"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "build")); !os.IsNotExist(err) {
		t.Errorf("staging area left behind: %v", err)
	}
}

func TestBuildAllTargets(t *testing.T) {
	root := setupProject(t)
	metrics := filepath.Join(t.TempDir(), "build.prom")

	code, _, errOut := execute(t, "-q", "-p", root, "build", "dev", "-d", "all", "--metrics-file", metrics)
	if code != 0 {
		t.Fatalf("exit code = %d\nstderr: %s", code, errOut)
	}

	for _, name := range []string{"review-heatmap-dev.ankiaddon", "review-heatmap-dev-ankiweb.ankiaddon"} {
		if _, err := os.Stat(filepath.Join(root, "dist", name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}

	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "aadt_build_artifacts_total") {
		t.Errorf("metrics file missing artifact counter:\n%s", data)
	}
}

func TestStepwiseBuild(t *testing.T) {
	root := setupProject(t)

	for _, args := range [][]string{
		{"-p", root, "create-dist", "dev"},
		{"-p", root, "build_dist", "dev"},
		{"-p", root, "package-dist", "dev"},
	} {
		if code, _, errOut := execute(t, args...); code != 0 {
			t.Fatalf("%v: exit code = %d\nstderr: %s", args, code, errOut)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "review-heatmap-dev.ankiaddon")); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestErrors(t *testing.T) {
	root := setupProject(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"invalid target", []string{"-p", root, "build", "dev", "-d", "flatpak"}, "Invalid distribution type"},
		{"not a project", []string{"-p", t.TempDir(), "build", "dev"}, "E140"},
		{"manifest target all", []string{"-p", root, "manifest", "dev", "-d", "all"}, "E110"},
		{"nothing to publish", []string{"-p", root, "publish"}, "E130"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := execute(t, tt.args...)
			if code != 1 {
				t.Errorf("exit code = %d, want 1", code)
			}
			if !strings.Contains(errOut, tt.want) {
				t.Errorf("stderr = %q, want %q", errOut, tt.want)
			}
		})
	}

	if _, err := os.Stat(filepath.Join(root, "dist", "build")); !os.IsNotExist(err) {
		t.Errorf("failed commands touched the staging area: %v", err)
	}
}

func TestManifest(t *testing.T) {
	root := setupProject(t)
	path := filepath.Join(root, "src", "review_heatmap", "manifest.json")

	code, out, errOut := execute(t, "-p", root, "manifest", "v1.0.0", "--diff")
	if code != 0 {
		t.Fatalf("exit code = %d\nstderr: %s", code, errOut)
	}
	if !strings.Contains(out, `+  "package": "review_heatmap"`) {
		t.Errorf("diff missing package line:\n%s", out)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("--diff wrote the manifest")
	}

	if code, _, errOut := execute(t, "-p", root, "manifest", "v1.0.0"); code != 0 {
		t.Fatalf("exit code = %d\nstderr: %s", code, errOut)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"version": "v1.0.0"`) {
		t.Errorf("manifest = %s", data)
	}
}

func TestClean(t *testing.T) {
	root := setupProject(t)
	writeFile(t, filepath.Join(root, "dist", "build", "src", "review_heatmap", "main.py"), "")
	writeFile(t, filepath.Join(root, "src", "review_heatmap", "__pycache__", "main.cpython-311.pyc"), "x")
	writeFile(t, filepath.Join(root, "dist", "review-heatmap-v1.0.0.ankiaddon"), "zip")

	if code, _, errOut := execute(t, "-p", root, "clean"); code != 0 {
		t.Fatalf("exit code = %d\nstderr: %s", code, errOut)
	}

	for _, gone := range []string{filepath.Join("dist", "build"), filepath.Join("src", "review_heatmap", "__pycache__")} {
		if _, err := os.Stat(filepath.Join(root, gone)); !os.IsNotExist(err) {
			t.Errorf("%s still exists", gone)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "review-heatmap-v1.0.0.ankiaddon")); err != nil {
		t.Errorf("clean removed an artifact: %v", err)
	}
}

func TestConfigGetSet(t *testing.T) {
	root := setupProject(t)

	if code, _, errOut := execute(t, "-p", root, "config", "set", "tested_anki_version", "25.06"); code != 0 {
		t.Fatalf("set: exit code = %d\nstderr: %s", code, errOut)
	}
	if code, _, errOut := execute(t, "-p", root, "config", "set", "conflicts", `["123456"]`); code != 0 {
		t.Fatalf("set: exit code = %d\nstderr: %s", code, errOut)
	}

	code, out, errOut := execute(t, "-p", root, "config", "get", "tested_anki_version")
	if code != 0 {
		t.Fatalf("get: exit code = %d\nstderr: %s", code, errOut)
	}
	if strings.TrimSpace(out) != `"25.06"` {
		t.Errorf("get output = %q", out)
	}

	data, err := os.ReadFile(filepath.Join(root, "addon.json"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"tested_anki_version": "25.06"`, `"123456"`, `"ankiweb_id": "1771074083"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("addon.json missing %s:\n%s", want, data)
		}
	}

	if code, _, errOut := execute(t, "-p", root, "config", "get", "homepage"); code != 1 || !strings.Contains(errOut, "homepage") {
		t.Errorf("get unset key: exit code = %d, stderr = %q", code, errOut)
	}
}

func TestProjectFromWorkingDir(t *testing.T) {
	root := setupProject(t)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(filepath.Join(root, "src", "review_heatmap")); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	code, out, errOut := execute(t, "config", "get", "repo_name")
	if code != 0 {
		t.Fatalf("exit code = %d\nstderr: %s", code, errOut)
	}
	if strings.TrimSpace(out) != `"review-heatmap"` {
		t.Errorf("output = %q", out)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnifiedDiff(t *testing.T) {
	same, err := unifiedDiff("a", "x\n", "x\n")
	if err != nil || same != "" {
		t.Errorf("equal inputs: %q, %v", same, err)
	}

	d, err := unifiedDiff("manifest.json", "a\nb\n", "a\nc\n")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"--- manifest.json", "-b", "+c"} {
		if !strings.Contains(d, want) {
			t.Errorf("diff missing %q:\n%s", want, d)
		}
	}
}
