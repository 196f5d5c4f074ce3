// Package ui compiles Qt Designer files into Python form modules.
package ui

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/fsutil"
)

// Compiler runs the external designer-file compiler.
type Compiler struct {
	config config.UIConfig
	logger *slog.Logger
}

// New creates a compiler for the given UI settings.
func New(cfg config.UIConfig) *Compiler {
	return &Compiler{
		config: cfg,
		logger: slog.Default().With("component", "ui"),
	}
}

// SetLogger sets the compiler's logger.
func (c *Compiler) SetLogger(l *slog.Logger) {
	if l != nil {
		c.logger = l
	}
}

// FormsDir returns the package directory generated forms are written to.
func (c *Compiler) FormsDir(moduleDir string) string {
	return filepath.Join(moduleDir, c.config.FormsPackage)
}

// DesignerFiles returns the sorted .ui files under root's designer directory.
func (c *Compiler) DesignerFiles(root string) ([]string, error) {
	dir := filepath.Join(root, c.config.UIDir, c.config.DesignerDir)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".ui") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Build compiles every designer file under root into moduleDir's forms
// package and copies the UI resources next to them. It reports whether any
// code was generated.
func (c *Compiler) Build(ctx context.Context, root, moduleDir string) (bool, error) {
	files, err := c.DesignerFiles(root)
	if err != nil {
		return false, errors.New("E114").Wrap(err)
	}
	if len(files) == 0 {
		c.logger.Debug("no designer files", "root", root)
		return false, nil
	}

	formsDir := c.FormsDir(moduleDir)
	if err := os.MkdirAll(formsDir, 0755); err != nil {
		return false, errors.New("E114").Wrap(err)
	}

	start := time.Now()
	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		out := filepath.Join(formsDir, name+".py")
		if err := c.compile(ctx, file, out); err != nil {
			return false, err
		}
	}

	if err := c.copyResources(root, formsDir); err != nil {
		return false, errors.New("E114").WithDetail("copy resources").Wrap(err)
	}

	c.logger.Info("compiled forms", "count", len(files), "duration", time.Since(start))
	return true, nil
}

func (c *Compiler) compile(ctx context.Context, in, out string) error {
	cmd := exec.CommandContext(ctx, c.config.Compiler, "-o", out, in)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		output := stderr.String()
		if output == "" {
			output = stdout.String()
		}
		return errors.New("E114").
			WithDetailf("%s: %s", filepath.Base(in), strings.TrimSpace(output)).
			Wrap(err)
	}

	c.logger.Debug("compiled form", "in", in, "out", out)
	return nil
}

func (c *Compiler) copyResources(root, formsDir string) error {
	src := filepath.Join(root, c.config.UIDir, c.config.ResourcesDir)
	if info, err := os.Stat(src); err != nil || !info.IsDir() {
		return nil
	}

	optional := filepath.ToSlash(filepath.Join("icons", "optional"))
	return fsutil.CopyFiltered(src, filepath.Join(formsDir, "resources"), func(rel string, d fs.DirEntry) bool {
		return c.config.ExcludeOptionalResources && d.IsDir() && rel == optional
	})
}

// shimHeader marks files written by CreateShim.
const shimHeader = "# Generated by aadt. Do not edit."

// CreateShim writes the forms package's __init__.py. It binds the generated
// modules to the Qt bindings Anki ships and re-exports every form.
func (c *Compiler) CreateShim(ctx context.Context, moduleDir string) error {
	formsDir := c.FormsDir(moduleDir)
	entries, err := os.ReadDir(formsDir)
	if err != nil {
		return errors.New("E114").WithDetail("create forms package").Wrap(err)
	}

	var forms []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".py" || name == "__init__.py" {
			continue
		}
		forms = append(forms, strings.TrimSuffix(name, ".py"))
	}
	sort.Strings(forms)

	var b strings.Builder
	b.WriteString(shimHeader + "\n\n")
	b.WriteString("from aqt import qt  # noqa: F401\n\n")
	quoted := make([]string, len(forms))
	for i, f := range forms {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	fmt.Fprintf(&b, "__all__ = [%s]\n", strings.Join(quoted, ", "))
	if len(forms) > 0 {
		fmt.Fprintf(&b, "\nfrom . import %s  # noqa: E402\n", strings.Join(forms, ", "))
	}

	path := filepath.Join(formsDir, "__init__.py")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return errors.New("E114").WithDetail(path).Wrap(err)
	}
	return nil
}
