package main

import (
	"fmt"
	"io"
	"path"

	"github.com/charmbracelet/lipgloss"
	"github.com/disiqueira/gotree/v3"
	"github.com/spf13/cobra"
)

// printer writes styled status lines. Styles degrade to plain text when
// the writer is not a terminal.
type printer struct {
	w     io.Writer
	quiet bool

	ok   lipgloss.Style
	warn lipgloss.Style
	dim  lipgloss.Style
	head lipgloss.Style
}

func newPrinter(cmd *cobra.Command, flags *globalFlags) *printer {
	w := cmd.OutOrStdout()
	r := lipgloss.NewRenderer(w)
	return &printer{
		w:     w,
		quiet: flags.quiet,
		ok:    r.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true),
		warn:  r.NewStyle().Foreground(lipgloss.Color("#FFB454")).Bold(true),
		dim:   r.NewStyle().Foreground(lipgloss.Color("#AAAAAA")),
		head:  r.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true),
	}
}

// success prints a success message.
func (p *printer) success(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.ok.Render("✓"), fmt.Sprintf(format, args...))
}

// info prints an info message unless quiet.
func (p *printer) info(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.w, "  %s\n", p.dim.Render(fmt.Sprintf(format, args...)))
}

// warning prints a warning message.
func (p *printer) warning(format string, args ...any) {
	fmt.Fprintf(p.w, "%s %s\n", p.warn.Render("⚠"), fmt.Sprintf(format, args...))
}

// heading prints a section title.
func (p *printer) heading(text string) {
	fmt.Fprintln(p.w, p.head.Render(text))
}

// plain prints text as is.
func (p *printer) plain(text string) {
	fmt.Fprint(p.w, text)
}

// entryTree renders archive entry names as a tree under rootLabel.
type entryTree struct {
	tree gotree.Tree
	dirs map[string]gotree.Tree
}

func newEntryTree(rootLabel string) entryTree {
	return entryTree{tree: gotree.New(rootLabel), dirs: make(map[string]gotree.Tree)}
}

func (t entryTree) dir(dirPath string) gotree.Tree {
	if dirPath == "." || dirPath == "" {
		return t.tree
	}
	d := t.dirs[dirPath]
	if d == nil {
		d = t.dir(path.Dir(dirPath)).Add(path.Base(dirPath) + "/")
		t.dirs[dirPath] = d
	}
	return d
}

// insert adds a slash-separated entry name.
func (t entryTree) insert(name string) {
	t.dir(path.Dir(name)).Add(path.Base(name))
}

func (t entryTree) render() string {
	return t.tree.Print()
}

// formatBytes formats bytes as a human-readable string.
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
