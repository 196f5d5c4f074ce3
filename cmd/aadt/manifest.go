package main

import (
	"os"
	"path/filepath"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/build"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/manifest"
)

func manifestCmd(flags *globalFlags) *cobra.Command {
	var (
		dist string
		diff bool
	)

	cmd := &cobra.Command{
		Use:   "manifest [version]",
		Short: "Write manifest.json into the source module",
		Long: `Write manifest.json into the source module so the add-on can be
loaded from a development checkout. With --diff, print the changes
against the current file instead of writing it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runManifest(cmd, flags, dist, diff, versionArg(args))
		},
	}

	cmd.Flags().StringVarP(&dist, "dist", "d", string(build.Local), "Distribution target: local or ankiweb")
	cmd.Flags().BoolVar(&diff, "diff", false, "Show a unified diff instead of writing")

	return cmd
}

func runManifest(cmd *cobra.Command, flags *globalFlags, dist string, diff bool, token string) error {
	ctx := cmd.Context()
	out := newPrinter(cmd, flags)

	cfg, err := loadProject(flags)
	if err != nil {
		return err
	}
	target, err := build.ParseDistType(dist)
	if err != nil {
		return err
	}

	resolver := build.DefaultResolver(cfg)
	version := resolver.Resolve(ctx, token)
	if version == "" {
		return errors.New("E141").Wrap(errors.New("E100").WithDetailf("token %q", token))
	}
	modTime := resolver.ModificationTime(ctx, version)
	moduleDir := cfg.SourceModulePath()

	if !diff {
		path, err := manifest.Write(cfg, version, string(target), moduleDir, modTime)
		if err != nil {
			return err
		}
		out.success("Wrote %s", relTo(cfg.Dir(), path))
		return nil
	}

	want, err := manifest.Render(cfg, version, string(target), modTime)
	if err != nil {
		return errors.New("E115").Wrap(err)
	}
	path := filepath.Join(moduleDir, manifest.FileName)
	have, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}

	text, err := unifiedDiff(relTo(cfg.Dir(), path), string(have), string(want))
	if err != nil {
		return err
	}
	if text == "" {
		out.success("%s is up to date", relTo(cfg.Dir(), path))
		return nil
	}
	out.plain(text)
	return nil
}

// unifiedDiff returns a unified diff of two file versions, or "" when they
// are equal.
func unifiedDiff(name, a, b string) (string, error) {
	if a == b {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a),
		B:        difflib.SplitLines(b),
		FromFile: name,
		ToFile:   name + " (generated)",
		Context:  3,
	})
}
