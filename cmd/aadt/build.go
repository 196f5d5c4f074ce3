package main

import (
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/build"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
)

// buildFlags are shared by the build commands.
type buildFlags struct {
	dist        string
	list        bool
	metricsFile string
}

func buildCmd(flags *globalFlags) *cobra.Command {
	opts := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build [version]",
		Short: "Build and package the add-on",
		Long: `Build the add-on for one or more distribution targets.

The version may be "dev" (working tree), "current" (HEAD), "release"
(latest tag, the default), a tag, a commit or any other git ref.

Examples:
  aadt build                  # latest tag, local target
  aadt build dev -d all       # working tree, local and AnkiWeb
  aadt build v1.2.0 -d ankiweb --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, flags, opts, versionArg(args))
		},
	}

	cmd.Flags().StringVarP(&opts.dist, "dist", "d", string(build.Local), "Distribution target: local, ankiweb or all")
	cmd.Flags().BoolVar(&opts.list, "list", false, "Print the contents of each artifact")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write build metrics to this file (Prometheus text format)")

	return cmd
}

func runBuild(cmd *cobra.Command, flags *globalFlags, opts *buildFlags, token string) error {
	ctx := cmd.Context()
	out := newPrinter(cmd, flags)

	cfg, err := loadProject(flags)
	if err != nil {
		return err
	}
	targets, err := parseTargets(opts.dist)
	if err != nil {
		return err
	}

	var metrics *build.Metrics
	if opts.metricsFile != "" {
		metrics = build.NewMetrics(prometheus.NewRegistry())
	}

	p, err := newPipeline(ctx, cfg, token, build.Options{
		Metrics:    metrics,
		OnProgress: func(step string) { out.info("%s", step) },
	})
	if err != nil {
		return err
	}

	out.heading("Building " + cfg.DisplayName + " " + p.Version())

	paths, err := p.BuildTargets(ctx, targets...)
	if werr := metrics.WriteToTextfile(opts.metricsFile); werr != nil {
		out.warning("Could not write metrics: %v", werr)
	}
	if err != nil {
		return err
	}

	return reportArtifacts(out, cfg, paths, opts.list)
}

// reportArtifacts prints one line per artifact and optionally its
// contents.
func reportArtifacts(out *printer, cfg *config.Config, paths []string, list bool) error {
	for _, path := range paths {
		size := int64(0)
		if info, err := os.Stat(path); err == nil {
			size = info.Size()
		}
		out.success("%s (%s)", relTo(cfg.Dir(), path), formatBytes(size))

		if !list {
			continue
		}
		names, err := build.ListArtifact(path)
		if err != nil {
			return err
		}
		tree := newEntryTree(filepath.Base(path))
		for _, name := range names {
			tree.insert(name)
		}
		out.plain(tree.render())
	}
	return nil
}

func createDistCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "create-dist [version]",
		Aliases: []string{"create_dist"},
		Short:   "Snapshot the version into the staging area",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd, flags)
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd.Context(), cfg, versionArg(args), build.Options{})
			if err != nil {
				return err
			}
			if err := p.CreateDist(cmd.Context()); err != nil {
				return err
			}
			out.success("Staged %s in %s", p.Version(), relTo(cfg.Dir(), p.StagingPath()))
			return nil
		},
	}
}

func buildDistCmd(flags *globalFlags) *cobra.Command {
	var dist string

	cmd := &cobra.Command{
		Use:     "build-dist [version]",
		Aliases: []string{"build_dist"},
		Short:   "Assemble the staged snapshot for a target",
		Long: `Add licenses, changelog, icons, compiled forms and manifest.json to
the staged snapshot. Run create-dist first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd, flags)
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}
			targets, err := parseTargets(dist)
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd.Context(), cfg, versionArg(args), build.Options{
				OnProgress: func(step string) { out.info("%s", step) },
			})
			if err != nil {
				return err
			}
			for _, t := range targets {
				if err := p.BuildDist(cmd.Context(), t); err != nil {
					return err
				}
				out.success("Assembled %s for %s", p.Version(), t)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&dist, "dist", "d", string(build.Local), "Distribution target: local, ankiweb or all")
	return cmd
}

func packageDistCmd(flags *globalFlags) *cobra.Command {
	var dist string

	cmd := &cobra.Command{
		Use:     "package-dist [version]",
		Aliases: []string{"package_dist"},
		Short:   "Package the assembled staging area",
		Long:    `Zip the assembled staging area into an .ankiaddon. Run build-dist first.`,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd, flags)
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}
			targets, err := parseTargets(dist)
			if err != nil {
				return err
			}
			p, err := newPipeline(cmd.Context(), cfg, versionArg(args), build.Options{})
			if err != nil {
				return err
			}
			var paths []string
			for _, t := range targets {
				path, err := p.PackageDist(cmd.Context(), t)
				if err != nil {
					return err
				}
				paths = append(paths, path)
			}
			return reportArtifacts(out, cfg, paths, false)
		},
	}

	cmd.Flags().StringVarP(&dist, "dist", "d", string(build.Local), "Distribution target: local, ankiweb or all")
	return cmd
}

// relTo returns path relative to base when possible.
func relTo(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}
