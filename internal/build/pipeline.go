package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/fsutil"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/manifest"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/vcs"
)

// ArtifactExt is the extension of packaged add-ons.
const ArtifactExt = ".ankiaddon"

// UICompiler compiles designer files into the staged module.
type UICompiler interface {
	// Build compiles the designer files found under root into moduleDir
	// and reports whether any code was generated.
	Build(ctx context.Context, root, moduleDir string) (bool, error)

	// CreateShim writes the compatibility shim for generated code.
	CreateShim(ctx context.Context, moduleDir string) error
}

// Options configures the pipeline.
type Options struct {
	// Version is the version token to build ("", "dev", "current",
	// "release", a literal version or a git ref).
	Version string

	// Resolver resolves the version and snapshots the source tree.
	// Default: a git-backed resolver rooted at the project.
	Resolver *vcs.Resolver

	// UI compiles designer files. Nil skips UI compilation.
	UI UICompiler

	// Metrics records phase durations and artifact sizes. Nil disables.
	Metrics *Metrics

	// PostArchive is called once after the snapshot is written.
	PostArchive func(ctx context.Context, stagingRoot string) error

	// Logger is the pipeline's logger.
	Logger *slog.Logger

	// OnProgress is called with progress updates.
	OnProgress func(step string)
}

// Pipeline builds the artifacts for one resolved version.
type Pipeline struct {
	config   *config.Config
	options  Options
	resolver *vcs.Resolver
	version  string
	state    State
	modTime  int64
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New resolves the version token and prepares a pipeline for it.
func New(ctx context.Context, cfg *config.Config, options Options) (*Pipeline, error) {
	if options.Logger == nil {
		options.Logger = slog.Default().With("component", "build")
	}
	if options.Resolver == nil {
		options.Resolver = DefaultResolver(cfg)
	}

	p := &Pipeline{
		config:   cfg,
		options:  options,
		resolver: options.Resolver,
		state:    StateInitialized,
		logger:   options.Logger,
		tracer:   otel.Tracer("aadt/build"),
	}

	p.version = p.resolver.Resolve(ctx, options.Version)
	if p.version == "" {
		return nil, errors.New("E100").WithDetailf("token %q", options.Version)
	}

	p.logger.Debug("pipeline ready", "version", p.version, "project", cfg.Dir())
	return p, nil
}

// DefaultResolver returns the git-backed resolver for the project.
func DefaultResolver(cfg *config.Config) *vcs.Resolver {
	return vcs.NewResolver(
		vcs.NewGit(cfg.Dir()),
		cfg.Dir(),
		cfg.ExcludePatterns(),
		vcs.WithSkipDirs(cfg.OutputPath()),
	)
}

// Version returns the resolved version.
func (p *Pipeline) Version() string { return p.version }

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return p.state }

// StagingPath returns the staging root.
func (p *Pipeline) StagingPath() string { return p.config.StagingPath() }

// ModulePath returns the module directory inside the staging root.
func (p *Pipeline) ModulePath() string { return p.config.ModulePath() }

// versionSeparators keeps tag names such as "release/1.0" in one file name.
var versionSeparators = strings.NewReplacer("/", "-", `\`, "-")

// ArtifactPath returns where the artifact for target is written.
func (p *Pipeline) ArtifactPath(target DistType) string {
	name := p.config.RepoName + "-" + versionSeparators.Replace(p.version)
	if target == AnkiWeb {
		name += "-" + string(AnkiWeb)
	}
	return filepath.Join(p.config.OutputPath(), name+ArtifactExt)
}

// CreateDist recreates the staging area and writes the snapshot of the
// resolved version into it.
func (p *Pipeline) CreateDist(ctx context.Context) error {
	if err := p.checkTransition(StateArchived); err != nil {
		return err
	}

	return p.phase(ctx, "create_dist", nil, func(ctx context.Context) error {
		staging := p.StagingPath()

		p.progress("Preparing staging area...")
		if err := os.RemoveAll(staging); err != nil {
			return errors.New("E111").WithDetail(staging).Wrap(err)
		}
		fsutil.Purge(p.config.Dir(), p.config.Build.TrashPatterns, true)
		if err := os.MkdirAll(staging, 0755); err != nil {
			return errors.New("E111").WithDetail(staging).Wrap(err)
		}

		p.progress(fmt.Sprintf("Exporting %s...", p.version))
		if err := p.resolver.Archive(ctx, p.version, staging); err != nil {
			return err
		}

		if p.options.PostArchive != nil {
			if err := p.options.PostArchive(ctx, staging); err != nil {
				return errors.FromError(err, "E112")
			}
		}

		return p.transition(StateArchived)
	})
}

// BuildDist assembles the staged module for target.
func (p *Pipeline) BuildDist(ctx context.Context, target DistType) error {
	if _, err := ParseDistType(string(target)); err != nil {
		return err
	}
	if err := p.checkTransition(StateAssembled); err != nil {
		return err
	}

	return p.phase(ctx, "build_dist", &target, func(ctx context.Context) error {
		moduleDir, err := p.stagedModule()
		if err != nil {
			return err
		}

		p.progress(fmt.Sprintf("Assembling %s build...", target))
		if err := p.copyLicenses(moduleDir); err != nil {
			return err
		}
		if err := p.copyChangelog(moduleDir); err != nil {
			return err
		}
		if err := p.copyIcons(); err != nil {
			return err
		}

		if p.options.UI != nil {
			generated, err := p.options.UI.Build(ctx, p.StagingPath(), moduleDir)
			if err != nil {
				return errors.FromError(err, "E114")
			}
			if generated {
				if err := p.options.UI.CreateShim(ctx, moduleDir); err != nil {
					return errors.FromError(err, "E114")
				}
			}
		}

		if _, err := manifest.Write(p.config, p.version, string(target), moduleDir, p.modificationTime(ctx)); err != nil {
			return err
		}

		return p.transition(StateAssembled)
	})
}

// PackageDist zips the staged module into the artifact for target and
// returns the artifact's path.
func (p *Pipeline) PackageDist(ctx context.Context, target DistType) (string, error) {
	if _, err := ParseDistType(string(target)); err != nil {
		return "", err
	}
	if err := p.checkTransition(StatePackaged); err != nil {
		return "", err
	}

	artifact := p.ArtifactPath(target)
	err := p.phase(ctx, "package_dist", &target, func(ctx context.Context) error {
		moduleDir, err := p.stagedModule()
		if err != nil {
			return err
		}

		p.progress(fmt.Sprintf("Packaging %s...", filepath.Base(artifact)))
		size, err := writeArchive(moduleDir, artifact)
		if err != nil {
			return errors.New("E116").WithDetail(artifact).Wrap(err)
		}

		p.options.Metrics.observeArtifact(target, size)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("artifact.size", size))
		p.logger.Info("packaged", "artifact", artifact, "bytes", size)

		return p.transition(StatePackaged)
	})
	if err != nil {
		return "", err
	}
	return artifact, nil
}

// Cleanup removes the staging area. It is safe to call repeatedly.
func (p *Pipeline) Cleanup() error {
	start := time.Now()
	staging := p.StagingPath()

	err := os.RemoveAll(staging)
	p.options.Metrics.observePhase("cleanup", time.Since(start), err)
	if err != nil {
		return errors.New("E117").WithDetail(staging).Wrap(err)
	}

	p.state = StateCleanedUp
	p.logger.Debug("removed staging area", "path", staging)
	return nil
}

// Build runs every phase for a single target.
func (p *Pipeline) Build(ctx context.Context, target DistType) (string, error) {
	paths, err := p.BuildTargets(ctx, target)
	if err != nil {
		return "", err
	}
	return paths[0], nil
}

// BuildTargets snapshots once and packages each target in turn. Targets
// are validated before anything on disk changes. The staging area is
// removed whether or not the build succeeds; the first phase error wins
// over a cleanup error.
func (p *Pipeline) BuildTargets(ctx context.Context, targets ...DistType) (paths []string, err error) {
	if len(targets) == 0 {
		return nil, errors.New("E110").WithDetail("no distribution type given")
	}
	for _, t := range targets {
		if _, err := ParseDistType(string(t)); err != nil {
			return nil, err
		}
	}

	defer func() {
		if cerr := p.Cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if err := p.CreateDist(ctx); err != nil {
		return nil, err
	}
	for _, t := range targets {
		if err := p.BuildDist(ctx, t); err != nil {
			return nil, err
		}
		path, err := p.PackageDist(ctx, t)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// phase runs fn inside a span, timing it for the metrics.
func (p *Pipeline) phase(ctx context.Context, name string, target *DistType, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{attribute.String("addon.version", p.version)}
	if target != nil {
		attrs = append(attrs, attribute.String("addon.target", string(*target)))
	}
	ctx, span := p.tracer.Start(ctx, "build."+name, trace.WithAttributes(attrs...))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	p.options.Metrics.observePhase(name, duration, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Debug("phase failed", "phase", name, "error", err)
		return err
	}

	p.logger.Debug("phase done", "phase", name, "duration", duration)
	return nil
}

// stagedModule returns the staged module directory, which must exist.
func (p *Pipeline) stagedModule() (string, error) {
	dir := p.ModulePath()
	info, err := os.Stat(dir)
	if err != nil {
		return "", errors.New("E111").
			WithDetailf("module directory %s is missing", dir).
			WithSuggestion("Run 'aadt create-dist' first, and check module_name in addon.json").
			Wrap(err)
	}
	if !info.IsDir() {
		return "", errors.New("E111").WithDetailf("%s is not a directory", dir)
	}
	return dir, nil
}

func (p *Pipeline) modificationTime(ctx context.Context) int64 {
	if p.modTime == 0 {
		p.modTime = p.resolver.ModificationTime(ctx, p.version)
	}
	return p.modTime
}

// progress reports build progress.
func (p *Pipeline) progress(step string) {
	if p.options.OnProgress != nil {
		p.options.OnProgress(step)
	}
}
