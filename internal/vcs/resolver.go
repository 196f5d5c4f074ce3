package vcs

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/fsutil"
)

// Reserved version tokens.
const (
	// Dev builds the working tree as it is on disk.
	Dev = "dev"

	// Current builds the commit HEAD points at.
	Current = "current"

	// Release builds the most recent tag.
	Release = "release"
)

// literalVersion matches tokens used verbatim, such as "1.2.0" or "v2.0".
var literalVersion = regexp.MustCompile(`^v?[0-9]+(\.[0-9]+)*$`)

// IsLiteralVersion reports whether token is used as a version without
// consulting git.
func IsLiteralVersion(token string) bool {
	return literalVersion.MatchString(strings.TrimSpace(token))
}

// Resolver turns version tokens into concrete versions and materializes
// snapshots for them.
type Resolver struct {
	client      Client
	projectRoot string
	excludes    []string
	skipDirs    []string
	now         func() time.Time
	logger      *slog.Logger
	tracer      trace.Tracer
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithSkipDirs lists directories that a dev snapshot never copies, such as
// the build output directory.
func WithSkipDirs(dirs ...string) ResolverOption {
	return func(r *Resolver) {
		for _, d := range dirs {
			if abs, err := filepath.Abs(d); err == nil {
				r.skipDirs = append(r.skipDirs, abs)
			}
		}
	}
}

// WithClock sets the wall clock used for modification-time fallbacks.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) {
		r.now = now
	}
}

// WithResolverLogger sets the resolver's logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewResolver creates a resolver for the project at projectRoot. Snapshots
// leave out every entry matching one of excludes.
func NewResolver(client Client, projectRoot string, excludes []string, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		client:      client,
		projectRoot: projectRoot,
		excludes:    excludes,
		now:         time.Now,
		logger:      slog.Default().With("component", "resolver"),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve turns a version token into a concrete version. It never fails:
// when nothing else applies the latest tag is used, and "dev" when the
// repository has no tags.
func (r *Resolver) Resolve(ctx context.Context, token string) string {
	ctx, span := r.tracer.Start(ctx, "resolve_version",
		trace.WithAttributes(attribute.String("version.token", token)),
	)
	defer span.End()

	version := r.resolve(ctx, strings.TrimSpace(token))
	span.SetAttributes(attribute.String("version.resolved", version))
	r.logger.Debug("resolved version", "token", token, "version", version)
	return version
}

func (r *Resolver) resolve(ctx context.Context, token string) string {
	switch token {
	case "":
		return r.latestOrDev(ctx)
	case Dev:
		return Dev
	case Current:
		if commit, ok := r.client.CurrentCommit(ctx); ok {
			return commit
		}
	case Release:
		if tag, ok := r.client.LatestTag(ctx); ok {
			return tag
		}
	}

	if literalVersion.MatchString(token) {
		return token
	}
	if commit, ok := r.client.ResolveRef(ctx, token); ok {
		return commit
	}
	return r.latestOrDev(ctx)
}

func (r *Resolver) latestOrDev(ctx context.Context) string {
	if tag, ok := r.client.LatestTag(ctx); ok {
		return tag
	}
	return Dev
}

// ModificationTime returns the Unix timestamp recorded as the release's
// modification time: the commit time of version, or the current time for
// dev builds and versions git does not know.
func (r *Resolver) ModificationTime(ctx context.Context, version string) int64 {
	if version == Dev {
		return r.now().Unix()
	}
	if ts, ok := r.client.CommitTime(ctx, version); ok {
		return ts
	}
	r.logger.Debug("no commit time, using wall clock", "version", version)
	return r.now().Unix()
}

// Archive writes the snapshot of version into targetDir. Dev snapshots are
// copied from the working tree; any other version is exported from git.
func (r *Resolver) Archive(ctx context.Context, version, targetDir string) error {
	ctx, span := r.tracer.Start(ctx, "archive",
		trace.WithAttributes(attribute.String("version", version)),
	)
	defer span.End()

	if version == Dev {
		if err := r.copyWorkingTree(targetDir); err != nil {
			span.RecordError(err)
			return errors.New("E112").WithDetail("copy working tree").Wrap(err)
		}
		return nil
	}

	if err := r.client.Export(ctx, version, targetDir, r.excludes); err != nil {
		span.RecordError(err)
		return errors.New("E112").WithDetailf("git archive %s", version).Wrap(err)
	}
	return nil
}

func (r *Resolver) copyWorkingTree(targetDir string) error {
	target, err := filepath.Abs(targetDir)
	if err != nil {
		return err
	}
	root, err := filepath.Abs(r.projectRoot)
	if err != nil {
		return err
	}
	skipDirs := append([]string{target}, r.skipDirs...)

	return fsutil.CopyFiltered(root, target, func(rel string, d fs.DirEntry) bool {
		if rel == ".git" || fsutil.MatchAny(d.Name(), r.excludes) {
			return true
		}
		if !d.IsDir() {
			return false
		}
		abs := filepath.Join(root, filepath.FromSlash(rel))
		for _, skip := range skipDirs {
			if abs == skip {
				return true
			}
		}
		return false
	})
}
