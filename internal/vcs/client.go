// Package vcs resolves release versions against git history and exports
// pristine snapshots of the source tree.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
)

const tracerName = "aadt/vcs"

// Client is the version-control surface the resolver depends on.
//
// Lookups report failure through the boolean and never return errors:
// a missing tag, an unknown ref and a broken repository are all the same
// "no answer" to the caller.
type Client interface {
	// CurrentCommit returns the commit id of HEAD.
	CurrentCommit(ctx context.Context) (string, bool)

	// LatestTag returns the most recent tag reachable from HEAD.
	LatestTag(ctx context.Context) (string, bool)

	// ResolveRef returns the commit id a ref points at.
	ResolveRef(ctx context.Context, ref string) (string, bool)

	// CommitTime returns the committer timestamp of rev in Unix seconds.
	CommitTime(ctx context.Context, rev string) (int64, bool)

	// Export writes the tracked files of rev into targetDir, leaving out
	// every entry with a path component matching one of excludes.
	Export(ctx context.Context, rev, targetDir string, excludes []string) error
}

// Git implements Client with the git command-line tool.
type Git struct {
	// Dir is the working tree the commands run in.
	Dir string

	// Binary is the git executable (default: "git").
	Binary string

	logger *slog.Logger
	tracer trace.Tracer
}

// NewGit creates a git client rooted at dir.
func NewGit(dir string) *Git {
	return &Git{
		Dir:    dir,
		Binary: "git",
		logger: slog.Default().With("component", "git"),
		tracer: otel.Tracer(tracerName),
	}
}

// SetLogger sets the logger used for lookup failures.
func (g *Git) SetLogger(l *slog.Logger) {
	if l != nil {
		g.logger = l
	}
}

// CurrentCommit implements Client.
func (g *Git) CurrentCommit(ctx context.Context) (string, bool) {
	return g.lookup(ctx, "rev-parse", "HEAD")
}

// LatestTag implements Client.
func (g *Git) LatestTag(ctx context.Context) (string, bool) {
	return g.lookup(ctx, "describe", "--tags", "--abbrev=0")
}

// ResolveRef implements Client.
func (g *Git) ResolveRef(ctx context.Context, ref string) (string, bool) {
	if ref == "" || strings.HasPrefix(ref, "-") {
		return "", false
	}
	return g.lookup(ctx, "rev-parse", "--verify", "--quiet", ref+"^{commit}")
}

// CommitTime implements Client.
func (g *Git) CommitTime(ctx context.Context, rev string) (int64, bool) {
	if rev == "" || strings.HasPrefix(rev, "-") {
		return 0, false
	}
	out, ok := g.lookup(ctx, "log", "-1", "--format=%ct", rev)
	if !ok {
		return 0, false
	}
	ts, err := strconv.ParseInt(out, 10, 64)
	if err != nil {
		g.logger.Debug("unexpected commit time", "rev", rev, "output", out)
		return 0, false
	}
	return ts, true
}

// Export implements Client. The archive is streamed from git and unpacked
// in-process.
func (g *Git) Export(ctx context.Context, rev, targetDir string, excludes []string) (err error) {
	ctx, span := g.tracer.Start(ctx, "git.export",
		trace.WithAttributes(
			attribute.String("vcs.rev", rev),
			attribute.String("vcs.target", targetDir),
		),
	)
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if rev == "" || strings.HasPrefix(rev, "-") {
		return fmt.Errorf("invalid revision %q", rev)
	}

	cmd := exec.CommandContext(ctx, g.Binary, "archive", "--format=tar", "--prefix=", rev)
	cmd.Dir = g.Dir

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start git archive: %w", err)
	}

	n, extractErr := ExtractTar(stdout, targetDir, excludes)
	if extractErr != nil {
		// Unblock git if it is still writing.
		_, _ = io.Copy(io.Discard, stdout)
	}
	waitErr := cmd.Wait()

	if waitErr != nil {
		return fmt.Errorf("git archive %s: %s: %w", rev, strings.TrimSpace(stderr.String()), waitErr)
	}
	if extractErr != nil {
		return fmt.Errorf("extract %s: %w", rev, extractErr)
	}

	span.SetAttributes(attribute.Int("vcs.entries", n))
	g.logger.Debug("exported snapshot", "rev", rev, "entries", n, "target", targetDir)
	return nil
}

// lookup runs a query command and returns its trimmed output. Any failure,
// including empty output, reports false.
func (g *Git) lookup(ctx context.Context, args ...string) (string, bool) {
	ctx, span := g.tracer.Start(ctx, "git."+args[0],
		trace.WithAttributes(attribute.StringSlice("vcs.args", args)),
	)
	defer span.End()

	out, err := g.run(ctx, args...)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		g.logger.Debug("git lookup failed", "args", args, "error", err)
		return "", false
	}
	if out == "" {
		g.logger.Debug("git lookup returned nothing", "args", args)
		return "", false
	}
	return out, true
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Dir = g.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", errors.Newf(errors.CategoryVersion, "git %s", strings.Join(args, " ")).
			WithDetail(strings.TrimSpace(stderr.String())).
			Wrap(err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
