package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/fsutil"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globalFlags are the root command's persistent flags.
type globalFlags struct {
	verbose bool
	quiet   bool
	project string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if f, ok := stderr.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		errors.DisableColors()
	}

	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errors.Print(stderr, err)
		return 1
	}
	return 0
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "aadt",
		Short: "Build and release toolkit for Anki add-ons",
		Long: `aadt packages Anki add-ons into .ankiaddon files.

Builds are taken from git history so that a release always contains
exactly what was tagged:

  • Resolve "release", "current", a tag or any git ref to a version
  • Export a pristine snapshot of the tracked files
  • Compile Qt Designer forms and write manifest.json
  • Package reproducible artifacts for local installs and AnkiWeb`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(stderr, flags)
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&flags.quiet, "quiet", "q", false, "Only print warnings, errors and results")
	rootCmd.PersistentFlags().StringVarP(&flags.project, "project", "p", "", "Project root (default: nearest directory with addon.json)")

	rootCmd.AddCommand(
		buildCmd(flags),
		createDistCmd(flags),
		buildDistCmd(flags),
		packageDistCmd(flags),
		manifestCmd(flags),
		uiCmd(flags),
		cleanCmd(flags),
		configCmd(flags),
		publishCmd(flags),
		serveCmd(flags),
		versionCmd(),
	)

	return rootCmd
}

// setupLogging installs the default logger for the chosen verbosity.
func setupLogging(w io.Writer, flags *globalFlags) {
	level := slog.LevelInfo
	switch {
	case flags.verbose:
		level = slog.LevelDebug
	case flags.quiet:
		level = slog.LevelWarn
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	fsutil.SetLogger(slog.Default().With("component", "fsutil"))
}
