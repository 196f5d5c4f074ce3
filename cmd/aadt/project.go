package main

import (
	"context"
	"strings"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/build"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/ui"
)

// loadProject loads the configuration of the project given by --project,
// or of the nearest project above the working directory, and checks that
// it is an add-on project.
func loadProject(flags *globalFlags) (*config.Config, error) {
	if flags.project == "" {
		cfg, err := config.LoadFromWorkingDir()
		if err != nil {
			return nil, err
		}
		if !config.IsProject(cfg.Dir()) {
			return nil, errors.New("E140").WithDetail(cfg.Dir())
		}
		return cfg, nil
	}

	if !config.IsProject(flags.project) {
		return nil, errors.New("E140").WithDetail(flags.project)
	}
	return config.Load(flags.project)
}

// parseTargets expands a -d value into distribution targets. "all" means
// every target.
func parseTargets(value string) ([]build.DistType, error) {
	if strings.TrimSpace(value) == "all" {
		return build.DistTypes, nil
	}
	d, err := build.ParseDistType(value)
	if err != nil {
		return nil, err
	}
	return []build.DistType{d}, nil
}

// newPipeline creates the one pipeline a command runs against.
func newPipeline(ctx context.Context, cfg *config.Config, versionToken string, opts build.Options) (*build.Pipeline, error) {
	opts.Version = versionToken
	if opts.UI == nil {
		opts.UI = ui.New(cfg.Build.UI)
	}
	p, err := build.New(ctx, cfg, opts)
	if err != nil {
		return nil, errors.New("E141").Wrap(err)
	}
	return p, nil
}

// versionArg returns the optional positional version token.
func versionArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
