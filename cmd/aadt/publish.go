package main

import (
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/build"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/publish"
)

func publishCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "publish [artifact...]",
		Short: "Upload artifacts to the release bucket",
		Long: `Upload packaged artifacts to the S3 bucket configured under
"publish" in addon.json. Without arguments every artifact of the
project in the output directory is uploaded.

Credentials and the default region come from the standard AWS
configuration chain: environment variables, ~/.aws/config and
~/.aws/credentials (AWS_PROFILE selects a profile), SSO and instance roles.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd, flags)
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}

			artifacts := args
			if len(artifacts) == 0 {
				if artifacts, err = projectArtifacts(cfg); err != nil {
					return err
				}
			}
			if len(artifacts) == 0 {
				return errors.New("E130").
					WithDetailf("no artifacts in %s", relTo(cfg.Dir(), cfg.OutputPath())).
					WithSuggestion("Run 'aadt build' first")
			}

			client, err := publish.NewS3Client(cmd.Context(), cfg.Publish)
			if err != nil {
				return err
			}
			uploader, err := publish.NewS3Uploader(cfg, client)
			if err != nil {
				return err
			}
			return uploadAll(cmd, out, uploader, artifacts)
		},
	}
}

func uploadAll(cmd *cobra.Command, out *printer, uploader publish.Uploader, artifacts []string) error {
	for _, path := range artifacts {
		uri, err := uploader.Upload(cmd.Context(), path)
		if err != nil {
			return err
		}
		out.success("Uploaded %s", uri)
	}
	return nil
}

// projectArtifacts returns the project's artifacts in the output
// directory.
func projectArtifacts(cfg *config.Config) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(cfg.OutputPath(), cfg.RepoName+"-*"+build.ArtifactExt))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
