package main

import (
	"github.com/spf13/cobra"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/build"
)

func cleanCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the staging area and build byproducts",
		Long:  `Remove the staging area and purge trash such as __pycache__ and *.pyc. Artifacts are kept.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd, flags)
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}
			if err := build.Clean(cfg); err != nil {
				return err
			}
			out.success("Cleaned %s", cfg.DisplayName)
			return nil
		},
	}
}
