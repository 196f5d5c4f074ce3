package main

import (
	"github.com/spf13/cobra"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/ui"
)

func uiCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "ui",
		Short: "Compile Qt Designer forms into the source module",
		Long: `Compile the project's .ui files into Python modules under the
source module's forms package, copy UI resources and write the
forms/__init__.py shim.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd, flags)
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}

			c := ui.New(cfg.Build.UI)
			moduleDir := cfg.SourceModulePath()
			generated, err := c.Build(cmd.Context(), cfg.Dir(), moduleDir)
			if err != nil {
				return err
			}
			if !generated {
				out.warning("No designer files found")
				return nil
			}
			if err := c.CreateShim(cmd.Context(), moduleDir); err != nil {
				return err
			}
			out.success("Compiled forms into %s", relTo(cfg.Dir(), c.FormsDir(moduleDir)))
			return nil
		},
	}
}
