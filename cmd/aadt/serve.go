package main

import (
	"github.com/spf13/cobra"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/distserver"
)

func serveCmd(flags *globalFlags) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve built artifacts over HTTP",
		Long: `Serve the output directory so a test machine can download the latest
build. GET / lists artifacts as JSON, /artifacts/<name> downloads one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := newPrinter(cmd, flags)
			cfg, err := loadProject(flags)
			if err != nil {
				return err
			}

			out.success("Serving %s on http://%s", relTo(cfg.Dir(), cfg.OutputPath()), addr)
			out.info("Press Ctrl+C to stop")
			return distserver.New(cfg.OutputPath()).ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8765", "Listen address")
	return cmd
}
