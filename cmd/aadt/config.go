package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/config"
	"github.com/libukai/Anki-Addon-Dev-ToolKit/internal/errors"
)

func configCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read or update addon.json",
		Long: `Read or update a top-level key of the project's configuration file.
Other keys are written back exactly as they were read.`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print the value of a key as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := loadProject(flags)
				if err != nil {
					return err
				}
				v, ok := cfg.Get(args[0])
				if !ok {
					return errors.Newf(errors.CategoryConfig, "key %q is not set in %s", args[0], relTo(cfg.Dir(), cfg.Path()))
				}
				data, err := json.MarshalIndent(v, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set a key and save the file",
			Long: `Set a top-level key. String keys take the value verbatim; for other
keys a value that parses as JSON (a list, number, boolean or object) is
stored as such, anything else as a string.

Examples:
  aadt config set ankiweb_id 1771074083
  aadt config set conflicts '["123456"]'`,
			Args: cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				out := newPrinter(cmd, flags)
				cfg, err := loadProject(flags)
				if err != nil {
					return err
				}
				if err := cfg.Set(args[0], config.ParseValue(args[0], args[1])); err != nil {
					return err
				}
				out.success("Set %s in %s", args[0], relTo(cfg.Dir(), cfg.Path()))
				return nil
			},
		},
	)

	return cmd
}
