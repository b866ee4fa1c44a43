package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mat-xc/blueprint-mode/internal/config"
)

func newConfigCmd(opts Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
		// A broken config file must not prevent writing a fresh one.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) > 1 {
				return errors.New("config init accepts at most one path")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.LocalFile
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			_, err := fmt.Fprintf(opts.Stdout, "wrote %s\n", path)
			return err
		},
	})
	return cmd
}
