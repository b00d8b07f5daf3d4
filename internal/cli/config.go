package cli

import (
	"github.com/spf13/cobra"
)

func newListConfigCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "listconfig",
		Short: "Print information about the program configuration",
		Long: `Print the resolved configuration, after the config file, TETRIPIN_*
environment variables and command line flags were applied.

No key material is printed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := writeOutput(out, "config_file=%s\n", a.cfgPath); err != nil {
				return err
			}
			for _, entry := range a.cfg.Entries() {
				if err := writeOutput(out, "%s=%s\n", entry[0], entry[1]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
