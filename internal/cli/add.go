package cli

import (
	"github.com/spf13/cobra"
)

func newAddCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "add ACCOUNT SECRET",
		Short: "Add a new account",
		Long: `Add an account with its base32 TOTP seed.

Account names are case insensitive and surrounding spaces are ignored. The
seed is encrypted with the active key unless the secrets file is still in the
plaintext format.

Example:
  tetripin add github "JBSW Y3DP EHPK 3PXP"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			if err := a.engine.AddAccount(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), "Account added\n")
		},
	}
}
