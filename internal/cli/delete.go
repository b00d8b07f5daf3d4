package cli

import (
	"github.com/spf13/cobra"

	"github.com/tetricoins/tetripin/internal/store"
)

func newRemoveCommand(a *App) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:     "rm ACCOUNT",
		Aliases: []string{"remove", "delete"},
		Short:   "Remove an account",
		Long: `Remove an account from the secrets file.

The removed entry is printed as stored so it can be added back by hand.

Example:
  tetripin rm github
  tetripin rm github --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}

			label := store.NormalizeLabel(args[0])
			if !force && !a.flags.yes {
				ok, err := a.prompt.Confirm("Remove account '"+label+"'?", false)
				if err != nil {
					return err
				}
				if !ok {
					return writeOutput(cmd.OutOrStdout(), "Cancelled\n")
				}
			}

			removed, err := a.engine.RemoveAccount(cmd.Context(), label)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), "Account removed: %s=%s\n", label, removed.Secret)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Do not ask for confirmation")

	return cmd
}
