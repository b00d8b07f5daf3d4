package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetricoins/tetripin/internal/store"
)

func newUnlockCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Unlock password protected secrets",
		Long: `Derive the key of a password protected (format version 3) secrets file
and keep it in the key cache until 'tetripin lock'.

The password is checked against every stored secret. A wrong password leaves
the key cache untouched.

Example:
  tetripin unlock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.bootstrap(ctx); err != nil {
				return err
			}

			st, err := a.engine.State(ctx)
			if err != nil {
				return err
			}
			if st.Version != store.V3PasswordKey {
				return writeOutput(cmd.OutOrStdout(), "Secrets file is %s, there is no password to unlock\n", st.Version)
			}

			password, err := a.prompt.Password("Enter your password: ")
			if err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			if err := a.engine.Unlock(ctx, password); err != nil {
				return fmt.Errorf("failed to unlock secrets: %w", err)
			}

			return writeOutput(cmd.OutOrStdout(), "✓ Secrets unlocked successfully\n")
		},
	}
}
