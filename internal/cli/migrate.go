package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tetricoins/tetripin/internal/store"
)

func newMigrateCommand(a *App) *cobra.Command {
	var to int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upgrade the secrets file format",
		Long: `Upgrade the secrets file to a newer format version:

  1  seeds in clear text
  2  seeds encrypted with a random key kept in the key cache
  3  seeds encrypted with a key derived from a password

A copy of the previous file is written next to it before anything changes.
Running the command on a file that is already up to date does nothing.

Example:
  tetripin migrate
  tetripin migrate --to 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target := store.Version(to)
			if !target.Valid() {
				return fmt.Errorf("invalid --to %d: format versions go from %d to %d", to, int(store.V1Plaintext), int(store.CurrentVersion))
			}
			if err := a.bootstrap(ctx); err != nil {
				return err
			}

			st, err := a.engine.State(ctx)
			if err != nil {
				return err
			}
			if st.Version >= target {
				return writeOutput(cmd.OutOrStdout(), "Secrets file is already at format version %d\n", int(st.Version))
			}

			var password string
			if target == store.V3PasswordKey {
				if err := writeOutput(cmd.ErrOrStderr(), "Choose a password to encrypt your secrets.\n"); err != nil {
					return err
				}
				password, err = a.prompt.PasswordConfirm("Enter your password: ")
				if err != nil {
					return err
				}
			}

			res, err := a.engine.Upgrade(ctx, target, password)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := writeOutput(out, "✓ Secrets file migrated from version %d to %d\n", int(res.From), int(res.To)); err != nil {
				return err
			}
			if res.BackupPath != "" {
				return writeOutput(out, "Previous file kept at %s\n", res.BackupPath)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&to, "to", int(store.CurrentVersion), "Target format version")

	return cmd
}
