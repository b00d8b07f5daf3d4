package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tetricoins/tetripin/internal/store"
)

func newLockCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "lock",
		Short: "Remove the cached key",
		Long: `Remove the key from the key cache.

Password protected secrets need 'tetripin unlock' afterwards. The random key
of a key cache protected (format version 2) file cannot be recovered, so the
command asks for confirmation first.

Example:
  tetripin lock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			st, err := a.engine.State(ctx)
			switch {
			case errors.Is(err, os.ErrNotExist):
				// No secrets file: still drop a stale key.
			case err != nil:
				return err
			case !st.Version.Encrypted():
				return writeOutput(cmd.OutOrStdout(), "Secrets file is not encrypted, nothing to lock\n")
			case !st.Unlocked:
				return writeOutput(cmd.OutOrStdout(), "Secrets are already locked\n")
			case st.Version == store.V2KeyringKey && st.Accounts > 0 && !a.flags.yes:
				ok, err := a.prompt.Confirm("The key of this file is not derived from a password and cannot be recovered. Remove it anyway?", false)
				if err != nil {
					return err
				}
				if !ok {
					return writeOutput(cmd.OutOrStdout(), "Cancelled\n")
				}
			}

			if err := a.engine.Lock(ctx); err != nil {
				return fmt.Errorf("failed to lock secrets: %w", err)
			}
			return writeOutput(cmd.OutOrStdout(), "✓ Secrets locked successfully\n")
		},
	}
}
