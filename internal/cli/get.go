package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/tetricoins/tetripin/internal/store"
	"github.com/tetricoins/tetripin/internal/totp"
)

func newGenCommand(a *App) *cobra.Command {
	var (
		copyCode bool
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "gen ACCOUNT",
		Short: "Generate a PIN for the given account",
		Long: `Print the current TOTP code of an account.

With --copy the code is also put on the clipboard and cleared once the TTL
elapses (clipboard_ttl in the config, 30s by default).

Example:
  tetripin gen github
  tetripin gen github --copy --ttl 10s`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("ttl") {
				ttl = a.cfg.ClipboardTTL
			}
			return a.runGen(cmd, args[0], copyCode, ttl)
		},
	}

	cmd.Flags().BoolVarP(&copyCode, "copy", "c", false, "Copy the code to the clipboard")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Time before the clipboard is cleared (default from config)")

	return cmd
}

func (a *App) runGen(cmd *cobra.Command, account string, copyCode bool, ttl time.Duration) error {
	ctx := cmd.Context()
	if err := a.open(cmd); err != nil {
		return err
	}

	seed, err := a.seed(cmd, account)
	if err != nil {
		return err
	}

	label := store.NormalizeLabel(account)
	code, err := totp.Generate(seed, a.now())
	if err != nil {
		return fmt.Errorf("the secret for account %q is not a valid TOTP seed: %w", label, err)
	}

	if err := writeOutput(cmd.OutOrStdout(), "%s\n", code); err != nil {
		return err
	}
	if !copyCode {
		return nil
	}

	if ttl > 0 {
		if err := writeOutput(cmd.ErrOrStderr(), "✓ Code copied to clipboard (clears in %s)\n", ttl.Round(time.Second)); err != nil {
			return err
		}
	}
	return a.copyText(ctx, code, ttl)
}

// seed resolves the seed of account with messages naming the secrets file.
func (a *App) seed(cmd *cobra.Command, account string) (string, error) {
	st, err := a.engine.State(cmd.Context())
	if err != nil {
		return "", err
	}
	if st.Accounts == 0 {
		return "", fmt.Errorf("%w: no account listed in secrets file %q", store.ErrUnknownAccount, a.engine.Path)
	}

	seed, err := a.engine.Seed(cmd.Context(), account)
	var unknown *store.UnknownAccountError
	if errors.As(err, &unknown) {
		return "", fmt.Errorf("%w in secrets file %q", err, a.engine.Path)
	}
	return seed, err
}
