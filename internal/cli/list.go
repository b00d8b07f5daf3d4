package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tetricoins/tetripin/internal/store"
	"github.com/tetricoins/tetripin/internal/totp"
)

func newListSecretsCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "listsecrets [QUERY]",
		Short: "Print all the accounts and their secrets",
		Long: `Print every account with its clear base32 seed, one "account=seed" per line.

An optional query keeps the accounts whose name contains every word of it.

Example:
  tetripin listsecrets
  tetripin listsecrets git`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			s, seeds, err := a.engine.Secrets(cmd.Context())
			if err != nil {
				return err
			}

			for _, label := range store.FilterLabels(s.Labels(), firstArg(args)) {
				if err := writeOutput(cmd.OutOrStdout(), "%s=%s\n", label, seeds[label]); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newCodesCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "codes [QUERY]",
		Short: "Print the current code of every account",
		Long: `Print the current code of every account with the seconds it stays valid.

Example:
  tetripin codes
  tetripin codes git`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd); err != nil {
				return err
			}
			s, seeds, err := a.engine.Secrets(cmd.Context())
			if err != nil {
				return err
			}

			now := a.now()
			labels := store.FilterLabels(s.Labels(), firstArg(args))
			if len(labels) == 0 {
				return writeOutput(cmd.OutOrStdout(), "No accounts found\n")
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACCOUNT\tCODE\tVALID FOR")
			remaining := totp.Remaining(now, totp.DefaultPeriod).Round(time.Second)
			for _, label := range labels {
				code, err := totp.Generate(seeds[label], now)
				if err != nil {
					a.log.Warn("cannot generate code", zap.String("account", label), zap.Error(err))
					code = "invalid seed"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", label, code, remaining)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("failed to flush output: %w", err)
			}
			return nil
		},
	}
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
