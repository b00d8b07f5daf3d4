// Package cli implements the tetripin command line.
package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/tetricoins/tetripin/internal/clipboard"
	"github.com/tetricoins/tetripin/internal/keycache"
)

// Version is stamped at build time.
var Version = "dev"

// Option customizes the root command, mostly for tests.
type Option func(*App)

// WithKeyCache replaces the cache selected by the key_backend setting.
func WithKeyCache(c keycache.Cache) Option {
	return func(a *App) { a.cache = c }
}

// WithClock replaces the clock used for codes and exports.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// WithClipboard replaces the clipboard writer used by gen --copy.
func WithClipboard(copyText func(ctx context.Context, text string, ttl time.Duration) error) Option {
	return func(a *App) { a.copyText = copyText }
}

// NewRootCommand builds the tetripin command tree.
func NewRootCommand(opts ...Option) *cobra.Command {
	app := &App{
		now:      time.Now,
		copyText: clipboard.CopyWithTimeout,
	}
	for _, opt := range opts {
		opt(app)
	}

	rootCmd := &cobra.Command{
		Use:   "tetripin",
		Short: "2FA code manager",
		Long: `Tetripin generates TOTP codes (two-factor authentication PINs) from seeds kept
in a local TOML file.

Seeds are encrypted as Fernet tokens. The key is either a random key kept in
your OS keyring or derived from a password you unlock once per session.

Example:
  tetripin add github JBSWY3DPEHPK3PXP
  tetripin gen github
  tetripin migrate --to 3`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			app.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&app.flags.configFile, "config", "", "config file (default is $HOME/.config/tetripin/config.yaml)")
	flags.StringVar(&app.flags.secretsFile, "secrets-file", "", "path to the TOML file containing the secrets")
	flags.StringVar(&app.flags.dataDir, "data-dir", "", "settings directory holding secrets.toml")
	flags.StringVar(&app.flags.keyBackend, "key-backend", "", "where the key is cached: keyring, file or memory")
	flags.BoolVarP(&app.flags.verbose, "verbose", "v", false, "verbose output")
	flags.BoolVarP(&app.flags.yes, "yes", "y", false, "accept the offer to encrypt a plaintext secrets file")

	rootCmd.AddCommand(
		newListConfigCommand(app),
		newListSecretsCommand(app),
		newCodesCommand(app),
		newGenCommand(app),
		newAddCommand(app),
		newRemoveCommand(app),
		newExportCommand(app),
		newQRCommand(app),
		newUnlockCommand(app),
		newLockCommand(app),
		newMigrateCommand(app),
		newStatusCommand(app),
		newDoctorCommand(app),
	)

	return rootCmd
}

// Execute runs the command line with the process arguments.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
