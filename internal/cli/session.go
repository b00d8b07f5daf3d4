package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tetricoins/tetripin/internal/config"
	"github.com/tetricoins/tetripin/internal/keycache"
	"github.com/tetricoins/tetripin/internal/logger"
	"github.com/tetricoins/tetripin/internal/migrate"
	"github.com/tetricoins/tetripin/internal/store"
)

type rootFlags struct {
	configFile  string
	secretsFile string
	dataDir     string
	keyBackend  string
	verbose     bool
	yes         bool
}

// App is the state shared by every command of one invocation.
type App struct {
	flags   rootFlags
	cfgPath string
	cfg     *config.Config
	log     *zap.Logger
	cache   keycache.Cache
	engine  *migrate.Engine
	prompt  *prompter

	now      func() time.Time
	copyText func(ctx context.Context, text string, ttl time.Duration) error
}

// setup resolves the configuration (file, environment, flags) and wires the
// key cache and migration engine.
func (a *App) setup(cmd *cobra.Command) error {
	a.cfgPath = a.flags.configFile
	if a.cfgPath == "" {
		a.cfgPath = config.DefaultConfigPath()
	}

	cfg, err := config.LoadConfig(a.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = a.flags.dataDir
	}
	if flags.Changed("secrets-file") {
		cfg.SecretsFile = a.flags.secretsFile
	}
	if flags.Changed("key-backend") {
		cfg.KeyBackend = a.flags.keyBackend
	}
	if a.flags.verbose {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg

	a.log, err = logger.NewWithWriter(cfg.LogLevel, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	if a.cache == nil {
		a.cache, err = keycache.Open(keycache.Options{Backend: cfg.KeyBackend, Path: cfg.KeyCacheFile()})
		if err != nil {
			return err
		}
	}

	a.engine = &migrate.Engine{
		Path:        cfg.SecretsPath(),
		Cache:       a.cache,
		Logger:      a.log,
		LockTimeout: cfg.LockTimeout,
		Namespace:   cfg.KeyringService,
	}
	// Prompts go to stderr so that codes on stdout can be piped.
	a.prompt = newPrompter(cmd.InOrStdin(), cmd.ErrOrStderr())

	a.log.Debug("configuration loaded",
		zap.String("config", a.cfgPath),
		zap.String("secrets_file", a.engine.Path),
		zap.String("key_backend", cfg.KeyBackend))
	return nil
}

func (a *App) close() {
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// bootstrap creates the secrets file when it does not exist yet. New files
// start encrypted with a key kept in the key cache.
func (a *App) bootstrap(ctx context.Context) error {
	created, err := store.Ensure(a.engine.Path)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	a.log.Info("created secrets file", zap.String("path", a.engine.Path))
	_, err = a.engine.Upgrade(ctx, store.V2KeyringKey, "")
	return err
}

// open prepares the secrets file for a command that reads or writes
// accounts: it bootstraps the file and offers to encrypt a plaintext one.
func (a *App) open(cmd *cobra.Command) error {
	ctx := cmd.Context()
	if err := a.bootstrap(ctx); err != nil {
		return err
	}

	st, err := a.engine.State(ctx)
	if err != nil {
		return err
	}
	if st.Version != store.V1Plaintext {
		return nil
	}

	accept := a.flags.yes
	if !accept {
		accept, err = a.prompt.Confirm("Your secrets file stores seeds in clear text. Encrypt it with a key kept in your OS keyring?", true)
		if err != nil {
			a.log.Warn("secrets file is not encrypted, run 'tetripin migrate' to encrypt it")
			return nil
		}
	}
	if !accept {
		return nil
	}

	res, err := a.engine.Upgrade(ctx, store.V2KeyringKey, "")
	if err != nil {
		return err
	}
	if err := writeOutput(cmd.ErrOrStderr(), "Your secrets are now encrypted using your OS keyring.\n"); err != nil {
		return err
	}
	if res.BackupPath != "" {
		return writeOutput(cmd.ErrOrStderr(), "The previous file was kept at %s\n", res.BackupPath)
	}
	return nil
}
