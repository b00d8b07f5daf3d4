// Package config handles the configuration of tetripin.
// Values come from the YAML config file, then TETRIPIN_* environment
// variables, then command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/tetricoins/tetripin/internal/keycache"
	"github.com/tetricoins/tetripin/internal/logger"
	"github.com/tetricoins/tetripin/internal/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "TETRIPIN_"

// SecretsFileName is the store file created inside DataDir.
const SecretsFileName = "secrets.toml"

// Config represents the tetripin configuration
type Config struct {
	DataDir        string        `yaml:"data_dir" env:"DATA_DIR"`
	SecretsFile    string        `yaml:"secrets_file" env:"SECRETS_FILE"`
	KeyBackend     string        `yaml:"key_backend" env:"KEY_BACKEND"`
	KeyCachePath   string        `yaml:"key_cache_path" env:"KEY_CACHE_PATH"`
	KeyringService string        `yaml:"keyring_service" env:"KEYRING_SERVICE"`
	ClipboardTTL   time.Duration `yaml:"clipboard_ttl" env:"CLIPBOARD_TTL"`
	LogLevel       string        `yaml:"log_level" env:"LOG_LEVEL"`
	ExportIssuer   string        `yaml:"export_issuer" env:"EXPORT_ISSUER"`
	LockTimeout    time.Duration `yaml:"lock_timeout" env:"LOCK_TIMEOUT"`
}

// DefaultDataDir returns ~/.local/share/tetripin, or $XDG_DATA_HOME/tetripin.
func DefaultDataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "tetripin")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "tetripin")
}

// DefaultConfigPath returns the config file location.
func DefaultConfigPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "tetripin", "config.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "tetripin", "config.yaml")
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:        DefaultDataDir(),
		KeyBackend:     keycache.BackendKeyring,
		KeyringService: keycache.Namespace,
		ClipboardTTL:   30 * time.Second,
		LogLevel:       logger.DefaultLevel,
		ExportIssuer:   "tetripin",
		LockTimeout:    store.DefaultLockTimeout,
	}
}

// LoadConfig loads configuration from file, creating it with defaults when
// missing, then applies environment overrides. An empty path skips the file.
func LoadConfig(configPath string) (*Config, error) {
	return load(configPath, nil)
}

// load is LoadConfig with an explicit environment; nil means the process
// environment.
func load(configPath string, environ map[string]string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		cleanPath := filepath.Clean(configPath)
		data, err := os.ReadFile(cleanPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			if err := SaveConfig(cfg, cleanPath); err != nil {
				return cfg, fmt.Errorf("failed to create default config: %w", err)
			}
		case err != nil:
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config file %s: %w", cleanPath, err)
			}
		}
	}

	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	switch c.KeyBackend {
	case keycache.BackendKeyring, keycache.BackendFile, keycache.BackendMemory:
	default:
		return fmt.Errorf("invalid key_backend %q: want keyring, file or memory", c.KeyBackend)
	}
	if c.DataDir == "" && c.SecretsFile == "" {
		return errors.New("either data_dir or secrets_file must be set")
	}
	if c.ClipboardTTL < 0 || c.LockTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// SecretsPath returns the store file: SecretsFile when set, else
// DataDir/secrets.toml.
func (c *Config) SecretsPath() string {
	if c.SecretsFile != "" {
		return c.SecretsFile
	}
	return filepath.Join(c.DataDir, SecretsFileName)
}

// KeyCacheFile returns the bbolt file used by the file key backend.
func (c *Config) KeyCacheFile() string {
	if c.KeyCachePath != "" {
		return c.KeyCachePath
	}
	return filepath.Join(filepath.Dir(c.SecretsPath()), "keycache.db")
}

// Entries lists the resolved settings in a stable order.
func (c *Config) Entries() [][2]string {
	return [][2]string{
		{"data_dir", c.DataDir},
		{"secrets_file", c.SecretsPath()},
		{"key_backend", c.KeyBackend},
		{"key_cache_path", c.KeyCacheFile()},
		{"keyring_service", c.KeyringService},
		{"clipboard_ttl", c.ClipboardTTL.String()},
		{"log_level", c.LogLevel},
		{"export_issuer", c.ExportIssuer},
		{"lock_timeout", c.LockTimeout.String()},
	}
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, configPath string) error {
	cleanPath := filepath.Clean(configPath)

	dir := filepath.Dir(cleanPath)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(cleanPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
