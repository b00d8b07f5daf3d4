package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tetripin", "config.yaml")

	cfg, err := load(path, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// The written file loads back to the same values
	again, err := load(path, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "data_dir: " + dir + "\n" +
		"key_backend: file\n" +
		"clipboard_ttl: 10s\n" +
		"log_level: debug\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := load(path, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)
	assert.Equal(t, "file", cfg.KeyBackend)
	assert.Equal(t, 10*time.Second, cfg.ClipboardTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "tetripin", cfg.ExportIssuer)
	assert.Equal(t, filepath.Join(dir, "secrets.toml"), cfg.SecretsPath())
	assert.Equal(t, filepath.Join(dir, "keycache.db"), cfg.KeyCacheFile())
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("key_backend: file\n"), 0o600))

	cfg, err := load(path, map[string]string{
		"TETRIPIN_KEY_BACKEND":  "memory",
		"TETRIPIN_SECRETS_FILE": "/tmp/other.toml",
		"TETRIPIN_LOCK_TIMEOUT": "2s",
		"UNRELATED_KEY_BACKEND": "keyring",
	})
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.KeyBackend)
	assert.Equal(t, "/tmp/other.toml", cfg.SecretsPath())
	assert.Equal(t, 2*time.Second, cfg.LockTimeout)
}

func TestLoadConfigWithoutFile(t *testing.T) {
	cfg, err := load("", map[string]string{"TETRIPIN_LOG_LEVEL": "error"})
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("key_backend: [unclosed\n"), 0o600))
	_, err := load(bad, map[string]string{})
	assert.Error(t, err)

	_, err = load("", map[string]string{"TETRIPIN_KEY_BACKEND": "vault"})
	assert.ErrorContains(t, err, "key_backend")

	_, err = load("", map[string]string{"TETRIPIN_CLIPBOARD_TTL": "soon"})
	assert.Error(t, err)
}

func TestEntries(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SecretsFile = "/srv/secrets.toml"

	entries := cfg.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, [2]string{"secrets_file", "/srv/secrets.toml"}, entries[1])
	assert.Equal(t, [2]string{"key_cache_path", "/srv/keycache.db"}, entries[3])
}
