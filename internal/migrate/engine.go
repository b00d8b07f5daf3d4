package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/tetricoins/tetripin/internal/keycache"
	"github.com/tetricoins/tetripin/internal/store"
	"github.com/tetricoins/tetripin/internal/totp"
	"github.com/tetricoins/tetripin/internal/vault"
)

var (
	// ErrLocked is returned when an encrypted store has no cached key.
	ErrLocked = errors.New("secrets are locked, run 'tetripin unlock'")
	// ErrIncorrectPassword is returned when a password fails to decrypt the
	// stored secrets.
	ErrIncorrectPassword = errors.New("incorrect password")
)

// Engine applies version transitions and key operations to one secrets file.
// Every mutation runs under the store file lock.
type Engine struct {
	Path        string
	Cache       keycache.Cache
	Logger      *zap.Logger
	LockTimeout time.Duration
	// Namespace and KeyName locate the key in Cache. They default to the
	// keycache package constants.
	Namespace string
	KeyName   string
}

// NewEngine returns an engine with default lock timeout and key location.
func NewEngine(path string, cache keycache.Cache, logger *zap.Logger) *Engine {
	return &Engine{Path: path, Cache: cache, Logger: logger}
}

// State describes a secrets file and its key.
type State struct {
	Version  store.Version
	Accounts int
	// Unlocked reports whether the store can be read right now: always true
	// for v1, and true for v2/v3 when a key is cached.
	Unlocked bool
	Salt     []byte
}

// Result reports what Upgrade did.
type Result struct {
	From       store.Version
	To         store.Version
	Changed    bool
	BackupPath string
}

// Load parses the secrets file without touching the key cache.
func (e *Engine) Load() (*store.Store, error) {
	return store.Load(e.Path)
}

// State reports the version, size and lock state of the store.
func (e *Engine) State(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	s, err := e.Load()
	if err != nil {
		return State{}, err
	}

	st := State{Version: s.Version, Accounts: s.Len(), Unlocked: true, Salt: s.Salt}
	if s.Version.Encrypted() {
		_, err := e.cachedKey()
		switch {
		case errors.Is(err, ErrLocked):
			st.Unlocked = false
		case err != nil:
			return State{}, err
		}
	}
	return st, nil
}

// Upgrade moves the store to target. Nothing is written and no key is
// derived when the store is already at or above target. A password is only
// needed when target is store.V3PasswordKey.
func (e *Engine) Upgrade(ctx context.Context, target store.Version, password string) (Result, error) {
	if !target.Valid() {
		return Result{}, fmt.Errorf("%w: unsupported target version %d", ErrWrongVersion, int(target))
	}

	var res Result
	err := e.withLock(func() error {
		s, err := e.Load()
		if err != nil {
			return err
		}
		res = Result{From: s.Version, To: s.Version}
		if s.Version >= target {
			e.logger().Debug("secrets file already up to date",
				zap.Stringer("version", s.Version), zap.Stringer("target", target))
			return nil
		}
		if target == store.V3PasswordKey && password == "" {
			return ErrPasswordRequired
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		next, newKey, err := e.transition(s, target, password)
		if err != nil {
			return err
		}
		defer newKey.Zeroize()

		// An empty store has nothing worth keeping.
		if s.Len() > 0 {
			backup, err := store.Backup(e.Path)
			if err != nil {
				return err
			}
			res.BackupPath = backup
			e.logger().Info("backed up secrets file", zap.String("backup", backup))
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		if err := store.Save(e.Path, next); err != nil {
			if res.BackupPath != "" {
				return fmt.Errorf("%w (backup kept at %s)", err, res.BackupPath)
			}
			return err
		}
		res.To = next.Version
		res.Changed = true

		// The new key is cached only once the file is written: caching it
		// first would strand the old file without its key.
		if target == store.V3PasswordKey {
			if err := e.storeKey(newKey); err != nil {
				return fmt.Errorf("secrets file upgraded but the key could not be cached, run 'tetripin unlock': %w", err)
			}
		}

		e.logger().Info("migrated secrets file",
			zap.Stringer("from", res.From), zap.Stringer("to", res.To), zap.Int("accounts", next.Len()))
		return nil
	})
	return res, err
}

// transition computes the store for target from s. The returned key is the
// one protecting the new store, or nil for v1.
func (e *Engine) transition(s *store.Store, target store.Version, password string) (*store.Store, vault.Key, error) {
	cur := s
	var key vault.Key

	if cur.Version == store.V1Plaintext {
		var err error
		if target == store.V2KeyringKey {
			key, err = e.keyringKey()
		} else {
			// Straight to v3: the intermediate key never leaves memory.
			key, err = vault.NewRandomKey()
		}
		if err != nil {
			return nil, nil, err
		}
		if cur, err = ToV2(cur, key); err != nil {
			return nil, nil, err
		}
		e.logger().Debug("encrypted secrets with a random key", zap.Int("accounts", cur.Len()))
	}

	if target == store.V3PasswordKey && cur.Version == store.V2KeyringKey {
		oldKey := key
		if oldKey == nil {
			var err error
			if oldKey, err = e.cachedKey(); err != nil {
				return nil, nil, err
			}
		}
		next, newKey, err := ToV3(cur, oldKey, password)
		oldKey.Zeroize()
		if err != nil {
			return nil, nil, err
		}
		cur, key = next, newKey
	}
	return cur, key, nil
}

// keyringKey returns the cached key, creating and caching a random one when
// none exists yet.
func (e *Engine) keyringKey() (vault.Key, error) {
	key, err := e.cachedKey()
	if err == nil {
		e.logger().Debug("reusing cached key")
		return key, nil
	}
	if !errors.Is(err, ErrLocked) {
		return nil, err
	}

	key, err = vault.NewRandomKey()
	if err != nil {
		return nil, err
	}
	if err := e.storeKey(key); err != nil {
		return nil, err
	}
	e.logger().Info("generated a new random key")
	return key, nil
}

// Unlock derives the key of a v3 store from password and caches it once it
// decrypts every secret. A wrong password leaves the cache untouched.
func (e *Engine) Unlock(ctx context.Context, password string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	s, err := e.Load()
	if err != nil {
		return err
	}
	if s.Version != store.V3PasswordKey {
		return fmt.Errorf("%w: only password protected (v3) stores can be unlocked, this one is %s", ErrWrongVersion, s.Version)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	key := vault.DeriveKey(password, s.Salt)
	defer key.Zeroize()

	if _, err := s.ResolveSecrets(key); err != nil {
		if errors.Is(err, vault.ErrInvalidToken) {
			e.logger().Warn("unlock failed")
			return ErrIncorrectPassword
		}
		return err
	}
	if s.Len() == 0 {
		e.logger().Warn("store has no accounts, the password could not be checked")
	}

	if err := e.storeKey(key); err != nil {
		return err
	}
	e.logger().Info("unlocked secrets", zap.Int("accounts", s.Len()))
	return nil
}

// Lock removes the cached key. Locking an already locked store succeeds.
func (e *Engine) Lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.Cache.Delete(e.namespace(), e.keyName()); err != nil && !errors.Is(err, keycache.ErrNotFound) {
		return fmt.Errorf("remove cached key: %w", err)
	}
	e.logger().Info("locked secrets")
	return nil
}

// Key returns the key protecting s: nil for v1, the cached key otherwise.
func (e *Engine) Key(ctx context.Context, s *store.Store) (vault.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !s.Version.Encrypted() {
		return nil, nil
	}
	return e.cachedKey()
}

// Secrets loads the store and returns every label with its clear seed.
func (e *Engine) Secrets(ctx context.Context) (*store.Store, map[string]string, error) {
	s, err := e.Load()
	if err != nil {
		return nil, nil, err
	}
	key, err := e.Key(ctx, s)
	if err != nil {
		return nil, nil, err
	}
	defer key.Zeroize()

	seeds, err := s.ResolveSecrets(key)
	if err != nil {
		return nil, nil, e.staleKey(s, err)
	}
	return s, seeds, nil
}

// Seed returns the clear seed of one account.
func (e *Engine) Seed(ctx context.Context, label string) (string, error) {
	s, err := e.Load()
	if err != nil {
		return "", err
	}
	key, err := e.Key(ctx, s)
	if err != nil {
		return "", err
	}
	defer key.Zeroize()

	seed, err := s.Resolve(label, key)
	if err != nil {
		return "", e.staleKey(s, err)
	}
	return seed, nil
}

// AddAccount stores seed under label, encrypted with the active key when the
// store is encrypted.
func (e *Engine) AddAccount(ctx context.Context, label, seed string) error {
	if err := totp.ValidateSeed(seed); err != nil {
		return err
	}
	return store.Update(e.Path, e.lockTimeout(), func(s *store.Store) error {
		secret := seed
		if s.Version.Encrypted() {
			key, err := e.Key(ctx, s)
			if err != nil {
				return err
			}
			defer key.Zeroize()

			// Never mix keys within one file.
			if _, err := s.ResolveSecrets(key); err != nil {
				return e.staleKey(s, err)
			}
			if secret, err = vault.Encrypt(key, seed); err != nil {
				return err
			}
		}
		if err := s.Add(label, secret); err != nil {
			return err
		}
		e.logger().Info("account added", zap.String("label", store.NormalizeLabel(label)))
		return nil
	})
}

// RemoveAccount deletes label from the store and returns what was stored.
func (e *Engine) RemoveAccount(ctx context.Context, label string) (store.Account, error) {
	if err := ctx.Err(); err != nil {
		return store.Account{}, err
	}
	var removed store.Account
	err := store.Update(e.Path, e.lockTimeout(), func(s *store.Store) error {
		acc, err := s.Remove(label)
		if err != nil {
			return err
		}
		removed = acc
		return nil
	})
	if err != nil {
		return store.Account{}, err
	}
	e.logger().Info("account removed", zap.String("label", store.NormalizeLabel(label)))
	return removed, nil
}

// staleKey explains a decryption failure caused by a cached key that no
// longer matches the file.
func (e *Engine) staleKey(s *store.Store, err error) error {
	if !errors.Is(err, vault.ErrInvalidToken) {
		return err
	}
	hint := "the cached key does not match the secrets file"
	if s.Version == store.V3PasswordKey {
		hint += ", run 'tetripin unlock'"
	}
	return fmt.Errorf("%s: %w", hint, err)
}

func (e *Engine) cachedKey() (vault.Key, error) {
	raw, err := e.Cache.Get(e.namespace(), e.keyName())
	if errors.Is(err, keycache.ErrNotFound) {
		return nil, ErrLocked
	}
	if err != nil {
		return nil, fmt.Errorf("read cached key: %w", err)
	}
	key, err := vault.ParseKey(string(raw))
	if err != nil {
		return nil, fmt.Errorf("cached key: %w", err)
	}
	return key, nil
}

func (e *Engine) storeKey(key vault.Key) error {
	if err := e.Cache.Set(e.namespace(), e.keyName(), []byte(key.String())); err != nil {
		return fmt.Errorf("cache key: %w", err)
	}
	return nil
}

func (e *Engine) withLock(fn func() error) error {
	return store.WithLock(e.Path, e.lockTimeout(), fn)
}

func (e *Engine) logger() *zap.Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) lockTimeout() time.Duration {
	if e.LockTimeout <= 0 {
		return store.DefaultLockTimeout
	}
	return e.LockTimeout
}

func (e *Engine) namespace() string {
	if e.Namespace == "" {
		return keycache.Namespace
	}
	return e.Namespace
}

func (e *Engine) keyName() string {
	if e.KeyName == "" {
		return keycache.KeyName
	}
	return e.KeyName
}
