// Package migrate moves a secrets store through its format versions and
// manages the key that protects it.
//
// The transforms in this file are pure: they take a store and keys and return
// a new store holding the same accounts re-encrypted. Engine adds the file
// and key cache side of each transition.
package migrate

import (
	"errors"
	"fmt"

	"github.com/tetricoins/tetripin/internal/store"
	"github.com/tetricoins/tetripin/internal/vault"
)

var (
	// ErrWrongVersion is returned when a transition is applied to a store of
	// another version.
	ErrWrongVersion = errors.New("secrets file is not at the expected format version")
	// ErrPasswordRequired is returned when a password transition gets none.
	ErrPasswordRequired = errors.New("a password is required")
)

// ToV2 encrypts every clear seed of a v1 store under key.
func ToV2(s *store.Store, key vault.Key) (*store.Store, error) {
	if s.Version != store.V1Plaintext {
		return nil, fmt.Errorf("%w: v2 upgrade needs a v1 store, got %s", ErrWrongVersion, s.Version)
	}
	return reencrypt(s, nil, key, store.V2KeyringKey, nil)
}

// ToV3 re-encrypts every secret of a v2 store under a key derived from
// password and a fresh salt. It returns the new store and its key.
func ToV3(s *store.Store, oldKey vault.Key, password string) (*store.Store, vault.Key, error) {
	if s.Version != store.V2KeyringKey {
		return nil, nil, fmt.Errorf("%w: v3 upgrade needs a v2 store, got %s", ErrWrongVersion, s.Version)
	}
	if password == "" {
		return nil, nil, ErrPasswordRequired
	}

	salt, err := vault.GenerateSalt()
	if err != nil {
		return nil, nil, err
	}

	newKey := vault.DeriveKey(password, salt)
	next, err := reencrypt(s, oldKey, newKey, store.V3PasswordKey, salt)
	if err != nil {
		newKey.Zeroize()
		return nil, nil, err
	}
	return next, newKey, nil
}

// reencrypt resolves every secret of s with oldKey and stores it again under
// newKey, one account for one account.
func reencrypt(s *store.Store, oldKey, newKey vault.Key, version store.Version, salt []byte) (*store.Store, error) {
	seeds, err := s.ResolveSecrets(oldKey)
	if err != nil {
		return nil, err
	}

	next := store.New(version)
	if salt != nil {
		next.Salt = append([]byte(nil), salt...)
	}

	for _, label := range s.Labels() {
		token, err := vault.Encrypt(newKey, seeds[label])
		if err != nil {
			return nil, fmt.Errorf("account %q: %w", label, err)
		}
		if err := next.Add(label, token); err != nil {
			return nil, err
		}
	}

	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}
