// Package store implements the versioned secrets file: parsing and strict
// validation of the TOML document, the in-memory account model and safe
// read-modify-write of the file on disk.
package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tetricoins/tetripin/internal/vault"
)

// Version is the on-disk format generation of a store.
type Version int

const (
	// V1Plaintext stores seeds in clear text.
	V1Plaintext Version = 1
	// V2KeyringKey encrypts seeds with a random key kept in the key cache.
	V2KeyringKey Version = 2
	// V3PasswordKey encrypts seeds with a key derived from a password and
	// the store salt.
	V3PasswordKey Version = 3

	// CurrentVersion is the newest format this package writes.
	CurrentVersion = V3PasswordKey
)

func (v Version) String() string {
	switch v {
	case V1Plaintext:
		return "v1 (plaintext)"
	case V2KeyringKey:
		return "v2 (key cache)"
	case V3PasswordKey:
		return "v3 (password)"
	default:
		return fmt.Sprintf("v%d (unknown)", int(v))
	}
}

// Valid reports whether v is a known format version.
func (v Version) Valid() bool {
	return v >= V1Plaintext && v <= CurrentVersion
}

// Encrypted reports whether secrets are stored as tokens in this version.
func (v Version) Encrypted() bool {
	return v > V1Plaintext
}

// ErrKeyRequired is returned when encrypted secrets are resolved without a key.
var ErrKeyRequired = errors.New("an encryption key is required for this store")

// Account is a single stored secret.
type Account struct {
	// Secret is the base32 seed on v1 stores and a token on v2/v3 stores.
	Secret string
}

// Store is the typed content of a secrets file.
type Store struct {
	Version Version
	// Salt is only set on V3PasswordKey stores.
	Salt []byte

	accounts map[string]Account
	order    []string
}

// New returns an empty store of the given version.
func New(version Version) *Store {
	return &Store{
		Version:  version,
		accounts: make(map[string]Account),
	}
}

// NormalizeLabel lower-cases and trims an account label.
func NormalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Len returns the number of accounts.
func (s *Store) Len() int {
	return len(s.order)
}

// Labels returns the normalized labels in file order.
func (s *Store) Labels() []string {
	return append([]string(nil), s.order...)
}

// SortedLabels returns the normalized labels in lexical order.
func (s *Store) SortedLabels() []string {
	labels := s.Labels()
	sort.Strings(labels)
	return labels
}

// Get returns the account stored under label.
func (s *Store) Get(label string) (Account, bool) {
	acc, ok := s.accounts[NormalizeLabel(label)]
	return acc, ok
}

// Add stores secret under label. The secret must already be in the form the
// store version expects (clear seed for v1, token otherwise).
func (s *Store) Add(label, secret string) error {
	key := NormalizeLabel(label)
	if key == "" {
		return ErrEmptyLabel
	}
	if _, exists := s.accounts[key]; exists {
		return &DuplicateAccountError{Label: key}
	}
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return &MissingSecretError{Label: key}
	}

	if s.accounts == nil {
		s.accounts = make(map[string]Account)
	}
	s.accounts[key] = Account{Secret: secret}
	s.order = append(s.order, key)
	return nil
}

// Remove deletes label and returns what was stored under it.
func (s *Store) Remove(label string) (Account, error) {
	key := NormalizeLabel(label)
	acc, ok := s.accounts[key]
	if !ok {
		return Account{}, &UnknownAccountError{Label: key}
	}

	delete(s.accounts, key)
	for i, l := range s.order {
		if l == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return acc, nil
}

// Validate checks the version and salt invariants. Empty secrets are only
// reported when resolved so that a broken account can still be removed.
func (s *Store) Validate() error {
	if !s.Version.Valid() {
		return &SchemaError{Field: "format_version", Reason: fmt.Sprintf("unsupported version %d", int(s.Version))}
	}
	if s.Version == V3PasswordKey && len(s.Salt) < vault.MinSaltSize {
		return &SchemaError{Field: "salt", Reason: fmt.Sprintf("a v3 store needs a salt of at least %d bytes", vault.MinSaltSize)}
	}
	return nil
}

// ResolveSecrets returns every label mapped to its clear base32 seed. key is
// required for encrypted versions and ignored for v1.
func (s *Store) ResolveSecrets(key vault.Key) (map[string]string, error) {
	if s.Version.Encrypted() && key == nil {
		return nil, ErrKeyRequired
	}

	secrets := make(map[string]string, len(s.order))
	for _, label := range s.order {
		seed, err := s.resolve(label, key)
		if err != nil {
			return nil, err
		}
		secrets[label] = seed
	}
	return secrets, nil
}

// Resolve returns the clear seed of a single account.
func (s *Store) Resolve(label string, key vault.Key) (string, error) {
	norm := NormalizeLabel(label)
	if _, ok := s.accounts[norm]; !ok {
		return "", &UnknownAccountError{Label: norm}
	}
	if s.Version.Encrypted() && key == nil {
		return "", ErrKeyRequired
	}
	return s.resolve(norm, key)
}

func (s *Store) resolve(label string, key vault.Key) (string, error) {
	secret := strings.TrimSpace(s.accounts[label].Secret)
	if secret == "" {
		return "", &MissingSecretError{Label: label}
	}
	if !s.Version.Encrypted() {
		return secret, nil
	}

	seed, err := vault.Decrypt(key, secret)
	if err != nil {
		return "", fmt.Errorf("account %q: %w", label, err)
	}
	return seed, nil
}
