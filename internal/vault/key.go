package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the length of every key: a 16-byte signing half and a 16-byte encryption half.
	KeySize = 32
	// SaltSize is the length of salts generated for password keys.
	SaltSize = 16
	// MinSaltSize is the shortest salt accepted from a store file.
	MinSaltSize = 16
	// DefaultIterations is the PBKDF2-HMAC-SHA256 work factor.
	DefaultIterations = 480000
)

// Iterations is the PBKDF2 round count used by DeriveKey.
var Iterations = DefaultIterations

var (
	ErrInvalidKeySize = errors.New("invalid key size")
	ErrInvalidKey     = errors.New("invalid key encoding")
)

// Key is symmetric key material for the authenticated cipher.
type Key []byte

// NewRandomKey returns a key made of fresh random bytes. It backs stores that
// are protected by the local key cache instead of a password.
func NewRandomKey() (Key, error) {
	key := make(Key, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}

// DeriveKey derives a key from a password and salt with PBKDF2-HMAC-SHA256.
// The same password and salt always give the same key.
func DeriveKey(password string, salt []byte) Key {
	return Key(pbkdf2.Key([]byte(password), salt, Iterations, KeySize, sha256.New))
}

// GenerateSalt creates a cryptographically secure random salt
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// ParseKey decodes the text form produced by Key.String.
func ParseKey(text string) (Key, error) {
	raw, err := base64.URLEncoding.DecodeString(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if len(raw) != KeySize {
		Zeroize(raw)
		return nil, ErrInvalidKeySize
	}
	return Key(raw), nil
}

// String returns the URL-safe base64 form of the key, as kept in the key cache.
func (k Key) String() string {
	return base64.URLEncoding.EncodeToString(k)
}

// Zeroize overwrites the key material.
func (k Key) Zeroize() {
	Zeroize(k)
}

// Zeroize securely clears a byte slice
func Zeroize(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
