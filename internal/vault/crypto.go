package vault

import (
	"crypto/aes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/fernet/fernet-go"
)

const (
	// TokenVersion is the first byte of every Fernet token.
	TokenVersion = 0x80

	headerSize   = 1 + 8
	ivSize       = aes.BlockSize
	minTokenSize = headerSize + ivSize + aes.BlockSize + sha256.Size

	// Stored secrets never expire; a zero TTL disables the age check.
	noExpiry time.Duration = 0
)

// ErrInvalidToken is returned whenever a token cannot be authenticated: wrong
// key, corrupted bytes or a malformed token.
var ErrInvalidToken = errors.New("invalid token")

// now is swapped in tests.
var now = time.Now

// Tokens follow the Fernet spec, URL-safe base64 encoded:
//
//	version(1) | timestamp(8, big endian unix seconds) | iv(16) | AES-128-CBC ciphertext | HMAC-SHA256(32)
//
// The first half of a key signs, the second half encrypts. Files and cached
// keys written by earlier tetripin releases decode unchanged.

// Encrypt seals plaintext under key. A fresh IV is drawn for every call so
// encrypting the same value twice gives different tokens.
func Encrypt(key Key, plaintext string) (string, error) {
	fk, err := fernetKey(key)
	if err != nil {
		return "", err
	}
	defer Zeroize(fk[:])

	token, err := fernet.EncryptAndSignAtTime([]byte(plaintext), fk, now())
	if err != nil {
		return "", fmt.Errorf("failed to encrypt: %w", err)
	}
	return string(token), nil
}

// Decrypt opens a token produced by Encrypt. Any failure to authenticate the
// token is reported as ErrInvalidToken and no plaintext is returned.
func Decrypt(key Key, token string) (string, error) {
	fk, err := fernetKey(key)
	if err != nil {
		return "", err
	}
	defer Zeroize(fk[:])

	if _, err := decodeToken(token); err != nil {
		return "", err
	}

	plaintext := fernet.VerifyAndDecrypt([]byte(token), noExpiry, []*fernet.Key{fk})
	if plaintext == nil {
		return "", fmt.Errorf("%w: authentication failed", ErrInvalidToken)
	}
	return string(plaintext), nil
}

// TokenTimestamp returns the creation time embedded in a token. The value is
// not authenticated until the token is decrypted.
func TokenTimestamp(token string) (time.Time, error) {
	raw, err := decodeToken(token)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(binary.BigEndian.Uint64(raw[1:headerSize])), 0).UTC(), nil
}

// IsToken reports whether s is shaped like a token, without checking its HMAC.
func IsToken(s string) bool {
	_, err := decodeToken(s)
	return err == nil
}

func decodeToken(token string) ([]byte, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: not base64", ErrInvalidToken)
	}
	if len(raw) < minTokenSize || (len(raw)-headerSize-ivSize-sha256.Size)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: bad token length", ErrInvalidToken)
	}
	if raw[0] != TokenVersion {
		return nil, fmt.Errorf("%w: unknown version %#x", ErrInvalidToken, raw[0])
	}
	return raw, nil
}

func fernetKey(key Key) (*fernet.Key, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	var fk fernet.Key
	copy(fk[:], key)
	return &fk, nil
}
