// Package keycache stores the active store key outside the secrets file.
//
// The default backend is the OS secret service (Keychain, Secret Service,
// Credential Manager). A bbolt file backend serves hosts without one, and an
// in-memory backend serves tests.
package keycache

import (
	"errors"
	"fmt"
)

const (
	// Namespace is the service name keys are filed under.
	Namespace = "tetripin"
	// KeyName is the entry holding the active store key.
	KeyName = "key"
)

// ErrNotFound is returned when no value is stored under a name. Callers treat
// it as "locked" or "not provisioned yet".
var ErrNotFound = errors.New("key not found in key cache")

// Cache is a small secret key-value store.
type Cache interface {
	Get(namespace, name string) ([]byte, error)
	Set(namespace, name string, value []byte) error
	Delete(namespace, name string) error
}

// Backend names accepted by Open.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

// Options configures Open.
type Options struct {
	Backend string
	// Path is the bbolt database used by the file backend.
	Path string
}

// Open returns the cache selected by opts.Backend.
func Open(opts Options) (Cache, error) {
	switch opts.Backend {
	case BackendKeyring, "":
		return NewKeyring(), nil
	case BackendFile:
		if opts.Path == "" {
			return nil, errors.New("file key cache needs a path")
		}
		return NewBolt(opts.Path), nil
	case BackendMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown key cache backend %q", opts.Backend)
	}
}
