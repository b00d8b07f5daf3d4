package keycache

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Keyring stores values in the OS secret service. The namespace maps to the
// keyring service and the name to the account.
type Keyring struct{}

func NewKeyring() *Keyring {
	return &Keyring{}
}

func (k *Keyring) Get(namespace, name string) ([]byte, error) {
	value, err := keyring.Get(namespace, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read %s/%s from keyring: %w", namespace, name, err)
	}
	return []byte(value), nil
}

func (k *Keyring) Set(namespace, name string, value []byte) error {
	if err := keyring.Set(namespace, name, string(value)); err != nil {
		return fmt.Errorf("failed to store %s/%s in keyring: %w", namespace, name, err)
	}
	return nil
}

func (k *Keyring) Delete(namespace, name string) error {
	if err := keyring.Delete(namespace, name); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s/%s from keyring: %w", namespace, name, err)
	}
	return nil
}
