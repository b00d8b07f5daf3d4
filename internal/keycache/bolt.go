package keycache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// Bolt stores values in a bbolt database, one bucket per namespace. Each
// call opens and closes the database so the file is never held between
// commands.
type Bolt struct {
	path    string
	timeout time.Duration
}

func NewBolt(path string) *Bolt {
	return &Bolt{path: path, timeout: 5 * time.Second}
}

func (b *Bolt) Get(namespace, name string) ([]byte, error) {
	if _, err := os.Stat(b.path); errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}

	var value []byte
	err := b.with(true, func(db *bbolt.DB) error {
		return db.View(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket([]byte(namespace))
			if bucket == nil {
				return ErrNotFound
			}
			v := bucket.Get([]byte(name))
			if v == nil {
				return ErrNotFound
			}
			// v is only valid inside the transaction
			value = append([]byte(nil), v...)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (b *Bolt) Set(namespace, name string, value []byte) error {
	return b.with(false, func(db *bbolt.DB) error {
		return db.Update(func(tx *bbolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists([]byte(namespace))
			if err != nil {
				return fmt.Errorf("failed to create bucket: %w", err)
			}
			return bucket.Put([]byte(name), value)
		})
	})
}

func (b *Bolt) Delete(namespace, name string) error {
	if _, err := os.Stat(b.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	return b.with(false, func(db *bbolt.DB) error {
		return db.Update(func(tx *bbolt.Tx) error {
			bucket := tx.Bucket([]byte(namespace))
			if bucket == nil {
				return nil
			}
			return bucket.Delete([]byte(name))
		})
	})
}

func (b *Bolt) with(readOnly bool, fn func(*bbolt.DB) error) error {
	if !readOnly {
		if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
			return fmt.Errorf("failed to create key cache directory: %w", err)
		}
	}

	db, err := bbolt.Open(b.path, 0o600, &bbolt.Options{
		Timeout:  b.timeout,
		ReadOnly: readOnly,
	})
	if err != nil {
		return fmt.Errorf("failed to open key cache %s: %w", b.path, err)
	}

	fnErr := fn(db)
	if closeErr := db.Close(); closeErr != nil && fnErr == nil {
		return fmt.Errorf("failed to close key cache: %w", closeErr)
	}
	return fnErr
}
