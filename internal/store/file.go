package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// DefaultLockTimeout bounds how long Update waits for another process.
const DefaultLockTimeout = 10 * time.Second

// Load reads and parses the secrets file at path.
func Load(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &FileAccessError{Op: "open", Path: path, Err: err}
	}
	return parse(path, raw)
}

// Save writes s to path atomically with owner-only permissions.
func Save(path string, s *Store) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := AtomicWriteFile(filepath.Clean(path), data); err != nil {
		return &FileAccessError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// Ensure creates an empty v1 store at path when no file exists yet. It
// reports whether a file was created.
func Ensure(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, &FileAccessError{Op: "open", Path: path, Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, &FileAccessError{Op: "create the directory of", Path: path, Err: err}
	}
	if err := Save(path, New(V1Plaintext)); err != nil {
		return false, err
	}
	return true, nil
}

// Backup copies the current file next to itself and returns the copy's path.
// The copy keeps the original permissions and is never overwritten.
func Backup(path string) (string, error) {
	src, err := os.Open(path)
	if err != nil {
		return "", &FileAccessError{Op: "back up", Path: path, Err: err}
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", &FileAccessError{Op: "back up", Path: path, Err: err}
	}

	backupPath := fmt.Sprintf("%s.bak-%s", path, time.Now().UTC().Format("20060102T150405.000000000Z"))
	dst, err := os.OpenFile(backupPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, info.Mode().Perm()&0o600)
	if err != nil {
		return "", &FileAccessError{Op: "back up", Path: path, Err: err}
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return "", &FileAccessError{Op: "back up", Path: path, Err: err}
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		os.Remove(backupPath)
		return "", &FileAccessError{Op: "back up", Path: path, Err: err}
	}
	if err := dst.Close(); err != nil {
		os.Remove(backupPath)
		return "", &FileAccessError{Op: "back up", Path: path, Err: err}
	}
	return backupPath, nil
}

// Update runs a locked read-modify-write cycle on the file at path. fn
// receives the parsed store; when it returns nil the store is written back,
// otherwise the file is left untouched.
func Update(path string, timeout time.Duration, fn func(*Store) error) error {
	return WithLock(path, timeout, func() error {
		s, err := Load(path)
		if err != nil {
			return err
		}
		if err := fn(s); err != nil {
			return err
		}
		return Save(path, s)
	})
}

// WithLock holds the store lock while fn runs.
func WithLock(path string, timeout time.Duration, fn func() error) error {
	lock := NewFileLock(path)
	if err := lock.Lock(timeout); err != nil {
		if errors.Is(err, ErrLockTimeout) {
			return fmt.Errorf("%w: %s", ErrStoreLocked, lock.Path())
		}
		return &FileAccessError{Op: "lock", Path: path, Err: err}
	}
	defer lock.Unlock()

	return fn()
}
