package store

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Error variables for file locking operations
var (
	// ErrLockTimeout is returned when a lock cannot be acquired within the specified timeout
	ErrLockTimeout = errors.New("lock acquisition timeout")
	// ErrLockNotHeld is returned when attempting to release a lock that isn't held
	ErrLockNotHeld = errors.New("lock not held")
)

// staleLockAge is how old a lock file must be before it is considered left
// behind by a dead process.
const staleLockAge = 5 * time.Minute

// FileLock is an exclusive lock on a secrets file, held through a sibling
// "<path>.lock" file.
type FileLock struct {
	path     string
	lockFile *os.File
	locked   bool
}

// NewFileLock creates a new file lock for the given secrets file
func NewFileLock(secretsPath string) *FileLock {
	return &FileLock{
		path: secretsPath + ".lock",
	}
}

// Path returns the lock file path.
func (fl *FileLock) Path() string {
	return fl.path
}

// Lock acquires the file lock with a timeout
func (fl *FileLock) Lock(timeout time.Duration) error {
	if fl.locked {
		return errors.New("lock already held")
	}

	if err := os.MkdirAll(filepath.Dir(fl.path), 0o700); err != nil {
		return err
	}

	start := time.Now()
	for {
		file, err := os.OpenFile(fl.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			fl.lockFile = file
			fl.locked = true

			if _, err := file.WriteString(strconv.Itoa(os.Getpid())); err != nil {
				fl.Unlock()
				return err
			}

			if err := platformLock(file); err != nil {
				fl.Unlock()
				return err
			}
			return nil
		}
		if !errors.Is(err, os.ErrExist) {
			return err
		}

		if time.Since(start) > timeout {
			return ErrLockTimeout
		}

		if fl.isLockStale() {
			os.Remove(fl.path)
			continue
		}

		time.Sleep(50 * time.Millisecond)
	}
}

// Unlock releases the file lock
func (fl *FileLock) Unlock() error {
	if !fl.locked {
		return ErrLockNotHeld
	}

	var err error
	if fl.lockFile != nil {
		if unlockErr := platformUnlock(fl.lockFile); unlockErr != nil {
			err = unlockErr
		}
		if closeErr := fl.lockFile.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
		fl.lockFile = nil
	}

	if removeErr := os.Remove(fl.path); removeErr != nil && err == nil {
		err = removeErr
	}

	fl.locked = false
	return err
}

// IsLocked reports whether the secrets file is locked, by this FileLock or by
// another process. A stale lock file does not count.
func (fl *FileLock) IsLocked() bool {
	if fl.locked {
		return true
	}
	if _, err := os.Stat(fl.path); err != nil {
		return false
	}
	return !fl.isLockStale()
}

// isLockStale checks if the lock file is from a dead process
func (fl *FileLock) isLockStale() bool {
	info, err := os.Stat(fl.path)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) > staleLockAge
}
