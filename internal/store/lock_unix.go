//go:build unix

package store

import (
	"os"
	"syscall"
)

// platformLock takes a non-blocking flock on the lock file so a second
// process holding the same path fails fast.
func platformLock(file *os.File) error {
	return syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
}

func platformUnlock(file *os.File) error {
	return syscall.Flock(int(file.Fd()), syscall.LOCK_UN)
}
