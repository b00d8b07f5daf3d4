//go:build windows

package store

import (
	"os"
	"syscall"
	"unsafe"
)

var (
	kernel32     = syscall.NewLazyDLL("kernel32.dll")
	lockFileEx   = kernel32.NewProc("LockFileEx")
	unlockFileEx = kernel32.NewProc("UnlockFileEx")
)

const (
	lockfileExclusiveLock   = 0x00000002
	lockfileFailImmediately = 0x00000001
)

// platformLock takes an exclusive, non-blocking LockFileEx on the lock file.
func platformLock(file *os.File) error {
	var overlapped syscall.Overlapped
	ret, _, err := lockFileEx.Call(
		uintptr(syscall.Handle(file.Fd())),
		uintptr(lockfileExclusiveLock|lockfileFailImmediately),
		0,
		1,
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)
	if ret == 0 {
		return err
	}
	return nil
}

func platformUnlock(file *os.File) error {
	var overlapped syscall.Overlapped
	ret, _, err := unlockFileEx.Call(
		uintptr(syscall.Handle(file.Fd())),
		0,
		1,
		0,
		uintptr(unsafe.Pointer(&overlapped)),
	)
	if ret == 0 {
		return err
	}
	return nil
}
