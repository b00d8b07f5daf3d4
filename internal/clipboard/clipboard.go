// Package clipboard puts codes on the system clipboard for a limited time.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
)

type backend interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type system struct{}

func (system) ReadAll() (string, error) { return clipboard.ReadAll() }
func (system) WriteAll(text string) error { return clipboard.WriteAll(text) }

var (
	board       backend = system{}
	unsupported         = func() bool { return clipboard.Unsupported }
)

// ErrUnavailable is returned when no clipboard utility can be found.
var ErrUnavailable = errors.New("clipboard is not available (install xclip, xsel or wl-clipboard)")

// Copy puts text on the clipboard.
func Copy(text string) error {
	if !IsAvailable() {
		return ErrUnavailable
	}
	if err := board.WriteAll(text); err != nil {
		return fmt.Errorf("failed to copy to clipboard: %w", err)
	}
	return nil
}

// CopyWithTimeout copies text and blocks until timeout elapses or ctx is
// done, then clears the clipboard if it still holds text. A zero timeout
// leaves the text in place.
func CopyWithTimeout(ctx context.Context, text string, timeout time.Duration) error {
	if err := Copy(text); err != nil {
		return err
	}
	if timeout <= 0 {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}

	return clearIfUnchanged(text)
}

func clearIfUnchanged(text string) error {
	// Something else was copied in the meantime: leave it alone.
	current, err := board.ReadAll()
	if err != nil || current != text {
		return nil
	}
	return Clear()
}

// IsAvailable reports whether a clipboard utility was found on this system.
func IsAvailable() bool {
	return !unsupported()
}

// Clear clears the clipboard
func Clear() error {
	if err := board.WriteAll(""); err != nil {
		return fmt.Errorf("failed to clear clipboard: %w", err)
	}
	return nil
}
