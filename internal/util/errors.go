// Package util provides the error reporting helpers shared by the commands.
package util

import (
	"errors"
	"fmt"
	"os"

	"github.com/tetricoins/tetripin/internal/migrate"
	"github.com/tetricoins/tetripin/internal/store"
	"github.com/tetricoins/tetripin/internal/totp"
	"github.com/tetricoins/tetripin/internal/vault"
)

// Exit codes returned by the tetripin binary
const (
	ExitOK           = 0
	ExitError        = 1
	ExitInvalidInput = 2
	ExitVaultLocked  = 3
	ExitIntegrityErr = 4
)

// ExitWithCode exits the program with the specified code and message
func ExitWithCode(code int, format string, args ...interface{}) {
	if format != "" {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
	os.Exit(code)
}

// ExitCode maps err to the exit code of the process.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, migrate.ErrLocked),
		errors.Is(err, migrate.ErrIncorrectPassword),
		errors.Is(err, store.ErrStoreLocked):
		return ExitVaultLocked
	case errors.Is(err, vault.ErrInvalidToken),
		errors.Is(err, totp.ErrInvalidSeed),
		errors.Is(err, store.ErrMissingSecret):
		return ExitIntegrityErr
	case errors.Is(err, store.ErrParse),
		errors.Is(err, store.ErrSchema),
		errors.Is(err, store.ErrDuplicateAccount),
		errors.Is(err, store.ErrUnknownAccount),
		errors.Is(err, store.ErrEmptyLabel),
		errors.Is(err, migrate.ErrPasswordRequired),
		errors.Is(err, migrate.ErrWrongVersion):
		return ExitInvalidInput
	default:
		return ExitError
	}
}

// HandleError prints err and exits with the matching code.
func HandleError(err error, context string) {
	if err == nil {
		return
	}

	code := ExitCode(err)
	msg := fmt.Sprintf("Error: %v", err)
	if context != "" {
		msg = fmt.Sprintf("Error: %s - %v", context, err)
	}
	if code == ExitIntegrityErr {
		msg += "\nRun 'tetripin doctor' to diagnose issues."
	}
	ExitWithCode(code, "%s", msg)
}

// WrapError wraps an error with additional context
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
