package store

import (
	"errors"
	"fmt"
	"strings"
)

// Error variables for secrets file operations
var (
	// ErrFileAccess is returned when the secrets file cannot be read or written
	ErrFileAccess = errors.New("secrets file is not accessible")
	// ErrParse is returned when the secrets file is not valid TOML
	ErrParse = errors.New("secrets file is not valid TOML")
	// ErrSchema is returned when required fields are missing or invalid
	ErrSchema = errors.New("secrets file does not match the expected schema")
	// ErrMissingSecret is returned when an account has an empty secret
	ErrMissingSecret = errors.New("account has no secret")
	// ErrDuplicateAccount is returned when an account label is used twice
	ErrDuplicateAccount = errors.New("account already exists")
	// ErrUnknownAccount is returned when an account label does not exist
	ErrUnknownAccount = errors.New("account not found")
	// ErrEmptyLabel is returned when a label is empty after normalization
	ErrEmptyLabel = errors.New("account label is empty")
	// ErrStoreLocked is returned when another process holds the store lock
	ErrStoreLocked = errors.New("secrets file is locked by another process")
)

// FileAccessError wraps an I/O failure on the secrets file.
type FileAccessError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("unable to %s the secrets file %q: %v", e.Op, e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() []error { return []error{ErrFileAccess, e.Err} }

// ParseCause classifies common TOML mistakes.
type ParseCause int

const (
	CauseUnknown ParseCause = iota
	// CauseUnquotedValue is a secret written without quotes, read by TOML as
	// a date, a number or garbage.
	CauseUnquotedValue
	// CauseDuplicateLabel is an account table declared twice.
	CauseDuplicateLabel
)

// ParseError reports malformed TOML with a hint for the usual causes.
type ParseError struct {
	Path  string
	Line  int
	Cause ParseCause
	// Label is the duplicated account when Cause is CauseDuplicateLabel.
	Label string
	Err   error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	name := e.Path
	if name == "" {
		name = "secrets file"
	}
	fmt.Fprintf(&b, "'%s' is not a valid TOML file (error given is: %v)", name, e.Err)

	switch e.Cause {
	case CauseUnquotedValue:
		b.WriteString("\nOne frequent cause of this is forgetting to put quotes around secret keys. Check the file.")
	case CauseDuplicateLabel:
		fmt.Fprintf(&b, "\nOne frequent cause of this is using the same account name twice. Check that you didn't use '%s' several times.", e.Label)
	}
	return b.String()
}

func (e *ParseError) Unwrap() []error { return []error{ErrParse, e.Err} }

// SchemaError reports a well-formed document missing required content.
type SchemaError struct {
	Path   string
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	where := ""
	if e.Path != "" {
		where = fmt.Sprintf(" in the secrets file %q", e.Path)
	}
	if e.Reason == "" {
		return fmt.Sprintf("%q is missing%s", e.Field, where)
	}
	return fmt.Sprintf("invalid %q%s: %s", e.Field, where, e.Reason)
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// MissingSecretError reports an account whose secret is empty.
type MissingSecretError struct {
	Label string
}

func (e *MissingSecretError) Error() string {
	return fmt.Sprintf("account '%s' doesn't have a secret", e.Label)
}

func (e *MissingSecretError) Unwrap() error { return ErrMissingSecret }

// DuplicateAccountError reports an add on an existing label.
type DuplicateAccountError struct {
	Label string
}

func (e *DuplicateAccountError) Error() string {
	return fmt.Sprintf("an account named %q already exists", e.Label)
}

func (e *DuplicateAccountError) Unwrap() error { return ErrDuplicateAccount }

// UnknownAccountError reports a lookup or removal of a missing label.
type UnknownAccountError struct {
	Label string
}

func (e *UnknownAccountError) Error() string {
	return fmt.Sprintf("no account named %q", e.Label)
}

func (e *UnknownAccountError) Unwrap() error { return ErrUnknownAccount }
