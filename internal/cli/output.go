package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// maxOutputSize bounds a single write; a secrets file large enough to exceed
// it is almost certainly not a TOTP store.
const maxOutputSize = 1 << 20

func writeString(w io.Writer, s string) error {
	if len(s) > maxOutputSize {
		return fmt.Errorf("output of %d bytes exceeds limit of %d", len(s), maxOutputSize)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// writeOutput formats and writes a message to w.
func writeOutput(w io.Writer, format string, args ...interface{}) error {
	return writeString(w, fmt.Sprintf(format, args...))
}

// writeJSON writes v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v interface{}) error {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return writeString(w, string(payload)+"\n")
}
