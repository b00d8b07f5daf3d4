package store

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	keyFormatVersion = "format_version"
	keySalt          = "salt"
	keyAccount       = "account"
	keyAccounts      = "accounts"
	keySecret        = "secret"
)

var (
	tableHeaderRe = regexp.MustCompile(`^\s*\[\s*(.+?)\s*\]\s*$`)
	bareValueRe   = regexp.MustCompile(`^\s*[^=#\[]+=\s*([^\s"'\[{#]\S*)`)
	quotedKeyRe   = regexp.MustCompile(`['"]([^'"]+)['"]`)
)

// documentHeader holds the top-level keys written ahead of the account tables.
type documentHeader struct {
	FormatVersion int    `toml:"format_version"`
	Salt          string `toml:"salt,omitempty"`
}

type documentAccount struct {
	Secret string `toml:"secret"`
}

// Parse decodes and validates a secrets document.
func Parse(raw []byte) (*Store, error) {
	return parse("", raw)
}

func parse(path string, raw []byte) (*Store, error) {
	var doc map[string]any
	md, err := toml.Decode(string(raw), &doc)
	if err != nil {
		return nil, classifyParseError(path, raw, err)
	}

	version, err := parseVersion(path, doc)
	if err != nil {
		return nil, err
	}

	s := New(version)

	if rawSalt, ok := doc[keySalt]; ok {
		text, ok := rawSalt.(string)
		if !ok {
			return nil, &SchemaError{Path: path, Field: keySalt, Reason: "must be a base64 string"}
		}
		salt, err := base64.StdEncoding.DecodeString(strings.TrimSpace(text))
		if err != nil {
			return nil, &SchemaError{Path: path, Field: keySalt, Reason: "not valid base64"}
		}
		// A salt on an older version is ignored: it is regenerated on upgrade.
		if version == V3PasswordKey {
			s.Salt = salt
		}
	}

	section, name, err := accountSection(path, doc)
	if err != nil {
		return nil, err
	}

	for _, label := range accountOrder(md, name, section) {
		if err := s.addParsed(path, label, section[label]); err != nil {
			return nil, err
		}
	}

	if err := s.Validate(); err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			schemaErr.Path = path
		}
		return nil, err
	}
	return s, nil
}

func parseVersion(path string, doc map[string]any) (Version, error) {
	rawVersion, ok := doc[keyFormatVersion]
	if !ok {
		return 0, &SchemaError{Path: path, Field: keyFormatVersion}
	}
	n, ok := rawVersion.(int64)
	if !ok {
		return 0, &SchemaError{Path: path, Field: keyFormatVersion, Reason: fmt.Sprintf("must be an integer, got %T", rawVersion)}
	}
	version := Version(n)
	if !version.Valid() {
		return 0, &SchemaError{Path: path, Field: keyFormatVersion, Reason: fmt.Sprintf("unsupported version %d", n)}
	}
	return version, nil
}

func accountSection(path string, doc map[string]any) (map[string]any, string, error) {
	rawAccount, hasAccount := doc[keyAccount]
	rawAccounts, hasAccounts := doc[keyAccounts]

	switch {
	case hasAccount && hasAccounts:
		return nil, "", &SchemaError{Path: path, Field: keyAccount, Reason: `both "account" and "accounts" sections are present`}
	case !hasAccount && !hasAccounts:
		return nil, "", &SchemaError{Path: path, Field: keyAccount}
	}

	name, value := keyAccount, rawAccount
	if hasAccounts {
		name, value = keyAccounts, rawAccounts
	}

	section, ok := value.(map[string]any)
	if !ok {
		return nil, "", &SchemaError{Path: path, Field: name, Reason: "must be a table"}
	}
	return section, name, nil
}

// accountOrder returns the labels of the section in the order they appear in
// the file.
func accountOrder(md toml.MetaData, section string, accounts map[string]any) []string {
	seen := make(map[string]bool, len(accounts))
	order := make([]string, 0, len(accounts))
	for _, key := range md.Keys() {
		if len(key) < 2 || key[0] != section {
			continue
		}
		label := key[1]
		if _, ok := accounts[label]; ok && !seen[label] {
			seen[label] = true
			order = append(order, label)
		}
	}
	// Keys that metadata did not report (inline tables) keep map order.
	for label := range accounts {
		if !seen[label] {
			order = append(order, label)
		}
	}
	return order
}

func (s *Store) addParsed(path, label string, value any) error {
	norm := NormalizeLabel(label)
	if norm == "" {
		return &SchemaError{Path: path, Field: keyAccount, Reason: fmt.Sprintf("account label %q is empty", label)}
	}
	if _, exists := s.accounts[norm]; exists {
		return &ParseError{
			Path:  path,
			Cause: CauseDuplicateLabel,
			Label: norm,
			Err:   &DuplicateAccountError{Label: norm},
		}
	}

	table, ok := value.(map[string]any)
	if !ok {
		return &SchemaError{Path: path, Field: keyAccount + "." + label, Reason: "must be a table"}
	}

	secret := ""
	if rawSecret, ok := table[keySecret]; ok {
		text, ok := rawSecret.(string)
		if !ok {
			return &ParseError{
				Path:  path,
				Cause: CauseUnquotedValue,
				Err:   fmt.Errorf("secret of account '%s' was read as %T instead of a string", norm, rawSecret),
			}
		}
		secret = strings.TrimSpace(text)
	}

	s.accounts[norm] = Account{Secret: secret}
	s.order = append(s.order, norm)
	return nil
}

func classifyParseError(path string, raw []byte, err error) error {
	perr := &ParseError{Path: path, Err: err}

	var tomlErr toml.ParseError
	if !errors.As(err, &tomlErr) {
		return perr
	}
	perr.Line = tomlErr.Position.Line
	msg := strings.ToLower(tomlErr.Message)
	line := sourceLine(raw, perr.Line)

	switch {
	case strings.Contains(msg, "already been defined") || strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate"):
		perr.Cause = CauseDuplicateLabel
		perr.Label = duplicateLabel(line, tomlErr.Message)
	case bareValueRe.MatchString(line),
		strings.Contains(msg, "date"),
		strings.Contains(msg, "number"),
		strings.Contains(msg, "expected value"):
		perr.Cause = CauseUnquotedValue
	}
	return perr
}

func sourceLine(raw []byte, n int) string {
	if n <= 0 {
		return ""
	}
	lines := bytes.Split(raw, []byte("\n"))
	if n > len(lines) {
		return ""
	}
	return string(lines[n-1])
}

func duplicateLabel(line, msg string) string {
	key := ""
	if m := tableHeaderRe.FindStringSubmatch(line); m != nil {
		key = m[1]
	} else if m := quotedKeyRe.FindStringSubmatch(msg); m != nil {
		key = m[1]
	}
	for _, prefix := range []string{keyAccount + ".", keyAccounts + "."} {
		key = strings.TrimPrefix(key, prefix)
	}
	return NormalizeLabel(strings.Trim(key, `"'`))
}

// Marshal encodes the store in its on-disk TOML form. Account tables are
// written in insertion order so rewrites keep the file stable.
func (s *Store) Marshal() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}

	header := documentHeader{FormatVersion: int(s.Version)}
	if s.Version == V3PasswordKey {
		header.Salt = base64.StdEncoding.EncodeToString(s.Salt)
	}

	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.Indent = ""
	if err := enc.Encode(header); err != nil {
		return nil, fmt.Errorf("failed to encode secrets file: %w", err)
	}
	fmt.Fprintf(&buf, "\n[%s]\n", keyAccount)

	// The encoder sorts map keys, so each table is written on its own.
	for _, label := range s.order {
		fmt.Fprintf(&buf, "\n[%s]\n", toml.Key{keyAccount, label})
		if err := enc.Encode(documentAccount{Secret: s.accounts[label].Secret}); err != nil {
			return nil, fmt.Errorf("failed to encode account %q: %w", label, err)
		}
	}
	return buf.Bytes(), nil
}
