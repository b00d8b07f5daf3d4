package store

import (
	"strings"
	"unicode"
)

// ParseSearchTokens splits the raw search string into lower-cased tokens.
// Tokens are delimited by '+' or any whitespace character.
func ParseSearchTokens(raw string) []string {
	fields := strings.FieldsFunc(strings.TrimSpace(raw), func(r rune) bool {
		return unicode.IsSpace(r) || r == '+'
	})

	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		tokens = append(tokens, strings.ToLower(field))
	}
	return tokens
}

// FilterLabels keeps the labels containing every token of query. An empty
// query keeps everything.
func FilterLabels(labels []string, query string) []string {
	tokens := ParseSearchTokens(query)
	if len(tokens) == 0 {
		return labels
	}

	var out []string
	for _, label := range labels {
		if matchesAll(label, tokens) {
			out = append(out, label)
		}
	}
	return out
}

func matchesAll(label string, tokens []string) bool {
	for _, token := range tokens {
		if !strings.Contains(label, token) {
			return false
		}
	}
	return true
}
