// Package strings provides text cleanup helpers shared by the CSV and config layers.
package strings

import (
	"strings"
	"unicode"
)

// invisible lists runes that spreadsheet exports leave behind in header cells.
var invisible = map[rune]struct{}{
	'\uFEFF': {}, // byte order mark
	'\u200B': {}, // zero width space
	'\u200C': {},
	'\u200D': {},
	'\u2060': {},
}

// CleanInvisible strips byte order marks and zero-width characters, folds
// non-breaking spaces to regular spaces and trims the result.
func CleanInvisible(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if _, ok := invisible[r]; ok {
			continue
		}
		if r == '\u00A0' {
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.TrimFunc(b.String(), unicode.IsSpace)
}

// DedupeAndTrim removes duplicates and empty strings from a slice,
// trimming whitespace from each element. Order is preserved.
func DedupeAndTrim(values []string) []string {
	if len(values) == 0 {
		return values
	}

	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; !ok {
			seen[trimmed] = struct{}{}
			result = append(result, trimmed)
		}
	}
	return result
}

// SplitList splits v on sep and returns the trimmed, de-duplicated parts.
func SplitList(v, sep string) []string {
	return DedupeAndTrim(strings.Split(v, sep))
}
