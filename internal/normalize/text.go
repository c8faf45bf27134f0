package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CleanText collapses internal whitespace and trims the ends.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// OptionalText returns nil for text that is empty after cleaning.
func OptionalText(s string) *string {
	s = CleanText(s)
	if s == "" {
		return nil
	}
	return &s
}

// fold lowercases s and strips diacritics so "Saúde" and "saude" compare equal.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(CleanText(out))
}
