// Package util provides text helpers shared across components.
package util

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lower-cases s and strips diacritics so "Condición" and "condicion"
// compare equal. ñ folds to n.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Words folds s and splits it on every rune that is not a letter or digit,
// so "Alternador?" gives ["alternador"] and "F-150" gives ["f", "150"].
func Words(s string) []string {
	return strings.FieldsFunc(Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// CollapseSpaces replaces runs of whitespace with a single space and trims the ends.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripPhoneScheme removes a transport scheme and leading "+" from a sender
// identity, e.g. "whatsapp:+5216671234567" becomes "5216671234567".
func StripPhoneScheme(identity string) string {
	id := strings.TrimSpace(identity)
	if i := strings.Index(id, ":"); i >= 0 {
		id = id[i+1:]
	}
	return strings.TrimPrefix(id, "+")
}
