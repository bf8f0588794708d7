package utils

import (
	"strings"
	"unicode"
)

// NormalizePlate uppercases the plate and strips separators, so that
// "29a1-123.45" and "29A1 12345" compare equal.
func NormalizePlate(plate string) string {
	var b strings.Builder
	b.Grow(len(plate))
	for _, r := range strings.ToUpper(strings.TrimSpace(plate)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
