// Package uid normalizes chip hardware identifiers so that tag encodings
// ("04:A1:B2"), manual entry ("04a1b2") and dashed forms resolve alike.
package uid

import (
	"strings"
	"unicode"

	"golang.org/x/text/width"
)

// Normalize folds full-width characters, drops ':' '-' and whitespace, and
// uppercases the rest. Writes and lookups must both go through it.
func Normalize(raw string) string {
	folded := width.Fold.String(raw)
	stripped := strings.Map(func(r rune) rune {
		if r == ':' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, folded)
	return strings.ToUpper(stripped)
}
