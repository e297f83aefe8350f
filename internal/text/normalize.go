// Package text turns extracted document text into the canonical form used for
// similarity scoring and skill matching.
package text

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var separators = strings.NewReplacer("/", " ", "-", " ")

// Normalize cleans raw extracted text. Compound tokens joined with '/' or '-'
// are split into words, every rune other than an ASCII letter or digit,
// whitespace, '.' or '+' is dropped and whitespace runs collapse to a single
// space. The original letter case is kept for display. Empty input yields an
// empty string.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	cleaned := strings.Map(keep, separators.Replace(norm.NFKC.String(raw)))

	return strings.Join(strings.Fields(cleaned), " ")
}

// Fold lower-cases s and collapses its whitespace, producing the form skill
// matching runs against.
func Fold(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// IsBlank reports whether nothing matchable survives normalization.
func IsBlank(raw string) bool {
	return Normalize(raw) == ""
}

func keep(r rune) rune {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return r
	case r == '.' || r == '+':
		return r
	case unicode.IsSpace(r):
		return ' '
	default:
		return -1
	}
}
