package tabular

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NormalizeHeader canonicalizes a column header: lowercase, diacritics
// stripped, every run of non-alphanumeric characters collapsed to a single
// underscore, leading and trailing underscores trimmed. "Prix Unitaire (HT)"
// and "prix_unitaire_ht" normalize to the same key.
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = stripMarks(s)

	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(r)
		} else {
			pendingSep = true
		}
	}
	return b.String()
}

// stripMarks removes combining marks after NFKD decomposition, so that
// accented characters fold to their ASCII base ("é" to "e").
func stripMarks(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
