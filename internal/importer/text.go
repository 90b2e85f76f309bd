package importer

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CategoryAcronyms are category-name tokens kept fully upper-case when
// title-casing non-root category segments.
var CategoryAcronyms = map[string]bool{"EPI": true, "PCA": true}

// NormalizeUpper trims and upper-cases a code-like value (zone, aisle,
// shelf, SKU). Empty stays empty.
func NormalizeUpper(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeTitle title-cases free text word by word. Within a word, hyphens,
// slashes and apostrophes delimit sub-parts that are cased independently
// ("jean-pierre d'arc" to "Jean-Pierre D'Arc"). Sub-parts listed in keepUpper
// go fully upper-case; sub-parts that do not start with a letter pass through
// unchanged.
func NormalizeTitle(s string, keepUpper map[string]bool) string {
	words := strings.Fields(strings.TrimSpace(s))
	for i, w := range words {
		words[i] = titleWord(w, keepUpper)
	}
	return strings.Join(words, " ")
}

func titleWord(w string, keepUpper map[string]bool) string {
	var b strings.Builder
	b.Grow(len(w))
	start := 0
	for i, r := range w {
		if r == '-' || r == '/' || r == '\'' || r == '’' {
			b.WriteString(titlePart(w[start:i], keepUpper))
			b.WriteRune(r)
			start = i + len(string(r))
		}
	}
	b.WriteString(titlePart(w[start:], keepUpper))
	return b.String()
}

func titlePart(p string, keepUpper map[string]bool) string {
	if keepUpper != nil && keepUpper[strings.ToUpper(p)] {
		return strings.ToUpper(p)
	}
	runes := []rune(p)
	if len(runes) == 0 || !unicode.IsLetter(runes[0]) {
		return p
	}
	for i, r := range runes {
		if i == 0 {
			runes[i] = unicode.ToUpper(r)
		} else {
			runes[i] = unicode.ToLower(r)
		}
	}
	return string(runes)
}

// NormalizeCategoryName applies the category casing rules: root segments go
// fully upper-case, deeper segments are title-cased with acronym exceptions.
func NormalizeCategoryName(s string, isRoot bool) string {
	if isRoot {
		return NormalizeUpper(s)
	}
	return NormalizeTitle(s, CategoryAcronyms)
}

// FoldKey reduces a value to its fuzzy-match form: NFKD decomposition, marks
// dropped, everything but letters and digits removed, lower-cased. "ABC 123!"
// and "abc-123" fold to the same key.
func FoldKey(s string) string {
	decomposed := norm.NFKD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}
