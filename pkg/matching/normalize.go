// Package matching scores how well an external candidate matches a book:
// fuzzy title and author similarity, metadata completeness, and a stable
// ranking with deterministic tie-breaks.
package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var leadingArticles = []string{"the ", "a ", "an "}

// Normalize prepares a string for comparison: diacritics are removed, text
// is lower-cased, "&" becomes "and", punctuation becomes whitespace, runs of
// whitespace collapse, and a leading English article is dropped.
func Normalize(s string) string {
	s = foldDiacritics(s)
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "&", " and ")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'' || r == '’':
			// "Ender's" and "Enders" compare equal.
		default:
			b.WriteByte(' ')
		}
	}
	s = strings.Join(strings.Fields(b.String()), " ")

	for _, article := range leadingArticles {
		if strings.HasPrefix(s, article) && len(s) > len(article) {
			return s[len(article):]
		}
	}
	return s
}

func foldDiacritics(s string) string {
	// Transformers are stateful, so one chain per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
