package search

import (
	"strings"
	"unicode"
)

const (
	maxQueryLength = 100
	maxQueryTerms  = 8
)

// queryTerms splits user input into words, dropping punctuation so FTS5
// operators (AND, NEAR, column filters, quotes) can never reach the engine.
func queryTerms(input string) []string {
	input = strings.TrimSpace(input)
	if len(input) > maxQueryLength {
		input = input[:maxQueryLength]
	}
	terms := strings.FieldsFunc(input, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
	out := terms[:0]
	for _, t := range terms {
		if t = strings.Trim(t, "'"); t != "" {
			out = append(out, t)
		}
	}
	if len(out) > maxQueryTerms {
		out = out[:maxQueryTerms]
	}
	return out
}

// BuildPrefixQuery turns input into an FTS5 query where every word must
// match as a prefix, in any column. "herb dun" finds Dune by Frank Herbert.
// Input without any words gives "".
func BuildPrefixQuery(input string) string {
	terms := queryTerms(input)
	if len(terms) == 0 {
		return ""
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"*`
	}
	return strings.Join(parts, " ")
}
