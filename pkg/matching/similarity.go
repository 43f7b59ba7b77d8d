package matching

import (
	"strings"

	"github.com/xrash/smetrics"
)

const (
	subtitleMatchScore = 0.9

	jaroWinklerBoost  = 0.7
	jaroWinklerPrefix = 4
)

// TitleSimilarity returns a score in [0, 1]. Normalized equality scores 1.0;
// a title that equals the other once its ":" subtitle is dropped scores 0.9;
// anything else scores the better of Jaro-Winkler and normalized Levenshtein.
func TitleSimilarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	if mainTitle(a) == nb || mainTitle(b) == na {
		return subtitleMatchScore
	}
	return fuzzy(na, nb)
}

// mainTitle is the normalized part of title before the first colon, or ""
// when title has no subtitle.
func mainTitle(title string) string {
	main, _, ok := strings.Cut(title, ":")
	if !ok {
		return ""
	}
	return Normalize(main)
}

func fuzzy(a, b string) float64 {
	a, b = byteRunes(a, b)
	jw := smetrics.JaroWinkler(a, b, jaroWinklerBoost, jaroWinklerPrefix)
	lev := levenshteinSimilarity(a, b)
	if lev > jw {
		return clamp(lev)
	}
	return clamp(jw)
}

// levenshteinSimilarity expects strings already passed through byteRunes.
func levenshteinSimilarity(a, b string) float64 {
	maxLen := max(len(a), len(b))
	if maxLen == 0 {
		return 1
	}
	dist := smetrics.WagnerFischer(a, b, 1, 1, 1)
	return 1 - float64(dist)/float64(maxLen)
}

// byteRunes re-encodes a and b so that every rune becomes a single byte,
// which lets smetrics (byte based) score non-ASCII titles per character.
// Two titles with more than 256 distinct runes between them are returned
// unchanged.
func byteRunes(a, b string) (string, string) {
	codes := make(map[rune]byte)
	encode := func(s string) ([]byte, bool) {
		out := make([]byte, 0, len(s))
		for _, r := range s {
			c, ok := codes[r]
			if !ok {
				if len(codes) == 256 {
					return nil, false
				}
				c = byte(len(codes))
				codes[r] = c
			}
			out = append(out, c)
		}
		return out, true
	}
	ea, ok := encode(a)
	if !ok {
		return a, b
	}
	eb, ok := encode(b)
	if !ok {
		return a, b
	}
	return string(ea), string(eb)
}

func clamp(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	default:
		return f
	}
}

// AuthorSimilarity returns the best pairwise similarity between two author
// lists. "Last, First" and "First Last" are treated as the same name, and a
// matching surname with a matching first initial ("J. Tolkien" and "John
// Tolkien") scores at least 0.9. Either list being empty scores 0.
func AuthorSimilarity(as, bs []string) float64 {
	best := 0.0
	for _, a := range as {
		ca := canonicalName(a)
		if ca == "" {
			continue
		}
		for _, b := range bs {
			cb := canonicalName(b)
			if cb == "" {
				continue
			}
			if s := nameSimilarity(ca, cb); s > best {
				best = s
			}
			if best == 1 {
				return 1
			}
		}
	}
	return best
}

// canonicalName turns "Tolkien, J.R.R." into "j r r tolkien".
func canonicalName(name string) string {
	if last, first, ok := strings.Cut(name, ","); ok && strings.TrimSpace(first) != "" {
		name = first + " " + last
	}
	return Normalize(name)
}

func nameSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	score := fuzzy(a, b)
	ta, tb := strings.Fields(a), strings.Fields(b)
	if len(ta) > 0 && len(tb) > 0 &&
		ta[len(ta)-1] == tb[len(tb)-1] &&
		firstRune(ta[0]) == firstRune(tb[0]) && score < subtitleMatchScore {
		score = subtitleMatchScore
	}
	return score
}

func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
