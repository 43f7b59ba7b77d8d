// Package cleanup normalizes the messy titles, filenames and author strings
// that come out of book files and store listings.
package cleanup

import (
	"regexp"
	"strings"
)

func wordSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[strings.ToLower(w)] = struct{}{}
	}
	return m
}

var (
	titleArticles = []string{"The", "A", "An"}

	// Kept in the sort name: they distinguish different people.
	generationalSuffixes = wordSet("Jr.", "Jr", "Sr.", "Sr", "Junior", "Senior", "I", "II", "III", "IV", "V")

	// Dropped from the sort name: credentials, not names.
	academicSuffixes = wordSet(
		"PhD", "Ph.D", "Ph.D.", "PsyD", "Psy.D.", "MD", "M.D.", "DO", "D.O.", "DDS", "D.D.S.",
		"JD", "J.D.", "EdD", "Ed.D.", "LLD", "LL.D.", "MBA", "M.B.A.", "MS", "M.S.", "MA", "M.A.",
		"BA", "B.A.", "BS", "B.S.", "RN", "R.N.", "Esq", "Esq.",
	)

	honorifics = wordSet(
		"Dr.", "Dr", "Mr.", "Mr", "Mrs.", "Mrs", "Ms.", "Ms", "Prof.", "Prof", "Rev.", "Rev",
		"Fr.", "Fr", "Sir", "Dame", "Lord", "Lady",
	)
)

func inSet(set map[string]struct{}, word string) bool {
	_, ok := set[strings.ToLower(strings.TrimSuffix(word, ","))]
	return ok
}

// SortTitle moves a leading article to the end: "The Hobbit" becomes
// "Hobbit, The". Titles without an article are returned trimmed.
func SortTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, article := range titleArticles {
		if len(title) <= len(article)+1 {
			continue
		}
		if !strings.EqualFold(title[:len(article)], article) || title[len(article)] != ' ' {
			continue
		}
		rest := strings.TrimSpace(title[len(article)+1:])
		if rest != "" {
			return rest + ", " + title[:len(article)]
		}
	}
	return title
}

// SortName turns a display name into "Last, First Middle". Honorifics and
// academic credentials are dropped; generational suffixes are kept at the end.
//
//	"Stephen King"           -> "King, Stephen"
//	"Martin Luther King Jr." -> "King, Martin Luther, Jr."
//	"Dr. Sarah Connor PhD"   -> "Connor, Sarah"
//	"Ludwig van Beethoven"   -> "Beethoven, Ludwig van"
//
// Names that already contain a comma are assumed to be inverted.
func SortName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" || strings.Contains(name, ",") && !hasTrailingSuffixComma(name) {
		return name
	}

	parts := strings.Fields(name)
	for len(parts) > 1 && inSet(honorifics, parts[0]) {
		parts = parts[1:]
	}

	var suffixes []string
trailing:
	for len(parts) > 1 {
		last := parts[len(parts)-1]
		switch {
		case inSet(generationalSuffixes, last):
			suffixes = append([]string{strings.TrimSuffix(last, ",")}, suffixes...)
		case inSet(academicSuffixes, last):
		default:
			break trailing
		}
		parts = parts[:len(parts)-1]
	}
	for i := range parts {
		parts[i] = strings.TrimSuffix(parts[i], ",")
	}

	if len(parts) == 1 {
		return strings.Join(append(parts, suffixes...), ", ")
	}

	// Particles stay with the given names: "Waals, Johannes van der".
	out := parts[len(parts)-1] + ", " + strings.Join(parts[:len(parts)-1], " ")
	if len(suffixes) > 0 {
		out += ", " + strings.Join(suffixes, ", ")
	}
	return out
}

// hasTrailingSuffixComma reports whether the only commas in name separate a
// generational or academic suffix, as in "Robert Downey, Jr.".
func hasTrailingSuffixComma(name string) bool {
	segments := strings.Split(name, ",")
	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if !inSet(generationalSuffixes, seg) && !inSet(academicSuffixes, seg) {
			return false
		}
	}
	return true
}

var (
	authorSeparatorRE = regexp.MustCompile(`(?i)\s*(?:;|&|\band\b|\bwith\b|\|)\s*`)
	authorRoleRE      = regexp.MustCompile(`(?i)\s*\((?:author|editor|translator|illustrator|foreword|introduction)[^)]*\)\s*$`)
)

// SplitAuthors splits a free-text author field into individual names. It
// understands ";", "&", "and", "with", "|" and commas, and re-orders a single
// inverted name ("Tolkien, J.R.R.") into display order.
func SplitAuthors(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var names []string
	for _, chunk := range authorSeparatorRE.Split(s, -1) {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		if first, last, ok := invertedName(chunk); ok {
			names = append(names, first+" "+last)
			continue
		}
		for _, part := range strings.Split(chunk, ",") {
			part = strings.TrimSpace(authorRoleRE.ReplaceAllString(part, ""))
			if part == "" {
				continue
			}
			if inSet(generationalSuffixes, part) && len(names) > 0 {
				names[len(names)-1] += " " + part
				continue
			}
			names = append(names, part)
		}
	}
	return dedupeFold(names)
}

// invertedName detects "Last, First" where the surname is a single word and
// the given part has at most two words.
func invertedName(s string) (first, last string, ok bool) {
	segments := strings.Split(s, ",")
	if len(segments) != 2 {
		return "", "", false
	}
	last = strings.TrimSpace(segments[0])
	first = strings.TrimSpace(authorRoleRE.ReplaceAllString(segments[1], ""))
	if last == "" || first == "" || strings.Contains(last, " ") {
		return "", "", false
	}
	if inSet(generationalSuffixes, first) || inSet(academicSuffixes, first) {
		return "", "", false
	}
	if len(strings.Fields(first)) > 2 {
		return "", "", false
	}
	return first, last, true
}

func dedupeFold(in []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(in))
	for _, s := range in {
		k := strings.ToLower(s)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, s)
	}
	return out
}
