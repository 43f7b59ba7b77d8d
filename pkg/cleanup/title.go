package cleanup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	// Release-group and format tags: "[Retail]", "(epub)", "(z-lib.org)".
	noiseTagRE = regexp.MustCompile(`(?i)[\[(]\s*(?:retail|epub|pdf|mobi|azw3?|fb2|docx?|txt|e-?book|z-?lib(?:\.org)?|libgen(?:\.\w+)?|calibre|converted|digital|scan(?:ned)?|ocr|unabridged|kindle(?: edition)?|\d{3,4}p)\s*[\])]`)
	editionRE  = regexp.MustCompile(`(?i)[\s,:(\[-]*\b(?:(?:\d+(?:st|nd|rd|th)|first|second|third|fourth|fifth|new|revised|updated|expanded|anniversary|special|collector'?s|deluxe|illustrated|annotated|kindle)\s+)+edition\b[)\]]?`)
	copyRE     = regexp.MustCompile(`(?i)(?:\s*\(\d{1,2}\)|\s*-\s*copy(?:\s*\(\d+\))?|_copy)\s*$`)
	quoteRE    = strings.NewReplacer("“", `"`, "”", `"`, "‘", "'", "’", "'", "\u00a0", " ")
)

// CleanTitle strips file-sharing noise from a title: format and release tags,
// edition markers, copy counters like " (1)", smart quotes, and extra
// whitespace. Titles that arrive entirely in upper case are title-cased.
func CleanTitle(title string) string {
	title = quoteRE.Replace(title)
	title = noiseTagRE.ReplaceAllString(title, "")
	title = editionRE.ReplaceAllString(title, "")
	for copyRE.MatchString(title) {
		title = copyRE.ReplaceAllString(title, "")
	}
	title = tidy(title)
	if len(title) >= 2 && title[0] == '"' && title[len(title)-1] == '"' {
		title = strings.TrimSpace(title[1 : len(title)-1])
	}
	if isShouting(title) {
		// Casers are stateful, so one per call.
		title = cases.Title(language.English).String(strings.ToLower(title))
	}
	return title
}

// isShouting reports whether s has at least six letters and none of them are
// lower case. Short acronyms like "NASA" are left alone.
func isShouting(s string) bool {
	letters := 0
	for _, r := range s {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsLower(r) {
			return false
		}
		letters++
	}
	return letters >= 6
}

// SplitSubtitle splits "Title: Subtitle" on the first colon. A title without
// a colon has an empty subtitle.
func SplitSubtitle(title string) (string, string) {
	main, sub, ok := strings.Cut(title, ":")
	if !ok {
		return strings.TrimSpace(title), ""
	}
	main = strings.TrimSpace(main)
	sub = strings.TrimSpace(sub)
	if main == "" {
		return sub, ""
	}
	return main, sub
}
