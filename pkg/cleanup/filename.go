package cleanup

import (
	"path/filepath"
	"regexp"
	"strings"
)

// ParsedFilename is what can be guessed about a book from its file name.
type ParsedFilename struct {
	Title   string
	Authors []string
	Series  string
	Volume  *float64
}

var (
	bracketAuthorRE   = regexp.MustCompile(`^\[([^\]]+)\]\s*(.+)$`)
	seriesParenRE     = regexp.MustCompile(`(?i)\(([^()]+?)\s*(?:,\s*)?(?:#|book\s+|vol\.?\s*|volume\s+)(\d+(?:\.\d+)?)\)`)
	versionSuffixRE   = regexp.MustCompile(`(?i)[_\s-]v\d+$`)
	separatorSplitRE  = regexp.MustCompile(`\s+[-–—]\s+`)
	yearParenRE       = regexp.MustCompile(`\s*[(\[]\d{4}[)\]]`)
	seriesIndexRE     = regexp.MustCompile(`^(.+?)\s+(\d{1,3}(?:\.\d+)?)$`)
	leadingIndexRE    = regexp.MustCompile(`^\d{1,3}\s*[-.]\s+`)
	unsafeFilenameRE  = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	whitespaceRunRE   = regexp.MustCompile(`\s+`)
	compoundExtension = []string{".fb2.zip"}
)

// StripExtension removes the file extension, including compound ones like
// ".fb2.zip".
func StripExtension(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range compoundExtension {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)]
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// ParseFilename guesses title, authors and series from a book's file name.
// It understands "Author - Title", "[Author] Title", "Title (Series #3)" and
// "Series 03 - Title", and treats underscores and dots as spaces.
func ParseFilename(path string) ParsedFilename {
	name := StripExtension(filepath.Base(path))
	name = versionSuffixRE.ReplaceAllString(name, "")
	if !strings.Contains(name, " ") {
		name = strings.NewReplacer("_", " ", ".", " ").Replace(name)
	} else {
		name = strings.ReplaceAll(name, "_", " ")
	}
	name = yearParenRE.ReplaceAllString(name, "")
	name = CleanTitle(name)

	var out ParsedFilename

	if m := seriesParenRE.FindStringSubmatchIndex(name); m != nil {
		out.Series = strings.TrimSpace(name[m[2]:m[3]])
		if vol, ok := parseVolumeNumber(name[m[4]:m[5]]); ok {
			out.Volume = &vol
		}
		name = tidy(name[:m[0]] + name[m[1]:])
	}

	if m := bracketAuthorRE.FindStringSubmatch(name); m != nil {
		out.Authors = SplitAuthors(m[1])
		name = m[2]
	} else if parts := separatorSplitRE.Split(name, -1); len(parts) >= 2 {
		first := strings.TrimSpace(parts[0])
		rest := strings.TrimSpace(strings.Join(parts[1:], " - "))
		switch {
		case out.Series == "" && seriesIndexRE.MatchString(first):
			// "Discworld 03 - Equal Rites"
			m := seriesIndexRE.FindStringSubmatch(first)
			vol, _ := parseVolumeNumber(m[2])
			out.Series, out.Volume = strings.TrimSpace(m[1]), &vol
			name = rest
		case looksLikeName(first):
			out.Authors = SplitAuthors(first)
			name = rest
		case looksLikeName(rest):
			out.Authors = SplitAuthors(rest)
			name = first
		}
	}

	name = leadingIndexRE.ReplaceAllString(name, "")
	if out.Volume == nil {
		if base, vol := ExtractVolume(name); vol != nil {
			out.Volume = vol
			if out.Series == "" {
				out.Series = base
			}
		}
	}

	out.Title = CleanTitle(name)
	return out
}

var nameWordRE = regexp.MustCompile(`^(?:[A-Z][\p{L}'’-]*\.?|[A-Z]\.(?:[A-Z]\.)*|van|von|de|da|di|du|del|der|le|la|bin|ibn)$`)

// looksLikeName reports whether s reads like one or more personal names: two
// to four capitalized words per name, optionally joined by "&", "and" or
// commas.
func looksLikeName(s string) bool {
	names := SplitAuthors(s)
	if len(names) == 0 {
		return false
	}
	for _, n := range names {
		words := strings.Fields(n)
		if len(words) < 2 || len(words) > 4 {
			return false
		}
		for _, w := range words {
			if !nameWordRE.MatchString(w) {
				return false
			}
		}
	}
	return true
}

// SanitizeFilename makes name safe to use as a single path element.
func SanitizeFilename(name string) string {
	name = quoteRE.Replace(name)
	name = unsafeFilenameRE.ReplaceAllString(name, "")
	name = whitespaceRunRE.ReplaceAllString(name, " ")
	name = strings.Trim(name, " .")
	if len(name) > 200 {
		name = strings.Trim(name[:200], " .")
	}
	if name == "" {
		return "untitled"
	}
	return name
}
