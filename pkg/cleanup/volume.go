package cleanup

import (
	"regexp"
	"strconv"
	"strings"
)

var volumePatterns = []*regexp.Regexp{
	// "Vol. 3", "Volume III", "Book 3", "Part 2", "Bk. 4", "Tome 1"
	regexp.MustCompile(`(?i)(?:^|[\s,:;(\[-])((?:volume|vol\.?|book|bk\.?|part|pt\.?|tome)\s*(\d+(?:\.\d+)?|(?-i:[IVXLC]+))\b)`),
	// "#3", "# 3.5"
	regexp.MustCompile(`(?:^|[\s,(\[])(#\s*(\d+(?:\.\d+)?))\b`),
	// "Berserk v12"
	regexp.MustCompile(`(?i)(?:\s)(v(\d+(?:\.\d+)?))\s*$`),
}

var (
	emptyBracketsRE  = regexp.MustCompile(`\(\s*\)|\[\s*\]`)
	danglingSepRE    = regexp.MustCompile(`\s+([,:;])`)
	closingSepRE     = regexp.MustCompile(`[\s,:;-]+([)\]])`)
	trailingJunkRE   = regexp.MustCompile(`[\s,:;\-–—]+$`)
	multipleSpacesRE = regexp.MustCompile(`\s{2,}`)
)

// ExtractVolume finds the last volume marker in title and returns the title
// without it plus the parsed number. Roman numerals are accepted after a
// volume word. When no marker is present the title is returned unchanged with
// a nil volume.
//
//	"The Expanse, Book 3"  -> "The Expanse", 3
//	"Dune Volume II"       -> "Dune", 2
//	"Mistborn #2.5"        -> "Mistborn", 2.5
func ExtractVolume(title string) (string, *float64) {
	for _, re := range volumePatterns {
		matches := re.FindAllStringSubmatchIndex(title, -1)
		if len(matches) == 0 {
			continue
		}
		m := matches[len(matches)-1]
		number := title[m[4]:m[5]]
		vol, ok := parseVolumeNumber(number)
		if !ok {
			continue
		}
		base := title[:m[2]] + title[m[3]:]
		return tidy(base), &vol
	}
	return title, nil
}

func parseVolumeNumber(s string) (float64, bool) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	n := romanToInt(s)
	if n <= 0 || intToRoman(n) != s {
		return 0, false
	}
	return float64(n), true
}

var romanValues = []struct {
	value  int
	symbol string
}{
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"}, {10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func romanToInt(s string) int {
	total := 0
	for len(s) > 0 {
		matched := false
		for _, rv := range romanValues {
			if strings.HasPrefix(s, rv.symbol) {
				total += rv.value
				s = s[len(rv.symbol):]
				matched = true
				break
			}
		}
		if !matched {
			return 0
		}
	}
	return total
}

func intToRoman(n int) string {
	var b strings.Builder
	for _, rv := range romanValues {
		for n >= rv.value {
			b.WriteString(rv.symbol)
			n -= rv.value
		}
	}
	return b.String()
}

// FormatVolume renders 3 as "3" and 2.5 as "2.5".
func FormatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func tidy(s string) string {
	s = emptyBracketsRE.ReplaceAllString(s, "")
	s = multipleSpacesRE.ReplaceAllString(s, " ")
	s = danglingSepRE.ReplaceAllString(s, "$1")
	s = closingSepRE.ReplaceAllString(s, "$1")
	s = trailingJunkRE.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
