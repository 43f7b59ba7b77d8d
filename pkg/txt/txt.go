// Package txt guesses book metadata from the opening lines of plain text
// files.
package txt

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"golang.org/x/text/encoding/charmap"
)

// headerLines is how many non-empty lines are inspected.
const headerLines = 40

var (
	headerRE    = regexp.MustCompile(`^(?i)(title|author|authors|series|language|release date|publisher|isbn)\s*:\s*(.+)$`)
	gutenbergRE = regexp.MustCompile(`^(?i)\W*the project gutenberg e-?book,?\s+(?:of\s+)?`)
	byLineRE    = regexp.MustCompile(`^(.+?),?\s+by\s+(.+)$`)
	datePartRE  = regexp.MustCompile(`\s*\[.*$`)
)

func Parse(path string) (*mediafile.ParsedMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()

	return ParseReader(f)
}

// ParseReader reads "Key: value" headers (Title, Author, Series, Language,
// Release Date, Publisher, ISBN) from the opening lines. Without a Title
// header, a first line of the form "Title by Author" is used. Text that is
// not valid UTF-8 is read as Windows-1252.
func ParseReader(r io.Reader) (*mediafile.ParsedMetadata, error) {
	head, err := io.ReadAll(io.LimitReader(r, 16<<10))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	text := decode(head)

	md := &mediafile.ParsedMetadata{DataSource: models.DataSourceFile}

	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() && len(lines) < headerLines {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line != "" {
			lines = append(lines, line)
		}
	}

	for _, line := range lines {
		m := headerRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		value := strings.TrimSpace(m[2])
		switch strings.ToLower(m[1]) {
		case "title":
			if md.Title == "" {
				md.Title = cleanup.CleanTitle(value)
			}
		case "author", "authors":
			if len(md.Authors) == 0 {
				md.Authors = cleanup.SplitAuthors(value)
			}
		case "series":
			if md.Series == "" {
				md.Series, md.SeriesNumber = cleanup.ExtractVolume(value)
			}
		case "language":
			md.Language = value
		case "release date":
			md.ReleaseDate = mediafile.ParseDate(datePartRE.ReplaceAllString(value, ""))
		case "publisher":
			md.Publisher = value
		case "isbn":
			md.AddIdentifier(value, "ISBN")
		}
	}

	if md.Title == "" && len(lines) > 0 {
		first := gutenbergRE.ReplaceAllString(lines[0], "")
		if m := byLineRE.FindStringSubmatch(first); m != nil {
			md.Title = cleanup.CleanTitle(m[1])
			if len(md.Authors) == 0 {
				md.Authors = cleanup.SplitAuthors(m[2])
			}
		}
	}

	return md, nil
}

func decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	// The read may have cut a multi-byte rune in half.
	for i := 1; i < utf8.UTFMax && i < len(b); i++ {
		if utf8.Valid(b[:len(b)-i]) {
			return string(b[:len(b)-i])
		}
	}
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}
