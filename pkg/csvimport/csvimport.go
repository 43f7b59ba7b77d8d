// Package csvimport reads spreadsheet exports of a book collection. Each row
// becomes one mediafile.ParsedMetadata; malformed rows are reported and
// skipped so one typo doesn't sink a whole import.
package csvimport

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

const (
	colTitle        = "title"
	colAuthors      = "authors"
	colSeries       = "series"
	colSeriesNumber = "series_number"
	colISBN         = "isbn"
	colPublisher    = "publisher"
	colYear         = "year"
	colCategories   = "categories"
	colTags         = "tags"
	colDescription  = "description"
	colReadStatus   = "read_status"
	colLocation     = "location"
)

// headerAliases maps snake-cased header names onto canonical columns.
var headerAliases = map[string]string{
	"title":          colTitle,
	"author":         colAuthors,
	"authors":        colAuthors,
	"author(s)":      colAuthors,
	"series":         colSeries,
	"series_number":  colSeriesNumber,
	"series_index":   colSeriesNumber,
	"volume":         colSeriesNumber,
	"isbn":           colISBN,
	"isbn_13":        colISBN,
	"isbn13":         colISBN,
	"publisher":      colPublisher,
	"year":           colYear,
	"published":      colYear,
	"categories":     colCategories,
	"category":       colCategories,
	"genres":         colCategories,
	"tags":           colTags,
	"tag":            colTags,
	"description":    colDescription,
	"read_status":    colReadStatus,
	"status":         colReadStatus,
	"location":       colLocation,
	"shelf_location": colLocation,
}

var readStatuses = map[string]string{
	"":                  "",
	"unread":            models.ReadStatusUnread,
	"to-read":           models.ReadStatusUnread,
	"to read":           models.ReadStatusUnread,
	"reading":           models.ReadStatusReading,
	"currently-reading": models.ReadStatusReading,
	"read":              models.ReadStatusRead,
	"finished":          models.ReadStatusRead,
}

var listSeparatorRE = regexp.MustCompile(`\s*[;|,]\s*`)

// RowError describes a row that was skipped. Line is the 1-based line of
// the row in the input.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

type Row struct {
	Line     int
	Metadata *mediafile.ParsedMetadata
}

type Result struct {
	Rows   []Row
	Errors []RowError
}

// ParseFile opens path and parses it with Parse.
func ParseFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a header row followed by one book per row. It only returns an
// error when the header is unusable or the input can't be read at all.
func Parse(r io.Reader) (*Result, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, errcodes.ValidationError("CSV file is empty.")
	}
	if err != nil {
		return nil, errcodes.ValidationError(fmt.Sprintf("CSV header could not be read: %s", err))
	}
	columns := mapHeader(header)
	if _, ok := columns[colTitle]; !ok {
		return nil, errcodes.ValidationError("CSV header must include a title column.")
	}

	result := &Result{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				result.Errors = append(result.Errors, RowError{Line: parseErr.StartLine, Err: parseErr.Err})
				continue
			}
			return nil, errors.WithStack(err)
		}
		if isBlank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		md, err := parseRecord(columns, record)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Line: line, Err: err})
			continue
		}
		result.Rows = append(result.Rows, Row{Line: line, Metadata: md})
	}
	return result, nil
}

func mapHeader(header []string) map[string]int {
	columns := map[string]int{}
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		key := strcase.ToSnake(strings.TrimSpace(h))
		col, ok := headerAliases[key]
		if !ok {
			continue
		}
		if _, dup := columns[col]; dup {
			continue
		}
		columns[col] = i
	}
	return columns
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseRecord(columns map[string]int, record []string) (*mediafile.ParsedMetadata, error) {
	get := func(col string) string {
		i, ok := columns[col]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	md := &mediafile.ParsedMetadata{DataSource: models.DataSourceCSV}

	md.Title = cleanup.CleanTitle(get(colTitle))
	if md.Title == "" {
		return nil, errors.New("title is required")
	}
	md.Authors = cleanup.SplitAuthors(get(colAuthors))
	md.Series = get(colSeries)
	md.Publisher = get(colPublisher)
	md.Description = get(colDescription)
	md.Location = get(colLocation)
	md.Categories = splitList(get(colCategories))
	md.Tags = splitList(get(colTags))

	if v := get(colSeriesNumber); v != "" {
		n, err := strconv.ParseFloat(strings.TrimPrefix(v, "#"), 64)
		if err != nil || n < 0 {
			return nil, errors.Errorf("series_number %q is not a number", v)
		}
		md.SeriesNumber = &n
	}

	if v := get(colISBN); v != "" {
		switch isbn, t := identifiers.ParseISBN(v); t {
		case identifiers.TypeISBN13:
			md.ISBN13 = isbn
		case identifiers.TypeISBN10:
			md.ISBN10 = isbn
		default:
			return nil, errors.Errorf("isbn %q is not a valid ISBN", v)
		}
	}

	if v := get(colYear); v != "" {
		date := mediafile.ParseDate(v)
		if date == nil {
			return nil, errors.Errorf("year %q is not a date", v)
		}
		md.ReleaseDate = date
	}

	status, ok := readStatuses[strings.ToLower(get(colReadStatus))]
	if !ok {
		return nil, errors.Errorf("read_status %q must be one of unread, reading, read", get(colReadStatus))
	}
	md.ReadStatus = status

	return md, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, part := range listSeparatorRE.Split(s, -1) {
		part = strings.TrimSpace(part)
		k := strings.ToLower(part)
		if part == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, part)
	}
	return out
}
