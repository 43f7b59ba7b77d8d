// Package mediafile holds the metadata DTO every parser and scraper
// normalizes into.
package mediafile

import (
	"fmt"
	"strings"
	"time"

	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

// ParsedIdentifier represents an identifier parsed from file metadata.
type ParsedIdentifier struct {
	Type  identifiers.Type
	Value string
}

type ParsedMetadata struct {
	Title        string
	Subtitle     string
	Authors      []string
	Series       string
	SeriesNumber *float64
	Categories   []string
	Tags         []string
	Description  string
	Publisher    string
	Language     string
	ISBN10       string
	ISBN13       string
	ReleaseDate  *time.Time
	PageCount    *int
	// ReadStatus and Location are only set by the CSV importer.
	ReadStatus string
	Location   string

	CoverMimeType string
	CoverData     []byte
	// MimeType is the sniffed type of the source file.
	MimeType string
	// DataSource is one of the models.DataSource values.
	DataSource string
	// FieldDataSources records fields filled from a different source than
	// DataSource, e.g. a title recovered from the filename.
	FieldDataSources map[string]string
	Identifiers      []ParsedIdentifier
}

func (m *ParsedMetadata) String() string {
	return fmt.Sprintf("Title:           %s\nAuthor(s):       %s\nSeries:          %s\nHas Cover Data:  %v\nCover Mime Type: %s\nData Source:     %s",
		m.Title, strings.Join(m.Authors, ", "), m.Series, len(m.CoverData) > 0, m.CoverMimeType, m.DataSource)
}

// SourceForField returns the data source for a specific field.
// If a per-field source is set, it returns that; otherwise falls back to DataSource.
func (m *ParsedMetadata) SourceForField(field string) string {
	if m.FieldDataSources != nil {
		if src, ok := m.FieldDataSources[field]; ok {
			return src
		}
	}
	return m.DataSource
}

func (m *ParsedMetadata) CoverExtension() string {
	return models.CoverExtension(m.CoverMimeType)
}

// AddIdentifier classifies value and records it. Valid ISBNs also fill
// ISBN10/ISBN13 when those are still empty. Unrecognized values are ignored.
func (m *ParsedMetadata) AddIdentifier(value, scheme string) {
	t := identifiers.DetectType(value, scheme)
	if t == identifiers.TypeUnknown {
		return
	}
	v := strings.TrimSpace(value)
	switch t {
	case identifiers.TypeISBN10:
		v = identifiers.NormalizeISBN(v)
		if m.ISBN10 == "" {
			m.ISBN10 = v
		}
	case identifiers.TypeISBN13:
		v = identifiers.NormalizeISBN(v)
		if m.ISBN13 == "" {
			m.ISBN13 = v
		}
	case identifiers.TypeASIN, identifiers.TypeOpenLibrary:
		v = strings.ToUpper(v)
	case identifiers.TypeUUID, identifiers.TypeUnknown:
	}
	for _, id := range m.Identifiers {
		if id.Type == t && id.Value == v {
			return
		}
	}
	m.Identifiers = append(m.Identifiers, ParsedIdentifier{Type: t, Value: v})
}

// ISBN returns the ISBN-13 when known, else the ISBN-10.
func (m *ParsedMetadata) ISBN() string {
	if m.ISBN13 != "" {
		return m.ISBN13
	}
	return m.ISBN10
}

// FillFrom copies every field of other into m that m leaves empty, tagging
// each copied field with other's data source.
func (m *ParsedMetadata) FillFrom(other *ParsedMetadata) {
	if other == nil {
		return
	}
	mark := func(field string) {
		if other.DataSource == "" || other.DataSource == m.DataSource {
			return
		}
		if m.FieldDataSources == nil {
			m.FieldDataSources = map[string]string{}
		}
		m.FieldDataSources[field] = other.DataSource
	}
	if m.Title == "" && other.Title != "" {
		m.Title = other.Title
		mark("title")
	}
	if m.Subtitle == "" && other.Subtitle != "" {
		m.Subtitle = other.Subtitle
		mark("subtitle")
	}
	if len(m.Authors) == 0 && len(other.Authors) > 0 {
		m.Authors = other.Authors
		mark("authors")
	}
	if m.Series == "" && other.Series != "" {
		m.Series = other.Series
		mark("series")
	}
	if m.SeriesNumber == nil && other.SeriesNumber != nil {
		m.SeriesNumber = other.SeriesNumber
		mark("series_number")
	}
	if len(m.Categories) == 0 && len(other.Categories) > 0 {
		m.Categories = other.Categories
		mark("categories")
	}
	if len(m.Tags) == 0 && len(other.Tags) > 0 {
		m.Tags = other.Tags
		mark("tags")
	}
	if m.Description == "" && other.Description != "" {
		m.Description = other.Description
		mark("description")
	}
	if m.Publisher == "" && other.Publisher != "" {
		m.Publisher = other.Publisher
		mark("publisher")
	}
	if m.Language == "" && other.Language != "" {
		m.Language = other.Language
		mark("language")
	}
	if m.ISBN10 == "" && other.ISBN10 != "" {
		m.ISBN10 = other.ISBN10
		mark("isbn10")
	}
	if m.ISBN13 == "" && other.ISBN13 != "" {
		m.ISBN13 = other.ISBN13
		mark("isbn13")
	}
	if m.ReleaseDate == nil && other.ReleaseDate != nil {
		m.ReleaseDate = other.ReleaseDate
		mark("release_date")
	}
	if m.PageCount == nil && other.PageCount != nil {
		m.PageCount = other.PageCount
		mark("page_count")
	}
	if len(m.CoverData) == 0 && len(other.CoverData) > 0 {
		m.CoverData = other.CoverData
		m.CoverMimeType = other.CoverMimeType
		mark("cover")
	}
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006-01",
	"2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"January 2006",
}

// ParseDate reads the date formats found in book metadata, from full
// timestamps down to a bare year. It returns nil for anything else.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil || t.Year() < 1 {
			continue
		}
		t = t.UTC()
		return &t
	}
	return nil
}
