package books

import (
	"context"
	"strings"

	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

// BookFromMetadata builds an unsaved book and its relation options from
// parsed metadata.
func BookFromMetadata(md *mediafile.ParsedMetadata) (*models.Book, CreateBookOptions) {
	book := &models.Book{
		Title:          md.Title,
		Subtitle:       optional(md.Subtitle),
		Description:    optional(md.Description),
		Publisher:      optional(md.Publisher),
		Language:       optional(md.Language),
		ISBN10:         optional(md.ISBN10),
		ISBN13:         optional(md.ISBN13),
		PageCount:      md.PageCount,
		ReleaseDate:    md.ReleaseDate,
		SeriesNumber:   md.SeriesNumber,
		MetadataSource: md.DataSource,
	}
	if md.ReadStatus != "" {
		book.ReadStatus = md.ReadStatus
	}

	opts := CreateBookOptions{
		Authors:    md.Authors,
		Categories: md.Categories,
		Tags:       md.Tags,
		Series:     md.Series,
	}
	return book, opts
}

// FillEmptyFields copies metadata into the fields of the book that are still
// empty and returns the names of the fields it filled. Existing values are
// never replaced. When anything changes, metadata_source becomes md's source
// if that source outranks the book's current one.
func (svc *Service) FillEmptyFields(ctx context.Context, bookID int, md *mediafile.ParsedMetadata) ([]string, error) {
	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, err
	}

	opts := UpdateBookOptions{Columns: []string{}}
	filled := []string{}

	fillString := func(column string, dst **string, value string) {
		value = strings.TrimSpace(value)
		if value == "" || (*dst != nil && strings.TrimSpace(**dst) != "") {
			return
		}
		*dst = &value
		opts.Columns = append(opts.Columns, column)
		filled = append(filled, column)
	}

	fillString("subtitle", &book.Subtitle, md.Subtitle)
	fillString("description", &book.Description, md.Description)
	fillString("publisher", &book.Publisher, md.Publisher)
	fillString("language", &book.Language, md.Language)
	fillString("isbn10", &book.ISBN10, md.ISBN10)

	if book.ISBN13 == nil && md.ISBN13 != "" {
		// Another book may already own this ISBN; leave it off rather than fail.
		isbn := md.ISBN13
		if _, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ISBN13: &isbn}); err != nil {
			fillString("isbn13", &book.ISBN13, md.ISBN13)
		}
	}
	if book.PageCount == nil && md.PageCount != nil && *md.PageCount > 0 {
		book.PageCount = md.PageCount
		opts.Columns = append(opts.Columns, "page_count")
		filled = append(filled, "page_count")
	}
	if book.ReleaseDate == nil && md.ReleaseDate != nil {
		book.ReleaseDate = md.ReleaseDate
		opts.Columns = append(opts.Columns, "release_date")
		filled = append(filled, "release_date")
	}
	if book.SeriesID == nil && strings.TrimSpace(md.Series) != "" {
		name := md.Series
		opts.Series = &name
		filled = append(filled, "series")
	}
	if book.SeriesNumber == nil && md.SeriesNumber != nil {
		book.SeriesNumber = md.SeriesNumber
		opts.Columns = append(opts.Columns, "series_number")
		filled = append(filled, "series_number")
	}
	if len(book.Authors) == 0 && len(md.Authors) > 0 {
		opts.Authors = md.Authors
		filled = append(filled, "authors")
	}
	if len(book.Categories) == 0 && len(md.Categories) > 0 {
		opts.Categories = md.Categories
		filled = append(filled, "categories")
	}
	if len(book.Tags) == 0 && len(md.Tags) > 0 {
		opts.Tags = md.Tags
		filled = append(filled, "tags")
	}

	if len(filled) == 0 {
		return filled, nil
	}

	if models.Outranks(md.DataSource, book.MetadataSource) {
		book.MetadataSource = md.DataSource
		opts.Columns = append(opts.Columns, "metadata_source")
	}

	if err := svc.UpdateBook(ctx, book, opts); err != nil {
		return nil, err
	}
	return filled, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
