// Package lookup matches books against the external metadata sources and
// fills in what the library is missing.
package lookup

import (
	"context"
	"strings"

	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/books"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
	"github.com/shelfwatch/shelfwatch/pkg/matching"
	"github.com/shelfwatch/shelfwatch/pkg/mediafile"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/uptrace/bun"
)

const searchLimit = 10

// Result is the outcome of looking up one book.
type Result struct {
	Match      *matching.Ranked  `json:"match,omitempty"`
	Candidates []matching.Ranked `json:"candidates"`
	Filled     []string          `json:"filled"`
}

type Service struct {
	bookService *books.Service
	registry    *scrapers.Registry
	threshold   float64
}

// NewService creates a lookup service using matching.DefaultThreshold.
func NewService(db *bun.DB, registry *scrapers.Registry) *Service {
	return &Service{
		bookService: books.NewService(db),
		registry:    registry,
		threshold:   matching.DefaultThreshold,
	}
}

// QueryForBook builds the search query for an existing book.
func QueryForBook(book *models.Book) scrapers.Query {
	q := scrapers.Query{Title: book.Title, Authors: book.AuthorNames(), Limit: searchLimit}
	switch {
	case book.ISBN13 != nil:
		q.ISBN = *book.ISBN13
	case book.ISBN10 != nil:
		q.ISBN = *book.ISBN10
	}
	if book.Series != nil {
		q.Series = book.Series.Name
	}
	return q
}

// QueryForMetadata builds the search query for parsed file metadata.
func QueryForMetadata(md *mediafile.ParsedMetadata) scrapers.Query {
	q := scrapers.Query{
		Title:   md.Title,
		Authors: md.Authors,
		Series:  md.Series,
		ISBN:    md.ISBN13,
		Limit:   searchLimit,
	}
	if q.ISBN == "" {
		q.ISBN = md.ISBN10
	}
	return q
}

// Candidates asks every registered source and returns the ranked union. A
// source that fails is logged and skipped; the error is returned only when
// every source failed.
func (svc *Service) Candidates(ctx context.Context, q scrapers.Query) ([]matching.Ranked, error) {
	log := logger.FromContext(ctx)

	if svc.registry == nil {
		return nil, errcodes.Unavailable("Metadata lookup is not configured.")
	}
	sources := svc.registry.All()
	if len(sources) == 0 {
		return nil, errcodes.Unavailable("No metadata sources are configured.")
	}

	var all []scrapers.Candidate
	failed := 0
	for _, s := range sources {
		found, err := search(ctx, s, q)
		if err != nil {
			failed++
			log.Err(err).Warn("metadata source failed", logger.Data{"source": s.Source()})
			continue
		}
		all = append(all, found...)
	}
	if failed == len(sources) {
		return nil, errcodes.UpstreamError(string(sources[0].Source()))
	}
	return matching.Rank(q, all), nil
}

// search tries the ISBN first and falls back to a title search when the
// source has no record of it.
func search(ctx context.Context, s scrapers.Scraper, q scrapers.Query) ([]scrapers.Candidate, error) {
	if isbn := identifiers.NormalizeISBN(q.ISBN); isbn != "" {
		c, err := s.Lookup(ctx, isbn)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return []scrapers.Candidate{*c}, nil
		}
	}
	if strings.TrimSpace(q.Title) == "" {
		return nil, nil
	}
	titleOnly := q
	titleOnly.ISBN = ""
	return s.Search(ctx, titleOnly)
}

// BestMatch returns the top candidate for md when it clears the threshold.
func (svc *Service) BestMatch(ctx context.Context, md *mediafile.ParsedMetadata) (*matching.Ranked, error) {
	ranked, err := svc.Candidates(ctx, QueryForMetadata(md))
	if err != nil {
		return nil, err
	}
	if len(ranked) == 0 || ranked[0].Score < svc.threshold {
		return nil, nil
	}
	return &ranked[0], nil
}

// LookupBook searches for the book, picks the best candidate above the
// threshold and fills the book's empty fields from it. Fields that already
// hold a value are never overwritten.
func (svc *Service) LookupBook(ctx context.Context, bookID int) (*Result, error) {
	log := logger.FromContext(ctx)

	book, err := svc.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &bookID})
	if err != nil {
		return nil, err
	}

	q := QueryForBook(book)
	ranked, err := svc.Candidates(ctx, q)
	if err != nil {
		return nil, err
	}

	result := &Result{Candidates: ranked, Filled: []string{}}
	if result.Candidates == nil {
		result.Candidates = []matching.Ranked{}
	}
	if len(ranked) == 0 || ranked[0].Score < svc.threshold {
		log.Info("no metadata match", logger.Data{"book_id": bookID, "candidates": len(ranked)})
		return result, nil
	}

	best := ranked[0]
	result.Match = &best
	filled, err := svc.bookService.FillEmptyFields(ctx, bookID, CandidateMetadata(best.Candidate))
	if err != nil {
		return nil, err
	}
	result.Filled = filled

	log.Info("metadata lookup matched", logger.Data{
		"book_id": bookID,
		"source":  best.Candidate.Source,
		"score":   best.Score,
		"filled":  filled,
	})
	return result, nil
}

// CandidateMetadata converts a candidate into parsed metadata attributed to
// its source. Kindle results count as Amazon data.
func CandidateMetadata(c scrapers.Candidate) *mediafile.ParsedMetadata {
	source := models.DataSourceAmazon
	if c.Source == models.LocationTypeOpenLibrary {
		source = models.DataSourceOpenLibrary
	}
	return &mediafile.ParsedMetadata{
		Title:        c.Title,
		Subtitle:     c.Subtitle,
		Authors:      c.Authors,
		Series:       c.Series,
		SeriesNumber: c.Volume,
		Categories:   c.Categories,
		Description:  c.Description,
		Publisher:    c.Publisher,
		Language:     c.Language,
		ISBN10:       c.ISBN10,
		ISBN13:       c.ISBN13,
		ReleaseDate:  c.ReleaseDate,
		PageCount:    c.PageCount,
		DataSource:   source,
	}
}
