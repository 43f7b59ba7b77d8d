package search

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/uptrace/bun"
)

const globalSearchLimit = 5

type Service struct {
	db bun.IDB
}

// NewService accepts either a *bun.DB or a bun.Tx so the index can be kept in
// step with writes made inside a transaction.
func NewService(db bun.IDB) *Service {
	return &Service{db}
}

// GlobalSearch searches books, series and authors. Returns up to 5 results per
// resource type for popover display.
func (svc *Service) GlobalSearch(ctx context.Context, query string) (*GlobalSearchResponse, error) {
	resp := &GlobalSearchResponse{
		Books:   []BookSearchResult{},
		Series:  []SeriesSearchResult{},
		Authors: []AuthorSearchResult{},
	}
	ftsQuery := BuildPrefixQuery(query)
	if ftsQuery == "" {
		return resp, nil
	}

	books, err := svc.searchBooksInternal(ctx, query, ftsQuery, globalSearchLimit, 0)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	resp.Books = books

	err = svc.db.NewSelect().
		TableExpr("series AS s").
		ColumnExpr("s.id, s.name").
		ColumnExpr("(SELECT COUNT(*) FROM books b WHERE b.series_id = s.id) AS book_count").
		Where("s.name LIKE ? ESCAPE '\\'", likePattern(query)).
		OrderExpr("s.name COLLATE NOCASE ASC").
		Limit(globalSearchLimit).
		Scan(ctx, &resp.Series)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = svc.db.NewSelect().
		TableExpr("authors AS a").
		ColumnExpr("a.id, a.name, a.sort_name").
		Where("a.name LIKE ? ESCAPE '\\'", likePattern(query)).
		OrderExpr("a.sort_name COLLATE NOCASE ASC").
		Limit(globalSearchLimit).
		Scan(ctx, &resp.Authors)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return resp, nil
}

// SearchBooks returns one page of matching books and the total match count.
func (svc *Service) SearchBooks(ctx context.Context, query string, limit, offset int) ([]BookSearchResult, int, error) {
	ftsQuery := BuildPrefixQuery(query)
	if ftsQuery == "" {
		return []BookSearchResult{}, 0, nil
	}

	books, err := svc.searchBooksInternal(ctx, query, ftsQuery, limit, offset)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	total, err := svc.db.NewSelect().
		TableExpr("books_fts").
		Where("books_fts MATCH ?", ftsQuery).
		Count(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

func (svc *Service) searchBooksInternal(ctx context.Context, rawQuery, ftsQuery string, limit, offset int) ([]BookSearchResult, error) {
	results := []BookSearchResult{}
	seenIDs := make(map[int]bool)

	// Exact ISBN hits go first, on the first page only.
	if offset == 0 {
		if forms := identifiers.Equivalents(rawQuery); len(forms) > 0 {
			var byISBN []BookSearchResult
			err := svc.db.NewSelect().
				TableExpr("books AS b").
				ColumnExpr("b.id, b.title, b.subtitle").
				Where("b.isbn10 IN (?) OR b.isbn13 IN (?)", bun.In(forms), bun.In(forms)).
				Limit(limit).
				Scan(ctx, &byISBN)
			if err != nil {
				return nil, errors.WithStack(err)
			}
			for _, r := range byISBN {
				results = append(results, r)
				seenIDs[r.ID] = true
			}
		}
	}

	remaining := limit - len(results)
	if remaining <= 0 {
		return results, nil
	}

	ftsResults := []BookSearchResult{}
	err := svc.db.NewSelect().
		TableExpr("books_fts").
		ColumnExpr("CAST(book_id AS INTEGER) AS id, title, subtitle, authors, series_name").
		Where("books_fts MATCH ?", ftsQuery).
		Order("rank").
		Limit(remaining+len(seenIDs)).
		Offset(offset).
		Scan(ctx, &ftsResults)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, r := range ftsResults {
		if !seenIDs[r.ID] && len(results) < limit {
			results = append(results, r)
			seenIDs[r.ID] = true
		}
	}

	return results, nil
}

// MatchingBookIDs returns the subquery used by list endpoints to restrict books
// to a full-text match.
func MatchingBookIDs(db bun.IDB, ftsQuery string) *bun.SelectQuery {
	return db.NewSelect().
		TableExpr("books_fts").
		ColumnExpr("book_id").
		Where("books_fts MATCH ?", ftsQuery)
}

// IndexBook replaces the index row for book. Authors and Series should be
// loaded.
func (svc *Service) IndexBook(ctx context.Context, book *models.Book) error {
	err := svc.DeleteFromBookIndex(ctx, book.ID)
	if err != nil {
		return errors.WithStack(err)
	}

	subtitle := ""
	if book.Subtitle != nil {
		subtitle = *book.Subtitle
	}
	seriesName := ""
	if book.Series != nil {
		seriesName = book.Series.Name
	}

	_, err = svc.db.ExecContext(ctx,
		`INSERT INTO books_fts (book_id, title, subtitle, authors, series_name) VALUES (?, ?, ?, ?, ?)`,
		book.ID,
		book.Title,
		subtitle,
		strings.Join(book.AuthorNames(), " "),
		seriesName,
	)
	return errors.WithStack(err)
}

func (svc *Service) DeleteFromBookIndex(ctx context.Context, bookID int) error {
	_, err := svc.db.ExecContext(ctx, `DELETE FROM books_fts WHERE book_id = ?`, bookID)
	return errors.WithStack(err)
}

// RebuildBookIndex clears the index and re-indexes every book.
func (svc *Service) RebuildBookIndex(ctx context.Context) error {
	_, err := svc.db.ExecContext(ctx, `DELETE FROM books_fts`)
	if err != nil {
		return errors.WithStack(err)
	}

	books, err := svc.loadBooksForIndex(ctx, nil)
	if err != nil {
		return err
	}
	for _, book := range books {
		if err := svc.IndexBook(ctx, book); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// ReindexBooks refreshes the index rows of the given books, e.g. after an
// author or series they reference was renamed.
func (svc *Service) ReindexBooks(ctx context.Context, bookIDs []int) error {
	if len(bookIDs) == 0 {
		return nil
	}

	books, err := svc.loadBooksForIndex(ctx, bookIDs)
	if err != nil {
		return err
	}
	for _, book := range books {
		if err := svc.IndexBook(ctx, book); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (svc *Service) loadBooksForIndex(ctx context.Context, bookIDs []int) ([]*models.Book, error) {
	var books []*models.Book
	q := svc.db.NewSelect().
		Model(&books).
		Relation("Series").
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("ba.sort_order ASC")
		}).
		Relation("Authors.Author")
	if bookIDs != nil {
		q = q.Where("b.id IN (?)", bun.In(bookIDs))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return books, nil
}

func likePattern(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
