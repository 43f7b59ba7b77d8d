package books

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/authors"
	"github.com/shelfwatch/shelfwatch/pkg/categories"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/search"
	"github.com/shelfwatch/shelfwatch/pkg/series"
	"github.com/shelfwatch/shelfwatch/pkg/tags"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID     *int
	ISBN13 *string
}

type ListBooksOptions struct {
	Limit      *int
	Offset     *int
	SeriesID   *int
	AuthorID   *int
	CategoryID *int
	TagID      *int
	LocationID *int
	ReadStatus *string
	Search     *string

	includeTotal bool
}

// CreateBookOptions names the related entities to attach. They are looked up
// by name and created when missing.
type CreateBookOptions struct {
	Authors    []string
	Categories []string
	Tags       []string
	Series     string
}

// UpdateBookOptions lists the book columns to write. A non-nil slice replaces
// that relation; Series replaces the series, and "" detaches it.
type UpdateBookOptions struct {
	Columns    []string
	Authors    []string
	Categories []string
	Tags       []string
	Series     *string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateBook(ctx context.Context, book *models.Book, opts CreateBookOptions) error {
	book.Title = strings.TrimSpace(book.Title)
	if book.Title == "" {
		return errcodes.ValidationError("Book title cannot be empty.")
	}
	if err := normalizeISBNs(book); err != nil {
		return err
	}
	if book.SortTitle == "" {
		book.SortTitle = cleanup.SortTitle(book.Title)
	}
	if book.ReadStatus == "" {
		book.ReadStatus = models.ReadStatusUnread
	}
	if book.MetadataSource == "" {
		book.MetadataSource = models.DataSourceManual
	}

	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if book.ISBN13 != nil {
			existing, err := retrieveBook(ctx, tx, RetrieveBookOptions{ISBN13: book.ISBN13})
			if err == nil {
				return errcodes.Conflict(fmt.Sprintf("Book %d already has ISBN %s.", existing.ID, *book.ISBN13))
			}
			if !errcodes.IsNotFound(err) {
				return err
			}
		}

		dup, err := duplicateOf(ctx, tx, book.Title, opts.Authors)
		if err != nil {
			return err
		}
		if dup != nil {
			return errcodes.Conflict(fmt.Sprintf("%q is already in the library as book %d.", book.Title, dup.ID))
		}

		if name := strings.TrimSpace(opts.Series); name != "" {
			s, err := series.NewService(tx).FindOrCreateSeries(ctx, name)
			if err != nil {
				return err
			}
			book.SeriesID = &s.ID
		}

		_, err = tx.
			NewInsert().
			Model(book).
			Returning("*").
			Exec(ctx)
		if database.IsUniqueViolation(err) {
			return errcodes.Conflict("A book with this ISBN already exists.")
		}
		if err != nil {
			return errors.WithStack(err)
		}

		if err := setAuthors(ctx, tx, book.ID, opts.Authors); err != nil {
			return err
		}
		if err := setCategories(ctx, tx, book.ID, opts.Categories); err != nil {
			return err
		}
		if err := setTags(ctx, tx, book.ID, opts.Tags); err != nil {
			return err
		}

		return search.NewService(tx).ReindexBooks(ctx, []int{book.ID})
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	return retrieveBook(ctx, svc.db, opts)
}

func retrieveBook(ctx context.Context, db bun.IDB, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := withRelations(db.NewSelect().Model(book))

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.ISBN13 != nil {
		q = q.Where("b.isbn13 = ?", *opts.ISBN13)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func withRelations(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		Relation("Series").
		Relation("Location").
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("ba.sort_order ASC")
		}).
		Relation("Authors.Author").
		Relation("Categories").
		Relation("Categories.Category").
		Relation("Tags").
		Relation("Tags.Tag").
		Relation("Files", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("f.id ASC")
		})
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := withRelations(svc.db.NewSelect().Model(&books)).
		Order("b.sort_title ASC", "b.id ASC")

	if opts.SeriesID != nil {
		q = q.Where("b.series_id = ?", *opts.SeriesID)
	}
	if opts.LocationID != nil {
		q = q.Where("b.location_id = ?", *opts.LocationID)
	}
	if opts.ReadStatus != nil {
		q = q.Where("b.read_status = ?", *opts.ReadStatus)
	}
	if opts.AuthorID != nil {
		q = q.Where("b.id IN (SELECT book_id FROM book_authors WHERE author_id = ?)", *opts.AuthorID)
	}
	if opts.CategoryID != nil {
		// A parent category also matches books filed under its children.
		q = q.Where(`b.id IN (
			SELECT bc.book_id FROM book_categories bc
			INNER JOIN categories c ON c.id = bc.category_id
			WHERE c.id = ? OR c.parent_id = ?)`, *opts.CategoryID, *opts.CategoryID)
	}
	if opts.TagID != nil {
		q = q.Where("b.id IN (SELECT book_id FROM book_tags WHERE tag_id = ?)", *opts.TagID)
	}
	if opts.Search != nil {
		if ftsQuery := search.BuildPrefixQuery(*opts.Search); ftsQuery != "" {
			q = q.Where("b.id IN (?)", search.MatchingBookIDs(svc.db, ftsQuery))
		}
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 && opts.Authors == nil && opts.Categories == nil && opts.Tags == nil && opts.Series == nil {
		return nil
	}

	columns := append([]string{}, opts.Columns...)
	for _, col := range opts.Columns {
		switch col {
		case "title":
			book.Title = strings.TrimSpace(book.Title)
			if book.Title == "" {
				return errcodes.ValidationError("Book title cannot be empty.")
			}
			book.SortTitle = cleanup.SortTitle(book.Title)
			columns = append(columns, "sort_title")
		case "isbn10", "isbn13":
			if err := normalizeISBNs(book); err != nil {
				return err
			}
		}
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if opts.Series != nil {
			book.SeriesID = nil
			if name := strings.TrimSpace(*opts.Series); name != "" {
				s, err := series.NewService(tx).FindOrCreateSeries(ctx, name)
				if err != nil {
					return err
				}
				book.SeriesID = &s.ID
			}
			columns = append(columns, "series_id")
		}

		book.UpdatedAt = time.Now()
		columns = append(columns, "updated_at")

		res, err := tx.
			NewUpdate().
			Model(book).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if database.IsUniqueViolation(err) {
			return errcodes.Conflict("A book with this ISBN already exists.")
		}
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Book")
		}

		if opts.Authors != nil {
			if err := setAuthors(ctx, tx, book.ID, opts.Authors); err != nil {
				return err
			}
		}
		if opts.Categories != nil {
			if err := setCategories(ctx, tx, book.ID, opts.Categories); err != nil {
				return err
			}
		}
		if opts.Tags != nil {
			if err := setTags(ctx, tx, book.ID, opts.Tags); err != nil {
				return err
			}
		}

		return search.NewService(tx).ReindexBooks(ctx, []int{book.ID})
	})
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// DeleteBook removes the book and its links. The returned book carries its
// files so the caller can remove them from disk.
func (svc *Service) DeleteBook(ctx context.Context, id int) (*models.Book, error) {
	book, err := svc.RetrieveBook(ctx, RetrieveBookOptions{ID: &id})
	if err != nil {
		return nil, err
	}

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.Book)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		return search.NewService(tx).DeleteFromBookIndex(ctx, id)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return book, nil
}

// DuplicateOf returns the book that has the same title (case-insensitive) and
// the same primary author, or nil. A book without authors only duplicates
// another book without authors.
func (svc *Service) DuplicateOf(ctx context.Context, title string, authorNames []string) (*models.Book, error) {
	return duplicateOf(ctx, svc.db, title, authorNames)
}

func duplicateOf(ctx context.Context, db bun.IDB, title string, authorNames []string) (*models.Book, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, nil
	}

	primary := ""
	for _, name := range authorNames {
		if name = strings.TrimSpace(name); name != "" {
			primary = name
			break
		}
	}

	book := &models.Book{}
	q := db.NewSelect().
		Model(book).
		Where("b.title = ? COLLATE NOCASE", title).
		Order("b.id ASC").
		Limit(1)

	if primary == "" {
		q = q.Where("NOT EXISTS (SELECT 1 FROM book_authors ba WHERE ba.book_id = b.id)")
	} else {
		q = q.Where(`EXISTS (
			SELECT 1 FROM book_authors ba
			INNER JOIN authors a ON a.id = ba.author_id
			WHERE ba.book_id = b.id
			AND ba.sort_order = (SELECT MIN(sort_order) FROM book_authors WHERE book_id = b.id)
			AND a.name = ? COLLATE NOCASE)`, primary)
	}

	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return book, nil
}

// AddAuthors appends authors after the book's existing ones, skipping any it
// already has.
func (svc *Service) AddAuthors(ctx context.Context, bookID int, names []string) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := requireBook(ctx, tx, bookID); err != nil {
			return err
		}

		var maxOrder int
		err := tx.NewSelect().
			Model((*models.BookAuthor)(nil)).
			ColumnExpr("COALESCE(MAX(sort_order), 0)").
			Where("book_id = ?", bookID).
			Scan(ctx, &maxOrder)
		if err != nil {
			return errors.WithStack(err)
		}

		authorService := authors.NewService(tx)
		for _, name := range names {
			if strings.TrimSpace(name) == "" {
				continue
			}
			author, err := authorService.FindOrCreateAuthor(ctx, name)
			if err != nil {
				return err
			}
			exists, err := tx.NewSelect().
				Model((*models.BookAuthor)(nil)).
				Where("book_id = ? AND author_id = ?", bookID, author.ID).
				Exists(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if exists {
				continue
			}
			maxOrder++
			_, err = tx.NewInsert().
				Model(&models.BookAuthor{BookID: bookID, AuthorID: author.ID, SortOrder: maxOrder}).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		return search.NewService(tx).ReindexBooks(ctx, []int{bookID})
	})
}

// SetTags replaces the book's tags.
func (svc *Service) SetTags(ctx context.Context, bookID int, names []string) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := requireBook(ctx, tx, bookID); err != nil {
			return err
		}
		return setTags(ctx, tx, bookID, names)
	})
}

// SetCategories replaces the book's categories.
func (svc *Service) SetCategories(ctx context.Context, bookID int, names []string) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := requireBook(ctx, tx, bookID); err != nil {
			return err
		}
		return setCategories(ctx, tx, bookID, names)
	})
}

func requireBook(ctx context.Context, tx bun.Tx, bookID int) error {
	exists, err := tx.NewSelect().Model((*models.Book)(nil)).Where("id = ?", bookID).Exists(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if !exists {
		return errcodes.NotFound("Book")
	}
	return nil
}

func setAuthors(ctx context.Context, tx bun.Tx, bookID int, names []string) error {
	_, err := tx.NewDelete().
		Model((*models.BookAuthor)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	authorService := authors.NewService(tx)
	seen := map[int]bool{}
	order := 0
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		author, err := authorService.FindOrCreateAuthor(ctx, name)
		if err != nil {
			return err
		}
		if seen[author.ID] {
			continue
		}
		seen[author.ID] = true
		order++
		_, err = tx.NewInsert().
			Model(&models.BookAuthor{BookID: bookID, AuthorID: author.ID, SortOrder: order}).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func setCategories(ctx context.Context, tx bun.Tx, bookID int, names []string) error {
	_, err := tx.NewDelete().
		Model((*models.BookCategory)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	categoryService := categories.NewService(tx)
	seen := map[int]bool{}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		category, err := categoryService.FindOrCreateCategory(ctx, name)
		if err != nil {
			return err
		}
		if seen[category.ID] {
			continue
		}
		seen[category.ID] = true
		_, err = tx.NewInsert().
			Model(&models.BookCategory{BookID: bookID, CategoryID: category.ID}).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func setTags(ctx context.Context, tx bun.Tx, bookID int, names []string) error {
	_, err := tx.NewDelete().
		Model((*models.BookTag)(nil)).
		Where("book_id = ?", bookID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	tagService := tags.NewService(tx)
	seen := map[int]bool{}
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		tag, err := tagService.FindOrCreateTag(ctx, name)
		if err != nil {
			return err
		}
		if seen[tag.ID] {
			continue
		}
		seen[tag.ID] = true
		_, err = tx.NewInsert().
			Model(&models.BookTag{BookID: bookID, TagID: tag.ID}).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// normalizeISBNs strips separators and rejects values that fail the checksum.
// Empty strings become nil.
func normalizeISBNs(book *models.Book) error {
	if book.ISBN13 != nil {
		v := identifiers.NormalizeISBN(*book.ISBN13)
		switch {
		case v == "":
			book.ISBN13 = nil
		case !identifiers.ValidateISBN13(v):
			return errcodes.ValidationError(fmt.Sprintf("%q is not a valid ISBN-13.", *book.ISBN13))
		default:
			book.ISBN13 = &v
		}
	}
	if book.ISBN10 != nil {
		v := identifiers.NormalizeISBN(*book.ISBN10)
		switch {
		case v == "":
			book.ISBN10 = nil
		case !identifiers.ValidateISBN10(v):
			return errcodes.ValidationError(fmt.Sprintf("%q is not a valid ISBN-10.", *book.ISBN10))
		default:
			book.ISBN10 = &v
		}
	}
	return nil
}
