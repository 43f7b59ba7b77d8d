package authors

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveAuthorOptions struct {
	ID   *int
	Name *string
}

type ListAuthorsOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateAuthorOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

// NewService accepts a *bun.DB or a bun.Tx.
func NewService(db bun.IDB) *Service {
	return &Service{db}
}

func (svc *Service) CreateAuthor(ctx context.Context, author *models.Author) error {
	author.Name = strings.TrimSpace(author.Name)
	if author.Name == "" {
		return errcodes.ValidationError("Author name cannot be empty.")
	}
	if author.SortName == "" {
		author.SortName = cleanup.SortName(author.Name)
	}

	_, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{Name: &author.Name})
	if err == nil {
		return errcodes.Conflict(fmt.Sprintf("An author named %q already exists.", author.Name))
	}
	if !errcodes.IsNotFound(err) {
		return errors.WithStack(err)
	}

	now := time.Now()
	if author.CreatedAt.IsZero() {
		author.CreatedAt = now
	}
	author.UpdatedAt = author.CreatedAt

	_, err = svc.db.
		NewInsert().
		Model(author).
		Returning("*").
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.Conflict(fmt.Sprintf("An author named %q already exists.", author.Name))
	}
	return errors.WithStack(err)
}

func (svc *Service) RetrieveAuthor(ctx context.Context, opts RetrieveAuthorOptions) (*models.Author, error) {
	author := &models.Author{}

	q := svc.db.
		NewSelect().
		Model(author).
		ColumnExpr("a.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_authors ba WHERE ba.author_id = a.id) AS book_count")

	if opts.ID != nil {
		q = q.Where("a.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("a.name = ? COLLATE NOCASE", strings.TrimSpace(*opts.Name))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

// FindOrCreateAuthor returns the author with this name (case-insensitive),
// creating it when missing. A concurrent insert of the same name is resolved
// by reading the winner's row.
func (svc *Service) FindOrCreateAuthor(ctx context.Context, name string) (*models.Author, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError("Author name cannot be empty.")
	}

	author, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{Name: &name})
	if err == nil {
		return author, nil
	}
	if !errcodes.IsNotFound(err) {
		return nil, err
	}

	author = &models.Author{Name: name}
	err = svc.CreateAuthor(ctx, author)
	if errcodes.IsConflict(err) {
		return svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{Name: &name})
	}
	if err != nil {
		return nil, err
	}
	return author, nil
}

func (svc *Service) ListAuthors(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, error) {
	a, _, err := svc.listAuthorsWithTotal(ctx, opts)
	return a, errors.WithStack(err)
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	opts.includeTotal = true
	return svc.listAuthorsWithTotal(ctx, opts)
}

func (svc *Service) listAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	authors := []*models.Author{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&authors).
		ColumnExpr("a.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_authors ba WHERE ba.author_id = a.id) AS book_count").
		OrderExpr("a.sort_name COLLATE NOCASE ASC")

	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		q = q.Where("a.name LIKE ? ESCAPE '\\'", likePattern(*opts.Search))
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

	return authors, total, nil
}

func (svc *Service) UpdateAuthor(ctx context.Context, author *models.Author, opts UpdateAuthorOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, col := range opts.Columns {
		if col != "name" {
			continue
		}
		existing, err := svc.RetrieveAuthor(ctx, RetrieveAuthorOptions{Name: &author.Name})
		if err == nil && existing.ID != author.ID {
			return errcodes.Conflict(fmt.Sprintf("An author named %q already exists.", author.Name))
		}
		if err != nil && !errcodes.IsNotFound(err) {
			return errors.WithStack(err)
		}
	}

	author.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(author).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Author")
		}
		if database.IsUniqueViolation(err) {
			return errcodes.Conflict(fmt.Sprintf("An author named %q already exists.", author.Name))
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteAuthor removes the author. Book links go with it.
func (svc *Service) DeleteAuthor(ctx context.Context, id int) error {
	res, err := svc.db.NewDelete().
		Model((*models.Author)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Author")
	}
	return nil
}

// GetBooks returns every book credited to the author, ordered by title.
func (svc *Service) GetBooks(ctx context.Context, authorID int) ([]*models.Book, error) {
	books := []*models.Book{}

	err := svc.db.NewSelect().
		Model(&books).
		Join("INNER JOIN book_authors AS ba ON ba.book_id = b.id").
		Where("ba.author_id = ?", authorID).
		Order("b.sort_title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

func likePattern(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
