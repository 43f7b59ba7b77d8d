package categories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveCategoryOptions struct {
	ID   *int
	Name *string
}

type ListCategoriesOptions struct {
	Limit    *int
	Offset   *int
	Search   *string
	ParentID *int
	TopLevel bool

	includeTotal bool
}

type UpdateCategoryOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

func (svc *Service) CreateCategory(ctx context.Context, category *models.Category) error {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return errcodes.ValidationError("Category name cannot be empty.")
	}

	_, err := svc.RetrieveCategory(ctx, RetrieveCategoryOptions{Name: &category.Name})
	if err == nil {
		return errcodes.Conflict(fmt.Sprintf("A category named %q already exists.", category.Name))
	}
	if !errcodes.IsNotFound(err) {
		return errors.WithStack(err)
	}

	if err := svc.checkParent(ctx, category); err != nil {
		return err
	}

	now := time.Now()
	if category.CreatedAt.IsZero() {
		category.CreatedAt = now
	}
	category.UpdatedAt = category.CreatedAt

	_, err = svc.db.
		NewInsert().
		Model(category).
		Returning("*").
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.Conflict(fmt.Sprintf("A category named %q already exists.", category.Name))
	}
	return errors.WithStack(err)
}

// checkParent enforces a single level of nesting: the parent must exist, must
// be top level, and a category with children can't become a child itself.
func (svc *Service) checkParent(ctx context.Context, category *models.Category) error {
	if category.ParentID == nil {
		return nil
	}
	if category.ID != 0 && *category.ParentID == category.ID {
		return errcodes.ValidationError("A category cannot be its own parent.")
	}

	parent, err := svc.RetrieveCategory(ctx, RetrieveCategoryOptions{ID: category.ParentID})
	if errcodes.IsNotFound(err) {
		return errcodes.ValidationError("Parent category does not exist.")
	}
	if err != nil {
		return err
	}
	if parent.ParentID != nil {
		return errcodes.ValidationError("Categories can only be nested one level deep.")
	}

	if category.ID != 0 {
		hasChildren, err := svc.db.NewSelect().
			Model((*models.Category)(nil)).
			Where("parent_id = ?", category.ID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if hasChildren {
			return errcodes.ValidationError("A category with subcategories cannot have a parent.")
		}
	}
	return nil
}

func (svc *Service) RetrieveCategory(ctx context.Context, opts RetrieveCategoryOptions) (*models.Category, error) {
	category := &models.Category{}

	q := svc.db.
		NewSelect().
		Model(category).
		ColumnExpr("c.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_categories bc WHERE bc.category_id = c.id) AS book_count").
		Relation("Parent")

	if opts.ID != nil {
		q = q.Where("c.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("c.name = ? COLLATE NOCASE", strings.TrimSpace(*opts.Name))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Category")
		}
		return nil, errors.WithStack(err)
	}

	return category, nil
}

// FindOrCreateCategory finds a category by name (case-insensitive) or creates
// it at the top level.
func (svc *Service) FindOrCreateCategory(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError("Category name cannot be empty.")
	}

	category, err := svc.RetrieveCategory(ctx, RetrieveCategoryOptions{Name: &name})
	if err == nil {
		return category, nil
	}
	if !errcodes.IsNotFound(err) {
		return nil, err
	}

	category = &models.Category{Name: name}
	err = svc.CreateCategory(ctx, category)
	if errcodes.IsConflict(err) {
		return svc.RetrieveCategory(ctx, RetrieveCategoryOptions{Name: &name})
	}
	if err != nil {
		return nil, err
	}
	return category, nil
}

func (svc *Service) ListCategories(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, error) {
	c, _, err := svc.listCategoriesWithTotal(ctx, opts)
	return c, errors.WithStack(err)
}

func (svc *Service) ListCategoriesWithTotal(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, int, error) {
	opts.includeTotal = true
	return svc.listCategoriesWithTotal(ctx, opts)
}

func (svc *Service) listCategoriesWithTotal(ctx context.Context, opts ListCategoriesOptions) ([]*models.Category, int, error) {
	categories := []*models.Category{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&categories).
		ColumnExpr("c.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_categories bc WHERE bc.category_id = c.id) AS book_count").
		OrderExpr("c.name COLLATE NOCASE ASC")

	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		q = q.Where("c.name LIKE ? ESCAPE '\\'", likePattern(*opts.Search))
	}
	if opts.ParentID != nil {
		q = q.Where("c.parent_id = ?", *opts.ParentID)
	}
	if opts.TopLevel {
		q = q.Where("c.parent_id IS NULL")
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

	return categories, total, nil
}

func (svc *Service) UpdateCategory(ctx context.Context, category *models.Category, opts UpdateCategoryOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, col := range opts.Columns {
		switch col {
		case "name":
			existing, err := svc.RetrieveCategory(ctx, RetrieveCategoryOptions{Name: &category.Name})
			if err == nil && existing.ID != category.ID {
				return errcodes.Conflict(fmt.Sprintf("A category named %q already exists.", category.Name))
			}
			if err != nil && !errcodes.IsNotFound(err) {
				return errors.WithStack(err)
			}
		case "parent_id":
			if err := svc.checkParent(ctx, category); err != nil {
				return err
			}
		}
	}

	category.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(category).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Category")
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteCategory deletes a category. Children move to the top level and book
// links are removed.
func (svc *Service) DeleteCategory(ctx context.Context, categoryID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*models.Category)(nil)).
			Set("parent_id = NULL").
			Where("parent_id = ?", categoryID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.BookCategory)(nil)).
			Where("category_id = ?", categoryID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Category)(nil)).
			Where("id = ?", categoryID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Category")
		}
		return nil
	})
}

// GetBooks returns all books in this category.
func (svc *Service) GetBooks(ctx context.Context, categoryID int) ([]*models.Book, error) {
	books := []*models.Book{}

	err := svc.db.NewSelect().
		Model(&books).
		Join("INNER JOIN book_categories bc ON bc.book_id = b.id").
		Where("bc.category_id = ?", categoryID).
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
