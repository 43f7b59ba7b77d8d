package tags

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

type RetrieveTagOptions struct {
	ID   *int
	Name *string
}

type ListTagsOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateTagOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

func (svc *Service) CreateTag(ctx context.Context, tag *models.Tag) error {
	tag.Name = strings.TrimSpace(tag.Name)
	if tag.Name == "" {
		return errcodes.ValidationError("Tag name cannot be empty.")
	}

	_, err := svc.RetrieveTag(ctx, RetrieveTagOptions{Name: &tag.Name})
	if err == nil {
		return errcodes.Conflict(fmt.Sprintf("A tag named %q already exists.", tag.Name))
	}
	if !errcodes.IsNotFound(err) {
		return errors.WithStack(err)
	}

	now := time.Now()
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = now
	}
	tag.UpdatedAt = tag.CreatedAt

	_, err = svc.db.
		NewInsert().
		Model(tag).
		Returning("*").
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.Conflict(fmt.Sprintf("A tag named %q already exists.", tag.Name))
	}
	return errors.WithStack(err)
}

func (svc *Service) RetrieveTag(ctx context.Context, opts RetrieveTagOptions) (*models.Tag, error) {
	tag := &models.Tag{}

	q := svc.db.
		NewSelect().
		Model(tag).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_tags bt WHERE bt.tag_id = t.id) AS book_count")

	if opts.ID != nil {
		q = q.Where("t.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		// Case-insensitive match
		q = q.Where("t.name = ? COLLATE NOCASE", strings.TrimSpace(*opts.Name))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Tag")
		}
		return nil, errors.WithStack(err)
	}

	return tag, nil
}

// FindOrCreateTag finds an existing tag or creates a new one (case-insensitive match).
func (svc *Service) FindOrCreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError("Tag name cannot be empty.")
	}

	tag, err := svc.RetrieveTag(ctx, RetrieveTagOptions{Name: &name})
	if err == nil {
		return tag, nil
	}
	if !errcodes.IsNotFound(err) {
		return nil, err
	}

	tag = &models.Tag{Name: name}
	err = svc.CreateTag(ctx, tag)
	if errcodes.IsConflict(err) {
		// Lost a race with another writer.
		return svc.RetrieveTag(ctx, RetrieveTagOptions{Name: &name})
	}
	if err != nil {
		return nil, err
	}
	return tag, nil
}

func (svc *Service) ListTags(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, error) {
	t, _, err := svc.listTagsWithTotal(ctx, opts)
	return t, errors.WithStack(err)
}

func (svc *Service) ListTagsWithTotal(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, int, error) {
	opts.includeTotal = true
	return svc.listTagsWithTotal(ctx, opts)
}

func (svc *Service) listTagsWithTotal(ctx context.Context, opts ListTagsOptions) ([]*models.Tag, int, error) {
	tags := []*models.Tag{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&tags).
		ColumnExpr("t.*").
		ColumnExpr("(SELECT COUNT(*) FROM book_tags bt WHERE bt.tag_id = t.id) AS book_count").
		OrderExpr("t.name COLLATE NOCASE ASC")

	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		q = q.Where("t.name LIKE ? ESCAPE '\\'", prefixPattern(*opts.Search))
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

	return tags, total, nil
}

func (svc *Service) UpdateTag(ctx context.Context, tag *models.Tag, opts UpdateTagOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	now := time.Now()
	tag.UpdatedAt = now
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(tag).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Tag")
		}
		if database.IsUniqueViolation(err) {
			return errcodes.Conflict(fmt.Sprintf("A tag named %q already exists.", tag.Name))
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteTag deletes a tag and all book associations.
func (svc *Service) DeleteTag(ctx context.Context, tagID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*models.BookTag)(nil)).
			Where("tag_id = ?", tagID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Tag)(nil)).
			Where("id = ?", tagID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Tag")
		}
		return nil
	})
}

// GetBooks returns all books with this tag.
func (svc *Service) GetBooks(ctx context.Context, tagID int) ([]*models.Book, error) {
	books := []*models.Book{}

	err := svc.db.NewSelect().
		Model(&books).
		Join("INNER JOIN book_tags bt ON bt.book_id = b.id").
		Where("bt.tag_id = ?", tagID).
		Order("b.sort_title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

// MergeTags merges sourceTag into targetTag (moves all associations, deletes source).
func (svc *Service) MergeTags(ctx context.Context, targetID, sourceID int) error {
	if targetID == sourceID {
		return errcodes.ValidationError("A tag cannot be merged into itself.")
	}

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, id := range []int{targetID, sourceID} {
			exists, err := tx.NewSelect().Model((*models.Tag)(nil)).Where("id = ?", id).Exists(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if !exists {
				return errcodes.NotFound("Tag")
			}
		}

		// Skip books that already carry the target to avoid unique constraint violations.
		_, err := tx.NewRaw(`
			UPDATE book_tags
			SET tag_id = ?
			WHERE tag_id = ?
			AND book_id NOT IN (SELECT book_id FROM book_tags WHERE tag_id = ?)
		`, targetID, sourceID, targetID).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		// Remaining source rows are duplicates.
		_, err = tx.NewDelete().
			Model((*models.BookTag)(nil)).
			Where("tag_id = ?", sourceID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Tag)(nil)).
			Where("id = ?", sourceID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// CleanupOrphanedTags deletes tags with no book associations.
func (svc *Service) CleanupOrphanedTags(ctx context.Context) (int, error) {
	result, err := svc.db.NewDelete().
		Model((*models.Tag)(nil)).
		Where("id NOT IN (SELECT DISTINCT tag_id FROM book_tags)").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// prefixPattern builds a LIKE pattern for typeahead search.
func prefixPattern(input string) string {
	const maxQueryLength = 100

	input = strings.TrimSpace(input)
	if len(input) > maxQueryLength {
		input = input[:maxQueryLength]
	}
	input = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(input)
	return input + "%"
}
