package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

type RetrieveFileOptions struct {
	ID     *int
	SHA256 *string
}

func (svc *Service) CreateFile(ctx context.Context, file *models.FileInfo) error {
	now := time.Now()
	if file.CreatedAt.IsZero() {
		file.CreatedAt = now
	}
	file.UpdatedAt = file.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(file).
		Returning("*").
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.Conflict("This file is already in the library.")
	}
	if err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (svc *Service) RetrieveFile(ctx context.Context, opts RetrieveFileOptions) (*models.FileInfo, error) {
	file := &models.FileInfo{}

	q := svc.db.NewSelect().Model(file)
	if opts.ID != nil {
		q = q.Where("f.id = ?", *opts.ID)
	}
	if opts.SHA256 != nil {
		q = q.Where("f.sha256 = ?", *opts.SHA256)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("File")
		}
		return nil, errors.WithStack(err)
	}
	return file, nil
}

// FileExists reports whether a file with this content hash is already stored.
func (svc *Service) FileExists(ctx context.Context, sha256 string) (bool, error) {
	exists, err := svc.db.NewSelect().
		Model((*models.FileInfo)(nil)).
		Where("sha256 = ?", sha256).
		Exists(ctx)
	return exists, errors.WithStack(err)
}

func (svc *Service) DeleteFile(ctx context.Context, id int) error {
	res, err := svc.db.NewDelete().
		Model((*models.FileInfo)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("File")
	}
	return nil
}

// SetCoverPath records where the book's cover image lives.
func (svc *Service) SetCoverPath(ctx context.Context, bookID int, path string) error {
	_, err := svc.db.NewUpdate().
		Model((*models.Book)(nil)).
		Set("cover_path = ?", path).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", bookID).
		Exec(ctx)
	return errors.WithStack(err)
}
