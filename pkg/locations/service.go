package locations

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

type RetrieveLocationOptions struct {
	ID   *int
	Name *string
}

type ListLocationsOptions struct {
	Limit  *int
	Offset *int
	Search *string
	Type   *models.LocationType

	includeTotal bool
}

type UpdateLocationOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

func (svc *Service) CreateLocation(ctx context.Context, location *models.Location) error {
	location.Name = strings.TrimSpace(location.Name)
	if location.Name == "" {
		return errcodes.ValidationError("Location name cannot be empty.")
	}
	if location.Type == "" {
		location.Type = models.LocationTypePhysical
	}
	if !validType(location.Type) {
		return errcodes.ValidationError(fmt.Sprintf("Unknown location type %q.", location.Type))
	}

	_, err := svc.RetrieveLocation(ctx, RetrieveLocationOptions{Name: &location.Name})
	if err == nil {
		return errcodes.Conflict(fmt.Sprintf("A location named %q already exists.", location.Name))
	}
	if !errcodes.IsNotFound(err) {
		return errors.WithStack(err)
	}

	now := time.Now()
	if location.CreatedAt.IsZero() {
		location.CreatedAt = now
	}
	location.UpdatedAt = location.CreatedAt

	_, err = svc.db.
		NewInsert().
		Model(location).
		Returning("*").
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.Conflict(fmt.Sprintf("A location named %q already exists.", location.Name))
	}
	return errors.WithStack(err)
}

func (svc *Service) RetrieveLocation(ctx context.Context, opts RetrieveLocationOptions) (*models.Location, error) {
	location := &models.Location{}

	q := svc.db.
		NewSelect().
		Model(location).
		ColumnExpr("l.*").
		ColumnExpr("(SELECT COUNT(*) FROM books bk WHERE bk.location_id = l.id) AS book_count")

	if opts.ID != nil {
		q = q.Where("l.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("l.name = ? COLLATE NOCASE", strings.TrimSpace(*opts.Name))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Location")
		}
		return nil, errors.WithStack(err)
	}

	return location, nil
}

// FindOrCreateLocation is used by imports, where the location arrives as a
// bare name. New locations are physical.
func (svc *Service) FindOrCreateLocation(ctx context.Context, name string) (*models.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError("Location name cannot be empty.")
	}

	location, err := svc.RetrieveLocation(ctx, RetrieveLocationOptions{Name: &name})
	if err == nil {
		return location, nil
	}
	if !errcodes.IsNotFound(err) {
		return nil, err
	}

	location = &models.Location{Name: name, Type: models.LocationTypePhysical}
	err = svc.CreateLocation(ctx, location)
	if errcodes.IsConflict(err) {
		return svc.RetrieveLocation(ctx, RetrieveLocationOptions{Name: &name})
	}
	if err != nil {
		return nil, err
	}
	return location, nil
}

func (svc *Service) ListLocations(ctx context.Context, opts ListLocationsOptions) ([]*models.Location, error) {
	l, _, err := svc.listLocationsWithTotal(ctx, opts)
	return l, errors.WithStack(err)
}

func (svc *Service) ListLocationsWithTotal(ctx context.Context, opts ListLocationsOptions) ([]*models.Location, int, error) {
	opts.includeTotal = true
	return svc.listLocationsWithTotal(ctx, opts)
}

func (svc *Service) listLocationsWithTotal(ctx context.Context, opts ListLocationsOptions) ([]*models.Location, int, error) {
	locations := []*models.Location{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&locations).
		ColumnExpr("l.*").
		ColumnExpr("(SELECT COUNT(*) FROM books bk WHERE bk.location_id = l.id) AS book_count").
		OrderExpr("l.name COLLATE NOCASE ASC")

	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		q = q.Where("l.name LIKE ? ESCAPE '\\'", likePattern(*opts.Search))
	}
	if opts.Type != nil {
		q = q.Where("l.type = ?", *opts.Type)
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

	return locations, total, nil
}

func (svc *Service) UpdateLocation(ctx context.Context, location *models.Location, opts UpdateLocationOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, col := range opts.Columns {
		switch col {
		case "name":
			existing, err := svc.RetrieveLocation(ctx, RetrieveLocationOptions{Name: &location.Name})
			if err == nil && existing.ID != location.ID {
				return errcodes.Conflict(fmt.Sprintf("A location named %q already exists.", location.Name))
			}
			if err != nil && !errcodes.IsNotFound(err) {
				return errors.WithStack(err)
			}
		case "type":
			if !validType(location.Type) {
				return errcodes.ValidationError(fmt.Sprintf("Unknown location type %q.", location.Type))
			}
		}
	}

	location.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(location).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Location")
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteLocation deletes the location; its books keep existing without one.
func (svc *Service) DeleteLocation(ctx context.Context, locationID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("location_id = NULL").
			Where("location_id = ?", locationID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Location)(nil)).
			Where("id = ?", locationID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Location")
		}
		return nil
	})
}

// GetBooks returns the books stored at this location.
func (svc *Service) GetBooks(ctx context.Context, locationID int) ([]*models.Book, error) {
	books := []*models.Book{}

	err := svc.db.NewSelect().
		Model(&books).
		Where("b.location_id = ?", locationID).
		Order("b.sort_title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

func validType(t models.LocationType) bool {
	switch t {
	case models.LocationTypePhysical, models.LocationTypeDigital:
		return true
	}
	return t.Scrapable()
}

func likePattern(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
