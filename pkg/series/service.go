package series

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/uptrace/bun"
)

// maxMissingVolumes caps MissingVolumes so a typo in total_volumes can't
// produce a huge response.
const maxMissingVolumes = 1000

type RetrieveSeriesOptions struct {
	ID   *int
	Name *string
}

type ListSeriesOptions struct {
	Limit  *int
	Offset *int
	Search *string

	includeTotal bool
}

type UpdateSeriesOptions struct {
	Columns []string
}

type Service struct {
	db bun.IDB
}

func NewService(db bun.IDB) *Service {
	return &Service{db}
}

func (svc *Service) CreateSeries(ctx context.Context, series *models.Series) error {
	series.Name = strings.TrimSpace(series.Name)
	if series.Name == "" {
		return errcodes.ValidationError("Series name cannot be empty.")
	}

	_, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Name: &series.Name})
	if err == nil {
		return errcodes.Conflict(fmt.Sprintf("A series named %q already exists.", series.Name))
	}
	if !errcodes.IsNotFound(err) {
		return errors.WithStack(err)
	}

	now := time.Now()
	if series.CreatedAt.IsZero() {
		series.CreatedAt = now
	}
	series.UpdatedAt = series.CreatedAt

	_, err = svc.db.
		NewInsert().
		Model(series).
		Returning("*").
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.Conflict(fmt.Sprintf("A series named %q already exists.", series.Name))
	}
	return errors.WithStack(err)
}

func (svc *Service) RetrieveSeries(ctx context.Context, opts RetrieveSeriesOptions) (*models.Series, error) {
	series := &models.Series{}

	q := svc.db.
		NewSelect().
		Model(series).
		ColumnExpr("s.*").
		ColumnExpr("(SELECT COUNT(*) FROM books bk WHERE bk.series_id = s.id) AS book_count")

	if opts.ID != nil {
		q = q.Where("s.id = ?", *opts.ID)
	}
	if opts.Name != nil {
		q = q.Where("s.name = ? COLLATE NOCASE", strings.TrimSpace(*opts.Name))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Series")
		}
		return nil, errors.WithStack(err)
	}

	return series, nil
}

// FindOrCreateSeries returns the series with this name (case-insensitive),
// creating it when missing.
func (svc *Service) FindOrCreateSeries(ctx context.Context, name string) (*models.Series, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errcodes.ValidationError("Series name cannot be empty.")
	}

	series, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Name: &name})
	if err == nil {
		return series, nil
	}
	if !errcodes.IsNotFound(err) {
		return nil, err
	}

	series = &models.Series{Name: name}
	err = svc.CreateSeries(ctx, series)
	if errcodes.IsConflict(err) {
		return svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Name: &name})
	}
	if err != nil {
		return nil, err
	}
	return series, nil
}

func (svc *Service) ListSeries(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, error) {
	s, _, err := svc.listSeriesWithTotal(ctx, opts)
	return s, errors.WithStack(err)
}

func (svc *Service) ListSeriesWithTotal(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, int, error) {
	opts.includeTotal = true
	return svc.listSeriesWithTotal(ctx, opts)
}

func (svc *Service) listSeriesWithTotal(ctx context.Context, opts ListSeriesOptions) ([]*models.Series, int, error) {
	series := []*models.Series{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&series).
		ColumnExpr("s.*").
		ColumnExpr("(SELECT COUNT(*) FROM books bk WHERE bk.series_id = s.id) AS book_count").
		OrderExpr("s.name COLLATE NOCASE ASC")

	if opts.Search != nil && strings.TrimSpace(*opts.Search) != "" {
		q = q.Where("s.name LIKE ? ESCAPE '\\'", likePattern(*opts.Search))
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

	return series, total, nil
}

func (svc *Service) UpdateSeries(ctx context.Context, series *models.Series, opts UpdateSeriesOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, col := range opts.Columns {
		if col != "name" {
			continue
		}
		existing, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{Name: &series.Name})
		if err == nil && existing.ID != series.ID {
			return errcodes.Conflict(fmt.Sprintf("A series named %q already exists.", series.Name))
		}
		if err != nil && !errcodes.IsNotFound(err) {
			return errors.WithStack(err)
		}
	}

	series.UpdatedAt = time.Now()
	columns := append(opts.Columns, "updated_at")

	_, err := svc.db.
		NewUpdate().
		Model(series).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return errcodes.NotFound("Series")
		}
		return errors.WithStack(err)
	}
	return nil
}

// DeleteSeries removes the series. Its books stay, detached from it.
func (svc *Service) DeleteSeries(ctx context.Context, seriesID int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("series_id = NULL").
			Set("series_number = NULL").
			Where("series_id = ?", seriesID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewDelete().
			Model((*models.Series)(nil)).
			Where("id = ?", seriesID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Series")
		}
		return nil
	})
}

// MergeSeries moves every book of sourceID into targetID and deletes the source.
func (svc *Service) MergeSeries(ctx context.Context, targetID, sourceID int) error {
	if targetID == sourceID {
		return errcodes.ValidationError("A series cannot be merged into itself.")
	}

	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, id := range []int{targetID, sourceID} {
			exists, err := tx.NewSelect().Model((*models.Series)(nil)).Where("id = ?", id).Exists(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if !exists {
				return errcodes.NotFound("Series")
			}
		}

		_, err := tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("series_id = ?", targetID).
			Where("series_id = ?", sourceID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Series)(nil)).
			Where("id = ?", sourceID).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// ListBooks returns the series' books in reading order. Books without a
// number sort last, by title.
func (svc *Service) ListBooks(ctx context.Context, seriesID int) ([]*models.Book, error) {
	books := []*models.Book{}

	err := svc.db.NewSelect().
		Model(&books).
		Relation("Authors", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.Order("ba.sort_order ASC")
		}).
		Relation("Authors.Author").
		Where("b.series_id = ?", seriesID).
		OrderExpr("b.series_number IS NULL ASC").
		OrderExpr("b.series_number ASC").
		OrderExpr("b.sort_title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

// MissingVolumes returns the whole volume numbers in 1..N that no book of the
// series covers, where N is the larger of total_volumes and the highest
// series_number present. Fractional numbers (novellas like 2.5) count toward
// N but never cover a whole volume.
func (svc *Service) MissingVolumes(ctx context.Context, seriesID int) ([]int, error) {
	series, err := svc.RetrieveSeries(ctx, RetrieveSeriesOptions{ID: &seriesID})
	if err != nil {
		return nil, err
	}

	var numbers []float64
	err = svc.db.NewSelect().
		Model((*models.Book)(nil)).
		Column("series_number").
		Where("series_id = ?", seriesID).
		Where("series_number IS NOT NULL").
		Scan(ctx, &numbers)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return missingVolumes(numbers, series.TotalVolumes), nil
}

func missingVolumes(numbers []float64, totalVolumes *int) []int {
	upper := 0
	if totalVolumes != nil {
		upper = *totalVolumes
	}
	have := map[int]bool{}
	for _, n := range numbers {
		if n > float64(upper) {
			upper = int(math.Floor(n))
		}
		if n == math.Trunc(n) {
			have[int(n)] = true
		}
	}
	if upper > maxMissingVolumes {
		upper = maxMissingVolumes
	}

	missing := []int{}
	for v := 1; v <= upper; v++ {
		if !have[v] {
			missing = append(missing, v)
		}
	}
	return missing
}

func likePattern(s string) string {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
	return "%" + s + "%"
}
