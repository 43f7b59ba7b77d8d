package watchlists

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/uptrace/bun"
)

type RetrieveWatchlistOptions struct {
	ID *int
	// UserID restricts the lookup to one owner. Someone else's watchlist is
	// reported as missing.
	UserID *int
}

type ListWatchlistsOptions struct {
	Limit  *int
	Offset *int
	UserID *int
	Active *bool
	Source *models.LocationType
}

type UpdateWatchlistOptions struct {
	Columns []string
}

type ListResultsOptions struct {
	Limit      *int
	Offset     *int
	UnseenOnly bool
}

type Service struct {
	db       *bun.DB
	registry *scrapers.Registry
}

// NewService creates a watchlist service. registry may be nil, in which case
// Check reports the feature as unavailable.
func NewService(db *bun.DB, registry *scrapers.Registry) *Service {
	return &Service{db, registry}
}

func (svc *Service) CreateWatchlist(ctx context.Context, watchlist *models.Watchlist) error {
	watchlist.SeriesName = strings.TrimSpace(watchlist.SeriesName)
	if watchlist.SeriesName == "" {
		return errcodes.ValidationError("Series name cannot be empty.")
	}
	if !watchlist.Source.Scrapable() {
		return errcodes.ValidationError("Source must be one of amazon, kindle or openlibrary.")
	}
	if watchlist.AuthorName != nil && strings.TrimSpace(*watchlist.AuthorName) == "" {
		watchlist.AuthorName = nil
	}

	now := time.Now()
	if watchlist.CreatedAt.IsZero() {
		watchlist.CreatedAt = now
	}
	watchlist.UpdatedAt = watchlist.CreatedAt

	_, err := svc.db.NewInsert().Model(watchlist).Returning("*").Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.Conflict("This series is already on your watchlist for that source.")
	}
	return errors.WithStack(err)
}

func (svc *Service) RetrieveWatchlist(ctx context.Context, opts RetrieveWatchlistOptions) (*models.Watchlist, error) {
	watchlist := &models.Watchlist{}

	q := svc.db.NewSelect().Model(watchlist)
	if opts.ID != nil {
		q = q.Where("w.id = ?", *opts.ID)
	}
	if opts.UserID != nil {
		q = q.Where("w.user_id = ?", *opts.UserID)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Watchlist")
		}
		return nil, errors.WithStack(err)
	}
	return watchlist, nil
}

func (svc *Service) ListWatchlists(ctx context.Context, opts ListWatchlistsOptions) ([]*models.Watchlist, error) {
	w, _, err := svc.listWatchlistsWithTotal(ctx, opts)
	return w, errors.WithStack(err)
}

func (svc *Service) ListWatchlistsWithTotal(ctx context.Context, opts ListWatchlistsOptions) ([]*models.Watchlist, int, error) {
	return svc.listWatchlistsWithTotal(ctx, opts)
}

func (svc *Service) listWatchlistsWithTotal(ctx context.Context, opts ListWatchlistsOptions) ([]*models.Watchlist, int, error) {
	watchlists := []*models.Watchlist{}

	q := svc.db.NewSelect().
		Model(&watchlists).
		OrderExpr("w.series_name COLLATE NOCASE ASC").
		Order("w.id ASC")
	if opts.UserID != nil {
		q = q.Where("w.user_id = ?", *opts.UserID)
	}
	if opts.Active != nil {
		q = q.Where("w.active = ?", *opts.Active)
	}
	if opts.Source != nil {
		q = q.Where("w.source = ?", *opts.Source)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	var total int
	var err error
	if opts.Limit != nil {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
		total = len(watchlists)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return watchlists, total, nil
}

func (svc *Service) UpdateWatchlist(ctx context.Context, watchlist *models.Watchlist, opts UpdateWatchlistOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}
	if strings.TrimSpace(watchlist.SeriesName) == "" {
		return errcodes.ValidationError("Series name cannot be empty.")
	}
	if !watchlist.Source.Scrapable() {
		return errcodes.ValidationError("Source must be one of amazon, kindle or openlibrary.")
	}

	watchlist.UpdatedAt = time.Now()
	columns := append(append([]string{}, opts.Columns...), "updated_at")

	_, err := svc.db.NewUpdate().
		Model(watchlist).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.Conflict("This series is already on your watchlist for that source.")
	}
	return errors.WithStack(err)
}

// DeleteWatchlist deletes the watchlist and its results. userID scopes the
// delete to one owner when non-nil.
func (svc *Service) DeleteWatchlist(ctx context.Context, id int, userID *int) error {
	q := svc.db.NewDelete().
		Model((*models.Watchlist)(nil)).
		Where("id = ?", id)
	if userID != nil {
		q = q.Where("user_id = ?", *userID)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Watchlist")
	}
	return nil
}

// ListResults returns results newest first, highest volume first within a
// check.
func (svc *Service) ListResults(ctx context.Context, watchlistID int, opts ListResultsOptions) ([]*models.WatchlistResult, int, error) {
	results := []*models.WatchlistResult{}

	q := svc.db.NewSelect().
		Model(&results).
		Where("wr.watchlist_id = ?", watchlistID).
		OrderExpr("wr.created_at DESC, wr.volume_number DESC NULLS LAST, wr.id DESC")
	if opts.UnseenOnly {
		q = q.Where("wr.seen = ?", false)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return results, total, nil
}

// MarkResultsSeen marks the given results of a watchlist as seen, or all of
// them when resultIDs is empty. It returns how many changed.
func (svc *Service) MarkResultsSeen(ctx context.Context, watchlistID int, resultIDs []int) (int, error) {
	q := svc.db.NewUpdate().
		Model((*models.WatchlistResult)(nil)).
		Set("seen = ?", true).
		Where("watchlist_id = ?", watchlistID).
		Where("seen = ?", false)
	if len(resultIDs) > 0 {
		q = q.Where("id IN (?)", bun.In(resultIDs))
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	return int(n), errors.WithStack(err)
}

// ListActiveIDs returns every active watchlist, least recently checked first.
func (svc *Service) ListActiveIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := svc.db.NewSelect().
		Model((*models.Watchlist)(nil)).
		Column("id").
		Where("active = ?", true).
		OrderExpr("last_checked_at ASC NULLS FIRST, id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ids, nil
}
