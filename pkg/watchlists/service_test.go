package watchlists

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/migrations"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

type fakeScraper struct {
	source     models.LocationType
	candidates []scrapers.Candidate
	err        error
	queries    []scrapers.Query
}

func (f *fakeScraper) Source() models.LocationType { return f.source }

func (f *fakeScraper) Search(_ context.Context, q scrapers.Query) ([]scrapers.Candidate, error) {
	f.queries = append(f.queries, q)
	return f.candidates, f.err
}

func (f *fakeScraper) Lookup(_ context.Context, _ string) (*scrapers.Candidate, error) {
	return nil, nil
}

func vol(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }

func createUser(t *testing.T, db *bun.DB, username string) *models.User {
	t.Helper()

	user := &models.User{Username: username, PasswordHash: "x"}
	_, err := db.NewInsert().Model(user).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return user
}

func createWatchlist(t *testing.T, svc *Service, userID int, series string, lastKnown float64) *models.Watchlist {
	t.Helper()

	w := &models.Watchlist{
		UserID:          userID,
		SeriesName:      series,
		Source:          models.LocationTypeAmazon,
		LastKnownVolume: lastKnown,
		Active:          true,
	}
	require.NoError(t, svc.CreateWatchlist(context.Background(), w))
	return w
}

func httpCode(err error) int {
	var ec *errcodes.Error
	if errors.As(err, &ec) {
		return ec.HTTPCode
	}
	return 0
}

func expanseCandidates() []scrapers.Candidate {
	return []scrapers.Candidate{
		{Title: "Leviathan Wakes", Series: "The Expanse", Volume: vol(1), ExternalID: "A1", URL: "https://example.com/dp/A1", Authors: []string{"James S. A. Corey"}, Source: models.LocationTypeAmazon},
		{Title: "Caliban's War", Series: "The Expanse", Volume: vol(2), ExternalID: "A2", URL: "https://example.com/dp/A2", Authors: []string{"James S. A. Corey"}, Source: models.LocationTypeAmazon},
		{Title: "Abaddon's Gate", Series: "Expanse", Volume: vol(3), ExternalID: "A3", URL: "https://example.com/dp/A3", Authors: []string{"James S. A. Corey"}, Source: models.LocationTypeAmazon},
		// Same volume as A3 from a different listing.
		{Title: "Abaddon's Gate", Series: "The Expanse", Volume: vol(3), ExternalID: "A3-audio", Source: models.LocationTypeAmazon},
		{Title: "Cibola Burn", Series: "Mistborn", Volume: vol(4), ExternalID: "X4", Source: models.LocationTypeAmazon},
		{Title: "The Expanse Vol. 4", ExternalID: "A4", Source: models.LocationTypeAmazon},
		{Title: "Memory's Legion", Series: "The Expanse", ExternalID: "A9", Source: models.LocationTypeAmazon},
		{Title: "The Churn", Series: "The Expanse", ExternalID: "A10", Source: models.LocationTypeAmazon},
	}
}

func TestCreateWatchlist(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db, nil)
	user := createUser(t, db, "reader")

	w := createWatchlist(t, svc, user.ID, "  The Expanse ", 0)
	assert.Equal(t, "The Expanse", w.SeriesName)
	assert.NotZero(t, w.ID)

	err := svc.CreateWatchlist(ctx, &models.Watchlist{UserID: user.ID, SeriesName: "the expanse", Source: models.LocationTypeAmazon})
	assert.Equal(t, http.StatusConflict, httpCode(err))

	// Another source is a separate watchlist.
	err = svc.CreateWatchlist(ctx, &models.Watchlist{UserID: user.ID, SeriesName: "The Expanse", Source: models.LocationTypeKindle})
	require.NoError(t, err)

	err = svc.CreateWatchlist(ctx, &models.Watchlist{UserID: user.ID, SeriesName: "Dune", Source: models.LocationTypePhysical})
	assert.Equal(t, http.StatusUnprocessableEntity, httpCode(err))

	err = svc.CreateWatchlist(ctx, &models.Watchlist{UserID: user.ID, SeriesName: " ", Source: models.LocationTypeAmazon})
	assert.Equal(t, http.StatusUnprocessableEntity, httpCode(err))
}

func TestListAndDeleteWatchlists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	svc := NewService(db, nil)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	createWatchlist(t, svc, alice.ID, "Discworld", 0)
	paused := createWatchlist(t, svc, alice.ID, "Aubrey-Maturin", 0)
	bobs := createWatchlist(t, svc, bob.ID, "Culture", 0)

	paused.Active = false
	require.NoError(t, svc.UpdateWatchlist(ctx, paused, UpdateWatchlistOptions{Columns: []string{"active"}}))

	list, total, err := svc.ListWatchlistsWithTotal(ctx, ListWatchlistsOptions{UserID: &alice.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, "Aubrey-Maturin", list[0].SeriesName)

	active := true
	list, err = svc.ListWatchlists(ctx, ListWatchlistsOptions{UserID: &alice.ID, Active: &active})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Discworld", list[0].SeriesName)

	ids, err := svc.ListActiveIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	_, err = svc.RetrieveWatchlist(ctx, RetrieveWatchlistOptions{ID: &bobs.ID, UserID: &alice.ID})
	assert.True(t, errcodes.IsNotFound(err))

	err = svc.DeleteWatchlist(ctx, bobs.ID, &alice.ID)
	assert.True(t, errcodes.IsNotFound(err))
	require.NoError(t, svc.DeleteWatchlist(ctx, bobs.ID, &bob.ID))
}

func TestCheck(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	scraper := &fakeScraper{source: models.LocationTypeAmazon, candidates: expanseCandidates()}
	svc := NewService(db, scrapers.NewRegistry(scraper))
	user := createUser(t, db, "reader")

	w := &models.Watchlist{
		UserID:          user.ID,
		SeriesName:      "The Expanse",
		AuthorName:      strPtr("James S. A. Corey"),
		Source:          models.LocationTypeAmazon,
		LastKnownVolume: 1,
		Active:          true,
	}
	require.NoError(t, svc.CreateWatchlist(ctx, w))

	// A book already in the library suppresses the unnumbered candidate.
	_, err := db.NewInsert().Model(&models.Book{
		Title:          "The Churn",
		SortTitle:      "Churn, The",
		ReadStatus:     models.ReadStatusUnread,
		MetadataSource: models.DataSourceManual,
	}).Exec(ctx)
	require.NoError(t, err)

	result, err := svc.Check(ctx, w.ID)
	require.NoError(t, err)
	require.Len(t, scraper.queries, 1)
	assert.Equal(t, "The Expanse", scraper.queries[0].Series)
	assert.Equal(t, []string{"James S. A. Corey"}, scraper.queries[0].Authors)
	assert.Equal(t, len(expanseCandidates()), result.Candidates)

	titles := map[string]bool{}
	for _, r := range result.NewResults {
		titles[r.ExternalID] = true
	}
	assert.Equal(t, map[string]bool{"A2": true, "A3": true, "A4": true, "A9": true}, titles)

	got, err := svc.RetrieveWatchlist(ctx, RetrieveWatchlistOptions{ID: &w.ID})
	require.NoError(t, err)
	assert.InDelta(t, 4, got.LastKnownVolume, 0.001)
	require.NotNil(t, got.LastCheckedAt)

	count, err := db.NewSelect().
		Model((*models.Notification)(nil)).
		Where("user_id = ?", user.ID).
		Where("type = ?", models.NotificationTypeWatchlistNewVolume).
		Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, count)

	// Rerunning finds nothing new: numbered volumes are below the new mark and
	// the unnumbered one is deduplicated by external ID.
	result, err = svc.Check(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, result.NewResults)

	results, total, err := svc.ListResults(ctx, w.ID, ListResultsOptions{UnseenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 4, total)
	assert.Len(t, results, 4)

	updated, err := svc.MarkResultsSeen(ctx, w.ID, []int{results[0].ID})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	updated, err = svc.MarkResultsSeen(ctx, w.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	_, total, err = svc.ListResults(ctx, w.ID, ListResultsOptions{UnseenOnly: true})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestCheck_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := setupTestDB(t)
	user := createUser(t, db, "reader")

	_, err := NewService(db, nil).Check(ctx, 1)
	assert.Equal(t, http.StatusServiceUnavailable, httpCode(err))

	// No scraper for the watchlist's source.
	svc := NewService(db, scrapers.NewRegistry(&fakeScraper{source: models.LocationTypeOpenLibrary}))
	w := createWatchlist(t, svc, user.ID, "Discworld", 0)
	_, err = svc.Check(ctx, w.ID)
	assert.Equal(t, http.StatusUnprocessableEntity, httpCode(err))

	_, err = svc.Check(ctx, 999)
	assert.True(t, errcodes.IsNotFound(err))

	failing := &fakeScraper{source: models.LocationTypeAmazon, err: errors.New("boom")}
	svc = NewService(db, scrapers.NewRegistry(failing))
	_, err = svc.Check(ctx, w.ID)
	require.Error(t, err)

	got, err := svc.RetrieveWatchlist(ctx, RetrieveWatchlistOptions{ID: &w.ID})
	require.NoError(t, err)
	assert.Nil(t, got.LastCheckedAt)
}
