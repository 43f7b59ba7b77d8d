package watchlists

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/binder"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func TestWatchlistHandlers(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	scraper := &fakeScraper{source: models.LocationTypeKindle, candidates: []scrapers.Candidate{
		{Title: "Guards! Guards!", Series: "Discworld", Volume: vol(8), ExternalID: "K8", URL: "https://example.com/dp/K8", Source: models.LocationTypeKindle},
		{Title: "Eric", Series: "Discworld", Volume: vol(9), ExternalID: "K9", Source: models.LocationTypeKindle},
	}}

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	authMiddleware := auth.RegisterRoutes(e, db, testSecret)
	RegisterRoutesWithGroup(e.Group("/watchlists", authMiddleware.Authenticate), db, scrapers.NewRegistry(scraper))

	authService := auth.NewService(db, testSecret)
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	aliceToken, err := authService.GenerateToken(alice)
	require.NoError(t, err)
	bobToken, err := authService.GenerateToken(bob)
	require.NoError(t, err)

	do := func(token, method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		}
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rr := httptest.NewRecorder()
		e.ServeHTTP(rr, req)
		return rr
	}

	rr := do(aliceToken, http.MethodPost, "/watchlists", `{"series_name":" Discworld ","source":"kindle","last_known_volume":7}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var w models.Watchlist
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &w))
	assert.Equal(t, "Discworld", w.SeriesName)
	assert.True(t, w.Active)
	assert.Equal(t, alice.ID, w.UserID)

	rr = do(aliceToken, http.MethodPost, "/watchlists", `{"series_name":"discworld","source":"kindle"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(aliceToken, http.MethodPost, "/watchlists", `{"series_name":"Dune","source":"physical"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	path := fmt.Sprintf("/watchlists/%d", w.ID)

	rr = do(bobToken, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(aliceToken, http.MethodPost, path+"/check", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var check struct {
		Candidates int                       `json:"candidates"`
		NewResults []*models.WatchlistResult `json:"new_results"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &check))
	assert.Equal(t, 2, check.Candidates)
	assert.Len(t, check.NewResults, 2)

	rr = do(aliceToken, http.MethodGet, path+"/results?unseen_only=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var results struct {
		Results []*models.WatchlistResult `json:"results"`
		Total   int                       `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	assert.Equal(t, 2, results.Total)

	rr = do(aliceToken, http.MethodPost, path+"/results/seen", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.JSONEq(t, `{"updated":2}`, rr.Body.String())

	rr = do(aliceToken, http.MethodPatch, path, `{"active":false,"author_name":"Terry Pratchett"}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &w))
	assert.False(t, w.Active)
	require.NotNil(t, w.AuthorName)
	assert.InDelta(t, 9, w.LastKnownVolume, 0.001)

	rr = do(aliceToken, http.MethodGet, "/watchlists?active=false", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Watchlists []*models.Watchlist `json:"watchlists"`
		Total      int                 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)

	rr = do(bobToken, http.MethodGet, "/watchlists", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Total)

	rr = do(bobToken, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = do(aliceToken, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
}
