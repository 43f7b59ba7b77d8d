package notifications

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/binder"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func TestNotificationHandlers(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	svc := NewService(db)

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	authMiddleware := auth.RegisterRoutes(e, db, testSecret)
	RegisterRoutesWithGroup(e.Group("/notifications", authMiddleware.Authenticate), db)

	alice := createUser(t, db, "alice", false)
	bob := createUser(t, db, "bob", false)
	token, err := auth.NewService(db, testSecret).GenerateToken(alice)
	require.NoError(t, err)

	first := notify(t, svc, alice.ID, "first")
	notify(t, svc, alice.ID, "second")
	bobs := notify(t, svc, bob.ID, "not yours")

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
		rr := httptest.NewRecorder()
		e.ServeHTTP(rr, req)
		return rr
	}

	rr := do(http.MethodGet, "/notifications")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var list struct {
		Notifications []*models.Notification `json:"notifications"`
		Total         int                    `json:"total"`
		Unread        int                    `json:"unread"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 2, list.Unread)

	rr = do(http.MethodPost, fmt.Sprintf("/notifications/%d/read", first.ID))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(http.MethodGet, "/notifications?unread_only=true")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	assert.Equal(t, 1, list.Unread)

	rr = do(http.MethodPost, fmt.Sprintf("/notifications/%d/read", bobs.ID))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(http.MethodPost, "/notifications/read-all")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"updated":1}`, rr.Body.String())

	rr = do(http.MethodGet, "/notifications/unread-count")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"unread":0}`, rr.Body.String())

	rr = do(http.MethodDelete, fmt.Sprintf("/notifications/%d", first.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = do(http.MethodDelete, fmt.Sprintf("/notifications/%d", first.ID))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/notifications", nil)
	rr = httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
