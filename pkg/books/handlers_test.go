package books

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shelfwatch/shelfwatch/internal/testgen"
	"github.com/shelfwatch/shelfwatch/pkg/binder"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func newTestServer(t *testing.T, db *bun.DB) (*echo.Echo, string) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	libraryDir := testgen.TempLibraryDir(t)
	RegisterRoutesWithGroup(e.Group("/books"), db, parsers.Default(), libraryDir)
	return e, libraryDir
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func doUpload(t *testing.T, e *echo.Echo, path, filename string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func decodeBook(t *testing.T, rr *httptest.ResponseRecorder) *models.Book {
	t.Helper()
	book := &models.Book{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), book))
	return book
}

func TestHandler_CreateAndRetrieve(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e, _ := newTestServer(t, db)

	rr := doRequest(e, http.MethodPost, "/books", `{
		"title": "The Left Hand of Darkness",
		"authors": ["Ursula K. Le Guin"],
		"series": "Hainish Cycle",
		"series_number": 6,
		"isbn13": "978-0-441-47812-5",
		"release_date": "1969-03-01",
		"rating": 5,
		"read_status": "read",
		"owned": true
	}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	created := decodeBook(t, rr)
	assert.Equal(t, "Left Hand of Darkness, The", created.SortTitle)
	assert.Equal(t, "9780441478125", *created.ISBN13)
	assert.Equal(t, models.ReadStatusRead, created.ReadStatus)
	assert.True(t, created.Owned)
	assert.Equal(t, models.DataSourceManual, created.MetadataSource)
	require.NotNil(t, created.ReleaseDate)
	assert.Equal(t, 1969, created.ReleaseDate.Year())

	rr = doRequest(e, http.MethodGet, "/books/"+strconv.Itoa(created.ID), "")
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodeBook(t, rr)
	assert.Equal(t, []string{"Ursula K. Le Guin"}, got.AuthorNames())
	require.NotNil(t, got.Series)
	assert.Equal(t, "Hainish Cycle", got.Series.Name)

	rr = doRequest(e, http.MethodPost, "/books", `{"title":"the left hand of darkness","authors":["Ursula K. Le Guin"]}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestHandler_CreateValidation(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e, _ := newTestServer(t, db)

	tests := []struct {
		name string
		body string
	}{
		{"missing title", `{"title":""}`},
		{"bad isbn", `{"title":"X","isbn13":"12345"}`},
		{"bad rating", `{"title":"X","rating":7}`},
		{"bad read status", `{"title":"X","read_status":"abandoned"}`},
		{"bad date", `{"title":"X","release_date":"March 1969"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(e, http.MethodPost, "/books", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
		})
	}
}

func TestHandler_RetrieveBadID(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e, _ := newTestServer(t, db)

	rr := doRequest(e, http.MethodGet, "/books/abc", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(e, http.MethodGet, "/books/42", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_ListAndFilter(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e, _ := newTestServer(t, db)

	for _, body := range []string{
		`{"title":"Mort","authors":["Terry Pratchett"],"read_status":"reading"}`,
		`{"title":"Emma","authors":["Jane Austen"]}`,
		`{"title":"Persuasion","authors":["Jane Austen"]}`,
	} {
		rr := doRequest(e, http.MethodPost, "/books", body)
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}

	type listResponse struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}

	rr := doRequest(e, http.MethodGet, "/books", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := listResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Books, 3)
	assert.Equal(t, "Emma", resp.Books[0].Title)

	rr = doRequest(e, http.MethodGet, "/books?read_status=reading", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp = listResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Books, 1)
	assert.Equal(t, "Mort", resp.Books[0].Title)

	rr = doRequest(e, http.MethodGet, "/books?search=austen&limit=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp = listResponse{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Books, 1)

	rr = doRequest(e, http.MethodGet, "/books?limit=500", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandler_Update(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e, _ := newTestServer(t, db)

	rr := doRequest(e, http.MethodPost, "/books", `{"title":"A Wizard of Earthsea","subtitle":"Old subtitle","series":"Earthsea"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decodeBook(t, rr)
	path := "/books/" + strconv.Itoa(created.ID)

	rr = doRequest(e, http.MethodPatch, path, `{"title":"The Wizard of Earthsea","subtitle":"","series":"","rating":4,"tags":["fantasy"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	updated := decodeBook(t, rr)
	assert.Equal(t, "Wizard of Earthsea, The", updated.SortTitle)
	assert.Nil(t, updated.Subtitle)
	assert.Nil(t, updated.SeriesID)
	assert.Equal(t, 4, *updated.Rating)
	assert.Equal(t, []string{"fantasy"}, updated.TagNames())

	rr = doRequest(e, http.MethodPatch, "/books/999", `{"title":"Nothing"}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_RelationEndpoints(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e, _ := newTestServer(t, db)

	rr := doRequest(e, http.MethodPost, "/books", `{"title":"Good Omens","authors":["Terry Pratchett"]}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	path := "/books/" + strconv.Itoa(decodeBook(t, rr).ID)

	rr = doRequest(e, http.MethodPost, path+"/authors", `{"names":["Neil Gaiman"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, decodeBook(t, rr).AuthorNames())

	rr = doRequest(e, http.MethodPut, path+"/tags", `{"names":["funny","apocalypse"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.ElementsMatch(t, []string{"funny", "apocalypse"}, decodeBook(t, rr).TagNames())

	rr = doRequest(e, http.MethodPut, path+"/categories", `{"names":["Fantasy"]}`)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, []string{"Fantasy"}, decodeBook(t, rr).CategoryNames())

	rr = doRequest(e, http.MethodPut, "/books/999/tags", `{"names":["x"]}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_UploadCoverDownloadDelete(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e, libraryDir := newTestServer(t, db)

	rr := doRequest(e, http.MethodPost, "/books", `{"title":"Leviathan Wakes"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	book := decodeBook(t, rr)
	path := "/books/" + strconv.Itoa(book.ID)

	rr = doRequest(e, http.MethodGet, path+"/cover", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	epubPath := testgen.GenerateEPUB(t, testgen.TempDir(t, "upload-*"), "leviathan.epub", testgen.EPUBOptions{
		Title:    "Leviathan Wakes",
		Authors:  []string{"James S. A. Corey"},
		HasCover: true,
	})
	content := testgen.ReadFile(t, epubPath)

	rr = doUpload(t, e, path+"/files", "leviathan.epub", content)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	result := IngestResult{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, []string{"James S. A. Corey"}, result.Book.AuthorNames())
	require.NotNil(t, result.File)

	rr = doRequest(e, http.MethodGet, path+"/cover", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Body.Bytes())

	rr = doRequest(e, http.MethodGet, "/books/files/"+strconv.Itoa(result.File.ID)+"/download", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, content, rr.Body.Bytes())
	assert.Contains(t, rr.Header().Get(echo.HeaderContentDisposition), "leviathan.epub")

	rr = doUpload(t, e, path+"/files", "again.epub", content)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doUpload(t, e, path+"/files", "notes.mobi", []byte("mobi"))
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)

	rr = doRequest(e, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	_, err := os.Stat(libraryDir + "/" + strconv.Itoa(book.ID))
	assert.True(t, os.IsNotExist(err))

	rr = doRequest(e, http.MethodGet, path, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_ImportCSV(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	e, _ := newTestServer(t, db)

	csv := "title,author,tags\nThe Dispossessed,Ursula K. Le Guin,utopia;classic\n,Missing Title,\n"
	rr := doUpload(t, e, "/books/import", "library.csv", []byte(csv))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	result := CSVImportResult{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Len(t, result.Created, 1)
	assert.Empty(t, result.Skipped)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Line)

	rr = doUpload(t, e, "/books/import", "library.csv", []byte(csv))
	require.Equal(t, http.StatusOK, rr.Code)
	result = CSVImportResult{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Empty(t, result.Created)
	assert.Len(t, result.Skipped, 1)

	rr = doUpload(t, e, "/books/import", "library.xlsx", []byte(csv))
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}
