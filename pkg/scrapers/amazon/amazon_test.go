package amazon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers/httpclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultsPage = `<!doctype html>
<html><body>
<div class="s-main-slot">
  <div data-component-type="s-search-result" data-asin="0316129089" class="s-result-item">
    <img class="s-image" src="https://images.test/leviathan.jpg">
    <h2><a class="a-link-normal" href="/Leviathan-Wakes/dp/0316129089?ref=sr_1_1"><span>Leviathan Wakes (The Expanse Book 1)</span></a></h2>
    <div class="a-row a-size-base a-color-secondary">
      <span>by </span><a href="/author">James S. A. Corey</a><span> | </span><span>Jun 15, 2011</span>
    </div>
  </div>
  <div data-component-type="s-search-result" data-asin="B005LP4CCA" class="s-result-item">
    <h2><a href="/dp/B005LP4CCA"><span>Caliban's War</span></a></h2>
    <div class="a-row"><a href="/series">Book 2 of 9: The Expanse</a></div>
    <div class="a-row">by James S. A. Corey and Ty Franck | Jun 26, 2012</div>
  </div>
  <div class="s-result-item" data-asin="">
    <h2>Sponsored</h2>
  </div>
</div>
</body></html>`

func newTestServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

func newClient(t *testing.T) *httpclient.Client {
	return httpclient.New(httpclient.Options{Source: "amazon-" + t.Name(), Timeout: 5 * time.Second})
}

func TestSearch_Books(t *testing.T) {
	t.Parallel()

	base := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/s", r.URL.Path)
		assert.Equal(t, "The Expanse James S. A. Corey", r.URL.Query().Get("k"))
		assert.Equal(t, "stripbooks", r.URL.Query().Get("i"))
		_, _ = w.Write([]byte(resultsPage))
	})
	s := New(newClient(t), base)
	assert.Equal(t, models.LocationTypeAmazon, s.Source())

	got, err := s.Search(context.Background(), scrapers.Query{Series: "The Expanse", Authors: []string{"James S. A. Corey"}})
	require.NoError(t, err)
	require.Len(t, got, 2)

	first := got[0]
	assert.Equal(t, "Leviathan Wakes", first.Title)
	assert.Equal(t, "The Expanse", first.Series)
	require.NotNil(t, first.Volume)
	assert.InDelta(t, 1, *first.Volume, 0.001)
	assert.Equal(t, "0316129089", first.ISBN10)
	assert.Equal(t, "0316129089", first.ExternalID)
	assert.Equal(t, base+"/dp/0316129089", first.URL)
	assert.Equal(t, "https://images.test/leviathan.jpg", first.CoverURL)
	assert.Equal(t, []string{"James S. A. Corey"}, first.Authors)
	require.NotNil(t, first.ReleaseDate)
	assert.Equal(t, time.Date(2011, time.June, 15, 0, 0, 0, 0, time.UTC), *first.ReleaseDate)

	second := got[1]
	assert.Equal(t, "Caliban's War", second.Title)
	assert.Equal(t, "The Expanse", second.Series)
	require.NotNil(t, second.Volume)
	assert.InDelta(t, 2, *second.Volume, 0.001)
	assert.Empty(t, second.ISBN10)
	assert.Equal(t, []string{"James S. A. Corey", "Ty Franck"}, second.Authors)
}

func TestSearch_KindleDepartment(t *testing.T) {
	t.Parallel()

	base := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "digital-text", r.URL.Query().Get("i"))
		_, _ = w.Write([]byte(resultsPage))
	})
	s := NewKindle(newClient(t), base)

	got, err := s.Search(context.Background(), scrapers.Query{Title: "Leviathan Wakes", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.LocationTypeKindle, got[0].Source)
}

func TestSearch_RobotCheck(t *testing.T) {
	t.Parallel()

	base := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<form action="/errors/validateCaptcha"></form>`))
	})
	s := New(newClient(t), base)

	_, err := s.Search(context.Background(), scrapers.Query{Title: "anything"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBlocked))
}

func TestLookup(t *testing.T) {
	t.Parallel()

	base := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "9780316129084", r.URL.Query().Get("k"))
		_, _ = w.Write([]byte(resultsPage))
	})
	s := New(newClient(t), base)

	c, err := s.Lookup(context.Background(), "978-0-316-12908-4")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Leviathan Wakes", c.Title)
	assert.Equal(t, "9780316129084", c.ISBN13)
}

func TestLookup_IgnoresOtherBooks(t *testing.T) {
	t.Parallel()

	base := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultsPage))
	})
	s := New(newClient(t), base)

	// Dune: Amazon lists unrelated books for an ISBN it does not carry.
	c, err := s.Lookup(context.Background(), "9780441013593")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestLookup_SkipsToMatchingEdition(t *testing.T) {
	t.Parallel()

	page := `<html><body>
  <div data-component-type="s-search-result" data-asin="0316129089">
    <h2><span>Leviathan Wakes</span></h2>
  </div>
  <div data-component-type="s-search-result" data-asin="0441013597">
    <h2><span>Dune</span></h2>
    <div class="a-row">by Frank Herbert | Aug 2, 2005</div>
  </div>
</body></html>`
	base := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	})
	s := New(newClient(t), base)

	c, err := s.Lookup(context.Background(), "9780441013593")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Dune", c.Title)
	assert.Equal(t, "0441013597", c.ISBN10)
	assert.Equal(t, "9780441013593", c.ISBN13)
	assert.Equal(t, []string{"Frank Herbert"}, c.Authors)
}

func TestLookup_NoResults(t *testing.T) {
	t.Parallel()

	base := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="s-no-results"></div></body></html>`))
	})
	s := New(newClient(t), base)

	c, err := s.Lookup(context.Background(), "9780316129084")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestParseByline(t *testing.T) {
	t.Parallel()

	authors, date := parseByline("by Ursula K. Le Guin | Jan 1, 1969")
	assert.Equal(t, []string{"Ursula K. Le Guin"}, authors)
	require.NotNil(t, date)
	assert.Equal(t, 1969, date.Year())

	authors, date = parseByline("by Terry Pratchett & Neil Gaiman")
	assert.Equal(t, []string{"Terry Pratchett", "Neil Gaiman"}, authors)
	assert.Nil(t, date)
}
