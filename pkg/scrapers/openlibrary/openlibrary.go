// Package openlibrary searches the OpenLibrary JSON API.
package openlibrary

import (
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers/httpclient"
)

const (
	defaultLimit    = 20
	acceptJSON      = "application/json"
	searchFields    = "key,title,subtitle,author_name,first_publish_year,isbn,publisher,language,number_of_pages_median,cover_i,subject"
	defaultCoverURL = "https://covers.openlibrary.org"
)

type Scraper struct {
	client   *httpclient.Client
	baseURL  string
	coverURL string
}

// New returns an OpenLibrary scraper rooted at baseURL
// (https://openlibrary.org in production).
func New(client *httpclient.Client, baseURL string) *Scraper {
	return &Scraper{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		coverURL: defaultCoverURL,
	}
}

func (s *Scraper) Source() models.LocationType {
	return models.LocationTypeOpenLibrary
}

type searchResponse struct {
	NumFound int         `json:"numFound"`
	Docs     []searchDoc `json:"docs"`
}

type searchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	Subtitle         string   `json:"subtitle"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	ISBN             []string `json:"isbn"`
	Publisher        []string `json:"publisher"`
	Language         []string `json:"language"`
	Pages            int      `json:"number_of_pages_median"`
	CoverID          int      `json:"cover_i"`
	Subject          []string `json:"subject"`
}

// Search queries /search.json. An ISBN query is answered by Lookup instead.
// A series-only query searches the series name as free text.
func (s *Scraper) Search(ctx context.Context, q scrapers.Query) ([]scrapers.Candidate, error) {
	if q.ISBN != "" {
		c, err := s.Lookup(ctx, q.ISBN)
		if err != nil || c == nil {
			return nil, err
		}
		return []scrapers.Candidate{*c}, nil
	}

	params := url.Values{}
	switch {
	case q.Title != "":
		params.Set("title", q.Title)
	case q.Series != "":
		params.Set("q", q.Series)
	default:
		return nil, nil
	}
	if len(q.Authors) > 0 {
		params.Set("author", q.Authors[0])
	}
	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	params.Set("limit", strconv.Itoa(limit))
	params.Set("fields", searchFields)

	body, err := s.client.Get(ctx, s.baseURL+"/search.json?"+params.Encode(), acceptJSON)
	if errors.Is(err, httpclient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "openlibrary search")
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, errors.Wrap(err, "decode openlibrary search")
	}

	candidates := make([]scrapers.Candidate, 0, len(resp.Docs))
	for _, doc := range resp.Docs {
		if doc.Title == "" || doc.Key == "" {
			continue
		}
		candidates = append(candidates, s.fromSearchDoc(doc, q.Series))
	}
	return candidates, nil
}

func (s *Scraper) fromSearchDoc(doc searchDoc, series string) scrapers.Candidate {
	c := scrapers.Candidate{
		Title:      doc.Title,
		Subtitle:   doc.Subtitle,
		Authors:    doc.AuthorName,
		ExternalID: strings.TrimPrefix(doc.Key, "/works/"),
		URL:        s.baseURL + doc.Key,
		Source:     models.LocationTypeOpenLibrary,
	}
	for _, isbn := range doc.ISBN {
		switch norm, t := identifiers.ParseISBN(isbn); {
		case t == identifiers.TypeISBN13 && c.ISBN13 == "":
			c.ISBN13 = norm
		case t == identifiers.TypeISBN10 && c.ISBN10 == "":
			c.ISBN10 = norm
		}
	}
	if len(doc.Publisher) > 0 {
		c.Publisher = doc.Publisher[0]
	}
	if len(doc.Language) > 0 {
		c.Language = doc.Language[0]
	}
	if doc.FirstPublishYear > 0 {
		d := time.Date(doc.FirstPublishYear, 1, 1, 0, 0, 0, 0, time.UTC)
		c.ReleaseDate = &d
	}
	if doc.Pages > 0 {
		pages := doc.Pages
		c.PageCount = &pages
	}
	if doc.CoverID > 0 {
		c.CoverURL = s.coverURL + "/b/id/" + strconv.Itoa(doc.CoverID) + "-L.jpg"
	}
	if len(doc.Subject) > 0 {
		c.Categories = doc.Subject[:min(len(doc.Subject), 5)]
	}
	if base, vol := cleanup.ExtractVolume(doc.Title); vol != nil {
		c.Volume = vol
		c.Series = base
	} else if series != "" {
		c.Series = series
	}
	return c
}

type keyRef struct {
	Key string `json:"key"`
}

// text decodes fields that OpenLibrary sends either as a bare string or as
// {"type": "/type/text", "value": "..."}.
type text string

func (t *text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = text(s)
		return nil
	}
	var v struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(b, &v); err != nil {
		return errors.WithStack(err)
	}
	*t = text(v.Value)
	return nil
}

type edition struct {
	Key           string   `json:"key"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Publishers    []string `json:"publishers"`
	PublishDate   string   `json:"publish_date"`
	NumberOfPages int      `json:"number_of_pages"`
	Covers        []int    `json:"covers"`
	ISBN10        []string `json:"isbn_10"`
	ISBN13        []string `json:"isbn_13"`
	Languages     []keyRef `json:"languages"`
	Series        []string `json:"series"`
	Works         []keyRef `json:"works"`
	Authors       []keyRef `json:"authors"`
	Description   text     `json:"description"`
}

type work struct {
	Description text     `json:"description"`
	Subjects    []string `json:"subjects"`
	Authors     []struct {
		Author keyRef `json:"author"`
	} `json:"authors"`
}

type author struct {
	Name string `json:"name"`
}

// Lookup fetches /isbn/{isbn}.json and fills in the work description and
// author names with follow-up requests. Failures of the follow-ups are not
// fatal.
func (s *Scraper) Lookup(ctx context.Context, isbn string) (*scrapers.Candidate, error) {
	isbn = identifiers.NormalizeISBN(isbn)
	if isbn == "" {
		return nil, nil
	}

	var ed edition
	found, err := s.getJSON(ctx, "/isbn/"+isbn+".json", &ed)
	if err != nil || !found {
		return nil, err
	}

	c := &scrapers.Candidate{
		Title:       ed.Title,
		Subtitle:    ed.Subtitle,
		Description: string(ed.Description),
		ExternalID:  strings.TrimPrefix(ed.Key, "/books/"),
		URL:         s.baseURL + ed.Key,
		Source:      models.LocationTypeOpenLibrary,
		ReleaseDate: parsePublishDate(ed.PublishDate),
	}
	if len(ed.ISBN13) > 0 {
		c.ISBN13 = identifiers.NormalizeISBN(ed.ISBN13[0])
	}
	if len(ed.ISBN10) > 0 {
		c.ISBN10 = identifiers.NormalizeISBN(ed.ISBN10[0])
	}
	if c.ISBN13 == "" && c.ISBN10 == "" {
		if len(isbn) == 13 {
			c.ISBN13 = isbn
		} else {
			c.ISBN10 = isbn
		}
	}
	if len(ed.Publishers) > 0 {
		c.Publisher = ed.Publishers[0]
	}
	if ed.NumberOfPages > 0 {
		pages := ed.NumberOfPages
		c.PageCount = &pages
	}
	if len(ed.Covers) > 0 && ed.Covers[0] > 0 {
		c.CoverURL = s.coverURL + "/b/id/" + strconv.Itoa(ed.Covers[0]) + "-L.jpg"
	}
	if len(ed.Languages) > 0 {
		c.Language = strings.TrimPrefix(ed.Languages[0].Key, "/languages/")
	}
	if len(ed.Series) > 0 {
		c.Series, c.Volume = parseSeries(ed.Series[0])
	}

	authorKeys := make([]string, 0, len(ed.Authors))
	for _, a := range ed.Authors {
		authorKeys = append(authorKeys, a.Key)
	}

	if len(ed.Works) > 0 {
		var w work
		if ok, err := s.getJSON(ctx, ed.Works[0].Key+".json", &w); err == nil && ok {
			if c.Description == "" {
				c.Description = string(w.Description)
			}
			if len(w.Subjects) > 0 {
				c.Categories = w.Subjects[:min(len(w.Subjects), 5)]
			}
			if len(authorKeys) == 0 {
				for _, a := range w.Authors {
					authorKeys = append(authorKeys, a.Author.Key)
				}
			}
		}
	}

	for _, key := range authorKeys {
		var a author
		if ok, err := s.getJSON(ctx, key+".json", &a); err == nil && ok && a.Name != "" {
			c.Authors = append(c.Authors, a.Name)
		}
	}
	return c, nil
}

func (s *Scraper) getJSON(ctx context.Context, path string, v interface{}) (bool, error) {
	body, err := s.client.Get(ctx, s.baseURL+path, acceptJSON)
	if errors.Is(err, httpclient.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "openlibrary %s", path)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, errors.Wrapf(err, "decode openlibrary %s", path)
	}
	return true, nil
}

var seriesNumberRE = regexp.MustCompile(`(?i)^(.+?)\s*(?:[;,#]|\(|\bno\.?|\bbook|\bvol\.?)\s*(\d+(?:\.\d+)?)\)?\s*$`)

// parseSeries reads OpenLibrary series strings such as "The Expanse ; 3",
// "Discworld (8)" or "Dune chronicles #2".
func parseSeries(s string) (string, *float64) {
	s = strings.TrimSpace(s)
	if m := seriesNumberRE.FindStringSubmatch(s); m != nil {
		if v, err := strconv.ParseFloat(m[2], 64); err == nil {
			return strings.TrimRight(m[1], " ,;:-"), &v
		}
	}
	return s, nil
}

var publishDateLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"January 2006",
	"2006-01-02",
	"2006-01",
	"2006",
}

func parsePublishDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range publishDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}
