// Package amazon reads Amazon search result pages. The same scraper serves
// the Kindle store when built with NewKindle.
package amazon

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/cleanup"
	"github.com/shelfwatch/shelfwatch/pkg/htmlutil"
	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers/httpclient"
	"golang.org/x/net/html"
)

const (
	defaultLimit = 16
	lookupLimit  = 5
	acceptHTML   = "text/html,application/xhtml+xml"

	departmentBooks  = "stripbooks"
	departmentKindle = "digital-text"
)

// ErrBlocked is returned when Amazon answers with a robot check instead of
// results.
var ErrBlocked = errors.New("amazon returned a robot check page")

type Scraper struct {
	client     *httpclient.Client
	baseURL    string
	source     models.LocationType
	department string
}

// New returns a scraper for the print book department.
func New(client *httpclient.Client, baseURL string) *Scraper {
	return &Scraper{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		source:     models.LocationTypeAmazon,
		department: departmentBooks,
	}
}

// NewKindle returns a scraper for the Kindle store.
func NewKindle(client *httpclient.Client, baseURL string) *Scraper {
	s := New(client, baseURL)
	s.source = models.LocationTypeKindle
	s.department = departmentKindle
	return s
}

func (s *Scraper) Source() models.LocationType {
	return s.source
}

func (s *Scraper) Search(ctx context.Context, q scrapers.Query) ([]scrapers.Candidate, error) {
	terms := make([]string, 0, 3)
	switch {
	case q.ISBN != "":
		terms = append(terms, identifiers.NormalizeISBN(q.ISBN))
	case q.Title != "":
		terms = append(terms, q.Title)
	case q.Series != "":
		terms = append(terms, q.Series)
	}
	if len(terms) == 0 {
		return nil, nil
	}
	if q.ISBN == "" && len(q.Authors) > 0 {
		terms = append(terms, q.Authors[0])
	}

	params := url.Values{}
	params.Set("k", strings.Join(terms, " "))
	params.Set("i", s.department)

	body, err := s.client.Get(ctx, s.baseURL+"/s?"+params.Encode(), acceptHTML)
	if errors.Is(err, httpclient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "amazon search")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.parseResults(body, limit)
}

// Lookup searches by ISBN. Amazon ranks loose keyword matches alongside the
// exact edition, so only a result whose ASIN is that ISBN counts.
func (s *Scraper) Lookup(ctx context.Context, isbn string) (*scrapers.Candidate, error) {
	isbn = identifiers.NormalizeISBN(isbn)
	if isbn == "" {
		return nil, nil
	}
	results, err := s.Search(ctx, scrapers.Query{ISBN: isbn, Limit: lookupLimit})
	if err != nil {
		return nil, err
	}
	for _, c := range results {
		if !c.HasISBN(isbn) {
			continue
		}
		if c.ISBN13 == "" {
			c.ISBN13, _ = identifiers.ToISBN13(c.ISBN10)
		}
		return &c, nil
	}
	return nil, nil
}

var (
	seriesParenRE = regexp.MustCompile(`(?i)\s*[(\[]([^()\[\]]+?)[,:]?\s+(?:book|vol\.?|volume|part|#)\s*(\d+(?:\.\d+)?)[)\]]`)
	bookOfRE      = regexp.MustCompile(`(?i)^book (\d+(?:\.\d+)?) of \d+:\s*(.+)$`)
	asinRE        = regexp.MustCompile(`^[A-Z0-9]{10}$`)
)

var releaseDateLayouts = []string{"Jan 2, 2006", "January 2, 2006", "Jan 2006", "2006"}

func (s *Scraper) parseResults(body []byte, limit int) ([]scrapers.Candidate, error) {
	if bytes.Contains(body, []byte("/errors/validateCaptcha")) {
		return nil, ErrBlocked
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "parse amazon results")
	}

	items := htmlutil.FindAll(doc, func(n *html.Node) bool {
		return htmlutil.Attr(n, "data-component-type") == "s-search-result" ||
			(htmlutil.HasClass(n, "s-result-item") && htmlutil.Attr(n, "data-asin") != "")
	})

	candidates := make([]scrapers.Candidate, 0, min(len(items), limit))
	for _, item := range items {
		if len(candidates) >= limit {
			break
		}
		if c, ok := s.parseItem(item); ok {
			candidates = append(candidates, c)
		}
	}
	return candidates, nil
}

func (s *Scraper) parseItem(item *html.Node) (scrapers.Candidate, bool) {
	asin := strings.TrimSpace(htmlutil.Attr(item, "data-asin"))
	if !asinRE.MatchString(asin) {
		return scrapers.Candidate{}, false
	}
	heading := htmlutil.FindFirst(item, func(n *html.Node) bool { return n.Data == "h2" })
	title := htmlutil.Text(heading)
	if title == "" {
		return scrapers.Candidate{}, false
	}

	c := scrapers.Candidate{
		ExternalID: asin,
		Source:     s.source,
		URL:        s.baseURL + "/dp/" + asin,
	}
	if identifiers.ValidateISBN10(asin) {
		c.ISBN10 = asin
	}

	if m := seriesParenRE.FindStringSubmatchIndex(title); m != nil {
		c.Series = strings.TrimSpace(title[m[2]:m[3]])
		if v, err := strconv.ParseFloat(title[m[4]:m[5]], 64); err == nil {
			c.Volume = &v
		}
		title = strings.TrimSpace(title[:m[0]] + title[m[1]:])
	}
	c.Title, c.Subtitle = cleanup.SplitSubtitle(cleanup.CleanTitle(title))

	if link := htmlutil.FindFirst(item, func(n *html.Node) bool {
		return n.Data == "a" && bookOfRE.MatchString(htmlutil.Text(n))
	}); link != nil {
		m := bookOfRE.FindStringSubmatch(htmlutil.Text(link))
		if c.Series == "" {
			c.Series = strings.TrimSpace(m[2])
		}
		if c.Volume == nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				c.Volume = &v
			}
		}
	}
	if c.Volume == nil {
		if _, vol := cleanup.ExtractVolume(c.Title); vol != nil {
			c.Volume = vol
		}
	}

	if img := htmlutil.FindFirst(item, func(n *html.Node) bool {
		return n.Data == "img" && htmlutil.HasClass(n, "s-image")
	}); img != nil {
		c.CoverURL = htmlutil.Attr(img, "src")
	}

	byline := htmlutil.FindFirst(item, func(n *html.Node) bool {
		return htmlutil.HasClass(n, "a-row") && strings.HasPrefix(htmlutil.Text(n), "by ")
	})
	if byline != nil {
		c.Authors, c.ReleaseDate = parseByline(htmlutil.Text(byline))
	}
	return c, true
}

// parseByline reads "by Author One and Author Two | Jun 15, 2011".
func parseByline(s string) ([]string, *time.Time) {
	s = strings.TrimPrefix(s, "by ")
	parts := strings.Split(s, "|")

	authors := cleanup.SplitAuthors(strings.TrimSpace(parts[0]))
	var released *time.Time
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		for _, layout := range releaseDateLayouts {
			if t, err := time.Parse(layout, part); err == nil {
				released = &t
				break
			}
		}
	}
	return authors, released
}
