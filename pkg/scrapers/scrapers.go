// Package scrapers defines the external metadata sources a book or watchlist
// can be checked against, and the registry that picks one by location type.
package scrapers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/identifiers"
	"github.com/shelfwatch/shelfwatch/pkg/models"
)

// Query describes what to search for. Empty fields are ignored.
type Query struct {
	Title   string
	Authors []string
	Series  string
	ISBN    string
	Limit   int
}

// Candidate is one normalized search result from an external source.
type Candidate struct {
	Title       string              `json:"title"`
	Subtitle    string              `json:"subtitle,omitempty"`
	Authors     []string            `json:"authors,omitempty"`
	Series      string              `json:"series,omitempty"`
	Volume      *float64            `json:"volume,omitempty"`
	ISBN10      string              `json:"isbn10,omitempty"`
	ISBN13      string              `json:"isbn13,omitempty"`
	Publisher   string              `json:"publisher,omitempty"`
	Language    string              `json:"language,omitempty"`
	ReleaseDate *time.Time          `json:"release_date,omitempty"`
	Description string              `json:"description,omitempty"`
	CoverURL    string              `json:"cover_url,omitempty"`
	PageCount   *int                `json:"page_count,omitempty"`
	Categories  []string            `json:"categories,omitempty"`
	URL         string              `json:"url,omitempty"`
	ExternalID  string              `json:"external_id"`
	Source      models.LocationType `json:"source"`
}

// HasISBN reports whether the candidate carries isbn in either form. isbn
// must already be normalized.
func (c *Candidate) HasISBN(isbn string) bool {
	if isbn == "" {
		return false
	}
	for _, v := range append(identifiers.Equivalents(isbn), isbn) {
		if strings.EqualFold(c.ISBN13, v) || strings.EqualFold(c.ISBN10, v) {
			return true
		}
	}
	return false
}

// Scraper is implemented by every external metadata source.
type Scraper interface {
	Source() models.LocationType
	Search(ctx context.Context, q Query) ([]Candidate, error)
	// Lookup returns nil without error when the source has no record of isbn.
	Lookup(ctx context.Context, isbn string) (*Candidate, error)
}

// SourcePriority orders sources when everything else ties; lower wins.
var SourcePriority = map[models.LocationType]int{
	models.LocationTypeOpenLibrary: 0,
	models.LocationTypeAmazon:      1,
	models.LocationTypeKindle:      2,
}

// Priority returns the source's tie-break priority. Unknown sources sort last.
func Priority(source models.LocationType) int {
	if p, ok := SourcePriority[source]; ok {
		return p
	}
	return len(SourcePriority)
}

type Registry struct {
	mu       sync.RWMutex
	scrapers map[models.LocationType]Scraper
}

func NewRegistry(scrapers ...Scraper) *Registry {
	r := &Registry{scrapers: map[models.LocationType]Scraper{}}
	for _, s := range scrapers {
		r.Register(s)
	}
	return r
}

// Register adds s under its own source, replacing any earlier scraper for
// that source.
func (r *Registry) Register(s Scraper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrapers[s.Source()] = s
}

// ForSource returns the scraper for a location type.
func (r *Registry) ForSource(source models.LocationType) (Scraper, error) {
	if !source.Scrapable() {
		return nil, errcodes.ValidationError(fmt.Sprintf("Location type %q has no scraper.", source))
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scrapers[source]
	if !ok {
		return nil, errcodes.ValidationError(fmt.Sprintf("No scraper is configured for %q.", source))
	}
	return s, nil
}

// All returns every registered scraper ordered by source priority.
func (r *Registry) All() []Scraper {
	r.mu.RLock()
	out := make([]Scraper, 0, len(r.scrapers))
	for _, s := range r.scrapers {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return Priority(out[i].Source()) < Priority(out[j].Source())
	})
	return out
}
