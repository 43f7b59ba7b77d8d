// Package sources builds the scraper registry from configuration.
package sources

import (
	"net/url"

	"github.com/shelfwatch/shelfwatch/pkg/config"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers/amazon"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers/httpclient"
	"github.com/shelfwatch/shelfwatch/pkg/scrapers/openlibrary"
	"golang.org/x/time/rate"
)

// NewRegistry registers OpenLibrary, Amazon and Kindle. Each source gets its
// own client and breaker, so one tripping does not hold up the others. The
// rate limit is per host: Amazon and Kindle draw from the same budget. cache
// may be nil.
func NewRegistry(cfg *config.Config, cache httpclient.Cache) *scrapers.Registry {
	limiters := newHostLimiters(cfg.ScraperRequestsPerMinute)
	client := func(source models.LocationType, baseURL string) *httpclient.Client {
		return httpclient.New(httpclient.Options{
			Source:    string(source),
			Timeout:   cfg.ScraperTimeout,
			Limiter:   limiters.forURL(baseURL),
			UserAgent: cfg.ScraperUserAgent,
			Cache:     cache,
			CacheTTL:  cfg.ScraperCacheTTL,
		})
	}

	registry := scrapers.NewRegistry()
	if cfg.OpenLibraryURL != "" {
		registry.Register(openlibrary.New(client(models.LocationTypeOpenLibrary, cfg.OpenLibraryURL), cfg.OpenLibraryURL))
	}
	if cfg.AmazonURL != "" {
		registry.Register(amazon.New(client(models.LocationTypeAmazon, cfg.AmazonURL), cfg.AmazonURL))
		registry.Register(amazon.NewKindle(client(models.LocationTypeKindle, cfg.AmazonURL), cfg.AmazonURL))
	}
	return registry
}

type hostLimiters struct {
	requestsPerMinute int
	byHost            map[string]*rate.Limiter
}

func newHostLimiters(requestsPerMinute int) *hostLimiters {
	return &hostLimiters{requestsPerMinute: requestsPerMinute, byHost: map[string]*rate.Limiter{}}
}

// forURL returns the limiter for rawURL's host, creating it on first use.
// Unparseable URLs share the limiter of the empty host.
func (h *hostLimiters) forURL(rawURL string) *rate.Limiter {
	var host string
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	if l, ok := h.byHost[host]; ok {
		return l
	}
	l := httpclient.NewLimiter(h.requestsPerMinute)
	h.byHost[host] = l
	return l
}
