// Package httpclient is the HTTP client shared by every scraper. Requests are
// rate limited per source, guarded by a circuit breaker, optionally cached in
// Redis, and recorded in Prometheus.
package httpclient

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shelfwatch/shelfwatch/pkg/metrics"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const maxBodyBytes = 8 << 20

// ErrNotFound is returned for 404 responses. It does not count as a failure
// for the circuit breaker.
var ErrNotFound = errors.New("resource not found")

// StatusError is returned for any other non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

type Options struct {
	// Source names the breaker and labels metrics, e.g. "openlibrary".
	Source            string
	Timeout           time.Duration
	RequestsPerMinute int
	// Limiter, when set, replaces the per-client limiter built from
	// RequestsPerMinute. Clients talking to the same host share one.
	Limiter   *rate.Limiter
	UserAgent string
	Cache     Cache
	CacheTTL  time.Duration
	// Transport overrides the default transport. Used by tests.
	Transport http.RoundTripper
}

type Client struct {
	source    string
	http      *http.Client
	limiter   *rate.Limiter
	breaker   *gobreaker.CircuitBreaker[[]byte]
	cache     Cache
	cacheTTL  time.Duration
	userAgent string
	log       logger.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	limiter := opts.Limiter
	if limiter == nil {
		limiter = NewLimiter(opts.RequestsPerMinute)
	}

	c := &Client{
		source:    opts.Source,
		http:      &http.Client{Timeout: opts.Timeout, Transport: opts.Transport},
		limiter:   limiter,
		cache:     opts.Cache,
		cacheTTL:  opts.CacheTTL,
		userAgent: opts.UserAgent,
		log:       logger.New(),
	}

	metrics.CircuitBreakerState.WithLabelValues(opts.Source).Set(0)
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        opts.Source,
		MaxRequests: 1,
		Interval:    5 * time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.log.Warn("circuit breaker state change", logger.Data{"name": name, "from": from.String(), "to": to.String()})
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
	return c
}

// NewLimiter allows requestsPerMinute requests with bursts of a tenth of
// that. Zero or less means unlimited.
func NewLimiter(requestsPerMinute int) *rate.Limiter {
	if requestsPerMinute <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	every := rate.Every(time.Minute / time.Duration(requestsPerMinute))
	return rate.NewLimiter(every, max(1, requestsPerMinute/10))
}

// Get fetches url and returns the body. Cached bodies are returned without
// touching the network.
func (c *Client) Get(ctx context.Context, url string, accept string) ([]byte, error) {
	key := c.cacheKey(url)
	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			logger.FromContext(ctx).Err(err).Warn("scrape cache read failed", logger.Data{"source": c.source})
		} else if ok {
			metrics.ScrapeRequests.WithLabelValues(c.source, "cached").Inc()
			return body, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.WithStack(err)
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, url, accept)
	})
	metrics.ScrapeDuration.WithLabelValues(c.source).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.ScrapeRequests.WithLabelValues(c.source, "rejected").Inc()
		return nil, errors.Wrapf(err, "%s unavailable", c.source)
	case err != nil:
		metrics.ScrapeRequests.WithLabelValues(c.source, "error").Inc()
		return nil, err
	}
	metrics.ScrapeRequests.WithLabelValues(c.source, "success").Inc()

	if c.cache != nil && c.cacheTTL > 0 {
		if err := c.cache.Set(ctx, key, body, c.cacheTTL); err != nil {
			logger.FromContext(ctx).Err(err).Warn("scrape cache write failed", logger.Data{"source": c.source})
		}
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, url string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.WithStack(ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.WithStack(&StatusError{StatusCode: resp.StatusCode, URL: url})
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return body, nil
}

func (c *Client) cacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return c.source + ":" + hex.EncodeToString(sum[:])
}

// State exposes the breaker state for health reporting.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
