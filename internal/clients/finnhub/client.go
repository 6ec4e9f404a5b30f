// Package finnhub provides a cache-first client for the Finnhub market news API.
package finnhub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/aristath/signalist/internal/clientdata"
	"github.com/aristath/signalist/internal/domain"
)

// DefaultBaseURL is the public Finnhub REST endpoint
const DefaultBaseURL = "https://finnhub.io/api/v1"

var (
	// ErrMissingAPIKey is returned when no API key is configured
	ErrMissingAPIKey = errors.New("finnhub API key not configured")
	// ErrRateLimited is returned when Finnhub answers 429
	ErrRateLimited = errors.New("finnhub rate limit exceeded")
)

// Client for the Finnhub REST API
type Client struct {
	baseURL   string
	apiKey    string
	client    *http.Client
	cacheRepo *clientdata.Repository
	clock     clockwork.Clock
	log       zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithClock overrides the clock used for date ranges
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// NewClient creates a new Finnhub client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(baseURL, apiKey string, cacheRepo *clientdata.Repository, log zerolog.Logger, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:   baseURL,
		apiKey:    apiKey,
		client:    &http.Client{Timeout: 15 * time.Second},
		cacheRepo: cacheRepo,
		clock:     clockwork.NewRealClock(),
		log:       log.With().Str("client", "finnhub").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CompanyNews fetches news for one symbol between two dates (YYYY-MM-DD).
// Fresh cache entries are served without calling the API; on API failure
// stale entries are returned when present.
func (c *Client) CompanyNews(ctx context.Context, symbol, from, to string) ([]domain.RawArticle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("from", from)
	params.Set("to", to)

	return c.cachedGet(ctx, clientdata.TableCompanyNews, symbol+":"+from+":"+to, clientdata.TTLCompanyNews, "/company-news", params)
}

// GeneralNews fetches the general market news feed
func (c *Client) GeneralNews(ctx context.Context) ([]domain.RawArticle, error) {
	params := url.Values{}
	params.Set("category", "general")

	return c.cachedGet(ctx, clientdata.TableGeneralNews, "general", clientdata.TTLGeneralNews, "/news", params)
}

func (c *Client) cachedGet(ctx context.Context, table, key string, ttl time.Duration, path string, params url.Values) ([]domain.RawArticle, error) {
	if c.cacheRepo != nil {
		var cached []domain.RawArticle
		found, err := c.cacheRepo.GetIfFresh(table, key, &cached)
		if err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("Failed to read news cache")
		} else if found {
			c.log.Debug().Str("table", table).Str("key", key).Msg("Cache hit")
			return cached, nil
		}
	}

	articles, err := c.fetch(ctx, path, params)
	if err != nil {
		if stale, ok := c.getStaleFromCache(table, key); ok {
			c.log.Warn().
				Err(err).
				Str("table", table).
				Str("key", key).
				Int("articles", len(stale)).
				Msg("API failed, using stale cached news")
			return stale, nil
		}
		return nil, err
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(table, key, articles, ttl); err != nil {
			c.log.Warn().Err(err).Str("key", key).Msg("Failed to cache news")
		}
	}

	return articles, nil
}

func (c *Client) fetch(ctx context.Context, path string, params url.Values) ([]domain.RawArticle, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	params.Set("token", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("API returned status %d for %s", resp.StatusCode, path)
	}

	var articles []domain.RawArticle
	if err := json.NewDecoder(resp.Body).Decode(&articles); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	c.log.Debug().Str("path", path).Int("articles", len(articles)).Msg("Fetched news")
	return articles, nil
}

// getStaleFromCache retrieves cached news even if expired.
func (c *Client) getStaleFromCache(table, key string) ([]domain.RawArticle, bool) {
	if c.cacheRepo == nil {
		return nil, false
	}

	var cached []domain.RawArticle
	found, err := c.cacheRepo.Get(table, key, &cached)
	if err != nil || !found {
		return nil, false
	}
	return cached, true
}
