// Package imagesearch finds a stock photo for a vehicle through the Google
// Custom Search JSON API. Every failure reads as "no image found".
package imagesearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/veiculos/internal/cache"
)

const (
	DefaultBaseURL     = "https://www.googleapis.com/customsearch/v1"
	DefaultTimeout     = 5 * time.Second
	DefaultCacheTTL    = 24 * time.Hour
	errorBodyReadLimit = 512
	querySuffix        = "oficial"
	cacheScope         = "photo"
)

// Query describes the vehicle to find a photo for.
type Query struct {
	Brand string
	Model string
	Color string
	Type  string
}

// Term is the free-text search sent to the API:
// "{brand} {model} {color} {type} oficial".
func (q Query) Term() string {
	parts := make([]string, 0, 5)
	for _, p := range []string{q.Brand, q.Model, q.Color, q.Type} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(append(parts, querySuffix), " ")
}

// Client looks up images. A Client without credentials is valid and never
// finds anything.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cx         string
	cache      cache.Store
	cacheTTL   time.Duration
	logger     *slog.Logger
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the search endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if trimmed := strings.TrimSpace(baseURL); trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithCache remembers found URLs for ttl.
func WithCache(store cache.Store, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = store
		if ttl > 0 {
			c.cacheTTL = ttl
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func NewClient(apiKey, cx string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
		apiKey:     strings.TrimSpace(apiKey),
		cx:         strings.TrimSpace(cx),
		cacheTTL:   DefaultCacheTTL,
		logger:     logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != "" && c.cx != ""
}

// Lookup returns the URL of the first image result, or ok=false when there
// is none or anything went wrong. Errors are logged, never returned.
func (c *Client) Lookup(ctx context.Context, q Query) (imageURL string, ok bool) {
	if !c.Enabled() {
		return "", false
	}

	term := q.Term()
	key := cache.Key(cacheScope, strings.ToLower(term))

	if c.cache != nil {
		if v, err := c.cache.Get(ctx, key); err == nil {
			return v, true
		} else if !errors.Is(err, cache.ErrMiss) {
			c.logger.Warn("image cache read failed", slog.String("error", err.Error()))
		}
	}

	link, err := c.search(ctx, term)
	if err != nil {
		c.logger.Warn("image lookup failed",
			slog.String("query", term),
			slog.String("error", err.Error()),
		)
		return "", false
	}
	if link == "" {
		return "", false
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, link, c.cacheTTL); err != nil {
			c.logger.Warn("image cache write failed", slog.String("error", err.Error()))
		}
	}
	return link, true
}

// search calls the API and returns items[0].link, or "" when there are no
// items.
func (c *Client) search(ctx context.Context, term string) (string, error) {
	params := url.Values{}
	params.Set("q", term)
	params.Set("cx", c.cx)
	params.Set("key", c.apiKey)
	params.Set("searchType", "image")
	params.Set("num", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var body struct {
		Items []struct {
			Link string `json:"link"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(body.Items) == 0 {
		return "", nil
	}
	return strings.TrimSpace(body.Items[0].Link), nil
}
