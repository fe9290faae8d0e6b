// Package source retrieves psalm pages from the online bible edition and
// extracts their raw verses.
package source

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/FocuswithJustin/PsalmSlides/core/errors"
	"github.com/FocuswithJustin/PsalmSlides/core/ir"
	"github.com/FocuswithJustin/PsalmSlides/internal/logging"
)

// Defaults for the public Einheitsübersetzung edition.
const (
	DefaultBaseURL    = "https://bibel.github.io/EUe/ot/"
	DefaultPathFormat = "Ps_%d.html"
	DefaultUserAgent  = "psalmslides/1.0"
	DefaultTimeout    = 60 * time.Second
)

// maxPageSize bounds a single page download.
const maxPageSize = 8 << 20

// Cache is the subset of the page cache the client uses.
type Cache interface {
	Get(ctx context.Context, url string, maxAge time.Duration) ([]byte, bool, error)
	Put(ctx context.Context, url string, body []byte) error
}

// Options configure a Client.
type Options struct {
	BaseURL    string
	PathFormat string
	UserAgent  string
	Timeout    time.Duration

	// RequestsPerSecond limits outgoing requests; zero disables the limit.
	RequestsPerSecond float64
	Burst             int

	// Cache, when set, serves pages younger than MaxAge without a request.
	Cache  Cache
	MaxAge time.Duration

	// Transport overrides the HTTP transport. Requests are logged either way.
	Transport http.RoundTripper
}

// Client fetches psalm pages.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	pathFormat string
	userAgent  string
	cache      Cache
	maxAge     time.Duration
}

// NewClient creates a client, filling unset options with defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.PathFormat == "" {
		opts.PathFormat = DefaultPathFormat
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := max(opts.Burst, 1)
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   opts.Timeout,
			Transport: logging.NewTransport(opts.Transport),
		},
		limiter:    limiter,
		baseURL:    opts.BaseURL,
		pathFormat: opts.PathFormat,
		userAgent:  opts.UserAgent,
		cache:      opts.Cache,
		maxAge:     opts.MaxAge,
	}
}

// URL returns the page address of a psalm.
func (c *Client) URL(poem int) string {
	return c.baseURL + fmt.Sprintf(c.pathFormat, poem)
}

// Fetch downloads and parses one psalm.
func (c *Client) Fetch(ctx context.Context, poem int) ([]ir.RawVerse, error) {
	url := c.URL(poem)

	body, err := c.page(ctx, poem, url)
	if err != nil {
		return nil, err
	}

	verses, err := Parse(poem, bytes.NewReader(body))
	if err != nil {
		var fe *errors.FetchError
		if errors.As(err, &fe) {
			fe.URL = url
		}
		return nil, err
	}
	return verses, nil
}

func (c *Client) page(ctx context.Context, poem int, url string) ([]byte, error) {
	if c.cache != nil {
		body, ok, err := c.cache.Get(ctx, url, c.maxAge)
		if err != nil {
			logging.WarnContext(ctx, "page cache read failed", "url", url, "error", err)
		} else if ok {
			logging.DebugContext(ctx, "page cache hit", "url", url)
			return body, nil
		}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.NewFetch(poem, url, "rate limiter", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewFetch(poem, url, "creating request", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewFetch(poem, url, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		fe := errors.NewFetch(poem, url, http.StatusText(resp.StatusCode), nil)
		fe.StatusCode = resp.StatusCode
		return nil, fe
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return nil, errors.NewFetch(poem, url, "reading response", err)
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, url, body); err != nil {
			logging.WarnContext(ctx, "page cache write failed", "url", url, "error", err)
		}
	}
	return body, nil
}
