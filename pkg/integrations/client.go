package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/depscope/pkg/cache"
	"github.com/matzehuels/depscope/pkg/errors"
	"github.com/matzehuels/depscope/pkg/observability"
)

// Client provides shared HTTP functionality for every Package Index backend.
// It handles response caching and common request headers.
//
// Clients never retry and never impose their own deadline; cancellation and
// timeouts come from the caller's context.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	namespace string
	ttl       time.Duration
	headers   map[string]string
}

// NewClient creates a Client storing responses in backend under namespace.
// Headers are applied to all requests made through this client.
// Pass nil for headers if no default headers are needed.
func NewClient(backend cache.Cache, namespace string, ttl time.Duration, headers map[string]string) *Client {
	if backend == nil {
		backend = cache.NewNullCache()
	}
	return &Client{
		http:      NewHTTPClient(),
		cache:     backend,
		namespace: namespace,
		ttl:       ttl,
		headers:   headers,
	}
}

// SetHTTPClient replaces the underlying transport client (tests use the
// httptest server's client).
func (c *Client) SetHTTPClient(h *http.Client) {
	c.http = h
}

// Namespace returns the cache namespace of this client.
func (c *Client) Namespace() string {
	return c.namespace
}

// FetchWithCache returns the body at url, consulting the cache under key
// first. The second result reports whether the body came from the cache.
//
// An empty key disables caching for this call. Cache read and write failures
// are not fatal: a failed read behaves as a miss and a failed write is
// dropped.
func (c *Client) FetchWithCache(ctx context.Context, key, url string) ([]byte, bool, error) {
	var full string
	if key != "" {
		full = cache.Key(c.namespace, key)
		if data, ok, err := c.cache.Get(ctx, full); err == nil && ok {
			observability.Cache().OnCacheHit(ctx, c.namespace)
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, c.namespace)
	}

	data, err := c.Fetch(ctx, url, nil)
	if err != nil {
		return nil, false, err
	}

	if key != "" {
		if err := c.cache.Set(ctx, full, data, c.ttl); err == nil {
			observability.Cache().OnCacheSet(ctx, c.namespace, len(data))
		}
	}
	return data, false, nil
}

// GetJSON fetches url through the cache and JSON-decodes the body into v.
// A body that does not decode is a ParseError.
func (c *Client) GetJSON(ctx context.Context, key, url string, v any) error {
	data, _, err := c.FetchWithCache(ctx, key, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Parse(err, "decode %s", url)
	}
	return nil
}

// GetText fetches url through the cache and returns the body as a string.
// Useful for non-JSON endpoints like POM files or plain text indexes.
func (c *Client) GetText(ctx context.Context, key, url string) (string, error) {
	data, _, err := c.FetchWithCache(ctx, key, url)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Fetch performs an uncached GET with additional headers merged with the
// client defaults. Request-specific headers override defaults for the same key.
func (c *Client) Fetch(ctx context.Context, rawURL string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", rawURL)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := req.URL.Host, req.URL.Path
	observability.HTTP().OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		observability.HTTP().OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", redact(rawURL))
	}
	defer resp.Body.Close()
	observability.HTTP().OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, rawURL); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, errors.Wrap(errors.ErrCodeNetwork, err, "read body of %s", redact(rawURL))
	}
	return buf.Bytes(), nil
}

func checkStatus(code int, rawURL string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound || code == http.StatusGone:
		return errors.NotFound("%s", redact(rawURL))
	default:
		return errors.New(errors.ErrCodeNetwork, "GET %s: status %d", redact(rawURL), code)
	}
}

// redact drops query strings from URLs before they reach error messages.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.RawQuery != "" {
		u.RawQuery = ""
		return u.String() + "?…"
	}
	return u.String()
}
