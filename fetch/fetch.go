// Package fetch downloads linked documents over HTTP with a browser-like
// TLS fingerprint and a hard cap on body size.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrTooLarge is returned when a response body exceeds Options.MaxBody.
var ErrTooLarge = errors.New("fetch: response body too large")

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch: HTTP %d for %s", e.StatusCode, e.URL)
}

// Options configures a Client. Zero values take the defaults noted.
type Options struct {
	Timeout   time.Duration // per download; default 60s
	MaxBody   int64         // bytes; default 25 MiB
	UserAgent string        // default ChromeUA
	Proxy     string
}

func (o *Options) defaults() {
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxBody <= 0 {
		o.MaxBody = 25 << 20
	}
	if o.UserAgent == "" {
		o.UserAgent = ChromeUA
	}
}

// Client fetches documents. It is safe for concurrent use.
type Client struct {
	http *http.Client
	opts Options
}

// New creates a Client on a Chrome-fingerprinted transport.
func New(opts Options) (*Client, error) {
	opts.defaults()
	transport, err := NewTransport(opts.Proxy)
	if err != nil {
		return nil, err
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("fetch: too many redirects")
				}
				return nil
			},
		},
		opts: opts,
	}, nil
}

// Response is a completed download.
type Response struct {
	// URL is the final URL after redirects.
	URL         string
	ContentType string
	Body        []byte
}

// Fetch downloads rawURL and returns its body. The download is bounded by
// the client timeout as well as ctx.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Get is Fetch with response metadata.
func (c *Client) Get(ctx context.Context, rawURL string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: request %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBody+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if int64(len(body)) > c.opts.MaxBody {
		return nil, ErrTooLarge
	}
	return &Response{
		URL:         resp.Request.URL.String(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

// HTTPClient exposes the underlying client for callers that share the
// transport.
func (c *Client) HTTPClient() *http.Client { return c.http }
