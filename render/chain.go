package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/quizhook/page"
)

// preferenceTTL is how long a backend stays preferred for a host.
const preferenceTTL = time.Hour

type preference struct {
	backend string
	until   time.Time
}

// Chain tries its backends in order and returns the first session that
// opens. Backends are tried one at a time, never raced: a quiz page may
// count visits.
//
// The backend that last rendered a host is tried first on the next visit
// to that host, unless the page it produced had no visible text: a blank
// quiz page usually means the backend could not run the page's scripts.
type Chain struct {
	backends []Renderer
	ttl      time.Duration

	mu        sync.Mutex
	preferred map[string]preference // host -> backend
}

// NewChain builds a Chain over backends, in fallback order.
func NewChain(backends ...Renderer) *Chain {
	return &Chain{
		backends:  backends,
		ttl:       preferenceTTL,
		preferred: make(map[string]preference),
	}
}

func (c *Chain) Name() string {
	names := make([]string, len(c.backends))
	for i, b := range c.backends {
		names[i] = b.Name()
	}
	return strings.Join(names, ">")
}

func (c *Chain) Open(ctx context.Context, rawURL string) (Session, error) {
	if len(c.backends) == 0 {
		return nil, ErrNoBackend
	}
	host := hostOf(rawURL)

	var errs []error
	for _, b := range c.order(host) {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		s, err := b.Open(ctx, rawURL)
		if err != nil {
			slog.Debug("backend failed to open page", "backend", b.Name(), "url", rawURL, "error", err)
			c.forget(host, b.Name())
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
			continue
		}
		c.prefer(host, b.Name())
		return &chainSession{Session: s, chain: c, host: host, backend: b.Name()}, nil
	}
	return nil, errors.Join(errs...)
}

// preferredFor returns the backend preferred for host, or "" if none is
// recorded or the record expired.
func (c *Chain) preferredFor(host string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.preferred[host]
	if !ok {
		return ""
	}
	if time.Now().After(p.until) {
		delete(c.preferred, host)
		return ""
	}
	return p.backend
}

// prefer records backend for host and drops expired records of other hosts.
func (c *Chain) prefer(host, backend string) {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for h, p := range c.preferred {
		if now.After(p.until) {
			delete(c.preferred, h)
		}
	}
	c.preferred[host] = preference{backend: backend, until: now.Add(c.ttl)}
}

// forget drops the record for host if it still names backend.
func (c *Chain) forget(host, backend string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.preferred[host].backend == backend {
		delete(c.preferred, host)
	}
}

// order returns the backends with the preferred one for host moved first.
func (c *Chain) order(host string) []Renderer {
	preferred := c.preferredFor(host)
	if preferred == "" {
		return c.backends
	}
	out := make([]Renderer, 0, len(c.backends))
	for _, b := range c.backends {
		if b.Name() == preferred {
			out = append(out, b)
		}
	}
	for _, b := range c.backends {
		if b.Name() != preferred {
			out = append(out, b)
		}
	}
	return out
}

// Stats sums sessions over all backends.
func (c *Chain) Stats() Stats {
	st := Stats{Backend: c.Name()}
	for _, b := range c.backends {
		bs := b.Stats()
		st.MaxSessions += bs.MaxSessions
		st.ActiveSessions += bs.ActiveSessions
	}
	return st
}

func (c *Chain) Close() error {
	var errs []error
	for _, b := range c.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Hostname()
}

// chainSession reports blank pages back to the Chain that opened it.
type chainSession struct {
	Session
	chain   *Chain
	host    string
	backend string
}

func (s *chainSession) HTML(ctx context.Context) (string, error) {
	raw, err := s.Session.HTML(ctx)
	if err == nil && page.VisibleText(raw) == "" {
		slog.Debug("backend rendered a blank page, dropping host preference",
			"backend", s.backend, "host", s.host)
		s.chain.forget(s.host, s.backend)
	}
	return raw, err
}
