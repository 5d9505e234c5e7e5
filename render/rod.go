package render

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/quizhook/config"
	"github.com/use-agent/quizhook/page"
)

// Rod renders pages in a shared Chromium driven over CDP. Tabs are pooled
// and reused; the pool size bounds concurrent sessions.
type Rod struct {
	browser    *rod.Browser
	pagePool   rod.Pool[rod.Page]
	cfg        config.BrowserConfig
	navTimeout time.Duration
	active     atomic.Int32
}

// NewRod launches a browser and initialises the page pool.
func NewRod(cfg config.BrowserConfig, navTimeout time.Duration) (*Rod, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("render: launch browser: %w", err)
	}
	slog.Info("browser launched", "backend", "rod", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("render: connect to browser: %w", err)
	}

	maxSessions := cfg.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1
	}
	cfg.MaxSessions = maxSessions

	return &Rod{
		browser:    browser,
		pagePool:   rod.NewPagePool(maxSessions),
		cfg:        cfg,
		navTimeout: navTimeout,
	}, nil
}

func (r *Rod) Name() string { return "rod" }

// Open acquires a tab and navigates it.
//
//  1. Acquire page   – borrow a tab from the pool (blocks when all are busy)
//  2. Stealth        – mask navigator.webdriver etc. before navigation
//  3. Headers        – extra request headers for every request of the tab
//  4. Hijack         – block the configured resource types
//  5. Navigate       – bounded by the navigation timeout
//  6. Load           – wait for the load event, best effort
//
// On any failure the tab goes back to the pool before Open returns.
func (r *Rod) Open(ctx context.Context, rawURL string) (Session, error) {
	// ── 1. Acquire page from pool ─────────────────────────────────────
	p, err := r.pagePool.Get(func() (*rod.Page, error) {
		return r.browser.Page(proto.TargetCreateTarget{})
	})
	if err != nil {
		return nil, fmt.Errorf("render: acquire page: %w", err)
	}
	r.active.Add(1)
	s := &rodSession{owner: r, page: p, url: rawURL}

	// ── 2. Stealth injection ──────────────────────────────────────────
	if r.cfg.Stealth {
		if _, evalErr := p.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}

	// ── 3. Extra headers ─────────────────────────────────────────────
	headers := map[string]string{"Accept-Language": "en-US,en;q=0.9"}
	if u, parseErr := url.Parse(rawURL); parseErr == nil && u.Host != "" {
		headers["Referer"] = u.Scheme + "://" + u.Host + "/"
	}
	_ = proto.NetworkSetExtraHTTPHeaders{Headers: toHeadersMap(headers)}.Call(p)

	// ── 4. Mount hijack router ───────────────────────────────────────
	s.router = setupHijack(p, r.cfg.BlockedResourceTypes)

	// ── 5. Navigate ───────────────────────────────────────────────────
	navCtx, cancel := context.WithTimeout(ctx, r.navTimeout)
	defer cancel()
	nav := p.Context(navCtx)
	if err := nav.Navigate(rawURL); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("render: navigate %s: %w", rawURL, err)
	}

	// ── 6. Load event ─────────────────────────────────────────────────
	if err := nav.WaitLoad(); err != nil {
		slog.Debug("load event not observed, proceeding with current DOM", "url", rawURL, "error", err)
	}
	if final := evalStringOrEmpty(nav, `() => window.location.href`); final != "" && final != "about:blank" {
		s.url = final
	}
	return s, nil
}

func (r *Rod) Stats() Stats {
	return Stats{
		Backend:        r.Name(),
		MaxSessions:    r.cfg.MaxSessions,
		ActiveSessions: int(r.active.Load()),
	}
}

// Close drains the page pool and kills the browser process.
func (r *Rod) Close() error {
	slog.Info("rod renderer shutting down: draining page pool")
	r.pagePool.Cleanup(func(p *rod.Page) {
		_ = p.Close()
	})
	return r.browser.Close()
}

type rodSession struct {
	owner  *Rod
	page   *rod.Page
	router *rod.HijackRouter
	url    string

	closed    atomic.Bool
	closeOnce sync.Once
}

func (s *rodSession) URL() string { return s.url }

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	if s.closed.Load() {
		return "", page.ErrSessionClosed
	}
	return s.page.Context(ctx).HTML()
}

func (s *rodSession) WaitForQuiescence(ctx context.Context, timeout time.Duration) error {
	if s.closed.Load() {
		return page.ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	// WaitRequestIdle would compete with the hijack router for the Fetch
	// domain, so settle on DOM stability instead.
	return s.page.Context(ctx).WaitDOMStable(300*time.Millisecond, 0.1)
}

func (s *rodSession) Query(ctx context.Context, selector string) (page.Element, bool, error) {
	if s.closed.Load() {
		return nil, false, page.ErrSessionClosed
	}
	has, el, err := s.page.Context(ctx).Has(selector)
	if err != nil {
		return nil, false, fmt.Errorf("render: query %q: %w", selector, err)
	}
	if !has {
		return nil, false, nil
	}
	return &rodElement{session: s, el: el}, true, nil
}

// Close stops interception, blanks the tab to release the old DOM and
// returns it to the pool. The original page reference is used so cleanup
// works after the request context has expired.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.router != nil {
			_ = s.router.Stop()
		}
		if err := s.page.Navigate("about:blank"); err != nil {
			slog.Warn("cleanup: failed to navigate to about:blank", "error", err)
		}
		s.owner.pagePool.Put(s.page)
		s.owner.active.Add(-1)
	})
	return nil
}

type rodElement struct {
	session *rodSession
	el      *rod.Element
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	if e.session.closed.Load() {
		return "", page.ErrSessionClosed
	}
	return e.el.Context(ctx).Text()
}

// evalStringOrEmpty evaluates a JS function and returns its string result,
// swallowing errors.
func evalStringOrEmpty(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to proto.NetworkHeaders
// (map[string]gson.JSON).
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
