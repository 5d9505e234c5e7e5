package render

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/use-agent/quizhook/config"
	"github.com/use-agent/quizhook/fetch"
	"github.com/use-agent/quizhook/page"
)

// Playwright renders pages through the Playwright driver. Every session gets
// its own browser context so cookies and storage never leak between visits.
type Playwright struct {
	pw         *playwright.Playwright
	browser    playwright.Browser
	cfg        config.BrowserConfig
	navTimeout time.Duration
	blocked    map[string]struct{}
	slots      chan struct{}
	active     atomic.Int32
}

// NewPlaywright starts the driver and launches Chromium.
func NewPlaywright(cfg config.BrowserConfig, navTimeout time.Duration) (*Playwright, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("render: start playwright: %w", err)
	}

	opts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		Args:     []string{"--disable-blink-features=AutomationControlled", "--disable-dev-shm-usage"},
	}
	if cfg.NoSandbox {
		opts.Args = append(opts.Args, "--no-sandbox")
	}
	if cfg.BrowserBin != "" {
		opts.ExecutablePath = playwright.String(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		opts.Proxy = &playwright.Proxy{Server: cfg.Proxy}
	}

	browser, err := pw.Chromium.Launch(opts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("render: launch chromium: %w", err)
	}
	slog.Info("browser launched", "backend", "playwright")

	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 1
	}
	return &Playwright{
		pw:         pw,
		browser:    browser,
		cfg:        cfg,
		navTimeout: navTimeout,
		blocked:    blockedPlaywrightTypes(cfg.BlockedResourceTypes),
		slots:      make(chan struct{}, cfg.MaxSessions),
	}, nil
}

func (p *Playwright) Name() string { return "playwright" }

func (p *Playwright) Open(ctx context.Context, rawURL string) (Session, error) {
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	p.active.Add(1)
	release := func() {
		p.active.Add(-1)
		<-p.slots
	}

	bctx, err := p.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(fetch.ChromeUA),
	})
	if err != nil {
		release()
		return nil, fmt.Errorf("render: new browser context: %w", err)
	}
	if len(p.blocked) > 0 {
		if routeErr := bctx.Route("**/*", blockingRoute(p.blocked)); routeErr != nil {
			slog.Debug("playwright: resource blocking unavailable", "url", rawURL, "error", routeErr)
		}
	}

	pg, err := bctx.NewPage()
	if err != nil {
		if cerr := bctx.Close(); cerr != nil {
			slog.Debug("playwright: context close failed", "error", cerr)
		}
		release()
		return nil, fmt.Errorf("render: new page: %w", err)
	}
	s := &playwrightSession{ctx: bctx, page: pg, url: rawURL, release: release}

	pg.SetDefaultNavigationTimeout(float64(boundedTimeout(ctx, p.navTimeout).Milliseconds()))
	if _, err := pg.Goto(rawURL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("render: navigate %s: %w", rawURL, err)
	}
	if final := pg.URL(); final != "" {
		s.url = final
	}
	return s, nil
}

func (p *Playwright) Stats() Stats {
	return Stats{
		Backend:        p.Name(),
		MaxSessions:    p.cfg.MaxSessions,
		ActiveSessions: int(p.active.Load()),
	}
}

func (p *Playwright) Close() error {
	slog.Info("playwright renderer shutting down")
	if err := p.browser.Close(); err != nil {
		slog.Warn("playwright: browser close failed", "error", err)
	}
	return p.pw.Stop()
}

// blockingRoute aborts requests for the blocked resource types and lets
// everything else through.
func blockingRoute(blocked map[string]struct{}) func(playwright.Route) {
	return func(route playwright.Route) {
		if _, ok := blocked[route.Request().ResourceType()]; ok {
			if err := route.Abort(); err != nil {
				slog.Debug("playwright: abort request failed", "error", err)
			}
			return
		}
		if err := route.Continue(); err != nil {
			slog.Debug("playwright: continue request failed", "error", err)
		}
	}
}

type playwrightSession struct {
	ctx     playwright.BrowserContext
	page    playwright.Page
	url     string
	release func()

	closed    atomic.Bool
	closeOnce sync.Once
}

func (s *playwrightSession) URL() string { return s.url }

func (s *playwrightSession) HTML(ctx context.Context) (string, error) {
	if s.closed.Load() {
		return "", page.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return s.page.Content()
}

func (s *playwrightSession) WaitForQuiescence(ctx context.Context, timeout time.Duration) error {
	if s.closed.Load() {
		return page.ErrSessionClosed
	}
	return s.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(float64(boundedTimeout(ctx, timeout).Milliseconds())),
	})
}

func (s *playwrightSession) Query(ctx context.Context, selector string) (page.Element, bool, error) {
	if s.closed.Load() {
		return nil, false, page.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	el, err := s.page.QuerySelector(selector)
	if err != nil {
		return nil, false, fmt.Errorf("render: query %q: %w", selector, err)
	}
	if el == nil {
		return nil, false, nil
	}
	return &playwrightElement{session: s, el: el}, true, nil
}

func (s *playwrightSession) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if err := s.page.Close(); err != nil {
			slog.Debug("playwright: page close failed", "error", err)
		}
		if err := s.ctx.Close(); err != nil {
			slog.Debug("playwright: context close failed", "error", err)
		}
		s.release()
	})
	return nil
}

type playwrightElement struct {
	session *playwrightSession
	el      playwright.ElementHandle
}

func (e *playwrightElement) Text(ctx context.Context) (string, error) {
	if e.session.closed.Load() {
		return "", page.ErrSessionClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.el.InnerText()
}

// boundedTimeout returns d, shortened to the time left before ctx's
// deadline. Playwright calls take millisecond timeouts instead of contexts.
func boundedTimeout(ctx context.Context, d time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < d {
			d = left
		}
	}
	if d < time.Millisecond {
		d = time.Millisecond
	}
	return d
}
