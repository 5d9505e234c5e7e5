package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html"

	"github.com/use-agent/quizhook/fetch"
	"github.com/use-agent/quizhook/page"
)

// Static "renders" a page by downloading it over HTTP. Scripts never run,
// so it only helps for pages whose content is in the served HTML. It is
// the last resort when no browser can be started.
type Static struct {
	fetcher *fetch.Client
	active  atomic.Int32
}

// NewStatic wraps a fetch client. The client's timeout bounds navigation.
func NewStatic(fetcher *fetch.Client) *Static {
	return &Static{fetcher: fetcher}
}

func (s *Static) Name() string { return "static" }

func (s *Static) Open(ctx context.Context, rawURL string) (Session, error) {
	resp, err := s.fetcher.Get(ctx, rawURL)
	if err != nil {
		return nil, fmt.Errorf("render: static get: %w", err)
	}
	if ct := strings.ToLower(resp.ContentType); ct != "" &&
		!strings.Contains(ct, "html") && !strings.Contains(ct, "text/plain") {
		return nil, fmt.Errorf("render: static get %s: not a page (%s)", rawURL, resp.ContentType)
	}
	root, err := html.Parse(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, fmt.Errorf("render: parse %s: %w", rawURL, err)
	}
	s.active.Add(1)
	return &staticSession{owner: s, root: root, raw: string(resp.Body), url: resp.URL}, nil
}

func (s *Static) Stats() Stats {
	return Stats{Backend: s.Name(), ActiveSessions: int(s.active.Load())}
}

func (s *Static) Close() error { return nil }

type staticSession struct {
	owner  *Static
	root   *html.Node
	raw    string
	url    string
	closed atomic.Bool
}

func (s *staticSession) URL() string { return s.url }

func (s *staticSession) HTML(context.Context) (string, error) {
	if s.closed.Load() {
		return "", page.ErrSessionClosed
	}
	return s.raw, nil
}

// WaitForQuiescence returns at once: a downloaded document never changes.
func (s *staticSession) WaitForQuiescence(context.Context, time.Duration) error {
	return nil
}

func (s *staticSession) Query(_ context.Context, selector string) (page.Element, bool, error) {
	if s.closed.Load() {
		return nil, false, page.ErrSessionClosed
	}
	sel, err := cascadia.Parse(selector)
	if err != nil {
		return nil, false, fmt.Errorf("render: selector %q: %w", selector, err)
	}
	n := cascadia.Query(s.root, sel)
	if n == nil {
		return nil, false, nil
	}
	return &staticElement{session: s, node: n}, true, nil
}

func (s *staticSession) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.owner.active.Add(-1)
	}
	return nil
}

type staticElement struct {
	session *staticSession
	node    *html.Node
}

func (e *staticElement) Text(context.Context) (string, error) {
	if e.session.closed.Load() {
		return "", page.ErrSessionClosed
	}
	return goquery.NewDocumentFromNode(e.node).Text(), nil
}
