package resolve

import (
	"context"
	"errors"
	"sync"

	"github.com/use-agent/quizhook/page"
)

// fakeDOM is a page.DOM backed by a selector → text map.
type fakeDOM struct {
	mu      sync.Mutex
	texts   map[string]string
	errs    map[string]error
	closed  bool
	queries []string
}

type fakeElement struct {
	dom  *fakeDOM
	text string
}

func (d *fakeDOM) Query(_ context.Context, selector string) (page.Element, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, selector)
	if d.closed {
		return nil, false, page.ErrSessionClosed
	}
	if err := d.errs[selector]; err != nil {
		return nil, false, err
	}
	text, ok := d.texts[selector]
	if !ok {
		return nil, false, nil
	}
	return &fakeElement{dom: d, text: text}, true, nil
}

func (e *fakeElement) Text(context.Context) (string, error) {
	e.dom.mu.Lock()
	defer e.dom.mu.Unlock()
	if e.dom.closed {
		return "", page.ErrSessionClosed
	}
	return e.text, nil
}

// fakeFetcher serves canned bodies and records the order of requests.
type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string][]byte
	calls  []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if b, ok := f.bodies[rawURL]; ok {
		return b, nil
	}
	return nil, errors.New("fetch: HTTP 404")
}
