// Package page holds the immutable view of a visited quiz page that every
// resolution strategy and the submit-target discovery chain read from.
package page

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
)

// ErrSessionClosed is returned by a DOM whose render session has ended.
var ErrSessionClosed = errors.New("page: render session closed")

// Element is a node in a live rendered page.
type Element interface {
	// Text returns the element's rendered (visible) text.
	Text(ctx context.Context) (string, error)
}

// DOM queries a live rendered page by CSS selector. It is only valid while
// the render session that produced it is open; afterwards Query returns
// ErrSessionClosed.
type DOM interface {
	Query(ctx context.Context, selector string) (Element, bool, error)
}

// Snapshot is the immutable bundle handed to discovery and resolution.
type Snapshot struct {
	// SourceURL is the page URL, used as the base for relative links.
	SourceURL string

	// RawHTML is the rendered document serialised as HTML.
	RawHTML string

	// DOM is the live-page capability. Nil when no render session backs
	// the snapshot.
	DOM DOM

	once    sync.Once
	doc     *goquery.Document
	docErr  error
	base    *url.URL
	baseErr error
}

// New builds a Snapshot.
func New(sourceURL, rawHTML string, dom DOM) *Snapshot {
	return &Snapshot{SourceURL: sourceURL, RawHTML: rawHTML, DOM: dom}
}

// Document returns the parsed raw HTML. The parse happens once per snapshot
// and is shared by all callers.
func (s *Snapshot) Document() (*goquery.Document, error) {
	s.init()
	return s.doc, s.docErr
}

// Base returns the parsed SourceURL.
func (s *Snapshot) Base() (*url.URL, error) {
	s.init()
	return s.base, s.baseErr
}

// Resolve turns ref (an href or form action) into an absolute URL against
// the snapshot's SourceURL.
func (s *Snapshot) Resolve(ref string) (string, error) {
	base, err := s.Base()
	if err != nil {
		return "", err
	}
	u, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// VisibleText returns the text a reader would see, with scripts and styles
// stripped and whitespace collapsed.
func (s *Snapshot) VisibleText() string {
	return VisibleText(s.RawHTML)
}

func (s *Snapshot) init() {
	s.once.Do(func() {
		s.doc, s.docErr = goquery.NewDocumentFromReader(strings.NewReader(s.RawHTML))
		s.base, s.baseErr = url.Parse(s.SourceURL)
	})
}
