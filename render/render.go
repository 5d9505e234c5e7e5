// Package render opens quiz pages in a browser (or a plain HTTP fallback)
// and exposes each open page as a Session that yields rendered HTML and
// live DOM queries.
package render

import (
	"context"
	"errors"
	"time"

	"github.com/use-agent/quizhook/page"
)

// ErrNoBackend is returned when no renderer could be started.
var ErrNoBackend = errors.New("render: no backend available")

// Session is one open page. A Session must be closed exactly once; Close is
// idempotent. After Close, Query returns page.ErrSessionClosed.
type Session interface {
	page.DOM

	// URL is the page URL after redirects.
	URL() string

	// HTML serialises the current DOM.
	HTML(ctx context.Context) (string, error)

	// WaitForQuiescence blocks until network and DOM activity settle or
	// timeout elapses. A timeout is reported as an error but leaves the
	// session usable.
	WaitForQuiescence(ctx context.Context, timeout time.Duration) error

	Close() error
}

// Renderer opens sessions. Implementations are safe for concurrent use.
type Renderer interface {
	Name() string

	// Open navigates to rawURL and returns the open session. Navigation is
	// bounded by the renderer's navigation timeout as well as ctx.
	Open(ctx context.Context, rawURL string) (Session, error)

	Stats() Stats
	Close() error
}

// Stats is a point-in-time view of a renderer's sessions.
type Stats struct {
	Backend        string `json:"backend"`
	MaxSessions    int    `json:"max_sessions"`
	ActiveSessions int    `json:"active_sessions"`
}
