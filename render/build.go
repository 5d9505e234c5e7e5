package render

import (
	"fmt"
	"log/slog"

	"github.com/use-agent/quizhook/config"
	"github.com/use-agent/quizhook/fetch"
)

// New starts every backend named in cfg.Browser.Backends, in order, and
// chains them. A backend that fails to start is logged and skipped; New
// fails only when none start.
func New(cfg *config.Config, fetcher *fetch.Client) (*Chain, error) {
	var backends []Renderer
	for _, name := range cfg.Browser.Backends {
		var (
			r   Renderer
			err error
		)
		switch name {
		case "rod":
			r, err = NewRod(cfg.Browser, cfg.Timeouts.Navigation)
		case "playwright":
			r, err = NewPlaywright(cfg.Browser, cfg.Timeouts.Navigation)
		case "static":
			r = NewStatic(fetcher)
		default:
			err = fmt.Errorf("render: unknown backend %q", name)
		}
		if err != nil {
			slog.Warn("render backend unavailable", "backend", name, "error", err)
			continue
		}
		backends = append(backends, r)
	}
	if len(backends) == 0 {
		return nil, ErrNoBackend
	}
	return NewChain(backends...), nil
}
