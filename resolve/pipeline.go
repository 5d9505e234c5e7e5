// Package resolve turns a visited page into a single answer by running a
// fixed chain of extraction strategies and committing to the first one that
// produces a signal.
package resolve

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/use-agent/quizhook/answer"
	"github.com/use-agent/quizhook/page"
)

// Func is one extraction heuristic. ok=false means the strategy abstains.
type Func func(ctx context.Context, snap *page.Snapshot) (v answer.Value, ok bool)

// Strategy is a named Func.
type Strategy struct {
	Name string
	Run  Func
}

// FirstSome combines strategies into one Func that returns the first signal,
// trying them strictly in order. A strategy that panics abstains.
func FirstSome(logger *slog.Logger, strategies ...Strategy) Func {
	return func(ctx context.Context, snap *page.Snapshot) (answer.Value, bool) {
		for _, s := range strategies {
			v, ok := guard(ctx, logger, s, snap)
			if ok {
				logger.Debug("strategy produced an answer", "strategy", s.Name, "kind", v.Kind().String())
				return v, true
			}
		}
		return answer.Value{}, false
	}
}

// guard runs one strategy and converts a panic into abstention.
func guard(ctx context.Context, logger *slog.Logger, s Strategy, snap *page.Snapshot) (v answer.Value, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("strategy panicked, treating as no signal", "strategy", s.Name, "panic", fmt.Sprint(r))
			v, ok = answer.Value{}, false
		}
	}()
	return s.Run(ctx, snap)
}

// Pipeline is the answer resolution chain:
//
//  1. embedded JSON   – first <pre> holding {"answer": ...}
//  2. resources       – first numeric column of linked PDF/CSV/XLSX files
//  3. script payload  – base64 literal handed to atob() in an inline script
//  4. DOM scan        – numbers or true/false in well-known containers
//
// and, when all four abstain, the unresolved fallback.
type Pipeline struct {
	strategies []Strategy
	logger     *slog.Logger
}

// New builds the standard pipeline. fetcher downloads linked documents.
func New(fetcher Fetcher) *Pipeline {
	return NewWith(
		Strategy{Name: "embedded_json", Run: EmbeddedJSON},
		Strategy{Name: "resources", Run: Resources(fetcher)},
		Strategy{Name: "script_payload", Run: ScriptPayload},
		Strategy{Name: "dom_scan", Run: DOMScan},
	)
}

// NewWith builds a pipeline over a custom strategy list.
func NewWith(strategies ...Strategy) *Pipeline {
	return &Pipeline{strategies: strategies, logger: slog.Default()}
}

// WithLogger returns a copy of p that logs to logger.
func (p *Pipeline) WithLogger(logger *slog.Logger) *Pipeline {
	cp := *p
	cp.logger = logger
	return &cp
}

// Resolve always returns a value. Strategy failures never escape.
func (p *Pipeline) Resolve(ctx context.Context, snap *page.Snapshot) answer.Value {
	ctx = withLogger(ctx, p.logger)
	if v, ok := FirstSome(p.logger, p.strategies...)(ctx, snap); ok {
		return v
	}
	p.logger.Info("no strategy produced an answer, returning page snippet")
	return Fallback(snap)
}

// Fallback returns the first SnippetLimit characters of the page's visible
// text.
func Fallback(snap *page.Snapshot) answer.Value {
	return answer.Unresolved(snap.VisibleText())
}

type loggerKey struct{}

func withLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

func loggerFrom(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
