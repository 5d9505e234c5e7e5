// Package visit sequences one page visit: render, snapshot, discover the
// submit target, resolve the answer, release the page.
package visit

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/quizhook/answer"
	"github.com/use-agent/quizhook/discover"
	"github.com/use-agent/quizhook/models"
	"github.com/use-agent/quizhook/page"
	"github.com/use-agent/quizhook/render"
	"github.com/use-agent/quizhook/resolve"
)

// Envelope is what a visit hands back: the answer and where to send it.
type Envelope struct {
	Answer    answer.Value
	SubmitURL discover.Target
}

// Result is an Envelope plus what the operator endpoints show.
type Result struct {
	Envelope

	VisitID  string
	FinalURL string
	RawHTML  string
	Elapsed  time.Duration
}

// Visitor runs visits. It is safe for concurrent use; each visit owns its
// own render session.
type Visitor struct {
	renderer   render.Renderer
	pipeline   *resolve.Pipeline
	quiescence time.Duration
	logger     *slog.Logger
}

// New creates a Visitor. quiescence bounds the settle wait after load.
func New(renderer render.Renderer, pipeline *resolve.Pipeline, quiescence time.Duration) *Visitor {
	return &Visitor{
		renderer:   renderer,
		pipeline:   pipeline,
		quiescence: quiescence,
		logger:     slog.Default(),
	}
}

// VisitAndSolve visits rawURL and returns the answer envelope. The only
// error it returns is a VISIT_FAILED *models.SolveError, meaning the page
// could not be loaded at all.
func (v *Visitor) VisitAndSolve(ctx context.Context, rawURL string) (*Envelope, error) {
	res, err := v.Visit(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return &res.Envelope, nil
}

// Visit is VisitAndSolve with the page details kept.
//
//  1. Acquire session   – render the page (navigation timeout applies)
//  2. DEFER: release    – the session is closed on every path
//  3. Quiescence        – best effort; a timeout only logs
//  4. Snapshot          – raw HTML plus the live DOM handle
//  5. Discovery         – submit target from raw HTML
//  6. Resolution        – strategy chain, may query the live DOM
func (v *Visitor) Visit(ctx context.Context, rawURL string) (*Result, error) {
	start := time.Now()
	visitID := uuid.NewString()
	logger := v.logger.With("visit_id", visitID, "url", rawURL)

	// ── 1. Acquire session ───────────────────────────────────────────
	sess, err := v.renderer.Open(ctx, rawURL)
	if err != nil {
		logger.Warn("visit failed: page did not load", "error", err)
		return nil, visitError(err, "failed to load page")
	}

	// ── 2. Guaranteed release ────────────────────────────────────────
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			logger.Warn("render session close failed", "error", cerr)
		}
	}()

	// ── 3. Quiescence ────────────────────────────────────────────────
	if qerr := sess.WaitForQuiescence(ctx, v.quiescence); qerr != nil {
		logger.Debug("page did not settle, proceeding with current DOM", "error", qerr)
	}

	// ── 4. Snapshot ──────────────────────────────────────────────────
	raw, err := sess.HTML(ctx)
	if err != nil {
		logger.Warn("visit failed: could not read page HTML", "error", err)
		return nil, visitError(err, "failed to read page HTML")
	}
	finalURL := sess.URL()
	if finalURL == "" {
		finalURL = rawURL
	}
	snap := page.New(finalURL, raw, sess)

	// ── 5. Discovery ─────────────────────────────────────────────────
	target := discover.Find(snap)

	// ── 6. Resolution ────────────────────────────────────────────────
	ans := v.pipeline.WithLogger(logger).Resolve(ctx, snap)

	elapsed := time.Since(start)
	logger.Info("visit complete",
		"answer_kind", ans.Kind().String(),
		"submit_url", string(target),
		"elapsed_ms", elapsed.Milliseconds(),
	)

	return &Result{
		Envelope: Envelope{Answer: ans, SubmitURL: target},
		VisitID:  visitID,
		FinalURL: finalURL,
		RawHTML:  raw,
		Elapsed:  elapsed,
	}, nil
}

// visitError wraps err as VISIT_FAILED, naming timeouts and cancellation
// in the message.
func visitError(err error, msg string) *models.SolveError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		msg = "navigation timed out"
	case errors.Is(err, context.Canceled):
		msg = "visit canceled"
	}
	return models.NewSolveError(models.ErrCodeVisitFailed, msg, err)
}
