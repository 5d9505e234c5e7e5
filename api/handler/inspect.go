package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/quizhook/models"
	"github.com/use-agent/quizhook/page"
	"github.com/use-agent/quizhook/preview"
)

// Inspect returns a handler for POST /api/v1/inspect.
//
// It runs the same visit as the webhook but never submits.
//  1. Parse & validate request, apply defaults.
//  2. Visit with the optional per-request timeout   (records visit_ms)
//  3. Markdown preview of the rendered page, if requested.
//  4. Fill Timing, return 200.
func Inspect(v Visitor, pv *preview.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.InspectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.InspectResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		// ── 2. Visit ────────────────────────────────────────────────
		ctx := c.Request.Context()
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(req.Timeout)*time.Second)
			defer cancel()
		}

		visitStart := time.Now()
		res, err := v.Visit(ctx, req.URL)
		visitMs := time.Since(visitStart).Milliseconds()
		if err != nil {
			respondError(c, req.URL, categorizeError(err), models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
				VisitMs: visitMs,
			})
			return
		}

		resp := models.InspectResponse{
			Success:           true,
			URL:               req.URL,
			Answer:            &res.Answer,
			AnswerKind:        res.Answer.Kind().String(),
			SubmitURL:         string(res.SubmitURL),
			VisibleTextLength: utf8.RuneCountInString(page.VisibleText(res.RawHTML)),
		}

		// ── 3. Preview ──────────────────────────────────────────────
		if *req.IncludePreview && pv != nil {
			p, err := pv.Render(res.RawHTML, res.FinalURL)
			if err != nil {
				slog.Warn("inspect: preview failed", "url", req.URL, "error", err)
			} else {
				resp.Preview = p.Markdown
			}
		}

		// ── 4. Timing ───────────────────────────────────────────────
		resp.Timing = models.TimingInfo{
			TotalMs: time.Since(totalStart).Milliseconds(),
			VisitMs: visitMs,
		}
		c.JSON(http.StatusOK, resp)
	}
}

// categorizeError turns any visit error into a SolveError, promoting
// deadline and cancellation errors to VISIT_TIMEOUT.
func categorizeError(err error) *models.SolveError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewSolveError(models.ErrCodeVisitTimeout, "page visit timed out", err)
	}
	var se *models.SolveError
	if errors.As(err, &se) {
		return se
	}
	return models.NewSolveError(models.ErrCodeInternal, err.Error(), err)
}

// respondError writes a structured JSON error response with the status the
// error code maps to.
func respondError(c *gin.Context, rawURL string, se *models.SolveError, timing models.TimingInfo) {
	c.JSON(mapErrorToStatus(se), models.InspectResponse{
		Success: false,
		URL:     rawURL,
		Error:   se.ToDetail(),
		Timing:  timing,
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.SolveError) int {
	switch e.Code {
	case models.ErrCodeVisitTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeVisitFailed, models.ErrCodeSubmitFailed:
		return http.StatusBadGateway // 502
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeForbidden:
		return http.StatusForbidden // 403
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
