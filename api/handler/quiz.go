package handler

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/use-agent/quizhook/models"
)

// QuizWebhook returns a handler for POST /api/quiz-webhook.
//
// Orchestration flow:
//  1. Decode the body; malformed → 400 "invalid json", wrong shape or missing
//     field → 400 "bad json".
//  2. Check the secret in constant time → 403 "forbidden".
//  3. Visit the page and resolve the answer → 500 on visit failure.
//  4. No submit target → 200 "no_submit_url" with the answer candidate.
//  5. Deliver {email, secret, url, answer} → 502 "submit_failed" or 200 "submitted".
func QuizWebhook(v Visitor, sub Submitter, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Decode ───────────────────────────────────────────────
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, models.WebhookError{Error: "invalid json"})
			return
		}
		var req models.QuizRequest
		if err := json.Unmarshal(body, &req); err != nil {
			msg := "invalid json"
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				msg = "bad json"
			}
			c.JSON(http.StatusBadRequest, models.WebhookError{Error: msg})
			return
		}
		if err := binding.Validator.ValidateStruct(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.WebhookError{Error: "bad json"})
			return
		}

		// ── 2. Secret ───────────────────────────────────────────────
		if subtle.ConstantTimeCompare([]byte(req.Secret), []byte(secret)) != 1 {
			slog.Warn("quiz webhook: secret mismatch", "url", req.URL, "email", req.Email)
			c.JSON(http.StatusForbidden, models.WebhookError{Error: "forbidden"})
			return
		}

		// ── 3. Visit ────────────────────────────────────────────────
		visitStart := time.Now()
		res, err := v.Visit(c.Request.Context(), req.URL)
		visitMs := time.Since(visitStart).Milliseconds()
		if err != nil {
			c.JSON(http.StatusInternalServerError, models.WebhookError{
				Error:  "failed to visit url",
				Detail: err.Error(),
			})
			return
		}

		// ── 4. No submit target ─────────────────────────────────────
		if res.SubmitURL.None() {
			ans := res.Answer
			c.JSON(http.StatusOK, models.QuizResponse{
				Status:          models.StatusNoSubmitURL,
				AnswerCandidate: &ans,
				Timing: &models.TimingInfo{
					TotalMs: time.Since(totalStart).Milliseconds(),
					VisitMs: visitMs,
				},
			})
			return
		}

		// ── 5. Deliver ──────────────────────────────────────────────
		payload := &models.SubmitPayload{
			Email:  req.Email,
			Secret: req.Secret,
			URL:    req.URL,
			Answer: res.Answer,
		}
		submitStart := time.Now()
		reply, err := sub.Post(c.Request.Context(), string(res.SubmitURL), payload)
		timing := &models.TimingInfo{
			VisitMs:  visitMs,
			SubmitMs: time.Since(submitStart).Milliseconds(),
			TotalMs:  time.Since(totalStart).Milliseconds(),
		}
		if err != nil {
			slog.Warn("quiz webhook: submission failed",
				"url", req.URL,
				"submit_url", string(res.SubmitURL),
				"error", err,
			)
			c.JSON(http.StatusBadGateway, models.QuizResponse{
				Status:        models.StatusSubmitFailed,
				Detail:        err.Error(),
				SubmitPayload: payload,
				Timing:        timing,
			})
			return
		}

		c.JSON(http.StatusOK, models.QuizResponse{
			Status:       models.StatusSubmitted,
			SubmitResult: reply,
			Timing:       timing,
		})
	}
}
