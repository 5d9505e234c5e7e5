package models

import (
	"encoding/json"

	"github.com/use-agent/quizhook/answer"
)

// Quiz webhook outcome statuses.
const (
	StatusSubmitted    = "submitted"
	StatusNoSubmitURL  = "no_submit_url"
	StatusSubmitFailed = "submit_failed"
)

// QuizResponse is the response for POST /api/quiz-webhook once the page has
// been visited. Exactly one of the status-specific fields is populated.
type QuizResponse struct {
	// Status is one of "submitted", "no_submit_url", "submit_failed".
	Status string `json:"status"`

	// SubmitResult is the submit endpoint's JSON reply ("submitted").
	SubmitResult json.RawMessage `json:"submit_result,omitempty"`

	// AnswerCandidate is the resolved answer when no submit target was found.
	AnswerCandidate *answer.Value `json:"answer_candidate,omitempty"`

	// Detail describes the delivery failure ("submit_failed").
	Detail string `json:"detail,omitempty"`

	// SubmitPayload echoes what we tried to deliver ("submit_failed").
	SubmitPayload *SubmitPayload `json:"submit_payload,omitempty"`

	// Timing provides duration breakdowns for the operation.
	Timing *TimingInfo `json:"timing,omitempty"`
}

// WebhookError is the error body for requests that never reached the page.
type WebhookError struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// InspectResponse is the response for POST /api/v1/inspect.
type InspectResponse struct {
	// Success indicates whether the visit completed without errors.
	Success bool `json:"success"`

	// URL is the inspected page.
	URL string `json:"url"`

	// Answer is what the resolution pipeline produced.
	Answer *answer.Value `json:"answer,omitempty"`

	// AnswerKind names the active answer variant.
	AnswerKind string `json:"answer_kind,omitempty"`

	// SubmitURL is the discovered submit target, empty if none.
	SubmitURL string `json:"submit_url"`

	// Preview is a Markdown rendering of the page as the solver saw it.
	Preview string `json:"preview,omitempty"`

	// VisibleTextLength is the rune count of the page's visible text.
	VisibleTextLength int `json:"visible_text_length"`

	// Timing provides duration breakdowns for the operation.
	Timing TimingInfo `json:"timing"`

	// Error is populated only when Success is false.
	Error *ErrorDetail `json:"error,omitempty"`
}

// TimingInfo breaks down the time spent in each phase.
type TimingInfo struct {
	// TotalMs is the end-to-end duration in milliseconds.
	TotalMs int64 `json:"total_ms"`

	// VisitMs is the time spent rendering and solving the page.
	VisitMs int64 `json:"visit_ms"`

	// SubmitMs is the time spent delivering the answer.
	SubmitMs int64 `json:"submit_ms,omitempty"`
}

// HealthResponse is the response for GET /api/v1/health.
type HealthResponse struct {
	Status        string        `json:"status"` // "healthy" or "degraded"
	Uptime        string        `json:"uptime"`
	RendererStats RendererStats `json:"renderer_stats"`
	Version       string        `json:"version"`
}

// RendererStats reports the state of the render backend.
type RendererStats struct {
	Backend        string `json:"backend"`
	MaxSessions    int    `json:"max_sessions"`
	ActiveSessions int    `json:"active_sessions"`
}

// ErrorResponse is the body of middleware rejections on the /api/v1 group.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   *ErrorDetail `json:"error"`
}
