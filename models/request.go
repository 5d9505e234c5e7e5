package models

import "github.com/use-agent/quizhook/answer"

// QuizRequest is the payload for POST /api/quiz-webhook.
type QuizRequest struct {
	// Email identifies the participant; echoed into the submission payload.
	Email string `json:"email" binding:"required"`

	// Secret must match the configured quiz secret.
	Secret string `json:"secret" binding:"required"`

	// URL is the quiz page to visit. Required.
	URL string `json:"url" binding:"required"`
}

// InspectRequest is the payload for POST /api/v1/inspect.
type InspectRequest struct {
	// URL is the page to visit. Required.
	URL string `json:"url" binding:"required,url"`

	// Timeout caps the navigation in seconds. Default: server navigation timeout.
	Timeout int `json:"timeout,omitempty" binding:"omitempty,min=1,max=300"`

	// IncludePreview toggles the Markdown preview of the rendered page.
	// Default: true.
	IncludePreview *bool `json:"include_preview,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *InspectRequest) Defaults() {
	if r.IncludePreview == nil {
		t := true
		r.IncludePreview = &t
	}
}

// SubmitPayload is the body POSTed to a discovered submit target.
type SubmitPayload struct {
	Email  string       `json:"email"`
	Secret string       `json:"secret"`
	URL    string       `json:"url"`
	Answer answer.Value `json:"answer"`
}
