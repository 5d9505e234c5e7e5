// Package handler holds the gin handlers of the quizhook HTTP API.
package handler

import (
	"context"
	"encoding/json"

	"github.com/use-agent/quizhook/models"
	"github.com/use-agent/quizhook/render"
	"github.com/use-agent/quizhook/visit"
)

// Visitor visits a page and resolves its answer. *visit.Visitor implements it.
type Visitor interface {
	Visit(ctx context.Context, rawURL string) (*visit.Result, error)
}

// Submitter delivers a payload to a submit target. *submit.Client implements it.
type Submitter interface {
	Post(ctx context.Context, target string, payload *models.SubmitPayload) (json.RawMessage, error)
}

// StatsReporter reports render backend utilisation. Every render.Renderer
// implements it.
type StatsReporter interface {
	Stats() render.Stats
}
