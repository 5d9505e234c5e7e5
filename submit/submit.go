// Package submit delivers a resolved answer to the page-supplied endpoint.
package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/use-agent/quizhook/models"
)

const maxReply = 1 << 20

// Client posts submission payloads. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	timeout time.Duration
}

// New creates a Client. A nil transport uses http.DefaultTransport; timeout
// bounds each delivery (default 60s).
func New(transport http.RoundTripper, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		http:    &http.Client{Transport: transport, Timeout: timeout},
		timeout: timeout,
	}
}

// Post sends payload as JSON to target and returns the endpoint's JSON
// reply. Any transport failure, non-2xx status or non-JSON reply is a
// SUBMIT_FAILED *models.SolveError.
func (c *Client) Post(ctx context.Context, target string, payload *models.SubmitPayload) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, submitError("could not encode payload", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, submitError("invalid submit URL", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "quizhook/1.0")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, submitError("delivery failed", err)
	}
	defer resp.Body.Close()

	reply, err := io.ReadAll(io.LimitReader(resp.Body, maxReply))
	if err != nil {
		return nil, submitError("could not read reply", err)
	}

	slog.Info("answer submitted",
		"target", target,
		"status", resp.StatusCode,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, submitError(fmt.Sprintf("submit endpoint returned status %d", resp.StatusCode),
			fmt.Errorf("submit: body %q", truncate(reply, 200)))
	}
	if !json.Valid(reply) {
		return nil, submitError("submit endpoint reply is not JSON",
			fmt.Errorf("submit: body %q", truncate(reply, 200)))
	}
	return json.RawMessage(reply), nil
}

func submitError(msg string, err error) *models.SolveError {
	return models.NewSolveError(models.ErrCodeSubmitFailed, msg, err)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
