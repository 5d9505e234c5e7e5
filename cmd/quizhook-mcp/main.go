package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/use-agent/quizhook/config"
)

// quizResponse mirrors the webhook response, success and error shapes alike.
type quizResponse struct {
	Status          string          `json:"status"`
	SubmitResult    json.RawMessage `json:"submit_result"`
	AnswerCandidate json.RawMessage `json:"answer_candidate"`
	Detail          string          `json:"detail"`
	SubmitPayload   json.RawMessage `json:"submit_payload"`
	Error           string          `json:"error"`
}

// inspectResponse mirrors the inspect API response.
type inspectResponse struct {
	Success           bool            `json:"success"`
	URL               string          `json:"url"`
	Answer            json.RawMessage `json:"answer"`
	AnswerKind        string          `json:"answer_kind"`
	SubmitURL         string          `json:"submit_url"`
	Preview           string          `json:"preview"`
	VisibleTextLength int             `json:"visible_text_length"`
	Error             *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := strings.TrimRight(os.Getenv("QUIZHOOK_API_URL"), "/")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("QUIZHOOK_API_KEY")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"quizhook",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	solveQuizTool := mcp.NewTool("solve_quiz",
		mcp.WithDescription("Visit a quiz page, work out its answer and submit it to the page's submit endpoint. Returns the submission outcome."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The quiz page URL"),
		),
		mcp.WithString("email",
			mcp.Description("Participant email sent with the answer (default: QUIZHOOK_EMAIL)"),
		),
		mcp.WithString("secret",
			mcp.Description("Quiz secret (default: QUIZHOOK_SECRET)"),
		),
	)
	s.AddTool(solveQuizTool, handleSolveQuiz(apiURL, cfg.Quiz))

	inspectPageTool := mcp.NewTool("inspect_page",
		mcp.WithDescription("Visit a quiz page and report the answer the solver would give, the submit URL it found and a Markdown preview of the page. Nothing is submitted."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The quiz page URL"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Visit timeout in seconds (1-300, default: server navigation timeout)"),
		),
		mcp.WithBoolean("include_preview",
			mcp.Description("Include a Markdown preview of the page (default: true)"),
		),
	)
	s.AddTool(inspectPageTool, handleInspectPage(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the quizhook API and returns the status
// code and response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func handleSolveQuiz(apiURL string, quiz config.QuizConfig) server.ToolHandlerFunc {
	// The server may spend its full navigation and submit timeouts.
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		payload := map[string]string{
			"url":    url,
			"email":  request.GetString("email", quiz.Email),
			"secret": request.GetString("secret", quiz.Secret),
		}

		status, respBody, err := apiPost(ctx, client, apiURL, "", "/api/quiz-webhook", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var qr quizResponse
		if err := json.Unmarshal(respBody, &qr); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response (HTTP %d): %v", status, err)), nil
		}
		return formatQuizResult(status, &qr), nil
	}
}

func formatQuizResult(status int, qr *quizResponse) *mcp.CallToolResult {
	if qr.Error != "" {
		msg := fmt.Sprintf("[HTTP %d] %s", status, qr.Error)
		if qr.Detail != "" {
			msg += ": " + qr.Detail
		}
		return mcp.NewToolResultError(msg)
	}

	switch qr.Status {
	case "submitted":
		return mcp.NewToolResultText(fmt.Sprintf("Submitted.\nSubmit endpoint replied: %s", qr.SubmitResult))
	case "no_submit_url":
		return mcp.NewToolResultText(fmt.Sprintf("No submit URL found on the page.\nAnswer candidate: %s", qr.AnswerCandidate))
	case "submit_failed":
		return mcp.NewToolResultError(fmt.Sprintf("Submission failed: %s\nPayload: %s", qr.Detail, qr.SubmitPayload))
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unexpected response (HTTP %d, status %q)", status, qr.Status))
	}
}

func handleInspectPage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 300 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]any{
			"url":             url,
			"include_preview": request.GetBool("include_preview", true),
		}
		if timeout := request.GetInt("timeout", 0); timeout > 0 {
			payload["timeout"] = timeout
		}

		_, respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/inspect", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var ir inspectResponse
		if err := json.Unmarshal(respBody, &ir); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !ir.Success {
			errMsg := "inspect failed"
			if ir.Error != nil {
				errMsg = fmt.Sprintf("[%s] %s", ir.Error.Code, ir.Error.Message)
			}
			return mcp.NewToolResultError(errMsg), nil
		}

		var b strings.Builder
		fmt.Fprintf(&b, "URL: %s\n", ir.URL)
		fmt.Fprintf(&b, "Answer (%s): %s\n", ir.AnswerKind, ir.Answer)
		if ir.SubmitURL != "" {
			fmt.Fprintf(&b, "Submit URL: %s\n", ir.SubmitURL)
		} else {
			b.WriteString("Submit URL: none found\n")
		}
		fmt.Fprintf(&b, "Visible text: %d characters\n", ir.VisibleTextLength)
		if ir.Preview != "" {
			b.WriteString("\n---\n")
			b.WriteString(ir.Preview)
		}
		return mcp.NewToolResultText(b.String()), nil
	}
}
