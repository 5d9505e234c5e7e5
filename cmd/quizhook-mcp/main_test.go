package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/use-agent/quizhook/config"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

func TestFormatQuizResult(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		qr      quizResponse
		isError bool
		want    string
	}{
		{"submitted", 200, quizResponse{Status: "submitted", SubmitResult: json.RawMessage(`{"correct":true}`)}, false, `{"correct":true}`},
		{"no submit url", 200, quizResponse{Status: "no_submit_url", AnswerCandidate: json.RawMessage(`42`)}, false, "Answer candidate: 42"},
		{"submit failed", 502, quizResponse{Status: "submit_failed", Detail: "status 500"}, true, "Submission failed: status 500"},
		{"forbidden", 403, quizResponse{Error: "forbidden"}, true, "[HTTP 403] forbidden"},
		{"visit failed", 500, quizResponse{Error: "failed to visit url", Detail: "dns"}, true, "failed to visit url: dns"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := formatQuizResult(tt.status, &tt.qr)
			if res.IsError != tt.isError {
				t.Errorf("IsError = %v, want %v", res.IsError, tt.isError)
			}
			if got := resultText(t, res); !strings.Contains(got, tt.want) {
				t.Errorf("text = %q, want it to contain %q", got, tt.want)
			}
		})
	}
}

func TestSolveQuiz_UsesConfiguredCredentials(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quiz-webhook" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"submitted","submit_result":{"correct":true}}`))
	}))
	defer srv.Close()

	h := handleSolveQuiz(srv.URL, config.QuizConfig{Email: "me@x.test", Secret: "s3cret"})
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"url": "https://quiz.test/q/1"}

	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if res.IsError {
		t.Fatalf("tool error: %s", resultText(t, res))
	}
	if got["email"] != "me@x.test" || got["secret"] != "s3cret" || got["url"] != "https://quiz.test/q/1" {
		t.Errorf("webhook body = %v", got)
	}
}

func TestInspectPage_SendsKeyAndFormats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"success":false,"error":{"code":"UNAUTHORIZED","message":"invalid API key"}}`))
			return
		}
		w.Write([]byte(`{"success":true,"url":"https://quiz.test/","answer":20,"answer_kind":"number","submit_url":"","preview":"# Q","visible_text_length":12}`))
	}))
	defer srv.Close()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"url": "https://quiz.test/"}

	res, err := handleInspectPage(srv.URL, "key")(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	text := resultText(t, res)
	for _, want := range []string{"Answer (number): 20", "Submit URL: none found", "# Q"} {
		if !strings.Contains(text, want) {
			t.Errorf("missing %q in:\n%s", want, text)
		}
	}

	res, _ = handleInspectPage(srv.URL, "wrong")(context.Background(), req)
	if !res.IsError || !strings.Contains(resultText(t, res), "UNAUTHORIZED") {
		t.Errorf("expected unauthorized tool error, got %+v", res)
	}
}
