package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/quizhook/answer"
	"github.com/use-agent/quizhook/discover"
	"github.com/use-agent/quizhook/models"
	"github.com/use-agent/quizhook/preview"
	"github.com/use-agent/quizhook/render"
	"github.com/use-agent/quizhook/visit"
)

type fakeVisitor struct {
	res  *visit.Result
	err  error
	urls []string
}

func (f *fakeVisitor) Visit(ctx context.Context, rawURL string) (*visit.Result, error) {
	f.urls = append(f.urls, rawURL)
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

type fakeSubmitter struct {
	reply   json.RawMessage
	err     error
	target  string
	payload *models.SubmitPayload
}

func (f *fakeSubmitter) Post(_ context.Context, target string, payload *models.SubmitPayload) (json.RawMessage, error) {
	f.target, f.payload = target, payload
	return f.reply, f.err
}

type fakeStats render.Stats

func (f fakeStats) Stats() render.Stats { return render.Stats(f) }

func init() { gin.SetMode(gin.TestMode) }

func do(h gin.HandlerFunc, method, body string) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, "/", h)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, w.Body.String())
	}
	return m
}

func result(ans answer.Value, target string) *visit.Result {
	return &visit.Result{
		Envelope: visit.Envelope{Answer: ans, SubmitURL: discover.Target(target)},
		FinalURL: "https://quiz.test/q/1",
		RawHTML:  `<html><body><h1>Question</h1><p>Sum the column.</p></body></html>`,
	}
}

const validBody = `{"email":"me@x.test","secret":"s3cret","url":"https://quiz.test/q/1"}`

func TestQuizWebhook_RejectsBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{"malformed", `{"email":`, http.StatusBadRequest, "invalid json"},
		{"not an object", `[1,2]`, http.StatusBadRequest, "bad json"},
		{"numeric email", `{"email":1,"secret":"s3cret","url":"https://quiz.test/"}`, http.StatusBadRequest, "bad json"},
		{"missing url", `{"email":"me@x.test","secret":"s3cret"}`, http.StatusBadRequest, "bad json"},
		{"empty secret", `{"email":"me@x.test","secret":"","url":"https://quiz.test/"}`, http.StatusBadRequest, "bad json"},
		{"wrong secret", `{"email":"me@x.test","secret":"nope","url":"https://quiz.test/"}`, http.StatusForbidden, "forbidden"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &fakeVisitor{res: result(answer.Number(1), "")}
			w := do(QuizWebhook(v, &fakeSubmitter{}, "s3cret"), http.MethodPost, tt.body)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			if got := decode(t, w)["error"]; got != tt.errMsg {
				t.Errorf("error = %v, want %q", got, tt.errMsg)
			}
			if len(v.urls) != 0 {
				t.Errorf("page visited on rejected request: %v", v.urls)
			}
		})
	}
}

func TestQuizWebhook_VisitFailure(t *testing.T) {
	v := &fakeVisitor{err: models.NewSolveError(models.ErrCodeVisitFailed, "failed to load page", errors.New("net::ERR_NAME_NOT_RESOLVED"))}
	w := do(QuizWebhook(v, &fakeSubmitter{}, "s3cret"), http.MethodPost, validBody)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	m := decode(t, w)
	if m["error"] != "failed to visit url" {
		t.Errorf("error = %v", m["error"])
	}
	if d, _ := m["detail"].(string); !strings.Contains(d, "failed to load page") {
		t.Errorf("detail = %q", d)
	}
}

func TestQuizWebhook_NoSubmitURL(t *testing.T) {
	v := &fakeVisitor{res: result(answer.Unresolved("Nothing here"), "")}
	sub := &fakeSubmitter{}
	w := do(QuizWebhook(v, sub, "s3cret"), http.MethodPost, validBody)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	m := decode(t, w)
	if m["status"] != models.StatusNoSubmitURL {
		t.Errorf("status = %v", m["status"])
	}
	cand, _ := m["answer_candidate"].(map[string]any)
	if cand["unresolved_text_snippet"] != "Nothing here" {
		t.Errorf("answer_candidate = %v", m["answer_candidate"])
	}
	if sub.payload != nil {
		t.Error("submitter called without a submit target")
	}
}

func TestQuizWebhook_Submitted(t *testing.T) {
	v := &fakeVisitor{res: result(answer.Number(20), "https://quiz.test/submit")}
	sub := &fakeSubmitter{reply: json.RawMessage(`{"correct":true,"url":"https://quiz.test/q/2"}`)}
	w := do(QuizWebhook(v, sub, "s3cret"), http.MethodPost, validBody)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	m := decode(t, w)
	if m["status"] != models.StatusSubmitted {
		t.Errorf("status = %v", m["status"])
	}
	reply, _ := m["submit_result"].(map[string]any)
	if reply["correct"] != true {
		t.Errorf("submit_result = %v", m["submit_result"])
	}

	if sub.target != "https://quiz.test/submit" {
		t.Errorf("target = %q", sub.target)
	}
	want := models.SubmitPayload{Email: "me@x.test", Secret: "s3cret", URL: "https://quiz.test/q/1", Answer: answer.Number(20)}
	if *sub.payload != want {
		t.Errorf("payload = %+v, want %+v", *sub.payload, want)
	}
}

func TestQuizWebhook_SubmitFailed(t *testing.T) {
	v := &fakeVisitor{res: result(answer.Text("blue"), "https://quiz.test/submit")}
	sub := &fakeSubmitter{err: models.NewSolveError(models.ErrCodeSubmitFailed, "submit endpoint returned status 500", nil)}
	w := do(QuizWebhook(v, sub, "s3cret"), http.MethodPost, validBody)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", w.Code)
	}
	m := decode(t, w)
	if m["status"] != models.StatusSubmitFailed {
		t.Errorf("status = %v", m["status"])
	}
	if d, _ := m["detail"].(string); !strings.Contains(d, "status 500") {
		t.Errorf("detail = %q", d)
	}
	p, _ := m["submit_payload"].(map[string]any)
	if p["answer"] != "blue" || p["email"] != "me@x.test" || p["url"] != "https://quiz.test/q/1" {
		t.Errorf("submit_payload = %v", m["submit_payload"])
	}
}

func TestInspect_OK(t *testing.T) {
	v := &fakeVisitor{res: result(answer.Boolean(true), "https://quiz.test/submit")}
	w := do(Inspect(v, preview.NewRenderer()), http.MethodPost, `{"url":"https://quiz.test/q/1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp models.InspectResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.AnswerKind != "boolean" || resp.SubmitURL != "https://quiz.test/submit" {
		t.Errorf("resp = %+v", resp)
	}
	if b, ok := resp.Answer.Bool(); !ok || !b {
		t.Errorf("answer = %v", resp.Answer)
	}
	if !strings.Contains(resp.Preview, "# Question") {
		t.Errorf("preview = %q", resp.Preview)
	}
	if resp.VisibleTextLength != len("Question Sum the column.") {
		t.Errorf("visible_text_length = %d", resp.VisibleTextLength)
	}
}

func TestInspect_PreviewOptional(t *testing.T) {
	v := &fakeVisitor{res: result(answer.Number(3), "")}
	w := do(Inspect(v, preview.NewRenderer()), http.MethodPost, `{"url":"https://quiz.test/q/1","include_preview":false}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if _, ok := decode(t, w)["preview"]; ok {
		t.Error("preview present although disabled")
	}
}

func TestInspect_InvalidInput(t *testing.T) {
	for _, body := range []string{`{}`, `{"url":"not a url"}`, `{"url":"https://quiz.test/","timeout":9999}`} {
		w := do(Inspect(&fakeVisitor{}, nil), http.MethodPost, body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", body, w.Code)
		}
	}
}

func TestInspect_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"visit failed", models.NewSolveError(models.ErrCodeVisitFailed, "failed to load page", nil), http.StatusBadGateway, models.ErrCodeVisitFailed},
		{"timeout", models.NewSolveError(models.ErrCodeVisitFailed, "navigation timed out", context.DeadlineExceeded), http.StatusGatewayTimeout, models.ErrCodeVisitTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, models.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(Inspect(&fakeVisitor{err: tt.err}, nil), http.MethodPost, `{"url":"https://quiz.test/"}`)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d", w.Code, tt.status)
			}
			var resp models.InspectResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("resp = %+v", resp)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	tests := []struct {
		stats  fakeStats
		status string
	}{
		{fakeStats{Backend: "rod>static", MaxSessions: 10, ActiveSessions: 2}, "healthy"},
		{fakeStats{Backend: "rod>static", MaxSessions: 10, ActiveSessions: 9}, "degraded"},
		{fakeStats{Backend: "static"}, "healthy"},
	}
	for _, tt := range tests {
		w := do(Health(tt.stats, time.Now().Add(-time.Minute)), http.MethodGet, "")
		var resp models.HealthResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Status != tt.status {
			t.Errorf("%+v: status = %q, want %q", tt.stats, resp.Status, tt.status)
		}
		if resp.RendererStats.Backend != tt.stats.Backend || resp.Version != Version {
			t.Errorf("resp = %+v", resp)
		}
	}
}
