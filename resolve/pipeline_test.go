package resolve

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/use-agent/quizhook/answer"
	"github.com/use-agent/quizhook/fetch"
	"github.com/use-agent/quizhook/page"
)

func TestPipeline_EmbeddedJSONShortCircuits(t *testing.T) {
	f := &fakeFetcher{}
	html := `<pre>{"answer": 42}</pre>
<a href="/data.csv">data</a>
<script>atob("` + b64(`{"answer": 1}`) + `")</script>`

	got := New(f).Resolve(context.Background(), snapshot(html))
	if got != answer.Number(42) {
		t.Errorf("Resolve() = %v, want 42", got)
	}
	if len(f.calls) != 0 {
		t.Errorf("downloads attempted: %v", f.calls)
	}
}

func TestPipeline_NullAnswerFallsThrough(t *testing.T) {
	f := &fakeFetcher{bodies: map[string][]byte{
		"https://quiz.test/q/v.csv": []byte("v\n2\n3\n"),
	}}
	html := `<pre>{"answer": null}</pre><a href="v.csv">data</a>`

	if got := New(f).Resolve(context.Background(), snapshot(html)); got != answer.Number(5) {
		t.Errorf("Resolve() = %v, want 5", got)
	}
}

func TestPipeline_PriorityOverDOM(t *testing.T) {
	snap := page.New("https://quiz.test/", `<pre>{"answer": "json"}</pre>`,
		&fakeDOM{texts: map[string]string{"#result": "99"}})
	if got := New(nil).Resolve(context.Background(), snap); got != answer.Text("json") {
		t.Errorf("Resolve() = %v, want Text(json)", got)
	}
}

func TestPipeline_CSVColumnSum(t *testing.T) {
	f := &fakeFetcher{bodies: map[string][]byte{
		"https://quiz.test/files/scores.csv": []byte("name,score\na,5\nb,15\n"),
	}}
	html := `<p>Sum the score column.</p><a href="/files/scores.csv">scores</a>`

	if got := New(f).Resolve(context.Background(), snapshot(html)); got != answer.Number(20) {
		t.Errorf("Resolve() = %v, want 20", got)
	}
}

func TestPipeline_ResourceIsolation(t *testing.T) {
	f := &fakeFetcher{bodies: map[string][]byte{
		"https://quiz.test/q/b.csv": []byte("v\n1\n2\n"),
	}}
	html := `<a href="a.pdf">broken</a><a href="b.csv">ok</a>`

	got := New(f).Resolve(context.Background(), snapshot(html))
	if got != answer.Number(3) {
		t.Errorf("Resolve() = %v, want 3", got)
	}
	want := []string{"https://quiz.test/q/a.pdf", "https://quiz.test/q/b.csv"}
	if strings.Join(f.calls, " ") != strings.Join(want, " ") {
		t.Errorf("calls = %v, want %v", f.calls, want)
	}
}

func TestPipeline_UnparseableResourceSkipped(t *testing.T) {
	f := &fakeFetcher{bodies: map[string][]byte{
		"https://quiz.test/q/bad.xlsx": []byte("not a workbook"),
		"https://quiz.test/q/bad.pdf":  []byte("%PDF-1.4 nonsense"),
		"https://quiz.test/q/text.csv": []byte("a,b\nx,y\n"),
		"https://quiz.test/q/good.csv": []byte("n\n\"$1,000\"\n-250\n"),
	}}
	html := `<a href="bad.xlsx"></a><a href="bad.pdf"></a><a href="text.csv"></a><a href="good.csv"></a>`

	if got := New(f).Resolve(context.Background(), snapshot(html)); got != answer.Number(750) {
		t.Errorf("Resolve() = %v, want 750", got)
	}
}

func TestPipeline_ScriptThenDOMThenFallback(t *testing.T) {
	dom := &fakeDOM{texts: map[string]string{"#result": "true"}}
	snap := page.New("https://quiz.test/", `<div id="result">true</div>`, dom)
	if got := New(nil).Resolve(context.Background(), snap); got != answer.Boolean(true) {
		t.Errorf("Resolve() = %v, want true", got)
	}

	plain := snapshot(`<h1>Welcome</h1><p>Nothing to see.</p>`)
	got := New(nil).Resolve(context.Background(), plain)
	snippet, ok := got.Snippet()
	if !ok || snippet != "Welcome Nothing to see." {
		t.Errorf("Resolve() = %v, want unresolved snippet", got)
	}
}

func TestPipeline_FallbackBounded(t *testing.T) {
	long := "<p>" + strings.Repeat("é", 5000) + "</p>"
	got := New(nil).Resolve(context.Background(), snapshot(long))
	snippet, ok := got.Snippet()
	if !ok {
		t.Fatalf("Resolve() = %v, want unresolved", got)
	}
	if n := utf8.RuneCountInString(snippet); n != answer.SnippetLimit {
		t.Errorf("snippet has %d characters, want %d", n, answer.SnippetLimit)
	}
}

func TestPipeline_PanickingStrategyAbstains(t *testing.T) {
	p := NewWith(
		Strategy{Name: "boom", Run: func(context.Context, *page.Snapshot) (answer.Value, bool) {
			panic("parser bug")
		}},
		Strategy{Name: "embedded_json", Run: EmbeddedJSON},
	)
	if got := p.Resolve(context.Background(), snapshot(`<pre>{"answer": 1}</pre>`)); got != answer.Number(1) {
		t.Errorf("Resolve() = %v, want 1", got)
	}
}

func TestPipeline_Totality(t *testing.T) {
	inputs := []string{
		"",
		"<<<>>>",
		`<pre>{"answer":`,
		`<a href="::bad url">x.csv</a>`,
		`<script>atob("")</script>`,
		`<form action="/s"></form>`,
	}
	for _, html := range inputs {
		snap := page.New("https://quiz.test/", html, &fakeDOM{closed: true})
		_ = New(&fakeFetcher{}).Resolve(context.Background(), snap)
	}
	_ = New(nil).Resolve(context.Background(), page.New("::not a url", "<a href='x.csv'>", nil))
}

func TestPipeline_WithRealFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/missing.csv":
			http.NotFound(w, r)
		case "/table.tsv":
			w.Write([]byte("label\tqty\nx\t4\ny\t6\n"))
		}
	}))
	defer srv.Close()

	fetcher, err := fetch.New(fetch.Options{})
	if err != nil {
		t.Fatal(err)
	}
	snap := page.New(srv.URL+"/quiz", `<a href="/missing.csv">a</a><a href="/table.tsv">b</a>`, nil)
	if got := New(fetcher).Resolve(context.Background(), snap); got != answer.Number(10) {
		t.Errorf("Resolve() = %v, want 10", got)
	}
}
