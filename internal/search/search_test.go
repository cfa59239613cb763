package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gemini-bot/internal/apperr"
)

type fakeSummarizer struct {
	prompt string
	reply  string
	err    error
}

func (f *fakeSummarizer) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, f.err
}

type staticProvider struct {
	name    string
	results []Result
	err     error
	calls   int
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Search(context.Context, string, int) ([]Result, error) {
	p.calls++
	return p.results, p.err
}

func TestSerpAPIParsesOrganicResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("q") != "golang" || q.Get("api_key") != "k" || q.Get("num") != "5" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"organic_results":[
			{"title":"Go","link":"https://go.dev"},
			{"title":"Tour","link":"https://go.dev/tour"}
		]}`))
	}))
	defer srv.Close()

	c := NewSerpAPI("k", time.Second)
	c.BaseURL = srv.URL
	got, err := c.Search(context.Background(), "golang", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Go" || got[1].Link != "https://go.dev/tour" {
		t.Fatalf("unexpected results %+v", got)
	}
}

func TestSerpAPIStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewSerpAPI("bad", time.Second)
	c.BaseURL = srv.URL
	if _, err := c.Search(context.Background(), "x", 5); err == nil || !strings.Contains(err.Error(), "401") {
		t.Fatalf("want status error, got %v", err)
	}
}

const ddgFixture = `<html><body>
<div class="result results_links web-result"><div class="links_main result__body">
  <h2 class="result__title"><a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fgo.dev%2F&amp;rut=abc">The Go Programming Language</a></h2>
</div></div>
<div class="result"><div class="result__body">
  <h2><a class="result__a" href="https://pkg.go.dev/">Go Packages</a></h2>
</div></div>
<div class="result"><div class="result__body">
  <h2><a class="result__a" href="">broken</a></h2>
</div></div>
<div class="result"><div class="result__body">
  <h2><a class="result__a" href="https://example.com/3">Third</a></h2>
</div></div>
</body></html>`

func TestParseDuckDuckGo(t *testing.T) {
	got, err := parseDuckDuckGo(strings.NewReader(ddgFixture), 2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Result{
		{Title: "The Go Programming Language", Link: "https://go.dev/"},
		{Title: "Go Packages", Link: "https://pkg.go.dev/"},
	}
	if len(got) != len(want) {
		t.Fatalf("want %d results, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("result %d: want %+v got %+v", i, want[i], got[i])
		}
	}
}

func TestDuckDuckGoSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != "go lang" {
			t.Errorf("unexpected query %q", r.URL.Query().Get("q"))
		}
		_, _ = w.Write([]byte(ddgFixture))
	}))
	defer srv.Close()

	d := NewDuckDuckGo(time.Second)
	d.BaseURL = srv.URL
	got, err := d.Search(context.Background(), "go lang", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("want 3 results, got %+v", got)
	}
}

func TestServiceSummarizes(t *testing.T) {
	sum := &fakeSummarizer{reply: "Go is a language."}
	primary := &staticProvider{name: "primary", results: []Result{
		{Title: "Go", Link: "https://go.dev"},
		{Title: "Tour", Link: "https://go.dev/tour"},
	}}
	svc := NewService(sum, 5, nil, primary)

	got, err := svc.Search(context.Background(), "  golang ")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	wantPrompt := "Summarize the following search results:\n1. Go: https://go.dev\n2. Tour: https://go.dev/tour"
	if sum.prompt != wantPrompt {
		t.Fatalf("unexpected prompt %q", sum.prompt)
	}
	wantText := "🔎 **AI-Powered Web Search Summary:**\nGo is a language.\n\n🌐 **Top Links:**\n1. Go: https://go.dev\n2. Tour: https://go.dev/tour"
	if got.Format() != wantText {
		t.Fatalf("unexpected format %q", got.Format())
	}
}

func TestServiceFallsBack(t *testing.T) {
	failing := &staticProvider{name: "serpapi", err: errors.New("quota")}
	empty := &staticProvider{name: "empty"}
	backup := &staticProvider{name: "ddg", results: []Result{{Title: "a", Link: "b"}}}
	svc := NewService(&fakeSummarizer{reply: "s"}, 5, nil, failing, empty, backup)

	got, err := svc.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got.Empty() || backup.calls != 1 || empty.calls != 1 {
		t.Fatalf("fallback not used: %+v", got)
	}
}

func TestServiceCapsResults(t *testing.T) {
	var many []Result
	for i := 0; i < 8; i++ {
		many = append(many, Result{Title: "t", Link: "l"})
	}
	svc := NewService(&fakeSummarizer{reply: "s"}, 0, nil, &staticProvider{name: "p", results: many})
	got, err := svc.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got.Results) != DefaultResults {
		t.Fatalf("want %d results, got %d", DefaultResults, len(got.Results))
	}
}

func TestServiceNoResults(t *testing.T) {
	sum := &fakeSummarizer{reply: "unused"}
	svc := NewService(sum, 5, nil, &staticProvider{name: "p"})
	got, err := svc.Search(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !got.Empty() || got.Format() != "No search results found." {
		t.Fatalf("unexpected summary %q", got.Format())
	}
	if sum.prompt != "" {
		t.Fatalf("model must not be called without results")
	}
}

func TestServiceAllProvidersFail(t *testing.T) {
	svc := NewService(&fakeSummarizer{}, 5, nil,
		&staticProvider{name: "a", err: errors.New("down")},
		&staticProvider{name: "b", err: errors.New("blocked")},
	)
	_, err := svc.Search(context.Background(), "q")
	var ext *apperr.ExternalServiceError
	if !errors.As(err, &ext) || ext.Service != "search" {
		t.Fatalf("want external search error, got %v", err)
	}
	if !strings.Contains(err.Error(), "down") || !strings.Contains(err.Error(), "blocked") {
		t.Fatalf("both causes should be reported: %v", err)
	}
}

func TestServiceRejectsEmptyQuery(t *testing.T) {
	svc := NewService(&fakeSummarizer{}, 5, nil)
	if _, err := svc.Search(context.Background(), "   "); err == nil {
		t.Fatalf("expected error")
	}
}
