package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const sampleHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Acme Robotics</title>
  <meta name="description" content="Robots that fold your laundry.">
</head>
<body>
  <h1>Laundry, handled</h1>
  <h2>How it works</h2>
  <p>Too short.</p>
  <p>Our robots learn the layout of your home and fold laundry while you sleep, every night.</p>
  <ul>
    <li>Folds shirts</li>
    <li>Pairs socks</li>
  </ul>
</body>
</html>`

func TestBuildSample(t *testing.T) {
	sample := BuildSample(sampleHTML)

	for _, want := range []string{
		"Acme Robotics",
		"Robots that fold your laundry.",
		"Laundry, handled",
		"How it works",
		"Folds shirts",
		"Pairs socks",
	} {
		if !strings.Contains(sample, want) {
			t.Errorf("sample missing %q:\n%s", want, sample)
		}
	}

	if strings.Contains(sample, "Too short.") {
		t.Error("short paragraphs should be excluded")
	}
	if !strings.Contains(sample, "fold laundry while you sleep") {
		t.Error("substantial paragraph should be included")
	}
}

func TestBuildSampleCapsSections(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><ul>")
	for i := 0; i < 30; i++ {
		b.WriteString("<li>item</li>")
	}
	b.WriteString("</ul></body></html>")

	sample := BuildSample(b.String())
	if got := len(strings.Split(sample, "\n")); got > maxListItems {
		t.Errorf("sample has %d list sections, cap is %d", got, maxListItems)
	}
}

func TestBuildSampleEmptyHTML(t *testing.T) {
	if got := BuildSample(""); got != "" {
		t.Errorf("empty html should yield empty sample, got %q", got)
	}
}

func TestFetchSampleSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleHTML))
	}))
	defer server.Close()

	sample := NewSampler().FetchSample(context.Background(), server.URL, "fallback uvp")
	if !strings.Contains(sample, "Acme Robotics") {
		t.Errorf("sample = %q, want scraped content", sample)
	}
}

func TestFetchSampleFallsBackOnStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	if got := NewSampler().FetchSample(context.Background(), server.URL, "fallback uvp"); got != "fallback uvp" {
		t.Errorf("FetchSample = %q, want UVP fallback", got)
	}
}

func TestFetchSampleFallsBackOnUnreachableHost(t *testing.T) {
	if got := NewSampler().FetchSample(context.Background(), "http://127.0.0.1:0", "fallback uvp"); got != "fallback uvp" {
		t.Errorf("FetchSample = %q, want UVP fallback", got)
	}
}

func TestFetchSampleFallsBackOnEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body></body></html>"))
	}))
	defer server.Close()

	if got := NewSampler().FetchSample(context.Background(), server.URL, "fallback uvp"); got != "fallback uvp" {
		t.Errorf("FetchSample = %q, want UVP fallback", got)
	}
}
