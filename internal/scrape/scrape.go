// Package scrape fetches a company site and extracts a bounded excerpt used
// to ground the context-extraction prompt. Fetching is best effort: on any
// failure the caller-supplied value proposition is used as the sample.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"adforge/internal/logger"

	"github.com/PuerkitoBio/goquery"
)

const (
	maxHeadings   = 5
	maxParagraphs = 4
	// Only the first few paragraphs are considered; short ones are noise.
	paragraphPool   = 6
	minParagraphLen = 40
	maxListItems    = 8
	// Combined cap to keep the excerpt from bloating the prompt.
	maxSections = 12
)

// Sampler fetches and excerpts company sites.
type Sampler struct {
	httpClient *http.Client
}

// NewSampler creates a Sampler with a bounded request timeout.
func NewSampler() *Sampler {
	return &Sampler{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// FetchSample fetches the URL and returns an excerpt of its HTML. On fetch
// failure, a non-2xx status, or an empty excerpt, the UVP text is returned
// instead so the context stage always has a sample.
func (s *Sampler) FetchSample(ctx context.Context, url, uvp string) string {
	html, err := s.fetch(ctx, url)
	if err != nil {
		logger.Warn("Unable to fetch URL for context ingestion, falling back to UVP", "url", url, "error", err.Error())
		return uvp
	}

	sample := BuildSample(html)
	if sample == "" {
		return uvp
	}
	return sample
}

func (s *Sampler) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", url, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch URL %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("failed to fetch URL %s: status code %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body from %s: %w", url, err)
	}
	return string(body), nil
}

// BuildSample extracts a bounded excerpt from HTML: title, meta description,
// top headings, the first substantial paragraphs, and top list items, capped
// and joined with newlines.
func BuildSample(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("Failed to parse HTML for context sample", "error", err.Error())
		return ""
	}

	var sections []string
	appendSection := func(text string) {
		text = strings.TrimSpace(text)
		if text != "" {
			sections = append(sections, text)
		}
	}

	appendSection(doc.Find("head title").First().Text())
	if description, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		appendSection(description)
	}

	doc.Find("h1, h2").Slice(0, min(doc.Find("h1, h2").Length(), maxHeadings)).Each(func(_ int, sel *goquery.Selection) {
		appendSection(sel.Text())
	})

	var paragraphs []string
	doc.Find("p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= paragraphPool || len(paragraphs) >= maxParagraphs {
			return false
		}
		text := strings.TrimSpace(sel.Text())
		if len(text) > minParagraphLen {
			paragraphs = append(paragraphs, text)
		}
		return true
	})
	sections = append(sections, paragraphs...)

	doc.Find("li").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= maxListItems {
			return false
		}
		appendSection(sel.Text())
		return true
	})

	if len(sections) > maxSections {
		sections = sections[:maxSections]
	}
	return strings.Join(sections, "\n")
}
