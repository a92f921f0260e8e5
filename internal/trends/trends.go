// Package trends scores an idea's keywords against external topical-interest
// data. Lookups are best effort: a failed lookup degrades to a keyword-count
// heuristic rather than failing the scoring run.
package trends

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Defaults returned when a real lookup is impossible. Values are deliberately
// mid-range so unscoreable ideas neither float to the top nor sink.
const (
	NoKeywordsScore    = 30 // Idea has no keywords to look up
	EmptyTimelineScore = 40 // Lookup succeeded but returned no timeline
	EmptySeriesScore   = 45 // Timeline present but carried no values
)

// Provider fetches an interest-over-time series for a set of keywords.
type Provider interface {
	InterestOverTime(ctx context.Context, keywords []string, lookbackDays int, geo string) ([]float64, error)
}

// Scorer turns keyword sets into 0-100 trend scores.
type Scorer struct {
	provider        Provider
	lookbackDays    int
	keywordsPerIdea int
	geo             string
}

// NewScorer creates a Scorer. keywordsPerIdea caps how many keywords are sent
// per lookup; values below 1 are raised to 1.
func NewScorer(provider Provider, lookbackDays, keywordsPerIdea int, geo string) *Scorer {
	if keywordsPerIdea < 1 {
		keywordsPerIdea = 1
	}
	return &Scorer{
		provider:        provider,
		lookbackDays:    lookbackDays,
		keywordsPerIdea: keywordsPerIdea,
		geo:             geo,
	}
}

// Score returns the trend score for one idea's keywords. It never returns an
// error: lookup failures fall back to HeuristicScore.
func (s *Scorer) Score(ctx context.Context, keywords []string) int {
	if len(keywords) == 0 {
		return NoKeywordsScore
	}

	trimmed := keywords
	if len(trimmed) > s.keywordsPerIdea {
		trimmed = trimmed[:s.keywordsPerIdea]
	}

	series, err := s.provider.InterestOverTime(ctx, trimmed, s.lookbackDays, s.geo)
	if err != nil {
		return HeuristicScore(len(trimmed))
	}
	return ScoreFromSeries(series)
}

// ScoreFromSeries averages the series and clamps the result to [0, 100],
// rounding to the nearest integer. Empty input maps to the documented
// defaults instead of zero.
func ScoreFromSeries(series []float64) int {
	if series == nil {
		return EmptyTimelineScore
	}
	if len(series) == 0 {
		return EmptySeriesScore
	}

	var sum float64
	for _, v := range series {
		sum += v
	}
	average := sum / float64(len(series))
	return int(math.Round(math.Min(100, math.Max(0, average))))
}

// HeuristicScore approximates topical interest from keyword count alone,
// used when the provider is unreachable.
func HeuristicScore(keywordCount int) int {
	score := 35 + keywordCount*12
	if score > 85 {
		score = 85
	}
	return score
}

// HTTPProvider queries an interest-over-time HTTP endpoint that returns a
// timeline of per-interval values, in the shape exposed by the widely used
// trends proxy services.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProvider creates an HTTPProvider for the given endpoint base URL.
func NewHTTPProvider(baseURL string) *HTTPProvider {
	return &HTTPProvider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

type timelineResponse struct {
	Default struct {
		TimelineData []struct {
			Value []float64 `json:"value"`
		} `json:"timelineData"`
	} `json:"default"`
}

// InterestOverTime implements Provider.
func (p *HTTPProvider) InterestOverTime(ctx context.Context, keywords []string, lookbackDays int, geo string) ([]float64, error) {
	endTime := time.Now()
	startTime := endTime.AddDate(0, 0, -lookbackDays)

	query := url.Values{}
	query.Set("keyword", strings.Join(keywords, ","))
	query.Set("startTime", startTime.Format(time.RFC3339))
	query.Set("endTime", endTime.Format(time.RFC3339))
	query.Set("geo", geo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/interestOverTime?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build trends request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trends lookup failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("trends lookup failed: status code %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read trends response: %w", err)
	}

	var parsed timelineResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse trends response: %w", err)
	}

	if parsed.Default.TimelineData == nil {
		return nil, nil
	}
	series := []float64{}
	for _, entry := range parsed.Default.TimelineData {
		series = append(series, entry.Value...)
	}
	return series, nil
}
