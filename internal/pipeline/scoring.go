package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/logger"
	"adforge/internal/prompts"
	"adforge/internal/schema"
	"adforge/internal/trends"

	"golang.org/x/sync/errgroup"
)

// Sentinel scores used when a chunk never produced a value for an idea, so
// the scoring stage stays total over its input.
const (
	DefaultLLMScore   = 45
	DefaultViralScore = 40
	DefaultTrendScore = 35

	missingPredictiveRationale = "Missing predictive score"
	missingViralRationale      = "Missing viral score"
)

func judgeSchema(scoreField string) *schema.Schema {
	return &schema.Schema{
		Type:     schema.TypeObject,
		Required: []string{"scores"},
		Properties: map[string]*schema.Schema{
			"scores": {
				Type: schema.TypeArray,
				Items: &schema.Schema{
					Type:     schema.TypeObject,
					Required: []string{"script_id", scoreField, "rationale"},
					Properties: map[string]*schema.Schema{
						"script_id": {Type: schema.TypeString},
						scoreField:  schema.Score01(),
						"rationale": {Type: schema.TypeString},
					},
				},
			},
		},
	}
}

var (
	predictiveSchema = judgeSchema("llm_score")
	viralSchema      = judgeSchema("viral_score")
)

// Weights are the linear combination weights for the final score.
type Weights struct {
	LLM   float64 // Weight of the model-judged quality score
	Trend float64 // Weight of the trend signal
	Viral float64 // Weight of the shareability signal
}

// FinalScore computes the weighted combination, rounded to the nearest
// integer. This is the only place a final score is computed.
func (w Weights) FinalScore(llmScore, trendScore, viralScore int) int {
	final := float64(llmScore)*w.LLM + float64(trendScore)*w.Trend + float64(viralScore)*w.Viral
	return int(math.Round(final))
}

// ScoringOptions configures the scoring stage.
type ScoringOptions struct {
	Ideas            []core.Idea         // Ideas to score; output is total over this set
	Persona          core.Persona        // Anchor persona
	Context          core.CompanyContext // Validated brand context
	Model            string              // Text model identifier
	Weights          Weights             // Final-score weights
	PredictiveBatch  int                 // Chunk size for the predictive judge prompt
	ViralBatch       int                 // Chunk size for the viral judge prompt
	TrendConcurrency int                 // Bounded fan-out for trend lookups
	MaxRetries       int                 // Generation retry budget per chunk
}

type judgeEntry struct {
	score     int
	rationale string
}

// ScoreAll scores every idea: predictive and viral judge calls in fixed-size
// chunks, trend lookups in a bounded fan-out, fused into exactly one
// IdeaScore per input idea in input order. A failed chunk is logged and
// skipped; ideas it covered fall back to the sentinel defaults.
func ScoreAll(ctx context.Context, client *llm.Client, scorer *trends.Scorer, opts ScoringOptions) ([]core.IdeaScore, error) {
	predictiveMap := runJudgeBatches(ctx, client, judgeBatchOptions{
		ideas:      opts.Ideas,
		prompt:     prompts.Predictive,
		schema:     predictiveSchema,
		scoreField: "llm_score",
		batchSize:  opts.PredictiveBatch,
		tagPrefix:  "predictive_batch",
		context:    opts.Context,
		persona:    opts.Persona,
		model:      opts.Model,
		maxRetries: opts.MaxRetries,
	})

	viralMap := runJudgeBatches(ctx, client, judgeBatchOptions{
		ideas:      opts.Ideas,
		prompt:     prompts.Viral,
		schema:     viralSchema,
		scoreField: "viral_score",
		batchSize:  opts.ViralBatch,
		tagPrefix:  "viral_batch",
		context:    opts.Context,
		persona:    opts.Persona,
		model:      opts.Model,
		maxRetries: opts.MaxRetries,
	})

	trendMap, err := fetchTrendScores(ctx, scorer, opts.Ideas, opts.TrendConcurrency)
	if err != nil {
		return nil, err
	}

	scoredAt := time.Now().UTC()
	scores := make([]core.IdeaScore, 0, len(opts.Ideas))
	for _, idea := range opts.Ideas {
		predictive, ok := predictiveMap[idea.ScriptID]
		if !ok {
			predictive = judgeEntry{score: DefaultLLMScore, rationale: missingPredictiveRationale}
		}
		viral, ok := viralMap[idea.ScriptID]
		if !ok {
			viral = judgeEntry{score: DefaultViralScore, rationale: missingViralRationale}
		}
		trendScore, ok := trendMap[idea.ScriptID]
		if !ok {
			trendScore = DefaultTrendScore
		}

		var rationale []string
		if predictive.rationale != "" {
			rationale = append(rationale, predictive.rationale)
		}
		if viral.rationale != "" {
			rationale = append(rationale, viral.rationale)
		}

		scores = append(scores, core.IdeaScore{
			ScriptID:   idea.ScriptID,
			TrendScore: trendScore,
			LLMScore:   predictive.score,
			ViralScore: viral.score,
			FinalScore: opts.Weights.FinalScore(predictive.score, trendScore, viral.score),
			Rationale:  strings.Join(rationale, "\n"),
			ScoredAt:   scoredAt,
		})
	}

	logger.Info("Scoring complete", "ideas", len(scores), "top", topSummaries(scores, 3))
	return scores, nil
}

type judgeBatchOptions struct {
	ideas      []core.Idea
	prompt     prompts.Definition
	schema     *schema.Schema
	scoreField string
	batchSize  int
	tagPrefix  string
	context    core.CompanyContext
	persona    core.Persona
	model      string
	maxRetries int
}

// runJudgeBatches sends the ideas to the judge prompt in fixed-size chunks
// and merges the per-chunk score maps. Errors never propagate: a failed
// chunk only costs its entries.
func runJudgeBatches(ctx context.Context, client *llm.Client, opts judgeBatchOptions) map[string]judgeEntry {
	merged := make(map[string]judgeEntry)

	for index, batch := range chunk(opts.ideas, opts.batchSize) {
		tag := fmt.Sprintf("%s_%d", opts.tagPrefix, index)

		result, err := client.GenerateJSON(ctx, llm.JSONRequest{
			Prompt: opts.prompt,
			Variables: map[string]string{
				"context": contextJSON(opts.context),
				"persona": personaJSON(opts.persona),
				"ideas":   ideasJSON(batch),
			},
			Model:       opts.model,
			Temperature: prompts.ScoringTemperature,
			MaxRetries:  opts.maxRetries,
			Tag:         tag,
		})
		if err != nil {
			logger.Warn("Judge batch failed, ideas in it fall back to defaults", "tag", tag, "error", err.Error())
			continue
		}
		if err := schema.Validate(opts.schema, result.Data); err != nil {
			logger.Warn("Judge batch returned invalid payload, ideas in it fall back to defaults", "tag", tag, "error", err.Error())
			continue
		}

		var payload struct {
			Scores []map[string]any `json:"scores"`
		}
		if err := json.Unmarshal([]byte(result.Stripped), &payload); err != nil {
			logger.Warn("Judge batch payload failed to decode", "tag", tag, "error", err.Error())
			continue
		}

		for _, entry := range payload.Scores {
			scriptID, _ := entry["script_id"].(string)
			value, _ := entry[opts.scoreField].(float64)
			rationale, _ := entry["rationale"].(string)
			merged[scriptID] = judgeEntry{score: int(math.Round(value)), rationale: rationale}
		}
	}

	return merged
}

// fetchTrendScores looks up trend scores for all ideas with a bounded
// concurrent fan-out. Individual lookups never fail (the scorer degrades to
// a heuristic); the only error out of here is context cancellation.
func fetchTrendScores(ctx context.Context, scorer *trends.Scorer, ideas []core.Idea, concurrency int) (map[string]int, error) {
	if concurrency < 1 {
		concurrency = 1
	}

	results := make([]int, len(ideas))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, idea := range ideas {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = scorer.Score(gctx, idea.Keywords)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("trend lookups canceled: %w", err)
	}

	trendMap := make(map[string]int, len(ideas))
	for i, idea := range ideas {
		trendMap[idea.ScriptID] = results[i]
	}
	return trendMap, nil
}

// chunk partitions ideas into fixed-size batches, preserving order. A size
// below 1 is raised to 1.
func chunk(ideas []core.Idea, size int) [][]core.Idea {
	if size < 1 {
		size = 1
	}
	var batches [][]core.Idea
	for start := 0; start < len(ideas); start += size {
		end := start + size
		if end > len(ideas) {
			end = len(ideas)
		}
		batches = append(batches, ideas[start:end])
	}
	return batches
}

// ideasJSON renders the chunk members' scoreable fields for the judge prompt.
func ideasJSON(ideas []core.Idea) string {
	type scoreableIdea struct {
		ScriptID string   `json:"script_id"`
		Headline string   `json:"headline"`
		Body     string   `json:"body"`
		CTA      string   `json:"cta"`
		Keywords []string `json:"keywords"`
	}

	entries := make([]scoreableIdea, 0, len(ideas))
	for _, idea := range ideas {
		entries = append(entries, scoreableIdea{
			ScriptID: idea.ScriptID,
			Headline: idea.Headline,
			Body:     idea.Body,
			CTA:      idea.CTA,
			Keywords: idea.Keywords,
		})
	}

	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(payload)
}

func topSummaries(scores []core.IdeaScore, n int) []map[string]any {
	ranked := RankByFinalScore(scores)
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	summaries := make([]map[string]any, 0, len(ranked))
	for _, score := range ranked {
		summaries = append(summaries, map[string]any{"script_id": score.ScriptID, "score": score.FinalScore})
	}
	return summaries
}
