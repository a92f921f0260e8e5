package pipeline

import (
	"context"
	"fmt"
	"time"

	"adforge/internal/config"
	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/logger"
	"adforge/internal/prompts"
	"adforge/internal/rundir"
	"adforge/internal/scrape"
	"adforge/internal/store"
	"adforge/internal/trends"

	"github.com/google/uuid"
)

// PersonaSelector picks the anchor persona from the generated candidates and
// returns its index. The CLI implements this interactively; callers with a
// predetermined choice supply a constant selector.
type PersonaSelector func(personas []core.Persona) (int, error)

// FixedPersona returns a selector that always picks the given index.
func FixedPersona(index int) PersonaSelector {
	return func(personas []core.Persona) (int, error) {
		if index < 0 || index >= len(personas) {
			return 0, fmt.Errorf("persona index %d out of range (have %d personas)", index, len(personas))
		}
		return index, nil
	}
}

// Runner wires the stages into a full end-to-end run. Every stage persists
// its output to the store and the run directory before the next stage starts,
// so a failed run leaves inspectable partial artifacts.
type Runner struct {
	Config  *config.Config
	Client  *llm.Client
	Media   llm.MediaGenerator
	Store   *store.Store
	Sampler *scrape.Sampler
	Trends  *trends.Scorer
}

// RunOptions are the per-run inputs.
type RunOptions struct {
	URL           string          // Company website URL
	UVP           string          // Unique value proposition
	SelectPersona PersonaSelector // Anchor persona choice
}

// RunResult collects every stage's output plus the artifact location.
type RunResult struct {
	ExperimentID string
	RunDir       string
	Context      core.CompanyContext
	Personas     []core.Persona
	Anchor       core.Persona
	Ideas        []core.Idea
	Scores       []core.IdeaScore
	Assets       AssetsResult
}

// Run executes the full pipeline for one company.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	startedAt := time.Now().UTC()
	experimentID := uuid.NewString()
	cfg := r.Config

	dir, err := rundir.New(cfg.Output.Directory, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	logger.Info("Starting run", "experiment_id", experimentID, "dir", dir.Root(), "url", opts.URL)

	result := &RunResult{ExperimentID: experimentID, RunDir: dir.Root()}

	// Stage 1: brand context.
	contextResult, err := GenerateCompanyContext(ctx, r.Client, r.Sampler, ContextOptions{
		CompanyID:  experimentID,
		URL:        opts.URL,
		UVP:        opts.UVP,
		Model:      cfg.AI.Gemini.TextModel,
		MaxRetries: cfg.AI.Gemini.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	result.Context = contextResult.Context
	if err := r.Store.SaveCompanyContext(contextResult.Context, contextResult.RawText); err != nil {
		return nil, fmt.Errorf("failed to persist context: %w", err)
	}
	if err := dir.WriteJSON(rundir.ContextFile, contextResult.Context); err != nil {
		return nil, err
	}

	// Stage 2: personas and anchor selection.
	personaResult, err := GeneratePersonas(ctx, r.Client, PersonaOptions{
		Context:    contextResult.Context,
		Count:      cfg.Pipeline.PersonaCount,
		Model:      cfg.AI.Gemini.TextModel,
		MaxRetries: cfg.AI.Gemini.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	result.Personas = personaResult.Personas
	if err := r.Store.SavePersonas(experimentID, personaResult.Personas); err != nil {
		return nil, fmt.Errorf("failed to persist personas: %w", err)
	}
	if err := dir.WriteJSON(rundir.PersonasFile, personaResult.Personas); err != nil {
		return nil, err
	}

	choice, err := opts.SelectPersona(personaResult.Personas)
	if err != nil {
		return nil, fmt.Errorf("persona selection failed: %w", err)
	}
	anchor := personaResult.Personas[choice]
	result.Anchor = anchor
	if err := r.Store.SetAnchorPersona(experimentID, anchor.PersonaID); err != nil {
		return nil, fmt.Errorf("failed to record anchor persona: %w", err)
	}
	logger.Info("Anchor persona selected", "persona_id", anchor.PersonaID, "name", anchor.Name)

	// Stage 3: idea patches, sequential, seed and temperature cycled per batch.
	for i := 0; i < cfg.Pipeline.PatchCount; i++ {
		patch, err := GeneratePatch(ctx, r.Client, PatchOptions{
			Context:       contextResult.Context,
			Persona:       anchor,
			Seed:          prompts.SeedForBatch(i),
			Temperature:   prompts.TemperatureForBatch(cfg.Pipeline.Temperatures, i),
			BatchIndex:    i,
			IdeasPerPatch: cfg.Pipeline.IdeasPerPatch,
			Model:         cfg.AI.Gemini.TextModel,
			MaxRetries:    cfg.AI.Gemini.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		if err := r.Store.SavePatch(patch.Metadata, patch.Ideas, patch.RawText); err != nil {
			return nil, fmt.Errorf("failed to persist patch %d: %w", i, err)
		}
		if err := dir.WriteJSON(rundir.PatchFile(i), patch); err != nil {
			return nil, err
		}
		result.Ideas = append(result.Ideas, patch.Ideas...)
	}
	logger.Info("Idea generation complete", "patches", cfg.Pipeline.PatchCount, "ideas", len(result.Ideas))

	// Stage 4: weighted scoring.
	llmWeight, trendWeight, viralWeight := cfg.Scoring.Weights()
	scores, err := ScoreAll(ctx, r.Client, r.Trends, ScoringOptions{
		Ideas:            result.Ideas,
		Persona:          anchor,
		Context:          contextResult.Context,
		Model:            cfg.AI.Gemini.TextModel,
		Weights:          Weights{LLM: llmWeight, Trend: trendWeight, Viral: viralWeight},
		PredictiveBatch:  cfg.Scoring.PredictiveBatchSize,
		ViralBatch:       cfg.Scoring.ViralBatchSize,
		TrendConcurrency: cfg.Trends.Concurrency,
		MaxRetries:       cfg.AI.Gemini.MaxRetries,
	})
	if err != nil {
		return nil, err
	}
	result.Scores = scores
	if err := r.Store.SaveScores(scores); err != nil {
		return nil, fmt.Errorf("failed to persist scores: %w", err)
	}
	if err := dir.WriteJSON(rundir.ScoresFile, scores); err != nil {
		return nil, err
	}

	// Stage 5: briefs and media for the top-ranked ideas.
	assetOpts := AssetOptions{
		Scores:        scores,
		Ideas:         result.Ideas,
		Persona:       anchor,
		Context:       contextResult.Context,
		TextModel:     cfg.AI.Gemini.TextModel,
		ImageModel:    cfg.AI.Gemini.ImageModel,
		VideoModel:    cfg.AI.Gemini.VideoModel,
		TopIdeaCount:  cfg.Pipeline.TopIdeaCount,
		TopVideoCount: cfg.Pipeline.TopVideoCount,
		VideoSeconds:  cfg.Media.VideoSeconds,
		VideoDelay:    cfg.Media.VideoDelay,
		MaxRetries:    cfg.AI.Gemini.MaxRetries,
	}

	briefs, err := GenerateBriefs(ctx, r.Client, assetOpts)
	if err != nil {
		return nil, err
	}
	for _, brief := range briefs {
		if err := r.Store.SaveBrief(brief, ""); err != nil {
			return nil, fmt.Errorf("failed to persist brief %s: %w", brief.ScriptID, err)
		}
		if err := dir.WriteJSON(rundir.BriefFile(brief.ScriptID), brief); err != nil {
			return nil, err
		}
	}

	poller := llm.NewPoller(r.Media, cfg.Media.PollInterval, cfg.Media.PollMaxAttempts)
	imagesWritten, imagesFailed := GenerateImages(ctx, r.Media, dir, cfg.AI.Gemini.ImageModel, briefs)
	videosWritten, videosFailed := GenerateVideos(ctx, r.Media, poller, dir, assetOpts, briefs)

	result.Assets = AssetsResult{
		Briefs:        briefs,
		ImagesWritten: imagesWritten,
		ImagesFailed:  imagesFailed,
		VideosWritten: videosWritten,
		VideosFailed:  videosFailed,
	}
	if err := dir.WriteJSON(rundir.AssetsSummary, result.Assets); err != nil {
		return nil, err
	}

	// Run manifest, written last so its presence marks a completed run.
	experiment := core.Experiment{
		ExperimentID:  experimentID,
		StartedAt:     startedAt,
		CompletedAt:   time.Now().UTC(),
		InputURL:      opts.URL,
		UVP:           opts.UVP,
		PersonaChoice: anchor.PersonaID,
		ModelVersions: map[string]string{
			"text":  cfg.AI.Gemini.TextModel,
			"image": cfg.AI.Gemini.ImageModel,
			"video": cfg.AI.Gemini.VideoModel,
		},
		PromptVersions: map[string]string{
			prompts.Context.Name:    prompts.Context.Version,
			prompts.Persona.Name:    prompts.Persona.Version,
			prompts.Patch.Name:      prompts.Patch.Version,
			prompts.Predictive.Name: prompts.Predictive.Version,
			prompts.Viral.Name:      prompts.Viral.Version,
			prompts.Asset.Name:      prompts.Asset.Version,
		},
		TemperatureSchedule: cfg.Pipeline.Temperatures,
		SeedsVersion:        prompts.SeedsVersion,
		ConfigVersion:       cfg.App.Version,
	}
	if err := r.Store.SaveExperiment(experiment); err != nil {
		return nil, fmt.Errorf("failed to persist experiment: %w", err)
	}
	if err := dir.WriteJSON(rundir.ExperimentFile, experiment); err != nil {
		return nil, err
	}

	logger.Info("Run complete",
		"experiment_id", experimentID,
		"ideas", len(result.Ideas),
		"briefs", len(briefs),
		"images", len(imagesWritten),
		"videos", len(videosWritten))
	return result, nil
}
