package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/logger"
	"adforge/internal/prompts"
	"adforge/internal/rundir"
	"adforge/internal/schema"

	"golang.org/x/sync/errgroup"
)

var assetSchema = &schema.Schema{
	Type:     schema.TypeObject,
	Required: []string{"image_brief", "video_brief"},
	Properties: map[string]*schema.Schema{
		"image_brief": {Type: schema.TypeString},
		"video_brief": {
			Type:     schema.TypeObject,
			Required: []string{"hook", "scenes", "cta"},
			Properties: map[string]*schema.Schema{
				"hook": {Type: schema.TypeString},
				"scenes": {
					Type: schema.TypeArray,
					Items: &schema.Schema{
						Type:     schema.TypeObject,
						Required: []string{"time", "visual"},
						Properties: map[string]*schema.Schema{
							"time":   {Type: schema.TypeString},
							"visual": {Type: schema.TypeString},
						},
					},
				},
				"voiceover": {Type: schema.TypeString},
				"cta":       {Type: schema.TypeString},
			},
		},
	},
}

// RankByFinalScore returns the scores ordered by final score descending.
// Equal scores keep their input order, so ranking is deterministic for a
// fixed scoring output. The input slice is not modified.
func RankByFinalScore(scores []core.IdeaScore) []core.IdeaScore {
	ranked := make([]core.IdeaScore, len(scores))
	copy(ranked, scores)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked
}

// SelectTop returns the k highest-scored entries. A k above the input length
// returns everything.
func SelectTop(scores []core.IdeaScore, k int) []core.IdeaScore {
	ranked := RankByFinalScore(scores)
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// AssetOptions configures brief and media generation for the top-ranked ideas.
type AssetOptions struct {
	Scores        []core.IdeaScore    // Scores for the candidate ideas
	Ideas         []core.Idea         // Ideas the scores refer to
	Persona       core.Persona        // Anchor persona
	Context       core.CompanyContext // Validated brand context
	TextModel     string              // Model for brief generation
	ImageModel    string              // Model for image generation
	VideoModel    string              // Model for video generation
	TopIdeaCount  int                 // How many ideas get a brief and an image
	TopVideoCount int                 // How many of those also get a video
	VideoSeconds  int32               // Requested video duration
	VideoDelay    time.Duration       // Pause between consecutive video starts
	MaxRetries    int                 // Generation retry budget per brief
}

// AssetsResult summarizes an asset-generation pass. Per-item failures are
// logged and counted rather than aborting the pass.
type AssetsResult struct {
	Briefs        []core.AssetBrief `json:"briefs"`         // Briefs generated, ranked order
	ImagesWritten []string          `json:"images_written"` // Script IDs with a stored image
	ImagesFailed  []string          `json:"images_failed"`  // Script IDs whose image failed
	VideosWritten []string          `json:"videos_written"` // Script IDs with a stored video
	VideosFailed  []string          `json:"videos_failed"`  // Script IDs whose video failed
}

// GenerateBriefs creates an AssetBrief for each of the top-ranked ideas. A
// brief that fails generation or validation is logged and skipped; the
// remaining briefs keep ranked order.
func GenerateBriefs(ctx context.Context, client *llm.Client, opts AssetOptions) ([]core.AssetBrief, error) {
	ideasByID := make(map[string]core.Idea, len(opts.Ideas))
	for _, idea := range opts.Ideas {
		ideasByID[idea.ScriptID] = idea
	}

	top := SelectTop(opts.Scores, opts.TopIdeaCount)
	briefs := make([]core.AssetBrief, 0, len(top))

	for _, score := range top {
		idea, ok := ideasByID[score.ScriptID]
		if !ok {
			return nil, fmt.Errorf("score references unknown idea %q", score.ScriptID)
		}

		brief, err := generateBrief(ctx, client, idea, opts)
		if err != nil {
			logger.Warn("Asset brief generation failed, skipping idea", "script_id", idea.ScriptID, "error", err.Error())
			continue
		}
		briefs = append(briefs, *brief)
	}

	logger.Info("Asset briefs generated", "requested", len(top), "succeeded", len(briefs))
	return briefs, nil
}

func generateBrief(ctx context.Context, client *llm.Client, idea core.Idea, opts AssetOptions) (*core.AssetBrief, error) {
	ideaPayload, err := json.MarshalIndent(idea, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode idea: %w", err)
	}

	result, err := client.GenerateJSON(ctx, llm.JSONRequest{
		Prompt: prompts.Asset,
		Variables: map[string]string{
			"context": contextJSON(opts.Context),
			"persona": personaJSON(opts.Persona),
			"idea":    string(ideaPayload),
		},
		Model:       opts.TextModel,
		Temperature: prompts.BriefTemperature,
		MaxRetries:  opts.MaxRetries,
		Tag:         fmt.Sprintf("asset_%s", idea.ScriptID),
	})
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(assetSchema, result.Data); err != nil {
		return nil, fmt.Errorf("asset brief failed validation: %w", err)
	}

	var brief core.AssetBrief
	if err := json.Unmarshal([]byte(result.Stripped), &brief); err != nil {
		return nil, fmt.Errorf("failed to decode asset brief: %w", err)
	}
	brief.ScriptID = idea.ScriptID
	brief.GeneratedAt = time.Now().UTC()
	return &brief, nil
}

// GenerateImages renders one image per brief, concurrently, and stores the
// bytes in the run directory. Failures are logged per brief and reported in
// the returned lists; they never abort the other generations.
func GenerateImages(ctx context.Context, media llm.MediaGenerator, dir *rundir.RunDir, model string, briefs []core.AssetBrief) (written, failed []string) {
	type imageOutcome struct {
		scriptID string
		err      error
	}

	outcomes := make([]imageOutcome, len(briefs))
	g, gctx := errgroup.WithContext(ctx)

	for i, brief := range briefs {
		g.Go(func() error {
			outcomes[i] = imageOutcome{scriptID: brief.ScriptID, err: RenderImage(gctx, media, dir, model, brief)}
			return nil
		})
	}
	g.Wait()

	for _, outcome := range outcomes {
		if outcome.err != nil {
			logger.Warn("Image generation failed", "script_id", outcome.scriptID, "error", outcome.err.Error())
			failed = append(failed, outcome.scriptID)
			continue
		}
		written = append(written, outcome.scriptID)
	}

	logger.Info("Image generation complete", "succeeded", len(written), "failed", len(failed))
	return written, failed
}

// RenderImage generates one image from a brief and stores it in the run
// directory.
func RenderImage(ctx context.Context, media llm.MediaGenerator, dir *rundir.RunDir, model string, brief core.AssetBrief) error {
	result, err := media.GenerateImage(ctx, model, brief.ImageBrief)
	if err != nil {
		return err
	}
	return dir.WriteFile(rundir.ImageFile(brief.ScriptID), result.Bytes)
}

// GenerateVideos renders videos for the top briefs, strictly one at a time
// with a pause between starts. Video generation is the most quota-limited
// operation in the pipeline, so unlike images there is no parallelism here.
func GenerateVideos(ctx context.Context, media llm.MediaGenerator, poller *llm.Poller, dir *rundir.RunDir, opts AssetOptions, briefs []core.AssetBrief) (written, failed []string) {
	count := opts.TopVideoCount
	if count > len(briefs) {
		count = len(briefs)
	}

	for i := 0; i < count; i++ {
		brief := briefs[i]
		if i > 0 && opts.VideoDelay > 0 {
			select {
			case <-ctx.Done():
				failed = append(failed, brief.ScriptID)
				continue
			case <-time.After(opts.VideoDelay):
			}
		}

		if err := RenderVideo(ctx, media, poller, dir, opts, brief); err != nil {
			logger.Warn("Video generation failed", "script_id", brief.ScriptID, "error", err.Error())
			failed = append(failed, brief.ScriptID)
			continue
		}
		written = append(written, brief.ScriptID)
	}

	logger.Info("Video generation complete", "succeeded", len(written), "failed", len(failed))
	return written, failed
}

// RenderVideo starts one video generation from a brief, waits for the
// operation to finish, and stores the result in the run directory.
func RenderVideo(ctx context.Context, media llm.MediaGenerator, poller *llm.Poller, dir *rundir.RunDir, opts AssetOptions, brief core.AssetBrief) error {
	handle, err := media.StartVideo(ctx, opts.VideoModel, videoPrompt(brief.VideoBrief), opts.VideoSeconds)
	if err != nil {
		return fmt.Errorf("failed to start video generation: %w", err)
	}

	result, err := poller.Wait(ctx, handle)
	if err != nil {
		return err
	}
	return dir.WriteFile(rundir.VideoFile(brief.ScriptID), result.Bytes)
}

// videoPrompt flattens the structured brief into a single generation prompt.
func videoPrompt(brief core.VideoBrief) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Short-form ad video.\nHook: %s\n", brief.Hook)
	for _, scene := range brief.Scenes {
		fmt.Fprintf(&b, "Scene %s: %s\n", scene.Time, scene.Visual)
	}
	if brief.Voiceover != "" {
		fmt.Fprintf(&b, "Voiceover: %s\n", brief.Voiceover)
	}
	fmt.Fprintf(&b, "Closing CTA: %s", brief.CTA)
	return b.String()
}
