package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/logger"
	"adforge/internal/prompts"
	"adforge/internal/schema"

	"github.com/google/uuid"
)

var patchSchema = &schema.Schema{
	Type:     schema.TypeObject,
	Required: []string{"ideas"},
	Properties: map[string]*schema.Schema{
		"ideas": {
			Type: schema.TypeArray,
			Items: &schema.Schema{
				Type:     schema.TypeObject,
				Required: []string{"script_id", "headline", "body", "cta"},
				Properties: map[string]*schema.Schema{
					"script_id": {Type: schema.TypeString},
					"headline":  {Type: schema.TypeString},
					"body":      {Type: schema.TypeString},
					"cta":       {Type: schema.TypeString},
					"keywords":  {Type: schema.TypeArray, Items: &schema.Schema{Type: schema.TypeString}},
				},
			},
		},
	},
}

// PatchOptions configures one idea-generation batch. Batches are independent:
// batch i depends only on its seed (pool[i mod poolSize]) and temperature
// (schedule[i mod scheduleLen]), never on the outcome of batch i-1.
type PatchOptions struct {
	Context       core.CompanyContext // Validated brand context
	Persona       core.Persona        // Anchor persona
	Seed          string              // Creative angle for this batch
	Temperature   float32             // Generation temperature for this batch
	BatchIndex    int                 // Zero-based batch index
	IdeasPerPatch int                 // Requested idea count per batch
	Model         string              // Text model identifier
	MaxRetries    int                 // Generation retry budget
}

// PatchResult is one batch's output: its metadata record and its ideas.
type PatchResult struct {
	Metadata core.PatchMetadata // 1:1 audit record for the batch
	Ideas    []core.Idea        // Ideas produced by the batch
	RawText  string             // Raw model response, kept for audit
}

// GeneratePatch runs one idea batch.
func GeneratePatch(ctx context.Context, client *llm.Client, opts PatchOptions) (*PatchResult, error) {
	patchID := uuid.NewString()

	result, err := client.GenerateJSON(ctx, llm.JSONRequest{
		Prompt: prompts.Patch,
		Variables: map[string]string{
			"context":       contextJSON(opts.Context),
			"persona":       personaJSON(opts.Persona),
			"seed":          prompts.SeedLabel(opts.Seed),
			"ideasPerPatch": strconv.Itoa(opts.IdeasPerPatch),
			"patchId":       patchID,
		},
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxRetries:  opts.MaxRetries,
		Tag:         fmt.Sprintf("patch_%d", opts.BatchIndex),
	})
	if err != nil {
		return nil, fmt.Errorf("patch %d failed: %w", opts.BatchIndex, err)
	}

	if err := schema.Validate(patchSchema, result.Data); err != nil {
		return nil, fmt.Errorf("patch %d failed: %w", opts.BatchIndex, err)
	}

	var payload struct {
		Ideas []struct {
			ScriptID string   `json:"script_id"`
			Headline string   `json:"headline"`
			Body     string   `json:"body"`
			CTA      string   `json:"cta"`
			Keywords []string `json:"keywords"`
		} `json:"ideas"`
	}
	if err := json.Unmarshal([]byte(result.Stripped), &payload); err != nil {
		return nil, fmt.Errorf("patch %d failed to decode payload: %w", opts.BatchIndex, err)
	}

	generatedAt := time.Now().UTC()
	metadata := core.PatchMetadata{
		PatchID:       patchID,
		PersonaID:     opts.Persona.PersonaID,
		SeedPhrase:    opts.Seed,
		Temperature:   opts.Temperature,
		BatchIndex:    opts.BatchIndex,
		PromptVersion: prompts.Patch.Version,
		GeneratedAt:   generatedAt,
	}

	ideas := make([]core.Idea, 0, len(payload.Ideas))
	headlines := make([]string, 0, len(payload.Ideas))
	for _, idea := range payload.Ideas {
		keywords := idea.Keywords
		if keywords == nil {
			keywords = []string{}
		}
		ideas = append(ideas, core.Idea{
			ScriptID:    idea.ScriptID,
			PatchID:     patchID,
			PersonaID:   opts.Persona.PersonaID,
			Headline:    idea.Headline,
			Body:        idea.Body,
			CTA:         idea.CTA,
			Keywords:    keywords,
			SeedPhrase:  opts.Seed,
			Temperature: opts.Temperature,
			Provenance: core.Provenance{
				Model:         opts.Model,
				PromptVersion: prompts.Patch.Version,
			},
			RawLLMResponse: result.RawText,
			CreatedAt:      generatedAt,
		})
		headlines = append(headlines, idea.Headline)
	}

	logger.Info("Generated patch", "batch", opts.BatchIndex+1, "seed", opts.Seed, "headlines", headlines)
	return &PatchResult{Metadata: metadata, Ideas: ideas, RawText: result.RawText}, nil
}
