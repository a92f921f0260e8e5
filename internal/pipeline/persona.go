package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/logger"
	"adforge/internal/prompts"
	"adforge/internal/schema"
)

func personaSchema(count int) *schema.Schema {
	return &schema.Schema{
		Type:     schema.TypeObject,
		Required: []string{"personas"},
		Properties: map[string]*schema.Schema{
			"personas": {
				Type: schema.TypeArray,
				// A count mismatch is a contract break, not something to
				// truncate or pad around.
				ExactItems: count,
				Items: &schema.Schema{
					Type: schema.TypeObject,
					Required: []string{
						"persona_id", "name", "role", "company_size",
						"motivations", "pain_points", "preferred_channels", "tone",
					},
					Properties: map[string]*schema.Schema{
						"persona_id":         {Type: schema.TypeString},
						"name":               {Type: schema.TypeString},
						"role":               {Type: schema.TypeString},
						"company_size":       {Type: schema.TypeString},
						"motivations":        {Type: schema.TypeArray, Items: &schema.Schema{Type: schema.TypeString}},
						"pain_points":        {Type: schema.TypeArray, Items: &schema.Schema{Type: schema.TypeString}},
						"preferred_channels": {Type: schema.TypeArray, Items: &schema.Schema{Type: schema.TypeString}},
						"tone":               {Type: schema.TypeString},
					},
				},
			},
		},
	}
}

// PersonaOptions configures the persona-generation stage.
type PersonaOptions struct {
	Context    core.CompanyContext // Validated context from the previous stage
	Count      int                 // Exact number of personas required
	Model      string              // Text model identifier
	MaxRetries int                 // Generation retry budget
}

// PersonaResult is the persona stage output. Selecting the anchor persona is
// an external decision made after this stage, never inside it.
type PersonaResult struct {
	Personas []core.Persona // Exactly Count personas
	RawText  string         // Raw model response, kept for audit
}

// GeneratePersonas runs the persona stage with a single generation call that
// must yield exactly opts.Count personas.
func GeneratePersonas(ctx context.Context, client *llm.Client, opts PersonaOptions) (*PersonaResult, error) {
	result, err := client.GenerateJSON(ctx, llm.JSONRequest{
		Prompt: prompts.Persona,
		Variables: map[string]string{
			"context": contextJSON(opts.Context),
			"count":   strconv.Itoa(opts.Count),
		},
		Model:       opts.Model,
		Temperature: prompts.PersonaTemperature,
		MaxRetries:  opts.MaxRetries,
		Tag:         "persona_generation",
	})
	if err != nil {
		return nil, fmt.Errorf("persona stage failed: %w", err)
	}

	if err := schema.Validate(personaSchema(opts.Count), result.Data); err != nil {
		return nil, fmt.Errorf("persona stage failed: %w", err)
	}

	var payload struct {
		Personas []core.Persona `json:"personas"`
	}
	if err := json.Unmarshal([]byte(result.Stripped), &payload); err != nil {
		return nil, fmt.Errorf("persona stage failed to decode payload: %w", err)
	}

	names := make([]string, len(payload.Personas))
	for i, persona := range payload.Personas {
		names[i] = persona.Name
	}
	logger.Info("Generated personas", "names", names)

	return &PersonaResult{Personas: payload.Personas, RawText: result.RawText}, nil
}
