// Package pipeline implements the five generation stages: context extraction,
// persona generation, idea patches, weighted scoring, and asset generation.
// Stages run strictly in order; each consumes the validated output of its
// predecessor and persists raw output, parsed output and provenance before
// the next stage starts.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/logger"
	"adforge/internal/prompts"
	"adforge/internal/schema"
	"adforge/internal/scrape"
)

var contextSchema = &schema.Schema{
	Type:     schema.TypeObject,
	Required: []string{"company_id", "url", "uvp"},
	Properties: map[string]*schema.Schema{
		"company_id":     {Type: schema.TypeString},
		"url":            {Type: schema.TypeString},
		"uvp":            {Type: schema.TypeString},
		"brand_headline": {Type: schema.TypeString},
		"brand_keywords": {Type: schema.TypeArray, Items: &schema.Schema{Type: schema.TypeString}},
		"brand_colors":   {Type: schema.TypeArray, Items: &schema.Schema{Type: schema.TypeString}},
		"logo_urls":      {Type: schema.TypeArray, Items: &schema.Schema{Type: schema.TypeString}},
		"short_bullets":  {Type: schema.TypeArray, Items: &schema.Schema{Type: schema.TypeString}},
		"tone":           {Type: schema.TypeString},
	},
}

// ContextOptions configures the context-extraction stage.
type ContextOptions struct {
	CompanyID  string // Identifier assigned to this company/run
	URL        string // Company website URL; fetch is best effort
	UVP        string // Value proposition; used as the sample when fetch fails
	Model      string // Text model identifier
	MaxRetries int    // Generation retry budget
}

// ContextResult is the context stage output.
type ContextResult struct {
	Context core.CompanyContext // Parsed and validated brand context
	RawText string              // Raw model response, kept for audit
	Sample  string              // Site sample fed to the prompt
}

// GenerateCompanyContext runs the context stage: fetch a site sample (falling
// back to the UVP), generate the brand context, and validate it.
func GenerateCompanyContext(ctx context.Context, client *llm.Client, sampler *scrape.Sampler, opts ContextOptions) (*ContextResult, error) {
	logger.Info("Fetching site content for context extraction", "url", opts.URL)
	sample := sampler.FetchSample(ctx, opts.URL, opts.UVP)

	result, err := client.GenerateJSON(ctx, llm.JSONRequest{
		Prompt: prompts.Context,
		Variables: map[string]string{
			"companyId": opts.CompanyID,
			"url":       opts.URL,
			"uvp":       opts.UVP,
			"sample":    sample,
		},
		Model:       opts.Model,
		Temperature: prompts.ContextTemperature,
		MaxRetries:  opts.MaxRetries,
		Tag:         "context",
	})
	if err != nil {
		return nil, fmt.Errorf("context stage failed: %w", err)
	}

	if err := schema.Validate(contextSchema, result.Data); err != nil {
		return nil, fmt.Errorf("context stage failed: %w", err)
	}

	var companyContext core.CompanyContext
	if err := json.Unmarshal([]byte(result.Stripped), &companyContext); err != nil {
		return nil, fmt.Errorf("context stage failed to decode payload: %w", err)
	}
	if companyContext.GeneratedAt.IsZero() {
		companyContext.GeneratedAt = time.Now().UTC()
	}

	logger.Info("Context extracted",
		"headline", companyContext.BrandHeadline,
		"keywords", headOf(companyContext.BrandKeywords, 5))
	return &ContextResult{Context: companyContext, RawText: result.RawText, Sample: sample}, nil
}

func headOf(values []string, n int) []string {
	if len(values) > n {
		return values[:n]
	}
	return values
}

// contextJSON renders a context for embedding into downstream prompts.
func contextJSON(companyContext core.CompanyContext) string {
	payload, err := json.MarshalIndent(companyContext, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(payload)
}

// personaJSON renders a persona for embedding into downstream prompts.
func personaJSON(persona core.Persona) string {
	payload, err := json.MarshalIndent(persona, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(payload)
}
