// Package prompts holds the versioned prompt templates used by the pipeline
// stages, the creative seed pool, and the {{key}} template renderer.
package prompts

import (
	"regexp"
	"strings"

	"adforge/internal/logger"
)

// Definition is a versioned prompt template with an optional system instruction.
type Definition struct {
	Name     string `json:"name"`     // Stable prompt identifier
	Version  string `json:"version"`  // Version recorded in provenance
	System   string `json:"system"`   // Optional system instruction
	Template string `json:"template"` // Body with {{key}} placeholders
}

var placeholderRegex = regexp.MustCompile(`{{(.*?)}}`)

// Render substitutes {{key}} placeholders in template with values from vars.
// Unmatched placeholders render as the empty string; that keeps prompt files
// forward-compatible, but a warning is logged so typos don't go unnoticed.
func Render(template string, vars map[string]string) string {
	return placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		key := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(match, "{{"), "}}"))
		value, ok := vars[key]
		if !ok {
			logger.Warn("Prompt template references unknown variable", "key", key)
			return ""
		}
		return value
	})
}

// Context extracts brand identity from a scraped site sample.
var Context = Definition{
	Name:    "context_extraction",
	Version: "v1",
	System:  "You are a brand strategist who distills company websites into precise brand profiles. Respond with JSON only.",
	Template: `Analyze the following company and produce a brand context profile.

Company ID: {{companyId}}
Website: {{url}}
Value proposition: {{uvp}}

Site sample:
{{sample}}

Respond with a JSON object:
{
  "company_id": "{{companyId}}",
  "url": "{{url}}",
  "uvp": "{{uvp}}",
  "brand_headline": "one-line brand headline",
  "brand_keywords": ["keyword", ...],
  "brand_colors": ["color", ...],
  "logo_urls": [],
  "short_bullets": ["short value bullet", ...],
  "tone": "tone of voice"
}`,
}

// Persona generates buyer personas from a company context.
var Persona = Definition{
	Name:    "persona_generation",
	Version: "v1",
	System:  "You are a B2B marketing researcher who builds sharply differentiated buyer personas. Respond with JSON only.",
	Template: `Given this brand context, generate exactly {{count}} distinct buyer personas.

Brand context:
{{context}}

Each persona must target a different segment. Respond with:
{
  "personas": [
    {
      "persona_id": "unique-id",
      "name": "persona name",
      "role": "job role",
      "company_size": "e.g. 10-50",
      "motivations": ["..."],
      "pain_points": ["..."],
      "preferred_channels": ["..."],
      "tone": "tone that resonates"
    }
  ]
}`,
}

// Patch generates one batch of ad-copy ideas for the anchor persona.
var Patch = Definition{
	Name:    "patch_generation",
	Version: "v1",
	System:  "You are a guerrilla marketing copywriter. Every idea must be concrete enough to ship as an ad. Respond with JSON only.",
	Template: `Generate {{ideasPerPatch}} ad concepts for the persona below.

Brand context:
{{context}}

Persona:
{{persona}}

Creative angle for this batch: {{seed}}
Batch ID: {{patchId}}

Respond with:
{
  "ideas": [
    {
      "script_id": "unique-id",
      "headline": "ad headline",
      "body": "ad body copy",
      "cta": "call to action",
      "keywords": ["topical keyword", ...]
    }
  ]
}`,
}

// Predictive judges expected ad performance for a batch of ideas.
var Predictive = Definition{
	Name:    "predictive_scoring",
	Version: "v1",
	System:  "You are a performance marketing analyst. Score ads on expected conversion for the given persona. Respond with JSON only.",
	Template: `Score each ad idea from 0 to 100 on expected performance for this persona.

Brand context:
{{context}}

Persona:
{{persona}}

Ideas:
{{ideas}}

Respond with:
{
  "scores": [
    { "script_id": "...", "llm_score": 0, "rationale": "one sentence" }
  ]
}
Include exactly one entry per script_id above.`,
}

// Viral judges shareability for a batch of ideas.
var Viral = Definition{
	Name:    "viral_scoring",
	Version: "v1",
	System:  "You are a social media strategist. Score ads on organic shareability. Respond with JSON only.",
	Template: `Score each ad idea from 0 to 100 on viral/shareability potential.

Brand context:
{{context}}

Persona:
{{persona}}

Ideas:
{{ideas}}

Respond with:
{
  "scores": [
    { "script_id": "...", "viral_score": 0, "rationale": "one sentence" }
  ]
}
Include exactly one entry per script_id above.`,
}

// Asset turns a top-ranked idea into image and video briefs.
var Asset = Definition{
	Name:    "asset_brief",
	Version: "v1",
	System:  "You are a creative director writing production-ready briefs for AI media generation. Respond with JSON only.",
	Template: `Create an image brief and a short video brief for this ad idea.

Brand context:
{{context}}

Persona:
{{persona}}

Idea:
{{idea}}

Respond with:
{
  "image_brief": "a single detailed image generation prompt",
  "video_brief": {
    "hook": "opening hook",
    "scenes": [ { "time": "0-2s", "visual": "..." } ],
    "voiceover": "voiceover script",
    "cta": "closing call to action"
  }
}`,
}
