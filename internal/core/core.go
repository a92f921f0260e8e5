package core

import "time"

// Provenance records which model and prompt version produced a generated record.
type Provenance struct {
	Model         string `json:"model"`          // Model identifier used for generation
	PromptVersion string `json:"prompt_version"` // Version of the prompt template used
}

// CompanyContext represents the brand identity extracted from a company URL and UVP.
// It is immutable once created and owned by a single pipeline run.
type CompanyContext struct {
	CompanyID     string    `json:"company_id"`     // Unique identifier for this company/run
	URL           string    `json:"url"`            // Company website URL
	UVP           string    `json:"uvp"`            // Caller-supplied unique value proposition
	BrandHeadline string    `json:"brand_headline"` // Extracted brand headline
	BrandKeywords []string  `json:"brand_keywords"` // Order-preserving brand keyword set
	BrandColors   []string  `json:"brand_colors"`   // Brand color descriptions or hex codes
	LogoURLs      []string  `json:"logo_urls"`      // Candidate logo image URLs
	ShortBullets  []string  `json:"short_bullets"`  // Short value bullets for prompt reuse
	Tone          string    `json:"tone"`           // Brand tone of voice
	GeneratedAt   time.Time `json:"generated_at"`   // Timestamp when the context was extracted
}

// Persona represents one candidate buyer profile generated from a CompanyContext.
// One persona per run is selected as the anchor and drives all downstream generation.
type Persona struct {
	PersonaID         string   `json:"persona_id"`         // Unique identifier for the persona
	Name              string   `json:"name"`               // Display name
	Role              string   `json:"role"`               // Job role or title
	CompanySize       string   `json:"company_size"`       // Size of the company this persona works at
	Motivations       []string `json:"motivations"`        // Ordered list of motivations
	PainPoints        []string `json:"pain_points"`        // Pain points the product addresses
	PreferredChannels []string `json:"preferred_channels"` // Marketing channels this persona responds to
	Tone              string   `json:"tone"`               // Tone of voice that resonates with this persona
}

// Idea represents one candidate ad concept ("script"). Ideas are created in
// batches (patches) and never mutated after creation.
type Idea struct {
	ScriptID       string     `json:"script_id"`        // Run-wide unique identifier; join key for scores and briefs
	PatchID        string     `json:"patch_id"`         // Identifier of the batch that produced this idea
	PersonaID      string     `json:"persona_id"`       // Owning persona
	Headline       string     `json:"headline"`         // Ad headline
	Body           string     `json:"body"`             // Ad body copy
	CTA            string     `json:"cta"`              // Call to action
	Keywords       []string   `json:"keywords"`         // Keywords used for trend lookups
	SeedPhrase     string     `json:"seed_phrase"`      // Creative-angle label used for this batch
	Temperature    float32    `json:"temperature"`      // Generation temperature used for this batch
	Provenance     Provenance `json:"provenance"`       // Model and prompt version that produced the idea
	RawLLMResponse string     `json:"raw_llm_response"` // Raw model response text, kept for audit
	CreatedAt      time.Time  `json:"created_at"`       // Timestamp when the idea was generated
}

// PatchMetadata describes one generation batch. Exactly one record exists per
// batch of ideas; used for audit and debugging, not business logic.
type PatchMetadata struct {
	PatchID       string    `json:"patch_id"`       // Unique identifier for the batch
	PersonaID     string    `json:"persona_id"`     // Persona the batch was generated for
	SeedPhrase    string    `json:"seed_phrase"`    // Seed phrase used by this batch
	Temperature   float32   `json:"temperature"`    // Temperature used by this batch
	BatchIndex    int       `json:"batch_index"`    // Zero-based index of the batch within the run
	PromptVersion string    `json:"prompt_version"` // Version of the patch prompt template
	GeneratedAt   time.Time `json:"generated_at"`   // Timestamp when the batch completed
}

// IdeaScore holds the three sub-scores and the weighted final score for one idea.
// At most one exists per idea per run; rescoring overwrites.
type IdeaScore struct {
	ScriptID   string    `json:"script_id"`   // Idea this score belongs to
	TrendScore int       `json:"trend_score"` // External topical-interest signal (0-100)
	LLMScore   int       `json:"llm_score"`   // Model-judged quality score (0-100)
	ViralScore int       `json:"viral_score"` // Shareability signal (0-100)
	FinalScore int       `json:"final_score"` // Weighted combination; never set directly
	Rationale  string    `json:"rationale"`   // Free-text rationale from the judging model
	ScoredAt   time.Time `json:"scored_at"`   // Timestamp when the score was computed
}

// Scene is one timed visual beat inside a video brief.
type Scene struct {
	Time   string `json:"time"`   // Time range within the video (e.g. "0-2s")
	Visual string `json:"visual"` // Visual description for the scene
}

// VideoBrief is the structured creative specification for video generation.
type VideoBrief struct {
	Hook      string  `json:"hook"`      // Opening hook
	Scenes    []Scene `json:"scenes"`    // Ordered list of scenes
	Voiceover string  `json:"voiceover"` // Voiceover script (may be empty)
	CTA       string  `json:"cta"`       // Closing call to action
}

// AssetBrief is generated for each top-K idea and consumed by media generation.
type AssetBrief struct {
	ScriptID    string     `json:"script_id"`    // Idea this brief belongs to
	ImageBrief  string     `json:"image_brief"`  // Free-text image generation prompt
	VideoBrief  VideoBrief `json:"video_brief"`  // Structured video specification
	GeneratedAt time.Time  `json:"generated_at"` // Timestamp when the brief was generated
}

// Experiment is the run-level manifest persisted alongside the artifacts.
type Experiment struct {
	ExperimentID        string            `json:"experiment_id"`        // Unique identifier for the run
	StartedAt           time.Time         `json:"started_at"`           // When the run started
	CompletedAt         time.Time         `json:"completed_at"`         // When the run completed
	InputURL            string            `json:"input_url"`            // Company URL the run was started with
	UVP                 string            `json:"uvp"`                  // Value proposition the run was started with
	PersonaChoice       string            `json:"persona_choice"`       // PersonaID of the selected anchor persona
	ModelVersions       map[string]string `json:"model_versions"`       // Text/image/video model identifiers
	PromptVersions      map[string]string `json:"prompt_versions"`      // Prompt template versions per stage
	TemperatureSchedule []float32         `json:"temperature_schedule"` // Temperature cycle used for patches
	SeedsVersion        string            `json:"seeds_version"`        // Version of the seed pool
	ConfigVersion       string            `json:"config_version"`       // Version of the pipeline config
}
