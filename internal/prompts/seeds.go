package prompts

// SeedsVersion identifies the seed pool for run manifests.
const SeedsVersion = "v1"

// Seeds is the creative-angle pool cycled across idea batches. Diversifying
// the angle per batch keeps patches from collapsing into one framing.
var Seeds = []string{
	"unconventional_approach",
	"surprise_element",
	"emotional_hook",
	"problem_agitate_solve",
	"contrarian_viewpoint",
	"social_proof_extreme",
	"urgency_scarcity",
	"curiosity_gap",
	"transformation_story",
	"insider_secret",
	"myth_busting",
	"before_after_dramatic",
	"challenge_accepted",
	"exclusive_access",
	"hidden_benefit",
	"reverse_psychology",
	"fear_of_missing_out",
	"aspirational_identity",
	"pain_amplification",
	"unique_mechanism",
}

// SeedDescriptions explains each creative angle; embedded into the patch
// prompt so the model knows what the label means.
var SeedDescriptions = map[string]string{
	"unconventional_approach": "Break industry norms with unexpected solutions",
	"surprise_element":        "Shock value that captures attention instantly",
	"emotional_hook":          "Tap into deep emotions and personal stories",
	"problem_agitate_solve":   "Identify pain, make it worse, then offer relief",
	"contrarian_viewpoint":    "Challenge common beliefs and assumptions",
	"social_proof_extreme":    "Overwhelming evidence of success and popularity",
	"urgency_scarcity":        "Limited time or availability creates FOMO",
	"curiosity_gap":           "Create a knowledge gap that demands to be filled",
	"transformation_story":    "Dramatic before/after success narratives",
	"insider_secret":          "Reveal what industry insiders don't want you to know",
	"myth_busting":            "Debunk common myths and misconceptions",
	"before_after_dramatic":   "Show extreme transformation visually",
	"challenge_accepted":      "Dare your audience to try and prove it",
	"exclusive_access":        "VIP treatment and insider opportunities",
	"hidden_benefit":          "Reveal unexpected advantages",
	"reverse_psychology":      "Tell them NOT to do it (making them want it)",
	"fear_of_missing_out":     "Everyone else is doing it, why aren't you?",
	"aspirational_identity":   "Become the person you want to be",
	"pain_amplification":      "Make the problem feel unbearable",
	"unique_mechanism":        "A special method that only we have",
}

// SeedForBatch returns the seed phrase for a batch index, cycling the pool.
func SeedForBatch(index int) string {
	return Seeds[index%len(Seeds)]
}

// SeedLabel returns "seed: description" for prompt embedding.
func SeedLabel(seed string) string {
	if desc, ok := SeedDescriptions[seed]; ok {
		return seed + ": " + desc
	}
	return seed
}

// Default temperatures for tasks outside the idea-batch schedule.
const (
	PersonaTemperature float32 = 0.7
	ScoringTemperature float32 = 0.2
	BriefTemperature   float32 = 0.6
	ContextTemperature float32 = 0.3
)

// TemperatureForBatch returns the batch temperature, cycling the schedule.
// An empty schedule falls back to a mid-range temperature.
func TemperatureForBatch(schedule []float32, index int) float32 {
	if len(schedule) == 0 {
		return 0.5
	}
	return schedule[index%len(schedule)]
}
