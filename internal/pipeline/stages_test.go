package pipeline

import (
	"context"
	"errors"
	"testing"

	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/schema"
)

func personaJSONResponse(names ...string) *llm.Response {
	payload := `{"personas": [`
	for i, name := range names {
		if i > 0 {
			payload += ","
		}
		payload += `{"persona_id": "p-` + name + `", "name": "` + name + `", "role": "buyer", "company_size": "10-50",
			"motivations": ["grow"], "pain_points": ["time"], "preferred_channels": ["email"], "tone": "direct"}`
	}
	payload += "]}"
	return &llm.Response{Text: "```json\n" + payload + "\n```"}
}

func TestGeneratePersonasExactCount(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{personaJSONResponse("Ana", "Ben", "Cal")}}

	result, err := GeneratePersonas(context.Background(), llm.NewClient(gen), PersonaOptions{
		Context: core.CompanyContext{CompanyID: "c1"},
		Count:   3,
	})
	if err != nil {
		t.Fatalf("GeneratePersonas returned error: %v", err)
	}
	if len(result.Personas) != 3 {
		t.Fatalf("got %d personas, want 3", len(result.Personas))
	}
	if result.Personas[1].Name != "Ben" {
		t.Errorf("persona order not preserved: %s", result.Personas[1].Name)
	}
}

func TestGeneratePersonasRejectsWrongCount(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{personaJSONResponse("Ana", "Ben")}}

	_, err := GeneratePersonas(context.Background(), llm.NewClient(gen), PersonaOptions{
		Context: core.CompanyContext{CompanyID: "c1"},
		Count:   3,
	})
	var validationErr *schema.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected schema validation error, got %v", err)
	}
}

func TestGeneratePersonasRejectsNullList(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{
		{Text: `{"personas": null}`},
	}}

	_, err := GeneratePersonas(context.Background(), llm.NewClient(gen), PersonaOptions{
		Context: core.CompanyContext{CompanyID: "c1"},
		Count:   3,
	})
	var validationErr *schema.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected schema validation error, got %v", err)
	}
	if validationErr.Path != "$.personas" {
		t.Errorf("Path = %q, want $.personas", validationErr.Path)
	}
}

func TestGeneratePatch(t *testing.T) {
	patchJSON := `{"ideas": [
		{"script_id": "s1", "headline": "h1", "body": "b1", "cta": "c1", "keywords": ["k1", "k2"]},
		{"script_id": "s2", "headline": "h2", "body": "b2", "cta": "c2"}
	]}`
	gen := &scriptedGenerator{responses: []*llm.Response{{Text: patchJSON}}}

	result, err := GeneratePatch(context.Background(), llm.NewClient(gen), PatchOptions{
		Context:       core.CompanyContext{CompanyID: "c1"},
		Persona:       core.Persona{PersonaID: "p1"},
		Seed:          "curiosity_gap",
		Temperature:   0.35,
		BatchIndex:    1,
		IdeasPerPatch: 2,
		Model:         "test-model",
	})
	if err != nil {
		t.Fatalf("GeneratePatch returned error: %v", err)
	}

	if result.Metadata.PatchID == "" {
		t.Error("metadata has no patch id")
	}
	if result.Metadata.SeedPhrase != "curiosity_gap" || result.Metadata.BatchIndex != 1 {
		t.Errorf("metadata = %+v", result.Metadata)
	}
	if len(result.Ideas) != 2 {
		t.Fatalf("got %d ideas, want 2", len(result.Ideas))
	}

	first := result.Ideas[0]
	if first.PatchID != result.Metadata.PatchID {
		t.Error("idea not linked to its patch")
	}
	if first.PersonaID != "p1" || first.SeedPhrase != "curiosity_gap" || first.Temperature != 0.35 {
		t.Errorf("provenance fields = %+v", first)
	}
	if first.Provenance.Model != "test-model" {
		t.Errorf("Provenance.Model = %q", first.Provenance.Model)
	}
	if first.RawLLMResponse == "" {
		t.Error("raw response not kept")
	}

	// Absent keywords decode to an empty slice, never nil.
	if result.Ideas[1].Keywords == nil {
		t.Error("missing keywords should be an empty slice")
	}
}

func TestGeneratePatchRejectsMissingFields(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{
		{Text: `{"ideas": [{"script_id": "s1", "headline": "h1"}]}`},
	}}

	_, err := GeneratePatch(context.Background(), llm.NewClient(gen), PatchOptions{
		Persona:       core.Persona{PersonaID: "p1"},
		Seed:          "curiosity_gap",
		IdeasPerPatch: 1,
	})
	if err == nil {
		t.Fatal("expected validation error for idea missing body and cta")
	}
}

func TestFixedPersona(t *testing.T) {
	personas := []core.Persona{{Name: "a"}, {Name: "b"}}

	idx, err := FixedPersona(1)(personas)
	if err != nil || idx != 1 {
		t.Errorf("FixedPersona(1) = %d, %v", idx, err)
	}
	if _, err := FixedPersona(2)(personas); err == nil {
		t.Error("out-of-range index should error")
	}
	if _, err := FixedPersona(-1)(personas); err == nil {
		t.Error("negative index should error")
	}
}
