package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AI.Gemini.TextModel != "gemini-2.5-flash" {
		t.Errorf("text model = %q", cfg.AI.Gemini.TextModel)
	}
	if cfg.AI.Gemini.MaxRetries != 2 {
		t.Errorf("max retries = %d, want 2", cfg.AI.Gemini.MaxRetries)
	}
	if cfg.Pipeline.PersonaCount != 3 || cfg.Pipeline.PatchCount != 5 {
		t.Errorf("pipeline counts = %d/%d, want 3/5", cfg.Pipeline.PersonaCount, cfg.Pipeline.PatchCount)
	}
	if len(cfg.Pipeline.Temperatures) != 5 || cfg.Pipeline.Temperatures[0] != 0.2 {
		t.Errorf("temperatures = %v", cfg.Pipeline.Temperatures)
	}
	if cfg.Scoring.LLMWeight != 0.45 || cfg.Scoring.TrendWeight != 0.35 || cfg.Scoring.ViralWeight != 0.20 {
		t.Errorf("weights = %.2f/%.2f/%.2f", cfg.Scoring.LLMWeight, cfg.Scoring.TrendWeight, cfg.Scoring.ViralWeight)
	}
	if cfg.Media.PollInterval != 5*time.Second || cfg.Media.PollMaxAttempts != 24 {
		t.Errorf("poll config = %v/%d", cfg.Media.PollInterval, cfg.Media.PollMaxAttempts)
	}
	if cfg.Media.VideoDelay != 2*time.Second {
		t.Errorf("video delay = %v", cfg.Media.VideoDelay)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoadCachesConfig(t *testing.T) {
	Reset()
	t.Cleanup(Reset)

	first, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	second, err := Load("")
	if err != nil {
		t.Fatalf("Load again: %v", err)
	}
	if first != second {
		t.Error("Load should return the cached instance")
	}
}

func defaultValidConfig() *Config {
	return &Config{
		Pipeline: Pipeline{
			PersonaCount: 3,
			PatchCount:   5,
			Temperatures: []float32{0.2, 0.35, 0.5},
		},
		Scoring: Scoring{LLMWeight: 0.45, TrendWeight: 0.35, ViralWeight: 0.20},
		Media:   Media{PollMaxAttempts: 24},
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "negative weight",
			mutate:  func(c *Config) { c.Scoring.TrendWeight = -0.1 },
			wantErr: "non-negative",
		},
		{
			name:   "non-normalized weights warn but pass",
			mutate: func(c *Config) { c.Scoring.LLMWeight = 0.9 },
		},
		{
			name:    "zero patch count",
			mutate:  func(c *Config) { c.Pipeline.PatchCount = 0 },
			wantErr: "patch_count",
		},
		{
			name:    "zero persona count",
			mutate:  func(c *Config) { c.Pipeline.PersonaCount = 0 },
			wantErr: "persona_count",
		},
		{
			name:    "empty temperatures",
			mutate:  func(c *Config) { c.Pipeline.Temperatures = nil },
			wantErr: "temperatures",
		},
		{
			name:    "zero poll attempts",
			mutate:  func(c *Config) { c.Media.PollMaxAttempts = 0 },
			wantErr: "poll_max_attempts",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultValidConfig()
			tt.mutate(cfg)
			err := validateConfig(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("validateConfig: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestScoringWeights(t *testing.T) {
	s := Scoring{LLMWeight: 0.45, TrendWeight: 0.35, ViralWeight: 0.20}
	llm, trend, viral := s.Weights()
	if llm != 0.45 || trend != 0.35 || viral != 0.20 {
		t.Errorf("Weights() = %.2f/%.2f/%.2f", llm, trend, viral)
	}
}
