package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"adforge/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App      App      `mapstructure:"app"`
	AI       AI       `mapstructure:"ai"`
	Pipeline Pipeline `mapstructure:"pipeline"`
	Scoring  Scoring  `mapstructure:"scoring"`
	Trends   Trends   `mapstructure:"trends"`
	Media    Media    `mapstructure:"media"`
	Output   Output   `mapstructure:"output"`
	Server   Server   `mapstructure:"server"`
}

// App holds general application configuration.
type App struct {
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	DataDir  string `mapstructure:"data_dir"`
	Version  string `mapstructure:"version"`
}

// AI holds Gemini configuration.
type AI struct {
	Gemini GeminiConfig `mapstructure:"gemini"`
}

// GeminiConfig holds Google Gemini configuration.
type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	TextModel  string `mapstructure:"text_model"`
	ImageModel string `mapstructure:"image_model"`
	VideoModel string `mapstructure:"video_model"`
	MaxRetries int    `mapstructure:"max_retries"`
}

// Pipeline holds generation-stage configuration.
type Pipeline struct {
	PersonaCount  int       `mapstructure:"persona_count"`
	PatchCount    int       `mapstructure:"patch_count"`
	IdeasPerPatch int       `mapstructure:"ideas_per_patch"`
	TopIdeaCount  int       `mapstructure:"top_idea_count"`
	TopVideoCount int       `mapstructure:"top_video_count"`
	Temperatures  []float32 `mapstructure:"temperatures"`
}

// Scoring holds weighted-scoring and batching configuration.
type Scoring struct {
	LLMWeight           float64 `mapstructure:"llm_weight"`
	TrendWeight         float64 `mapstructure:"trend_weight"`
	ViralWeight         float64 `mapstructure:"viral_weight"`
	PredictiveBatchSize int     `mapstructure:"predictive_batch_size"`
	ViralBatchSize      int     `mapstructure:"viral_batch_size"`
}

// Trends holds trend-lookup configuration.
type Trends struct {
	BaseURL         string `mapstructure:"base_url"`
	LookbackDays    int    `mapstructure:"lookback_days"`
	KeywordsPerIdea int    `mapstructure:"keywords_per_idea"`
	Concurrency     int    `mapstructure:"concurrency"`
	Geo             string `mapstructure:"geo"`
}

// Media holds media-generation configuration.
type Media struct {
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	PollMaxAttempts int           `mapstructure:"poll_max_attempts"`
	VideoSeconds    int32         `mapstructure:"video_seconds"`
	VideoDelay      time.Duration `mapstructure:"video_delay"`
}

// Output holds run-artifact configuration.
type Output struct {
	Directory string `mapstructure:"directory"`
}

// Server holds HTTP server configuration.
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSEnabled  bool          `mapstructure:"cors_enabled"`
}

var globalConfig *Config

// Load loads configuration from .env, config file, environment variables and
// defaults, in ascending precedence of env > file > defaults.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			logger.Warn("Error loading .env file", "error", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".adforge")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys("ai.gemini.api_key", "GEMINI_API_KEY", "GOOGLE_GEMINI_API_KEY", "GOOGLE_AI_API_KEY")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	globalConfig = config
	return config, nil
}

// Get returns the loaded configuration, loading with defaults if needed.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			logger.Error("Failed to load config, using defaults", err)
			cfg = &Config{}
		}
		globalConfig = cfg
	}
	return globalConfig
}

// Reset clears the cached configuration. Intended for tests.
func Reset() {
	globalConfig = nil
}

func setDefaults() {
	viper.SetDefault("app.debug", false)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.data_dir", ".adforge")
	viper.SetDefault("app.version", "v1")

	viper.SetDefault("ai.gemini.text_model", "gemini-2.5-flash")
	viper.SetDefault("ai.gemini.image_model", "imagen-4.0-generate-001")
	viper.SetDefault("ai.gemini.video_model", "veo-3.0-fast-generate-001")
	viper.SetDefault("ai.gemini.max_retries", 2)

	viper.SetDefault("pipeline.persona_count", 3)
	viper.SetDefault("pipeline.patch_count", 5)
	viper.SetDefault("pipeline.ideas_per_patch", 5)
	viper.SetDefault("pipeline.top_idea_count", 5)
	viper.SetDefault("pipeline.top_video_count", 2)
	viper.SetDefault("pipeline.temperatures", []float32{0.2, 0.35, 0.5, 0.65, 0.8})

	viper.SetDefault("scoring.llm_weight", 0.45)
	viper.SetDefault("scoring.trend_weight", 0.35)
	viper.SetDefault("scoring.viral_weight", 0.20)
	viper.SetDefault("scoring.predictive_batch_size", 8)
	viper.SetDefault("scoring.viral_batch_size", 8)

	viper.SetDefault("trends.base_url", "")
	viper.SetDefault("trends.lookback_days", 30)
	viper.SetDefault("trends.keywords_per_idea", 3)
	viper.SetDefault("trends.concurrency", 4)
	viper.SetDefault("trends.geo", "US")

	viper.SetDefault("media.poll_interval", 5*time.Second)
	viper.SetDefault("media.poll_max_attempts", 24)
	viper.SetDefault("media.video_seconds", 6)
	viper.SetDefault("media.video_delay", 2*time.Second)

	viper.SetDefault("output.directory", "output")

	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 5*time.Minute)
	viper.SetDefault("server.cors_enabled", true)
}

func bindEnvKeys(viperKey string, envKeys ...string) {
	for _, envKey := range envKeys {
		if err := viper.BindEnv(viperKey, envKey); err != nil {
			logger.Warn("Failed to bind environment variable", "key", envKey, "error", err)
		}
	}
}

func validateConfig(config *Config) error {
	s := config.Scoring
	if s.LLMWeight < 0 || s.TrendWeight < 0 || s.ViralWeight < 0 {
		return fmt.Errorf("scoring weights must be non-negative (llm=%.2f trend=%.2f viral=%.2f)",
			s.LLMWeight, s.TrendWeight, s.ViralWeight)
	}
	// Advisory only: non-normalized weights still score, they just warn.
	if sum := s.LLMWeight + s.TrendWeight + s.ViralWeight; math.Abs(sum-1.0) > 0.01 {
		logger.Warn("Scoring weights do not sum to 1.0", "sum", sum)
	}

	if config.Pipeline.PatchCount < 1 {
		return fmt.Errorf("pipeline.patch_count must be at least 1, got %d", config.Pipeline.PatchCount)
	}
	if config.Pipeline.PersonaCount < 1 {
		return fmt.Errorf("pipeline.persona_count must be at least 1, got %d", config.Pipeline.PersonaCount)
	}
	if len(config.Pipeline.Temperatures) == 0 {
		return fmt.Errorf("pipeline.temperatures must not be empty")
	}
	if config.Media.PollMaxAttempts < 1 {
		return fmt.Errorf("media.poll_max_attempts must be at least 1, got %d", config.Media.PollMaxAttempts)
	}
	return nil
}

// Weights returns the configured scoring weights in llm, trend, viral order.
func (s Scoring) Weights() (float64, float64, float64) {
	return s.LLMWeight, s.TrendWeight, s.ViralWeight
}
