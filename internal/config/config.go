// Package config defines configuration parsing and helpers.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration parsed from environment variables.
type Config struct {
	AppEnv string `env:"APP_ENV" envDefault:"dev"`
	Port   int    `env:"PORT" envDefault:"8080"`

	// Reasoning service (OpenAI-compatible chat completions endpoint).
	ReasoningBaseURL   string        `env:"REASONING_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	ReasoningAPIKey    string        `env:"REASONING_API_KEY"`
	ReasoningModel     string        `env:"REASONING_MODEL" envDefault:"openai/gpt-4o-mini"`
	ReasoningTimeout   time.Duration `env:"REASONING_TIMEOUT" envDefault:"20s"`
	ReasoningMaxTokens int           `env:"REASONING_MAX_TOKENS" envDefault:"1024"`
	// PromptTokenBudget caps how much conversation history is embedded in
	// reasoning prompts; oldest turns are dropped first.
	PromptTokenBudget int `env:"PROMPT_TOKEN_BUDGET" envDefault:"6000"`

	RedisAddr  string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"2h"`

	CORSAllowOrigins      string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	RateLimitPerMin       int           `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	ServerShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	HTTPReadTimeout       time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"15s"`
	HTTPWriteTimeout      time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
	HTTPIdleTimeout       time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"60s"`

	// Interview language expected of every answer.
	TargetLanguage string `env:"TARGET_LANGUAGE" envDefault:"en"`

	// Tunable scoring policy. These values reproduce observed behavior;
	// they are policy knobs, not derived invariants.
	MinAnswerWords              int     `env:"MIN_ANSWER_WORDS" envDefault:"10"`
	LanguageConfidenceFloor     float64 `env:"LANGUAGE_CONFIDENCE_FLOOR" envDefault:"0.2"`
	LanguagePenaltyFactor       float64 `env:"LANGUAGE_PENALTY_FACTOR" envDefault:"0.5"`
	OffTopicOverlapFloor        float64 `env:"OFFTOPIC_OVERLAP_FLOOR" envDefault:"0.1"`
	MissingBodyScore            float64 `env:"MISSING_BODY_SCORE" envDefault:"25"`
	TranscriptionToleranceFloor float64 `env:"TRANSCRIPTION_TOLERANCE_FLOOR" envDefault:"0.5"`
	TranscriptionBoost          float64 `env:"TRANSCRIPTION_BOOST" envDefault:"1.25"`
}

// Load parses environment variables into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("op=config.Load: %w", err)
	}
	return cfg, nil
}

// IsDev reports whether the app is running in development mode.
func (c Config) IsDev() bool { return strings.ToLower(c.AppEnv) == "dev" }

// IsProd reports whether the app is running in production mode.
func (c Config) IsProd() bool { return strings.ToLower(c.AppEnv) == "prod" }

// IsTest reports whether the app is running in test mode.
func (c Config) IsTest() bool { return strings.ToLower(c.AppEnv) == "test" }

// ReasoningEnabled reports whether a real reasoning client can be built.
// Without an API key the deterministic mock client is wired instead.
func (c Config) ReasoningEnabled() bool { return c.ReasoningAPIKey != "" }
