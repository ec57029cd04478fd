package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// Config holds runtime configuration, read from environment variables.
type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	RedisURL   string
	PromptsDir string

	LLMProvider     string
	AnthropicAPIKey string
	GeminiAPIKey    string
	ModelName       string

	// NarratorModelName optionally routes Player B and narrator calls
	// to a cheaper model. Empty means use ModelName for everything.
	NarratorModelName string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          parseLogLevel(getEnv("LOG_LEVEL", "info")),
		RedisURL:          getEnv("REDIS_URL", "redis://localhost:6379"),
		PromptsDir:        getEnv("PROMPTS_DIR", "./prompt_templates"),
		LLMProvider:       getEnv("LLM_PROVIDER", "anthropic"),
		AnthropicAPIKey:   os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		ModelName:         getEnv("MODEL_NAME", "claude-sonnet-4-20250514"),
		NarratorModelName: os.Getenv("NARRATOR_MODEL_NAME"),
	}

	switch strings.ToLower(cfg.LLMProvider) {
	case "anthropic", "gemini", "mock":
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER %q (supported: anthropic, gemini, mock)", cfg.LLMProvider)
	}

	return cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
