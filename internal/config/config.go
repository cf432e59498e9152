// Package config loads service configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime settings. Provider keys are optional; a
// missing key puts that provider in offline fallback mode.
type Config struct {
	DatabaseURL string
	Port        int
	LogLevel    string

	// Provider API keys.
	OpenAIKey    string
	AnthropicKey string
	GoogleKey    string
	DeepSeekKey  string

	// Task generation endpoint. Optional; fallback tasks are used
	// when unset.
	GeneratorURL string
	GeneratorKey string

	// Renderer service.
	RendererURL  string
	RendererPort int

	// Shared secret guarding the scheduled pipeline endpoints.
	CronSecret string

	// Object store for rendered artifacts.
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StoragePublicURL string
}

// Load reads configuration from the environment. DATABASE_URL is
// required; everything else has a default or degrades a feature.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		Port:             envInt("PORT", 8080),
		LogLevel:         envDefault("LOG_LEVEL", "info"),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:     os.Getenv("ANTHROPIC_API_KEY"),
		GoogleKey:        envDefault("GOOGLE_API_KEY", os.Getenv("GEMINI_API_KEY")),
		DeepSeekKey:      os.Getenv("DEEPSEEK_API_KEY"),
		GeneratorURL:     os.Getenv("GENERATOR_URL"),
		GeneratorKey:     os.Getenv("GENERATOR_API_KEY"),
		RendererURL:      envDefault("RENDERER_URL", "http://localhost:4000"),
		RendererPort:     envInt("RENDERER_PORT", 4000),
		CronSecret:       os.Getenv("CRON_SECRET"),
		StorageEndpoint:  envDefault("MINIO_ENDPOINT", "localhost:9000"),
		StorageAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		StorageSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		StorageBucket:    envDefault("MINIO_BUCKET", "artifacts"),
		StoragePublicURL: os.Getenv("MINIO_PUBLIC_URL"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return cfg, nil
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
