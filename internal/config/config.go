// Package config loads library configuration from the environment, with a
// .env file picked up when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full library configuration.
type Config struct {
	DefaultModel string           `json:"default_model"`
	Providers    ProviderConfig   `json:"providers"`
	Summarizer   SummarizerConfig `json:"summarizer"`
	Store        StoreConfig      `json:"store"`
	ContextSizes map[string]int   `json:"context_sizes"`
}

// ProviderConfig holds credentials for every completion backend.
type ProviderConfig struct {
	OpenAI    ProviderCredentials `json:"openai"`
	Anthropic ProviderCredentials `json:"anthropic"`
	Cerebras  ProviderCredentials `json:"cerebras"`
	DeepSeek  ProviderCredentials `json:"deepseek"`
	Mistral   ProviderCredentials `json:"mistral"`
	Local     ProviderCredentials `json:"local"`
	Embedding ProviderCredentials `json:"embedding"`
}

// ProviderCredentials represents credentials for one provider.
type ProviderCredentials struct {
	APIKey   string `json:"api_key"`
	Endpoint string `json:"endpoint"`
	Model    string `json:"model"`
}

// SummarizerConfig tunes the reduction passes.
type SummarizerConfig struct {
	TargetFraction float64       `json:"target_fraction"`
	ChunkOverlap   int           `json:"chunk_overlap"`
	MinChunk       int           `json:"min_chunk"`
	MaxPasses      int           `json:"max_passes"`
	Concurrency    int           `json:"concurrency"`
	RequestTimeout time.Duration `json:"request_timeout"`
}

// StoreConfig tunes the context store.
type StoreConfig struct {
	PersistPath string `json:"persist_path"`
	Collection  string `json:"collection"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DefaultModel: getEnv("LLMCORE_DEFAULT_MODEL", "gpt-4"),
		Providers: ProviderConfig{
			OpenAI: ProviderCredentials{
				APIKey:   getEnv("OPENAI_API_KEY", ""),
				Endpoint: getEnv("OPENAI_ENDPOINT", "https://api.openai.com/v1"),
				Model:    getEnv("OPENAI_MODEL", "gpt-4"),
			},
			Anthropic: ProviderCredentials{
				APIKey:   getEnv("ANTHROPIC_API_KEY", ""),
				Endpoint: getEnv("ANTHROPIC_ENDPOINT", "https://api.anthropic.com/v1"),
				Model:    getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
			Cerebras: ProviderCredentials{
				APIKey:   getEnv("CEREBRAS_API_KEY", ""),
				Endpoint: getEnv("CEREBRAS_ENDPOINT", "https://api.cerebras.ai/v1"),
				Model:    getEnv("CEREBRAS_MODEL", "llama3.3-70b"),
			},
			DeepSeek: ProviderCredentials{
				APIKey:   getEnv("DEEPSEEK_API_KEY", ""),
				Endpoint: getEnv("DEEPSEEK_ENDPOINT", "https://api.deepseek.com/v1"),
				Model:    getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			},
			Mistral: ProviderCredentials{
				APIKey:   getEnv("MISTRAL_API_KEY", ""),
				Endpoint: getEnv("MISTRAL_ENDPOINT", "https://api.mistral.ai/v1"),
				Model:    getEnv("MISTRAL_MODEL", "mistral-large-latest"),
			},
			Local: ProviderCredentials{
				Endpoint: getEnv("LOCAL_ENDPOINT", "http://localhost:8080"),
				Model:    getEnv("LOCAL_MODEL", "llama-8b"),
			},
			Embedding: ProviderCredentials{
				APIKey:   getEnv("EMBEDDING_API_KEY", ""),
				Endpoint: getEnv("EMBEDDING_ENDPOINT", ""),
				Model:    getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			},
		},
		Summarizer: SummarizerConfig{
			TargetFraction: getEnvFloat("SUMMARIZER_TARGET_FRACTION", 0.5),
			ChunkOverlap:   getEnvInt("SUMMARIZER_CHUNK_OVERLAP", 0),
			MinChunk:       getEnvInt("SUMMARIZER_MIN_CHUNK", 64),
			MaxPasses:      getEnvInt("SUMMARIZER_MAX_PASSES", 8),
			Concurrency:    getEnvInt("SUMMARIZER_CONCURRENCY", 1),
			RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 120)) * time.Second,
		},
		Store: StoreConfig{
			PersistPath: getEnv("CONTEXT_STORE_PATH", ""),
			Collection:  getEnv("CONTEXT_STORE_COLLECTION", "chunks"),
		},
		ContextSizes: parseContextSizes(getEnv("MODEL_CONTEXT_SIZES", "")),
	}
}

// parseContextSizes reads per-model context-window overrides in the form
// "model=tokens,model=tokens". Malformed entries are skipped.
func parseContextSizes(raw string) map[string]int {
	sizes := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		model, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || model == "" {
			continue
		}
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			sizes[model] = n
		}
	}
	return sizes
}

// Validate checks the loaded configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.DefaultModel == "" {
		return fmt.Errorf("default model is required")
	}
	if c.Summarizer.TargetFraction <= 0 || c.Summarizer.TargetFraction >= 1 {
		return fmt.Errorf("summarizer target fraction must be in (0, 1), got %v", c.Summarizer.TargetFraction)
	}
	if c.Summarizer.Concurrency < 1 {
		return fmt.Errorf("summarizer concurrency must be at least 1, got %d", c.Summarizer.Concurrency)
	}
	if c.Summarizer.MaxPasses < 1 {
		return fmt.Errorf("summarizer max passes must be at least 1, got %d", c.Summarizer.MaxPasses)
	}

	hasAPIKey := c.Providers.OpenAI.APIKey != "" ||
		c.Providers.Anthropic.APIKey != "" ||
		c.Providers.Cerebras.APIKey != "" ||
		c.Providers.DeepSeek.APIKey != "" ||
		c.Providers.Mistral.APIKey != "" ||
		c.Providers.Local.Endpoint != ""
	if !hasAPIKey {
		return fmt.Errorf("at least one provider must be configured")
	}
	return nil
}

// Credentials returns the provider block matching name.
func (c *Config) Credentials(name string) (ProviderCredentials, error) {
	switch strings.ToLower(name) {
	case "openai":
		return c.Providers.OpenAI, nil
	case "anthropic":
		return c.Providers.Anthropic, nil
	case "cerebras":
		return c.Providers.Cerebras, nil
	case "deepseek":
		return c.Providers.DeepSeek, nil
	case "mistral":
		return c.Providers.Mistral, nil
	case "local":
		return c.Providers.Local, nil
	default:
		return ProviderCredentials{}, fmt.Errorf("unknown provider: %s", name)
	}
}

// getEnv retrieves an environment variable with fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable with fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable with fallback
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
