package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "gpt-4", cfg.DefaultModel)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Providers.OpenAI.Endpoint)
	assert.Equal(t, "https://api.cerebras.ai/v1", cfg.Providers.Cerebras.Endpoint)
	assert.Equal(t, 0.5, cfg.Summarizer.TargetFraction)
	assert.Equal(t, 64, cfg.Summarizer.MinChunk)
	assert.Equal(t, 8, cfg.Summarizer.MaxPasses)
	assert.Equal(t, 1, cfg.Summarizer.Concurrency)
	assert.Equal(t, 120*time.Second, cfg.Summarizer.RequestTimeout)
	assert.Equal(t, "chunks", cfg.Store.Collection)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("LLMCORE_DEFAULT_MODEL", "claude-sonnet-4-5-20250929")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("SUMMARIZER_TARGET_FRACTION", "0.25")
	t.Setenv("SUMMARIZER_CONCURRENCY", "4")
	t.Setenv("CONTEXT_STORE_PATH", "/tmp/llmcore-store")

	cfg := Load()

	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.DefaultModel)
	assert.Equal(t, "sk-test", cfg.Providers.OpenAI.APIKey)
	assert.Equal(t, 0.25, cfg.Summarizer.TargetFraction)
	assert.Equal(t, 4, cfg.Summarizer.Concurrency)
	assert.Equal(t, "/tmp/llmcore-store", cfg.Store.PersistPath)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("SUMMARIZER_MAX_PASSES", "not-a-number")
	t.Setenv("SUMMARIZER_TARGET_FRACTION", "half")

	cfg := Load()

	assert.Equal(t, 8, cfg.Summarizer.MaxPasses)
	assert.Equal(t, 0.5, cfg.Summarizer.TargetFraction)
}

func TestParseContextSizes(t *testing.T) {
	sizes := parseContextSizes("my-model=16384, other=8192,broken,=5,bad=x")

	assert.Equal(t, map[string]int{"my-model": 16384, "other": 8192}, sizes)
	assert.Empty(t, parseContextSizes(""))
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Load()
		cfg.Providers.OpenAI.APIKey = "sk-test"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, valid().Validate())
	})

	t.Run("missing default model", func(t *testing.T) {
		cfg := valid()
		cfg.DefaultModel = ""
		assert.ErrorContains(t, cfg.Validate(), "default model")
	})

	t.Run("bad target fraction", func(t *testing.T) {
		cfg := valid()
		cfg.Summarizer.TargetFraction = 1.5
		assert.ErrorContains(t, cfg.Validate(), "target fraction")
	})

	t.Run("bad concurrency", func(t *testing.T) {
		cfg := valid()
		cfg.Summarizer.Concurrency = 0
		assert.ErrorContains(t, cfg.Validate(), "concurrency")
	})

	t.Run("no providers", func(t *testing.T) {
		cfg := valid()
		cfg.Providers = ProviderConfig{}
		assert.ErrorContains(t, cfg.Validate(), "provider")
	})
}

func TestCredentials(t *testing.T) {
	cfg := Load()
	cfg.Providers.Cerebras.APIKey = "csk-test"

	creds, err := cfg.Credentials("Cerebras")
	require.NoError(t, err)
	assert.Equal(t, "csk-test", creds.APIKey)

	_, err = cfg.Credentials("unknown-provider")
	assert.ErrorContains(t, err, "unknown provider")
}
