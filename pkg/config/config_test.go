package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValidates(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestGetModelProvider(t *testing.T) {
	tests := []struct {
		model    string
		provider string
	}{
		{ModelClaudeSonnet, ProviderAnthropic},
		{ModelGPT4oMini, ProviderOpenAI},
		{ModelGeminiFlash, ProviderGoogle},
		{ModelLlama3, ProviderOllama},
		{"claude-opus-4", ProviderAnthropic},
		{"gpt-5-preview", ProviderOpenAI},
		{"o3-mini", ProviderOpenAI},
		{"gemini-2.5-pro", ProviderGoogle},
		{"ollama/mistral", ProviderOllama},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			provider, err := GetModelProvider(tt.model)
			require.NoError(t, err)
			assert.Equal(t, tt.provider, provider)
		})
	}

	_, err := GetModelProvider("llama-unprefixed")
	assert.Error(t, err)
}

func TestStripOllamaPrefix(t *testing.T) {
	assert.Equal(t, "llama3.1", StripOllamaPrefix("ollama/llama3.1"))
	assert.Equal(t, "llama3.1", StripOllamaPrefix("llama3.1"))
}

// TestLoadConfigFile verifies YAML fields overlay the defaults while unset
// fields keep them.
func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contentbot.yaml")
	yaml := `
models:
  analysis: ollama/llama3.1
max_iterations: 3
trend_cache_ttl: 5m
decision:
  history_limit: 10
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama/llama3.1", cfg.Models.Analysis)
	assert.Equal(t, ModelClaudeSonnet, cfg.Models.Content, "unset fields keep defaults")
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, 5*time.Minute, cfg.TrendCacheTTL)
	assert.Equal(t, 10, cfg.Decision.HistoryLimit)
	assert.Equal(t, 0.1, cfg.Decision.NoiseMagnitude)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().MaxIterations, cfg.MaxIterations)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("CONTENTBOT_CHAT_MODEL", "gemini-2.0-flash")
	t.Setenv("CONTENTBOT_MAX_ITERATIONS", "7")
	t.Setenv("CONTENTBOT_OLLAMA_HOST", "http://gpu-box:11434")
	t.Setenv("CONTENTBOT_TREND_CACHE_TTL", "junk")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.Models.Chat)
	assert.Equal(t, 7, cfg.MaxIterations)
	assert.Equal(t, "http://gpu-box:11434", cfg.OllamaHost)
	assert.Equal(t, DefaultConfig().TrendCacheTTL, cfg.TrendCacheTTL, "unparseable override is ignored")
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contentbot.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  chat: mystery-model\n"), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestValidateRejectsBadDecisionValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Decision.HistoryLimit = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Decision.NoiseMagnitude = 1.5
	assert.Error(t, cfg.Validate())
}
