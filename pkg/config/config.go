// Package config provides configuration loading, validation, and the model
// registry for the content agent.
//
// Configuration is read once at startup from a YAML file, overlaid with
// CONTENTBOT_* environment variables, validated, and then treated as
// read-only. Secrets (API keys) never live in the config file; they come from
// the encrypted secrets file or the environment (see secrets.go).
package config

import (
	"fmt"
	"strings"
	"time"
)

// Provider identifiers for LLM backends.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGoogle    = "google"
	ProviderOllama    = "ollama"
)

// Model name constants for the defaults and tests.
const (
	ModelClaudeSonnet = "claude-sonnet-4-20250514"
	ModelGPT4oMini    = "gpt-4o-mini"
	ModelGeminiFlash  = "gemini-2.0-flash"
	ModelLlama3       = "ollama/llama3.1"
)

// ModelInfo contains static information about a known LLM model.
type ModelInfo struct {
	Provider         string  // API provider (anthropic, openai, google, ollama)
	InputCPM         float64 // Cost per million input tokens (USD)
	OutputCPM        float64 // Cost per million output tokens (USD)
	MaxContextTokens int     // Maximum context window size in tokens
	MaxOutputTokens  int     // Maximum output tokens per request
}

// KnownModels contains pricing and provider information for common models.
// Unknown models fall back to prefix inference via GetModelProvider.
var KnownModels = map[string]ModelInfo{
	ModelClaudeSonnet: {
		Provider:         ProviderAnthropic,
		InputCPM:         3.0,
		OutputCPM:        15.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},
	"claude-3-5-haiku-20241022": {
		Provider:         ProviderAnthropic,
		InputCPM:         0.8,
		OutputCPM:        4.0,
		MaxContextTokens: 200000,
		MaxOutputTokens:  8192,
	},
	ModelGPT4oMini: {
		Provider:         ProviderOpenAI,
		InputCPM:         0.15,
		OutputCPM:        0.6,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
	},
	"gpt-4o": {
		Provider:         ProviderOpenAI,
		InputCPM:         2.5,
		OutputCPM:        10.0,
		MaxContextTokens: 128000,
		MaxOutputTokens:  16384,
	},
	ModelGeminiFlash: {
		Provider:         ProviderGoogle,
		InputCPM:         0.1,
		OutputCPM:        0.4,
		MaxContextTokens: 1000000,
		MaxOutputTokens:  8192,
	},
}

// GetModelProvider determines the API provider for a model name.
// Known models are looked up directly; unknown ones are inferred by prefix.
func GetModelProvider(model string) (string, error) {
	if info, ok := KnownModels[model]; ok {
		return info.Provider, nil
	}

	lower := strings.ToLower(model)
	switch {
	case strings.HasPrefix(lower, "ollama/"):
		return ProviderOllama, nil
	case strings.HasPrefix(lower, "claude"):
		return ProviderAnthropic, nil
	case strings.HasPrefix(lower, "gpt") || strings.HasPrefix(lower, "o3") || strings.HasPrefix(lower, "o4"):
		return ProviderOpenAI, nil
	case strings.HasPrefix(lower, "gemini"):
		return ProviderGoogle, nil
	}
	return "", fmt.Errorf("cannot determine provider for model %q", model)
}

// GetAPIKey returns the API key for a provider using the secrets precedence
// (encrypted secrets file, then environment). Ollama needs no key.
func GetAPIKey(provider string) (string, error) {
	var name string
	switch provider {
	case ProviderAnthropic:
		name = "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		name = "OPENAI_API_KEY"
	case ProviderGoogle:
		name = "GEMINI_API_KEY"
	case ProviderOllama:
		return "", nil
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
	key, err := GetSecret(name)
	if err != nil {
		return "", fmt.Errorf("API key for provider %s: %w", provider, err)
	}
	return key, nil
}

// StripOllamaPrefix returns the bare model name for Ollama model identifiers.
func StripOllamaPrefix(model string) string {
	return strings.TrimPrefix(model, "ollama/")
}

// ModelsConfig selects the LLM model used for each operation role.
type ModelsConfig struct {
	Analysis string `yaml:"analysis"` // THINK/RETHINK/PLAN and trend analysis
	Content  string `yaml:"content"`  // content creation and optimization
	Chat     string `yaml:"chat"`     // conversational responses
}

// DecisionConfig parameterizes the next-state decision engine. The original
// system's hand-tuned constants carry no documented derivation, so every
// threshold is configurable rather than baked in.
type DecisionConfig struct {
	HistoryLimit         int           `yaml:"history_limit"`          // bounded FIFO snapshot history
	NoiseMagnitude       float64       `yaml:"noise_magnitude"`        // uniform tie-breaking noise, per state
	HighSuccessThreshold float64       `yaml:"high_success_threshold"` // mean success metric above which high_success fires
	ComplexTaskThreshold float64       `yaml:"complex_task_threshold"`
	SimpleTaskThreshold  float64       `yaml:"simple_task_threshold"`
	FatigueWindow        time.Duration `yaml:"fatigue_window"`  // how far back fatigue looks
	FatigueScale         int           `yaml:"fatigue_scale"`   // recent snapshots that saturate fatigue at 1.0
	SleepBase            time.Duration `yaml:"sleep_base"`      // minimum sleep duration
	SleepMax             time.Duration `yaml:"sleep_max"`       // hard cap on sleep duration
	SleepErrorThreshold  int           `yaml:"sleep_error_threshold"` // recent errors before cooldown scaling
}

// RetryConfig defines exponential backoff behavior for LLM calls.
type RetryConfig struct {
	MaxAttempts   int           `yaml:"max_attempts"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
	Jitter        bool          `yaml:"jitter"`
}

// CircuitBreakerConfig defines failure thresholds for the per-provider breaker.
type CircuitBreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// ResilienceConfig groups the middleware settings applied to every LLM client.
type ResilienceConfig struct {
	Retry          RetryConfig          `yaml:"retry"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Timeout        time.Duration        `yaml:"timeout"`
}

// ScraperConfig holds the social-media scraping API settings.
type ScraperConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxResults int           `yaml:"max_results"`
	Platforms  []string      `yaml:"platforms"`
}

// Config is the root configuration object.
type Config struct {
	Models     ModelsConfig     `yaml:"models"`
	Decision   DecisionConfig   `yaml:"decision"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Scraper    ScraperConfig    `yaml:"scraper"`

	// TrendCacheTTL is how long scraped trend data stays fresh.
	TrendCacheTTL time.Duration `yaml:"trend_cache_ttl"`

	// DatabasePath locates the SQLite file for profiles and conversations.
	DatabasePath string `yaml:"database_path"`

	// OllamaHost is the base URL of a local Ollama server, when one is used.
	OllamaHost string `yaml:"ollama_host"`

	// MaxIterations is the default iteration budget for agent runs.
	MaxIterations int `yaml:"max_iterations"`
}

// DefaultConfig returns a configuration with all defaults applied.
func DefaultConfig() *Config {
	return &Config{
		Models: ModelsConfig{
			Analysis: ModelClaudeSonnet,
			Content:  ModelClaudeSonnet,
			Chat:     ModelGPT4oMini,
		},
		Decision: DecisionConfig{
			HistoryLimit:         50,
			NoiseMagnitude:       0.1,
			HighSuccessThreshold: 0.8,
			ComplexTaskThreshold: 0.7,
			SimpleTaskThreshold:  0.3,
			FatigueWindow:        60 * time.Second,
			FatigueScale:         20,
			SleepBase:            1 * time.Second,
			SleepMax:             10 * time.Second,
			SleepErrorThreshold:  3,
		},
		Resilience: ResilienceConfig{
			Retry: RetryConfig{
				MaxAttempts:   3,
				InitialDelay:  500 * time.Millisecond,
				MaxDelay:      15 * time.Second,
				BackoffFactor: 2.0,
				Jitter:        true,
			},
			CircuitBreaker: CircuitBreakerConfig{
				FailureThreshold: 5,
				SuccessThreshold: 3,
				Timeout:          30 * time.Second,
			},
			Timeout: 120 * time.Second,
		},
		Scraper: ScraperConfig{
			BaseURL:    "https://api.apify.com/v2/acts",
			Timeout:    60 * time.Second,
			MaxResults: 10,
			Platforms:  []string{"twitter", "tiktok", "instagram"},
		},
		TrendCacheTTL: 30 * time.Minute,
		DatabasePath:  "contentbot.db",
		OllamaHost:    "http://localhost:11434",
		MaxIterations: 10,
	}
}

// Validate checks invariants that would otherwise surface as runtime faults.
func (c *Config) Validate() error {
	if c.Models.Analysis == "" || c.Models.Content == "" || c.Models.Chat == "" {
		return fmt.Errorf("models: all of analysis, content, chat must be set")
	}
	for _, m := range []string{c.Models.Analysis, c.Models.Content, c.Models.Chat} {
		if _, err := GetModelProvider(m); err != nil {
			return fmt.Errorf("models: %w", err)
		}
	}
	d := &c.Decision
	if d.HistoryLimit <= 0 {
		return fmt.Errorf("decision: history_limit must be positive")
	}
	if d.NoiseMagnitude < 0 || d.NoiseMagnitude > 1 {
		return fmt.Errorf("decision: noise_magnitude must be in [0,1]")
	}
	if d.SimpleTaskThreshold >= d.ComplexTaskThreshold {
		return fmt.Errorf("decision: simple_task_threshold must be below complex_task_threshold")
	}
	if d.SleepBase <= 0 || d.SleepMax < d.SleepBase {
		return fmt.Errorf("decision: sleep bounds invalid (base=%s max=%s)", d.SleepBase, d.SleepMax)
	}
	if c.Resilience.Retry.MaxAttempts < 1 {
		return fmt.Errorf("resilience: retry max_attempts must be at least 1")
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max_iterations must be at least 1")
	}
	return nil
}
