// LLM client factory with middleware chain construction.
package agent

import (
	"fmt"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llmimpl/anthropic"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llmimpl/google"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llmimpl/ollama"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llmimpl/openai"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/middleware/metrics"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/middleware/resilience"
	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
)

// ModelRole selects which configured model a client is built for.
type ModelRole string

// Model roles map to the models section of the configuration.
const (
	RoleAnalysis ModelRole = "analysis"
	RoleContent  ModelRole = "content"
	RoleChat     ModelRole = "chat"
)

// LLMClientFactory creates LLM clients with properly configured middleware chains.
type LLMClientFactory struct {
	config          *config.Config
	metricsRecorder metrics.Recorder
	breakers        map[string]*resilience.Breaker // per-provider circuit breakers
}

// NewLLMClientFactory creates a new LLM client factory with the given configuration.
func NewLLMClientFactory(cfg *config.Config, recorder metrics.Recorder) *LLMClientFactory {
	if recorder == nil {
		recorder = metrics.Nop()
	}

	breakers := make(map[string]*resilience.Breaker)
	for _, provider := range []string{
		config.ProviderAnthropic,
		config.ProviderOpenAI,
		config.ProviderGoogle,
		config.ProviderOllama,
	} {
		breakers[provider] = resilience.NewBreaker(cfg.Resilience.CircuitBreaker)
	}

	return &LLMClientFactory{
		config:          cfg,
		metricsRecorder: recorder,
		breakers:        breakers,
	}
}

// CreateClient creates an LLM client for the given role with the full
// middleware chain. The API key is retrieved from the secrets store or
// environment based on the model's provider.
func (f *LLMClientFactory) CreateClient(role ModelRole, stateProvider metrics.StateProvider, logger *logx.Logger) (llm.LLMClient, error) {
	var modelName string
	switch role {
	case RoleAnalysis:
		modelName = f.config.Models.Analysis
	case RoleContent:
		modelName = f.config.Models.Content
	case RoleChat:
		modelName = f.config.Models.Chat
	default:
		return nil, fmt.Errorf("unsupported model role: %s", role)
	}
	return f.CreateClientForModel(modelName, stateProvider, logger)
}

// CreateClientForModel creates a client for a specific model name with the
// full middleware chain.
func (f *LLMClientFactory) CreateClientForModel(modelName string, stateProvider metrics.StateProvider, logger *logx.Logger) (llm.LLMClient, error) {
	provider, err := config.GetModelProvider(modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to determine provider for model %s: %w", modelName, err)
	}

	apiKey, err := config.GetAPIKey(provider)
	if err != nil {
		return nil, fmt.Errorf("failed to get API key for provider %s: %w", provider, err)
	}

	var rawClient llm.LLMClient
	switch provider {
	case config.ProviderAnthropic:
		rawClient = anthropic.NewClaudeClientWithModel(apiKey, modelName)
	case config.ProviderOpenAI:
		rawClient = openai.NewClientWithModel(apiKey, modelName)
	case config.ProviderGoogle:
		rawClient = google.NewGeminiClientWithModel(apiKey, modelName)
	case config.ProviderOllama:
		rawClient = ollama.NewClientWithModel(f.config.OllamaHost, config.StripOllamaPrefix(modelName))
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}

	breaker, ok := f.breakers[provider]
	if !ok {
		breaker = resilience.NewBreaker(f.config.Resilience.CircuitBreaker)
		f.breakers[provider] = breaker
	}

	// Outermost to innermost: metrics observe everything including
	// middleware-injected failures, retries wrap the timeout so each
	// attempt gets a fresh deadline.
	client := llm.Chain(rawClient,
		metrics.Middleware(f.metricsRecorder, nil, stateProvider, logger),
		resilience.CircuitMiddleware(breaker),
		resilience.RetryMiddleware(f.config.Resilience.Retry),
		resilience.TimeoutMiddleware(f.config.Resilience.Timeout),
	)

	return client, nil
}
