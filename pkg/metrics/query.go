// Package metrics provides services for querying and aggregating run metrics
// from Prometheus. This is operator tooling; the control loop never calls it.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
)

// RunMetrics represents aggregated metrics for one agent run.
type RunMetrics struct {
	RunID            string  `json:"run_id"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
	TotalTokens      int64   `json:"total_tokens"`
	EstimatedCost    float64 `json:"estimated_cost_usd"`
	Iterations       int64   `json:"iterations"`
}

// QueryService provides methods to query run metrics from Prometheus.
type QueryService struct {
	client   api.Client
	queryAPI v1.API
}

// NewQueryService creates a metrics query service against the given
// Prometheus address.
func NewQueryService(prometheusURL string) (*QueryService, error) {
	client, err := api.NewClient(api.Config{
		Address: prometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("create Prometheus client: %w", err)
	}
	return &QueryService{
		client:   client,
		queryAPI: v1.NewAPI(client),
	}, nil
}

// GetRunMetrics aggregates token counts, iterations, and estimated cost for
// one run across all models.
func (q *QueryService) GetRunMetrics(ctx context.Context, runID string) (*RunMetrics, error) {
	metrics := &RunMetrics{RunID: runID}

	prompt, err := q.sumQuery(ctx, fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, type="prompt"})`, runID))
	if err != nil {
		return nil, fmt.Errorf("query prompt tokens: %w", err)
	}
	metrics.PromptTokens = int64(prompt)

	completion, err := q.sumQuery(ctx, fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, type="completion"})`, runID))
	if err != nil {
		return nil, fmt.Errorf("query completion tokens: %w", err)
	}
	metrics.CompletionTokens = int64(completion)
	metrics.TotalTokens = metrics.PromptTokens + metrics.CompletionTokens

	iterations, err := q.sumQuery(ctx, fmt.Sprintf(`sum(agent_iterations_total{run_id=%q})`, runID))
	if err != nil {
		return nil, fmt.Errorf("query iterations: %w", err)
	}
	metrics.Iterations = int64(iterations)

	byModel, err := q.GetRunMetricsByModel(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, m := range byModel {
		metrics.EstimatedCost += m.EstimatedCost
	}

	return metrics, nil
}

// GetRunMetricsByModel breaks a run's token usage down per model, with cost
// estimated from the known-model pricing registry.
func (q *QueryService) GetRunMetricsByModel(ctx context.Context, runID string) (map[string]*RunMetrics, error) {
	modelsQuery := fmt.Sprintf(`group by (model) (llm_tokens_total{run_id=%q})`, runID)
	modelsResult, _, err := q.queryAPI.Query(ctx, modelsQuery, time.Now())
	if err != nil {
		return nil, fmt.Errorf("query models for run: %w", err)
	}

	var models []string
	if vector, ok := modelsResult.(model.Vector); ok {
		for _, sample := range vector {
			if name, ok := sample.Metric["model"]; ok {
				models = append(models, string(name))
			}
		}
	}

	result := make(map[string]*RunMetrics, len(models))
	for _, modelName := range models {
		m := &RunMetrics{RunID: runID}

		prompt, err := q.sumQuery(ctx, fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, model=%q, type="prompt"})`, runID, modelName))
		if err != nil {
			return nil, fmt.Errorf("query prompt tokens for model %s: %w", modelName, err)
		}
		m.PromptTokens = int64(prompt)

		completion, err := q.sumQuery(ctx, fmt.Sprintf(`sum(llm_tokens_total{run_id=%q, model=%q, type="completion"})`, runID, modelName))
		if err != nil {
			return nil, fmt.Errorf("query completion tokens for model %s: %w", modelName, err)
		}
		m.CompletionTokens = int64(completion)
		m.TotalTokens = m.PromptTokens + m.CompletionTokens
		m.EstimatedCost = EstimateCost(modelName, m.PromptTokens, m.CompletionTokens)

		result[modelName] = m
	}
	return result, nil
}

// sumQuery runs an instant query expected to yield a single-sample vector.
func (q *QueryService) sumQuery(ctx context.Context, query string) (float64, error) {
	result, _, err := q.queryAPI.Query(ctx, query, time.Now())
	if err != nil {
		return 0, err
	}
	if vector, ok := result.(model.Vector); ok && len(vector) > 0 {
		return float64(vector[0].Value), nil
	}
	return 0, nil
}

// EstimateCost prices token usage with the known-model registry. Unknown
// models cost zero rather than erroring; pricing is advisory.
func EstimateCost(modelName string, promptTokens, completionTokens int64) float64 {
	info, ok := config.KnownModels[modelName]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1e6*info.InputCPM + float64(completionTokens)/1e6*info.OutputCPM
}
