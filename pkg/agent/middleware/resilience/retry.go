// Package resilience provides retry, circuit-breaker, and timeout middleware
// for LLM clients.
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llmerrors"
	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
)

// RetryMiddleware retries failed completions with exponential backoff and
// optional jitter. Only errors classified as retryable are retried.
func RetryMiddleware(cfg config.RetryConfig) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				var lastErr error

				for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
					if attempt > 1 {
						delay := backoffDelay(cfg, attempt-1)
						select {
						case <-ctx.Done():
							return llm.CompletionResponse{}, ctx.Err()
						case <-time.After(delay):
						}
					}

					resp, err := next.Complete(ctx, req)
					if err == nil {
						return resp, nil
					}
					lastErr = err

					if !llmerrors.Classify(err).Type.Retryable() {
						return llm.CompletionResponse{}, err
					}
				}

				return llm.CompletionResponse{}, lastErr
			},
			// Streams are not retried; a broken stream surfaces to the caller.
			next.Stream,
			next.ModelName,
		)
	}
}

// backoffDelay computes the delay before the given retry attempt (1-based).
func backoffDelay(cfg config.RetryConfig, retry int) time.Duration {
	delay := float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(retry-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	if cfg.Jitter {
		// Up to 25% random jitter to avoid thundering herd.
		delay += delay * 0.25 * rand.Float64()
	}
	return time.Duration(delay)
}
