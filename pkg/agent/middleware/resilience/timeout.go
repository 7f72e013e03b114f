package resilience

import (
	"context"
	"time"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
)

// TimeoutMiddleware applies a per-request deadline to completions. Streams
// manage their own lifetime and are not bounded here.
func TimeoutMiddleware(timeout time.Duration) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				ctx, cancel := context.WithTimeout(ctx, timeout)
				defer cancel()
				return next.Complete(ctx, req)
			},
			next.Stream,
			next.ModelName,
		)
	}
}
