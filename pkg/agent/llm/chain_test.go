package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tagMiddleware appends its tag on the way into Complete, so the recorded
// order is outermost first.
func tagMiddleware(tag string, order *[]string) Middleware {
	return func(next LLMClient) LLMClient {
		return WrapClient(
			func(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
				*order = append(*order, tag)
				return next.Complete(ctx, req)
			},
			next.Stream,
			next.ModelName,
		)
	}
}

// TestChainOrder verifies earlier middlewares are outermost in the call
// stack.
func TestChainOrder(t *testing.T) {
	var order []string
	base := NewMockClient([]CompletionResponse{{Content: "ok"}}, nil)

	client := Chain(base, tagMiddleware("a", &order), tagMiddleware("b", &order), tagMiddleware("c", &order))

	resp, err := client.Complete(t.Context(), NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, "mock-model", client.ModelName())
}

func TestChainEmpty(t *testing.T) {
	base := NewMockClient(nil, nil)
	assert.Equal(t, LLMClient(base), Chain(base))
}
