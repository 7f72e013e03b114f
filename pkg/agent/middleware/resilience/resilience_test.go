package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llmerrors"
	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
)

func fastRetryConfig() config.RetryConfig {
	return config.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        false,
	}
}

// TestRetryRecoversFromTransient verifies a transient failure is retried and
// the eventual success is returned.
func TestRetryRecoversFromTransient(t *testing.T) {
	mock := llm.NewMockClient(
		[]llm.CompletionResponse{{Content: "ok"}},
		[]error{llmerrors.NewError(llmerrors.ErrorTypeTransient, "overloaded")},
	)
	client := llm.Chain(mock, RetryMiddleware(fastRetryConfig()))

	resp, err := client.Complete(t.Context(), llm.NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Len(t, mock.Requests, 2)
}

// TestRetryGivesUpAfterMaxAttempts verifies the last error is returned once
// the budget is spent.
func TestRetryGivesUpAfterMaxAttempts(t *testing.T) {
	mock := llm.NewMockClient(nil, []error{
		llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "slow down"),
		llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "slow down"),
		llmerrors.NewError(llmerrors.ErrorTypeRateLimit, "slow down"),
	})
	client := llm.Chain(mock, RetryMiddleware(fastRetryConfig()))

	_, err := client.Complete(t.Context(), llm.NewCompletionRequest(nil))
	require.Error(t, err)
	assert.Equal(t, llmerrors.ErrorTypeRateLimit, llmerrors.TypeOf(err))
	assert.Len(t, mock.Requests, 3)
}

// TestRetrySkipsNonRetryable verifies auth failures are not retried.
func TestRetrySkipsNonRetryable(t *testing.T) {
	mock := llm.NewMockClient(nil, []error{
		llmerrors.NewError(llmerrors.ErrorTypeAuth, "bad key"),
	})
	client := llm.Chain(mock, RetryMiddleware(fastRetryConfig()))

	_, err := client.Complete(t.Context(), llm.NewCompletionRequest(nil))
	require.Error(t, err)
	assert.Len(t, mock.Requests, 1)
}

// TestRetryClassifiesRawErrors verifies unclassified provider errors still go
// through the substring heuristics before the retry decision.
func TestRetryClassifiesRawErrors(t *testing.T) {
	mock := llm.NewMockClient(
		[]llm.CompletionResponse{{Content: "ok"}},
		[]error{errors.New("503 service unavailable")},
	)
	client := llm.Chain(mock, RetryMiddleware(fastRetryConfig()))

	resp, err := client.Complete(t.Context(), llm.NewCompletionRequest(nil))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Len(t, mock.Requests, 2)
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := fastRetryConfig()
	assert.Equal(t, time.Millisecond, backoffDelay(cfg, 1))
	assert.Equal(t, 2*time.Millisecond, backoffDelay(cfg, 2))
	assert.Equal(t, 4*time.Millisecond, backoffDelay(cfg, 3))
	assert.Equal(t, 5*time.Millisecond, backoffDelay(cfg, 4))
	assert.Equal(t, 5*time.Millisecond, backoffDelay(cfg, 10))
}

func breakerConfig() config.CircuitBreakerConfig {
	return config.CircuitBreakerConfig{
		FailureThreshold: 2,
		SuccessThreshold: 2,
		Timeout:          10 * time.Millisecond,
	}
}

// TestBreakerOpensAndRecovers walks the full state cycle: closed, open after
// repeated failures, half-open after the timeout, closed again after enough
// successes.
func TestBreakerOpensAndRecovers(t *testing.T) {
	breaker := NewBreaker(breakerConfig())
	mock := llm.NewMockClient(
		[]llm.CompletionResponse{{Content: "a"}, {Content: "b"}},
		[]error{errors.New("503"), errors.New("503")},
	)
	client := llm.Chain(mock, CircuitMiddleware(breaker))

	req := llm.NewCompletionRequest(nil)

	// Two failures trip the breaker.
	_, err := client.Complete(t.Context(), req)
	require.Error(t, err)
	assert.Equal(t, CircuitClosed, breaker.State())
	_, err = client.Complete(t.Context(), req)
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, breaker.State())

	// While open the underlying client is never reached.
	_, err = client.Complete(t.Context(), req)
	var openErr *CircuitOpenError
	require.ErrorAs(t, err, &openErr)
	assert.Len(t, mock.Requests, 2)

	// After the timeout the breaker probes in half-open and closes on enough
	// successes.
	time.Sleep(15 * time.Millisecond)
	_, err = client.Complete(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, CircuitHalfOpen, breaker.State())
	_, err = client.Complete(t.Context(), req)
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, breaker.State())
}

// TestBreakerReopensOnHalfOpenFailure verifies a failed probe snaps the
// breaker back open.
func TestBreakerReopensOnHalfOpenFailure(t *testing.T) {
	breaker := NewBreaker(breakerConfig())
	breaker.record(false)
	breaker.record(false)
	require.Equal(t, CircuitOpen, breaker.State())

	time.Sleep(15 * time.Millisecond)
	require.NoError(t, breaker.allow())
	require.Equal(t, CircuitHalfOpen, breaker.State())

	breaker.record(false)
	assert.Equal(t, CircuitOpen, breaker.State())
}

func TestCircuitStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", CircuitClosed.String())
	assert.Equal(t, "OPEN", CircuitOpen.String())
	assert.Equal(t, "HALF_OPEN", CircuitHalfOpen.String())
}

// TestTimeoutMiddleware verifies a slow completion is cut off at the
// configured deadline.
func TestTimeoutMiddleware(t *testing.T) {
	slow := llm.WrapClient(
		func(ctx context.Context, _ llm.CompletionRequest) (llm.CompletionResponse, error) {
			select {
			case <-ctx.Done():
				return llm.CompletionResponse{}, ctx.Err()
			case <-time.After(time.Second):
				return llm.CompletionResponse{Content: "too late"}, nil
			}
		},
		func(_ context.Context, _ llm.CompletionRequest) (<-chan llm.StreamChunk, error) {
			return nil, errors.New("not streamed")
		},
		func() string { return "slow-model" },
	)
	client := llm.Chain(slow, TimeoutMiddleware(10*time.Millisecond))

	start := time.Now()
	_, err := client.Complete(t.Context(), llm.NewCompletionRequest(nil))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}
