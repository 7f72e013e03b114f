package resilience

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/llm"
	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

// Circuit breaker states for managing provider failure patterns.
const (
	CircuitClosed   CircuitState = iota // Normal operation
	CircuitOpen                         // Failing, reject requests
	CircuitHalfOpen                     // Testing if service recovered
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitOpenError is returned when the breaker rejects a request.
type CircuitOpenError struct {
	State CircuitState
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker is %s", e.State)
}

// Breaker implements the circuit-breaker pattern for a single provider.
type Breaker struct {
	cfg             config.CircuitBreakerConfig
	mu              sync.Mutex
	state           CircuitState
	failureCount    int
	successCount    int
	lastFailureTime time.Time
}

// NewBreaker creates a closed circuit breaker.
func NewBreaker(cfg config.CircuitBreakerConfig) *Breaker {
	return &Breaker{cfg: cfg, state: CircuitClosed}
}

// State returns the current breaker state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// allow reports whether a request may proceed, moving OPEN to HALF_OPEN once
// the timeout has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed, CircuitHalfOpen:
		return nil
	case CircuitOpen:
		if time.Since(b.lastFailureTime) >= b.cfg.Timeout {
			b.state = CircuitHalfOpen
			b.successCount = 0
			return nil
		}
		return &CircuitOpenError{State: CircuitOpen}
	default:
		return nil
	}
}

// record updates breaker counters after a request completes.
func (b *Breaker) record(success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if success {
		switch b.state {
		case CircuitHalfOpen:
			b.successCount++
			if b.successCount >= b.cfg.SuccessThreshold {
				b.state = CircuitClosed
				b.failureCount = 0
			}
		case CircuitClosed:
			b.failureCount = 0
		}
		return
	}

	b.lastFailureTime = time.Now()
	switch b.state {
	case CircuitHalfOpen:
		b.state = CircuitOpen
	case CircuitClosed:
		b.failureCount++
		if b.failureCount >= b.cfg.FailureThreshold {
			b.state = CircuitOpen
		}
	}
}

// CircuitMiddleware wraps completions with the given breaker.
func CircuitMiddleware(breaker *Breaker) llm.Middleware {
	return func(next llm.LLMClient) llm.LLMClient {
		return llm.WrapClient(
			func(ctx context.Context, req llm.CompletionRequest) (llm.CompletionResponse, error) {
				if err := breaker.allow(); err != nil {
					return llm.CompletionResponse{}, err
				}
				resp, err := next.Complete(ctx, req)
				breaker.record(err == nil)
				return resp, err
			},
			next.Stream,
			next.ModelName,
		)
	}
}
