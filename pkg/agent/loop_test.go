package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
)

func testLoopConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Decision.SleepBase = time.Millisecond
	cfg.Decision.SleepMax = 2 * time.Millisecond
	return cfg
}

// bindAll binds the same handler to every working state. Sleep needs no
// handler.
func bindAll(h Handler) HandlerMap {
	m := make(HandlerMap, len(AllStates))
	for _, s := range AllStates {
		if s == StateSleep {
			continue
		}
		m[s] = h
	}
	return m
}

func newTestLoop(cfg *config.Config, handlers HandlerMap) *Loop {
	return NewLoop(cfg, NewDecisionEngine(cfg.Decision, zeroRand{}), handlers, nil)
}

// TestRunStopsOnCompletion verifies a terminal output key finishes the run on
// the iteration that produced it, after the transition was still recorded.
func TestRunStopsOnCompletion(t *testing.T) {
	handlers := bindAll(func(_ context.Context, _ string, _ map[string]any, _ *AgentState) (map[string]any, error) {
		return map[string]any{KeyContentText: "5 mobility drills for desk workers"}, nil
	})
	loop := newTestLoop(testLoopConfig(), handlers)

	result, err := loop.Run(context.Background(), "write a caption", nil, 5)
	require.NoError(t, err)

	assert.True(t, result.Completed())
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, 1, result.TotalIterations)
	require.Len(t, result.Transitions, 1)
	assert.Equal(t, StateThink, result.Transitions[0].From)
	assert.Equal(t, 1, result.Transitions[0].Iteration)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "5 mobility drills for desk workers", result.Output[KeyContentText])
}

// TestRunRespectsBudget verifies a run that never completes stops at the
// iteration budget with one transition record per iteration, numbered from 1.
func TestRunRespectsBudget(t *testing.T) {
	handlers := bindAll(func(_ context.Context, _ string, _ map[string]any, _ *AgentState) (map[string]any, error) {
		return map[string]any{"progress": "still working"}, nil
	})
	loop := newTestLoop(testLoopConfig(), handlers)

	result, err := loop.Run(context.Background(), "hi", nil, 4)
	require.NoError(t, err)

	assert.False(t, result.Completed())
	assert.Empty(t, result.Status)
	assert.Equal(t, 4, result.TotalIterations)
	require.Len(t, result.Transitions, 4)
	for i, rec := range result.Transitions {
		assert.Equal(t, i+1, rec.Iteration)
	}
	assert.Equal(t, "still working", result.Output["progress"])
}

// TestFailingHandlerStillRecordsTransition verifies the decide-and-transition
// step runs even when the handler errors: the failure is absorbed into the
// result and the iteration still appends exactly one record.
func TestFailingHandlerStillRecordsTransition(t *testing.T) {
	handlers := bindAll(func(_ context.Context, _ string, _ map[string]any, _ *AgentState) (map[string]any, error) {
		return nil, errors.New("capability offline")
	})
	loop := newTestLoop(testLoopConfig(), handlers)

	result, err := loop.Run(context.Background(), "draft a post", nil, 1)
	require.NoError(t, err)

	assert.Equal(t, "capability offline", result.Error)
	assert.False(t, result.Completed())
	require.Len(t, result.Transitions, 1)
	assert.True(t, result.Transitions[0].Snapshot.ErrorOccurred)
}

// TestErrorRoutesToReconsideration verifies repeated handler failures steer
// the run toward the rethink and plan states.
func TestErrorRoutesToReconsideration(t *testing.T) {
	handlers := bindAll(func(_ context.Context, _ string, _ map[string]any, _ *AgentState) (map[string]any, error) {
		return nil, errors.New("model unavailable")
	})
	loop := newTestLoop(testLoopConfig(), handlers)

	result, err := loop.Run(context.Background(), "draft a post", nil, 3)
	require.NoError(t, err)

	require.Len(t, result.Transitions, 3)
	for _, rec := range result.Transitions[1:] {
		assert.Contains(t, []State{StateRethink, StatePlan, StateThink}, rec.To)
	}
}

// TestSleepWakesIntoThink verifies the sleep path: a saturated fatigue window
// transitions into sleep, the wake-up forces think without consuming an
// iteration or appending a record, and no record ever starts from sleep.
func TestSleepWakesIntoThink(t *testing.T) {
	cfg := testLoopConfig()
	cfg.Decision.FatigueScale = 2

	handlers := bindAll(func(_ context.Context, _ string, _ map[string]any, _ *AgentState) (map[string]any, error) {
		return map[string]any{"progress": "still working"}, nil
	})
	loop := newTestLoop(cfg, handlers)

	result, err := loop.Run(context.Background(), "hi", nil, 6)
	require.NoError(t, err)

	assert.Equal(t, 6, result.TotalIterations)
	require.Len(t, result.Transitions, 6)

	var sleptAt = -1
	for i, rec := range result.Transitions {
		assert.NotEqual(t, StateSleep, rec.From, "no iteration may start from sleep")
		if rec.To == StateSleep && sleptAt < 0 {
			sleptAt = i
		}
	}
	require.GreaterOrEqual(t, sleptAt, 0, "fatigue never forced a sleep")
	require.Less(t, sleptAt+1, len(result.Transitions))
	assert.Equal(t, StateThink, result.Transitions[sleptAt+1].From, "wake-up must land in think")
	assert.Greater(t, result.SleepDuration, time.Duration(0))
	assert.LessOrEqual(t, result.SleepDuration, cfg.Decision.SleepMax)
}

// TestRunCanceledContext verifies a context canceled before the first
// iteration produces an empty run rather than an error.
func TestRunCanceledContext(t *testing.T) {
	handlers := bindAll(func(_ context.Context, _ string, _ map[string]any, _ *AgentState) (map[string]any, error) {
		t.Fatal("handler must not run on a canceled context")
		return nil, nil
	})
	loop := newTestLoop(testLoopConfig(), handlers)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := loop.Run(ctx, "draft a post", nil, 5)
	require.NoError(t, err)

	assert.Zero(t, result.TotalIterations)
	assert.Empty(t, result.Transitions)
	assert.False(t, result.Completed())
}

// TestMissingHandlerAbsorbed verifies an unbound state surfaces as a handler
// error inside the result, not as a panic or a Run error.
func TestMissingHandlerAbsorbed(t *testing.T) {
	loop := newTestLoop(testLoopConfig(), HandlerMap{})

	result, err := loop.Run(context.Background(), "draft a post", nil, 2)
	require.NoError(t, err)

	assert.Contains(t, result.Error, "no handler bound")
	require.Len(t, result.Transitions, 2)
	for _, rec := range result.Transitions {
		assert.True(t, rec.Snapshot.ErrorOccurred)
	}
}

// TestLoopStateProvider verifies the loop exposes live run labels for the
// metrics middleware.
func TestLoopStateProvider(t *testing.T) {
	handlers := bindAll(func(_ context.Context, _ string, _ map[string]any, _ *AgentState) (map[string]any, error) {
		return map[string]any{KeyResponse: "done"}, nil
	})
	loop := newTestLoop(testLoopConfig(), handlers)

	assert.Equal(t, string(StateThink), loop.CurrentState())
	assert.Equal(t, "content-agent", loop.AgentID())
	assert.Empty(t, loop.RunID())

	result, err := loop.Run(context.Background(), "reply to a comment", nil, 3)
	require.NoError(t, err)
	assert.Equal(t, result.RunID, loop.RunID())
}
