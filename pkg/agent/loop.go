package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joshn8er2022/content-marketing-agent/pkg/agent/middleware/metrics"
	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
)

// StatusCompleted marks a run whose completion predicate was satisfied.
// A run that exhausts its budget carries an empty status.
const StatusCompleted = "completed"

// Handler performs the work bound to one control state. It receives the task,
// the caller-supplied context map, and the live agent state (so rethink can
// see the previous error and execute can see the plan). Handlers may fail;
// the loop always recovers.
type Handler func(ctx context.Context, task string, callerCtx map[string]any, st *AgentState) (map[string]any, error)

// HandlerMap binds each control state to its handler.
type HandlerMap map[State]Handler

// ExecutionResult is returned to the caller of Loop.Run.
type ExecutionResult struct {
	RunID           string
	FinalState      State
	TotalIterations int
	Status          string // StatusCompleted or empty
	Transitions     []TransitionRecord
	SleepDuration   time.Duration // last computed sleep, zero if never slept
	Error           string        // last handler error message, if any
	Output          map[string]any // merged fields from successful handler results
}

// Completed reports whether the run satisfied the completion predicate.
func (r *ExecutionResult) Completed() bool {
	return r.Status == StatusCompleted
}

// Loop drives the iteration cycle: execute the current state's handler,
// capture the result or error, always decide and transition, sleep when told
// to, and stop on completion or budget exhaustion.
type Loop struct {
	cfg      *config.Config
	engine   *DecisionEngine
	handlers HandlerMap
	recorder metrics.Recorder
	logger   *logx.Logger
	agentID  string

	// sleep is swappable so tests do not wait in real time.
	sleep func(ctx context.Context, d time.Duration) error

	mu       sync.Mutex
	runID    string
	current  State
}

// NewLoop creates a loop over the given handlers. A nil recorder disables
// metrics; a nil engine gets a default one from the config.
func NewLoop(cfg *config.Config, engine *DecisionEngine, handlers HandlerMap, recorder metrics.Recorder) *Loop {
	if engine == nil {
		engine = NewDecisionEngine(cfg.Decision, nil)
	}
	if recorder == nil {
		recorder = metrics.Nop()
	}
	return &Loop{
		cfg:      cfg,
		engine:   engine,
		handlers: handlers,
		recorder: recorder,
		logger:   logx.NewLogger("loop"),
		agentID:  "content-agent",
		sleep:    sleepContext,
		current:  StateThink,
	}
}

// CurrentState implements metrics.StateProvider.
func (l *Loop) CurrentState() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return string(l.current)
}

// RunID implements metrics.StateProvider.
func (l *Loop) RunID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runID
}

// AgentID implements metrics.StateProvider.
func (l *Loop) AgentID() string {
	return l.agentID
}

func (l *Loop) setCurrent(runID string, s State) {
	l.mu.Lock()
	l.runID = runID
	l.current = s
	l.mu.Unlock()
}

// Run executes up to maxIterations iterations for the task. It never returns
// an error for handler failures; those are absorbed into the result. The
// returned error is reserved for an exhausted context before the first
// iteration.
func (l *Loop) Run(ctx context.Context, task string, callerCtx map[string]any, maxIterations int) (*ExecutionResult, error) {
	if maxIterations <= 0 {
		maxIterations = l.cfg.MaxIterations
	}
	if callerCtx == nil {
		callerCtx = make(map[string]any)
	}

	runID := uuid.NewString()
	st := NewAgentState(task, EstimateComplexity(task))
	l.setCurrent(runID, st.CurrentState)

	result := &ExecutionResult{
		RunID:       runID,
		Output:      make(map[string]any),
		Transitions: make([]TransitionRecord, 0, maxIterations),
	}

	l.logger.Info("run %s started: task=%q complexity=%.2f budget=%d", runID, task, st.Complexity, maxIterations)

	for i := 0; i < maxIterations; i++ {
		if ctx.Err() != nil {
			l.logger.Warn("run %s canceled after %d iterations", runID, st.IterationCount)
			break
		}

		completed := l.iterate(ctx, st, task, callerCtx, result)

		l.recorder.ObserveIteration(runID, l.agentID, string(st.PreviousState), !st.ErrorOccurred)
		l.recorder.ObserveTransition(runID, l.agentID, string(st.PreviousState), string(st.CurrentState))
		l.setCurrent(runID, st.CurrentState)

		if completed {
			result.Status = StatusCompleted
			break
		}

		if st.CurrentState == StateSleep {
			d := SleepDuration(l.engine.History(), l.cfg.Decision)
			result.SleepDuration = d
			l.logger.Debug("run %s sleeping for %s", runID, d)
			start := time.Now()
			if err := l.sleep(ctx, d); err != nil {
				l.recorder.ObserveSleep(runID, l.agentID, time.Since(start))
				break
			}
			l.recorder.ObserveSleep(runID, l.agentID, d)
			// Waking up forces a transition back to think without
			// consuming an iteration or appending a record.
			st.PreviousState = StateSleep
			st.CurrentState = StateThink
			l.setCurrent(runID, StateThink)
		}
	}

	result.FinalState = st.CurrentState
	result.TotalIterations = st.IterationCount
	l.logger.Info("run %s finished: state=%s iterations=%d status=%s", runID, result.FinalState, result.TotalIterations, result.Status)
	return result, nil
}

// iterate performs one full iteration: dispatch, capture, decide, transition.
// The decision and transition always run, even when the handler fails; every
// iteration appends exactly one transition record. Returns whether the
// completion predicate was satisfied.
func (l *Loop) iterate(ctx context.Context, st *AgentState, task string, callerCtx map[string]any, result *ExecutionResult) bool {
	out, err := l.dispatch(ctx, st, task, callerCtx)

	var completed bool
	if err != nil {
		st.ErrorOccurred = true
		st.LastResult = map[string]any{KeyError: err.Error()}
		st.SuccessMetrics = map[string]float64{}
		result.Error = err.Error()
		l.logger.Warn("iteration %d handler %s failed: %v", st.IterationCount+1, st.CurrentState, err)
	} else {
		st.ErrorOccurred = false
		st.LastResult = out
		st.SuccessMetrics = ScoreResult(out)
		for k, v := range out {
			result.Output[k] = v
		}
		completed = IsComplete(out)
	}

	// Decide and transition regardless of the handler outcome.
	next := l.engine.DecideNextState(st)
	record := TransitionRecord{
		From:      st.CurrentState,
		To:        next,
		Iteration: st.IterationCount + 1,
		Timestamp: time.Now(),
		Snapshot:  st.Snapshot(),
	}
	result.Transitions = append(result.Transitions, record)

	st.PreviousState = st.CurrentState
	st.CurrentState = next
	st.IterationCount++
	st.Timestamp = time.Now()

	return completed
}

// dispatch invokes the handler bound to the current state. Sleep produces
// only a duration value and needs no handler.
func (l *Loop) dispatch(ctx context.Context, st *AgentState, task string, callerCtx map[string]any) (map[string]any, error) {
	if st.CurrentState == StateSleep {
		return map[string]any{"sleep_duration": SleepDuration(l.engine.History(), l.cfg.Decision).Seconds()}, nil
	}
	handler, ok := l.handlers[st.CurrentState]
	if !ok {
		return nil, fmt.Errorf("no handler bound to state %s", st.CurrentState)
	}
	return handler(ctx, task, callerCtx, st)
}

// sleepContext pauses for d or until the context is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
