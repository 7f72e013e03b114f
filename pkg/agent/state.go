// Package agent implements the autonomous task-execution core: a control
// state enumeration, a weighted next-state decision engine, and the iteration
// loop that dispatches state handlers and records every transition.
package agent

import (
	"fmt"
	"time"
)

// State is one label in the closed control-state enumeration.
type State string

// Control states. There is no terminal state; completion is detected
// structurally from handler results (see IsComplete).
const (
	StateThink   State = "think"
	StateAct     State = "act"
	StateRethink State = "rethink"
	StatePlan    State = "plan"
	StateExecute State = "execute"
	StateCreate  State = "create"
	StateSleep   State = "sleep"
)

// AllStates lists every control state in a stable order, used when scoring.
var AllStates = []State{
	StateThink,
	StateAct,
	StateRethink,
	StatePlan,
	StateExecute,
	StateCreate,
	StateSleep,
}

func (s State) String() string {
	return string(s)
}

// ParseState converts a string to a State, rejecting unknown labels.
func ParseState(s string) (State, error) {
	for _, st := range AllStates {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown control state %q", s)
}

// TaskContext describes one orchestrator invocation. It is created once per
// run and read-only afterwards.
type TaskContext struct {
	Task       string
	Complexity float64 // estimated, in [0,1]
	Caller     map[string]any
}

// AgentState is the mutable per-invocation record of the control loop. It is
// owned by exactly one Loop.Run call and never shared across invocations.
type AgentState struct {
	CurrentState   State
	PreviousState  State
	LastResult     map[string]any
	ErrorOccurred  bool
	SuccessMetrics map[string]float64
	IterationCount int
	Task           string
	Complexity     float64
	Timestamp      time.Time
}

// NewAgentState initializes the state for a fresh run.
func NewAgentState(task string, complexity float64) *AgentState {
	return &AgentState{
		CurrentState:   StateThink,
		SuccessMetrics: make(map[string]float64),
		Task:           task,
		Complexity:     complexity,
		Timestamp:      time.Now(),
	}
}

// StateSnapshot is a bounded copy of the decision-relevant parts of an
// AgentState, kept in the decision history and in transition records.
type StateSnapshot struct {
	State          State
	ErrorOccurred  bool
	SuccessMetrics map[string]float64
	Complexity     float64
	Timestamp      time.Time
}

// Snapshot captures the decision-relevant fields of the state.
func (a *AgentState) Snapshot() StateSnapshot {
	metrics := make(map[string]float64, len(a.SuccessMetrics))
	for k, v := range a.SuccessMetrics {
		metrics[k] = v
	}
	return StateSnapshot{
		State:          a.CurrentState,
		ErrorOccurred:  a.ErrorOccurred,
		SuccessMetrics: metrics,
		Complexity:     a.Complexity,
		Timestamp:      time.Now(),
	}
}

// MeanSuccess returns the mean of the success metrics, zero when empty.
func (s *StateSnapshot) MeanSuccess() float64 {
	return meanMetrics(s.SuccessMetrics)
}

func meanMetrics(metrics map[string]float64) float64 {
	if len(metrics) == 0 {
		return 0
	}
	var sum float64
	for _, v := range metrics {
		sum += v
	}
	return sum / float64(len(metrics))
}

// TransitionRecord captures one state change. Records are appended in
// iteration order and never mutated; exactly one record exists per completed
// iteration.
type TransitionRecord struct {
	From      State
	To        State
	Iteration int
	Timestamp time.Time
	Snapshot  StateSnapshot
}
