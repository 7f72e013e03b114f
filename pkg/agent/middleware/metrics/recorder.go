// Package metrics provides metrics recording for LLM client operations and
// the agent control loop.
package metrics

import (
	"time"
)

// StateProvider provides access to agent state for metrics labeling.
type StateProvider interface {
	// CurrentState returns the agent's current loop state (think, act, etc).
	CurrentState() string
	// RunID returns the identifier of the current task run.
	RunID() string
	// AgentID returns the agent identifier.
	AgentID() string
}

// staticStateProvider labels metrics when no live agent state is available.
type staticStateProvider struct{}

func (staticStateProvider) CurrentState() string { return "unknown" }
func (staticStateProvider) RunID() string        { return "" }
func (staticStateProvider) AgentID() string      { return "" }

// Recorder defines the interface for recording LLM operation metrics.
type Recorder interface {
	// ObserveRequest records metrics for a completed LLM request.
	ObserveRequest(
		model, runID, agentID, state string,
		promptTokens, completionTokens int,
		success bool,
		errorType string,
		duration time.Duration,
	)

	// ObserveIteration records one completed loop iteration for a run.
	ObserveIteration(runID, agentID, state string, success bool)

	// ObserveTransition records a state transition chosen by the decision engine.
	ObserveTransition(runID, agentID, from, to string)

	// ObserveSleep records time spent in the sleep state.
	ObserveSleep(runID, agentID string, duration time.Duration)
}

// NoopRecorder implements Recorder with no-op behavior for when metrics are disabled.
type NoopRecorder struct{}

// Nop returns a no-op metrics recorder that discards all metrics.
func Nop() Recorder {
	return &NoopRecorder{}
}

// ObserveRequest does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveRequest(
	_, _, _, _ string,
	_, _ int,
	_ bool,
	_ string,
	_ time.Duration,
) {
	// No-op
}

// ObserveIteration does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveIteration(_, _, _ string, _ bool) {
	// No-op
}

// ObserveTransition does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveTransition(_, _, _, _ string) {
	// No-op
}

// ObserveSleep does nothing in the no-op recorder.
func (n *NoopRecorder) ObserveSleep(_, _ string, _ time.Duration) {
	// No-op
}
