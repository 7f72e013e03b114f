package agent

import (
	"math/rand"
	"time"

	"github.com/joshn8er2022/content-marketing-agent/pkg/config"
	"github.com/joshn8er2022/content-marketing-agent/pkg/logx"
)

// RandSource supplies the tie-breaking noise for the decision engine. It is
// injected so tests can pin decisions with a seeded source or a stub
// returning zero. *rand.Rand satisfies it.
type RandSource interface {
	Float64() float64
}

// Decision factors derived from the agent state before scoring.
const (
	factorErrorOccurred = "error_occurred"
	factorHighSuccess   = "high_success"
	factorComplexTask   = "complex_task"
	factorSimpleTask    = "simple_task"
	factorFatigue       = "fatigue"
	factorNewTask       = "new_task"
)

// decisionWeights encodes prior routing knowledge: errors route to
// reconsideration states, sustained success to productive ones, fatigue to
// sleep, and a fresh task to analysis. The values are heuristic and
// deliberately configurable only through factor values, not per-cell.
var decisionWeights = map[string]map[State]float64{
	factorErrorOccurred: {
		StateRethink: 0.8,
		StatePlan:    0.6,
		StateThink:   0.4,
		StateSleep:   0.2,
	},
	factorHighSuccess: {
		StateExecute: 0.8,
		StateCreate:  0.6,
		StateAct:     0.4,
	},
	factorComplexTask: {
		StatePlan:    0.7,
		StateRethink: 0.5,
		StateThink:   0.4,
	},
	factorSimpleTask: {
		StateAct:     0.7,
		StateExecute: 0.5,
	},
	factorFatigue: {
		StateSleep: 0.9,
		StateThink: 0.3,
	},
	factorNewTask: {
		StateThink: 0.6,
		StatePlan:  0.5,
		StateAct:   0.3,
	},
}

// DecisionEngine selects the next control state from the current agent state
// and a bounded FIFO history of past state snapshots.
type DecisionEngine struct {
	cfg     config.DecisionConfig
	rng     RandSource
	history []StateSnapshot
	logger  *logx.Logger
}

// NewDecisionEngine creates an engine with the given configuration. A nil
// random source falls back to a time-seeded one.
func NewDecisionEngine(cfg config.DecisionConfig, rng RandSource) *DecisionEngine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // tie-breaking noise, not crypto
	}
	return &DecisionEngine{
		cfg:    cfg,
		rng:    rng,
		logger: logx.NewLogger("decision"),
	}
}

// DecideNextState scores every control state against the factors derived from
// the agent state, adds bounded uniform noise, and returns the best-scoring
// state that is a valid transition. It records a snapshot of the evaluated
// state into the bounded history.
func (e *DecisionEngine) DecideNextState(st *AgentState) State {
	factors := e.factors(st)
	scores := make(map[State]float64, len(AllStates))

	for _, state := range AllStates {
		var score float64
		for factor, value := range factors {
			score += decisionWeights[factor][state] * value
		}
		score += e.rng.Float64() * e.cfg.NoiseMagnitude
		scores[state] = score
	}

	best := bestState(scores)
	if !IsValidTransition(st.CurrentState, best) {
		e.logger.Debug("decision %s invalid from %s, falling back to think", best, st.CurrentState)
		best = StateThink
	}

	e.record(st.Snapshot())

	e.logger.Debug("decided %s -> %s (factors=%v)", st.CurrentState, best, factors)
	return best
}

// factors derives the decision factors from the agent state and history.
func (e *DecisionEngine) factors(st *AgentState) map[string]float64 {
	factors := make(map[string]float64)

	if st.ErrorOccurred {
		factors[factorErrorOccurred] = 1.0
	}

	if mean := meanMetrics(st.SuccessMetrics); mean > e.cfg.HighSuccessThreshold {
		factors[factorHighSuccess] = mean
	}

	// Complexity buckets are mutually exclusive.
	switch {
	case st.Complexity > e.cfg.ComplexTaskThreshold:
		factors[factorComplexTask] = st.Complexity
	case st.Complexity < e.cfg.SimpleTaskThreshold:
		factors[factorSimpleTask] = 1.0 - st.Complexity
	}

	if fatigue := e.fatigue(time.Now()); fatigue > 0 {
		factors[factorFatigue] = fatigue
	}

	if len(e.history) == 0 || st.CurrentState == StateThink {
		factors[factorNewTask] = 1.0
	}

	return factors
}

// fatigue is the proportion of recent history relative to the configured
// saturation scale, capped at 1.0. A busy recent window reads as fatigue.
func (e *DecisionEngine) fatigue(now time.Time) float64 {
	if e.cfg.FatigueScale <= 0 {
		return 0
	}
	cutoff := now.Add(-e.cfg.FatigueWindow)
	var recent int
	for i := range e.history {
		if e.history[i].Timestamp.After(cutoff) {
			recent++
		}
	}
	fatigue := float64(recent) / float64(e.cfg.FatigueScale)
	if fatigue > 1.0 {
		fatigue = 1.0
	}
	return fatigue
}

// record appends a snapshot, evicting the oldest entry past the bound.
func (e *DecisionEngine) record(snap StateSnapshot) {
	e.history = append(e.history, snap)
	if limit := e.cfg.HistoryLimit; limit > 0 && len(e.history) > limit {
		e.history = e.history[len(e.history)-limit:]
	}
}

// History returns a copy of the bounded snapshot history, oldest first.
func (e *DecisionEngine) History() []StateSnapshot {
	out := make([]StateSnapshot, len(e.history))
	copy(out, e.history)
	return out
}

// bestState returns the highest-scoring state. Iteration over AllStates keeps
// selection deterministic when scores are exactly equal.
func bestState(scores map[State]float64) State {
	best := StateThink
	bestScore := scores[best]
	for _, state := range AllStates {
		if scores[state] > bestScore {
			best = state
			bestScore = scores[state]
		}
	}
	return best
}
