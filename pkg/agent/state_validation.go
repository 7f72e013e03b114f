package agent

// ValidTransitions defines allowed state transitions for each state. The
// decision engine may route from any working state to any other; sleep is a
// pause, not a working state, so it only wakes back into think.
var ValidTransitions = map[State][]State{
	StateThink:   {StateThink, StateAct, StateRethink, StatePlan, StateExecute, StateCreate, StateSleep},
	StateAct:     {StateThink, StateAct, StateRethink, StatePlan, StateExecute, StateCreate, StateSleep},
	StateRethink: {StateThink, StateAct, StateRethink, StatePlan, StateExecute, StateCreate, StateSleep},
	StatePlan:    {StateThink, StateAct, StateRethink, StatePlan, StateExecute, StateCreate, StateSleep},
	StateExecute: {StateThink, StateAct, StateRethink, StatePlan, StateExecute, StateCreate, StateSleep},
	StateCreate:  {StateThink, StateAct, StateRethink, StatePlan, StateExecute, StateCreate, StateSleep},
	StateSleep:   {StateThink},
}

// IsValidTransition checks if a state transition is allowed.
func IsValidTransition(from, to State) bool {
	// Think and sleep are reachable from everywhere.
	if to == StateThink || to == StateSleep {
		return true
	}
	allowed, ok := ValidTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
