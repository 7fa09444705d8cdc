package playback

// State is the lifecycle state of a playback context.
type State int

const (
	// StateInit is the state before the first freshness check.
	StateInit State = iota
	// StateArmed means the epoch was current at the last check; no output yet.
	StateArmed
	// StateProducing means output has started (possibly paused since).
	StateProducing
	// StateCompleted means output ran to its end without suppression.
	StateCompleted
	// StateSuppressed means the context retired itself. It never produces
	// again.
	StateSuppressed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateArmed:
		return "armed"
	case StateProducing:
		return "producing"
	case StateCompleted:
		return "completed"
	case StateSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateSuppressed
}

// stateMachine enforces the allowed transitions and runs entry actions.
// It is not safe for concurrent use; the owning Context serializes access.
type stateMachine struct {
	current     State
	transitions map[State][]State
	onEnter     map[State]func(from State)
}

func newStateMachine() *stateMachine {
	return &stateMachine{
		current: StateInit,
		transitions: map[State][]State{
			StateInit:      {StateArmed, StateSuppressed},
			StateArmed:     {StateProducing, StateSuppressed},
			StateProducing: {StateCompleted, StateSuppressed},
		},
		onEnter: make(map[State]func(from State)),
	}
}

// Transition moves to the given state if allowed and runs its entry action.
func (sm *stateMachine) Transition(to State) bool {
	if !sm.CanTransition(to) {
		return false
	}
	from := sm.current
	sm.current = to
	if fn := sm.onEnter[to]; fn != nil {
		fn(from)
	}
	return true
}

// CanTransition reports whether a transition to the given state is allowed.
func (sm *stateMachine) CanTransition(to State) bool {
	for _, s := range sm.transitions[sm.current] {
		if s == to {
			return true
		}
	}
	return false
}

// Current returns the current state.
func (sm *stateMachine) Current() State {
	return sm.current
}

// OnEnter registers the entry action for a state.
func (sm *stateMachine) OnEnter(state State, fn func(from State)) {
	sm.onEnter[state] = fn
}
