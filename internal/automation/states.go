package automation

import "fmt"

// State is a step of a session run.
type State string

const (
	StateStart              State = "start"
	StateBrowserInitialized State = "browser_initialized"
	StateLoggedIn           State = "logged_in"
	StateSearchingTerm      State = "searching_term"
	StateFiltered           State = "filtered"
	StatePaginating         State = "paginating"
	StateJobEvaluated       State = "job_evaluated"
	StateSessionComplete    State = "session_complete"
	StateFailed             State = "failed"
)

// validTransitions lists every allowed (from → to) pair. Failed is reachable
// from every non-terminal state and is added by IsTransitionAllowed.
var validTransitions = map[State][]State{
	StateStart:              {StateBrowserInitialized, StateSessionComplete},
	StateBrowserInitialized: {StateLoggedIn},
	StateLoggedIn:           {StateSearchingTerm, StateSessionComplete},
	StateSearchingTerm:      {StateFiltered, StateSearchingTerm, StateSessionComplete},
	StateFiltered:           {StatePaginating, StateSearchingTerm, StateSessionComplete},
	StatePaginating:         {StateJobEvaluated, StatePaginating, StateSearchingTerm, StateSessionComplete},
	StateJobEvaluated:       {StateJobEvaluated, StatePaginating, StateSearchingTerm, StateSessionComplete},
	// SESSION_COMPLETE and FAILED are terminal
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateSessionComplete || s == StateFailed
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed {
		return true
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ParseState converts a raw string to a State.
func ParseState(s string) (State, error) {
	st := State(s)
	switch st {
	case StateStart, StateBrowserInitialized, StateLoggedIn, StateSearchingTerm, StateFiltered,
		StatePaginating, StateJobEvaluated, StateSessionComplete, StateFailed:
		return st, nil
	}
	return "", fmt.Errorf("unknown run state %q", s)
}
