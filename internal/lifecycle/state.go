// Package lifecycle implements the observer core: the lifecycle state
// machine, the hook-driven ingestion and anomaly detectors, the
// pending-action correlator, and the scenario recognizer. All shared state
// is owned by a single Engine instance and mutated only inside its
// run-to-completion reaction handlers.
package lifecycle

// State is the host's current operating phase as classified by the observer.
type State string

const (
	StateUninitialized       State = "uninitialized"
	StateAPIReady            State = "api_ready"
	StateUserStartingNewGame State = "user_starting_new_game"
	StateUserLoadingSave     State = "user_loading_save"
	StateCityLoading         State = "city_loading"
	StateGameInit            State = "game_init"
	StateInGame              State = "in_game"
	StateMenu                State = "menu"
)

// Valid reports whether s is a known lifecycle state.
func (s State) Valid() bool {
	switch s {
	case StateUninitialized, StateAPIReady, StateUserStartingNewGame,
		StateUserLoadingSave, StateCityLoading, StateGameInit,
		StateInGame, StateMenu:
		return true
	}
	return false
}

// transitionTable is the fixed topology of allowed successor states. It is
// never mutated after init. The single bootstrap transition out of
// StateUninitialized bypasses the table entirely.
var transitionTable = map[State][]State{
	StateUninitialized: {StateAPIReady},
	StateAPIReady: {
		StateUserStartingNewGame, StateUserLoadingSave,
		StateCityLoading, StateGameInit, StateMenu,
	},
	StateUserStartingNewGame: {StateCityLoading, StateGameInit},
	StateUserLoadingSave:     {StateCityLoading, StateGameInit},
	StateCityLoading:         {StateGameInit, StateInGame},
	StateGameInit:            {StateInGame, StateCityLoading},
	StateInGame:              {StateMenu, StateCityLoading, StateUserLoadingSave},
	StateMenu: {
		StateInGame, StateCityLoading,
		StateUserStartingNewGame, StateUserLoadingSave,
	},
}

// allowedTransition reports whether the topology permits from → to.
func allowedTransition(from, to State) bool {
	for _, next := range transitionTable[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedSuccessors returns a copy of the allowed successor set for a state.
func AllowedSuccessors(s State) []State {
	next := transitionTable[s]
	out := make([]State, len(next))
	copy(out, next)
	return out
}
