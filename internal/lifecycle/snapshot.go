package lifecycle

import (
	"time"

	"github.com/modwatch/citywatch/internal/eventlog"
	"github.com/modwatch/citywatch/internal/probe"
)

// Counters is a read-only copy of the engine's counting state.
type Counters struct {
	// ValidTransitions is the number of accepted state transitions
	ValidTransitions int `json:"valid_transitions"`
	// Errors counts invalid transitions, cadence anomalies, and mismatches
	Errors int `json:"error_count"`
	// Hooks maps hook name to invocation count
	Hooks map[string]int `json:"per_hook"`
	// PreGameDemand is demand-changed firings observed outside gameplay
	PreGameDemand int `json:"pre_game_demand"`
	// InGameDemand is demand-changed firings observed during gameplay
	InGameDemand int `json:"in_game_demand"`
}

// Snapshot is the serializable export bundle: current state, counters,
// scenario flags, and the full event log, timestamped.
type Snapshot struct {
	State       State             `json:"state"`
	Context     probe.Context     `json:"context"`
	CurrentSave string            `json:"current_save,omitempty"`
	Counters    Counters          `json:"counters"`
	Scenarios   []Scenario        `json:"scenarios"`
	Events      []eventlog.Record `json:"events"`
	SavedAt     time.Time         `json:"saved_at"`
}

func (e *Engine) countersLocked() Counters {
	hookCopy := make(map[string]int, len(e.hookCounts))
	for k, v := range e.hookCounts {
		hookCopy[string(k)] = v
	}
	return Counters{
		ValidTransitions: e.machine.valid,
		Errors:           e.errorCount,
		Hooks:            hookCopy,
		PreGameDemand:    e.preGameDemand,
		InGameDemand:     e.inGameDemand,
	}
}

func (e *Engine) scenariosLocked() []Scenario {
	out := make([]Scenario, 0, len(scenarioOrder))
	for _, key := range scenarioOrder {
		if sc := e.scenarios[key]; sc != nil {
			out = append(out, *sc)
		}
	}
	return out
}

// Export assembles a consistent snapshot of the engine under one lock
// acquisition.
func (e *Engine) Export() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		State:       e.machine.current,
		Context:     e.context,
		CurrentSave: e.currentSave,
		Counters:    e.countersLocked(),
		Scenarios:   e.scenariosLocked(),
		Events:      e.log.All(),
		SavedAt:     e.clock(),
	}
}
