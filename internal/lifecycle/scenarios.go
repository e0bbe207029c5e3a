package lifecycle

import (
	"strings"

	"github.com/modwatch/citywatch/internal/eventlog"
	"github.com/modwatch/citywatch/internal/probe"
)

// ScenarioKey names a recognized higher-level usage pattern.
type ScenarioKey string

const (
	ScenarioNewGameFromMenu   ScenarioKey = "new_game_from_menu"
	ScenarioLoadSaveFromMenu  ScenarioKey = "load_save_from_menu"
	ScenarioReloadSameSave    ScenarioKey = "reload_same_save"
	ScenarioLoadDifferentSave ScenarioKey = "load_different_save"
)

// Scenario records whether a usage pattern has been observed. Detection is
// monotonic: once set it stays set until an explicit clear.
type Scenario struct {
	Key        ScenarioKey `json:"key"`
	Name       string      `json:"name"`
	Detected   bool        `json:"detected"`
	DetectedMs int64       `json:"detected_ms,omitempty"`
}

var scenarioNames = map[ScenarioKey]string{
	ScenarioNewGameFromMenu:   "New game from main menu",
	ScenarioLoadSaveFromMenu:  "Load save from main menu",
	ScenarioReloadSameSave:    "In-game reload of the same save",
	ScenarioLoadDifferentSave: "In-game load of a different save",
}

// scenarioOrder keeps listings deterministic.
var scenarioOrder = []ScenarioKey{
	ScenarioNewGameFromMenu,
	ScenarioLoadSaveFromMenu,
	ScenarioReloadSameSave,
	ScenarioLoadDifferentSave,
}

func newScenarioSet() map[ScenarioKey]*Scenario {
	set := make(map[ScenarioKey]*Scenario, len(scenarioNames))
	for key, name := range scenarioNames {
		set[key] = &Scenario{Key: key, Name: name}
	}
	return set
}

// trigger identifies the point at which the recognizer is invoked.
type trigger string

const (
	triggerGameInit     trigger = "game_init"
	triggerLoadResolved trigger = "load_resolved"
	triggerMapReady     trigger = "map_ready"
)

// recognize classifies the current session against the scenario set. It is
// stateless over its inputs: the trigger, a short window of recent records,
// the pending-load correlation outcome, and the previous/loaded save names.
// Scenarios describe user actions: a completion that resolved without a
// tracked intent, or an init signal with no observed intent in the window,
// is never classified.
//
// Tie-break contract: new-game detection is always evaluated before
// reload/switch detection. Callers hold the engine lock.
func (e *Engine) recognize(tr trigger, res *resolution, loaded, previous string) {
	switch tr {
	case triggerGameInit, triggerMapReady:
		if e.pending[IntentLoad] != nil {
			return
		}
		if e.recentNewGameIntent() {
			e.setScenario(ScenarioNewGameFromMenu)
		}

	case triggerLoadResolved:
		if res == nil || !res.tracked {
			return
		}
		// New-game first, per the documented priority order.
		if e.recentNewGameIntent() {
			e.setScenario(ScenarioNewGameFromMenu)
			return
		}
		switch {
		case res.origin == probe.MainMenu || res.origin == probe.LoadSaveScreen:
			e.setScenario(ScenarioLoadSaveFromMenu)
		case previous != "" && loaded == previous:
			e.setScenario(ScenarioReloadSameSave)
		case previous != "":
			e.setScenario(ScenarioLoadDifferentSave)
		default:
			e.setScenario(ScenarioLoadSaveFromMenu)
		}
	}
}

// recentNewGameIntent scans the last few records for an observed new-game
// user action.
func (e *Engine) recentNewGameIntent() bool {
	for _, rec := range e.log.Recent(recognizerWindow) {
		if rec.Category == eventlog.CategoryUserAction && strings.Contains(rec.Message, string(IntentNewGame)) {
			return true
		}
	}
	return false
}

// setScenario marks a scenario detected. Repeat detections are no-ops; the
// flag only resets on an explicit clear.
func (e *Engine) setScenario(key ScenarioKey) {
	sc := e.scenarios[key]
	if sc == nil || sc.Detected {
		return
	}
	sc.Detected = true
	sc.DetectedMs = e.relMs()
	e.emitInfo("scenario detected: " + sc.Name)
}
