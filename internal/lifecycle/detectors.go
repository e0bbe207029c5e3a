package lifecycle

import (
	"fmt"

	"github.com/modwatch/citywatch/internal/hooks"
)

// Per-hook ingestion: each handler logs the firing with its running count,
// applies the hook's duplicate-call rule, and applies its state-gated
// transition rule. A hook firing from an unexpected state is still logged
// but never drives a transition. Callers hold the engine lock.

// flagCadence records an UnexpectedHookCadence anomaly.
func (e *Engine) flagCadence(msg string) {
	e.errorCount++
	e.emit(categoryError, true, msg)
}

// stateIn reports whether the current state is one of the given states.
func (e *Engine) stateIn(states ...State) bool {
	for _, s := range states {
		if e.machine.current == s {
			return true
		}
	}
	return false
}

func (e *Engine) handleGameInitialized() {
	count := e.hookCounts[hooks.KindGameInitialized]
	e.emit(categoryLifecycle, false, fmt.Sprintf("game-initialized fired (count %d)", count))

	// Expected once per session: a repeat is always implausible.
	if count > 1 {
		e.flagCadence(fmt.Sprintf("duplicate game-initialized call (count %d)", count))
	}

	if e.stateIn(StateCityLoading, StateUserStartingNewGame, StateUserLoadingSave, StateAPIReady) {
		e.applyTransition(StateGameInit)
	} else {
		e.emitInfo(fmt.Sprintf("game-initialized in state %s: not a transition trigger here", e.machine.current))
	}

	e.recognize(triggerGameInit, nil, "", "")
}

func (e *Engine) handleCityLoaded(code int) {
	count := e.hookCounts[hooks.KindCityLoaded]
	e.emit(categoryLifecycle, false, fmt.Sprintf("city-loaded fired (code %d, count %d)", code, count))

	// Repeats are plausible mid-session (reload paths) but not elsewhere.
	if count > 1 && !e.stateIn(StateInGame, StateGameInit) {
		e.flagCadence(fmt.Sprintf("duplicate city-loaded call in state %s (count %d)", e.machine.current, count))
	}

	if e.stateIn(StateAPIReady, StateMenu, StateUserStartingNewGame, StateUserLoadingSave, StateInGame, StateGameInit) {
		e.applyTransition(StateCityLoading)
	} else {
		e.emitInfo(fmt.Sprintf("city-loaded in state %s: not a transition trigger here", e.machine.current))
	}
}

func (e *Engine) handleMapReady() {
	count := e.hookCounts[hooks.KindMapReady]
	e.emit(categoryLifecycle, false, fmt.Sprintf("map-ready fired (count %d)", count))

	// A repeat while already in-game means the hook fired without a
	// preceding load cycle.
	if count > 1 && e.stateIn(StateInGame) {
		e.flagCadence(fmt.Sprintf("duplicate map-ready call while in-game (count %d)", count))
	}

	if e.stateIn(StateGameInit, StateCityLoading) {
		e.applyTransition(StateInGame)
	} else if !e.stateIn(StateInGame) {
		e.emitInfo(fmt.Sprintf("map-ready in state %s: not a transition trigger here", e.machine.current))
	}

	e.recognize(triggerMapReady, nil, "", "")
	e.checkDemandDefect()
}

func (e *Engine) handleGameLoaded(name string) {
	e.emit(categoryLifecycle, false, fmt.Sprintf("game-loaded fired: %q", name))

	previous := e.currentSave
	res := e.resolvePending(IntentLoad, name)
	e.previousSave = previous
	e.currentSave = name

	e.recognize(triggerLoadResolved, &res, name, previous)
}

func (e *Engine) handleGameSaved(name string) {
	count := e.hookCounts[hooks.KindGameSaved]
	e.emit(categoryLifecycle, false, fmt.Sprintf("game-saved fired: %q (count %d)", name, count))
	e.currentSave = name
}

func (e *Engine) handleDemandChanged(pop int) {
	if e.machine.current == StateInGame {
		e.inGameDemand++
	} else {
		e.preGameDemand++
	}
	e.emit(categoryLifecycle, false, fmt.Sprintf(
		"demand-changed fired (population %d, pre-game %d, in-game %d)",
		pop, e.preGameDemand, e.inGameDemand))

	e.checkDemandDefect()
}

// checkDemandDefect flags the known host defect: demand-changed is expected
// to recur during active gameplay but empirically only fires before gameplay
// starts. Evaluated whenever demand fires and whenever play is (re)entered;
// flagged at most once per session.
func (e *Engine) checkDemandDefect() {
	if e.demandDefectFlagged {
		return
	}
	if e.hookCounts[hooks.KindMapReady] == 0 || e.machine.current != StateInGame {
		return
	}
	if e.inGameDemand > 0 || e.preGameDemand < e.cfg.PreGameDemandThreshold {
		return
	}
	e.demandDefectFlagged = true
	e.flagCadence(fmt.Sprintf(
		"demand-changed fired %d times before gameplay but never in-game: host defect",
		e.preGameDemand))
}
