package lifecycle

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/modwatch/citywatch/internal/eventlog"
	"github.com/modwatch/citywatch/internal/hooks"
	"github.com/modwatch/citywatch/internal/probe"
)

// fakeClock advances manually so elapsed times are deterministic.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestEngine(t *testing.T) (*Engine, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	e := New(Deps{
		Logger: zerolog.Nop(),
		Clock:  clock.Now,
	})
	return e, clock
}

func errorRecords(recs []eventlog.Record) []eventlog.Record {
	var out []eventlog.Record
	for _, r := range recs {
		if r.IsError {
			out = append(out, r)
		}
	}
	return out
}

func scenarioDetected(e *Engine, key ScenarioKey) bool {
	for _, sc := range e.Scenarios() {
		if sc.Key == key {
			return sc.Detected
		}
	}
	return false
}

func TestTransitionTopology(t *testing.T) {
	allStates := []State{
		StateUninitialized, StateAPIReady, StateUserStartingNewGame,
		StateUserLoadingSave, StateCityLoading, StateGameInit,
		StateInGame, StateMenu,
	}

	for _, from := range allStates {
		for _, to := range allStates {
			e, _ := newTestEngine(t)
			if from != StateUninitialized {
				// Bootstrap transition is unconditional, so it can place the
				// machine in any starting state.
				if !e.Transition(from) {
					t.Fatalf("bootstrap transition to %s rejected", from)
				}
			}

			want := from == StateUninitialized || allowedTransition(from, to)
			got := e.Transition(to)
			if got != want {
				t.Errorf("transition %s → %s = %v, want %v", from, to, got, want)
			}

			if got && e.CurrentState() != to {
				t.Errorf("accepted transition left state %s, want %s", e.CurrentState(), to)
			}
			if !got && e.CurrentState() != from {
				t.Errorf("rejected transition moved state to %s, want %s", e.CurrentState(), from)
			}
		}
	}
}

func TestTransitionRejectionCountsError(t *testing.T) {
	// ApiReady → InGame is not in the allowed set.
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	before := e.Counters()
	if got := e.Transition(StateInGame); got {
		t.Fatal("transition(InGame) from ApiReady accepted, want rejection")
	}
	after := e.Counters()

	if after.Errors != before.Errors+1 {
		t.Errorf("error count = %d, want %d", after.Errors, before.Errors+1)
	}
	if after.ValidTransitions != before.ValidTransitions {
		t.Errorf("valid transitions changed on rejection: %d → %d", before.ValidTransitions, after.ValidTransitions)
	}
	if e.CurrentState() != StateAPIReady {
		t.Errorf("state = %s, want api_ready", e.CurrentState())
	}
}

func TestEveryNonTerminalStateHasSuccessors(t *testing.T) {
	for s := range transitionTable {
		if len(AllowedSuccessors(s)) == 0 {
			t.Errorf("state %s has no outgoing edges", s)
		}
	}
}

func TestRecordIntentLastWins(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	e.ObserveIntent(Intent{Kind: IntentLoad, Target: "Riverside", Context: probe.MainMenu})
	e.ObserveIntent(Intent{Kind: IntentLoad, Target: "Hilltop", Context: probe.LoadSaveScreen})

	pa, ok := e.Pending(IntentLoad)
	if !ok {
		t.Fatal("no pending action after two intents")
	}
	if pa.Target != "Hilltop" {
		t.Errorf("pending target = %q, want %q (last intent wins)", pa.Target, "Hilltop")
	}
}

func TestResolveMatchClearsWithoutMismatch(t *testing.T) {
	e, clock := newTestEngine(t)
	e.Transition(StateAPIReady)

	e.ObserveIntent(Intent{Kind: IntentLoad, Target: "Riverside", Context: probe.MainMenu})
	clock.Advance(1500 * time.Millisecond)

	before := e.Counters().Errors
	e.HandleSignal(hooks.GameLoaded{Name: "Riverside"})

	if _, ok := e.Pending(IntentLoad); ok {
		t.Error("pending action not cleared after matching resolution")
	}
	if got := e.Counters().Errors; got != before {
		t.Errorf("matching resolution raised error count %d → %d", before, got)
	}
}

func TestResolveMismatchCountsAndClears(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	e.ObserveIntent(Intent{Kind: IntentLoad, Target: "Riverside", Context: probe.MainMenu})
	before := e.Counters().Errors
	e.HandleSignal(hooks.GameLoaded{Name: "Lakeview"})

	if got := e.Counters().Errors; got != before+1 {
		t.Errorf("error count = %d, want %d", got, before+1)
	}
	if _, ok := e.Pending(IntentLoad); ok {
		t.Error("pending action kept after mismatch, want cleared (fail-open)")
	}
}

func TestResolveWithoutPendingIsInformational(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	before := e.Counters().Errors
	e.HandleSignal(hooks.GameLoaded{Name: "Autosave"})

	if got := e.Counters().Errors; got != before {
		t.Errorf("untracked completion raised error count %d → %d", before, got)
	}
}

func TestUntrackedCompletionSetsNoScenario(t *testing.T) {
	// A game-loaded completion with no observed intent is system-triggered
	// (autosave recovery, host-side restore) and must not classify.
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	e.HandleSignal(hooks.GameLoaded{Name: "Autosave"})

	for _, sc := range e.Scenarios() {
		if sc.Detected {
			t.Errorf("scenario %s detected for an untracked completion", sc.Key)
		}
	}
}

func TestUntrackedCompletionMidSessionSetsNoReloadFlags(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateInGame)
	e.HandleSignal(hooks.GameSaved{Name: "CityA"})

	e.HandleSignal(hooks.GameLoaded{Name: "CityA"})
	if scenarioDetected(e, ScenarioReloadSameSave) {
		t.Error("reload_same_save detected without a tracked intent")
	}

	e.HandleSignal(hooks.GameLoaded{Name: "CityB"})
	if scenarioDetected(e, ScenarioLoadDifferentSave) {
		t.Error("load_different_save detected without a tracked intent")
	}
}

func TestInitWithoutIntentSetsNoScenario(t *testing.T) {
	// Attaching mid-session sees init signals with no intent in the window.
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	e.HandleSignal(hooks.CityLoaded{Code: 0})
	e.HandleSignal(hooks.GameInitialized{})
	e.HandleSignal(hooks.MapReady{})

	if scenarioDetected(e, ScenarioNewGameFromMenu) {
		t.Error("new_game_from_menu detected without an observed intent")
	}
}

func TestLoadSaveFromMenuScenario(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	e.ObserveIntent(Intent{Kind: IntentLoad, Target: "CityA", Context: probe.MainMenu})
	e.HandleSignal(hooks.GameLoaded{Name: "CityA"})

	if !scenarioDetected(e, ScenarioLoadSaveFromMenu) {
		t.Error("load_save_from_menu not detected")
	}
	if scenarioDetected(e, ScenarioReloadSameSave) {
		t.Error("reload_same_save detected for a menu load")
	}
}

func TestInGameReloadScenarios(t *testing.T) {
	tests := []struct {
		name       string
		loadedName string
		want       ScenarioKey
		wantErrors int
	}{
		{name: "same save reload", loadedName: "CityA", want: ScenarioReloadSameSave, wantErrors: 0},
		{name: "different save load", loadedName: "CityB", want: ScenarioLoadDifferentSave, wantErrors: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, _ := newTestEngine(t)
			e.Transition(StateInGame)
			e.HandleSignal(hooks.GameSaved{Name: "CityA"})

			e.ObserveIntent(Intent{Kind: IntentLoad, Target: "CityA", Context: probe.InGameMenu})
			before := e.Counters().Errors
			e.HandleSignal(hooks.GameLoaded{Name: tt.loadedName})

			if !scenarioDetected(e, tt.want) {
				t.Errorf("scenario %s not detected", tt.want)
			}
			if got := e.Counters().Errors - before; got != tt.wantErrors {
				t.Errorf("error delta = %d, want %d", got, tt.wantErrors)
			}
		})
	}
}

func TestNewGameScenario(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	e.ObserveIntent(Intent{Kind: IntentNewGame, Target: "", Context: probe.MainMenu})
	e.HandleSignal(hooks.CityLoaded{Code: 0})
	e.HandleSignal(hooks.GameInitialized{})

	if !scenarioDetected(e, ScenarioNewGameFromMenu) {
		t.Error("new_game_from_menu not detected")
	}
	if scenarioDetected(e, ScenarioLoadSaveFromMenu) {
		t.Error("load scenario detected for a new game")
	}
}

func TestScenarioFlagsAreMonotonic(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	e.ObserveIntent(Intent{Kind: IntentLoad, Target: "CityA", Context: probe.MainMenu})
	e.HandleSignal(hooks.GameLoaded{Name: "CityA"})
	if !scenarioDetected(e, ScenarioLoadSaveFromMenu) {
		t.Fatal("scenario not detected")
	}

	// Unrelated triggers must not retract the flag.
	e.HandleSignal(hooks.CityLoaded{Code: 0})
	e.HandleSignal(hooks.GameInitialized{})
	e.HandleSignal(hooks.MapReady{})
	e.HandleSignal(hooks.DemandChanged{PopCount: 1200})

	if !scenarioDetected(e, ScenarioLoadSaveFromMenu) {
		t.Error("scenario flag retracted by unrelated triggers")
	}

	e.Clear()
	if scenarioDetected(e, ScenarioLoadSaveFromMenu) {
		t.Error("scenario flag survived an explicit clear")
	}
}

func TestDuplicateGameInitFlagged(t *testing.T) {
	// Hook fires twice while state is GameInit: exactly one additional
	// error record and error count increment, state unchanged.
	e, _ := newTestEngine(t)
	e.Transition(StateGameInit)

	e.HandleSignal(hooks.GameInitialized{})
	beforeCounters := e.Counters()
	beforeErrs := len(errorRecords(e.RecentEvents(50)))

	e.HandleSignal(hooks.GameInitialized{})

	after := e.Counters()
	if after.Errors != beforeCounters.Errors+1 {
		t.Errorf("error count = %d, want %d", after.Errors, beforeCounters.Errors+1)
	}
	if got := len(errorRecords(e.RecentEvents(50))); got != beforeErrs+1 {
		t.Errorf("error records = %d, want %d", got, beforeErrs+1)
	}
	if e.CurrentState() != StateGameInit {
		t.Errorf("state = %s, want game_init", e.CurrentState())
	}
}

func TestDuplicateCityLoadedRules(t *testing.T) {
	t.Run("repeat while in game is plausible", func(t *testing.T) {
		e, _ := newTestEngine(t)
		e.Transition(StateInGame)
		e.HandleSignal(hooks.CityLoaded{Code: 0}) // drives in_game → city_loading
		e.Transition(StateInGame)                 // host finished the reload

		before := e.Counters().Errors
		e.HandleSignal(hooks.CityLoaded{Code: 0})
		if got := e.Counters().Errors - before; got != 0 {
			t.Errorf("duplicate city-loaded error delta = %d, want 0", got)
		}
	})

	t.Run("repeat outside play is flagged", func(t *testing.T) {
		e, _ := newTestEngine(t)
		e.Transition(StateMenu)
		e.HandleSignal(hooks.CityLoaded{Code: 0}) // drives menu → city_loading
		e.Transition(StateInGame)
		e.Transition(StateMenu)

		before := e.Counters().Errors
		e.HandleSignal(hooks.CityLoaded{Code: 0})
		if got := e.Counters().Errors - before; got != 1 {
			t.Errorf("duplicate city-loaded error delta = %d, want 1", got)
		}
	})
}

func TestMapReadyDrivesInGame(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateCityLoading)

	e.HandleSignal(hooks.GameInitialized{})
	if e.CurrentState() != StateGameInit {
		t.Fatalf("state = %s, want game_init", e.CurrentState())
	}
	e.HandleSignal(hooks.MapReady{})
	if e.CurrentState() != StateInGame {
		t.Fatalf("state = %s, want in_game", e.CurrentState())
	}

	// A repeat while in-game is flagged.
	before := e.Counters().Errors
	e.HandleSignal(hooks.MapReady{})
	if got := e.Counters().Errors - before; got != 1 {
		t.Errorf("duplicate map-ready error delta = %d, want 1", got)
	}
}

func TestDemandDefectDetector(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)

	// Three pre-game firings reach the default threshold.
	for i := 0; i < 3; i++ {
		e.HandleSignal(hooks.DemandChanged{PopCount: 100 * i})
	}
	c := e.Counters()
	if c.PreGameDemand != 3 || c.InGameDemand != 0 {
		t.Fatalf("demand split = %d/%d, want 3/0", c.PreGameDemand, c.InGameDemand)
	}
	if c.Errors != 0 {
		t.Fatalf("defect flagged before entering play (errors=%d)", c.Errors)
	}

	// Entering play with zero in-game firings triggers the flag once.
	e.HandleSignal(hooks.CityLoaded{Code: 0})
	e.HandleSignal(hooks.GameInitialized{})
	before := e.Counters().Errors
	e.HandleSignal(hooks.MapReady{})
	if got := e.Counters().Errors - before; got != 1 {
		t.Fatalf("defect flag error delta = %d, want 1", got)
	}

	// Never re-flagged.
	before = e.Counters().Errors
	e.HandleSignal(hooks.MapReady{})
	if got := e.Counters().Errors - before; got != 1 {
		// The duplicate map-ready itself accounts for exactly one error.
		t.Errorf("error delta after repeat = %d, want 1 (duplicate map-ready only)", got)
	}

	// An in-game firing would have disarmed the detector on a fresh engine.
	e2, _ := newTestEngine(t)
	e2.Transition(StateCityLoading)
	e2.HandleSignal(hooks.GameInitialized{})
	e2.HandleSignal(hooks.MapReady{})
	e2.HandleSignal(hooks.DemandChanged{PopCount: 500})
	if got := e2.Counters().InGameDemand; got != 1 {
		t.Errorf("in-game demand = %d, want 1", got)
	}
	for _, rec := range errorRecords(e2.RecentEvents(50)) {
		t.Errorf("unexpected error record: %s", rec.Message)
	}
}

func TestClearResetsAtomically(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)
	e.ObserveIntent(Intent{Kind: IntentLoad, Target: "CityA", Context: probe.MainMenu})
	e.HandleSignal(hooks.GameLoaded{Name: "CityB"}) // mismatch → error
	e.HandleSignal(hooks.DemandChanged{PopCount: 10})

	e.Clear()

	c := e.Counters()
	if c.ValidTransitions != 0 || c.Errors != 0 {
		t.Errorf("counters after clear = %d/%d, want 0/0", c.ValidTransitions, c.Errors)
	}
	if len(c.Hooks) != 0 {
		t.Errorf("hook counters after clear = %v, want empty", c.Hooks)
	}
	if got := len(e.RecentEvents(500)); got != 0 {
		t.Errorf("log length after clear = %d, want 0", got)
	}
	if _, ok := e.Pending(IntentLoad); ok {
		t.Error("pending action survived clear")
	}
	// Lifecycle state is host reality, not diagnostics: it survives.
	if e.CurrentState() != StateUserLoadingSave {
		t.Errorf("state after clear = %s, want user_loading_save", e.CurrentState())
	}
}

func TestModsReloadedResetsHookCountersOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	e.Transition(StateAPIReady)
	e.HandleSignal(hooks.CityLoaded{Code: 0})

	before := e.Counters()
	e.ModsReloaded()
	after := e.Counters()

	if len(after.Hooks) != 0 {
		t.Errorf("hook counters = %v, want empty", after.Hooks)
	}
	if after.ValidTransitions != before.ValidTransitions {
		t.Errorf("valid transitions changed: %d → %d", before.ValidTransitions, after.ValidTransitions)
	}
}

func TestRestoreMergesPersistedState(t *testing.T) {
	records := []eventlog.Record{
		eventlog.NewRecord(10, eventlog.CategoryTransition, false, "api_ready", "main_menu", "uninitialized → api_ready"),
		eventlog.NewRecord(20, eventlog.CategoryError, true, "api_ready", "main_menu", "invalid transition api_ready → in_game"),
	}

	e, _ := newTestEngine(t)
	e.Restore(records, 5, 2)

	c := e.Counters()
	if c.ValidTransitions != 5 || c.Errors != 2 {
		t.Errorf("restored counters = %d/%d, want 5/2", c.ValidTransitions, c.Errors)
	}

	recent := e.RecentEvents(10)
	// Restored records plus the restore marker itself.
	if len(recent) != 3 {
		t.Fatalf("log length = %d, want 3", len(recent))
	}
	if recent[0].Message != records[0].Message {
		t.Errorf("restored record order wrong: first = %q", recent[0].Message)
	}
}

func TestExportSnapshot(t *testing.T) {
	e, clock := newTestEngine(t)
	e.Transition(StateAPIReady)
	e.ObserveIntent(Intent{Kind: IntentLoad, Target: "CityA", Context: probe.MainMenu})
	clock.Advance(2 * time.Second)
	e.HandleSignal(hooks.GameLoaded{Name: "CityA"})
	e.SetContext(probe.InGame)

	snap := e.Export()

	if snap.State != StateUserLoadingSave {
		t.Errorf("snapshot state = %s, want user_loading_save", snap.State)
	}
	if snap.Context != probe.InGame {
		t.Errorf("snapshot context = %s, want in_game", snap.Context)
	}
	if snap.CurrentSave != "CityA" {
		t.Errorf("snapshot save = %q, want CityA", snap.CurrentSave)
	}
	if !snap.SavedAt.Equal(clock.Now()) {
		t.Errorf("snapshot timestamp = %v, want %v", snap.SavedAt, clock.Now())
	}

	wantCounters := Counters{
		ValidTransitions: 2, // bootstrap + intent-driven
		Errors:           0,
		Hooks:            map[string]int{string(hooks.KindGameLoaded): 1},
	}
	if diff := cmp.Diff(wantCounters, snap.Counters); diff != "" {
		t.Errorf("counters mismatch (-want +got):\n%s", diff)
	}

	if len(snap.Events) != len(e.RecentEvents(eventlog.DefaultCapacity)) {
		t.Errorf("snapshot events = %d records, want full log", len(snap.Events))
	}
}

func TestSetContextEmitsOnChangeOnly(t *testing.T) {
	e, _ := newTestEngine(t)
	before := len(e.RecentEvents(50))

	e.SetContext(probe.MainMenu)
	e.SetContext(probe.MainMenu)
	e.SetContext(probe.InGame)

	var contextRecords int
	for _, rec := range e.RecentEvents(50)[before:] {
		if rec.Category == eventlog.CategoryContext {
			contextRecords++
		}
	}
	if contextRecords != 2 {
		t.Errorf("context records = %d, want 2", contextRecords)
	}
}
