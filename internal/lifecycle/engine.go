package lifecycle

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/modwatch/citywatch/internal/eventlog"
	"github.com/modwatch/citywatch/internal/hooks"
	"github.com/modwatch/citywatch/internal/probe"
)

// Category aliases keep emission call sites short.
const (
	categorySystem     = eventlog.CategorySystem
	categoryAPI        = eventlog.CategoryAPI
	categoryLifecycle  = eventlog.CategoryLifecycle
	categoryTransition = eventlog.CategoryTransition
	categoryUserAction = eventlog.CategoryUserAction
	categoryContext    = eventlog.CategoryContext
	categoryError      = eventlog.CategoryError
	categoryInfo       = eventlog.CategoryInfo
)

// recognizerWindow is how many recent records the scenario recognizer
// inspects per trigger.
const recognizerWindow = 10

// Config holds engine tuning knobs.
type Config struct {
	// LogCapacity bounds the in-memory event log (default: eventlog.DefaultCapacity)
	LogCapacity int
	// PreGameDemandThreshold is how many pre-game demand-changed firings,
	// with zero in-game firings after play starts, flag the known host
	// defect (default: 3)
	PreGameDemandThreshold int
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() *Config {
	return &Config{
		LogCapacity:            eventlog.DefaultCapacity,
		PreGameDemandThreshold: 3,
	}
}

// Deps holds dependencies for creating an Engine.
type Deps struct {
	Config   *Config
	Logger   zerolog.Logger
	Observer Observer
	// Clock overrides time.Now, for tests
	Clock func() time.Time
}

// Engine is the lifecycle observer core. It owns all mutable state (current
// state, counters, event log, pending actions, scenario flags) and mutates
// it only inside its own reaction handlers, serialized behind one mutex.
// Readers receive snapshot copies.
type Engine struct {
	mu sync.Mutex

	cfg    *Config
	logger zerolog.Logger
	obs    Observer
	clock  func() time.Time

	started time.Time
	log     *eventlog.Log
	machine *machine

	errorCount int
	hookCounts map[hooks.Kind]int

	preGameDemand       int
	inGameDemand        int
	demandDefectFlagged bool

	pending   map[string]*PendingAction
	scenarios map[ScenarioKey]*Scenario

	currentSave  string
	previousSave string

	context probe.Context
}

// New creates an engine in StateUninitialized and logs the start of
// observation.
func New(deps Deps) *Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.PreGameDemandThreshold <= 0 {
		cfg.PreGameDemandThreshold = 3
	}
	obs := deps.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	e := &Engine{
		cfg:        cfg,
		logger:     deps.Logger,
		obs:        obs,
		clock:      clock,
		started:    clock(),
		log:        eventlog.New(cfg.LogCapacity),
		machine:    newMachine(),
		hookCounts: make(map[hooks.Kind]int),
		pending:    make(map[string]*PendingAction),
		scenarios:  newScenarioSet(),
		context:    probe.Unknown,
	}
	e.emit(categorySystem, false, "lifecycle observer started")
	return e
}

// relMs returns milliseconds since the engine started. Callers hold the lock.
func (e *Engine) relMs() int64 {
	return e.clock().Sub(e.started).Milliseconds()
}

// emit appends a record stamped with the current state and context.
// Callers hold the lock.
func (e *Engine) emit(cat eventlog.Category, isError bool, msg string) {
	e.log.Append(eventlog.NewRecord(
		e.relMs(), cat, isError, string(e.machine.current), string(e.context), msg))
}

func (e *Engine) emitInfo(msg string) {
	e.emit(categoryInfo, false, msg)
}

// applyTransition runs the transition contract: accept iff the topology
// permits it (or the machine is still uninitialized), emit the matching
// record, and bump the matching counter. Rejection leaves the state
// untouched and is terminal for the attempt. Callers hold the lock.
func (e *Engine) applyTransition(to State) bool {
	from, ok := e.machine.attempt(to)
	if !ok {
		e.errorCount++
		e.obs.TransitionRejected(from, to)
		e.emit(categoryError, true, fmt.Sprintf("invalid transition %s → %s", from, to))
		return false
	}
	e.obs.TransitionAccepted(from, to)
	e.emit(categoryTransition, false, fmt.Sprintf("%s → %s", from, to))
	return true
}

// Transition attempts a lifecycle state change and reports acceptance.
func (e *Engine) Transition(to State) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.applyTransition(to)
}

// MarkAPIReady records that the host registration API resolved and moves
// the machine out of its bootstrap state.
func (e *Engine) MarkAPIReady(apiVersion string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if apiVersion != "" {
		e.emit(categoryAPI, false, "host API ready (version "+apiVersion+")")
	} else {
		e.emit(categoryAPI, false, "host API ready")
	}
	e.applyTransition(StateAPIReady)
}

// HandleSignal ingests one host lifecycle signal. Each call is a discrete
// run-to-completion reaction.
func (e *Engine) HandleSignal(sig hooks.Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hookCounts[sig.Kind()]++
	e.obs.HookFired(string(sig.Kind()))

	switch s := sig.(type) {
	case hooks.GameInitialized:
		e.handleGameInitialized()
	case hooks.CityLoaded:
		e.handleCityLoaded(s.Code)
	case hooks.MapReady:
		e.handleMapReady()
	case hooks.GameLoaded:
		e.handleGameLoaded(s.Name)
	case hooks.GameSaved:
		e.handleGameSaved(s.Name)
	case hooks.DemandChanged:
		e.handleDemandChanged(s.PopCount)
	default:
		e.emitInfo(fmt.Sprintf("unrecognized host signal %q", sig.Kind()))
	}
}

// ObserveIntent ingests a user-initiated action recognized on the
// presentation surface.
func (e *Engine) ObserveIntent(in Intent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.emit(categoryUserAction, false, fmt.Sprintf(
		"user intent observed: %s %q (context: %s)", in.Kind, in.Target, originLabel(in.Context)))

	switch in.Kind {
	case IntentLoad:
		e.recordIntent(IntentLoad, in.Target, in.Context)
		if allowedTransition(e.machine.current, StateUserLoadingSave) {
			e.applyTransition(StateUserLoadingSave)
		}
	case IntentNewGame:
		if allowedTransition(e.machine.current, StateUserStartingNewGame) {
			e.applyTransition(StateUserStartingNewGame)
		}
	}
}

// SetContext receives pushes from the context probe.
func (e *Engine) SetContext(c probe.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !c.Valid() {
		c = probe.Unknown
	}
	if c == e.context {
		return
	}
	prev := e.context
	e.context = c
	e.emit(categoryContext, false, fmt.Sprintf("context changed: %s → %s", prev, c))
}

// ModsReloaded resets the per-hook counters in response to the host's
// mods-reloaded signal, without touching the log or transition counters.
func (e *Engine) ModsReloaded() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.hookCounts = make(map[hooks.Kind]int)
	e.preGameDemand = 0
	e.inGameDemand = 0
	e.demandDefectFlagged = false
	e.emit(categorySystem, false, "mods reloaded: hook counters reset")
}

// CurrentState returns the current lifecycle state.
func (e *Engine) CurrentState() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.machine.current
}

// CurrentContext returns the last context pushed by the probe.
func (e *Engine) CurrentContext() probe.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.context
}

// RecentEvents returns the last n event records in insertion order.
func (e *Engine) RecentEvents(n int) []eventlog.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.log.Recent(n)
}

// Counters returns a copy of the transition, error, and per-hook counters.
func (e *Engine) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.countersLocked()
}

// Scenarios returns the scenario set in stable order.
func (e *Engine) Scenarios() []Scenario {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scenariosLocked()
}

// Pending returns the outstanding pending action of the given kind, if any.
func (e *Engine) Pending(kind string) (PendingAction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pa := e.pending[kind]
	if pa == nil {
		return PendingAction{}, false
	}
	return *pa, true
}

// Clear empties the event log and resets every counter, scenario flag, and
// pending action as one atomic operation. The lifecycle state itself is not
// reset: clearing diagnostics does not change what the host is doing.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Clear()
	e.machine.valid = 0
	e.errorCount = 0
	e.hookCounts = make(map[hooks.Kind]int)
	e.preGameDemand = 0
	e.inGameDemand = 0
	e.demandDefectFlagged = false
	e.pending = make(map[string]*PendingAction)
	e.scenarios = newScenarioSet()
}

// Restore merges a persisted snapshot into the engine: the stored records
// seed the log and the stored counters replace the zero-valued ones. Meant
// to run once, right after New.
func (e *Engine) Restore(records []eventlog.Record, validTransitions, errorCount int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(records) > 0 {
		e.log.Restore(records)
	}
	e.machine.valid = validTransitions
	e.errorCount = errorCount
	e.emit(categorySystem, false, fmt.Sprintf("restored %d persisted event records", len(records)))
}
