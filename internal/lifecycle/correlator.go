package lifecycle

import (
	"fmt"
	"time"

	"github.com/modwatch/citywatch/internal/probe"
)

// Intent kinds the correlator understands.
const (
	IntentLoad    = "load"
	IntentNewGame = "new_game"
)

// Intent is a user-initiated action observed on the presentation surface,
// e.g. a "Load" affordance activated for a named save.
type Intent struct {
	Kind    string
	Target  string
	Context probe.Context
}

// PendingAction tracks a user intent until its matching completion event
// arrives or a newer intent of the same kind supersedes it. At most one
// pending action exists per kind (last-intent-wins). There is no timeout:
// an unresolved intent persists until resolved or superseded.
type PendingAction struct {
	Kind     string        `json:"kind"`
	Target   string        `json:"target"`
	IssuedAt time.Time     `json:"issued_at"`
	Origin   probe.Context `json:"origin"`
}

// resolution is the outcome of correlating a completion event against the
// pending action of its kind.
type resolution struct {
	tracked bool
	matched bool
	elapsed time.Duration
	origin  probe.Context
}

// recordIntent installs a pending action, overwriting any prior one of the
// same kind. Callers hold the engine lock.
func (e *Engine) recordIntent(kind, target string, origin probe.Context) {
	if prior := e.pending[kind]; prior != nil {
		e.emitInfo(fmt.Sprintf("pending %s %q superseded by %q", kind, prior.Target, target))
	}
	e.pending[kind] = &PendingAction{
		Kind:     kind,
		Target:   target,
		IssuedAt: e.clock(),
		Origin:   origin,
	}
}

// resolvePending correlates a completion event with the pending action of
// the same kind. The pending action is cleared on every outcome, including
// mismatch: stale intents are never kept. Callers hold the engine lock.
func (e *Engine) resolvePending(kind, actual string) resolution {
	pa := e.pending[kind]
	if pa == nil {
		e.emitInfo(fmt.Sprintf("%s completed with %q but no intent was tracked", kind, actual))
		return resolution{}
	}
	delete(e.pending, kind)

	elapsed := e.clock().Sub(pa.IssuedAt)
	if pa.Target == actual {
		e.emit(categoryLifecycle, false, fmt.Sprintf(
			"%s %q completed after %dms (origin: %s)",
			kind, actual, elapsed.Milliseconds(), originLabel(pa.Origin)))
		return resolution{tracked: true, matched: true, elapsed: elapsed, origin: pa.Origin}
	}

	e.errorCount++
	e.obs.CorrelationMismatch()
	e.emit(categoryError, true, fmt.Sprintf(
		"%s completed with %q but pending intent expected %q (origin: %s)",
		kind, actual, pa.Target, originLabel(pa.Origin)))
	return resolution{tracked: true, matched: false, elapsed: elapsed, origin: pa.Origin}
}

func originLabel(c probe.Context) string {
	if c == "" {
		return string(probe.Unknown)
	}
	return string(c)
}
