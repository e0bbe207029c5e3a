package lifecycle

// Observer receives engine-level measurement callbacks. The metrics package
// implements it with prometheus collectors; the engine itself stays free of
// any metrics dependency.
type Observer interface {
	TransitionAccepted(from, to State)
	TransitionRejected(from, to State)
	HookFired(kind string)
	CorrelationMismatch()
}

type nopObserver struct{}

func (nopObserver) TransitionAccepted(_, _ State) {}
func (nopObserver) TransitionRejected(_, _ State) {}
func (nopObserver) HookFired(_ string)            {}
func (nopObserver) CorrelationMismatch()          {}
