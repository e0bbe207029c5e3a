package lifecycle

// machine holds the current lifecycle state and the valid-transition count.
// It is engine-internal; the Engine serializes access and owns record
// emission and error counting for rejected attempts.
type machine struct {
	current State
	valid   int
}

func newMachine() *machine {
	return &machine{current: StateUninitialized}
}

// attempt applies the transition-validation algorithm: the bootstrap
// transition out of StateUninitialized is accepted unconditionally; every
// other attempt must be permitted by the topology. On acceptance the state
// is mutated and the valid count incremented. On rejection the state is
// left unchanged.
func (m *machine) attempt(to State) (from State, ok bool) {
	from = m.current
	if from != StateUninitialized && !allowedTransition(from, to) {
		return from, false
	}
	m.current = to
	m.valid++
	return from, true
}
