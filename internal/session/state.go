package session

// State is the lifecycle state of a tracked identity.
type State int

const (
	// StateTransient is a new entity not yet written to the store.
	StateTransient State = iota + 1
	// StateManaged is an entity synchronized with the store and dirty-checked
	// on every flush.
	StateManaged
	// StateDetached is an entity no longer observed by the session.
	StateDetached
	// StateRemoved is a managed entity marked for deletion at the next flush.
	StateRemoved
)

var stateNames = map[State]string{
	StateTransient: "TRANSIENT",
	StateManaged:   "MANAGED",
	StateDetached:  "DETACHED",
	StateRemoved:   "REMOVED",
}

// String returns the upper-case state name.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, bool) {
	for s, n := range stateNames {
		if n == name {
			return s, true
		}
	}
	return 0, false
}

// transitions lists the allowed state changes of a tracked identity.
// DETACHED and eviction after delete drop the identity entirely, so they have
// no outgoing edges.
var transitions = map[State][]State{
	StateTransient: {StateManaged},
	StateManaged:   {StateRemoved, StateDetached},
	StateRemoved:   {},
	StateDetached:  {},
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// stateTracker holds the lifecycle state per identity key.
type stateTracker struct {
	states map[Key]State
}

func newStateTracker() *stateTracker {
	return &stateTracker{states: make(map[Key]State)}
}

func (t *stateTracker) get(k Key) (State, bool) {
	s, ok := t.states[k]
	return s, ok
}

func (t *stateTracker) set(k Key, s State) { t.states[k] = s }

func (t *stateTracker) remove(k Key) { delete(t.states, k) }

func (t *stateTracker) len() int { return len(t.states) }
