package chunk

import (
	"errors"
	"fmt"
)

// State is a room chunk's position in the streaming lifecycle.
type State int

const (
	// StateUnloaded holds no resources; the initial state and the
	// re-entry point after disposal.
	StateUnloaded State = iota
	// StatePreloading means a load is in flight. Several chunks may be
	// preloading at once (neighbor prefetch).
	StatePreloading
	// StateLoaded means the bundle is decoded and resident but not the
	// visible room.
	StateLoaded
	// StateActive is the currently visible room. At most one chunk is
	// active at a time.
	StateActive
	// StateDormant is resident but not visible; kept warm for fast
	// return and eligible for disposal under memory pressure.
	StateDormant
	// StateDisposed means all GPU resources were released; the chunk
	// immediately returns to StateUnloaded.
	StateDisposed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StatePreloading:
		return "preloading"
	case StateLoaded:
		return "loaded"
	case StateActive:
		return "active"
	case StateDormant:
		return "dormant"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInvalidTransition marks a lifecycle edge outside the permitted set.
// It is a programming error, not a user-facing condition.
var ErrInvalidTransition = errors.New("chunk: invalid state transition")

// permitted enumerates the legal lifecycle edges. The extra
// preloading -> unloaded edge is the rollback taken when an in-flight
// load is cancelled or fails.
var permitted = map[State][]State{
	StateUnloaded:   {StatePreloading},
	StatePreloading: {StateLoaded, StateUnloaded},
	StateLoaded:     {StateActive},
	StateActive:     {StateDormant},
	StateDormant:    {StateActive, StateDisposed},
	StateDisposed:   {StateUnloaded},
}

// canTransition reports whether from -> to is a permitted edge.
func canTransition(from, to State) bool {
	for _, next := range permitted[from] {
		if next == to {
			return true
		}
	}
	return false
}
