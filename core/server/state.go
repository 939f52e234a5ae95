package server

import "sync/atomic"

// State is the process-wide lifecycle state of a Server.
//
// Transitions are strictly forward: Idle → Running → Draining → Stopped.
// Running→Draining happens exactly once, on the first Stop call; subsequent
// calls are no-ops. Draining→Stopped happens when every live connection has
// closed or the drain timeout fired, whichever comes first.
type State int32

const (
	// StateIdle is a server that has not been started.
	StateIdle State = iota
	// StateRunning accepts and serves connections.
	StateRunning
	// StateDraining no longer accepts; live connections are finishing.
	StateDraining
	// StateStopped is terminal: listener closed, all connections gone.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// stateMachine guards lifecycle transitions with atomics so Stop can be
// called from any goroutine without taking the server mutex.
type stateMachine struct {
	v atomic.Int32
}

func (m *stateMachine) load() State {
	return State(m.v.Load())
}

func (m *stateMachine) transition(from, to State) bool {
	return m.v.CompareAndSwap(int32(from), int32(to))
}

func (m *stateMachine) store(s State) {
	m.v.Store(int32(s))
}
